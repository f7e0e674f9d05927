package models

import (
	"strings"
	"time"
)

// ListType distinguishes owner-private lists from member-visible ones.
type ListType string

const (
	ListPersonal ListType = "personal"
	ListShared   ListType = "shared"
)

// ListItem is one line within a shopping list. Price is always the per-unit
// price; read sites multiply by Quantity.
type ListItem struct {
	ID        string  `json:"id" db:"id"`
	ItemID    string  `json:"itemId" db:"item_id"`
	Quantity  float64 `json:"quantity" db:"quantity"`
	Checked   bool    `json:"checked" db:"checked"`
	Price     float64 `json:"price" db:"price"`
	Unit      Unit    `json:"unit,omitempty" db:"unit"`
	CreatedBy string  `json:"createdBy,omitempty" db:"created_by"`
}

// Total is the line total: per-unit price times quantity.
func (li ListItem) Total() float64 {
	return li.Price * li.Quantity
}

// Member is a person invited to a shared list. Identified by name, phone, or
// both; the phone is the stable identity when present.
type Member struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Key returns the member's stable key: phone digits when a phone is known,
// otherwise the lowercased trimmed name.
func (m Member) Key() string {
	if d := PhoneDigits(m.Phone); d != "" {
		return d
	}
	return strings.ToLower(strings.TrimSpace(m.Name))
}

// Is reports whether the session user is this member. Phones compare by
// digits; names compare whole, case-insensitively. No substring matching.
func (m Member) Is(sess Session) bool {
	if d := PhoneDigits(m.Phone); d != "" && d == PhoneDigits(sess.Phone) {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(m.Name))
	return name != "" && name == strings.ToLower(strings.TrimSpace(sess.Name))
}

// ShoppingList is the aggregate: metadata, membership, embedded lines and
// per-member charge state.
type ShoppingList struct {
	ID                   string     `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Description          string     `json:"description,omitempty" db:"description"`
	CreatedAt            time.Time  `json:"createdAt" db:"created_at"`
	UserID               string     `json:"userId" db:"user_id"`
	Items                []ListItem `json:"items"`
	Type                 ListType   `json:"type" db:"type"`
	Members              []Member   `json:"members"`
	SplitEnabled         bool       `json:"splitEnabled" db:"split_enabled"`
	IncludeOwnerInSplit  bool       `json:"includeOwnerInSplit" db:"include_owner_in_split"`
	AllowMembersToInvite bool       `json:"allowMembersToInvite" db:"allow_members_invite"`
	Charges              *Charges   `json:"charges,omitempty"`
}

// IsShared reports whether the list has been promoted.
func (l *ShoppingList) IsShared() bool {
	return l.Type == ListShared
}

// IsOwner reports whether the session user owns the list.
func (l *ShoppingList) IsOwner(sess Session) bool {
	return l.UserID == sess.UserID
}

// MemberFor finds the member record for the session user.
func (l *ShoppingList) MemberFor(sess Session) (Member, bool) {
	for _, m := range l.Members {
		if m.Is(sess) {
			return m, true
		}
	}
	return Member{}, false
}

// MemberNames returns the display names of all members, in order.
func (l *ShoppingList) MemberNames() []string {
	names := make([]string, len(l.Members))
	for i, m := range l.Members {
		names[i] = m.Name
	}
	return names
}

// ChargeFor returns the charge state for a member key. Members without an
// explicit entry are pendente.
func (l *ShoppingList) ChargeFor(memberKey string) MemberCharge {
	if l.Charges != nil {
		for _, c := range l.Charges.ByMember {
			if c.MemberKey == memberKey {
				return c
			}
		}
	}
	var name string
	for _, m := range l.Members {
		if m.Key() == memberKey {
			name = m.Name
			break
		}
	}
	return MemberCharge{MemberKey: memberKey, Name: name, Status: ChargePending}
}
