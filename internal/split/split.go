// Package split derives totals, shares and account balances from loaded
// lists. Pure computation: no storage, no I/O, no errors — degenerate inputs
// (no lines, no participants) fall back to defined zero values.
package split

import (
	"math"

	"github.com/listaszap/listaszap/internal/models"
)

// Totals summarises a list's spend.
type Totals struct {
	// Estimated sums price × quantity over every line.
	Estimated float64
	// Actual sums only checked (purchased) lines.
	Actual float64
	// ProgressPct is the rounded percentage of checked lines; 0 for an
	// empty list.
	ProgressPct int
}

// Entry is one account line in the to-pay or to-receive bucket.
type Entry struct {
	ListID       string  `json:"listId"`
	ListName     string  `json:"listName"`
	Amount       float64 `json:"amount"`
	Participants int     `json:"participants"`
	PerPerson    float64 `json:"perPerson"`
	Paid         bool    `json:"paid,omitempty"`
}

// Accounts aggregates what the user owes and is owed across all lists.
type Accounts struct {
	ToPay     []Entry `json:"toPay"`
	ToReceive []Entry `json:"toReceive"`
}

// TotalToPay sums the to-pay bucket.
func (a Accounts) TotalToPay() float64 {
	var sum float64
	for _, e := range a.ToPay {
		sum += e.Amount
	}
	return sum
}

// TotalToReceive sums the to-receive bucket.
func (a Accounts) TotalToReceive() float64 {
	var sum float64
	for _, e := range a.ToReceive {
		sum += e.Amount
	}
	return sum
}

// ListTotals computes estimated spend, actual spend and progress for a list.
func ListTotals(l *models.ShoppingList) Totals {
	var t Totals
	var checked int
	for _, li := range l.Items {
		t.Estimated += li.Total()
		if li.Checked {
			t.Actual += li.Total()
			checked++
		}
	}
	if n := len(l.Items); n > 0 {
		t.ProgressPct = int(math.Round(100 * float64(checked) / float64(n)))
	}
	return t
}

// Participants counts the parties a split divides across: every member plus
// the owner when opted in. Only shared lists with splitting enabled have
// participants.
func Participants(l *models.ShoppingList) int {
	if l.Type != models.ListShared || !l.SplitEnabled {
		return 0
	}
	n := len(l.Members)
	if l.IncludeOwnerInSplit {
		n++
	}
	return n
}

// PerPersonShare returns the even share of the actual spend. ok is false
// when there are no participants; there is never a division by zero.
func PerPersonShare(l *models.ShoppingList) (float64, bool) {
	p := Participants(l)
	if p == 0 {
		return 0, false
	}
	return ListTotals(l).Actual / float64(p), true
}

// AggregateAccounts walks all lists and buckets each into what the session
// user owes (member of someone else's list) or is owed (owner collecting
// from the other participants). Lists without enabled splits, without actual
// spend, or without participants contribute nothing.
func AggregateAccounts(lists []models.ShoppingList, sess models.Session) Accounts {
	var acc Accounts
	for i := range lists {
		l := &lists[i]
		if !l.SplitEnabled {
			continue
		}
		actual := ListTotals(l).Actual
		if actual <= 0 {
			continue
		}
		perPerson, ok := PerPersonShare(l)
		if !ok {
			continue
		}
		participants := Participants(l)

		if l.IsOwner(sess) {
			// The owner collects from every participant but themself.
			others := participants
			if l.IncludeOwnerInSplit {
				others--
			}
			if others <= 0 {
				continue
			}
			acc.ToReceive = append(acc.ToReceive, Entry{
				ListID:       l.ID,
				ListName:     l.Name,
				Amount:       perPerson * float64(others),
				Participants: participants,
				PerPerson:    perPerson,
			})
			continue
		}

		member, isMember := l.MemberFor(sess)
		if !isMember {
			continue
		}
		acc.ToPay = append(acc.ToPay, Entry{
			ListID:       l.ID,
			ListName:     l.Name,
			Amount:       perPerson,
			Participants: participants,
			PerPerson:    perPerson,
			Paid:         l.ChargeFor(member.Key()).Status == models.ChargePaid,
		})
	}
	return acc
}

// ReceiptLine is one checked line with its catalog identity resolved, as
// shown on the charge-detail and pay-bill receipts.
type ReceiptLine struct {
	LineID    string      `json:"lineId"`
	Name      string      `json:"name"`
	Quantity  float64     `json:"quantity"`
	Unit      models.Unit `json:"unit,omitempty"`
	UnitPrice float64     `json:"unitPrice"`
	Total     float64     `json:"total"`
}

// ReceiptLines resolves the checked lines of a list against the catalog.
// Unknown items render as "Item"; the line's own unit wins over the catalog
// default.
func ReceiptLines(l *models.ShoppingList, catalog []models.Item) []ReceiptLine {
	byID := make(map[string]models.Item, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}
	var out []ReceiptLine
	for _, li := range l.Items {
		if !li.Checked {
			continue
		}
		name := "Item"
		unit := li.Unit
		if info, ok := byID[li.ItemID]; ok {
			name = info.Name
			if unit == "" {
				unit = info.DefaultUnit
			}
		}
		qty := li.Quantity
		if qty == 0 {
			qty = 1
		}
		out = append(out, ReceiptLine{
			LineID:    li.ID,
			Name:      name,
			Quantity:  qty,
			Unit:      unit,
			UnitPrice: li.Price,
			Total:     li.Price * qty,
		})
	}
	return out
}
