// Package service is the business logic layer: list lifecycle, sharing,
// split settings, charge fanout and account aggregation. Plain catalog and
// contact CRUD goes straight to the exported Store.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/notify"
	"github.com/listaszap/listaszap/internal/split"
	"github.com/listaszap/listaszap/internal/storage"
	"github.com/listaszap/listaszap/internal/webhook"
)

// Settings-change fulfilment on the automation side is asynchronous; after
// mirroring we re-read until the change is visible or the attempts run out.
const (
	settlePollAttempts = 5
	settlePollDelay    = 600 * time.Millisecond
)

// Service holds the storage driver, the automation client and the notifier.
type Service struct {
	Store storage.Store

	webhook  *webhook.Client
	notifier *notify.Notifier
	logger   *logrus.Logger
}

// New creates a Service. webhook and notifier may be nil, in which case the
// corresponding mirrors are skipped.
func New(store storage.Store, wh *webhook.Client, notifier *notify.Notifier, logger *logrus.Logger) *Service {
	return &Service{Store: store, webhook: wh, notifier: notifier, logger: logger}
}

// mirror runs a best-effort webhook call. Business rejections and transport
// failures are logged; local state is the source of truth either way.
func (s *Service) mirror(op string, err error) {
	if err != nil {
		s.logger.WithError(err).WithField("op", op).Warn("webhook mirror failed")
	}
}

// CreateList creates a list, enforcing that split settings only exist on
// shared lists, and mirrors shared creations to the automation backend.
func (s *Service) CreateList(ctx context.Context, sess models.Session, in storage.CreateListInput) (*models.ShoppingList, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("list name is required")
	}
	if in.Type == "" {
		in.Type = models.ListPersonal
	}
	if in.Type != models.ListShared {
		in.SplitEnabled = false
		in.IncludeOwnerInSplit = false
		in.Members = nil
	}

	list, err := s.Store.CreateList(ctx, sess, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	if s.webhook != nil && list.IsShared() {
		phones := make([]string, 0, len(list.Members))
		for _, m := range list.Members {
			if d := models.PhoneDigits(m.Phone); d != "" {
				phones = append(phones, d)
			}
		}
		_, err := s.webhook.CreateList(ctx, list.Name, list.Type, list.SplitEnabled, phones)
		s.mirror("create-list", err)
	}

	s.logger.WithField("list_id", list.ID).WithField("type", list.Type).Info("list created")
	return list, nil
}

// SettingsPatch updates a list's split settings. Nil fields are untouched.
type SettingsPatch struct {
	SplitEnabled         *bool
	IncludeOwnerInSplit  *bool
	AllowMembersToInvite *bool
}

// UpdateListSettings applies a settings change. Personal lists cannot carry
// split settings; any attempt forces them off. Shared-list changes are
// mirrored to the backend, then the list is re-read until the change settles.
func (s *Service) UpdateListSettings(ctx context.Context, sess models.Session, listID string, patch SettingsPatch) (*models.ShoppingList, error) {
	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}

	if !list.IsShared() {
		off := false
		patch.SplitEnabled = &off
		patch.IncludeOwnerInSplit = &off
		patch.AllowMembersToInvite = &off
	}

	updated, err := s.Store.UpdateList(ctx, sess, listID, storage.ListPatch{
		SplitEnabled:         patch.SplitEnabled,
		IncludeOwnerInSplit:  patch.IncludeOwnerInSplit,
		AllowMembersToInvite: patch.AllowMembersToInvite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update list settings: %w", err)
	}

	if s.webhook != nil && list.IsShared() {
		s.mirror("update-settings", s.webhook.UpdateListSettings(ctx, listID, patch.SplitEnabled))
		updated = s.pollList(ctx, sess, listID, updated, func(l *models.ShoppingList) bool {
			return patch.SplitEnabled == nil || l.SplitEnabled == *patch.SplitEnabled
		})
	}
	return updated, nil
}

// pollList re-reads a list until ok reports the expected state, giving the
// asynchronous backend time to settle. Falls back to the last good copy.
func (s *Service) pollList(ctx context.Context, sess models.Session, listID string, last *models.ShoppingList, ok func(*models.ShoppingList) bool) *models.ShoppingList {
	for attempt := 0; attempt < settlePollAttempts; attempt++ {
		fresh, err := s.Store.GetList(ctx, sess, listID)
		if err == nil {
			last = fresh
			if ok(fresh) {
				return fresh
			}
		}
		select {
		case <-time.After(settlePollDelay):
		case <-ctx.Done():
			return last
		}
	}
	return last
}

// AddMember invites a member to a list. Inviting into a personal list
// promotes it to shared first. Duplicate members (same stable key) are a
// no-op.
func (s *Service) AddMember(ctx context.Context, sess models.Session, listID string, member models.Member) (*models.ShoppingList, error) {
	member.Name = strings.TrimSpace(member.Name)
	if member.Key() == "" {
		return nil, fmt.Errorf("member needs a name or phone")
	}

	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	if !list.IsOwner(sess) && !list.AllowMembersToInvite {
		return nil, fmt.Errorf("only the owner can invite members")
	}

	if !list.IsShared() {
		if list, err = s.Store.PromoteListToShared(ctx, sess, listID); err != nil {
			return nil, fmt.Errorf("failed to promote list %s: %w", listID, err)
		}
	}

	for _, m := range list.Members {
		if m.Key() == member.Key() {
			return list, nil
		}
	}
	members := append(append([]models.Member{}, list.Members...), member)
	updated, err := s.Store.UpdateList(ctx, sess, listID, storage.ListPatch{Members: &members})
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if s.webhook != nil {
		s.mirror("add-member", s.webhook.AddMember(ctx, listID, models.PhoneDigits(member.Phone)))
	}
	return updated, nil
}

// RemoveMember drops a member by stable key. Unknown keys are a no-op.
func (s *Service) RemoveMember(ctx context.Context, sess models.Session, listID, memberKey string) (*models.ShoppingList, error) {
	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	if !list.IsOwner(sess) {
		return nil, fmt.Errorf("only the owner can remove members")
	}

	var removed models.Member
	members := make([]models.Member, 0, len(list.Members))
	for _, m := range list.Members {
		if m.Key() == memberKey {
			removed = m
			continue
		}
		members = append(members, m)
	}
	if len(members) == len(list.Members) {
		return list, nil
	}

	updated, err := s.Store.UpdateList(ctx, sess, listID, storage.ListPatch{Members: &members})
	if err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	if s.webhook != nil {
		s.mirror("remove-member", s.webhook.RemoveMember(ctx, listID, models.PhoneDigits(removed.Phone)))
	}
	return updated, nil
}

// DeleteOrLeave deletes a list when the session user owns it, otherwise
// removes them from the membership.
func (s *Service) DeleteOrLeave(ctx context.Context, sess models.Session, listID string) error {
	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to load list %s: %w", listID, err)
	}

	if list.IsOwner(sess) {
		if err := s.Store.DeleteList(ctx, sess, listID); err != nil {
			return fmt.Errorf("failed to delete list %s: %w", listID, err)
		}
	} else {
		member, ok := list.MemberFor(sess)
		if !ok {
			return nil
		}
		members := make([]models.Member, 0, len(list.Members))
		for _, m := range list.Members {
			if m.Key() != member.Key() {
				members = append(members, m)
			}
		}
		if _, err := s.Store.UpdateList(ctx, sess, listID, storage.ListPatch{Members: &members}); err != nil {
			return fmt.Errorf("failed to leave list %s: %w", listID, err)
		}
	}

	if s.webhook != nil {
		s.mirror("delete-or-leave", s.webhook.DeleteOrLeaveList(ctx, listID, sess.UserID))
	}
	return nil
}

// AddItemToList appends a line and mirrors the insertion.
func (s *Service) AddItemToList(ctx context.Context, sess models.Session, listID string, in storage.ListItemInput) (*models.ShoppingList, error) {
	if in.CreatedBy == "" {
		in.CreatedBy = sess.UserID
	}
	list, err := s.Store.AddItemToList(ctx, sess, listID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to add item to list %s: %w", listID, err)
	}
	if s.webhook != nil && list.IsShared() {
		s.mirror("add-item", s.webhook.AddItemToList(ctx, listID, in.ItemID, in.Quantity, in.Price))
	}
	return list, nil
}

// RemoveListItem deletes a line and mirrors the removal.
func (s *Service) RemoveListItem(ctx context.Context, sess models.Session, listID, lineID string) error {
	if err := s.Store.DeleteListItem(ctx, sess, listID, lineID); err != nil {
		return fmt.Errorf("failed to remove item from list %s: %w", listID, err)
	}
	if s.webhook != nil {
		s.mirror("remove-item", s.webhook.RemoveItem(ctx, listID, lineID))
	}
	return nil
}

// ChargeResult is what a charge fanout produced.
type ChargeResult struct {
	List      *models.ShoppingList   `json:"list"`
	PerPerson float64                `json:"perPerson"`
	Total     float64                `json:"total"`
	Messages  []notify.ChargeMessage `json:"messages"`
}

// SendCharge composes one PIX charge message per member, advances every
// member's charge to cobrado and mirrors the notification to the backend.
// Only the owner of a shared list with splitting enabled can charge.
func (s *Service) SendCharge(ctx context.Context, sess models.Session, listID, pixKey string) (*ChargeResult, error) {
	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	if !list.IsOwner(sess) {
		return nil, fmt.Errorf("only the owner can send charges")
	}
	if !list.IsShared() || !list.SplitEnabled {
		return nil, fmt.Errorf("list %s has no split to charge", listID)
	}
	perPerson, ok := split.PerPersonShare(list)
	if !ok || len(list.Members) == 0 {
		return nil, fmt.Errorf("list %s has no participants to charge", listID)
	}
	totals := split.ListTotals(list)
	if totals.Actual <= 0 {
		return nil, fmt.Errorf("list %s has no purchased items to charge", listID)
	}

	var messages []notify.ChargeMessage
	if s.notifier != nil {
		messages, err = s.notifier.SendCharges(ctx, notify.ChargeRequest{
			ListName:     list.Name,
			OwnerName:    sess.Name,
			Total:        totals.Actual,
			Participants: split.Participants(list),
			PerPerson:    perPerson,
			PixKey:       pixKey,
			Members:      list.Members,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to compose charges: %w", err)
		}
	}

	// Every member moves to cobrado; the monotonic upsert keeps anyone who
	// already paid at pago.
	for _, m := range list.Members {
		list, err = s.Store.UpdateMemberChargeStatus(ctx, sess, listID, m.Key(), models.ChargeCharged, "")
		if err != nil {
			return nil, fmt.Errorf("failed to mark member %s as charged: %w", m.Key(), err)
		}
	}

	if s.webhook != nil {
		s.mirror("send-charge", s.webhook.SendChargeNotification(ctx, listID, perPerson, pixKey))
	}

	s.logger.WithField("list_id", listID).WithField("members", list.MemberNames()).Info("charges sent")
	return &ChargeResult{List: list, PerPerson: perPerson, Total: totals.Actual, Messages: messages}, nil
}

// UpdateChargeStatus changes one member's charge. The pago transition is
// reserved for the paying member themself; the owner only moves charges
// through cobrado (normally via SendCharge).
func (s *Service) UpdateChargeStatus(ctx context.Context, sess models.Session, listID, memberKey string, status models.ChargeStatus, proofName string) (*models.ShoppingList, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid charge status %q", status)
	}
	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	if status == models.ChargePaid {
		member, ok := list.MemberFor(sess)
		if !ok || member.Key() != memberKey {
			return nil, fmt.Errorf("only the paying member can confirm their payment")
		}
	} else if !list.IsOwner(sess) {
		return nil, fmt.Errorf("only the owner can update charges")
	}

	updated, err := s.Store.UpdateMemberChargeStatus(ctx, sess, listID, memberKey, status, proofName)
	if err != nil {
		return nil, fmt.Errorf("failed to update charge for %s: %w", memberKey, err)
	}
	return updated, nil
}

// ConfirmPayment marks the session user's own charge as pago, optionally
// attaching a receipt file name.
func (s *Service) ConfirmPayment(ctx context.Context, sess models.Session, listID, proofName string) (*models.ShoppingList, error) {
	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	member, ok := list.MemberFor(sess)
	if !ok {
		return nil, fmt.Errorf("user is not a member of list %s", listID)
	}
	return s.UpdateChargeStatus(ctx, sess, listID, member.Key(), models.ChargePaid, proofName)
}

// Accounts aggregates what the user owes and is owed across all lists.
func (s *Service) Accounts(ctx context.Context, sess models.Session) (split.Accounts, error) {
	lists, err := s.Store.GetLists(ctx, sess)
	if err != nil {
		return split.Accounts{}, fmt.Errorf("failed to load lists: %w", err)
	}
	return split.AggregateAccounts(lists, sess), nil
}

// Receipt resolves a list's purchased lines against the catalog together
// with totals and the per-person share.
type Receipt struct {
	List      *models.ShoppingList `json:"list"`
	Lines     []split.ReceiptLine  `json:"lines"`
	Totals    split.Totals         `json:"totals"`
	PerPerson float64              `json:"perPerson"`
	HasSplit  bool                 `json:"hasSplit"`
}

// BuildReceipt loads a list and its catalog items and assembles the receipt.
func (s *Service) BuildReceipt(ctx context.Context, sess models.Session, listID string) (*Receipt, error) {
	list, err := s.Store.GetList(ctx, sess, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	ids := make([]string, 0, len(list.Items))
	for _, li := range list.Items {
		ids = append(ids, li.ItemID)
	}
	catalog, err := s.Store.GetItemsByIDs(ctx, sess, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog items: %w", err)
	}

	perPerson, ok := split.PerPersonShare(list)
	return &Receipt{
		List:      list,
		Lines:     split.ReceiptLines(list, catalog),
		Totals:    split.ListTotals(list),
		PerPerson: perPerson,
		HasSplit:  ok,
	}, nil
}

// resetter is implemented by drivers that can wipe a user's data.
type resetter interface {
	ResetAll(ctx context.Context, sess models.Session) error
}

// ResetAll wipes the session user's data when the driver supports it.
func (s *Service) ResetAll(ctx context.Context, sess models.Session) error {
	r, ok := s.Store.(resetter)
	if !ok {
		return fmt.Errorf("storage driver does not support reset")
	}
	if err := r.ResetAll(ctx, sess); err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}
	s.logger.WithField("user_id", sess.UserID).Warn("user data reset")
	return nil
}
