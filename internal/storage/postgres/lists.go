package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/storage"
)

const listColumns = `id, user_id, name, COALESCE(description, ''), created_at, type,
	split_enabled, include_owner_in_split, allow_members_invite`

func scanListRow(scanner interface{ Scan(...any) error }) (*models.ShoppingList, error) {
	var l models.ShoppingList
	var typ string
	var createdAt time.Time
	err := scanner.Scan(&l.ID, &l.UserID, &l.Name, &l.Description, &createdAt, &typ,
		&l.SplitEnabled, &l.IncludeOwnerInSplit, &l.AllowMembersToInvite)
	if err != nil {
		return nil, err
	}
	l.CreatedAt = createdAt
	l.Type = models.ListType(typ)
	return &l, nil
}

// loadMembers fetches membership for a set of lists. Permission rejections
// degrade to empty membership instead of failing.
func (s *Store) loadMembers(ctx context.Context, listIDs []string) (map[string][]models.Member, error) {
	out := make(map[string][]models.Member)
	if len(listIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT list_id, name, COALESCE(phone, '') FROM list_members WHERE list_id = ANY($1) ORDER BY id`,
		pq.Array(listIDs))
	if err != nil {
		if isPermissionDenied(err) {
			s.logger.WithError(err).Warn("membership read denied, degrading to empty membership")
			return out, nil
		}
		return nil, fmt.Errorf("failed to query list members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var listID string
		var m models.Member
		if err := rows.Scan(&listID, &m.Name, &m.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan list member: %w", err)
		}
		out[listID] = append(out[listID], m)
	}
	return out, rows.Err()
}

func (s *Store) loadCharges(ctx context.Context, listIDs []string) (map[string][]models.MemberCharge, error) {
	out := make(map[string][]models.MemberCharge)
	if len(listIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT list_id, member_key, name, status, COALESCE(proof_name, '')
		 FROM list_charges WHERE list_id = ANY($1)`,
		pq.Array(listIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query list charges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var listID string
		var c models.MemberCharge
		var status string
		if err := rows.Scan(&listID, &c.MemberKey, &c.Name, &status, &c.ProofName); err != nil {
			return nil, fmt.Errorf("failed to scan list charge: %w", err)
		}
		c.Status = models.ChargeStatus(status)
		out[listID] = append(out[listID], c)
	}
	return out, rows.Err()
}

func (s *Store) loadLines(ctx context.Context, listIDs []string) (map[string][]models.ListItem, error) {
	out := make(map[string][]models.ListItem)
	if len(listIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT list_id, id, item_id, quantity, checked, price, COALESCE(unit, ''), COALESCE(created_by, '')
		 FROM list_items WHERE list_id = ANY($1) ORDER BY created_at ASC`,
		pq.Array(listIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query list items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var listID string
		var li models.ListItem
		var unit string
		if err := rows.Scan(&listID, &li.ID, &li.ItemID, &li.Quantity, &li.Checked, &li.Price, &unit, &li.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		li.Unit = models.Unit(unit)
		out[listID] = append(out[listID], li)
	}
	return out, rows.Err()
}

// attach populates lines, members and charges for a batch of lists.
func (s *Store) attach(ctx context.Context, lists []*models.ShoppingList) error {
	ids := make([]string, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	lines, err := s.loadLines(ctx, ids)
	if err != nil {
		return err
	}
	members, err := s.loadMembers(ctx, ids)
	if err != nil {
		return err
	}
	charges, err := s.loadCharges(ctx, ids)
	if err != nil {
		return err
	}
	for _, l := range lists {
		l.Items = lines[l.ID]
		if l.Items == nil {
			l.Items = []models.ListItem{}
		}
		l.Members = members[l.ID]
		if l.Members == nil {
			l.Members = []models.Member{}
		}
		if by := charges[l.ID]; len(by) > 0 {
			l.Charges = &models.Charges{ByMember: by}
		}
	}
	return nil
}

func (s *Store) GetLists(ctx context.Context, sess models.Session) ([]models.ShoppingList, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE user_id = $1`, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.ShoppingList
	owned := map[string]bool{}
	for rows.Next() {
		l, err := scanListRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, l)
		owned[l.ID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	memberIDs, err := s.memberListIDs(ctx, sess)
	if err != nil {
		return nil, err
	}
	var extra []string
	for _, id := range memberIDs {
		if !owned[id] {
			extra = append(extra, id)
		}
	}
	if len(extra) > 0 {
		mrows, err := s.db.QueryContext(ctx,
			`SELECT `+listColumns+` FROM lists WHERE id = ANY($1)`, pq.Array(extra))
		if err != nil {
			return nil, fmt.Errorf("failed to query member lists: %w", err)
		}
		defer mrows.Close()
		for mrows.Next() {
			l, err := scanListRow(mrows)
			if err != nil {
				return nil, fmt.Errorf("failed to scan list: %w", err)
			}
			lists = append(lists, l)
		}
		if err := mrows.Err(); err != nil {
			return nil, err
		}
	}

	if err := s.attach(ctx, lists); err != nil {
		return nil, err
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].CreatedAt.After(lists[j].CreatedAt) })
	out := make([]models.ShoppingList, len(lists))
	for i, l := range lists {
		out[i] = *l
	}
	return out, nil
}

// memberListIDs finds lists where the session user appears in list_members,
// matched by phone digits or case-insensitive full name. Degrades to none
// on permission rejection.
func (s *Store) memberListIDs(ctx context.Context, sess models.Session) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT list_id FROM list_members WHERE phone = $1 OR lower(name) = lower($2)`,
		models.PhoneDigits(sess.Phone), strings.TrimSpace(sess.Name))
	if err != nil {
		if isPermissionDenied(err) {
			s.logger.WithError(err).Warn("membership lookup denied, continuing with owned lists only")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetList(ctx context.Context, sess models.Session, id string) (*models.ShoppingList, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE id = $1`, id)
	l, err := scanListRow(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	// Personal lists are only visible to their owner. Shared lists stay
	// readable even when membership cannot be checked (degraded mode).
	if !l.IsOwner(sess) && l.Type != models.ListShared {
		return nil, storage.ErrNotFound
	}
	if err := s.attach(ctx, []*models.ShoppingList{l}); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) CreateList(ctx context.Context, sess models.Session, in storage.CreateListInput) (*models.ShoppingList, error) {
	typ := in.Type
	if typ == "" {
		typ = models.ListPersonal
	}
	query := `
		INSERT INTO lists (user_id, name, description, created_at, type, split_enabled, include_owner_in_split, allow_members_invite)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false)
		RETURNING id`

	now := time.Now().UTC()
	var id string
	err := s.db.QueryRowContext(ctx, query,
		sess.UserID, in.Name, in.Description, now, string(typ), in.SplitEnabled, in.IncludeOwnerInSplit).
		Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	for _, itemID := range in.InitialItems {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO list_items (list_id, item_id, quantity, checked, price, created_at)
			 VALUES ($1, $2, 1, false, 0, $3)`,
			id, itemID, now); err != nil {
			return nil, fmt.Errorf("failed to add initial item: %w", err)
		}
	}
	if err := s.insertMembers(ctx, id, in.Members); err != nil {
		return nil, err
	}
	return s.GetList(ctx, sess, id)
}

func (s *Store) insertMembers(ctx context.Context, listID string, members []models.Member) error {
	for _, m := range members {
		name := strings.TrimSpace(m.Name)
		phone := models.PhoneDigits(m.Phone)
		if name == "" && phone == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO list_members (list_id, name, phone) VALUES ($1, $2, $3)`,
			listID, name, phone); err != nil {
			if isPermissionDenied(err) {
				s.logger.WithError(err).Warn("membership write denied, continuing without member")
				continue
			}
			return fmt.Errorf("failed to add list member: %w", err)
		}
	}
	return nil
}

func (s *Store) UpdateList(ctx context.Context, sess models.Session, id string, patch storage.ListPatch) (*models.ShoppingList, error) {
	if patch.Type == nil && patch.Members != nil && len(*patch.Members) > 0 {
		// Membership implies shared: a personal list that gains members must
		// become discoverable for them.
		shared := models.ListShared
		patch.Type = &shared
	}
	var typ *string
	if patch.Type != nil {
		t := string(*patch.Type)
		typ = &t
	}
	query := `
		UPDATE lists
		SET name                   = COALESCE($2, name),
		    description            = COALESCE($3, description),
		    type                   = COALESCE($4, type),
		    split_enabled          = COALESCE($5, split_enabled),
		    include_owner_in_split = COALESCE($6, include_owner_in_split),
		    allow_members_invite   = COALESCE($7, allow_members_invite)
		WHERE id = $1
		RETURNING id`

	var updatedID string
	err := s.db.QueryRowContext(ctx, query, id,
		patch.Name, patch.Description, typ, patch.SplitEnabled,
		patch.IncludeOwnerInSplit, patch.AllowMembersToInvite).Scan(&updatedID)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update list: %w", err)
	}

	if patch.Members != nil {
		// Replace membership wholesale to reflect the submitted state.
		if _, err := s.db.ExecContext(ctx, `DELETE FROM list_members WHERE list_id = $1`, id); err != nil {
			if !isPermissionDenied(err) {
				return nil, fmt.Errorf("failed to clear list members: %w", err)
			}
			s.logger.WithError(err).Warn("membership delete denied, leaving members as-is")
		} else if err := s.insertMembers(ctx, id, *patch.Members); err != nil {
			return nil, err
		}
	}
	return s.GetList(ctx, sess, id)
}

func (s *Store) PromoteListToShared(ctx context.Context, sess models.Session, id string) (*models.ShoppingList, error) {
	// Idempotent; "shared" is just the type flag here, visibility comes
	// from the membership table.
	shared := models.ListShared
	return s.UpdateList(ctx, sess, id, storage.ListPatch{Type: &shared})
}

func (s *Store) DeleteList(ctx context.Context, sess models.Session, id string) error {
	// Lines, members and charges go with the list via ON DELETE CASCADE.
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM lists WHERE id = $1 AND user_id = $2`, id, sess.UserID); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

func (s *Store) AddItemToList(ctx context.Context, sess models.Session, listID string, in storage.ListItemInput) (*models.ShoppingList, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM lists WHERE id = $1)`, listID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check list: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO list_items (list_id, item_id, quantity, checked, price, unit, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`,
		listID, in.ItemID, qty, in.Checked, in.Price, string(in.Unit), in.CreatedBy, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to add list item: %w", err)
	}
	return s.GetList(ctx, sess, listID)
}

func (s *Store) UpdateListItem(ctx context.Context, sess models.Session, listID, lineID string, patch storage.ListItemPatch) (*models.ShoppingList, error) {
	var unit *string
	if patch.Unit != nil {
		u := string(*patch.Unit)
		unit = &u
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE list_items
		 SET quantity = COALESCE($3, quantity),
		     price    = COALESCE($4, price),
		     checked  = COALESCE($5, checked),
		     unit     = COALESCE($6, unit)
		 WHERE id = $2 AND list_id = $1`,
		listID, lineID, patch.Quantity, patch.Price, patch.Checked, unit)
	if err != nil {
		return nil, fmt.Errorf("failed to update list item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetList(ctx, sess, listID)
}

func (s *Store) ToggleListItem(ctx context.Context, sess models.Session, listID, lineID string, checked bool) (*models.ShoppingList, error) {
	return s.UpdateListItem(ctx, sess, listID, lineID, storage.ListItemPatch{Checked: &checked})
}

func (s *Store) DeleteListItem(ctx context.Context, sess models.Session, listID, lineID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM list_items WHERE id = $2 AND list_id = $1`, listID, lineID)
	if err != nil {
		return fmt.Errorf("failed to delete list item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateMemberChargeStatus(ctx context.Context, sess models.Session, listID, memberKey string, status models.ChargeStatus, proofName string) (*models.ShoppingList, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM lists WHERE id = $1)`, listID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check list: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	var current string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM list_charges WHERE list_id = $1 AND member_key = $2`,
		listID, memberKey).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		// First status for this member; falls through to the upsert.
	case err != nil:
		return nil, fmt.Errorf("failed to read charge status: %w", err)
	default:
		if !models.ChargeStatus(current).CanAdvance(status) {
			return s.GetList(ctx, sess, listID)
		}
	}

	var name string
	_ = s.db.QueryRowContext(ctx,
		`SELECT name FROM list_members
		 WHERE list_id = $1 AND (phone = $2 OR (phone = '' AND lower(name) = $2))
		 LIMIT 1`,
		listID, memberKey).Scan(&name)
	if name == "" {
		name = memberKey
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO list_charges (list_id, member_key, name, status, proof_name)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		 ON CONFLICT (list_id, member_key) DO UPDATE
		 SET status = excluded.status,
		     proof_name = COALESCE(excluded.proof_name, list_charges.proof_name)`,
		listID, memberKey, name, string(status), proofName)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert charge status: %w", err)
	}
	return s.GetList(ctx, sess, listID)
}
