// Package local implements the storage contract on top of a single SQLite
// file holding JSON collections. The layout mirrors the browser localStorage
// scheme the app grew up with: per-user collections keyed "<name>:<uid>",
// plus one global collection for shared lists so invited members can
// discover a list without a multi-tenant database. Promoting a list
// physically moves it from the owner's private collection to the global one.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"crypto/rand"
	"encoding/hex"

	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/storage"
)

const (
	keyCategories  = "lz_categories"
	keyItems       = "lz_items"
	keyLists       = "lz_lists"
	keyContacts    = "lz_contacts"
	keySharedLists = "lz_lists_shared"
)

// Store is the local driver. A single mutex serialises read-modify-write
// cycles; this driver is a single-process simulation, not a multi-tenant
// store.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *logrus.Logger
}

// Open opens (creating if needed) the SQLite file backing the store.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("failed to initialise local store: %w", err)
	}
	logger.WithField("path", path).Info("Local store opened")
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func userKey(base, uid string) string {
	return base + ":" + uid
}

func (s *Store) readRaw(ctx context.Context, key string) ([]byte, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read collection %s: %w", key, err)
	}
	return []byte(raw), true, nil
}

func (s *Store) read(ctx context.Context, key string, dst any) error {
	raw, ok, err := s.readRaw(ctx, key)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode collection %s: %w", key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write collection %s: %w", key, err)
	}
	return nil
}

func (s *Store) deleteKey(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", key, err)
	}
	return nil
}

// ensureInit adopts legacy unscoped collections into the user's scope,
// creates empty collections, and installs the seed catalog the first time a
// user's collections are observed empty.
func (s *Store) ensureInit(ctx context.Context, sess models.Session) error {
	for _, base := range []string{keyCategories, keyItems, keyLists, keyContacts} {
		key := userKey(base, sess.UserID)
		if _, ok, err := s.readRaw(ctx, key); err != nil {
			return err
		} else if ok {
			continue
		}
		// Collections written before user scoping are adopted as-is.
		if legacy, ok, err := s.readRaw(ctx, base); err != nil {
			return err
		} else if ok {
			var v json.RawMessage = legacy
			if err := s.write(ctx, key, v); err != nil {
				return err
			}
			if err := s.deleteKey(ctx, base); err != nil {
				return err
			}
			continue
		}
		if err := s.write(ctx, key, []json.RawMessage{}); err != nil {
			return err
		}
	}
	if _, ok, err := s.readRaw(ctx, keySharedLists); err != nil {
		return err
	} else if !ok {
		if err := s.write(ctx, keySharedLists, []models.ShoppingList{}); err != nil {
			return err
		}
	}
	return s.seed(ctx, sess)
}

func (s *Store) seed(ctx context.Context, sess models.Session) error {
	var cats []models.Category
	if err := s.read(ctx, userKey(keyCategories, sess.UserID), &cats); err != nil {
		return err
	}
	if len(cats) == 0 {
		if err := s.write(ctx, userKey(keyCategories, sess.UserID), defaultCategories()); err != nil {
			return err
		}
		s.logger.WithField("user_id", sess.UserID).Debug("seeded default categories")
	}
	var items []models.Item
	if err := s.read(ctx, userKey(keyItems, sess.UserID), &items); err != nil {
		return err
	}
	switch {
	case len(items) == 0:
		if err := s.write(ctx, userKey(keyItems, sess.UserID), defaultItems()); err != nil {
			return err
		}
		s.logger.WithField("user_id", sess.UserID).Debug("seeded default items")
	case len(items) < 5:
		// Backfill missing base items by name for users who created a
		// handful of their own before the seed existed.
		have := map[string]bool{}
		for _, it := range items {
			have[normName(it.Name)] = true
		}
		added := false
		for _, d := range defaultItems() {
			if !have[normName(d.Name)] {
				items = append(items, d)
				added = true
			}
		}
		if added {
			if err := s.write(ctx, userKey(keyItems, sess.UserID), items); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func (s *Store) GetCategories(ctx context.Context, sess models.Session) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	var cats []models.Category
	if err := s.read(ctx, userKey(keyCategories, sess.UserID), &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (s *Store) GetCategoriesByIDs(ctx context.Context, sess models.Session, ids []string) ([]models.Category, error) {
	all, err := s.GetCategories(ctx, sess)
	if err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Category
	for _, c := range all {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, sess models.Session, in storage.CategoryInput) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	var cats []models.Category
	if err := s.read(ctx, userKey(keyCategories, sess.UserID), &cats); err != nil {
		return nil, err
	}
	c := models.Category{ID: newID(), Name: in.Name, Color: in.Color}
	cats = append(cats, c)
	if err := s.write(ctx, userKey(keyCategories, sess.UserID), cats); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, sess models.Session, id string, patch storage.CategoryPatch) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cats []models.Category
	if err := s.read(ctx, userKey(keyCategories, sess.UserID), &cats); err != nil {
		return nil, err
	}
	for i := range cats {
		if cats[i].ID != id {
			continue
		}
		if patch.Name != nil {
			cats[i].Name = *patch.Name
		}
		if patch.Color != nil {
			cats[i].Color = *patch.Color
		}
		if err := s.write(ctx, userKey(keyCategories, sess.UserID), cats); err != nil {
			return nil, err
		}
		return &cats[i], nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) DeleteCategory(ctx context.Context, sess models.Session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cats []models.Category
	if err := s.read(ctx, userKey(keyCategories, sess.UserID), &cats); err != nil {
		return err
	}
	next := cats[:0]
	for _, c := range cats {
		if c.ID != id {
			next = append(next, c)
		}
	}
	// Items keep their categoryId; readers treat a dangling reference as
	// uncategorised.
	return s.write(ctx, userKey(keyCategories, sess.UserID), next)
}

// ---------------------------------------------------------------------------
// Catalog items
// ---------------------------------------------------------------------------

func (s *Store) GetItems(ctx context.Context, sess models.Session) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	var items []models.Item
	if err := s.read(ctx, userKey(keyItems, sess.UserID), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetItemsByIDs(ctx context.Context, sess models.Session, ids []string) ([]models.Item, error) {
	all, err := s.GetItems(ctx, sess)
	if err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Item
	for _, it := range all {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) CreateItem(ctx context.Context, sess models.Session, in storage.ItemInput) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	var items []models.Item
	if err := s.read(ctx, userKey(keyItems, sess.UserID), &items); err != nil {
		return nil, err
	}
	it := models.Item{
		ID:          newID(),
		Name:        in.Name,
		CategoryID:  in.CategoryID,
		Price:       in.Price,
		DefaultUnit: in.DefaultUnit,
		DefaultQty:  in.DefaultQty,
	}
	if it.DefaultUnit == "" {
		it.DefaultUnit = models.UnitPiece
	}
	if it.DefaultQty == 0 {
		it.DefaultQty = 1
	}
	if err := it.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalid, err)
	}
	items = append(items, it)
	if err := s.write(ctx, userKey(keyItems, sess.UserID), items); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) UpdateItem(ctx context.Context, sess models.Session, id string, patch storage.ItemPatch) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Item
	if err := s.read(ctx, userKey(keyItems, sess.UserID), &items); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if patch.Name != nil {
			items[i].Name = *patch.Name
		}
		if patch.CategoryID != nil {
			items[i].CategoryID = *patch.CategoryID
		}
		if patch.Price != nil {
			items[i].Price = *patch.Price
		}
		if patch.DefaultUnit != nil {
			items[i].DefaultUnit = *patch.DefaultUnit
		}
		if patch.DefaultQty != nil {
			items[i].DefaultQty = *patch.DefaultQty
		}
		if err := items[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalid, err)
		}
		if err := s.write(ctx, userKey(keyItems, sess.UserID), items); err != nil {
			return nil, err
		}
		return &items[i], nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) DeleteItem(ctx context.Context, sess models.Session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Item
	if err := s.read(ctx, userKey(keyItems, sess.UserID), &items); err != nil {
		return err
	}
	next := items[:0]
	for _, it := range items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	return s.write(ctx, userKey(keyItems, sess.UserID), next)
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

func (s *Store) GetContacts(ctx context.Context, sess models.Session) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	var contacts []models.Contact
	if err := s.read(ctx, userKey(keyContacts, sess.UserID), &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *Store) CreateContact(ctx context.Context, sess models.Session, in storage.ContactInput) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	var contacts []models.Contact
	if err := s.read(ctx, userKey(keyContacts, sess.UserID), &contacts); err != nil {
		return nil, err
	}
	c := models.Contact{ID: newID(), Name: in.Name, Phone: in.Phone}
	contacts = append(contacts, c)
	if err := s.write(ctx, userKey(keyContacts, sess.UserID), contacts); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateContact(ctx context.Context, sess models.Session, id string, patch storage.ContactPatch) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var contacts []models.Contact
	if err := s.read(ctx, userKey(keyContacts, sess.UserID), &contacts); err != nil {
		return nil, err
	}
	for i := range contacts {
		if contacts[i].ID != id {
			continue
		}
		if patch.Name != nil {
			contacts[i].Name = *patch.Name
		}
		if patch.Phone != nil {
			contacts[i].Phone = *patch.Phone
		}
		if err := s.write(ctx, userKey(keyContacts, sess.UserID), contacts); err != nil {
			return nil, err
		}
		return &contacts[i], nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) DeleteContact(ctx context.Context, sess models.Session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var contacts []models.Contact
	if err := s.read(ctx, userKey(keyContacts, sess.UserID), &contacts); err != nil {
		return err
	}
	next := contacts[:0]
	for _, c := range contacts {
		if c.ID != id {
			next = append(next, c)
		}
	}
	return s.write(ctx, userKey(keyContacts, sess.UserID), next)
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

func (s *Store) readOwn(ctx context.Context, sess models.Session) ([]models.ShoppingList, error) {
	var lists []models.ShoppingList
	if err := s.read(ctx, userKey(keyLists, sess.UserID), &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (s *Store) readShared(ctx context.Context) ([]models.ShoppingList, error) {
	var lists []models.ShoppingList
	if err := s.read(ctx, keySharedLists, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// findList locates a list in the session's private collection or in the
// global shared collection. Returns the containing slice, the index, and
// whether it came from the shared collection.
func (s *Store) findList(ctx context.Context, sess models.Session, id string) ([]models.ShoppingList, int, bool, error) {
	own, err := s.readOwn(ctx, sess)
	if err != nil {
		return nil, 0, false, err
	}
	for i := range own {
		if own[i].ID == id {
			return own, i, false, nil
		}
	}
	shared, err := s.readShared(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	for i := range shared {
		if shared[i].ID == id {
			return shared, i, true, nil
		}
	}
	return nil, 0, false, storage.ErrNotFound
}

func (s *Store) writeScope(ctx context.Context, sess models.Session, lists []models.ShoppingList, shared bool) error {
	if shared {
		return s.write(ctx, keySharedLists, lists)
	}
	return s.write(ctx, userKey(keyLists, sess.UserID), lists)
}

func (s *Store) GetLists(ctx context.Context, sess models.Session) ([]models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	own, err := s.readOwn(ctx, sess)
	if err != nil {
		return nil, err
	}
	shared, err := s.readShared(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ShoppingList, 0, len(own)+len(shared))
	for _, l := range shared {
		if l.IsOwner(sess) {
			out = append(out, l)
			continue
		}
		if _, ok := l.MemberFor(sess); ok {
			out = append(out, l)
		}
	}
	out = append(out, own...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetList(ctx context.Context, sess models.Session, id string) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, idx, _, err := s.findList(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	l := lists[idx]
	return &l, nil
}

func (s *Store) CreateList(ctx context.Context, sess models.Session, in storage.CreateListInput) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInit(ctx, sess); err != nil {
		return nil, err
	}
	typ := in.Type
	if typ == "" {
		typ = models.ListPersonal
	}
	lines := make([]models.ListItem, 0, len(in.InitialItems))
	for _, itemID := range in.InitialItems {
		lines = append(lines, models.ListItem{
			ID:       newID(),
			ItemID:   itemID,
			Quantity: 1,
			Checked:  false,
		})
	}
	l := models.ShoppingList{
		ID:                  newID(),
		Name:                in.Name,
		Description:         in.Description,
		CreatedAt:           time.Now().UTC(),
		UserID:              sess.UserID,
		Items:               lines,
		Type:                typ,
		Members:             append([]models.Member(nil), in.Members...),
		SplitEnabled:        in.SplitEnabled,
		IncludeOwnerInSplit: in.IncludeOwnerInSplit,
	}
	shared := typ == models.ListShared
	var lists []models.ShoppingList
	var err error
	if shared {
		lists, err = s.readShared(ctx)
	} else {
		lists, err = s.readOwn(ctx, sess)
	}
	if err != nil {
		return nil, err
	}
	lists = append(lists, l)
	if err := s.writeScope(ctx, sess, lists, shared); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) UpdateList(ctx context.Context, sess models.Session, id string, patch storage.ListPatch) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, idx, shared, err := s.findList(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	l := lists[idx]
	applyListPatch(&l, patch)
	if patch.Members != nil && len(l.Members) > 0 && l.Type == models.ListPersonal {
		// Membership implies shared: a personal list that gains members must
		// become discoverable for them.
		l.Type = models.ListShared
	}
	if !shared && l.Type == models.ListShared {
		// The patch made a private list shared: move it to the global
		// collection so members can see it.
		remaining := append(lists[:idx:idx], lists[idx+1:]...)
		if err := s.writeScope(ctx, sess, remaining, false); err != nil {
			return nil, err
		}
		sharedLists, err := s.readShared(ctx)
		if err != nil {
			return nil, err
		}
		replaced := false
		for i := range sharedLists {
			if sharedLists[i].ID == id {
				sharedLists[i] = l
				replaced = true
				break
			}
		}
		if !replaced {
			sharedLists = append(sharedLists, l)
		}
		if err := s.write(ctx, keySharedLists, sharedLists); err != nil {
			return nil, err
		}
		return &l, nil
	}
	lists[idx] = l
	if err := s.writeScope(ctx, sess, lists, shared); err != nil {
		return nil, err
	}
	return &l, nil
}

func applyListPatch(l *models.ShoppingList, patch storage.ListPatch) {
	if patch.Name != nil {
		l.Name = *patch.Name
	}
	if patch.Description != nil {
		l.Description = *patch.Description
	}
	if patch.Type != nil {
		l.Type = *patch.Type
	}
	if patch.Members != nil {
		l.Members = append([]models.Member(nil), (*patch.Members)...)
	}
	if patch.SplitEnabled != nil {
		l.SplitEnabled = *patch.SplitEnabled
	}
	if patch.IncludeOwnerInSplit != nil {
		l.IncludeOwnerInSplit = *patch.IncludeOwnerInSplit
	}
	if patch.AllowMembersToInvite != nil {
		l.AllowMembersToInvite = *patch.AllowMembersToInvite
	}
}

func (s *Store) PromoteListToShared(ctx context.Context, sess models.Session, id string) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	own, err := s.readOwn(ctx, sess)
	if err != nil {
		return nil, err
	}
	for i := range own {
		if own[i].ID != id {
			continue
		}
		promoted := own[i]
		promoted.Type = models.ListShared
		remaining := append(own[:i:i], own[i+1:]...)
		if err := s.writeScope(ctx, sess, remaining, false); err != nil {
			return nil, err
		}
		shared, err := s.readShared(ctx)
		if err != nil {
			return nil, err
		}
		exists := false
		for _, sl := range shared {
			if sl.ID == promoted.ID {
				exists = true
				break
			}
		}
		if !exists {
			shared = append(shared, promoted)
		}
		if err := s.write(ctx, keySharedLists, shared); err != nil {
			return nil, err
		}
		return &promoted, nil
	}
	shared, err := s.readShared(ctx)
	if err != nil {
		return nil, err
	}
	for i := range shared {
		if shared[i].ID != id {
			continue
		}
		if shared[i].Type != models.ListShared {
			shared[i].Type = models.ListShared
			if err := s.write(ctx, keySharedLists, shared); err != nil {
				return nil, err
			}
		}
		l := shared[i]
		return &l, nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) DeleteList(ctx context.Context, sess models.Session, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	own, err := s.readOwn(ctx, sess)
	if err != nil {
		return err
	}
	next := make([]models.ShoppingList, 0, len(own))
	for _, l := range own {
		if l.ID != id {
			next = append(next, l)
		}
	}
	if len(next) != len(own) {
		return s.writeScope(ctx, sess, next, false)
	}
	shared, err := s.readShared(ctx)
	if err != nil {
		return err
	}
	nextShared := make([]models.ShoppingList, 0, len(shared))
	for _, l := range shared {
		if l.ID != id {
			nextShared = append(nextShared, l)
		}
	}
	if len(nextShared) != len(shared) {
		return s.write(ctx, keySharedLists, nextShared)
	}
	return nil
}

// ---------------------------------------------------------------------------
// List lines
// ---------------------------------------------------------------------------

func (s *Store) AddItemToList(ctx context.Context, sess models.Session, listID string, in storage.ListItemInput) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, idx, shared, err := s.findList(ctx, sess, listID)
	if err != nil {
		return nil, err
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	line := models.ListItem{
		ID:        newID(),
		ItemID:    in.ItemID,
		Quantity:  qty,
		Checked:   in.Checked,
		Price:     in.Price,
		Unit:      in.Unit,
		CreatedBy: in.CreatedBy,
	}
	lists[idx].Items = append(lists[idx].Items, line)
	if err := s.writeScope(ctx, sess, lists, shared); err != nil {
		return nil, err
	}
	l := lists[idx]
	return &l, nil
}

func (s *Store) UpdateListItem(ctx context.Context, sess models.Session, listID, lineID string, patch storage.ListItemPatch) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, idx, shared, err := s.findList(ctx, sess, listID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range lists[idx].Items {
		if lists[idx].Items[i].ID != lineID {
			continue
		}
		li := &lists[idx].Items[i]
		if patch.Quantity != nil {
			li.Quantity = *patch.Quantity
		}
		if patch.Price != nil {
			li.Price = *patch.Price
		}
		if patch.Checked != nil {
			li.Checked = *patch.Checked
		}
		if patch.Unit != nil {
			li.Unit = *patch.Unit
		}
		found = true
		break
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	if err := s.writeScope(ctx, sess, lists, shared); err != nil {
		return nil, err
	}
	l := lists[idx]
	return &l, nil
}

func (s *Store) ToggleListItem(ctx context.Context, sess models.Session, listID, lineID string, checked bool) (*models.ShoppingList, error) {
	return s.UpdateListItem(ctx, sess, listID, lineID, storage.ListItemPatch{Checked: &checked})
}

func (s *Store) DeleteListItem(ctx context.Context, sess models.Session, listID, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, idx, shared, err := s.findList(ctx, sess, listID)
	if err != nil {
		return err
	}
	items := lists[idx].Items
	next := make([]models.ListItem, 0, len(items))
	for _, li := range items {
		if li.ID != lineID {
			next = append(next, li)
		}
	}
	if len(next) == len(items) {
		return storage.ErrNotFound
	}
	lists[idx].Items = next
	return s.writeScope(ctx, sess, lists, shared)
}

// ---------------------------------------------------------------------------
// Charges
// ---------------------------------------------------------------------------

func (s *Store) UpdateMemberChargeStatus(ctx context.Context, sess models.Session, listID, memberKey string, status models.ChargeStatus, proofName string) (*models.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists, idx, shared, err := s.findList(ctx, sess, listID)
	if err != nil {
		return nil, err
	}
	l := &lists[idx]
	if l.Charges == nil || len(l.Charges.ByMember) == 0 {
		by := make([]models.MemberCharge, 0, len(l.Members))
		for _, m := range l.Members {
			by = append(by, models.MemberCharge{MemberKey: m.Key(), Name: m.Name, Status: models.ChargePending})
		}
		l.Charges = &models.Charges{ByMember: by}
	}
	updated := false
	for i := range l.Charges.ByMember {
		if l.Charges.ByMember[i].MemberKey != memberKey {
			continue
		}
		if !l.Charges.ByMember[i].Status.CanAdvance(status) {
			// Backward transition: keep the stored status.
			out := lists[idx]
			return &out, nil
		}
		l.Charges.ByMember[i].Status = status
		if proofName != "" {
			l.Charges.ByMember[i].ProofName = proofName
		}
		updated = true
		break
	}
	if !updated {
		name := memberKey
		for _, m := range l.Members {
			if m.Key() == memberKey {
				name = m.Name
				break
			}
		}
		l.Charges.ByMember = append(l.Charges.ByMember, models.MemberCharge{
			MemberKey: memberKey, Name: name, Status: status, ProofName: proofName,
		})
	}
	if err := s.writeScope(ctx, sess, lists, shared); err != nil {
		return nil, err
	}
	out := lists[idx]
	return &out, nil
}

// ResetAll clears the session user's collections. Shared lists owned by
// other users are left alone.
func (s *Store) ResetAll(ctx context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs *multierror.Error
	for _, base := range []string{keyCategories, keyItems, keyLists, keyContacts} {
		if err := s.write(ctx, userKey(base, sess.UserID), []json.RawMessage{}); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
