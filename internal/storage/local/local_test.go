package local

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), l)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	owner = models.Session{UserID: "u1", Name: "Carla", Phone: "5511999990000"}
	ana   = models.Session{UserID: "u2", Name: "Ana", Phone: "5511988881111"}
	carol = models.Session{UserID: "u3", Name: "Carol", Phone: "5511966663333"}
)

func TestSeedInstalledOnFirstUse(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	categories, err := s.GetCategories(ctx, owner)
	if err != nil {
		t.Fatalf("GetCategories: %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("expected seeded categories on first use")
	}

	items, err := s.GetItems(ctx, owner)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected seeded items on first use")
	}
	for _, it := range items {
		if strings.HasPrefix(it.ID, "seed-") {
			return
		}
	}
	t.Error("no seed-prefixed item found in fresh catalog")
}

func TestSeedReinstalledWhenCatalogEmptied(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	items, err := s.GetItems(ctx, owner)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	for _, it := range items {
		if err := s.DeleteItem(ctx, owner, it.ID); err != nil {
			t.Fatalf("DeleteItem(%s): %v", it.ID, err)
		}
	}

	// The seed targets any empty catalog, so a full wipe brings it back.
	items, err = s.GetItems(ctx, owner)
	if err != nil {
		t.Fatalf("GetItems after wipe: %v", err)
	}
	if len(items) == 0 {
		t.Error("expected catalog to be re-seeded after being emptied")
	}
}

func TestCreateItemRejectsInvalidQuantities(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	// Piece items need positive whole quantities.
	if _, err := s.CreateItem(ctx, owner, storage.ItemInput{
		Name:        "Cerveja",
		DefaultUnit: models.UnitPiece,
		DefaultQty:  2.5,
	}); !errors.Is(err, storage.ErrInvalid) {
		t.Errorf("fractional piece qty: err = %v, want ErrInvalid", err)
	}

	// Negative quantities are invalid for any unit.
	if _, err := s.CreateItem(ctx, owner, storage.ItemInput{
		Name:        "Picanha",
		DefaultUnit: models.UnitWeight,
		DefaultQty:  -3,
	}); !errors.Is(err, storage.ErrInvalid) {
		t.Errorf("negative weight qty: err = %v, want ErrInvalid", err)
	}

	// Weight items may carry fractional quantities.
	it, err := s.CreateItem(ctx, owner, storage.ItemInput{
		Name:        "Queijo",
		DefaultUnit: models.UnitWeight,
		DefaultQty:  2.5,
	})
	if err != nil {
		t.Fatalf("fractional weight qty: %v", err)
	}
	if it.DefaultQty != 2.5 {
		t.Errorf("DefaultQty = %v, want 2.5", it.DefaultQty)
	}
}

func TestUpdateItemRejectsInvalidQuantities(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	it, err := s.CreateItem(ctx, owner, storage.ItemInput{
		Name:        "Cerveja",
		DefaultUnit: models.UnitPiece,
		DefaultQty:  6,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	qty := 2.5
	if _, err := s.UpdateItem(ctx, owner, it.ID, storage.ItemPatch{DefaultQty: &qty}); !errors.Is(err, storage.ErrInvalid) {
		t.Errorf("fractional piece qty: err = %v, want ErrInvalid", err)
	}

	// The rejected patch must not have landed.
	items, err := s.GetItemsByIDs(ctx, owner, []string{it.ID})
	if err != nil {
		t.Fatalf("GetItemsByIDs: %v", err)
	}
	if len(items) != 1 || items[0].DefaultQty != 6 {
		t.Errorf("items = %+v, want untouched qty 6", items)
	}
}

func TestCreateListWithInitialItems(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, owner, storage.CreateListInput{
		Name:         "Feira",
		InitialItems: []string{"seed-arroz", "seed-feijao"},
	})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if list.Type != models.ListPersonal {
		t.Errorf("Type = %s, want personal default", list.Type)
	}
	if len(list.Items) != 2 {
		t.Fatalf("got %d lines, want 2", len(list.Items))
	}
	for _, li := range list.Items {
		if li.Quantity != 1 || li.Checked {
			t.Errorf("line %+v, want quantity 1 and unchecked", li)
		}
	}

	got, err := s.GetList(ctx, owner, list.ID)
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if got.Name != "Feira" || len(got.Items) != 2 {
		t.Errorf("round-trip list = %+v", got)
	}
}

func TestPromoteListToSharedIsIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, owner, storage.CreateListInput{Name: "Churrasco"})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	first, err := s.PromoteListToShared(ctx, owner, list.ID)
	if err != nil {
		t.Fatalf("PromoteListToShared: %v", err)
	}
	if first.Type != models.ListShared {
		t.Fatalf("Type = %s, want shared", first.Type)
	}

	second, err := s.PromoteListToShared(ctx, owner, list.ID)
	if err != nil {
		t.Fatalf("second PromoteListToShared: %v", err)
	}
	if second.ID != list.ID || second.Type != models.ListShared {
		t.Errorf("second promotion = %+v, want same shared list", second)
	}

	// Exactly one copy remains visible.
	lists, err := s.GetLists(ctx, owner)
	if err != nil {
		t.Fatalf("GetLists: %v", err)
	}
	count := 0
	for _, l := range lists {
		if l.ID == list.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("list appears %d times after double promotion, want 1", count)
	}
}

func TestUpdateListMembersPromotesPersonalList(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, owner, storage.CreateListInput{Name: "Feira"})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if list.Type != models.ListPersonal {
		t.Fatalf("Type = %s, want personal", list.Type)
	}

	// Patching members onto a personal list must make it shared, so the new
	// members can actually find it.
	members := []models.Member{{Name: "Ana", Phone: "5511988881111"}}
	updated, err := s.UpdateList(ctx, owner, list.ID, storage.ListPatch{Members: &members})
	if err != nil {
		t.Fatalf("UpdateList: %v", err)
	}
	if updated.Type != models.ListShared {
		t.Errorf("Type after member patch = %s, want shared", updated.Type)
	}

	lists, err := s.GetLists(ctx, ana)
	if err != nil {
		t.Fatalf("GetLists(member): %v", err)
	}
	found := false
	for _, l := range lists {
		if l.ID == list.ID {
			found = true
		}
	}
	if !found {
		t.Error("member does not see the list after the member patch")
	}

	// The owner keeps exactly one copy.
	lists, err = s.GetLists(ctx, owner)
	if err != nil {
		t.Fatalf("GetLists(owner): %v", err)
	}
	count := 0
	for _, l := range lists {
		if l.ID == list.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("owner sees the list %d times, want 1", count)
	}
}

func TestSharedListVisibleToMembersOnly(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, owner, storage.CreateListInput{
		Name: "Churrasco",
		Type: models.ListShared,
		Members: []models.Member{
			{Name: "Ana", Phone: "+55 (11) 98888-1111"},
		},
	})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	// The member sees it despite the phone formatting difference.
	lists, err := s.GetLists(ctx, ana)
	if err != nil {
		t.Fatalf("GetLists(member): %v", err)
	}
	found := false
	for _, l := range lists {
		if l.ID == list.ID {
			found = true
		}
	}
	if !found {
		t.Error("member does not see the shared list")
	}

	// A non-member does not.
	lists, err = s.GetLists(ctx, carol)
	if err != nil {
		t.Fatalf("GetLists(non-member): %v", err)
	}
	for _, l := range lists {
		if l.ID == list.ID {
			t.Error("non-member sees the shared list")
		}
	}
}

func TestDeleteListIsSilentlyIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, owner, storage.CreateListInput{Name: "Feira"})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}

	if err := s.DeleteList(ctx, owner, list.ID); err != nil {
		t.Fatalf("DeleteList: %v", err)
	}
	if _, err := s.GetList(ctx, owner, list.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetList after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteList(ctx, owner, list.ID); err != nil {
		t.Errorf("second DeleteList: %v, want nil", err)
	}
}

func TestToggleListItemMissingLine(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, owner, storage.CreateListInput{Name: "Feira"})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if _, err := s.ToggleListItem(ctx, owner, list.ID, "nope", true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ToggleListItem: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateMemberChargeStatusIsMonotonic(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, owner, storage.CreateListInput{
		Name:         "Churrasco",
		Type:         models.ListShared,
		SplitEnabled: true,
		Members:      []models.Member{{Name: "Ana", Phone: "5511988881111"}},
	})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	key := "5511988881111"

	updated, err := s.UpdateMemberChargeStatus(ctx, owner, list.ID, key, models.ChargeCharged, "")
	if err != nil {
		t.Fatalf("charge -> cobrado: %v", err)
	}
	if got := updated.ChargeFor(key).Status; got != models.ChargeCharged {
		t.Fatalf("Status = %s, want cobrado", got)
	}

	updated, err = s.UpdateMemberChargeStatus(ctx, owner, list.ID, key, models.ChargePaid, "comprovante.jpg")
	if err != nil {
		t.Fatalf("charge -> pago: %v", err)
	}
	c := updated.ChargeFor(key)
	if c.Status != models.ChargePaid || c.ProofName != "comprovante.jpg" {
		t.Fatalf("charge = %+v, want pago with proof", c)
	}

	// A later bulk cobrado must not regress the paid member.
	updated, err = s.UpdateMemberChargeStatus(ctx, owner, list.ID, key, models.ChargeCharged, "")
	if err != nil {
		t.Fatalf("backward charge: %v", err)
	}
	if got := updated.ChargeFor(key).Status; got != models.ChargePaid {
		t.Errorf("Status after backward transition = %s, want pago", got)
	}
}

func TestUpdateMemberChargeStatusUnknownList(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpdateMemberChargeStatus(ctx, owner, "ghost", "k", models.ChargeCharged, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResetAll(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateList(ctx, owner, storage.CreateListInput{Name: "Feira"}); err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if err := s.ResetAll(ctx, owner); err != nil {
		t.Fatalf("ResetAll: %v", err)
	}
	lists, err := s.GetLists(ctx, owner)
	if err != nil {
		t.Fatalf("GetLists after reset: %v", err)
	}
	if len(lists) != 0 {
		t.Errorf("got %d lists after reset, want 0", len(lists))
	}
}
