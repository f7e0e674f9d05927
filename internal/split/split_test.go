package split

import (
	"math"
	"testing"

	"github.com/listaszap/listaszap/internal/models"
)

func sampleList() *models.ShoppingList {
	return &models.ShoppingList{
		ID:     "l1",
		Name:   "Churrasco",
		UserID: "owner",
		Type:   models.ListShared,
		Items: []models.ListItem{
			{ID: "a", ItemID: "i1", Quantity: 3, Price: 2.50, Checked: true},
			{ID: "b", ItemID: "i2", Quantity: 1, Price: 5.00, Checked: true},
			{ID: "c", ItemID: "i3", Quantity: 1, Price: 10.00},
		},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestListTotals(t *testing.T) {
	t.Parallel()

	got := ListTotals(sampleList())
	if !almostEqual(got.Estimated, 22.50) {
		t.Errorf("Estimated = %v, want 22.50", got.Estimated)
	}
	if !almostEqual(got.Actual, 12.50) {
		t.Errorf("Actual = %v, want 12.50", got.Actual)
	}
	if got.ProgressPct != 67 {
		t.Errorf("ProgressPct = %d, want 67", got.ProgressPct)
	}
}

func TestListTotalsEmpty(t *testing.T) {
	t.Parallel()

	got := ListTotals(&models.ShoppingList{})
	if got.Estimated != 0 || got.Actual != 0 || got.ProgressPct != 0 {
		t.Errorf("empty list totals = %+v, want zeros", got)
	}
}

func TestParticipants(t *testing.T) {
	t.Parallel()

	members := []models.Member{{Name: "Ana"}, {Name: "Bruno"}}

	tests := []struct {
		name string
		list models.ShoppingList
		want int
	}{
		{
			name: "personal list has no participants",
			list: models.ShoppingList{Type: models.ListPersonal, SplitEnabled: true, Members: members},
			want: 0,
		},
		{
			name: "shared without split has no participants",
			list: models.ShoppingList{Type: models.ListShared, Members: members},
			want: 0,
		},
		{
			name: "members only",
			list: models.ShoppingList{Type: models.ListShared, SplitEnabled: true, Members: members},
			want: 2,
		},
		{
			name: "owner opted in",
			list: models.ShoppingList{Type: models.ListShared, SplitEnabled: true, IncludeOwnerInSplit: true, Members: members},
			want: 3,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Participants(&tt.list); got != tt.want {
				t.Errorf("Participants() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPerPersonShareNoParticipants(t *testing.T) {
	t.Parallel()

	l := sampleList()
	// Shared but splitting disabled: no participants, no division.
	if _, ok := PerPersonShare(l); ok {
		t.Fatal("PerPersonShare ok = true, want false")
	}
}

func TestAggregateAccounts(t *testing.T) {
	t.Parallel()

	owner := models.Session{UserID: "owner", Name: "Carla", Phone: "+55 11 99999-0000"}
	ana := models.Session{UserID: "ana", Name: "Ana", Phone: "+55 11 98888-1111"}

	list := models.ShoppingList{
		ID:                  "l1",
		Name:                "Churrasco",
		UserID:              "owner",
		Type:                models.ListShared,
		SplitEnabled:        true,
		IncludeOwnerInSplit: true,
		Members: []models.Member{
			{Name: "Ana", Phone: "5511988881111"},
			{Name: "Bruno", Phone: "5511977772222"},
		},
		Items: []models.ListItem{
			{ID: "a", ItemID: "i1", Quantity: 2, Price: 45, Checked: true},
		},
	}

	// Owner collects 30 from each of the two members.
	acc := AggregateAccounts([]models.ShoppingList{list}, owner)
	if len(acc.ToReceive) != 1 || len(acc.ToPay) != 0 {
		t.Fatalf("owner accounts = %+v, want one to-receive entry", acc)
	}
	e := acc.ToReceive[0]
	if !almostEqual(e.PerPerson, 30) {
		t.Errorf("PerPerson = %v, want 30", e.PerPerson)
	}
	if !almostEqual(e.Amount, 60) {
		t.Errorf("Amount = %v, want 60", e.Amount)
	}
	if e.Participants != 3 {
		t.Errorf("Participants = %d, want 3", e.Participants)
	}

	// A member owes one share.
	acc = AggregateAccounts([]models.ShoppingList{list}, ana)
	if len(acc.ToPay) != 1 || len(acc.ToReceive) != 0 {
		t.Fatalf("member accounts = %+v, want one to-pay entry", acc)
	}
	if !almostEqual(acc.ToPay[0].Amount, 30) {
		t.Errorf("member Amount = %v, want 30", acc.ToPay[0].Amount)
	}
	if acc.ToPay[0].Paid {
		t.Error("Paid = true before any payment")
	}
	if !almostEqual(acc.TotalToPay(), 30) {
		t.Errorf("TotalToPay = %v, want 30", acc.TotalToPay())
	}
}

func TestAggregateAccountsPaidFlag(t *testing.T) {
	t.Parallel()

	ana := models.Session{UserID: "ana", Name: "Ana", Phone: "5511988881111"}
	list := models.ShoppingList{
		ID:           "l1",
		UserID:       "owner",
		Type:         models.ListShared,
		SplitEnabled: true,
		Members:      []models.Member{{Name: "Ana", Phone: "5511988881111"}},
		Items:        []models.ListItem{{ID: "a", ItemID: "i1", Quantity: 1, Price: 50, Checked: true}},
		Charges: &models.Charges{ByMember: []models.MemberCharge{
			{MemberKey: "5511988881111", Name: "Ana", Status: models.ChargePaid},
		}},
	}

	acc := AggregateAccounts([]models.ShoppingList{list}, ana)
	if len(acc.ToPay) != 1 || !acc.ToPay[0].Paid {
		t.Fatalf("accounts = %+v, want paid to-pay entry", acc)
	}
}

func TestAggregateAccountsSkipsNoSpend(t *testing.T) {
	t.Parallel()

	owner := models.Session{UserID: "owner"}
	list := models.ShoppingList{
		ID:           "l1",
		UserID:       "owner",
		Type:         models.ListShared,
		SplitEnabled: true,
		Members:      []models.Member{{Name: "Ana"}},
		Items:        []models.ListItem{{ID: "a", ItemID: "i1", Quantity: 1, Price: 50}},
	}

	acc := AggregateAccounts([]models.ShoppingList{list}, owner)
	if len(acc.ToPay) != 0 || len(acc.ToReceive) != 0 {
		t.Fatalf("accounts = %+v, want empty for unpurchased list", acc)
	}
}

func TestReceiptLines(t *testing.T) {
	t.Parallel()

	list := sampleList()
	catalog := []models.Item{
		{ID: "i1", Name: "Picanha", DefaultUnit: models.UnitWeight},
		{ID: "i2", Name: "Carvão"},
	}

	lines := ReceiptLines(list, catalog)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (unchecked excluded)", len(lines))
	}
	if lines[0].Name != "Picanha" || lines[0].Unit != models.UnitWeight {
		t.Errorf("line[0] = %+v, want Picanha/peso", lines[0])
	}
	if !almostEqual(lines[0].Total, 7.50) {
		t.Errorf("line[0].Total = %v, want 7.50", lines[0].Total)
	}
}

func TestReceiptLinesUnknownItem(t *testing.T) {
	t.Parallel()

	list := &models.ShoppingList{Items: []models.ListItem{
		{ID: "a", ItemID: "ghost", Quantity: 0, Price: 4, Checked: true},
	}}

	lines := ReceiptLines(list, nil)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Name != "Item" {
		t.Errorf("Name = %q, want fallback \"Item\"", lines[0].Name)
	}
	if !almostEqual(lines[0].Quantity, 1) || !almostEqual(lines[0].Total, 4) {
		t.Errorf("line = %+v, want qty 1 total 4", lines[0])
	}
}
