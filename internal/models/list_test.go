package models

import "testing"

func TestMemberKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		member Member
		want   string
	}{
		{"phone wins over name", Member{Name: "Ana Silva", Phone: "+55 (11) 98888-1111"}, "5511988881111"},
		{"name fallback is normalised", Member{Name: "  Ana Silva "}, "ana silva"},
		{"empty member", Member{}, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.member.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemberIs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		member Member
		sess   Session
		want   bool
	}{
		{
			name:   "phone digits match across formatting",
			member: Member{Name: "Ana", Phone: "(11) 98888-1111"},
			sess:   Session{Phone: "11988881111"},
			want:   true,
		},
		{
			name:   "full name matches case-insensitively",
			member: Member{Name: "Ana Silva"},
			sess:   Session{Name: "ana silva"},
			want:   true,
		},
		{
			name:   "substring of a name is not a match",
			member: Member{Name: "Ana Silva"},
			sess:   Session{Name: "Ana"},
			want:   false,
		},
		{
			name:   "different phones do not match even with same name prefix",
			member: Member{Name: "Bruno", Phone: "11977772222"},
			sess:   Session{Name: "Brunomar", Phone: "11966663333"},
			want:   false,
		},
		{
			name:   "empty member never matches",
			member: Member{},
			sess:   Session{Name: ""},
			want:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.member.Is(tt.sess); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemberNames(t *testing.T) {
	t.Parallel()

	l := ShoppingList{
		Members: []Member{
			{Name: "Ana", Phone: "11988881111"},
			{Name: "Bruno"},
		},
	}
	got := l.MemberNames()
	want := []string{"Ana", "Bruno"}
	if len(got) != len(want) {
		t.Fatalf("MemberNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MemberNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	empty := ShoppingList{}
	if names := empty.MemberNames(); len(names) != 0 {
		t.Errorf("MemberNames() on empty list = %v, want none", names)
	}
}

func TestChargeForDefaultsToPending(t *testing.T) {
	t.Parallel()

	l := ShoppingList{
		Members: []Member{{Name: "Ana", Phone: "11988881111"}},
	}
	c := l.ChargeFor("11988881111")
	if c.Status != ChargePending {
		t.Errorf("Status = %s, want pendente", c.Status)
	}
	if c.Name != "Ana" {
		t.Errorf("Name = %q, want Ana", c.Name)
	}
}
