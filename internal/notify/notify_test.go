package notify

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/models"
)

func TestFormatBRL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{12.5, "R$ 12,50"},
		{0, "R$ 0,00"},
		{30, "R$ 30,00"},
		{7.333, "R$ 7,33"},
	}
	for _, tt := range tests {
		if got := FormatBRL(tt.in); got != tt.want {
			t.Errorf("FormatBRL(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComposeCharge(t *testing.T) {
	t.Parallel()

	req := ChargeRequest{
		ListName:     "Churrasco",
		Total:        90,
		Participants: 3,
		PerPerson:    30,
		PixKey:       "carla@banco.com",
	}
	text := ComposeCharge(req, models.Member{Name: "Ana"})

	for _, want := range []string{
		"🛒 *Churrasco*",
		"Olá, Ana!",
		"Sua parte: *R$ 30,00*",
		"Total de R$ 90,00 dividido entre 3 pessoas",
		"PIX: carla@banco.com",
		"_Enviado pelo ListasZap 📱_",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
}

func TestComposeChargeWithoutPix(t *testing.T) {
	t.Parallel()

	text := ComposeCharge(ChargeRequest{ListName: "Feira", PerPerson: 5, Participants: 1}, models.Member{})
	if strings.Contains(text, "PIX:") {
		t.Errorf("message should omit PIX line when no key is set:\n%s", text)
	}
	if !strings.Contains(text, "Olá! A conta da lista fechou.") {
		t.Errorf("nameless greeting missing:\n%s", text)
	}
}

func TestWhatsAppLink(t *testing.T) {
	t.Parallel()

	link := WhatsAppLink("+55 (11) 98888-1111", "olá, tudo bem?")
	if !strings.HasPrefix(link, "https://wa.me/5511988881111?text=") {
		t.Fatalf("link = %q", link)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if got := u.Query().Get("text"); got != "olá, tudo bem?" {
		t.Errorf("text = %q", got)
	}

	// No phone: share-sheet link.
	if link := WhatsAppLink("", "msg"); !strings.HasPrefix(link, "https://wa.me/?text=") {
		t.Errorf("phoneless link = %q", link)
	}
}

func TestSendChargesFanout(t *testing.T) {
	t.Parallel()

	l := logrus.New()
	l.SetOutput(io.Discard)
	n, err := New("", 0, l)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msgs, err := n.SendCharges(context.Background(), ChargeRequest{
		ListName:     "Churrasco",
		Total:        60,
		Participants: 2,
		PerPerson:    30,
		Members: []models.Member{
			{Name: "Ana", Phone: "5511988881111"},
			{Name: "Bruno"},
		},
	})
	if err != nil {
		t.Fatalf("SendCharges: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].MemberKey != "5511988881111" {
		t.Errorf("msgs[0].MemberKey = %q", msgs[0].MemberKey)
	}
	if msgs[1].MemberKey != "bruno" {
		t.Errorf("msgs[1].MemberKey = %q", msgs[1].MemberKey)
	}
	if !strings.Contains(msgs[0].WhatsAppURL, "wa.me/5511988881111") {
		t.Errorf("msgs[0].WhatsAppURL = %q", msgs[0].WhatsAppURL)
	}
}

func TestSendChargesCancelledContext(t *testing.T) {
	t.Parallel()

	l := logrus.New()
	l.SetOutput(io.Discard)
	n, _ := New("", 0, l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs, err := n.SendCharges(ctx, ChargeRequest{
		Members: []models.Member{{Name: "Ana"}, {Name: "Bruno"}},
	})
	if err == nil {
		t.Fatal("expected context error")
	}
	// The first message goes out before the pacing delay.
	if len(msgs) != 1 {
		t.Errorf("got %d messages before cancellation, want 1", len(msgs))
	}
}
