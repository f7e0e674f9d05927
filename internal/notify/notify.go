// Package notify composes charge messages and produces WhatsApp click-to-chat
// links for each list member. Delivery is link-based (the frontend opens
// wa.me), with an optional Telegram mirror for operators who want a copy of
// every charge in a channel.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/metrics"
	"github.com/listaszap/listaszap/internal/models"
)

// fanoutDelay paces per-member message generation so a frontend driving
// WhatsApp windows does not trip rate limits.
const fanoutDelay = 500 * time.Millisecond

// ChargeRequest carries everything needed to compose one list's charges.
type ChargeRequest struct {
	ListName     string
	OwnerName    string
	Total        float64
	Participants int
	PerPerson    float64
	PixKey       string
	Members      []models.Member
}

// ChargeMessage is the composed message for one member.
type ChargeMessage struct {
	MemberKey   string `json:"memberKey"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Text        string `json:"text"`
	WhatsAppURL string `json:"whatsappUrl"`
}

// Notifier builds charge messages and optionally mirrors them to Telegram.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

// New creates a Notifier. token may be empty, in which case the Telegram
// mirror is disabled and only WhatsApp links are produced.
func New(token string, chatID int64, logger *logrus.Logger) (*Notifier, error) {
	n := &Notifier{chatID: chatID, logger: logger}
	if token == "" {
		return n, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	n.bot = bot
	logger.WithField("bot", bot.Self.UserName).Info("Telegram charge mirror enabled")
	return n, nil
}

// FormatBRL renders a value as Brazilian currency ("R$ 12,50").
func FormatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	return "R$ " + strings.Replace(s, ".", ",", 1)
}

// ComposeCharge builds the WhatsApp message body for one member.
func ComposeCharge(req ChargeRequest, m models.Member) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *%s*\n\n", req.ListName)
	name := strings.TrimSpace(m.Name)
	if name != "" {
		fmt.Fprintf(&b, "Olá, %s! A conta da lista fechou. 🧾\n\n", name)
	} else {
		b.WriteString("Olá! A conta da lista fechou. 🧾\n\n")
	}
	fmt.Fprintf(&b, "💰 Sua parte: *%s*\n", FormatBRL(req.PerPerson))
	fmt.Fprintf(&b, "👥 Total de %s dividido entre %d pessoas\n", FormatBRL(req.Total), req.Participants)
	if req.PixKey != "" {
		fmt.Fprintf(&b, "🔑 PIX: %s\n", req.PixKey)
	}
	b.WriteString("\n_Enviado pelo ListasZap 📱_")
	return b.String()
}

// WhatsAppLink builds a wa.me click-to-chat URL. The phone is reduced to
// digits; without one the link opens the share sheet instead of a chat.
func WhatsAppLink(phone, text string) string {
	digits := models.PhoneDigits(phone)
	if digits == "" {
		return "https://wa.me/?text=" + url.QueryEscape(text)
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(text)
}

// SendCharges composes one message per member, pacing the fanout, and
// mirrors each to Telegram when configured. The returned slice preserves
// member order.
func (n *Notifier) SendCharges(ctx context.Context, req ChargeRequest) ([]ChargeMessage, error) {
	out := make([]ChargeMessage, 0, len(req.Members))
	for i, m := range req.Members {
		if i > 0 {
			select {
			case <-time.After(fanoutDelay):
			case <-ctx.Done():
				return out, ctx.Err()
			}
		}
		text := ComposeCharge(req, m)
		msg := ChargeMessage{
			MemberKey:   m.Key(),
			Name:        m.Name,
			Phone:       m.Phone,
			Text:        text,
			WhatsAppURL: WhatsAppLink(m.Phone, text),
		}
		out = append(out, msg)
		metrics.ChargesSent.WithLabelValues("whatsapp").Inc()

		if n.bot != nil && n.chatID != 0 {
			tg := tgbotapi.NewMessage(n.chatID, text)
			tg.ParseMode = tgbotapi.ModeMarkdown
			if _, err := n.bot.Send(tg); err != nil {
				// The mirror is best effort; the links above still work.
				n.logger.WithError(err).Warn("failed to mirror charge to telegram")
			} else {
				metrics.ChargesSent.WithLabelValues("telegram").Inc()
			}
		}
	}
	return out, nil
}
