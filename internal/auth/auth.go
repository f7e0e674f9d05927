// Package auth implements the OTP login flow and in-memory session registry.
// Codes are requested and verified by the automation backend; this side only
// keeps the resulting token → session mapping.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/webhook"
)

// ErrUnauthorized is returned for unknown or expired tokens.
var ErrUnauthorized = errors.New("unauthorized")

// Manager holds active sessions and drives the OTP flow.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]models.Session

	webhook *webhook.Client
	logger  *logrus.Logger
}

// NewManager creates an empty session registry.
func NewManager(wh *webhook.Client, logger *logrus.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]models.Session),
		webhook:  wh,
		logger:   logger,
	}
}

// RequestOTP asks the backend to text a login code to the phone.
func (m *Manager) RequestOTP(ctx context.Context, phone string) (string, error) {
	digits := models.PhoneDigits(phone)
	if digits == "" {
		return "", fmt.Errorf("phone is required")
	}
	requestID, err := m.webhook.RequestOTP(ctx, digits)
	if err != nil {
		return "", fmt.Errorf("failed to request login code: %w", err)
	}
	return requestID, nil
}

// VerifyOTP exchanges a code for a local session token.
func (m *Manager) VerifyOTP(ctx context.Context, requestID, code string) (string, models.Session, error) {
	backendToken, user, err := m.webhook.VerifyOTP(ctx, requestID, code)
	if err != nil {
		return "", models.Session{}, fmt.Errorf("failed to verify login code: %w", err)
	}

	sess := models.SessionFor(user)

	m.mu.Lock()
	m.sessions[backendToken] = sess
	m.mu.Unlock()

	m.logger.WithField("user_id", sess.UserID).Info("session established")
	return backendToken, sess, nil
}

// Resolve maps a bearer token to its session.
func (m *Manager) Resolve(token string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return models.Session{}, ErrUnauthorized
	}
	return sess, nil
}

// Logout drops the session for a token. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}
