package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/webhook"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/request-otp":
			w.Write([]byte(`{"success":true,"requestId":"r1"}`))
		case "/auth/verify-otp":
			w.Write([]byte(`{"success":true,"token":"tok-1","user":{"id":"u1","phone":"5511999990000","name":"Carla"}}`))
		}
	}))
	t.Cleanup(backend.Close)
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewManager(webhook.New(backend.URL, l), l)
}

func TestOTPFlow(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	ctx := context.Background()

	requestID, err := m.RequestOTP(ctx, "+55 (11) 99999-0000")
	if err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if requestID != "r1" {
		t.Errorf("requestID = %q", requestID)
	}

	token, sess, err := m.VerifyOTP(ctx, requestID, "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if token != "tok-1" || sess.UserID != "u1" {
		t.Errorf("token=%q sess=%+v", token, sess)
	}

	resolved, err := m.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Name != "Carla" {
		t.Errorf("resolved = %+v", resolved)
	}

	m.Logout(token)
	if _, err := m.Resolve(token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Resolve after logout: err = %v, want ErrUnauthorized", err)
	}
}

func TestRequestOTPRequiresPhone(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	if _, err := m.RequestOTP(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank phone")
	}
}

func TestResolveUnknownToken(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	if _, err := m.Resolve("ghost"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
