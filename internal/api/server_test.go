package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/auth"
	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/notify"
	"github.com/listaszap/listaszap/internal/service"
	"github.com/listaszap/listaszap/internal/storage/local"
	"github.com/listaszap/listaszap/internal/webhook"
)

// newTestServer wires the full stack over a throwaway local store and a
// stubbed automation backend, and returns the server plus a logged-in token.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/request-otp":
			w.Write([]byte(`{"success":true,"requestId":"r1"}`))
		case "/auth/verify-otp":
			w.Write([]byte(`{"success":true,"token":"tok-1","user":{"id":"u1","phone":"5511999990000","name":"Carla"}}`))
		default:
			w.Write([]byte(`{"success":true}`))
		}
	}))
	t.Cleanup(backend.Close)

	store, err := local.Open(filepath.Join(t.TempDir(), "test.db"), l)
	if err != nil {
		t.Fatalf("local.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	wh := webhook.New(backend.URL, l)
	notifier, err := notify.New("", 0, l)
	if err != nil {
		t.Fatalf("notify.New: %v", err)
	}
	svc := service.New(store, wh, notifier, l)
	sessions := auth.NewManager(wh, l)

	token, _, err := sessions.VerifyOTP(context.Background(), "r1", "123456")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	srv := httptest.NewServer(NewServer(svc, sessions, l).Handler())
	t.Cleanup(srv.Close)
	return srv, token
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRequiresBearerToken(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/lists", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/lists", "bogus", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bogus token status = %d, want 401", resp.StatusCode)
	}
}

func TestListLifecycle(t *testing.T) {
	t.Parallel()
	srv, token := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/lists", token, map[string]any{
		"name": "Feira",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created models.ShoppingList
	decodeBody(t, resp, &created)
	if created.Name != "Feira" || created.Type != models.ListPersonal {
		t.Errorf("created = %+v", created)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/lists/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/lists/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/lists/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestChargeFlowOverHTTP(t *testing.T) {
	t.Parallel()
	srv, token := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/lists", token, map[string]any{
		"name":         "Churrasco",
		"type":         "shared",
		"splitEnabled": true,
		"members": []map[string]string{
			{"name": "Ana", "phone": "5511988881111"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var list models.ShoppingList
	decodeBody(t, resp, &list)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/lists/"+list.ID+"/items", token, map[string]any{
		"itemId": "seed-carne", "quantity": 1, "price": 50, "checked": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add item status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/lists/"+list.ID+"/charge", token, map[string]any{
		"pixKey": "carla@banco.com",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("charge status = %d", resp.StatusCode)
	}
	var result struct {
		PerPerson float64 `json:"perPerson"`
		Messages  []struct {
			WhatsAppURL string `json:"whatsappUrl"`
		} `json:"messages"`
		List models.ShoppingList `json:"list"`
	}
	decodeBody(t, resp, &result)
	if result.PerPerson != 50 {
		t.Errorf("perPerson = %v, want 50", result.PerPerson)
	}
	if len(result.Messages) != 1 || result.Messages[0].WhatsAppURL == "" {
		t.Errorf("messages = %+v", result.Messages)
	}
	if got := result.List.ChargeFor("5511988881111").Status; got != models.ChargeCharged {
		t.Errorf("member status = %s, want cobrado", got)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/accounts", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accounts status = %d", resp.StatusCode)
	}
	var accounts struct {
		TotalToReceive float64 `json:"totalToReceive"`
	}
	decodeBody(t, resp, &accounts)
	if accounts.TotalToReceive != 50 {
		t.Errorf("totalToReceive = %v, want 50", accounts.TotalToReceive)
	}
}

func TestInvalidItemQuantityRejected(t *testing.T) {
	t.Parallel()
	srv, token := newTestServer(t)

	// A piece item with a fractional default quantity never reaches storage.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/items", token, map[string]any{
		"name":        "Cerveja",
		"defaultUnit": "unidade",
		"defaultQty":  2.5,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("fractional piece qty status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/items", token, map[string]any{
		"name":        "Picanha",
		"defaultUnit": "peso",
		"defaultQty":  -3,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative qty status = %d, want 400", resp.StatusCode)
	}
}

func TestInvalidChargeStatusRejected(t *testing.T) {
	t.Parallel()
	srv, token := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/lists/any/charges/any", token, map[string]any{
		"status": "refunded",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
