// Package webhook talks to the workflow-automation backend. Every operation
// is a JSON POST; responses come back in whatever shape the workflow editor
// produced that week — a bare object, an array wrapping one object, or an
// object whose "response" field is a string of JSON — so decoding unwraps
// defensively. A response carrying success:false (or a "user does not
// exist" message) is a business failure regardless of the transport status.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/metrics"
	"github.com/listaszap/listaszap/internal/models"
)

// BusinessError is an explicit failure reported by the backend, as opposed
// to a transport problem. It is surfaced to the user verbatim and never
// retried.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// TransportError is a non-2xx response with no interpretable business
// message.
type TransportError struct {
	Status int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("webhook returned HTTP %d", e.Status)
}

// Client posts operations to the automation backend.
type Client struct {
	base   string
	http   *http.Client
	logger *logrus.Logger
}

// New creates a client for the given base URL.
func New(base string, logger *logrus.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// post sends a payload and returns the unwrapped response object.
func (c *Client) post(ctx context.Context, path string, payload any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	metrics.WebhookCalls.WithLabelValues(path).Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.WebhookFailures.WithLabelValues(path).Inc()
		return nil, fmt.Errorf("webhook call %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	obj := unwrap(raw)
	if msg, failed := businessFailure(obj); failed {
		metrics.WebhookFailures.WithLabelValues(path).Inc()
		c.logger.WithField("path", path).WithField("message", msg).Warn("webhook business failure")
		return nil, &BusinessError{Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.WebhookFailures.WithLabelValues(path).Inc()
		return nil, &TransportError{Status: resp.StatusCode}
	}
	return obj, nil
}

// unwrap normalises the response body to a single object: arrays yield
// their first element, and a string-typed "response" field is parsed as
// embedded JSON. Anything unparseable yields an empty object.
func unwrap(raw []byte) map[string]any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return map[string]any{}
		}
		v = arr[0]
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	if inner, ok := obj["response"].(string); ok {
		var nested any
		if err := json.Unmarshal([]byte(inner), &nested); err == nil {
			if arr, ok := nested.([]any); ok && len(arr) > 0 {
				nested = arr[0]
			}
			if m, ok := nested.(map[string]any); ok {
				return m
			}
		}
	}
	if inner, ok := obj["response"].(map[string]any); ok {
		return inner
	}
	return obj
}

func businessFailure(obj map[string]any) (string, bool) {
	msg, _ := obj["message"].(string)
	if msg == "" {
		msg, _ = obj["mensagem"].(string)
	}
	if success, ok := obj["success"].(bool); ok && !success {
		if msg == "" {
			msg = "operation rejected by backend"
		}
		return msg, true
	}
	if strings.Contains(strings.ToLower(msg), "user does not exist") {
		return msg, true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// RequestOTP asks the backend to send a login code to a phone.
func (c *Client) RequestOTP(ctx context.Context, phone string) (requestID string, err error) {
	obj, err := c.post(ctx, "/auth/request-otp", map[string]any{"phone": phone})
	if err != nil {
		return "", err
	}
	requestID, _ = obj["requestId"].(string)
	return requestID, nil
}

// VerifyOTP exchanges a code for a bearer token and the user profile.
func (c *Client) VerifyOTP(ctx context.Context, requestID, code string) (string, models.User, error) {
	obj, err := c.post(ctx, "/auth/verify-otp", map[string]any{"requestId": requestID, "code": code})
	if err != nil {
		return "", models.User{}, err
	}
	token, _ := obj["token"].(string)
	var user models.User
	if u, ok := obj["user"].(map[string]any); ok {
		user.ID, _ = u["id"].(string)
		user.Phone, _ = u["phone"].(string)
		user.Name, _ = u["name"].(string)
	}
	if token == "" || user.ID == "" {
		return "", models.User{}, &BusinessError{Message: "verification response missing token or user"}
	}
	return token, user, nil
}

// CreateList mirrors a list creation to the backend workflow.
func (c *Client) CreateList(ctx context.Context, name string, listType models.ListType, split bool, members []string) (string, error) {
	obj, err := c.post(ctx, "/lists/create", map[string]any{
		"name": name, "type": string(listType), "split": split, "members": members,
	})
	if err != nil {
		return "", err
	}
	id, _ := obj["id"].(string)
	return id, nil
}

// UpdateListSettings mirrors a settings change. Fulfilment is asynchronous
// on the backend side; callers poll the read path afterwards.
func (c *Client) UpdateListSettings(ctx context.Context, listID string, split *bool) error {
	settings := map[string]any{}
	if split != nil {
		settings["split"] = *split
	}
	_, err := c.post(ctx, "/lists/update-settings", map[string]any{"listId": listID, "settings": settings})
	return err
}

// AddItemToList mirrors a line insertion.
func (c *Client) AddItemToList(ctx context.Context, listID, itemID string, qty, price float64) error {
	_, err := c.post(ctx, "/lists/add-item", map[string]any{
		"listId": listID, "itemId": itemID, "qty": qty, "price": price,
	})
	return err
}

// AddMember mirrors a member invitation, keyed by phone.
func (c *Client) AddMember(ctx context.Context, listID, phone string) error {
	_, err := c.post(ctx, "/lists/add-member", map[string]any{"listId": listID, "phone": phone})
	return err
}

// RemoveMember mirrors a member removal.
func (c *Client) RemoveMember(ctx context.Context, listID, phone string) error {
	_, err := c.post(ctx, "/lists/remove-member", map[string]any{"listId": listID, "phone": phone})
	return err
}

// RemoveItem mirrors a line removal.
func (c *Client) RemoveItem(ctx context.Context, listID, lineID string) error {
	_, err := c.post(ctx, "/lists/remove-item", map[string]any{"listId": listID, "itemId": lineID})
	return err
}

// DeleteOrLeaveList mirrors deleting (owner) or leaving (member) a list.
func (c *Client) DeleteOrLeaveList(ctx context.Context, listID, userID string) error {
	_, err := c.post(ctx, "/lists/delete", map[string]any{"listId": listID, "userId": userID})
	return err
}

// SendChargeNotification asks the backend to notify members about a charge.
func (c *Client) SendChargeNotification(ctx context.Context, listID string, amountPerPerson float64, pixKey string) error {
	_, err := c.post(ctx, "/lists/send-charge", map[string]any{
		"listId": listID, "amountPerPerson": amountPerPerson, "pixKey": pixKey,
	})
	return err
}
