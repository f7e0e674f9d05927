// Package api provides the HTTP surface: OTP login, catalog and contact
// CRUD, list lifecycle, sharing, charges and account balances.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/listaszap/listaszap/internal/auth"
	"github.com/listaszap/listaszap/internal/metrics"
	"github.com/listaszap/listaszap/internal/models"
	"github.com/listaszap/listaszap/internal/service"
	"github.com/listaszap/listaszap/internal/storage"
	"github.com/listaszap/listaszap/internal/webhook"
)

// Server provides the HTTP API.
type Server struct {
	svc      *service.Service
	sessions *auth.Manager
	logger   *logrus.Logger
	mux      *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, sessions *auth.Manager, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, sessions: sessions, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Auth
	s.handle("POST /api/auth/request-otp", s.handleRequestOTP)
	s.handle("POST /api/auth/verify-otp", s.handleVerifyOTP)
	s.handle("POST /api/auth/logout", s.handleLogout)

	// Categories
	s.handle("GET /api/categories", s.handleGetCategories)
	s.handle("POST /api/categories", s.handleCreateCategory)
	s.handle("PUT /api/categories/{id}", s.handleUpdateCategory)
	s.handle("DELETE /api/categories/{id}", s.handleDeleteCategory)

	// Catalog items
	s.handle("GET /api/items", s.handleGetItems)
	s.handle("POST /api/items", s.handleCreateItem)
	s.handle("PUT /api/items/{id}", s.handleUpdateItem)
	s.handle("DELETE /api/items/{id}", s.handleDeleteItem)

	// Contacts
	s.handle("GET /api/contacts", s.handleGetContacts)
	s.handle("POST /api/contacts", s.handleCreateContact)
	s.handle("PUT /api/contacts/{id}", s.handleUpdateContact)
	s.handle("DELETE /api/contacts/{id}", s.handleDeleteContact)

	// Lists
	s.handle("GET /api/lists", s.handleGetLists)
	s.handle("POST /api/lists", s.handleCreateList)
	s.handle("GET /api/lists/{id}", s.handleGetList)
	s.handle("PUT /api/lists/{id}", s.handleUpdateList)
	s.handle("DELETE /api/lists/{id}", s.handleDeleteOrLeaveList)
	s.handle("PUT /api/lists/{id}/settings", s.handleUpdateSettings)
	s.handle("POST /api/lists/{id}/promote", s.handlePromoteList)

	// Membership
	s.handle("POST /api/lists/{id}/members", s.handleAddMember)
	s.handle("DELETE /api/lists/{id}/members/{key}", s.handleRemoveMember)

	// Lines
	s.handle("POST /api/lists/{id}/items", s.handleAddListItem)
	s.handle("PUT /api/lists/{id}/items/{lineId}", s.handleUpdateListItem)
	s.handle("PUT /api/lists/{id}/items/{lineId}/toggle", s.handleToggleListItem)
	s.handle("DELETE /api/lists/{id}/items/{lineId}", s.handleDeleteListItem)

	// Charges & accounts
	s.handle("POST /api/lists/{id}/charge", s.handleSendCharge)
	s.handle("PUT /api/lists/{id}/charges/{key}", s.handleUpdateCharge)
	s.handle("POST /api/lists/{id}/confirm-payment", s.handleConfirmPayment)
	s.handle("GET /api/lists/{id}/receipt", s.handleGetReceipt)
	s.handle("GET /api/accounts", s.handleGetAccounts)

	s.handle("POST /api/reset", s.handleReset)
}

// statusRecorder captures the response status for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status/100*100)).Inc()
	})
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps layered errors to HTTP statuses: missing ids are
// 404, invalid input is 400, backend business rejections are 422, everything
// else is 500.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var bizErr *webhook.BusinessError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrInvalid):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &bizErr):
		s.respondError(w, http.StatusUnprocessableEntity, bizErr.Message)
	default:
		s.logger.WithError(err).Error(fallback)
		s.respondError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// session resolves the bearer token. Writes a 401 and returns false when the
// request carries no valid session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		s.respondError(w, http.StatusUnauthorized, "missing bearer token")
		return models.Session{}, false
	}
	sess, err := s.sessions.Resolve(token)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid or expired session")
		return models.Session{}, false
	}
	return sess, true
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type requestOTPRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		s.respondError(w, http.StatusBadRequest, "phone is required")
		return
	}

	requestID, err := s.sessions.RequestOTP(r.Context(), req.Phone)
	if err != nil {
		s.respondServiceError(w, err, "failed to request login code")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"requestId": requestID})
}

type verifyOTPRequest struct {
	RequestID string `json:"requestId"`
	Code      string `json:"code"`
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.RequestID == "" || req.Code == "" {
		s.respondError(w, http.StatusBadRequest, "requestId and code are required")
		return
	}

	token, sess, err := s.sessions.VerifyOTP(r.Context(), req.RequestID, req.Code)
	if err != nil {
		s.respondServiceError(w, err, "failed to verify login code")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"token": token, "session": sess})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.sessions.Logout(token)
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

type categoryRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("ids"); raw != "" {
		categories, err := s.svc.Store.GetCategoriesByIDs(r.Context(), sess, strings.Split(raw, ","))
		if err != nil {
			s.respondServiceError(w, err, "failed to get categories")
			return
		}
		s.respondJSON(w, http.StatusOK, categories)
		return
	}

	categories, err := s.svc.Store.GetCategories(r.Context(), sess)
	if err != nil {
		s.respondServiceError(w, err, "failed to get categories")
		return
	}
	s.respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	in := storage.CategoryInput{Name: strings.TrimSpace(*req.Name)}
	if req.Color != nil {
		in.Color = *req.Color
	}
	created, err := s.svc.Store.CreateCategory(r.Context(), sess, in)
	if err != nil {
		s.respondServiceError(w, err, "failed to create category")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.Store.UpdateCategory(r.Context(), sess, r.PathValue("id"), storage.CategoryPatch{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		s.respondServiceError(w, err, "failed to update category")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.svc.Store.DeleteCategory(r.Context(), sess, r.PathValue("id")); err != nil {
		s.respondServiceError(w, err, "failed to delete category")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Catalog items
// ---------------------------------------------------------------------------

type itemRequest struct {
	Name        *string  `json:"name"`
	CategoryID  *string  `json:"categoryId"`
	Price       *float64 `json:"price"`
	DefaultUnit *string  `json:"defaultUnit"`
	DefaultQty  *float64 `json:"defaultQty"`
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("ids"); raw != "" {
		items, err := s.svc.Store.GetItemsByIDs(r.Context(), sess, strings.Split(raw, ","))
		if err != nil {
			s.respondServiceError(w, err, "failed to get items")
			return
		}
		s.respondJSON(w, http.StatusOK, items)
		return
	}

	items, err := s.svc.Store.GetItems(r.Context(), sess)
	if err != nil {
		s.respondServiceError(w, err, "failed to get items")
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	in := storage.ItemInput{Name: strings.TrimSpace(*req.Name)}
	if req.CategoryID != nil {
		in.CategoryID = *req.CategoryID
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.DefaultUnit != nil {
		in.DefaultUnit = models.Unit(*req.DefaultUnit)
	}
	if req.DefaultQty != nil {
		in.DefaultQty = *req.DefaultQty
	}
	created, err := s.svc.Store.CreateItem(r.Context(), sess, in)
	if err != nil {
		s.respondServiceError(w, err, "failed to create item")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	patch := storage.ItemPatch{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Price:      req.Price,
		DefaultQty: req.DefaultQty,
	}
	if req.DefaultUnit != nil {
		u := models.Unit(*req.DefaultUnit)
		patch.DefaultUnit = &u
	}
	updated, err := s.svc.Store.UpdateItem(r.Context(), sess, r.PathValue("id"), patch)
	if err != nil {
		s.respondServiceError(w, err, "failed to update item")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.svc.Store.DeleteItem(r.Context(), sess, r.PathValue("id")); err != nil {
		s.respondServiceError(w, err, "failed to delete item")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

type contactRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func (s *Server) handleGetContacts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	contacts, err := s.svc.Store.GetContacts(r.Context(), sess)
	if err != nil {
		s.respondServiceError(w, err, "failed to get contacts")
		return
	}
	s.respondJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	in := storage.ContactInput{Name: strings.TrimSpace(*req.Name)}
	if req.Phone != nil {
		in.Phone = *req.Phone
	}
	created, err := s.svc.Store.CreateContact(r.Context(), sess, in)
	if err != nil {
		s.respondServiceError(w, err, "failed to create contact")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.Store.UpdateContact(r.Context(), sess, r.PathValue("id"), storage.ContactPatch{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		s.respondServiceError(w, err, "failed to update contact")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.svc.Store.DeleteContact(r.Context(), sess, r.PathValue("id")); err != nil {
		s.respondServiceError(w, err, "failed to delete contact")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

type memberRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type createListRequest struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Type                string          `json:"type"`
	Members             []memberRequest `json:"members"`
	InitialItems        []string        `json:"initialItems"`
	SplitEnabled        bool            `json:"splitEnabled"`
	IncludeOwnerInSplit bool            `json:"includeOwnerInSplit"`
}

func (s *Server) handleGetLists(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	lists, err := s.svc.Store.GetLists(r.Context(), sess)
	if err != nil {
		s.respondServiceError(w, err, "failed to get lists")
		return
	}
	s.respondJSON(w, http.StatusOK, lists)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req createListRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	members := make([]models.Member, len(req.Members))
	for i, m := range req.Members {
		members[i] = models.Member{Name: m.Name, Phone: m.Phone}
	}
	created, err := s.svc.CreateList(r.Context(), sess, storage.CreateListInput{
		Name:                req.Name,
		Description:         req.Description,
		Type:                models.ListType(req.Type),
		Members:             members,
		InitialItems:        req.InitialItems,
		SplitEnabled:        req.SplitEnabled,
		IncludeOwnerInSplit: req.IncludeOwnerInSplit,
	})
	if err != nil {
		s.respondServiceError(w, err, "failed to create list")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Store.GetList(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err, "failed to get list")
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

type updateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req updateListRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.Store.UpdateList(r.Context(), sess, r.PathValue("id"), storage.ListPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.respondServiceError(w, err, "failed to update list")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteOrLeaveList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteOrLeave(r.Context(), sess, r.PathValue("id")); err != nil {
		s.respondServiceError(w, err, "failed to delete list")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type updateSettingsRequest struct {
	SplitEnabled         *bool `json:"splitEnabled"`
	IncludeOwnerInSplit  *bool `json:"includeOwnerInSplit"`
	AllowMembersToInvite *bool `json:"allowMembersToInvite"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req updateSettingsRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.UpdateListSettings(r.Context(), sess, r.PathValue("id"), service.SettingsPatch{
		SplitEnabled:         req.SplitEnabled,
		IncludeOwnerInSplit:  req.IncludeOwnerInSplit,
		AllowMembersToInvite: req.AllowMembersToInvite,
	})
	if err != nil {
		s.respondServiceError(w, err, "failed to update list settings")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePromoteList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	promoted, err := s.svc.Store.PromoteListToShared(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err, "failed to promote list")
		return
	}
	s.respondJSON(w, http.StatusOK, promoted)
}

// ---------------------------------------------------------------------------
// Membership
// ---------------------------------------------------------------------------

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.AddMember(r.Context(), sess, r.PathValue("id"), models.Member{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		s.respondServiceError(w, err, "failed to add member")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	updated, err := s.svc.RemoveMember(r.Context(), sess, r.PathValue("id"), r.PathValue("key"))
	if err != nil {
		s.respondServiceError(w, err, "failed to remove member")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// ---------------------------------------------------------------------------
// Lines
// ---------------------------------------------------------------------------

type addListItemRequest struct {
	ItemID   string  `json:"itemId"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Checked  bool    `json:"checked"`
	Unit     string  `json:"unit"`
}

func (s *Server) handleAddListItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req addListItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.ItemID == "" {
		s.respondError(w, http.StatusBadRequest, "itemId is required")
		return
	}

	updated, err := s.svc.AddItemToList(r.Context(), sess, r.PathValue("id"), storage.ListItemInput{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Price:    req.Price,
		Checked:  req.Checked,
		Unit:     models.Unit(req.Unit),
	})
	if err != nil {
		s.respondServiceError(w, err, "failed to add item to list")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

type updateListItemRequest struct {
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
	Checked  *bool    `json:"checked"`
	Unit     *string  `json:"unit"`
}

func (s *Server) handleUpdateListItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req updateListItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	patch := storage.ListItemPatch{
		Quantity: req.Quantity,
		Price:    req.Price,
		Checked:  req.Checked,
	}
	if req.Unit != nil {
		u := models.Unit(*req.Unit)
		patch.Unit = &u
	}
	updated, err := s.svc.Store.UpdateListItem(r.Context(), sess, r.PathValue("id"), r.PathValue("lineId"), patch)
	if err != nil {
		s.respondServiceError(w, err, "failed to update list item")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

type toggleListItemRequest struct {
	Checked bool `json:"checked"`
}

func (s *Server) handleToggleListItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req toggleListItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.Store.ToggleListItem(r.Context(), sess, r.PathValue("id"), r.PathValue("lineId"), req.Checked)
	if err != nil {
		s.respondServiceError(w, err, "failed to toggle list item")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteListItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.svc.RemoveListItem(r.Context(), sess, r.PathValue("id"), r.PathValue("lineId")); err != nil {
		s.respondServiceError(w, err, "failed to remove list item")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Charges & accounts
// ---------------------------------------------------------------------------

type sendChargeRequest struct {
	PixKey string `json:"pixKey"`
}

func (s *Server) handleSendCharge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req sendChargeRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.svc.SendCharge(r.Context(), sess, r.PathValue("id"), req.PixKey)
	if err != nil {
		s.respondServiceError(w, err, "failed to send charges")
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type updateChargeRequest struct {
	Status    string `json:"status"`
	ProofName string `json:"proofName"`
}

func (s *Server) handleUpdateCharge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req updateChargeRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	status := models.ChargeStatus(req.Status)
	if !status.Valid() {
		s.respondError(w, http.StatusBadRequest, "status must be pendente, cobrado or pago")
		return
	}

	updated, err := s.svc.UpdateChargeStatus(r.Context(), sess, r.PathValue("id"), r.PathValue("key"), status, req.ProofName)
	if err != nil {
		s.respondServiceError(w, err, "failed to update charge")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

type confirmPaymentRequest struct {
	ProofName string `json:"proofName"`
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.ConfirmPayment(r.Context(), sess, r.PathValue("id"), req.ProofName)
	if err != nil {
		s.respondServiceError(w, err, "failed to confirm payment")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	receipt, err := s.svc.BuildReceipt(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err, "failed to build receipt")
		return
	}
	s.respondJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	accounts, err := s.svc.Accounts(r.Context(), sess)
	if err != nil {
		s.respondServiceError(w, err, "failed to aggregate accounts")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"toPay":          accounts.ToPay,
		"toReceive":      accounts.ToReceive,
		"totalToPay":     accounts.TotalToPay(),
		"totalToReceive": accounts.TotalToReceive(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.svc.ResetAll(r.Context(), sess); err != nil {
		s.respondServiceError(w, err, "failed to reset data")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}
