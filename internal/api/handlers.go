// Package api exposes HTTP handlers for the booking service.
package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"example.com/booking/internal/auth"
	"example.com/booking/internal/domain"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	ledger    *domain.Ledger
	catalog   *domain.Catalog
	accounts  *domain.Accounts
	validator *RequestValidator
	logger    zerolog.Logger
}

// Option configures optional Handler behaviour.
type Option func(*Handler)

// WithLogger sets the logger used for unexpected failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler builds a Handler.
func NewHandler(ledger *domain.Ledger, catalog *domain.Catalog, accounts *domain.Accounts, opts ...Option) *Handler {
	h := &Handler{
		ledger:    ledger,
		catalog:   catalog,
		accounts:  accounts,
		validator: NewValidator(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux. Authentication itself is applied
// around the mux; see IsPublic.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", healthz)

	mux.HandleFunc("POST /v1/auth/login", h.login)
	mux.HandleFunc("POST /v1/users", h.register)
	mux.HandleFunc("PUT /v1/users/{id}", h.renameUser)
	mux.HandleFunc("DELETE /v1/users/{id}", h.deleteUser)

	mux.HandleFunc("GET /v1/activities", h.listActivities)
	mux.HandleFunc("POST /v1/activities", auth.RequireRole(domain.RoleProvider, h.createActivity))
	mux.HandleFunc("PUT /v1/activities/{id}", auth.RequireRole(domain.RoleProvider, h.updateActivity))
	mux.HandleFunc("DELETE /v1/activities/{id}", auth.RequireRole(domain.RoleProvider, h.deleteActivity))
	mux.HandleFunc("GET /v1/providers/{id}/activities", auth.RequireRole(domain.RoleProvider, h.providerActivities))

	mux.HandleFunc("POST /v1/enrollments", auth.RequireRole(domain.RoleConsumer, h.enroll))
	mux.HandleFunc("GET /v1/consumers/{id}/enrollments", auth.RequireRole(domain.RoleConsumer, h.consumerEnrollments))
	mux.HandleFunc("DELETE /v1/enrollments/{id}", auth.RequireRole(domain.RoleConsumer, h.cancelEnrollment))
}

// IsPublic reports whether a request may be served without a bearer token.
func IsPublic(r *http.Request) bool {
	switch {
	case r.Method == http.MethodOptions:
		return true
	case r.Method == http.MethodGet && (r.URL.Path == "/healthz" || r.URL.Path == "/metrics" || r.URL.Path == "/v1/activities"):
		return true
	case r.Method == http.MethodPost && (r.URL.Path == "/v1/auth/login" || r.URL.Path == "/v1/users"):
		return true
	}
	return false
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.validator.decode(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: session.Token, User: toUserView(session.User)})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.validator.decode(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	id, err := h.accounts.Register(r.Context(), domain.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"user_id": id})
}

func (h *Handler) renameUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req RenameRequest
	if err := h.validator.decode(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	user, err := h.accounts.Rename(r.Context(), claims.UserID, userID, req.Name)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), claims.UserID, userID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	items := make([]CatalogEntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, CatalogEntryView{
			ActivityView:  toActivityView(entry.Activity),
			ProviderName:  entry.ProviderName,
			ProviderEmail: entry.ProviderEmail,
		})
	}
	writeJSON(w, http.StatusOK, ListResponse[CatalogEntryView]{Items: items})
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if err := h.validator.decode(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	id, err := h.catalog.Create(r.Context(), claims.UserID, input)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"activity_id": id})
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	activityID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateActivityRequest
	if err := h.validator.decode(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	activity, err := h.catalog.Update(r.Context(), claims.UserID, activityID, patch)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	activityID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), claims.UserID, activityID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) providerActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	providerID, ok := pathID(w, r)
	if !ok {
		return
	}

	activities, err := h.catalog.ListByProvider(r.Context(), claims.UserID, providerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	items := make([]ProviderActivityView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toProviderActivityView(a))
	}
	writeJSON(w, http.StatusOK, ListResponse[ProviderActivityView]{Items: items})
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req EnrollRequest
	if err := h.validator.decode(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	id, err := h.ledger.TryEnroll(r.Context(), claims.UserID, req.ActivityID, req.EnrolledAt)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"enrollment_id": id})
}

func (h *Handler) consumerEnrollments(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	consumerID, ok := pathID(w, r)
	if !ok {
		return
	}
	if consumerID != claims.UserID {
		writeDomainError(w, h.logger, domain.ErrForbidden)
		return
	}

	views, err := h.ledger.ListByConsumer(r.Context(), consumerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	items := make([]EnrollmentView, 0, len(views))
	for _, v := range views {
		items = append(items, toEnrollmentView(v))
	}
	writeJSON(w, http.StatusOK, ListResponse[EnrollmentView]{Items: items})
}

func (h *Handler) cancelEnrollment(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	enrollmentID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.ledger.Cancel(r.Context(), enrollmentID, claims.UserID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) claims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	return claims, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "path id must be a positive integer")
		return 0, false
	}
	return id, true
}
