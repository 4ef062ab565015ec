package iam

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-scheduling/internal/gateway"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// Handlers contains HTTP handlers for IAM operations
type Handlers struct {
	service interfaces.IAMService
	logger  *logger.Logger
}

// NewHandlers creates new IAM HTTP handlers
func NewHandlers(service interfaces.IAMService, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers IAM routes with the router
func (h *Handlers) RegisterRoutes(api *mux.Router, guard interfaces.RouteGuard) {
	// Authentication routes
	api.HandleFunc("/admin/login", h.login(types.RoleAdmin)).Methods(http.MethodPost)
	api.HandleFunc("/doctors/login", h.login(types.RoleDoctor)).Methods(http.MethodPost)
	api.HandleFunc("/patients/login", h.login(types.RolePatient)).Methods(http.MethodPost)
	api.HandleFunc("/tokens/validate", h.ValidateToken).Methods(http.MethodGet)

	// Patient account routes
	api.HandleFunc("/patients", h.SignupPatient).Methods(http.MethodPost)
	api.Handle("/patients/me", guard.Require(types.RolePatient)(http.HandlerFunc(h.PatientDetails))).Methods(http.MethodGet)
}

func (h *Handlers) login(role types.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds types.Credentials
		if err := gateway.DecodeJSON(r, &creds); err != nil {
			gateway.WriteError(w, r, h.logger, err)
			return
		}

		token, err := h.service.Login(r.Context(), role, &creds)
		if err != nil {
			gateway.WriteError(w, r, h.logger, err)
			return
		}

		gateway.WriteJSON(w, http.StatusOK, token)
	}
}

// SignupPatient handles patient registration
func (h *Handlers) SignupPatient(w http.ResponseWriter, r *http.Request) {
	var req types.PatientSignupRequest
	if err := gateway.DecodeJSON(r, &req); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	patient, err := h.service.SignupPatient(r.Context(), &req)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusCreated, patient)
}

// PatientDetails returns the calling patient's profile
func (h *Handlers) PatientDetails(w http.ResponseWriter, r *http.Request) {
	caller, _ := types.PrincipalFromContext(r.Context())

	patient, err := h.service.PatientDetails(r.Context(), caller)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, patient)
}

// ValidateToken reports whether the bearer credential is valid for ?role=.
// Failure reasons are not distinguished.
func (h *Handlers) ValidateToken(w http.ResponseWriter, r *http.Request) {
	role, err := types.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		gateway.WriteError(w, r, h.logger, types.NewInvalidInputError(types.ErrCodeInvalidInput, err.Error(), nil))
		return
	}

	token, _ := gateway.BearerToken(r)
	valid := token != "" && h.service.ValidateToken(r.Context(), token, role)

	gateway.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}
