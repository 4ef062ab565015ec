package clinical

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-scheduling/internal/gateway"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// Handlers contains HTTP handlers for prescriptions
type Handlers struct {
	service interfaces.ClinicalService
	logger  *logger.Logger
}

// NewHandlers creates new prescription HTTP handlers
func NewHandlers(service interfaces.ClinicalService, log *logger.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes registers prescription routes with the router
func (h *Handlers) RegisterRoutes(api *mux.Router, guard interfaces.RouteGuard) {
	doctor := guard.Require(types.RoleDoctor)

	api.Handle("/prescriptions", doctor(http.HandlerFunc(h.SavePrescription))).Methods(http.MethodPost)
	api.Handle("/prescriptions/{appointmentId}", doctor(http.HandlerFunc(h.GetPrescription))).Methods(http.MethodGet)
}

// SavePrescription handles POST /prescriptions
func (h *Handlers) SavePrescription(w http.ResponseWriter, r *http.Request) {
	var req types.PrescriptionRequest
	if err := gateway.DecodeJSON(r, &req); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}
	caller, _ := types.PrincipalFromContext(r.Context())

	prescription, err := h.service.SavePrescription(r.Context(), caller, &req)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusCreated, prescription)
}

// GetPrescription handles GET /prescriptions/{appointmentId}
func (h *Handlers) GetPrescription(w http.ResponseWriter, r *http.Request) {
	caller, _ := types.PrincipalFromContext(r.Context())

	prescription, err := h.service.GetPrescription(r.Context(), caller, mux.Vars(r)["appointmentId"])
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, prescription)
}
