package scheduling

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-scheduling/internal/gateway"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

const dateLayout = "2006-01-02"

// Handlers contains HTTP handlers for scheduling operations
type Handlers struct {
	service interfaces.SchedulingService
	logger  *logger.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewHandlers creates new scheduling HTTP handlers. Dates in query strings
// are read in loc.
func NewHandlers(service interfaces.SchedulingService, log *logger.Logger, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{
		service: service,
		logger:  log,
		loc:     loc,
		now:     time.Now,
	}
}

// RegisterRoutes registers scheduling routes with the router
func (h *Handlers) RegisterRoutes(api *mux.Router, guard interfaces.RouteGuard) {
	anyone := guard.Require(types.RoleAdmin, types.RoleDoctor, types.RolePatient)
	admin := guard.Require(types.RoleAdmin)
	doctor := guard.Require(types.RoleDoctor)
	patient := guard.Require(types.RolePatient)

	// Doctor directory
	api.HandleFunc("/doctors", h.SearchDoctors).Methods(http.MethodGet)
	api.Handle("/doctors", admin(http.HandlerFunc(h.AddDoctor))).Methods(http.MethodPost)
	api.Handle("/doctors/me/appointments", doctor(http.HandlerFunc(h.DoctorAppointments))).Methods(http.MethodGet)
	api.Handle("/doctors/{id}", admin(http.HandlerFunc(h.UpdateDoctor))).Methods(http.MethodPut)
	api.Handle("/doctors/{id}", admin(http.HandlerFunc(h.DeleteDoctor))).Methods(http.MethodDelete)
	api.Handle("/doctors/{id}/availability", anyone(http.HandlerFunc(h.Availability))).Methods(http.MethodGet)

	// Appointments
	api.Handle("/patients/me/appointments", patient(http.HandlerFunc(h.PatientHistory))).Methods(http.MethodGet)
	api.Handle("/appointments", patient(http.HandlerFunc(h.BookAppointment))).Methods(http.MethodPost)
	api.Handle("/appointments/{id}", patient(http.HandlerFunc(h.RescheduleAppointment))).Methods(http.MethodPut)
	api.Handle("/appointments/{id}", patient(http.HandlerFunc(h.CancelAppointment))).Methods(http.MethodDelete)
	api.Handle("/appointments/{id}/status", doctor(http.HandlerFunc(h.UpdateAppointmentStatus))).Methods(http.MethodPatch)
}

// parseDate reads a YYYY-MM-DD query value, defaulting to today
func (h *Handlers) parseDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.now().In(h.loc), nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, h.loc)
	if err != nil {
		return time.Time{}, types.NewInvalidInputError(types.ErrCodeInvalidInput, "date must be YYYY-MM-DD", map[string]interface{}{
			"date": raw,
		})
	}
	return date, nil
}

// SearchDoctors handles GET /doctors?name=&specialty=&time=
func (h *Handlers) SearchDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.DoctorFilter{
		Name:       q.Get("name"),
		Specialty:  q.Get("specialty"),
		TimeBucket: types.TimeBucket(q.Get("time")),
	}

	doctors, err := h.service.SearchDoctors(r.Context(), filter)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"doctors": doctors,
		"count":   len(doctors),
	})
}

// AddDoctor handles POST /doctors
func (h *Handlers) AddDoctor(w http.ResponseWriter, r *http.Request) {
	var req types.DoctorRequest
	if err := gateway.DecodeJSON(r, &req); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	doctor, err := h.service.AddDoctor(r.Context(), &req)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusCreated, doctor)
}

// UpdateDoctor handles PUT /doctors/{id}
func (h *Handlers) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	var req types.DoctorRequest
	if err := gateway.DecodeJSON(r, &req); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	doctor, err := h.service.UpdateDoctor(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, doctor)
}

// DeleteDoctor handles DELETE /doctors/{id}
func (h *Handlers) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDoctor(r.Context(), mux.Vars(r)["id"]); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Availability handles GET /doctors/{id}/availability?date=
func (h *Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDate(r)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	doctorID := mux.Vars(r)["id"]
	slots, err := h.service.ComputeAvailability(r.Context(), doctorID, date)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"doctor_id":       doctorID,
		"date":            date.Format(dateLayout),
		"available_times": slots,
	})
}

// DoctorAppointments handles GET /doctors/me/appointments?date=&patient=
func (h *Handlers) DoctorAppointments(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDate(r)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}
	caller, _ := types.PrincipalFromContext(r.Context())

	apts, err := h.service.DoctorAppointments(r.Context(), caller, date, r.URL.Query().Get("patient"))
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": apts,
		"count":        len(apts),
	})
}

// PatientHistory handles GET /patients/me/appointments?condition=&doctor=
func (h *Handlers) PatientHistory(w http.ResponseWriter, r *http.Request) {
	caller, _ := types.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	filter := types.HistoryFilter{
		Condition:  q.Get("condition"),
		DoctorName: q.Get("doctor"),
	}

	apts, err := h.service.PatientHistory(r.Context(), caller, filter)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": apts,
		"count":        len(apts),
	})
}

// BookAppointment handles POST /appointments
func (h *Handlers) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req types.BookingRequest
	if err := gateway.DecodeJSON(r, &req); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}
	caller, _ := types.PrincipalFromContext(r.Context())

	apt, err := h.service.BookAppointment(r.Context(), caller, &req)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusCreated, apt)
}

// RescheduleAppointment handles PUT /appointments/{id}
func (h *Handlers) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req types.RescheduleRequest
	if err := gateway.DecodeJSON(r, &req); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}
	caller, _ := types.PrincipalFromContext(r.Context())

	apt, err := h.service.RescheduleAppointment(r.Context(), caller, mux.Vars(r)["id"], &req)
	if err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, apt)
}

// CancelAppointment handles DELETE /appointments/{id}
func (h *Handlers) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	caller, _ := types.PrincipalFromContext(r.Context())

	if err := h.service.CancelAppointment(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateAppointmentStatus handles PATCH /appointments/{id}/status
func (h *Handlers) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req types.StatusUpdateRequest
	if err := gateway.DecodeJSON(r, &req); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}
	caller, _ := types.PrincipalFromContext(r.Context())

	if err := h.service.UpdateAppointmentStatus(r.Context(), caller, mux.Vars(r)["id"], req.Status); err != nil {
		gateway.WriteError(w, r, h.logger, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":     mux.Vars(r)["id"],
		"status": req.Status,
	})
}
