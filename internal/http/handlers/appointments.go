package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/pkg/logging"
)

const maxSyncBody = 1 << 20

// AppointmentStore is the subset of store.Store served over HTTP.
type AppointmentStore interface {
	Appointments() []appointments.Appointment
	Doctors() []appointments.Doctor
	Add(ctx context.Context, apt appointments.Appointment) ([]appointments.Appointment, bool, error)
	Update(ctx context.Context, p appointments.Patch) ([]appointments.Appointment, bool, error)
	Delete(ctx context.Context, id string) ([]appointments.Appointment, bool, error)
	ReplaceDoctors(ctx context.Context, doctors []appointments.Doctor) error
}

// AppointmentsHandler serves the single appointments endpoint. GET reads a
// collection; POST dispatches on the body's action.
type AppointmentsHandler struct {
	store  AppointmentStore
	logger *logging.Logger
}

func NewAppointmentsHandler(store AppointmentStore, logger *logging.Logger) *AppointmentsHandler {
	if store == nil {
		panic("handlers: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{store: store, logger: logger}
}

// SyncRequest is the POST body. Action selects add, update or delete; with
// no action the body is a broad sync.
type SyncRequest struct {
	Action        string                 `json:"action,omitempty"`
	Appointment   json.RawMessage        `json:"appointment,omitempty"`
	AppointmentID string                 `json:"appointmentId,omitempty"`
	Appointments  json.RawMessage        `json:"appointments,omitempty"`
	Doctors       *[]appointments.Doctor `json:"doctors,omitempty"`
}

// MutationResponse answers add, update and delete.
type MutationResponse struct {
	Success      bool                       `json:"success"`
	Message      string                     `json:"message"`
	Appointments []appointments.Appointment `json:"appointments"`
}

// SyncResponse answers a broad sync.
type SyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *AppointmentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.post(w, r)
	default:
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentsHandler) get(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("type") == "doctors" {
		writeJSON(w, http.StatusOK, nonNilDoctors(h.store.Doctors()))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.store.Appointments()))
}

func (h *AppointmentsHandler) post(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSyncBody)).Decode(&req); err != nil {
		jsonError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	switch req.Action {
	case "add":
		var apt appointments.Appointment
		if !decodeRaw(w, req.Appointment, &apt) {
			return
		}
		list, added, err := h.store.Add(ctx, apt)
		if err != nil {
			h.fail(w, "add", apt.ID, err)
			return
		}
		h.logger.Info("appointment add handled", "appointment_id", apt.ID, "added", added)
		writeJSON(w, http.StatusOK, MutationResponse{Success: true, Message: "Appointment added successfully", Appointments: nonNil(list)})

	case "update":
		var patch appointments.Patch
		if !decodeRaw(w, req.Appointment, &patch) {
			return
		}
		list, updated, err := h.store.Update(ctx, patch)
		if err != nil {
			h.fail(w, "update", patch.ID, err)
			return
		}
		h.logger.Info("appointment update handled", "appointment_id", patch.ID, "updated", updated)
		writeJSON(w, http.StatusOK, MutationResponse{Success: true, Message: "Appointment updated successfully", Appointments: nonNil(list)})

	case "delete":
		id := req.AppointmentID
		if id == "" && len(req.Appointment) > 0 {
			var ref struct {
				ID string `json:"id"`
			}
			_ = json.Unmarshal(req.Appointment, &ref)
			id = ref.ID
		}
		list, removed, err := h.store.Delete(ctx, id)
		if err != nil {
			h.fail(w, "delete", id, err)
			return
		}
		h.logger.Info("appointment delete handled", "appointment_id", id, "removed", removed)
		writeJSON(w, http.StatusOK, MutationResponse{Success: true, Message: "Appointment deleted successfully", Appointments: nonNil(list)})

	case "":
		if len(req.Appointments) > 0 {
			h.logger.Debug("broad sync appointments ignored")
		}
		if req.Doctors != nil {
			if err := h.store.ReplaceDoctors(ctx, *req.Doctors); err != nil {
				h.fail(w, "sync", "", err)
				return
			}
			h.logger.Info("doctors replaced", "count", len(*req.Doctors))
		}
		writeJSON(w, http.StatusOK, SyncResponse{Success: true, Message: "Data synced successfully"})

	default:
		jsonError(w, "Unknown action", http.StatusBadRequest)
	}
}

func (h *AppointmentsHandler) fail(w http.ResponseWriter, action, id string, err error) {
	switch {
	case errors.Is(err, appointments.ErrInvalidTransition):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, appointments.ErrInvalidAppointment), errors.Is(err, appointments.ErrInvalidDoctor):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("appointment request failed", "action", action, "appointment_id", id, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func decodeRaw(w http.ResponseWriter, raw json.RawMessage, dst any) bool {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		jsonError(w, "appointment is required", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		jsonError(w, "Invalid appointment payload", http.StatusBadRequest)
		return false
	}
	return true
}

func nonNil(list []appointments.Appointment) []appointments.Appointment {
	if list == nil {
		return []appointments.Appointment{}
	}
	return list
}

func nonNilDoctors(list []appointments.Doctor) []appointments.Doctor {
	if list == nil {
		return []appointments.Doctor{}
	}
	return list
}
