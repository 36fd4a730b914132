package handler

import (
	"encoding/json"
	"net/http"

	"medportal/internal/domain"
	"medportal/internal/usecase"
	"medportal/pkg/response"
)

type AppointmentHandler struct {
	booking *usecase.BookingUsecase
}

func NewAppointmentHandler(booking *usecase.BookingUsecase) *AppointmentHandler {
	return &AppointmentHandler{booking: booking}
}

// AvailableSlots serves GET /appointments/slots?doctor_id=...&date=YYYY-MM-DD.
func (h *AppointmentHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctor_id")
	date := r.URL.Query().Get("date")
	if doctorID == "" || date == "" {
		response.Error(w, http.StatusBadRequest, "doctor_id and date are required")
		return
	}

	slots, err := h.booking.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": slots,
	})
}

type bookRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Reason    string `json:"reason"`
	Urgency   string `json:"urgency"`
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID == "" || req.DoctorID == "" {
		response.Error(w, http.StatusBadRequest, "patient_id and doctor_id are required")
		return
	}

	appt, err := h.booking.Book(r.Context(), usecase.BookingRequest{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
		Urgency:   domain.Urgency(req.Urgency),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, appt)
}
