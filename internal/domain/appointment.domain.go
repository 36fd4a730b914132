package domain

import (
	"fmt"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return Urgency(s), true
	}
	return "", false
}

type Appointment struct {
	ID        string            `json:"id"`
	PatientID string            `json:"patient_id"`
	DoctorID  string            `json:"doctor_id"`
	Date      string            `json:"date"` // YYYY-MM-DD
	Time      string            `json:"time"` // HH:MM, 24-hour
	Reason    string            `json:"reason"`
	Urgency   Urgency           `json:"urgency"`
	Status    AppointmentStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// TimeSlots is the bookable slot catalog, half-hour steps
// from 09:00 through 17:00 inclusive.
var TimeSlots = buildTimeSlots()

func buildTimeSlots() []string {
	slots := make([]string, 0, 17)
	for h := 9; h <= 17; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
		if h < 17 {
			slots = append(slots, fmt.Sprintf("%02d:30", h))
		}
	}
	return slots
}

func IsValidSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// FormatSlot12h renders a catalog slot for display, e.g. "14:30" -> "2:30 PM".
func FormatSlot12h(slot string) string {
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return slot
	}
	return t.Format("3:04 PM")
}
