package domain

import "time"

type OtpIntent string

const (
	IntentRegistration    OtpIntent = "REGISTRATION"
	IntentPasswordReset   OtpIntent = "PASSWORD_RESET"
	IntentContactDoctor   OtpIntent = "CONTACT_DOCTOR"
	IntentBookAppointment OtpIntent = "BOOK_APPOINTMENT"
)

// OtpChallenge is the pending verification stored per subject. At most
// one challenge exists per subject; issuing a new one replaces it.
type OtpChallenge struct {
	Subject   string     `json:"subject"`
	Code      string     `json:"code"`
	Intent    OtpIntent  `json:"intent"`
	Payload   OtpPayload `json:"payload"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// OtpPayload carries the intent-specific context needed to complete
// the workflow once the code is verified.
type OtpPayload struct {
	Registration *RegistrationPayload `json:"registration,omitempty"`
	Channel      *ChannelPayload      `json:"channel,omitempty"`
}

type RegistrationPayload struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PasswordHash   string `json:"password_hash"`
	Role           Role   `json:"role"`
	Specialization string `json:"specialization,omitempty"`
	LicenseNumber  string `json:"license_number,omitempty"`
}

// ChannelPayload ties a bot-initiated challenge to the patient record
// it unlocked and the chat it arrived from. Email is where the code
// gets delivered, since the challenge itself is keyed by chat.
type ChannelPayload struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id,omitempty"`
	ChatID    int64  `json:"chat_id,omitempty"`
	Email     string `json:"email,omitempty"`
}
