package email

import (
	"fmt"

	"medportal/internal/domain"
	"medportal/internal/otp"
)

func OTPSubject(intent domain.OtpIntent) string {
	switch intent {
	case domain.IntentRegistration:
		return "Verify your email"
	case domain.IntentPasswordReset:
		return "Your password reset code"
	default:
		return fmt.Sprintf("Your %s code", otp.FormatIntent(string(intent)))
	}
}

func OTPBody(code string, intent domain.OtpIntent, validMinutes int) string {
	var action string
	switch intent {
	case domain.IntentRegistration:
		action = "complete your registration"
	case domain.IntentPasswordReset:
		action = "reset your password"
	case domain.IntentContactDoctor:
		action = "contact your doctor"
	case domain.IntentBookAppointment:
		action = "book your appointment"
	default:
		action = "continue"
	}
	return fmt.Sprintf(
		"Your one-time code is %s.\n\nEnter it to %s. The code expires in %d minutes.\n\nIf you did not request this, you can ignore this email.",
		code, action, validMinutes,
	)
}

func DoctorMessageSubject(patientName string) string {
	return fmt.Sprintf("New message from patient %s", patientName)
}

func DoctorMessageBody(patientName, patientEmail, message string) string {
	return fmt.Sprintf(
		"Patient %s (%s) sent the following message:\n\n%s\n\nPlease respond through the portal.",
		patientName, patientEmail, message,
	)
}

func AppointmentNoticeSubject(date string) string {
	return fmt.Sprintf("New appointment request for %s", date)
}

func AppointmentNoticeBody(patientName string, a *domain.Appointment) string {
	return fmt.Sprintf(
		"Patient %s requested an appointment.\n\nDate: %s\nTime: %s\nUrgency: %s\nReason: %s\n\nStatus: %s",
		patientName, a.Date, domain.FormatSlot12h(a.Time), a.Urgency, a.Reason, a.Status,
	)
}

func AppointmentConfirmationBody(a *domain.Appointment) string {
	return fmt.Sprintf(
		"Your appointment request was received.\n\nDate: %s\nTime: %s\nUrgency: %s\n\nYou will be notified once the doctor confirms it.",
		a.Date, domain.FormatSlot12h(a.Time), a.Urgency,
	)
}
