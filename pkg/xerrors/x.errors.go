package xerrors

import "errors"
import "github.com/jackc/pgx/v5/pgconn"

func ParsePGErrorCode(err error) string {
	if pgErr, ok := err.(*pgconn.PgError); ok {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
)

// Registration / Login
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrNoDoctorAssigned   = errors.New("no doctor assigned to this patient")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrEmailNotVerified   = errors.New("email not verified")

	ErrEmailRequired    = errors.New("email required")
	ErrPasswordRequired = errors.New("password required")

	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// Verification / OTP
var (
	ErrInvalidOTP          = errors.New("invalid otp")
	ErrExpiredOTP          = errors.New("expired otp")
	ErrOTPNotFound         = errors.New("no active otp challenge")
	ErrTooManyOTPRequests  = errors.New("too many otp requests")
	ErrEmailDeliveryFailed = errors.New("failed to deliver verification email")
	ErrNoPendingReset      = errors.New("no pending password reset")
)

// Appointments
var (
	ErrSlotTaken      = errors.New("slot no longer available")
	ErrSlotUnknown    = errors.New("slot does not exist for this doctor")
	ErrDateInPast     = errors.New("appointment date is in the past")
	ErrInvalidUrgency = errors.New("invalid urgency level")
)

// Password rules
var (
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong   = errors.New("password must not exceed 100 characters")
	ErrPasswordUppercase = errors.New("password must include at least one uppercase letter")
	ErrPasswordLowercase = errors.New("password must include at least one lowercase letter")
	ErrPasswordDigit     = errors.New("password must include at least one digit")
)

// Token
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)
