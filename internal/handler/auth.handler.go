package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"medportal/internal/usecase"
	"medportal/pkg/response"
	"medportal/pkg/xerrors"
)

type AuthHandler struct {
	verify *usecase.VerificationUsecase
}

func NewAuthHandler(verify *usecase.VerificationUsecase) *AuthHandler {
	return &AuthHandler{verify: verify}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.verify.BeginRegistration(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, map[string]string{
		"email": req.Email,
		"next":  "verify-otp",
	})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.OTP == "" {
		response.Error(w, http.StatusBadRequest, "email and otp are required")
		return
	}

	result, err := h.verify.VerifyCode(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.verify.Resend(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, map[string]string{"email": req.Email})
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.verify.BeginPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, map[string]string{
		"email": req.Email,
		"next":  "verify-otp",
	})
}

type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.verify.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, xerrors.ErrEmailRequired)
		return
	}
	if req.Password == "" {
		writeError(w, xerrors.ErrPasswordRequired)
		return
	}

	user, token, err := h.verify.Login(r.Context(), req.Email, req.Password, req.Device)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"token": token,
	})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, xerrors.ErrInvalidEmailFormat),
		errors.Is(err, xerrors.ErrEmailRequired),
		errors.Is(err, xerrors.ErrPasswordRequired),
		errors.Is(err, xerrors.ErrPasswordTooShort),
		errors.Is(err, xerrors.ErrPasswordTooLong),
		errors.Is(err, xerrors.ErrPasswordUppercase),
		errors.Is(err, xerrors.ErrPasswordLowercase),
		errors.Is(err, xerrors.ErrPasswordDigit),
		errors.Is(err, xerrors.ErrInvalidUrgency),
		errors.Is(err, xerrors.ErrDateInPast),
		errors.Is(err, xerrors.ErrInvalidRequest):
		status = http.StatusBadRequest

	case errors.Is(err, xerrors.ErrInvalidOTP),
		errors.Is(err, xerrors.ErrExpiredOTP),
		errors.Is(err, xerrors.ErrInvalidCredentials),
		errors.Is(err, xerrors.ErrInvalidToken),
		errors.Is(err, xerrors.ErrExpiredToken),
		errors.Is(err, xerrors.ErrNoPendingReset):
		status = http.StatusUnauthorized

	case errors.Is(err, xerrors.ErrEmailNotVerified):
		status = http.StatusForbidden

	case errors.Is(err, xerrors.ErrUserNotFound),
		errors.Is(err, xerrors.ErrPatientNotFound),
		errors.Is(err, xerrors.ErrOTPNotFound):
		status = http.StatusNotFound

	case errors.Is(err, xerrors.ErrEmailAlreadyInUse),
		errors.Is(err, xerrors.ErrSlotTaken):
		status = http.StatusConflict

	case errors.Is(err, xerrors.ErrNoDoctorAssigned),
		errors.Is(err, xerrors.ErrSlotUnknown):
		status = http.StatusUnprocessableEntity

	case errors.Is(err, xerrors.ErrTooManyOTPRequests):
		status = http.StatusTooManyRequests

	case errors.Is(err, xerrors.ErrEmailDeliveryFailed):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		log.Printf("[http] internal error: %v", err)
		response.Error(w, status, xerrors.ErrInternalServer.Error())
		return
	}
	response.Error(w, status, err.Error())
}
