package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"medportal/internal/domain"
	"medportal/internal/otp"
	"medportal/internal/service/email"
	"medportal/pkg/jwtutil"
	"medportal/pkg/utils"
	"medportal/pkg/xerrors"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type PatientStore interface {
	Create(ctx context.Context, p *domain.Patient) error
	GetByEmail(ctx context.Context, email string) (*domain.Patient, error)
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	SetChatID(ctx context.Context, patientID string, chatID int64) error
}

type RateLimiter interface {
	Allow(ctx context.Context, subject string) error
}

type OtpAudit interface {
	Record(ctx context.Context, subject, intent string, issuedAt, expiresAt time.Time) error
	MarkVerified(ctx context.Context, subject, intent string) error
}

type IDGenerator interface {
	Generate() string
}

type VerificationUsecase struct {
	users    UserStore
	patients PatientStore
	store    otp.Store
	limiter  RateLimiter
	audit    OtpAudit
	mailer   email.Sender
	tokens   *jwtutil.Generator
	idGen    IDGenerator
	otpTTL   time.Duration
	now      func() time.Time
}

func NewVerificationUsecase(
	users UserStore,
	patients PatientStore,
	store otp.Store,
	limiter RateLimiter,
	audit OtpAudit,
	mailer email.Sender,
	tokens *jwtutil.Generator,
	idGen IDGenerator,
	otpTTL time.Duration,
) *VerificationUsecase {
	return &VerificationUsecase{
		users:    users,
		patients: patients,
		store:    store,
		limiter:  limiter,
		audit:    audit,
		mailer:   mailer,
		tokens:   tokens,
		idGen:    idGen,
		otpTTL:   otpTTL,
		now:      time.Now,
	}
}

type RegistrationRequest struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"license_number"`
}

// VerifyResult reports what completing a challenge produced. Token is
// a full session token after registration or a short-lived
// reset-scoped token after a password reset verification.
type VerifyResult struct {
	Intent  domain.OtpIntent      `json:"intent"`
	User    *domain.User          `json:"user,omitempty"`
	Token   string                `json:"token,omitempty"`
	Channel *domain.ChannelPayload `json:"-"`
}

// BeginRegistration validates the signup, stages it behind an OTP
// challenge and emails the code. No account exists until VerifyCode
// succeeds.
func (uc *VerificationUsecase) BeginRegistration(ctx context.Context, req RegistrationRequest) error {
	if err := utils.ValidateEmail(req.Email); err != nil {
		return err
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return err
	}

	role := domain.RolePatient
	if req.Role != "" {
		role = domain.Role(req.Role)
		if role != domain.RolePatient && role != domain.RoleDoctor {
			return xerrors.ErrInvalidRequest
		}
	}

	if _, err := uc.users.GetByEmail(ctx, req.Email); err == nil {
		return xerrors.ErrEmailAlreadyInUse
	} else if !errors.Is(err, xerrors.ErrUserNotFound) {
		return err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	payload := domain.OtpPayload{
		Registration: &domain.RegistrationPayload{
			Email:          req.Email,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			PasswordHash:   hash,
			Role:           role,
			Specialization: req.Specialization,
			LicenseNumber:  req.LicenseNumber,
		},
	}
	return uc.issue(ctx, req.Email, domain.IntentRegistration, payload)
}

// BeginPasswordReset issues a reset challenge for an existing account.
func (uc *VerificationUsecase) BeginPasswordReset(ctx context.Context, emailAddr string) error {
	if err := utils.ValidateEmail(emailAddr); err != nil {
		return err
	}
	if _, err := uc.users.GetByEmail(ctx, emailAddr); err != nil {
		return err
	}
	return uc.issue(ctx, emailAddr, domain.IntentPasswordReset, domain.OtpPayload{})
}

// BeginContact gates the bot contact flow on an OTP sent to the
// patient's email.
func (uc *VerificationUsecase) BeginContact(ctx context.Context, emailAddr string, chatID int64) error {
	return uc.beginChannel(ctx, emailAddr, chatID, domain.IntentContactDoctor)
}

// BeginBooking gates the bot booking flow. The patient must have a
// doctor assigned, otherwise there is nothing to book against.
func (uc *VerificationUsecase) BeginBooking(ctx context.Context, emailAddr string, chatID int64) error {
	return uc.beginChannel(ctx, emailAddr, chatID, domain.IntentBookAppointment)
}

// beginChannel keys the challenge by chat so a bot flow never
// collides with a web challenge pending for the same email.
func (uc *VerificationUsecase) beginChannel(ctx context.Context, emailAddr string, chatID int64, intent domain.OtpIntent) error {
	if err := utils.ValidateEmail(emailAddr); err != nil {
		return err
	}
	patient, err := uc.patients.GetByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if patient.DoctorID == "" {
		return xerrors.ErrNoDoctorAssigned
	}

	payload := domain.OtpPayload{
		Channel: &domain.ChannelPayload{
			PatientID: patient.ID,
			DoctorID:  patient.DoctorID,
			ChatID:    chatID,
			Email:     patient.Email,
		},
	}
	return uc.issue(ctx, ChatSubject(chatID), intent, payload)
}

// ChatSubject is the challenge key for bot-initiated flows.
func ChatSubject(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

// Resend replaces the pending challenge's code and restarts its
// validity window. The old code stops working immediately.
func (uc *VerificationUsecase) Resend(ctx context.Context, subject string) error {
	ch, err := uc.store.Get(ctx, subject)
	if err != nil {
		return err
	}
	if uc.limiter != nil {
		if err := uc.limiter.Allow(ctx, subject); err != nil {
			return err
		}
	}

	code, err := otp.GenerateCode(otp.CodeLength)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	now := uc.now()
	ch.Code = code
	ch.IssuedAt = now
	ch.ExpiresAt = now.Add(uc.otpTTL)

	if err := uc.store.Put(ctx, ch); err != nil {
		return err
	}
	uc.recordIssue(ctx, ch)
	return uc.deliver(ctx, ch)
}

func (uc *VerificationUsecase) issue(ctx context.Context, subject string, intent domain.OtpIntent, payload domain.OtpPayload) error {
	if uc.limiter != nil {
		if err := uc.limiter.Allow(ctx, subject); err != nil {
			return err
		}
	}

	code, err := otp.GenerateCode(otp.CodeLength)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	now := uc.now()
	ch := &domain.OtpChallenge{
		Subject:   subject,
		Code:      code,
		Intent:    intent,
		Payload:   payload,
		IssuedAt:  now,
		ExpiresAt: now.Add(uc.otpTTL),
	}
	if err := uc.store.Put(ctx, ch); err != nil {
		return err
	}
	uc.recordIssue(ctx, ch)
	return uc.deliver(ctx, ch)
}

// deliver emails the code. If delivery fails the challenge is rolled
// back so the subject is not left waiting on a code that never left.
func (uc *VerificationUsecase) deliver(ctx context.Context, ch *domain.OtpChallenge) error {
	minutes := int(ch.ExpiresAt.Sub(ch.IssuedAt).Minutes())
	subject := email.OTPSubject(ch.Intent)
	body := email.OTPBody(ch.Code, ch.Intent, minutes)

	recipient := ch.Subject
	if ch.Payload.Channel != nil && ch.Payload.Channel.Email != "" {
		recipient = ch.Payload.Channel.Email
	}

	if err := uc.mailer.Send(ctx, recipient, subject, body); err != nil {
		if delErr := uc.store.Consume(ctx, ch.Subject); delErr != nil {
			log.Printf("[verify] failed to roll back challenge for %s: %v", ch.Subject, delErr)
		}
		return xerrors.ErrEmailDeliveryFailed
	}
	return nil
}

func (uc *VerificationUsecase) recordIssue(ctx context.Context, ch *domain.OtpChallenge) {
	if uc.audit == nil {
		return
	}
	if err := uc.audit.Record(ctx, ch.Subject, string(ch.Intent), ch.IssuedAt, ch.ExpiresAt); err != nil {
		log.Printf("[verify] otp audit record failed for %s: %v", ch.Subject, err)
	}
}

// VerifyCode checks the submitted code against the pending challenge
// and, on match, completes whatever the challenge was gating. A wrong
// code leaves the challenge intact for another attempt.
func (uc *VerificationUsecase) VerifyCode(ctx context.Context, subject, code string) (*VerifyResult, error) {
	ch, err := uc.store.Get(ctx, subject)
	if err != nil {
		return nil, err
	}
	if ch.Code != code {
		return nil, xerrors.ErrInvalidOTP
	}

	result := &VerifyResult{Intent: ch.Intent, Channel: ch.Payload.Channel}

	switch ch.Intent {
	case domain.IntentRegistration:
		user, token, err := uc.completeRegistration(ctx, ch)
		if err != nil {
			return nil, err
		}
		result.User = user
		result.Token = token

	case domain.IntentPasswordReset:
		user, err := uc.users.GetByEmail(ctx, subject)
		if err != nil {
			return nil, err
		}
		token, err := uc.tokens.Generate(user.ID, "", "password_reset", true, nil)
		if err != nil {
			return nil, fmt.Errorf("issue reset token: %w", err)
		}
		result.Token = token

	case domain.IntentContactDoctor, domain.IntentBookAppointment:
		// Channel payload is all the caller needs to proceed.

	default:
		return nil, xerrors.ErrInvalidRequest
	}

	if err := uc.store.Consume(ctx, subject); err != nil {
		return nil, err
	}
	if uc.audit != nil {
		if err := uc.audit.MarkVerified(ctx, subject, string(ch.Intent)); err != nil {
			log.Printf("[verify] otp audit mark failed for %s: %v", subject, err)
		}
	}
	return result, nil
}

func (uc *VerificationUsecase) completeRegistration(ctx context.Context, ch *domain.OtpChallenge) (*domain.User, string, error) {
	reg := ch.Payload.Registration
	if reg == nil {
		return nil, "", xerrors.ErrInvalidRequest
	}

	user := &domain.User{
		ID:             uc.idGen.Generate(),
		Email:          reg.Email,
		FirstName:      reg.FirstName,
		LastName:       reg.LastName,
		PasswordHash:   reg.PasswordHash,
		Role:           reg.Role,
		EmailVerified:  true,
		Specialization: reg.Specialization,
		LicenseNumber:  reg.LicenseNumber,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	// The account exists from here on. Drop the challenge now so a
	// failure below cannot leave a live code against a taken email.
	if err := uc.store.Consume(ctx, ch.Subject); err != nil {
		log.Printf("[verify] failed to consume challenge for %s: %v", ch.Subject, err)
	}

	if user.Role == domain.RolePatient {
		patient := &domain.Patient{
			ID:     uc.idGen.Generate(),
			UserID: user.ID,
		}
		if err := uc.patients.Create(ctx, patient); err != nil {
			return nil, "", err
		}
	}

	token, err := uc.tokens.Generate(user.ID, "", "", false, nil)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	return user, token, nil
}

// ConfirmPasswordReset sets the new password. The token must be the
// reset-scoped one handed out by VerifyCode.
func (uc *VerificationUsecase) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := uc.tokens.Verify(token)
	if err != nil {
		return err
	}
	if !claims.IsTemp || claims.Purpose != "password_reset" {
		return xerrors.ErrNoPendingReset
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return uc.users.UpdatePassword(ctx, claims.UserID, hash)
}

// Login authenticates a verified account and issues a session token.
func (uc *VerificationUsecase) Login(ctx context.Context, emailAddr, password, device string) (*domain.User, string, error) {
	user, err := uc.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, xerrors.ErrUserNotFound) {
			return nil, "", xerrors.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", xerrors.ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, "", xerrors.ErrEmailNotVerified
	}

	token, err := uc.tokens.Generate(user.ID, device, "", false, nil)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	return user, token, nil
}
