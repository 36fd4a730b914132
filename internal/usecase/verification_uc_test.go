package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medportal/internal/domain"
	"medportal/internal/otp"
	"medportal/pkg/jwtutil"
	"medportal/pkg/utils"
	"medportal/pkg/xerrors"
)

type verifyFixture struct {
	uc       *VerificationUsecase
	users    *fakeUsers
	patients *fakePatients
	store    *otp.MemoryStore
	mailer   *fakeMailer
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	users := newFakeUsers()
	patients := newFakePatients()
	store := otp.NewMemoryStore()
	mailer := &fakeMailer{}
	tokens := jwtutil.NewGenerator("test-secret", "medportal-test", time.Hour)

	uc := NewVerificationUsecase(users, patients, store, nil, nil, mailer, tokens, &fakeIDGen{}, 5*time.Minute)
	return &verifyFixture{uc: uc, users: users, patients: patients, store: store, mailer: mailer}
}

func (f *verifyFixture) pendingCode(t *testing.T, subject string) string {
	t.Helper()
	ch, err := f.store.Get(context.Background(), subject)
	require.NoError(t, err)
	return ch.Code
}

func validSignup() RegistrationRequest {
	return RegistrationRequest{
		Email:     "pat@example.com",
		FirstName: "Pat",
		LastName:  "Doe",
		Password:  "Sup3rSecret",
	}
}

func TestBeginRegistrationStagesChallenge(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.BeginRegistration(ctx, validSignup()))

	// No account exists yet.
	_, err := f.users.GetByEmail(ctx, "pat@example.com")
	assert.ErrorIs(t, err, xerrors.ErrUserNotFound)

	ch, err := f.store.Get(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRegistration, ch.Intent)
	require.NotNil(t, ch.Payload.Registration)
	assert.True(t, utils.CheckPasswordHash("Sup3rSecret", ch.Payload.Registration.PasswordHash))

	sent := f.mailer.sentTo("pat@example.com")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, ch.Code)
}

func TestBeginRegistrationRejectsBadInput(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	req := validSignup()
	req.Email = "not-an-email"
	assert.ErrorIs(t, f.uc.BeginRegistration(ctx, req), xerrors.ErrInvalidEmailFormat)

	req = validSignup()
	req.Password = "short"
	assert.ErrorIs(t, f.uc.BeginRegistration(ctx, req), xerrors.ErrPasswordTooShort)
}

func TestBeginRegistrationExistingEmail(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, &domain.User{ID: "u1", Email: "pat@example.com"}))
	assert.ErrorIs(t, f.uc.BeginRegistration(ctx, validSignup()), xerrors.ErrEmailAlreadyInUse)
}

func TestVerifyRegistrationCreatesVerifiedUser(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.BeginRegistration(ctx, validSignup()))
	code := f.pendingCode(t, "pat@example.com")

	result, err := f.uc.VerifyCode(ctx, "pat@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRegistration, result.Intent)
	require.NotNil(t, result.User)
	assert.True(t, result.User.EmailVerified)
	assert.NotEmpty(t, result.Token)

	// Challenge is consumed, the code cannot be replayed.
	_, err = f.uc.VerifyCode(ctx, "pat@example.com", code)
	assert.ErrorIs(t, err, xerrors.ErrOTPNotFound)
}

func TestVerifyConsumesChallengeOnceUserExists(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.BeginRegistration(ctx, validSignup()))
	code := f.pendingCode(t, "pat@example.com")

	// The patient insert fails after the user row is committed.
	f.patients.FailNextCreate = true
	_, err := f.uc.VerifyCode(ctx, "pat@example.com", code)
	require.Error(t, err)

	// The account exists, and no live challenge is left behind that
	// would dead-end a retry against the now-taken email.
	_, err = f.users.GetByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	_, err = f.store.Get(ctx, "pat@example.com")
	assert.ErrorIs(t, err, xerrors.ErrOTPNotFound)
}

func TestVerifyWrongCodeKeepsChallenge(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.BeginRegistration(ctx, validSignup()))
	code := f.pendingCode(t, "pat@example.com")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err := f.uc.VerifyCode(ctx, "pat@example.com", wrong)
	assert.ErrorIs(t, err, xerrors.ErrInvalidOTP)

	// Still no account, and the right code still works.
	_, err = f.users.GetByEmail(ctx, "pat@example.com")
	assert.ErrorIs(t, err, xerrors.ErrUserNotFound)

	_, err = f.uc.VerifyCode(ctx, "pat@example.com", code)
	assert.NoError(t, err)
}

func TestVerifyExpiredCode(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.BeginRegistration(ctx, validSignup()))
	code := f.pendingCode(t, "pat@example.com")

	f.store.Now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	_, err := f.uc.VerifyCode(ctx, "pat@example.com", code)
	assert.ErrorIs(t, err, xerrors.ErrExpiredOTP)
}

func TestDeliveryFailureRollsBackChallenge(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	f.mailer.FailNext = true
	err := f.uc.BeginRegistration(ctx, validSignup())
	assert.ErrorIs(t, err, xerrors.ErrEmailDeliveryFailed)

	_, err = f.store.Get(ctx, "pat@example.com")
	assert.ErrorIs(t, err, xerrors.ErrOTPNotFound)
}

func TestResendReplacesChallenge(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.BeginRegistration(ctx, validSignup()))
	first, err := f.store.Get(ctx, "pat@example.com")
	require.NoError(t, err)

	// Pin the pre-resend code to something the generator cannot emit
	// so the replacement can never collide with it.
	first.Code = "old-code"
	require.NoError(t, f.store.Put(ctx, first))

	later := first.IssuedAt.Add(2 * time.Minute)
	f.uc.now = func() time.Time { return later }

	require.NoError(t, f.uc.Resend(ctx, "pat@example.com"))

	second, err := f.store.Get(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, later, second.IssuedAt)
	assert.Equal(t, later.Add(5*time.Minute), second.ExpiresAt)
	assert.Len(t, f.mailer.sentTo("pat@example.com"), 2)

	// The pre-resend code is dead.
	_, err = f.uc.VerifyCode(ctx, "pat@example.com", first.Code)
	assert.ErrorIs(t, err, xerrors.ErrInvalidOTP)

	// The replacement code completes the flow.
	_, err = f.uc.VerifyCode(ctx, "pat@example.com", second.Code)
	assert.NoError(t, err)
}

func TestResendWithoutChallenge(t *testing.T) {
	f := newVerifyFixture(t)
	err := f.uc.Resend(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, xerrors.ErrOTPNotFound)
}

func TestResendRateLimited(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.BeginRegistration(ctx, validSignup()))
	f.uc.limiter = denyLimiter{}

	err := f.uc.Resend(ctx, "pat@example.com")
	assert.ErrorIs(t, err, xerrors.ErrTooManyOTPRequests)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	hash, err := utils.HashPassword("OldPassw0rd")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &domain.User{
		ID: "u1", Email: "pat@example.com", PasswordHash: hash, EmailVerified: true,
	}))

	require.NoError(t, f.uc.BeginPasswordReset(ctx, "pat@example.com"))
	code := f.pendingCode(t, "pat@example.com")

	result, err := f.uc.VerifyCode(ctx, "pat@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentPasswordReset, result.Intent)
	require.NotEmpty(t, result.Token)

	require.NoError(t, f.uc.ConfirmPasswordReset(ctx, result.Token, "NewPassw0rd"))

	_, _, err = f.uc.Login(ctx, "pat@example.com", "OldPassw0rd", "")
	assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)

	user, token, err := f.uc.Login(ctx, "pat@example.com", "NewPassw0rd", "web")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NotEmpty(t, token)
}

func TestConfirmResetRejectsSessionToken(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, &domain.User{ID: "u1", Email: "pat@example.com"}))

	// A regular session token must not authorize a reset.
	tokens := jwtutil.NewGenerator("test-secret", "medportal-test", time.Hour)
	sessionToken, err := tokens.Generate("u1", "web", "", false, nil)
	require.NoError(t, err)

	err = f.uc.ConfirmPasswordReset(ctx, sessionToken, "NewPassw0rd")
	assert.ErrorIs(t, err, xerrors.ErrNoPendingReset)
}

func TestBeginPasswordResetUnknownUser(t *testing.T) {
	f := newVerifyFixture(t)
	err := f.uc.BeginPasswordReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, xerrors.ErrUserNotFound)
}

func TestLoginUnverifiedAccount(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	hash, err := utils.HashPassword("Passw0rdOk")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &domain.User{
		ID: "u1", Email: "pat@example.com", PasswordHash: hash, EmailVerified: false,
	}))

	_, _, err = f.uc.Login(ctx, "pat@example.com", "Passw0rdOk", "")
	assert.ErrorIs(t, err, xerrors.ErrEmailNotVerified)
}

func TestBeginBookingRequiresDoctor(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.patients.Create(ctx, &domain.Patient{
		ID: "p1", UserID: "u1", Email: "pat@example.com", FullName: "Pat Doe",
	}))

	err := f.uc.BeginBooking(ctx, "pat@example.com", 42)
	assert.ErrorIs(t, err, xerrors.ErrNoDoctorAssigned)
}

func TestBeginContactCarriesChannelPayload(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.patients.Create(ctx, &domain.Patient{
		ID: "p1", UserID: "u1", Email: "pat@example.com", FullName: "Pat Doe", DoctorID: "d1",
	}))

	require.NoError(t, f.uc.BeginContact(ctx, "pat@example.com", 42))
	code := f.pendingCode(t, ChatSubject(42))

	result, err := f.uc.VerifyCode(ctx, ChatSubject(42), code)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentContactDoctor, result.Intent)
	require.NotNil(t, result.Channel)
	assert.Equal(t, "p1", result.Channel.PatientID)
	assert.Equal(t, "d1", result.Channel.DoctorID)
	assert.Equal(t, int64(42), result.Channel.ChatID)

	// The code itself still goes to the patient's inbox.
	assert.Len(t, f.mailer.sentTo("pat@example.com"), 1)
}

func TestChatChallengeDoesNotClobberWebChallenge(t *testing.T) {
	f := newVerifyFixture(t)
	ctx := context.Background()

	hash, err := utils.HashPassword("OldPassw0rd")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &domain.User{
		ID: "u1", Email: "pat@example.com", PasswordHash: hash, EmailVerified: true,
	}))
	require.NoError(t, f.patients.Create(ctx, &domain.Patient{
		ID: "p1", UserID: "u1", Email: "pat@example.com", FullName: "Pat Doe", DoctorID: "d1",
	}))

	require.NoError(t, f.uc.BeginPasswordReset(ctx, "pat@example.com"))
	require.NoError(t, f.uc.BeginContact(ctx, "pat@example.com", 42))

	resetCode := f.pendingCode(t, "pat@example.com")
	botCode := f.pendingCode(t, ChatSubject(42))

	// Both challenges are live at once and each resolves on its own key.
	result, err := f.uc.VerifyCode(ctx, "pat@example.com", resetCode)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentPasswordReset, result.Intent)

	result, err = f.uc.VerifyCode(ctx, ChatSubject(42), botCode)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentContactDoctor, result.Intent)
}

func TestBeginContactUnknownPatient(t *testing.T) {
	f := newVerifyFixture(t)
	err := f.uc.BeginContact(context.Background(), "ghost@example.com", 42)
	assert.ErrorIs(t, err, xerrors.ErrPatientNotFound)
}
