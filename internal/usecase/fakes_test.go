package usecase

import (
	"context"
	"fmt"
	"sync"

	"medportal/internal/domain"
	"medportal/pkg/xerrors"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by email
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*domain.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return xerrors.ErrEmailAlreadyInUse
	}
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, xerrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.ErrUserNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			u.PasswordHash = hash
			return nil
		}
	}
	return xerrors.ErrUserNotFound
}

type fakePatients struct {
	mu             sync.Mutex
	patients       map[string]*domain.Patient // keyed by email
	FailNextCreate bool
}

func newFakePatients() *fakePatients {
	return &fakePatients{patients: make(map[string]*domain.Patient)}
}

func (f *fakePatients) Create(_ context.Context, p *domain.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextCreate {
		f.FailNextCreate = false
		return fmt.Errorf("patients table unavailable")
	}
	cp := *p
	f.patients[p.Email] = &cp
	return nil
}

func (f *fakePatients) GetByEmail(_ context.Context, email string) (*domain.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[email]
	if !ok {
		return nil, xerrors.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePatients) GetByID(_ context.Context, id string) (*domain.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.patients {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, xerrors.ErrPatientNotFound
}

func (f *fakePatients) SetChatID(_ context.Context, patientID string, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.patients {
		if p.ID == patientID {
			p.ChatID = chatID
			return nil
		}
	}
	return xerrors.ErrPatientNotFound
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu       sync.Mutex
	Sent     []sentEmail
	FailNext bool
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext {
		f.FailNext = false
		return fmt.Errorf("smtp unavailable")
	}
	f.Sent = append(f.Sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) sentTo(to string) []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEmail
	for _, e := range f.Sent {
		if e.To == to {
			out = append(out, e)
		}
	}
	return out
}

type fakeIDGen struct {
	mu sync.Mutex
	n  int
}

func (f *fakeIDGen) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return fmt.Sprintf("id-%d", f.n)
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) error {
	return xerrors.ErrTooManyOTPRequests
}
