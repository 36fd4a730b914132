package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"medportal/internal/domain"
	"medportal/internal/service/email"
	"medportal/pkg/xerrors"
)

type AppointmentStore interface {
	BookedTimes(ctx context.Context, doctorID, date string) ([]string, error)
	Create(ctx context.Context, a *domain.Appointment) error
}

type BookingUsecase struct {
	appts       AppointmentStore
	patients    PatientStore
	users       UserStore
	mailer      email.Sender
	idGen       IDGenerator
	now         func() time.Time
	bookingDays int
}

func NewBookingUsecase(appts AppointmentStore, patients PatientStore, users UserStore, mailer email.Sender, idGen IDGenerator) *BookingUsecase {
	return &BookingUsecase{
		appts:       appts,
		patients:    patients,
		users:       users,
		mailer:      mailer,
		idGen:       idGen,
		now:         time.Now,
		bookingDays: 7,
	}
}

const dateLayout = "2006-01-02"

// BookableDates returns the offered dates, starting tomorrow.
func (uc *BookingUsecase) BookableDates() []string {
	dates := make([]string, 0, uc.bookingDays)
	today := uc.now()
	for i := 1; i <= uc.bookingDays; i++ {
		dates = append(dates, today.AddDate(0, 0, i).Format(dateLayout))
	}
	return dates
}

// AvailableSlots is the slot catalog minus the times already held for
// the doctor on that date.
func (uc *BookingUsecase) AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	if err := uc.validateDate(date); err != nil {
		return nil, err
	}

	booked, err := uc.appts.BookedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}

	free := make([]string, 0, len(domain.TimeSlots))
	for _, slot := range domain.TimeSlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}

type BookingRequest struct {
	PatientID string
	DoctorID  string
	Date      string
	Time      string
	Reason    string
	Urgency   domain.Urgency
}

// Book creates a pending appointment. A slot lost to a concurrent
// booking surfaces as ErrSlotTaken.
func (uc *BookingUsecase) Book(ctx context.Context, req BookingRequest) (*domain.Appointment, error) {
	if !domain.IsValidSlot(req.Time) {
		return nil, xerrors.ErrSlotUnknown
	}
	if err := uc.validateDate(req.Date); err != nil {
		return nil, err
	}
	urgency := req.Urgency
	if urgency == "" {
		urgency = domain.UrgencyMedium
	}
	if _, ok := domain.ParseUrgency(string(urgency)); !ok {
		return nil, xerrors.ErrInvalidUrgency
	}

	appt := &domain.Appointment{
		ID:        uc.idGen.Generate(),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Time:      req.Time,
		Reason:    req.Reason,
		Urgency:   urgency,
		Status:    domain.StatusPending,
		CreatedAt: uc.now(),
	}
	if err := uc.appts.Create(ctx, appt); err != nil {
		return nil, err
	}

	uc.notify(ctx, appt)
	return appt, nil
}

// notify emails the doctor and the patient. Delivery trouble does not
// undo the booking, it only gets logged.
func (uc *BookingUsecase) notify(ctx context.Context, appt *domain.Appointment) {
	patient, err := uc.patients.GetByID(ctx, appt.PatientID)
	if err != nil {
		log.Printf("[booking] notify skipped, patient lookup failed: %v", err)
		return
	}

	doctor, err := uc.users.GetByID(ctx, appt.DoctorID)
	if err != nil {
		log.Printf("[booking] notify skipped, doctor lookup failed: %v", err)
	} else {
		subject := email.AppointmentNoticeSubject(appt.Date)
		body := email.AppointmentNoticeBody(patient.FullName, appt)
		if err := uc.mailer.Send(ctx, doctor.Email, subject, body); err != nil {
			log.Printf("[booking] doctor notification failed: %v", err)
		}
	}

	if err := uc.mailer.Send(ctx, patient.Email, "Appointment request received", email.AppointmentConfirmationBody(appt)); err != nil {
		log.Printf("[booking] patient confirmation failed: %v", err)
	}
}

func (uc *BookingUsecase) validateDate(date string) error {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", xerrors.ErrInvalidRequest, date)
	}
	today, _ := time.Parse(dateLayout, uc.now().Format(dateLayout))
	if d.Before(today) {
		return xerrors.ErrDateInPast
	}
	return nil
}
