package usecase

import (
	"context"

	"medportal/internal/service/email"
	"medportal/pkg/xerrors"
)

// ContactUsecase relays a verified patient's message to their doctor.
type ContactUsecase struct {
	patients PatientStore
	users    UserStore
	mailer   email.Sender
}

func NewContactUsecase(patients PatientStore, users UserStore, mailer email.Sender) *ContactUsecase {
	return &ContactUsecase{patients: patients, users: users, mailer: mailer}
}

func (uc *ContactUsecase) SendMessage(ctx context.Context, patientID, message string) error {
	patient, err := uc.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if patient.DoctorID == "" {
		return xerrors.ErrNoDoctorAssigned
	}
	doctor, err := uc.users.GetByID(ctx, patient.DoctorID)
	if err != nil {
		return err
	}

	subject := email.DoctorMessageSubject(patient.FullName)
	body := email.DoctorMessageBody(patient.FullName, patient.Email, message)
	if err := uc.mailer.Send(ctx, doctor.Email, subject, body); err != nil {
		return xerrors.ErrEmailDeliveryFailed
	}
	return nil
}
