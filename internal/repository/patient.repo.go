package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medportal/internal/domain"
	"medportal/pkg/xerrors"
)

type PatientRepo struct {
	db *pgxpool.Pool
}

func NewPatientRepo(db *pgxpool.Pool) *PatientRepo {
	return &PatientRepo{db: db}
}

func (r *PatientRepo) Create(ctx context.Context, p *domain.Patient) error {
	query := `
		INSERT INTO patients (id, user_id, doctor_id, chat_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, 0))`

	_, err := r.db.Exec(ctx, query, p.ID, p.UserID, p.DoctorID, p.ChatID)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *PatientRepo) GetByEmail(ctx context.Context, email string) (*domain.Patient, error) {
	query := `
		SELECT p.id, p.user_id, u.email, u.first_name || ' ' || u.last_name,
			COALESCE(p.doctor_id::text, ''), COALESCE(p.chat_id, 0)
		FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE u.email = $1`

	var p domain.Patient
	err := r.db.QueryRow(ctx, query, email).Scan(
		&p.ID, &p.UserID, &p.Email, &p.FullName, &p.DoctorID, &p.ChatID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient by email: %w", err)
	}
	return &p, nil
}

func (r *PatientRepo) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	query := `
		SELECT p.id, p.user_id, u.email, u.first_name || ' ' || u.last_name,
			COALESCE(p.doctor_id::text, ''), COALESCE(p.chat_id, 0)
		FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`

	var p domain.Patient
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Email, &p.FullName, &p.DoctorID, &p.ChatID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient: %w", err)
	}
	return &p, nil
}

func (r *PatientRepo) SetChatID(ctx context.Context, patientID string, chatID int64) error {
	query := `UPDATE patients SET chat_id = $1 WHERE id = $2`

	_, err := r.db.Exec(ctx, query, chatID, patientID)
	if err != nil {
		return fmt.Errorf("failed to set chat id: %w", err)
	}
	return nil
}
