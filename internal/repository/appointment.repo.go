package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"medportal/internal/domain"
	"medportal/pkg/xerrors"
)

type AppointmentRepo struct {
	db *pgxpool.Pool
}

func NewAppointmentRepo(db *pgxpool.Pool) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

// BookedTimes lists the slots already held for a doctor on a date.
// Cancelled and completed appointments do not hold their slot.
func (r *AppointmentRepo) BookedTimes(ctx context.Context, doctorID, date string) ([]string, error) {
	query := `
		SELECT to_char(appointment_time, 'HH24:MI')
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
			AND status IN ('PENDING', 'CONFIRMED')`

	rows, err := r.db.Query(ctx, query, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booked times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan booked time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read booked times: %w", err)
	}
	return times, nil
}

// Create inserts the appointment inside a transaction, re-checking
// the slot under the lock of the insert. The partial unique index on
// (doctor_id, appointment_date, appointment_time) for active statuses
// backstops the pre-check under concurrency.
func (r *AppointmentRepo) Create(ctx context.Context, a *domain.Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3
				AND status IN ('PENDING', 'CONFIRMED')
		)`, a.DoctorID, a.Date, a.Time).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if exists {
		return xerrors.ErrSlotTaken
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date,
			appointment_time, reason, urgency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.Time, a.Reason, a.Urgency, a.Status, a.CreatedAt,
	)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == "23505" {
			return xerrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}
