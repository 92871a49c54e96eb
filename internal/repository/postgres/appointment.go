package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

const appointmentColumns = `id, patient_id, doctor_id, appointment_date, reason, status, created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
	now func() time.Time
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: base, now: time.Now}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			patient_id, doctor_id, appointment_date, reason, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	appointment.CreatedAt = r.now().UTC()
	appointment.UpdatedAt = appointment.CreatedAt

	err := r.db.QueryRowxContext(ctx, query,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.AppointmentDate,
		appointment.Reason,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	).Scan(&appointment.ID)
	if err != nil {
		return translate("create appointment", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, translate("get appointment", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Mutate(ctx context.Context, id int64, fn repository.MutateFunc) (*model.Appointment, error) {
	var result *model.Appointment

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var appointment model.Appointment
		query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &appointment, query, id); err != nil {
			return translate("lock appointment", err)
		}

		action, err := fn(&appointment)
		if err != nil {
			return err
		}

		switch action {
		case repository.MutationSave:
			appointment.UpdatedAt = r.now().UTC()
			_, err = tx.ExecContext(ctx, `
				UPDATE appointments
				SET appointment_date = $1, reason = $2, status = $3, updated_at = $4
				WHERE id = $5
			`,
				appointment.AppointmentDate,
				appointment.Reason,
				appointment.Status,
				appointment.UpdatedAt,
				appointment.ID,
			)
			if err != nil {
				return translate("update appointment", err)
			}
		case repository.MutationDelete:
			if _, err = tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, appointment.ID); err != nil {
				return translate("delete appointment", err)
			}
		case repository.MutationNone:
		default:
			return fmt.Errorf("unknown mutation action %d", action)
		}

		result = &appointment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Appointment, error) {
	return r.list(ctx, "list patient appointments", `WHERE patient_id = $1`, patientID)
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]*model.Appointment, error) {
	return r.list(ctx, "list doctor appointments", `WHERE doctor_id = $1`, doctorID)
}

func (r *appointmentRepository) ListAll(ctx context.Context) ([]*model.Appointment, error) {
	return r.list(ctx, "list appointments", "")
}

func (r *appointmentRepository) list(ctx context.Context, op, where string, args ...interface{}) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments ` + where +
		` ORDER BY appointment_date ASC, id ASC`

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, translate(op, err)
	}
	return appointments, nil
}
