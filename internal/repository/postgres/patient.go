package postgres

import (
	"context"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

const patientColumns = `id, user_id, first_name, last_name, date_of_birth, gender, address,
	phone, email, emergency_contact, medical_history, created_at, updated_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			user_id, first_name, last_name, date_of_birth, gender, address,
			phone, email, emergency_contact, medical_history, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt

	err := r.db.QueryRowxContext(ctx, query,
		patient.UserID,
		patient.FirstName,
		patient.LastName,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.Phone,
		patient.Email,
		patient.EmergencyContact,
		patient.MedicalHistory,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Scan(&patient.ID)
	return translate("create patient", err)
}

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, translate("get patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients WHERE lower(email) = lower($1)`
	if err := r.db.GetContext(ctx, &patient, query, email); err != nil {
		return nil, translate("get patient by email", err)
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	patients := []*model.Patient{}
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY last_name, first_name, id`
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, translate("list patients", err)
	}
	return patients, nil
}
