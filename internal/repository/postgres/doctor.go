package postgres

import (
	"context"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

const doctorColumns = `id, user_id, first_name, last_name, specialization, license_number,
	phone, email, created_at, updated_at`

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			user_id, first_name, last_name, specialization, license_number,
			phone, email, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	doctor.CreatedAt = time.Now().UTC()
	doctor.UpdatedAt = doctor.CreatedAt

	err := r.db.QueryRowxContext(ctx, query,
		doctor.UserID,
		doctor.FirstName,
		doctor.LastName,
		doctor.Specialization,
		doctor.LicenseNumber,
		doctor.Phone,
		doctor.Email,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	).Scan(&doctor.ID)
	return translate("create doctor", err)
}

func (r *doctorRepository) Get(ctx context.Context, id int64) (*model.Doctor, error) {
	var doctor model.Doctor
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, translate("get doctor", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	var doctor model.Doctor
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE lower(email) = lower($1)`
	if err := r.db.GetContext(ctx, &doctor, query, email); err != nil {
		return nil, translate("get doctor by email", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	doctors := []*model.Doctor{}
	query := `SELECT ` + doctorColumns + ` FROM doctors ORDER BY last_name, first_name, id`
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, translate("list doctors", err)
	}
	return doctors, nil
}
