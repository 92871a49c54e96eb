package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	err := r.db.QueryRowxContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	return translate("create user", err)
}

func (r *userRepository) CreatePatientAccount(ctx context.Context, user *model.User, patient *model.Patient) error {
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	patient.CreatedAt, patient.UpdatedAt = now, now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, user.Name, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
		if err != nil {
			return translate("create user", err)
		}

		patient.UserID = &user.ID
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO patients (
				user_id, first_name, last_name, date_of_birth, gender, address,
				phone, email, emergency_contact, medical_history, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`,
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
	})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
	`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, translate("get user by email", err)
	}
	return &user, nil
}
