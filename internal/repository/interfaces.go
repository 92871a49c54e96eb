package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/hospital-api/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForeignKey is returned when an insert references a missing patient or doctor.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
)

// MutationAction tells AppointmentRepository.Mutate what to do with the locked row.
type MutationAction int

const (
	// MutationNone leaves the row untouched and commits.
	MutationNone MutationAction = iota
	// MutationSave writes date, reason and status back.
	MutationSave
	// MutationDelete removes the row.
	MutationDelete
)

// MutateFunc inspects and edits a locked appointment. Returning an error rolls
// the transaction back.
type MutateFunc func(apt *model.Appointment) (MutationAction, error)

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		// Mutate loads the row under a row lock, applies fn and persists the
		// outcome in the same transaction.
		Mutate(ctx context.Context, id int64, fn MutateFunc) (*model.Appointment, error)
		ListByPatient(ctx context.Context, patientID int64) ([]*model.Appointment, error)
		ListByDoctor(ctx context.Context, doctorID int64) ([]*model.Appointment, error)
		ListAll(ctx context.Context) ([]*model.Appointment, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id int64) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id int64) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		List(ctx context.Context) ([]*model.Patient, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		// CreatePatientAccount inserts the user and its patient profile in
		// one transaction, linking patient.UserID to the new user.
		CreatePatientAccount(ctx context.Context, user *model.User, patient *model.Patient) error
	}
)
