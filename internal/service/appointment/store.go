package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/service/directory"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

const MaxReasonLength = 1000

// Check inspects the locked record before a transition. A non-nil error
// aborts the operation with nothing written.
type Check func(apt *model.Appointment) error

// Store owns appointment records and their state machine.
type Store struct {
	repo      repository.AppointmentRepository
	directory directory.Resolver
	now       func() time.Time
}

func NewStore(repo repository.AppointmentRepository, dir directory.Resolver) *Store {
	return &Store{repo: repo, directory: dir, now: time.Now}
}

// SetClock replaces the clock used to reject past dates.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates req, checks both references against the directory and
// persists a new scheduled appointment.
func (s *Store) Create(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	if req.PatientID <= 0 {
		return nil, apperrors.Validation("patient_id must be a positive id", nil)
	}
	if req.DoctorID <= 0 {
		return nil, apperrors.Validation("doctor_id must be a positive id", nil)
	}
	when, reason, err := s.validateSchedule(req.AppointmentDate, req.Reason, req.Status)
	if err != nil {
		return nil, err
	}

	if err := s.checkReference(ctx, model.RolePatient, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.checkReference(ctx, model.RoleDoctor, req.DoctorID); err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentDate: when,
		Reason:          reason,
		Status:          model.AppointmentStatusScheduled,
	}
	if err := s.repo.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, &apperrors.AppError{
				Code:    apperrors.ErrReference,
				Message: "appointment references a patient or doctor that does not exist",
			}
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// Reschedule replaces date and reason of a scheduled appointment in one write.
// A terminal appointment is reported as such before the input is judged.
func (s *Store) Reschedule(ctx context.Context, id int64, req model.RescheduleAppointmentRequest, check Check) (*model.Appointment, error) {
	return s.mutate(ctx, id, check, func(apt *model.Appointment) (repository.MutationAction, error) {
		if apt.Status.Terminal() {
			return repository.MutationNone, apperrors.InvalidState(
				fmt.Sprintf("cannot reschedule a %s appointment", apt.Status))
		}
		when, reason, err := s.validateSchedule(req.AppointmentDate, req.Reason, req.Status)
		if err != nil {
			return repository.MutationNone, err
		}
		apt.AppointmentDate = when
		apt.Reason = reason
		apt.Status = model.AppointmentStatusScheduled
		return repository.MutationSave, nil
	})
}

// Cancel moves a scheduled appointment to cancelled. Cancelling twice is a no-op.
func (s *Store) Cancel(ctx context.Context, id int64, check Check) (*model.Appointment, error) {
	return s.mutate(ctx, id, check, cancelTransition)
}

// Complete moves a scheduled appointment to completed. Completing twice is a no-op.
func (s *Store) Complete(ctx context.Context, id int64, check Check) (*model.Appointment, error) {
	return s.mutate(ctx, id, check, func(apt *model.Appointment) (repository.MutationAction, error) {
		switch apt.Status {
		case model.AppointmentStatusCompleted:
			return repository.MutationNone, nil
		case model.AppointmentStatusCancelled:
			return repository.MutationNone, apperrors.InvalidState("cannot complete a cancelled appointment")
		}
		apt.Status = model.AppointmentStatusCompleted
		return repository.MutationSave, nil
	})
}

// Remove cancels the appointment under the Cancel rules and deletes the row
// in the same transaction. The returned record carries its final status.
func (s *Store) Remove(ctx context.Context, id int64, check Check) (*model.Appointment, error) {
	return s.mutate(ctx, id, check, func(apt *model.Appointment) (repository.MutationAction, error) {
		if _, err := cancelTransition(apt); err != nil {
			return repository.MutationNone, err
		}
		return repository.MutationDelete, nil
	})
}

func cancelTransition(apt *model.Appointment) (repository.MutationAction, error) {
	switch apt.Status {
	case model.AppointmentStatusCancelled:
		return repository.MutationNone, nil
	case model.AppointmentStatusCompleted:
		return repository.MutationNone, apperrors.InvalidState("cannot cancel a completed appointment")
	}
	apt.Status = model.AppointmentStatusCancelled
	return repository.MutationSave, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return apt, nil
}

func (s *Store) ListByPatient(ctx context.Context, patientID int64) ([]*model.Appointment, error) {
	apts, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, storeError(err)
	}
	return apts, nil
}

func (s *Store) ListByDoctor(ctx context.Context, doctorID int64) ([]*model.Appointment, error) {
	apts, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, storeError(err)
	}
	return apts, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*model.Appointment, error) {
	apts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return apts, nil
}

func (s *Store) mutate(ctx context.Context, id int64, check Check, transition repository.MutateFunc) (*model.Appointment, error) {
	apt, err := s.repo.Mutate(ctx, id, func(apt *model.Appointment) (repository.MutationAction, error) {
		if check != nil {
			if err := check(apt); err != nil {
				return repository.MutationNone, err
			}
		}
		return transition(apt)
	})
	if err != nil {
		return nil, storeError(err)
	}
	return apt, nil
}

func (s *Store) checkReference(ctx context.Context, role model.Role, id int64) error {
	_, found, err := s.directory.ResolveByID(ctx, role, id)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to verify %s %d: %w", role, id, err))
	}
	if !found {
		return apperrors.Reference(string(role), id)
	}
	return nil
}

// validateSchedule checks the fields shared by create and reschedule and
// returns the parsed date and trimmed reason.
func (s *Store) validateSchedule(date, reason string, status model.AppointmentStatus) (time.Time, string, error) {
	when, dateOnly, err := model.ParseAppointmentDate(date)
	if err != nil {
		return time.Time{}, "", apperrors.Validation(err.Error(), nil)
	}

	now := s.now().UTC()
	if dateOnly {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if when.Before(today) {
			return time.Time{}, "", apperrors.Validation("appointment_date must be today or later", nil)
		}
	} else if when.Before(now.Truncate(time.Minute)) {
		return time.Time{}, "", apperrors.Validation("appointment_date must not be in the past", nil)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return time.Time{}, "", apperrors.Validation("reason is required", nil)
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return time.Time{}, "", apperrors.Validation(
			fmt.Sprintf("reason must be at most %d characters", MaxReasonLength), nil)
	}

	if status != "" && status != model.AppointmentStatusScheduled {
		return time.Time{}, "", apperrors.Validation("status must be scheduled", nil)
	}
	return when, reason, nil
}

// storeError passes AppErrors through and classifies everything else.
func storeError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("appointment", nil)
	}
	return apperrors.Internal(err)
}
