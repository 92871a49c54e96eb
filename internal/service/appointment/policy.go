package appointment

import (
	"context"
	"fmt"

	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

type Action string

const (
	ActionCreate     Action = "create"
	ActionReschedule Action = "reschedule"
	ActionCancel     Action = "cancel"
	ActionComplete   Action = "complete"
	ActionRemove     Action = "remove"
	ActionRead       Action = "read"
)

// principal is an actor together with the directory profile its role maps to.
type principal struct {
	actor model.Actor
	// profileID is the patient or doctor id; zero for staff and for
	// actors whose profile has not been provisioned.
	profileID int64
}

func (p principal) provisioned() bool {
	return p.profileID > 0
}

// resolve maps a patient or doctor actor onto its directory profile.
func (s *Service) resolve(ctx context.Context, actor model.Actor) (principal, error) {
	if !actor.Role.Valid() {
		return principal{}, apperrors.Forbidden(fmt.Sprintf("unknown role %q", actor.Role))
	}
	p := principal{actor: actor}
	if actor.Role.IsStaff() {
		return p, nil
	}

	identity, found, err := s.directory.ResolveByEmail(ctx, actor.Role, actor.Email)
	if err != nil {
		return principal{}, apperrors.Internal(fmt.Errorf("failed to resolve %s profile: %w", actor.Role, err))
	}
	if found {
		p.profileID = identity.ID
	}
	return p, nil
}

// canCreate checks the create column of the role table.
func (p principal) canCreate(patientID int64) error {
	switch p.actor.Role {
	case model.RoleAdmin, model.RoleReceptionist:
		return nil
	case model.RolePatient:
		if !p.provisioned() {
			return apperrors.Forbidden("patient profile is not provisioned")
		}
		if patientID != p.profileID {
			return apperrors.Forbidden("patients may only book their own appointments")
		}
		return nil
	}
	return apperrors.Forbidden(fmt.Sprintf("%s may not create appointments", p.actor.Role))
}

// allowed reports whether the role may perform action at all, before the
// record is known.
func (p principal) allowed(action Action) error {
	switch p.actor.Role {
	case model.RoleAdmin, model.RoleReceptionist:
		return nil
	case model.RolePatient:
		switch action {
		case ActionReschedule, ActionCancel:
			if !p.provisioned() {
				return apperrors.Forbidden("patient profile is not provisioned")
			}
			return nil
		case ActionRead:
			return nil
		}
	case model.RoleDoctor:
		if action == ActionRead {
			return nil
		}
	}
	return apperrors.Forbidden(fmt.Sprintf("%s may not %s appointments", p.actor.Role, action))
}

// owns reports whether apt belongs to the principal's profile.
func (p principal) owns(apt *model.Appointment) bool {
	if !p.provisioned() {
		return false
	}
	switch p.actor.Role {
	case model.RolePatient:
		return apt.PatientID == p.profileID
	case model.RoleDoctor:
		return apt.DoctorID == p.profileID
	}
	return false
}

// check returns the record-level guard run against the stored appointment.
func (p principal) check(action Action) Check {
	return func(apt *model.Appointment) error {
		if p.actor.Role.IsStaff() || p.owns(apt) {
			return nil
		}
		return apperrors.Forbidden(fmt.Sprintf("cannot %s appointment %d: it belongs to another %s",
			action, apt.ID, p.actor.Role))
	}
}
