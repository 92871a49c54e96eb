package appointment

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/directory"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

// ViewCache holds role projections between writes.
type ViewCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

type Config struct {
	// MaxConcurrency bounds parallel directory lookups per request.
	MaxConcurrency int
	LookupTimeout  time.Duration
}

type Service struct {
	store     *Store
	directory directory.Resolver
	enricher  *enricher
	views     ViewCache
	metrics   *metrics.Metrics

	// generations counts invalidations per view key so a projection loaded
	// before a write is never stored after it.
	genMu       sync.Mutex
	generations map[string]uint64
}

func NewService(store *Store, dir directory.Resolver, views ViewCache, m *metrics.Metrics, cfg Config) *Service {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 2 * time.Second
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		store:     store,
		directory: dir,
		enricher: &enricher{
			directory: dir,
			limit:     cfg.MaxConcurrency,
			timeout:   cfg.LookupTimeout,
		},
		views:       views,
		metrics:     m,
		generations: make(map[string]uint64),
	}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, req model.CreateAppointmentRequest) (*model.EnrichedAppointment, error) {
	p, err := s.resolve(ctx, actor)
	if err == nil {
		err = p.canCreate(req.PatientID)
	}
	if err != nil {
		s.record(ActionCreate, err)
		return nil, err
	}

	apt, err := s.store.Create(ctx, req)
	s.record(ActionCreate, err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("appointment_id", apt.ID).
		Int64("patient_id", apt.PatientID).
		Int64("doctor_id", apt.DoctorID).
		Str("actor_role", string(actor.Role)).
		Msg("appointment created")

	s.invalidate(ctx, apt)
	enriched := s.enricher.one(ctx, apt)
	return &enriched, nil
}

func (s *Service) Reschedule(ctx context.Context, actor model.Actor, id int64, req model.RescheduleAppointmentRequest) (*model.EnrichedAppointment, error) {
	return s.transition(ctx, actor, ActionReschedule, func(check Check) (*model.Appointment, error) {
		return s.store.Reschedule(ctx, id, req, check)
	})
}

func (s *Service) Cancel(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error) {
	return s.transition(ctx, actor, ActionCancel, func(check Check) (*model.Appointment, error) {
		return s.store.Cancel(ctx, id, check)
	})
}

func (s *Service) Complete(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error) {
	return s.transition(ctx, actor, ActionComplete, func(check Check) (*model.Appointment, error) {
		return s.store.Complete(ctx, id, check)
	})
}

// Remove cancels and deletes the appointment. Staff only.
func (s *Service) Remove(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error) {
	return s.transition(ctx, actor, ActionRemove, func(check Check) (*model.Appointment, error) {
		return s.store.Remove(ctx, id, check)
	})
}

func (s *Service) transition(ctx context.Context, actor model.Actor, action Action, run func(Check) (*model.Appointment, error)) (*model.EnrichedAppointment, error) {
	p, err := s.resolve(ctx, actor)
	if err == nil {
		err = p.allowed(action)
	}
	if err != nil {
		s.record(action, err)
		return nil, err
	}

	apt, err := run(p.check(action))
	s.record(action, err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("appointment_id", apt.ID).
		Str("action", string(action)).
		Str("status", string(apt.Status)).
		Str("actor_role", string(actor.Role)).
		Msg("appointment updated")

	s.invalidate(ctx, apt)
	enriched := s.enricher.one(ctx, apt)
	return &enriched, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id int64) (*model.EnrichedAppointment, error) {
	p, err := s.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := p.allowed(ActionRead); err != nil {
		return nil, err
	}

	apt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.check(ActionRead)(apt); err != nil {
		return nil, err
	}

	enriched := s.enricher.one(ctx, apt)
	return &enriched, nil
}

// ListAll returns every appointment. Staff only.
func (s *Service) ListAll(ctx context.Context, actor model.Actor) ([]model.EnrichedAppointment, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.Forbidden("only staff may list all appointments")
	}
	apts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.enricher.enrich(ctx, apts), nil
}

// ListByPatient returns a patient's appointments. Doctors only see the rows
// where they are the doctor.
func (s *Service) ListByPatient(ctx context.Context, actor model.Actor, patientID int64) ([]model.EnrichedAppointment, error) {
	p, err := s.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RolePatient:
		if !p.provisioned() || p.profileID != patientID {
			return nil, apperrors.Forbidden("patients may only view their own appointments")
		}
	case model.RoleDoctor:
		if !p.provisioned() {
			return []model.EnrichedAppointment{}, nil
		}
	}

	apts, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleDoctor {
		apts = filter(apts, p.owns)
	}
	return s.enricher.enrich(ctx, apts), nil
}

func (s *Service) ListByDoctor(ctx context.Context, actor model.Actor, doctorID int64) ([]model.EnrichedAppointment, error) {
	p, err := s.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleDoctor:
		if !p.provisioned() || p.profileID != doctorID {
			return nil, apperrors.Forbidden("doctors may only view their own appointments")
		}
	case model.RolePatient:
		return nil, apperrors.Forbidden("patients may not list a doctor's appointments")
	}

	apts, err := s.store.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.enricher.enrich(ctx, apts), nil
}

func filter(apts []*model.Appointment, keep func(*model.Appointment) bool) []*model.Appointment {
	out := apts[:0:0]
	for _, apt := range apts {
		if keep(apt) {
			out = append(out, apt)
		}
	}
	return out
}

func (s *Service) record(action Action, err error) {
	s.metrics.AppointmentTransitions.WithLabelValues(string(action), resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrValidation:
		return "validation"
	case apperrors.ErrReference:
		return "reference"
	case apperrors.ErrForbidden:
		return "forbidden"
	case apperrors.ErrNotFound:
		return "not_found"
	case apperrors.ErrInvalidState:
		return "invalid_state"
	}
	return "error"
}

const viewKeyAll = "all"

func patientViewKey(id int64) string { return "patient:" + strconv.FormatInt(id, 10) }
func doctorViewKey(id int64) string  { return "doctor:" + strconv.FormatInt(id, 10) }

func (s *Service) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[key]
}

// invalidate drops every projection that could contain apt.
func (s *Service) invalidate(ctx context.Context, apt *model.Appointment) {
	keys := []string{viewKeyAll, patientViewKey(apt.PatientID), doctorViewKey(apt.DoctorID)}

	s.genMu.Lock()
	for _, key := range keys {
		s.generations[key]++
	}
	s.genMu.Unlock()

	if err := s.views.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Int64("appointment_id", apt.ID).Msg("failed to invalidate view cache")
	}
}
