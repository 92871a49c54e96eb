package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

// ErrLookupUnavailable means the directory could not answer: the store
// failed, the lookup timed out or the breaker is open. It never means the
// record is missing.
var ErrLookupUnavailable = errors.New("directory lookup unavailable")

type Config struct {
	LookupTimeout  time.Duration
	CacheTTL       time.Duration
	BreakerTimeout time.Duration
	BreakerTrips   uint32
}

// Resolver resolves directory identities for the appointment service.
type Resolver interface {
	ResolveByID(ctx context.Context, role model.Role, id int64) (model.Identity, bool, error)
	ResolveByEmail(ctx context.Context, role model.Role, email string) (model.Identity, bool, error)
}

type Service struct {
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	cache    *cache.Cache
	breaker  *circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
	timeout  time.Duration
}

func NewService(doctors repository.DoctorRepository, patients repository.PatientRepository, cfg Config, m *metrics.Metrics) *Service {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 2 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if m == nil {
		m = metrics.NewNop()
	}

	return &Service{
		doctors:  doctors,
		patients: patients,
		cache:    cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:    "directory",
			Timeout: cfg.BreakerTimeout,
			Trips:   cfg.BreakerTrips,
		}),
		metrics: m,
		timeout: cfg.LookupTimeout,
	}
}

// ResolveByID looks up the patient or doctor with the given id. found is
// false when no such record exists; err is only ErrLookupUnavailable.
func (s *Service) ResolveByID(ctx context.Context, role model.Role, id int64) (model.Identity, bool, error) {
	key := string(role) + ":id:" + strconv.FormatInt(id, 10)

	switch role {
	case model.RoleDoctor:
		return s.resolve(ctx, role, key, func(ctx context.Context) (model.Identity, error) {
			d, err := s.doctors.Get(ctx, id)
			if err != nil {
				return model.Identity{}, err
			}
			return d.Identity(), nil
		})
	case model.RolePatient:
		return s.resolve(ctx, role, key, func(ctx context.Context) (model.Identity, error) {
			p, err := s.patients.Get(ctx, id)
			if err != nil {
				return model.Identity{}, err
			}
			return p.Identity(), nil
		})
	}
	// staff roles have no directory profile
	return model.Identity{}, false, nil
}

// ResolveByEmail maps an account email onto its directory profile.
func (s *Service) ResolveByEmail(ctx context.Context, role model.Role, email string) (model.Identity, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.Identity{}, false, nil
	}
	key := string(role) + ":email:" + email

	switch role {
	case model.RoleDoctor:
		return s.resolve(ctx, role, key, func(ctx context.Context) (model.Identity, error) {
			d, err := s.doctors.GetByEmail(ctx, email)
			if err != nil {
				return model.Identity{}, err
			}
			return d.Identity(), nil
		})
	case model.RolePatient:
		return s.resolve(ctx, role, key, func(ctx context.Context) (model.Identity, error) {
			p, err := s.patients.GetByEmail(ctx, email)
			if err != nil {
				return model.Identity{}, err
			}
			return p.Identity(), nil
		})
	}
	return model.Identity{}, false, nil
}

func (s *Service) resolve(ctx context.Context, role model.Role, key string, fetch func(context.Context) (model.Identity, error)) (model.Identity, bool, error) {
	kind := string(role)

	if v, ok := s.cache.Get(key); ok {
		s.metrics.DirectoryLookups.WithLabelValues(kind, "cached").Inc()
		return v.(model.Identity), true, nil
	}

	var (
		identity model.Identity
		found    bool
	)
	start := time.Now()
	// the lookup timeout is ours and counts against the store; a caller
	// giving up on ctx does not
	err := s.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		id, err := fetch(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		identity, found = id, true
		return nil
	})
	s.metrics.DirectoryLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.DirectoryLookups.WithLabelValues(kind, "unavailable").Inc()
		log.Warn().Err(err).Str("kind", kind).Str("key", key).Msg("directory lookup failed")
		return model.Identity{}, false, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}
	if !found {
		s.metrics.DirectoryLookups.WithLabelValues(kind, "not_found").Inc()
		return model.Identity{}, false, nil
	}

	s.metrics.DirectoryLookups.WithLabelValues(kind, "found").Inc()
	s.cache.Set(key, identity, cache.DefaultExpiration)
	return identity, true, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return doctors, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]*model.Patient, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return patients, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*model.Doctor, error) {
	d, err := s.doctors.Get(ctx, id)
	return d, lookupError("doctor", err)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	p, err := s.patients.Get(ctx, id)
	return p, lookupError("patient", err)
}

func (s *Service) GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	d, err := s.doctors.GetByEmail(ctx, strings.TrimSpace(email))
	return d, lookupError("doctor", err)
}

func (s *Service) GetPatientByEmail(ctx context.Context, email string) (*model.Patient, error) {
	p, err := s.patients.GetByEmail(ctx, strings.TrimSpace(email))
	return p, lookupError("patient", err)
}

func lookupError(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(resource, nil)
	default:
		return apperrors.Internal(err)
	}
}
