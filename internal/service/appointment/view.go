package appointment

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
)

// View returns the appointments the actor's role is meant to see, shaped for
// that role. Doctors also get the distinct patients they are booked with.
func (s *Service) View(ctx context.Context, actor model.Actor) (*model.AppointmentView, error) {
	p, err := s.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	var (
		key  string
		load func(context.Context) ([]*model.Appointment, error)
	)
	switch {
	case actor.Role.IsStaff():
		key, load = viewKeyAll, s.store.ListAll
	case !p.provisioned():
		return &model.AppointmentView{Role: actor.Role, Appointments: []model.EnrichedAppointment{}}, nil
	case actor.Role == model.RolePatient:
		key = patientViewKey(p.profileID)
		load = func(ctx context.Context) ([]*model.Appointment, error) {
			return s.store.ListByPatient(ctx, p.profileID)
		}
	default:
		key = doctorViewKey(p.profileID)
		load = func(ctx context.Context) ([]*model.Appointment, error) {
			return s.store.ListByDoctor(ctx, p.profileID)
		}
	}

	var cached model.AppointmentView
	found, err := s.views.Get(ctx, key, &cached)
	switch {
	case err != nil:
		s.metrics.CacheRequests.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("key", key).Msg("view cache read failed")
	case found:
		s.metrics.CacheRequests.WithLabelValues("hit").Inc()
		cached.Role = actor.Role
		return &cached, nil
	default:
		s.metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	gen := s.generation(key)
	apts, err := load(ctx)
	if err != nil {
		return nil, err
	}

	view := &model.AppointmentView{
		Role:         actor.Role,
		Appointments: s.enricher.enrich(ctx, apts),
	}
	if actor.Role == model.RoleDoctor {
		view.Patients = distinctPatients(view.Appointments)
	}

	// a placeholder name means a lookup failed; let the next read retry it
	if complete(view.Appointments) {
		s.cacheView(ctx, key, gen, view)
	}
	return view, nil
}

// cacheView stores view unless key was invalidated since gen. A write that
// lands between the check and the Set is caught by the second check.
// Generations are per process; across replicas the cache TTL bounds
// staleness.
func (s *Service) cacheView(ctx context.Context, key string, gen uint64, view *model.AppointmentView) {
	if s.generation(key) != gen {
		return
	}
	if err := s.views.Set(ctx, key, view); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("view cache write failed")
		return
	}
	if s.generation(key) != gen {
		if err := s.views.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to drop stale view")
		}
	}
}

func complete(apts []model.EnrichedAppointment) bool {
	for _, apt := range apts {
		if apt.PatientName == UnknownPatient || apt.DoctorName == UnknownDoctor {
			return false
		}
	}
	return true
}

// distinctPatients lists each patient once, ordered by name then id.
func distinctPatients(apts []model.EnrichedAppointment) []model.PatientSummary {
	seen := make(map[int64]bool)
	patients := []model.PatientSummary{}
	for _, apt := range apts {
		if seen[apt.PatientID] {
			continue
		}
		seen[apt.PatientID] = true
		patients = append(patients, model.PatientSummary{ID: apt.PatientID, Name: apt.PatientName})
	}
	sort.Slice(patients, func(i, j int) bool {
		if patients[i].Name != patients[j].Name {
			return patients[i].Name < patients[j].Name
		}
		return patients[i].ID < patients[j].ID
	})
	return patients
}
