package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/directory"
)

const (
	UnknownPatient = "Unknown Patient"
	UnknownDoctor  = "Unknown Doctor"
)

// enricher attaches display names to appointments. Each distinct id is
// looked up once; lookups run concurrently up to limit.
type enricher struct {
	directory directory.Resolver
	limit     int
	timeout   time.Duration
}

type lookupKey struct {
	role model.Role
	id   int64
}

func (e *enricher) enrich(ctx context.Context, apts []*model.Appointment) []model.EnrichedAppointment {
	keys := make(map[lookupKey]struct{})
	for _, apt := range apts {
		keys[lookupKey{model.RolePatient, apt.PatientID}] = struct{}{}
		keys[lookupKey{model.RoleDoctor, apt.DoctorID}] = struct{}{}
	}

	var (
		mu    sync.Mutex
		names = make(map[lookupKey]string, len(keys))
		g     errgroup.Group
	)
	g.SetLimit(e.limit)

	for key := range keys {
		key := key
		g.Go(func() error {
			name, ok := e.lookup(ctx, key)
			if ok {
				mu.Lock()
				names[key] = name
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.EnrichedAppointment, 0, len(apts))
	for _, apt := range apts {
		enriched := model.EnrichedAppointment{
			Appointment: *apt,
			PatientName: UnknownPatient,
			DoctorName:  UnknownDoctor,
		}
		if name, ok := names[lookupKey{model.RolePatient, apt.PatientID}]; ok {
			enriched.PatientName = name
		}
		if name, ok := names[lookupKey{model.RoleDoctor, apt.DoctorID}]; ok {
			enriched.DoctorName = name
		}
		out = append(out, enriched)
	}
	return out
}

func (e *enricher) one(ctx context.Context, apt *model.Appointment) model.EnrichedAppointment {
	return e.enrich(ctx, []*model.Appointment{apt})[0]
}

// lookup never fails: a missing, unavailable or slow record yields ok=false.
func (e *enricher) lookup(ctx context.Context, key lookupKey) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	identity, found, err := e.directory.ResolveByID(ctx, key.role, key.id)
	if err != nil {
		log.Debug().Err(err).Str("role", string(key.role)).Int64("id", key.id).Msg("enrichment lookup failed")
		return "", false
	}
	if !found {
		return "", false
	}
	return identity.DisplayName(), true
}
