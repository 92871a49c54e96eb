package appointment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/service/directory"
	"github.com/jwalitptl/hospital-api/pkg/cache"
)

var fixedNow = time.Date(2025, time.February, 1, 9, 30, 0, 0, time.UTC)

var (
	staff       = model.Actor{UserID: 1, Email: "desk@example.com", Role: model.RoleReceptionist}
	admin       = model.Actor{UserID: 2, Email: "admin@example.com", Role: model.RoleAdmin}
	janeActor   = model.Actor{UserID: 10, Email: "jane@example.com", Role: model.RolePatient}
	johnActor   = model.Actor{UserID: 11, Email: "john@example.com", Role: model.RolePatient}
	houseActor  = model.Actor{UserID: 20, Email: "house@example.com", Role: model.RoleDoctor}
	cuddyActor  = model.Actor{UserID: 21, Email: "cuddy@example.com", Role: model.RoleDoctor}
	newbieActor = model.Actor{UserID: 30, Email: "newbie@example.com", Role: model.RolePatient}
	newDocActor = model.Actor{UserID: 31, Email: "newdoc@example.com", Role: model.RoleDoctor}
)

const (
	janeID  int64 = 7
	johnID  int64 = 8
	houseID int64 = 3
	cuddyID int64 = 4
)

// flakyResolver fails lookups for the ids in fail and hangs on the ids in
// slow until the caller's context is done.
type flakyResolver struct {
	directory.Resolver
	mu   sync.Mutex
	fail map[lookupKey]bool
	slow map[lookupKey]bool
}

func (f *flakyResolver) failOn(role model.Role, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[lookupKey{role, id}] = true
}

func (f *flakyResolver) slowOn(role model.Role, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slow[lookupKey{role, id}] = true
}

func (f *flakyResolver) ResolveByID(ctx context.Context, role model.Role, id int64) (model.Identity, bool, error) {
	f.mu.Lock()
	failing := f.fail[lookupKey{role, id}]
	hanging := f.slow[lookupKey{role, id}]
	f.mu.Unlock()
	if failing {
		return model.Identity{}, false, directory.ErrLookupUnavailable
	}
	if hanging {
		<-ctx.Done()
		return model.Identity{}, false, ctx.Err()
	}
	return f.Resolver.ResolveByID(ctx, role, id)
}

// mapCache is an in-process ViewCache that records deletes.
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type fixture struct {
	mem      *memory.Store
	store    *Store
	svc      *Service
	resolver *flakyResolver
	views    *mapCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, views ViewCache) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.NewStore()

	require.NoError(t, mem.Doctors().Create(ctx, &model.Doctor{
		Base: model.Base{ID: houseID}, FirstName: "Gregory", LastName: "House",
		Specialization: "Diagnostics", Email: "house@example.com",
	}))
	require.NoError(t, mem.Doctors().Create(ctx, &model.Doctor{
		Base: model.Base{ID: cuddyID}, FirstName: "Lisa", LastName: "Cuddy",
		Specialization: "Endocrinology", Email: "cuddy@example.com",
	}))
	require.NoError(t, mem.Patients().Create(ctx, &model.Patient{
		Base: model.Base{ID: janeID}, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
	}))
	require.NoError(t, mem.Patients().Create(ctx, &model.Patient{
		Base: model.Base{ID: johnID}, FirstName: "John", LastName: "Roe", Email: "john@example.com",
	}))

	dir := directory.NewService(mem.Doctors(), mem.Patients(), directory.Config{
		LookupTimeout:  time.Second,
		CacheTTL:       time.Minute,
		BreakerTimeout: time.Hour,
	}, nil)
	resolver := &flakyResolver{
		Resolver: dir,
		fail:     make(map[lookupKey]bool),
		slow:     make(map[lookupKey]bool),
	}

	store := NewStore(mem.Appointments(), resolver)
	store.SetClock(func() time.Time { return fixedNow })

	var mc *mapCache
	if views == nil {
		mc = newMapCache()
		views = mc
	}

	svc := NewService(store, resolver, views, nil, Config{MaxConcurrency: 4, LookupTimeout: time.Second})
	return &fixture{mem: mem, store: store, svc: svc, resolver: resolver, views: mc}
}

func createReq(patientID, doctorID int64, date, reason string) model.CreateAppointmentRequest {
	return model.CreateAppointmentRequest{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: date,
		Reason:          reason,
	}
}

func (f *fixture) book(t *testing.T, patientID, doctorID int64, date string) *model.Appointment {
	t.Helper()
	apt, err := f.store.Create(context.Background(), createReq(patientID, doctorID, date, "checkup"))
	require.NoError(t, err)
	return apt
}

var _ ViewCache = cache.Nop{}
