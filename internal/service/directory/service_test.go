package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Doctors().Create(ctx, &model.Doctor{
		Base: model.Base{ID: 3}, FirstName: "Gregory", LastName: "House", Email: "house@example.com",
	}))
	require.NoError(t, store.Patients().Create(ctx, &model.Patient{
		Base: model.Base{ID: 7}, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
	}))

	svc := NewService(store.Doctors(), store.Patients(), Config{
		LookupTimeout:  time.Second,
		CacheTTL:       time.Minute,
		BreakerTimeout: time.Hour,
		BreakerTrips:   3,
	}, nil)
	return svc, store
}

func TestResolveByID(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	identity, found, err := svc.ResolveByID(ctx, model.RoleDoctor, 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Gregory House", identity.DisplayName())

	identity, found, err = svc.ResolveByID(ctx, model.RolePatient, 7)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "jane@example.com", identity.Email)
}

func TestResolveByID_NotFoundIsAValue(t *testing.T) {
	svc, _ := setup(t)

	_, found, err := svc.ResolveByID(context.Background(), model.RoleDoctor, 999)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestResolveByEmail_CaseInsensitive(t *testing.T) {
	svc, _ := setup(t)

	identity, found, err := svc.ResolveByEmail(context.Background(), model.RolePatient, "  JANE@example.com ")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(7), identity.ID)
}

func TestResolve_StaffRoleHasNoProfile(t *testing.T) {
	svc, _ := setup(t)

	_, found, err := svc.ResolveByEmail(context.Background(), model.RoleReceptionist, "desk@example.com")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestResolve_StoreFailureIsUnavailable(t *testing.T) {
	svc, store := setup(t)
	store.SetFailure(errors.New("connection refused"))

	_, found, err := svc.ResolveByID(context.Background(), model.RoleDoctor, 3)
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrLookupUnavailable)
}

func TestResolve_CacheServesWhileStoreFails(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	_, found, err := svc.ResolveByID(ctx, model.RolePatient, 7)
	require.NoError(t, err)
	require.True(t, found)

	store.SetFailure(errors.New("connection refused"))

	identity, found, err := svc.ResolveByID(ctx, model.RolePatient, 7)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Jane Doe", identity.DisplayName())
}

func TestResolve_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	store.SetFailure(errors.New("connection refused"))

	for i := 0; i < 3; i++ {
		_, _, err := svc.ResolveByID(ctx, model.RoleDoctor, 3)
		require.ErrorIs(t, err, ErrLookupUnavailable)
	}

	// the store recovers but the breaker stays open until its timeout
	store.SetFailure(nil)
	_, _, err := svc.ResolveByID(ctx, model.RoleDoctor, 3)
	assert.ErrorIs(t, err, ErrLookupUnavailable)
	assert.Equal(t, "open", svc.breaker.State())
}

func TestResolve_MissingRecordsDoNotTripBreaker(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, found, err := svc.ResolveByID(ctx, model.RolePatient, 1000+int64(i))
		require.NoError(t, err)
		require.False(t, found)
	}
	assert.Equal(t, "closed", svc.breaker.State())
}

func TestGetDoctorAndPatient(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	doctor, err := svc.GetDoctor(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "House", doctor.LastName)

	_, err = svc.GetDoctor(ctx, 4)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	patient, err := svc.GetPatientByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), patient.ID)

	_, err = svc.GetPatientByEmail(ctx, "nobody@example.com")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestList_FailureIsInternal(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	doctors, err := svc.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 1)

	store.SetFailure(errors.New("down"))
	_, err = svc.ListPatients(ctx)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

// hangingDoctors blocks every Get until ctx is done.
type hangingDoctors struct {
	repository.DoctorRepository
}

func (hangingDoctors) Get(ctx context.Context, _ int64) (*model.Doctor, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolve_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	_, store := setup(t)
	svc := NewService(store.Doctors(), store.Patients(), Config{}, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		_, found, err := svc.ResolveByID(cancelled, model.RoleDoctor, 3)
		require.ErrorIs(t, err, ErrLookupUnavailable)
		require.False(t, found)
	}
	assert.Equal(t, "closed", svc.breaker.State())

	identity, found, err := svc.ResolveByID(context.Background(), model.RoleDoctor, 3)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Gregory House", identity.DisplayName())
}

func TestResolve_CallerDeadlineMidLookupDoesNotTripBreaker(t *testing.T) {
	_, store := setup(t)
	svc := NewService(hangingDoctors{store.Doctors()}, store.Patients(), Config{
		LookupTimeout: time.Minute,
	}, nil)

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, _, err := svc.ResolveByID(ctx, model.RoleDoctor, 3)
		cancel()
		require.ErrorIs(t, err, ErrLookupUnavailable)
	}
	assert.Equal(t, "closed", svc.breaker.State())
}

func TestResolve_LookupTimeoutTripsBreaker(t *testing.T) {
	_, store := setup(t)
	svc := NewService(hangingDoctors{store.Doctors()}, store.Patients(), Config{
		LookupTimeout:  5 * time.Millisecond,
		BreakerTimeout: time.Hour,
	}, nil)

	for i := 0; i < 5; i++ {
		_, _, err := svc.ResolveByID(context.Background(), model.RoleDoctor, 3)
		require.ErrorIs(t, err, ErrLookupUnavailable)
	}
	assert.Equal(t, "open", svc.breaker.State())
}
