package appointment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

func TestStore_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, model.CreateAppointmentRequest{
		PatientID:       janeID,
		DoctorID:        houseID,
		AppointmentDate: "2025-03-01",
		Reason:          "checkup",
		Status:          model.AppointmentStatusScheduled,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.AppointmentStatusScheduled, created.Status)

	rescheduled, err := f.store.Reschedule(ctx, created.ID, model.RescheduleAppointmentRequest{
		AppointmentDate: "2025-03-05",
		Reason:          "follow-up",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, rescheduled.Status)
	assert.Equal(t, "follow-up", rescheduled.Reason)
	assert.Equal(t, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), rescheduled.AppointmentDate)

	cancelled, err := f.store.Cancel(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	again, err := f.store.Cancel(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, again.Status)

	_, err = f.store.Reschedule(ctx, created.ID, model.RescheduleAppointmentRequest{
		AppointmentDate: "2025-03-09",
		Reason:          "again",
	}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	stored, err := f.store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "follow-up", stored.Reason)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
}

func TestStore_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.CreateAppointmentRequest
		code apperrors.ErrorCode
	}{
		{"missing patient", createReq(0, houseID, "2025-03-01", "checkup"), apperrors.ErrValidation},
		{"missing doctor", createReq(janeID, 0, "2025-03-01", "checkup"), apperrors.ErrValidation},
		{"unparseable date", createReq(janeID, houseID, "next tuesday", "checkup"), apperrors.ErrValidation},
		{"empty date", createReq(janeID, houseID, "", "checkup"), apperrors.ErrValidation},
		{"past date", createReq(janeID, houseID, "2025-01-31", "checkup"), apperrors.ErrValidation},
		{"earlier today", createReq(janeID, houseID, "2025-02-01T09:00", "checkup"), apperrors.ErrValidation},
		{"blank reason", createReq(janeID, houseID, "2025-03-01", "   "), apperrors.ErrValidation},
		{"long reason", createReq(janeID, houseID, "2025-03-01", strings.Repeat("x", MaxReasonLength+1)), apperrors.ErrValidation},
		{"unknown patient", createReq(99, houseID, "2025-03-01", "checkup"), apperrors.ErrReference},
		{"unknown doctor", createReq(janeID, 99, "2025-03-01", "checkup"), apperrors.ErrReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.store.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))

			all, err := f.store.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestStore_CreateRejectsNonScheduledStatus(t *testing.T) {
	f := newFixture(t)
	req := createReq(janeID, houseID, "2025-03-01", "checkup")
	req.Status = model.AppointmentStatusCompleted

	_, err := f.store.Create(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestStore_CreateAcceptsTodayAndCurrentMinute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	apt, err := f.store.Create(ctx, createReq(janeID, houseID, "2025-02-01", "walk-in"))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)

	apt, err = f.store.Create(ctx, createReq(janeID, houseID, "2025-02-01T09:30", "walk-in"))
	require.NoError(t, err)
	assert.Equal(t, fixedNow, apt.AppointmentDate)

	_, err = f.store.Create(ctx, createReq(janeID, houseID, "2025-02-01T10:15:00Z", "walk-in"))
	require.NoError(t, err)
}

func TestStore_CreateTrimsReason(t *testing.T) {
	f := newFixture(t)

	apt, err := f.store.Create(context.Background(), createReq(janeID, houseID, "2025-03-01", "  checkup \n"))
	require.NoError(t, err)
	assert.Equal(t, "checkup", apt.Reason)
}

func TestStore_CreateWithDirectoryDown(t *testing.T) {
	f := newFixture(t)
	f.resolver.failOn(model.RoleDoctor, houseID)

	_, err := f.store.Create(context.Background(), createReq(janeID, houseID, "2025-03-01", "checkup"))
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

func TestStore_RescheduleOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := model.RescheduleAppointmentRequest{AppointmentDate: "bad", Reason: "x"}

	// an unknown id wins over invalid input
	_, err := f.store.Reschedule(ctx, 12345, bad, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.store.Reschedule(ctx, 12345, model.RescheduleAppointmentRequest{AppointmentDate: "2025-03-01", Reason: "x"}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// a scheduled row judges the input
	apt := f.book(t, janeID, houseID, "2025-03-01")
	_, err = f.store.Reschedule(ctx, apt.ID, bad, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	stored, err := f.store.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, "checkup", stored.Reason)
}

func TestStore_RescheduleTerminalWinsOverInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cancelled := f.book(t, janeID, houseID, "2025-03-01")
	_, err := f.store.Cancel(ctx, cancelled.ID, nil)
	require.NoError(t, err)

	completed := f.book(t, johnID, cuddyID, "2025-03-02")
	_, err = f.store.Complete(ctx, completed.ID, nil)
	require.NoError(t, err)

	inputs := map[string]model.RescheduleAppointmentRequest{
		"past date":    {AppointmentDate: "2024-01-01", Reason: "x"},
		"bad date":     {AppointmentDate: "next tuesday", Reason: "x"},
		"blank date":   {AppointmentDate: " ", Reason: "x"},
		"blank reason": {AppointmentDate: "2025-03-05", Reason: "   "},
	}
	for name, req := range inputs {
		for _, id := range []int64{cancelled.ID, completed.ID} {
			_, err := f.store.Reschedule(ctx, id, req, nil)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState), "%s on %d: %v", name, id, err)
		}
	}
}

func TestStore_CancelUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Cancel(context.Background(), 12345, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_Complete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, janeID, houseID, "2025-03-01")

	done, err := f.store.Complete(ctx, apt.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, done.Status)

	done, err = f.store.Complete(ctx, apt.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, done.Status)

	_, err = f.store.Cancel(ctx, apt.ID, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	_, err = f.store.Reschedule(ctx, apt.ID, model.RescheduleAppointmentRequest{AppointmentDate: "2025-03-02", Reason: "x"}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	other := f.book(t, janeID, houseID, "2025-03-02")
	_, err = f.store.Cancel(ctx, other.ID, nil)
	require.NoError(t, err)
	_, err = f.store.Complete(ctx, other.ID, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestStore_Remove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, janeID, houseID, "2025-03-01")

	removed, err := f.store.Remove(ctx, apt.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, removed.Status)

	_, err = f.store.Get(ctx, apt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	completed := f.book(t, janeID, houseID, "2025-03-02")
	_, err = f.store.Complete(ctx, completed.ID, nil)
	require.NoError(t, err)
	_, err = f.store.Remove(ctx, completed.ID, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	_, err = f.store.Get(ctx, completed.ID)
	assert.NoError(t, err)
}

func TestStore_CheckRunsBeforeTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, janeID, houseID, "2025-03-01")

	deny := func(*model.Appointment) error { return apperrors.Forbidden("no") }
	_, err := f.store.Cancel(ctx, apt.ID, deny)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	stored, err := f.store.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, stored.Status)
}

func TestStore_ListsAreOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.book(t, janeID, houseID, "2025-04-01")
	early := f.book(t, janeID, cuddyID, "2025-03-01")
	mid := f.book(t, johnID, houseID, "2025-03-15")

	all, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{early.ID, mid.ID, late.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	byPatient, err := f.store.ListByPatient(ctx, janeID)
	require.NoError(t, err)
	require.Len(t, byPatient, 2)
	assert.Equal(t, early.ID, byPatient[0].ID)

	byDoctor, err := f.store.ListByDoctor(ctx, houseID)
	require.NoError(t, err)
	require.Len(t, byDoctor, 2)
	assert.Equal(t, mid.ID, byDoctor[0].ID)
	assert.Equal(t, late.ID, byDoctor[1].ID)
}

func TestStore_ConcurrentReschedulesStayConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, janeID, houseID, "2025-03-01")

	var wg sync.WaitGroup
	for day := 1; day <= 28; day++ {
		day := day
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.store.Reschedule(ctx, apt.ID, model.RescheduleAppointmentRequest{
				AppointmentDate: fmt.Sprintf("2025-05-%02d", day),
				Reason:          fmt.Sprintf("visit %02d", day),
			}, nil)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			got, err := f.store.Get(ctx, apt.ID)
			if !assert.NoError(t, err) {
				return
			}
			if got.Reason == "checkup" {
				return
			}
			assert.Equal(t, fmt.Sprintf("visit %02d", got.AppointmentDate.Day()), got.Reason)
		}()
	}
	wg.Wait()

	final, err := f.store.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("visit %02d", final.AppointmentDate.Day()), final.Reason)
}
