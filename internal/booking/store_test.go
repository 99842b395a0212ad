package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour, time.Minute), mr
}

func TestPendingRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	pending := &Pending{
		State:         StateAwaitingPayment,
		AppointmentID: "appt_1",
		IntentID:      "pi_1",
		Amount:        "130.00",
		Time:          "09:00",
	}
	if err := store.SavePending(ctx, "pat_1", pending); err != nil {
		t.Fatalf("SavePending error: %v", err)
	}

	loaded, err := store.GetPending(ctx, "pat_1")
	if err != nil {
		t.Fatalf("GetPending error: %v", err)
	}
	if loaded == nil || loaded.AppointmentID != "appt_1" || loaded.State != StateAwaitingPayment {
		t.Fatalf("pending not round-tripped: %+v", loaded)
	}
}

func TestGetPendingMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	pending, err := store.GetPending(context.Background(), "pat_unknown")
	if err != nil {
		t.Fatalf("GetPending error: %v", err)
	}
	if pending != nil {
		t.Fatalf("expected nil pending, got %+v", pending)
	}
}

func TestClearPending(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SavePending(ctx, "pat_1", &Pending{AppointmentID: "appt_1"}); err != nil {
		t.Fatalf("SavePending error: %v", err)
	}
	if err := store.ClearPending(ctx, "pat_1"); err != nil {
		t.Fatalf("ClearPending error: %v", err)
	}
	if mr.Exists("booking:pending:pat_1") {
		t.Fatal("expected pending key removed")
	}
}

func TestLockGuardsDoubleSubmit(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := store.AcquireLock(ctx, "pat_1")
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed: ok=%v err=%v", ok, err)
	}
	ok, err = store.AcquireLock(ctx, "pat_1")
	if err != nil {
		t.Fatalf("second acquire error: %v", err)
	}
	if ok {
		t.Fatal("second acquire must fail while lock held")
	}

	if err := store.ReleaseLock(ctx, "pat_1"); err != nil {
		t.Fatalf("ReleaseLock error: %v", err)
	}
	ok, err = store.AcquireLock(ctx, "pat_1")
	if err != nil || !ok {
		t.Fatalf("acquire after release should succeed: ok=%v err=%v", ok, err)
	}

	// A crashed flow frees itself via the lock TTL.
	mr.FastForward(2 * time.Minute)
	if err := store.ReleaseLock(ctx, "pat_2"); err != nil {
		t.Fatalf("ReleaseLock on absent key must not fail: %v", err)
	}
}
