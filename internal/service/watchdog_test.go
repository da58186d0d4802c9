package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mltm/internal/models"
)

func newTestWatchdog(store *memIntervals, ids Identifiers, live *LivenessTable) *WatchdogService {
	led := NewLedgerService(store, ids)
	return NewWatchdogService(led, store, ids, live, testLog(), WatchdogConfig{
		Tick:             10 * time.Second,
		InactivityWindow: time.Minute,
		BootThreshold:    5 * time.Minute,
	})
}

func TestWatchdog_Tick_ClosesAtLastHeartbeatInstant(t *testing.T) {
	store := &memIntervals{}
	ids := &stubIdentifiers{colors: defaultColorIDs()}
	live := NewLivenessTable()
	w := newTestWatchdog(store, ids, live)

	start := time.Now().UTC().Add(-10 * time.Minute)
	lastSeen := start.Add(3 * time.Minute)
	led := NewLedgerService(store, ids)
	if _, err := led.Apply(context.Background(), 1, models.ColorGreen, start); err != nil {
		t.Fatalf("seed open interval: %v", err)
	}
	live.TouchAt(1, lastSeen)

	w.tickOnce(context.Background())

	// The interval must end at the last heartbeat, not at tick time.
	row := store.row(t, 1)
	if row.EndTime == nil || !row.EndTime.Equal(lastSeen) {
		t.Fatalf("expected closure at %v, got %+v", lastSeen, row)
	}
	// The entry is forgotten until the machine reports again.
	if _, ok := live.LastSeen(1); ok {
		t.Fatalf("expected liveness entry removed after closure")
	}
}

func TestWatchdog_Tick_SkipsRecentlyActiveMachines(t *testing.T) {
	store := &memIntervals{}
	ids := &stubIdentifiers{colors: defaultColorIDs()}
	live := NewLivenessTable()
	w := newTestWatchdog(store, ids, live)

	led := NewLedgerService(store, ids)
	start := time.Now().UTC().Add(-time.Hour)
	if _, err := led.Apply(context.Background(), 1, models.ColorGreen, start); err != nil {
		t.Fatalf("seed open interval: %v", err)
	}
	live.Touch(1) // fresh heartbeat, inside the window

	w.tickOnce(context.Background())

	row := store.row(t, 1)
	if row.EndTime != nil {
		t.Fatalf("active machine's interval must stay open, got %+v", row)
	}
}

func TestWatchdog_Tick_FailureKeepsEntryForRetry(t *testing.T) {
	store := &memIntervals{getOpenErr: errors.New("db locked")}
	ids := &stubIdentifiers{colors: defaultColorIDs()}
	live := NewLivenessTable()
	w := newTestWatchdog(store, ids, live)

	lastSeen := time.Now().UTC().Add(-10 * time.Minute)
	live.TouchAt(1, lastSeen)

	w.tickOnce(context.Background())

	// Entry survives so the next tick retries the closure.
	if got, ok := live.LastSeen(1); !ok || !got.Equal(lastSeen) {
		t.Fatalf("expected liveness entry kept after failed closure, got %v ok=%v", got, ok)
	}
}

func TestWatchdog_Tick_NoOpenIntervalStillClearsEntry(t *testing.T) {
	store := &memIntervals{}
	ids := &stubIdentifiers{colors: defaultColorIDs()}
	live := NewLivenessTable()
	w := newTestWatchdog(store, ids, live)

	live.TouchAt(1, time.Now().UTC().Add(-10*time.Minute))

	w.tickOnce(context.Background())

	if _, ok := live.LastSeen(1); ok {
		t.Fatalf("expected liveness entry removed even without an open interval")
	}
}

func TestWatchdog_Tick_ReconcilesPendingCodes(t *testing.T) {
	store := &memIntervals{}
	ids := &stubIdentifiers{machines: map[string]int64{"CNC1": 1}, colors: defaultColorIDs()}
	live := NewLivenessTable()
	w := newTestWatchdog(store, ids, live)

	live.TouchCode("CNC1")
	live.TouchCode("NOT-YET-PROVISIONED")

	w.tickOnce(context.Background())

	if _, ok := live.LastSeen(1); !ok {
		t.Fatalf("expected CNC1 touch promoted to by-id tracking")
	}
	pending := live.PendingCodes()
	if _, ok := pending["CNC1"]; ok {
		t.Fatalf("promoted code must leave the pending table")
	}
	if _, ok := pending["NOT-YET-PROVISIONED"]; !ok {
		t.Fatalf("unresolvable code must stay pending, got %v", pending)
	}
}

func TestWatchdog_BootSweep_ClosesLongOpenIntervals(t *testing.T) {
	store := &memIntervals{}
	ids := &stubIdentifiers{colors: defaultColorIDs()}
	w := newTestWatchdog(store, ids, NewLivenessTable())

	led := NewLedgerService(store, ids)
	stale := time.Now().UTC().Add(-time.Hour)
	fresh := time.Now().UTC().Add(-time.Minute)
	if _, err := led.Apply(context.Background(), 1, models.ColorGreen, stale); err != nil {
		t.Fatalf("seed stale interval: %v", err)
	}
	if _, err := led.Apply(context.Background(), 2, models.ColorRed, fresh); err != nil {
		t.Fatalf("seed fresh interval: %v", err)
	}

	if err := w.bootSweepOnce(context.Background()); err != nil {
		t.Fatalf("bootSweepOnce: %v", err)
	}

	staleRow := store.row(t, 1)
	if staleRow.EndTime == nil {
		t.Fatalf("stale interval must be closed by the sweep")
	}
	freshRow := store.row(t, 2)
	if freshRow.EndTime != nil {
		t.Fatalf("interval inside the boot threshold must stay open")
	}
}

func TestWatchdog_BootSweep_PropagatesStorageError(t *testing.T) {
	store := &memIntervals{
		closeOpenBeforeFn: func(cutoff, end time.Time) (int64, error) {
			return 0, errors.New("db locked")
		},
	}
	w := newTestWatchdog(store, &stubIdentifiers{colors: defaultColorIDs()}, NewLivenessTable())

	if err := w.bootSweepOnce(context.Background()); err == nil {
		t.Fatalf("expected storage error from boot sweep")
	}
}

func TestWatchdog_StartStop(t *testing.T) {
	store := &memIntervals{}
	w := newTestWatchdog(store, &stubIdentifiers{colors: defaultColorIDs()}, NewLivenessTable())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestWatchdog_StopWithoutStart(t *testing.T) {
	w := newTestWatchdog(&memIntervals{}, &stubIdentifiers{}, NewLivenessTable())
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop before Start must be a no-op, got %v", err)
	}
}
