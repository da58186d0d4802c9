package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"mltm/internal/metrics"
	"mltm/internal/models"
	"mltm/internal/repository"
)

// Action is the ledger's verdict for one applied signal.
type Action string

const (
	ActionOpened            Action = "opened"
	ActionSwitched          Action = "switched_color"
	ActionNoopSameColor     Action = "noop_same_color"
	ActionClosedOnUnknown   Action = "closed_on_unknown"
	ActionNoopAlreadyClosed Action = "noop_already_closed"
)

// ErrInvalidTimeRange rejects an attempt to close an interval before it
// started. Nothing is written when this is returned.
var ErrInvalidTimeRange = errors.New("invalid time range: close before open")

// LedgerService turns heartbeat signals into a gap-free interval history.
// It guarantees at most one open interval per machine by serializing all
// mutations for a machine behind a per-machine lock.
type LedgerService struct {
	intervals repository.Intervals
	ids       Identifiers

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewLedgerService(intervals repository.Intervals, ids Identifiers) *LedgerService {
	return &LedgerService{
		intervals: intervals,
		ids:       ids,
		locks:     map[int64]*sync.Mutex{},
	}
}

var _ Ledger = (*LedgerService)(nil)

// lockFor returns the machine's mutex, creating it on first use.
// Locks are never evicted; the fleet is small and bounded.
func (s *LedgerService) lockFor(machineID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[machineID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[machineID] = l
	}
	return l
}

// Apply runs the interval transition for one signal at the given instant.
//
// Unknown closes the open interval (or no-ops if none). A recognized color
// no-ops while the same color is already open, otherwise closes the open
// interval and opens a new one at the same instant, so every instant
// belongs to at most one interval.
func (s *LedgerService) Apply(ctx context.Context, machineID int64, color models.ColorState, at time.Time) (Action, error) {
	l := s.lockFor(machineID)
	l.Lock()
	defer l.Unlock()

	at = at.UTC()

	open, err := s.intervals.GetOpen(ctx, machineID)
	if err != nil {
		return "", err
	}

	if color == models.ColorUnknown {
		if open == nil {
			return s.done(ActionNoopAlreadyClosed), nil
		}
		if at.Before(open.StartTime) {
			return "", ErrInvalidTimeRange
		}
		if err := s.intervals.Close(ctx, open.ID, at); err != nil {
			return "", err
		}
		return s.done(ActionClosedOnUnknown), nil
	}

	colorID, err := s.ids.ResolveColor(ctx, string(color))
	if err != nil {
		return "", err
	}

	// Idempotent heartbeats: a device reporting the same color every
	// second must not multiply rows.
	if open != nil && open.ColorID == colorID {
		return s.done(ActionNoopSameColor), nil
	}

	if open != nil {
		if at.Before(open.StartTime) {
			return "", ErrInvalidTimeRange
		}
		if err := s.intervals.Close(ctx, open.ID, at); err != nil {
			return "", err
		}
		if _, err := s.intervals.Open(ctx, machineID, colorID, at); err != nil {
			return "", err
		}
		return s.done(ActionSwitched), nil
	}

	if _, err := s.intervals.Open(ctx, machineID, colorID, at); err != nil {
		return "", err
	}
	return s.done(ActionOpened), nil
}

func (s *LedgerService) done(a Action) Action {
	metrics.HeartbeatsTotal.WithLabelValues(string(a)).Inc()
	return a
}
