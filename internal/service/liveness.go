package service

import (
	"sync"
	"time"
)

// LivenessTable tracks the last heartbeat instant per machine. It is
// process-local and rebuilt from scratch on restart: inactivity predating
// a restart is invisible until the next heartbeat boundary.
//
// Heartbeats may arrive keyed by external code before the code resolves
// to an id; those land in the by-code table and are promoted by the
// watchdog once the id is resolvable.
type LivenessTable struct {
	mu     sync.RWMutex
	byID   map[int64]time.Time
	byCode map[string]time.Time
}

func NewLivenessTable() *LivenessTable {
	return &LivenessTable{
		byID:   map[int64]time.Time{},
		byCode: map[string]time.Time{},
	}
}

// Touch records a heartbeat for a resolved machine at the current instant.
func (t *LivenessTable) Touch(machineID int64) {
	t.TouchAt(machineID, time.Now().UTC())
}

// TouchAt records a heartbeat at an explicit instant. Later instants win.
func (t *LivenessTable) TouchAt(machineID int64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.byID[machineID]; !ok || at.After(prev) {
		t.byID[machineID] = at
	}
}

// TouchCode records a heartbeat for a machine whose id is not resolved yet.
func (t *LivenessTable) TouchCode(code string) {
	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.byCode[code]; !ok || now.After(prev) {
		t.byCode[code] = now
	}
}

// LastSeen returns the recorded heartbeat instant for a machine.
func (t *LivenessTable) LastSeen(machineID int64) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.byID[machineID]
	return ts, ok
}

// Remove forgets a machine; tracking restarts on its next heartbeat.
func (t *LivenessTable) Remove(machineID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, machineID)
}

// StaleBefore snapshots machines whose last heartbeat is older than cutoff.
func (t *LivenessTable) StaleBefore(cutoff time.Time) map[int64]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[int64]time.Time, len(t.byID))
	for id, ts := range t.byID {
		if ts.Before(cutoff) {
			out[id] = ts
		}
	}
	return out
}

// PendingCodes snapshots by-code touches awaiting id resolution.
func (t *LivenessTable) PendingCodes() map[string]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]time.Time, len(t.byCode))
	for code, ts := range t.byCode {
		out[code] = ts
	}
	return out
}

// Promote moves a by-code touch into the by-id table once the code
// resolved. The touch is not lost if a newer by-id entry already exists.
func (t *LivenessTable) Promote(code string, machineID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.byCode[code]
	if !ok {
		return
	}
	delete(t.byCode, code)
	if prev, seen := t.byID[machineID]; !seen || ts.After(prev) {
		t.byID[machineID] = ts
	}
}
