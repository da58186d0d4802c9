package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"mltm/internal/logger"
	"mltm/internal/metrics"
	"mltm/internal/models"
	"mltm/internal/repository"
)

// WatchdogConfig carries the watchdog's timing knobs.
type WatchdogConfig struct {
	Tick             time.Duration
	InactivityWindow time.Duration
	BootThreshold    time.Duration
}

const (
	bootRetryInitial = 2 * time.Second
	bootRetryMax     = time.Minute
	opTimeout        = 5 * time.Second
)

// WatchdogService closes intervals for machines that stopped reporting.
// Two duties: a one-shot boot sweep that recovers intervals left open by a
// previous crash, and a periodic inactivity tick that closes an idle
// machine's interval at its last heartbeat instant.
type WatchdogService struct {
	ledger    Ledger
	intervals repository.Intervals
	ids       Identifiers
	liveness  *LivenessTable
	log       *logger.Logger
	cfg       WatchdogConfig

	sched gocron.Scheduler
}

func NewWatchdogService(ledger Ledger, intervals repository.Intervals, ids Identifiers, liveness *LivenessTable, log *logger.Logger, cfg WatchdogConfig) *WatchdogService {
	return &WatchdogService{
		ledger:    ledger,
		intervals: intervals,
		ids:       ids,
		liveness:  liveness,
		log:       log,
		cfg:       cfg,
	}
}

// Start runs the boot sweep and schedules the inactivity tick. The first
// sweep attempt happens inline so it normally precedes the first tick; on
// storage failure it keeps retrying in the background with backoff.
func (w *WatchdogService) Start(ctx context.Context) error {
	if err := w.bootSweepOnce(ctx); err != nil {
		w.log.Warnw("boot sweep failed, retrying in background", "err", err)
		go w.retryBootSweep(ctx)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create watchdog scheduler: %w", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(w.cfg.Tick),
		gocron.NewTask(w.tickOnce, ctx),
		gocron.WithName("liveness-watchdog"),
	); err != nil {
		return fmt.Errorf("schedule watchdog tick: %w", err)
	}
	w.sched = sched
	sched.Start()
	return nil
}

// Stop shuts the tick scheduler down.
func (w *WatchdogService) Stop() error {
	if w.sched == nil {
		return nil
	}
	return w.sched.Shutdown()
}

// bootSweepOnce closes, at NOW, every interval left open longer than the
// boot threshold. Recovers from a crash that left intervals open forever.
func (w *WatchdogService) bootSweepOnce(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	n, err := w.intervals.CloseOpenBefore(opCtx, now.Add(-w.cfg.BootThreshold), now)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Infow("boot sweep closed stale intervals", "count", n)
	}
	return nil
}

func (w *WatchdogService) retryBootSweep(ctx context.Context) {
	delay := bootRetryInitial
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := w.bootSweepOnce(ctx); err == nil {
			return
		} else {
			w.log.Warnw("boot sweep retry failed", "err", err, "next_in", delay)
		}
		if delay *= 2; delay > bootRetryMax {
			delay = bootRetryMax
		}
	}
}

// tickOnce reconciles pending by-code touches, then closes intervals for
// machines silent past the inactivity window. Each machine is one
// independent unit of work: a failing machine never stalls the rest.
func (w *WatchdogService) tickOnce(ctx context.Context) {
	w.reconcilePending(ctx)

	cutoff := time.Now().UTC().Add(-w.cfg.InactivityWindow)
	for machineID, lastSeen := range w.liveness.StaleBefore(cutoff) {
		w.closeInactive(ctx, machineID, lastSeen)
	}
}

// closeInactive ends the machine's open interval at the last heartbeat
// instant, not at tick time: a reporting gap must not be attributed to
// the color that was active before the gap.
func (w *WatchdogService) closeInactive(ctx context.Context, machineID int64, lastSeen time.Time) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	action, err := w.ledger.Apply(opCtx, machineID, models.ColorUnknown, lastSeen)
	if err != nil {
		// Keep the liveness entry; the next tick retries the closure.
		w.log.Errorw("watchdog closure failed", "machine_id", machineID, "err", err)
		return
	}
	if action == ActionClosedOnUnknown {
		metrics.WatchdogClosuresTotal.Inc()
		w.log.Infow("closed interval for inactive machine",
			"machine_id", machineID, "last_seen", lastSeen)
	}
	w.liveness.Remove(machineID)
}

// reconcilePending promotes by-code liveness touches into the by-id table
// once their code resolves. Unresolvable codes are left pending rather
// than dropped; provisioning may still be in flight.
func (w *WatchdogService) reconcilePending(ctx context.Context) {
	for code := range w.liveness.PendingCodes() {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		id, err := w.ids.ResolveMachine(opCtx, code)
		cancel()
		if err != nil {
			if !errors.Is(err, ErrMachineNotFound) {
				w.log.Warnw("liveness reconcile lookup failed", "code", code, "err", err)
			}
			continue
		}
		w.liveness.Promote(code, id)
	}
}
