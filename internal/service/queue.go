package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"mltm/internal/logger"
	"mltm/internal/metrics"
	"mltm/internal/models"
)

// IngestParams is one heartbeat as received from a device.
type IngestParams struct {
	MachineCode string
	Color       string     // raw signal, normalized before the ledger
	At          *time.Time // nil = receipt time
}

// IngestJob is a pending queue entry.
type IngestJob struct {
	ID         string
	Params     IngestParams
	EnqueuedAt time.Time
}

// ErrQueueOverloaded is returned when the bounded queue is full; the
// producer should retry later.
var ErrQueueOverloaded = errors.New("ingest queue overloaded")

// IngestService accepts heartbeats. The fast path (Enqueue) records
// liveness and acknowledges immediately; a single drain goroutine applies
// the mutations in strict submission order, so producers never touch
// ledger state directly.
type IngestService struct {
	ids      Identifiers
	ledger   Ledger
	liveness *LivenessTable
	log      *logger.Logger

	maxPending int // 0 = unbounded

	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []IngestJob
	closed bool
}

func NewIngestService(ids Identifiers, ledger Ledger, liveness *LivenessTable, log *logger.Logger, maxPending int) *IngestService {
	s := &IngestService{
		ids:        ids,
		ledger:     ledger,
		liveness:   liveness,
		log:        log,
		maxPending: maxPending,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

var _ Ingest = (*IngestService)(nil)

// Process applies a heartbeat synchronously: resolve the machine, record
// liveness, normalize the color, run the ledger transition.
func (s *IngestService) Process(ctx context.Context, p IngestParams) (Action, error) {
	machineID, err := s.ids.ResolveMachine(ctx, p.MachineCode)
	if err != nil {
		return "", err
	}
	s.liveness.Touch(machineID)

	at := time.Now().UTC()
	if p.At != nil {
		at = p.At.UTC()
	}
	return s.ledger.Apply(ctx, machineID, models.NormalizeColor(p.Color), at)
}

// Enqueue records liveness immediately and queues the job for the drain
// loop. It never blocks; a full bounded queue rejects with
// ErrQueueOverloaded.
func (s *IngestService) Enqueue(p IngestParams) (string, error) {
	// The device is alive regardless of whether its id resolves yet.
	s.liveness.TouchCode(p.MachineCode)

	job := IngestJob{
		ID:         uuid.NewString(),
		Params:     p,
		EnqueuedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxPending > 0 && len(s.jobs) >= s.maxPending {
		metrics.IngestDroppedTotal.WithLabelValues("overloaded").Inc()
		return "", ErrQueueOverloaded
	}
	s.jobs = append(s.jobs, job)
	metrics.IngestQueueDepth.Set(float64(len(s.jobs)))
	s.cond.Signal()
	return job.ID, nil
}

// Depth reports the number of pending jobs.
func (s *IngestService) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Run is the single consumer. Jobs are processed one at a time in
// submission order; per-job failures are logged and never abort the loop.
func (s *IngestService) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cond.Broadcast()
	}()

	for {
		s.mu.Lock()
		for len(s.jobs) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			dropped := len(s.jobs)
			s.jobs = nil
			metrics.IngestQueueDepth.Set(0)
			s.mu.Unlock()
			if dropped > 0 {
				s.log.Warnw("ingest queue stopped with pending jobs", "dropped", dropped)
			}
			return
		}
		job := s.jobs[0]
		s.jobs = s.jobs[1:]
		metrics.IngestQueueDepth.Set(float64(len(s.jobs)))
		s.mu.Unlock()

		s.drainOne(ctx, job)
	}
}

// drainOne applies a queued heartbeat with at-most-once semantics: a
// failed mutation is dropped, not retried, and self-heals on the next
// heartbeat or watchdog tick.
func (s *IngestService) drainOne(ctx context.Context, job IngestJob) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	action, err := s.Process(opCtx, job.Params)
	switch {
	case errors.Is(err, ErrMachineNotFound):
		// Provisioning race; not worth surfacing to the device.
		metrics.IngestDroppedTotal.WithLabelValues("unknown_machine").Inc()
		s.log.Debugw("dropped heartbeat for unknown machine",
			"job_id", job.ID, "machine_code", job.Params.MachineCode)
	case err != nil:
		metrics.IngestDroppedTotal.WithLabelValues("storage").Inc()
		s.log.Errorw("heartbeat apply failed",
			"job_id", job.ID, "machine_code", job.Params.MachineCode, "err", err)
	default:
		s.log.Debugw("heartbeat applied",
			"job_id", job.ID, "machine_code", job.Params.MachineCode, "action", action)
	}
}
