package service

import (
	"context"
	"time"

	"mltm/internal/logger"
	"mltm/internal/models"
	"mltm/internal/repository"
)

// Ledger is the interval state machine. Apply decides, for one heartbeat
// signal, whether to open, close, switch or no-op the machine's open
// interval. All mutations for a given machine are serialized internally.
type Ledger interface {
	Apply(ctx context.Context, machineID int64, color models.ColorState, at time.Time) (Action, error)
}

// Identifiers resolves external machine/color codes to stable row ids,
// memoizing successes for the process lifetime.
type Identifiers interface {
	ResolveMachine(ctx context.Context, code string) (int64, error)
	ResolveColor(ctx context.Context, name string) (int64, error)
}

// Ingest accepts heartbeat signals, either synchronously (Process) or
// through the fast-ack FIFO queue (Enqueue + the single drain loop in Run).
type Ingest interface {
	Process(ctx context.Context, p IngestParams) (Action, error)
	Enqueue(p IngestParams) (string, error)
	Run(ctx context.Context)
	Depth() int
}

// Reporting answers read-only queries derived from the interval history.
type Reporting interface {
	CurrentStatus(ctx context.Context, code string) (models.CurrentStatus, error)
	DayBreakdown(ctx context.Context, code string, day time.Time) ([]models.ColorBucket, error)
	WeekBreakdown(ctx context.Context, code string, weekStart time.Time) ([]models.DayBreakdown, error)
	Timeline(ctx context.Context, code string, day time.Time) ([]models.StatusInterval, error)
	OverviewToday(ctx context.Context) (models.Overview, error)
}

// Directory exposes fleet metadata and storage health.
type Directory interface {
	Machines(ctx context.Context) ([]models.Machine, error)
	Colors(ctx context.Context) ([]models.StatusColor, error)
	Ping(ctx context.Context) error
}

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int64, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int64, error)
}

// Options carries the tunables read from config in main.
type Options struct {
	WatchdogTick     time.Duration // inactivity check period
	InactivityWindow time.Duration // max heartbeat gap before auto-close
	BootThreshold    time.Duration // open-interval age closed by the boot sweep
	QueueMaxPending  int           // 0 = unbounded
	SigningKey       string
	TokenTTL         time.Duration
}

const (
	defaultWatchdogTick     = 10 * time.Second
	defaultInactivityWindow = time.Minute
	defaultBootThreshold    = 5 * time.Minute
	defaultTokenTTL         = time.Hour
)

func (o Options) withDefaults() Options {
	if o.WatchdogTick <= 0 {
		o.WatchdogTick = defaultWatchdogTick
	}
	if o.InactivityWindow <= 0 {
		o.InactivityWindow = defaultInactivityWindow
	}
	if o.BootThreshold <= 0 {
		o.BootThreshold = defaultBootThreshold
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = defaultTokenTTL
	}
	return o
}

// Service aggregates all sub-services behind one wiring point.
type Service struct {
	Ledger
	Identifiers
	Ingest
	Reporting
	Directory
	Authorization

	Liveness *LivenessTable
	Watchdog *WatchdogService
}

// NewService wires the repository layer into concrete services.
// The liveness table and identifier cache are constructed here and
// passed by reference to everything that needs them; nothing is ambient.
func NewService(repos *repository.Repository, log *logger.Logger, opts Options) *Service {
	opts = opts.withDefaults()

	liveness := NewLivenessTable()
	ids := NewIdentifierCache(repos.Machines)
	ledger := NewLedgerService(repos.Intervals, ids)

	return &Service{
		Ledger:        ledger,
		Identifiers:   ids,
		Ingest:        NewIngestService(ids, ledger, liveness, log, opts.QueueMaxPending),
		Reporting:     NewReportingService(repos.Machines, repos.Intervals, ids),
		Directory:     NewDirectoryService(repos.Machines),
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL),
		Liveness:      liveness,
		Watchdog: NewWatchdogService(ledger, repos.Intervals, ids, liveness, log, WatchdogConfig{
			Tick:             opts.WatchdogTick,
			InactivityWindow: opts.InactivityWindow,
			BootThreshold:    opts.BootThreshold,
		}),
	}
}
