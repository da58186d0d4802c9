package repository

import (
	"context"
	"database/sql"
	"time"

	"mltm/internal/models"
)

// Machines exposes machine and color metadata lookups.
// Lookups return (nil, nil) when the row does not exist.
type Machines interface {
	GetByCode(ctx context.Context, code string) (*models.Machine, error)
	List(ctx context.Context) ([]models.Machine, error)
	ColorByName(ctx context.Context, name string) (*models.StatusColor, error)
	ListColors(ctx context.Context) ([]models.StatusColor, error)
	Ping(ctx context.Context) error
}

// Intervals owns all reads and writes of status interval rows.
type Intervals interface {
	// GetOpen returns the machine's open interval, or (nil, nil) if none.
	GetOpen(ctx context.Context, machineID int64) (*models.StatusInterval, error)
	// Open inserts a new open interval and returns its row id.
	Open(ctx context.Context, machineID, colorID int64, start time.Time) (int64, error)
	// Close sets end_time on a still-open interval.
	Close(ctx context.Context, id int64, end time.Time) error
	// CloseOpenBefore closes every open interval started before cutoff,
	// returning the number of rows affected. Used by the boot sweep.
	CloseOpenBefore(ctx context.Context, cutoff, end time.Time) (int64, error)
	// ListOverlapping returns the machine's intervals that intersect
	// [from, to), ordered by start_time. Open intervals are treated as
	// running until now.
	ListOverlapping(ctx context.Context, machineID int64, from, to, now time.Time) ([]models.StatusInterval, error)
}

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int64, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type Repository struct {
	Machines  Machines
	Intervals Intervals
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Machines:  NewMachineSQLite(db),
		Intervals: NewIntervalSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
