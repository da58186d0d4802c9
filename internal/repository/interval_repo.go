package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mltm/internal/models"
)

type IntervalSQLite struct {
	db *sql.DB
}

func NewIntervalSQLite(db *sql.DB) *IntervalSQLite { return &IntervalSQLite{db: db} }

var _ Intervals = (*IntervalSQLite)(nil)

const (
	selectOpenIntervalSQL = `
		SELECT ms.id, ms.machine_id, ms.color_id, sc.name, sc.hex, ms.start_time
		FROM machine_status ms
		JOIN status_colors sc ON sc.id = ms.color_id
		WHERE ms.machine_id = ? AND ms.end_time IS NULL
		ORDER BY ms.start_time DESC LIMIT 1`

	insertIntervalSQL = `
		INSERT INTO machine_status (machine_id, color_id, start_time, end_time)
		VALUES (?, ?, ?, NULL)`

	closeIntervalSQL = `
		UPDATE machine_status SET end_time = ? WHERE id = ? AND end_time IS NULL`

	closeOpenBeforeSQL = `
		UPDATE machine_status SET end_time = ? WHERE end_time IS NULL AND start_time < ?`

	selectOverlappingSQL = `
		SELECT ms.id, ms.machine_id, ms.color_id, sc.name, sc.hex, ms.start_time, ms.end_time
		FROM machine_status ms
		JOIN status_colors sc ON sc.id = ms.color_id
		WHERE ms.machine_id = ? AND ms.start_time < ? AND COALESCE(ms.end_time, ?) > ?
		ORDER BY ms.start_time ASC`
)

// GetOpen returns the machine's open interval, or (nil, nil) if none exists.
func (r *IntervalSQLite) GetOpen(ctx context.Context, machineID int64) (*models.StatusInterval, error) {
	var iv models.StatusInterval
	err := r.db.QueryRowContext(ctx, selectOpenIntervalSQL, machineID).
		Scan(&iv.ID, &iv.MachineID, &iv.ColorID, &iv.Color, &iv.Hex, &iv.StartTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select open interval for machine %d: %w", machineID, err)
	}
	iv.StartTime = iv.StartTime.UTC()
	return &iv, nil
}

func (r *IntervalSQLite) Open(ctx context.Context, machineID, colorID int64, start time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertIntervalSQL, machineID, colorID, start.UTC())
	if err != nil {
		return 0, fmt.Errorf("open interval for machine %d: %w", machineID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("interval insert id for machine %d: %w", machineID, err)
	}
	return id, nil
}

func (r *IntervalSQLite) Close(ctx context.Context, id int64, end time.Time) error {
	if _, err := r.db.ExecContext(ctx, closeIntervalSQL, end.UTC(), id); err != nil {
		return fmt.Errorf("close interval %d: %w", id, err)
	}
	return nil
}

func (r *IntervalSQLite) CloseOpenBefore(ctx context.Context, cutoff, end time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, closeOpenBeforeSQL, end.UTC(), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("close stale open intervals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale close rows affected: %w", err)
	}
	return n, nil
}

func (r *IntervalSQLite) ListOverlapping(ctx context.Context, machineID int64, from, to, now time.Time) ([]models.StatusInterval, error) {
	rows, err := r.db.QueryContext(ctx, selectOverlappingSQL,
		machineID, to.UTC(), now.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("list intervals for machine %d: %w", machineID, err)
	}
	defer rows.Close()

	out := make([]models.StatusInterval, 0, 32)
	for rows.Next() {
		var (
			iv  models.StatusInterval
			end sql.NullTime
		)
		if err := rows.Scan(&iv.ID, &iv.MachineID, &iv.ColorID, &iv.Color, &iv.Hex, &iv.StartTime, &end); err != nil {
			return nil, err
		}
		iv.StartTime = iv.StartTime.UTC()
		if end.Valid {
			t := end.Time.UTC()
			iv.EndTime = &t
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}
