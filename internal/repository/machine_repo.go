package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mltm/internal/models"
)

type MachineSQLite struct {
	db *sql.DB
}

func NewMachineSQLite(db *sql.DB) *MachineSQLite { return &MachineSQLite{db: db} }

var _ Machines = (*MachineSQLite)(nil)

const (
	selectMachineByCodeSQL = `SELECT id, code, name FROM machines WHERE code = ? LIMIT 1`
	selectMachinesSQL      = `SELECT id, code, name FROM machines ORDER BY id`
	selectColorByNameSQL   = `SELECT id, name, hex FROM status_colors WHERE name = ? LIMIT 1`
	selectColorsSQL        = `SELECT id, name, hex FROM status_colors ORDER BY id`
)

// GetByCode fetches a machine by its external code. Returns (nil, nil) if not found.
func (r *MachineSQLite) GetByCode(ctx context.Context, code string) (*models.Machine, error) {
	var m models.Machine
	err := r.db.QueryRowContext(ctx, selectMachineByCodeSQL, code).Scan(&m.ID, &m.Code, &m.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select machine %q: %w", code, err)
	}
	return &m, nil
}

func (r *MachineSQLite) List(ctx context.Context) ([]models.Machine, error) {
	rows, err := r.db.QueryContext(ctx, selectMachinesSQL)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	out := make([]models.Machine, 0, 16)
	for rows.Next() {
		var m models.Machine
		if err := rows.Scan(&m.ID, &m.Code, &m.Name); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ColorByName fetches a provisioned color row. Returns (nil, nil) if not found.
func (r *MachineSQLite) ColorByName(ctx context.Context, name string) (*models.StatusColor, error) {
	var c models.StatusColor
	err := r.db.QueryRowContext(ctx, selectColorByNameSQL, name).Scan(&c.ID, &c.Name, &c.Hex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select color %q: %w", name, err)
	}
	return &c, nil
}

func (r *MachineSQLite) ListColors(ctx context.Context) ([]models.StatusColor, error) {
	rows, err := r.db.QueryContext(ctx, selectColorsSQL)
	if err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	defer rows.Close()

	out := make([]models.StatusColor, 0, 8)
	for rows.Next() {
		var c models.StatusColor
		if err := rows.Scan(&c.ID, &c.Name, &c.Hex); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ping verifies the store is reachable (backs the /health/db endpoint).
func (r *MachineSQLite) Ping(ctx context.Context) error {
	var ok int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}
