package models

import "time"

// StatusInterval is one persisted slice of a machine's history.
// A nil EndTime marks the open interval; at most one open interval
// exists per machine at any time. History is append-only: EndTime is
// set exactly once, rows are never deleted.
type StatusInterval struct {
	ID        int64      `json:"id"`
	MachineID int64      `json:"machine_id"`
	ColorID   int64      `json:"color_id"`
	Color     string     `json:"color"`
	Hex       string     `json:"hex,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// CurrentStatus describes what a machine is doing right now.
// Since is nil for the unknown sentinel.
type CurrentStatus struct {
	Color string     `json:"color"`
	Hex   string     `json:"hex"`
	Since *time.Time `json:"since,omitempty"`
}

// ColorBucket is one per-color duration total inside a query window.
type ColorBucket struct {
	Color   string `json:"color"`
	Seconds int64  `json:"seconds"`
}

// DayBreakdown holds the buckets of a single calendar day.
type DayBreakdown struct {
	Date    string        `json:"date"`
	Buckets []ColorBucket `json:"buckets"`
}

// MachineOverview pairs a machine with its current status and today's buckets.
type MachineOverview struct {
	Machine Machine       `json:"machine"`
	Current CurrentStatus `json:"current"`
	Buckets []ColorBucket `json:"buckets"`
}

// Overview is the dashboard snapshot across the whole fleet.
type Overview struct {
	Date     string            `json:"date"`
	Overview []MachineOverview `json:"overview"`
}
