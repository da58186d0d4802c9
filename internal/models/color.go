package models

import "strings"

// ColorState is the normalized operating state reported by a machine.
type ColorState string

const (
	ColorGreen  ColorState = "green"
	ColorYellow ColorState = "yellow"
	ColorRed    ColorState = "red"

	// ColorUnknown is a sentinel, never stored as an interval: it means
	// "no active state" (device unreachable or signal unrecognized).
	ColorUnknown ColorState = "unknown"
)

// UnknownHex is reported when a machine has no open interval.
const UnknownHex = "#9E9E9E"

// TrackedColors are the states that may be persisted as intervals.
var TrackedColors = []ColorState{ColorGreen, ColorYellow, ColorRed}

// LegacyColors are always-zero breakdown buckets kept for older callers.
var LegacyColors = []string{"blue", "off"}

// NormalizeColor maps a raw device signal to a ColorState.
// Case-insensitive; "amber" and the single letters g/y/r alias to full
// names; anything else degrades to ColorUnknown, which closes the open
// interval rather than erroring (gaps must stay visible on dashboards).
func NormalizeColor(raw string) ColorState {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "g":
		return ColorGreen
	case "amber", "y":
		return ColorYellow
	case "r":
		return ColorRed
	case string(ColorGreen), string(ColorYellow), string(ColorRed):
		return ColorState(s)
	default:
		return ColorUnknown
	}
}

// StatusColor is a provisioned color row (name plus dashboard hex).
type StatusColor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}
