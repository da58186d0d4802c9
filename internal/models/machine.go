package models

// Machine is a tracked device. Rows are created by external
// provisioning and are immutable afterwards.
type Machine struct {
	ID   int64  `json:"id"`
	Code string `json:"code"` // external human-readable key, unique
	Name string `json:"name"`
}
