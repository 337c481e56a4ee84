// Package mode implements the safety/permission profile the conversation
// operates under: a small state machine over a fixed mode set plus the
// write-operation classifier that read-only modes rely on.
package mode

import "time"

// Mode is a named safety profile.
type Mode string

const (
	ModePlan      Mode = "plan"
	ModeNormal    Mode = "normal"
	ModeAuto      Mode = "auto"
	ModeYolo      Mode = "yolo"
	ModeArchitect Mode = "architect"
)

// Config is the static configuration of one mode.
type Config struct {
	Indicator   string
	Description string
	AutoApprove bool
	ReadOnly    bool
}

// Transition records one mode change.
type Transition struct {
	Mode Mode      `json:"mode"`
	At   time.Time `json:"at"`
}

// State is the mutable mode state. AutoApprove and ReadOnly are recomputed
// from the target mode's static config on every transition.
type State struct {
	Current     Mode
	AutoApprove bool
	ReadOnly    bool
	StartedAt   time.Time
	History     []Transition
}
