package models

import (
	"time"

	"github.com/google/uuid"
)

// Component identifies one of the privacy subsystems that contribute to the
// overall score.
type Component string

const (
	ComponentVPN      Component = "VPN"
	ComponentLocation Component = "LOCATION"
	ComponentNetwork  Component = "NETWORK"
	ComponentCaller   Component = "CALLER"
)

// Components returns the defined components in canonical order. Every
// ScoreRecord carries a sub-score for exactly these components, whether or
// not the matching provider was reachable when the record was produced.
func Components() []Component {
	return []Component{ComponentVPN, ComponentLocation, ComponentNetwork, ComponentCaller}
}

// SubScore is a single component's contribution to an aggregated record.
//
// The library does NOT make binary "protected" or "exposed" decisions.
// Each component reports a 0-100 rating plus a human-readable reason, and
// the integrating application decides what to surface to the user.
type SubScore struct {
	// Component names the subsystem this rating belongs to.
	Component Component `json:"component"`

	// Value is the component rating, always within [0, 100].
	// 100 means the subsystem offers full protection, 0 means none.
	Value int `json:"value"`

	// Reason explains how the value was derived, e.g. "kill switch disabled"
	// or "blocked 3 of 4 threats". Empty when there is nothing to say.
	Reason string `json:"reason,omitempty"`
}

// ScoreRecord is one aggregated privacy assessment. Records are immutable
// once produced and are kept in append-only history, newest last.
type ScoreRecord struct {
	// ID uniquely identifies the record across restarts and exports.
	ID uuid.UUID `json:"id"`

	// Timestamp is the moment the record was produced, UTC. Within one
	// history the timestamps are strictly increasing.
	Timestamp time.Time `json:"timestamp"`

	// Overall is the weighted combination of the component sub-scores,
	// rounded to the nearest integer and bounded to [0, 100].
	Overall int `json:"overall"`

	// Components holds the per-subsystem breakdown, one entry per defined
	// component.
	Components map[Component]SubScore `json:"components"`

	// Recommendations lists concrete actions that would raise the score,
	// e.g. "Enable VPN protection ...". Empty when nothing is actionable.
	Recommendations []string `json:"recommendations"`
}

// Grade maps the overall score to a letter grade for presentation layers.
func (r *ScoreRecord) Grade() string {
	switch {
	case r.Overall >= 90:
		return "A"
	case r.Overall >= 80:
		return "B"
	case r.Overall >= 70:
		return "C"
	case r.Overall >= 60:
		return "D"
	default:
		return "F"
	}
}

// ClampScore bounds v to the valid score range [0, 100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
