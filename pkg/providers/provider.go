package providers

import "github.com/halcyonlabs/go-privmeter/pkg/models"

// Provider is the contract every privacy subsystem exposes to the scoring
// engine. Implementations own their subsystem's state (tunnel status,
// sharing mode, counters) and reduce it to a single rating on demand.
type Provider interface {
	// Component names the subsystem, e.g. models.ComponentVPN.
	Component() models.Component

	// Description is a short text explaining what the subsystem rates.
	Description() string

	// SubScore reports the subsystem's current 0-100 rating.
	// An error means the subsystem could not be read at all; the engine
	// degrades such components to zero instead of failing the assessment.
	SubScore() (models.SubScore, error)
}
