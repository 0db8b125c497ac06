package providers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

// LocationMode is the active location-sharing policy.
type LocationMode string

const (
	// ModeReal passes exact device coordinates to applications.
	ModeReal LocationMode = "REAL"

	// ModeApproximate coarsens coordinates to roughly city level.
	ModeApproximate LocationMode = "APPROXIMATE"

	// ModeRandom substitutes plausible random coordinates.
	ModeRandom LocationMode = "RANDOM"

	// ModeSpoofed pins a user-chosen fixed decoy location.
	ModeSpoofed LocationMode = "SPOOFED"
)

// SpoofedScore is the rating for ModeSpoofed. A fixed decoy hides the real
// position but is itself linkable across applications, so it rates below
// the obfuscating modes.
const SpoofedScore = 75

// ErrUnknownMode is returned for a location mode outside the defined set.
var ErrUnknownMode = errors.New("unknown location mode")

// ParseLocationMode converts user input to a LocationMode, ignoring case
// and surrounding whitespace.
func ParseLocationMode(s string) (LocationMode, error) {
	switch mode := LocationMode(strings.ToUpper(strings.TrimSpace(s))); mode {
	case ModeReal, ModeApproximate, ModeRandom, ModeSpoofed:
		return mode, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// LocationManager tracks the location-sharing policy and rates it:
//
//   - RANDOM, APPROXIMATE: 100 (the real position never leaves the device)
//   - SPOOFED: SpoofedScore
//   - REAL: 0
type LocationManager struct {
	mu   sync.RWMutex
	mode LocationMode
}

// NewLocationManager returns a manager in pass-through (REAL) mode.
func NewLocationManager() *LocationManager {
	return &LocationManager{mode: ModeReal}
}

// SetMode switches the sharing policy. Unknown modes are rejected with
// ErrUnknownMode and leave the current mode in place.
func (l *LocationManager) SetMode(mode LocationMode) error {
	parsed, err := ParseLocationMode(string(mode))
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.mode = parsed
	l.mu.Unlock()
	return nil
}

// Mode returns the active sharing policy.
func (l *LocationManager) Mode() LocationMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mode
}

func (l *LocationManager) Component() models.Component {
	return models.ComponentLocation
}

func (l *LocationManager) Description() string {
	return "Rates how much of the device's real position applications can observe."
}

func (l *LocationManager) SubScore() (models.SubScore, error) {
	l.mu.RLock()
	mode := l.mode
	l.mu.RUnlock()

	sub := models.SubScore{Component: models.ComponentLocation}
	switch mode {
	case ModeRandom, ModeApproximate:
		sub.Value = 100
		sub.Reason = fmt.Sprintf("%s mode hides the real position", strings.ToLower(string(mode)))
	case ModeSpoofed:
		sub.Value = SpoofedScore
		sub.Reason = "fixed decoy location is linkable over time"
	default:
		sub.Reason = "real coordinates are shared"
	}
	return sub, nil
}
