package providers

import (
	"fmt"
	"sync"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

const (
	// SpamRatioWeight caps the spam-blocking part of the caller score.
	SpamRatioWeight = 80

	// MaskingBonus is added while outgoing number masking is active.
	MaskingBonus = 20
)

// CallerStats is a point-in-time snapshot of the guard state.
type CallerStats struct {
	MaskingEnabled bool `json:"masking_enabled"`
	SpamReported   int  `json:"spam_reported"`
	SpamBlocked    int  `json:"spam_blocked"`
}

// CallerGuard tracks call-privacy state and rates it:
//
//   - base: blocked/reported spam ratio scaled to SpamRatioWeight; with
//     nothing reported the full base is granted
//   - plus MaskingBonus while number masking is active
type CallerGuard struct {
	mu           sync.RWMutex
	masking      bool
	spamReported int
	spamBlocked  int
}

// NewCallerGuard returns a guard with masking off and zeroed counters.
func NewCallerGuard() *CallerGuard {
	return &CallerGuard{}
}

// SetMasking toggles outgoing number masking.
func (g *CallerGuard) SetMasking(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.masking = enabled
}

// RecordSpamCall counts one reported spam call. blocked says whether it was
// stopped before the phone rang.
func (g *CallerGuard) RecordSpamCall(blocked bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spamReported++
	if blocked {
		g.spamBlocked++
	}
}

// ResetCounters zeroes the spam counters.
func (g *CallerGuard) ResetCounters() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.spamReported = 0
	g.spamBlocked = 0
}

// Stats returns a copy of the current state.
func (g *CallerGuard) Stats() CallerStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return CallerStats{
		MaskingEnabled: g.masking,
		SpamReported:   g.spamReported,
		SpamBlocked:    g.spamBlocked,
	}
}

func (g *CallerGuard) Component() models.Component {
	return models.ComponentCaller
}

func (g *CallerGuard) Description() string {
	return "Rates spam-call blocking effectiveness and outgoing number masking."
}

func (g *CallerGuard) SubScore() (models.SubScore, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	score := SpamRatioWeight
	reason := "no spam calls reported"
	if g.spamReported > 0 {
		score = scaledRatio(g.spamBlocked, g.spamReported, SpamRatioWeight)
		reason = fmt.Sprintf("blocked %d of %d spam calls", g.spamBlocked, g.spamReported)
	}
	if g.masking {
		score += MaskingBonus
		reason += ", number masking on"
	}

	return models.SubScore{
		Component: models.ComponentCaller,
		Value:     models.ClampScore(score),
		Reason:    reason,
	}, nil
}
