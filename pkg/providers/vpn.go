package providers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/halcyonlabs/go-privmeter/pkg/egress"
	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

// Penalties applied while the tunnel is up.
const (
	// LeakPenalty is subtracted for every unresolved leak.
	LeakPenalty = 25

	// KillSwitchPenalty is subtracted while the kill switch is disarmed.
	KillSwitchPenalty = 15
)

// Leak records one detected tunnel leak, e.g. a DNS query that bypassed the
// tunnel or traffic observed egressing outside the server country.
type Leak struct {
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// VPNStatus is a point-in-time snapshot of the manager state.
type VPNStatus struct {
	Connected   bool   `json:"connected"`
	KillSwitch  bool   `json:"kill_switch"`
	ExitCountry string `json:"exit_country,omitempty"`
	Leaks       []Leak `json:"leaks"`
}

// VPNManager tracks the tunnel state and rates it:
//
//   - disconnected: 0
//   - connected: 100, minus LeakPenalty per unresolved leak, minus
//     KillSwitchPenalty while the kill switch is disarmed
//
// Leaks belong to a connection session; Connect discards the previous
// session's leaks.
type VPNManager struct {
	mu          sync.RWMutex
	connected   bool
	killSwitch  bool
	exitCountry string
	leaks       []Leak
	checker     *egress.Checker
}

// NewVPNManager returns a disconnected manager with the kill switch armed.
func NewVPNManager() *VPNManager {
	return &VPNManager{killSwitch: true}
}

// Connect marks the tunnel up. exitCountry is the ISO code of the country
// the chosen server egresses from; VerifyExit compares observed traffic
// against it.
func (v *VPNManager) Connect(exitCountry string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = true
	v.exitCountry = strings.ToUpper(strings.TrimSpace(exitCountry))
	v.leaks = nil
}

// Disconnect tears the tunnel down.
func (v *VPNManager) Disconnect() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = false
}

// SetKillSwitch arms or disarms the kill switch.
func (v *VPNManager) SetKillSwitch(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.killSwitch = enabled
}

// RecordLeak registers a leak observed by an external detector.
func (v *VPNManager) RecordLeak(kind, detail string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaks = append(v.leaks, Leak{Kind: kind, Detail: detail, DetectedAt: time.Now().UTC()})
}

// ClearLeaks drops all recorded leaks, e.g. after the user rotated servers.
func (v *VPNManager) ClearLeaks() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaks = nil
}

// AttachExitChecker wires a GeoIP-backed checker used by VerifyExit.
// Without one, VerifyExit silently passes.
func (v *VPNManager) AttachExitChecker(c *egress.Checker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checker = c
}

// Status returns a copy of the current state.
func (v *VPNManager) Status() VPNStatus {
	v.mu.RLock()
	defer v.mu.RUnlock()
	leaks := make([]Leak, len(v.leaks))
	copy(leaks, v.leaks)
	return VPNStatus{
		Connected:   v.connected,
		KillSwitch:  v.killSwitch,
		ExitCountry: v.exitCountry,
		Leaks:       leaks,
	}
}

// VerifyExit resolves the country publicIP is located in and compares it
// with the connected server's country. A mismatch means traffic is leaving
// the device outside the tunnel and is recorded as an "exit-country" leak.
//
// The check silently passes when no checker is attached, the tunnel is down
// or no exit country was declared. Returns whether a new leak was recorded.
func (v *VPNManager) VerifyExit(publicIP string) (bool, error) {
	v.mu.RLock()
	checker, connected, want := v.checker, v.connected, v.exitCountry
	v.mu.RUnlock()

	if checker == nil || !connected || want == "" {
		return false, nil
	}

	got, err := checker.ExitCountry(publicIP)
	if err != nil {
		return false, fmt.Errorf("resolve exit country: %w", err)
	}
	if strings.EqualFold(got, want) {
		return false, nil
	}

	v.RecordLeak("exit-country", fmt.Sprintf("expected %s, observed %s", want, got))
	return true, nil
}

func (v *VPNManager) Component() models.Component {
	return models.ComponentVPN
}

func (v *VPNManager) Description() string {
	return "Rates the VPN tunnel: full score while connected and leak-free, penalties for leaks and a disarmed kill switch."
}

func (v *VPNManager) SubScore() (models.SubScore, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.connected {
		return models.SubScore{Component: models.ComponentVPN, Reason: "VPN disconnected"}, nil
	}

	score := 100 - LeakPenalty*len(v.leaks)
	if !v.killSwitch {
		score -= KillSwitchPenalty
	}

	reason := "tunnel up, no leaks detected"
	switch {
	case len(v.leaks) > 0:
		reason = fmt.Sprintf("%d unresolved leak(s)", len(v.leaks))
	case !v.killSwitch:
		reason = "kill switch disarmed"
	}

	return models.SubScore{
		Component: models.ComponentVPN,
		Value:     models.ClampScore(score),
		Reason:    reason,
	}, nil
}
