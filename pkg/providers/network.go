package providers

import (
	"fmt"
	"sync"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

// NetworkStats is a point-in-time snapshot of the monitor counters.
type NetworkStats struct {
	FirewallEnabled bool `json:"firewall_enabled"`
	ThreatsDetected int  `json:"threats_detected"`
	ThreatsBlocked  int  `json:"threats_blocked"`
}

// NetworkMonitor tracks the firewall state and intrusion counters and rates
// them:
//
//   - firewall down: 0, regardless of counters
//   - firewall up, nothing detected: 100
//   - otherwise: blocked/detected ratio scaled to 100
type NetworkMonitor struct {
	mu              sync.RWMutex
	firewallEnabled bool
	threatsDetected int
	threatsBlocked  int
}

// NewNetworkMonitor returns a monitor with the firewall down and zeroed
// counters.
func NewNetworkMonitor() *NetworkMonitor {
	return &NetworkMonitor{}
}

// SetFirewall raises or lowers the firewall.
func (n *NetworkMonitor) SetFirewall(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.firewallEnabled = enabled
}

// RecordThreat counts one detected intrusion attempt. blocked says whether
// the firewall stopped it.
func (n *NetworkMonitor) RecordThreat(blocked bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.threatsDetected++
	if blocked {
		n.threatsBlocked++
	}
}

// ResetCounters zeroes the threat counters, e.g. at the start of a new
// observation window.
func (n *NetworkMonitor) ResetCounters() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.threatsDetected = 0
	n.threatsBlocked = 0
}

// Stats returns a copy of the current counters.
func (n *NetworkMonitor) Stats() NetworkStats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return NetworkStats{
		FirewallEnabled: n.firewallEnabled,
		ThreatsDetected: n.threatsDetected,
		ThreatsBlocked:  n.threatsBlocked,
	}
}

func (n *NetworkMonitor) Component() models.Component {
	return models.ComponentNetwork
}

func (n *NetworkMonitor) Description() string {
	return "Rates the firewall and how many detected intrusion attempts it blocked."
}

func (n *NetworkMonitor) SubScore() (models.SubScore, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	sub := models.SubScore{Component: models.ComponentNetwork}
	switch {
	case !n.firewallEnabled:
		sub.Reason = "firewall disabled"
	case n.threatsDetected == 0:
		sub.Value = 100
		sub.Reason = "firewall up, no threats observed"
	default:
		sub.Value = scaledRatio(n.threatsBlocked, n.threatsDetected, 100)
		sub.Reason = fmt.Sprintf("blocked %d of %d threats", n.threatsBlocked, n.threatsDetected)
	}
	return sub, nil
}
