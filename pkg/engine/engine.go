package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
	"github.com/halcyonlabs/go-privmeter/pkg/providers"
	"github.com/halcyonlabs/go-privmeter/pkg/storage"
)

var (
	// ErrInvalidLimit rejects history queries with a non-positive limit.
	ErrInvalidLimit = errors.New("history limit must be positive")

	// ErrInvalidWeights rejects weight sets that are negative or do not
	// sum to 1.0.
	ErrInvalidWeights = errors.New("component weights must be non-negative and sum to 1.0")
)

// weightTolerance absorbs float rounding when checking that weights sum
// to 1.0.
const weightTolerance = 0.001

// DefaultTrendWindow is how many prior records the trend compares the
// newest score against.
const DefaultTrendWindow = 7

// trendThreshold is the band, in score points, within which a score
// movement still counts as STABLE.
const trendThreshold = 5.0

// Weights distributes the overall score across the four components.
// A valid set is non-negative and sums to 1.0 within a small tolerance.
type Weights struct {
	VPN      float64 `json:"vpn" yaml:"vpn"`
	Location float64 `json:"location" yaml:"location"`
	Network  float64 `json:"network" yaml:"network"`
	Caller   float64 `json:"caller" yaml:"caller"`
}

// DefaultWeights returns the standard distribution: VPN carries the most
// weight, caller protection the least.
func DefaultWeights() Weights {
	return Weights{VPN: 0.30, Location: 0.25, Network: 0.25, Caller: 0.20}
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.VPN + w.Location + w.Network + w.Caller
}

// Validate checks that no weight is negative and the sum is 1.0 within
// tolerance. Failures wrap ErrInvalidWeights.
func (w Weights) Validate() error {
	if w.VPN < 0 || w.Location < 0 || w.Network < 0 || w.Caller < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("%w: sum is %.3f", ErrInvalidWeights, w.Sum())
	}
	return nil
}

func (w Weights) of(c models.Component) float64 {
	switch c {
	case models.ComponentVPN:
		return w.VPN
	case models.ComponentLocation:
		return w.Location
	case models.ComponentNetwork:
		return w.Network
	case models.ComponentCaller:
		return w.Caller
	}
	return 0
}

// ProviderSet wires one provider per component slot. Slots may be nil or
// become unreachable at runtime; the aggregator degrades such components
// to a zero sub-score instead of failing.
type ProviderSet struct {
	VPN      providers.Provider
	Location providers.Provider
	Network  providers.Provider
	Caller   providers.Provider
}

func (s ProviderSet) slot(c models.Component) providers.Provider {
	switch c {
	case models.ComponentVPN:
		return s.VPN
	case models.ComponentLocation:
		return s.Location
	case models.ComponentNetwork:
		return s.Network
	case models.ComponentCaller:
		return s.Caller
	}
	return nil
}

// Aggregator combines the component sub-scores into one overall privacy
// score and maintains the append-only history behind it.
//
// Architecture Principles:
//   - Provider-agnostic: components are queried through the Provider
//     interface, never through concrete types
//   - Never fatal: a failed or missing provider degrades to a zero
//     sub-score plus a recommendation, and scoring continues
//   - Explainable: every record carries the per-component breakdown and
//     the reasons behind it
//   - Append-only: records are immutable and stamped with strictly
//     increasing timestamps
//
// Usage:
//
//	set := engine.ProviderSet{
//		VPN:      providers.NewVPNManager(),
//		Location: providers.NewLocationManager(),
//		Network:  providers.NewNetworkMonitor(),
//		Caller:   providers.NewCallerGuard(),
//	}
//	agg := engine.New(set, storage.NewMemoryStore())
//	record, err := agg.Calculate()
type Aggregator struct {
	providers ProviderSet
	store     storage.HistoryStore

	mu          sync.RWMutex
	weights     Weights
	trendWindow int
	lastStamp   time.Time
}

// New creates an aggregator with the default weights.
//
// Parameters:
//   - set: one provider per component slot (nil slots are tolerated and
//     degrade to zero sub-scores)
//   - store: history backend (required)
func New(set ProviderSet, store storage.HistoryStore) *Aggregator {
	return &Aggregator{
		providers:   set,
		store:       store,
		weights:     DefaultWeights(),
		trendWindow: DefaultTrendWindow,
	}
}

// NewWithWeights creates an aggregator with a custom weight distribution.
// Invalid weights are rejected with ErrInvalidWeights.
func NewWithWeights(set ProviderSet, store storage.HistoryStore, w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	a := New(set, store)
	a.weights = w
	return a, nil
}

// Weights returns the active weight distribution.
func (a *Aggregator) Weights() Weights {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.weights
}

// SetWeights swaps the weight distribution, e.g. after a config reload.
// Invalid weights are rejected with ErrInvalidWeights and the previous
// distribution stays active. Already-stored records keep the weights they
// were produced with.
func (a *Aggregator) SetWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	a.weights = w
	a.mu.Unlock()
	return nil
}

// TrendWindow returns how many prior records Trend averages over.
func (a *Aggregator) TrendWindow() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.trendWindow
}

// SetTrendWindow changes the trend comparison window. Values below 1 are
// rejected.
func (a *Aggregator) SetTrendWindow(n int) error {
	if n < 1 {
		return fmt.Errorf("trend window must be at least 1, got %d", n)
	}
	a.mu.Lock()
	a.trendWindow = n
	a.mu.Unlock()
	return nil
}

// Calculate queries every provider, combines the sub-scores into an
// overall score and appends the resulting record to the history.
//
// Degradation Guarantees:
//   - A provider that is missing or returns an error contributes a zero
//     sub-score with an "Enable ..." recommendation
//   - Provider failures never surface as errors; only a failure to
//     persist the finished record does
//
// Returns the newly appended record.
func (a *Aggregator) Calculate() (*models.ScoreRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// 1. Query each component slot, degrading failures to zero.
	components := make(map[models.Component]models.SubScore, 4)
	recommendations := make([]string, 0)
	weighted := 0.0

	for _, c := range models.Components() {
		sub := a.query(c)
		components[c] = sub
		weighted += a.weights.of(c) * float64(sub.Value)

		if sub.Value == 0 {
			recommendations = append(recommendations, enableAdvice(c))
		}
	}

	// 2. Round the weighted combination and bound it to the score range.
	overall := models.ClampScore(int(math.Round(weighted)))

	// 3. Stamp and persist. The lock is held across the append, so the
	// history grows in timestamp order.
	record := &models.ScoreRecord{
		ID:              uuid.New(),
		Timestamp:       a.nextStamp(),
		Overall:         overall,
		Components:      components,
		Recommendations: recommendations,
	}
	if err := a.store.Append(record); err != nil {
		return nil, fmt.Errorf("append score record: %w", err)
	}
	return record, nil
}

// History returns up to limit records, newest first. A non-positive limit
// is rejected with ErrInvalidLimit; a limit beyond the stored history
// returns everything available.
func (a *Aggregator) History(limit int) ([]*models.ScoreRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return a.store.Recent(limit)
}

// Trend compares the newest score against the average of up to TrendWindow
// prior records.
//
// Classification:
//   - IMPROVING: newest sits more than the threshold above the average
//   - DECLINING: newest sits more than the threshold below the average
//   - STABLE: anything in between, or fewer than two records stored
func (a *Aggregator) Trend() (*models.TrendReport, error) {
	a.mu.RLock()
	window := a.trendWindow
	a.mu.RUnlock()

	recent, err := a.store.Recent(window + 1)
	if err != nil {
		return nil, fmt.Errorf("load score history: %w", err)
	}

	if len(recent) < 2 {
		report := &models.TrendReport{Direction: models.TrendStable}
		if len(recent) == 1 {
			report.LatestScore = recent[0].Overall
		}
		return report, nil
	}

	latest := recent[0]
	prior := recent[1:]
	sum := 0
	for _, r := range prior {
		sum += r.Overall
	}
	avg := float64(sum) / float64(len(prior))
	delta := float64(latest.Overall) - avg

	direction := models.TrendStable
	switch {
	case delta > trendThreshold:
		direction = models.TrendImproving
	case delta < -trendThreshold:
		direction = models.TrendDeclining
	}

	return &models.TrendReport{
		Direction:       direction,
		Delta:           delta,
		LatestScore:     latest.Overall,
		PreviousAverage: avg,
		SampleSize:      len(prior),
	}, nil
}

// query reads one component slot, folding every failure mode into a zero
// sub-score. Provider errors never propagate past this point.
func (a *Aggregator) query(c models.Component) models.SubScore {
	p := a.providers.slot(c)
	if p == nil {
		return models.SubScore{Component: c, Reason: "provider unavailable"}
	}

	sub, err := p.SubScore()
	if err != nil {
		return models.SubScore{Component: c, Reason: "provider unavailable"}
	}

	sub.Component = c
	sub.Value = models.ClampScore(sub.Value)
	return sub
}

// nextStamp returns a wall-clock timestamp strictly after the previous
// record's. Coarse clocks can report identical instants for back-to-back
// calculations; history order must stay unambiguous. Called under a.mu.
func (a *Aggregator) nextStamp() time.Time {
	ts := time.Now().UTC()
	if !ts.After(a.lastStamp) {
		ts = a.lastStamp.Add(time.Nanosecond)
	}
	a.lastStamp = ts
	return ts
}

// enableAdvice names the action that would bring a zeroed component back.
func enableAdvice(c models.Component) string {
	switch c {
	case models.ComponentVPN:
		return "Enable VPN protection to route traffic through an encrypted tunnel"
	case models.ComponentLocation:
		return "Enable LOCATION privacy by switching off pass-through mode"
	case models.ComponentNetwork:
		return "Enable NETWORK protection by turning the firewall on"
	case models.ComponentCaller:
		return "Enable CALLER protection with spam blocking and number masking"
	}
	return fmt.Sprintf("Enable %s protection", c)
}
