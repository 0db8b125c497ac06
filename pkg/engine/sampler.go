package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

// Sampler triggers periodic score calculations so history accrues even
// when no client is asking. One baseline sample is taken immediately on
// Start, then one per interval until Stop.
type Sampler struct {
	aggregator *Aggregator
	interval   time.Duration

	// OnRecord, when set before Start, receives every sampled record.
	OnRecord func(*models.ScoreRecord)

	// OnError, when set before Start, receives sampling failures.
	OnError func(error)

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSampler creates a sampler that calculates every interval.
func NewSampler(a *Aggregator, interval time.Duration) (*Sampler, error) {
	if a == nil {
		return nil, errors.New("aggregator cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %v", interval)
	}
	return &Sampler{
		aggregator: a,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start launches the sampling loop. Call Stop to halt it; a Sampler is
// not restartable.
func (s *Sampler) Start() {
	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.run()
}

// Stop halts the loop and waits for it to exit. Extra calls are no-ops.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if s.ticker != nil {
			s.ticker.Stop()
		}
	})
}

func (s *Sampler) run() {
	defer s.wg.Done()

	s.sample()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	record, err := s.aggregator.Calculate()
	if err != nil {
		if s.OnError != nil {
			s.OnError(err)
		}
		return
	}
	if s.OnRecord != nil {
		s.OnRecord(record)
	}
}
