package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

func testRecord(overall int) *models.ScoreRecord {
	return &models.ScoreRecord{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Overall:   overall,
		Components: map[models.Component]models.SubScore{
			models.ComponentVPN:      {Component: models.ComponentVPN, Value: overall, Reason: "tunnel up, no leaks detected"},
			models.ComponentLocation: {Component: models.ComponentLocation, Value: overall, Reason: "random mode hides the real position"},
			models.ComponentNetwork:  {Component: models.ComponentNetwork, Value: overall, Reason: "firewall up, no threats observed"},
			models.ComponentCaller:   {Component: models.ComponentCaller, Value: overall, Reason: "no spam calls reported"},
		},
		Recommendations: []string{"Enable VPN protection to route traffic through an encrypted tunnel"},
	}
}

func TestMemoryAppendRejectsNil(t *testing.T) {
	m := NewMemoryStore()

	if err := m.Append(nil); !errors.Is(err, ErrNilRecord) {
		t.Fatalf("Append(nil) error = %v, want ErrNilRecord", err)
	}
}

func TestMemoryRecentNewestFirst(t *testing.T) {
	m := NewMemoryStore()
	for _, overall := range []int{10, 20, 30, 40, 50} {
		if err := m.Append(testRecord(overall)); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	got, err := m.Recent(3)
	if err != nil {
		t.Fatalf("Recent(3) error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d records, want 3", len(got))
	}
	for i, want := range []int{50, 40, 30} {
		if got[i].Overall != want {
			t.Errorf("Recent(3)[%d].Overall = %d, want %d", i, got[i].Overall, want)
		}
	}
}

func TestMemoryRecentLimitExceedsHistory(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Append(testRecord(42)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	got, err := m.Recent(100)
	if err != nil {
		t.Fatalf("Recent(100) error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent(100) returned %d records, want 1", len(got))
	}
}

func TestMemoryRecentNonPositiveLimit(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Append(testRecord(42)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	for _, limit := range []int{0, -1} {
		got, err := m.Recent(limit)
		if err != nil {
			t.Fatalf("Recent(%d) error: %v", limit, err)
		}
		if len(got) != 0 {
			t.Errorf("Recent(%d) returned %d records, want 0", limit, len(got))
		}
	}
}

func TestMemoryLen(t *testing.T) {
	m := NewMemoryStore()
	for i := 0; i < 4; i++ {
		if err := m.Append(testRecord(i * 10)); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	n, err := m.Len()
	if err != nil {
		t.Fatalf("Len() error: %v", err)
	}
	if n != 4 {
		t.Errorf("Len() = %d, want 4", n)
	}
}

func TestMemoryPrune(t *testing.T) {
	tests := []struct {
		name       string
		keep       int
		wantLen    int
		wantNewest int
		wantErr    bool
	}{
		{"keep two of five", 2, 2, 50, false},
		{"keep zero clears all", 0, 0, 0, false},
		{"keep beyond history is a no-op", 10, 5, 50, false},
		{"negative keep rejected", -1, 5, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemoryStore()
			for _, overall := range []int{10, 20, 30, 40, 50} {
				if err := m.Append(testRecord(overall)); err != nil {
					t.Fatalf("Append() error: %v", err)
				}
			}

			err := m.Prune(tt.keep)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Prune() returned no error for negative keep")
				}
				return
			}
			if err != nil {
				t.Fatalf("Prune(%d) error: %v", tt.keep, err)
			}

			n, err := m.Len()
			if err != nil {
				t.Fatalf("Len() error: %v", err)
			}
			if n != tt.wantLen {
				t.Fatalf("Len() after prune = %d, want %d", n, tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}

			got, err := m.Recent(1)
			if err != nil {
				t.Fatalf("Recent(1) error: %v", err)
			}
			if got[0].Overall != tt.wantNewest {
				t.Errorf("newest record after prune has overall %d, want %d", got[0].Overall, tt.wantNewest)
			}
		})
	}
}
