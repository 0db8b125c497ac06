package providers

import (
	"errors"
	"testing"
)

func TestParseLocationMode(t *testing.T) {
	tests := []struct {
		in      string
		want    LocationMode
		wantErr bool
	}{
		{"REAL", ModeReal, false},
		{"random", ModeRandom, false},
		{" Spoofed ", ModeSpoofed, false},
		{"approximate", ModeApproximate, false},
		{"gps", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseLocationMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMode) {
				t.Errorf("ParseLocationMode(%q) error = %v, want ErrUnknownMode", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLocationMode(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLocationMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocationSubScore(t *testing.T) {
	tests := []struct {
		mode LocationMode
		want int
	}{
		{ModeReal, 0},
		{ModeApproximate, 100},
		{ModeRandom, 100},
		{ModeSpoofed, SpoofedScore},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			l := NewLocationManager()
			if err := l.SetMode(tt.mode); err != nil {
				t.Fatalf("SetMode(%q) error: %v", tt.mode, err)
			}

			sub, err := l.SubScore()
			if err != nil {
				t.Fatalf("SubScore() error: %v", err)
			}
			if sub.Value != tt.want {
				t.Errorf("SubScore().Value = %d, want %d", sub.Value, tt.want)
			}
			if sub.Reason == "" {
				t.Error("SubScore().Reason is empty")
			}
		})
	}
}

func TestLocationDefaultsToPassThrough(t *testing.T) {
	l := NewLocationManager()

	if got := l.Mode(); got != ModeReal {
		t.Fatalf("Mode() = %q, want %q", got, ModeReal)
	}
	sub, err := l.SubScore()
	if err != nil {
		t.Fatalf("SubScore() error: %v", err)
	}
	if sub.Value != 0 {
		t.Errorf("SubScore().Value = %d, want 0", sub.Value)
	}
}

func TestSetModeRejectsUnknown(t *testing.T) {
	l := NewLocationManager()
	if err := l.SetMode(ModeRandom); err != nil {
		t.Fatalf("SetMode(RANDOM) error: %v", err)
	}

	if err := l.SetMode("teleport"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("SetMode(teleport) error = %v, want ErrUnknownMode", err)
	}
	if got := l.Mode(); got != ModeRandom {
		t.Errorf("mode changed to %q after rejected input, want %q", got, ModeRandom)
	}
}
