package egress

import (
	"errors"
	"testing"
)

func TestNewCheckerMissingCityDatabase(t *testing.T) {
	if _, err := NewChecker("testdata/does-not-exist.mmdb", ""); err == nil {
		t.Fatal("NewChecker() with a missing city database returned no error")
	}
}

func TestExitASNWithoutDatabase(t *testing.T) {
	c := &Checker{}

	_, _, err := c.ExitASN("198.51.100.7")
	if !errors.Is(err, ErrNoASNDatabase) {
		t.Fatalf("ExitASN() error = %v, want ErrNoASNDatabase", err)
	}
}

func TestLookupExitRejectsInvalidIP(t *testing.T) {
	c := &Checker{}

	if _, err := c.LookupExit("not-an-ip"); err == nil {
		t.Fatal("LookupExit() accepted an invalid IP address")
	}
}
