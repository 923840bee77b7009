package resilience

import (
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestDefaultResilientConfig(t *testing.T) {
	config := DefaultResilientConfig()

	if config.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", config.Timeout)
	}

	s := config.Breaker.settings("sqlite")
	if s.Name != "sqlite" || s.MaxRequests != 1 || s.Timeout != 10*time.Second || s.Interval != 0 {
		t.Errorf("Unexpected breaker settings: %+v", s)
	}
}

func TestBreakerConfig_ReadyToTrip(t *testing.T) {
	tests := []struct {
		name   string
		config BreakerConfig
		counts gobreaker.Counts
		want   bool
	}{
		{"below threshold", DefaultResilientConfig().Breaker, gobreaker.Counts{ConsecutiveFailures: 4}, false},
		{"at threshold", DefaultResilientConfig().Breaker, gobreaker.Counts{ConsecutiveFailures: 5}, true},
		{"rate alone", DefaultResilientConfig().Breaker, gobreaker.Counts{Requests: 10, TotalFailures: 9, ConsecutiveFailures: 1}, false},
		{"zero threshold uses default", BreakerConfig{}, gobreaker.Counts{ConsecutiveFailures: 5}, true},
		{"custom threshold", BreakerConfig{FailureThreshold: 2}, gobreaker.Counts{ConsecutiveFailures: 2}, true},
		{
			"trip overrides threshold",
			BreakerConfig{FailureThreshold: 1, Trip: func(c gobreaker.Counts) bool { return c.TotalFailures > 3 }},
			gobreaker.Counts{ConsecutiveFailures: 3, TotalFailures: 3},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.readyToTrip(tt.counts); got != tt.want {
				t.Errorf("readyToTrip(%+v) = %v, want %v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestResilientConfig_With(t *testing.T) {
	config := DefaultResilientConfig()
	changed := config.WithTimeout(2 * time.Second).WithOpenFor(20 * time.Second).WithFailureThreshold(3)

	if changed.Timeout != 2*time.Second || changed.Breaker.OpenFor != 20*time.Second || changed.Breaker.FailureThreshold != 3 {
		t.Errorf("Unexpected config %+v", changed)
	}
	if config.Timeout != 5*time.Second || config.Breaker.OpenFor != 10*time.Second {
		t.Errorf("Original config changed: %+v", config)
	}
}
