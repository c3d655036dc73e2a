package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimitState_Remaining(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		used     int
		expected int
	}{
		{"fresh window", 500, 0, 500},
		{"partially used", 500, 120, 380},
		{"exactly exhausted", 500, 500, 0},
		{"over budget clamps to zero", 500, 640, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Limit: tt.limit, Used: tt.used}
			if got := state.Remaining(); got != tt.expected {
				t.Errorf("Remaining() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestRateLimitState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *RateLimitState
		maxAge   time.Duration
		expected bool
	}{
		{
			name: "fresh state",
			state: &RateLimitState{
				LastUpdate: time.Now(),
			},
			maxAge:   5 * time.Second,
			expected: false,
		},
		{
			name: "stale state",
			state: &RateLimitState{
				LastUpdate: time.Now().Add(-2 * time.Minute),
			},
			maxAge:   time.Minute,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateLimitState_Thresholds(t *testing.T) {
	tests := []struct {
		name         string
		used         int
		wantBlock    bool
		wantThrottle bool
		wantHealthy  bool
	}{
		{"healthy", 100, false, false, true},
		{"at healthy threshold", 400, false, false, true},
		{"below healthy, above warning", 420, false, false, false},
		{"warning band", 460, false, true, false},
		{"at critical threshold", 490, false, true, false},
		{"critical", 495, true, false, false},
		{"exhausted", 500, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RateLimitState{Limit: 500, Used: tt.used}
			state.UpdateHealth()

			if got := state.NeedsCriticalBlock(); got != tt.wantBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v (remaining %d)", got, tt.wantBlock, state.Remaining())
			}
			if got := state.NeedsThrottling(); got != tt.wantThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v (remaining %d)", got, tt.wantThrottle, state.Remaining())
			}
			if state.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v (remaining %d)", state.IsHealthy, tt.wantHealthy, state.Remaining())
			}
		})
	}
}

func TestRateLimitState_TimeUntilReset(t *testing.T) {
	future := &RateLimitState{ResetAt: time.Now().Add(30 * time.Second)}
	if got := future.TimeUntilReset(); got <= 0 || got > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want within (0, 30s]", got)
	}

	past := &RateLimitState{ResetAt: time.Now().Add(-time.Second)}
	if got := past.TimeUntilReset(); got != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0", got)
	}
}
