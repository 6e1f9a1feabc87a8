package utils

import (
	"testing"
	"time"
)

func newTestPolicy(jitter time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 5,
		BaseBackoff: 1500 * time.Millisecond,
		MaxBackoff:  15 * time.Second,
		Jitter:      jitter,
	}
}

func TestRetryPolicyBackoffSequence(t *testing.T) {
	p := newTestPolicy(0)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1500 * time.Millisecond},
		{2, 3 * time.Second},
		{3, 6 * time.Second},
		{4, 12 * time.Second},
		{5, 15 * time.Second}, // 24s capped
	}

	for _, tt := range tests {
		d := p.Decide(503, tt.attempt)
		if !d.Retry {
			t.Fatalf("attempt %d: expected retry within ceiling", tt.attempt)
		}
		if d.Delay != tt.want {
			t.Errorf("attempt %d: delay = %v, want %v", tt.attempt, d.Delay, tt.want)
		}
	}
}

func TestRetryPolicyCeiling(t *testing.T) {
	p := newTestPolicy(0)

	if d := p.Decide(503, 6); d.Retry {
		t.Error("attempt beyond ceiling must surface the response as final")
	}
}

func TestRetryPolicyTriggerSet(t *testing.T) {
	p := newTestPolicy(0)

	for _, status := range []int{403, 408, 429, 500, 502, 503, 504} {
		if d := p.Decide(status, 1); !d.Retry {
			t.Errorf("status %d should trigger a retry", status)
		}
	}
	for _, status := range []int{200, 301, 404, 410} {
		if d := p.Decide(status, 1); d.Retry {
			t.Errorf("status %d should not trigger a retry", status)
		}
	}
}

func TestRetryPolicyJitterBound(t *testing.T) {
	jitter := 500 * time.Millisecond
	p := newTestPolicy(jitter)

	for i := 0; i < 50; i++ {
		d := p.Decide(503, 1)
		extra := d.Delay - p.BaseBackoff
		if extra < 0 || extra >= jitter {
			t.Fatalf("jitter out of bounds: %v", extra)
		}
	}
}
