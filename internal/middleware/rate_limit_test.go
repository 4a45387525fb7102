package middleware

import (
	"testing"
	"time"
)

func TestLimiterFixedWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLimiter(3)
	l.now = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		if ok, _ := l.Allow(1); !ok {
			t.Fatalf("message %d rejected", i)
		}
	}
	if ok, count := l.Allow(1); ok || count != 4 {
		t.Errorf("4th message: ok=%v count=%d", ok, count)
	}
	if ok, _ := l.Allow(2); !ok {
		t.Error("other chat limited")
	}

	now = now.Add(time.Minute)
	if ok, count := l.Allow(1); !ok || count != 1 {
		t.Errorf("new window: ok=%v count=%d", ok, count)
	}
	if _, stale := l.windows[2]; stale {
		t.Error("expired window not swept")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow(1); !ok {
			t.Fatal("disabled limiter rejected a message")
		}
	}
}
