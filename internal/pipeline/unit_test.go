package pipeline

import (
	"testing"
	"time"
)

func TestUnitTerminalStatesAreFinal(t *testing.T) {
	for _, final := range []Status{StatusSucceeded, StatusFailed, StatusTimedOut} {
		u := NewUnit("id", OpSearch, "f.pdf", "q", []byte("x"))
		u.setStatus(StatusRunning)
		u.setStatus(final)
		u.setStatus(StatusRunning)
		if got := u.Status(); got != final {
			t.Errorf("unit left terminal state %s for %s", final, got)
		}
	}
}

func TestUnitReleaseDropsData(t *testing.T) {
	u := NewUnit("id", OpSearch, "f.pdf", "q", []byte("payload"))
	if len(u.Data()) == 0 {
		t.Fatal("expected data before release")
	}
	u.release()
	if u.Data() != nil {
		t.Error("expected nil data after release")
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:   false,
		StatusRunning:   false,
		StatusSucceeded: true,
		StatusFailed:    true,
		StatusTimedOut:  true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := Backoff(attempt)
		if d < time.Second {
			t.Errorf("attempt %d: backoff %v below base", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("attempt %d: backoff %v above cap plus jitter", attempt, d)
		}
	}
}
