package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snaptag/gateway/models"
)

type countingFetcher struct {
	calls   int32
	credits int
}

func (f *countingFetcher) GetProfile(ctx context.Context) (*models.Profile, error) {
	atomic.AddInt32(&f.calls, 1)
	return &models.Profile{Username: "tester", Credits: f.credits}, nil
}

func TestForceRefreshIsDebounced(t *testing.T) {
	fetcher := &countingFetcher{credits: 42}
	pr := NewProfileRefresher(fetcher, time.Hour, time.Hour)
	defer pr.Stop()

	// wait for the startup fetch
	deadline := time.Now().Add(2 * time.Second)
	for {
		profile, _, _ := pr.Profile()
		if profile != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("startup fetch never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// forced refreshes inside the debounce window hit the cache only
	for i := 0; i < 5; i++ {
		profile, err := pr.ForceRefresh()
		if err != nil {
			t.Fatalf("ForceRefresh error: %v", err)
		}
		if profile.Credits != 42 {
			t.Fatalf("credits = %d", profile.Credits)
		}
	}

	if got := atomic.LoadInt32(&fetcher.calls); got != 1 {
		t.Fatalf("fetcher called %d times, want 1 (debounce broken)", got)
	}
}

func TestStopTerminatesLoop(t *testing.T) {
	fetcher := &countingFetcher{}
	pr := NewProfileRefresher(fetcher, 10*time.Millisecond, time.Nanosecond)

	done := make(chan struct{})
	go func() {
		pr.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
