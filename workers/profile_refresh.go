package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/snaptag/gateway/models"
)

// ProfileFetcher is the single tagging-service operation the refresher
// needs.
type ProfileFetcher interface {
	GetProfile(ctx context.Context) (*models.Profile, error)
}

// ProfileRefresher keeps the account profile (most importantly the credit
// balance) warm. It refreshes on a fixed interval and debounces forced
// refreshes with a minimum gap, so a profile page being hammered never
// turns into a request storm. The refresher is owned by the process
// lifecycle and torn down via Stop; no timer survives it.
type ProfileRefresher struct {
	Fetcher      ProfileFetcher
	Interval     time.Duration
	MinInterval  time.Duration
	FetchTimeout time.Duration

	Mutex       sync.Mutex
	profile     *models.Profile
	lastFetched time.Time
	lastErr     error

	StopChan chan struct{}
	Wg       sync.WaitGroup
}

// NewProfileRefresher starts the background refresh loop and kicks off an
// immediate first fetch.
func NewProfileRefresher(fetcher ProfileFetcher, interval, minInterval time.Duration) *ProfileRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if minInterval <= 0 {
		minInterval = 30 * time.Second
	}

	pr := &ProfileRefresher{
		Fetcher:      fetcher,
		Interval:     interval,
		MinInterval:  minInterval,
		FetchTimeout: 15 * time.Second,
		StopChan:     make(chan struct{}),
	}

	pr.Wg.Add(1)
	go pr.run()
	log.Printf("started profile refresher (interval %s, debounce %s)", interval, minInterval)
	return pr
}

func (pr *ProfileRefresher) run() {
	defer pr.Wg.Done()

	pr.refresh()

	ticker := time.NewTicker(pr.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pr.refresh()
		case <-pr.StopChan:
			log.Printf("profile refresher stopping: stop signal received")
			return
		}
	}
}

// refresh fetches the profile unless the last successful fetch is newer
// than the debounce gap.
func (pr *ProfileRefresher) refresh() {
	pr.Mutex.Lock()
	if !pr.lastFetched.IsZero() && time.Since(pr.lastFetched) < pr.MinInterval {
		pr.Mutex.Unlock()
		return
	}
	pr.Mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pr.FetchTimeout)
	defer cancel()

	profile, err := pr.Fetcher.GetProfile(ctx)

	pr.Mutex.Lock()
	defer pr.Mutex.Unlock()
	if err != nil {
		pr.lastErr = err
		log.Printf("profile refresh failed: %v", err)
		return
	}
	pr.profile = profile
	pr.lastFetched = time.Now()
	pr.lastErr = nil
}

// Profile returns the cached profile, when it was fetched, and the last
// refresh error. A nil profile with a non-nil error means no fetch has
// succeeded yet.
func (pr *ProfileRefresher) Profile() (*models.Profile, time.Time, error) {
	pr.Mutex.Lock()
	defer pr.Mutex.Unlock()
	return pr.profile, pr.lastFetched, pr.lastErr
}

// ForceRefresh refreshes now (still subject to the debounce gap) and
// returns the freshest cached profile.
func (pr *ProfileRefresher) ForceRefresh() (*models.Profile, error) {
	pr.refresh()

	pr.Mutex.Lock()
	defer pr.Mutex.Unlock()
	if pr.profile == nil {
		return nil, pr.lastErr
	}
	return pr.profile, nil
}

// Stop terminates the refresh loop and waits for it to exit.
func (pr *ProfileRefresher) Stop() {
	close(pr.StopChan)
	pr.Wg.Wait()
}
