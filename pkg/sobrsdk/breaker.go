package sobrsdk

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// healthBreaker gates network reads on the server's health endpoint. After
// a failure it holds the circuit open for a cooldown window, during which
// reads go straight to the offline cache instead of timing out per call.
type healthBreaker struct {
	client   *http.Client
	url      string
	cooldown time.Duration

	mu        sync.Mutex
	openUntil time.Time
	lastCheck time.Time
	healthy   bool
}

func newHealthBreaker(client *http.Client, baseURL string, cooldown time.Duration) *healthBreaker {
	return &healthBreaker{
		client:   client,
		url:      baseURL + "/api/health",
		cooldown: cooldown,
		healthy:  true,
	}
}

// allow reports whether a network attempt should be made.
func (b *healthBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().After(b.openUntil)
}

// trip opens the circuit after a network failure.
func (b *healthBreaker) trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openUntil = time.Now().Add(b.cooldown)
	b.healthy = false
}

// reset closes the circuit after a successful request.
func (b *healthBreaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openUntil = time.Time{}
	b.healthy = true
}

// probe re-checks the health endpoint at most once per cooldown, closing
// the circuit early when the server is back.
func (b *healthBreaker) probe(ctx context.Context) bool {
	b.mu.Lock()
	if time.Since(b.lastCheck) < b.cooldown {
		healthy := b.healthy
		b.mu.Unlock()
		return healthy
	}
	b.lastCheck = time.Now()
	b.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return false
	}
	res, err := b.client.Do(req)
	if err != nil {
		b.trip()
		return false
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusOK {
		b.reset()
		return true
	}
	b.trip()
	return false
}
