package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DefaultEndpoints are small, independently operated reachability targets.
// One success is enough to call the machine online.
var DefaultEndpoints = []string{
	"https://www.google.com/generate-204",
	"https://www.cloudflare.com/cdn-cgi/trace",
	"https://www.bing.com",
}

// Status is the last known connectivity reading.
type Status struct {
	Online      bool      `json:"online"`
	LastChecked time.Time `json:"lastChecked"`
}

// Notifier surfaces OS-level online/offline transitions as a stream of
// booleans. Implementations are platform glue and live outside this package.
type Notifier interface {
	Events() <-chan bool
}

// Gate decides whether the machine currently has outbound reachability.
// It reports online if ANY probe endpoint answers, and offline only when
// every endpoint fails or times out. The asymmetry is deliberate: a single
// blocked domain must not read as "offline", because offline is what
// unlocks the quiz start.
type Gate struct {
	endpoints    []string
	interval     time.Duration
	probeTimeout time.Duration
	client       *http.Client
	clock        func() time.Time

	mu          sync.RWMutex
	status      Status
	known       bool
	subscribers map[chan Status]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New builds a gate over the given probe endpoints. Zero endpoints fall back
// to DefaultEndpoints.
func New(endpoints []string, interval, probeTimeout time.Duration) *Gate {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &Gate{
		endpoints:    endpoints,
		interval:     interval,
		probeTimeout: probeTimeout,
		client:       &http.Client{},
		clock:        time.Now,
		subscribers:  make(map[chan Status]struct{}),
	}
}

// Probe runs one round of reachability checks and reports the verdict
// without touching the stored status.
func (g *Gate) Probe(ctx context.Context) bool {
	results := make(chan bool, len(g.endpoints))
	for _, endpoint := range g.endpoints {
		endpoint := endpoint
		go func() {
			results <- g.probeOne(ctx, endpoint)
		}()
	}
	online := false
	for range g.endpoints {
		if <-results {
			online = true
		}
	}
	return online
}

func (g *Gate) probeOne(ctx context.Context, endpoint string) bool {
	ctx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	// Cache-busting query param so probes never hit an intermediary cache.
	url := fmt.Sprintf("%s?nc=%d", endpoint, g.clock().UnixNano())
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// ForceCheck runs an on-demand probe round and records the result.
func (g *Gate) ForceCheck(ctx context.Context) Status {
	return g.record(g.Probe(ctx))
}

// Status returns the last recorded reading. Before any probe has completed
// it conservatively reports online, which keeps the quiz gated.
func (g *Gate) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.known {
		return Status{Online: true, LastChecked: g.status.LastChecked}
	}
	return g.status
}

// Subscribe delivers a reading whenever the online value changes, not on
// every probe tick. The caller must invoke the cancel function.
func (g *Gate) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 4)
	g.mu.Lock()
	g.subscribers[ch] = struct{}{}
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		if _, ok := g.subscribers[ch]; ok {
			delete(g.subscribers, ch)
			close(ch)
		}
		g.mu.Unlock()
	}
	return ch, cancel
}

// Run probes on a fixed interval and reacts immediately to OS transition
// events until Stop is called or ctx is done. notifier may be nil.
func (g *Gate) Run(ctx context.Context, notifier Notifier) {
	g.mu.Lock()
	if g.stopCh == nil {
		g.stopCh = make(chan struct{})
	}
	stopCh := g.stopCh
	g.mu.Unlock()

	var events <-chan bool
	if notifier != nil {
		events = notifier.Events()
	}

	g.record(g.Probe(ctx))
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.record(g.Probe(ctx))
		case online, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// The OS signal is a hint; a probe round confirms it. A reported
			// "offline" still only sticks if every endpoint agrees.
			if online {
				g.record(true)
			} else {
				g.record(g.Probe(ctx))
			}
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the background loop. Safe to call more than once.
func (g *Gate) Stop() {
	g.mu.Lock()
	if g.stopCh == nil {
		g.stopCh = make(chan struct{})
	}
	g.mu.Unlock()
	g.stopOnce.Do(func() { close(g.stopCh) })
}

func (g *Gate) record(online bool) Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	changed := !g.known || g.status.Online != online
	g.known = true
	g.status = Status{Online: online, LastChecked: g.clock()}
	if !changed {
		return g.status
	}
	for ch := range g.subscribers {
		select {
		case ch <- g.status:
		default:
			// Drop the stale reading so a slow subscriber sees the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- g.status
		}
	}
	return g.status
}
