package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Probe checks a single dependency.
type Probe func(ctx context.Context) error

// Handler serves liveness and readiness endpoints.
type Handler struct {
	Probes  map[string]Probe
	Timeout time.Duration
	State   *State
}

// State lets the process withdraw from load balancing before shutdown.
type State struct {
	draining atomic.Bool
}

// Drain marks the process as shutting down; readiness fails from then on.
func (s *State) Drain() { s.draining.Store(true) }

// Draining reports whether Drain was called.
func (s *State) Draining() bool { return s != nil && s.draining.Load() }

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and answers 200 only when all pass.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := len(h.Probes) > 0 && !h.State.Draining()
	if h.State.Draining() {
		status["server"] = "draining"
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range sortedNames(h.Probes) {
		probe := h.Probes[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := "ok"
			if err := probe(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			status[name] = result
			if result != "ok" {
				healthy = false
			}
		}()
	}
	wg.Wait()

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}

func sortedNames(probes map[string]Probe) []string {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
