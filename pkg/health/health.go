// Package health serves the liveness and readiness probes of the cart
// server.
//
// Probes run on demand, concurrently, each under its own timeout. A result
// is reused for CacheTTL so a burst of probe requests does not hammer the
// cart storage.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the probed component is healthy.
type CheckFunc func(ctx context.Context) error

// DefaultCacheTTL is how long a probe result is reused.
const DefaultCacheTTL = time.Second

type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc
}

type result struct {
	at       time.Time
	failures map[string]string
}

// Health holds the registered probes and the manual readiness flag.
type Health struct {
	// CacheTTL overrides DefaultCacheTTL when positive.
	CacheTTL time.Duration

	ready atomic.Bool
	now   func() time.Time

	mu        sync.Mutex
	liveness  []probe
	readiness []probe
	cached    map[string]result
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{now: time.Now, cached: make(map[string]result)}
}

// AddLivenessCheck registers a check that tells whether the process is
// functioning.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, probe{name: name, timeout: timeout, check: check})
}

// AddReadinessCheck registers a check that tells whether the server can take
// traffic, typically a cart storage ping.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, probe{name: name, timeout: timeout, check: check})
}

// SetReady flips the manual readiness flag. It is set once the cart is
// hydrated and cleared when draining.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports the manual flag only; probes are not run.
func (h *Health) IsReady() bool { return h.ready.Load() }

// Live reports failing liveness checks.
func (h *Health) Live(ctx context.Context) map[string]string {
	return h.run(ctx, "live")
}

// Ready reports failing readiness checks. A server not marked ready fails
// without running them.
func (h *Health) Ready(ctx context.Context) map[string]string {
	if !h.ready.Load() {
		return map[string]string{"server": "not ready"}
	}
	return h.run(ctx, "ready")
}

func (h *Health) run(ctx context.Context, kind string) map[string]string {
	ttl := h.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	h.mu.Lock()
	if r, ok := h.cached[kind]; ok && h.now().Sub(r.at) < ttl {
		h.mu.Unlock()
		return r.failures
	}
	probes := h.liveness
	if kind == "ready" {
		probes = h.readiness
	}
	probes = slices.Clone(probes)
	h.mu.Unlock()

	errs := make([]error, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, p.timeout)
			defer cancel()
			errs[i] = p.check(pctx)
			return nil
		})
	}
	_ = g.Wait()

	failures := make(map[string]string)
	for i, err := range errs {
		if err != nil {
			failures[probes[i].name] = err.Error()
		}
	}

	h.mu.Lock()
	h.cached[kind] = result{at: h.now(), failures: failures}
	h.mu.Unlock()
	return failures
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, h.Live(r.Context()))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, h.Ready(r.Context()))
}

// writeStatus writes {"status":"ok"} with 200, or {"status":"unhealthy",
// "checks":{name: error}} with 503.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status := http.StatusOK
	e.ObjStart()
	e.FieldStart("status")
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
