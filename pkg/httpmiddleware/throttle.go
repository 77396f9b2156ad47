package httpmiddleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ThrottleConfig limits state-changing requests per client.
type ThrottleConfig struct {
	// Max is the number of mutating requests a client may send per Window.
	// Zero disables throttling.
	Max    int           `default:"120" usage:"Mutating requests allowed per client and window"`
	Window time.Duration `default:"1m" usage:"Throttle window"`
}

type window struct {
	start time.Time
	count int
}

// throttle is a fixed-window counter keyed by client address.
type throttle struct {
	cfg ThrottleConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*window
}

func newThrottle(cfg ThrottleConfig, now func() time.Time) *throttle {
	return &throttle{cfg: cfg, now: now, clients: make(map[string]*window)}
}

// take counts a request from key and reports whether it is allowed along
// with the time its window resets.
func (t *throttle) take(key string) (bool, time.Time) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.clients[key]
	if !ok || now.Sub(w.start) >= t.cfg.Window {
		if len(t.clients) > 4096 {
			t.evict(now)
		}
		w = &window{start: now}
		t.clients[key] = w
	}
	reset := w.start.Add(t.cfg.Window)
	if w.count >= t.cfg.Max {
		return false, reset
	}
	w.count++
	return true, reset
}

func (t *throttle) evict(now time.Time) {
	for k, w := range t.clients {
		if now.Sub(w.start) >= t.cfg.Window {
			delete(t.clients, k)
		}
	}
}

// Throttle rejects POST, PUT and DELETE requests above the configured rate
// with 429. Reads are never throttled.
func Throttle(cfg ThrottleConfig) Middleware {
	return throttleWithClock(cfg, time.Now)
}

func throttleWithClock(cfg ThrottleConfig, now func() time.Time) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	t := newThrottle(cfg, now)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}
			ok, reset := t.take(clientAddr(r))
			if !ok {
				retry := max(reset.Sub(now()), time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second)/time.Second)))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
