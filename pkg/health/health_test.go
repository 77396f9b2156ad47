package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct {
	calls atomic.Int32
	err   error
}

func (p *pinger) Ping(context.Context) error {
	p.calls.Add(1)
	return p.err
}

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func get(t *testing.T, h http.HandlerFunc, path string) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1_000_000))

	code, body := get(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveEndpoint_Failing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(0))

	code, body := get(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks["goroutines"], "limit 0")
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		pingErr    error
		wantCode   int
		wantChecks map[string]string
		wantPings  int32
	}{
		{
			name:       "NotMarkedReady",
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"server": "not ready"},
		},
		{
			name:      "Ready",
			ready:     true,
			wantCode:  http.StatusOK,
			wantPings: 1,
		},
		{
			name:       "StorageDown",
			ready:      true,
			pingErr:    errors.New("connection refused"),
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"storage": "ping: connection refused"},
			wantPings:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &pinger{err: tt.pingErr}
			h := New()
			h.AddReadinessCheck("storage", time.Second, PingCheck(p))
			h.SetReady(tt.ready)

			code, body := get(t, h.ReadyEndpoint, "/readyz")
			assert.Equal(t, tt.wantCode, code)
			if len(tt.wantChecks) > 0 {
				assert.Equal(t, tt.wantChecks, body.Checks)
			}
			assert.Equal(t, tt.wantPings, p.calls.Load())
		})
	}
}

func TestReady_CachesResults(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &pinger{}
	h := New()
	h.now = func() time.Time { return now }
	h.AddReadinessCheck("storage", time.Second, PingCheck(p))
	h.SetReady(true)

	ctx := context.Background()
	assert.Empty(t, h.Ready(ctx))
	assert.Empty(t, h.Ready(ctx))
	assert.EqualValues(t, 1, p.calls.Load())

	now = now.Add(DefaultCacheTTL)
	p.err = errors.New("gone")
	assert.Equal(t, map[string]string{"storage": "ping: gone"}, h.Ready(ctx))
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestReady_Draining(t *testing.T) {
	h := New()
	h.SetReady(true)
	assert.True(t, h.IsReady())
	assert.Empty(t, h.Ready(context.Background()))

	h.SetReady(false)
	assert.False(t, h.IsReady())
	assert.NotEmpty(t, h.Ready(context.Background()))
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddLivenessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.AddLivenessCheck("fast", time.Second, func(context.Context) error { return nil })

	failures := h.Live(context.Background())
	assert.Equal(t, map[string]string{"slow": context.DeadlineExceeded.Error()}, failures)
}
