package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(ctx context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} }

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"all up", map[string]Check{"a": up, "b": up}, StatusUp},
		{"degraded", map[string]Check{"a": up, "redis": Ping(func(context.Context) error { return errors.New("refused") }, StatusDegraded)}, StatusDegraded},
		{"down wins", map[string]Check{
			"redis":    Ping(func(context.Context) error { return errors.New("refused") }, StatusDegraded),
			"postgres": Ping(func(context.Context) error { return errors.New("refused") }, StatusDown),
		}, StatusDown},
		{"no checks", nil, StatusUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestPingReportsMessage(t *testing.T) {
	got := Ping(func(context.Context) error { return errors.New("refused") }, StatusDown)(context.Background())
	assert.Equal(t, ComponentHealth{Status: StatusDown, Message: "refused"}, got)
	got = Ping(func(context.Context) error { return nil }, StatusDown)(context.Background())
	assert.Equal(t, StatusUp, got.Status)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("index", up)
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusUp, report.Components["index"].Status)

	c.Register("postgres", Ping(func(context.Context) error { return errors.New("refused") }, StatusDown))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
