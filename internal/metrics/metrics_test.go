package metrics

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct{ stats sql.DBStats }

func (p *fakePool) Stats() sql.DBStats { return p.stats }

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRegisterPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool := &fakePool{stats: sql.DBStats{
		MaxOpenConnections: 10,
		OpenConnections:    3,
		InUse:              2,
		Idle:               1,
		WaitCount:          7,
		WaitDuration:       1500 * time.Millisecond,
	}}
	require.NoError(t, RegisterPoolMetrics(reg, pool))

	assert.Equal(t, 2.0, gaugeValue(t, reg, "mail_api_db_pool_in_use_conns"))
	assert.Equal(t, 1.0, gaugeValue(t, reg, "mail_api_db_pool_idle_conns"))
	assert.Equal(t, 3.0, gaugeValue(t, reg, "mail_api_db_pool_open_conns"))
	assert.Equal(t, 10.0, gaugeValue(t, reg, "mail_api_db_pool_max_conns"))
	assert.Equal(t, 7.0, gaugeValue(t, reg, "mail_api_db_pool_wait_count"))
	assert.Equal(t, 1.5, gaugeValue(t, reg, "mail_api_db_pool_wait_seconds"))

	pool.stats.InUse = 0
	assert.Equal(t, 0.0, gaugeValue(t, reg, "mail_api_db_pool_in_use_conns"), "gauges read live stats")
}

func TestRegisterPoolMetrics_Duplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, &fakePool{}))
	assert.Error(t, RegisterPoolMetrics(reg, &fakePool{}))
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, &fakePool{stats: sql.DBStats{MaxOpenConnections: 4}}))

	srv := NewServer(":0", reg)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "mail_api_db_pool_max_conns 4")
}
