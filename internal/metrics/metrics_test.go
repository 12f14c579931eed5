package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivas-rpc-go/internal/rpc"
)

func TestMetrics_ObserverLabels(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AttemptObserved("https://seed.archivas.ai/secret", "chainTip", 20*time.Millisecond, &rpc.AttemptError{Kind: rpc.KindTimeout})
	m.AttemptObserved("https://seed2.archivas.ai", "chainTip", 10*time.Millisecond, nil)
	m.CallObserved("chainTip", "https://seed2.archivas.ai", 200*time.Millisecond, nil)
	m.CallObserved("healthz", "", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCAttemptsTotal.WithLabelValues("seed.archivas.ai", "chainTip", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCAttemptsTotal.WithLabelValues("seed2.archivas.ai", "chainTip", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallsTotal.WithLabelValues("chainTip", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallsTotal.WithLabelValues("healthz", "error")))
}

func TestMetrics_RecordCacheStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCacheStatus("/chainTip", "HIT")
	m.RecordCacheStatus("/chainTip", "EXPIRED")
	m.RecordCacheStatus("/chainTip", "MISS")
	m.RecordCacheStatus("", "MISS")
	m.RecordCacheStatus("/chainTip", "BYPASS")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("/chainTip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("/chainTip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("unknown")))
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTxSubmit(true)
	m.RecordTxSubmit(false)
	m.RecordTxSubmit(false)
	m.RecordRateLimited()
	m.RecordUpstreamLatency(120 * time.Millisecond)
	m.UpdateCacheGauges(4096, 87.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxSubmitSuccess))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxSubmitFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.CacheSize))
	assert.Equal(t, 87.5, testutil.ToFloat64(m.CacheFreeSpace))
}

func TestNewRegistry_Gathers(t *testing.T) {
	reg := NewRegistry()
	m := NewMetrics(reg)
	m.RecordRateLimited()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["seed2_rate_limited_total"])
	assert.True(t, names["go_goroutines"])
}

func TestGetMetrics_Singleton(t *testing.T) {
	assert.Same(t, GetMetrics(), GetMetrics())
}

func TestGetMetrics_AsClientObserver(t *testing.T) {
	var obs rpc.Observer = GetMetrics()
	calls := GetMetrics().RPCCallsTotal.WithLabelValues("statusCheck", "ok")
	before := testutil.ToFloat64(calls)

	obs.CallObserved("statusCheck", "http://a", time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(calls))

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "archivas_rpc_calls_total" {
			found = true
		}
	}
	assert.True(t, found)
}
