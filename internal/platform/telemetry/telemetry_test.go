package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.DistanceLookups("provider", "ok", 3)
	c.DistanceLookups("provider", "not_found", 1)
	c.ProviderBatch(nil, 20*time.Millisecond)
	c.ProviderBatch(errors.New("timeout"), time.Second)
	c.Unassigned("fleet_exhausted")
	c.HTTPRequest("POST", "/routes", 200)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.distanceLookups.WithLabelValues("provider", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerBatches.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unassigned.WithLabelValues("fleet_exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/routes", "200")))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.Unassigned("exceeds_hard_cap")
	assert.Equal(t, 1.0, testutil.ToFloat64(second.unassigned.WithLabelValues("exceeds_hard_cap")))
}

func TestNilCollectorsAreNoop(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.DistanceLookups("memory", "ok", 1)
		c.ProviderBatch(nil, 0)
		c.RouteSearch(10, 1)
		c.Unassigned("unknown_distance")
		c.HTTPRequest("GET", "/health", 200)
	})
}
