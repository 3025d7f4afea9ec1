package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/axmq/ds/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ store.Recorder = (*Registry)(nil)

func TestRegistry_RecordStoreOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordStoreOperation("transaction", 2*time.Millisecond, nil)
	r.RecordStoreOperation("transaction", 3*time.Millisecond, errors.New("conflict"))
	r.RecordStoreOperation("dirty_read", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.storeOperationTotal.WithLabelValues("transaction", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.storeOperationTotal.WithLabelValues("transaction", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.storeOperationTotal.WithLabelValues("dirty_read", "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.storeOperationDuration))
}

func TestRegistry_RecordShardStart(t *testing.T) {
	r := NewRegistry()

	r.RecordShardStart("shard-1", nil)
	r.RecordShardStart("shard-1", nil)
	r.RecordShardStart("shard-2", errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.shardStartTotal.WithLabelValues("shard-1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.shardStartTotal.WithLabelValues("shard-2", "error")))
}

func TestRegistry_SystemInfo(t *testing.T) {
	r := NewRegistry()
	r.SetSystemInfo("v0.1.0", "pebble")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.systemInfo.WithLabelValues("v0.1.0", "pebble")))
	assert.Greater(t, testutil.ToFloat64(r.startTime), 0.0)
}

func TestStatsCollector(t *testing.T) {
	r := NewRegistry()
	sessions := map[string]int64{"created": 2, "errors": 0}
	collector := NewStatsCollector(map[string]StatsFunc{
		"session":  func() map[string]int64 { return sessions },
		"iterator": func() map[string]int64 { return map[string]int64{"added": 5} },
	})
	require.NoError(t, r.Register(collector))

	expected := `
# HELP ds_registry_events_total Counters reported by the session and iterator registries
# TYPE ds_registry_events_total counter
ds_registry_events_total{counter="added",registry="iterator"} 5
ds_registry_events_total{counter="created",registry="session"} 2
ds_registry_events_total{counter="errors",registry="session"} 0
`
	err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "ds_registry_events_total")
	assert.NoError(t, err)

	// Snapshots are taken on every scrape
	sessions["created"] = 3
	assert.Equal(t, 3, testutil.CollectAndCount(collector))
	err = testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(strings.Replace(expected,
		`registry="session"} 2`, `registry="session"} 3`, 1)), "ds_registry_events_total")
	assert.NoError(t, err)
}
