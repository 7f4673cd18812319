package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsLookupsAndSelections(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordCacheLookup("sealed", true)
	r.RecordCacheLookup("sealed", true)
	r.RecordCacheLookup("live", false)
	r.RecordSelection(3, true)
	r.RecordSelection(1, false)
	r.RecordError("source")
	r.RecordLatency("fetch_metadata", 0.02)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				counts[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				counts[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 3.0, counts["chartfeed_chunk_cache_lookups_total"])
	assert.Equal(t, 2.0, counts["chartfeed_chunk_selections_total"])
	assert.Equal(t, 2.0, counts["chartfeed_chunk_selection_size"])
	assert.Equal(t, 1.0, counts["chartfeed_errors_total"])
	assert.Equal(t, 1.0, counts["chartfeed_operation_duration_seconds"])
}
