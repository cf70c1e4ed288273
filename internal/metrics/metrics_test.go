package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/sigdb"
)

type fixedStats engine.Stats

func (f fixedStats) Stats() engine.Stats { return engine.Stats(f) }

func TestCollector_Values(t *testing.T) {
	c := NewCollector("adder", fixedStats{Nodes: 40, Groups: 7, Calls: 3, Merges: 2})

	expected := `
# HELP qtree_groups Live interior groups.
# TYPE qtree_groups gauge
qtree_groups{tree="adder"} 7
# HELP qtree_calls_total Top-level Normalizer calls.
# TYPE qtree_calls_total counter
qtree_calls_total{tree="adder"} 3
# HELP qtree_merges_total Group merges.
# TYPE qtree_merges_total counter
qtree_merges_total{tree="adder"} 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"qtree_groups", "qtree_calls_total", "qtree_merges_total")
	require.NoError(t, err)
	assert.Equal(t, 12, testutil.CollectAndCount(c))
}

func TestCollector_ReadsLiveTree(t *testing.T) {
	tree, err := engine.New(sigdb.New(), engine.Layout{NumKeys: 3})
	require.NoError(t, err)
	c := NewCollector("live", tree)

	before := gathered(t, c, "qtree_calls_total")
	_, err = tree.LoadStringSafe("ab&c^")
	require.NoError(t, err)
	after := gathered(t, c, "qtree_calls_total")

	assert.Equal(t, 0.0, before)
	assert.Equal(t, 2.0, after)
}

// gathered returns the single sample of family name.
func gathered(t *testing.T, c *Collector, name string) float64 {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			m := mf.GetMetric()[0]
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("no family %s", name)
	return 0
}

func TestNewRegistry_TwoTrees(t *testing.T) {
	reg, err := NewRegistry(map[string]StatsSource{
		"a": fixedStats{Groups: 1},
		"b": fixedStats{Groups: 2},
	})
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	var groups *dto.MetricFamily
	for _, mf := range mfs {
		if mf.GetName() == "qtree_groups" {
			groups = mf
		}
	}
	require.NotNil(t, groups)
	require.Len(t, groups.GetMetric(), 2)

	got := map[string]float64{}
	for _, m := range groups.GetMetric() {
		require.Len(t, m.GetLabel(), 1)
		got[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"a": 1, "b": 2}, got)
}

func TestWriteText(t *testing.T) {
	reg, err := NewRegistry(map[string]StatsSource{"x": fixedStats{Anomalies: 4}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, "# TYPE qtree_anomalies_total counter\n")
	assert.Contains(t, out, `qtree_anomalies_total{tree="x"} 4`)
	assert.Contains(t, out, `qtree_nodes{tree="x"} 0`)
}
