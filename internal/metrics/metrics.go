// Package metrics exposes engine activity counters in the Prometheus
// exposition format.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/qtree/internal/engine"
)

const namespace = "qtree"

// TreeLabel names the tree a sample belongs to.
const TreeLabel = "tree"

// StatsSource reports the current counters of a tree.
type StatsSource interface {
	Stats() engine.Stats
}

type stat struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(engine.Stats) int
}

// Collector reads a tree's Stats on every scrape.
type Collector struct {
	source StatsSource
	stats  []stat
}

// NewCollector returns a collector for source, labelled with name.
func NewCollector(name string, source StatsSource) *Collector {
	c := &Collector{source: source}
	labels := prometheus.Labels{TreeLabel: name}
	gauge := func(n, help string, v func(engine.Stats) int) {
		c.stats = append(c.stats, stat{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", n), help, nil, labels),
			kind:  prometheus.GaugeValue,
			value: v,
		})
	}
	counter := func(n, help string, v func(engine.Stats) int) {
		c.stats = append(c.stats, stat{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", n+"_total"), help, nil, labels),
			kind:  prometheus.CounterValue,
			value: v,
		})
	}

	gauge("nodes", "Arena cells in use.", func(s engine.Stats) int { return s.Nodes })
	gauge("groups", "Live interior groups.", func(s engine.Stats) int { return s.Groups })
	counter("calls", "Top-level Normalizer calls.", func(s engine.Stats) int { return s.Calls })
	counter("members_created", "Member nodes linked.", func(s engine.Stats) int { return s.Created })
	counter("members_orphaned", "Member nodes unlinked.", func(s engine.Stats) int { return s.Orphaned })
	counter("merges", "Group merges.", func(s engine.Stats) int { return s.Merges })
	counter("collapses", "Groups collapsed into a terminal.", func(s engine.Stats) int { return s.Collapses })
	counter("relocations", "Groups moved to a fresh header.", func(s engine.Stats) int { return s.Relocations })
	counter("oracle_lookups", "Second-stage signature lookups.", func(s engine.Stats) int { return s.Lookups })
	counter("oracle_misses", "Signature lookups without an encoding.", func(s engine.Stats) int { return s.Misses })
	counter("cyclic_refusals", "Members refused because they would close a cycle.", func(s engine.Stats) int { return s.Cyclic })
	counter("anomalies", "Fallback repair passes.", func(s engine.Stats) int { return s.Anomalies })
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.stats {
		ch <- s.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()
	for _, s := range c.stats {
		ch <- prometheus.MustNewConstMetric(s.desc, s.kind, float64(s.value(st)))
	}
}

// NewRegistry returns a registry holding one collector per named tree.
// Trees are not safe for concurrent use, so the registry must be gathered
// by the goroutine that owns them.
func NewRegistry(trees map[string]StatsSource) (*prometheus.Registry, error) {
	reg := prometheus.NewPedanticRegistry()
	for name, t := range trees {
		if err := reg.Register(NewCollector(name, t)); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}
	return reg, nil
}

// WriteText gathers g and writes every family in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
