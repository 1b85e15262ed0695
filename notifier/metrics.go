package notifier

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// RunStats are the per-run counters, flushed to the metrics textfile
// for the node_exporter textfile collector.
type RunStats struct {
	AddressesConsidered int
	AddressesSelected   int
	BucketsSent         int
	MailsSent           int
	RolledBack          bool
}

type RunMetrics struct {
	registry *prometheus.Registry

	lastRun    prometheus.Gauge
	duration   prometheus.Gauge
	considered prometheus.Gauge
	selected   prometheus.Gauge
	buckets    prometheus.Gauge
	mails      prometheus.Gauge
	rolledBack prometheus.Gauge
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{registry: prometheus.NewRegistry()}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pager_notifier",
			Name:      name,
			Help:      help,
		})
		m.registry.MustRegister(g)
		return g
	}
	m.lastRun = gauge("last_run_timestamp_seconds", "Unix time of the last completed run.")
	m.duration = gauge("run_duration_seconds", "Wall time of the last run.")
	m.considered = gauge("addresses_considered", "Addresses evaluated in the last run.")
	m.selected = gauge("addresses_selected", "Addresses placed into a dispatch bucket in the last run.")
	m.buckets = gauge("buckets_dispatched", "Non-empty buckets dispatched in the last run.")
	m.mails = gauge("mails_sent", "Recipient deliveries in the last run.")
	m.rolledBack = gauge("rolled_back", "1 when the last run rolled back its speculative version.")
	return m
}

func (m *RunMetrics) Observe(stats *RunStats, start, end time.Time) {
	m.lastRun.Set(float64(end.Unix()))
	m.duration.Set(end.Sub(start).Seconds())
	m.considered.Set(float64(stats.AddressesConsidered))
	m.selected.Set(float64(stats.AddressesSelected))
	m.buckets.Set(float64(stats.BucketsSent))
	m.mails.Set(float64(stats.MailsSent))
	if stats.RolledBack {
		m.rolledBack.Set(1)
	} else {
		m.rolledBack.Set(0)
	}
}

// WriteTextfile renders the registry in text exposition format and
// renames it into place so the collector never reads a partial file.
func (m *RunMetrics) WriteTextfile(dir string) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "pager_notifier.*.prom")
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(tmp, mf); err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, "pager_notifier.prom"))
}
