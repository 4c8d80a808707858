package status

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ocsync/core/lock"
	"ocsync/core/reconcile"
)

const namespace = "ocsync"

// Collector exports report gauges to Prometheus. Every scrape reads the
// reporter, so values are as fresh as its cache allows.
type Collector struct {
	reporter *Reporter
	timeout  time.Duration
	log      *zap.Logger

	remoteReachable *prometheus.Desc
	mountMounted    *prometheus.Desc
	destinations    *prometheus.Desc
	failures        *prometheus.Desc
	running         *prometheus.Desc
	scheduled       *prometheus.Desc
	seeded          *prometheus.Desc
	scrapeErrors    prometheus.Counter
}

// NewCollector creates a Collector.
func NewCollector(reporter *Reporter, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	perDest := []string{"destination"}
	return &Collector{
		reporter: reporter,
		timeout:  30 * time.Second,
		log:      log,

		remoteReachable: prometheus.NewDesc(namespace+"_remote_reachable",
			"Whether the shared remote can be listed (1) or not (0).", nil, nil),
		mountMounted: prometheus.NewDesc(namespace+"_mount_mounted",
			"Whether the browse mount is mounted.", nil, nil),
		destinations: prometheus.NewDesc(namespace+"_destinations",
			"Number of registered destinations.", nil, nil),
		failures: prometheus.NewDesc(namespace+"_destination_failures",
			"Consecutive failed sync runs.", perDest, nil),
		running: prometheus.NewDesc(namespace+"_destination_running",
			"Whether a live process holds the destination lock.", perDest, nil),
		scheduled: prometheus.NewDesc(namespace+"_destination_scheduled",
			"Whether a periodic trigger is installed.", perDest, nil),
		seeded: prometheus.NewDesc(namespace+"_destination_seeded",
			"Whether the destination has an established baseline.", perDest, nil),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_scrape_errors_total",
			Help:      "Status reports that could not be built during a scrape.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.remoteReachable
	ch <- c.mountMounted
	ch <- c.destinations
	ch <- c.failures
	ch <- c.running
	ch <- c.scheduled
	ch <- c.seeded
	c.scrapeErrors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	rep, err := c.reporter.Get(ctx)
	if err != nil {
		c.log.Warn("Failed to build status for metrics", zap.Error(err))
		c.scrapeErrors.Inc()
		c.scrapeErrors.Collect(ch)
		return
	}
	c.scrapeErrors.Collect(ch)

	ch <- prometheus.MustNewConstMetric(c.remoteReachable, prometheus.GaugeValue, boolValue(rep.Remote.Reachable))
	ch <- prometheus.MustNewConstMetric(c.mountMounted, prometheus.GaugeValue, boolValue(rep.Mount.Mounted))
	ch <- prometheus.MustNewConstMetric(c.destinations, prometheus.GaugeValue, float64(len(rep.Destinations)))

	for _, d := range rep.Destinations {
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.GaugeValue, float64(d.Failures), d.Name)
		ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, boolValue(d.Lock == lock.StateRunning), d.Name)
		ch <- prometheus.MustNewConstMetric(c.scheduled, prometheus.GaugeValue, boolValue(d.Scheduled), d.Name)
		ch <- prometheus.MustNewConstMetric(c.seeded, prometheus.GaugeValue, boolValue(d.State != reconcile.Unseeded), d.Name)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
