package status

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Feature serves the status API and metrics on the status server.
type Feature struct {
	reporter *Reporter
	log      *zap.Logger
	metrics  bool
}

// NewFeature creates the status feature. metrics enables /metrics.
func NewFeature(reporter *Reporter, log *zap.Logger, metrics bool) *Feature {
	return &Feature{reporter: reporter, log: log, metrics: metrics}
}

// Name returns the feature name.
func (f *Feature) Name() string {
	return "status"
}

// IsEnabled reports whether the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.reporter != nil
}

// Load registers the status routes and, when enabled, /metrics.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.reporter, f.log).RegisterRoutes(app)

	if f.metrics {
		registry := prometheus.NewRegistry()
		if err := registry.Register(NewCollector(f.reporter, f.log)); err != nil {
			return err
		}
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return err
		}
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	return nil
}
