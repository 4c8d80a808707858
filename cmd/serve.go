package cmd

import (
	"time"

	"ocsync/core/loader"
	"ocsync/core/logger"
	"ocsync/core/middleware/auth"
	"ocsync/core/middleware/requestid"
	"ocsync/feature/status"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveMetrics bool
	serveTTL     time.Duration
)

// serveCmd runs the read-only status server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve status over HTTP",
	Long: `Starts a read-only HTTP server exposing:
  GET /health         200 when the remote is reachable and nothing needs attention
  GET /status         full status report (?format=json|yaml|text)
  GET /status/:name   one destination
  GET /metrics        Prometheus metrics

All routes except /health require the X-API-Key header when server.api_key is set.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", true, "Expose /metrics")
	serveCmd.Flags().DurationVar(&serveTTL, "cache-ttl", 5*time.Second, "How long a status report is reused")
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	zap.ReplaceGlobals(a.log)

	srv := a.cfg.Server
	if srv.ApiKey == "" && !srv.Loopback() {
		a.log.Warn("Serving without an API key on a non-loopback address", zap.String("addr", srv.Addr()))
	}

	rep, err := a.reporter(serveTTL)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	mgr := loader.NewManager(a.log)
	mgr.Register(status.NewFeature(rep, a.log, serveMetrics))

	app.Use(requestid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRequestID(a.log, c)
		start := time.Now()
		err := c.Next()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			l.Error("Request error", append(fields, zap.Error(err))...)
			return err
		}
		l.Debug("Request", fields...)
		return nil
	})

	app.Use(auth.New(auth.Config{ApiKey: srv.ApiKey, Public: []string{"/health"}}))

	if err := mgr.LoadAll(app); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting server", zap.String("addr", srv.Addr()))
		errCh <- app.Listen(srv.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}
	a.log.Info("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}
