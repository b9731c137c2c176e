package metrics

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workterm_sessions_active",
			Help: "Number of active terminal sessions",
		},
	)

	SessionCreatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workterm_session_creates_total",
			Help: "Total terminal sessions created",
		},
	)

	SessionClosesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workterm_session_closes_total",
			Help: "Total terminal sessions closed",
		},
	)

	PTYBytesReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workterm_pty_bytes_read_total",
			Help: "Total bytes read from PTY masters",
		},
	)

	PTYBytesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workterm_pty_bytes_written_total",
			Help: "Total bytes written to PTY masters",
		},
	)

	ViewersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workterm_viewers_active",
			Help: "Number of attached WebSocket viewers",
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workterm_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsActive,
		SessionCreatesTotal,
		SessionClosesTotal,
		PTYBytesReadTotal,
		PTYBytesWrittenTotal,
		ViewersActive,
		HTTPRequestsTotal,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoMiddleware returns Echo middleware that instruments HTTP requests.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()

			return err
		}
	}
}

// StartMetricsServer starts a standalone HTTP server serving /metrics on
// the given address.
func StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		// Metrics are non-critical; don't crash the server.
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("workterm: metrics server error: %v", err)
		}
	}()
	return srv
}
