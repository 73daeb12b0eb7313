package observability

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/tphakala/wavenc/internal/conf"
	"github.com/tphakala/wavenc/internal/errors"
	"github.com/tphakala/wavenc/internal/logger"
	metricspkg "github.com/tphakala/wavenc/internal/observability/metrics"
)

// Endpoint serves /metrics for the lifetime of a batch run.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	ready         chan struct{}
	addr          net.Addr
}

// NewEndpoint creates an endpoint for the configured listen address.
// It returns an error if metrics are disabled in settings.
func NewEndpoint(settings *conf.MetricsSettings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Enabled {
		return nil, errors.NewStd("metrics endpoint not enabled in settings")
	}

	return &Endpoint{
		listenAddress: settings.Listen,
		metrics:       metrics,
		ready:         make(chan struct{}),
	}, nil
}

// Start binds the listener and serves until quitChan is closed.
// The serving and shutdown goroutines are tracked by wg.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	listener, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryConfiguration).
			Context("listen", e.listenAddress).
			Build()
	}
	e.addr = listener.Addr()
	close(e.ready)

	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricspkg.ShutdownTimeout,
	}

	wg.Go(func() {
		log().Info("metrics endpoint starting", logger.String("address", e.addr.String()))
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log().Error("metrics HTTP server error", logger.Error(err))
		}
	})

	wg.Go(func() { e.gracefulShutdown(quitChan) })
	return nil
}

// Addr returns the bound address once Start has succeeded
func (e *Endpoint) Addr() net.Addr {
	<-e.ready
	return e.addr
}

// gracefulShutdown waits for the quit signal and shuts down the server gracefully.
func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	log().Info("stopping metrics endpoint")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		log().Error("metrics server shutdown error", logger.Error(err))
	}
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
