package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/security"
)

// httpShutdownTimeout bounds how long in-flight requests may run during
// graceful shutdown.
const httpShutdownTimeout = 5 * time.Second

// startHTTP mounts the router plus /metrics, wraps everything in the security
// middleware and starts the listener. Listener failures after startup are
// reported on the returned channel.
func (a *App) startHTTP(ctx context.Context) (<-chan error, error) {
	router := a.srv.Router()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	sec := security.Middleware(security.Config{
		AllowedOrigins: a.cfg.Security.CORS.AllowedOrigins,
		RPS:            a.cfg.Security.RateLimit.RPS,
		Burst:          a.cfg.Security.RateLimit.Burst,
	})

	a.httpSrv = &http.Server{
		Addr:        a.cfg.Addr(),
		Handler:     sec(router),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", a.cfg.Addr(), "backend", a.cfg.Storage.Backend)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh, nil
}

func (a *App) shutdownHTTP() {
	if a.httpSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := a.httpSrv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
}
