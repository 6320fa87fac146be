package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"pocketbook/internal/interfaces/scheduler"
	"pocketbook/internal/shared/config"
	"pocketbook/internal/shared/middleware"
)

const redirectAddr = ":80"

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler      http.Handler
	Addr         string
	TLSEnabled   bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
	AllowedHosts []string
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:      handler,
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		TLSEnabled:   cfg.TLS.Enabled,
		CertPath:     cfg.TLS.CertPath,
		KeyPath:      cfg.TLS.KeyPath,
		RedirectHTTP: cfg.TLS.RedirectHTTP,
		AllowedHosts: cfg.Server.AllowedHosts,
	}
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServers starts the API listener and, when TLS redirect is on, the
// plain HTTP redirect listener. The redirect server is nil otherwise.
func StartServers(scfg ServerConfig) (*http.Server, *http.Server) {
	srv := newHTTPServer(scfg.Addr, scfg.Handler)

	var redirectSrv *http.Server
	if scfg.TLSEnabled && scfg.RedirectHTTP {
		redirectSrv = createRedirectServer(scfg.AllowedHosts)
		go serve("redirect", redirectSrv.Addr, redirectSrv.ListenAndServe, false)
	}

	listen := srv.ListenAndServe
	name := "http"
	if scfg.TLSEnabled {
		name = "https"
		listen = func() error { return srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath) }
	}
	go serve(name, srv.Addr, listen, true)

	return srv, redirectSrv
}

// serve runs listen until the server is shut down. A failure of the main
// listener ends the process.
func serve(name, addr string, listen func() error, fatal bool) {
	slog.Info("Server starting", "server", name, "addr", addr)
	err := listen()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	slog.Error("Server error", "server", name, "error", err)
	if fatal {
		os.Exit(1)
	}
}

// GracefulShutdown stops accepting requests before stopping the scheduler,
// so in-flight requests can still publish events. Queued events are then
// drained before the broker, database and telemetry are closed.
func GracefulShutdown(srv, redirectSrv *http.Server, sched *scheduler.Scheduler, deps *Dependencies, telemetryShutdown func(context.Context) error, timeout time.Duration) {
	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range []*http.Server{redirectSrv, srv} {
		if s == nil {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down server", "addr", s.Addr, "error", err)
		}
	}

	if sched != nil {
		sched.Shutdown(timeout)
	}
	deps.closeWithTimeout(timeout)

	if telemetryShutdown != nil {
		if err := telemetryShutdown(ctx); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}

	slog.Info("Server stopped")
}

// createRedirectServer answers plain HTTP with a permanent redirect to the
// same path over HTTPS. Hosts outside the allowed list get 400 so the
// redirect cannot be pointed at another site.
func createRedirectServer(allowedHosts []string) *http.Server {
	return newHTTPServer(redirectAddr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = r.Host
		}
		if !middleware.IsHostAllowed(host, allowedHosts) {
			http.Error(w, "Invalid host", http.StatusBadRequest)
			return
		}

		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
			if strings.Contains(h, ":") {
				host = "[" + h + "]"
			}
		}
		http.Redirect(w, r, "https://"+host+r.RequestURI, http.StatusMovedPermanently)
	}))
}
