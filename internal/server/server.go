// Package server wraps http.Server with the timeouts and TLS settings the
// gateway runs with.
package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"payment-gateway/internal/common/logging"
)

// Server is the gateway's HTTP listener.
type Server struct {
	srv     *http.Server
	tlsCert string
	tlsKey  string
	logger  logging.Logger
}

// New creates a server for the given handler. TLS is enabled when both
// cert and key paths are set.
func New(handler http.Handler, port, tlsCert, tlsKey string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		tlsCert: tlsCert,
		tlsKey:  tlsKey,
		logger:  logger,
	}
}

// Start begins serving in a background goroutine. Listener failures other
// than a clean shutdown are reported on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		var err error
		if s.tlsCert != "" && s.tlsKey != "" {
			s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			s.logger.Info("Listening with TLS", logging.String("addr", s.srv.Addr))
			err = s.srv.ListenAndServeTLS(s.tlsCert, s.tlsKey)
		} else {
			s.logger.Info("Listening", logging.String("addr", s.srv.Addr))
			err = s.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}

// Shutdown stops accepting new connections and drains in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
