// Package api exposes the HTTP control surface of TajerBot.
//
// It serves a health endpoint, a synchronous message dispatch endpoint used by
// channel-less integrations, read access to conversation state and the
// classification log, and mounts the Twilio inbound webhook when that channel
// is configured.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tajerhq/tajerbot/internal/messaging"
	"github.com/tajerhq/tajerbot/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown of in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration for the API server.
type Opts struct {
	Addr string
	// Webhook is mounted at POST /webhooks/twilio when non-nil.
	Webhook http.HandlerFunc
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithTwilioWebhook mounts an inbound Twilio webhook handler.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.Webhook = h }
}

// Server wires the dispatcher and store into HTTP handlers.
type Server struct {
	dispatcher *messaging.Dispatcher
	st         store.Store
	opts       Opts
	httpServer *http.Server
}

// NewServer creates an API server around the given dispatcher and store.
func NewServer(dispatcher *messaging.Dispatcher, st store.Store, options ...Option) *Server {
	opts := Opts{Addr: DefaultAddr}
	for _, opt := range options {
		opt(&opts)
	}
	return &Server{dispatcher: dispatcher, st: st, opts: opts}
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/v1/messages", s.messagesHandler)
	mux.HandleFunc("/v1/classifications", s.classificationsHandler)
	mux.HandleFunc("/v1/conversations/", s.conversationHandler)
	if s.opts.Webhook != nil {
		mux.HandleFunc("/webhooks/twilio", s.opts.Webhook)
	}
	return mux
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{Addr: s.opts.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.opts.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
