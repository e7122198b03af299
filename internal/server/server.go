// Package server exposes the intake workflow over HTTP. Every endpoint
// resolves the caller's case and clinician identity, opens a session
// through the runtime, and renders the resulting snapshot as JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/artifactstore"
	"github.com/wardlight/intake/internal/session"
)

const maxBodyBytes = 1 << 20

// Settings holds listener configuration.
type Settings struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	PinLength    int
}

// Server wraps the HTTP listener and session endpoints.
type Server struct {
	settings  Settings
	runtime   *session.Runtime
	logger    agent.Logger
	artifacts *artifactstore.Store

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l agent.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithArtifactStore enables durable storage for uploaded artifact
// payloads. Without one, uploads are returned as data URIs only.
func WithArtifactStore(store *artifactstore.Store) Option {
	return func(s *Server) { s.artifacts = store }
}

// New prepares a server over the given session runtime.
func New(settings Settings, runtime *session.Runtime, opts ...Option) *Server {
	if settings.ReadTimeout == 0 {
		settings.ReadTimeout = 15 * time.Second
	}
	if settings.WriteTimeout == 0 {
		settings.WriteTimeout = 60 * time.Second
	}
	if settings.IdleTimeout == 0 {
		settings.IdleTimeout = 120 * time.Second
	}
	s := &Server{
		settings: settings,
		runtime:  runtime,
		logger:   agent.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the route table, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/session", s.handleSnapshot)
	mux.HandleFunc("/api/session/bio", s.handleBio)
	mux.HandleFunc("/api/session/bio/confirm", s.handleConfirm)
	mux.HandleFunc("/api/session/events/", s.handleEvent)
	mux.HandleFunc("/api/session/pin", s.handlePin)
	mux.HandleFunc("/api/session/upload", s.handleUpload)
	return mux
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server: already started")
	}
	listener, err := net.Listen("tcp", s.settings.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.settings.ListenAddr, err)
	}
	s.listener = listener
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		srv.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = srv
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve error", "err", err)
		}
	}()
	s.logger.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.server = nil
	s.listener = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, method := range allowed {
		w.Header().Add("Allow", method)
	}
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
