package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/aegis/internal/events"
	"github.com/vadiminshakov/aegis/internal/services/appstate"
	"github.com/vadiminshakov/aegis/internal/storage/txjournal"
)

const (
	defaultJournalPollInterval = 2 * time.Second
	heartbeatInterval          = 30 * time.Second
)

type stateReader interface {
	Snapshot() appstate.State
	Subscribe() chan events.StateChange
	Unsubscribe(ch chan events.StateChange)
}

type journalReader interface {
	RecordsAfter(index uint64) ([]txjournal.Event, error)
}

// Server exposes the client state as JSON and the transaction journal as an SSE stream.
type Server struct {
	Addr    string
	State   stateReader
	Journal journalReader

	pollInterval time.Duration
	l            *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPollInterval sets how often the journal stream looks for new events.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewServer creates a new web server instance. A nil journal disables the transaction stream.
func NewServer(addr string, state stateReader, journal journalReader, l *zap.Logger, opts ...Option) *Server {
	if l == nil {
		l = zap.NewNop()
	}

	s := &Server{
		Addr:         addr,
		State:        state,
		Journal:      journal,
		pollInterval: defaultJournalPollInterval,
		l:            l,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/state/stream", s.handleStateStream)
	mux.HandleFunc("/transactions/stream", s.handleTransactionStream)

	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.shutdownOnDone(ctx, server)

	s.l.Info("web server listening", zap.String("addr", s.Addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with certificates obtained via ACME.
// A plain HTTP server on :80 answers the HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	challengeSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go s.shutdownOnDone(ctx, challengeSrv)
	go s.shutdownOnDone(ctx, httpsSrv)

	go func() {
		if err := challengeSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("acme challenge server failed", zap.Error(err))
		}
	}()

	s.l.Info("web server listening with automatic TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))

	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdownOnDone(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.l.Warn("server shutdown error", zap.String("addr", srv.Addr), zap.Error(err))
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.State == nil {
		http.Error(w, "state not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.State.Snapshot()); err != nil {
		s.l.Warn("encode state", zap.Error(err))
	}
}

func (s *Server) handleStateStream(w http.ResponseWriter, r *http.Request) {
	if s.State == nil {
		http.Error(w, "state not available", http.StatusServiceUnavailable)
		return
	}
	ch := s.State.Subscribe()
	defer s.State.Unsubscribe(ch)

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case change, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(change)
			if err != nil {
				s.l.Warn("encode state change", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", change.Version, payload)
			flusher.Flush()
		}
	}
}

func (s *Server) handleTransactionStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "transaction journal not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := startStream(w)
	if !ok {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	lastIndex := parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("lastEventId"))
	sendEvents := func() error {
		records, err := s.Journal.RecordsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, event := range records {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\nevent: transaction\ndata: %s\n\n", event.Index, payload)
			lastIndex = event.Index
		}
		if len(records) > 0 {
			flusher.Flush()
		}
		return nil
	}

	if err := sendEvents(); err != nil {
		s.l.Error("transaction stream initial load", zap.Error(err))
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", "failed to load transactions")
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendEvents(); err != nil {
				s.l.Warn("transaction stream poll", zap.Error(err))
			}
		}
	}
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return flusher, true
}

// parseLastEventID reads the journal index to resume from. The header wins over the query parameter.
func parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
