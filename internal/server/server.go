// ABOUTME: HTTP control server for the recorder
// ABOUTME: Start/stop/status API, artifact download, websocket status feed and metrics
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/internal/discovery"
	"github.com/Resonate-Protocol/resonate-recorder/internal/metrics"
	"github.com/Resonate-Protocol/resonate-recorder/internal/version"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/recorder"
)

// Controller is the recorder surface the server drives
type Controller interface {
	Start(ctx context.Context) error
	Stop() (*artifact.Artifact, error)
	State() recorder.State
	Stats() recorder.Stats
	LastArtifact() *artifact.Artifact
}

// Config holds server configuration
type Config struct {
	Address    string
	Port       int
	Name       string
	EnableMDNS bool
}

// Server exposes a recorder over HTTP
type Server struct {
	config     Config
	controller Controller
	hub        *Hub
	metrics    *metrics.Metrics
	logger     *zap.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer  *http.Server
	mdnsManager *discovery.Manager

	mu       sync.Mutex
	addr     net.Addr
	stopChan chan struct{}
	stopOnce sync.Once
}

// ArtifactInfo describes a finished recording
type ArtifactInfo struct {
	ID        string    `json:"id"`
	MIMEType  string    `json:"mime_type"`
	Size      int       `json:"size"`
	HumanSize string    `json:"human_size"`
	Chunks    int       `json:"chunks"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

// NewArtifactInfo summarizes art for API responses and events
func NewArtifactInfo(art *artifact.Artifact) ArtifactInfo {
	return ArtifactInfo{
		ID:        art.ID(),
		MIMEType:  art.MIMEType(),
		Size:      art.Size(),
		HumanSize: art.HumanSize(),
		Chunks:    art.Chunks(),
		Filename:  art.Filename(),
		CreatedAt: art.CreatedAt(),
		URL:       "/api/recordings/latest",
	}
}

// StatusResponse is returned by the status, start and stop endpoints
type StatusResponse struct {
	State    string         `json:"state"`
	Stats    recorder.Stats `json:"stats"`
	Artifact *ArtifactInfo  `json:"artifact,omitempty"`
	Warning  string         `json:"warning,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New creates a server. hub and m may be nil.
func New(config Config, controller Controller, hub *Hub, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(logger, func() string { return controller.State().String() })
	}

	s := &Server{
		config:     config,
		controller: controller,
		hub:        hub,
		metrics:    m,
		logger:     logger,
		mux:        http.NewServeMux(),
		stopChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network control surface; browsers on the LAN are expected
				origin := r.Header.Get("Origin")
				if origin != "" {
					logger.Debug("accepting websocket origin", zap.String("origin", origin))
				}
				return true
			},
		},
	}

	s.mux.HandleFunc("POST /api/start", s.handleStart)
	s.mux.HandleFunc("POST /api/stop", s.handleStop)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/recordings/latest", s.handleLatest)
	s.mux.HandleFunc("GET /api/version", s.handleVersion)
	s.mux.HandleFunc("GET /ws/status", s.handleWebSocket)
	if m != nil {
		s.mux.Handle("GET /metrics", m.Handler())
	}

	return s
}

// Hub returns the status feed
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with request instrumentation
func (s *Server) Handler() http.Handler {
	if s.metrics == nil {
		return s.mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		s.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(rec.status), time.Since(start))
	})
}

// Addr returns the listening address once Start has bound it
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Info("control server listening",
		zap.String("name", s.config.Name),
		zap.Stringer("addr", listener.Addr()))

	if s.config.EnableMDNS {
		port := listener.Addr().(*net.TCPAddr).Port
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        port,
			Info:        []string{"version=" + version.Version},
		}, s.logger)
		if err := s.mdnsManager.Advertise(); err != nil {
			s.logger.Warn("failed to start mDNS advertisement", zap.Error(err))
		} else {
			s.logger.Info("mDNS advertisement started", zap.String("service", discovery.ServiceType))
		}
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		s.logger.Info("control server shutting down")
	case err := <-errChan:
		s.logger.Error("control server error", zap.Error(err))
		serverErr = err
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("control server shutdown error", zap.Error(err))
	}

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if state := s.controller.State(); state != recorder.StateIdle {
		s.writeError(w, http.StatusConflict, "invalid_state",
			fmt.Sprintf("cannot start while %s", state))
		return
	}

	// Device access ends with the request; the session itself outlives it
	if err := s.controller.Start(r.Context()); err != nil {
		s.logger.Warn("start request failed", zap.Error(err))
		switch {
		case errors.Is(err, recorder.ErrDeviceUnavailable):
			s.writeError(w, http.StatusServiceUnavailable, "device_unavailable", recorder.StatusDenied)
		case errors.Is(err, recorder.ErrUnsupportedPlatform):
			s.writeError(w, http.StatusNotImplemented, "unsupported_platform", recorder.StatusNoInput)
		case errors.Is(err, recorder.ErrEncoderInit):
			s.writeError(w, http.StatusInternalServerError, "encoder_init", recorder.StatusNoRecording)
		default:
			s.writeError(w, http.StatusInternalServerError, "start_failed", recorder.StatusDenied)
		}
		return
	}

	if state := s.controller.State(); state != recorder.StateCapturing {
		s.writeError(w, http.StatusConflict, "invalid_state",
			fmt.Sprintf("recorder is %s", state))
		return
	}
	s.writeJSON(w, http.StatusOK, s.statusResponse())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if state := s.controller.State(); state != recorder.StateCapturing {
		s.writeError(w, http.StatusConflict, "invalid_state",
			fmt.Sprintf("cannot stop while %s", state))
		return
	}

	art, err := s.controller.Stop()
	if art == nil && err == nil {
		s.writeError(w, http.StatusConflict, "invalid_state", "recording is already stopping")
		return
	}

	resp := s.statusResponse()
	if err != nil {
		s.logger.Warn("stop finished with errors", zap.Error(err))
		resp.Warning = recorder.StatusStoppedWithErrors
	}
	if art != nil {
		info := NewArtifactInfo(art)
		resp.Artifact = &info
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.statusResponse())
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	art := s.controller.LastArtifact()
	if art == nil {
		s.writeError(w, http.StatusNotFound, "no_recording", "no recording has been made yet")
		return
	}

	w.Header().Set("Content-Type", art.MIMEType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename()))
	http.ServeContent(w, r, art.Filename(), art.CreatedAt(), art.Reader())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"product":      version.Product,
		"manufacturer": version.Manufacturer,
		"version":      version.Version,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	s.hub.Serve(conn)
}

func (s *Server) statusResponse() StatusResponse {
	stats := s.controller.Stats()
	resp := StatusResponse{State: stats.State, Stats: stats}
	if art := s.controller.LastArtifact(); art != nil {
		info := NewArtifactInfo(art)
		resp.Artifact = &info
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// statusRecorder captures the response code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade through the instrumentation wrapper
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
