package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skobkin/serialwifi/internal/bus"
	"github.com/skobkin/serialwifi/internal/console"
	"github.com/skobkin/serialwifi/internal/domain"
	"github.com/skobkin/serialwifi/internal/transport"
)

//go:embed static
var staticFiles embed.FS

const shutdownTimeout = 5 * time.Second

// Controller is the console surface driven by the HTTP API.
type Controller interface {
	Connect(ctx context.Context, opts console.ConnectOptions) error
	Disconnect() error
	SendLine(ctx context.Context, text string) error
	QueryIP(ctx context.Context) error
	QueryMACAddress(ctx context.Context) error
	SetWiFiCredentials(ctx context.Context, ssid, pass string) error
}

type SnapshotSource interface {
	Snapshot() console.Snapshot
}

// TranscriptSource reads and clears the persisted transcript.
type TranscriptSource interface {
	RecentTranscript(ctx context.Context, limit int) ([]domain.TranscriptEntry, error)
	ClearTranscript(ctx context.Context) (int64, error)
}

type Dependencies struct {
	Controller Controller
	Session    SnapshotSource
	// Transcript is optional; without it transcript endpoints answer 404.
	Transcript TranscriptSource
	Bus        bus.MessageBus
	// ListPorts defaults to transport.ListPorts.
	ListPorts func() ([]transport.PortInfo, error)
	Logger    *slog.Logger
}

type Server struct {
	deps     Dependencies
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func NewServer(deps Dependencies) (*Server, error) {
	if deps.Controller == nil || deps.Session == nil || deps.Bus == nil {
		return nil, errors.New("web server requires controller, session and bus")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default().With("component", "web")
	}
	if deps.ListPorts == nil {
		deps.ListPorts = transport.ListPorts
	}

	s := &Server{
		deps:   deps,
		hub:    NewHub(deps.Bus, deps.Session.Snapshot, deps.Logger.With("component", "web.hub")),
		logger: deps.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux: http.NewServeMux(),
	}
	if err := s.routes(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) routes() error {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("load static assets: %w", err)
	}

	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, assets, "index.html")
	})
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(assets))))
	s.mux.HandleFunc("GET /ws", s.handleWS)

	s.mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/v1/ports", s.handlePorts)
	s.mux.HandleFunc("POST /api/v1/connect", sameOriginJSON(s.handleConnect))
	s.mux.HandleFunc("POST /api/v1/disconnect", sameOriginJSON(s.handleDisconnect))
	s.mux.HandleFunc("POST /api/v1/send", sameOriginJSON(s.handleSend))
	s.mux.HandleFunc("POST /api/v1/rpc/get_ip", sameOriginJSON(s.handleGetIP))
	s.mux.HandleFunc("POST /api/v1/rpc/get_mac_address", sameOriginJSON(s.handleGetMACAddress))
	s.mux.HandleFunc("POST /api/v1/rpc/set_wifi_creds", sameOriginJSON(s.handleSetWiFiCreds))
	s.mux.HandleFunc("GET /api/v1/log", s.handleLog)
	s.mux.HandleFunc("GET /api/v1/transcript", s.handleTranscript)
	s.mux.HandleFunc("DELETE /api/v1/transcript", sameOriginJSON(s.handleClearTranscript))

	return nil
}

// Start runs the websocket hub. It must be called before serving.
func (s *Server) Start(ctx context.Context) {
	s.hub.Start(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.Start(ctx)

	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	s.logger.Info("web console listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}

	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)

		return
	}
	s.hub.Register(conn)
}
