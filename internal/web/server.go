package web

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"net"
	"net/http"
	"time"
)

// StatusFunc returns the document served on /status.
type StatusFunc func() interface{}

type Server struct {
	Hub      *Hub
	config   components.WebConfigImpl
	status   StatusFunc
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewServer(cfg components.WebConfigImpl, status StatusFunc, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Hub:    NewHub(logger),
		config: cfg,
		status: status,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	mux.HandleFunc("/status", s.serveStatus)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("web server listen on %s: %w", s.config.Listen, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", listener.Addr().String()).Msg("HTTP server listening")
		errc <- srv.Serve(listener)
	}()

	select {
	case err := <-errc:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	s.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}

func (s *Server) close() {
	s.cancel()
	s.Hub.Close()
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.Hub.register(c) {
		conn.Close()
		return
	}

	go s.Hub.writePump(s.ctx, c)
	go s.Hub.readPump(c)
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode status")
	}
}

func (s *Server) Name() string {
	return "websocket"
}

// HandleEstimate broadcasts the display form of the estimate to every
// connected client.
func (s *Server) HandleEstimate(ctx context.Context, sessionId string, estimate models.PositionEstimate) error {
	payload, err := json.Marshal(estimate.ToDto(sessionId))
	if err != nil {
		return fmt.Errorf("encoding estimate: %w", err)
	}
	s.Hub.Broadcast(payload)
	return nil
}

var _ interfaces.IEstimateSink = (*Server)(nil)
