// internal/feed/feed.go

// Package feed streams launchpad events to websocket subscribers. Every event
// published on the bus goes out as one JSON text message to every connected
// client; the feed is strictly one-way.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/events"
)

// Server is the websocket feed.
type Server struct {
	logger   *zap.Logger
	bus      *events.Bus
	hub      *hub
	addr     string
	upgrader websocket.Upgrader
}

// NewServer creates a feed server listening on addr once Run is called.
func NewServer(logger *zap.Logger, bus *events.Bus, addr string) *Server {
	log := logger.Named("feed")
	return &Server{
		logger: log,
		bus:    bus,
		hub:    newHub(log),
		addr:   addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed carries public market data.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the feed's HTTP handler, with the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run subscribes to the bus, serves until ctx is canceled, then disconnects
// all clients.
func (s *Server) Run(ctx context.Context) error {
	for _, typ := range []events.EventType{
		events.TokenLaunched,
		events.PairCreated,
		events.TradeExecuted,
		events.TokenGraduated,
	} {
		sub := s.bus.Subscribe(typ, events.HandlerFunc(s.forward))
		defer sub.Unsubscribe()
	}

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go s.hub.run(hubCtx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Feed listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		cancelHub()
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) forward(_ context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to encode event",
			zap.String("event_type", string(event.Type())), zap.Error(err))
		return err
	}
	select {
	case s.hub.broadcast <- data:
	default:
		s.logger.Warn("Feed broadcast buffer full, dropping event",
			zap.String("event_type", string(event.Type())))
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, sendBuffer)}
	s.hub.register <- c
	go c.writePump()
	go c.readPump()
}
