// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package events

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"grimm.is/linkmgr/internal/logging"
)

// Relay pushes hub events to websocket subscribers so out-of-process
// front-ends can observe device state.
type Relay struct {
	hub      *Hub
	logger   *logging.Logger
	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewRelay creates a relay bound to the hub.
func NewRelay(hub *Hub, logger *logging.Logger) *Relay {
	if logger == nil {
		logger = logging.WithComponent("events")
	}
	return &Relay{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the HTTP routes served by the relay.
func (r *Relay) Handler() http.Handler {
	m := mux.NewRouter()
	m.HandleFunc("/events", r.handleEvents)
	return m
}

// ListenAndServe serves the relay until ctx is cancelled.
func (r *Relay) ListenAndServe(ctx context.Context, addr string) error {
	r.srv = &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.srv.Shutdown(shutdownCtx)
	}()

	r.logger.Info("Event relay listening", "addr", addr)
	err := r.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (r *Relay) handleEvents(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.WithError(err).Warn("Websocket upgrade failed", "remote", req.RemoteAddr)
		return
	}
	defer conn.Close()

	ch, cancel := r.hub.Subscribe()
	defer cancel()

	r.logger.Debug("Subscriber connected", "remote", req.RemoteAddr)

	// Discard inbound frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			r.logger.Debug("Subscriber dropped", "remote", req.RemoteAddr)
			return
		}
	}
}
