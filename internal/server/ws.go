package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"depflow/internal/metrics"
	"depflow/internal/snapshot"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsReadLimit = 4096
)

// handleWS streams every snapshot to a viewer: the current one right after
// the upgrade, then each new one as the controller publishes it. Viewers
// never send data; reads only serve close and pong frames.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	logger := s.logger.With("client", clientID, "remote", r.RemoteAddr)
	logger.Info("viewer connected")
	metrics.ClientConnected()
	defer func() {
		metrics.ClientDisconnected()
		logger.Info("viewer disconnected")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	states, unsubscribe := s.ctrl.Subscribe()
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		s.writeLoop(ctx, conn, s.ctrl.State(), states, logger)
	}()

	conn.SetReadLimit(wsReadLimit)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("viewer read failed", "error", err)
			}
			break
		}
	}
	cancel()
	<-writerDone
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, first *snapshot.State, states <-chan *snapshot.State, logger *slog.Logger) {
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	send := func(st *snapshot.State) bool {
		payload, err := json.Marshal(st.Document())
		if err != nil {
			logger.Warn("failed to encode snapshot", "version", st.Version, "error", err)
			return true
		}
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return false
		}
		return conn.WriteMessage(websocket.TextMessage, payload) == nil
	}

	if !send(first) {
		return
	}
	sent := first.Version
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if st.Version <= sent {
				continue
			}
			if !send(st) {
				return
			}
			sent = st.Version
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
