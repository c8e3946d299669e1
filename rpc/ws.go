package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"omenchain/core/events"
)

const wsWriteTimeout = 10 * time.Second

// handleEventsWS streams committed core events to the client. A numeric
// cursor query parameter resumes after the given sequence; retained events
// past the cursor are replayed before live delivery starts.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	cursor := uint64(0)
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		cursor = parsed
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	backlog, live, cancel := s.node.Broker().Subscribe(cursor)
	defer cancel()

	for _, stored := range backlog {
		if err := writeStoredEvent(ctx, conn, stored); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case stored, ok := <-live:
			if !ok {
				// The broker dropped us for falling behind.
				return conn.Close(websocket.StatusTryAgainLater, "subscriber too slow")
			}
			if err := writeStoredEvent(ctx, conn, stored); err != nil {
				return err
			}
		}
	}
}

func writeStoredEvent(ctx context.Context, conn *websocket.Conn, stored events.StoredEvent) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload)
}
