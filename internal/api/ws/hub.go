package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/server/middleware"
	redisstore "github.com/casefront/engage/internal/store/redis"
)

// Hub manages WebSocket connections backed by Redis pub/sub. Staff watch
// intake conversations live while the client is still typing.
type Hub struct {
	pubsub   *redisstore.PubSub
	sessions domain.SessionRepository
}

// NewHub creates a new WebSocket hub.
func NewHub(pubsub *redisstore.PubSub, sessions domain.SessionRepository) *Hub {
	return &Hub{pubsub: pubsub, sessions: sessions}
}

// ServeSession handles WebSocket connections for one intake session.
// Subscribes to Redis channel "intake:<sessionID>" and streams turn events
// to the connected reviewer. The session must belong to the caller's firm.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request) {
	firmID, ok := middleware.FirmIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing firm", http.StatusBadRequest)
		return
	}

	sessionIDStr := chi.URLParam(r, "sessionID")
	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	s, err := h.sessions.GetByID(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	if s.FirmID != firmID {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	channel := redisstore.IntakeChannel(sessionID)

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	h.pump(ctx, conn, messages)
}

// ServeFirm handles WebSocket connections for the firm-wide event feed.
// Subscribes to Redis channel "firm:<firmID>". Handoff and conflict events
// for every session in the firm arrive here.
func (h *Hub) ServeFirm(w http.ResponseWriter, r *http.Request) {
	firmID, ok := middleware.FirmIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing firm", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	channel := redisstore.FirmChannel(firmID)

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	h.pump(ctx, conn, messages)
}

func (h *Hub) pump(ctx context.Context, conn *websocket.Conn, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// Publish sends an event payload to a Redis channel. This is a convenience
// wrapper for use by API handlers when mutating session state.
func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := h.pubsub.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("ws.Hub.Publish: %w", err)
	}
	return nil
}
