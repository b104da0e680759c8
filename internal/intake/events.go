package intake

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event types streamed to the staff review surfaces. Per-session channels
// carry the message stream; the firm-wide channel carries milestones.
const (
	EventMessage          = "message"
	EventConflictDetected = "conflict_detected"
	EventReadyForHandoff  = "ready_for_handoff"
	EventSecured          = "secured"
)

// IntakeEvent is the payload published over pub/sub for real-time intake
// session updates. The websocket hub relays it verbatim.
type IntakeEvent struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`
	Data      any       `json:"data,omitempty"`
}

// publishEvent marshals and publishes one event. Best effort: a nil
// publisher is a no-op and failures are logged, never propagated, so live
// review outages cannot fail an intake turn.
func publishEvent(ctx context.Context, p Publisher, channel string, ev IntakeEvent) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	if err := p.Publish(ctx, channel, payload); err != nil {
		log.Warn().Err(err).Str("channel", channel).Str("type", ev.Type).Msg("intake: publish event failed")
	}
}
