package realtime

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roudra323/TeamFlow/internal/metrics"
)

// Rooms scopes broadcasts to workspaces on top of a Transport.
type Rooms struct {
	transport Transport
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

func NewRooms(transport Transport, log zerolog.Logger, m *metrics.Metrics) *Rooms {
	return &Rooms{transport: transport, log: log, metrics: m}
}

func (r *Rooms) Join(conn ConnID, workspaceID int64) error {
	return r.transport.Join(conn, RoomName(workspaceID))
}

func (r *Rooms) Leave(conn ConnID, workspaceID int64) {
	r.transport.Leave(conn, RoomName(workspaceID))
}

func (r *Rooms) IsMember(conn ConnID, workspaceID int64) bool {
	for _, id := range r.transport.Members(RoomName(workspaceID)) {
		if id == conn {
			return true
		}
	}
	return false
}

// Broadcast delivers event to every current member of the workspace room.
// Delivery failures for individual members are logged and skipped; the
// returned error only reports an unknown event or an unencodable payload.
func (r *Rooms) Broadcast(workspaceID int64, event string, payload any) error {
	if !IsRoomEvent(event) {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	members := r.transport.Members(RoomName(workspaceID))
	for _, conn := range members {
		if err := r.transport.Send(conn, frame); err != nil {
			r.metrics.DeliveryFailed(failureReason(err))
			r.log.Debug().Err(err).
				Str("conn", string(conn)).
				Int64("workspace_id", workspaceID).
				Str("event", event).
				Msg("delivery failed")
		}
	}
	r.metrics.Broadcast(event)
	return nil
}

// SendTo delivers a frame to a single connection.
func (r *Rooms) SendTo(conn ConnID, event string, payload any) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return r.transport.Send(conn, frame)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrConnGone):
		return "gone"
	case errors.Is(err, ErrSendBufferFull):
		return "buffer_full"
	default:
		return "other"
	}
}
