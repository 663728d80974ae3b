package realtime

import (
	"github.com/rs/zerolog"
)

// Broadcaster is the best-effort notify path used after a durable write.
// Announce never reports failure to its caller: the HTTP response reflects
// persistence only.
type Broadcaster struct {
	rooms  *Rooms
	log    zerolog.Logger
	strict bool
}

// NewBroadcaster returns a Broadcaster. With strict set, programming errors
// (unknown event names, payloads that cannot be encoded) panic instead of
// only being logged.
func NewBroadcaster(rooms *Rooms, log zerolog.Logger, strict bool) *Broadcaster {
	return &Broadcaster{rooms: rooms, log: log, strict: strict}
}

func (b *Broadcaster) Announce(workspaceID int64, event string, payload any) {
	if b == nil || b.rooms == nil {
		return
	}
	if err := b.rooms.Broadcast(workspaceID, event, payload); err != nil {
		b.log.Error().Err(err).Int64("workspace_id", workspaceID).Str("event", event).Msg("announce rejected")
		if b.strict {
			panic(err)
		}
	}
}
