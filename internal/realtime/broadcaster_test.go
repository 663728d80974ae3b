package realtime

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnounceSurvivesFailingMember(t *testing.T) {
	transport := newFakeTransport()
	rooms := NewRooms(transport, zerolog.Nop(), nil)
	b := NewBroadcaster(rooms, zerolog.Nop(), true)

	for _, id := range []ConnID{"a", "b", "c", "d"} {
		require.NoError(t, rooms.Join(id, 7))
	}
	transport.failing["b"] = ErrConnGone

	assert.NotPanics(t, func() {
		b.Announce(7, EventTaskCreated, map[string]any{"id": 11})
	})

	for _, id := range []ConnID{"a", "c", "d"} {
		assert.Len(t, transport.framesNamed(id, EventTaskCreated), 1, "conn %s", id)
	}
	assert.Empty(t, transport.frames("b"))
}

func TestAnnounceUnknownEvent(t *testing.T) {
	rooms := NewRooms(newFakeTransport(), zerolog.Nop(), nil)

	lenient := NewBroadcaster(rooms, zerolog.Nop(), false)
	assert.NotPanics(t, func() { lenient.Announce(1, "tsakCreated", nil) })

	strict := NewBroadcaster(rooms, zerolog.Nop(), true)
	assert.Panics(t, func() { strict.Announce(1, "tsakCreated", nil) })
}

func TestAnnounceOnNilBroadcaster(t *testing.T) {
	var b *Broadcaster
	assert.NotPanics(t, func() { b.Announce(1, EventTaskDeleted, nil) })
}
