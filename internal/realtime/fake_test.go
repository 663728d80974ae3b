package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errPeerReset = errors.New("peer reset")

// fakeTransport records every call instead of writing to sockets.
type fakeTransport struct {
	mu       sync.Mutex
	rooms    map[string]map[ConnID]struct{}
	sent     map[ConnID][]Frame
	failing  map[ConnID]error
	dead     map[ConnID]bool
	aliveErr map[ConnID]error
	panicOn  map[ConnID]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		rooms:    map[string]map[ConnID]struct{}{},
		sent:     map[ConnID][]Frame{},
		failing:  map[ConnID]error{},
		dead:     map[ConnID]bool{},
		aliveErr: map[ConnID]error{},
		panicOn:  map[ConnID]bool{},
	}
}

func (f *fakeTransport) Join(conn ConnID, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead[conn] {
		return ErrConnGone
	}
	if f.rooms[room] == nil {
		f.rooms[room] = map[ConnID]struct{}{}
	}
	f.rooms[room][conn] = struct{}{}
	return nil
}

func (f *fakeTransport) Leave(conn ConnID, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms[room], conn)
}

func (f *fakeTransport) Members(room string) []ConnID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ConnID, 0, len(f.rooms[room]))
	for id := range f.rooms[room] {
		out = append(out, id)
	}
	return out
}

func (f *fakeTransport) Send(conn ConnID, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[conn]; ok {
		return err
	}
	var decoded Frame
	if err := json.Unmarshal(frame, &decoded); err != nil {
		return err
	}
	f.sent[conn] = append(f.sent[conn], decoded)
	return nil
}

func (f *fakeTransport) Alive(conn ConnID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn[conn] {
		panic("socket table corrupted")
	}
	if err, ok := f.aliveErr[conn]; ok {
		return false, err
	}
	return !f.dead[conn], nil
}

func (f *fakeTransport) inRoom(conn ConnID, workspaceID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[RoomName(workspaceID)][conn]
	return ok
}

func (f *fakeTransport) frames(conn ConnID) []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.sent[conn]...)
}

func (f *fakeTransport) framesNamed(conn ConnID, event string) []Frame {
	var out []Frame
	for _, frame := range f.frames(conn) {
		if frame.Event == event {
			out = append(out, frame)
		}
	}
	return out
}

func (f *fakeTransport) totalSent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, frames := range f.sent {
		n += len(frames)
	}
	return n
}

type fixture struct {
	transport *fakeTransport
	registry  *Registry
	rooms     *Rooms
	lifecycle *Lifecycle
}

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	transport := newFakeTransport()
	registry := NewRegistry()
	rooms := NewRooms(transport, zerolog.Nop(), nil)
	lifecycle := NewLifecycle(registry, rooms, zerolog.Nop(), nil)
	lifecycle.now = func() time.Time { return fixedNow }
	return &fixture{transport: transport, registry: registry, rooms: rooms, lifecycle: lifecycle}
}

func decodePresence(t *testing.T, frame Frame) PresencePayload {
	t.Helper()
	var payload PresencePayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	return payload
}

func decodeError(t *testing.T, frame Frame) ErrorPayload {
	t.Helper()
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	return payload
}
