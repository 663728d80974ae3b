package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roudra323/TeamFlow/internal/metrics"
)

type State int

const (
	StateConnected State = iota
	StateJoined
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Lifecycle creates a Session per connection. All sessions share one
// registry and one room layer.
type Lifecycle struct {
	registry *Registry
	rooms    *Rooms
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewLifecycle(registry *Registry, rooms *Rooms, log zerolog.Logger, m *metrics.Metrics) *Lifecycle {
	return &Lifecycle{
		registry: registry,
		rooms:    rooms,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Connect starts the state machine for conn. userID is the authenticated
// identity of the connection; zero disables the identity check on join.
func (l *Lifecycle) Connect(conn ConnID, userID int64) *Session {
	l.log.Debug().Str("conn", string(conn)).Int64("user_id", userID).Msg("connected")
	return &Session{lc: l, conn: conn, userID: userID, state: StateConnected}
}

// Session drives one connection from connect to disconnect. Inbound frames
// for a connection are handled in order; the mutex also serialises a
// disconnect racing the read loop.
type Session struct {
	lc     *Lifecycle
	conn   ConnID
	userID int64

	mu          sync.Mutex
	state       State
	workspaceID int64
}

func (s *Session) Conn() ConnID {
	return s.conn
}

// State returns the current state and, when joined, the workspace.
func (s *Session) State() (State, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.workspaceID
}

type joinRequest struct {
	WorkspaceID json.RawMessage `json:"workspaceId"`
	UserID      json.RawMessage `json:"userId"`
}

type leaveRequest struct {
	WorkspaceID json.RawMessage `json:"workspaceId"`
}

// Handle decodes one inbound frame and dispatches it.
func (s *Session) Handle(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.reject(CodeInvalidInput, "malformed frame")
		return
	}
	switch frame.Event {
	case EventJoinWorkspace:
		var req joinRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			s.reject(CodeInvalidInput, "workspaceId and userId must be integers")
			return
		}
		workspaceID, okW := parseID(req.WorkspaceID)
		userID, okU := parseID(req.UserID)
		if !okW || !okU {
			s.reject(CodeInvalidInput, "workspaceId and userId must be integers")
			return
		}
		s.Join(workspaceID, userID)
	case EventLeaveWorkspace:
		var req leaveRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			s.reject(CodeInvalidInput, "workspaceId must be an integer")
			return
		}
		workspaceID, ok := parseID(req.WorkspaceID)
		if !ok {
			s.reject(CodeInvalidInput, "workspaceId must be an integer")
			return
		}
		s.Leave(workspaceID)
	default:
		s.reject(CodeUnknownEvent, "unknown event "+frame.Event)
	}
}

// Join subscribes the connection to the workspace room and announces the
// user. A connection is in at most one workspace: joining another one
// first leaves the current one.
func (s *Session) Join(workspaceID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	if workspaceID <= 0 || userID <= 0 {
		s.reject(CodeInvalidInput, "workspaceId and userId must be positive integers")
		return
	}
	if s.userID != 0 && userID != s.userID {
		s.reject(CodeForbidden, "userId does not match the authenticated user")
		return
	}

	if prev, ok := s.lc.registry.Lookup(s.conn); ok && prev.WorkspaceID != workspaceID {
		s.leaveLocked(prev.WorkspaceID)
	}

	if err := s.lc.rooms.Join(s.conn, workspaceID); err != nil {
		s.lc.log.Warn().Err(err).Str("conn", string(s.conn)).Int64("workspace_id", workspaceID).Msg("room join failed")
		return
	}
	if err := s.lc.registry.RecordJoin(s.conn, workspaceID, userID); err != nil {
		s.lc.rooms.Leave(s.conn, workspaceID)
		s.reject(CodeInvalidInput, err.Error())
		return
	}
	s.state = StateJoined
	s.workspaceID = workspaceID
	s.lc.metrics.Joined()
	s.lc.metrics.SetPresenceEntries(s.lc.registry.Len())

	s.lc.log.Info().Str("conn", string(s.conn)).Int64("workspace_id", workspaceID).Int64("user_id", userID).Msg("joined workspace")
	s.announce(workspaceID, EventUserOnline, userID)
}

// Leave unsubscribes from the workspace room. userOffline is announced only
// when the connection's presence entry is for this workspace, and always
// with the user id stored at join time.
func (s *Session) Leave(workspaceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	if workspaceID <= 0 {
		s.reject(CodeInvalidInput, "workspaceId must be a positive integer")
		return
	}
	s.leaveLocked(workspaceID)
}

func (s *Session) leaveLocked(workspaceID int64) {
	if entry, ok := s.lc.registry.Lookup(s.conn); ok && entry.WorkspaceID == workspaceID {
		s.announce(workspaceID, EventUserOffline, entry.UserID)
		s.lc.registry.RecordLeave(s.conn)
		s.lc.metrics.SetPresenceEntries(s.lc.registry.Len())
		s.lc.log.Info().Str("conn", string(s.conn)).Int64("workspace_id", workspaceID).Int64("user_id", entry.UserID).Msg("left workspace")
	}
	s.lc.rooms.Leave(s.conn, workspaceID)
	if s.state == StateJoined && s.workspaceID == workspaceID {
		s.state = StateConnected
		s.workspaceID = 0
	}
}

// Disconnect is terminal and safe to call more than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	if entry, ok := s.lc.registry.Lookup(s.conn); ok {
		s.announce(entry.WorkspaceID, EventUserOffline, entry.UserID)
		s.lc.registry.RecordLeave(s.conn)
		s.lc.rooms.Leave(s.conn, entry.WorkspaceID)
		s.lc.metrics.SetPresenceEntries(s.lc.registry.Len())
	}
	s.state = StateDisconnected
	s.workspaceID = 0
	s.lc.log.Debug().Str("conn", string(s.conn)).Msg("disconnected")
}

// TransportError records a read or write failure. Presence is untouched;
// cleanup happens on Disconnect.
func (s *Session) TransportError(err error) {
	s.lc.log.Warn().Err(err).Str("conn", string(s.conn)).Msg("transport error")
}

func (s *Session) announce(workspaceID int64, event string, userID int64) {
	payload := PresencePayload{UserID: userID, Timestamp: s.lc.now()}
	if err := s.lc.rooms.Broadcast(workspaceID, event, payload); err != nil {
		s.lc.log.Error().Err(err).Str("event", event).Msg("presence broadcast failed")
	}
}

func (s *Session) reject(code, message string) {
	if err := s.lc.rooms.SendTo(s.conn, EventError, ErrorPayload{Message: message, Code: code}); err != nil {
		s.lc.log.Debug().Err(err).Str("conn", string(s.conn)).Msg("error frame not delivered")
	}
}
