package realtime

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ConnID identifies one live websocket session. It is process-local and
// never reused.
type ConnID string

const (
	EventJoinWorkspace  = "joinWorkspace"
	EventLeaveWorkspace = "leaveWorkspace"
	EventError          = "error"

	EventUserOnline        = "userOnline"
	EventUserOffline       = "userOffline"
	EventWorkspaceUpdated  = "workspaceUpdated"
	EventWorkspaceDeleted  = "workspaceDeleted"
	EventMemberAdded       = "memberAdded"
	EventBoardCreated      = "boardCreated"
	EventBoardUpdated      = "boardUpdated"
	EventBoardDeleted      = "boardDeleted"
	EventTaskCreated       = "taskCreated"
	EventTaskUpdated       = "taskUpdated"
	EventTaskDeleted       = "taskDeleted"
	EventCommentAdded      = "commentAdded"
	EventCommentDeleted    = "commentDeleted"
	EventAttachmentAdded   = "attachmentAdded"
	EventAttachmentDeleted = "attachmentDeleted"
)

const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeForbidden    = "FORBIDDEN"
	CodeUnknownEvent = "UNKNOWN_EVENT"
)

var roomEvents = map[string]struct{}{
	EventUserOnline:        {},
	EventUserOffline:       {},
	EventWorkspaceUpdated:  {},
	EventWorkspaceDeleted:  {},
	EventMemberAdded:       {},
	EventBoardCreated:      {},
	EventBoardUpdated:      {},
	EventBoardDeleted:      {},
	EventTaskCreated:       {},
	EventTaskUpdated:       {},
	EventTaskDeleted:       {},
	EventCommentAdded:      {},
	EventCommentDeleted:    {},
	EventAttachmentAdded:   {},
	EventAttachmentDeleted: {},
}

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrConnGone       = errors.New("connection gone")
	ErrSendBufferFull = errors.New("send buffer full")
)

// IsRoomEvent reports whether name may be broadcast to a workspace room.
func IsRoomEvent(name string) bool {
	_, ok := roomEvents[name]
	return ok
}

// RoomName is the broadcast group for a workspace.
func RoomName(workspaceID int64) string {
	return "workspace_" + strconv.FormatInt(workspaceID, 10)
}

// Frame is the envelope for every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type PresencePayload struct {
	UserID    int64     `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: data})
}

// parseID accepts only a bare JSON integer greater than zero. Strings,
// fractions and exponents are rejected.
func parseID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
