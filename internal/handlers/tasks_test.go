package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roudra323/TeamFlow/internal/models"
	"github.com/roudra323/TeamFlow/internal/realtime"
)

func (h *harness) board(t *testing.T, ws models.Workspace) models.Board {
	t.Helper()
	b, err := h.store.CreateBoard(context.Background(), ws.ID, "Sprint")
	require.NoError(t, err)
	return b
}

func TestParseDueDate(t *testing.T) {
	got, err := parseDueDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDueDate("2026-03-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), got)

	_, err = parseDueDate("03/01/2026")
	assert.Error(t, err)
}

func TestCreateTaskDefaultsAndBroadcast(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, "owner@example.com")
	ws := h.workspace(t, owner)
	board := h.board(t, ws)

	create := func(w http.ResponseWriter, r *http.Request) { h.api.CreateTask(w, r, ws.ID, board.ID) }
	rec := call(owner, http.MethodPost, "/", map[string]any{"title": "Ship it", "dueDate": "2026-03-01"}, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	task := decode[models.Task](t, rec)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	require.NotNil(t, task.DueDate)

	events := h.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, ws.ID, events[0].WorkspaceID)
	assert.Equal(t, realtime.EventTaskCreated, events[0].Event)
}

func TestCreateTaskValidation(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, "owner@example.com")
	ws := h.workspace(t, owner)
	board := h.board(t, ws)
	create := func(w http.ResponseWriter, r *http.Request) { h.api.CreateTask(w, r, ws.ID, board.ID) }

	for _, body := range []map[string]any{
		{},
		{"title": "x", "status": "BLOCKED"},
		{"title": "x", "priority": "URGENT"},
		{"title": "x", "dueDate": "tomorrow"},
		{"title": "x", "assigneeId": -1},
	} {
		assert.Equal(t, http.StatusBadRequest, call(owner, http.MethodPost, "/", body, create).Code, body)
	}
	assert.Empty(t, h.events.all())
}

func TestTaskRequiresBoardInWorkspace(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, "owner@example.com")
	wsA := h.workspace(t, owner)
	wsB := h.workspace(t, owner)
	boardB := h.board(t, wsB)

	create := func(w http.ResponseWriter, r *http.Request) { h.api.CreateTask(w, r, wsA.ID, boardB.ID) }
	rec := call(owner, http.MethodPost, "/", map[string]any{"title": "Misplaced"}, create)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, h.events.all())
}

func TestUpdateAndDeleteTask(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, "owner@example.com")
	ws := h.workspace(t, owner)
	board := h.board(t, ws)
	task, err := h.store.CreateTask(context.Background(), board.ID, taskInput("Write docs"))
	require.NoError(t, err)

	update := func(w http.ResponseWriter, r *http.Request) { h.api.UpdateTask(w, r, ws.ID, board.ID, task.ID) }
	rec := call(owner, http.MethodPatch, "/", map[string]any{"status": models.StatusDone}, update)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusDone, decode[models.Task](t, rec).Status)

	missing := func(w http.ResponseWriter, r *http.Request) { h.api.UpdateTask(w, r, ws.ID, board.ID, 999) }
	assert.Equal(t, http.StatusNotFound, call(owner, http.MethodPatch, "/", map[string]any{"title": "x"}, missing).Code)

	del := func(w http.ResponseWriter, r *http.Request) { h.api.DeleteTask(w, r, ws.ID, board.ID, task.ID) }
	require.Equal(t, http.StatusOK, call(owner, http.MethodDelete, "/", nil, del).Code)

	events := h.events.all()
	require.Len(t, events, 2)
	assert.Equal(t, realtime.EventTaskUpdated, events[0].Event)
	assert.Equal(t, realtime.EventTaskDeleted, events[1].Event)
	assert.Equal(t, map[string]int64{"id": task.ID, "boardId": board.ID}, events[1].Payload)
}

func TestBoardLifecycle(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, "owner@example.com")
	outsider := h.user(t, "out@example.com")
	ws := h.workspace(t, owner)

	create := func(w http.ResponseWriter, r *http.Request) { h.api.CreateBoard(w, r, ws.ID) }
	assert.Equal(t, http.StatusForbidden, call(outsider, http.MethodPost, "/", map[string]string{"name": "x"}, create).Code)

	rec := call(owner, http.MethodPost, "/", map[string]string{"name": "Backlog"}, create)
	require.Equal(t, http.StatusCreated, rec.Code)
	board := decode[models.Board](t, rec)

	update := func(w http.ResponseWriter, r *http.Request) { h.api.UpdateBoard(w, r, ws.ID, board.ID) }
	require.Equal(t, http.StatusOK, call(owner, http.MethodPut, "/", map[string]string{"name": "Icebox"}, update).Code)

	del := func(w http.ResponseWriter, r *http.Request) { h.api.DeleteBoard(w, r, ws.ID, board.ID) }
	require.Equal(t, http.StatusOK, call(owner, http.MethodDelete, "/", nil, del).Code)

	var names []string
	for _, e := range h.events.all() {
		names = append(names, e.Event)
	}
	assert.Equal(t, []string{realtime.EventBoardCreated, realtime.EventBoardUpdated, realtime.EventBoardDeleted}, names)
}
