package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/roudra323/TeamFlow/internal/db"
	"github.com/roudra323/TeamFlow/internal/models"
	"github.com/roudra323/TeamFlow/internal/realtime"
)

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"dueDate"`
	AssigneeID  *int64  `json:"assigneeId"`
}

func parseDueDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.New("dueDate must be RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

// patch validates the request fields that are present.
func (req taskRequest) patch() (db.TaskPatch, error) {
	patch := db.TaskPatch{Description: req.Description, AssigneeID: req.AssigneeID}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return db.TaskPatch{}, errors.New("title cannot be empty")
		}
		patch.Title = &title
	}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			return db.TaskPatch{}, errors.New("status must be TODO, IN_PROGRESS, or DONE")
		}
		patch.Status = req.Status
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			return db.TaskPatch{}, errors.New("priority must be LOW, MEDIUM, or HIGH")
		}
		patch.Priority = req.Priority
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return db.TaskPatch{}, err
		}
		patch.DueDate = &due
	}
	if req.AssigneeID != nil && *req.AssigneeID <= 0 {
		return db.TaskPatch{}, errors.New("assigneeId must be positive")
	}
	return patch, nil
}

func (req taskRequest) input() (db.TaskInput, error) {
	if req.Title == nil {
		return db.TaskInput{}, errors.New("title is required")
	}
	patch, err := req.patch()
	if err != nil {
		return db.TaskInput{}, err
	}
	in := db.TaskInput{
		Title:       *patch.Title,
		Description: patch.Description,
		Status:      models.StatusTodo,
		Priority:    models.PriorityMedium,
		DueDate:     patch.DueDate,
		AssigneeID:  patch.AssigneeID,
	}
	if patch.Status != nil {
		in.Status = *patch.Status
	}
	if patch.Priority != nil {
		in.Priority = *patch.Priority
	}
	return in, nil
}

// loadTask resolves a task only when the board belongs to the workspace.
func (a *API) loadTask(ctx context.Context, w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) (models.Task, bool) {
	if _, ok := a.loadBoard(ctx, w, r, workspaceID, boardID); !ok {
		return models.Task{}, false
	}
	task, err := a.Store.GetTask(ctx, boardID, taskID)
	if err != nil {
		a.storeError(w, err, "task not found", "failed to load task")
		return models.Task{}, false
	}
	return task, true
}

func (a *API) ListTasks(w http.ResponseWriter, r *http.Request, workspaceID, boardID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadBoard(ctx, w, r, workspaceID, boardID); !ok {
		return
	}
	items, err := a.Store.ListTasks(ctx, boardID)
	if err != nil {
		a.storeError(w, err, "board not found", "failed to load tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (a *API) CreateTask(w http.ResponseWriter, r *http.Request, workspaceID, boardID int64) {
	var req taskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadBoard(ctx, w, r, workspaceID, boardID); !ok {
		return
	}
	task, err := a.Store.CreateTask(ctx, boardID, in)
	if err != nil {
		a.storeError(w, err, "assignee not found", "failed to create task")
		return
	}

	a.announce(workspaceID, realtime.EventTaskCreated, task)
	writeJSON(w, http.StatusCreated, task)
}

func (a *API) GetTask(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, ok := a.loadTask(ctx, w, r, workspaceID, boardID, taskID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) UpdateTask(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) {
	var req taskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadBoard(ctx, w, r, workspaceID, boardID); !ok {
		return
	}
	task, err := a.Store.UpdateTask(ctx, boardID, taskID, patch)
	if err != nil {
		a.storeError(w, err, "task not found", "failed to update task")
		return
	}

	a.announce(workspaceID, realtime.EventTaskUpdated, task)
	writeJSON(w, http.StatusOK, task)
}

func (a *API) DeleteTask(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadBoard(ctx, w, r, workspaceID, boardID); !ok {
		return
	}
	if err := a.Store.DeleteTask(ctx, boardID, taskID); err != nil {
		a.storeError(w, err, "task not found", "failed to delete task")
		return
	}

	a.announce(workspaceID, realtime.EventTaskDeleted, map[string]int64{"id": taskID, "boardId": boardID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
