package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/roudra323/TeamFlow/internal/realtime"
)

type createCommentRequest struct {
	Content string `json:"content"`
}

func (a *API) ListComments(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadTask(ctx, w, r, workspaceID, boardID, taskID); !ok {
		return
	}
	items, err := a.Store.ListComments(ctx, taskID)
	if err != nil {
		a.storeError(w, err, "task not found", "failed to load comments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (a *API) CreateComment(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) {
	var req createCommentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadTask(ctx, w, r, workspaceID, boardID, taskID); !ok {
		return
	}
	user, _ := currentUser(r)
	comment, err := a.Store.CreateComment(ctx, taskID, user.ID, req.Content)
	if err != nil {
		a.storeError(w, err, "task not found", "failed to add comment")
		return
	}

	a.announce(workspaceID, realtime.EventCommentAdded, comment)
	writeJSON(w, http.StatusCreated, comment)
}

// DeleteComment is allowed for the comment's author only.
func (a *API) DeleteComment(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID, commentID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadTask(ctx, w, r, workspaceID, boardID, taskID); !ok {
		return
	}
	comment, err := a.Store.GetComment(ctx, taskID, commentID)
	if err != nil {
		a.storeError(w, err, "comment not found", "failed to load comment")
		return
	}
	user, _ := currentUser(r)
	if comment.AuthorID != user.ID {
		writeError(w, http.StatusForbidden, "only the author can delete this comment")
		return
	}
	if err := a.Store.DeleteComment(ctx, taskID, commentID); err != nil {
		a.storeError(w, err, "comment not found", "failed to delete comment")
		return
	}

	a.announce(workspaceID, realtime.EventCommentDeleted, map[string]int64{"id": commentID, "taskId": taskID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
