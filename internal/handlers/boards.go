package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/roudra323/TeamFlow/internal/models"
	"github.com/roudra323/TeamFlow/internal/realtime"
)

type boardRequest struct {
	Name string `json:"name"`
}

// loadBoard resolves a board inside a workspace the caller belongs to.
func (a *API) loadBoard(ctx context.Context, w http.ResponseWriter, r *http.Request, workspaceID, boardID int64) (models.Board, bool) {
	if _, ok := a.requireMember(ctx, w, r, workspaceID); !ok {
		return models.Board{}, false
	}
	board, err := a.Store.GetBoard(ctx, workspaceID, boardID)
	if err != nil {
		a.storeError(w, err, "board not found in the specified workspace", "failed to load board")
		return models.Board{}, false
	}
	return board, true
}

func (a *API) ListBoards(w http.ResponseWriter, r *http.Request, workspaceID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireMember(ctx, w, r, workspaceID); !ok {
		return
	}
	items, err := a.Store.ListBoards(ctx, workspaceID)
	if err != nil {
		a.storeError(w, err, "workspace not found", "failed to load boards")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (a *API) CreateBoard(w http.ResponseWriter, r *http.Request, workspaceID int64) {
	var req boardRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireMember(ctx, w, r, workspaceID); !ok {
		return
	}
	board, err := a.Store.CreateBoard(ctx, workspaceID, req.Name)
	if err != nil {
		a.storeError(w, err, "workspace not found", "failed to create board")
		return
	}

	a.announce(workspaceID, realtime.EventBoardCreated, board)
	writeJSON(w, http.StatusCreated, board)
}

func (a *API) GetBoard(w http.ResponseWriter, r *http.Request, workspaceID, boardID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	board, ok := a.loadBoard(ctx, w, r, workspaceID, boardID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *API) UpdateBoard(w http.ResponseWriter, r *http.Request, workspaceID, boardID int64) {
	var req boardRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireMember(ctx, w, r, workspaceID); !ok {
		return
	}
	board, err := a.Store.UpdateBoard(ctx, workspaceID, boardID, req.Name)
	if err != nil {
		a.storeError(w, err, "board not found in the specified workspace", "failed to update board")
		return
	}

	a.announce(workspaceID, realtime.EventBoardUpdated, board)
	writeJSON(w, http.StatusOK, board)
}

func (a *API) DeleteBoard(w http.ResponseWriter, r *http.Request, workspaceID, boardID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireMember(ctx, w, r, workspaceID); !ok {
		return
	}
	if err := a.Store.DeleteBoard(ctx, workspaceID, boardID); err != nil {
		a.storeError(w, err, "board not found in the specified workspace", "failed to delete board")
		return
	}

	a.announce(workspaceID, realtime.EventBoardDeleted, map[string]int64{"id": boardID, "workspaceId": workspaceID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
