package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/roudra323/TeamFlow/internal/auth"
	"github.com/roudra323/TeamFlow/internal/models"
	"github.com/roudra323/TeamFlow/internal/realtime"
)

type workspaceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type addMemberRequest struct {
	UserID int64 `json:"userId"`
}

// requireMember writes the error response itself and returns false when the
// caller is not allowed into the workspace.
func (a *API) requireMember(ctx context.Context, w http.ResponseWriter, r *http.Request, workspaceID int64) (auth.User, bool) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return auth.User{}, false
	}
	member, err := a.Store.IsMember(ctx, workspaceID, user.ID)
	if err != nil {
		a.storeError(w, err, "workspace not found", "failed to check membership")
		return auth.User{}, false
	}
	if member {
		return user, true
	}
	if _, err := a.Store.GetWorkspace(ctx, workspaceID); err != nil {
		a.storeError(w, err, "workspace not found", "failed to load workspace")
		return auth.User{}, false
	}
	writeError(w, http.StatusForbidden, "not a member of this workspace")
	return auth.User{}, false
}

func (a *API) requireOwner(ctx context.Context, w http.ResponseWriter, r *http.Request, workspaceID int64) (models.Workspace, bool) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return models.Workspace{}, false
	}
	workspace, err := a.Store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		a.storeError(w, err, "workspace not found", "failed to load workspace")
		return models.Workspace{}, false
	}
	if workspace.OwnerID != user.ID {
		writeError(w, http.StatusForbidden, "only the owner can change this workspace")
		return models.Workspace{}, false
	}
	return workspace, true
}

func (a *API) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := a.Store.ListWorkspaces(ctx, user.ID)
	if err != nil {
		a.storeError(w, err, "workspace not found", "failed to load workspaces")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (a *API) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req workspaceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	workspace, err := a.Store.CreateWorkspace(ctx, user.ID, strings.TrimSpace(*req.Name), req.Description)
	if err != nil {
		a.storeError(w, err, "user not found", "failed to create workspace")
		return
	}
	writeJSON(w, http.StatusCreated, workspace)
}

func (a *API) GetWorkspace(w http.ResponseWriter, r *http.Request, workspaceID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireMember(ctx, w, r, workspaceID); !ok {
		return
	}
	workspace, err := a.Store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		a.storeError(w, err, "workspace not found", "failed to load workspace")
		return
	}
	writeJSON(w, http.StatusOK, workspace)
}

func (a *API) UpdateWorkspace(w http.ResponseWriter, r *http.Request, workspaceID int64) {
	var req workspaceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireOwner(ctx, w, r, workspaceID); !ok {
		return
	}
	workspace, err := a.Store.UpdateWorkspace(ctx, workspaceID, req.Name, req.Description)
	if err != nil {
		a.storeError(w, err, "workspace not found", "failed to update workspace")
		return
	}

	a.announce(workspaceID, realtime.EventWorkspaceUpdated, workspace)
	writeJSON(w, http.StatusOK, workspace)
}

func (a *API) DeleteWorkspace(w http.ResponseWriter, r *http.Request, workspaceID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireOwner(ctx, w, r, workspaceID); !ok {
		return
	}
	if err := a.Store.DeleteWorkspace(ctx, workspaceID); err != nil {
		a.storeError(w, err, "workspace not found", "failed to delete workspace")
		return
	}

	a.announce(workspaceID, realtime.EventWorkspaceDeleted, map[string]int64{"id": workspaceID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) AddWorkspaceMember(w http.ResponseWriter, r *http.Request, workspaceID int64) {
	var req addMemberRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireOwner(ctx, w, r, workspaceID); !ok {
		return
	}
	user, err := a.Store.UserByID(ctx, req.UserID)
	if err != nil {
		a.storeError(w, err, "user not found", "failed to load user")
		return
	}
	if err := a.Store.AddMember(ctx, workspaceID, user.ID); err != nil {
		a.storeError(w, err, "workspace not found", "failed to add member")
		return
	}

	payload := map[string]any{"workspaceId": workspaceID, "user": user}
	a.announce(workspaceID, realtime.EventMemberAdded, payload)
	writeJSON(w, http.StatusCreated, payload)
}

// WorkspacePresence lists the users with a live connection joined to the workspace.
func (a *API) WorkspacePresence(w http.ResponseWriter, r *http.Request, workspaceID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.requireMember(ctx, w, r, workspaceID); !ok {
		return
	}
	online := []int64{}
	if a.Presence != nil {
		online = append(online, a.Presence.Online(workspaceID)...)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspaceId": workspaceID,
		"online":      online,
	})
}
