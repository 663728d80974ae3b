package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roudra323/TeamFlow/internal/auth"
	"github.com/roudra323/TeamFlow/internal/db"
	"github.com/roudra323/TeamFlow/internal/models"
	"github.com/roudra323/TeamFlow/internal/storage"
)

const requestTimeout = 5 * time.Second

// Repository is the persistence surface the handlers need. *db.Store
// satisfies it.
type Repository interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)

	CreateWorkspace(ctx context.Context, ownerID int64, name string, description *string) (models.Workspace, error)
	ListWorkspaces(ctx context.Context, userID int64) ([]models.Workspace, error)
	GetWorkspace(ctx context.Context, id int64) (models.Workspace, error)
	UpdateWorkspace(ctx context.Context, id int64, name, description *string) (models.Workspace, error)
	DeleteWorkspace(ctx context.Context, id int64) error
	AddMember(ctx context.Context, workspaceID, userID int64) error
	IsMember(ctx context.Context, workspaceID, userID int64) (bool, error)

	CreateBoard(ctx context.Context, workspaceID int64, name string) (models.Board, error)
	ListBoards(ctx context.Context, workspaceID int64) ([]models.Board, error)
	GetBoard(ctx context.Context, workspaceID, boardID int64) (models.Board, error)
	UpdateBoard(ctx context.Context, workspaceID, boardID int64, name string) (models.Board, error)
	DeleteBoard(ctx context.Context, workspaceID, boardID int64) error

	CreateTask(ctx context.Context, boardID int64, in db.TaskInput) (models.Task, error)
	ListTasks(ctx context.Context, boardID int64) ([]models.Task, error)
	GetTask(ctx context.Context, boardID, taskID int64) (models.Task, error)
	UpdateTask(ctx context.Context, boardID, taskID int64, patch db.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, boardID, taskID int64) error

	CreateComment(ctx context.Context, taskID, authorID int64, content string) (models.Comment, error)
	ListComments(ctx context.Context, taskID int64) ([]models.Comment, error)
	GetComment(ctx context.Context, taskID, commentID int64) (models.Comment, error)
	DeleteComment(ctx context.Context, taskID, commentID int64) error

	CreateAttachment(ctx context.Context, in models.Attachment) (models.Attachment, error)
	ListAttachments(ctx context.Context, taskID int64) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, taskID, attachmentID int64) (models.Attachment, error)
	DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error
}

// Announcer fans a committed change out to the workspace room. It never
// reports failure back to the handler.
type Announcer interface {
	Announce(workspaceID int64, event string, payload any)
}

type Presence interface {
	Online(workspaceID int64) []int64
}

type API struct {
	Store     Repository
	Auth      *auth.Service
	Blobs     storage.Blob
	Events    Announcer
	Presence  Presence
	Log       zerolog.Logger
	MaxUpload int64
}

func NewAPI(store Repository, authService *auth.Service, blobs storage.Blob, events Announcer, presence Presence, log zerolog.Logger) *API {
	return &API{
		Store:     store,
		Auth:      authService,
		Blobs:     blobs,
		Events:    events,
		Presence:  presence,
		Log:       log,
		MaxUpload: 10 << 20,
	}
}

func (a *API) announce(workspaceID int64, event string, payload any) {
	if a.Events != nil {
		a.Events.Announce(workspaceID, event, payload)
	}
}

func currentUser(r *http.Request) (auth.User, bool) {
	return auth.UserFromContext(r.Context())
}

// storeError maps persistence errors onto status codes. Unexpected errors
// are logged and reported with the generic message.
func (a *API) storeError(w http.ResponseWriter, err error, notFound, failed string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, db.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	default:
		a.Log.Error().Err(err).Msg(failed)
		writeError(w, http.StatusInternalServerError, failed)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func ParseID(pathPart string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(pathPart), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
