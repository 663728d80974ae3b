package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/roudra323/TeamFlow/internal/auth"
	"github.com/roudra323/TeamFlow/internal/db"
	"github.com/roudra323/TeamFlow/internal/models"
)

// memStore is an in-memory Repository used by the handler tests.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]models.User
	workspaces  map[int64]models.Workspace
	members     map[int64]map[int64]bool
	boards      map[int64]models.Board
	tasks       map[int64]models.Task
	comments    map[int64]models.Comment
	attachments map[int64]models.Attachment
	failInsert  error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[int64]models.User{},
		workspaces:  map[int64]models.Workspace{},
		members:     map[int64]map[int64]bool{},
		boards:      map[int64]models.Board{},
		tasks:       map[int64]models.Task{},
		comments:    map[int64]models.Comment{},
		attachments: map[int64]models.Attachment{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, name, email, hash string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return models.User{}, db.ErrConflict
		}
	}
	u := models.User{ID: m.id(), Name: name, Email: email, PasswordHash: hash}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateWorkspace(_ context.Context, ownerID int64, name string, description *string) (models.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := models.Workspace{ID: m.id(), Name: name, Description: description, OwnerID: ownerID, MemberCount: 1}
	m.workspaces[ws.ID] = ws
	m.members[ws.ID] = map[int64]bool{ownerID: true}
	return ws, nil
}

func (m *memStore) ListWorkspaces(_ context.Context, userID int64) ([]models.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Workspace{}
	for id, ws := range m.workspaces {
		if m.members[id][userID] {
			items = append(items, ws)
		}
	}
	return items, nil
}

func (m *memStore) GetWorkspace(_ context.Context, id int64) (models.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	if !ok {
		return models.Workspace{}, db.ErrNotFound
	}
	ws.MemberCount = len(m.members[id])
	return ws, nil
}

func (m *memStore) UpdateWorkspace(_ context.Context, id int64, name, description *string) (models.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	if !ok {
		return models.Workspace{}, db.ErrNotFound
	}
	if name != nil {
		ws.Name = *name
	}
	if description != nil {
		ws.Description = description
	}
	m.workspaces[id] = ws
	return ws, nil
}

func (m *memStore) DeleteWorkspace(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.workspaces, id)
	delete(m.members, id)
	return nil
}

func (m *memStore) AddMember(_ context.Context, workspaceID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[workspaceID]; !ok {
		return db.ErrNotFound
	}
	m.members[workspaceID][userID] = true
	return nil
}

func (m *memStore) IsMember(_ context.Context, workspaceID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[workspaceID][userID], nil
}

func (m *memStore) CreateBoard(_ context.Context, workspaceID int64, name string) (models.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := models.Board{ID: m.id(), WorkspaceID: workspaceID, Name: name}
	m.boards[b.ID] = b
	return b, nil
}

func (m *memStore) ListBoards(_ context.Context, workspaceID int64) ([]models.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Board{}
	for _, b := range m.boards {
		if b.WorkspaceID == workspaceID {
			items = append(items, b)
		}
	}
	return items, nil
}

func (m *memStore) GetBoard(_ context.Context, workspaceID, boardID int64) (models.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok || b.WorkspaceID != workspaceID {
		return models.Board{}, db.ErrNotFound
	}
	return b, nil
}

func (m *memStore) UpdateBoard(ctx context.Context, workspaceID, boardID int64, name string) (models.Board, error) {
	b, err := m.GetBoard(ctx, workspaceID, boardID)
	if err != nil {
		return models.Board{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b.Name = name
	m.boards[b.ID] = b
	return b, nil
}

func (m *memStore) DeleteBoard(ctx context.Context, workspaceID, boardID int64) error {
	if _, err := m.GetBoard(ctx, workspaceID, boardID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boards, boardID)
	return nil
}

func (m *memStore) CreateTask(_ context.Context, boardID int64, in db.TaskInput) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := models.Task{
		ID: m.id(), BoardID: boardID, Title: in.Title, Description: in.Description,
		Status: in.Status, Priority: in.Priority, DueDate: in.DueDate, AssigneeID: in.AssigneeID,
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memStore) ListTasks(_ context.Context, boardID int64) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Task{}
	for _, t := range m.tasks {
		if t.BoardID == boardID {
			items = append(items, t)
		}
	}
	return items, nil
}

func (m *memStore) GetTask(_ context.Context, boardID, taskID int64) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.BoardID != boardID {
		return models.Task{}, db.ErrNotFound
	}
	return t, nil
}

func (m *memStore) UpdateTask(ctx context.Context, boardID, taskID int64, patch db.TaskPatch) (models.Task, error) {
	t, err := m.GetTask(ctx, boardID, taskID)
	if err != nil {
		return models.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memStore) DeleteTask(ctx context.Context, boardID, taskID int64) error {
	if _, err := m.GetTask(ctx, boardID, taskID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *memStore) CreateComment(_ context.Context, taskID, authorID int64, content string) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Comment{ID: m.id(), TaskID: taskID, AuthorID: authorID, Content: content}
	m.comments[c.ID] = c
	return c, nil
}

func (m *memStore) ListComments(_ context.Context, taskID int64) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Comment{}
	for _, c := range m.comments {
		if c.TaskID == taskID {
			items = append(items, c)
		}
	}
	return items, nil
}

func (m *memStore) GetComment(_ context.Context, taskID, commentID int64) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.TaskID != taskID {
		return models.Comment{}, db.ErrNotFound
	}
	return c, nil
}

func (m *memStore) DeleteComment(ctx context.Context, taskID, commentID int64) error {
	if _, err := m.GetComment(ctx, taskID, commentID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, commentID)
	return nil
}

func (m *memStore) CreateAttachment(_ context.Context, in models.Attachment) (models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return models.Attachment{}, m.failInsert
	}
	in.ID = m.id()
	m.attachments[in.ID] = in
	return in, nil
}

func (m *memStore) ListAttachments(_ context.Context, taskID int64) ([]models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []models.Attachment{}
	for _, a := range m.attachments {
		if a.TaskID == taskID {
			items = append(items, a)
		}
	}
	return items, nil
}

func (m *memStore) GetAttachment(_ context.Context, taskID, attachmentID int64) (models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attachments[attachmentID]
	if !ok || a.TaskID != taskID {
		return models.Attachment{}, db.ErrNotFound
	}
	return a, nil
}

func (m *memStore) DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error {
	if _, err := m.GetAttachment(ctx, taskID, attachmentID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attachments, attachmentID)
	return nil
}

type announcement struct {
	WorkspaceID int64
	Event       string
	Payload     any
}

type recordingAnnouncer struct {
	mu     sync.Mutex
	events []announcement
}

func (r *recordingAnnouncer) Announce(workspaceID int64, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, announcement{WorkspaceID: workspaceID, Event: event, Payload: payload})
}

func (r *recordingAnnouncer) all() []announcement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]announcement(nil), r.events...)
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	b.objects[key] = data
	return "/uploads/" + key, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type staticPresence map[int64][]int64

func (p staticPresence) Online(workspaceID int64) []int64 {
	return p[workspaceID]
}

type harness struct {
	api    *API
	store  *memStore
	events *recordingAnnouncer
	blobs  *memBlobs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	service, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	h := &harness{
		store:  newMemStore(),
		events: &recordingAnnouncer{},
		blobs:  &memBlobs{objects: map[string][]byte{}},
	}
	h.api = NewAPI(h.store, service, h.blobs, h.events, staticPresence{}, zerolog.Nop())
	return h
}

func (h *harness) user(t *testing.T, email string) models.User {
	t.Helper()
	u, err := h.store.CreateUser(context.Background(), "n", email, "x")
	require.NoError(t, err)
	return u
}

// call runs handler with the request authenticated as user.
func call(user models.User, method, target string, body any, handler func(http.ResponseWriter, *http.Request)) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if user.ID != 0 {
		req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: user.ID, Email: user.Email}))
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var errBoom = errors.New("boom")

func taskInput(title string) db.TaskInput {
	return db.TaskInput{Title: title, Status: models.StatusTodo, Priority: models.PriorityMedium}
}
