package router

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roudra323/TeamFlow/internal/auth"
	"github.com/roudra323/TeamFlow/internal/handlers"
	"github.com/roudra323/TeamFlow/internal/metrics"
	"github.com/roudra323/TeamFlow/internal/middleware"
	"github.com/roudra323/TeamFlow/internal/realtime"
)

type Options struct {
	Origin  string
	Limiter middleware.Limiter
	WS      *realtime.Server
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics, usually promhttp.HandlerFor the registry.
	MetricsHandler http.Handler
	// Uploads serves locally stored attachments under /uploads/.
	Uploads http.Handler
	Health  func(ctx context.Context) error
	Log     zerolog.Logger
}

type Router struct {
	api  *handlers.API
	auth *auth.Service
	opts Options
}

func New(api *handlers.API, authService *auth.Service, opts Options) *Router {
	return &Router{api: api, auth: authService, opts: opts}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	rt.serve(rec, r)

	rt.opts.Metrics.Request(r.Method, strconv.Itoa(rec.status))
	rt.opts.Log.Debug().
		Str("request_id", requestID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Dur("duration", time.Since(start)).
		Msg("request")
}

func (rt *Router) serve(w http.ResponseWriter, r *http.Request) {
	if middleware.HandleCORS(w, r, rt.opts.Origin) {
		return
	}
	middleware.SecurityHeaders(w)

	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == "" {
		path = "/"
	}

	switch {
	case path == "/healthz":
		rt.health(w, r)
		return
	case path == "/metrics":
		if rt.opts.MetricsHandler != nil && r.Method == http.MethodGet {
			rt.opts.MetricsHandler.ServeHTTP(w, r)
			return
		}
	case strings.HasPrefix(r.URL.Path, "/uploads/"):
		if rt.opts.Uploads != nil && r.Method == http.MethodGet {
			http.StripPrefix("/uploads/", rt.opts.Uploads).ServeHTTP(w, r)
			return
		}
	}

	if requiresAuth(path) {
		user, err := middleware.Authenticate(r, rt.auth)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !rt.allow(r, "user:"+strconv.FormatInt(user.ID, 10)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		r = r.WithContext(auth.WithUser(r.Context(), user))
	} else if !rt.allow(r, "ip:"+middleware.ClientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	switch {
	case path == "/api/v1/ws":
		if r.Method == http.MethodGet && rt.opts.WS != nil {
			user, _ := auth.UserFromContext(r.Context())
			rt.opts.WS.ServeWS(w, r, user.ID)
			return
		}
	case path == "/api/v1/auth/register":
		if r.Method == http.MethodPost {
			rt.api.Register(w, r)
			return
		}
	case path == "/api/v1/auth/login":
		if r.Method == http.MethodPost {
			rt.api.Login(w, r)
			return
		}
	case path == "/api/v1/auth/me":
		if r.Method == http.MethodGet {
			rt.api.Me(w, r)
			return
		}
	case path == "/api/v1/workspaces":
		switch r.Method {
		case http.MethodGet:
			rt.api.ListWorkspaces(w, r)
			return
		case http.MethodPost:
			rt.api.CreateWorkspace(w, r)
			return
		}
	case strings.HasPrefix(path, "/api/v1/workspaces/"):
		segments := strings.Split(strings.TrimPrefix(path, "/api/v1/workspaces/"), "/")
		if rt.routeWorkspace(w, r, segments) {
			return
		}
	}

	writeError(w, http.StatusNotFound, "not found")
}

// routeWorkspace dispatches everything nested under /api/v1/workspaces/{wid}.
func (rt *Router) routeWorkspace(w http.ResponseWriter, r *http.Request, segments []string) bool {
	ids, kinds, ok := splitResource(segments)
	if !ok {
		return false
	}
	workspaceID := ids[0]

	switch strings.Join(kinds, "/") {
	case "":
		switch r.Method {
		case http.MethodGet:
			rt.api.GetWorkspace(w, r, workspaceID)
			return true
		case http.MethodPut, http.MethodPatch:
			rt.api.UpdateWorkspace(w, r, workspaceID)
			return true
		case http.MethodDelete:
			rt.api.DeleteWorkspace(w, r, workspaceID)
			return true
		}
	case "members":
		if r.Method == http.MethodPost && len(ids) == 1 {
			rt.api.AddWorkspaceMember(w, r, workspaceID)
			return true
		}
	case "presence":
		if r.Method == http.MethodGet && len(ids) == 1 {
			rt.api.WorkspacePresence(w, r, workspaceID)
			return true
		}
	case "boards":
		if len(ids) == 1 {
			switch r.Method {
			case http.MethodGet:
				rt.api.ListBoards(w, r, workspaceID)
				return true
			case http.MethodPost:
				rt.api.CreateBoard(w, r, workspaceID)
				return true
			}
			return false
		}
		boardID := ids[1]
		switch r.Method {
		case http.MethodGet:
			rt.api.GetBoard(w, r, workspaceID, boardID)
			return true
		case http.MethodPut, http.MethodPatch:
			rt.api.UpdateBoard(w, r, workspaceID, boardID)
			return true
		case http.MethodDelete:
			rt.api.DeleteBoard(w, r, workspaceID, boardID)
			return true
		}
	case "boards/tasks":
		boardID := ids[1]
		if len(ids) == 2 {
			switch r.Method {
			case http.MethodGet:
				rt.api.ListTasks(w, r, workspaceID, boardID)
				return true
			case http.MethodPost:
				rt.api.CreateTask(w, r, workspaceID, boardID)
				return true
			}
			return false
		}
		taskID := ids[2]
		switch r.Method {
		case http.MethodGet:
			rt.api.GetTask(w, r, workspaceID, boardID, taskID)
			return true
		case http.MethodPatch, http.MethodPut:
			rt.api.UpdateTask(w, r, workspaceID, boardID, taskID)
			return true
		case http.MethodDelete:
			rt.api.DeleteTask(w, r, workspaceID, boardID, taskID)
			return true
		}
	case "boards/tasks/comments":
		if len(ids) < 3 {
			return false
		}
		boardID, taskID := ids[1], ids[2]
		if len(ids) == 3 {
			switch r.Method {
			case http.MethodGet:
				rt.api.ListComments(w, r, workspaceID, boardID, taskID)
				return true
			case http.MethodPost:
				rt.api.CreateComment(w, r, workspaceID, boardID, taskID)
				return true
			}
			return false
		}
		if r.Method == http.MethodDelete {
			rt.api.DeleteComment(w, r, workspaceID, boardID, taskID, ids[3])
			return true
		}
	case "boards/tasks/attachments":
		if len(ids) < 3 {
			return false
		}
		boardID, taskID := ids[1], ids[2]
		if len(ids) == 3 {
			switch r.Method {
			case http.MethodGet:
				rt.api.ListAttachments(w, r, workspaceID, boardID, taskID)
				return true
			case http.MethodPost:
				rt.api.UploadAttachment(w, r, workspaceID, boardID, taskID)
				return true
			}
			return false
		}
		if r.Method == http.MethodDelete {
			rt.api.DeleteAttachment(w, r, workspaceID, boardID, taskID, ids[3])
			return true
		}
	}
	return false
}

// splitResource turns "5/boards/7/tasks" into ids [5 7] and kinds
// [boards tasks]. The collection name may trail without an id.
func splitResource(segments []string) (ids []int64, kinds []string, ok bool) {
	if len(segments) == 0 {
		return nil, nil, false
	}
	for i, segment := range segments {
		if i%2 == 0 {
			id, valid := handlers.ParseID(segment)
			if !valid {
				return nil, nil, false
			}
			ids = append(ids, id)
			continue
		}
		if segment == "" {
			return nil, nil, false
		}
		kinds = append(kinds, segment)
	}
	return ids, kinds, true
}

func (rt *Router) allow(r *http.Request, key string) bool {
	if rt.opts.Limiter == nil {
		return true
	}
	ok, err := rt.opts.Limiter.Allow(r.Context(), key)
	if err != nil {
		rt.opts.Log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Health(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{\"status\":\"ok\"}"))
}

func requiresAuth(path string) bool {
	switch path {
	case "/api/v1/auth/login", "/api/v1/auth/register":
		return false
	default:
		return strings.HasPrefix(path, "/api/v1/")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("{\"error\":\"" + message + "\"}"))
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if !s.wroteHeader {
		s.status = status
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *statusRecorder) Flush() {
	if flusher, ok := s.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
