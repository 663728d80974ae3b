package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/roudra323/TeamFlow/internal/models"
	"github.com/roudra323/TeamFlow/internal/realtime"
	"github.com/roudra323/TeamFlow/internal/storage"
)

func (a *API) ListAttachments(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadTask(ctx, w, r, workspaceID, boardID, taskID); !ok {
		return
	}
	items, err := a.Store.ListAttachments(ctx, taskID)
	if err != nil {
		a.storeError(w, err, "task not found", "failed to load attachments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

// UploadAttachment stores the multipart "file" field. The stored blob is
// removed again when the database insert fails.
func (a *API) UploadAttachment(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID int64) {
	if a.Blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "attachment storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUpload+1<<20)
	if err := r.ParseMultipartForm(a.MaxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if header.Size > a.MaxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 4*requestTimeout)
	defer cancel()

	if _, ok := a.loadTask(ctx, w, r, workspaceID, boardID, taskID); !ok {
		return
	}

	key := storage.ObjectKey(taskID, header.Filename)
	url, err := a.Blobs.Put(ctx, key, data, header.Header.Get("Content-Type"))
	if err != nil {
		a.Log.Error().Err(err).Str("key", key).Msg("upload attachment")
		writeError(w, http.StatusBadGateway, "failed to store file")
		return
	}

	user, _ := currentUser(r)
	attachment, err := a.Store.CreateAttachment(ctx, models.Attachment{
		TaskID:     taskID,
		FileName:   header.Filename,
		ObjectKey:  key,
		URL:        url,
		Size:       int64(len(data)),
		UploadedBy: user.ID,
	})
	if err != nil {
		if delErr := a.Blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			a.Log.Warn().Err(delErr).Str("key", key).Msg("remove orphaned blob")
		}
		a.storeError(w, err, "task not found", "failed to save attachment")
		return
	}

	a.announce(workspaceID, realtime.EventAttachmentAdded, attachment)
	writeJSON(w, http.StatusCreated, attachment)
}

func (a *API) DeleteAttachment(w http.ResponseWriter, r *http.Request, workspaceID, boardID, taskID, attachmentID int64) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, ok := a.loadTask(ctx, w, r, workspaceID, boardID, taskID); !ok {
		return
	}
	attachment, err := a.Store.GetAttachment(ctx, taskID, attachmentID)
	if err != nil {
		a.storeError(w, err, "attachment not found", "failed to load attachment")
		return
	}
	if err := a.Store.DeleteAttachment(ctx, taskID, attachmentID); err != nil {
		a.storeError(w, err, "attachment not found", "failed to delete attachment")
		return
	}
	if a.Blobs != nil {
		if err := a.Blobs.Delete(ctx, attachment.ObjectKey); err != nil {
			a.Log.Warn().Err(err).Str("key", attachment.ObjectKey).Msg("delete attachment blob")
		}
	}

	a.announce(workspaceID, realtime.EventAttachmentDeleted, map[string]int64{"id": attachmentID, "taskId": taskID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
