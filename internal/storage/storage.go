package storage

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roudra323/TeamFlow/internal/config"
)

var ErrInvalidKey = errors.New("invalid object key")

// Blob stores attachment bodies. Put returns the URL clients download from.
type Blob interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New picks S3 when a bucket is configured and the local upload directory otherwise.
func New(ctx context.Context, cfg config.StorageConfig) (Blob, error) {
	if cfg.Bucket != "" {
		return NewS3Store(ctx, cfg)
	}
	return NewDiskStore(cfg.UploadDir, "/uploads")
}

// ObjectKey builds a unique key for an upload to the given task.
func ObjectKey(taskID int64, fileName string) string {
	name := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	return path.Join("attachments", strconv.FormatInt(taskID, 10), uuid.NewString()+"-"+name)
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
