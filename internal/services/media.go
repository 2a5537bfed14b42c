package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/inkpress/apiserver/internal/storage"
	"github.com/inkpress/apiserver/internal/store"
)

// MaxUploadSize bounds a single image upload.
const MaxUploadSize = 10 << 20

// FilesPrefix is the public path uploaded objects are served under.
const FilesPrefix = "/api/files/"

// MediaKind groups uploads by purpose. It is also the object key prefix.
type MediaKind string

const (
	MediaCover  MediaKind = "covers"
	MediaAvatar MediaKind = "avatars"
)

var placeholders = map[MediaKind]string{
	MediaCover:  "/images/placeholder-cover.jpg",
	MediaAvatar: "/images/placeholder-avatar.png",
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ObjectStore is the subset of object storage used for uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// MediaService stores uploaded images and hands back the reference to keep
// on the owning record.
type MediaService struct {
	objects ObjectStore
}

// NewMediaService accepts a nil store, in which case uploads resolve to fixed
// placeholder paths.
func NewMediaService(objects ObjectStore) *MediaService {
	return &MediaService{objects: objects}
}

// Upload validates data as an image and stores it, returning its public path.
func (s *MediaService) Upload(ctx context.Context, kind MediaKind, data []byte) (string, error) {
	if _, ok := placeholders[kind]; !ok {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	if len(data) == 0 {
		return "", invalid("file", "file is empty")
	}
	if len(data) > MaxUploadSize {
		return "", invalid("file", fmt.Sprintf("file exceeds %d bytes", MaxUploadSize))
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", invalid("file", fmt.Sprintf("unsupported content type %s", contentType))
	}

	if s.objects == nil {
		return placeholders[kind], nil
	}

	key := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), ext)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return FilesPrefix + key, nil
}

// Open streams a stored object. Missing objects, unknown prefixes and a
// disabled store all report store.ErrNotFound.
func (s *MediaService) Open(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	if s.objects == nil || !validKey(key) {
		return nil, storage.ObjectInfo{}, store.ErrNotFound
	}
	body, info, err := s.objects.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, store.ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return body, info, nil
}

// Remove deletes the object behind ref. References that were not produced by
// Upload, such as placeholders or external URLs, are ignored.
func (s *MediaService) Remove(ctx context.Context, ref string) error {
	if s.objects == nil || !strings.HasPrefix(ref, FilesPrefix) {
		return nil
	}
	key := strings.TrimPrefix(ref, FilesPrefix)
	if !validKey(key) {
		return nil
	}
	if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func validKey(key string) bool {
	if strings.Contains(key, "..") {
		return false
	}
	for kind := range placeholders {
		if strings.HasPrefix(key, string(kind)+"/") && len(key) > len(kind)+1 {
			return true
		}
	}
	return false
}
