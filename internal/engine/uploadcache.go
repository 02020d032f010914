package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/rowan/genbridge/internal/domain"
	"github.com/rowan/genbridge/internal/logger"
	_ "golang.org/x/image/webp"
)

// Uploader uploads image bytes and returns a backend descriptor.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, data []byte) (*domain.UploadDescriptor, error)
}

// UploadCache converts locally-referenced images into backend upload
// descriptors, memoizing by source path so a given image is uploaded at most
// once per view session. Entries are never invalidated: a local path is
// assumed to map to stable bytes for the session.
type UploadCache struct {
	uploader Uploader
	inputDir string
	logger   *logger.Logger

	mu      sync.Mutex
	entries map[string]domain.UploadDescriptor
}

// NewUploadCache creates an empty cache resolving local paths against
// inputDir.
func NewUploadCache(uploader Uploader, inputDir string, log *logger.Logger) *UploadCache {
	if log == nil {
		log = logger.GetDefault()
	}
	return &UploadCache{
		uploader: uploader,
		inputDir: inputDir,
		logger:   log,
		entries:  make(map[string]domain.UploadDescriptor),
	}
}

// Resolve converts a raw input value into its backend-native form. Empty
// values and values without the local marker pass through unchanged. Local
// references resolve to an upload descriptor, uploading the image the first
// time the path is seen. Nothing is cached on failure, so a retry re-attempts
// the upload.
func (c *UploadCache) Resolve(ctx context.Context, raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	if !domain.IsLocalRef(raw) {
		// Already backend-native (remote URL or asset id).
		return raw, nil
	}

	path := domain.LocalPath(raw)

	c.mu.Lock()
	desc, ok := c.entries[path]
	c.mu.Unlock()
	if ok {
		c.logger.WithField("path", path).Debug("upload cache hit")
		return desc, nil
	}

	data, err := c.readImage(path)
	if err != nil {
		return nil, err
	}

	uploaded, err := c.uploader.UploadImage(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}

	c.mu.Lock()
	c.entries[path] = *uploaded
	c.mu.Unlock()

	c.logger.WithFields(logger.Fields{
		"path":     path,
		"filename": uploaded.Filename,
	}).Info("image uploaded")

	return *uploaded, nil
}

// readImage loads and validates the referenced image bytes. Corrupt or
// unreadable files abort the enclosing submission with a descriptive error.
func (c *UploadCache) readImage(path string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(c.inputDir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("image %s is not a decodable image: %w", path, err)
	}
	return data, nil
}

// Len returns the number of cached descriptors.
func (c *UploadCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
