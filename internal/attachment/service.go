// ==============================================================================
// ATTACHMENT MANAGER - internal/attachment/service.go
// ==============================================================================
// Validates and uploads supporting invoice documents to the external file
// storage service.
// ==============================================================================

package attachment

import (
	"context"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"payreq/pkg/errors"
	"payreq/pkg/logger"
)

// DefaultMaxFileSize is the upload ceiling checked before any network
// transfer is attempted.
const DefaultMaxFileSize = 2 << 20 // 2 MiB

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// StorageClient stores a validated file and returns its reference URL.
type StorageClient interface {
	Store(ctx context.Context, req *UploadRequest) (string, error)
}

// UploadRequest carries one invoice file to be validated and uploaded.
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
}

// UploadResult is the stored reference for a successful upload.
type UploadResult struct {
	URL         string    `json:"url"`
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Manager validates invoice attachments and hands them to the storage
// client. The latest-upload-wins bookkeeping lives in the wizard; the
// manager itself is stateless.
type Manager struct {
	storage StorageClient
	maxSize int64
	logger  logger.Logger
}

// NewManager constructs an attachment Manager. A non-positive maxSize falls
// back to DefaultMaxFileSize.
func NewManager(storage StorageClient, maxSize int64, log logger.Logger) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Manager{storage: storage, maxSize: maxSize, logger: log}
}

// Upload validates the file locally, then uploads it. Size and type checks
// happen before any network transfer; a rejected or failed upload returns an
// error without producing a partial reference.
func (m *Manager) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || len(req.Data) == 0 {
		return nil, errors.ErrFileEmpty
	}
	if int64(len(req.Data)) > m.maxSize {
		return nil, errors.ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !allowedExtensions[ext] {
		return nil, errors.ErrFileTypeNotAllowed
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !allowedContentTypes[strings.TrimSpace(contentType)] {
		return nil, errors.ErrFileTypeNotAllowed
	}

	start := time.Now()
	url, err := m.storage.Store(ctx, req)
	if err != nil {
		m.logger.Error("Attachment upload failed", map[string]interface{}{
			"file_name": req.FileName,
			"size":      len(req.Data),
			"error":     err.Error(),
		})
		return nil, errors.Wrap(err, "file upload failed")
	}

	m.logger.Info("Attachment uploaded", map[string]interface{}{
		"file_name":   req.FileName,
		"size":        len(req.Data),
		"url":         url,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &UploadResult{
		URL:         url,
		FileName:    req.FileName,
		Size:        int64(len(req.Data)),
		ContentType: contentType,
		UploadedAt:  time.Now(),
	}, nil
}
