package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
)

// StorageProvider is the object store as the orchestrator sees it. It only
// mints capabilities and drives multipart handles; file bytes never pass
// through it.
type StorageProvider interface {
	SignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	SignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error

	BeginMultipart(ctx context.Context, key, contentType string) (string, error)
	SignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error)
	// CompleteMultipart expects parts sorted by part number and returns the
	// object location reported by the store.
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []models.CompletedPart) (string, error)
	AbortMultipart(ctx context.Context, key, uploadID string) error

	// IsConfigured reports whether credentials and a bucket are present.
	IsConfigured() bool
}
