package mediastore

import (
	"context"
	"time"

	"github.com/parishmedia/hls-encoder/internal/models"
)

// RedisRepository is the upload-event queue between the ingest API and the
// pipeline workers.
type RedisRepository interface {
	EnqueueEvent(ctx context.Context, key string, event *models.UploadEvent) error
	DequeueEvent(ctx context.Context, key string, timeout time.Duration) (*models.UploadEvent, error)
	QueueLen(ctx context.Context, key string) (int64, error)
}
