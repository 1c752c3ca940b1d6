package mediastore

import (
	"context"

	"github.com/parishmedia/hls-encoder/internal/models"
)

// AWSRepository is the durable object storage used for source downloads and
// published HLS assets. Every published object carries its own download
// token; the public URL embeds bucket, path and token.
type AWSRepository interface {
	GetPresignedURL(ctx context.Context, input *models.UploadInput) (string, error)
	DownloadToFile(ctx context.Context, bucket, key, localPath string) error
	UploadFile(ctx context.Context, bucket, localPath string, asset *models.PublishedAsset) error
	SaveText(ctx context.Context, bucket, content string, asset *models.PublishedAsset) error
	RemoveObject(ctx context.Context, bucket, key string) error
	DownloadURL(bucket, key, token string) string
}
