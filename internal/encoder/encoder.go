package encoder

import (
	"context"

	"github.com/parishmedia/hls-encoder/internal/models"
)

// Encoder drives the external encoding engine. One rendition at a time: the
// engine is CPU and memory bound per process, and serializing renditions
// keeps peak usage independent of ladder size.
type Encoder interface {
	EncodeRendition(ctx context.Context, sourcePath, outDir string, rendition models.Rendition) error
	Duration(ctx context.Context, sourcePath string) (float64, error)
	Thumbnail(ctx context.Context, sourcePath, outDir string) (string, error)
}
