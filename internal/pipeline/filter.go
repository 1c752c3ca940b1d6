package pipeline

import (
	"path"
	"strings"

	"github.com/parishmedia/hls-encoder/internal/models"
)

// Generated output lives under an /hls/ path segment; anything already there
// must never be fed back into the pipeline.
const hlsOutputSegment = "/hls/"

var generatedExtensions = []string{".m3u8", ".ts", ".m4s"}

var supportedSourceExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
}

// IsVideoObject reports whether a finalized object is a raw source video.
// Rejections are silent no-ops, not errors.
func IsVideoObject(event *models.UploadEvent) bool {
	if event == nil || event.ContentType == "" || event.ObjectKey == "" {
		return false
	}
	if !strings.HasPrefix(event.ContentType, "video/") {
		return false
	}
	if strings.Contains(event.ObjectKey, hlsOutputSegment) {
		return false
	}
	for _, ext := range generatedExtensions {
		if strings.HasSuffix(event.ObjectKey, ext) {
			return false
		}
	}
	return true
}

// HasSupportedExtension checks the source container allow-list.
func HasSupportedExtension(objectKey string) bool {
	_, ok := supportedSourceExtensions[strings.ToLower(path.Ext(objectKey))]
	return ok
}
