package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/parishmedia/hls-encoder/internal/encoder"
	"github.com/parishmedia/hls-encoder/internal/hls"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/pkg/errors"
)

const (
	playlistContentType = "application/x-mpegURL"
	segmentContentType  = "video/mp2t"
	imageContentType    = "image/jpeg"
	binaryContentType   = "application/octet-stream"

	// Segments and images are content-addressed by their unique destination
	// prefix, so they can be cached effectively forever. Playlists may be
	// regenerated and get shorter lifetimes; the master is the entry point
	// clients re-fetch.
	immutableCacheControl = "public, max-age=31536000"
	playlistCacheControl  = "public, max-age=3600"
	masterCacheControl    = "public, max-age=1800"
)

// publishRendition uploads every file in a rendition's working directory
// under a fresh token, then rewrites and uploads the variant playlist so
// that all of its media references are absolute tokened URLs.
func (p *Pipeline) publishRendition(ctx context.Context, bucket, varDir, dstPrefix string, rendition models.Rendition) (models.PublishedRendition, error) {
	published := models.PublishedRendition{
		Rendition:   rendition,
		SegmentURLs: make(map[string]string),
	}

	entries, err := os.ReadDir(varDir)
	if err != nil {
		return published, errors.Wrapf(err, "failed to list rendition dir %s", varDir)
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == encoder.VariantPlaylistName {
			continue
		}
		asset := &models.PublishedAsset{
			DestKey:      dstPrefix + rendition.Name + "/" + entry.Name(),
			Token:        uuid.NewString(),
			ContentType:  classifyContentType(entry.Name()),
			CacheControl: immutableCacheControl,
		}
		if err = p.awsRepo.UploadFile(ctx, bucket, filepath.Join(varDir, entry.Name()), asset); err != nil {
			return published, err
		}
		published.DestKeys = append(published.DestKeys, asset.DestKey)
		if strings.HasSuffix(entry.Name(), ".ts") {
			published.SegmentURLs[entry.Name()] = asset.PublicURL
		}
	}

	playlistLocal, err := os.ReadFile(filepath.Join(varDir, encoder.VariantPlaylistName))
	if err != nil {
		return published, errors.Wrapf(err, "failed to read %s playlist", rendition.Name)
	}
	rewritten := hls.RewriteVariantPlaylist(string(playlistLocal), published.SegmentURLs)

	playlistAsset := &models.PublishedAsset{
		DestKey:      dstPrefix + rendition.Name + "/" + encoder.VariantPlaylistName,
		Token:        uuid.NewString(),
		ContentType:  playlistContentType,
		CacheControl: playlistCacheControl,
	}
	if err = p.awsRepo.SaveText(ctx, bucket, rewritten, playlistAsset); err != nil {
		return published, err
	}
	published.DestKeys = append(published.DestKeys, playlistAsset.DestKey)
	published.PlaylistURL = playlistAsset.PublicURL
	return published, nil
}

// publishThumbnail is best-effort: a missing or failed poster never fails
// the job.
func (p *Pipeline) publishThumbnail(ctx context.Context, bucket, outDir, dstPrefix string) string {
	thumbPath := filepath.Join(outDir, encoder.ThumbnailName)
	if info, err := os.Stat(thumbPath); err != nil || info.IsDir() {
		return ""
	}
	asset := &models.PublishedAsset{
		DestKey:      dstPrefix + encoder.ThumbnailName,
		Token:        uuid.NewString(),
		ContentType:  imageContentType,
		CacheControl: immutableCacheControl,
	}
	if err := p.awsRepo.UploadFile(ctx, bucket, thumbPath, asset); err != nil {
		p.logger.Warnf("failed to upload thumbnail: %v", err)
		return ""
	}
	return asset.PublicURL
}

func classifyContentType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".ts"):
		return segmentContentType
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return imageContentType
	default:
		return binaryContentType
	}
}
