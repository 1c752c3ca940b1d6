package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/parishmedia/hls-encoder/pkg/logger"
)

const (
	SegmentFilePattern  = "segment_%03d.ts"
	VariantPlaylistName = "index.m3u8"
	ThumbnailName       = "thumb.jpg"
	thumbnailOffsetSec  = 5
)

type ffmpegEncoder struct {
	cfg    config.HLSConfig
	logger logger.Logger
}

func NewFFmpegEncoder(cfg config.HLSConfig, logger logger.Logger) Encoder {
	return &ffmpegEncoder{
		cfg:    cfg,
		logger: logger,
	}
}

// EncodeRendition produces the full segment sequence plus the local variant
// playlist for one rendition before returning. Any engine failure is fatal
// for the rendition and, by contract, for the job.
func (e *ffmpegEncoder) EncodeRendition(ctx context.Context, sourcePath, outDir string, rendition models.Rendition) error {
	args := e.renditionArgs(sourcePath, outDir, rendition)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Infof("encoding rendition %s from %s", rendition.Name, sourcePath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed for rendition %s: %v, stderr: %s", rendition.Name, err, stderr.String())
	}
	return nil
}

func (e *ffmpegEncoder) renditionArgs(sourcePath, outDir string, rendition models.Rendition) []string {
	seg := strconv.Itoa(e.cfg.SegmentSeconds)
	return []string{
		"-i", sourcePath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-profile:v", "main",
		"-crf", e.cfg.CRF,
		"-preset", e.cfg.Preset,
		"-ac", "2",
		"-ar", "48000",
		"-b:a", rendition.AudioBitrate,
		"-maxrate", rendition.VideoBitrate,
		"-bufsize", rendition.VideoBitrate,
		"-vf", scaleFilter(rendition.Scale),
		"-sc_threshold", "0",
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%s)", seg),
		"-hls_time", seg,
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", filepath.Join(outDir, SegmentFilePattern),
		"-y", filepath.Join(outDir, VariantPlaylistName),
	}
}

// scaleFilter maps a "?x360"-style size to an ffmpeg scale expression,
// keeping the source aspect ratio and an even width for libx264.
func scaleFilter(scale string) string {
	height := strings.TrimPrefix(scale, "?x")
	return fmt.Sprintf("scale=-2:%s", height)
}

// Thumbnail grabs one poster frame near the start of the video. Best-effort:
// the caller logs a failure and publishes without a poster.
func (e *ffmpegEncoder) Thumbnail(ctx context.Context, sourcePath, outDir string) (string, error) {
	outPath := filepath.Join(outDir, ThumbnailName)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", strconv.Itoa(thumbnailOffsetSec),
		"-i", sourcePath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("thumbnail capture failed: %v, stderr: %s", err, stderr.String())
	}
	return outPath, nil
}
