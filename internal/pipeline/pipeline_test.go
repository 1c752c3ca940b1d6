package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/encoder"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/parishmedia/hls-encoder/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fakeAWS struct {
	downloads      int
	removals       int
	removedKeys    []string
	uploadCalls    int
	uploadErrAt    int
	saveTextErrKey string
	uploadedKeys   []string
	savedText      map[string]string
	contentTypes   map[string]string
	cacheControls  map[string]string
}

func newFakeAWS() *fakeAWS {
	return &fakeAWS{
		savedText:     make(map[string]string),
		contentTypes:  make(map[string]string),
		cacheControls: make(map[string]string),
	}
}

func (f *fakeAWS) GetPresignedURL(ctx context.Context, input *models.UploadInput) (string, error) {
	return "", nil
}

func (f *fakeAWS) DownloadToFile(ctx context.Context, bucket, key, localPath string) error {
	f.downloads++
	return os.WriteFile(localPath, []byte("source-bytes"), 0o644)
}

func (f *fakeAWS) UploadFile(ctx context.Context, bucket, localPath string, asset *models.PublishedAsset) error {
	f.uploadCalls++
	if f.uploadErrAt > 0 && f.uploadCalls == f.uploadErrAt {
		return errors.New("s3 put failed")
	}
	f.uploadedKeys = append(f.uploadedKeys, asset.DestKey)
	f.contentTypes[asset.DestKey] = asset.ContentType
	f.cacheControls[asset.DestKey] = asset.CacheControl
	asset.PublicURL = f.DownloadURL(bucket, asset.DestKey, asset.Token)
	return nil
}

func (f *fakeAWS) SaveText(ctx context.Context, bucket, content string, asset *models.PublishedAsset) error {
	if f.saveTextErrKey != "" && asset.DestKey == f.saveTextErrKey {
		return errors.New("s3 put failed")
	}
	f.savedText[asset.DestKey] = content
	f.contentTypes[asset.DestKey] = asset.ContentType
	f.cacheControls[asset.DestKey] = asset.CacheControl
	asset.PublicURL = f.DownloadURL(bucket, asset.DestKey, asset.Token)
	return nil
}

func (f *fakeAWS) RemoveObject(ctx context.Context, bucket, key string) error {
	f.removals++
	f.removedKeys = append(f.removedKeys, key)
	return nil
}

func (f *fakeAWS) DownloadURL(bucket, key, token string) string {
	return fmt.Sprintf("https://dl.test/v0/b/%s/o/%s?alt=media&token=%s", bucket, url.PathEscape(key), token)
}

type fakeEncoder struct {
	renditionsRun []string
	failAt        int
	durationErr   error
	noThumbnail   bool
}

func (f *fakeEncoder) EncodeRendition(ctx context.Context, sourcePath, outDir string, rendition models.Rendition) error {
	f.renditionsRun = append(f.renditionsRun, rendition.Name)
	if f.failAt > 0 && len(f.renditionsRun) == f.failAt {
		return errors.New("encoder exited with status 1")
	}
	var playlist strings.Builder
	playlist.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n")
	for i := 0; i < 2; i++ {
		name := fmt.Sprintf(encoder.SegmentFilePattern, i)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("segment"), 0o644); err != nil {
			return err
		}
		playlist.WriteString("#EXTINF:6.000000,\n")
		playlist.WriteString(name + "\n")
	}
	playlist.WriteString("#EXT-X-ENDLIST\n")
	return os.WriteFile(filepath.Join(outDir, encoder.VariantPlaylistName), []byte(playlist.String()), 0o644)
}

func (f *fakeEncoder) Duration(ctx context.Context, sourcePath string) (float64, error) {
	if f.durationErr != nil {
		return 0, f.durationErr
	}
	return 1832.5, nil
}

func (f *fakeEncoder) Thumbnail(ctx context.Context, sourcePath, outDir string) (string, error) {
	if f.noThumbnail {
		return "", errors.New("no video stream")
	}
	thumbPath := filepath.Join(outDir, encoder.ThumbnailName)
	return thumbPath, os.WriteFile(thumbPath, []byte("jpeg"), 0o644)
}

type fakeFinder struct {
	recordID string
	err      error
	calls    int
}

func (f *fakeFinder) FindRecordID(ctx context.Context, srcPath string) (string, error) {
	f.calls++
	return f.recordID, f.err
}

type fakeNotifier struct {
	calls    int
	recordID string
	payload  *models.HLSCallback
	err      error
}

func (f *fakeNotifier) ListRecords(ctx context.Context) ([]models.ContentRecord, error) {
	return nil, nil
}

func (f *fakeNotifier) NotifyHLSReady(ctx context.Context, recordID string, payload *models.HLSCallback) error {
	f.calls++
	f.recordID = recordID
	f.payload = payload
	return f.err
}

type fakeJobs struct {
	claims    int
	claimOK   bool
	claimErr  error
	statuses  []models.JobStatus
	resultURL string
}

func (f *fakeJobs) ClaimJob(ctx context.Context, job *models.PipelineJob) (bool, error) {
	f.claims++
	return f.claimOK, f.claimErr
}

func (f *fakeJobs) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeJobs) SetResult(ctx context.Context, jobID, hlsURL string) error {
	f.resultURL = hlsURL
	return nil
}

func (f *fakeJobs) GetJob(ctx context.Context, jobID string) (*models.PipelineJob, error) {
	return nil, nil
}

func pipelineConfig() *config.Config {
	cfg := &config.Config{}
	cfg.HLS = config.HLSConfig{
		CRF:            "22",
		Preset:         "veryfast",
		SegmentSeconds: 6,
		MaxRate360p:    "700k",
		MaxRate540p:    "1200k",
		MaxRate720p:    "2200k",
		MaxRate1080p:   "4200k",
	}
	cfg.Catalog = config.CatalogConfig{
		BaseURL:       "https://catalog.test/api",
		Secret:        "shared-secret",
		LookupRetries: 1,
	}
	return cfg
}

func pipelineLogger(t *testing.T) logger.Logger {
	t.Helper()
	cfg := &config.Config{}
	cfg.Logger.Level = "error"
	cfg.Logger.Encoding = "console"
	log := logger.NewApiLogger(cfg)
	log.InitLogger()
	return log
}

func videoEvent() *models.UploadEvent {
	return &models.UploadEvent{
		Bucket:      "parish-media",
		ObjectKey:   "sermons/uploads/sunday.mp4",
		ContentType: "video/mp4",
		Generation:  "1724900000000000",
	}
}

func TestRunPublishesFullLadder(t *testing.T) {
	aws := newFakeAWS()
	enc := &fakeEncoder{}
	finder := &fakeFinder{recordID: "rec-1"}
	notifier := &fakeNotifier{}
	jobs := &fakeJobs{claimOK: true}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, enc, finder, notifier)
	require.NoError(t, p.Run(context.Background(), videoEvent()))

	require.Equal(t, []string{"360p", "540p", "720p", "1080p"}, enc.renditionsRun)
	require.Equal(t, 1, aws.downloads)

	master, ok := aws.savedText["sermons/hls/sunday/master.m3u8"]
	require.True(t, ok, "master manifest was not uploaded")
	require.Contains(t, master, "#EXTM3U")
	last := -1
	for _, bw := range []string{"896000", "1428000", "2428000", "4460000"} {
		idx := strings.Index(master, "BANDWIDTH="+bw)
		require.Greater(t, idx, last, "variant with bandwidth %s missing or out of order", bw)
		last = idx
	}

	variant, ok := aws.savedText["sermons/hls/sunday/360p/index.m3u8"]
	require.True(t, ok)
	require.Contains(t, variant, "https://dl.test/v0/b/parish-media/o/")
	require.Contains(t, variant, "alt=media&token=")
	require.NotContains(t, variant, "\nsegment_000.ts\n")

	segKey := "sermons/hls/sunday/360p/segment_000.ts"
	require.Contains(t, aws.uploadedKeys, segKey)
	require.Equal(t, "video/mp2t", aws.contentTypes[segKey])
	require.Equal(t, "public, max-age=31536000", aws.cacheControls[segKey])
	require.Equal(t, "public, max-age=3600", aws.cacheControls["sermons/hls/sunday/360p/index.m3u8"])
	require.Equal(t, "public, max-age=1800", aws.cacheControls["sermons/hls/sunday/master.m3u8"])

	require.Equal(t, 1, notifier.calls)
	require.Equal(t, "rec-1", notifier.recordID)
	require.Contains(t, notifier.payload.HLSUrl, "master.m3u8")
	require.NotNil(t, notifier.payload.DurationSec)
	require.Equal(t, 1832.5, *notifier.payload.DurationSec)
	require.NotNil(t, notifier.payload.Thumbnails)
	require.Contains(t, notifier.payload.Thumbnails.Poster, "thumb.jpg")

	require.Equal(t, notifier.payload.HLSUrl, jobs.resultURL)
	require.Equal(t, models.JobStatusDone, jobs.statuses[len(jobs.statuses)-1])
}

func TestRunStopsLadderOnEncodeFailure(t *testing.T) {
	aws := newFakeAWS()
	enc := &fakeEncoder{failAt: 2}
	notifier := &fakeNotifier{}
	jobs := &fakeJobs{claimOK: true}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, enc, &fakeFinder{}, notifier)
	err := p.Run(context.Background(), videoEvent())
	require.Error(t, err)
	require.Contains(t, err.Error(), "540p")

	require.Equal(t, []string{"360p", "540p"}, enc.renditionsRun)
	require.Empty(t, aws.uploadedKeys)
	require.Empty(t, aws.savedText)
	require.Zero(t, notifier.calls)
	require.Equal(t, models.JobStatusEncodeFailed, jobs.statuses[len(jobs.statuses)-1])
}

func TestRunSweepsPartialArtifactsOnPublishFailure(t *testing.T) {
	aws := newFakeAWS()
	// First rendition publishes fully, the second fails on its first segment.
	aws.uploadErrAt = 3
	notifier := &fakeNotifier{}
	jobs := &fakeJobs{claimOK: true}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, &fakeEncoder{}, &fakeFinder{}, notifier)
	err := p.Run(context.Background(), videoEvent())
	require.Error(t, err)
	require.Contains(t, err.Error(), "540p")

	require.ElementsMatch(t, []string{
		"sermons/hls/sunday/360p/segment_000.ts",
		"sermons/hls/sunday/360p/segment_001.ts",
		"sermons/hls/sunday/360p/index.m3u8",
	}, aws.removedKeys)
	require.Zero(t, notifier.calls)
	last := jobs.statuses[len(jobs.statuses)-1]
	require.Equal(t, models.JobStatusPublishFailed, last)
	require.True(t, last.Terminal())
}

func TestRunSweepsArtifactsOnMasterUploadFailure(t *testing.T) {
	aws := newFakeAWS()
	aws.saveTextErrKey = "sermons/hls/sunday/master.m3u8"
	notifier := &fakeNotifier{}
	jobs := &fakeJobs{claimOK: true}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, &fakeEncoder{}, &fakeFinder{}, notifier)
	require.Error(t, p.Run(context.Background(), videoEvent()))

	// Everything published before the master goes: 8 segments, 4 variant
	// playlists, the poster.
	require.Len(t, aws.removedKeys, 13)
	require.Contains(t, aws.removedKeys, "sermons/hls/sunday/1080p/index.m3u8")
	require.Contains(t, aws.removedKeys, "sermons/hls/sunday/thumb.jpg")
	require.NotContains(t, aws.removedKeys, "sermons/hls/sunday/master.m3u8")
	require.Zero(t, notifier.calls)
	require.Equal(t, models.JobStatusPublishFailed, jobs.statuses[len(jobs.statuses)-1])
}

func TestRunSkipsDuplicateClaim(t *testing.T) {
	aws := newFakeAWS()
	enc := &fakeEncoder{}
	jobs := &fakeJobs{claimOK: false}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, enc, &fakeFinder{}, &fakeNotifier{})
	require.NoError(t, p.Run(context.Background(), videoEvent()))

	require.Equal(t, 1, jobs.claims)
	require.Zero(t, aws.downloads)
	require.Empty(t, enc.renditionsRun)
}

func TestRunIgnoresFilteredObjects(t *testing.T) {
	aws := newFakeAWS()
	jobs := &fakeJobs{claimOK: true}
	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, &fakeEncoder{}, &fakeFinder{}, &fakeNotifier{})

	image := videoEvent()
	image.ObjectKey = "sermons/uploads/poster.jpg"
	image.ContentType = "image/jpeg"
	require.NoError(t, p.Run(context.Background(), image))

	ownOutput := videoEvent()
	ownOutput.ObjectKey = "sermons/hls/sunday/360p/segment_001.ts"
	ownOutput.ContentType = "video/mp2t"
	require.NoError(t, p.Run(context.Background(), ownOutput))

	unsupported := videoEvent()
	unsupported.ObjectKey = "sermons/uploads/sunday.avi"
	require.NoError(t, p.Run(context.Background(), unsupported))

	require.Zero(t, jobs.claims)
	require.Zero(t, aws.downloads)
}

func TestRunAbortsWithoutCatalogConfig(t *testing.T) {
	cfg := pipelineConfig()
	cfg.Catalog = config.CatalogConfig{}
	aws := newFakeAWS()

	p := NewPipeline(cfg, pipelineLogger(t), aws, nil, &fakeEncoder{}, &fakeFinder{}, &fakeNotifier{})
	require.Error(t, p.Run(context.Background(), videoEvent()))
	require.Zero(t, aws.downloads)
}

func TestRunKeepsArtifactsWhenNoRecordMatches(t *testing.T) {
	aws := newFakeAWS()
	finder := &fakeFinder{err: errors.New("no catalog record matched source path")}
	notifier := &fakeNotifier{}
	jobs := &fakeJobs{claimOK: true}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, &fakeEncoder{}, finder, notifier)
	require.Error(t, p.Run(context.Background(), videoEvent()))

	require.NotEmpty(t, aws.uploadedKeys)
	require.Contains(t, aws.savedText, "sermons/hls/sunday/master.m3u8")
	require.Zero(t, aws.removals)
	require.Zero(t, notifier.calls)
	require.Equal(t, models.JobStatusReconcileFailed, jobs.statuses[len(jobs.statuses)-1])
}

func TestRunSucceedsWhenCallbackFails(t *testing.T) {
	jobs := &fakeJobs{claimOK: true}
	notifier := &fakeNotifier{err: errors.New("callback returned 503")}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), newFakeAWS(), jobs, &fakeEncoder{}, &fakeFinder{recordID: "rec-2"}, notifier)
	require.NoError(t, p.Run(context.Background(), videoEvent()))

	require.Equal(t, 1, notifier.calls)
	require.Equal(t, models.JobStatusDone, jobs.statuses[len(jobs.statuses)-1])
}

func TestRunOmitsUnknownOptionalFields(t *testing.T) {
	enc := &fakeEncoder{durationErr: errors.New("probe timed out"), noThumbnail: true}
	notifier := &fakeNotifier{}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), newFakeAWS(), nil, enc, &fakeFinder{recordID: "rec-3"}, notifier)
	require.NoError(t, p.Run(context.Background(), videoEvent()))

	require.Equal(t, 1, notifier.calls)
	require.Nil(t, notifier.payload.DurationSec)
	require.Nil(t, notifier.payload.Thumbnails)
}

func TestRunUnguardedWhenLedgerUnavailable(t *testing.T) {
	aws := newFakeAWS()
	jobs := &fakeJobs{claimErr: errors.New("connection refused")}
	notifier := &fakeNotifier{}

	p := NewPipeline(pipelineConfig(), pipelineLogger(t), aws, jobs, &fakeEncoder{}, &fakeFinder{recordID: "rec-4"}, notifier)
	require.NoError(t, p.Run(context.Background(), videoEvent()))

	require.Equal(t, 1, aws.downloads)
	require.Equal(t, 1, notifier.calls)
}
