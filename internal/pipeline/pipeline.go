package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parishmedia/hls-encoder/internal/catalog"
	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/encoder"
	"github.com/parishmedia/hls-encoder/internal/hls"
	"github.com/parishmedia/hls-encoder/internal/mediastore"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/parishmedia/hls-encoder/pkg/logger"
)

const (
	MasterManifestName = "master.m3u8"
	outputPrefixFormat = "sermons/hls/%s/"
)

// RecordFinder locates the catalog record for a source object.
type RecordFinder interface {
	FindRecordID(ctx context.Context, srcPath string) (string, error)
}

// Pipeline runs one upload event to a terminal state: plan, encode, publish,
// compose, reconcile, notify. The working directory is owned exclusively by
// the run and removed on every exit path once created.
type Pipeline struct {
	cfg      *config.Config
	logger   logger.Logger
	awsRepo  mediastore.AWSRepository
	jobsRepo mediastore.JobsRepository
	enc      encoder.Encoder
	finder   RecordFinder
	notifier catalog.Client
}

// NewPipeline wires the pipeline. jobsRepo may be nil, in which case runs
// are not deduplicated against redelivered events.
func NewPipeline(
	cfg *config.Config,
	logger logger.Logger,
	awsRepo mediastore.AWSRepository,
	jobsRepo mediastore.JobsRepository,
	enc encoder.Encoder,
	finder RecordFinder,
	notifier catalog.Client,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		logger:   logger,
		awsRepo:  awsRepo,
		jobsRepo: jobsRepo,
		enc:      enc,
		finder:   finder,
		notifier: notifier,
	}
}

// Run processes a single upload event. Filter rejections and lost dedup
// claims return nil: they are no-ops, not failures.
func (p *Pipeline) Run(ctx context.Context, event *models.UploadEvent) error {
	if !IsVideoObject(event) {
		p.logger.Infof("skipping non-video or already-processed object: %s", event.ObjectKey)
		return nil
	}
	if !HasSupportedExtension(event.ObjectKey) {
		p.logger.Infof("unsupported video extension, skipping: %s", event.ObjectKey)
		return nil
	}
	if err := p.cfg.ValidateCatalog(); err != nil {
		p.logger.Errorf("missing catalog base URL or secret, aborting before any work: %v", err)
		return err
	}

	job := &models.PipelineJob{
		JobID:      uuid.NewString(),
		Bucket:     event.Bucket,
		ObjectKey:  event.ObjectKey,
		Generation: event.Generation,
		Status:     models.JobStatusClaimed,
	}
	if p.jobsRepo != nil {
		claimed, err := p.jobsRepo.ClaimJob(ctx, job)
		if err != nil {
			p.logger.Warnf("job ledger unavailable, running unguarded: %v", err)
		} else if !claimed {
			p.logger.Infof("object %s generation %q already claimed, skipping duplicate delivery", event.ObjectKey, event.Generation)
			return nil
		}
	}

	workDir := filepath.Join(os.TempDir(), fmt.Sprintf("hls-%d", time.Now().UnixMilli()))
	outDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	defer p.cleanup(workDir)

	srcLocal := filepath.Join(workDir, filepath.Base(event.ObjectKey))
	p.setStatus(ctx, job, models.JobStatusDownloading, "")
	p.logger.Infof("downloading %s/%s to %s", event.Bucket, event.ObjectKey, srcLocal)
	if err := p.awsRepo.DownloadToFile(ctx, event.Bucket, event.ObjectKey, srcLocal); err != nil {
		return fmt.Errorf("failed to download source: %w", err)
	}

	ext := filepath.Ext(event.ObjectKey)
	baseName := strings.TrimSuffix(filepath.Base(event.ObjectKey), ext)
	dstPrefix := fmt.Sprintf(outputPrefixFormat, baseName)

	renditions := hls.PlanRenditions(p.cfg.HLS)

	// Strictly sequential: one encoder process at a time keeps peak resource
	// usage independent of the ladder size.
	p.setStatus(ctx, job, models.JobStatusEncoding, "")
	for _, r := range renditions {
		varDir := filepath.Join(outDir, r.Name)
		if err := os.MkdirAll(varDir, 0o755); err != nil {
			p.setStatus(ctx, job, models.JobStatusEncodeFailed, err.Error())
			return fmt.Errorf("failed to create rendition directory: %w", err)
		}
		if err := p.enc.EncodeRendition(ctx, srcLocal, varDir, r); err != nil {
			p.setStatus(ctx, job, models.JobStatusEncodeFailed, err.Error())
			return fmt.Errorf("encode aborted at rendition %s: %w", r.Name, err)
		}
		p.logger.Infof("rendition %s complete", r.Name)
	}

	duration, err := p.enc.Duration(ctx, srcLocal)
	if err != nil {
		p.logger.Warnf("duration probe failed, callback will omit duration: %v", err)
		duration = 0
	}
	if _, err = p.enc.Thumbnail(ctx, srcLocal, outDir); err != nil {
		p.logger.Warnf("thumbnail capture failed, publishing without poster: %v", err)
	}

	p.setStatus(ctx, job, models.JobStatusPublishing, "")
	published := make([]models.PublishedRendition, 0, len(renditions))
	var destKeys []string
	for _, r := range renditions {
		pr, err := p.publishRendition(ctx, event.Bucket, filepath.Join(outDir, r.Name), dstPrefix, r)
		destKeys = append(destKeys, pr.DestKeys...)
		if err != nil {
			p.setStatus(ctx, job, models.JobStatusPublishFailed, err.Error())
			p.removeArtifacts(ctx, event.Bucket, destKeys)
			return fmt.Errorf("failed to publish rendition %s: %w", r.Name, err)
		}
		published = append(published, pr)
	}
	posterURL := p.publishThumbnail(ctx, event.Bucket, outDir, dstPrefix)
	if posterURL != "" {
		destKeys = append(destKeys, dstPrefix+encoder.ThumbnailName)
	}

	p.setStatus(ctx, job, models.JobStatusComposing, "")
	masterAsset := &models.PublishedAsset{
		DestKey:      dstPrefix + MasterManifestName,
		Token:        uuid.NewString(),
		ContentType:  playlistContentType,
		CacheControl: masterCacheControl,
	}
	if err = p.awsRepo.SaveText(ctx, event.Bucket, hls.ComposeMaster(published), masterAsset); err != nil {
		p.setStatus(ctx, job, models.JobStatusPublishFailed, err.Error())
		p.removeArtifacts(ctx, event.Bucket, destKeys)
		return fmt.Errorf("failed to upload master manifest: %w", err)
	}
	destKeys = append(destKeys, masterAsset.DestKey)
	if p.jobsRepo != nil {
		if err = p.jobsRepo.SetResult(ctx, job.JobID, masterAsset.PublicURL); err != nil {
			p.logger.Warnf("failed to record manifest URL in ledger: %v", err)
		}
	}

	p.setStatus(ctx, job, models.JobStatusReconciling, "")
	recordID, err := p.finder.FindRecordID(ctx, event.ObjectKey)
	if err != nil {
		p.setStatus(ctx, job, models.JobStatusReconcileFailed, err.Error())
		p.logger.Errorf("no catalog record for %s; %d published objects under %s are orphaned", event.ObjectKey, len(destKeys), dstPrefix)
		return err
	}

	p.setStatus(ctx, job, models.JobStatusNotifying, "")
	payload := &models.HLSCallback{HLSUrl: masterAsset.PublicURL}
	if duration > 0 {
		payload.DurationSec = &duration
	}
	if posterURL != "" {
		payload.Thumbnails = &models.Thumbnails{Poster: posterURL}
	}
	if err = p.notifier.NotifyHLSReady(ctx, recordID, payload); err != nil {
		// Done but unlinked: the manifest exists, the record was never
		// patched. A single attempt only; a human follows up from the log.
		p.logger.Errorf("callback for record %s failed: %v", recordID, err)
	} else {
		p.logger.Infof("callback delivered for record %s", recordID)
	}

	p.setStatus(ctx, job, models.JobStatusDone, "")
	return nil
}

func (p *Pipeline) setStatus(ctx context.Context, job *models.PipelineJob, status models.JobStatus, errMsg string) {
	job.Status = status
	if p.jobsRepo == nil {
		return
	}
	if err := p.jobsRepo.UpdateStatus(ctx, job.JobID, status, errMsg); err != nil {
		p.logger.Warnf("failed to update job %s status to %s: %v", job.JobID, status, err)
	}
}

// removeArtifacts sweeps already-uploaded objects after a publish failure.
// A half-published ladder is unplayable, so unlike a reconcile failure the
// partial output is garbage, not an orphan worth keeping.
func (p *Pipeline) removeArtifacts(ctx context.Context, bucket string, keys []string) {
	for _, key := range keys {
		if err := p.awsRepo.RemoveObject(ctx, bucket, key); err != nil {
			p.logger.Warnf("failed to remove partial artifact %s: %v", key, err)
		}
	}
}

func (p *Pipeline) cleanup(workDir string) {
	p.logger.Infof("cleaning working directory %s", workDir)
	if err := os.RemoveAll(workDir); err != nil {
		// The job's externally visible outcome is already fixed.
		p.logger.Warnf("failed to remove working directory: %v", err)
	}
}
