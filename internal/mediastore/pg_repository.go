package mediastore

import (
	"context"

	"github.com/parishmedia/hls-encoder/internal/models"
)

// JobsRepository is the processed-set ledger. Claim is the idempotency
// guard: it succeeds at most once per (bucket, object key, generation), so a
// redelivered storage event never reruns a job.
type JobsRepository interface {
	ClaimJob(ctx context.Context, job *models.PipelineJob) (bool, error)
	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error
	SetResult(ctx context.Context, jobID, hlsURL string) error
	GetJob(ctx context.Context, jobID string) (*models.PipelineJob, error)
}
