package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/parishmedia/hls-encoder/internal/mediastore"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/pkg/errors"
)

type jobsRepo struct {
	db *sqlx.DB
}

func NewJobsRepo(db *sqlx.DB) mediastore.JobsRepository {
	return &jobsRepo{
		db: db,
	}
}

// ClaimJob inserts the dedup row for this object generation. A false return
// means another delivery of the same event already claimed it.
func (j *jobsRepo) ClaimJob(ctx context.Context, job *models.PipelineJob) (bool, error) {
	res, err := j.db.ExecContext(
		ctx,
		claimJobQuery,
		job.JobID,
		job.Bucket,
		job.ObjectKey,
		job.Generation,
		job.Status,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to claim job")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read claim result")
	}
	return rows == 1, nil
}

func (j *jobsRepo) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	if _, err := j.db.ExecContext(
		ctx,
		updateJobStatusQuery,
		jobID,
		status,
		errMsg,
		status.Terminal(),
	); err != nil {
		return errors.Wrap(err, "failed to update job status")
	}
	return nil
}

func (j *jobsRepo) SetResult(ctx context.Context, jobID, hlsURL string) error {
	if _, err := j.db.ExecContext(ctx, setJobResultQuery, jobID, hlsURL); err != nil {
		return errors.Wrap(err, "failed to set job result")
	}
	return nil
}

func (j *jobsRepo) GetJob(ctx context.Context, jobID string) (*models.PipelineJob, error) {
	job := &models.PipelineJob{}
	if err := j.db.GetContext(ctx, job, getJobQuery, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get job")
	}
	return job, nil
}
