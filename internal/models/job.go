package models

import "time"

type JobStatus string

const (
	JobStatusClaimed         JobStatus = "claimed"
	JobStatusDownloading     JobStatus = "downloading"
	JobStatusEncoding        JobStatus = "encoding"
	JobStatusPublishing      JobStatus = "publishing"
	JobStatusComposing       JobStatus = "composing"
	JobStatusReconciling     JobStatus = "reconciling"
	JobStatusNotifying       JobStatus = "notifying"
	JobStatusDone            JobStatus = "done"
	JobStatusEncodeFailed    JobStatus = "encode_failed"
	JobStatusPublishFailed   JobStatus = "publish_failed"
	JobStatusReconcileFailed JobStatus = "reconcile_failed"
)

// PipelineJob is the ledger row for one pipeline run. The (bucket, object
// key, generation) triple doubles as the idempotency key: a redelivered
// storage event fails the claim insert and is dropped.
type PipelineJob struct {
	JobID       string    `json:"job_id" db:"job_id"`
	Bucket      string    `json:"bucket" db:"bucket"`
	ObjectKey   string    `json:"object_key" db:"object_key"`
	Generation  string    `json:"generation" db:"generation"`
	Status      JobStatus `json:"status" db:"status"`
	HLSUrl      string    `json:"hls_url" db:"hls_url"`
	ErrorMsg    string    `json:"error_msg" db:"error_msg"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusDone, JobStatusEncodeFailed, JobStatusPublishFailed, JobStatusReconcileFailed:
		return true
	}
	return false
}
