package repository

const (
	claimJobQuery = `INSERT INTO pipeline_jobs (job_id, bucket, object_key, generation, status, started_at)
					VALUES ($1, $2, $3, $4, $5, now())
					ON CONFLICT (bucket, object_key, generation) DO NOTHING`
	updateJobStatusQuery = `UPDATE pipeline_jobs
					SET status = $2,
					    error_msg = COALESCE(NULLIF($3, ''), error_msg),
					    completed_at = CASE WHEN $4 THEN now() ELSE completed_at END
					WHERE job_id = $1`
	setJobResultQuery = `UPDATE pipeline_jobs SET hls_url = $2 WHERE job_id = $1`
	getJobQuery       = `SELECT job_id, bucket, object_key, generation, status,
					COALESCE(hls_url, '') AS hls_url, COALESCE(error_msg, '') AS error_msg,
					started_at, COALESCE(completed_at, started_at) AS completed_at
					FROM pipeline_jobs WHERE job_id = $1`
)
