package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/mediastore"
	"github.com/parishmedia/hls-encoder/internal/mediastore/repository"
	"github.com/parishmedia/hls-encoder/internal/middleware"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/parishmedia/hls-encoder/internal/pipeline"
	"github.com/parishmedia/hls-encoder/pkg/logger"
	"github.com/parishmedia/hls-encoder/pkg/utils"
)

const uploadPrefix = "sermons/uploads/"

func (s *Server) MapHandlers(e *echo.Echo) error {
	awsRepo := repository.NewAwsRepository(s.s3Client, s.preSignClient, s.cfg.S3.DownloadHost)
	redisRepo := repository.NewEventRedisRepo(s.redisClient)
	var jobsRepo mediastore.JobsRepository
	if s.db != nil {
		jobsRepo = repository.NewJobsRepo(s.db)
	}

	h := newIngestHandlers(s.cfg, awsRepo, redisRepo, jobsRepo, s.logger)
	mw := middleware.NewMiddlewareManager(s.cfg, s.logger)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")

	guarded := v1.Group("", mw.ServiceAuthMiddleware())
	guarded.POST("/events/storage", h.StorageEvent)
	guarded.POST("/uploads/presign", h.Presign)
	guarded.GET("/jobs/:id", h.JobStatus)

	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}

type ingestHandlers struct {
	cfg       *config.Config
	awsRepo   mediastore.AWSRepository
	redisRepo mediastore.RedisRepository
	jobsRepo  mediastore.JobsRepository
	logger    logger.Logger
}

func newIngestHandlers(cfg *config.Config, awsRepo mediastore.AWSRepository, redisRepo mediastore.RedisRepository, jobsRepo mediastore.JobsRepository, logger logger.Logger) *ingestHandlers {
	return &ingestHandlers{cfg: cfg, awsRepo: awsRepo, redisRepo: redisRepo, jobsRepo: jobsRepo, logger: logger}
}

// StorageEvent accepts one finalized-object notification. Non-source
// objects are acknowledged with 204 so the notifier never retries them.
func (h *ingestHandlers) StorageEvent(c echo.Context) error {
	ctx := c.Request().Context()

	event := &models.UploadEvent{}
	if err := c.Bind(event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := utils.ValidateStruct(ctx, event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	event.ReceivedAt = time.Now().UTC()

	if !pipeline.IsVideoObject(event) || !pipeline.HasSupportedExtension(event.ObjectKey) {
		h.logger.Infof("filtered storage event for %s, RequestID: %s", event.ObjectKey, utils.GetRequestID(c))
		return c.NoContent(http.StatusNoContent)
	}

	if err := h.redisRepo.EnqueueEvent(ctx, h.cfg.Redis.EventQueueKey, event); err != nil {
		h.logger.Errorf("failed to enqueue event for %s: %v", event.ObjectKey, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to enqueue event"})
	}
	if depth, err := h.redisRepo.QueueLen(ctx, h.cfg.Redis.EventQueueKey); err == nil {
		h.logger.Infof("queued %s, queue depth %d", event.ObjectKey, depth)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

// Presign mints a PUT URL so clients upload straight to object storage;
// the storage notification then drives the pipeline.
func (h *ingestHandlers) Presign(c echo.Context) error {
	ctx := c.Request().Context()

	input := &models.UploadInput{}
	if err := c.Bind(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if !pipeline.HasSupportedExtension(input.Name) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "unsupported video extension"})
	}

	input.BucketName = h.cfg.S3.Bucket
	input.Key = uploadPrefix + input.Name
	url, err := h.awsRepo.GetPresignedURL(ctx, input)
	if err != nil {
		h.logger.Errorf("failed to presign upload for %s: %v", input.Name, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to presign upload"})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url, "key": input.Key})
}

// JobStatus reads the ledger row for one pipeline run.
func (h *ingestHandlers) JobStatus(c echo.Context) error {
	if h.jobsRepo == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "job ledger not configured"})
	}

	job, err := h.jobsRepo.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Errorf("failed to load job %s: %v", c.Param("id"), err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	return c.JSON(http.StatusOK, job)
}
