package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/mediastore"
	"github.com/parishmedia/hls-encoder/pkg/logger"
	"github.com/parishmedia/hls-encoder/pkg/utils"
)

// Worker consumes upload events from the queue and runs the pipeline for
// each. Distinct events may be processed by concurrent workers; each run
// owns its working directory, so they never share state.
type Worker struct {
	cfg       *config.Config
	logger    logger.Logger
	redisRepo mediastore.RedisRepository
	pipeline  *Pipeline
	wg        sync.WaitGroup
}

func NewWorker(cfg *config.Config, logger logger.Logger, redisRepo mediastore.RedisRepository, pipeline *Pipeline) *Worker {
	return &Worker{
		cfg:       cfg,
		logger:    logger,
		redisRepo: redisRepo,
		pipeline:  pipeline,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Infof("starting %d pipeline workers", w.cfg.Worker.WorkerCount)
	for i := 0; i < w.cfg.Worker.WorkerCount; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	pollTimeout := time.Duration(w.cfg.Worker.PollInterval) * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if canAccept, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !canAccept {
			w.logger.Infof("CPU usage %.2f%% too high, waiting", usage)
			w.wait(ctx, pollTimeout)
			continue
		}

		event, err := w.redisRepo.DequeueEvent(ctx, w.cfg.Redis.EventQueueKey, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Errorf("failed to dequeue upload event: %v", err)
			w.wait(ctx, pollTimeout)
			continue
		}
		if event == nil {
			continue
		}

		if err := w.pipeline.Run(ctx, event); err != nil {
			w.logger.Errorf("pipeline failed for %s/%s: %v", event.Bucket, event.ObjectKey, err)
		}
	}
}

// wait blocks for d or until shutdown, whichever comes first.
func (w *Worker) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
