package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/parishmedia/hls-encoder/internal/mediastore"
	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/pkg/errors"
)

type eventRedisRepo struct {
	redisClient *redis.Client
}

func NewEventRedisRepo(redisClient *redis.Client) mediastore.RedisRepository {
	return &eventRedisRepo{
		redisClient: redisClient,
	}
}

func (r *eventRedisRepo) EnqueueEvent(ctx context.Context, key string, event *models.UploadEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal upload event")
	}
	return r.redisClient.LPush(ctx, key, data).Err()
}

// DequeueEvent blocks up to timeout for the next event. A nil event with nil
// error means the timeout elapsed with an empty queue.
func (r *eventRedisRepo) DequeueEvent(ctx context.Context, key string, timeout time.Duration) (*models.UploadEvent, error) {
	res, err := r.redisClient.BRPop(ctx, timeout, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to pop upload event")
	}
	event := &models.UploadEvent{}
	if err = json.Unmarshal([]byte(res[1]), event); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal upload event")
	}
	return event, nil
}

func (r *eventRedisRepo) QueueLen(ctx context.Context, key string) (int64, error) {
	return r.redisClient.LLen(ctx, key).Result()
}
