package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/valutatrade/hub/internal/entities"
)

const (
	updatedChannel = "rates:updated"
	refreshChannel = "rates:refresh"
)

// Storage bridges the updater to collaborators over redis pub/sub: it
// announces persisted cycles and receives on-demand refresh requests.
type Storage struct {
	rdb    *redis.Client
	pubsub *redis.PubSub
}

func InitStorage(ctx context.Context, options *redis.Options) (*Storage, error) {
	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &Storage{
		rdb:    redisClient,
		pubsub: redisClient.Subscribe(ctx, refreshChannel),
	}, nil
}

// PublishUpdated announces a persisted aggregation cycle. The payload is the
// UpdateReport JSON.
func (s *Storage) PublishUpdated(ctx context.Context, report entities.UpdateReport) error {
	const op = "redis.PublishUpdated"

	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, op)
	}

	if err := s.rdb.Publish(ctx, updatedChannel, payload).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

// ListenRefresh blocks until a refresh request arrives; the message payload
// is the source filter ("" means all providers).
func (s *Storage) ListenRefresh(ctx context.Context) (string, error) {
	const op = "redis.ListenRefresh"

	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return "", errors.Wrap(err, op)
	}

	slog.Debug("Received refresh request", "filter", msg.Payload)

	return msg.Payload, nil
}

func (s *Storage) Close() error {
	if err := s.pubsub.Close(); err != nil {
		return err
	}
	return s.rdb.Close()
}
