package events

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// PostPublisher announces newly saved posts to other consumers
type PostPublisher interface {
	PublishPostCreated(ctx context.Context, post *models.Post) error
	Close() error
}

// NoopPublisher is used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishPostCreated(context.Context, *models.Post) error { return nil }

func (NoopPublisher) Close() error { return nil }

// RedisPublisher appends post events to a redis stream
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

// PublishPostCreated adds one entry per saved post. Unsaved posts are rejected.
func (p *RedisPublisher) PublishPostCreated(ctx context.Context, post *models.Post) error {
	values, err := postCreatedValues(post)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func postCreatedValues(post *models.Post) (map[string]interface{}, error) {
	if !post.HasID() {
		return nil, fmt.Errorf("cannot publish a post that has not been saved")
	}
	return map[string]interface{}{
		"event":        "post.created",
		"id":           *post.ID(),
		"author":       post.Author(),
		"title":        post.Title(),
		"created_date": post.CreatedDate().Format(time.RFC3339),
	}, nil
}
