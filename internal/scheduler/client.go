package scheduler

import (
	"context"
	"crypto/tls"
	"time"

	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/config"
	"enrichment_backend/platform/logger"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
)

const (
	taskMaxRetry  = 5
	taskTimeout   = 5 * time.Minute
	taskRetention = 72 * time.Hour
)

// redisConnOpt translates the REDIS_URL configuration into the queue's
// connection options.
func redisConnOpt(cfg config.SchedulerConfig) (asynq.RedisConnOpt, error) {
	opts, err := goredis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnrecoverable, "invalid redis url", err).WithOp("scheduler")
	}

	connOpt := asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.TLSConfig != nil {
		connOpt.TLSConfig = opts.TLSConfig
		if cfg.GetRedisTLSInsecure() {
			connOpt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}
	return connOpt, nil
}

// Client enqueues enrichment tasks.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

// NewClient creates a queue producer.
func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	connOpt, err := redisConnOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(connOpt),
		queue:  cfg.GetQueueName(),
		log:    log,
	}, nil
}

// EnqueueContactEnrich queues one contact for enrichment and returns the
// request id that will key its outcome.
func (c *Client) EnqueueContactEnrich(ctx context.Context, payload ContactEnrichPayload) (string, error) {
	task, settled, err := NewContactEnrichTask(payload)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(taskMaxRetry),
		asynq.Timeout(taskTimeout),
		asynq.Retention(taskRetention),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "enqueueing task", err).WithOp("scheduler")
	}

	c.log.Debug("task enqueued",
		"task_id", info.ID,
		"queue", info.Queue,
		"request_id", settled.RequestID,
	)
	return settled.RequestID, nil
}

// Close releases the queue connection.
func (c *Client) Close() error {
	return c.client.Close()
}
