package queue

import (
	"context"
	"encoding/json"
	"time"

	"lending/core"

	"github.com/go-redis/redis"
)

const defaultQueueKey = "lending:deposits"

type redisQueue struct {
	Redis *redis.Client
	key   string
	poll  time.Duration
}

// NewRedis deposit queue on a redis list, LPUSH on the tail and BRPOP on the
// head keeps arrival order
func NewRedis(client *redis.Client, key string, poll time.Duration) core.DepositQueue {
	if key == "" {
		key = defaultQueueKey
	}

	if poll <= 0 {
		poll = time.Second
	}

	return &redisQueue{
		Redis: client,
		key:   key,
		poll:  poll,
	}
}

func (q *redisQueue) Push(ctx context.Context, event *core.DepositEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return q.Redis.WithContext(ctx).LPush(q.key, data).Err()
}

func (q *redisQueue) Pop(ctx context.Context) (*core.DepositEvent, error) {
	values, err := q.Redis.WithContext(ctx).BRPop(q.poll, q.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, core.ErrQueueEmpty
		}

		return nil, err
	}

	// [key, value]
	if len(values) != 2 {
		return nil, core.ErrQueueEmpty
	}

	var event core.DepositEvent
	if err := json.Unmarshal([]byte(values[1]), &event); err != nil {
		return nil, err
	}

	return &event, nil
}
