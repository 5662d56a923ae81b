package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes review actions per order id. The database transition is
// already a compare-and-set; this lock just keeps duplicate webhook
// deliveries from both reaching the database and from double-editing the
// operator message.
type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

const lockTTL = 30 * time.Second

// LockOrder takes a short-lived processing lock for an order. Returns false
// when another delivery already holds it.
func (r *Redis) LockOrder(ctx context.Context, orderID, token string) (bool, error) {
	key := "order_lock:" + orderID
	return r.Client.SetNX(ctx, key, token, lockTTL).Result()
}

// UnlockOrder releases the lock if the caller still owns it.
func (r *Redis) UnlockOrder(ctx context.Context, orderID, token string) error {
	key := "order_lock:" + orderID
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
