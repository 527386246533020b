// Package redisstore keeps pending payment orders in redis so that any API instance can verify them.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/payment"
)

const (
	defaultDialTimeout  = 2 * time.Second
	defaultReadTimeout  = 2 * time.Second
	defaultWriteTimeout = 2 * time.Second
	defaultPoolTimeout  = 2 * time.Second

	defaultPoolSize     = 20
	defaultMinIdleConns = 2

	keyPrefix = "sms:order:"
)

// NewClient returns a redis client for conf. It does not connect; use Ping for that.
func NewClient(conf core.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		PoolTimeout:  defaultPoolTimeout,
		PoolSize:     defaultPoolSize,
		MinIdleConns: defaultMinIdleConns,
	})
}

func Ping(ctx context.Context, rdb redis.Cmdable) error {
	return rdb.Ping(ctx).Err()
}

// OrderStore is a payment.OrderStore backed by redis. Orders expire after ttl (0 keeps them).
type OrderStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ payment.OrderStore = (*OrderStore)(nil)

func NewOrderStore(rdb redis.Cmdable, ttl time.Duration) *OrderStore {
	return &OrderStore{rdb: rdb, ttl: ttl}
}

func key(orderID string) string {
	return keyPrefix + orderID
}

func (s *OrderStore) Save(ctx context.Context, order payment.PendingOrder) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = core.NowFunc()
	}
	data, err := json.Marshal(order)
	if err != nil {
		return errors.Wrap(err, "encoding order")
	}
	if err = s.rdb.Set(ctx, key(order.OrderID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "saving order")
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (payment.PendingOrder, error) {
	var order payment.PendingOrder
	data, err := s.rdb.Get(ctx, key(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return order, payment.ErrOrderNotFound
		}
		return order, errors.Wrap(err, "getting order")
	}
	if err = json.Unmarshal(data, &order); err != nil {
		return order, errors.Wrap(err, "decoding order")
	}
	return order, nil
}

func (s *OrderStore) Delete(ctx context.Context, orderID string) error {
	if err := s.rdb.Del(ctx, key(orderID)).Err(); err != nil {
		return errors.Wrap(err, "deleting order")
	}
	return nil
}
