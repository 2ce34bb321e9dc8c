package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

var Client *redis.Client

func InitRedisCli() (*redis.Client, error) {
	if Client != nil {
		return Client, nil
	}

	url := os.Getenv("REDIS_URL")
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	cli := redis.NewClient(opts)

	Client = cli

	return cli, nil
}

func pendingPaymentKey(positionId int64) string {
	return fmt.Sprintf("pending_payment:%d", positionId)
}

// TrackPendingPayment sets a TTL key for a freshly created position.
// Once the key expires the sweep scheduler marks the position EXPIRED.
func TrackPendingPayment(positionId int64, ttl time.Duration) error {
	cli, err := InitRedisCli()
	if err != nil {
		return err
	}
	return cli.Set(ctx, pendingPaymentKey(positionId), "1", ttl).Err()
}

func ClearPendingPayment(positionId int64) error {
	cli, err := InitRedisCli()
	if err != nil {
		return err
	}
	return cli.Del(ctx, pendingPaymentKey(positionId)).Err()
}

func IsPendingPaymentTracked(positionId int64) (bool, error) {
	cli, err := InitRedisCli()
	if err != nil {
		return false, err
	}
	n, err := cli.Exists(ctx, pendingPaymentKey(positionId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
