package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewClient accepts either a redis:// URL or a bare host:port.
func NewClient(address, password string) *redis.Client {
	opts, err := redis.ParseURL(address)
	if err != nil {
		opts = &redis.Options{
			Addr:         address,
			Password:     password,
			DB:           0,
			Protocol:     2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	} else if password != "" {
		opts.Password = password
	}
	return redis.NewClient(opts)
}

// Connect builds a client and checks it answers.
func Connect(ctx context.Context, address, password string) (*redis.Client, error) {
	client := NewClient(address, password)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", address)
	}
	logrus.WithField("address", address).Info("connected to redis")
	return client, nil
}
