package redis

import (
	"context"
	"errors"

	"github.com/angelmondragon/skawsh-sack/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// Storage adapts the client to the sack storage surface. Snapshots never expire.
func (c *Client) Storage() storage.Storage {
	return sackStorage{client: c}
}

type sackStorage struct {
	client *Client
}

func (s sackStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.client.SackKey(key))
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	return v, err
}

func (s sackStorage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.client.SackKey(key), value, 0)
}

func (s sackStorage) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.client.SackKey(key))
}
