package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/shakify/pkg/result"
)

// DefaultRedisKey is the key holding the document when none is configured.
const DefaultRedisKey = "shakify:results"

// RedisStore keeps the document as one Redis string. SET replaces it
// atomically.
type RedisStore struct {
	client *redis.Client
	key    string
	addr   string
}

// NewRedisStore connects to the server at url and verifies the connection.
// url has the form redis://[user:password@]host:port[/db]. An empty key uses
// [DefaultRedisKey].
func NewRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, addr: opts.Addr}, nil
}

// Load fetches the document; a missing key yields an empty document.
func (s *RedisStore) Load(ctx context.Context) (result.Document, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data), nil
}

// Save replaces the document.
func (s *RedisStore) Save(ctx context.Context, doc result.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// Clear deletes the key.
func (s *RedisStore) Clear(ctx context.Context) (bool, error) {
	n, err := s.client.Del(ctx, s.key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Location returns redis://<addr>/<key>.
func (s *RedisStore) Location() string {
	return "redis://" + s.addr + "/" + s.key
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
