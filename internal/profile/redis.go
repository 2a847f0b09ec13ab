package profile

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisKV is the part of the go-redis client the store uses.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each profile as a JSON value under prefix+id.
type RedisStore struct {
	rdb    RedisKV
	prefix string
	close  func() error
}

func NewRedisStore(rdb RedisKV, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// DialRedis connects to url and verifies the server answers.
func DialRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis url is not configured")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}

	s := NewRedisStore(rdb, prefix)
	s.close = rdb.Close
	return s, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Profile, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, errors.Wrapf(err, "failed to read profile %s", id)
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, errors.Wrapf(err, "profile %s is malformed", id)
	}
	return p, nil
}

func (s *RedisStore) Put(ctx context.Context, p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to encode profile")
	}
	if err := s.rdb.Set(ctx, s.prefix+p.ID, raw, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to save profile %s", p.ID)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", 200).Result()
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan profiles")
		}
		for _, key := range keys {
			p, err := s.Get(ctx, strings.TrimPrefix(key, s.prefix))
			if err != nil {
				profileLogger.Warn().Err(err).Str("key", key).Msg("Skipping profile")
				continue
			}
			profiles = append(profiles, p)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	sortProfiles(profiles)
	if profiles == nil {
		profiles = []Profile{}
	}
	return profiles, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.prefix+id).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete profile %s", id)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}
