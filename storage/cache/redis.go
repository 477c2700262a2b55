// Copyright 2024 savor Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/savor-io/savor/base/log"
	"go.uber.org/zap"
)

// Redis stores recommendation lists as JSON strings in Redis, leaning on its
// native key expiry for the TTL semantics.
type Redis struct {
	client *redis.Client
}

// OpenRedis connects to a Redis instance by URL.
func OpenRedis(path string) (*Redis, error) {
	opt, err := redis.ParseURL(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Redis{client: redis.NewClient(opt)}, nil
}

// Set writes a list under a key with a TTL.
func (r *Redis) Set(ctx context.Context, key string, items []string, ttl time.Duration) error {
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.client.Set(ctx, key, data, ttl).Err())
}

// Get reads a list. Missing keys and undecodable values return ErrObjectNotExist.
func (r *Redis) Get(ctx context.Context, key string) ([]string, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Trace(ErrObjectNotExist)
		}
		return nil, errors.Trace(err)
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		log.Logger().Warn("discard undecodable cache entry",
			zap.String("key", key), zap.Error(err))
		return nil, errors.Trace(ErrObjectNotExist)
	}
	return items, nil
}

// Exists reports whether a live entry is stored under the key.
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Trace(err)
	}
	return count > 0, nil
}

// Delete removes a key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return errors.Trace(r.client.Del(ctx, key).Err())
}

// Close the connection to Redis.
func (r *Redis) Close() error {
	return errors.Trace(r.client.Close())
}
