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

// Package cache stores precomputed recommendation lists with expiry.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
)

const (
	// RedisPrefix is the URL prefix of a Redis backend.
	RedisPrefix = "redis://"
	// MemoryPrefix is the URL prefix of the in-process backend.
	MemoryPrefix = "memory://"
)

// ErrObjectNotExist is returned when the key is absent, expired or undecodable.
// All three are served identically: as a cache miss.
var ErrObjectNotExist = errors.NotFoundf("object")

// UserKey is the cache key of a user's personalized list.
func UserKey(userId string) string {
	return "user:" + userId
}

// RegionKey is the cache key of a region's hotlist.
func RegionKey(region string) string {
	return "region:" + region
}

// Database stores recommendation lists keyed by user or region, each entry
// carrying its own TTL.
type Database interface {
	// Set writes a list under a key with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, items []string, ttl time.Duration) error
	// Get reads a list. Missing, expired or undecodable entries return
	// ErrObjectNotExist.
	Get(ctx context.Context, key string) ([]string, error)
	// Exists reports whether a live entry is stored under the key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the connection to the storage backend.
	Close() error
}

// Open a connection to a cache backend by URL.
func Open(path string) (Database, error) {
	switch {
	case strings.HasPrefix(path, RedisPrefix):
		return OpenRedis(path)
	case strings.HasPrefix(path, MemoryPrefix):
		return NewMemoryDatabase(), nil
	default:
		return nil, errors.Errorf("unknown cache backend: %v", path)
	}
}
