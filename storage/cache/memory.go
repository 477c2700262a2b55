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

	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/savor-io/savor/base/log"
	"go.uber.org/zap"
)

// Memory is an in-process cache backend for development and tests. Entries are
// stored as the same JSON strings the Redis backend would hold, so both
// backends share the decodability semantics.
type Memory struct {
	cache *ttlcache.Cache[string, string]
}

// NewMemoryDatabase creates an in-process cache backend.
func NewMemoryDatabase() *Memory {
	c := ttlcache.New[string, string]()
	go c.Start()
	return &Memory{cache: c}
}

// Set writes a list under a key with a TTL.
func (m *Memory) Set(_ context.Context, key string, items []string, ttl time.Duration) error {
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Trace(err)
	}
	if ttl == 0 {
		ttl = ttlcache.NoTTL
	}
	m.cache.Set(key, string(data), ttl)
	return nil
}

// Get reads a list. Missing, expired and undecodable entries return
// ErrObjectNotExist.
func (m *Memory) Get(_ context.Context, key string) ([]string, error) {
	entry := m.cache.Get(key)
	if entry == nil {
		return nil, errors.Trace(ErrObjectNotExist)
	}
	var items []string
	if err := json.Unmarshal([]byte(entry.Value()), &items); err != nil {
		log.Logger().Warn("discard undecodable cache entry",
			zap.String("key", key), zap.Error(err))
		return nil, errors.Trace(ErrObjectNotExist)
	}
	return items, nil
}

// Exists reports whether a live entry is stored under the key.
func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	return m.cache.Has(key), nil
}

// Delete removes a key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Close stops the expiry loop.
func (m *Memory) Close() error {
	m.cache.Stop()
	return nil
}
