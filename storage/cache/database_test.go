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
	"os"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/savor-io/savor/base/log"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.CloseLogger()
	os.Exit(m.Run())
}

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	defer db.Close()
	assert.NoError(t, db.Set(ctx, UserKey("alice"), []string{"a", "b", "c"}, time.Minute))
	items, err := db.Get(ctx, UserKey("alice"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)

	exists, err := db.Exists(ctx, UserKey("alice"))
	assert.NoError(t, err)
	assert.True(t, exists)
	exists, err = db.Exists(ctx, UserKey("bob"))
	assert.NoError(t, err)
	assert.False(t, exists)

	_, err = db.Get(ctx, UserKey("bob"))
	assert.ErrorIs(t, err, ErrObjectNotExist)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	defer db.Close()
	assert.NoError(t, db.Set(ctx, RegionKey("pdx"), []string{"a"}, 10*time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	_, err := db.Get(ctx, RegionKey("pdx"))
	assert.ErrorIs(t, err, ErrObjectNotExist)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	defer db.Close()
	assert.NoError(t, db.Set(ctx, UserKey("alice"), []string{"a"}, time.Minute))
	assert.NoError(t, db.Delete(ctx, UserKey("alice")))
	_, err := db.Get(ctx, UserKey("alice"))
	assert.ErrorIs(t, err, ErrObjectNotExist)
	// deleting an absent key is fine
	assert.NoError(t, db.Delete(ctx, UserKey("alice")))
}

func TestMemory_UndecodableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	defer db.Close()
	db.cache.Set(UserKey("alice"), "{not json", ttlcache.NoTTL)
	_, err := db.Get(ctx, UserKey("alice"))
	assert.ErrorIs(t, err, ErrObjectNotExist)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:alice", UserKey("alice"))
	assert.Equal(t, "region:pdx", RegionKey("pdx"))
}

func TestOpen(t *testing.T) {
	db, err := Open("memory://")
	assert.NoError(t, err)
	assert.IsType(t, &Memory{}, db)
	assert.NoError(t, db.Close())
	_, err = Open("mongodb://localhost")
	assert.Error(t, err)
}
