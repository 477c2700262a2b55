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

package data

import (
	"context"
	"testing"

	"github.com/savor-io/savor/dataset"
	"github.com/stretchr/testify/assert"
)

func newTestStore() *Memory {
	return NewMemoryDatabase([]dataset.Rating{
		{UserId: "alice", ItemId: "x", Stars: 4, Region: "pdx"},
		{UserId: "alice", ItemId: "y", Stars: 5, Region: "pdx"},
		{UserId: "bob", ItemId: "x", Stars: 2, Region: "pdx"},
		{UserId: "carol", ItemId: "z", Stars: 5, Region: "sea"},
	})
}

func TestMemory_CountUserRatings(t *testing.T) {
	ctx := context.Background()
	db := newTestStore()
	count, err := db.CountUserRatings(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = db.CountUserRatings(ctx, "nobody")
	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemory_GetRatings(t *testing.T) {
	ctx := context.Background()
	db := newTestStore()
	ratings, err := db.GetRatings(ctx, "pdx")
	assert.NoError(t, err)
	assert.Len(t, ratings, 3)
	all, err := db.GetRatings(ctx, "")
	assert.NoError(t, err)
	assert.Len(t, all, 4)
	// ingestion order preserved
	assert.Equal(t, "alice", all[0].UserId)
	assert.Equal(t, "carol", all[3].UserId)
}

func TestMemory_GetItemStats(t *testing.T) {
	ctx := context.Background()
	db := newTestStore()
	stats, err := db.GetItemStats(ctx, "pdx")
	assert.NoError(t, err)
	assert.Len(t, stats, 2)
	assert.Equal(t, "x", stats[0].ItemId)
	assert.InDelta(t, 3.0, stats[0].Rating, 1e-9)
	assert.Equal(t, 2, stats[0].Volume)
}

func TestMemory_GetRegions(t *testing.T) {
	ctx := context.Background()
	db := newTestStore()
	regions, err := db.GetRegions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"pdx", "sea"}, regions)
}

func TestMemory_GetEligibleUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestStore()
	users, err := db.GetEligibleUsers(ctx, "pdx", 2)
	assert.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}
