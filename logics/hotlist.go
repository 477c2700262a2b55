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

// Package logics implements non-personalized recommendation logics.
package logics

import (
	"sort"

	"github.com/savor-io/savor/base"
)

// ItemStats is the per-item aggregate a hotlist is built from.
type ItemStats struct {
	ItemId string
	Region string
	Rating float64 // mean rating
	Volume int     // rating count
}

// HotlistConfig carries the quality floors and pool size of hotlist selection.
type HotlistConfig struct {
	MinRating   float64 // floor on mean rating
	MinVolume   int     // floor on rating count
	PoolSize    int     // candidates entering the shuffle
	RandomState int64
}

// NewHotlistConfig returns the default hotlist configuration.
func NewHotlistConfig() HotlistConfig {
	return HotlistConfig{
		MinRating:   4.0,
		MinVolume:   400,
		PoolSize:    64,
		RandomState: 42,
	}
}

// Hotlist selects n items for a region from per-item aggregates: items passing
// both floors are ordered by rating, volume breaking ties, the best PoolSize
// survivors are shuffled, and the first n are returned. The shuffle keeps
// repeated hotlists from always showing the identical head of the ranking.
// Fewer than n survivors means all of them are returned.
func Hotlist(stats []ItemStats, n int, config HotlistConfig) []string {
	pool := make([]ItemStats, 0, len(stats))
	for _, s := range stats {
		if s.Rating >= config.MinRating && s.Volume >= config.MinVolume {
			pool = append(pool, s)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Rating != pool[j].Rating {
			return pool[i].Rating > pool[j].Rating
		}
		return pool[i].Volume > pool[j].Volume
	})
	if len(pool) > config.PoolSize {
		pool = pool[:config.PoolSize]
	}
	rng := base.NewRandomGenerator(config.RandomState)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if n > len(pool) {
		n = len(pool)
	}
	items := make([]string, n)
	for i := 0; i < n; i++ {
		items[i] = pool[i].ItemId
	}
	return items
}
