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
	"sort"
	"sync"

	"github.com/savor-io/savor/dataset"
	"github.com/savor-io/savor/logics"
)

// Memory is an in-process rating store for tests and for offline training from
// flat files. Slice order is ingestion order.
type Memory struct {
	mu      sync.RWMutex
	ratings []dataset.Rating
}

// NewMemoryDatabase creates an in-process rating store.
func NewMemoryDatabase(ratings []dataset.Rating) *Memory {
	return &Memory{ratings: ratings}
}

// Append adds rating records behind the existing ones.
func (d *Memory) Append(ratings ...dataset.Rating) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ratings = append(d.ratings, ratings...)
}

// CountUserRatings returns how many ratings a user has submitted.
func (d *Memory) CountUserRatings(_ context.Context, userId string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	count := 0
	for _, r := range d.ratings {
		if r.UserId == userId {
			count++
		}
	}
	return count, nil
}

// GetRatings returns rating records in ingestion order.
func (d *Memory) GetRatings(_ context.Context, region string) ([]dataset.Rating, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ratings := make([]dataset.Rating, 0, len(d.ratings))
	for _, r := range d.ratings {
		if region == "" || r.Region == region {
			ratings = append(ratings, r)
		}
	}
	return ratings, nil
}

// GetItemStats returns per-item mean rating and volume.
func (d *Memory) GetItemStats(_ context.Context, region string) ([]logics.ItemStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	type aggregate struct {
		sum    float64
		count  int
		region string
	}
	aggregates := make(map[string]*aggregate)
	order := make([]string, 0)
	for _, r := range d.ratings {
		if region != "" && r.Region != region {
			continue
		}
		a, ok := aggregates[r.ItemId]
		if !ok {
			a = &aggregate{region: r.Region}
			aggregates[r.ItemId] = a
			order = append(order, r.ItemId)
		}
		a.sum += r.Stars
		a.count++
	}
	stats := make([]logics.ItemStats, 0, len(order))
	for _, itemId := range order {
		a := aggregates[itemId]
		stats = append(stats, logics.ItemStats{
			ItemId: itemId,
			Region: a.region,
			Rating: a.sum / float64(a.count),
			Volume: a.count,
		})
	}
	return stats, nil
}

// GetRegions returns the distinct regions present in the store.
func (d *Memory) GetRegions(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[string]struct{})
	regions := make([]string, 0)
	for _, r := range d.ratings {
		if _, ok := seen[r.Region]; !ok {
			seen[r.Region] = struct{}{}
			regions = append(regions, r.Region)
		}
	}
	sort.Strings(regions)
	return regions, nil
}

// GetEligibleUsers returns users of a region with at least minRatings ratings.
func (d *Memory) GetEligibleUsers(_ context.Context, region string, minRatings int) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, r := range d.ratings {
		if r.Region != region {
			continue
		}
		if _, ok := counts[r.UserId]; !ok {
			order = append(order, r.UserId)
		}
		counts[r.UserId]++
	}
	users := make([]string, 0, len(order))
	for _, userId := range order {
		if counts[userId] >= minRatings {
			users = append(users, userId)
		}
	}
	return users, nil
}

// Close is a no-op for the in-process store.
func (d *Memory) Close() error {
	return nil
}
