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

// Package dataset turns a flat user/business/rating feed into a cleaned,
// reindexed sparse rating matrix plus its index maps.
package dataset

import (
	"math"

	"github.com/samber/lo"
)

// Rating is a single observed rating record. Absence of a record means
// "unobserved", never "zero rating".
type Rating struct {
	UserId string
	ItemId string
	Stars  float64
	Region string
}

// Dataset is a cleaned sparse rating matrix. Rows are users, columns are items,
// both reindexed densely in first-seen order. Read-only after construction.
type Dataset struct {
	userDict    *Dict
	itemDict    *Dict
	userRatings [][]lo.Tuple2[int32, float64]
	itemRatings [][]lo.Tuple2[int32, float64]
	count       int
}

type builderOptions struct {
	region         string
	minUserRatings int
	minItemRatings int
}

type Option func(*builderOptions)

// WithRegion keeps only ratings from the given region.
func WithRegion(region string) Option {
	return func(o *builderOptions) { o.region = region }
}

// WithMinUserRatings drops users with fewer ratings than n. Default is 10.
func WithMinUserRatings(n int) Option {
	return func(o *builderOptions) { o.minUserRatings = n }
}

// WithMinItemRatings drops items with fewer ratings than n. Default is 0.
func WithMinItemRatings(n int) Option {
	return func(o *builderOptions) { o.minItemRatings = n }
}

// New builds a Dataset from raw rating records. The stages are: region filter,
// drop records with a missing user, item or rating, deduplicate (user,item)
// pairs keeping the most recent by ingestion order, drop items below the item
// floor, drop users below the user floor, then assign dense indices in
// first-seen order. Empty input yields an empty dataset, never an error.
func New(ratings []Rating, opts ...Option) *Dataset {
	o := builderOptions{minUserRatings: 10}
	for _, opt := range opts {
		opt(&o)
	}
	// drop incomplete records
	kept := make([]Rating, 0, len(ratings))
	for _, r := range ratings {
		if o.region != "" && r.Region != o.region {
			continue
		}
		if r.UserId == "" || r.ItemId == "" || math.IsNaN(r.Stars) {
			continue
		}
		kept = append(kept, r)
	}
	// deduplicate (user,item) pairs: the most recent record by ingestion order wins
	type pair struct{ user, item string }
	seen := make(map[pair]int, len(kept))
	deduped := kept[:0]
	for _, r := range kept {
		p := pair{r.UserId, r.ItemId}
		if i, ok := seen[p]; ok {
			deduped[i] = r
			continue
		}
		seen[p] = len(deduped)
		deduped = append(deduped, r)
	}
	// drop items below the item floor
	if o.minItemRatings > 0 {
		itemCounts := make(map[string]int)
		for _, r := range deduped {
			itemCounts[r.ItemId]++
		}
		deduped = lo.Filter(deduped, func(r Rating, _ int) bool {
			return itemCounts[r.ItemId] >= o.minItemRatings
		})
	}
	// drop users below the user floor, counted over surviving records
	if o.minUserRatings > 0 {
		userCounts := make(map[string]int)
		for _, r := range deduped {
			userCounts[r.UserId]++
		}
		deduped = lo.Filter(deduped, func(r Rating, _ int) bool {
			return userCounts[r.UserId] >= o.minUserRatings
		})
	}
	// assign dense indices in first-seen order and build sparse rows
	d := &Dataset{userDict: NewDict(), itemDict: NewDict()}
	for _, r := range deduped {
		userIndex := d.userDict.Id(r.UserId)
		itemIndex := d.itemDict.Id(r.ItemId)
		for int(userIndex) >= len(d.userRatings) {
			d.userRatings = append(d.userRatings, nil)
		}
		for int(itemIndex) >= len(d.itemRatings) {
			d.itemRatings = append(d.itemRatings, nil)
		}
		d.userRatings[userIndex] = append(d.userRatings[userIndex], lo.Tuple2[int32, float64]{A: itemIndex, B: r.Stars})
		d.itemRatings[itemIndex] = append(d.itemRatings[itemIndex], lo.Tuple2[int32, float64]{A: userIndex, B: r.Stars})
		d.count++
	}
	return d
}

// CountUsers returns the number of distinct users after cleaning.
func (d *Dataset) CountUsers() int {
	return d.userDict.Count()
}

// CountItems returns the number of distinct items after cleaning.
func (d *Dataset) CountItems() int {
	return d.itemDict.Count()
}

// Count returns the number of stored ratings.
func (d *Dataset) Count() int {
	return d.count
}

// GetUserDict returns the user index map.
func (d *Dataset) GetUserDict() *Dict {
	return d.userDict
}

// GetItemDict returns the item index map.
func (d *Dataset) GetItemDict() *Dict {
	return d.itemDict
}

// GetUserRatings returns, per user row, the (item index, rating) pairs.
func (d *Dataset) GetUserRatings() [][]lo.Tuple2[int32, float64] {
	return d.userRatings
}

// GetItemRatings returns, per item column, the (user index, rating) pairs.
func (d *Dataset) GetItemRatings() [][]lo.Tuple2[int32, float64] {
	return d.itemRatings
}

// Mean returns the mean of all observed ratings. Zero if the dataset is empty.
func (d *Dataset) Mean() float64 {
	if d.count == 0 {
		return 0
	}
	sum := 0.0
	for _, row := range d.userRatings {
		for _, t := range row {
			sum += t.B
		}
	}
	return sum / float64(d.count)
}

// ToDense materializes the matrix as a dense working copy. Unobserved cells are
// zero; zero is a sentinel here and must not be fed into bias computations as
// an observation.
func (d *Dataset) ToDense() [][]float64 {
	dense := make([][]float64, d.CountUsers())
	for u := range dense {
		dense[u] = make([]float64, d.CountItems())
		for _, t := range d.userRatings[u] {
			dense[u][t.A] = t.B
		}
	}
	return dense
}

// ForEach visits every observed (user, item, rating) triple in row order.
func (d *Dataset) ForEach(f func(userIndex, itemIndex int32, rating float64)) {
	for u, row := range d.userRatings {
		for _, t := range row {
			f(int32(u), t.A, t.B)
		}
	}
}
