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

package recommend

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base/log"
	"github.com/savor-io/savor/common/heap"
	"github.com/savor-io/savor/dataset"
	"github.com/savor-io/savor/storage/cache"
	"go.uber.org/zap"
)

// ComputeUserRecs fills the personalized cache of one user. The task is
// idempotent: a warm cache short-circuits, so the at-least-once scheduler and
// racing requests for the same user cause no duplicate scoring work. Users
// absent from the model index get the regional hotlist stored under their own
// key, which keeps them from re-triggering recompute until the entry expires.
func (s *Service) ComputeUserRecs(ctx context.Context, userId, region string) error {
	exists, err := s.cacheStore.Exists(ctx, cache.UserKey(userId))
	if err != nil {
		return errors.Trace(err)
	}
	if exists {
		log.Logger().Debug("user cache already warm",
			zap.String("user_id", userId))
		return nil
	}
	m, err := s.registry.Get(region)
	if err != nil {
		return errors.Trace(err)
	}
	scores, err := m.Predict(userId, s.config.Recommend.TopK)
	if err != nil {
		return errors.Trace(err)
	}
	var items []string
	if len(scores) == 0 {
		if items, err = s.hotlist(ctx, region); err != nil {
			return errors.Trace(err)
		}
	} else {
		items = make([]string, 0, len(scores))
		for _, score := range scores {
			items = append(items, score.Id)
		}
	}
	if err := s.cacheStore.Set(ctx, cache.UserKey(userId), items, s.config.Recommend.UserCacheTTL); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("computed user recommendations",
		zap.String("user_id", userId),
		zap.String("region", region),
		zap.Int("n_items", len(items)),
		zap.Bool("personalized", len(scores) > 0))
	return nil
}

// Precache fills the personalized cache of every eligible user of a region
// from one pass over the full score matrix.
func (s *Service) Precache(ctx context.Context, region string) error {
	startTime := time.Now()
	m, err := s.registry.Get(region)
	if err != nil {
		return errors.Trace(err)
	}
	matrix, err := m.PredictMatrix()
	if err != nil {
		return errors.Trace(err)
	}
	users, err := s.dataStore.GetEligibleUsers(ctx, region, s.config.Recommend.EligibilityThreshold)
	if err != nil {
		return errors.Trace(err)
	}
	cached, skipped := 0, 0
	for _, userId := range users {
		userIndex := m.GetUserDict().ToId(userId)
		if userIndex == dataset.NotId {
			// Eligible in the store but unknown to the snapshot: the user rated
			// after the last training run. Served by the regional tier until then.
			skipped++
			continue
		}
		filter := heap.NewTopKFilter[int32, float64](s.config.Recommend.TopK)
		for i, score := range matrix[userIndex] {
			filter.Push(int32(i), score)
		}
		indices, _ := filter.PopAll()
		items := make([]string, 0, len(indices))
		for _, index := range indices {
			id, _ := m.GetItemDict().String(index)
			items = append(items, id)
		}
		if err := s.cacheStore.Set(ctx, cache.UserKey(userId), items, s.config.Recommend.UserCacheTTL); err != nil {
			return errors.Trace(err)
		}
		cached++
	}
	log.Logger().Info("precache complete",
		zap.String("region", region),
		zap.Int("n_cached", cached),
		zap.Int("n_skipped", skipped),
		zap.Duration("precache_time", time.Since(startTime)))
	return nil
}

// WarmupHotlists computes and caches the hotlist of every region.
func (s *Service) WarmupHotlists(ctx context.Context) error {
	regions, err := s.dataStore.GetRegions(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for _, region := range regions {
		items, err := s.hotlist(ctx, region)
		if err != nil {
			return errors.Trace(err)
		}
		if err := s.cacheStore.Set(ctx, cache.RegionKey(region), items, s.config.Recommend.RegionCacheTTL); err != nil {
			return errors.Trace(err)
		}
		log.Logger().Info("warmed hotlist",
			zap.String("region", region), zap.Int("n_items", len(items)))
	}
	return nil
}
