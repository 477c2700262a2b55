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
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base"
	"github.com/savor-io/savor/base/log"
	"github.com/savor-io/savor/config"
	"github.com/savor-io/savor/logics"
	"github.com/savor-io/savor/storage/cache"
	"github.com/savor-io/savor/storage/data"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service serves recommendation lists from the two cache tiers. Users with
// enough own ratings get their personalized tier; everyone else, and every
// personalized miss, is served the regional tier immediately while the
// personalized list recomputes in the background.
type Service struct {
	config     *config.Config
	cacheStore cache.Database
	dataStore  data.Database
	registry   *Registry
	scheduler  Scheduler

	hotlistGroup singleflight.Group
	mu           sync.Mutex
	rng          base.RandomGenerator
}

// NewService creates a serving service.
func NewService(cfg *config.Config, cacheStore cache.Database, dataStore data.Database,
	registry *Registry, scheduler Scheduler) *Service {
	return &Service{
		config:     cfg,
		cacheStore: cacheStore,
		dataStore:  dataStore,
		registry:   registry,
		scheduler:  scheduler,
		rng:        base.NewRandomGenerator(time.Now().UnixNano()),
	}
}

// FetchRecommendations returns up to n item identifiers for a user. The
// request never waits on model scoring: every answer comes from a cache tier
// or from the synchronously computed regional hotlist of last resort.
func (s *Service) FetchRecommendations(ctx context.Context, userId, region string, n int) ([]string, error) {
	if s.isEligible(ctx, userId) {
		items, err := s.cacheStore.Get(ctx, cache.UserKey(userId))
		if err == nil {
			return s.trim(items, n), nil
		}
		if !errors.Is(err, cache.ErrObjectNotExist) {
			log.Logger().Warn("user cache lookup failed",
				zap.String("user_id", userId), zap.Error(err))
		}
		// Personalized miss: recompute off-request, answer from the regional
		// tier right now.
		s.scheduler.Schedule("compute_user_recs", func(ctx context.Context) {
			if err := s.ComputeUserRecs(ctx, userId, region); err != nil {
				log.Logger().Error("compute user recommendations failed",
					zap.String("user_id", userId), zap.Error(err))
			}
		})
	}
	items, err := s.regionList(ctx, region)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.trim(items, n), nil
}

// isEligible reports whether the user has enough own ratings for the
// personalized tier. Collaborator failures demote to the regional tier.
func (s *Service) isEligible(ctx context.Context, userId string) bool {
	count, err := s.dataStore.CountUserRatings(ctx, userId)
	if err != nil {
		log.Logger().Warn("count user ratings failed",
			zap.String("user_id", userId), zap.Error(err))
		return false
	}
	return count >= s.config.Recommend.EligibilityThreshold
}

// regionList returns the cached hotlist of a region, computing and caching it
// on a miss. Concurrent misses of the same region collapse into one compute.
func (s *Service) regionList(ctx context.Context, region string) ([]string, error) {
	items, err := s.cacheStore.Get(ctx, cache.RegionKey(region))
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, cache.ErrObjectNotExist) {
		log.Logger().Warn("region cache lookup failed",
			zap.String("region", region), zap.Error(err))
	}
	result, err, _ := s.hotlistGroup.Do(region, func() (interface{}, error) {
		items, err := s.hotlist(ctx, region)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if err := s.cacheStore.Set(ctx, cache.RegionKey(region), items, s.config.Recommend.RegionCacheTTL); err != nil {
			log.Logger().Warn("region cache write failed",
				zap.String("region", region), zap.Error(err))
		}
		return items, nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return result.([]string), nil
}

// hotlist computes the regional hotlist from the rating store aggregates.
func (s *Service) hotlist(ctx context.Context, region string) ([]string, error) {
	stats, err := s.dataStore.GetItemStats(ctx, region)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return logics.Hotlist(stats, s.config.Recommend.TopK, logics.HotlistConfig{
		MinRating:   s.config.Hotlist.MinRating,
		MinVolume:   s.config.Hotlist.MinVolume,
		PoolSize:    s.config.Hotlist.PoolSize,
		RandomState: time.Now().UnixNano(),
	}), nil
}

// Regions lists the regions present in the rating store.
func (s *Service) Regions(ctx context.Context) ([]string, error) {
	regions, err := s.dataStore.GetRegions(ctx)
	return regions, errors.Trace(err)
}

// trim samples n items from a cached list, keeping their stored order. Random
// sampling varies repeat visits; order preservation keeps the stronger
// recommendations ahead of the weaker ones.
func (s *Service) trim(items []string, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return base.SampleOrdered(s.rng, items, n)
}
