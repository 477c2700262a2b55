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

// Package config loads the service configuration.
package config

import (
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the root configuration of the recommender.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Hotlist   HotlistConfig   `mapstructure:"hotlist"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// DatabaseConfig points to the cache store and the rating store.
type DatabaseConfig struct {
	// CacheStore is the URL of the recommendation cache (redis:// or memory://).
	CacheStore string `mapstructure:"cache_store"`
	// DataStore is the URL of the rating store (mysql://).
	DataStore string `mapstructure:"data_store"`
}

// RecommendConfig controls the serving path.
type RecommendConfig struct {
	// UserCacheTTL is the expiry of per-user personalized lists.
	UserCacheTTL time.Duration `mapstructure:"user_cache_ttl"`
	// RegionCacheTTL is the expiry of per-region hotlists.
	RegionCacheTTL time.Duration `mapstructure:"region_cache_ttl"`
	// TopK is the length of precomputed lists.
	TopK int `mapstructure:"top_k"`
	// ReturnN is the length of the list returned to callers.
	ReturnN int `mapstructure:"return_n"`
	// EligibilityThreshold is the minimum own-rating count for personalized
	// recommendations.
	EligibilityThreshold int `mapstructure:"eligibility_threshold"`
	// SnapshotDir holds the trained model snapshots.
	SnapshotDir string `mapstructure:"snapshot_dir"`
}

// HotlistConfig controls regional hotlist selection.
type HotlistConfig struct {
	MinRating float64 `mapstructure:"min_rating"`
	MinVolume int     `mapstructure:"min_volume"`
	PoolSize  int     `mapstructure:"pool_size"`
}

// WorkerConfig controls the periodic precache worker.
type WorkerConfig struct {
	// Schedule is a cron expression for precache runs.
	Schedule string `mapstructure:"schedule"`
	// StartupDelay postpones the first run after boot.
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

func setDefault(v *viper.Viper) {
	v.SetDefault("database.cache_store", "memory://")
	v.SetDefault("database.data_store", "")
	v.SetDefault("recommend.user_cache_ttl", time.Hour)
	v.SetDefault("recommend.region_cache_ttl", 24*time.Hour)
	v.SetDefault("recommend.top_k", 40)
	v.SetDefault("recommend.return_n", 8)
	v.SetDefault("recommend.eligibility_threshold", 10)
	v.SetDefault("recommend.snapshot_dir", "snapshots")
	v.SetDefault("hotlist.min_rating", 4.0)
	v.SetDefault("hotlist.min_volume", 400)
	v.SetDefault("hotlist.pool_size", 64)
	v.SetDefault("worker.schedule", "@every 24h")
	v.SetDefault("worker.startup_delay", 10*time.Second)
}

// LoadConfig reads a TOML configuration file. An empty path yields the
// defaults. Every key can be overridden by a SAVOR_ environment variable.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("savor")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Trace(err)
	}
	return &config, nil
}
