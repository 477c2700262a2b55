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

// Package data reads the rating store owned by the main application. This
// module only consumes ratings and aggregates; writes stay with the owner.
package data

import (
	"context"
	"strings"

	"github.com/juju/errors"
	"github.com/savor-io/savor/dataset"
	"github.com/savor-io/savor/logics"
)

// MySQLPrefix is the URL prefix of a MySQL backend.
const MySQLPrefix = "mysql://"

// Database is the read-only view of the rating store.
type Database interface {
	// CountUserRatings returns how many ratings a user has submitted. Unknown
	// users count zero.
	CountUserRatings(ctx context.Context, userId string) (int, error)
	// GetRatings returns rating records in ingestion order. An empty region
	// returns all regions.
	GetRatings(ctx context.Context, region string) ([]dataset.Rating, error)
	// GetItemStats returns per-item aggregates. An empty region returns all
	// regions.
	GetItemStats(ctx context.Context, region string) ([]logics.ItemStats, error)
	// GetRegions returns the distinct regions present in the store.
	GetRegions(ctx context.Context) ([]string, error)
	// GetEligibleUsers returns users of a region with at least minRatings
	// ratings.
	GetEligibleUsers(ctx context.Context, region string, minRatings int) ([]string, error)
	// Close releases the connection to the storage backend.
	Close() error
}

// Open a connection to a rating store by URL.
func Open(path string) (Database, error) {
	if strings.HasPrefix(path, MySQLPrefix) {
		return OpenMySQL(strings.TrimPrefix(path, MySQLPrefix))
	}
	return nil, errors.Errorf("unknown data backend: %v", path)
}
