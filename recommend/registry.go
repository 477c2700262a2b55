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

// Package recommend orchestrates cached two-tier serving of recommendations
// and the background tasks that keep the cache warm.
package recommend

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base/log"
	"github.com/savor-io/savor/model"
	"go.uber.org/zap"
)

// SnapshotPath returns the snapshot file of a model type for a region.
func SnapshotPath(dir, name, region string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.model", name, region))
}

// Registry holds the per-region ensemble snapshots used for serving. Snapshots
// load lazily on first use and stay pinned until Reset. Passing the registry
// around explicitly keeps model lifetime visible to callers, there is no
// package-level model state.
type Registry struct {
	mu     sync.Mutex
	dir    string
	models map[string]model.Recommender
}

// NewRegistry creates a registry over a snapshot directory.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:    dir,
		models: make(map[string]model.Recommender),
	}
}

// Get returns the ensemble of a region, loading its snapshot on first use.
func (r *Registry) Get(region string) (model.Recommender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.models[region]; ok {
		return m, nil
	}
	path := SnapshotPath(r.dir, "ensemble", region)
	m, err := model.Load(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load model snapshot",
		zap.String("region", region), zap.String("path", path))
	r.models[region] = m
	return m, nil
}

// Put pins a model for a region, replacing any loaded snapshot.
func (r *Registry) Put(region string, m model.Recommender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[region] = m
}

// Reset drops all pinned models. The next Get per region reloads from disk, so
// freshly trained snapshots take effect without a restart.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]model.Recommender)
}
