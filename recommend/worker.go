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
	"github.com/robfig/cron/v3"
	"github.com/savor-io/savor/base/log"
	"go.uber.org/zap"
)

// Worker keeps the caches warm on a schedule: hotlists for every region, then
// a precache pass per region. The first run waits out a startup delay so a
// fleet restart does not hammer the rating store all at once.
type Worker struct {
	service *Service
	cron    *cron.Cron
}

// NewWorker creates a precache worker over a serving service.
func NewWorker(service *Service) *Worker {
	return &Worker{
		service: service,
		cron:    cron.New(),
	}
}

// Serve runs the worker until the context is canceled.
func (w *Worker) Serve(ctx context.Context) error {
	schedule := w.service.config.Worker.Schedule
	if _, err := w.cron.AddFunc(schedule, func() {
		w.runOnce(ctx)
	}); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("worker started",
		zap.String("schedule", schedule),
		zap.Duration("startup_delay", w.service.config.Worker.StartupDelay))
	select {
	case <-time.After(w.service.config.Worker.StartupDelay):
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	}
	w.runOnce(ctx)
	w.cron.Start()
	<-ctx.Done()
	<-w.cron.Stop().Done()
	return errors.Trace(ctx.Err())
}

func (w *Worker) runOnce(ctx context.Context) {
	// Reload snapshots so a training run since the last pass takes effect.
	w.service.registry.Reset()
	if err := w.service.WarmupHotlists(ctx); err != nil {
		log.Logger().Error("warmup hotlists failed", zap.Error(err))
	}
	regions, err := w.service.Regions(ctx)
	if err != nil {
		log.Logger().Error("list regions failed", zap.Error(err))
		return
	}
	for _, region := range regions {
		if err := w.service.Precache(ctx, region); err != nil {
			log.Logger().Error("precache failed",
				zap.String("region", region), zap.Error(err))
		}
	}
}
