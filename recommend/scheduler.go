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

	"github.com/savor-io/savor/base/log"
	"go.uber.org/zap"
)

// Scheduler runs background tasks detached from the request that spawned them.
// Tasks must be idempotent: a scheduler may run the same task more than once
// and gives no completion signal back to the caller.
type Scheduler interface {
	Schedule(name string, task func(ctx context.Context))
}

// GoroutineScheduler runs each task on its own goroutine. A panicking task is
// logged and swallowed so it can never take a serving request down with it.
type GoroutineScheduler struct{}

// Schedule runs the task on a fresh goroutine with a background context, since
// the task outlives the request that scheduled it.
func (GoroutineScheduler) Schedule(name string, task func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Logger().Error("background task panicked",
					zap.String("task", name), zap.Any("panic", r))
			}
		}()
		task(context.Background())
	}()
}

// SynchronousScheduler runs tasks inline. It exists for tests and for CLI
// commands where the process would otherwise exit before the task finishes.
type SynchronousScheduler struct{}

// Schedule runs the task before returning.
func (SynchronousScheduler) Schedule(name string, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger().Error("background task panicked",
				zap.String("task", name), zap.Any("panic", r))
		}
	}()
	task(context.Background())
}
