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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRidgeRegression_Linear(t *testing.T) {
	// y = 2x + 1 with negligible regularization recovers the line
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{3, 5, 7, 9}
	weights, intercept, err := ridgeRegression(x, y, 1e-9)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, weights[0], 1e-6)
	assert.InDelta(t, 1.0, intercept, 1e-6)
}

func TestRidgeRegression_HeavyAlpha(t *testing.T) {
	// heavy regularization shrinks the weight toward zero while the intercept
	// stays at the target mean
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{3, 5, 7, 9}
	weights, intercept, err := ridgeRegression(x, y, 1e9)
	assert.NoError(t, err)
	assert.InDelta(t, 0.0, weights[0], 1e-6)
	assert.InDelta(t, 6.0, intercept, 1e-4)
}

func TestRidgeRegression_BadInput(t *testing.T) {
	_, _, err := ridgeRegression(nil, nil, 1)
	assert.Error(t, err)
	_, _, err = ridgeRegression([][]float64{{1}}, []float64{1, 2}, 1)
	assert.Error(t, err)
}
