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
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestALS_Fit(t *testing.T) {
	trainSet := newTestSet()
	m := NewALS(Params{NFactors: 2, NEpochs: 10})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	// a rank-one matrix is recovered almost exactly
	predictions, err := m.PredictMatrix()
	assert.NoError(t, err)
	trainSet.ForEach(func(userIndex, itemIndex int32, rating float64) {
		assert.InDelta(t, rating, predictions[userIndex][itemIndex], 0.1)
	})
}

func TestALS_Deterministic(t *testing.T) {
	trainSet := newTestSet()
	a := NewALS(Params{NFactors: 2, NEpochs: 5, RandomState: 7})
	b := NewALS(Params{NFactors: 2, NEpochs: 5, RandomState: 7})
	assert.NoError(t, a.Fit(context.Background(), trainSet, nil))
	assert.NoError(t, b.Fit(context.Background(), trainSet, nil))
	assert.Equal(t, a.UserFactor, b.UserFactor)
	assert.Equal(t, a.ItemFactor, b.ItemFactor)
}

func TestALS_NotFitted(t *testing.T) {
	m := NewALS(nil)
	_, err := m.Predict("u0", 3)
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = m.PredictUser("u0")
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = m.PredictMatrix()
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestALS_UnknownUser(t *testing.T) {
	trainSet := newTestSet()
	m := NewALS(Params{NFactors: 2})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	// Predict yields an empty list
	scores, err := m.Predict("stranger", 3)
	assert.NoError(t, err)
	assert.Empty(t, scores)
	// PredictUser falls back to the mean user factor
	vector, err := m.PredictUser("stranger")
	assert.NoError(t, err)
	assert.Len(t, vector, trainSet.CountItems())
}

func TestALS_Predict(t *testing.T) {
	trainSet := newTestSet()
	m := NewALS(Params{NFactors: 2, NEpochs: 10})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	scores, err := m.Predict("u2", 2)
	assert.NoError(t, err)
	assert.Len(t, scores, 2)
	// scores come back in decreasing order, best item first
	assert.GreaterOrEqual(t, scores[0].Score, scores[1].Score)
	assert.Equal(t, "i1", scores[0].Id)
}

func TestALS_Marshal(t *testing.T) {
	trainSet := newTestSet()
	m := NewALS(Params{NFactors: 2})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalRecommender(buf, m))
	loaded, err := UnmarshalRecommender(buf)
	assert.NoError(t, err)
	restored := loaded.(*ALS)
	assert.Equal(t, m.UserFactor, restored.UserFactor)
	assert.Equal(t, m.ItemFactor, restored.ItemFactor)
	assert.True(t, m.UserDict.Equal(restored.UserDict))
	assert.True(t, m.ItemDict.Equal(restored.ItemDict))
}
