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

func TestSGD_Fit(t *testing.T) {
	trainSet := newTestSet()
	m := NewSGD(Params{NFactors: 4, NEpochs: 200})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	assert.Equal(t, trainSet.Mean(), m.GlobalBias)
	predictions, err := m.PredictMatrix()
	assert.NoError(t, err)
	trainSet.ForEach(func(userIndex, itemIndex int32, rating float64) {
		assert.InDelta(t, rating, predictions[userIndex][itemIndex], 0.5)
	})
}

func TestSGD_Deterministic(t *testing.T) {
	trainSet := newTestSet()
	a := NewSGD(Params{NFactors: 4, NEpochs: 10, RandomState: 7})
	b := NewSGD(Params{NFactors: 4, NEpochs: 10, RandomState: 7})
	assert.NoError(t, a.Fit(context.Background(), trainSet, nil))
	assert.NoError(t, b.Fit(context.Background(), trainSet, nil))
	assert.Equal(t, a.UserFactor, b.UserFactor)
	assert.Equal(t, a.UserBias, b.UserBias)
}

func TestSGD_ColdStart(t *testing.T) {
	trainSet := newTestSet()
	m := NewSGD(Params{NFactors: 4, NEpochs: 20})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	// unknown users score mu + b_i, no personalized term
	vector, err := m.PredictUser("stranger")
	assert.NoError(t, err)
	assert.Len(t, vector, trainSet.CountItems())
	for i, score := range vector {
		assert.InDelta(t, m.GlobalBias+m.ItemBias[i], score, 1e-12)
	}
	scores, err := m.Predict("stranger", 3)
	assert.NoError(t, err)
	assert.Empty(t, scores)
}

func TestSGD_LearningSchedule(t *testing.T) {
	trainSet := newTestSet()
	m := NewSGD(Params{NFactors: 2, NEpochs: 3})
	var epochs []int
	m.SetLearningSchedule(func(epoch int) float64 {
		epochs = append(epochs, epoch)
		return 0.005
	})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	assert.Equal(t, []int{0, 1, 2}, epochs)
}

func TestSGD_LearningRate(t *testing.T) {
	adaptive := NewSGD(Params{})
	assert.InDelta(t, 0.01, adaptive.learningRate(0), 1e-12)
	assert.Greater(t, adaptive.learningRate(0), adaptive.learningRate(100))
	fixed := NewSGD(Params{AdaptiveLr: false, Lr: 0.05})
	assert.Equal(t, 0.05, fixed.learningRate(0))
	assert.Equal(t, 0.05, fixed.learningRate(100))
}

func TestSGD_PredictRating(t *testing.T) {
	trainSet := newTestSet()
	m := NewSGD(Params{NFactors: 2, NEpochs: 10})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	// internal scores are unclipped, the user-facing rating is not
	m.GlobalBias = 100
	rating, err := m.PredictRating("u0", "i0")
	assert.NoError(t, err)
	assert.Equal(t, 5.0, rating)
	m.GlobalBias = -100
	rating, err = m.PredictRating("u0", "i0")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, rating)
}

func TestSGD_Marshal(t *testing.T) {
	trainSet := newTestSet()
	m := NewSGD(Params{NFactors: 2, NEpochs: 10})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalRecommender(buf, m))
	loaded, err := UnmarshalRecommender(buf)
	assert.NoError(t, err)
	restored := loaded.(*SGD)
	assert.Equal(t, m.GlobalBias, restored.GlobalBias)
	assert.Equal(t, m.UserBias, restored.UserBias)
	assert.Equal(t, m.ItemBias, restored.ItemBias)
	assert.Equal(t, m.UserFactor, restored.UserFactor)
	assert.Equal(t, m.ItemFactor, restored.ItemFactor)
}
