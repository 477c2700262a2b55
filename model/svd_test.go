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

	"github.com/savor-io/savor/dataset"
	"github.com/stretchr/testify/assert"
)

func TestSVD_FullRankReconstruction(t *testing.T) {
	trainSet := newTestSet()
	// keeping every singular triple reconstructs the dense working copy exactly
	m := NewSVD(Params{NFactors: 3})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	predictions, err := m.PredictMatrix()
	assert.NoError(t, err)
	dense := trainSet.ToDense()
	for u := range dense {
		for i := range dense[u] {
			assert.InDelta(t, dense[u][i], predictions[u][i], 1e-6)
		}
	}
}

func TestSVD_Biases(t *testing.T) {
	// observed entries only feed the biases; the dense zeros of unobserved
	// cells never do
	trainSet := dataset.New([]dataset.Rating{
		{UserId: "a", ItemId: "x", Stars: 4},
		{UserId: "a", ItemId: "y", Stars: 2},
		{UserId: "b", ItemId: "x", Stars: 5},
	}, dataset.WithMinUserRatings(1))
	m := NewSVD(Params{NFactors: 2})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	assert.InDelta(t, 11.0/3, m.GlobalBias, 1e-12)
	assert.InDelta(t, 3.0, m.UserBias[trainSet.GetUserDict().ToId("a")], 1e-12)
	assert.InDelta(t, 5.0, m.UserBias[trainSet.GetUserDict().ToId("b")], 1e-12)
	assert.InDelta(t, 4.5, m.ItemBias[trainSet.GetItemDict().ToId("x")], 1e-12)
	assert.InDelta(t, 2.0, m.ItemBias[trainSet.GetItemDict().ToId("y")], 1e-12)
}

func TestSVD_Truncation(t *testing.T) {
	trainSet := newTestSet()
	// more factors requested than singular values exist
	m := NewSVD(Params{NFactors: 10})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	assert.Len(t, m.Sk, 3)
	assert.Len(t, m.Uk[0], 3)
	assert.Len(t, m.Vt, 3)
}

func TestSVD_ColdStart(t *testing.T) {
	trainSet := newTestSet()
	m := NewSVD(Params{NFactors: 2})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	vector, err := m.PredictUser("stranger")
	assert.NoError(t, err)
	for i, score := range vector {
		assert.InDelta(t, m.GlobalBias+m.ItemBias[i], score, 1e-12)
	}
	scores, err := m.Predict("stranger", 3)
	assert.NoError(t, err)
	assert.Empty(t, scores)
}

func TestSVD_Marshal(t *testing.T) {
	trainSet := newTestSet()
	m := NewSVD(Params{NFactors: 2})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalRecommender(buf, m))
	loaded, err := UnmarshalRecommender(buf)
	assert.NoError(t, err)
	restored := loaded.(*SVD)
	assert.Equal(t, m.GlobalBias, restored.GlobalBias)
	assert.Equal(t, m.Sk, restored.Sk)
	assert.Equal(t, m.Uk, restored.Uk)
	assert.Equal(t, m.Vt, restored.Vt)
}
