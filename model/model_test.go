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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/savor-io/savor/base/log"
	"github.com/savor-io/savor/dataset"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.CloseLogger()
	os.Exit(m.Run())
}

// newTestSet builds a small fully-observed rating matrix of rank one, which
// every factorization in this package can fit almost exactly.
func newTestSet() *dataset.Dataset {
	users := []string{"u0", "u1", "u2", "u3"}
	items := []string{"i0", "i1", "i2"}
	userWeights := []float64{1, 2, 3, 1.5}
	itemWeights := []float64{1, 1.5, 0.8}
	var ratings []dataset.Rating
	for u, userId := range users {
		for i, itemId := range items {
			ratings = append(ratings, dataset.Rating{
				UserId: userId,
				ItemId: itemId,
				Stars:  userWeights[u] * itemWeights[i],
			})
		}
	}
	return dataset.New(ratings, dataset.WithMinUserRatings(1))
}

func TestClip(t *testing.T) {
	assert.Equal(t, 0.0, Clip(-1, 0, 5))
	assert.Equal(t, 5.0, Clip(7, 0, 5))
	assert.Equal(t, 3.2, Clip(3.2, 0, 5))
}

func TestGetRecommenderName(t *testing.T) {
	assert.Equal(t, "als", GetRecommenderName(new(ALS)))
	assert.Equal(t, "sgd", GetRecommenderName(new(SGD)))
	assert.Equal(t, "svd", GetRecommenderName(new(SVD)))
	assert.Equal(t, "ensemble", GetRecommenderName(new(Ensemble)))
}

func TestSaveLoad(t *testing.T) {
	trainSet := newTestSet()
	m := NewALS(Params{NFactors: 2})
	assert.NoError(t, m.Fit(context.Background(), trainSet, nil))
	path := filepath.Join(t.TempDir(), "snapshots", "als_test.model")
	assert.NoError(t, Save(path, m))
	loaded, err := Load(path)
	assert.NoError(t, err)
	assert.IsType(t, new(ALS), loaded)
	expected, err := m.PredictUser("u1")
	assert.NoError(t, err)
	actual, err := loaded.PredictUser("u1")
	assert.NoError(t, err)
	assert.Equal(t, expected, actual)
}
