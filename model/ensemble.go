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
	"io"
	"sort"
	"time"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base/encoding"
	"github.com/savor-io/savor/base/log"
	"github.com/savor-io/savor/dataset"
	"go.uber.org/zap"
)

// Ensemble blends base recommenders by ridge regression: the score matrices of
// the base models are features, the observed ratings are targets, and the
// learned weights plus intercept recombine base scores into the final score.
// Base model scores enter the regression unclipped so the weights see the raw
// signal of each model.
//
// Hyper-parameters:
//
//	Alpha        - The ridge regularization strength. Default is 1000.
//	UseCache     - Precompute the full blended matrix after Fit. Default is true.
//	ClipFeatures - Clip base scores to [0,5] before the regression. Default is false.
type Ensemble struct {
	BaseMatrixFactorization
	// Model parameters
	Weights   []float64 // one weight per base model, ordered by name
	Intercept float64
	models    map[string]Recommender
	names     []string // sorted model names, the feature column order
	cache     [][]float64
	// Hyper parameters
	alpha        float64
	useCache     bool
	clipFeatures bool
}

// NewEnsemble creates an ensemble over named base recommenders. The names fix
// the feature column order (sorted), so two ensembles built from the same map
// learn identical weights.
func NewEnsemble(models map[string]Recommender, params Params) (*Ensemble, error) {
	if len(models) == 0 {
		return nil, errors.Trace(ErrEmptyEnsemble)
	}
	e := new(Ensemble)
	e.SetParams(params)
	e.models = models
	e.names = make([]string, 0, len(models))
	for name := range models {
		e.names = append(e.names, name)
	}
	sort.Strings(e.names)
	return e, nil
}

// SetParams sets hyper-parameters for the ensemble.
func (e *Ensemble) SetParams(params Params) {
	e.BaseModel.SetParams(params)
	e.alpha = e.Params.GetFloat64(Alpha, 1000)
	e.useCache = e.Params.GetBool(UseCache, true)
	e.clipFeatures = e.Params.GetBool(ClipFeatures, false)
}

// Models returns the base recommenders keyed by name.
func (e *Ensemble) Models() map[string]Recommender {
	return e.models
}

// Names returns the sorted base model names, the feature column order.
func (e *Ensemble) Names() []string {
	return e.names
}

// Fit trains unfitted base models on the rating matrix, then fits the ridge
// blend over their score matrices at the observed positions. Base models fit
// elsewhere must carry the same index maps as the training matrix.
func (e *Ensemble) Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) error {
	if config == nil {
		config = NewFitConfig()
	}
	log.Logger().Info("fit ensemble",
		zap.Strings("base_models", e.names),
		zap.Int("n_users", trainSet.CountUsers()),
		zap.Int("n_items", trainSet.CountItems()),
		zap.Int("n_ratings", trainSet.Count()),
		zap.Any("params", e.GetParams()))
	e.Init(trainSet)
	fitStart := time.Now()
	features := make([][][]float64, len(e.names))
	for b, name := range e.names {
		m := e.models[name]
		if m.GetUserDict() == nil {
			if err := m.Fit(ctx, trainSet, config); err != nil {
				return errors.Trace(err)
			}
		}
		if !m.GetUserDict().Equal(trainSet.GetUserDict()) || !m.GetItemDict().Equal(trainSet.GetItemDict()) {
			return errors.Trace(ErrIncompatibleIndex)
		}
		matrix, err := m.PredictMatrix()
		if err != nil {
			return errors.Trace(err)
		}
		if e.clipFeatures {
			for _, row := range matrix {
				for i := range row {
					row[i] = Clip(row[i], 0, 5)
				}
			}
		}
		features[b] = matrix
	}
	// One regression sample per observed rating
	x := make([][]float64, 0, trainSet.Count())
	y := make([]float64, 0, trainSet.Count())
	trainSet.ForEach(func(userIndex, itemIndex int32, rating float64) {
		row := make([]float64, len(e.names))
		for b := range e.names {
			row[b] = features[b][userIndex][itemIndex]
		}
		x = append(x, row)
		y = append(y, rating)
	})
	weights, intercept, err := ridgeRegression(x, y, e.alpha)
	if err != nil {
		return errors.Trace(err)
	}
	e.Weights = weights
	e.Intercept = intercept
	if e.useCache {
		e.cache = e.blendMatrices(features)
	} else {
		e.cache = nil
	}
	log.Logger().Info("fit ensemble complete",
		zap.Float64s("weights", e.Weights),
		zap.Float64("intercept", e.Intercept),
		zap.Duration("fit_time", time.Since(fitStart)))
	return nil
}

func (e *Ensemble) blendMatrices(features [][][]float64) [][]float64 {
	numUsers := e.UserDict.Count()
	numItems := e.ItemDict.Count()
	blended := make([][]float64, numUsers)
	for u := 0; u < numUsers; u++ {
		blended[u] = make([]float64, numItems)
		for i := 0; i < numItems; i++ {
			score := e.Intercept
			for b := range e.names {
				score += e.Weights[b] * features[b][u][i]
			}
			blended[u][i] = score
		}
	}
	return blended
}

// Predict returns the top n recommendations for a user. Unknown users yield an
// empty list.
func (e *Ensemble) Predict(userId string, n int) ([]Score, error) {
	if e.Weights == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	userIndex := e.UserDict.ToId(userId)
	if userIndex == dataset.NotId {
		return []Score{}, nil
	}
	scores, err := e.PredictUser(userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return topN(scores, e.ItemDict, n), nil
}

// PredictUser returns the blended score vector over all items. Unknown users
// blend the base models' own fallback vectors, a second-order fallback.
func (e *Ensemble) PredictUser(userId string) ([]float64, error) {
	if e.Weights == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	userIndex := e.UserDict.ToId(userId)
	if e.cache != nil && userIndex != dataset.NotId {
		return e.cache[userIndex], nil
	}
	scores := make([]float64, e.ItemDict.Count())
	for i := range scores {
		scores[i] = e.Intercept
	}
	for b, name := range e.names {
		vector, err := e.models[name].PredictUser(userId)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for i, score := range vector {
			if e.clipFeatures {
				score = Clip(score, 0, 5)
			}
			scores[i] += e.Weights[b] * score
		}
	}
	return scores, nil
}

// PredictMatrix returns the full blended score matrix.
func (e *Ensemble) PredictMatrix() ([][]float64, error) {
	if e.Weights == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	if e.cache != nil {
		return e.cache, nil
	}
	features := make([][][]float64, len(e.names))
	for b, name := range e.names {
		matrix, err := e.models[name].PredictMatrix()
		if err != nil {
			return nil, errors.Trace(err)
		}
		if e.clipFeatures {
			for _, row := range matrix {
				for i := range row {
					row[i] = Clip(row[i], 0, 5)
				}
			}
		}
		features[b] = matrix
	}
	return e.blendMatrices(features), nil
}

// Marshal model into byte stream. Base models are nested as tagged snapshots.
func (e *Ensemble) Marshal(w io.Writer) error {
	if err := e.BaseMatrixFactorization.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, e.Weights); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, e.Intercept); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, int64(len(e.names))); err != nil {
		return errors.Trace(err)
	}
	for _, name := range e.names {
		if err := encoding.WriteString(w, name); err != nil {
			return errors.Trace(err)
		}
		if err := MarshalRecommender(w, e.models[name]); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal model from byte stream. The blended cache is rebuilt when UseCache
// is set, so a loaded snapshot serves with the same latency as a fresh fit.
func (e *Ensemble) Unmarshal(r io.Reader) error {
	if err := e.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	e.SetParams(e.Params)
	var err error
	if e.Weights, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &e.Intercept); err != nil {
		return errors.Trace(err)
	}
	var count int64
	if err := encoding.ReadGob(r, &count); err != nil {
		return errors.Trace(err)
	}
	e.models = make(map[string]Recommender, count)
	e.names = make([]string, 0, count)
	for i := int64(0); i < count; i++ {
		name, err := encoding.ReadString(r)
		if err != nil {
			return errors.Trace(err)
		}
		m, err := UnmarshalRecommender(r)
		if err != nil {
			return errors.Trace(err)
		}
		e.models[name] = m
		e.names = append(e.names, name)
	}
	e.cache = nil
	if e.useCache {
		matrix, err := e.PredictMatrix()
		if err != nil {
			return errors.Trace(err)
		}
		e.cache = matrix
	}
	return nil
}
