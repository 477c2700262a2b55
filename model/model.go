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

// Package model implements the matrix-factorization recommenders and their
// linear ensemble. Models are batch-trained offline, read-only after fitting
// and safely shared across concurrent scoring callers.
package model

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base/encoding"
	"github.com/savor-io/savor/common/heap"
	"github.com/savor-io/savor/dataset"
)

var (
	// ErrNotFitted is returned by predict methods called before Fit or Load.
	// It is a programming error, distinct from "no recommendations found".
	ErrNotFitted = errors.New("model not fitted")
	// ErrEmptyEnsemble is returned when an ensemble is built with zero base models.
	ErrEmptyEnsemble = errors.New("ensemble requires at least one base model")
	// ErrIncompatibleIndex is returned when base models in one ensemble were fit
	// against matrices with different index maps.
	ErrIncompatibleIndex = errors.New("base models have incompatible index maps")
)

// Score is a scored item identifier.
type Score struct {
	Id    string
	Score float64
}

// FitConfig controls training verbosity.
type FitConfig struct {
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{Verbose: 10}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

// Recommender is a matrix-factorization model over a cleaned rating matrix.
type Recommender interface {
	SetParams(params Params)
	GetParams() Params
	// Fit trains the model on a rating matrix.
	Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) error
	// Predict returns the top n recommendations for a user. Users absent from
	// the index map yield an empty list, never an error.
	Predict(userId string, n int) ([]Score, error)
	// PredictUser returns a score vector over all items. Users absent from the
	// index map fall back to a population baseline, never an error.
	PredictUser(userId string) ([]float64, error)
	// PredictMatrix returns the full (users x items) score matrix. Scores are
	// unranged real numbers, not bounded by the rating domain.
	PredictMatrix() ([][]float64, error)
	// GetUserDict returns the user index map.
	GetUserDict() *dataset.Dict
	// GetItemDict returns the item index map.
	GetItemDict() *dataset.Dict
	// Marshal the model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal the model from byte stream.
	Unmarshal(r io.Reader) error
}

// GetRecommenderName returns the snapshot tag of a recommender.
func GetRecommenderName(m Recommender) string {
	switch m.(type) {
	case *ALS:
		return "als"
	case *SGD:
		return "sgd"
	case *SVD:
		return "svd"
	case *Ensemble:
		return "ensemble"
	default:
		return "unknown"
	}
}

// MarshalRecommender writes a tagged model snapshot to byte stream.
func MarshalRecommender(w io.Writer, m Recommender) error {
	if err := encoding.WriteString(w, GetRecommenderName(m)); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// UnmarshalRecommender reads a tagged model snapshot from byte stream.
func UnmarshalRecommender(r io.Reader) (Recommender, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var m Recommender
	switch name {
	case "als":
		m = new(ALS)
	case "sgd":
		m = new(SGD)
	case "svd":
		m = new(SVD)
	case "ensemble":
		m = new(Ensemble)
	default:
		return nil, errors.Errorf("unknown model %v", name)
	}
	if err := m.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

// Save writes a model snapshot to the given path.
func Save(path string, m Recommender) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Trace(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	return MarshalRecommender(f, m)
}

// Load reads a model snapshot from the given path.
func Load(path string) (Recommender, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	return UnmarshalRecommender(f)
}

// Clip bounds a score to the rating domain. Clipping belongs to the final
// user-facing rating only; internal scores stay unclipped so the ensemble can
// learn from them.
func Clip(x, low, high float64) float64 {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}

// topN selects the n largest scores and translates indices back to identifiers.
func topN(scores []float64, itemDict *dataset.Dict, n int) []Score {
	filter := heap.NewTopKFilter[int32, float64](n)
	for i, score := range scores {
		filter.Push(int32(i), score)
	}
	indices, weights := filter.PopAll()
	result := make([]Score, 0, len(indices))
	for i, index := range indices {
		id, _ := itemDict.String(index)
		result = append(result, Score{Id: id, Score: weights[i]})
	}
	return result
}
