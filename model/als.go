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
	"time"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base/encoding"
	"github.com/savor-io/savor/base/log"
	"github.com/savor-io/savor/dataset"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ALS factorizes the rating matrix by alternating least squares: holding item
// factors fixed, each user row solves the regularized system
//
//	(Y^T Y + \lambda I) p_u = Y^T r_u
//
// then the symmetric system per item column. Scores are plain dot products
// p_u^T q_i without bias terms, not bounded by the rating domain.
//
// Hyper-parameters:
//
//	NFactors    - The number of latent factors. Default is 10.
//	NEpochs     - The number of alternation rounds. Default is 5.
//	UserReg     - The regularization of user factors. Default is 1e-3.
//	ItemReg     - The regularization of item factors. Default is 1e-3.
//	RandomState - The random seed. Default is 42.
type ALS struct {
	BaseMatrixFactorization
	// Model parameters
	UserFactor [][]float64 // p_u
	ItemFactor [][]float64 // q_i
	// Hyper parameters
	nFactors int
	nEpochs  int
	userReg  float64
	itemReg  float64
}

// NewALS creates an ALS model.
func NewALS(params Params) *ALS {
	als := new(ALS)
	als.SetParams(params)
	return als
}

// SetParams sets hyper-parameters for the ALS model.
func (als *ALS) SetParams(params Params) {
	als.BaseModel.SetParams(params)
	als.nFactors = als.Params.GetInt(NFactors, 10)
	als.nEpochs = als.Params.GetInt(NEpochs, 5)
	als.userReg = als.Params.GetFloat64(UserReg, 1e-3)
	als.itemReg = als.Params.GetFloat64(ItemReg, 1e-3)
}

// Fit the ALS model.
func (als *ALS) Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) error {
	if config == nil {
		config = NewFitConfig()
	}
	log.Logger().Info("fit als",
		zap.Int("n_users", trainSet.CountUsers()),
		zap.Int("n_items", trainSet.CountItems()),
		zap.Int("n_ratings", trainSet.Count()),
		zap.Any("params", als.GetParams()))
	als.Init(trainSet)
	rng := als.GetRandomGenerator()
	als.UserFactor = rng.UniformMatrix(trainSet.CountUsers(), als.nFactors, 0, 1)
	als.ItemFactor = rng.UniformMatrix(trainSet.CountItems(), als.nFactors, 0, 1)
	for epoch := 1; epoch <= als.nEpochs; epoch++ {
		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		default:
		}
		fitStart := time.Now()
		// Update user factors: (Y^T Y + \lambda_u I) p_u = Y^T r_u
		if err := als.solveSide(als.ItemFactor, als.UserFactor, trainSet.GetUserRatings(), als.userReg); err != nil {
			return errors.Trace(err)
		}
		// Update item factors: (X^T X + \lambda_i I) q_i = X^T r_i
		if err := als.solveSide(als.UserFactor, als.ItemFactor, trainSet.GetItemRatings(), als.itemReg); err != nil {
			return errors.Trace(err)
		}
		if epoch%config.Verbose == 0 || epoch == als.nEpochs {
			log.Logger().Info("fit als",
				zap.Int("epoch", epoch),
				zap.Int("n_epochs", als.nEpochs),
				zap.Duration("fit_time", time.Since(fitStart)))
		}
	}
	return nil
}

// solveSide recomputes every row of target by solving the normal equation
// against the fixed side. The right-hand side Y^T r only accumulates observed
// entries; unobserved cells contribute nothing.
func (als *ALS) solveSide(fixed, target [][]float64, ratings [][]ratingTuple, reg float64) error {
	gram := mat.NewSymDense(als.nFactors, nil)
	for _, row := range fixed {
		for i := 0; i < als.nFactors; i++ {
			for j := i; j < als.nFactors; j++ {
				gram.SetSym(i, j, gram.At(i, j)+row[i]*row[j])
			}
		}
	}
	for i := 0; i < als.nFactors; i++ {
		gram.SetSym(i, i, gram.At(i, i)+reg)
	}
	var chol mat.Cholesky
	if !chol.Factorize(gram) {
		return errors.New("normal equation is not positive definite")
	}
	rhs := mat.NewVecDense(als.nFactors, nil)
	var solution mat.VecDense
	for row := range target {
		rhs.Zero()
		for _, t := range ratings[row] {
			other := fixed[t.A]
			for f := 0; f < als.nFactors; f++ {
				rhs.SetVec(f, rhs.AtVec(f)+other[f]*t.B)
			}
		}
		if err := chol.SolveVecTo(&solution, rhs); err != nil {
			return errors.Trace(err)
		}
		copy(target[row], solution.RawVector().Data)
	}
	return nil
}

// Predict returns the top n recommendations for a user. Unknown users yield an
// empty list.
func (als *ALS) Predict(userId string, n int) ([]Score, error) {
	if als.UserFactor == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	userIndex := als.UserDict.ToId(userId)
	if userIndex == dataset.NotId {
		return []Score{}, nil
	}
	return topN(als.scoreVector(als.UserFactor[userIndex]), als.ItemDict, n), nil
}

// PredictUser returns the score vector over all items. Unknown users are scored
// with the mean of all learned user-factor rows, a population-average proxy.
func (als *ALS) PredictUser(userId string) ([]float64, error) {
	if als.UserFactor == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	userIndex := als.UserDict.ToId(userId)
	if userIndex != dataset.NotId {
		return als.scoreVector(als.UserFactor[userIndex]), nil
	}
	mean := make([]float64, als.nFactors)
	for _, row := range als.UserFactor {
		floats.Add(mean, row)
	}
	if len(als.UserFactor) > 0 {
		floats.Scale(1/float64(len(als.UserFactor)), mean)
	}
	return als.scoreVector(mean), nil
}

// PredictMatrix multiplies the two factor matrices directly, no bias terms.
func (als *ALS) PredictMatrix() ([][]float64, error) {
	if als.UserFactor == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	predictions := make([][]float64, len(als.UserFactor))
	for u, userFactor := range als.UserFactor {
		predictions[u] = als.scoreVector(userFactor)
	}
	return predictions, nil
}

func (als *ALS) scoreVector(userFactor []float64) []float64 {
	scores := make([]float64, len(als.ItemFactor))
	for i, itemFactor := range als.ItemFactor {
		scores[i] = floats.Dot(userFactor, itemFactor)
	}
	return scores
}

// Marshal model into byte stream.
func (als *ALS) Marshal(w io.Writer) error {
	if err := als.BaseMatrixFactorization.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, als.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, als.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (als *ALS) Unmarshal(r io.Reader) error {
	if err := als.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	als.SetParams(als.Params)
	var err error
	if als.UserFactor, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	if als.ItemFactor, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	return nil
}
