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
)

const (
	maxBiasStep   = 1.0
	maxFactorStep = 10.0
)

// LearningSchedule maps an epoch index to a learning rate. A caller-supplied
// schedule overrides both the fixed rate and the adaptive schedule.
type LearningSchedule func(epoch int) float64

// SGD is a bias-decomposed matrix factorization trained by stochastic gradient
// descent. The score of a (user, item) pair is:
//
//	\hat{r}_{ui} = \mu + b_u + b_i + p_u^T q_i
//
// Internal scores stay unclipped so the ensemble can learn a useful linear
// combination from them; only PredictRating clips to the rating domain.
//
// Hyper-parameters:
//
//	NFactors      - The number of latent factors. Default is 40.
//	NEpochs       - The number of epochs. Default is 200.
//	Lr            - The fixed learning rate. Default is 1e-3.
//	AdaptiveLr    - Use the 1/(100+0.01*epoch) schedule. Default is true.
//	UserBiasReg   - Regularization of user biases. Default is 0.01.
//	ItemBiasReg   - Regularization of item biases. Default is 0.01.
//	UserFactorReg - Regularization of user factors. Default is 0.01.
//	ItemFactorReg - Regularization of item factors. Default is 0.01.
//	RandomState   - The random seed. Default is 42.
type SGD struct {
	BaseMatrixFactorization
	// Model parameters
	UserFactor [][]float64 // p_u
	ItemFactor [][]float64 // q_i
	UserBias   []float64   // b_u
	ItemBias   []float64   // b_i
	GlobalBias float64     // mu
	// Hyper parameters
	nFactors      int
	nEpochs       int
	lr            float64
	adaptiveLr    bool
	userBiasReg   float64
	itemBiasReg   float64
	userFactorReg float64
	itemFactorReg float64
	schedule      LearningSchedule
}

// NewSGD creates a SGD model.
func NewSGD(params Params) *SGD {
	sgd := new(SGD)
	sgd.SetParams(params)
	return sgd
}

// SetParams sets hyper-parameters for the SGD model.
func (sgd *SGD) SetParams(params Params) {
	sgd.BaseModel.SetParams(params)
	sgd.nFactors = sgd.Params.GetInt(NFactors, 40)
	sgd.nEpochs = sgd.Params.GetInt(NEpochs, 200)
	sgd.lr = sgd.Params.GetFloat64(Lr, 1e-3)
	sgd.adaptiveLr = sgd.Params.GetBool(AdaptiveLr, true)
	sgd.userBiasReg = sgd.Params.GetFloat64(UserBiasReg, 0.01)
	sgd.itemBiasReg = sgd.Params.GetFloat64(ItemBiasReg, 0.01)
	sgd.userFactorReg = sgd.Params.GetFloat64(UserFactorReg, 0.01)
	sgd.itemFactorReg = sgd.Params.GetFloat64(ItemFactorReg, 0.01)
}

// SetLearningSchedule installs a caller-supplied learning rate schedule.
func (sgd *SGD) SetLearningSchedule(schedule LearningSchedule) {
	sgd.schedule = schedule
}

func (sgd *SGD) learningRate(epoch int) float64 {
	if sgd.schedule != nil {
		return sgd.schedule(epoch)
	}
	if sgd.adaptiveLr {
		return 1.0 / (100.0 + 0.01*float64(epoch))
	}
	return sgd.lr
}

// Fit the SGD model. Training is single-threaded: factor rows are mutated in
// place while iterating observed pairs in shuffled order.
func (sgd *SGD) Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) error {
	if config == nil {
		config = NewFitConfig()
	}
	log.Logger().Info("fit sgd",
		zap.Int("n_users", trainSet.CountUsers()),
		zap.Int("n_items", trainSet.CountItems()),
		zap.Int("n_ratings", trainSet.Count()),
		zap.Any("params", sgd.GetParams()))
	sgd.Init(trainSet)
	rng := sgd.GetRandomGenerator()
	// The global bias is the mean of observed ratings only; dense zeros are
	// sentinels for "unobserved" and must not drag the mean down.
	sgd.GlobalBias = trainSet.Mean()
	sgd.UserBias = rng.UniformVector(trainSet.CountUsers(), -0.1, 0.1)
	sgd.ItemBias = rng.UniformVector(trainSet.CountItems(), -0.1, 0.1)
	sgd.UserFactor = rng.UniformMatrix(trainSet.CountUsers(), sgd.nFactors, -0.1, 0.1)
	sgd.ItemFactor = rng.UniformMatrix(trainSet.CountItems(), sgd.nFactors, -0.1, 0.1)
	// Collect observed pairs
	users := make([]int32, 0, trainSet.Count())
	items := make([]int32, 0, trainSet.Count())
	ratings := make([]float64, 0, trainSet.Count())
	trainSet.ForEach(func(userIndex, itemIndex int32, rating float64) {
		users = append(users, userIndex)
		items = append(items, itemIndex)
		ratings = append(ratings, rating)
	})
	perm := make([]int, len(ratings))
	for i := range perm {
		perm[i] = i
	}
	for epoch := 1; epoch <= sgd.nEpochs; epoch++ {
		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		default:
		}
		fitStart := time.Now()
		lr := sgd.learningRate(epoch - 1)
		rng.Shuffle(len(perm), func(i, j int) {
			perm[i], perm[j] = perm[j], perm[i]
		})
		cost := 0.0
		for _, i := range perm {
			u, j, rating := users[i], items[i], ratings[i]
			prediction := sgd.internalPredict(u, j)
			err := rating - prediction
			cost += err * err
			// Update biases, steps clamped against outlier ratings
			sgd.UserBias[u] += lr * Clip(err-sgd.userBiasReg*sgd.UserBias[u], -maxBiasStep, maxBiasStep)
			sgd.ItemBias[j] += lr * Clip(err-sgd.itemBiasReg*sgd.ItemBias[j], -maxBiasStep, maxBiasStep)
			// Update latent factors; the item step sees the already-updated
			// user row, matching the single-writer in-place update order
			userFactor := sgd.UserFactor[u]
			itemFactor := sgd.ItemFactor[j]
			for f := 0; f < sgd.nFactors; f++ {
				userStep := Clip(err*itemFactor[f]-sgd.userFactorReg*userFactor[f], -maxFactorStep, maxFactorStep)
				userFactor[f] += lr * userStep
				itemStep := Clip(err*userFactor[f]-sgd.itemFactorReg*itemFactor[f], -maxFactorStep, maxFactorStep)
				itemFactor[f] += lr * itemStep
			}
		}
		if epoch%config.Verbose == 0 || epoch == sgd.nEpochs {
			log.Logger().Info("fit sgd",
				zap.Int("epoch", epoch),
				zap.Int("n_epochs", sgd.nEpochs),
				zap.Float64("lr", lr),
				zap.Float64("mse", cost/float64(len(ratings))),
				zap.Duration("fit_time", time.Since(fitStart)))
		}
	}
	return nil
}

func (sgd *SGD) internalPredict(userIndex, itemIndex int32) float64 {
	ret := sgd.GlobalBias
	if userIndex != dataset.NotId {
		ret += sgd.UserBias[userIndex]
	}
	if itemIndex != dataset.NotId {
		ret += sgd.ItemBias[itemIndex]
	}
	if userIndex != dataset.NotId && itemIndex != dataset.NotId {
		ret += floats.Dot(sgd.UserFactor[userIndex], sgd.ItemFactor[itemIndex])
	}
	return ret
}

// Predict returns the top n recommendations for a user. Unknown users yield an
// empty list.
func (sgd *SGD) Predict(userId string, n int) ([]Score, error) {
	if sgd.UserFactor == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	userIndex := sgd.UserDict.ToId(userId)
	if userIndex == dataset.NotId {
		return []Score{}, nil
	}
	return topN(sgd.scoreVector(userIndex), sgd.ItemDict, n), nil
}

// PredictUser returns the score vector over all items. Unknown users fall back
// to the population baseline mu + b_i with no personalized term.
func (sgd *SGD) PredictUser(userId string) ([]float64, error) {
	if sgd.UserFactor == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	userIndex := sgd.UserDict.ToId(userId)
	return sgd.scoreVector(userIndex), nil
}

// PredictMatrix returns the full bias-decomposed score matrix, unclipped.
func (sgd *SGD) PredictMatrix() ([][]float64, error) {
	if sgd.UserFactor == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	predictions := make([][]float64, len(sgd.UserFactor))
	for u := range predictions {
		predictions[u] = sgd.scoreVector(int32(u))
	}
	return predictions, nil
}

// PredictRating returns a single user-facing rating, clipped to [0,5].
func (sgd *SGD) PredictRating(userId, itemId string) (float64, error) {
	if sgd.UserFactor == nil {
		return 0, errors.Trace(ErrNotFitted)
	}
	userIndex := sgd.UserDict.ToId(userId)
	itemIndex := sgd.ItemDict.ToId(itemId)
	return Clip(sgd.internalPredict(userIndex, itemIndex), 0, 5), nil
}

func (sgd *SGD) scoreVector(userIndex int32) []float64 {
	scores := make([]float64, len(sgd.ItemFactor))
	for i := range scores {
		scores[i] = sgd.internalPredict(userIndex, int32(i))
	}
	return scores
}

// Marshal model into byte stream.
func (sgd *SGD) Marshal(w io.Writer) error {
	if err := sgd.BaseMatrixFactorization.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, sgd.GlobalBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, sgd.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, sgd.ItemBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, sgd.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, sgd.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (sgd *SGD) Unmarshal(r io.Reader) error {
	if err := sgd.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	sgd.SetParams(sgd.Params)
	if err := encoding.ReadGob(r, &sgd.GlobalBias); err != nil {
		return errors.Trace(err)
	}
	var err error
	if sgd.UserBias, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if sgd.ItemBias, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if sgd.UserFactor, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	if sgd.ItemFactor, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	return nil
}
