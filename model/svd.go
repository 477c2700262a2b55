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
	"gonum.org/v1/gonum/mat"
)

// SVD is a bias-corrected truncated singular value decomposition. Global, user
// and item biases are removed from a dense working copy, the residual is fully
// decomposed and truncated to the top k singular triples, and reconstruction
// re-adds the biases:
//
//	\hat{r}_{ui} = U_k[u] S_k Vt_k[:,i] + \mu + b_u + b_i
//
// The decomposition is a complete dense SVD truncated afterwards. This is fine
// for matrices up to thousands of users and items; past that an iterative
// truncated routine would have to replace it.
//
// Hyper-parameters:
//
//	NFactors - The number of singular triples kept. Default is 10.
type SVD struct {
	BaseMatrixFactorization
	// Model parameters
	Uk         [][]float64 // U_k, users x k
	Sk         []float64   // diagonal of S_k
	Vt         [][]float64 // Vt_k, k x items
	UserBias   []float64   // b_u
	ItemBias   []float64   // b_i
	GlobalBias float64     // mu
	// Hyper parameters
	nFactors int
}

// NewSVD creates a SVD model.
func NewSVD(params Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

// SetParams sets hyper-parameters for the SVD model.
func (svd *SVD) SetParams(params Params) {
	svd.BaseModel.SetParams(params)
	svd.nFactors = svd.Params.GetInt(NFactors, 10)
}

// Fit the SVD model.
func (svd *SVD) Fit(ctx context.Context, trainSet *dataset.Dataset, _ *FitConfig) error {
	log.Logger().Info("fit svd",
		zap.Int("n_users", trainSet.CountUsers()),
		zap.Int("n_items", trainSet.CountItems()),
		zap.Int("n_ratings", trainSet.Count()),
		zap.Any("params", svd.GetParams()))
	svd.Init(trainSet)
	numUsers, numItems := trainSet.CountUsers(), trainSet.CountItems()
	svd.UserBias = make([]float64, numUsers)
	svd.ItemBias = make([]float64, numItems)
	svd.Uk = [][]float64{}
	svd.Sk = []float64{}
	svd.Vt = [][]float64{}
	if numUsers == 0 || numItems == 0 {
		return nil
	}
	fitStart := time.Now()
	dense := trainSet.ToDense()
	// The global bias divides by the count of observed entries, not all cells.
	svd.GlobalBias = trainSet.Mean()
	// Per-row and per-column means over observed entries only. Rows and columns
	// without any observation keep a bias of zero.
	for u, row := range trainSet.GetUserRatings() {
		if len(row) > 0 {
			sum := 0.0
			for _, t := range row {
				sum += t.B
			}
			svd.UserBias[u] = sum / float64(len(row))
		}
	}
	for i, col := range trainSet.GetItemRatings() {
		if len(col) > 0 {
			sum := 0.0
			for _, t := range col {
				sum += t.B
			}
			svd.ItemBias[i] = sum / float64(len(col))
		}
	}
	// Residual matrix over all cells of the dense working copy
	residual := mat.NewDense(numUsers, numItems, nil)
	for u := 0; u < numUsers; u++ {
		for i := 0; i < numItems; i++ {
			residual.Set(u, i, dense[u][i]-svd.GlobalBias-svd.UserBias[u]-svd.ItemBias[i])
		}
	}
	select {
	case <-ctx.Done():
		return errors.Trace(ctx.Err())
	default:
	}
	var decomposition mat.SVD
	if !decomposition.Factorize(residual, mat.SVDThin) {
		return errors.New("singular value decomposition failed")
	}
	values := decomposition.Values(nil)
	var u, v mat.Dense
	decomposition.UTo(&u)
	decomposition.VTo(&v)
	k := svd.nFactors
	if k > len(values) {
		k = len(values)
	}
	svd.Sk = values[:k]
	svd.Uk = make([][]float64, numUsers)
	for row := 0; row < numUsers; row++ {
		svd.Uk[row] = make([]float64, k)
		for f := 0; f < k; f++ {
			svd.Uk[row][f] = u.At(row, f)
		}
	}
	svd.Vt = make([][]float64, k)
	for f := 0; f < k; f++ {
		svd.Vt[f] = make([]float64, numItems)
		for i := 0; i < numItems; i++ {
			svd.Vt[f][i] = v.At(i, f)
		}
	}
	log.Logger().Info("fit svd complete",
		zap.Int("k", k),
		zap.Duration("fit_time", time.Since(fitStart)))
	return nil
}

func (svd *SVD) internalPredict(userIndex, itemIndex int32) float64 {
	ret := svd.GlobalBias
	if userIndex != dataset.NotId {
		ret += svd.UserBias[userIndex]
	}
	if itemIndex != dataset.NotId {
		ret += svd.ItemBias[itemIndex]
	}
	if userIndex != dataset.NotId && itemIndex != dataset.NotId {
		for f := range svd.Sk {
			ret += svd.Uk[userIndex][f] * svd.Sk[f] * svd.Vt[f][itemIndex]
		}
	}
	return ret
}

// Predict returns the top n recommendations for a user. Unknown users yield an
// empty list.
func (svd *SVD) Predict(userId string, n int) ([]Score, error) {
	if svd.Uk == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	userIndex := svd.UserDict.ToId(userId)
	if userIndex == dataset.NotId {
		return []Score{}, nil
	}
	return topN(svd.scoreVector(userIndex), svd.ItemDict, n), nil
}

// PredictUser returns the score vector over all items. Unknown users fall back
// to the population baseline mu + b_i.
func (svd *SVD) PredictUser(userId string) ([]float64, error) {
	if svd.Uk == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	return svd.scoreVector(svd.UserDict.ToId(userId)), nil
}

// PredictMatrix returns the full reconstructed score matrix.
func (svd *SVD) PredictMatrix() ([][]float64, error) {
	if svd.Uk == nil {
		return nil, errors.Trace(ErrNotFitted)
	}
	predictions := make([][]float64, len(svd.Uk))
	for u := range predictions {
		predictions[u] = svd.scoreVector(int32(u))
	}
	return predictions, nil
}

func (svd *SVD) scoreVector(userIndex int32) []float64 {
	scores := make([]float64, len(svd.ItemBias))
	for i := range scores {
		scores[i] = svd.internalPredict(userIndex, int32(i))
	}
	return scores
}

// Marshal model into byte stream.
func (svd *SVD) Marshal(w io.Writer) error {
	if err := svd.BaseMatrixFactorization.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, svd.GlobalBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, svd.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, svd.ItemBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, svd.Sk); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, svd.Uk); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, svd.Vt); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (svd *SVD) Unmarshal(r io.Reader) error {
	if err := svd.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	svd.SetParams(svd.Params)
	if err := encoding.ReadGob(r, &svd.GlobalBias); err != nil {
		return errors.Trace(err)
	}
	var err error
	if svd.UserBias, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if svd.ItemBias, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if svd.Sk, err = encoding.ReadVector(r); err != nil {
		return errors.Trace(err)
	}
	if svd.Uk, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	if svd.Vt, err = encoding.ReadMatrix(r); err != nil {
		return errors.Trace(err)
	}
	return nil
}
