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
	"github.com/juju/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ridgeRegression fits y = w.x + b with an L2 penalty on w. Features and
// targets are centered first so the intercept absorbs the means and stays
// unpenalized:
//
//	(Xc^T Xc + \alpha I) w = Xc^T yc
//	b = \bar{y} - w . \bar{x}
//
// x is row-major with one sample per row. A heavy alpha shrinks the weights of
// redundant base models toward zero while the intercept keeps predictions on
// the rating scale.
func ridgeRegression(x [][]float64, y []float64, alpha float64) (weights []float64, intercept float64, err error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, 0, errors.Errorf("ridge regression requires matching non-empty samples, got %d x %d", len(x), len(y))
	}
	numSamples := len(x)
	numFeatures := len(x[0])
	// Column means and target mean
	xMean := make([]float64, numFeatures)
	for _, row := range x {
		floats.Add(xMean, row)
	}
	floats.Scale(1/float64(numSamples), xMean)
	yMean := floats.Sum(y) / float64(numSamples)
	// Gram matrix and right-hand side over centered samples
	gram := mat.NewSymDense(numFeatures, nil)
	rhs := mat.NewVecDense(numFeatures, nil)
	centered := make([]float64, numFeatures)
	for s, row := range x {
		floats.SubTo(centered, row, xMean)
		for i := 0; i < numFeatures; i++ {
			for j := i; j < numFeatures; j++ {
				gram.SetSym(i, j, gram.At(i, j)+centered[i]*centered[j])
			}
			rhs.SetVec(i, rhs.AtVec(i)+centered[i]*(y[s]-yMean))
		}
	}
	for i := 0; i < numFeatures; i++ {
		gram.SetSym(i, i, gram.At(i, i)+alpha)
	}
	var chol mat.Cholesky
	if !chol.Factorize(gram) {
		return nil, 0, errors.New("ridge normal equation is not positive definite")
	}
	var solution mat.VecDense
	if err := chol.SolveVecTo(&solution, rhs); err != nil {
		return nil, 0, errors.Trace(err)
	}
	weights = make([]float64, numFeatures)
	copy(weights, solution.RawVector().Data)
	intercept = yMean - floats.Dot(weights, xMean)
	return weights, intercept, nil
}
