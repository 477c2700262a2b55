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
	"io"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/savor-io/savor/base"
	"github.com/savor-io/savor/base/encoding"
	"github.com/savor-io/savor/dataset"
)

// ratingTuple is a sparse matrix entry: the counterpart index and the rating.
type ratingTuple = lo.Tuple2[int32, float64]

// BaseModel holds hyper-parameters and the seeded random generator.
type BaseModel struct {
	Params      Params
	randomState int64
}

// SetParams sets hyper-parameters.
func (baseModel *BaseModel) SetParams(params Params) {
	baseModel.Params = params
	baseModel.randomState = baseModel.Params.GetInt64(RandomState, 42)
}

// GetParams returns hyper-parameters.
func (baseModel *BaseModel) GetParams() Params {
	return baseModel.Params
}

// GetRandomGenerator returns a fresh generator seeded by RandomState, so that
// two Fit runs on the same input are bit-for-bit reproducible.
func (baseModel *BaseModel) GetRandomGenerator() base.RandomGenerator {
	return base.NewRandomGenerator(baseModel.randomState)
}

// BaseMatrixFactorization owns the index maps shared by all matrix
// factorization models.
type BaseMatrixFactorization struct {
	BaseModel
	UserDict *dataset.Dict
	ItemDict *dataset.Dict
}

func (baseModel *BaseMatrixFactorization) Init(trainSet *dataset.Dataset) {
	baseModel.UserDict = trainSet.GetUserDict()
	baseModel.ItemDict = trainSet.GetItemDict()
}

// GetUserDict returns the user index map.
func (baseModel *BaseMatrixFactorization) GetUserDict() *dataset.Dict {
	return baseModel.UserDict
}

// GetItemDict returns the item index map.
func (baseModel *BaseMatrixFactorization) GetItemDict() *dataset.Dict {
	return baseModel.ItemDict
}

// Marshal params and index maps into byte stream.
func (baseModel *BaseMatrixFactorization) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, baseModel.Params); err != nil {
		return errors.Trace(err)
	}
	if err := baseModel.UserDict.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := baseModel.ItemDict.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal params and index maps from byte stream.
func (baseModel *BaseMatrixFactorization) Unmarshal(r io.Reader) error {
	if err := encoding.ReadGob(r, &baseModel.Params); err != nil {
		return errors.Trace(err)
	}
	baseModel.UserDict = dataset.NewDict()
	if err := baseModel.UserDict.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	baseModel.ItemDict = dataset.NewDict()
	if err := baseModel.ItemDict.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	return nil
}
