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
	"encoding/gob"

	"github.com/savor-io/savor/base/log"
	"go.uber.org/zap"
)

func init() {
	// hyper-parameter values cross the gob boundary inside an interface
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register("")
}

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	Lr            ParamName = "Lr"            // learning rate
	NEpochs       ParamName = "NEpochs"       // number of epochs
	NFactors      ParamName = "NFactors"      // number of latent factors
	RandomState   ParamName = "RandomState"   // random state (seed)
	UserReg       ParamName = "UserReg"       // regularization of user factors (ALS)
	ItemReg       ParamName = "ItemReg"       // regularization of item factors (ALS)
	UserBiasReg   ParamName = "UserBiasReg"   // regularization of user bias (SGD)
	ItemBiasReg   ParamName = "ItemBiasReg"   // regularization of item bias (SGD)
	UserFactorReg ParamName = "UserFactorReg" // regularization of user factors (SGD)
	ItemFactorReg ParamName = "ItemFactorReg" // regularization of item factors (SGD)
	AdaptiveLr    ParamName = "AdaptiveLr"    // use the 1/(100+0.01*epoch) schedule
	Alpha         ParamName = "Alpha"         // ridge regression strength (ensemble)
	UseCache      ParamName = "UseCache"      // cache the full prediction matrix (ensemble)
	ClipFeatures  ParamName = "ClipFeatures"  // clip base-model features to the rating domain (ensemble)
)

// Params stores hyper-parameters for a model. It is a map between names and
// values. For example, hyper-parameters for SGD are given by:
//
//	model.Params{
//		model.Lr:       0.001,
//		model.NEpochs:  200,
//		model.NFactors: 40,
//	}
type Params map[ParamName]interface{}

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets an integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		default:
			log.Logger().Error("type mismatch in hyper-parameter", zap.String("name", string(name)))
		}
	}
	return _default
}

// GetInt64 gets an int64 parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("type mismatch in hyper-parameter", zap.String("name", string(name)))
		}
	}
	return _default
}

// GetBool gets a bool parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetBool(name ParamName, _default bool) bool {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case bool:
			return val
		default:
			log.Logger().Error("type mismatch in hyper-parameter", zap.String("name", string(name)))
		}
	}
	return _default
}

// GetFloat64 gets a float parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetFloat64(name ParamName, _default float64) float64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		default:
			log.Logger().Error("type mismatch in hyper-parameter", zap.String("name", string(name)))
		}
	}
	return _default
}

// Overwrite returns a copy of parameters overwritten by params.
func (parameters Params) Overwrite(params Params) Params {
	merged := make(Params)
	for k, v := range parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}
