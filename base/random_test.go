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

package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomGenerator_UniformVector(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.UniformVector(100, -0.1, 0.1)
	assert.Len(t, vec, 100)
	for _, v := range vec {
		assert.GreaterOrEqual(t, v, -0.1)
		assert.Less(t, v, 0.1)
	}
	// same seed, same sequence
	assert.Equal(t, NewRandomGenerator(42).UniformVector(10, 0, 1),
		NewRandomGenerator(42).UniformVector(10, 0, 1))
}

func TestRandomGenerator_Sample(t *testing.T) {
	rng := NewRandomGenerator(0)
	sampled := rng.Sample(10, 50, 20)
	assert.Len(t, sampled, 20)
	seen := make(map[int]bool)
	for _, v := range sampled {
		assert.GreaterOrEqual(t, v, 10)
		assert.Less(t, v, 50)
		assert.False(t, seen[v])
		seen[v] = true
	}
}

func TestSampleOrdered(t *testing.T) {
	rng := NewRandomGenerator(0)
	seq := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	sampled := SampleOrdered(rng, seq, 3)
	assert.Len(t, sampled, 3)
	// elements keep their original relative order
	last := -1
	for _, s := range sampled {
		index := -1
		for i, v := range seq {
			if v == s {
				index = i
			}
		}
		assert.Greater(t, index, last)
		last = index
	}
}

func TestSampleOrdered_ShortInput(t *testing.T) {
	rng := NewRandomGenerator(0)
	seq := []string{"a", "b"}
	assert.Equal(t, seq, SampleOrdered(rng, seq, 5))
	assert.Equal(t, seq, SampleOrdered(rng, seq, 2))
	assert.Empty(t, SampleOrdered(rng, []string{}, 3))
}
