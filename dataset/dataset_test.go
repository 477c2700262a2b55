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

package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Empty(t *testing.T) {
	d := New(nil)
	assert.Zero(t, d.CountUsers())
	assert.Zero(t, d.CountItems())
	assert.Zero(t, d.Count())
	assert.Zero(t, d.Mean())
}

func TestNew_RegionFilter(t *testing.T) {
	d := New([]Rating{
		{UserId: "a", ItemId: "x", Stars: 4, Region: "pdx"},
		{UserId: "a", ItemId: "y", Stars: 5, Region: "sea"},
		{UserId: "b", ItemId: "x", Stars: 3, Region: "pdx"},
	}, WithRegion("pdx"), WithMinUserRatings(1))
	assert.Equal(t, 2, d.Count())
	assert.Equal(t, int32(NotId), d.GetItemDict().ToId("y"))
}

func TestNew_DropIncomplete(t *testing.T) {
	d := New([]Rating{
		{UserId: "", ItemId: "x", Stars: 4},
		{UserId: "a", ItemId: "", Stars: 4},
		{UserId: "a", ItemId: "x", Stars: math.NaN()},
		{UserId: "a", ItemId: "x", Stars: 4},
	}, WithMinUserRatings(1))
	assert.Equal(t, 1, d.Count())
	assert.Equal(t, 1, d.CountUsers())
	assert.Equal(t, 1, d.CountItems())
}

func TestNew_DuplicateMostRecentWins(t *testing.T) {
	d := New([]Rating{
		{UserId: "a", ItemId: "x", Stars: 2},
		{UserId: "a", ItemId: "y", Stars: 3},
		{UserId: "a", ItemId: "x", Stars: 5},
	}, WithMinUserRatings(1))
	assert.Equal(t, 2, d.Count())
	dense := d.ToDense()
	userIndex := d.GetUserDict().ToId("a")
	itemIndex := d.GetItemDict().ToId("x")
	assert.Equal(t, 5.0, dense[userIndex][itemIndex])
}

func TestNew_UserFloorAfterItemFloor(t *testing.T) {
	// "b" has 2 ratings, but one sits on an item below the item floor. The user
	// floor counts surviving records only, so "b" is dropped too.
	d := New([]Rating{
		{UserId: "a", ItemId: "x", Stars: 4},
		{UserId: "b", ItemId: "x", Stars: 4},
		{UserId: "c", ItemId: "x", Stars: 4},
		{UserId: "a", ItemId: "y", Stars: 4},
		{UserId: "b", ItemId: "z", Stars: 4},
		{UserId: "c", ItemId: "y", Stars: 4},
		{UserId: "a", ItemId: "w", Stars: 4},
	}, WithMinItemRatings(2), WithMinUserRatings(2))
	assert.Equal(t, int32(NotId), d.GetItemDict().ToId("w"))
	assert.Equal(t, int32(NotId), d.GetUserDict().ToId("b"))
	assert.NotEqual(t, int32(NotId), d.GetUserDict().ToId("a"))
	assert.NotEqual(t, int32(NotId), d.GetUserDict().ToId("c"))
}

func TestNew_FirstSeenIndices(t *testing.T) {
	d := New([]Rating{
		{UserId: "b", ItemId: "y", Stars: 4},
		{UserId: "a", ItemId: "x", Stars: 4},
	}, WithMinUserRatings(1))
	assert.Equal(t, int32(0), d.GetUserDict().ToId("b"))
	assert.Equal(t, int32(1), d.GetUserDict().ToId("a"))
	assert.Equal(t, int32(0), d.GetItemDict().ToId("y"))
	assert.Equal(t, int32(1), d.GetItemDict().ToId("x"))
}

func TestDataset_Mean(t *testing.T) {
	d := New([]Rating{
		{UserId: "a", ItemId: "x", Stars: 2},
		{UserId: "a", ItemId: "y", Stars: 4},
		{UserId: "b", ItemId: "x", Stars: 3},
	}, WithMinUserRatings(1))
	assert.InDelta(t, 3.0, d.Mean(), 1e-9)
}

func TestDataset_ToDense(t *testing.T) {
	d := New([]Rating{
		{UserId: "a", ItemId: "x", Stars: 2},
		{UserId: "b", ItemId: "y", Stars: 4},
	}, WithMinUserRatings(1))
	dense := d.ToDense()
	assert.Equal(t, [][]float64{{2, 0}, {0, 4}}, dense)
}

func TestDict(t *testing.T) {
	d := NewDict()
	assert.Equal(t, int32(0), d.Id("a"))
	assert.Equal(t, int32(1), d.Id("b"))
	assert.Equal(t, int32(0), d.Id("a"))
	assert.Equal(t, int32(NotId), d.ToId("c"))
	assert.Equal(t, 2, d.Count())
	s, ok := d.String(1)
	assert.True(t, ok)
	assert.Equal(t, "b", s)
	_, ok = d.String(2)
	assert.False(t, ok)

	o := NewDict()
	o.Id("a")
	o.Id("b")
	assert.True(t, d.Equal(o))
	o.Id("c")
	assert.False(t, d.Equal(o))
}
