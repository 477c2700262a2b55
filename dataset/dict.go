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
	"io"

	"github.com/savor-io/savor/base/encoding"
)

// NotId is returned by Dict.ToId for identifiers absent from the dictionary.
const NotId = int32(-1)

// Dict assigns dense zero-based indices to string identifiers in first-seen order.
// A Dict is owned by the dataset (and the models fit on it) that created it; indices
// are never valid across two differently filtered datasets.
type Dict struct {
	si map[string]int32
	is []string
}

func NewDict() *Dict {
	return &Dict{si: map[string]int32{}}
}

// Count returns the number of identifiers in the dictionary.
func (d *Dict) Count() int {
	return len(d.is)
}

// Id returns the index of s, adding it if unseen.
func (d *Dict) Id(s string) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	y := int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	return y
}

// ToId returns the index of s, or NotId if unseen.
func (d *Dict) ToId(s string) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	return NotId
}

// String returns the identifier at index id.
func (d *Dict) String(id int32) (string, bool) {
	if id < 0 || int(id) >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

// Strings returns all identifiers in index order.
func (d *Dict) Strings() []string {
	return d.is
}

// Equal reports whether two dictionaries map the same identifiers to the same indices.
func (d *Dict) Equal(o *Dict) bool {
	if d.Count() != o.Count() {
		return false
	}
	for i, s := range d.is {
		if o.is[i] != s {
			return false
		}
	}
	return true
}

// Marshal writes the dictionary to byte stream.
func (d *Dict) Marshal(w io.Writer) error {
	return encoding.WriteGob(w, d.is)
}

// Unmarshal reads the dictionary from byte stream.
func (d *Dict) Unmarshal(r io.Reader) error {
	var is []string
	if err := encoding.ReadGob(r, &is); err != nil {
		return err
	}
	d.is = is
	d.si = make(map[string]int32, len(is))
	for i, s := range is {
		d.si[s] = int32(i)
	}
	return nil
}
