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
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/juju/errors"
	"github.com/savor-io/savor/base/log"
	"go.uber.org/zap"
)

// LoadCSV reads rating records from a CSV file with columns
// user_id,item_id,stars,region. A header row is detected and skipped.
// Malformed rows are logged and skipped.
func LoadCSV(path string) ([]Rating, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	var ratings []Rating
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		line++
		if len(record) < 3 {
			log.Logger().Warn("skip malformed row", zap.Int("line", line))
			continue
		}
		stars, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			if line == 1 {
				// header row
				continue
			}
			log.Logger().Warn("skip malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		r := Rating{UserId: record[0], ItemId: record[1], Stars: stars}
		if len(record) > 3 {
			r.Region = record[3]
		}
		ratings = append(ratings, r)
	}
	return ratings, nil
}
