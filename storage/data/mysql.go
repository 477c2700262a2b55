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

package data

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	"github.com/savor-io/savor/dataset"
	"github.com/savor-io/savor/logics"
)

// MySQL reads the ratings table of the main application database. The table is
// append-mostly with an auto-increment id, which serves as ingestion order.
type MySQL struct {
	client *sql.DB
}

// OpenMySQL connects to a MySQL rating store. The DSN follows the
// go-sql-driver format, e.g. "user:pass@tcp(localhost:3306)/savor".
func OpenMySQL(dsn string) (*MySQL, error) {
	client, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &MySQL{client: client}, nil
}

// CountUserRatings returns how many ratings a user has submitted.
func (d *MySQL) CountUserRatings(ctx context.Context, userId string) (int, error) {
	var count int
	err := d.client.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ratings WHERE user_id = ?", userId).Scan(&count)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return count, nil
}

// GetRatings returns rating records in ingestion order.
func (d *MySQL) GetRatings(ctx context.Context, region string) ([]dataset.Rating, error) {
	query := "SELECT user_id, item_id, stars, region FROM ratings"
	args := []any{}
	if region != "" {
		query += " WHERE region = ?"
		args = append(args, region)
	}
	query += " ORDER BY id"
	rows, err := d.client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var ratings []dataset.Rating
	for rows.Next() {
		var r dataset.Rating
		if err := rows.Scan(&r.UserId, &r.ItemId, &r.Stars, &r.Region); err != nil {
			return nil, errors.Trace(err)
		}
		ratings = append(ratings, r)
	}
	return ratings, errors.Trace(rows.Err())
}

// GetItemStats returns per-item mean rating and volume.
func (d *MySQL) GetItemStats(ctx context.Context, region string) ([]logics.ItemStats, error) {
	query := "SELECT item_id, region, AVG(stars), COUNT(*) FROM ratings"
	args := []any{}
	if region != "" {
		query += " WHERE region = ?"
		args = append(args, region)
	}
	query += " GROUP BY item_id, region"
	rows, err := d.client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var stats []logics.ItemStats
	for rows.Next() {
		var s logics.ItemStats
		if err := rows.Scan(&s.ItemId, &s.Region, &s.Rating, &s.Volume); err != nil {
			return nil, errors.Trace(err)
		}
		stats = append(stats, s)
	}
	return stats, errors.Trace(rows.Err())
}

// GetRegions returns the distinct regions present in the store.
func (d *MySQL) GetRegions(ctx context.Context) ([]string, error) {
	rows, err := d.client.QueryContext(ctx, "SELECT DISTINCT region FROM ratings")
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var regions []string
	for rows.Next() {
		var region string
		if err := rows.Scan(&region); err != nil {
			return nil, errors.Trace(err)
		}
		regions = append(regions, region)
	}
	return regions, errors.Trace(rows.Err())
}

// GetEligibleUsers returns users of a region with at least minRatings ratings.
func (d *MySQL) GetEligibleUsers(ctx context.Context, region string, minRatings int) ([]string, error) {
	rows, err := d.client.QueryContext(ctx,
		"SELECT user_id FROM ratings WHERE region = ? GROUP BY user_id HAVING COUNT(*) >= ?",
		region, minRatings)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var users []string
	for rows.Next() {
		var userId string
		if err := rows.Scan(&userId); err != nil {
			return nil, errors.Trace(err)
		}
		users = append(users, userId)
	}
	return users, errors.Trace(rows.Err())
}

// Close the connection to MySQL.
func (d *MySQL) Close() error {
	return errors.Trace(d.client.Close())
}
