// Copyright (C) 2024 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"encoding/csv"
	"os"

	"github.com/sds-go/privasynth/block"
)

// writeOutputCSV writes db as plain CSV: the header row, then one row
// per record with an empty cell for every column the record omits a
// value for.
func writeOutputCSV(path string, db *block.DataBlock) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(db.Headers()); err != nil {
		return err
	}
	row := make([]string, db.NumColumns())
	for _, rec := range db.Records() {
		for i := range row {
			row[i] = ""
		}
		for _, v := range rec.Values {
			row[v.Column] = db.ValueString(v)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
