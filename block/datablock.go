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

package block

import (
	"fmt"

	"github.com/sds-go/privasynth/internal/atom"
)

// DataBlock is an immutable view of categorical records, stored row by
// row (each Record holds its own Values): headers, the records themselves, and metadata for any column that
// was expanded from a delimited multi-valued source column. A
// DataBlock is built once by an ingest collaborator and then shared,
// read-only, by every downstream consumer (Aggregator, Synthesizer).
type DataBlock struct {
	headers []string
	records []Record
	mvcols  map[int]MultiValueColumnMeta
	atoms   *atom.Table
}

// New builds a DataBlock from headers, records, and multi-value-column
// metadata keyed by derived column index. It returns an error if any
// record references a column index outside of headers.
func New(headers []string, records []Record, mvcols map[int]MultiValueColumnMeta, atoms *atom.Table) (*DataBlock, error) {
	for ri, rec := range records {
		for _, v := range rec.Values {
			if v.Column < 0 || v.Column >= len(headers) {
				return nil, fmt.Errorf("record %d references column %d, headers has %d columns", ri, v.Column, len(headers))
			}
		}
	}
	if mvcols == nil {
		mvcols = map[int]MultiValueColumnMeta{}
	}
	return &DataBlock{headers: headers, records: records, mvcols: mvcols, atoms: atoms}, nil
}

// Headers returns the column names, in column-index order.
func (d *DataBlock) Headers() []string { return d.headers }

// Header returns the name of the column at index col.
func (d *DataBlock) Header(col int) string { return d.headers[col] }

// NumColumns returns the number of columns (including derived
// multi-value columns).
func (d *DataBlock) NumColumns() int { return len(d.headers) }

// Records returns the data block's records. The slice and its
// contents must not be mutated by callers.
func (d *DataBlock) Records() []Record { return d.records }

// NumRecords returns the number of records in the block.
func (d *DataBlock) NumRecords() int { return len(d.records) }

// Atoms returns the interning arena backing every Value in this block.
func (d *DataBlock) Atoms() *atom.Table { return d.atoms }

// ValueString returns the interned string behind v.
func (d *DataBlock) ValueString(v Value) string {
	return d.atoms.MustLookup(v.Atom)
}

// MultiValueColumn returns the metadata for a derived multi-value
// column, if col was produced by expanding a delimited source column.
func (d *DataBlock) MultiValueColumn(col int) (MultiValueColumnMeta, bool) {
	m, ok := d.mvcols[col]
	return m, ok
}
