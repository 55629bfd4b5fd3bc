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

// Record is an ordered sequence of Values, one per retained column.
// A Record may omit values for columns whose source value was empty;
// Values are kept sorted by Column ascending and never repeat a
// Column, matching the canonical order ValueCombination relies on.
type Record struct {
	Values []Value
}

// Len returns the number of attributes present in the record.
func (r Record) Len() int {
	return len(r.Values)
}

// MultiValueColumnMeta records how a derived column was produced from
// a delimited multi-valued source column.
type MultiValueColumnMeta struct {
	// OriginalColumn is the header name of the source column before
	// it was split into one derived boolean-membership column per
	// distinct value.
	OriginalColumn string
	// Delimiter is the byte that separated individual values in the
	// source column.
	Delimiter byte
}
