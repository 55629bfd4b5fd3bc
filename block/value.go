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
	"strconv"
	"strings"

	"github.com/sds-go/privasynth/errs"
	"github.com/sds-go/privasynth/internal/atom"
)

// valueDelimiter separates a column index from its value in the raw
// DataBlockValue textual form.
const valueDelimiter = ':'

// Value is an (column, value) attribute backed by an interning arena:
// Atom is a stable ID handed out by a Table, so equality and hashing
// of a Value reduce to comparing two small integers.
type Value struct {
	Column int
	Atom   atom.ID
}

// DataBlockValue is the raw, uninterned form of an attribute: a
// column index paired with the literal string read from the source.
// It is used at the boundary (parsing, persistence) where no interning
// arena is in scope yet.
type DataBlockValue struct {
	Column int
	Value  string
}

// String formats v as "column:value", the raw DataBlockValue textual
// form used when persisting and parsing attributes.
func (v DataBlockValue) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(v.Column))
	b.WriteByte(valueDelimiter)
	b.WriteString(v.Value)
	return b.String()
}

// ParseDataBlockValue parses the "column:value" raw textual form
// produced by DataBlockValue.String. It rejects a missing delimiter or
// a non-integer column prefix with a *errs.ParsingError.
func ParseDataBlockValue(s string) (DataBlockValue, error) {
	pos := strings.IndexByte(s, valueDelimiter)
	if pos < 0 {
		return DataBlockValue{}, errs.NewParsingError("data block value missing %q in %q", string(valueDelimiter), s)
	}
	col, err := strconv.Atoi(s[:pos])
	if err != nil {
		return DataBlockValue{}, errs.NewParsingError("data block value has non-integer column prefix in %q: %s", s, err)
	}
	return DataBlockValue{Column: col, Value: s[pos+1:]}, nil
}
