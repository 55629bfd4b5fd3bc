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

// Package combo implements ValueCombination: the canonical ordered
// tuple of attributes that the aggregator counts and the DP and
// synthesis layers operate on.
package combo

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dchest/siphash"

	"github.com/sds-go/privasynth/block"
)

// Combination is an ordered sequence of Values sorted by column index,
// with no two entries sharing a column. This sort discipline is the
// canonical form: two combinations are equal iff their canonical forms
// match element-for-element.
type Combination []block.Value

// Len returns the number of attributes in the combination.
func (c Combination) Len() int { return len(c) }

// Contains reports whether every value in other also appears in c.
// Both operands are assumed to be in canonical order; the check walks
// two cursors in O(len(c)+len(other)).
func (c Combination) Contains(other Combination) bool {
	i, j := 0, 0
	for i < len(c) && j < len(other) {
		switch {
		case c[i].Column < other[j].Column:
			i++
		case c[i].Column == other[j].Column:
			if c[i].Atom != other[j].Atom {
				return false
			}
			i++
			j++
		default: // c[i].Column > other[j].Column
			return false
		}
	}
	return j == len(other)
}

// Equal reports whether c and other have identical canonical forms.
func (c Combination) Equal(other Combination) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// ExtendWith returns a new Combination formed by appending v to c,
// respecting canonical (column-ascending) order. It is an error for v
// to share a column with an existing entry.
func (c Combination) ExtendWith(v block.Value) (Combination, error) {
	out := make(Combination, len(c), len(c)+1)
	copy(out, c)
	pos := len(out)
	for i, e := range out {
		if e.Column == v.Column {
			return nil, fmt.Errorf("combo: column %d already present in combination", v.Column)
		}
		if e.Column > v.Column {
			pos = i
			break
		}
	}
	out = append(out, block.Value{})
	copy(out[pos+1:], out[pos:len(out)-1])
	out[pos] = v
	return out, nil
}

// Clone returns an independent copy of c.
func (c Combination) Clone() Combination {
	out := make(Combination, len(c))
	copy(out, c)
	return out
}

// Format renders c as "header1:val1;header2:val2;...", using d to
// resolve header names and interned values.
func (c Combination) Format(d *block.DataBlock) string {
	var b strings.Builder
	for i, v := range c {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(d.Header(v.Column))
		b.WriteByte(':')
		b.WriteString(d.ValueString(v))
	}
	return b.String()
}

// hashSeed is the fixed siphash key used to hash Combinations for use
// as fast-map keys. Combinations are never persisted across process
// boundaries keyed by this hash, so a fixed key (rather than a
// randomized per-process one) is fine and keeps hashing deterministic,
// which aggregate's parallel partition/merge relies on.
const hashSeed0, hashSeed1 = 0, 0

// Hash returns a 64-bit digest of c suitable for bucketing in a fast
// hash map. It is not a cryptographic hash; two different
// combinations may collide, so map implementations must still compare
// full combinations on a bucket hit.
func (c Combination) Hash() uint64 {
	buf := make([]byte, 0, len(c)*10)
	var tmp [binary.MaxVarintLen64]byte
	for _, v := range c {
		n := binary.PutUvarint(tmp[:], uint64(v.Column))
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(v.Atom))
		buf = append(buf, tmp[:n]...)
	}
	return siphash.Hash(hashSeed0, hashSeed1, buf)
}
