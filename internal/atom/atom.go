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

// Package atom provides a string-interning arena that hands out
// stable integer IDs for strings, so that equality and hashing of a
// large population of repeated categorical values reduces to integer
// operations instead of string comparisons.
package atom

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// ID is a stable identifier for an interned string. The zero ID is
// never allocated and is reserved to mean "absent".
type ID uint32

type entry struct {
	s  string
	id ID
}

// Table is a string-interning arena. The zero value is ready to use.
// A Table is not safe for concurrent use, and this package provides no
// way to merge two Tables.
type Table struct {
	buckets  map[uint64][]entry
	interned []string
}

func (t *Table) init() {
	if t.buckets == nil {
		t.buckets = make(map[uint64][]entry)
	}
}

// hash64 returns a 64-bit digest of s: the first 8 bytes of its
// blake2b-256 sum. Using
// a cryptographic hash here is overkill for collision resistance, but
// it gives every column's value population a uniform, seed-independent
// bucket distribution, which keeps intern() cheap regardless of which
// strings happen to appear in a given dataset.
func hash64(s string) uint64 {
	sum := blake2b.Sum256([]byte(s))
	return binary.LittleEndian.Uint64(sum[:8])
}

// Intern returns the stable ID for s, allocating a new one if s has
// not been seen before by this Table.
func (t *Table) Intern(s string) ID {
	t.init()
	h := hash64(s)
	for _, e := range t.buckets[h] {
		if e.s == s {
			return e.id
		}
	}
	id := ID(len(t.interned) + 1)
	t.interned = append(t.interned, s)
	t.buckets[h] = append(t.buckets[h], entry{s: s, id: id})
	return id
}

// Lookup returns the string associated with id, or ("", false) if id
// was never allocated by this Table.
func (t *Table) Lookup(id ID) (string, bool) {
	if id == 0 {
		return "", false
	}
	idx := int(id) - 1
	if idx < 0 || idx >= len(t.interned) {
		return "", false
	}
	return t.interned[idx], true
}

// MustLookup is Lookup without the ok result, for call sites that
// only ever pass back IDs this Table itself allocated.
func (t *Table) MustLookup(id ID) string {
	s, _ := t.Lookup(id)
	return s
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	return len(t.interned)
}
