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

package combo

import (
	"testing"

	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/internal/atom"
)

func TestExtendWithKeepsCanonicalOrder(t *testing.T) {
	c := Combination{{Column: 0, Atom: 1}, {Column: 2, Atom: 1}}
	out, err := c.ExtendWith(block.Value{Column: 1, Atom: 2})
	if err != nil {
		t.Fatalf("ExtendWith: %v", err)
	}
	want := Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}, {Column: 2, Atom: 1}}
	if !out.Equal(want) {
		t.Fatalf("ExtendWith out of canonical order: got %v, want %v", out, want)
	}
	// the original combination must not have been mutated
	if c.Len() != 2 {
		t.Fatalf("ExtendWith mutated its receiver: %v", c)
	}
}

func TestExtendWithRejectsDuplicateColumn(t *testing.T) {
	c := Combination{{Column: 0, Atom: 1}}
	if _, err := c.ExtendWith(block.Value{Column: 0, Atom: 2}); err == nil {
		t.Fatal("expected an error extending with an already-present column")
	}
}

func TestContains(t *testing.T) {
	c := Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}, {Column: 2, Atom: 3}}
	sub := Combination{{Column: 0, Atom: 1}, {Column: 2, Atom: 3}}
	if !c.Contains(sub) {
		t.Fatal("expected c to contain sub")
	}
	mismatch := Combination{{Column: 0, Atom: 1}, {Column: 2, Atom: 99}}
	if c.Contains(mismatch) {
		t.Fatal("expected c not to contain a combination with a mismatched atom")
	}
	longer := Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}, {Column: 2, Atom: 3}, {Column: 3, Atom: 4}}
	if c.Contains(longer) {
		t.Fatal("a combination cannot contain one longer than itself")
	}
}

func TestEqual(t *testing.T) {
	a := Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}}
	b := Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}}
	if !a.Equal(b) {
		t.Fatal("expected equal combinations to compare equal")
	}
	c := Combination{{Column: 0, Atom: 1}}
	if a.Equal(c) {
		t.Fatal("expected combinations of different length to compare unequal")
	}
}

func TestHashStableAndOrderSensitiveContentOnly(t *testing.T) {
	a := Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}}
	b := Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}}
	if a.Hash() != b.Hash() {
		t.Fatal("expected identical combinations to hash identically")
	}
	c := Combination{{Column: 0, Atom: 2}, {Column: 1, Atom: 1}}
	if a.Hash() == c.Hash() {
		t.Fatal("expected different combinations to hash differently (not a guarantee, but true for this case)")
	}
}

func TestFormat(t *testing.T) {
	atoms := &atom.Table{}
	a1 := atoms.Intern("a1")
	b1 := atoms.Intern("b1")
	db, err := block.New([]string{"A", "B"}, nil, nil, atoms)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	c := Combination{{Column: 0, Atom: a1}, {Column: 1, Atom: b1}}
	if got, want := c.Format(db), "A:a1;B:b1"; got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestClone(t *testing.T) {
	c := Combination{{Column: 0, Atom: 1}}
	clone := c.Clone()
	clone[0].Atom = 99
	if c[0].Atom == 99 {
		t.Fatal("Clone shared backing storage with the original")
	}
}
