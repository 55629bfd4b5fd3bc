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

package aggregate

import (
	"testing"

	"github.com/sds-go/privasynth/combo"
)

func TestAggregatedCountAddAndRemoveRecord(t *testing.T) {
	c := newAggregatedCount()
	c.AddRecord(1)
	c.AddRecord(1)
	c.AddRecord(2)
	if c.Count != 2 {
		t.Fatalf("Count = %v, want 2", c.Count)
	}
	c.RemoveRecord(1)
	if c.Count != 1 {
		t.Fatalf("Count after RemoveRecord = %v, want 1", c.Count)
	}
	c.RemoveRecord(1)
	if c.Count != 1 {
		t.Fatalf("RemoveRecord of an absent record changed Count to %v", c.Count)
	}
}

func TestCountMapGetOrCreateIsStableByKey(t *testing.T) {
	m := NewCountMap()
	k := combo.Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}}
	a := m.GetOrCreate(k)
	a.AddRecord(0)
	b := m.GetOrCreate(combo.Combination{{Column: 0, Atom: 1}, {Column: 1, Atom: 2}})
	if a != b {
		t.Fatal("GetOrCreate returned distinct entries for equal keys")
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func TestCountMapGetOrCreateClonesKey(t *testing.T) {
	m := NewCountMap()
	k := combo.Combination{{Column: 0, Atom: 1}}
	m.GetOrCreate(k)
	k[0].Atom = 99
	if _, ok := m.Get(combo.Combination{{Column: 0, Atom: 1}}); !ok {
		t.Fatal("mutating the caller's key slice affected the stored key")
	}
}

func TestCountMapGetMissing(t *testing.T) {
	m := NewCountMap()
	if _, ok := m.Get(combo.Combination{{Column: 0, Atom: 1}}); ok {
		t.Fatal("Get on an empty map should report absent")
	}
}

func TestCountMapDelete(t *testing.T) {
	m := NewCountMap()
	k := combo.Combination{{Column: 0, Atom: 1}}
	m.GetOrCreate(k)
	m.Delete(k)
	if m.Len() != 0 {
		t.Fatalf("Len() after Delete = %d, want 0", m.Len())
	}
	if _, ok := m.Get(k); ok {
		t.Fatal("Get found a key after Delete")
	}
}

func TestCountMapRangeVisitsEveryEntry(t *testing.T) {
	m := NewCountMap()
	m.GetOrCreate(combo.Combination{{Column: 0, Atom: 1}})
	m.GetOrCreate(combo.Combination{{Column: 1, Atom: 2}})
	seen := 0
	m.Range(func(key combo.Combination, count *AggregatedCount) bool {
		seen++
		return true
	})
	if seen != 2 {
		t.Fatalf("Range visited %d entries, want 2", seen)
	}
}

func TestCountMapRangeStopsEarly(t *testing.T) {
	m := NewCountMap()
	m.GetOrCreate(combo.Combination{{Column: 0, Atom: 1}})
	m.GetOrCreate(combo.Combination{{Column: 1, Atom: 2}})
	seen := 0
	m.Range(func(key combo.Combination, count *AggregatedCount) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Fatalf("Range visited %d entries after returning false, want 1", seen)
	}
}

func TestCountMapCloneIsIndependent(t *testing.T) {
	m := NewCountMap()
	k := combo.Combination{{Column: 0, Atom: 1}}
	orig := m.GetOrCreate(k)
	orig.AddRecord(0)
	orig.AddRecord(1)

	clone := m.Clone()
	cc, ok := clone.Get(k)
	if !ok {
		t.Fatal("clone is missing the original key")
	}
	cc.AddRecord(2)
	cc.Count = 99

	if orig.Count != 2 {
		t.Fatalf("mutating the clone changed the original's Count to %v", orig.Count)
	}
	if _, ok := orig.ContainedInRecords[2]; ok {
		t.Fatal("mutating the clone's record set changed the original's")
	}
}

func TestCountMapMergeUnionsRecordsAndRecounts(t *testing.T) {
	a := NewCountMap()
	k := combo.Combination{{Column: 0, Atom: 1}}
	ac := a.GetOrCreate(k)
	ac.AddRecord(0)
	ac.AddRecord(1)

	b := NewCountMap()
	bc := b.GetOrCreate(combo.Combination{{Column: 0, Atom: 1}})
	bc.AddRecord(1)
	bc.AddRecord(2)

	a.Merge(b)
	merged, ok := a.Get(k)
	if !ok {
		t.Fatal("expected the merged key to be present")
	}
	if merged.Count != 3 {
		t.Fatalf("Count after Merge = %v, want 3 (records 0,1,2)", merged.Count)
	}
}
