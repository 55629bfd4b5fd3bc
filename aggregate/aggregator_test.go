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
	"errors"
	"testing"

	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/errs"
	"github.com/sds-go/privasynth/internal/atom"
)

func testBlock(t *testing.T) *block.DataBlock {
	t.Helper()
	atoms := &atom.Table{}
	a1 := atoms.Intern("a1")
	b1 := atoms.Intern("b1")
	c1 := atoms.Intern("c1")
	records := []block.Record{
		{Values: []block.Value{{Column: 0, Atom: a1}, {Column: 1, Atom: b1}, {Column: 2, Atom: c1}}},
		{Values: []block.Value{{Column: 0, Atom: a1}, {Column: 1, Atom: b1}}},
		{Values: []block.Value{{Column: 2, Atom: c1}}},
	}
	db, err := block.New([]string{"A", "B", "C"}, records, nil, atoms)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	return db
}

func TestAggregateRejectsNegativeReportingLength(t *testing.T) {
	_, err := New(-1).Aggregate(testBlock(t), nil)
	var invalid *errs.InvalidParameter
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *errs.InvalidParameter, got %v", err)
	}
}

func TestAggregateZeroReportingLengthProducesNoCombinations(t *testing.T) {
	result, err := New(0).Aggregate(testBlock(t), nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.Aggregates.Len() != 0 {
		t.Fatalf("expected no combinations at reporting length 0, got %d", result.Aggregates.Len())
	}
}

func TestAggregateCountsSingleAndPairCombinations(t *testing.T) {
	db := testBlock(t)
	result, err := New(2).Aggregate(db, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	get := func(c combo.Combination) float64 {
		ac, ok := result.Aggregates.Get(c)
		if !ok {
			t.Fatalf("missing combination %s", c.Format(db))
		}
		return ac.Count
	}

	colA := db.Records()[0].Values[0].Atom
	colB := db.Records()[0].Values[1].Atom
	colC := db.Records()[0].Values[2].Atom

	if got := get(combo.Combination{{Column: 0, Atom: colA}}); got != 2 {
		t.Fatalf("A=a1 count = %v, want 2", got)
	}
	if got := get(combo.Combination{{Column: 2, Atom: colC}}); got != 2 {
		t.Fatalf("C=c1 count = %v, want 2", got)
	}
	if got := get(combo.Combination{{Column: 0, Atom: colA}, {Column: 1, Atom: colB}}); got != 2 {
		t.Fatalf("A=a1,B=b1 count = %v, want 2", got)
	}
	if got := get(combo.Combination{{Column: 0, Atom: colA}, {Column: 2, Atom: colC}}); got != 1 {
		t.Fatalf("A=a1,C=c1 count = %v, want 1 (only record 0 holds both)", got)
	}
}

func TestAggregateSensitivityMatchesCombinationsPerRecord(t *testing.T) {
	db := testBlock(t)
	result, err := New(2).Aggregate(db, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// record 0 has 3 values: 3 singles + 3 pairs = 6 combinations total.
	if got := result.SensitivityAt(0, 0); got != 6 {
		t.Fatalf("record 0 total sensitivity = %d, want 6", got)
	}
	if got := result.SensitivityAt(1, 0); got != 3 {
		t.Fatalf("record 0 length-1 sensitivity = %d, want 3", got)
	}
	if got := result.SensitivityAt(2, 0); got != 3 {
		t.Fatalf("record 0 length-2 sensitivity = %d, want 3", got)
	}
	// record 2 has a single value: 1 combination total, none at length 2.
	if got := result.SensitivityAt(0, 2); got != 1 {
		t.Fatalf("record 2 total sensitivity = %d, want 1", got)
	}
	if got := result.SensitivityAt(2, 2); got != 0 {
		t.Fatalf("record 2 length-2 sensitivity = %d, want 0", got)
	}
}

func TestAggregateRespectsMaxCombinations(t *testing.T) {
	agg := New(2)
	agg.MaxCombinations = 1
	_, err := agg.Aggregate(testBlock(t), nil)
	var capErr *errs.CapacityExceeded
	if !errors.As(err, &capErr) {
		t.Fatalf("expected *errs.CapacityExceeded, got %v", err)
	}
}

func TestAggregateProgressCallbackCanCancel(t *testing.T) {
	atoms := &atom.Table{}
	v := atoms.Intern("x")
	records := make([]block.Record, 5000)
	for i := range records {
		records[i] = block.Record{Values: []block.Value{{Column: 0, Atom: v}}}
	}
	db, err := block.New([]string{"A"}, records, nil, atoms)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	cancelErr := errors.New("stop requested")
	_, err = New(1).Aggregate(db, func(percentDone float64) error {
		return cancelErr
	})
	var stopped *errs.ProcessingStopped
	if !errors.As(err, &stopped) {
		t.Fatalf("expected *errs.ProcessingStopped, got %v", err)
	}
}

func TestAggregatedDataCloneIsIndependent(t *testing.T) {
	db := testBlock(t)
	result, err := New(2).Aggregate(db, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	clone := result.Clone()
	colA := db.Records()[0].Values[0].Atom
	key := combo.Combination{{Column: 0, Atom: colA}}

	cc, ok := clone.Aggregates.Get(key)
	if !ok {
		t.Fatal("clone is missing a combination present in the original")
	}
	cc.Count = 1000
	clone.RecordsSensitivityByLen[1][0] = 1000
	clone.NumberOfRecords = 1000

	orig, _ := result.Aggregates.Get(key)
	if orig.Count == 1000 {
		t.Fatal("mutating the clone's counts affected the original's")
	}
	if result.SensitivityAt(1, 0) == 1000 {
		t.Fatal("mutating the clone's sensitivities affected the original's")
	}
	if result.NumberOfRecords == 1000 {
		t.Fatal("mutating the clone's NumberOfRecords affected the original's")
	}
}

func TestAggregateEmptyBlockProducesZeroRecordResult(t *testing.T) {
	atoms := &atom.Table{}
	db, err := block.New([]string{"A"}, nil, nil, atoms)
	if err != nil {
		t.Fatalf("block.New: %v", err)
	}
	result, err := New(2).Aggregate(db, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if result.NumberOfRecords != 0 {
		t.Fatalf("NumberOfRecords = %v, want 0", result.NumberOfRecords)
	}
	if result.Aggregates.Len() != 0 {
		t.Fatalf("expected no combinations for an empty block, got %d", result.Aggregates.Len())
	}
}
