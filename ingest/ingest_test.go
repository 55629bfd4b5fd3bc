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

package ingest

import (
	"strings"
	"testing"
)

func TestIngestBasicCSV(t *testing.T) {
	src := "A,B\na1,b1\na1,b2\na2,b1\n"
	db, err := Ingest(strings.NewReader(src), Config{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if db.NumRecords() != 3 {
		t.Fatalf("expected 3 records, got %d", db.NumRecords())
	}
	if len(db.Headers()) != 2 {
		t.Fatalf("expected 2 headers, got %v", db.Headers())
	}
}

func TestIngestEmptyCellsAreSkipped(t *testing.T) {
	src := "A,B\na1,\n,b1\n"
	db, err := Ingest(strings.NewReader(src), Config{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	for _, rec := range db.Records() {
		if len(rec.Values) != 1 {
			t.Fatalf("expected 1 value per record (one cell blank), got %d", len(rec.Values))
		}
	}
}

func TestIngestSensitiveZeroRetained(t *testing.T) {
	src := "A,B\n0,b1\n1,b2\n"
	db, err := Ingest(strings.NewReader(src), Config{SensitiveZeros: []string{"A"}})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	rec := db.Records()[0]
	if len(rec.Values) != 2 {
		t.Fatalf("expected sensitive-zero cell retained, got %d values", len(rec.Values))
	}
	if db.ValueString(rec.Values[0]) != "0" {
		t.Fatalf("expected retained value %q, got %q", "0", db.ValueString(rec.Values[0]))
	}
}

func TestIngestZeroDroppedWithoutSensitiveFlag(t *testing.T) {
	src := "A,B\n0,b1\n"
	db, err := Ingest(strings.NewReader(src), Config{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	rec := db.Records()[0]
	if len(rec.Values) != 1 {
		t.Fatalf("expected the zero cell dropped as empty, got %d values", len(rec.Values))
	}
}

func TestIngestMultiValueColumnExpansion(t *testing.T) {
	src := "id,symptoms\n1,flu|cough\n2,flu\n"
	db, err := Ingest(strings.NewReader(src), Config{
		MultiValueColumns: []MultiValueColumn{{Column: "symptoms", Delimiter: '|'}},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	headers := db.Headers()
	var sawFlu, sawCough bool
	for _, h := range headers {
		if h == "symptoms=flu" {
			sawFlu = true
		}
		if h == "symptoms=cough" {
			sawCough = true
		}
	}
	if !sawFlu || !sawCough {
		t.Fatalf("expected derived symptoms=flu and symptoms=cough columns, got %v", headers)
	}
	if len(db.Records()[0].Values) != 3 {
		t.Fatalf("expected id + 2 symptom flags on first record, got %d", len(db.Records()[0].Values))
	}
}

func TestIngestReservedTokensEscaped(t *testing.T) {
	src := "A,B\n\"a;1\",\"b:2\"\n"
	db, err := Ingest(strings.NewReader(src), Config{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	rec := db.Records()[0]
	if got := db.ValueString(rec.Values[0]); got != "a<semicolon>1" {
		t.Fatalf("expected escaped semicolon, got %q", got)
	}
	if got := db.ValueString(rec.Values[1]); got != "b<colon>2" {
		t.Fatalf("expected escaped colon, got %q", got)
	}
}

func TestIngestSubjectIDGroupingMergesRows(t *testing.T) {
	src := "id,A,B\ns1,a1,\ns1,,b1\ns2,a2,b2\n"
	db, err := Ingest(strings.NewReader(src), Config{SubjectIDColumn: "id"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if db.NumRecords() != 2 {
		t.Fatalf("expected 2 records after grouping, got %d", db.NumRecords())
	}
	if len(db.Records()[0].Values) != 2 {
		t.Fatalf("expected subject s1's rows merged into one 2-attribute record, got %d", len(db.Records()[0].Values))
	}
}

func TestIngestSubjectIDGroupingConflictErrors(t *testing.T) {
	src := "id,A\ns1,a1\ns1,a2\n"
	_, err := Ingest(strings.NewReader(src), Config{SubjectIDColumn: "id"})
	if err == nil {
		t.Fatal("expected a join-records-by-id error for conflicting values")
	}
}

func TestIngestRecordLimit(t *testing.T) {
	src := "A\na1\na2\na3\n"
	db, err := Ingest(strings.NewReader(src), Config{RecordLimit: 2})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if db.NumRecords() != 2 {
		t.Fatalf("expected RecordLimit to cap at 2 records, got %d", db.NumRecords())
	}
}

func TestIngestUseColumnsFilters(t *testing.T) {
	src := "A,B,C\na1,b1,c1\n"
	db, err := Ingest(strings.NewReader(src), Config{UseColumns: []string{"A", "C"}})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(db.Headers()) != 2 {
		t.Fatalf("expected 2 selected headers, got %v", db.Headers())
	}
}

func TestIngestTSVFormat(t *testing.T) {
	src := "A\tB\na1\tb1\\tx\n"
	db, err := Ingest(strings.NewReader(src), Config{Format: TSVFormat})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if db.NumRecords() != 1 {
		t.Fatalf("expected 1 TSV record, got %d", db.NumRecords())
	}
	if got := db.ValueString(db.Records()[0].Values[1]); got != "b1\tx" {
		t.Fatalf("expected TSV escape \\t unescaped, got %q", got)
	}
}
