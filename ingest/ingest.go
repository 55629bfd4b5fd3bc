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
	"io"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/errs"
	"github.com/sds-go/privasynth/internal/atom"
)

// membershipSentinel is the value recorded in a derived multi-value
// column to indicate the source row contained that value.
const membershipSentinel = "1"

// rawRow is one source row, indexed by source column position.
type rawRow []string

// Ingest reads a delimited source (CSV or TSV, per cfg.Format) and
// builds a DataBlock: header row parsing, column selection, multi-value
// column expansion, subject-ID grouping, sensitive-zero retention, and
// reserved-token escaping (spec.md section 6).
func Ingest(r io.Reader, cfg Config) (*block.DataBlock, error) {
	ch := cfg.newChopper(r)

	headerFields, err := ch.getNext()
	if err != nil {
		return nil, errs.NewParsingError("reading header row: %s", err)
	}
	header := append([]string(nil), headerFields...)
	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[h] = i
	}

	subjectCol := -1
	if cfg.SubjectIDColumn != "" {
		idx, ok := colIndex[cfg.SubjectIDColumn]
		if !ok {
			return nil, errs.NewParsingError("subject-id column %q not found in header", cfg.SubjectIDColumn)
		}
		subjectCol = idx
	}

	useCols := selectedColumns(header, cfg.UseColumns, subjectCol)
	mvSet := multiValueSet(cfg.MultiValueColumns)
	for name := range mvSet {
		if _, ok := colIndex[name]; !ok {
			return nil, errs.NewParsingError("multi-value column %q not found in header", name)
		}
	}

	var rows []rawRow
	for {
		fields, err := ch.getNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.NewParsingError("reading row %d: %s", len(rows)+1, err)
		}
		if len(fields) != len(header) {
			return nil, errs.NewParsingError("row %d has %d fields, header has %d", len(rows)+1, len(fields), len(header))
		}
		row := append(rawRow(nil), fields...)
		rows = append(rows, row)
	}

	sensitiveZeroSet := stringSet(cfg.SensitiveZeros)
	distinctValues := collectMultiValueValues(rows, useCols, mvSet, colIndex)

	headers, schema := buildSchema(header, useCols, mvSet, distinctValues, sensitiveZeroSet)

	records, err := buildRecords(rows, schema, subjectCol, cfg.RecordLimit)
	if err != nil {
		return nil, err
	}

	atoms := &atom.Table{}
	blockRecords := make([]block.Record, len(records))
	for i, rec := range records {
		sort.Slice(rec, func(a, b int) bool { return rec[a].column < rec[b].column })
		values := make([]block.Value, len(rec))
		for j, cell := range rec {
			values[j] = block.Value{Column: cell.column, Atom: atoms.Intern(cell.value)}
		}
		blockRecords[i] = block.Record{Values: values}
	}

	mvcols := make(map[int]block.MultiValueColumnMeta, len(schema.derivedMeta))
	for col, meta := range schema.derivedMeta {
		mvcols[col] = meta
	}

	return block.New(headers, blockRecords, mvcols, atoms)
}

func selectedColumns(header []string, use []string, subjectCol int) []int {
	if len(use) == 0 {
		cols := make([]int, 0, len(header))
		for i := range header {
			if i != subjectCol {
				cols = append(cols, i)
			}
		}
		return cols
	}
	want := make(map[string]bool, len(use))
	for _, u := range use {
		want[u] = true
	}
	cols := make([]int, 0, len(use))
	for i, h := range header {
		if want[h] && i != subjectCol {
			cols = append(cols, i)
		}
	}
	return cols
}

// collectMultiValueValues makes a first pass over the raw rows to
// gather, per multi-value source column, the distinct values observed
// in first-seen order. A second, derived column is later created for
// each.
func collectMultiValueValues(rows []rawRow, useCols []int, mvSet map[string]MultiValueColumn, colIndex map[string]int) map[string][]string {
	distinct := map[string][]string{}
	seen := map[string]map[string]bool{}
	for _, col := range useCols {
		name := ""
		for n, i := range colIndex {
			if i == col {
				name = n
			}
		}
		mv, ok := mvSet[name]
		if !ok {
			continue
		}
		if seen[name] == nil {
			seen[name] = map[string]bool{}
		}
		for _, row := range rows {
			for _, part := range splitNonEmpty(row[col], mv.Delimiter) {
				part = escapeReserved(part)
				if !seen[name][part] {
					seen[name][part] = true
					distinct[name] = append(distinct[name], part)
				}
			}
		}
	}
	return distinct
}

func splitNonEmpty(s string, delim byte) []string {
	if s == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == delim {
			if i > start {
				parts = append(parts, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// columnSchema describes how every retained output column is produced:
// either copied straight from a source column, or derived as a
// boolean-membership flag for one value of a multi-value source column.
type columnSchema struct {
	outputs     []outputColumn
	derivedMeta map[int]block.MultiValueColumnMeta
}

type outputColumn struct {
	sourceCol     int    // source column index this output is derived from
	delim         byte   // 0 for plain columns
	value         string // non-empty for a multi-value derived column
	sensitiveZero bool   // plain columns only: "0" is a real value, not empty
}

func buildSchema(header []string, useCols []int, mvSet map[string]MultiValueColumn, distinct map[string][]string, sensitiveZeros map[string]bool) ([]string, columnSchema) {
	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[h] = i
	}

	var headers []string
	var outputs []outputColumn
	derivedMeta := map[int]block.MultiValueColumnMeta{}

	nameAt := func(col int) string {
		for n, i := range colIndex {
			if i == col {
				return n
			}
		}
		return ""
	}

	for _, col := range useCols {
		name := nameAt(col)
		mv, ok := mvSet[name]
		if !ok {
			headers = append(headers, name)
			outputs = append(outputs, outputColumn{sourceCol: col, sensitiveZero: sensitiveZeros[name]})
			continue
		}
		for _, val := range distinct[name] {
			outIdx := len(headers)
			headers = append(headers, name+"="+val)
			outputs = append(outputs, outputColumn{sourceCol: col, delim: mv.Delimiter, value: val})
			derivedMeta[outIdx] = block.MultiValueColumnMeta{OriginalColumn: name, Delimiter: mv.Delimiter}
		}
	}

	return headers, columnSchema{outputs: outputs, derivedMeta: derivedMeta}
}

type rawCell struct {
	column int
	value  string
}

func buildRecords(rows []rawRow, schema columnSchema, subjectCol int, limit int) ([][]rawCell, error) {
	if subjectCol < 0 {
		records := make([][]rawCell, 0, len(rows))
		for _, row := range rows {
			if limit > 0 && len(records) >= limit {
				break
			}
			records = append(records, rowToCells(row, schema))
		}
		return records, nil
	}

	var order []string
	groups := map[string][]rawRow{}
	for _, row := range rows {
		id := row[subjectCol]
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], row)
	}

	records := make([][]rawCell, 0, len(order))
	for _, id := range order {
		if limit > 0 && len(records) >= limit {
			break
		}
		cells, err := mergeGroup(id, groups[id], schema)
		if err != nil {
			return nil, err
		}
		records = append(records, cells)
	}
	return records, nil
}

func rowToCells(row rawRow, schema columnSchema) []rawCell {
	var cells []rawCell
	for outIdx, out := range schema.outputs {
		if out.value != "" {
			if containsValue(row[out.sourceCol], out.delim, out.value) {
				cells = append(cells, rawCell{column: outIdx, value: membershipSentinel})
			}
			continue
		}
		raw := row[out.sourceCol]
		if isEmpty(raw, out.sensitiveZero) {
			continue
		}
		cells = append(cells, rawCell{column: outIdx, value: escapeReserved(raw)})
	}
	return cells
}

func containsValue(s string, delim byte, value string) bool {
	parts := splitNonEmpty(s, delim)
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = escapeReserved(part)
	}
	return slices.Contains(escaped, value)
}

func isEmpty(raw string, sensitiveZero bool) bool {
	if raw == "" {
		return true
	}
	if raw == "0" && !sensitiveZero {
		return true
	}
	return false
}

func mergeGroup(id string, rows []rawRow, schema columnSchema) ([]rawCell, error) {
	var cells []rawCell
	for outIdx, out := range schema.outputs {
		if out.value != "" {
			present := false
			for _, row := range rows {
				if containsValue(row[out.sourceCol], out.delim, out.value) {
					present = true
					break
				}
			}
			if present {
				cells = append(cells, rawCell{column: outIdx, value: membershipSentinel})
			}
			continue
		}

		resolved := ""
		resolvedSet := false
		for _, row := range rows {
			raw := row[out.sourceCol]
			if isEmpty(raw, out.sensitiveZero) {
				continue
			}
			if resolvedSet && resolved != raw {
				return nil, errs.NewJoinRecordsByIDError("subject %q has conflicting values %q and %q in column %d", id, resolved, raw, out.sourceCol)
			}
			resolved = raw
			resolvedSet = true
		}
		if resolvedSet {
			cells = append(cells, rawCell{column: outIdx, value: escapeReserved(resolved)})
		}
	}
	return cells, nil
}
