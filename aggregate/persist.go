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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/sds-go/privasynth/combo"
)

// WriteTable persists data as the tab-delimited aggregates table
// described in spec.md section 6: one row per combination, columns
// "selections", "count", "length". The stream is zstd-compressed, the
// way compr.CompressionWriter wraps sneller's own columnar output.
func WriteTable(w io.Writer, data *AggregatedData) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("aggregate: opening zstd writer: %w", err)
	}

	bw := bufio.NewWriter(zw)
	if _, err := bw.WriteString("selections\tcount\tlength\n"); err != nil {
		zw.Close()
		return err
	}

	var rangeErr error
	data.Aggregates.Range(func(key combo.Combination, count *AggregatedCount) bool {
		line := fmt.Sprintf("%s\t%s\t%d\n", key.Format(data.Block), formatCount(count.Count), key.Len())
		if _, err := bw.WriteString(line); err != nil {
			rangeErr = err
			return false
		}
		return true
	})
	if rangeErr != nil {
		zw.Close()
		return rangeErr
	}
	if err := bw.Flush(); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// formatCount renders a count as an integer when it has no fractional
// part (the common pre-DP case) and as a float otherwise (DP-perturbed
// counts, per spec.md section 6: "counts may be floating-point when
// derived from DP").
func formatCount(c float64) string {
	if c == float64(int64(c)) {
		return strconv.FormatInt(int64(c), 10)
	}
	return strconv.FormatFloat(c, 'g', -1, 64)
}

// TableRow is one parsed row of a persisted aggregates table.
type TableRow struct {
	Selections string
	Count      float64
	Length     int
}

// ReadTable parses a zstd-compressed tab-delimited aggregates table
// written by WriteTable.
func ReadTable(r io.Reader) ([]TableRow, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("aggregate: opening zstd reader: %w", err)
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, sc.Err()
	}

	var rows []TableRow
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			return nil, fmt.Errorf("aggregate: malformed table row %q", line)
		}
		count, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("aggregate: malformed count in row %q: %w", line, err)
		}
		length, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("aggregate: malformed length in row %q: %w", line, err)
		}
		rows = append(rows, TableRow{Selections: parts[0], Count: count, Length: length})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
