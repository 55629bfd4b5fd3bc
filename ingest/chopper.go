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
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
)

// chopper splits one record's worth of fields out of a reader. csvChopper
// and tsvChopper are the two supported implementations, mirroring the
// CSV/TSV split of a delimited-file reader.
type chopper interface {
	getNext() ([]string, error)
}

// csvChopper reads proper CSV: quoted fields, embedded delimiters and
// newlines inside quotes.
type csvChopper struct {
	r *csv.Reader
}

func newCSVChopper(r io.Reader, delim byte) *csvChopper {
	cr := csv.NewReader(r)
	cr.Comma = rune(delim)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	return &csvChopper{r: cr}
}

func (c *csvChopper) getNext() ([]string, error) {
	return c.r.Read()
}

// tsvChopper reads backslash-escaped delimited text: one record per
// line, no quoting, \t \n \r \\ escape sequences.
type tsvChopper struct {
	s     *bufio.Scanner
	delim byte
}

func newTSVChopper(r io.Reader, delim byte) *tsvChopper {
	return &tsvChopper{s: bufio.NewScanner(r), delim: delim}
}

func (c *tsvChopper) getNext() ([]string, error) {
	if !c.s.Scan() {
		if err := c.s.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := c.s.Bytes()
	var fields []string
	col := 0
	for {
		start := col
		next := bytes.IndexByte(line[col:], c.delim)
		if next == -1 {
			next = len(line)
		} else {
			next += col
		}
		field := unescapeTSV(line[start:next])
		fields = append(fields, field)
		col = next
		if col == len(line) {
			break
		}
		col++
	}
	return fields, nil
}

func unescapeTSV(field []byte) string {
	if bytes.IndexByte(field, '\\') == -1 {
		return string(field)
	}
	out := make([]byte, 0, len(field))
	for i := 0; i < len(field); i++ {
		if field[i] == '\\' && i+1 < len(field) {
			if r := tsvBackslash(field[i+1]); r != 0 {
				out = append(out, r)
				i++
				continue
			}
		}
		out = append(out, field[i])
	}
	return string(out)
}

func tsvBackslash(c byte) byte {
	switch c {
	case '\\':
		return '\\'
	case 't':
		return '\t'
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	default:
		return 0
	}
}
