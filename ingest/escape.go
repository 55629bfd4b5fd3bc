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

import "strings"

// escapeReserved escapes the two tokens that combo.Combination's and
// block.DataBlockValue's textual forms treat as delimiters, so a raw
// source value can never be confused with formatting syntax
// downstream (spec.md section 6).
func escapeReserved(s string) string {
	if strings.IndexByte(s, ';') == -1 && strings.IndexByte(s, ':') == -1 {
		return s
	}
	r := strings.NewReplacer(";", "<semicolon>", ":", "<colon>")
	return r.Replace(s)
}
