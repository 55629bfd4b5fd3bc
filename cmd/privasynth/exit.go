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

package main

import "github.com/sds-go/privasynth/errs"

// Exit codes, one per error kind in spec.md section 7, plus the
// generic fallback.
const (
	exitOK = iota
	exitParsingError
	exitJoinRecordsByID
	exitCapacityExceeded
	exitInvalidParameter
	exitStatsError
	exitProcessingStopped
	exitUnknown
)

func exitCodeFor(err error) int {
	switch err.(type) {
	case *errs.ParsingError:
		return exitParsingError
	case *errs.JoinRecordsByIDError:
		return exitJoinRecordsByID
	case *errs.CapacityExceeded:
		return exitCapacityExceeded
	case *errs.InvalidParameter:
		return exitInvalidParameter
	case *errs.StatsError:
		return exitStatsError
	case *errs.ProcessingStopped:
		return exitProcessingStopped
	default:
		return exitUnknown
	}
}
