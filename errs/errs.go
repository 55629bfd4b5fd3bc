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

// Package errs defines the error kinds produced by the aggregation,
// differential-privacy, and synthesis pipelines.
package errs

import "fmt"

// ParsingError indicates a malformed input row, bad delimiter,
// header/row width mismatch, or unparsable configuration literal.
type ParsingError struct {
	Detail string
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("parsing error: %s", e.Detail)
}

// NewParsingError builds a ParsingError from a format string.
func NewParsingError(format string, args ...interface{}) *ParsingError {
	return &ParsingError{Detail: fmt.Sprintf(format, args...)}
}

// JoinRecordsByIDError indicates that subject-ID grouping produced
// conflicting values for the same (id, column) pair.
type JoinRecordsByIDError struct {
	Detail string
}

func (e *JoinRecordsByIDError) Error() string {
	return fmt.Sprintf("join records by id: %s", e.Detail)
}

// NewJoinRecordsByIDError builds a JoinRecordsByIDError from a format string.
func NewJoinRecordsByIDError(format string, args ...interface{}) *JoinRecordsByIDError {
	return &JoinRecordsByIDError{Detail: fmt.Sprintf(format, args...)}
}

// CapacityExceeded indicates combinatorial explosion above a
// configured memory bound.
type CapacityExceeded struct {
	Detail string
}

func (e *CapacityExceeded) Error() string {
	return fmt.Sprintf("capacity exceeded: %s", e.Detail)
}

// NewCapacityExceeded builds a CapacityExceeded from a format string.
func NewCapacityExceeded(format string, args ...interface{}) *CapacityExceeded {
	return &CapacityExceeded{Detail: fmt.Sprintf(format, args...)}
}

// InvalidParameter indicates an out-of-range or otherwise illegal
// configuration value (epsilon <= 0, percentile outside [1,99], etc).
type InvalidParameter struct {
	Detail string
}

func (e *InvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter: %s", e.Detail)
}

// NewInvalidParameter builds an InvalidParameter from a format string.
func NewInvalidParameter(format string, args ...interface{}) *InvalidParameter {
	return &InvalidParameter{Detail: fmt.Sprintf(format, args...)}
}

// StatsError indicates a numerical failure in the Gaussian sigma
// solver (failed to bracket a root, or exceeded the iteration cap).
type StatsError struct {
	Detail string
}

func (e *StatsError) Error() string {
	return fmt.Sprintf("statistics error: %s", e.Detail)
}

// NewStatsError builds a StatsError from a format string.
func NewStatsError(format string, args ...interface{}) *StatsError {
	return &StatsError{Detail: fmt.Sprintf(format, args...)}
}

// ProcessingStopped is returned when a progress callback requests
// cooperative cancellation. It carries no detail: the caller already
// knows it asked for the stop.
type ProcessingStopped struct{}

func (e *ProcessingStopped) Error() string {
	return "processing stopped"
}
