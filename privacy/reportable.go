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

package privacy

import (
	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/block"
)

// ReportableAggregates is the output of the DP pipeline: the surviving
// combinations with their (noisy) counts, stripped of record-level
// attribution, plus the noisy record count and the per-length
// parameters the pipeline settled on.
type ReportableAggregates struct {
	Block           *block.DataBlock
	ReportingLength int
	Counts          *aggregate.CountMap
	NumberOfRecords float64

	// SelectedSensitivity[k] is the Sₖ chosen by the sensitivity
	// filter for length k (index 0 is unused).
	SelectedSensitivity []int
	// Sigma[k-1] is the Gaussian noise scale used at length k.
	Sigma []float64
}
