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

package eval

// initialBin and binRatio generate the geometric bucket boundaries of
// spec.md section 4.5: [10, 20, 40, 80, ...].
const (
	initialBin = 10
	binRatio   = 2
)

// bucketBins holds the geometric bin boundaries up to (and including)
// whatever bound first reaches or exceeds a configured maximum.
type bucketBins struct {
	bins []int
}

// newBucketBins generates bins starting at initialBin and doubling
// until the last bin is >= maxVal.
func newBucketBins(maxVal int) *bucketBins {
	bins := []int{initialBin}
	for bins[len(bins)-1] < maxVal {
		bins = append(bins, bins[len(bins)-1]*binRatio)
	}
	return &bucketBins{bins: bins}
}

// boundFor returns the smallest bin boundary >= val (the bucket val
// belongs in).
func (bb *bucketBins) boundFor(val int) int {
	for _, b := range bb.bins {
		if val <= b {
			return b
		}
	}
	return bb.bins[len(bb.bins)-1]
}

// Bucket accumulates preservation statistics for every combination
// whose sensitive count falls in this bucket's range.
type Bucket struct {
	// Size is the number of combinations placed in this bucket.
	Size int
	// PreservationSum is the sum of min(1, synth_count/sensitive_count)
	// over every combination in this bucket.
	PreservationSum float64
	// LengthSum is the sum of combination lengths in this bucket.
	LengthSum int
	// SensitiveCountSum is the sum of sensitive counts in this bucket.
	SensitiveCountSum float64
}

// Add records one combination's preservation, length, and sensitive
// count into the bucket.
func (b *Bucket) Add(preservation float64, length int, sensitiveCount float64) {
	b.Size++
	b.PreservationSum += preservation
	b.LengthSum += length
	b.SensitiveCountSum += sensitiveCount
}

// MeanPreservation returns the bucket's average preservation, or 0 for
// an empty bucket.
func (b *Bucket) MeanPreservation() float64 {
	if b.Size == 0 {
		return 0
	}
	return b.PreservationSum / float64(b.Size)
}

// MeanLength returns the bucket's average combination length, or 0
// for an empty bucket.
func (b *Bucket) MeanLength() float64 {
	if b.Size == 0 {
		return 0
	}
	return float64(b.LengthSum) / float64(b.Size)
}

// MeanSensitiveCount returns the bucket's average sensitive count, or
// 0 for an empty bucket.
func (b *Bucket) MeanSensitiveCount() float64 {
	if b.Size == 0 {
		return 0
	}
	return b.SensitiveCountSum / float64(b.Size)
}

func (b *Bucket) merge(src *Bucket) {
	b.Size += src.Size
	b.PreservationSum += src.PreservationSum
	b.LengthSum += src.LengthSum
	b.SensitiveCountSum += src.SensitiveCountSum
}
