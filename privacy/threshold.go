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
	"math"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/errs"
)

// ThresholdKind selects the fabrication-control family (spec.md
// section 4.3.3).
type ThresholdKind int

const (
	// FixedThreshold keeps combination c of length k iff its noisy
	// count exceeds a configured per-length constant τₖ.
	FixedThreshold ThresholdKind = iota
	// AdaptiveThreshold derives τₖ from the known per-length noise
	// scale σₖ and a configured per-length quantile αₖ.
	AdaptiveThreshold
)

// ThresholdParameters configures fabrication control for every
// reporting length 1..L.
type ThresholdParameters struct {
	Kind ThresholdKind
	// Fixed holds τₖ for FixedThreshold, keyed by length.
	Fixed map[int]float64
	// Alpha holds αₖ ∈ [0,1] for AdaptiveThreshold, keyed by length.
	Alpha map[int]float64
}

// adaptiveTau estimates the αₖ-quantile of the noisy-count
// distribution for a *fabricated* (true count 0) combination of
// length k, modeled as the half-normal distribution |N(0, sigma^2)|
// per spec.md section 9's open question: tau = sigma*sqrt(2)*erfinv(alpha).
func adaptiveTau(sigma, alpha float64) float64 {
	return sigma * math.Sqrt2 * math.Erfinv(alpha)
}

// tauFor resolves τₖ for length k given the per-length Gaussian sigma
// used at that length.
func (p ThresholdParameters) tauFor(k int, sigma float64) (float64, error) {
	switch p.Kind {
	case FixedThreshold:
		tau, ok := p.Fixed[k]
		if !ok {
			return 0, errs.NewInvalidParameter("fixed threshold missing for length %d", k)
		}
		return tau, nil
	case AdaptiveThreshold:
		alpha, ok := p.Alpha[k]
		if !ok {
			return 0, errs.NewInvalidParameter("adaptive threshold alpha missing for length %d", k)
		}
		if alpha < 0 || alpha > 1 {
			return 0, errs.NewInvalidParameter("adaptive threshold alpha for length %d must be in [0,1], got %v", k, alpha)
		}
		return adaptiveTau(sigma, alpha), nil
	default:
		return 0, errs.NewInvalidParameter("unknown threshold kind %d", p.Kind)
	}
}

// Apply drops every combination whose (noisy) count at length k fails
// τₖ, and clears the record-index set of every surviving combination
// (noisy counts can no longer be attributed to specific records).
// sigmaByLen[k-1] is the Gaussian sigma used at length k.
func (p ThresholdParameters) Apply(counts *aggregate.CountMap, sigmaByLen []float64) error {
	tauByLen := make(map[int]float64, len(sigmaByLen))
	var drop []combo.Combination
	var applyErr error

	counts.Range(func(key combo.Combination, count *aggregate.AggregatedCount) bool {
		k := key.Len()
		tau, ok := tauByLen[k]
		if !ok {
			var err error
			tau, err = p.tauFor(k, sigmaByLen[k-1])
			if err != nil {
				applyErr = err
				return false
			}
			tauByLen[k] = tau
		}
		if count.Count <= tau {
			drop = append(drop, key)
			return true
		}
		for r := range count.ContainedInRecords {
			delete(count.ContainedInRecords, r)
		}
		return true
	})
	if applyErr != nil {
		return applyErr
	}
	for _, key := range drop {
		counts.Delete(key)
	}
	return nil
}
