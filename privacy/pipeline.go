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
	"math/rand"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/errs"
)

// Parameters configures a single DP pipeline invocation (spec.md
// section 6's "DP parameters" CLI surface).
type Parameters struct {
	// Epsilon is the total privacy budget, split across the
	// percentile selection, the Gaussian noise, and the
	// record-count release by the Proportion fields below.
	Epsilon float64
	Delta   float64

	// PercentilePercentage is p in the per-length sensitivity
	// filter (spec.md section 4.3.1), e.g. 99.
	PercentilePercentage int
	// PercentileEpsilonProportion is the fraction of Epsilon spent
	// on percentile selection (split evenly across lengths).
	PercentileEpsilonProportion float64

	// AccuracyMode and CustomSigmaProportions configure the
	// per-length Gaussian epsilon split (spec.md section 4.3.2).
	AccuracyMode           AccuracyMode
	CustomSigmaProportions []float64

	Threshold ThresholdParameters

	// RecordCountEpsilonProportion is the fraction of Epsilon spent
	// releasing the noisy record count.
	RecordCountEpsilonProportion float64
	RecordCountNoise             RecordCountNoiseKind

	Seed int64
}

func (p Parameters) validate(L int) error {
	if p.Epsilon <= 0 {
		return errs.NewInvalidParameter("epsilon must be > 0, got %v", p.Epsilon)
	}
	if p.Delta <= 0 || p.Delta >= 1 {
		return errs.NewInvalidParameter("delta must be in (0,1), got %v", p.Delta)
	}
	if p.PercentilePercentage < 1 || p.PercentilePercentage > 99 {
		return errs.NewInvalidParameter("percentile must be in [1,99], got %d", p.PercentilePercentage)
	}
	sum := p.PercentileEpsilonProportion + p.RecordCountEpsilonProportion
	if p.PercentileEpsilonProportion <= 0 || p.RecordCountEpsilonProportion <= 0 || sum >= 1 {
		return errs.NewInvalidParameter(
			"percentile and record-count epsilon proportions must each be > 0 and sum to < 1, got %v and %v",
			p.PercentileEpsilonProportion, p.RecordCountEpsilonProportion)
	}
	if L <= 0 {
		return errs.NewInvalidParameter("reporting length must be > 0 for the DP pipeline, got %d", L)
	}
	return nil
}

// Run transforms data into a ReportableAggregates by (1) privately
// selecting and enforcing a per-length sensitivity bound, (2) adding
// analytic-Gaussian noise to every surviving combination's count, (3)
// dropping combinations that fail the configured fabrication
// threshold, and (4) releasing a noisy record count. All parameters
// are validated before data is touched. Run works on a private clone
// of data: the caller's AggregatedData (its CountMap and per-record
// sensitivities) is never mutated, so the same AggregatedData can
// still be used afterward as the true-count baseline for utility
// evaluation.
func Run(data *aggregate.AggregatedData, params Parameters) (*ReportableAggregates, error) {
	L := data.ReportingLength
	if err := params.validate(L); err != nil {
		return nil, err
	}

	data = data.Clone()
	rng := rand.New(rand.NewSource(params.Seed))

	percentileEpsilon := params.Epsilon * params.PercentileEpsilonProportion
	gaussianEpsilon := params.Epsilon * (1 - params.PercentileEpsilonProportion - params.RecordCountEpsilonProportion)
	recordCountEpsilon := params.Epsilon * params.RecordCountEpsilonProportion

	percentileEpsilonPerLength := make([]float64, L)
	for i := range percentileEpsilonPerLength {
		percentileEpsilonPerLength[i] = percentileEpsilon / float64(L)
	}

	selectedS, err := SensitivityFilter(data, params.PercentilePercentage, percentileEpsilonPerLength, rng)
	if err != nil {
		return nil, err
	}

	gaussianEpsilonPerLength, err := AllocateGaussianEpsilon(gaussianEpsilon, params.AccuracyMode, params.CustomSigmaProportions, L)
	if err != nil {
		return nil, err
	}

	sigmaByLen := make([]float64, L)
	for k := 1; k <= L; k++ {
		// A selected bound of 0 leaves no record contributing at length
		// k; the solver needs a positive sensitivity, so the noise is
		// then calibrated for a sensitivity of 1.
		sensitivity := float64(selectedS[k])
		if sensitivity < 1 {
			sensitivity = 1
		}
		sigma, err := AnalyticGaussianSigma(gaussianEpsilonPerLength[k-1], params.Delta, sensitivity)
		if err != nil {
			return nil, err
		}
		sigmaByLen[k-1] = sigma
	}

	data.Aggregates.Range(func(key combo.Combination, count *aggregate.AggregatedCount) bool {
		count.Count = AddGaussianNoise(count.Count, sigmaByLen[key.Len()-1], rng)
		return true
	})

	if err := params.Threshold.Apply(data.Aggregates, sigmaByLen); err != nil {
		return nil, err
	}

	noisyN, err := NoisyRecordCount(data.NumberOfRecords, recordCountEpsilon, params.Delta, params.RecordCountNoise, rng)
	if err != nil {
		return nil, err
	}

	return &ReportableAggregates{
		Block:               data.Block,
		ReportingLength:     L,
		Counts:              data.Aggregates,
		NumberOfRecords:     noisyN,
		SelectedSensitivity: selectedS,
		Sigma:               sigmaByLen,
	}, nil
}
