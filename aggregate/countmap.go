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

import "github.com/sds-go/privasynth/combo"

// AggregatedCount is the result of aggregation for one combination:
// how many records contain it, and which ones. Before DP, Count
// always equals len(ContainedInRecords). After the DP pipeline
// perturbs a count, ContainedInRecords is cleared: a noisy count can
// no longer be attributed to specific records.
type AggregatedCount struct {
	Count             float64
	ContainedInRecords map[int]struct{}
}

func newAggregatedCount() *AggregatedCount {
	return &AggregatedCount{ContainedInRecords: make(map[int]struct{})}
}

// AddRecord marks record index r as contributing to this combination,
// incrementing Count if r was not already present.
func (c *AggregatedCount) AddRecord(r int) {
	if _, ok := c.ContainedInRecords[r]; ok {
		return
	}
	c.ContainedInRecords[r] = struct{}{}
	c.Count++
}

// RemoveRecord removes record index r from this combination's record
// set, decrementing Count if it was present. Used by the sensitivity
// filter (spec.md section 4.3.1) to drop a record's excess
// contributions.
func (c *AggregatedCount) RemoveRecord(r int) {
	if _, ok := c.ContainedInRecords[r]; !ok {
		return
	}
	delete(c.ContainedInRecords, r)
	c.Count--
}

type bucketEntry struct {
	key   combo.Combination
	count *AggregatedCount
}

// CountMap is a hash map from combo.Combination to *AggregatedCount.
// combo.Combination is a slice and so is not a valid native Go map
// key; CountMap buckets by combo.Combination.Hash() instead (a fast,
// non-cryptographic siphash digest) and falls back to an element-wise
// Combination.Equal comparison within a bucket to resolve collisions.
// Iteration order is unspecified and never semantically relevant.
type CountMap struct {
	buckets map[uint64][]bucketEntry
	size    int
}

// NewCountMap returns an empty CountMap.
func NewCountMap() *CountMap {
	return &CountMap{buckets: make(map[uint64][]bucketEntry)}
}

// Len returns the number of distinct combinations stored.
func (m *CountMap) Len() int { return m.size }

// Get returns the AggregatedCount for key, or (nil, false) if absent.
func (m *CountMap) Get(key combo.Combination) (*AggregatedCount, bool) {
	for _, e := range m.buckets[key.Hash()] {
		if e.key.Equal(key) {
			return e.count, true
		}
	}
	return nil, false
}

// GetOrCreate returns the AggregatedCount for key, creating an empty
// one (and a private clone of key) if none exists yet.
func (m *CountMap) GetOrCreate(key combo.Combination) *AggregatedCount {
	h := key.Hash()
	bucket := m.buckets[h]
	for _, e := range bucket {
		if e.key.Equal(key) {
			return e.count
		}
	}
	c := newAggregatedCount()
	m.buckets[h] = append(bucket, bucketEntry{key: key.Clone(), count: c})
	m.size++
	return c
}

// Delete removes key from the map, if present.
func (m *CountMap) Delete(key combo.Combination) {
	h := key.Hash()
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.key.Equal(key) {
			m.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			m.size--
			return
		}
	}
}

// Range calls fn for every (combination, count) pair in the map. If
// fn returns false, Range stops early. Iteration order is arbitrary.
func (m *CountMap) Range(fn func(key combo.Combination, count *AggregatedCount) bool) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if !fn(e.key, e.count) {
				return
			}
		}
	}
}

// Clone returns a deep copy of m: every AggregatedCount and its
// ContainedInRecords set is independently owned, so mutating the clone
// (as the DP pipeline does) never touches m.
func (m *CountMap) Clone() *CountMap {
	out := NewCountMap()
	m.Range(func(key combo.Combination, count *AggregatedCount) bool {
		c := newAggregatedCount()
		c.Count = count.Count
		for r := range count.ContainedInRecords {
			c.ContainedInRecords[r] = struct{}{}
		}
		h := key.Hash()
		out.buckets[h] = append(out.buckets[h], bucketEntry{key: key.Clone(), count: c})
		out.size++
		return true
	})
	return out
}

// Merge folds src into m, taking the union of contained-record sets
// for combinations present in both; each Count becomes the size of that
// union, which is the sum of the two counts when the record sets are
// disjoint (as they are across the aggregator's workers). Merge is
// associative and commutative, which is what allows the aggregator to
// build one CountMap per worker and combine them in any order.
func (m *CountMap) Merge(src *CountMap) {
	src.Range(func(key combo.Combination, count *AggregatedCount) bool {
		dst := m.GetOrCreate(key)
		for r := range count.ContainedInRecords {
			dst.AddRecord(r)
		}
		return true
	})
}
