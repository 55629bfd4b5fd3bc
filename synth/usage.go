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

package synth

import "github.com/sds-go/privasynth/combo"

type usageEntry struct {
	key   combo.Combination
	count int
}

// usageTracker counts how many synthetic records emitted so far
// contain each combination, feeding the oversampling guard in
// growRecord (spec.md section 4.4's stopping condition (ii)).
type usageTracker struct {
	buckets map[uint64][]*usageEntry
}

func newUsageTracker() *usageTracker {
	return &usageTracker{buckets: make(map[uint64][]*usageEntry)}
}

// Get returns how many emitted synthetic records already contain c.
func (u *usageTracker) Get(c combo.Combination) int {
	for _, e := range u.buckets[c.Hash()] {
		if e.key.Equal(c) {
			return e.count
		}
	}
	return 0
}

// Add records one more use of c, returning the updated count.
func (u *usageTracker) Add(c combo.Combination) int {
	h := c.Hash()
	for _, e := range u.buckets[h] {
		if e.key.Equal(c) {
			e.count++
			return e.count
		}
	}
	u.buckets[h] = append(u.buckets[h], &usageEntry{key: c.Clone(), count: 1})
	return 1
}
