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

import (
	"container/list"

	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/combo"
)

type cacheEntry struct {
	key   combo.Combination
	attrs map[block.Value]float64
}

// attrCountCache is the bounded prefix -> attribute-count map from
// spec.md section 4.4: a synth-prefix combination maps to the
// attribute-count map it induces. Eviction is FIFO (oldest insertion
// evicted first) with recency promotion: a hit or an update moves the
// entry back to the front of the queue. It is most useful when the
// candidate pool is the full value universe (ValueSeeded/Unseeded
// growth and the AggregateSeeded path); RowSeeded bypasses it, since
// its candidate pool is specific to the seed record and caching by
// prefix alone would mix results across different records.
//
// A zero-sized cache (maxSize <= 0) never caches: every lookup misses
// and every Put is a no-op.
type attrCountCache struct {
	maxSize int
	ll      *list.List
	index   map[uint64][]*list.Element
}

func newAttrCountCache(maxSize int) *attrCountCache {
	return &attrCountCache{maxSize: maxSize, ll: list.New(), index: make(map[uint64][]*list.Element)}
}

func (c *attrCountCache) find(h uint64, key combo.Combination) *list.Element {
	for _, el := range c.index[h] {
		if el.Value.(*cacheEntry).key.Equal(key) {
			return el
		}
	}
	return nil
}

// Get returns the cached attribute-count map for key, if present,
// promoting it to most-recently-used.
func (c *attrCountCache) Get(key combo.Combination) (map[block.Value]float64, bool) {
	if c.maxSize <= 0 {
		return nil, false
	}
	h := key.Hash()
	if el := c.find(h, key); el != nil {
		c.ll.MoveToFront(el)
		return el.Value.(*cacheEntry).attrs, true
	}
	return nil, false
}

// Put inserts or refreshes key's attribute-count map, evicting the
// least-recently-promoted entry if the cache is at capacity.
func (c *attrCountCache) Put(key combo.Combination, attrs map[block.Value]float64) {
	if c.maxSize <= 0 {
		return
	}
	h := key.Hash()
	if el := c.find(h, key); el != nil {
		el.Value.(*cacheEntry).attrs = attrs
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.maxSize {
		if back := c.ll.Back(); back != nil {
			c.removeElement(back)
		}
	}
	el := c.ll.PushFront(&cacheEntry{key: key.Clone(), attrs: attrs})
	c.index[h] = append(c.index[h], el)
}

func (c *attrCountCache) removeElement(el *list.Element) {
	e := el.Value.(*cacheEntry)
	h := e.key.Hash()
	bucket := c.index[h]
	for i, b := range bucket {
		if b == el {
			c.index[h] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	c.ll.Remove(el)
}
