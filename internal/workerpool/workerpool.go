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

// Package workerpool partitions a fixed-size item range across a
// bounded number of goroutines and folds per-worker results back into
// a single accumulator. It is the shared fan-out/fan-in shape used by
// the aggregator's subset enumeration and the evaluator's bucket fill:
// each worker builds independent local state, and a single reducer
// merges the shards once every worker has finished.
package workerpool

import (
	"runtime"
	"sync"
)

// Shard is a contiguous half-open range [Lo, Hi) of item indices
// assigned to one worker.
type Shard struct {
	Lo, Hi int
}

// Shards splits [0, n) into up to workers contiguous, roughly-equal
// shards. If workers is <= 0, runtime.GOMAXPROCS(0) is used. The
// result never has more shards than items.
func Shards(n, workers int) []Shard {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		if n <= 0 {
			return nil
		}
		workers = 1
	}
	size := (n + workers - 1) / workers
	shards := make([]Shard, 0, workers)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		shards = append(shards, Shard{Lo: lo, Hi: hi})
	}
	return shards
}

// Run executes fn once per shard concurrently, each against a fresh
// local value produced by newLocal, waits for every shard to finish,
// then folds the per-shard results into a single accumulator via
// reduce. Merge order is unspecified: reduce must be associative and
// commutative, since the result of aggregation must not depend on how
// records were partitioned across workers.
//
// If shards is empty, Run returns newLocal() unmodified.
func Run[T any](shards []Shard, newLocal func() T, fn func(local T, s Shard), reduce func(dst *T, src T)) T {
	acc := newLocal()
	if len(shards) == 0 {
		return acc
	}

	results := make(chan T, len(shards))
	var wg sync.WaitGroup
	for _, s := range shards {
		wg.Add(1)
		go func(s Shard) {
			defer wg.Done()
			local := newLocal()
			fn(local, s)
			results <- local
		}(s)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		reduce(&acc, r)
	}
	return acc
}
