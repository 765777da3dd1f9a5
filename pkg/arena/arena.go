// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
// Package arena provides a checkpointable bump allocator.  Slots are handed
// out in increasing index order and are only ever reclaimed by rolling the
// arena back to an earlier checkpoint, which discards everything allocated
// after it.  This is the mechanism by which a failed match attempt undoes any
// partial construction it performed.
package arena

import (
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Used to give each arena a distinct identity, such that marks taken on one
// arena cannot be used to roll back another.
var arenaIds atomic.Uint64

// Mark is a saved allocation watermark.
type Mark struct {
	arena uint64
	top   uint
}

// Top returns the watermark recorded by this mark.
func (m Mark) Top() uint {
	return m.top
}

// Range identifies a contiguous run of allocated slots.
type Range struct {
	// Index of the first slot.
	Start uint
	// Number of slots in the range.
	Len uint
}

// End returns one past the last slot in this range.
func (r Range) End() uint {
	return r.Start + r.Len
}

// Arena is a bump allocator over slots of type T.
type Arena[T any] struct {
	id uint64
	// Backing store, which is extended as necessary.
	slots []T
	// Current watermark.  Everything below this is live.
	top uint
	// Highest watermark ever reached.
	peak uint
	// Maximum number of slots (or 0 for unbounded).
	limit uint
	// Name used when reporting exhaustion.
	name string
}

// NewArena constructs an empty arena with a given capacity limit, where a limit
// of 0 indicates the arena is unbounded.
func NewArena[T any](name string, limit uint) *Arena[T] {
	return &Arena[T]{id: arenaIds.Add(1), limit: limit, name: name}
}

// Checkpoint returns the current allocation watermark.
func (p *Arena[T]) Checkpoint() Mark {
	return Mark{p.id, p.top}
}

// Alloc allocates n fresh slots (initialised to the zero value of T).  The
// backing store is grown transparently.  Exceeding the capacity limit is fatal.
func (p *Arena[T]) Alloc(n uint) Range {
	var empty T
	//
	if p.limit != 0 && p.top+n > p.limit {
		log.Fatalf("%s arena exhausted (%d slots in use, %d requested, limit %d)", p.name, p.top, n, p.limit)
		// Only reachable when the logger's exit function has been replaced.
		panic(fmt.Sprintf("%s arena exhausted", p.name))
	}
	//
	start := p.top
	p.top += n
	// Grow the backing store
	for uint(len(p.slots)) < p.top {
		p.slots = append(p.slots, empty)
	}
	// Reset reused slots so nothing leaks across a rollback.
	for i := start; i < p.top; i++ {
		p.slots[i] = empty
	}
	//
	p.peak = max(p.peak, p.top)
	//
	return Range{start, n}
}

// Rollback resets the watermark to a given mark, thereby invalidating every
// slot allocated since.  Marks must be used in a well-nested fashion: rolling
// back to a mark above the current watermark means some enclosing rollback has
// already discarded it, and this panics.
func (p *Arena[T]) Rollback(mark Mark) {
	if mark.arena != p.id {
		panic("rollback using mark from different arena")
	} else if mark.top > p.top {
		panic(fmt.Sprintf("ill-nested rollback (mark %d above watermark %d)", mark.top, p.top))
	}
	//
	p.top = mark.top
}

// Get returns the contents of a given (live) slot.
func (p *Arena[T]) Get(index uint) T {
	p.check(index)
	return p.slots[index]
}

// Set assigns the contents of a given (live) slot.
func (p *Arena[T]) Set(index uint, value T) {
	p.check(index)
	p.slots[index] = value
}

// Len returns the number of live slots.
func (p *Arena[T]) Len() uint {
	return p.top
}

// Peak returns the highest number of slots which were live at any one time.
func (p *Arena[T]) Peak() uint {
	return p.peak
}

// Reset discards every slot, including the peak watermark.
func (p *Arena[T]) Reset() {
	p.top = 0
	p.peak = 0
}

func (p *Arena[T]) check(index uint) {
	if index >= p.top {
		panic(fmt.Sprintf("access to unallocated %s slot %d (watermark %d)", p.name, index, p.top))
	}
}
