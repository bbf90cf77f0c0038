// Copyright (C) 2023 Sneller, Inc.
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

package ngram

import (
	"github.com/cynosureprime/rulechef/internal/pool"
	"github.com/cynosureprime/rulechef/rules"
)

// node is a hash-chained n-gram record. Every table (unigram, bigram,
// trigram, starter) shares this node type and the same underlying
// pool, and is distinguished only by which ops/freq fields it uses.
// Nodes are handed out from a pool and are never individually freed;
// rehashing relinks existing nodes rather than copying them, so a
// pointer into a node remains valid for as long as the table does.
type node struct {
	ops  [3]rules.Op
	k    uint8
	freq uint64
	prob float64 // conditional probability; only meaningful for bigram nodes
	next *node
}

func (n *node) opsSlice() []rules.Op { return n.ops[:n.k] }

// loadFactor is the ratio of stored nodes to buckets at which a
// growable table resizes to the next prime bucket count.
const loadFactor = 0.8

// primeSizes is the fixed doubling sequence of bucket counts a
// growable table resizes through. Unigram and starter tables never
// grow past primeSizes[0] (the operation vocabulary is small and
// bounded); bigram and trigram tables grow as they fill.
var primeSizes = []int{
	1048573,
	2097143,
	4194301,
	8388593,
	16777213,
	33554393,
	67108859,
	134217689,
	268435399,
	536870909,
	1073741827,
}

// table is an open-chaining hash table over n-grams of a fixed arity
// (1, 2, or 3 ops). Lookup and insert-or-increment are its only
// operations; iteration (each) is used for probability computation,
// transition-index construction, and statistics.
type table struct {
	buckets      []*node
	size         int
	primeIdx     int
	count        int
	growable     bool
	insertOrder  []*node // nodes in the order they were first created
	rehashFailed bool    // true once growth has been refused at the top prime
}

func newTable(growable bool) *table {
	return &table{
		buckets:  make([]*node, primeSizes[0]),
		size:     primeSizes[0],
		growable: growable,
	}
}

// hashOps computes the DJB2-style polynomial hash described in the
// n-gram store's design: h = 5381; h = h*33 + b, with a '|' separator
// injected between operations so that, e.g., ("ab","c") and ("a","bc")
// never collide.
func hashOps(ops []rules.Op) uint32 {
	h := uint32(5381)
	for _, op := range ops {
		for _, b := range op.Bytes() {
			h = h*33 + uint32(b)
		}
		h = h*33 + '|'
	}
	return h
}

func opsEqual(a [3]rules.Op, k uint8, b []rules.Op) bool {
	if int(k) != len(b) {
		return false
	}
	for i := 0; i < int(k); i++ {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// get returns the node matching ops, if any.
func (t *table) get(ops []rules.Op) (*node, bool) {
	idx := hashOps(ops) % uint32(t.size)
	for n := t.buckets[idx]; n != nil; n = n.next {
		if opsEqual(n.ops, n.k, ops) {
			return n, true
		}
	}
	return nil, false
}

// addOrIncrement looks up ops in the table; on a match it increments
// the node's frequency and returns it. Otherwise, if the table is
// growable and about to cross the load factor, it rehashes first, then
// allocates a fresh node from p and links it at the head of its
// bucket's chain.
func (t *table) addOrIncrement(p *pool.Pool[node], ops []rules.Op) *node {
	idx := hashOps(ops) % uint32(t.size)
	for n := t.buckets[idx]; n != nil; n = n.next {
		if opsEqual(n.ops, n.k, ops) {
			n.freq++
			return n
		}
	}

	if t.growable && float64(t.count+1) >= loadFactor*float64(t.size) {
		t.rehash()
		idx = hashOps(ops) % uint32(t.size)
	}

	n := p.Alloc()
	n.k = uint8(len(ops))
	copy(n.ops[:], ops)
	n.freq = 1
	n.next = t.buckets[idx]
	t.buckets[idx] = n
	t.count++
	t.insertOrder = append(t.insertOrder, n)
	return n
}

// rehash grows the table to the next prime bucket count and relinks
// every existing node into its new bucket. Node pointers handed out by
// addOrIncrement/get remain valid across a rehash: only t.buckets and
// each node's next pointer change.
//
// If the table is already at the largest prime in the doubling
// sequence, rehash refuses to grow, sets rehashFailed, and leaves the
// table to degrade into longer chains -- matching the reference
// implementation's "warn and keep chaining" behavior on allocation
// refusal (see SPEC_FULL.md, Supplemented Features).
func (t *table) rehash() bool {
	if t.primeIdx+1 >= len(primeSizes) {
		t.rehashFailed = true
		return false
	}
	newSize := primeSizes[t.primeIdx+1]
	newBuckets := make([]*node, newSize)
	for _, head := range t.buckets {
		for n := head; n != nil; {
			next := n.next
			idx := hashOps(n.opsSlice()) % uint32(newSize)
			n.next = newBuckets[idx]
			newBuckets[idx] = n
			n = next
		}
	}
	t.buckets = newBuckets
	t.size = newSize
	t.primeIdx++
	return true
}

// each calls fn once for every node in the table, in bucket order and,
// within a bucket, head-to-tail chain order (i.e. most-recently-
// inserted-in-that-bucket first). Component D relies on this order as
// the documented tie-break for transitions sharing equal probability
// and frequency.
func (t *table) each(fn func(n *node)) {
	for _, head := range t.buckets {
		for n := head; n != nil; n = n.next {
			fn(n)
		}
	}
}
