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

// Package generate walks a trained n-gram model with a bounded,
// probability-pruned depth-first search, emitting novel password-mangling
// rules ordered by target operation length.
package generate

import (
	"strings"

	"github.com/dchest/siphash"

	"github.com/cynosureprime/rulechef/ngram"
	"github.com/cynosureprime/rulechef/rules"
)

// dedup keys are fixed so that two runs over the same model produce the
// same dedup decisions in the same order; they carry no secrecy
// requirement, only stability.
const (
	dedupK0 = 0x726f636b73636973
	dedupK1 = 0x7361706572737465
)

// outputIndex deduplicates emitted rule strings by their siphash value:
// a map keyed by the 64-bit hash holds the distinct strings seen with
// that hash, so that large runs (tens of millions of candidate strings)
// hash the string contents with a well-studied, collision-resistant
// function instead of the runtime's internal (and unexported) string
// hash.
type outputIndex struct {
	buckets map[uint64][]string
}

func newOutputIndex() *outputIndex {
	return &outputIndex{buckets: make(map[uint64][]string)}
}

// seenOrAdd reports whether s has already been emitted. If not, it
// records s and returns false.
func (idx *outputIndex) seenOrAdd(s string) bool {
	h := siphash.Hash(dedupK0, dedupK1, []byte(s))
	bucket := idx.buckets[h]
	for _, existing := range bucket {
		if existing == s {
			return true
		}
	}
	idx.buckets[h] = append(bucket, s)
	return false
}

// Len returns the number of distinct strings recorded so far.
func (idx *outputIndex) Len() int {
	n := 0
	for _, b := range idx.buckets {
		n += len(b)
	}
	return n
}

// Options configures a generation run. MinLength and MaxLength bound the
// number of operations (not bytes) in emitted rules; MinProbability
// prunes any partial rule whose running joint probability has fallen
// below it; Limit caps how many starter operations are tried, taken
// from the highest-probability end of Model.SortedStarters.
type Options struct {
	MinLength      int
	MaxLength      int
	MinProbability float64
	Limit          int
}

// Stats reports what a Run produced.
type Stats struct {
	Emitted    uint64
	Duplicates uint64
}

// Generator drives the bounded DFS walk over a trained model's
// transition index, emitting deduplicated rule strings to Emit.
type Generator struct {
	opts  Options
	idx   *ngram.Index
	dedup *outputIndex

	// Emit is called once per novel rule, in the order produced
	// (length-major: every rule of length N before any rule of length
	// N+1). A nil Emit discards output while still exercising dedup and
	// stats, which is useful for benchmarking the walk in isolation.
	Emit func(string) error

	// Flush is called every flushInterval emits and again after each
	// length class completes, matching the reference tool's periodic
	// buffer flush. A nil Flush is a no-op.
	Flush func() error

	stats Stats
	path  []rules.Op
}

// flushInterval matches the reference implementation's writeCount % 1000
// flush cadence.
const flushInterval = 1000

func (g *Generator) flush() error {
	if g.Flush == nil {
		return nil
	}
	return g.Flush()
}

// New builds a Generator over idx (see ngram.BuildIndex) with the given
// options. MinLength/MaxLength are clamped to [1, rules.MaxRuleLen]
// operations, with MaxLength raised to MinLength if it is smaller. The
// bound counts operations, not bytes: a rule made of multi-byte
// operations is longer, in bytes, than its operation count.
func New(idx *ngram.Index, opts Options) *Generator {
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}
	if opts.MinLength > rules.MaxRuleLen {
		opts.MinLength = rules.MaxRuleLen
	}
	if opts.MaxLength < opts.MinLength {
		opts.MaxLength = opts.MinLength
	}
	if opts.MaxLength > rules.MaxRuleLen {
		opts.MaxLength = rules.MaxRuleLen
	}
	return &Generator{
		opts:  opts,
		idx:   idx,
		dedup: newOutputIndex(),
	}
}

// Run walks the model, starting from m's ranked starter operations
// (truncated to opts.Limit, or all of them if Limit <= 0), and returns
// the run's statistics. It emits every target length from MinLength to
// MaxLength in order, and within each length every starter in
// descending starting probability, as SPEC_FULL.md's ordering section
// requires.
func (g *Generator) Run(m *ngram.Model) (Stats, error) {
	starters := m.SortedStarters()
	if g.opts.Limit > 0 && g.opts.Limit < len(starters) {
		starters = starters[:g.opts.Limit]
	}

	for length := g.opts.MinLength; length <= g.opts.MaxLength; length++ {
		for _, s := range starters {
			g.path = g.path[:0]
			g.path = append(g.path, s.Op)
			if err := g.walk(length, 1.0); err != nil {
				return g.stats, err
			}
		}
		if err := g.flush(); err != nil {
			return g.stats, err
		}
	}
	return g.stats, nil
}

// walk extends g.path by depth-first search until it holds exactly
// target operations, then emits it. runningP is the joint probability of
// every transition taken so far; the starter itself contributes no
// multiplicative factor (it is used only to rank and order starters, per
// SPEC_FULL.md/the distilled spec's §4.E step 5).
func (g *Generator) walk(target int, runningP float64) error {
	if len(g.path) == target {
		return g.emit()
	}

	from := g.path[len(g.path)-1]
	var walkErr error
	g.idx.NextOps(from, runningP, g.opts.MinProbability, func(tr ngram.Transition) bool {
		g.path = append(g.path, tr.To)
		if err := g.walk(target, runningP*tr.P); err != nil {
			walkErr = err
			g.path = g.path[:len(g.path)-1]
			return false
		}
		g.path = g.path[:len(g.path)-1]
		return true
	})
	return walkErr
}

func (g *Generator) emit() error {
	var sb strings.Builder
	for _, op := range g.path {
		sb.WriteString(op.String())
	}
	s := sb.String()

	if g.dedup.seenOrAdd(s) {
		g.stats.Duplicates++
		return nil
	}
	g.stats.Emitted++
	if g.Emit != nil {
		if err := g.Emit(s); err != nil {
			return err
		}
	}
	if g.stats.Emitted%flushInterval == 0 {
		return g.flush()
	}
	return nil
}
