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
	"golang.org/x/exp/slices"

	"github.com/cynosureprime/rulechef/rules"
)

// Transition is a single bigram viewed as a (from,to) edge, as
// materialized into an Index.
type Transition struct {
	To   rules.Op
	P    float64
	Freq uint64
}

type fromEntry struct {
	from       rules.Op
	sorted     []Transition
	minP, maxP float64
}

// Index is the per-from-op transition lookup the generator walks. It
// is materialized once, at generation start, from the bigram table's
// current contents (which must already have probabilities computed by
// Model.ComputeProbabilities). Building an Index never mutates the
// model it was built from.
type Index struct {
	entries []fromEntry
}

// BuildIndex materializes the transition index from m's bigram table.
func BuildIndex(m *Model) *Index {
	idx := &Index{}

	m.bigram.each(func(n *node) {
		from := n.ops[0]
		fe := idx.find(from)
		if fe == nil {
			idx.entries = append(idx.entries, fromEntry{from: from})
			fe = &idx.entries[len(idx.entries)-1]
		}
		fe.sorted = append(fe.sorted, Transition{To: n.ops[1], P: n.prob, Freq: n.freq})
	})

	for i := range idx.entries {
		e := &idx.entries[i]
		// Sort descending by probability, ties by descending frequency.
		// The stable sort preserves the bigram table's bucket-chain
		// order (the order `each` walked them in) for ties on both
		// keys, which is the documented tie-break.
		slices.SortStableFunc(e.sorted, func(a, b Transition) bool {
			if a.P != b.P {
				return a.P > b.P
			}
			return a.Freq > b.Freq
		})
		if len(e.sorted) > 0 {
			e.maxP = e.sorted[0].P
			e.minP = e.sorted[len(e.sorted)-1].P
		}
	}
	return idx
}

func (idx *Index) find(from rules.Op) *fromEntry {
	for i := range idx.entries {
		if idx.entries[i].from.Equal(from) {
			return &idx.entries[i]
		}
	}
	return nil
}

// NextOps yields the transitions out of from whose extension of
// runningP would still clear minProbability, in descending probability
// order, and stops as soon as one falls below the threshold (the
// remainder, being sorted, can only be smaller). yield returning false
// stops iteration early.
//
// An entry-level prune (runningP * maxP < minProbability) skips the
// whole from-op without touching its transition list.
func (idx *Index) NextOps(from rules.Op, runningP, minProbability float64, yield func(Transition) bool) {
	fe := idx.find(from)
	if fe == nil {
		return
	}
	if runningP*fe.maxP < minProbability {
		return
	}
	for _, tr := range fe.sorted {
		newP := runningP * tr.P
		if newP < minProbability {
			break
		}
		if !yield(tr) {
			return
		}
	}
}
