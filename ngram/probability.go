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

// kSmoothing is the add-K constant used for starter smoothing.
const kSmoothing = 1

// ComputeProbabilities derives P(b|a) for every bigram from the raw
// frequencies accumulated during ingest. It is meant to run once, at
// the end of ingest; calling it again after further Add calls is safe
// but re-derives probabilities from whatever frequencies exist then.
//
// The totals pass uses a flat array with linear search rather than a
// map, matching the reference implementation: the number of distinct
// from-operations is small (bounded by the operation alphabet), so a
// linear scan is cheap and avoids a second hash structure.
func (m *Model) ComputeProbabilities() {
	type fromTotal struct {
		from  rules.Op
		total uint64
	}
	var totals []fromTotal
	find := func(from rules.Op) *fromTotal {
		for i := range totals {
			if totals[i].from.Equal(from) {
				return &totals[i]
			}
		}
		return nil
	}

	m.bigram.each(func(n *node) {
		from := n.ops[0]
		if ft := find(from); ft != nil {
			ft.total += n.freq
		} else {
			totals = append(totals, fromTotal{from: from, total: n.freq})
		}
	})

	m.bigram.each(func(n *node) {
		if ft := find(n.ops[0]); ft != nil && ft.total > 0 {
			n.prob = float64(n.freq) / float64(ft.total)
		}
	})
}

// StarterProb is a unigram ranked by its add-K-smoothed probability of
// starting a rule.
type StarterProb struct {
	Op    rules.Op
	Count uint64
	Prob  float64
}

// SortedStarters returns every distinct unigram ordered by smoothed
// starter probability, descending. Ties are broken by the order the
// unigram was first observed during ingest (stable sort over the
// table's insertion order), per the documented tie-break in
// SPEC_FULL.md / the distilled spec's ordering section.
//
// Smoothing never mutates table state: it is computed fresh into the
// returned slice each call.
func (m *Model) SortedStarters() []StarterProb {
	vocab := m.unigram.insertOrder
	v := len(vocab)
	c := m.starterTotal

	out := make([]StarterProb, 0, v)
	for _, n := range vocab {
		op := n.ops[0]
		var count uint64
		if sn, ok := m.starter.get([]rules.Op{op}); ok {
			count = sn.freq
		}
		p := (float64(count) + kSmoothing) / (float64(c) + float64(kSmoothing*v))
		out = append(out, StarterProb{Op: op, Count: count, Prob: p})
	}

	slices.SortStableFunc(out, func(a, b StarterProb) bool {
		return a.Prob > b.Prob
	})
	return out
}
