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
	"testing"

	"github.com/cynosureprime/rulechef/rules"
)

func TestNextOpsSortedDescending(t *testing.T) {
	m := New()
	for i := 0; i < 9; i++ {
		m.Add(mustTokenize(t, "lu"))
	}
	m.Add(mustTokenize(t, "lc"))
	m.ComputeProbabilities()

	idx := BuildIndex(m)
	l := mustTokenize(t, "l").Ops[0]

	var got []rules.Op
	idx.NextOps(l, 1.0, 0.0, func(tr Transition) bool {
		got = append(got, tr.To)
		return true
	})
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	if got[0].String() != "u" {
		t.Errorf("first transition = %q, want %q (higher probability)", got[0], "u")
	}
}

func TestNextOpsPrunesBelowThreshold(t *testing.T) {
	m := New()
	for i := 0; i < 9; i++ {
		m.Add(mustTokenize(t, "lu"))
	}
	m.Add(mustTokenize(t, "lc"))
	m.ComputeProbabilities()

	idx := BuildIndex(m)
	l := mustTokenize(t, "l").Ops[0]

	var got []rules.Op
	idx.NextOps(l, 1.0, 0.5, func(tr Transition) bool {
		got = append(got, tr.To)
		return true
	})
	if len(got) != 1 || got[0].String() != "u" {
		t.Fatalf("got %v, want only 'u' (p(l->c)=0.1 < 0.5)", got)
	}
}

func TestNextOpsUnknownFrom(t *testing.T) {
	m := New()
	m.Add(mustTokenize(t, "lu"))
	m.ComputeProbabilities()
	idx := BuildIndex(m)

	c := mustTokenize(t, "c").Ops[0]
	called := false
	idx.NextOps(c, 1.0, 0.0, func(tr Transition) bool {
		called = true
		return true
	})
	if called {
		t.Error("expected no transitions for an op that never appears as a bigram prefix")
	}
}
