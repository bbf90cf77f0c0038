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

// Package ngram is the statistical model store: growing hash tables of
// unigrams, bigrams, trigrams and starter operations, incremental
// bigram-conditional probability computation, and the per-from-op
// transition index the generator walks.
package ngram

import (
	"github.com/google/uuid"

	"github.com/cynosureprime/rulechef/internal/pool"
	"github.com/cynosureprime/rulechef/rules"
)

// Model owns the four n-gram tables and the node pool backing them. A
// Model is populated by repeated calls to Add during ingest, then
// ComputeProbabilities is called exactly once before generation reads
// from it. Model is not safe for concurrent use -- the core is
// single-threaded by design.
type Model struct {
	pool    *pool.Pool[node]
	unigram *table
	bigram  *table
	trigram *table
	starter *table

	starterTotal uint64
	runID        uuid.UUID
}

// New creates an empty Model. Each Model is tagged with a random run
// ID so that verbose diagnostics from concurrent invocations of the
// CLI (e.g. in a batch pipeline) can be told apart in logs.
func New() *Model {
	return &Model{
		pool:    pool.New[node](pool.DefaultBlockSize),
		unigram: newTable(false),
		bigram:  newTable(true),
		trigram: newTable(true),
		starter: newTable(false),
		runID:   uuid.New(),
	}
}

// RunID returns the model's run identifier.
func (m *Model) RunID() uuid.UUID { return m.runID }

// VocabularySize returns the number of distinct operations observed.
func (m *Model) VocabularySize() int { return m.unigram.count }

// Add ingests one parsed rule: every operation is recorded as a
// unigram, the first operation as a starter, every adjacent pair as a
// bigram, and every adjacent triple as a trigram.
func (m *Model) Add(r rules.ParsedRule) {
	ops := r.Ops
	if len(ops) == 0 {
		return
	}

	for i := range ops {
		m.unigram.addOrIncrement(m.pool, ops[i:i+1])
	}

	m.starter.addOrIncrement(m.pool, ops[0:1])
	m.starterTotal++

	for i := 0; i+1 < len(ops); i++ {
		m.bigram.addOrIncrement(m.pool, ops[i:i+2])
	}
	for i := 0; i+2 < len(ops); i++ {
		m.trigram.addOrIncrement(m.pool, ops[i:i+3])
	}
}
