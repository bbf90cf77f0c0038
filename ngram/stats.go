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
	"strings"

	"golang.org/x/exp/slices"
)

// TableStats summarizes one hash table's load, in the spirit of the
// reference tool's printAllNGramHashTableStats.
type TableStats struct {
	Count          int     `json:"count" yaml:"count"`
	Size           int     `json:"size" yaml:"size"`
	UsedBuckets    int     `json:"used_buckets" yaml:"used_buckets"`
	MaxChainLength int     `json:"max_chain_length" yaml:"max_chain_length"`
	AvgChainLength float64 `json:"avg_chain_length" yaml:"avg_chain_length"`
	DegradedRehash bool    `json:"degraded_rehash" yaml:"degraded_rehash"`
}

func (t *table) stats() TableStats {
	var used, maxChain, total int
	for _, head := range t.buckets {
		if head == nil {
			continue
		}
		used++
		n := 0
		for cur := head; cur != nil; cur = cur.next {
			n++
		}
		total += n
		if n > maxChain {
			maxChain = n
		}
	}
	var avg float64
	if used > 0 {
		avg = float64(total) / float64(used)
	}
	return TableStats{
		Count:          t.count,
		Size:           t.size,
		UsedBuckets:    used,
		MaxChainLength: maxChain,
		AvgChainLength: avg,
		DegradedRehash: t.rehashFailed,
	}
}

// Stats is a point-in-time snapshot of a Model, suitable for
// serializing to YAML via --stats-file.
type Stats struct {
	RunID          string      `json:"run_id" yaml:"run_id"`
	VocabularySize int         `json:"vocabulary_size" yaml:"vocabulary_size"`
	Unigram        TableStats  `json:"unigram" yaml:"unigram"`
	Bigram         TableStats  `json:"bigram" yaml:"bigram"`
	Trigram        TableStats  `json:"trigram" yaml:"trigram"`
	Starter        TableStats  `json:"starter" yaml:"starter"`
	TopBigrams     []NGramFreq `json:"top_bigrams" yaml:"top_bigrams"`
}

// Stats returns a snapshot of the model's current table statistics and
// its top 10 most frequent bigrams.
func (m *Model) Stats() Stats {
	return Stats{
		RunID:          m.runID.String(),
		VocabularySize: m.VocabularySize(),
		Unigram:        m.unigram.stats(),
		Bigram:         m.bigram.stats(),
		Trigram:        m.trigram.stats(),
		Starter:        m.starter.stats(),
		TopBigrams:     m.TopNGrams("bigram", 10),
	}
}

// NGramFreq is one n-gram rendered as text alongside its frequency.
type NGramFreq struct {
	Ops  string `json:"ops" yaml:"ops"`
	Freq uint64 `json:"freq" yaml:"freq"`
}

// TopNGrams returns the n most frequent n-grams from the named table
// ("unigram", "bigram", or "trigram"), descending by frequency. n <= 0
// returns every n-gram in the table.
func (m *Model) TopNGrams(kind string, n int) []NGramFreq {
	var t *table
	switch kind {
	case "unigram":
		t = m.unigram
	case "bigram":
		t = m.bigram
	case "trigram":
		t = m.trigram
	default:
		return nil
	}

	var all []NGramFreq
	t.each(func(nd *node) {
		var sb strings.Builder
		for _, op := range nd.opsSlice() {
			sb.WriteString(op.String())
		}
		all = append(all, NGramFreq{Ops: sb.String(), Freq: nd.freq})
	})

	slices.SortFunc(all, func(a, b NGramFreq) bool {
		return a.Freq > b.Freq
	})
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all
}
