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

// Command rulechef trains an n-gram model over a corpus of
// password-mangling rules and generates novel, statistically plausible
// rules from it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cynosureprime/rulechef/diag"
	"github.com/cynosureprime/rulechef/generate"
	"github.com/cynosureprime/rulechef/ngram"
	"github.com/cynosureprime/rulechef/rules"
	"github.com/cynosureprime/rulechef/sink"
)

var (
	dashm           int
	dashM           int
	dashl           int
	dashp           float64
	dasho           string
	dashGzip        bool
	dashFingerprint bool
	dashStatsFile   string
	dashVerbose     bool

	flagDefaultUsage func()
)

func init() {
	flagDefaultUsage = flag.CommandLine.Usage
	flag.CommandLine.Usage = printHelp

	flag.IntVar(&dashm, "min-length", 1, "minimum generated rule length, in operations (1-10)")
	flag.IntVar(&dashm, "m", 1, "shorthand for -min-length")
	flag.IntVar(&dashM, "max-length", 6, "maximum generated rule length, in operations (1-16)")
	flag.IntVar(&dashM, "M", 6, "shorthand for -max-length")
	flag.IntVar(&dashl, "limit", 0, "limit the number of starter operations tried (0 = all, max 65535)")
	flag.IntVar(&dashl, "l", 0, "shorthand for -limit")
	flag.Float64Var(&dashp, "probability", 0.0, "minimum joint probability a partial rule must retain")
	flag.Float64Var(&dashp, "p", 0.0, "shorthand for -probability")
	flag.StringVar(&dasho, "o", "", "file for generated rules (default is stdout)")
	flag.BoolVar(&dashGzip, "gzip", false, "gzip-compress the output")
	flag.BoolVar(&dashFingerprint, "fingerprint", false, "print a blake2b-256 fingerprint of the input corpus")
	flag.StringVar(&dashStatsFile, "stats-file", "", "write model statistics as YAML to this path")
	flag.BoolVar(&dashVerbose, "verbose", false, "print per-file progress and a final statistics block to stderr")
	flag.BoolVar(&dashVerbose, "v", false, "shorthand for -verbose")
}

var logger = log.New(os.Stderr, "", 0)

func printHelp() {
	fmt.Fprintln(os.Stderr, "usage: rulechef [flags] rule-file [rule-file ...]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Trains an n-gram model over one or more password-mangling rule files")
	fmt.Fprintln(os.Stderr, "and generates novel rules by walking it.")
	fmt.Fprintln(os.Stderr)
	flagDefaultUsage()
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "rulechef: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(1)
	}
	if dashm < 1 || dashm > 10 {
		fail("-min-length must be between 1 and 10, got %d", dashm)
	}
	if dashM < 1 || dashM > 16 {
		fail("-max-length must be between 1 and 16, got %d", dashM)
	}
	if dashM < dashm {
		fail("-max-length (%d) must be >= -min-length (%d)", dashM, dashm)
	}
	if dashl < 0 || dashl > 65535 {
		fail("-limit must be between 0 and 65535, got %d", dashl)
	}
	if dashp < 0.0 || dashp > 1.0 {
		fail("-probability must be between 0.0 and 1.0, got %v", dashp)
	}

	if dashFingerprint {
		fp, err := diag.Fingerprint(args)
		if err != nil {
			fail("%s", err)
		}
		logger.Printf("fingerprint: %s", fp)
	}

	start := time.Now()
	m := ngram.New()
	if dashVerbose {
		logger.Printf("run id: %s", m.RunID())
	}

	var malformed int
	for _, path := range args {
		n, skipped, err := ingestFile(m, path)
		if err != nil {
			fail("%s", err)
		}
		malformed += skipped
		if dashVerbose {
			logger.Printf("%s: ingested %d rules, skipped %d malformed", path, n, skipped)
		}
	}
	if m.VocabularySize() == 0 {
		fail("no valid rules in input; nothing to train on")
	}
	m.ComputeProbabilities()

	var out *os.File
	if dasho == "" {
		out = os.Stdout
	} else {
		f, err := os.Create(dasho)
		if err != nil {
			fail("creating output file: %s", err)
		}
		defer f.Close()
		out = f
	}
	w := sink.New(out, dashGzip, 0)

	idx := ngram.BuildIndex(m)
	g := generate.New(idx, generate.Options{
		MinLength:      dashm,
		MaxLength:      dashM,
		MinProbability: dashp,
		Limit:          dashl,
	})
	g.Emit = func(rule string) error {
		return w.WriteLine(rule)
	}
	g.Flush = w.Flush

	stats, err := g.Run(m)
	if err != nil {
		fail("generation failed: %s", err)
	}
	if err := w.Close(); err != nil {
		fail("flushing output: %s", err)
	}

	if dashStatsFile != "" {
		if err := diag.WriteStatsFile(dashStatsFile, m.Stats()); err != nil {
			fail("%s", err)
		}
	}

	if dashVerbose {
		logger.Printf("final statistics:")
		logger.Printf("  malformed input rules skipped: %d", malformed)
		logger.Printf("  vocabulary size:                %d", m.VocabularySize())
		logger.Printf("  rules emitted:                  %d", stats.Emitted)
		logger.Printf("  duplicate rules suppressed:     %d", stats.Duplicates)
		logger.Printf("  elapsed:                        %s", time.Since(start))
		logger.Printf("  peak RSS:                       %d bytes", diag.PeakRSSBytes())
	}
}

// ingestFile reads one rule file line by line, tokenizing and adding
// each valid line to m. Malformed lines are counted and skipped rather
// than treated as fatal, matching the reference tool's tolerant ingest
// behavior.
func ingestFile(m *ngram.Model, path string) (ingested, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		pr, terr := rules.Tokenize(line)
		if terr != nil {
			skipped++
			if dashVerbose {
				logger.Printf("%s: skipping malformed rule %q: %s", path, line, terr)
			}
			continue
		}
		m.Add(pr)
		ingested++
	}
	if err := sc.Err(); err != nil {
		return ingested, skipped, fmt.Errorf("reading %s: %w", path, err)
	}
	return ingested, skipped, nil
}
