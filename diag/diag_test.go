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

package diag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cynosureprime/rulechef/ngram"
	"github.com/cynosureprime/rulechef/rules"
)

func TestFingerprintDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.rule")
	b := filepath.Join(dir, "b.rule")
	if err := os.WriteFile(a, []byte("l\nu\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("lu\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f1, err := Fingerprint([]string{a, b})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	f2, err := Fingerprint([]string{a, b})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if f1 != f2 {
		t.Errorf("fingerprint not deterministic: %s != %s", f1, f2)
	}

	f3, err := Fingerprint([]string{b, a})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if f3 == f1 {
		t.Error("fingerprint should depend on file order")
	}
}

func TestFingerprintMissingFile(t *testing.T) {
	if _, err := Fingerprint([]string{filepath.Join(t.TempDir(), "missing.rule")}); err == nil {
		t.Error("expected an error for a missing input file")
	}
}

func TestPeakRSSBytesNonNegative(t *testing.T) {
	if got := PeakRSSBytes(); got < 0 {
		t.Errorf("PeakRSSBytes() = %d, want >= 0", got)
	}
}

func TestWriteStatsFile(t *testing.T) {
	m := ngram.New()
	pr, err := rules.Tokenize("lu")
	if err != nil {
		t.Fatal(err)
	}
	m.Add(pr)
	m.ComputeProbabilities()

	path := filepath.Join(t.TempDir(), "stats.yaml")
	if err := WriteStatsFile(path, m.Stats()); err != nil {
		t.Fatalf("WriteStatsFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading stats file: %v", err)
	}
	if len(b) == 0 {
		t.Error("stats file is empty")
	}
}
