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

// Package diag collects the run diagnostics the CLI prints or writes
// alongside its main output: an input-file fingerprint for
// reproducibility, peak resident memory, and the model's YAML stats
// snapshot.
package diag

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sys/unix"
	"sigs.k8s.io/yaml"

	"github.com/cynosureprime/rulechef/ngram"
)

// Fingerprint hashes every named input file, in order, into a single
// blake2b-256 digest, so that two runs over the same corpus (regardless
// of how many files it was split across) can be confirmed identical
// without diffing the corpus itself.
func Fingerprint(paths []string) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("diag: fingerprint %s: %w", p, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("diag: fingerprint %s: %w", p, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PeakRSSBytes returns the process's peak resident set size, in bytes,
// as reported by getrusage(2). On platforms where x/sys/unix cannot
// retrieve it this returns 0 rather than an error, since this is a
// diagnostic, not something callers should have to guard with an
// if err != nil.
func PeakRSSBytes() int64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// Linux reports Maxrss in KiB; other unix.Rusage-bearing platforms
	// that x/sys/unix supports on this build target do the same.
	return int64(ru.Maxrss) * 1024
}

// WriteStatsFile renders a model's statistics snapshot as YAML to path,
// creating or truncating it. The reference tool's own stats printer
// writes a human-readable table to stderr; this is the machine-readable
// counterpart requested via --stats-file.
func WriteStatsFile(path string, stats ngram.Stats) error {
	b, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("diag: marshal stats: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("diag: write stats file %s: %w", path, err)
	}
	return nil
}
