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

// Package sink implements the bulk-buffered output sink the generator
// writes rules to: one rule per line, flushed periodically rather than
// on every write, with an optional gzip-compressed mode for large runs.
package sink

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"
)

// DefaultBufferSize matches the reference tool's WriteBufferSize
// (~10MB), flushed on a periodic threshold, on length-class
// completion, and on shutdown.
const DefaultBufferSize = 10 * 1024 * 1024

// Writer is a line-oriented, bulk-buffered sink over an io.Writer.
type Writer struct {
	buf   *bufio.Writer
	gzip  *gzip.Writer // non-nil when gzip-compressing
	lines uint64
}

// New creates a Writer over w. If gzipEnabled, output is gzip-compressed
// (using klauspost/compress's faster reimplementation) before hitting
// w. bufSize <= 0 uses DefaultBufferSize.
func New(w io.Writer, gzipEnabled bool, bufSize int) *Writer {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	s := &Writer{}
	if gzipEnabled {
		s.gzip = gzip.NewWriter(w)
		w = s.gzip
	}
	s.buf = bufio.NewWriterSize(w, bufSize)
	return s
}

// WriteLine writes one \n-terminated rule line.
func (w *Writer) WriteLine(line string) error {
	if _, err := w.buf.WriteString(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written so far.
func (w *Writer) Lines() uint64 { return w.lines }

// Flush pushes buffered bytes to the underlying writer (or gzip
// stream). It does not close or flush the gzip stream itself -- call
// Close for that.
func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Close flushes any buffered bytes and, if gzip-compressing, closes
// the gzip stream so its trailer is written.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.gzip != nil {
		return w.gzip.Close()
	}
	return nil
}
