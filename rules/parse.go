// Copyright (C) 2022 Sneller, Inc.
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

package rules

import (
	"errors"
	"strings"
)

// ErrEmptyRule is returned by Tokenize when a line has no operations
// left after normalization (blank, all spaces, or empty).
var ErrEmptyRule = errors.New("rules: empty rule")

// ErrRuleTooLong is returned by Tokenize when a line is at or beyond
// MaxRuleLen bytes, before any per-operation validation happens.
var ErrRuleTooLong = errors.New("rules: rule exceeds MaxRuleLen")

// Tokenize splits one line of a rule file into a ParsedRule.
//
// Spaces outside of an operation's parameter bytes are separators and
// may appear in any run length; they are dropped. A space that falls
// within an operation's parameter bytes (because the op's arity pulls
// it in) is data and is preserved verbatim. The line is expected to
// already have its line ending stripped, but Tokenize trims \r and \n
// defensively.
func Tokenize(line string) (ParsedRule, error) {
	line = strings.TrimRight(line, "\r\n")
	// Only leading spaces are trimmed here: a trailing space may be the
	// parameter byte of the last operation, and any other trailing
	// spaces are skipped as separators by the scan below.
	line = strings.TrimLeft(line, " ")
	if line == "" {
		return ParsedRule{}, ErrEmptyRule
	}
	if len(line) >= MaxRuleLen {
		return ParsedRule{}, ErrRuleTooLong
	}

	buf := []byte(line)
	n := len(buf)
	ops := make([]Op, 0, n)

	for i := 0; i < n; {
		if buf[i] == ' ' {
			i++
			continue
		}
		base := buf[i]
		arity := Arity(base)
		if arity == 0 {
			return ParsedRule{}, &InvalidOpError{Pos: i, Char: base}
		}
		if i+arity > n {
			return ParsedRule{}, &TruncatedOpError{
				Pos:  i,
				Char: base,
				Need: arity,
				Have: n - i,
			}
		}
		ops = append(ops, newOp(buf[i:i+arity], arity))
		i += arity
	}

	if len(ops) == 0 {
		return ParsedRule{}, ErrEmptyRule
	}
	return ParsedRule{Ops: ops}, nil
}
