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
	"fmt"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string // expected op strings
	}{
		{"l", []string{"l"}},
		{"lu", []string{"l", "u"}},
		{"Ta", []string{"Ta"}},
		{"  l   u  ", []string{"l", "u"}},
		{"sXY q", []string{"sXY", "q"}},
	}
	for i := range tests {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			pr, err := Tokenize(tests[i].line)
			if err != nil {
				t.Fatal(err)
			}
			if len(pr.Ops) != len(tests[i].want) {
				t.Fatalf("got %d ops, want %d", len(pr.Ops), len(tests[i].want))
			}
			for j, op := range pr.Ops {
				if op.String() != tests[i].want[j] {
					t.Errorf("op %d: got %q want %q", j, op.String(), tests[i].want[j])
				}
			}
		})
	}
}

func TestTokenizeSpaceInParameter(t *testing.T) {
	// 'T' is arity 2: its second byte may itself be a literal space,
	// and must be preserved rather than treated as a separator.
	pr, err := Tokenize("T ")
	if err != nil {
		t.Fatal(err)
	}
	if len(pr.Ops) != 1 || pr.Ops[0].String() != "T " {
		t.Fatalf("got %#v, want single op %q", pr.Ops, "T ")
	}
}

func TestTokenizeInvalidOp(t *testing.T) {
	_, err := Tokenize("T")
	var te *TruncatedOpError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *TruncatedOpError", err)
	}

	_, err = Tokenize("#")
	var ie *InvalidOpError
	if !errors.As(err, &ie) {
		t.Fatalf("got %v, want *InvalidOpError", err)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	for _, line := range []string{"", "   ", "\r\n"} {
		_, err := Tokenize(line)
		if !errors.Is(err, ErrEmptyRule) {
			t.Errorf("line %q: got %v, want ErrEmptyRule", line, err)
		}
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	// Normalizing and re-tokenizing a rule must reproduce the same ops.
	lines := []string{"l  u   c", "Ta$1", "sabcXYZW"}
	for _, line := range lines {
		pr, err := Tokenize(line)
		if err != nil {
			t.Fatal(err)
		}
		again, err := Tokenize(pr.String())
		if err != nil {
			t.Fatal(err)
		}
		if len(again.Ops) != len(pr.Ops) {
			t.Fatalf("line %q: re-tokenize produced %d ops, want %d", line, len(again.Ops), len(pr.Ops))
		}
		for i := range pr.Ops {
			if !pr.Ops[i].Equal(again.Ops[i]) {
				t.Errorf("line %q: op %d changed under re-tokenization: %q != %q",
					line, i, pr.Ops[i], again.Ops[i])
			}
		}
	}
}

func TestArityCollision(t *testing.T) {
	// R and L are declared in both the 1-byte and 2-byte classes; the
	// 2-byte declaration is applied last and wins.
	if Arity('R') != 2 {
		t.Errorf("Arity('R') = %d, want 2", Arity('R'))
	}
	if Arity('L') != 2 {
		t.Errorf("Arity('L') = %d, want 2", Arity('L'))
	}
}

func TestTokenizeTooLong(t *testing.T) {
	_, err := Tokenize(strings.Repeat("l", MaxRuleLen))
	if !errors.Is(err, ErrRuleTooLong) {
		t.Fatalf("got %v, want ErrRuleTooLong", err)
	}
}
