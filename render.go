// Copyright 2024 The robustlp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package robustlp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// formatValue renders a constant: integral values without a decimal point,
// everything else in shortest round-trip form.
func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// writeTerm appends one `coeff * symbol` term, folding the additive sign
// into the join, skipping the numeral for unit coefficients, and dropping
// near-zero terms.
func writeTerm(sb *strings.Builder, first *bool, coeff float64, symbol string) {
	if math.Abs(coeff) < dropTolerance {
		return
	}
	switch {
	case *first && coeff < 0:
		sb.WriteString("-")
	case !*first && coeff < 0:
		sb.WriteString(" - ")
	case !*first:
		sb.WriteString(" + ")
	}
	*first = false
	if abs := math.Abs(coeff); abs != 1 {
		sb.WriteString(formatValue(abs))
		sb.WriteString(" ")
	}
	sb.WriteString(symbol)
}

// writeConstant appends the trailing constant, or "0" when the whole
// expression was empty.
func writeConstant(sb *strings.Builder, first bool, c float64) {
	if math.Abs(c) < dropTolerance {
		if first {
			sb.WriteString("0")
		}
		return
	}
	switch {
	case first:
		sb.WriteString(formatValue(c))
	case c < 0:
		sb.WriteString(" - ")
		sb.WriteString(formatValue(-c))
	default:
		sb.WriteString(" + ")
		sb.WriteString(formatValue(c))
	}
}

// allNonPositive reports whether every component of the expression is zero
// or negative, so the whole coefficient's sign can fold into the term join.
func allNonPositive(e *UncertainExpr) bool {
	if e.offset > 0 {
		return false
	}
	for _, pc := range e.terms {
		if pc.coeff > 0 {
			return false
		}
	}
	return true
}

func (e *UncertainExpr) paramName(ind ParamIndex) string {
	if e.owner == nil {
		return fmt.Sprintf("u%d", ind)
	}
	return e.owner.Param(ind).Name()
}

// String renders the normalized expression for diagnostics.
func (e *UncertainExpr) String() string {
	n := e.Normalize()
	var sb strings.Builder
	first := true
	for _, pc := range n.terms {
		writeTerm(&sb, &first, pc.coeff, e.paramName(pc.ind))
	}
	writeConstant(&sb, first, n.offset)
	return sb.String()
}

// String renders the normalized mixed expression for diagnostics. Certain
// coefficients render like scalar terms; uncertain coefficients render
// parenthesized in front of their variable.
func (e *MixedExpr) String() string {
	n := e.Normalize()
	var sb strings.Builder
	first := true
	for _, t := range n.terms {
		name := fmt.Sprintf("x%d", t.ind)
		if e.lpb != nil {
			name = e.lpb.Var(t.ind).Name()
		}
		if len(t.coeff.terms) == 0 {
			writeTerm(&sb, &first, t.coeff.offset, name)
			continue
		}
		coeff := t.coeff
		neg := allNonPositive(coeff)
		if neg {
			coeff = NewUncertainExpr().AddTerm(t.coeff, -1)
		}
		switch {
		case first && neg:
			sb.WriteString("-")
		case !first && neg:
			sb.WriteString(" - ")
		case !first:
			sb.WriteString(" + ")
		}
		first = false
		sb.WriteString("(")
		sb.WriteString(coeff.String())
		sb.WriteString(") ")
		sb.WriteString(name)
	}
	for _, pc := range n.offset.terms {
		writeTerm(&sb, &first, pc.coeff, n.offset.paramName(pc.ind))
	}
	writeConstant(&sb, first, n.offset.offset)
	return sb.String()
}
