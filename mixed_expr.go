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
	"sort"

	log "github.com/golang/glog"

	"github.com/optkit/robustlp/lpmodel"
)

// MixedExpr is a linear expression over decision variables whose coefficients
// are themselves uncertain expressions, plus an uncertain constant term. It
// is the algebra used by robust constraints mixing both symbol kinds.
type MixedExpr struct {
	terms  []varUncCoeff
	offset *UncertainExpr

	// lpb is the builder all variable terms belong to, nil while the
	// expression holds no variables.
	lpb *lpmodel.Builder
	// The first and only the first error is kept and reported when the
	// expression reaches a model operation.
	err error
}

type varUncCoeff struct {
	ind   lpmodel.VarIndex
	coeff *UncertainExpr
}

// NewMixedExpr creates a new empty MixedExpr.
func NewMixedExpr() *MixedExpr {
	return &MixedExpr{offset: NewUncertainExpr()}
}

func (e *MixedExpr) adoptBuilder(lpb *lpmodel.Builder) {
	if lpb == nil || e.lpb == lpb {
		return
	}
	if e.lpb == nil {
		e.lpb = lpb
		return
	}
	err := fmt.Errorf("cannot combine variables of two models: %w", ErrOwnershipMismatch)
	log.Errorf("%v", err)
	if e.err == nil {
		e.err = err
	}
}

// Err returns the first error recorded while building the expression, or nil.
func (e *MixedExpr) Err() error {
	if e.err != nil {
		return e.err
	}
	if err := e.offset.Err(); err != nil {
		return err
	}
	for _, t := range e.terms {
		if err := t.coeff.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Add adds the variable with coefficient 1 and returns itself.
func (e *MixedExpr) Add(v lpmodel.Variable) *MixedExpr {
	return e.AddTerm(v, 1)
}

// AddTerm adds the variable with the given certain coefficient and returns
// itself.
func (e *MixedExpr) AddTerm(v lpmodel.Variable, coeff float64) *MixedExpr {
	return e.AddUncertainTerm(v, NewUncertainConstant(coeff))
}

// AddUncertainTerm adds the variable with the given uncertain coefficient and
// returns itself.
func (e *MixedExpr) AddUncertainTerm(v lpmodel.Variable, coeff UncertainArgument) *MixedExpr {
	e.adoptBuilder(v.Builder())
	ue := NewUncertainExpr().Add(coeff)
	e.terms = append(e.terms, varUncCoeff{ind: v.Index(), coeff: ue})
	return e
}

// AddConstant adds the certain constant to the expression and returns itself.
func (e *MixedExpr) AddConstant(c float64) *MixedExpr {
	e.offset.AddConstant(c)
	return e
}

// AddUncertain adds the uncertain argument to the expression's constant term
// and returns itself.
func (e *MixedExpr) AddUncertain(ua UncertainArgument) *MixedExpr {
	e.offset.Add(ua)
	return e
}

// AddUncertainTermScaled adds `coeff * scale` as an additional coefficient on
// the variable and returns itself.
func (e *MixedExpr) AddUncertainTermScaled(v lpmodel.Variable, coeff UncertainArgument, scale float64) *MixedExpr {
	e.adoptBuilder(v.Builder())
	ue := NewUncertainExpr().AddTerm(coeff, scale)
	e.terms = append(e.terms, varUncCoeff{ind: v.Index(), coeff: ue})
	return e
}

// AddMixed adds the other mixed expression scaled by `c` and returns itself.
func (e *MixedExpr) AddMixed(o *MixedExpr, c float64) *MixedExpr {
	for _, t := range o.terms {
		ue := NewUncertainExpr().AddTerm(t.coeff, c)
		e.terms = append(e.terms, varUncCoeff{ind: t.ind, coeff: ue})
	}
	e.offset.AddTerm(o.offset, c)
	e.adoptBuilder(o.lpb)
	if e.err == nil {
		e.err = o.err
	}
	return e
}

// Normalize returns a copy of the expression with duplicate variable terms
// merged (their uncertain coefficients summed and normalized), variable terms
// ordered by index, terms whose coefficient vanished removed, and the
// constant term normalized.
func (e *MixedExpr) Normalize() *MixedExpr {
	collapsed := map[lpmodel.VarIndex]*UncertainExpr{}
	for _, t := range e.terms {
		if prev, ok := collapsed[t.ind]; ok {
			prev.Add(t.coeff)
		} else {
			collapsed[t.ind] = t.coeff.clone()
		}
	}
	inds := make([]lpmodel.VarIndex, 0, len(collapsed))
	for ind := range collapsed {
		inds = append(inds, ind)
	}
	sort.Slice(inds, func(i, j int) bool { return inds[i] < inds[j] })

	out := &MixedExpr{offset: e.offset.Normalize(), lpb: e.lpb, err: e.err}
	for _, ind := range inds {
		coeff := collapsed[ind].Normalize()
		if len(coeff.terms) == 0 && math.Abs(coeff.offset) < dropTolerance {
			continue
		}
		out.terms = append(out.terms, varUncCoeff{ind: ind, coeff: coeff})
	}
	return out
}

// atRealization returns the expression specialized to the given uncertainty
// realization as an ordinary linear expression over `target`'s variables.
// Variable indices must be valid in `target`.
func (e *MixedExpr) atRealization(u []float64, target *lpmodel.Builder) *lpmodel.LinearExpr {
	le := lpmodel.NewLinearExpr()
	for _, t := range e.terms {
		le.AddTerm(target.Var(t.ind), t.coeff.Evaluate(u))
	}
	le.AddConstant(e.offset.Evaluate(u))
	return le
}

// uncertainOwner returns the robust model the uncertain symbols of the
// expression belong to, or nil for a certain expression.
func (e *MixedExpr) uncertainOwner() *Model {
	if e.offset.owner != nil {
		return e.offset.owner
	}
	for _, t := range e.terms {
		if t.coeff.owner != nil {
			return t.coeff.owner
		}
	}
	return nil
}
