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
)

// dropTolerance is the magnitude below which a coefficient is treated as
// zero, both during normalization and when rendering expressions.
const dropTolerance = 1e-20

// UncertainArgument provides an interface for Param and UncertainExpr.
type UncertainArgument interface {
	addToUncertainExpr(e *UncertainExpr, c float64)
}

// UncertainExpr is a linear expression over uncertain parameters with plain
// numeric coefficients and a constant term.
type UncertainExpr struct {
	terms  []paramCoeff
	offset float64

	// owner is the model all parameter terms belong to, nil while the
	// expression is a pure constant.
	owner *Model
	// The first and only the first error is kept and reported when the
	// expression reaches a model operation.
	err error
}

type paramCoeff struct {
	ind   ParamIndex
	coeff float64
}

// NewUncertainExpr creates a new empty UncertainExpr.
func NewUncertainExpr() *UncertainExpr {
	return &UncertainExpr{}
}

// NewUncertainConstant creates and returns an UncertainExpr containing the
// constant `c`.
func NewUncertainConstant(c float64) *UncertainExpr {
	return &UncertainExpr{offset: c}
}

// NewUncertainConstants creates one constant UncertainExpr per entry of `cs`.
func NewUncertainConstants(cs []float64) []*UncertainExpr {
	out := make([]*UncertainExpr, len(cs))
	for i, c := range cs {
		out[i] = NewUncertainConstant(c)
	}
	return out
}

// adoptOwner records the owning model of the expression, or an ownership
// mismatch error when terms of two models are combined.
func (e *UncertainExpr) adoptOwner(m *Model) {
	if m == nil || e.owner == m {
		return
	}
	if e.owner == nil {
		e.owner = m
		return
	}
	err := fmt.Errorf("cannot combine parameters of two models: %w", ErrOwnershipMismatch)
	log.Errorf("%v", err)
	if e.err == nil {
		e.err = err
	}
}

// Err returns the first error recorded while building the expression, or nil.
func (e *UncertainExpr) Err() error {
	return e.err
}

// Add adds the uncertain argument to the expression and returns itself.
func (e *UncertainExpr) Add(ua UncertainArgument) *UncertainExpr {
	e.AddTerm(ua, 1)
	return e
}

// AddConstant adds the constant to the expression and returns itself.
func (e *UncertainExpr) AddConstant(c float64) *UncertainExpr {
	e.offset += c
	return e
}

// AddTerm adds the uncertain argument with the given coefficient to the
// expression and returns itself.
func (e *UncertainExpr) AddTerm(ua UncertainArgument, coeff float64) *UncertainExpr {
	ua.addToUncertainExpr(e, coeff)
	return e
}

// AddSum adds the sum of the uncertain arguments to the expression and
// returns itself.
func (e *UncertainExpr) AddSum(uas ...UncertainArgument) *UncertainExpr {
	for _, ua := range uas {
		e.Add(ua)
	}
	return e
}

// AddWeightedSum adds the uncertain arguments with the corresponding
// coefficients to the expression and returns itself.
func (e *UncertainExpr) AddWeightedSum(uas []UncertainArgument, coeffs []float64) *UncertainExpr {
	if len(coeffs) != len(uas) {
		log.Fatalf("uas and coeffs must be the same length: %v != %v", len(uas), len(coeffs))
	}
	for i, ua := range uas {
		e.AddTerm(ua, coeffs[i])
	}
	return e
}

// Offset returns the constant part of the expression.
func (e *UncertainExpr) Offset() float64 {
	return e.offset
}

func (e *UncertainExpr) addToUncertainExpr(o *UncertainExpr, c float64) {
	for _, pc := range e.terms {
		o.terms = append(o.terms, paramCoeff{ind: pc.ind, coeff: pc.coeff * c})
	}
	o.offset += e.offset * c
	o.adoptOwner(e.owner)
	if o.err == nil {
		o.err = e.err
	}
}

// Normalize returns a copy of the expression with duplicate parameter terms
// summed, terms ordered by parameter index, and coefficients below the drop
// tolerance removed.
func (e *UncertainExpr) Normalize() *UncertainExpr {
	collapsed := map[ParamIndex]float64{}
	for _, pc := range e.terms {
		collapsed[pc.ind] += pc.coeff
	}
	inds := make([]ParamIndex, 0, len(collapsed))
	for ind := range collapsed {
		inds = append(inds, ind)
	}
	sort.Slice(inds, func(i, j int) bool { return inds[i] < inds[j] })

	out := &UncertainExpr{offset: e.offset, owner: e.owner, err: e.err}
	for _, ind := range inds {
		if math.Abs(collapsed[ind]) < dropTolerance {
			continue
		}
		out.terms = append(out.terms, paramCoeff{ind: ind, coeff: collapsed[ind]})
	}
	if len(out.terms) == 0 {
		out.owner = nil
	}
	return out
}

// Equal reports whether two expressions are structurally equal after
// normalization.
func (e *UncertainExpr) Equal(o *UncertainExpr) bool {
	a, b := e.Normalize(), o.Normalize()
	if a.offset != b.offset || len(a.terms) != len(b.terms) {
		return false
	}
	for i := range a.terms {
		if a.terms[i] != b.terms[i] {
			return false
		}
	}
	return true
}

// IsConstant reports whether the expression has no parameter terms after
// normalization.
func (e *UncertainExpr) IsConstant() bool {
	return len(e.Normalize().terms) == 0
}

// Evaluate returns the value of the expression at the given realization,
// indexed by ParamIndex.
func (e *UncertainExpr) Evaluate(u []float64) float64 {
	result := e.offset
	for _, pc := range e.terms {
		result += u[pc.ind] * pc.coeff
	}
	return result
}

// clone returns a shallow-structured deep copy of the expression.
func (e *UncertainExpr) clone() *UncertainExpr {
	terms := make([]paramCoeff, len(e.terms))
	copy(terms, e.terms)
	return &UncertainExpr{terms: terms, offset: e.offset, owner: e.owner, err: e.err}
}

// coeffOf returns the collapsed coefficient of the parameter in the
// expression.
func (e *UncertainExpr) coeffOf(ind ParamIndex) float64 {
	var c float64
	for _, pc := range e.terms {
		if pc.ind == ind {
			c += pc.coeff
		}
	}
	return c
}
