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

// Package lpmodel offers an API to build and solve linear and mixed-integer
// linear models.
//
// The `Builder` struct holds the model and provides helper methods for adding
// variables and range constraints. The `Variable` struct is a reference to a
// specific variable in the model. The `LinearExpr` struct provides helper
// methods for creating constraints and the objective from expressions with
// many variables and coefficients.
package lpmodel

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

// ErrMixedBuilders holds the error when elements added to a model belong to
// different builders.
var ErrMixedBuilders = errors.New("elements are not part of the same builder")

type (
	// VarIndex is the index of a variable in the model.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model.
	ConstrIndex int32
)

// LinearArgument provides an interface for Variable and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c float64)
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    float64
}

type varCoeff struct {
	ind   VarIndex
	coeff float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	l.AddTerm(la, 1)
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the
// LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff float64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments to the LinearExpr and returns
// itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients
// to the LinearExpr and returns itself.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("las and coeffs must be the same length: %v != %v", len(las), len(coeffs))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

// Offset returns the constant part of the LinearExpr.
func (l *LinearExpr) Offset() float64 {
	return l.offset
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c float64) {
	for _, vc := range l.varCoeffs {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: vc.ind, coeff: vc.coeff * c})
	}
	e.offset += l.offset * c
}

// Variable is a reference to a variable in the model.
type Variable struct {
	ind VarIndex
	lpb *Builder
}

// Name returns the name of the variable. If no name was set, a name is
// synthesized from the variable's index.
func (v Variable) Name() string {
	if name := v.lpb.vars[v.ind].name; name != "" {
		return name
	}
	return fmt.Sprintf("x%d", v.ind)
}

// WithName sets the name of the variable.
func (v Variable) WithName(s string) Variable {
	v.lpb.vars[v.ind].name = s
	return v
}

// Index returns the index of the variable.
func (v Variable) Index() VarIndex {
	return v.ind
}

// Builder returns the builder that owns the variable.
func (v Variable) Builder() *Builder {
	return v.lpb
}

// Bounds returns the lower and upper bound of the variable.
func (v Variable) Bounds() (lb, ub float64) {
	d := v.lpb.vars[v.ind]
	return d.lb, d.ub
}

// Integer reports whether the variable is restricted to integer values.
func (v Variable) Integer() bool {
	return v.lpb.vars[v.ind].integer
}

func (v Variable) addToLinearExpr(e *LinearExpr, c float64) {
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: v.ind, coeff: c})
}

// Constraint is a reference to a range constraint in the model.
type Constraint struct {
	ind ConstrIndex
	lpb *Builder
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.lpb.constrs[c.ind].name
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.lpb.constrs[c.ind].name = s
	return c
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

type varData struct {
	lb, ub  float64
	integer bool
	name    string
}

type constrData struct {
	// coeffs holds the collapsed per-variable coefficients of the row. Only
	// variables that existed when the constraint was added can appear.
	coeffs []varCoeff
	lb, ub float64
	name   string
}

type objective struct {
	coeffs   []varCoeff
	offset   float64
	maximize bool
}

// Builder holds a linear model under construction. Variables and constraints
// are stored in append-only tables and referenced by index.
type Builder struct {
	vars    []varData
	constrs []constrData
	obj     objective
	// The first and only the first error is reported in Solve.
	err error
}

// NewBuilder creates and returns a new empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewVar creates a new continuous variable with the given bounds. Use
// math.Inf for unbounded sides.
func (lp *Builder) NewVar(lb, ub float64) Variable {
	v := Variable{ind: VarIndex(len(lp.vars)), lpb: lp}
	lp.vars = append(lp.vars, varData{lb: lb, ub: ub})
	return v
}

// NewIntVar creates a new integer variable with the given bounds.
func (lp *Builder) NewIntVar(lb, ub float64) Variable {
	v := Variable{ind: VarIndex(len(lp.vars)), lpb: lp}
	lp.vars = append(lp.vars, varData{lb: lb, ub: ub, integer: true})
	return v
}

// Var returns the variable reference for the given index.
func (lp *Builder) Var(ind VarIndex) Variable {
	return Variable{ind: ind, lpb: lp}
}

// NumVars returns the number of variables in the model.
func (lp *Builder) NumVars() int {
	return len(lp.vars)
}

// NumConstraints returns the number of constraints in the model.
func (lp *Builder) NumConstraints() int {
	return len(lp.constrs)
}

// SetBounds replaces the bounds of the variable.
func (lp *Builder) SetBounds(v Variable, lb, ub float64) {
	if !lp.checkSameBuilderAndSetErrorf(v.lpb, "invalid variable %v passed to SetBounds", v.ind) {
		return
	}
	lp.vars[v.ind].lb = lb
	lp.vars[v.ind].ub = ub
}

// checkSameBuilderAndSetErrorf returns true if `lp` and `lp2` point to the
// same Builder. If false, an error with the message `format` is recorded on
// `lp` if no earlier error is pending.
func (lp *Builder) checkSameBuilderAndSetErrorf(lp2 *Builder, format string, a ...any) bool {
	if lp == lp2 {
		return true
	}
	var args = make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = ErrMixedBuilders
	err := fmt.Errorf(format+": %w", args...)
	log.Errorf("%v", err)
	if lp.err == nil {
		lp.err = err
	}
	return false
}

// Err returns the first error recorded while building the model, or nil.
func (lp *Builder) Err() error {
	return lp.err
}

// AddLinearConstraint adds the range constraint `lb <= expr <= ub`. The
// constant part of `expr` is folded into the bounds.
func (lp *Builder) AddLinearConstraint(expr LinearArgument, lb, ub float64) Constraint {
	le := NewLinearExpr().Add(expr)

	collapsed := map[VarIndex]float64{}
	var order []VarIndex
	for _, vc := range le.varCoeffs {
		if int(vc.ind) >= len(lp.vars) {
			lp.checkSameBuilderAndSetErrorf(nil, "variable index %v out of range in constraint %v", vc.ind, len(lp.constrs))
			continue
		}
		if _, ok := collapsed[vc.ind]; !ok {
			order = append(order, vc.ind)
		}
		collapsed[vc.ind] += vc.coeff
	}
	coeffs := make([]varCoeff, 0, len(order))
	for _, ind := range order {
		coeffs = append(coeffs, varCoeff{ind: ind, coeff: collapsed[ind]})
	}

	ind := ConstrIndex(len(lp.constrs))
	lp.constrs = append(lp.constrs, constrData{
		coeffs: coeffs,
		lb:     lb - le.offset,
		ub:     ub - le.offset,
	})
	return Constraint{ind: ind, lpb: lp}
}

// AddEquality adds the linear constraint `lhs == rhs`.
func (lp *Builder) AddEquality(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return lp.AddLinearConstraint(diff, 0, 0)
}

// AddLessOrEqual adds the linear constraint `lhs <= rhs`.
func (lp *Builder) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return lp.AddLinearConstraint(diff, math.Inf(-1), 0)
}

// AddGreaterOrEqual adds the linear constraint `lhs >= rhs`.
func (lp *Builder) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return lp.AddLinearConstraint(diff, 0, math.Inf(1))
}

func (lp *Builder) setObjective(obj LinearArgument, maximize bool) {
	le := NewLinearExpr().Add(obj)

	collapsed := map[VarIndex]float64{}
	var order []VarIndex
	for _, vc := range le.varCoeffs {
		if _, ok := collapsed[vc.ind]; !ok {
			order = append(order, vc.ind)
		}
		collapsed[vc.ind] += vc.coeff
	}
	coeffs := make([]varCoeff, 0, len(order))
	for _, ind := range order {
		coeffs = append(coeffs, varCoeff{ind: ind, coeff: collapsed[ind]})
	}

	lp.obj = objective{coeffs: coeffs, offset: le.offset, maximize: maximize}
}

// Minimize sets a linear minimization objective.
func (lp *Builder) Minimize(obj LinearArgument) {
	lp.setObjective(obj, false)
}

// Maximize sets a linear maximization objective.
func (lp *Builder) Maximize(obj LinearArgument) {
	lp.setObjective(obj, true)
}

// Clone returns a deep copy of the builder. Variable and constraint indices
// are preserved, so references created against the original remain meaningful
// against the copy when resolved with Var.
func (lp *Builder) Clone() *Builder {
	c := &Builder{
		vars:    make([]varData, len(lp.vars)),
		constrs: make([]constrData, len(lp.constrs)),
		obj: objective{
			coeffs:   make([]varCoeff, len(lp.obj.coeffs)),
			offset:   lp.obj.offset,
			maximize: lp.obj.maximize,
		},
		err: lp.err,
	}
	copy(c.vars, lp.vars)
	for i, ct := range lp.constrs {
		coeffs := make([]varCoeff, len(ct.coeffs))
		copy(coeffs, ct.coeffs)
		c.constrs[i] = constrData{coeffs: coeffs, lb: ct.lb, ub: ct.ub, name: ct.name}
	}
	copy(c.obj.coeffs, lp.obj.coeffs)
	return c
}
