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

	log "github.com/golang/glog"

	"github.com/optkit/robustlp/lpmodel"
)

// UncertainConstraint bounds an uncertain expression:
// `Lb <= Expr <= Ub`, either bound possibly infinite. Together with the
// parameter bounds, these constraints define the uncertainty set.
type UncertainConstraint struct {
	Expr *UncertainExpr
	Lb   float64
	Ub   float64
}

// RobustConstraint bounds a mixed expression for every realization of the
// uncertainty: `Lb <= Expr(u) <= Ub` for all feasible u.
type RobustConstraint struct {
	Expr *MixedExpr
	Lb   float64
	Ub   float64
}

// UncertaintySet is the feasible region for all uncertain parameters
// jointly: the parameter bounds plus the pure-uncertainty constraints. It is
// the frozen per-solve view handed to oracle Setup.
type UncertaintySet struct {
	params []paramData
	cts    []UncertainConstraint
}

// NumParams returns the number of uncertain parameters.
func (us *UncertaintySet) NumParams() int {
	return len(us.params)
}

// Bounds returns the bounds of the parameter with the given index.
func (us *UncertaintySet) Bounds(ind ParamIndex) (lb, ub float64) {
	return us.params[ind].lb, us.params[ind].ub
}

// Integer reports whether the parameter with the given index is restricted
// to integer values.
func (us *UncertaintySet) Integer(ind ParamIndex) bool {
	return us.params[ind].integer
}

// Constraints returns the pure-uncertainty constraints of the set.
func (us *UncertaintySet) Constraints() []UncertainConstraint {
	return us.cts
}

// Model is a robust-capable optimization model. It owns a deterministic base
// model for the decision variables, the objective, and any certain
// constraints, plus the robust extension state: the uncertain-parameter
// table, the uncertainty-set constraints, the robust constraints with their
// index-aligned oracles, and the adaptivity table. All registries are
// append-only; a solve reads them without consuming them, so a model can be
// solved repeatedly.
type Model struct {
	base *lpmodel.Builder

	params       []paramData
	uncertainCts []UncertainConstraint
	robustCts    []RobustConstraint
	// oracles is index-aligned with robustCts.
	oracles       []Oracle
	adapt         map[lpmodel.VarIndex]adaptPolicy
	defaultOracle Oracle

	// The first and only the first modeling error is kept; Solve refuses to
	// run while it is pending.
	err error
}

// NewModel creates a new robust-capable model with the polyhedral
// dualization oracle as the default.
func NewModel() *Model {
	return &Model{
		base:          lpmodel.NewBuilder(),
		adapt:         map[lpmodel.VarIndex]adaptPolicy{},
		defaultOracle: NewPolyhedralOracle(),
	}
}

// Base returns the underlying deterministic builder. Certain constraints and
// the objective are added directly to it.
func (m *Model) Base() *lpmodel.Builder {
	return m.base
}

// NewVar creates a new continuous decision variable.
func (m *Model) NewVar(lb, ub float64) lpmodel.Variable {
	return m.base.NewVar(lb, ub)
}

// NewIntVar creates a new integer decision variable.
func (m *Model) NewIntVar(lb, ub float64) lpmodel.Variable {
	return m.base.NewIntVar(lb, ub)
}

// Minimize sets a linear minimization objective on the base model.
func (m *Model) Minimize(obj lpmodel.LinearArgument) {
	m.base.Minimize(obj)
}

// Maximize sets a linear maximization objective on the base model.
func (m *Model) Maximize(obj lpmodel.LinearArgument) {
	m.base.Maximize(obj)
}

// AddLinearConstraint adds a certain range constraint to the base model.
func (m *Model) AddLinearConstraint(expr lpmodel.LinearArgument, lb, ub float64) lpmodel.Constraint {
	return m.base.AddLinearConstraint(expr, lb, ub)
}

// recordErr keeps the first modeling error and logs it.
func (m *Model) recordErr(err error) error {
	log.Errorf("robustlp: %v", err)
	if m.err == nil {
		m.err = err
	}
	return err
}

// Err returns the first modeling error recorded on the model, or nil.
func (m *Model) Err() error {
	return m.err
}

// NewParam declares a new continuous uncertain parameter with the given
// bounds. Use math.Inf for unbounded sides. Declaring a parameter with
// lb > ub is rejected.
func (m *Model) NewParam(lb, ub float64) (Param, error) {
	return m.newParam(lb, ub, false)
}

// NewIntParam declares a new integer-restricted uncertain parameter. The
// default dualization oracle cannot represent integer-restricted sets; bind
// the affected constraints to a separation oracle instead.
func (m *Model) NewIntParam(lb, ub float64) (Param, error) {
	return m.newParam(lb, ub, true)
}

func (m *Model) newParam(lb, ub float64, integer bool) (Param, error) {
	if lb > ub {
		return Param{}, m.recordErr(fmt.Errorf("parameter %d declared with bounds [%v,%v]: %w",
			len(m.params), lb, ub, ErrParamBounds))
	}
	p := Param{ind: ParamIndex(len(m.params)), rm: m}
	m.params = append(m.params, paramData{lb: lb, ub: ub, integer: integer})
	return p, nil
}

// NumParams returns the number of declared uncertain parameters.
func (m *Model) NumParams() int {
	return len(m.params)
}

// Param returns the parameter reference for the given index.
func (m *Model) Param(ind ParamIndex) Param {
	return Param{ind: ind, rm: m}
}

// NumRobustConstraints returns the number of robust constraints.
func (m *Model) NumRobustConstraints() int {
	return len(m.robustCts)
}

// SetDefaultOracle replaces the oracle bound to robust constraints added
// without an explicit oracle from now on.
func (m *Model) SetDefaultOracle(o Oracle) {
	m.defaultOracle = o
}

// checkUncertainExpr validates that the expression was built cleanly and
// that all its parameters belong to this model.
func (m *Model) checkUncertainExpr(e *UncertainExpr) error {
	if err := e.Err(); err != nil {
		return m.recordErr(err)
	}
	if e.owner != nil && e.owner != m {
		return m.recordErr(fmt.Errorf("uncertain expression owned by another model: %w", ErrOwnershipMismatch))
	}
	return nil
}

// checkMixedExpr validates a mixed expression against this model: clean
// build, variables of the base builder, parameters of this model.
func (m *Model) checkMixedExpr(e *MixedExpr) error {
	if err := e.Err(); err != nil {
		return m.recordErr(err)
	}
	if e.lpb != nil && e.lpb != m.base {
		return m.recordErr(fmt.Errorf("mixed expression holds variables of another model: %w", ErrOwnershipMismatch))
	}
	if owner := e.uncertainOwner(); owner != nil && owner != m {
		return m.recordErr(fmt.Errorf("mixed expression holds parameters of another model: %w", ErrOwnershipMismatch))
	}
	return nil
}

// AddUncertainConstraint appends `lb <= expr <= ub` to the uncertainty set.
func (m *Model) AddUncertainConstraint(expr *UncertainExpr, lb, ub float64) error {
	if err := m.checkUncertainExpr(expr); err != nil {
		return err
	}
	m.uncertainCts = append(m.uncertainCts, UncertainConstraint{Expr: expr.Normalize(), Lb: lb, Ub: ub})
	return nil
}

// AddRobustConstraint appends `lb <= expr <= ub` as a robust constraint
// bound to the model's default oracle.
func (m *Model) AddRobustConstraint(expr *MixedExpr, lb, ub float64) error {
	return m.AddRobustConstraintWithOracle(expr, lb, ub, m.defaultOracle)
}

// AddRobustConstraintWithOracle appends `lb <= expr <= ub` as a robust
// constraint bound to the given oracle.
func (m *Model) AddRobustConstraintWithOracle(expr *MixedExpr, lb, ub float64, o Oracle) error {
	if err := m.checkMixedExpr(expr); err != nil {
		return err
	}
	if o == nil {
		o = m.defaultOracle
	}
	m.robustCts = append(m.robustCts, RobustConstraint{Expr: expr.Normalize(), Lb: lb, Ub: ub})
	m.oracles = append(m.oracles, o)
	return nil
}

// uncertaintySet returns the frozen view of the uncertainty set for a solve.
func (m *Model) uncertaintySet() *UncertaintySet {
	params := make([]paramData, len(m.params))
	copy(params, m.params)
	cts := make([]UncertainConstraint, len(m.uncertainCts))
	copy(cts, m.uncertainCts)
	return &UncertaintySet{params: params, cts: cts}
}

// nominalRealization returns the midpoint of each parameter's bounds,
// falling back to whichever bound is finite, then to zero.
func (us *UncertaintySet) nominalRealization() []float64 {
	u := make([]float64, len(us.params))
	for i, p := range us.params {
		switch {
		case !math.IsInf(p.lb, -1) && !math.IsInf(p.ub, 1):
			u[i] = (p.lb + p.ub) / 2
		case !math.IsInf(p.lb, -1):
			u[i] = p.lb
		case !math.IsInf(p.ub, 1):
			u[i] = p.ub
		}
	}
	return u
}
