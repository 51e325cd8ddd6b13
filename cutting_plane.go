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
	"math"

	log "github.com/golang/glog"

	"github.com/optkit/robustlp/lpmodel"
)

// WorstCaseOracle reformulates iteratively: instead of dualizing up front,
// it solves the worst-case subproblem "which feasible realization violates
// the constraint most at the current candidate" and hands violating
// realizations back to the solve orchestrator as cuts. It supports
// integer-restricted parameters, in which case the subproblem is a MILP;
// convergence of the surrounding loop is then no longer guaranteed.
type WorstCaseOracle struct {
	us  *UncertaintySet
	tol float64
}

// NewWorstCaseOracle returns a new separation oracle. It uses the violation
// tolerance of the solve it runs under.
func NewWorstCaseOracle() *WorstCaseOracle {
	return &WorstCaseOracle{}
}

// NewWorstCaseOracleWithTolerance returns a new separation oracle that
// treats violations of at most `tol` as satisfied, regardless of the solve's
// own tolerance.
func NewWorstCaseOracleWithTolerance(tol float64) *WorstCaseOracle {
	return &WorstCaseOracle{tol: tol}
}

// Setup freezes the uncertainty set for the solve.
func (o *WorstCaseOracle) Setup(m *Model, us *UncertaintySet) error {
	o.us = us
	return nil
}

// Reformulate is intentionally empty: constraints bound to this oracle are
// enforced through the cutting-plane loop, not an up-front rewrite.
func (o *WorstCaseOracle) Reformulate(ct *RobustConstraint, into *lpmodel.Builder) error {
	return nil
}

// subproblem builds the optimization model over the uncertain parameters:
// one variable per parameter carrying the parameter's bounds and integer
// restriction, plus the uncertainty-set constraints as rows.
func (o *WorstCaseOracle) subproblem() (*lpmodel.Builder, []lpmodel.Variable) {
	sub := lpmodel.NewBuilder()
	uvars := make([]lpmodel.Variable, o.us.NumParams())
	for i := range uvars {
		lb, ub := o.us.Bounds(ParamIndex(i))
		if o.us.Integer(ParamIndex(i)) {
			uvars[i] = sub.NewIntVar(lb, ub)
		} else {
			uvars[i] = sub.NewVar(lb, ub)
		}
	}
	for _, ct := range o.us.Constraints() {
		e := ct.Expr.Normalize()
		le := lpmodel.NewLinearExpr()
		for _, pc := range e.terms {
			le.AddTerm(uvars[pc.ind], pc.coeff)
		}
		le.AddConstant(e.offset)
		sub.AddLinearConstraint(le, ct.Lb, ct.Ub)
	}
	return sub, uvars
}

// Separate finds the realization maximizing the violation of the constraint
// at the candidate solution, or nil if the constraint holds for all feasible
// realizations within the tolerance. A tolerance set at construction takes
// precedence over `tol`.
func (o *WorstCaseOracle) Separate(ct *RobustConstraint, candidate []float64, tol float64) (*Realization, error) {
	if o.us == nil {
		return nil, &SetupError{Oracle: "worst-case oracle", Reason: "Separate called before Setup"}
	}
	if o.tol > 0 {
		tol = o.tol
	}
	if tol <= 0 {
		tol = DefaultViolationTolerance
	}

	e := ct.Expr.Normalize()
	// At a frozen candidate x the left-hand side is base + u'y with
	// y_i = sum_j d[i][j] x_j + c_i.
	base := e.offset.offset
	for _, t := range e.terms {
		base += t.coeff.offset * candidate[t.ind]
	}
	y := make([]float64, o.us.NumParams())
	for i := range y {
		y[i] = e.offset.coeffOf(ParamIndex(i))
		for _, t := range e.terms {
			y[i] += t.coeff.coeffOf(ParamIndex(i)) * candidate[t.ind]
		}
	}

	solveSide := func(maximize bool) (*lpmodel.Solution, error) {
		sub, uvars := o.subproblem()
		obj := lpmodel.NewLinearExpr()
		for i, uv := range uvars {
			obj.AddTerm(uv, y[i])
		}
		if maximize {
			sub.Maximize(obj)
		} else {
			sub.Minimize(obj)
		}
		return lpmodel.Solve(sub)
	}

	if !math.IsInf(ct.Ub, 1) {
		sol, err := solveSide(true)
		if err != nil {
			return nil, err
		}
		switch sol.Status {
		case lpmodel.Unbounded:
			return nil, &SeparationError{Constraint: -1, Status: sol.Status}
		case lpmodel.Infeasible:
			// Empty uncertainty set: no realization can violate anything.
			log.Warning("worst-case oracle: uncertainty set is empty")
			return nil, nil
		}
		if worst := base + sol.Objective; worst > ct.Ub+tol {
			log.V(2).Infof("worst-case oracle: upper violation %v", worst-ct.Ub)
			return &Realization{Values: sol.Values()}, nil
		}
	}
	if !math.IsInf(ct.Lb, -1) {
		sol, err := solveSide(false)
		if err != nil {
			return nil, err
		}
		switch sol.Status {
		case lpmodel.Unbounded:
			return nil, &SeparationError{Constraint: -1, Status: sol.Status}
		case lpmodel.Infeasible:
			log.Warning("worst-case oracle: uncertainty set is empty")
			return nil, nil
		}
		if worst := base + sol.Objective; worst < ct.Lb-tol {
			log.V(2).Infof("worst-case oracle: lower violation %v", ct.Lb-worst)
			return &Realization{Values: sol.Values()}, nil
		}
	}
	return nil, nil
}
