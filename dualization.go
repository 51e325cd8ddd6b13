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

// polytope returns the uncertainty set as the row system `W u <= v` over the
// parameters. Infinite bounds contribute no row. Integer restrictions are
// not encoded; callers that cannot relax them must reject the set first.
func (us *UncertaintySet) polytope() (w [][]float64, v []float64) {
	n := len(us.params)
	addRow := func(row []float64, rhs float64) {
		w = append(w, row)
		v = append(v, rhs)
	}

	for i, p := range us.params {
		if !math.IsInf(p.ub, 1) {
			row := make([]float64, n)
			row[i] = 1
			addRow(row, p.ub)
		}
		if !math.IsInf(p.lb, -1) {
			row := make([]float64, n)
			row[i] = -1
			addRow(row, -p.lb)
		}
	}
	for _, ct := range us.cts {
		e := ct.Expr.Normalize()
		row := make([]float64, n)
		for _, pc := range e.terms {
			row[pc.ind] = pc.coeff
		}
		if !math.IsInf(ct.Ub, 1) {
			addRow(row, ct.Ub-e.offset)
		}
		if !math.IsInf(ct.Lb, -1) {
			neg := make([]float64, n)
			for i, c := range row {
				neg[i] = -c
			}
			addRow(neg, -(ct.Lb - e.offset))
		}
	}
	return w, v
}

// PolyhedralOracle reformulates robust constraints by direct LP dualization.
// It is valid when the uncertainty set is a polyhedron over continuous
// parameters and the constraint coefficients are affine in the parameters:
// "for all u in U: a(u)'x <= b" becomes a single deterministic system with
// one dual multiplier per uncertainty-set row. No solver call is made during
// reformulation.
type PolyhedralOracle struct {
	w       [][]float64
	v       []float64
	nParams int
	ready   bool
}

// NewPolyhedralOracle returns a new dualization oracle.
func NewPolyhedralOracle() *PolyhedralOracle {
	return &PolyhedralOracle{}
}

// Setup precomputes the dual representation of the uncertainty polytope. It
// fails when the set restricts a parameter to integer values, since the LP
// duality argument needs the continuous polyhedron.
func (o *PolyhedralOracle) Setup(m *Model, us *UncertaintySet) error {
	for i := range us.params {
		if us.Integer(ParamIndex(i)) {
			return &SetupError{
				Oracle: "polyhedral oracle",
				Reason: fmt.Sprintf("parameter %s is integer-restricted; the set is not a polyhedron", m.Param(ParamIndex(i)).Name()),
			}
		}
	}
	o.w, o.v = us.polytope()
	o.nParams = us.NumParams()
	o.ready = true
	log.V(1).Infof("polyhedral oracle: %d rows over %d parameters", len(o.w), o.nParams)
	return nil
}

// Reformulate appends the dualized counterpart of the robust constraint to
// `into`: one nonnegative multiplier vector per finite side, the dual
// feasibility rows tying the multipliers to the constraint's uncertain
// coefficients, and the budget row replacing the worst-case value.
func (o *PolyhedralOracle) Reformulate(ct *RobustConstraint, into *lpmodel.Builder) error {
	if !o.ready {
		return &SetupError{Oracle: "polyhedral oracle", Reason: "Reformulate called before Setup"}
	}

	e := ct.Expr.Normalize()
	// Split the constraint into its certain spine and the parameter-facing
	// parts: a_j (certain coefficient of variable j), d[i][j] (coefficient
	// of parameter i inside variable j's coefficient), cvec[i] and c0 from
	// the constant term.
	a := make([]float64, len(e.terms))
	d := make([][]float64, o.nParams)
	for i := range d {
		d[i] = make([]float64, len(e.terms))
	}
	for j, t := range e.terms {
		a[j] = t.coeff.offset
		for i := 0; i < o.nParams; i++ {
			d[i][j] = t.coeff.coeffOf(ParamIndex(i))
		}
	}
	cvec := make([]float64, o.nParams)
	for i := 0; i < o.nParams; i++ {
		cvec[i] = e.offset.coeffOf(ParamIndex(i))
	}
	c0 := e.offset.offset

	// Upper side: base(x) + max_u u'(Dx + c) <= ub becomes
	//   W'lambda = Dx + c, lambda >= 0, base(x) + v'lambda <= ub.
	if !math.IsInf(ct.Ub, 1) {
		lambda := make([]lpmodel.Variable, len(o.w))
		for r := range o.w {
			lambda[r] = into.NewVar(0, math.Inf(1))
		}
		for i := 0; i < o.nParams; i++ {
			row := lpmodel.NewLinearExpr()
			for r := range o.w {
				row.AddTerm(lambda[r], o.w[r][i])
			}
			for j, t := range e.terms {
				row.AddTerm(into.Var(t.ind), -d[i][j])
			}
			into.AddLinearConstraint(row, cvec[i], cvec[i])
		}
		budget := lpmodel.NewLinearExpr()
		for j, t := range e.terms {
			budget.AddTerm(into.Var(t.ind), a[j])
		}
		for r := range o.w {
			budget.AddTerm(lambda[r], o.v[r])
		}
		into.AddLinearConstraint(budget, math.Inf(-1), ct.Ub-c0)
		log.V(2).Infof("polyhedral oracle: upper side dualized with %d multipliers", len(lambda))
	}

	// Lower side: base(x) + min_u u'(Dx + c) >= lb becomes
	//   W'mu = -(Dx + c), mu >= 0, base(x) - v'mu >= lb.
	if !math.IsInf(ct.Lb, -1) {
		mu := make([]lpmodel.Variable, len(o.w))
		for r := range o.w {
			mu[r] = into.NewVar(0, math.Inf(1))
		}
		for i := 0; i < o.nParams; i++ {
			row := lpmodel.NewLinearExpr()
			for r := range o.w {
				row.AddTerm(mu[r], o.w[r][i])
			}
			for j, t := range e.terms {
				row.AddTerm(into.Var(t.ind), d[i][j])
			}
			into.AddLinearConstraint(row, -cvec[i], -cvec[i])
		}
		budget := lpmodel.NewLinearExpr()
		for j, t := range e.terms {
			budget.AddTerm(into.Var(t.ind), a[j])
		}
		for r := range o.w {
			budget.AddTerm(mu[r], -o.v[r])
		}
		into.AddLinearConstraint(budget, ct.Lb-c0, math.Inf(1))
		log.V(2).Infof("polyhedral oracle: lower side dualized with %d multipliers", len(mu))
	}

	return nil
}
