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

package lpmodel

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Status is the outcome of a solve.
type Status int

const (
	// Optimal means an optimal solution was found.
	Optimal Status = iota
	// Infeasible means the model has no feasible solution.
	Infeasible
	// Unbounded means the objective can be improved without limit.
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "OPTIMAL"
	case Infeasible:
		return "INFEASIBLE"
	case Unbounded:
		return "UNBOUNDED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// integralityTol is the tolerance under which a value counts as integral
// during branch and bound.
const integralityTol = 1e-6

// simplexTol is the pivot tolerance handed to the simplex method.
const simplexTol = 1e-10

// Solution holds the result of solving a model. Values are only meaningful
// when Status is Optimal.
type Solution struct {
	Status    Status
	Objective float64

	values []float64
}

// Value returns the value of the variable in the solution.
func (s *Solution) Value(v Variable) float64 {
	return s.values[v.ind]
}

// ExprValue returns the value of the linear argument in the solution.
func (s *Solution) ExprValue(la LinearArgument) float64 {
	le := NewLinearExpr().Add(la)
	result := le.offset
	for _, vc := range le.varCoeffs {
		result += s.values[vc.ind] * vc.coeff
	}
	return result
}

// Values returns a copy of the solution vector indexed by VarIndex.
func (s *Solution) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Solve solves the model. Integer variables are handled by branch and bound
// on top of the simplex relaxation. The returned error covers model building
// errors and internal solver failures; infeasibility and unboundedness are
// reported through Solution.Status.
func Solve(b *Builder) (*Solution, error) {
	if b.err != nil {
		return nil, b.err
	}

	hasInteger := false
	for _, v := range b.vars {
		if v.integer {
			hasInteger = true
			break
		}
	}
	if !hasInteger {
		return solveRelaxation(b)
	}
	return branchAndBound(b)
}

// solveRelaxation solves the continuous relaxation of the model with the
// simplex method, converting the range-constraint form into the general form
// `G x <= h` first.
func solveRelaxation(b *Builder) (*Solution, error) {
	n := len(b.vars)

	c := make([]float64, n)
	for _, vc := range b.obj.coeffs {
		c[vc.ind] += vc.coeff
	}
	if b.obj.maximize {
		for i := range c {
			c[i] = -c[i]
		}
	}

	var g []float64
	var h []float64
	addRow := func(coeffs []float64, rhs float64) {
		g = append(g, coeffs...)
		h = append(h, rhs)
	}

	for _, ct := range b.constrs {
		row := make([]float64, n)
		for _, vc := range ct.coeffs {
			row[vc.ind] = vc.coeff
		}
		if !math.IsInf(ct.ub, 1) {
			addRow(row, ct.ub)
		}
		if !math.IsInf(ct.lb, -1) {
			neg := make([]float64, n)
			for i, v := range row {
				neg[i] = -v
			}
			addRow(neg, -ct.lb)
		}
	}
	for i, v := range b.vars {
		if !math.IsInf(v.ub, 1) {
			row := make([]float64, n)
			row[i] = 1
			addRow(row, v.ub)
		}
		if !math.IsInf(v.lb, -1) {
			row := make([]float64, n)
			row[i] = -1
			addRow(row, -v.lb)
		}
	}

	if n == 0 {
		for _, rhs := range h {
			if rhs < 0 {
				return &Solution{Status: Infeasible}, nil
			}
		}
		return &Solution{Status: Optimal, Objective: b.obj.offset}, nil
	}
	if len(h) == 0 {
		// Fully free model: any nonzero objective coefficient makes it
		// unbounded, otherwise the origin is optimal.
		for _, ci := range c {
			if ci != 0 {
				return &Solution{Status: Unbounded}, nil
			}
		}
		return &Solution{Status: Optimal, Objective: b.obj.offset, values: make([]float64, n)}, nil
	}

	gm := mat.NewDense(len(h), n, g)
	cNew, aNew, bNew := lp.Convert(c, gm, h, nil, nil)
	optF, xNew, err := lp.Simplex(cNew, aNew, bNew, simplexTol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &Solution{Status: Infeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &Solution{Status: Unbounded}, nil
	case err != nil:
		return nil, fmt.Errorf("simplex failed: %w", err)
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = xNew[i] - xNew[n+i]
	}
	obj := optF
	if b.obj.maximize {
		obj = -obj
	}
	obj += b.obj.offset

	return &Solution{Status: Optimal, Objective: obj, values: values}, nil
}

// branchAndBound runs depth-first branch and bound over the integer
// variables, using the simplex relaxation for bounding.
func branchAndBound(b *Builder) (*Solution, error) {
	root := b.Clone()

	// better compares objectives in the model's optimization sense.
	better := func(x, y float64) bool {
		if root.obj.maximize {
			return x > y+integralityTol
		}
		return x < y-integralityTol
	}

	var best *Solution
	stack := []*Builder{root}
	nodes := 0
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		rel, err := solveRelaxation(cur)
		if err != nil {
			return nil, err
		}
		if rel.Status == Unbounded {
			// An unbounded relaxation at the root means the integer model is
			// unbounded or infeasible; report unbounded and let the caller
			// tighten the formulation.
			return &Solution{Status: Unbounded}, nil
		}
		if rel.Status != Optimal {
			continue
		}
		if best != nil && !better(rel.Objective, best.Objective) {
			continue
		}

		branchVar := -1
		for i, v := range cur.vars {
			if !v.integer {
				continue
			}
			if math.Abs(rel.values[i]-math.Round(rel.values[i])) > integralityTol {
				branchVar = i
				break
			}
		}
		if branchVar < 0 {
			for i, v := range cur.vars {
				if v.integer {
					rel.values[i] = math.Round(rel.values[i])
				}
			}
			best = rel
			log.V(2).Infof("branch and bound: new incumbent %v after %d nodes", rel.Objective, nodes)
			continue
		}

		val := rel.values[branchVar]
		down := cur.Clone()
		down.vars[branchVar].ub = math.Min(down.vars[branchVar].ub, math.Floor(val))
		up := cur.Clone()
		up.vars[branchVar].lb = math.Max(up.vars[branchVar].lb, math.Ceil(val))
		stack = append(stack, down, up)
	}

	if best == nil {
		return &Solution{Status: Infeasible}, nil
	}
	return best, nil
}
