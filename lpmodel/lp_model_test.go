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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var exprCmp = cmp.AllowUnexported(LinearExpr{}, varCoeff{})

func TestLinearExpr_Accumulation(t *testing.T) {
	b := NewBuilder()
	x := b.NewVar(0, 10)
	y := b.NewVar(0, 10)

	got := NewLinearExpr().Add(x).AddTerm(y, 3).AddConstant(2)
	want := &LinearExpr{
		varCoeffs: []varCoeff{{ind: x.Index(), coeff: 1}, {ind: y.Index(), coeff: 3}},
		offset:    2,
	}
	if diff := cmp.Diff(want, got, exprCmp); diff != "" {
		t.Errorf("expression mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearExpr_AddScalesNested(t *testing.T) {
	b := NewBuilder()
	x := b.NewVar(0, 10)

	inner := NewLinearExpr().AddTerm(x, 2).AddConstant(1)
	got := NewLinearExpr().AddTerm(inner, -3)
	want := &LinearExpr{
		varCoeffs: []varCoeff{{ind: x.Index(), coeff: -6}},
		offset:    -3,
	}
	if diff := cmp.Diff(want, got, exprCmp); diff != "" {
		t.Errorf("expression mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearExpr_AddWeightedSum(t *testing.T) {
	b := NewBuilder()
	x := b.NewVar(0, 1)
	y := b.NewVar(0, 1)

	got := NewLinearExpr().AddWeightedSum([]LinearArgument{x, y}, []float64{2, 5})
	want := NewLinearExpr().AddTerm(x, 2).AddTerm(y, 5)
	if diff := cmp.Diff(want, got, exprCmp); diff != "" {
		t.Errorf("expression mismatch (-want +got):\n%s", diff)
	}
}

func TestVariable_NameAndBounds(t *testing.T) {
	b := NewBuilder()
	x := b.NewVar(-1, 4).WithName("prod")
	y := b.NewIntVar(0, 8)

	if got, want := x.Name(), "prod"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
	if got, want := y.Name(), "x1"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
	lb, ub := x.Bounds()
	if lb != -1 || ub != 4 {
		t.Errorf("Bounds() = (%v, %v), want (-1, 4)", lb, ub)
	}
	if x.Integer() {
		t.Errorf("Integer() = true for continuous variable")
	}
	if !y.Integer() {
		t.Errorf("Integer() = false for integer variable")
	}
}

func TestBuilder_AddLinearConstraintFoldsOffset(t *testing.T) {
	b := NewBuilder()
	x := b.NewVar(0, 10)

	expr := NewLinearExpr().Add(x).AddConstant(3)
	ct := b.AddLinearConstraint(expr, 1, 5)

	data := b.constrs[ct.Index()]
	if data.lb != -2 || data.ub != 2 {
		t.Errorf("stored bounds = [%v, %v], want [-2, 2]", data.lb, data.ub)
	}
}

func TestBuilder_ConstraintCollapsesDuplicates(t *testing.T) {
	b := NewBuilder()
	x := b.NewVar(0, 10)

	expr := NewLinearExpr().Add(x).AddTerm(x, 2)
	ct := b.AddLinearConstraint(expr, 0, 1)

	data := b.constrs[ct.Index()]
	if len(data.coeffs) != 1 || data.coeffs[0].coeff != 3 {
		t.Errorf("stored coefficients = %v, want one term with coefficient 3", data.coeffs)
	}
}

func TestBuilder_Clone(t *testing.T) {
	b := NewBuilder()
	x := b.NewVar(0, 10)
	b.AddLinearConstraint(NewLinearExpr().Add(x), 0, 5)
	b.Minimize(NewLinearExpr().Add(x))

	c := b.Clone()
	c.NewVar(0, 1)
	c.vars[x.Index()].ub = 99
	c.AddLinearConstraint(NewLinearExpr().Add(x), 0, 1)

	if got, want := b.NumVars(), 1; got != want {
		t.Errorf("original NumVars() = %v, want %v", got, want)
	}
	if got, want := b.NumConstraints(), 1; got != want {
		t.Errorf("original NumConstraints() = %v, want %v", got, want)
	}
	if _, ub := x.Bounds(); ub != 10 {
		t.Errorf("original upper bound = %v, want 10", ub)
	}
}

func TestBuilder_MixedBuilders(t *testing.T) {
	b1 := NewBuilder()
	b2 := NewBuilder()
	foreign := b2.NewVar(0, 1)

	b1.SetBounds(foreign, 0, 2)

	if err := b1.Err(); !errors.Is(err, ErrMixedBuilders) {
		t.Errorf("Err() = %v, want ErrMixedBuilders", err)
	}
	if _, err := Solve(b1); !errors.Is(err, ErrMixedBuilders) {
		t.Errorf("Solve() error = %v, want ErrMixedBuilders", err)
	}
}

func TestBuilder_ComparisonSugar(t *testing.T) {
	testCases := []struct {
		name   string
		add    func(b *Builder, x Variable) Constraint
		wantLb float64
		wantUb float64
	}{
		{
			name:   "Equality",
			add:    func(b *Builder, x Variable) Constraint { return b.AddEquality(x, NewConstant(3)) },
			wantLb: 3,
			wantUb: 3,
		},
		{
			name:   "LessOrEqual",
			add:    func(b *Builder, x Variable) Constraint { return b.AddLessOrEqual(x, NewConstant(3)) },
			wantLb: math.Inf(-1),
			wantUb: 3,
		},
		{
			name:   "GreaterOrEqual",
			add:    func(b *Builder, x Variable) Constraint { return b.AddGreaterOrEqual(x, NewConstant(3)) },
			wantLb: 3,
			wantUb: math.Inf(1),
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			b := NewBuilder()
			x := b.NewVar(0, 10)
			ct := test.add(b, x)
			data := b.constrs[ct.Index()]
			if data.lb != test.wantLb || data.ub != test.wantUb {
				t.Errorf("stored bounds = [%v, %v], want [%v, %v]", data.lb, data.ub, test.wantLb, test.wantUb)
			}
		})
	}
}
