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
	"errors"
	"math"
	"testing"
)

func TestNewParam_BadBounds(t *testing.T) {
	m := NewModel()

	_, err := m.NewParam(3, 1)
	if !errors.Is(err, ErrParamBounds) {
		t.Errorf("NewParam(3, 1) = %v, want ErrParamBounds", err)
	}
	if err := m.Err(); !errors.Is(err, ErrParamBounds) {
		t.Errorf("Err() = %v, want the pending ErrParamBounds", err)
	}
	if _, err := m.Solve(); !errors.Is(err, ErrParamBounds) {
		t.Errorf("Solve() = %v, want the pending ErrParamBounds", err)
	}
}

func TestNewParam_Declaration(t *testing.T) {
	m := NewModel()
	u := mustParam(t, m, -1, 2)
	w, err := m.NewIntParam(0, 3)
	if err != nil {
		t.Fatalf("NewIntParam(0, 3) failed: %v", err)
	}

	if lb, ub := u.Bounds(); lb != -1 || ub != 2 {
		t.Errorf("Bounds() = (%v, %v), want (-1, 2)", lb, ub)
	}
	if u.Integer() {
		t.Errorf("Integer() = true for continuous parameter")
	}
	if !w.Integer() {
		t.Errorf("Integer() = false for integer parameter")
	}
	if got, want := m.NumParams(), 2; got != want {
		t.Errorf("NumParams() = %v, want %v", got, want)
	}
}

func TestParam_Names(t *testing.T) {
	m := NewModel()
	u := mustParam(t, m, 0, 1)
	w := mustParam(t, m, 0, 1).WithName("demand")

	if got, want := u.Name(), "u0"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
	if got, want := w.Name(), "demand"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
	if got, want := m.Param(w.Index()).Name(), "demand"; got != want {
		t.Errorf("Param(%v).Name() = %q, want %q", w.Index(), got, want)
	}
}

func TestModel_OracleAlignment(t *testing.T) {
	m := NewModel()
	u := mustParam(t, m, 0, 1)
	x := m.NewVar(0, 1)
	wc := NewWorstCaseOracle()

	expr := func() *MixedExpr { return NewMixedExpr().Add(x).AddUncertain(u) }
	if err := m.AddRobustConstraint(expr(), 0, 1); err != nil {
		t.Fatalf("AddRobustConstraint() failed: %v", err)
	}
	if err := m.AddRobustConstraintWithOracle(expr(), 0, 1, wc); err != nil {
		t.Fatalf("AddRobustConstraintWithOracle() failed: %v", err)
	}
	if err := m.AddRobustConstraintWithOracle(expr(), 0, 1, nil); err != nil {
		t.Fatalf("AddRobustConstraintWithOracle(nil) failed: %v", err)
	}

	if got, want := m.NumRobustConstraints(), 3; got != want {
		t.Fatalf("NumRobustConstraints() = %v, want %v", got, want)
	}
	if got, want := len(m.oracles), 3; got != want {
		t.Fatalf("len(oracles) = %v, want %v", got, want)
	}
	if m.oracles[0] != m.defaultOracle {
		t.Errorf("constraint 0 is not bound to the default oracle")
	}
	if m.oracles[1] != Oracle(wc) {
		t.Errorf("constraint 1 is not bound to the explicit oracle")
	}
	if m.oracles[2] != m.defaultOracle {
		t.Errorf("constraint 2 with nil oracle is not bound to the default oracle")
	}
}

func TestModel_SetDefaultOracle(t *testing.T) {
	m := NewModel()
	u := mustParam(t, m, 0, 1)
	x := m.NewVar(0, 1)
	wc := NewWorstCaseOracle()

	m.SetDefaultOracle(wc)
	if err := m.AddRobustConstraint(NewMixedExpr().Add(x).AddUncertain(u), 0, 1); err != nil {
		t.Fatalf("AddRobustConstraint() failed: %v", err)
	}
	if m.oracles[0] != Oracle(wc) {
		t.Errorf("constraint added after SetDefaultOracle is not bound to the new default")
	}
}

func TestModel_ForeignMixedExprRejected(t *testing.T) {
	m1 := NewModel()
	m2 := NewModel()
	u2 := mustParam(t, m2, 0, 1)
	x1 := m1.NewVar(0, 1)

	// Variables of m1, parameters of m2: rejected by either model.
	expr := NewMixedExpr().AddUncertainTerm(x1, u2)
	if err := m1.AddRobustConstraint(expr, 0, 1); !errors.Is(err, ErrOwnershipMismatch) {
		t.Errorf("AddRobustConstraint() on m1 = %v, want ErrOwnershipMismatch", err)
	}

	expr2 := NewMixedExpr().AddUncertainTerm(x1, u2)
	if err := m2.AddRobustConstraint(expr2, 0, 1); !errors.Is(err, ErrOwnershipMismatch) {
		t.Errorf("AddRobustConstraint() on m2 = %v, want ErrOwnershipMismatch", err)
	}
}

func TestUncertaintySet_Freeze(t *testing.T) {
	m := NewModel()
	u := mustParam(t, m, 0, 2)
	w := mustParam(t, m, -1, 1)
	if err := m.AddUncertainConstraint(NewUncertainExpr().AddSum(u, w), math.Inf(-1), 1.5); err != nil {
		t.Fatalf("AddUncertainConstraint() failed: %v", err)
	}

	us := m.uncertaintySet()
	if got, want := us.NumParams(), 2; got != want {
		t.Fatalf("NumParams() = %v, want %v", got, want)
	}
	if lb, ub := us.Bounds(u.Index()); lb != 0 || ub != 2 {
		t.Errorf("Bounds(u) = (%v, %v), want (0, 2)", lb, ub)
	}
	if got, want := len(us.Constraints()), 1; got != want {
		t.Fatalf("len(Constraints()) = %v, want %v", got, want)
	}

	// Mutating the model afterwards must not leak into the frozen view.
	mustParam(t, m, 0, 1)
	if got, want := us.NumParams(), 2; got != want {
		t.Errorf("NumParams() after model mutation = %v, want %v", got, want)
	}
}

func TestUncertaintySet_NominalRealization(t *testing.T) {
	m := NewModel()
	mustParam(t, m, 0, 2)
	mustParam(t, m, -4, math.Inf(1))
	mustParam(t, m, math.Inf(-1), 6)
	mustParam(t, m, math.Inf(-1), math.Inf(1))

	got := m.uncertaintySet().nominalRealization()
	want := []float64{1, -4, 6, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("nominalRealization()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUncertaintySet_Polytope(t *testing.T) {
	m := NewModel()
	u := mustParam(t, m, 0, 1)
	w := mustParam(t, m, 0, math.Inf(1))
	if err := m.AddUncertainConstraint(NewUncertainExpr().Add(u).AddTerm(w, 2).AddConstant(1), 1, 3); err != nil {
		t.Fatalf("AddUncertainConstraint() failed: %v", err)
	}

	rows, rhs := m.uncertaintySet().polytope()
	// u <= 1, -u <= 0, w's infinite upper bound skipped, -w <= 0, then the
	// constraint's two sides with the offset folded: u + 2w <= 2 and
	// -u - 2w <= 0.
	wantRows := [][]float64{{1, 0}, {-1, 0}, {0, -1}, {1, 2}, {-1, -2}}
	wantRhs := []float64{1, 0, 0, 2, 0}
	if len(rows) != len(wantRows) {
		t.Fatalf("polytope() produced %d rows, want %d", len(rows), len(wantRows))
	}
	for r := range wantRows {
		for i := range wantRows[r] {
			if rows[r][i] != wantRows[r][i] {
				t.Errorf("row %d = %v, want %v", r, rows[r], wantRows[r])
				break
			}
		}
		if rhs[r] != wantRhs[r] {
			t.Errorf("rhs %d = %v, want %v", r, rhs[r], wantRhs[r])
		}
	}
}
