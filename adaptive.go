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

	"github.com/optkit/robustlp/lpmodel"
)

// Policy is the adaptivity policy of a decision variable.
type Policy int

const (
	// PolicyFixed is the default: the variable is a here-and-now decision
	// with no dependency on the uncertainty.
	PolicyFixed Policy = iota
	// PolicyAffine redefines the variable as an affine function of the
	// uncertain parameters it is declared to depend on.
	PolicyAffine
)

func (p Policy) String() string {
	switch p {
	case PolicyFixed:
		return "Fixed"
	case PolicyAffine:
		return "Affine"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

type adaptPolicy struct {
	kind Policy
	deps []ParamIndex
}

// SetAdapt declares the adaptivity policy of the variable. `deps` lists the
// uncertain parameters the variable may depend on; each entry must be a
// Param, a []Param, or a nested []any of those, and is flattened. Passing
// any other symbol kind fails with ErrTypeMismatch. Calling SetAdapt again
// for the same variable replaces the earlier declaration.
//
// Under PolicyAffine the variable's declared bounds constrain only its
// nominal component: the lifting substitutes `v + sum of aux*u` with free
// auxiliary coefficient variables, so the realized decision is not clipped
// to the bounds of v. Bound the realized decision with an explicit robust
// constraint when that matters.
func (m *Model) SetAdapt(v lpmodel.Variable, kind Policy, deps ...any) error {
	if v.Builder() != m.base {
		return m.recordErr(fmt.Errorf("adaptive variable of another model: %w", ErrOwnershipMismatch))
	}
	if kind != PolicyFixed && kind != PolicyAffine {
		return m.recordErr(fmt.Errorf("unrecognized policy kind %v: %w", kind, ErrTypeMismatch))
	}

	flat, err := m.flattenParams(deps)
	if err != nil {
		return m.recordErr(err)
	}
	if kind == PolicyFixed {
		delete(m.adapt, v.Index())
		return nil
	}

	seen := map[ParamIndex]bool{}
	var unique []ParamIndex
	for _, ind := range flat {
		if !seen[ind] {
			seen[ind] = true
			unique = append(unique, ind)
		}
	}
	m.adapt[v.Index()] = adaptPolicy{kind: kind, deps: unique}
	return nil
}

// flattenParams flattens nested parameter containers into a list of indices,
// validating ownership and symbol kind.
func (m *Model) flattenParams(deps []any) ([]ParamIndex, error) {
	var out []ParamIndex
	for _, d := range deps {
		switch dep := d.(type) {
		case Param:
			if dep.rm != m {
				return nil, fmt.Errorf("dependency parameter of another model: %w", ErrOwnershipMismatch)
			}
			out = append(out, dep.ind)
		case []Param:
			for _, p := range dep {
				if p.rm != m {
					return nil, fmt.Errorf("dependency parameter of another model: %w", ErrOwnershipMismatch)
				}
				out = append(out, p.ind)
			}
		case []any:
			nested, err := m.flattenParams(dep)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		default:
			return nil, fmt.Errorf("dependency %T is not an uncertain parameter: %w", d, ErrTypeMismatch)
		}
	}
	return out, nil
}

type auxKey struct {
	v lpmodel.VarIndex
	p ParamIndex
}

// expandAdaptive rewrites every robust constraint, substituting each
// affinely adaptive variable v with `v + sum over deps of aux(v,u) * u`.
// The auxiliary coefficient variables are created in `scratch` the first
// time a (variable, dependency) pair is needed and memoized, so repeated
// appearances reuse the same variables. The original constraints are not
// modified; the pass returns the lifted set.
func (m *Model) expandAdaptive(scratch *lpmodel.Builder) ([]RobustConstraint, error) {
	out := make([]RobustConstraint, 0, len(m.robustCts))
	if len(m.adapt) == 0 {
		return append(out, m.robustCts...), nil
	}

	memo := map[auxKey]lpmodel.Variable{}
	auxVar := func(v lpmodel.VarIndex, p ParamIndex) lpmodel.Variable {
		key := auxKey{v: v, p: p}
		if aux, ok := memo[key]; ok {
			return aux
		}
		aux := scratch.NewVar(math.Inf(-1), math.Inf(1)).
			WithName(fmt.Sprintf("_aff_%s_%s", scratch.Var(v).Name(), m.Param(p).Name()))
		memo[key] = aux
		return aux
	}

	for _, ct := range m.robustCts {
		lifted := NewMixedExpr()
		for _, t := range ct.Expr.terms {
			policy, adaptive := m.adapt[t.ind]
			if !adaptive || policy.kind != PolicyAffine {
				lifted.AddUncertainTerm(scratch.Var(t.ind), t.coeff)
				continue
			}
			coeff := t.coeff.Normalize()
			if len(coeff.terms) > 0 {
				return nil, fmt.Errorf("variable %s: %w", scratch.Var(t.ind).Name(), ErrAdaptiveCoefficient)
			}
			c := coeff.offset
			lifted.AddTerm(scratch.Var(t.ind), c)
			for _, p := range policy.deps {
				uc := NewUncertainExpr().AddTerm(m.Param(p), c)
				lifted.AddUncertainTerm(auxVar(t.ind, p), uc)
			}
		}
		lifted.AddUncertain(ct.Expr.offset)
		out = append(out, RobustConstraint{Expr: lifted.Normalize(), Lb: ct.Lb, Ub: ct.Ub})
	}
	return out, nil
}
