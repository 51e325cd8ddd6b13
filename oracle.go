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
	"fmt"

	"github.com/optkit/robustlp/lpmodel"
)

// Modeling-time errors. They are detected eagerly and returned by the model
// operation that triggered them; a pending error also fails the next solve.
var (
	// ErrOwnershipMismatch indicates an expression built from symbols of
	// different models.
	ErrOwnershipMismatch = errors.New("robustlp: expression mixes symbols from different models")
	// ErrTypeMismatch indicates an adaptivity declaration against a symbol
	// that is not an uncertain parameter, or an unrecognized policy kind.
	ErrTypeMismatch = errors.New("robustlp: type mismatch")
	// ErrParamBounds indicates a parameter declared with its lower bound
	// above its upper bound.
	ErrParamBounds = errors.New("robustlp: parameter lower bound exceeds upper bound")
	// ErrAdaptiveCoefficient indicates an adaptive variable multiplied by an
	// uncertain coefficient; the affine lifting of such a product is
	// quadratic in the uncertainty and not representable.
	ErrAdaptiveCoefficient = errors.New("robustlp: adaptive variable has an uncertain coefficient")
)

// SetupError is returned by an oracle whose supported form cannot represent
// the model's uncertainty set. It aborts the whole solve.
type SetupError struct {
	Oracle string
	Reason string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("robustlp: %s setup: %s", e.Oracle, e.Reason)
}

// SeparationError is returned when the worst-case subproblem of a separation
// oracle itself fails or is unbounded. It aborts the whole solve.
type SeparationError struct {
	Constraint int
	Status     lpmodel.Status
	Err        error
}

func (e *SeparationError) Error() string {
	detail := fmt.Sprintf("subproblem %v", e.Status)
	if e.Err != nil {
		detail = e.Err.Error()
	}
	if e.Constraint < 0 {
		return fmt.Sprintf("robustlp: separation: %s", detail)
	}
	return fmt.Sprintf("robustlp: separation for constraint %d: %s", e.Constraint, detail)
}

func (e *SeparationError) Unwrap() error {
	return e.Err
}

// Realization is one assignment of values to all uncertain parameters,
// indexed by ParamIndex.
type Realization struct {
	Values []float64
}

// Oracle produces the deterministic reformulation of robust constraints
// bound to it, with respect to the model's uncertainty set.
//
// Setup is called once per solve before any reformulation and lets the
// oracle precompute structures from the uncertainty set; it must return a
// *SetupError if the set is not representable in the oracle's supported
// form. Reformulate is called once per bound constraint and must append
// ordinary variable-only constraints, possibly with new auxiliary variables,
// to `into`, whose conjunction is equivalent to the robust constraint
// holding for every realization feasible in the uncertainty set.
type Oracle interface {
	Setup(m *Model, us *UncertaintySet) error
	Reformulate(ct *RobustConstraint, into *lpmodel.Builder) error
}

// Separator is implemented by oracles that reformulate iteratively instead
// of up front. Separate finds the realization maximizing the violation of
// the constraint at the candidate solution, returning nil when the
// constraint holds for all feasible realizations within tolerance. `tol` is
// the violation tolerance of the running solve; an oracle configured with
// its own tolerance may prefer that instead. Constraints bound to a
// Separator are driven through the cutting-plane loop by the solve
// orchestrator.
type Separator interface {
	Oracle
	Separate(ct *RobustConstraint, candidate []float64, tol float64) (*Realization, error)
}
