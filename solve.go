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
	"math"
	"runtime"
	"sync"
	"time"

	log "github.com/golang/glog"

	"github.com/optkit/robustlp/lpmodel"
)

const (
	// DefaultViolationTolerance is the violation below which a robust
	// constraint counts as satisfied during separation.
	DefaultViolationTolerance = 1e-6
	// DefaultMaxIterations caps the cutting-plane loop.
	DefaultMaxIterations = 200
)

// SolveParameters configures a solve.
//   - MaxIterations: cap on cutting-plane rounds (default 200).
//   - Tolerance: violation tolerance handed to separation oracles
//     (default 1e-6); an oracle constructed with its own tolerance keeps it.
//   - TimeLimit: wall-clock budget for the cutting-plane loop, 0 for none.
//   - Workers: separation parallelism within one round, 0 for GOMAXPROCS.
type SolveParameters struct {
	MaxIterations int
	Tolerance     float64
	TimeLimit     time.Duration
	Workers       int
}

// DefaultSolveParameters returns the documented defaults.
func DefaultSolveParameters() SolveParameters {
	return SolveParameters{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultViolationTolerance,
	}
}

// Path reports which reformulation strategy produced the result.
type Path int

const (
	// PathNone means the model had no robust constraints.
	PathNone Path = iota
	// PathDirect means every robust constraint was dualized up front.
	PathDirect
	// PathIterative means every robust constraint went through the
	// cutting-plane loop.
	PathIterative
	// PathHybrid means both strategies were used.
	PathHybrid
)

func (p Path) String() string {
	switch p {
	case PathNone:
		return "None"
	case PathDirect:
		return "Direct"
	case PathIterative:
		return "Iterative"
	case PathHybrid:
		return "Hybrid"
	}
	return fmt.Sprintf("Path(%d)", int(p))
}

// Result is the outcome of a solve. Status is the underlying solver's status
// passed through unchanged. LimitReached marks a cutting-plane loop that hit
// its iteration or time budget before converging; the carried solution is
// then the best candidate found and may still violate a robust constraint.
type Result struct {
	Status       lpmodel.Status
	Path         Path
	Iterations   int
	LimitReached bool
	Objective    float64

	sol *lpmodel.Solution
}

// Value returns the value of the variable in the result, or NaN when the
// result carries no solution.
func (r *Result) Value(v lpmodel.Variable) float64 {
	if r.sol == nil {
		return math.NaN()
	}
	return r.sol.Value(v)
}

// Solve runs the full reformulation and solves the deterministic
// counterpart with the default parameters.
func (m *Model) Solve() (*Result, error) {
	return m.SolveWithParameters(DefaultSolveParameters())
}

// SolveWithParameters drives one solve: expand adaptive variables, set up
// each referenced oracle against the frozen uncertainty set, dualize the
// directly reformulable constraints, run the cutting-plane loop for the
// rest, and delegate the final deterministic model to the solver. The
// model's declarative state is read but never consumed, so repeated calls
// re-run the full reformulation.
func (m *Model) SolveWithParameters(p SolveParameters) (*Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := m.base.Err(); err != nil {
		return nil, err
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = DefaultMaxIterations
	}
	if p.Tolerance <= 0 {
		p.Tolerance = DefaultViolationTolerance
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	start := time.Now()

	scratch := m.base.Clone()
	us := m.uncertaintySet()

	log.V(1).Infof("solve: expanding adaptive policies over %d robust constraints", len(m.robustCts))
	cts, err := m.expandAdaptive(scratch)
	if err != nil {
		return nil, err
	}

	seen := map[Oracle]bool{}
	for i := range cts {
		o := m.oracles[i]
		if seen[o] {
			continue
		}
		seen[o] = true
		if err := o.Setup(m, us); err != nil {
			return nil, err
		}
	}

	var direct, iterative []int
	for i := range cts {
		if _, ok := m.oracles[i].(Separator); ok {
			iterative = append(iterative, i)
		} else {
			direct = append(direct, i)
		}
	}
	path := PathNone
	switch {
	case len(direct) > 0 && len(iterative) > 0:
		path = PathHybrid
	case len(direct) > 0:
		path = PathDirect
	case len(iterative) > 0:
		path = PathIterative
	}

	log.V(1).Infof("solve: dualizing %d constraints, separating %d", len(direct), len(iterative))
	for _, i := range direct {
		if err := m.oracles[i].Reformulate(&cts[i], scratch); err != nil {
			return nil, err
		}
	}

	if len(iterative) == 0 {
		sol, err := lpmodel.Solve(scratch)
		if err != nil {
			return nil, fmt.Errorf("robustlp: deterministic solve: %w", err)
		}
		res := &Result{Status: sol.Status, Path: path, Objective: sol.Objective}
		if sol.Status == lpmodel.Optimal {
			res.sol = sol
		}
		return res, nil
	}

	// When the uncertainty set is a plain box, its midpoint is always
	// feasible; seed the relaxation with that scenario so the first
	// candidate is already grounded.
	if len(us.cts) == 0 && us.NumParams() > 0 {
		u := us.nominalRealization()
		for _, i := range iterative {
			scratch.AddLinearConstraint(cts[i].Expr.atRealization(u, scratch), cts[i].Lb, cts[i].Ub)
		}
	}

	for iter := 1; ; iter++ {
		sol, err := lpmodel.Solve(scratch)
		if err != nil {
			return nil, fmt.Errorf("robustlp: deterministic solve: %w", err)
		}
		if sol.Status != lpmodel.Optimal {
			return &Result{Status: sol.Status, Path: path, Iterations: iter}, nil
		}
		candidate := sol.Values()

		// Separate every iterative constraint against the frozen candidate
		// in parallel; cuts are applied only after the barrier.
		reals := make([]*Realization, len(iterative))
		errs := make([]error, len(iterative))
		var wg sync.WaitGroup
		sem := make(chan struct{}, p.Workers)
		for k, i := range iterative {
			wg.Add(1)
			go func(k, i int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				r, err := m.oracles[i].(Separator).Separate(&cts[i], candidate, p.Tolerance)
				reals[k], errs[k] = r, err
			}(k, i)
		}
		wg.Wait()

		for k, i := range iterative {
			if errs[k] == nil {
				continue
			}
			var sepErr *SeparationError
			if errors.As(errs[k], &sepErr) && sepErr.Constraint < 0 {
				sepErr.Constraint = i
			}
			return nil, errs[k]
		}

		violated := 0
		for k, i := range iterative {
			if reals[k] == nil {
				continue
			}
			violated++
			scratch.AddLinearConstraint(cts[i].Expr.atRealization(reals[k].Values, scratch), cts[i].Lb, cts[i].Ub)
		}
		if violated == 0 {
			log.V(1).Infof("solve: cutting-plane loop converged after %d iterations", iter)
			return &Result{Status: sol.Status, Path: path, Iterations: iter, Objective: sol.Objective, sol: sol}, nil
		}
		log.V(2).Infof("solve: iteration %d added %d cuts", iter, violated)

		if iter >= p.MaxIterations || (p.TimeLimit > 0 && time.Since(start) > p.TimeLimit) {
			log.Warningf("solve: cutting-plane loop stopped at iteration %d without converging", iter)
			return &Result{Status: sol.Status, Path: path, Iterations: iter, LimitReached: true, Objective: sol.Objective, sol: sol}, nil
		}
	}
}
