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

import "fmt"

// ParamIndex is the index of an uncertain parameter in its owning model.
type ParamIndex int32

// Param is a reference to an uncertain parameter in a Model. Its value is not
// chosen by the optimizer; it ranges over the model's uncertainty set.
type Param struct {
	ind ParamIndex
	rm  *Model
}

type paramData struct {
	lb, ub  float64
	integer bool
	name    string
}

// Index returns the index of the parameter.
func (p Param) Index() ParamIndex {
	return p.ind
}

// Name returns the name of the parameter. If no name was set, a name is
// synthesized from the parameter's index.
func (p Param) Name() string {
	if name := p.rm.params[p.ind].name; name != "" {
		return name
	}
	return fmt.Sprintf("u%d", p.ind)
}

// WithName sets the name of the parameter.
func (p Param) WithName(s string) Param {
	p.rm.params[p.ind].name = s
	return p
}

// Bounds returns the lower and upper bound of the parameter.
func (p Param) Bounds() (lb, ub float64) {
	d := p.rm.params[p.ind]
	return d.lb, d.ub
}

// Integer reports whether the parameter is restricted to integer values.
func (p Param) Integer() bool {
	return p.rm.params[p.ind].integer
}

func (p Param) addToUncertainExpr(e *UncertainExpr, c float64) {
	e.adoptOwner(p.rm)
	e.terms = append(e.terms, paramCoeff{ind: p.ind, coeff: c})
}
