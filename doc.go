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

// Package robustlp builds and solves robust optimization models: linear
// models whose constraints must hold for every realization of uncertain
// parameters ranging over an uncertainty set.
//
// A Model wraps a deterministic lpmodel.Builder and adds uncertain
// parameters, pure-uncertainty constraints defining the uncertainty set, and
// robust constraints over MixedExpr expressions whose variable coefficients
// may themselves depend on the parameters. Each robust constraint is bound
// to an Oracle that produces its deterministic counterpart: the default
// PolyhedralOracle dualizes polyhedral sets in closed form, while
// WorstCaseOracle separates violating realizations inside a cutting-plane
// loop. Variables can be declared affinely adaptive on a subset of the
// parameters with SetAdapt; they are lifted before any oracle runs.
//
// Solve reformulates the model and delegates to the solver in lpmodel,
// passing its status through unchanged.
package robustlp
