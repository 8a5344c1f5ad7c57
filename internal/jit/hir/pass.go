/*
 * Copyright 2023 Okapi Project Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hir

import (
    `time`

    `github.com/pkg/errors`
)

// Pass is a graph transformation that preserves program semantics. Passes
// assume and maintain SSA form.
type Pass interface {
    Apply(*Graph)
}

// PassDescriptor binds a pass to its driver-visible name.
type PassDescriptor struct {
    Name string
    Pass Pass
}

// Passes is the optimization pipeline in execution order. Type knowledge
// comes first so the simplifier can use it; simplification runs before
// bounds check elimination so the checks see canonical index expressions.
var Passes = [...]PassDescriptor {
    { Name: "Reference Type Propagation", Pass: ReferenceTypePropagation{} },
    { Name: "Instruction Simplifier",     Pass: InstructionSimplifier{}    },
    { Name: "Bounds Check Elimination",   Pass: BoundsCheckElimination{}   },
}

func isKnownPass(name string) bool {
    for _, p := range Passes {
        if p.Name == name {
            return true
        }
    }
    return false
}

// Optimize runs the pipeline over a graph in SSA form, honoring the
// configured pass filter, dumping after each pass when requested, and
// optionally verifying the graph between passes.
func Optimize(g *Graph, cfg Config) error {
    if !g.InSsaForm {
        return errors.New("optimization requires SSA form")
    }
    for _, p := range Passes {
        if cfg.passDisabled(p.Name) {
            log.Debugf("pass %q is disabled", p.Name)
            continue
        }
        t := time.Now()
        p.Pass.Apply(g)
        log.Debugf("pass %q finished in %v", p.Name, time.Since(t))
        if cfg.DumpDir != "" {
            if err := g.WriteDotFile(cfg.DumpDir, p.Name); err != nil {
                return errors.Wrapf(err, "cannot dump graph after pass %q", p.Name)
            }
        }
        if cfg.CheckAfterEachPass {
            if err := CheckGraph(g); err != nil {
                return errors.Wrapf(err, "pass %q broke the graph", p.Name)
            }
        }
    }
    return nil
}
