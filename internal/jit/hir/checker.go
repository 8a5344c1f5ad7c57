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
    `fmt`
    `strings`

    `github.com/davecgh/go-spew/spew`
    `github.com/pkg/errors`
)

// CheckGraph validates the structural invariants the passes rely on: edge
// reciprocity, terminator placement, use table symmetry, phi alignment with
// predecessors, and dominance of every input over its users. Violations are
// collected and reported together. Intended for tests and for the optional
// verification between passes.
func CheckGraph(g *Graph) error {
    c := checker { g: g }
    for _, b := range g.Blocks {
        if b != nil {
            c.checkBlock(b)
        }
    }
    if len(c.faults) == 0 {
        return nil
    }
    return errors.Errorf("broken graph:\n  %s", strings.Join(c.faults, "\n  "))
}

type checker struct {
    g      *Graph
    faults []string
}

func (self *checker) failf(format string, args ...interface{}) {
    self.faults = append(self.faults, fmt.Sprintf(format, args...))
}

func (self *checker) checkBlock(b *BasicBlock) {
    if b.Graph != self.g {
        self.failf("bb_%d belongs to another graph", b.Id)
    }
    for _, s := range b.Succ {
        if !hasPred(s, b) {
            self.failf("edge bb_%d -> bb_%d is not mirrored in the predecessor list", b.Id, s.Id)
        }
    }
    for _, p := range b.Pred {
        if !hasSucc(p, b) {
            self.failf("edge bb_%d <- bb_%d is not mirrored in the successor list", b.Id, p.Id)
        }
    }
    if !b.EndsWithControlFlow() {
        self.failf("bb_%d does not end with a control flow instruction", b.Id)
    }
    for i, v := range b.Ins {
        if v.IsControlFlow() && i != len(b.Ins)-1 {
            self.failf("control flow instruction i%d is not last in bb_%d", v.ID(), b.Id)
        }
        self.checkInstruction(b, v)
    }
    for _, p := range b.Phi {
        if p.InputCount() != len(b.Pred) {
            self.failf("phi i%d has %d inputs for %d predecessors of bb_%d:\n%s",
                p.ID(), p.InputCount(), len(b.Pred), b.Id, spew.Sdump(p.Inputs()))
        }
        self.checkInstruction(b, p)
    }
    if n := len(b.Succ); n > 1 {
        for _, s := range b.Succ {
            if len(s.Pred) > 1 {
                self.failf("critical edge bb_%d -> bb_%d", b.Id, s.Id)
            }
        }
    }
    if b.IsLoopHeader() {
        self.checkLoopHeader(b)
    }
}

func (self *checker) checkLoopHeader(b *BasicBlock) {
    info := b.Loop
    if info.NumberOfBackEdges() == 0 {
        self.failf("loop header bb_%d has no back edges", b.Id)
    }
    for i, p := range b.Pred {
        if (i == 0) == info.IsBackEdge(p) {
            self.failf("loop header bb_%d predecessor %d ordering is broken", b.Id, i)
        }
    }
    for _, e := range info.BackEdges() {
        if !b.Dominates(e) {
            self.failf("back edge bb_%d is not dominated by header bb_%d", e.Id, b.Id)
        }
    }
}

func (self *checker) checkInstruction(b *BasicBlock, v Instruction) {
    if v.Block() != b {
        self.failf("i%d is listed in bb_%d but points to another block", v.ID(), b.Id)
    }
    for i, in := range v.Inputs() {
        if !hasUseRecord(in, v, i) {
            self.failf("i%d input %d (i%d) is missing the matching use record", v.ID(), i, in.ID())
        }
        if in.Block() == nil {
            self.failf("i%d input %d (i%d) is not attached to any block", v.ID(), i, in.ID())
        }
    }
    for _, u := range v.Uses() {
        if u.User.InputCount() <= u.Index || u.User.InputAt(u.Index) != Instruction(v) {
            self.failf("stale use record (i%d, %d) on i%d", u.User.ID(), u.Index, v.ID())
        }
    }
    if self.g.InSsaForm {
        self.checkDominanceOfInputs(b, v)
    }
    if v.NeedsEnvironment() && v.Env() == nil {
        self.failf("i%d needs an environment but has none", v.ID())
    }
    if env := v.Env(); env != nil {
        for i := 0; i < env.Size(); i++ {
            if s := env.At(i); s != nil && !hasEnvUseRecord(s, env, i) {
                self.failf("env slot %d of i%d is missing the matching env use record", i, v.ID())
            }
        }
    }
}

func (self *checker) checkDominanceOfInputs(b *BasicBlock, v Instruction) {
    if p, ok := v.(*Phi); ok {
        for i, in := range p.Inputs() {
            if i < len(b.Pred) && !in.Block().Dominates(b.Pred[i]) {
                self.failf("phi i%d input %d (i%d) does not dominate predecessor bb_%d",
                    p.ID(), i, in.ID(), b.Pred[i].Id)
            }
        }
        return
    }
    for i, in := range v.Inputs() {
        if !in.StrictlyDominates(v) {
            self.failf("i%d input %d (i%d) does not dominate its use", v.ID(), i, in.ID())
        }
    }
}

func hasPred(b *BasicBlock, p *BasicBlock) bool {
    for _, v := range b.Pred {
        if v == p {
            return true
        }
    }
    return false
}

func hasSucc(b *BasicBlock, s *BasicBlock) bool {
    for _, v := range b.Succ {
        if v == s {
            return true
        }
    }
    return false
}

func hasUseRecord(producer Instruction, user Instruction, index int) bool {
    for _, u := range producer.Uses() {
        if u.User == user && u.Index == index {
            return true
        }
    }
    return false
}

func hasEnvUseRecord(producer Instruction, env *Environment, index int) bool {
    for _, u := range producer.EnvUses() {
        if u.Env == env && u.Index == index {
            return true
        }
    }
    return false
}
