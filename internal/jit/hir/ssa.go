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
    `math`
)

// BuildSsa converts the graph from named locals to SSA form: it builds the
// dominator tree, threads local values through the CFG replacing every
// LoadLocal and StoreLocal with direct data flow, places phis at merge
// points and loop headers, snapshots deoptimization environments, types the
// phis, and prunes the ones nothing observes. Irreducible control flow is
// reported as an error and leaves the graph unfit for optimization.
func (self *Graph) BuildSsa() error {
    self.BuildDominatorTree()
    if err := self.AnalyzeNaturalLoops(); err != nil {
        return err
    }
    b := ssaBuilder { g: self, out: make([][]Instruction, len(self.Blocks)) }
    for _, blk := range self.ReversePostOrder() {
        b.visitBlock(blk)
    }
    b.fixLoopPhis()
    b.stripLocals()
    PrimitiveTypePropagation{}.Apply(self)
    EliminateRedundantPhis(self)
    MarkDeadPhis(self)
    EliminateDeadPhis(self)
    self.InSsaForm = true
    log.Debugf("ssa construction done: %d blocks", len(self.ReversePostOrder()))
    return nil
}

// ssaBuilder carries the per-block local state: out[id] holds the value of
// every local slot at the end of block id.
type ssaBuilder struct {
    g   *Graph
    out [][]Instruction
}

func (self *ssaBuilder) visitBlock(b *BasicBlock) {
    current := make([]Instruction, self.g.MaxLocals)
    switch {
        case b.IsLoopHeader():
            /* back edge values are not known yet; seed one-input phis from
             * the pre-header and complete them in fixLoopPhis */
            pre := self.out[b.Loop.PreHeader().Id]
            for r, v := range pre {
                if v != nil {
                    p := NewPhi(r, v.Type().StorageClass())
                    p.AddInput(v)
                    b.AddPhi(p)
                    current[r] = p
                }
            }
        case len(b.Pred) == 1:
            copy(current, self.out[b.Pred[0].Id])
        case len(b.Pred) > 1:
            self.mergePredecessors(b, current)
    }
    ins := make([]Instruction, len(b.Ins))
    copy(ins, b.Ins)
    for _, v := range ins {
        switch p := v.(type) {
            case *LoadLocal  : self.visitLoadLocal(b, p, current)
            case *StoreLocal : self.visitStoreLocal(b, p, current)
            default:
                if v.NeedsEnvironment() && v.Env() == nil {
                    env := NewEnvironment(len(current))
                    env.CopyFrom(current)
                    v.SetEnvironment(env)
                }
        }
    }
    self.out[b.Id] = current
}

// mergePredecessors computes the locals at the entry of a join block: a slot
// defined identically on all paths keeps its value, a slot with differing
// definitions gets a phi, a slot undefined on any path stays undefined.
func (self *ssaBuilder) mergePredecessors(b *BasicBlock, current []Instruction) {
    vals := make([]Instruction, len(b.Pred))
    for r := range current {
        undef := false
        for i, p := range b.Pred {
            if vals[i] = self.out[p.Id][r]; vals[i] == nil {
                undef = true
                break
            }
        }
        if undef {
            continue
        }
        same := true
        for _, v := range vals[1:] {
            if v != vals[0] {
                same = false
                break
            }
        }
        if same {
            current[r] = vals[0]
            continue
        }
        p := NewPhi(r, vals[0].Type().StorageClass())
        for _, v := range vals {
            p.AddInput(v)
        }
        b.AddPhi(p)
        current[r] = p
    }
}

func (self *ssaBuilder) visitLoadLocal(b *BasicBlock, v *LoadLocal, current []Instruction) {
    r := v.Local().Reg()
    val := current[r]
    if val == nil {
        panic(fmt.Sprintf("hir: local r%d read before write in bb_%d", r, b.Id))
    }
    if val.Type().StorageClass() != v.Type().StorageClass() {
        /* the slot is reused under a different interpretation */
        if val = typedEquivalentOf(self.g, val, v.Type().StorageClass()); val == nil {
            panic(fmt.Sprintf("hir: local r%d has no %s interpretation", r, v.Type()))
        }
    }
    v.ReplaceWith(val)
    b.RemoveInstruction(v)
}

func (self *ssaBuilder) visitStoreLocal(b *BasicBlock, v *StoreLocal, current []Instruction) {
    r := v.Local().Reg()
    current[r] = v.Value()
    if v.Value().Type().Is64Bit() && r+1 < len(current) {
        /* a wide value clobbers the adjacent slot */
        current[r+1] = nil
    }
    b.RemoveInstruction(v)
}

// fixLoopPhis appends the back edge inputs to every loop header phi, now
// that the loop bodies have been processed. Predecessor 0 of a header is
// always the pre-header, the rest are back edges.
func (self *ssaBuilder) fixLoopPhis() {
    for _, b := range self.g.ReversePostOrder() {
        if !b.IsLoopHeader() {
            continue
        }
        for _, p := range b.Phi {
            for _, e := range b.Pred[1:] {
                v := self.out[e.Id][p.Reg()]
                if v == nil {
                    panic(fmt.Sprintf("hir: local r%d undefined on back edge bb_%d", p.Reg(), e.Id))
                }
                p.AddInput(v)
            }
        }
    }
}

// stripLocals removes the now-unused Local name holders from the entry
// block.
func (self *ssaBuilder) stripLocals() {
    ins := make([]Instruction, len(self.g.Entry.Ins))
    copy(ins, self.g.Entry.Ins)
    for _, v := range ins {
        if v.Op() == OpLocal {
            self.g.Entry.RemoveInstruction(v)
        }
    }
}

// typedEquivalentOf finds or creates the value reinterpreted under another
// storage class: constants are re-encoded bit for bit, phis get a
// type-variant twin placed right after them, array loads are retyped in
// place. A nil result means the value has no such interpretation.
func typedEquivalentOf(g *Graph, v Instruction, typ PrimType) Instruction {
    if v.Type().StorageClass() == typ.StorageClass() {
        return v
    }
    switch p := v.(type) {
        case *IntConstant:
            if typ == TypFloat {
                return g.FloatConstant(math.Float32frombits(uint32(p.Value())))
            }
            if typ == TypRef && p.IsZero() {
                return g.NullConstant()
            }
            return nil
        case *LongConstant:
            if typ == TypDouble {
                return g.DoubleConstant(math.Float64frombits(uint64(p.Value())))
            }
            return nil
        case *Phi:
            return phiEquivalentOf(p, typ)
        case *ArrayGet:
            /* the element type was guessed from the slot, trust the use */
            p.retype(typ)
            return p
        default:
            return nil
    }
}

// phiEquivalentOf returns the twin of p under typ, creating and placing it
// next to p if it does not exist yet. Twins share the local slot and the
// input list; type propagation later rewrites the twin's inputs to their
// own equivalents.
func phiEquivalentOf(p *Phi, typ PrimType) *Phi {
    next := p.Block().NextPhiOf(p)
    if next != nil && next.Reg() == p.Reg() && next.Type().StorageClass() == typ.StorageClass() {
        return next
    }
    e := NewPhi(p.Reg(), typ.StorageClass())
    for _, in := range p.Inputs() {
        e.AddInput(in)
    }
    p.Block().InsertPhiAfter(e, p)
    return e
}
