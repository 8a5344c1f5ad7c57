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
    `github.com/oleiade/lane`
)

// ReferenceTypePropagation computes static class information for every
// reference value: allocations are exactly typed, array loads inherit the
// element class of the array, phis merge to the least common ancestor of
// their inputs. Branches on null checks and instanceof tests pin the
// refined knowledge onto the guarded region with BoundType instructions,
// which later lets the simplifier drop provable null checks, casts and
// array store checks.
type ReferenceTypePropagation struct{}

func (ReferenceTypePropagation) Apply(g *Graph) {
    v := rtpVisitor { g: g, q: lane.NewQueue() }
    for _, b := range g.ReversePostOrder() {
        v.visitBlock(b)
    }
    v.processWorklist()
}

type rtpVisitor struct {
    g *Graph
    q *lane.Queue
}

func (self *rtpVisitor) visitBlock(b *BasicBlock) {
    for _, p := range b.Phi {
        if p.Type() == TypRef {
            self.visitPhi(p)
        }
    }
    for _, v := range b.Ins {
        self.setInitialType(v)
    }
    self.boundTypeForIf(b)
}

func (self *rtpVisitor) setInitialType(v Instruction) {
    switch p := v.(type) {
        case *NewInstance:
            p.SetReferenceTypeInfo(ExactTypeInfo(p.Klass()))
        case *NewArray:
            p.SetReferenceTypeInfo(ExactTypeInfo(p.Klass()))
        case *LoadClass:
            p.SetReferenceTypeInfo(ExactTypeInfo(p.Klass()))
        case *NullCheck:
            if rti := p.Value().ReferenceTypeInfo(); rti.IsValid() {
                p.SetReferenceTypeInfo(rti)
            } else {
                p.SetReferenceTypeInfo(TopTypeInfo())
            }
        case *BoundType:
            self.updateBoundType(p)
        case *ArrayGet:
            if p.Type() == TypRef {
                self.updateArrayGet(p)
                if !p.ReferenceTypeInfo().IsValid() {
                    p.SetReferenceTypeInfo(TopTypeInfo())
                }
            }
        default:
            /* parameters, field loads and calls carry no class knowledge */
            if v.Type() == TypRef && !v.ReferenceTypeInfo().IsValid() {
                v.SetReferenceTypeInfo(TopTypeInfo())
            }
    }
}

// visitPhi seeds a reference phi. Loop header phis only see the pre-header
// input at this point, so their final type is settled on the worklist.
func (self *rtpVisitor) visitPhi(p *Phi) {
    if p.IsLoopHeaderPhi() {
        p.SetReferenceTypeInfo(p.InputAt(0).ReferenceTypeInfo())
        self.q.Enqueue(Instruction(p))
    } else {
        self.updatePhi(p)
    }
}

func (self *rtpVisitor) processWorklist() {
    for !self.q.Empty() {
        v := self.q.Dequeue().(Instruction)
        if v.Block() == nil {
            continue
        }
        if self.updateType(v) {
            for _, u := range v.Uses() {
                switch u.User.Op() {
                    case OpPhi, OpNullCheck, OpBoundType:
                        if u.User.Type() == TypRef {
                            self.q.Enqueue(u.User)
                        }
                    case OpArrayGet:
                        if u.User.Type() == TypRef {
                            self.q.Enqueue(u.User)
                        }
                }
            }
        }
    }
}

// updateType recomputes the type of one flow-sensitive instruction and
// reports whether anything changed.
func (self *rtpVisitor) updateType(v Instruction) bool {
    old := v.ReferenceTypeInfo()
    oldNull := v.CanBeNull()
    switch p := v.(type) {
        case *Phi       : self.updatePhi(p)
        case *NullCheck : p.SetReferenceTypeInfo(p.Value().ReferenceTypeInfo())
        case *BoundType : self.updateBoundType(p)
        case *ArrayGet  : self.updateArrayGet(p)
        default         : return false
    }
    return v.ReferenceTypeInfo() != old || v.CanBeNull() != oldNull
}

func (self *rtpVisitor) updatePhi(p *Phi) {
    rti := p.InputAt(0).ReferenceTypeInfo()
    null := p.InputAt(0).CanBeNull()
    for _, in := range p.Inputs()[1:] {
        rti = MergeTypeInfo(rti, in.ReferenceTypeInfo())
        null = null || in.CanBeNull()
    }
    p.SetReferenceTypeInfo(rti)
    p.SetCanBeNull(null)
}

// updateBoundType keeps the tighter of the incoming knowledge and the
// declared upper bound.
func (self *rtpVisitor) updateBoundType(p *BoundType) {
    rti := p.Value().ReferenceTypeInfo()
    if !rti.IsValid() || !p.UpperBound().IsSupertypeOf(rti) {
        rti = p.UpperBound()
    }
    p.SetReferenceTypeInfo(rti)
    p.SetCanBeNull(p.UpperCanBeNull() && p.Value().CanBeNull())
}

func (self *rtpVisitor) updateArrayGet(p *ArrayGet) {
    art := p.Array().ReferenceTypeInfo()
    if art.IsValid() && art.Klass != nil && art.Klass.IsArrayClass() {
        p.SetReferenceTypeInfo(InexactTypeInfo(art.Klass.Element))
    }
}

// boundTypeForIf pins knowledge gained from a branch onto its target: after
// if (x != null) the value is non-null in the taken branch, after
// if (x instanceof C) it is a non-null C. A BoundType carrying the refined
// info is placed at the top of the target block and takes over every use
// it dominates.
func (self *rtpVisitor) boundTypeForIf(b *BasicBlock) {
    ifIns, ok := b.LastInstruction().(*If)
    if !ok {
        return
    }
    switch c := ifIns.Condition().(type) {
        case *Condition:
            x, target := nullTestTarget(c, ifIns)
            if x == nil || len(target.Pred) != 1 {
                return
            }
            self.insertBoundType(NewBoundType(x, TopTypeInfo(), false), x, target)
        case *InstanceOf:
            target := ifIns.TrueSuccessor()
            if len(target.Pred) != 1 {
                return
            }
            klass := c.TargetClass().Klass()
            rti := InexactTypeInfo(klass)
            if klass.Final {
                rti = ExactTypeInfo(klass)
            }
            self.insertBoundType(NewBoundType(c.Obj(), rti, false), c.Obj(), target)
    }
}

// nullTestTarget recognizes x == null / x != null and returns the tested
// reference together with the successor on which it is known non-null.
func nullTestTarget(c *Condition, ifIns *If) (Instruction, *BasicBlock) {
    if c.Kind() != CondEQ && c.Kind() != CondNE {
        return nil, nil
    }
    var x Instruction
    switch {
        case c.Right().Op() == OpNullConstant : x = c.Left()
        case c.Left().Op() == OpNullConstant  : x = c.Right()
        default                               : return nil, nil
    }
    if x.Type() != TypRef {
        return nil, nil
    }
    if c.Kind() == CondNE {
        return x, ifIns.TrueSuccessor()
    } else {
        return x, ifIns.FalseSuccessor()
    }
}

func (self *rtpVisitor) insertBoundType(bt *BoundType, x Instruction, target *BasicBlock) {
    if first := target.FirstInstruction(); first != nil {
        target.InsertBefore(bt, first)
    } else {
        target.AddInstruction(bt)
    }
    for _, u := range append([]Use(nil), x.Uses()...) {
        if u.User == Instruction(bt) {
            continue
        }
        if p, isPhi := u.User.(*Phi); isPhi {
            /* a phi observes its input at the end of the matching
             * predecessor, not at the merge point */
            if target.Dominates(p.Block().Pred[u.Index]) {
                p.ReplaceInput(bt, u.Index)
            }
        } else if bt.StrictlyDominates(u.User) {
            u.User.ReplaceInput(bt, u.Index)
        }
    }
    self.q.Enqueue(Instruction(bt))
}
