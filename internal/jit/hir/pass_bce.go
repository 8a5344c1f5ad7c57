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

// BoundsCheckElimination removes BoundsCheck instructions whose index is
// provably within [0, array.length - 1]. Facts are block-scoped and looked
// up along the dominator chain, so a range proven at one point holds for
// every dominated use.
type BoundsCheckElimination struct{}

func (BoundsCheckElimination) Apply(g *Graph) {
    if !g.HasArrayAccesses {
        return
    }
    v := &bceVisitor { g: g, maps: make(map[int]map[int]*ValueRange) }
    for _, b := range g.ReversePostOrder() {
        for _, p := range b.Phi {
            v.visitPhi(p)
        }
        for _, ins := range append([]Instruction(nil), b.Ins...) {
            v.visit(ins)
        }
    }
}

type bceVisitor struct {
    g    *Graph
    maps map[int]map[int]*ValueRange
}

// rangeMap returns the facts proven at block b, keyed by instruction id.
func (self *bceVisitor) rangeMap(b *BasicBlock) map[int]*ValueRange {
    m := self.maps[b.Id]
    if m == nil {
        m = make(map[int]*ValueRange)
        self.maps[b.Id] = m
    }
    return m
}

// lookupValueRange walks up the dominator tree for the closest fact about v.
func (self *bceVisitor) lookupValueRange(v Instruction, b *BasicBlock) *ValueRange {
    for ; b != nil; b = b.Dom {
        if r, ok := self.maps[b.Id][v.ID()]; ok {
            return r
        }
    }
    return nil
}

func (self *bceVisitor) visit(ins Instruction) {
    switch v := ins.(type) {
        case *If          : self.visitIf(v)
        case *Add         : self.visitAdd(v)
        case *Sub         : self.visitSub(v)
        case *Div         : self.visitPartialLength(&v.binaryOperation)
        case *Shr         : self.visitPartialLength(&v.binaryOperation)
        case *UShr        : self.visitPartialLength(&v.binaryOperation)
        case *And         : self.visitAnd(v)
        case *NewArray    : self.visitNewArray(v)
        case *BoundsCheck : self.visitBoundsCheck(v)
    }
}

// applyRangeFromComparison narrows what is known about v at the end of
// block and publishes the result to successor. A monotonic range is only
// narrowed when the comparison sits in the loop header, so that the test
// is re-established after every increment.
func (self *bceVisitor) applyRangeFromComparison(v Instruction, block *BasicBlock, successor *BasicBlock, r *ValueRange) {
    existing := self.lookupValueRange(v, block)
    if existing == nil {
        if r != nil {
            self.rangeMap(successor)[v.ID()] = r
        }
        return
    }
    if existing.IsMonotonic() {
        if v.Block() != block {
            return
        }
    }
    if narrowed := existing.Narrow(r); narrowed != nil {
        self.rangeMap(successor)[v.ID()] = narrowed
    }
}

// handleIfBetweenTwoMonotonicValueRanges handles the two-index walk, e.g.
// "for (i = 0, j = a.length - 1; i <= j; i++, j--)": both phis narrow to
// plain ranges at once. Only the overflow-free shape is recognized: left
// stepping up by one from a constant, right stepping down by one from
// array.length - c.
func (self *bceVisitor) handleIfBetweenTwoMonotonicValueRanges(ins *If, left Instruction, right Instruction, cond Cond, lr *ValueRange, rr *ValueRange) {
    if ins.Block() != left.Block() {
        // The comparison needs to be in the loop header, checking the
        // indices after each increment and decrement.
        return
    }
    if lr.Increment() != 1 || !lr.Bound().IsConstant() {
        return
    }
    if rr.Increment() != -1 || !rr.Bound().IsRelatedToArrayLength() || rr.Bound().Constant() >= 0 {
        return
    }

    var successor *BasicBlock
    var leftCompensation, rightCompensation int32
    switch cond {
        case CondLT : leftCompensation, rightCompensation = -1, 1; successor = ins.TrueSuccessor()
        case CondLE : successor = ins.TrueSuccessor()
        case CondGT : successor = ins.FalseSuccessor()
        case CondGE : leftCompensation, rightCompensation = -1, 1; successor = ins.FalseSuccessor()
        default     : return  // == and != may let the indices cross and miss each other
    }

    if upper, overflow, underflow := rr.Bound().Add(leftCompensation); !overflow && !underflow {
        self.applyRangeFromComparison(left, ins.Block(), successor, NewValueRange(lr.Bound(), upper))
    }
    if lower, overflow, underflow := lr.Bound().Add(rightCompensation); !overflow && !underflow {
        self.applyRangeFromComparison(right, ins.Block(), successor, NewValueRange(lower, rr.Bound()))
    }
}

// handleIf derives ranges for "if (left cmp right)" on both successors.
func (self *bceVisitor) handleIf(ins *If, left Instruction, right Instruction, cond Cond) {
    block := ins.Block()
    trueSuccessor := ins.TrueSuccessor()
    falseSuccessor := ins.FalseSuccessor()

    bound, found := DetectValueBoundFromValue(right)
    lower, upper := bound, bound
    if !found {
        // No constant or array.length+c bound. For i < j, j's own upper
        // bound still works as an upper bound for i, and vice versa.
        if rr := self.lookupValueRange(right, block); rr != nil {
            if rr.IsMonotonic() {
                if lr := self.lookupValueRange(left, block); lr != nil && lr.IsMonotonic() {
                    self.handleIfBetweenTwoMonotonicValueRanges(ins, left, right, cond, lr, rr)
                    return
                }
            }
            lower, upper = rr.Lower(), rr.Upper()
        } else {
            lower, upper = MinValueBound(), MaxValueBound()
        }
    }

    switch cond {
        case CondLT, CondLE:
            if !upper.Equals(MaxValueBound()) {
                compensation := int32(0)  // upper bound is inclusive
                if cond == CondLT {
                    compensation = -1
                }
                nu, overflow, underflow := upper.Add(compensation)
                if overflow || underflow {
                    return
                }
                self.applyRangeFromComparison(left, block, trueSuccessor, NewValueRange(MinValueBound(), nu))
            }
            // array.length as a lower bound is not considered useful
            if !lower.Equals(MinValueBound()) && !lower.IsRelatedToArrayLength() {
                compensation := int32(0)  // lower bound is inclusive
                if cond == CondLE {
                    compensation = 1
                }
                nl, overflow, underflow := lower.Add(compensation)
                if overflow || underflow {
                    return
                }
                self.applyRangeFromComparison(left, block, falseSuccessor, NewValueRange(nl, MaxValueBound()))
            }

        case CondGT, CondGE:
            if !lower.Equals(MinValueBound()) && !lower.IsRelatedToArrayLength() {
                compensation := int32(0)
                if cond == CondGT {
                    compensation = 1
                }
                nl, overflow, underflow := lower.Add(compensation)
                if overflow || underflow {
                    return
                }
                self.applyRangeFromComparison(left, block, trueSuccessor, NewValueRange(nl, MaxValueBound()))
            }
            if !upper.Equals(MaxValueBound()) {
                compensation := int32(0)
                if cond == CondGE {
                    compensation = -1
                }
                nu, overflow, underflow := upper.Add(compensation)
                if overflow || underflow {
                    return
                }
                self.applyRangeFromComparison(left, block, falseSuccessor, NewValueRange(MinValueBound(), nu))
            }
    }
}

func (self *bceVisitor) visitBoundsCheck(check *BoundsCheck) {
    block := check.Block()
    index := check.Index()
    length := check.Length()

    if c, ok := index.(*IntConstant); !ok {
        if r := self.lookupValueRange(index, block); r != nil {
            arrayRange := NewValueRange(ValueBound{}, NewValueBound(length, -1))
            if r.FitsIn(arrayRange) {
                self.replaceBoundsCheck(check, index)
            }
        }
    } else {
        constant := c.Value()
        if constant < 0 {
            // Always throws.
            return
        }
        if lc, ok := length.(*IntConstant); ok {
            if constant < lc.Value() {
                self.replaceBoundsCheck(check, index)
            }
            return
        }
        if r := self.lookupValueRange(length, block); r != nil {
            if constant < r.Lower().Constant() {
                self.replaceBoundsCheck(check, index)
                return
            }
            // The recorded fact is not strong enough; fall through to
            // strengthen it with this check.
        }
        // A passing access a[c] proves a.length >= c+1. Non-constant
        // indices prove nothing about smaller indices, so only constants
        // are recorded this way.
        self.rangeMap(block)[length.ID()] = NewValueRange(ValueBound { constant: constant + 1 }, MaxValueBound())
    }
}

func (self *bceVisitor) replaceBoundsCheck(check *BoundsCheck, index Instruction) {
    check.ReplaceWith(index)
    check.Block().RemoveInstruction(check)
}

// visitPhi recognizes loop induction variables: a loop header phi whose
// back edge input adds or subtracts a constant from the phi itself.
func (self *bceVisitor) visitPhi(phi *Phi) {
    if !phi.IsLoopHeaderPhi() || phi.Type() != TypInt || phi.InputCount() != 2 {
        return
    }
    left, increment, ok := isAddOrSubAConstant(phi.InputAt(1))
    if !ok || left != Instruction(phi) {
        return
    }
    initial := phi.InputAt(0)
    var r *ValueRange
    if increment == 0 {
        // Stepping by zero: the phi is pinned to its initial value.
        b := NewValueBound(initial, 0)
        r = NewValueRange(b, b)
    } else {
        bound, found := DetectValueBoundFromValue(initial)
        if !found {
            // For i = j, j's bound in the stepping direction still seeds i.
            if ir := self.lookupValueRange(initial, phi.Block()); ir != nil {
                if increment > 0 {
                    bound = ir.Lower()
                } else {
                    bound = ir.Upper()
                }
            } else if increment > 0 {
                bound = MinValueBound()
            } else {
                bound = MaxValueBound()
            }
        }
        r = NewMonotonicValueRange(initial, increment, bound)
    }
    self.rangeMap(phi.Block())[phi.ID()] = r
}

func (self *bceVisitor) visitIf(ins *If) {
    if cond, ok := ins.Condition().(*Condition); ok {
        switch cond.Kind() {
            case CondLT, CondLE, CondGT, CondGE:
                self.handleIf(ins, cond.Left(), cond.Right(), cond.Kind())
        }
    }
}

func (self *bceVisitor) visitAdd(add *Add) {
    if c, ok := add.Right().(*IntConstant); ok {
        if lr := self.lookupValueRange(add.Left(), add.Block()); lr != nil {
            if r := lr.Add(c.Value()); r != nil {
                self.rangeMap(add.Block())[add.ID()] = r
            }
        }
    }
}

func (self *bceVisitor) visitSub(sub *Sub) {
    left, right := sub.Left(), sub.Right()
    if c, ok := right.(*IntConstant); ok {
        if lr := self.lookupValueRange(left, sub.Block()); lr != nil {
            if r := lr.Add(-c.Value()); r != nil {
                self.rangeMap(sub.Block())[sub.ID()] = r
                return
            }
        }
    }

    // The triangular case of nested loops: in the inner loop
    // "for (j = 0; j < a.length - i; j++)" with i in [0, a.length + c2],
    // the subtraction a.length + c0 - i is bounded by a.length itself.
    c0 := int32(0)
    if l, c, ok := isAddOrSubAConstant(left); ok {
        left = l
        c0 = c
    }
    length, ok := left.(*ArrayLength)
    if !ok {
        return
    }
    rr := self.lookupValueRange(right, sub.Block())
    if rr == nil {
        return
    }
    lower, upper := rr.Lower(), rr.Upper()
    if !lower.IsConstant() || !upper.IsRelatedToArrayLength() {
        return
    }
    if !sameValue(length, upper.Instruction()) {
        return
    }
    c1 := lower.Constant()
    c2 := upper.Constant()
    // (a.length + c0 - v) with v in [c1, a.length + c2] lies in
    // [c0 - c2, a.length + c0 - c1], valid only when c0 - c1 <= 0 so the
    // upper end cannot overflow past the length.
    if addWouldOverflow(c0, -c2) || addWouldOverflow(c0, -c1) {
        return
    }
    if c0 - c1 <= 0 {
        self.rangeMap(sub.Block())[sub.ID()] = NewValueRange(
            ValueBound { constant: c0 - c2 },
            NewValueBound(length, c0 - c1),
        )
    }
}

// visitPartialLength handles array.length / 2 and shift variants: a value
// no larger than array.length + 1 divided by two or more never exceeds the
// length.
func (self *bceVisitor) visitPartialLength(ins *binaryOperation) {
    c, ok := ins.Right().(*IntConstant)
    if !ok {
        return
    }
    switch ins.op {
        case OpDiv:
            if c.Value() <= 1 {
                return
            }
        default:
            if c.Value() < 1 {
                return
            }
    }

    left := ins.Left()
    offset := int32(0)
    if l, off, ok := isAddOrSubAConstant(left); ok {
        left = l
        offset = off
    }
    if _, isLen := left.(*ArrayLength); !isLen || offset > 1 {
        return
    }
    if ins.op == OpUShr && offset < 0 {
        // An unsigned shift of a negative value is a huge positive one.
        return
    }
    self.rangeMap(ins.block)[ins.id] = NewValueRange(MinValueBound(), NewValueBound(left, 0))
}

func (self *bceVisitor) visitAnd(and *And) {
    if c, ok := and.Right().(*IntConstant); ok && c.Value() > 0 {
        // A positive constant is a mask: the result lies in [0, mask].
        self.rangeMap(and.Block())[and.ID()] = NewValueRange(ValueBound{}, ValueBound { constant: c.Value() })
    }
}

// visitNewArray mines the allocation size: new T[x + c] bounds x by
// [-c, length - c] where length is the array being allocated.
func (self *bceVisitor) visitNewArray(na *NewArray) {
    length := na.Length()
    if _, ok := length.(*IntConstant); ok {
        return
    }
    if left, c, ok := isAddOrSubAConstant(length); ok {
        self.rangeMap(na.Block())[left.ID()] = NewValueRange(
            ValueBound { constant: -c },
            NewValueBound(na, -c),
        )
    }
}
