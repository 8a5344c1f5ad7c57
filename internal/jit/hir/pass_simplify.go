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
    `math`
)

// A block is revisited after a successful simplification so that enabled
// rewrites fire in the same pass, but at most this many times per position
// to bound the work on pathological chains.
const maxSamePositionSimplifications = 10

// InstructionSimplifier applies local algebraic rewrites: arithmetic
// identities, strength reduction, double-negation removal, boolean
// comparison folding, redundant conversion and check removal. Every rewrite
// preserves the observable semantics of the rewritten instruction.
type InstructionSimplifier struct{}

func (InstructionSimplifier) Apply(g *Graph) {
    v := simplifyVisitor { g: g }
    rpo := g.ReversePostOrder()
    for i := 0; i < len(rpo); {
        v.occurred = false
        v.visitBlock(rpo[i])
        if v.occurred && v.sameCount < maxSamePositionSimplifications {
            continue
        }
        if v.occurred {
            log.Warnf("simplification limit reached in bb_%d", rpo[i].Id)
        }
        v.sameCount = 0
        i++
    }
}

type simplifyVisitor struct {
    g         *Graph
    occurred  bool
    sameCount int
}

func (self *simplifyVisitor) record() {
    self.occurred = true
    self.sameCount++
}

func (self *simplifyVisitor) visitBlock(b *BasicBlock) {
    ins := make([]Instruction, len(b.Ins))
    copy(ins, b.Ins)
    for _, v := range ins {
        if v.Block() == nil {
            continue
        }
        switch p := v.(type) {
            case *Add            : self.visitAdd(p)
            case *Sub            : self.visitSub(p)
            case *Mul            : self.visitMul(p)
            case *Div            : self.visitDiv(p)
            case *And            : self.visitAnd(p)
            case *Or             : self.visitOr(p)
            case *Xor            : self.visitXor(p)
            case *Shl            : self.visitShift(&p.binaryOperation)
            case *Shr            : self.visitShift(&p.binaryOperation)
            case *UShr           : self.visitShift(&p.binaryOperation)
            case *Neg            : self.visitNeg(p)
            case *Not            : self.visitNot(p)
            case *BooleanNot     : self.visitBooleanNot(p)
            case *Condition      : self.visitCondition(p)
            case *If             : self.visitIf(p)
            case *TypeConversion : self.visitTypeConversion(p)
            case *NullCheck      : self.visitNullCheck(p)
            case *CheckCast      : self.visitCheckCast(p)
            case *InstanceOf     : self.visitInstanceOf(p)
            case *ArrayLength    : self.visitArrayLength(p)
            case *ArraySet       : self.visitArraySet(p)
            case *SuspendCheck   : self.visitSuspendCheck(p)
        }
    }
}

// replaceWith redirects all uses of ins to repl and drops ins.
func (self *simplifyVisitor) replaceWith(ins Instruction, repl Instruction) {
    ins.ReplaceWith(repl)
    ins.Block().RemoveInstruction(ins)
    self.record()
}

// replaceWithNew inserts a fresh instruction in place of ins.
func (self *simplifyVisitor) replaceWithNew(ins Instruction, repl Instruction) {
    ins.Block().ReplaceAndRemoveInstructionWith(ins, repl)
    self.record()
}

// removeIfUnused garbage-collects an operand orphaned by a rewrite.
func removeIfUnused(v Instruction) {
    if v.Block() != nil && !v.base().HasUses() && !v.base().HasEnvUses() {
        v.Block().RemoveInstruction(v)
    }
}

// int64FromConstant reads the value of an integral constant.
func int64FromConstant(v Instruction) (int64, bool) {
    switch c := v.(type) {
        case *IntConstant  : return int64(c.Value()), true
        case *LongConstant : return c.Value(), true
        default            : return 0, false
    }
}

func isAllOnes(v Instruction) bool {
    c, ok := int64FromConstant(v)
    return ok && c == -1
}

func (self *simplifyVisitor) visitAdd(v *Add) {
    if cst, other, ok := v.ConstantInput(); ok {
        /* x + 0 for fp would turn -0.0 into 0.0 */
        if v.Type().IsIntegral() && isZeroConstant(cst) {
            self.replaceWith(v, other)
            return
        }
    }
    if !v.Type().IsIntegral() {
        return
    }
    ln, lneg := v.Left().(*Neg)
    rn, rneg := v.Right().(*Neg)
    switch {
        case lneg && rneg && ln.HasOnlyOneNonEnvUse() && rn.HasOnlyOneNonEnvUse():
            /* (-a) + (-b) -> -(a + b) */
            add := NewAdd(v.Type(), ln.Operand(), rn.Operand())
            v.Block().InsertBefore(add, v)
            self.replaceWithNew(v, NewNeg(v.Type(), add))
            removeIfUnused(ln)
            removeIfUnused(rn)
        case rneg && rn.HasOnlyOneNonEnvUse():
            /* a + (-b) -> a - b */
            self.replaceWithNew(v, NewSub(v.Type(), v.Left(), rn.Operand()))
            removeIfUnused(rn)
        case lneg && ln.HasOnlyOneNonEnvUse():
            /* (-a) + b -> b - a */
            self.replaceWithNew(v, NewSub(v.Type(), v.Right(), ln.Operand()))
            removeIfUnused(ln)
    }
}

func (self *simplifyVisitor) visitSub(v *Sub) {
    typ := v.Type()
    if !typ.IsIntegral() {
        return
    }
    if c, ok := int64FromConstant(v.Right()); ok {
        if c == 0 {
            self.replaceWith(v, v.Left())
            return
        }
        /* x - c -> x + (-c), which exposes the commutative Add rules;
         * the most negative constant has no negation */
        if typ.StorageClass() == TypInt && c != math.MinInt32 {
            self.replaceWithNew(v, NewAdd(typ, v.Left(), self.g.IntConstant(int32(-c))))
            return
        }
        if typ == TypLong && c != math.MinInt64 {
            self.replaceWithNew(v, NewAdd(typ, v.Left(), self.g.LongConstant(-c)))
            return
        }
    }
    if c, ok := int64FromConstant(v.Left()); ok && c == 0 {
        /* 0 - x -> -x */
        self.replaceWithNew(v, NewNeg(typ, v.Right()))
        return
    }
    if rn, ok := v.Right().(*Neg); ok && rn.HasOnlyOneNonEnvUse() {
        /* a - (-b) -> a + b */
        self.replaceWithNew(v, NewAdd(typ, v.Left(), rn.Operand()))
        removeIfUnused(rn)
    }
}

func (self *simplifyVisitor) visitMul(v *Mul) {
    cst, other, ok := v.ConstantInput()
    if !ok {
        return
    }
    typ := v.Type()
    if typ.IsFloatingPoint() {
        if isFpConstant(cst, 2) {
            /* x * 2 -> x + x, cheaper on every target */
            self.replaceWithNew(v, NewAdd(typ, other, other))
        }
        return
    }
    c, ok := int64FromConstant(cst)
    if !ok {
        return
    }
    switch {
        case c == 1:
            self.replaceWith(v, other)
        case c == -1:
            self.replaceWithNew(v, NewNeg(typ, other))
        case c == 0:
            /* the operand is side-effect free, the product is just 0 */
            self.replaceWith(v, cst)
        case isPowerOfTwo(c):
            self.replaceWithNew(v, NewShl(typ, other, self.g.IntConstant(whichPowerOfTwo(c))))
        case isPowerOfTwo(c - 1):
            /* x * (2^n + 1) -> (x << n) + x */
            shl := NewShl(typ, other, self.g.IntConstant(whichPowerOfTwo(c - 1)))
            v.Block().InsertBefore(shl, v)
            self.replaceWithNew(v, NewAdd(typ, shl, other))
        case isPowerOfTwo(c + 1):
            /* x * (2^n - 1) -> (x << n) - x */
            shl := NewShl(typ, other, self.g.IntConstant(whichPowerOfTwo(c + 1)))
            v.Block().InsertBefore(shl, v)
            self.replaceWithNew(v, NewSub(typ, shl, other))
    }
}

func (self *simplifyVisitor) visitDiv(v *Div) {
    typ := v.Type()
    if c, ok := int64FromConstant(v.Right()); ok {
        if c == 1 {
            self.replaceWith(v, v.Left())
        } else if c == -1 {
            self.replaceWithNew(v, NewNeg(typ, v.Left()))
        }
        return
    }
    if !typ.IsFloatingPoint() {
        return
    }
    /* x / c -> x * (1/c) only when the reciprocal is exact */
    switch c := v.Right().(type) {
        case *FloatConstant:
            if r := 1 / c.Value(); exactReciprocal(float64(c.Value())) {
                self.replaceWithNew(v, NewMul(typ, v.Left(), self.g.FloatConstant(r)))
            }
        case *DoubleConstant:
            if r := 1 / c.Value(); exactReciprocal(c.Value()) {
                self.replaceWithNew(v, NewMul(typ, v.Left(), self.g.DoubleConstant(r)))
            }
    }
}

// exactReciprocal holds for non-zero powers of two, whose reciprocal is a
// power of two again and thus exactly representable.
func exactReciprocal(v float64) bool {
    frac, _ := math.Frexp(v)
    return frac == 0.5 || frac == -0.5
}

func isZeroConstant(v Instruction) bool {
    c, ok := int64FromConstant(v)
    return ok && c == 0
}

func isFpConstant(v Instruction, x float64) bool {
    switch c := v.(type) {
        case *FloatConstant  : return float64(c.Value()) == x
        case *DoubleConstant : return c.Value() == x
        default              : return false
    }
}

func (self *simplifyVisitor) visitAnd(v *And) {
    if cst, other, ok := v.ConstantInput(); ok {
        if isAllOnes(cst) {
            self.replaceWith(v, other)
            return
        }
        if isZeroConstant(cst) {
            self.replaceWith(v, cst)
            return
        }
    }
    if v.Left() == v.Right() {
        self.replaceWith(v, v.Left())
        return
    }
    self.tryDeMorgan(&v.binaryOperation)
}

func (self *simplifyVisitor) visitOr(v *Or) {
    if cst, other, ok := v.ConstantInput(); ok {
        if isZeroConstant(cst) {
            self.replaceWith(v, other)
            return
        }
        if isAllOnes(cst) {
            self.replaceWith(v, cst)
            return
        }
    }
    if v.Left() == v.Right() {
        self.replaceWith(v, v.Left())
        return
    }
    self.tryDeMorgan(&v.binaryOperation)
}

// tryDeMorgan rewrites ~a & ~b into ~(a | b) and ~a | ~b into ~(a & b),
// saving one negation when the nots have no other consumer.
func (self *simplifyVisitor) tryDeMorgan(v *binaryOperation) {
    ln, lok := v.Left().(*Not)
    rn, rok := v.Right().(*Not)
    if !lok || !rok || !ln.HasOnlyOneNonEnvUse() || !rn.HasOnlyOneNonEnvUse() {
        return
    }
    var inner Instruction
    if v.Op() == OpAnd {
        inner = NewOr(v.Type(), ln.Operand(), rn.Operand())
    } else {
        inner = NewAnd(v.Type(), ln.Operand(), rn.Operand())
    }
    v.Block().InsertBefore(inner, v.self)
    self.replaceWithNew(v.self, NewNot(v.Type(), inner))
    removeIfUnused(ln)
    removeIfUnused(rn)
}

func (self *simplifyVisitor) visitXor(v *Xor) {
    cst, other, ok := v.ConstantInput()
    if !ok {
        return
    }
    if isZeroConstant(cst) {
        self.replaceWith(v, other)
    } else if isAllOnes(cst) {
        self.replaceWithNew(v, NewNot(v.Type(), other))
    }
}

func (self *simplifyVisitor) visitShift(v *binaryOperation) {
    if c, ok := int64FromConstant(v.Right()); ok && c == 0 {
        self.replaceWith(v.self, v.Left())
    }
}

func (self *simplifyVisitor) visitNeg(v *Neg) {
    switch in := v.Operand().(type) {
        case *Neg:
            /* -(-x) -> x */
            self.replaceWith(v, in.Operand())
            removeIfUnused(in)
        case *Sub:
            /* -(a - b) -> b - a, invalid for fp because of -0.0 - 0.0 */
            if in.HasOnlyOneNonEnvUse() && v.Type().IsIntegral() {
                self.replaceWithNew(v, NewSub(v.Type(), in.Right(), in.Left()))
                removeIfUnused(in)
            }
    }
}

func (self *simplifyVisitor) visitNot(v *Not) {
    if in, ok := v.Operand().(*Not); ok {
        self.replaceWith(v, in.Operand())
        removeIfUnused(in)
    }
}

func (self *simplifyVisitor) visitBooleanNot(v *BooleanNot) {
    switch in := v.Operand().(type) {
        case *IntConstant:
            if in.IsZero() {
                self.replaceWith(v, self.g.IntConstant(1))
            } else {
                self.replaceWith(v, self.g.IntConstant(0))
            }
        case *BooleanNot:
            self.replaceWith(v, in.Operand())
            removeIfUnused(in)
        case *Condition:
            if !in.Left().Type().IsFloatingPoint() {
                opp := NewCondition(in.Kind().Opposite(), in.Left(), in.Right())
                self.replaceWithNew(v, opp)
                removeIfUnused(in)
            }
    }
}

// visitCondition folds boolean comparisons against constants: a boolean is
// 0 or 1, so comparing it with either constant is the value itself, its
// negation, or a known answer.
func (self *simplifyVisitor) visitCondition(v *Condition) {
    if v.Kind() != CondEQ && v.Kind() != CondNE {
        return
    }
    cst, other, ok := v.ConstantInput()
    if !ok || other.Type() != TypBool {
        return
    }
    c, ok := cst.(*IntConstant)
    if !ok {
        return
    }
    eq := v.Kind() == CondEQ
    switch {
        case (eq && c.IsOne()) || (!eq && c.IsZero()):
            self.replaceWith(v, other)
        case (eq && c.IsZero()) || (!eq && c.IsOne()):
            self.replaceWithNew(v, oppositeConditionOf(other))
        case eq:
            self.replaceWith(v, self.g.IntConstant(0))
        default:
            self.replaceWith(v, self.g.IntConstant(1))
    }
}

// oppositeConditionOf builds the negation of a boolean value: the opposite
// comparison for a non-fp condition, a BooleanNot otherwise. Floating point
// comparisons cannot be negated this way because of NaN.
func oppositeConditionOf(value Instruction) Instruction {
    if c, ok := value.(*Condition); ok && !c.Left().Type().IsFloatingPoint() {
        return NewCondition(c.Kind().Opposite(), c.Left(), c.Right())
    }
    return NewBooleanNot(value)
}

func (self *simplifyVisitor) visitIf(v *If) {
    if bn, ok := v.Condition().(*BooleanNot); ok {
        /* if (!c) A else B  ->  if (c) B else A */
        v.ReplaceInput(bn.Operand(), 0)
        v.Block().SwapSuccessors()
        removeIfUnused(bn)
        self.record()
    }
}

func (self *simplifyVisitor) visitTypeConversion(v *TypeConversion) {
    in := v.Operand()
    if isTypeConversionImplicit(in.Type(), v.ResultType()) {
        self.replaceWith(v, in)
        return
    }
    if inner, ok := in.(*TypeConversion); ok {
        /* (T1)(T2)x -> (T1)x when the inner conversion loses nothing */
        if isTypeConversionLossless(inner.InputType(), inner.ResultType()) {
            orig := inner.Operand()
            if isTypeConversionImplicit(orig.Type(), v.ResultType()) {
                self.replaceWith(v, orig)
            } else {
                self.replaceWithNew(v, NewTypeConversion(v.ResultType(), orig))
            }
            removeIfUnused(inner)
        }
    }
}

func (self *simplifyVisitor) visitNullCheck(v *NullCheck) {
    if !v.Value().CanBeNull() {
        self.replaceWith(v, v.Value())
    }
}

func (self *simplifyVisitor) visitCheckCast(v *CheckCast) {
    if v.Obj().Op() == OpNullConstant {
        /* null passes any cast */
        v.Block().RemoveInstruction(v)
        self.record()
        return
    }
    if outcome, known := typeCheckHasKnownOutcome(v.TargetClass(), v.Obj()); known && outcome {
        v.Block().RemoveInstruction(v)
        self.record()
    }
}

func (self *simplifyVisitor) visitInstanceOf(v *InstanceOf) {
    if v.Obj().Op() == OpNullConstant {
        self.replaceWith(v, self.g.IntConstant(0))
        return
    }
    outcome, known := typeCheckHasKnownOutcome(v.TargetClass(), v.Obj())
    if !known {
        return
    }
    if outcome && !v.Obj().CanBeNull() {
        self.replaceWith(v, self.g.IntConstant(1))
    } else if !outcome {
        /* a null object also answers false */
        self.replaceWith(v, self.g.IntConstant(0))
    }
}

// typeCheckHasKnownOutcome decides instanceof/checkcast statically from the
// reference type info of the object, for a non-null object. The class
// hierarchy is a tree, so a type neither above nor below the target class
// can never pass.
func typeCheckHasKnownOutcome(klass *LoadClass, obj Instruction) (outcome bool, known bool) {
    rti := obj.ReferenceTypeInfo()
    if !rti.IsValid() {
        return false, false
    }
    cls := InexactTypeInfo(klass.Klass())
    if cls.IsSupertypeOf(rti) {
        return true, true
    }
    if rti.IsExact() {
        return false, true
    }
    if !rti.IsSupertypeOf(cls) {
        return false, true
    }
    return false, false
}

func (self *simplifyVisitor) visitArrayLength(v *ArrayLength) {
    if na, ok := v.Array().(*NewArray); ok {
        if c, ok := na.Length().(*IntConstant); ok {
            self.replaceWith(v, c)
        }
    }
}

func (self *simplifyVisitor) visitArraySet(v *ArraySet) {
    if !v.NeedsTypeCheck() {
        return
    }
    if v.Value().Op() == OpNullConstant {
        v.ClearNeedsTypeCheck()
        self.record()
        return
    }
    if ag, ok := v.Value().(*ArrayGet); ok && ag.Array() == v.Array() {
        /* storing back a value read from the same array */
        v.ClearNeedsTypeCheck()
        self.record()
        return
    }
    art := v.Array().ReferenceTypeInfo()
    vrt := v.Value().ReferenceTypeInfo()
    if art.IsValid() && art.Klass != nil && art.Klass.IsArrayClass() && vrt.IsValid() && vrt.Klass != nil {
        if vrt.Klass.IsSubclassOf(art.Klass.Element) && (art.IsExact() || art.Klass.Element.Final) {
            v.ClearNeedsTypeCheck()
            self.record()
        }
    }
}

// visitSuspendCheck drops safepoints that ended up outside any loop header;
// only the one guarding each loop's back edges must stay.
func (self *simplifyVisitor) visitSuspendCheck(v *SuspendCheck) {
    b := v.Block()
    if b.IsEntry() {
        return
    }
    if b.IsLoopHeader() && b.FirstInstruction() == v {
        return
    }
    if b.Loop != nil && b.Loop.SuspendCheck == v {
        return
    }
    b.RemoveInstruction(v)
    self.record()
}

// isTypeConversionImplicit holds when the conversion is a no-op on the
// stored representation: sub-long integral values all live in a 32-bit
// slot, so any widening between them needs no code.
func isTypeConversionImplicit(in PrimType, out PrimType) bool {
    if in == out {
        return true
    }
    if !in.IsIntegral() || !out.IsIntegral() || in == TypLong || out == TypLong {
        return false
    }
    lo, hi := integralRange(in)
    lo2, hi2 := integralRange(out)
    return lo2 <= lo && hi <= hi2
}

// isTypeConversionLossless holds when every value of in maps to itself in
// out: integral widening, float to double, and small integrals to fp.
func isTypeConversionLossless(in PrimType, out PrimType) bool {
    switch {
        case in == out:
            return true
        case in.IsIntegral() && out.IsIntegral():
            lo, hi := integralRange(in)
            lo2, hi2 := integralRange(out)
            return lo2 <= lo && hi <= hi2
        case in == TypFloat && out == TypDouble:
            return true
        case out == TypFloat:
            /* float has 24 significand bits */
            return in.IsIntegral() && in != TypInt && in != TypLong
        case out == TypDouble:
            return in.IsIntegral() && in != TypLong
        default:
            return false
    }
}

func integralRange(t PrimType) (int64, int64) {
    switch t {
        case TypBool  : return 0, 1
        case TypByte  : return math.MinInt8, math.MaxInt8
        case TypChar  : return 0, math.MaxUint16
        case TypShort : return math.MinInt16, math.MaxInt16
        case TypInt   : return math.MinInt32, math.MaxInt32
        case TypLong  : return math.MinInt64, math.MaxInt64
        default       : panic("hir: not an integral type")
    }
}
