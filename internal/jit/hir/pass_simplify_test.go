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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

// a straight-line graph: entry -> b -> exit, with params in the entry
func simplifyTestGraph(params ...PrimType) (*Graph, *BasicBlock, []Instruction) {
    g := NewGraph(len(params))
    vals := make([]Instruction, len(params))
    for i, typ := range params {
        vals[i] = NewParameterValue(i, typ)
        g.Entry.AddInstruction(vals[i])
    }
    g.Entry.AddInstruction(NewGoto())
    b := g.CreateBlock()
    g.Entry.AddSuccessor(b)
    b.AddSuccessor(g.Exit)
    return g, b, vals
}

func runSimplifier(g *Graph) {
    g.BuildDominatorTree()
    InstructionSimplifier{}.Apply(g)
}

func TestSimplify_AddZero(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    add := NewAdd(TypInt, vals[0], g.IntConstant(0))
    b.AddInstruction(add)
    ret := NewReturn(add)
    b.AddInstruction(ret)

    runSimplifier(g)
    assert.Equal(t, vals[0], ret.Value())
    assert.Equal(t, []Instruction{ret}, b.Ins)
}

func TestSimplify_SubConstantBecomesAdd(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    sub := NewSub(TypInt, vals[0], g.IntConstant(1))
    b.AddInstruction(sub)
    ret := NewReturn(sub)
    b.AddInstruction(ret)

    runSimplifier(g)
    add, ok := ret.Value().(*Add)
    require.True(t, ok)
    assert.Equal(t, vals[0], add.Left())
    assert.Equal(t, Instruction(g.IntConstant(-1)), add.Right())
}

func TestSimplify_MulStrengthReduction(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    mul := NewMul(TypInt, vals[0], g.IntConstant(8))
    b.AddInstruction(mul)
    ret := NewReturn(mul)
    b.AddInstruction(ret)

    runSimplifier(g)
    shl, ok := ret.Value().(*Shl)
    require.True(t, ok)
    assert.Equal(t, vals[0], shl.Left())
    assert.Equal(t, Instruction(g.IntConstant(3)), shl.Right())
}

func TestSimplify_MulNinePlusShiftAdd(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    mul := NewMul(TypInt, vals[0], g.IntConstant(9))
    b.AddInstruction(mul)
    ret := NewReturn(mul)
    b.AddInstruction(ret)

    runSimplifier(g)
    add, ok := ret.Value().(*Add)
    require.True(t, ok)
    shl, ok := add.Left().(*Shl)
    require.True(t, ok)
    assert.Equal(t, Instruction(g.IntConstant(3)), shl.Right())
    assert.Equal(t, vals[0], add.Right())
}

func TestSimplify_MulZero(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    mul := NewMul(TypInt, vals[0], g.IntConstant(0))
    b.AddInstruction(mul)
    ret := NewReturn(mul)
    b.AddInstruction(ret)

    runSimplifier(g)
    assert.Equal(t, Instruction(g.IntConstant(0)), ret.Value())
    assert.Empty(t, vals[0].Uses())
}

func TestSimplify_FpAddZeroKept(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypFloat)
    /* -0.0 + 0.0 is 0.0, so the identity does not hold for fp */
    fadd := NewAdd(TypFloat, vals[0], g.FloatConstant(0))
    b.AddInstruction(fadd)
    ret := NewReturn(fadd)
    b.AddInstruction(ret)

    runSimplifier(g)
    assert.Equal(t, Instruction(fadd), ret.Value())
}

func TestSimplify_DivByPowerOfTwoReciprocal(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypFloat)
    div := NewDiv(TypFloat, vals[0], g.FloatConstant(4))
    b.AddInstruction(div)
    ret := NewReturn(div)
    b.AddInstruction(ret)

    runSimplifier(g)
    mul, ok := ret.Value().(*Mul)
    require.True(t, ok)
    assert.Equal(t, Instruction(g.FloatConstant(0.25)), mul.Right())
}

func TestSimplify_DoubleNegation(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    n1 := NewNeg(TypInt, vals[0])
    n2 := NewNeg(TypInt, n1)
    b.AddInstruction(n1)
    b.AddInstruction(n2)
    ret := NewReturn(n2)
    b.AddInstruction(ret)

    runSimplifier(g)
    assert.Equal(t, vals[0], ret.Value())
    assert.Equal(t, []Instruction{ret}, b.Ins)
}

func TestSimplify_XorAllOnesBecomesNot(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    xor := NewXor(TypInt, vals[0], g.IntConstant(-1))
    b.AddInstruction(xor)
    ret := NewReturn(xor)
    b.AddInstruction(ret)

    runSimplifier(g)
    not, ok := ret.Value().(*Not)
    require.True(t, ok)
    assert.Equal(t, vals[0], not.Operand())
}

func TestSimplify_DeMorgan(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt, TypInt)
    n1 := NewNot(TypInt, vals[0])
    n2 := NewNot(TypInt, vals[1])
    and := NewAnd(TypInt, n1, n2)
    b.AddInstruction(n1)
    b.AddInstruction(n2)
    b.AddInstruction(and)
    ret := NewReturn(and)
    b.AddInstruction(ret)

    runSimplifier(g)
    not, ok := ret.Value().(*Not)
    require.True(t, ok)
    or, ok := not.Operand().(*Or)
    require.True(t, ok)
    assert.Equal(t, vals[0], or.Left())
    assert.Equal(t, vals[1], or.Right())
}

func TestSimplify_BooleanComparisonFolding(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt, TypInt)
    lt := NewCondition(CondLT, vals[0], vals[1])
    eq := NewCondition(CondEQ, lt, g.IntConstant(0))
    b.AddInstruction(lt)
    b.AddInstruction(eq)
    ret := NewReturn(eq)
    b.AddInstruction(ret)

    runSimplifier(g)
    cond, ok := ret.Value().(*Condition)
    require.True(t, ok)
    assert.Equal(t, CondGE, cond.Kind())
    assert.Equal(t, vals[0], cond.Left())
    assert.Equal(t, vals[1], cond.Right())
}

func TestSimplify_IfOfBooleanNot(t *testing.T) {
    g := NewGraph(1)
    flag := NewParameterValue(0, TypBool)
    g.Entry.AddInstruction(flag)
    g.Entry.AddInstruction(NewGoto())

    a := g.CreateBlock()
    bt := g.CreateBlock()
    bf := g.CreateBlock()
    g.Entry.AddSuccessor(a)

    bn := NewBooleanNot(flag)
    a.AddInstruction(bn)
    iff := NewIf(bn)
    a.AddInstruction(iff)
    a.AddSuccessor(bt)
    a.AddSuccessor(bf)
    bt.AddInstruction(NewReturnVoid())
    bt.AddSuccessor(g.Exit)
    bf.AddInstruction(NewReturnVoid())
    bf.AddSuccessor(g.Exit)

    runSimplifier(g)
    assert.Equal(t, Instruction(flag), iff.Condition())
    assert.Equal(t, bf, a.Succ[0])
    assert.Equal(t, bt, a.Succ[1])
    assert.Nil(t, bn.Block())
}

func TestSimplify_ImplicitConversionRemoved(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypByte)
    conv := NewTypeConversion(TypInt, vals[0])
    b.AddInstruction(conv)
    ret := NewReturn(conv)
    b.AddInstruction(ret)

    runSimplifier(g)
    assert.Equal(t, vals[0], ret.Value())
}

func TestSimplify_MergedConversions(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypInt)
    /* (double)(long)x keeps every int value, one conversion suffices */
    c1 := NewTypeConversion(TypLong, vals[0])
    c2 := NewTypeConversion(TypDouble, c1)
    b.AddInstruction(c1)
    b.AddInstruction(c2)
    ret := NewReturn(c2)
    b.AddInstruction(ret)

    runSimplifier(g)
    conv, ok := ret.Value().(*TypeConversion)
    require.True(t, ok)
    assert.Equal(t, TypDouble, conv.ResultType())
    assert.Equal(t, vals[0], conv.Operand())
    assert.Nil(t, c1.Block())
}

func TestSimplify_NullCheckOnFreshAllocation(t *testing.T) {
    g, b, _ := simplifyTestGraph()
    na := NewNewArray(g.IntConstant(4), nil)
    nc := NewNullCheck(na)
    al := NewArrayLengthOf(nc)
    b.AddInstruction(na)
    b.AddInstruction(nc)
    b.AddInstruction(al)
    ret := NewReturn(al)
    b.AddInstruction(ret)

    runSimplifier(g)
    /* the null check folds, then the length of a constant-sized array */
    assert.Equal(t, Instruction(g.IntConstant(4)), ret.Value())
    assert.Nil(t, nc.Block())
    assert.Nil(t, al.Block())
}

func TestSimplify_InstanceOfKnownOutcome(t *testing.T) {
    base := &ClassDesc { Name: "Base" }
    sub := &ClassDesc { Name: "Sub", Super: base }
    other := &ClassDesc { Name: "Other", Super: base }

    g, b, _ := simplifyTestGraph()
    obj := NewNewInstance(sub)
    kb := NewLoadClass(base)
    ko := NewLoadClass(other)
    obj.SetReferenceTypeInfo(ExactTypeInfo(sub))
    io1 := NewInstanceOf(obj, kb)
    io2 := NewInstanceOf(obj, ko)
    b.AddInstruction(obj)
    b.AddInstruction(kb)
    b.AddInstruction(ko)
    b.AddInstruction(io1)
    b.AddInstruction(io2)
    and := NewAnd(TypBool, io1, io2)
    b.AddInstruction(and)
    ret := NewReturn(and)
    b.AddInstruction(ret)

    runSimplifier(g)
    /* Sub is a Base but never an Other; 1 & 0 folds to the constant */
    assert.Equal(t, Instruction(g.IntConstant(0)), ret.Value())
}

func TestSimplify_ArraySetNullValue(t *testing.T) {
    g, b, vals := simplifyTestGraph(TypRef, TypInt)
    set := NewArraySet(vals[0], vals[1], g.NullConstant(), TypRef)
    b.AddInstruction(set)
    b.AddInstruction(NewReturnVoid())

    require.True(t, set.NeedsTypeCheck())
    runSimplifier(g)
    assert.False(t, set.NeedsTypeCheck())
}

func TestSimplify_SuspendCheckOutsideLoop(t *testing.T) {
    g, b, _ := simplifyTestGraph()
    sc := NewSuspendCheck()
    b.AddInstruction(sc)
    b.AddInstruction(NewReturnVoid())

    runSimplifier(g)
    assert.Nil(t, sc.Block())
}
