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

// if (x != null) { x.f } pins non-nullness onto the taken branch
func TestRtp_NullTestBranch(t *testing.T) {
    g := NewGraph(1)
    x := NewParameterValue(0, TypRef)
    g.Entry.AddInstruction(x)
    g.Entry.AddInstruction(NewGoto())

    cb := g.CreateBlock()
    bt := g.CreateBlock()
    bf := g.CreateBlock()
    g.Entry.AddSuccessor(cb)

    cond := NewCondition(CondNE, x, g.NullConstant())
    cb.AddInstruction(cond)
    cb.AddInstruction(NewIf(cond))
    cb.AddSuccessor(bt)
    cb.AddSuccessor(bf)

    nc := NewNullCheck(x)
    bt.AddInstruction(nc)
    bt.AddInstruction(NewReturn(nc))
    bt.AddSuccessor(g.Exit)
    bf.AddInstruction(NewReturn(g.NullConstant()))
    bf.AddSuccessor(g.Exit)

    g.BuildDominatorTree()
    ReferenceTypePropagation{}.Apply(g)

    bound, ok := bt.FirstInstruction().(*BoundType)
    require.True(t, ok)
    assert.Equal(t, Instruction(x), bound.Value())
    assert.False(t, bound.CanBeNull())
    assert.Equal(t, Instruction(bound), nc.Value())

    /* the null test in the branch condition itself is untouched */
    assert.Equal(t, Instruction(x), cond.Left())

    /* the simplifier can now fold the guarded null check */
    InstructionSimplifier{}.Apply(g)
    assert.Nil(t, nc.Block())
}

// if (o instanceof Final) types the object exactly in the taken branch
func TestRtp_InstanceOfFinalClass(t *testing.T) {
    final := &ClassDesc { Name: "Leaf", Final: true }

    g := NewGraph(1)
    o := NewParameterValue(0, TypRef)
    g.Entry.AddInstruction(o)
    g.Entry.AddInstruction(NewGoto())

    cb := g.CreateBlock()
    tt := g.CreateBlock()
    ff := g.CreateBlock()
    g.Entry.AddSuccessor(cb)

    klass := NewLoadClass(final)
    iof := NewInstanceOf(o, klass)
    cb.AddInstruction(klass)
    cb.AddInstruction(iof)
    cb.AddInstruction(NewIf(iof))
    cb.AddSuccessor(tt)
    cb.AddSuccessor(ff)

    tt.AddInstruction(NewReturn(o))
    tt.AddSuccessor(g.Exit)
    ff.AddInstruction(NewReturn(g.NullConstant()))
    ff.AddSuccessor(g.Exit)

    g.BuildDominatorTree()
    ReferenceTypePropagation{}.Apply(g)

    bound, ok := tt.FirstInstruction().(*BoundType)
    require.True(t, ok)
    rti := bound.ReferenceTypeInfo()
    assert.True(t, rti.IsExact())
    assert.Equal(t, final, rti.Klass)
    assert.False(t, bound.CanBeNull())

    /* the dominated return sees the bounded value */
    ret := tt.LastInstruction().(*Return)
    assert.Equal(t, Instruction(bound), ret.Value())
}

// a phi of two allocations merges to their least common ancestor
func TestRtp_PhiMergesToCommonAncestor(t *testing.T) {
    base := &ClassDesc { Name: "Base" }
    c := &ClassDesc { Name: "C", Super: base }
    d := &ClassDesc { Name: "D", Super: base }

    g := NewGraph(1)
    flag := NewParameterValue(0, TypBool)
    g.Entry.AddInstruction(flag)
    g.Entry.AddInstruction(NewGoto())

    a := g.CreateBlock()
    b1 := g.CreateBlock()
    b2 := g.CreateBlock()
    m := g.CreateBlock()
    g.Entry.AddSuccessor(a)

    a.AddInstruction(NewIf(flag))
    a.AddSuccessor(b1)
    a.AddSuccessor(b2)

    i1 := NewNewInstance(c)
    b1.AddInstruction(i1)
    b1.AddInstruction(NewGoto())
    b1.AddSuccessor(m)
    i2 := NewNewInstance(d)
    b2.AddInstruction(i2)
    b2.AddInstruction(NewGoto())
    b2.AddSuccessor(m)

    p := NewPhi(0, TypRef)
    m.AddPhi(p)
    p.AddInput(i1)
    p.AddInput(i2)
    m.AddInstruction(NewReturn(p))
    m.AddSuccessor(g.Exit)

    g.BuildDominatorTree()
    ReferenceTypePropagation{}.Apply(g)

    rti := p.ReferenceTypeInfo()
    require.True(t, rti.IsValid())
    assert.False(t, rti.IsExact())
    assert.Equal(t, base, rti.Klass)
    assert.False(t, p.CanBeNull())

    /* the allocations themselves stay exactly typed */
    assert.True(t, i1.ReferenceTypeInfo().IsExact())
    assert.Equal(t, c, i1.ReferenceTypeInfo().Klass)
}

// reference loads from a typed array inherit the element class
func TestRtp_ArrayGetElementType(t *testing.T) {
    elem := &ClassDesc { Name: "E" }
    arr := &ClassDesc { Name: "E[]", Element: elem }

    g := NewGraph(1)
    i := NewParameterValue(0, TypInt)
    g.Entry.AddInstruction(i)
    g.Entry.AddInstruction(NewGoto())

    b := g.CreateBlock()
    g.Entry.AddSuccessor(b)

    na := NewNewArray(g.IntConstant(4), arr)
    get := NewArrayGet(na, i, TypRef)
    b.AddInstruction(na)
    b.AddInstruction(get)
    b.AddInstruction(NewReturn(get))
    b.AddSuccessor(g.Exit)

    g.BuildDominatorTree()
    ReferenceTypePropagation{}.Apply(g)

    rti := get.ReferenceTypeInfo()
    require.True(t, rti.IsValid())
    assert.False(t, rti.IsExact())
    assert.Equal(t, elem, rti.Klass)
}
