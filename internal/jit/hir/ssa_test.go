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

// if (flag) r0 = 1 else r0 = 2; return r0
func TestSsa_MergePhi(t *testing.T) {
    g := NewGraph(1)
    flag := NewParameterValue(0, TypBool)
    r0 := NewLocal(0)
    g.Entry.AddInstruction(flag)
    g.Entry.AddInstruction(r0)
    g.Entry.AddInstruction(NewGoto())

    a := g.CreateBlock()
    b1 := g.CreateBlock()
    b2 := g.CreateBlock()
    m := g.CreateBlock()
    g.Entry.AddSuccessor(a)

    a.AddInstruction(NewIf(flag))
    a.AddSuccessor(b1)
    a.AddSuccessor(b2)
    b1.AddInstruction(NewStoreLocal(r0, g.IntConstant(1)))
    b1.AddInstruction(NewGoto())
    b1.AddSuccessor(m)
    b2.AddInstruction(NewStoreLocal(r0, g.IntConstant(2)))
    b2.AddInstruction(NewGoto())
    b2.AddSuccessor(m)
    load := NewLoadLocal(r0, TypInt)
    m.AddInstruction(load)
    m.AddInstruction(NewReturn(load))
    m.AddSuccessor(g.Exit)

    require.NoError(t, g.BuildSsa())
    require.NoError(t, CheckGraph(g))

    require.Len(t, m.Phi, 1)
    p := m.Phi[0]
    assert.Equal(t, TypInt, p.Type())
    assert.Equal(t, []Instruction{g.IntConstant(1), g.IntConstant(2)}, p.Inputs())
    ret := m.LastInstruction().(*Return)
    assert.Equal(t, Instruction(p), ret.Value())

    /* locals and their accessors are gone */
    for _, blk := range g.ReversePostOrder() {
        for _, v := range blk.Ins {
            assert.NotContains(t, []Op{OpLocal, OpLoadLocal, OpStoreLocal}, v.Op())
        }
    }
}

// r0 = 0; while (r0 < n) r0 = r0 + 1; return r0
func buildCountingLoop(t *testing.T) (*Graph, *BasicBlock) {
    g := NewGraph(1)
    n := NewParameterValue(0, TypInt)
    r0 := NewLocal(0)
    g.Entry.AddInstruction(n)
    g.Entry.AddInstruction(r0)
    g.Entry.AddInstruction(NewStoreLocal(r0, g.IntConstant(0)))
    g.Entry.AddInstruction(NewGoto())

    h := g.CreateBlock()
    body := g.CreateBlock()
    after := g.CreateBlock()
    g.Entry.AddSuccessor(h)

    hl := NewLoadLocal(r0, TypInt)
    h.AddInstruction(hl)
    cond := NewCondition(CondLT, hl, n)
    h.AddInstruction(cond)
    h.AddInstruction(NewIf(cond))
    h.AddSuccessor(body)
    h.AddSuccessor(after)

    bl := NewLoadLocal(r0, TypInt)
    body.AddInstruction(bl)
    add := NewAdd(TypInt, bl, g.IntConstant(1))
    body.AddInstruction(add)
    body.AddInstruction(NewStoreLocal(r0, add))
    body.AddInstruction(NewGoto())
    body.AddSuccessor(h)

    al := NewLoadLocal(r0, TypInt)
    after.AddInstruction(al)
    after.AddInstruction(NewReturn(al))
    after.AddSuccessor(g.Exit)

    require.NoError(t, g.BuildSsa())
    return g, h
}

func TestSsa_LoopPhi(t *testing.T) {
    g, h := buildCountingLoop(t)
    require.NoError(t, CheckGraph(g))

    require.True(t, h.IsLoopHeader())
    require.Len(t, h.Phi, 1)
    p := h.Phi[0]
    require.Equal(t, 2, p.InputCount())
    assert.Equal(t, Instruction(g.IntConstant(0)), p.InputAt(0))
    assert.Equal(t, OpAdd, p.InputAt(1).Op())
    assert.Equal(t, Instruction(p), p.InputAt(1).(*Add).Left())

    /* the safepoint snapshots the live local */
    sc := h.Loop.SuspendCheck
    require.NotNil(t, sc)
    require.NotNil(t, sc.Env())
    assert.Equal(t, Instruction(p), sc.Env().At(0))
}

// r0 is written on only one path; no phi must survive for it
func TestSsa_UndefinedOnOnePath(t *testing.T) {
    g := NewGraph(2)
    flag := NewParameterValue(0, TypBool)
    r0 := NewLocal(0)
    r1 := NewLocal(1)
    g.Entry.AddInstruction(flag)
    g.Entry.AddInstruction(r0)
    g.Entry.AddInstruction(r1)
    g.Entry.AddInstruction(NewStoreLocal(r1, g.IntConstant(7)))
    g.Entry.AddInstruction(NewGoto())

    a := g.CreateBlock()
    b1 := g.CreateBlock()
    b2 := g.CreateBlock()
    m := g.CreateBlock()
    g.Entry.AddSuccessor(a)

    a.AddInstruction(NewIf(flag))
    a.AddSuccessor(b1)
    a.AddSuccessor(b2)
    b1.AddInstruction(NewStoreLocal(r0, g.IntConstant(1)))
    b1.AddInstruction(NewGoto())
    b1.AddSuccessor(m)
    b2.AddInstruction(NewGoto())
    b2.AddSuccessor(m)

    load := NewLoadLocal(r1, TypInt)
    m.AddInstruction(load)
    m.AddInstruction(NewReturn(load))
    m.AddSuccessor(g.Exit)

    require.NoError(t, g.BuildSsa())
    require.NoError(t, CheckGraph(g))

    /* r1 agrees on all paths, r0 is undefined on one: no phis anywhere */
    for _, blk := range g.ReversePostOrder() {
        assert.Empty(t, blk.Phi)
    }
    ret := m.LastInstruction().(*Return)
    assert.Equal(t, Instruction(g.IntConstant(7)), ret.Value())
}

// the same slot read as int on one path and as float on another gets
// per-interpretation phis
func TestSsa_FloatEquivalent(t *testing.T) {
    g := NewGraph(1)
    flag := NewParameterValue(0, TypBool)
    r0 := NewLocal(0)
    g.Entry.AddInstruction(flag)
    g.Entry.AddInstruction(r0)
    g.Entry.AddInstruction(NewGoto())

    a := g.CreateBlock()
    b1 := g.CreateBlock()
    b2 := g.CreateBlock()
    m := g.CreateBlock()
    g.Entry.AddSuccessor(a)

    a.AddInstruction(NewIf(flag))
    a.AddSuccessor(b1)
    a.AddSuccessor(b2)
    b1.AddInstruction(NewStoreLocal(r0, g.FloatConstant(1)))
    b1.AddInstruction(NewGoto())
    b1.AddSuccessor(m)
    b2.AddInstruction(NewStoreLocal(r0, g.FloatConstant(2)))
    b2.AddInstruction(NewGoto())
    b2.AddSuccessor(m)

    load := NewLoadLocal(r0, TypFloat)
    m.AddInstruction(load)
    m.AddInstruction(NewReturn(load))
    m.AddSuccessor(g.Exit)

    require.NoError(t, g.BuildSsa())
    require.NoError(t, CheckGraph(g))

    require.Len(t, m.Phi, 1)
    assert.Equal(t, TypFloat, m.Phi[0].Type())
}

func TestSsa_DeadPhiEliminated(t *testing.T) {
    g := NewGraph(1)
    flag := NewParameterValue(0, TypBool)
    r0 := NewLocal(0)
    g.Entry.AddInstruction(flag)
    g.Entry.AddInstruction(r0)
    g.Entry.AddInstruction(NewGoto())

    a := g.CreateBlock()
    b1 := g.CreateBlock()
    b2 := g.CreateBlock()
    m := g.CreateBlock()
    g.Entry.AddSuccessor(a)

    a.AddInstruction(NewIf(flag))
    a.AddSuccessor(b1)
    a.AddSuccessor(b2)
    b1.AddInstruction(NewStoreLocal(r0, g.IntConstant(1)))
    b1.AddInstruction(NewGoto())
    b1.AddSuccessor(m)
    b2.AddInstruction(NewStoreLocal(r0, g.IntConstant(2)))
    b2.AddInstruction(NewGoto())
    b2.AddSuccessor(m)

    /* the merged value is never read */
    m.AddInstruction(NewReturnVoid())
    m.AddSuccessor(g.Exit)

    require.NoError(t, g.BuildSsa())
    require.NoError(t, CheckGraph(g))
    assert.Empty(t, m.Phi)
}
