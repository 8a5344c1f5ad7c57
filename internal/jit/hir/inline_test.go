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

// return x >= 0 ? x + 1 : 0
func buildClampCallee(t *testing.T) *Graph {
    g := NewGraph(1)
    a := NewParameterValue(0, TypInt)
    g.Entry.AddInstruction(a)
    g.Entry.AddInstruction(NewGoto())

    cb := g.CreateBlock()
    neg := g.CreateBlock()
    pos := g.CreateBlock()
    g.Entry.AddSuccessor(cb)

    cond := NewCondition(CondLT, a, g.IntConstant(0))
    cb.AddInstruction(cond)
    cb.AddInstruction(NewIf(cond))
    cb.AddSuccessor(neg)
    cb.AddSuccessor(pos)

    neg.AddInstruction(NewReturn(g.IntConstant(0)))
    neg.AddSuccessor(g.Exit)
    add := NewAdd(TypInt, a, g.IntConstant(1))
    pos.AddInstruction(add)
    pos.AddInstruction(NewReturn(add))
    pos.AddSuccessor(g.Exit)

    require.NoError(t, g.BuildSsa())
    return g
}

func buildCaller(t *testing.T, target string) (*Graph, *Invoke, *Return) {
    g := NewGraph(1)
    x := NewParameterValue(0, TypInt)
    g.Entry.AddInstruction(x)
    g.Entry.AddInstruction(NewGoto())

    b := g.CreateBlock()
    g.Entry.AddSuccessor(b)
    call := NewInvoke(TypInt, target, x)
    b.AddInstruction(call)
    ret := NewReturn(call)
    b.AddInstruction(ret)
    b.AddSuccessor(g.Exit)

    require.NoError(t, g.BuildSsa())
    return g, call, ret
}

func TestInline_TwoReturnSites(t *testing.T) {
    caller, call, ret := buildCaller(t, "clamp")
    callee := buildClampCallee(t)

    require.NoError(t, caller.InlineInto(call, callee))
    require.NoError(t, CheckGraph(caller))

    assert.Equal(t, 0, countOp(caller, OpInvoke))
    p, ok := ret.Value().(*Phi)
    require.True(t, ok)
    require.Equal(t, 2, p.InputCount())
    assert.Equal(t, Instruction(caller.IntConstant(0)), p.InputAt(0))
    assert.Equal(t, OpAdd, p.InputAt(1).Op())

    /* the callee argument flows into the inlined body */
    add := p.InputAt(1).(*Add)
    assert.Equal(t, OpParameterValue, add.Left().Op())
    assert.Equal(t, caller, add.Block().Graph)
}

func TestInline_SingleReturnSite(t *testing.T) {
    callee := NewGraph(1)
    a := NewParameterValue(0, TypInt)
    callee.Entry.AddInstruction(a)
    callee.Entry.AddInstruction(NewGoto())
    body := callee.CreateBlock()
    callee.Entry.AddSuccessor(body)
    add := NewAdd(TypInt, a, callee.IntConstant(1))
    body.AddInstruction(add)
    body.AddInstruction(NewReturn(add))
    body.AddSuccessor(callee.Exit)
    require.NoError(t, callee.BuildSsa())

    caller, call, ret := buildCaller(t, "inc")
    require.NoError(t, caller.InlineInto(call, callee))
    require.NoError(t, CheckGraph(caller))

    /* one return site needs no merge phi */
    assert.Equal(t, Instruction(add), ret.Value())
    assert.Equal(t, Instruction(caller.IntConstant(1)), add.Right())
    for _, b := range caller.ReversePostOrder() {
        assert.Empty(t, b.Phi)
    }
}

func TestInline_ArgumentCountMismatch(t *testing.T) {
    callee := buildClampCallee(t)
    caller, call, _ := buildCaller(t, "clamp")

    /* pretend the callee expects two arguments */
    extra := NewParameterValue(1, TypInt)
    callee.Entry.InsertBefore(extra, callee.Entry.LastInstruction())

    err := caller.InlineInto(call, callee)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "argument count mismatch")
    assert.NotNil(t, call.Block())
}

func TestInline_RequiresSsaForm(t *testing.T) {
    caller, call, _ := buildCaller(t, "clamp")
    callee := NewGraph(0)
    err := caller.InlineInto(call, callee)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "SSA form")
}
