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

func TestChecker_AcceptsWellFormedGraph(t *testing.T) {
    g, _, _, _, _ := buildDiamond(t)
    g.BuildDominatorTree()
    require.NoError(t, CheckGraph(g))
}

func TestChecker_MissingTerminator(t *testing.T) {
    g := NewGraph(0)
    g.Entry.AddInstruction(NewGoto())
    b := g.CreateBlock()
    g.Entry.AddSuccessor(b)
    b.AddSuccessor(g.Exit)

    err := CheckGraph(g)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "does not end with a control flow instruction")
}

func TestChecker_PhiPredecessorMismatch(t *testing.T) {
    g, _, _, _, d := buildDiamond(t)
    p := NewPhi(0, TypInt)
    d.AddPhi(p)
    p.AddInput(g.IntConstant(1))

    err := CheckGraph(g)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "inputs for 2 predecessors")
}

func TestChecker_CriticalEdge(t *testing.T) {
    g := NewGraph(1)
    flag := NewParameterValue(0, TypBool)
    g.Entry.AddInstruction(flag)
    g.Entry.AddInstruction(NewGoto())

    a := g.CreateBlock()
    b := g.CreateBlock()
    m := g.CreateBlock()
    g.Entry.AddSuccessor(a)
    a.AddInstruction(NewIf(flag))
    a.AddSuccessor(b)
    a.AddSuccessor(m)
    b.AddInstruction(NewGoto())
    b.AddSuccessor(m)
    m.AddInstruction(NewReturnVoid())
    m.AddSuccessor(g.Exit)

    err := CheckGraph(g)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "critical edge")
}

func TestChecker_DominanceViolation(t *testing.T) {
    g, _, b, c, _ := buildDiamond(t)
    /* a value defined on one branch consumed on the sibling branch */
    x := NewParameterValue(1, TypInt)
    g.Entry.InsertBefore(x, g.Entry.LastInstruction())
    add := NewAdd(TypInt, x, x)
    b.InsertBefore(add, b.LastInstruction())
    ret := NewReturn(add)
    c.ReplaceAndRemoveInstructionWith(c.LastInstruction(), ret)

    g.BuildDominatorTree()
    g.InSsaForm = true
    err := CheckGraph(g)
    g.InSsaForm = false
    require.Error(t, err)
    assert.Contains(t, err.Error(), "does not dominate its use")
}

func TestChecker_StaleUseRecord(t *testing.T) {
    g := NewGraph(1)
    x := NewParameterValue(0, TypInt)
    g.Entry.AddInstruction(x)
    g.Entry.AddInstruction(NewGoto())
    b := g.CreateBlock()
    g.Entry.AddSuccessor(b)
    add := NewAdd(TypInt, x, x)
    b.AddInstruction(add)
    b.AddInstruction(NewReturn(add))
    b.AddSuccessor(g.Exit)

    /* corrupt the input slot behind the use table's back */
    add.SetRawInputAt(0, g.IntConstant(1))

    err := CheckGraph(g)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "use record")
}
