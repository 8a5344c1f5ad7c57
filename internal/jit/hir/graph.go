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

// Graph is the HIR of one method: a CFG with a distinguished entry and a
// single exit block. Instruction ids are unique within a graph.
type Graph struct {
    Blocks           []*BasicBlock
    Entry            *BasicBlock
    Exit             *BasicBlock
    MaxLocals        int
    HasArrayAccesses bool
    HasBoundsChecks  bool
    InSsaForm        bool
    insId            int
    rpo              []*BasicBlock
    cachedInt        map[int32]*IntConstant
    cachedLong       map[int64]*LongConstant
    cachedFloat      map[uint32]*FloatConstant
    cachedDouble     map[uint64]*DoubleConstant
    cachedNull       *NullConstant
}

// NewGraph creates a graph with an empty entry block and an exit block
// terminated by Exit. maxLocals sizes environments and the SSA builder's
// local table.
func NewGraph(maxLocals int) *Graph {
    g := &Graph {
        MaxLocals    : maxLocals,
        cachedInt    : make(map[int32]*IntConstant),
        cachedLong   : make(map[int64]*LongConstant),
        cachedFloat  : make(map[uint32]*FloatConstant),
        cachedDouble : make(map[uint64]*DoubleConstant),
    }
    g.Entry = g.CreateBlock()
    g.Exit = g.CreateBlock()
    g.Exit.AddInstruction(NewExit())
    return g
}

// CreateBlock allocates a fresh block with the next block id.
func (self *Graph) CreateBlock() *BasicBlock {
    b := &BasicBlock { Id: len(self.Blocks), Graph: self }
    self.Blocks = append(self.Blocks, b)
    return b
}

func (self *Graph) nextInsId() int {
    v := self.insId
    self.insId++
    return v
}

// insertConstant places a graph-wide constant in the entry block, before
// its terminator if it already has one.
func (self *Graph) insertConstant(c Instruction) {
    if t := self.Entry.LastInstruction(); t != nil && t.IsControlFlow() {
        self.Entry.InsertBefore(c, t)
    } else {
        self.Entry.AddInstruction(c)
    }
}

func (self *Graph) IntConstant(v int32) *IntConstant {
    if c, ok := self.cachedInt[v]; ok {
        return c
    }
    c := newIntConstant(v)
    self.insertConstant(c)
    self.cachedInt[v] = c
    return c
}

func (self *Graph) LongConstant(v int64) *LongConstant {
    if c, ok := self.cachedLong[v]; ok {
        return c
    }
    c := newLongConstant(v)
    self.insertConstant(c)
    self.cachedLong[v] = c
    return c
}

func (self *Graph) FloatConstant(v float32) *FloatConstant {
    k := math.Float32bits(v)
    if c, ok := self.cachedFloat[k]; ok {
        return c
    }
    c := newFloatConstant(v)
    self.insertConstant(c)
    self.cachedFloat[k] = c
    return c
}

func (self *Graph) DoubleConstant(v float64) *DoubleConstant {
    k := math.Float64bits(v)
    if c, ok := self.cachedDouble[k]; ok {
        return c
    }
    c := newDoubleConstant(v)
    self.insertConstant(c)
    self.cachedDouble[k] = c
    return c
}

func (self *Graph) NullConstant() *NullConstant {
    if self.cachedNull == nil {
        self.cachedNull = newNullConstant()
        self.insertConstant(self.cachedNull)
    }
    return self.cachedNull
}

// ReversePostOrder is the ordering produced by the last dominance
// computation: every block appears after all its forward-edge predecessors.
func (self *Graph) ReversePostOrder() []*BasicBlock {
    if self.rpo == nil {
        panic("hir: dominance information has not been computed")
    }
    return self.rpo
}

func (self *Graph) PostOrder() []*BasicBlock {
    rpo := self.ReversePostOrder()
    out := make([]*BasicBlock, len(rpo))
    for i, b := range rpo {
        out[len(rpo)-1-i] = b
    }
    return out
}

// LinearOrder computes a code layout order: a topological sort over forward
// edges that keeps the blocks of a loop together by preferring successors
// that stay in the current loop.
func (self *Graph) LinearOrder() []*BasicBlock {
    fwd := make([]int, len(self.Blocks))
    for _, b := range self.ReversePostOrder() {
        for _, p := range b.Pred {
            if b.Loop == nil || !b.Loop.IsBackEdge(p) {
                fwd[b.Id]++
            }
        }
    }
    var out []*BasicBlock
    var stack []*BasicBlock
    stack = append(stack, self.Entry)
    for len(stack) != 0 {
        b := stack[len(stack)-1]
        stack = stack[:len(stack)-1]
        out = append(out, b)
        /* push loop-escaping successors first so in-loop ones pop earlier */
        for _, inLoop := range [2]bool{false, true} {
            for _, s := range b.Succ {
                if s.Loop != nil && s.Loop.IsBackEdge(b) && s.Loop.Header == s {
                    continue
                }
                if (b.Loop != nil && s.Loop == b.Loop) != inLoop {
                    continue
                }
                fwd[s.Id]--
                if fwd[s.Id] == 0 {
                    stack = append(stack, s)
                }
            }
        }
    }
    return out
}

func (self *Graph) clearLoopInformation() {
    for _, b := range self.Blocks {
        if b != nil {
            b.Loop = nil
        }
    }
}

// RebuildDominatorTree recomputes back edges, dominance and loop
// membership from scratch after structural surgery such as inlining. The
// CFG is expected to already be in simplified form, so no edges are split
// and phi inputs stay aligned with predecessors.
func (self *Graph) RebuildDominatorTree() {
    self.clearLoopInformation()
    visited := newBitSet(len(self.Blocks))
    self.FindBackEdges(visited)
    self.removeInstructionsAsUsersFromDeadBlocks(visited)
    self.removeDeadBlocks(visited)
    self.ComputeDominanceInformation()
    if err := self.AnalyzeNaturalLoops(); err != nil {
        panic(err)
    }
}
