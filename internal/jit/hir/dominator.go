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
    `github.com/pkg/errors`
)

// BuildDominatorTree prepares the graph for SSA construction and analysis:
// it finds back edges, strips unreachable blocks, normalizes the CFG and
// computes immediate dominators along with the reverse post order.
func (self *Graph) BuildDominatorTree() {
    visited := newBitSet(len(self.Blocks))
    self.FindBackEdges(visited)
    self.removeInstructionsAsUsersFromDeadBlocks(visited)
    self.removeDeadBlocks(visited)
    self.SimplifyCFG()
    self.ComputeDominanceInformation()
}

// FindBackEdges runs a DFS from the entry, marking every reachable block in
// visited and recording loop back edges on their target headers.
func (self *Graph) FindBackEdges(visited *BitSet) {
    type frame struct {
        b *BasicBlock
        i int
    }
    visiting := newBitSet(len(self.Blocks))
    visited.Set(self.Entry.Id)
    visiting.Set(self.Entry.Id)
    stack := []frame{{b: self.Entry}}
    for len(stack) != 0 {
        f := &stack[len(stack)-1]
        if f.i == len(f.b.Succ) {
            visiting.Clear(f.b.Id)
            stack = stack[:len(stack)-1]
            continue
        }
        s := f.b.Succ[f.i]
        f.i++
        if visiting.Contains(s.Id) {
            if s.Loop == nil || s.Loop.Header != s {
                s.Loop = newLoopInformation(s)
            }
            s.Loop.AddBackEdge(f.b)
        } else if !visited.Contains(s.Id) {
            visited.Set(s.Id)
            visiting.Set(s.Id)
            stack = append(stack, frame{b: s})
        }
    }
}

// removeInstructionsAsUsersFromDeadBlocks detaches every use record held by
// instructions of unreachable blocks. This must happen before the blocks
// are disconnected so that live values drop their dead users first.
func (self *Graph) removeInstructionsAsUsersFromDeadBlocks(visited *BitSet) {
    for _, b := range self.Blocks {
        if b == nil || visited.Contains(b.Id) {
            continue
        }
        for _, p := range b.Phi {
            p.unregisterInputUses()
        }
        for _, v := range b.Ins {
            v.base().unregisterInputUses()
            for env := v.Env(); env != nil; env = env.Parent() {
                env.removeAsUserOfInputs()
            }
        }
    }
}

func (self *Graph) removeDeadBlocks(visited *BitSet) {
    for _, b := range self.Blocks {
        if b == nil || visited.Contains(b.Id) {
            continue
        }
        for _, s := range b.Succ {
            if visited.Contains(s.Id) {
                s.removePredecessor(b)
            }
        }
        self.Blocks[b.Id] = nil
    }
}

// SimplifyCFG splits critical edges and normalizes loops so that every
// loop has a dedicated pre-header as the first header predecessor and a
// suspend check at the top of the header.
func (self *Graph) SimplifyCFG() {
    for id := 0; id < len(self.Blocks); id++ {
        b := self.Blocks[id]
        if b == nil {
            continue
        }
        if len(b.Succ) > 1 {
            for i := 0; i < len(b.Succ); i++ {
                if s := b.Succ[i]; len(s.Pred) > 1 {
                    self.SplitCriticalEdge(b, s)
                }
            }
        }
        if b.IsLoopHeader() {
            self.SimplifyLoop(b)
        }
    }
}

// SplitCriticalEdge inserts a Goto block on the edge b -> s so that no
// edge both leaves a multi-successor block and enters a multi-predecessor
// block.
func (self *Graph) SplitCriticalEdge(b *BasicBlock, s *BasicBlock) {
    nb := self.CreateBlock()
    nb.AddInstruction(NewGoto())
    b.ReplaceSuccessor(s, nb)
    nb.AddSuccessor(s)
    if s.IsLoopHeader() && s.Loop.IsBackEdge(b) {
        s.Loop.RemoveBackEdge(b)
        s.Loop.AddBackEdge(nb)
    }
}

// SimplifyLoop gives the loop headed by header a single pre-header, makes
// it the first predecessor, and guarantees a suspend check as the header's
// first instruction.
func (self *Graph) SimplifyLoop(header *BasicBlock) {
    info := header.Loop
    if len(header.Pred) - info.NumberOfBackEdges() != 1 {
        pre := self.CreateBlock()
        pre.AddInstruction(NewGoto())
        for i := len(header.Pred) - 1; i >= 0; i-- {
            if p := header.Pred[i]; !info.IsBackEdge(p) {
                p.ReplaceSuccessor(header, pre)
            }
        }
        pre.AddSuccessor(header)
    }
    if info.IsBackEdge(header.Pred[0]) {
        for i := 1; i < len(header.Pred); i++ {
            if !info.IsBackEdge(header.Pred[i]) {
                header.SwapPredecessors(0, i)
                break
            }
        }
    }
    if sc, ok := header.FirstInstruction().(*SuspendCheck); ok {
        info.SuspendCheck = sc
    } else {
        sc := NewSuspendCheck()
        if first := header.FirstInstruction(); first != nil {
            header.InsertBefore(sc, first)
        } else {
            header.AddInstruction(sc)
        }
        info.SuspendCheck = sc
    }
}

// ComputeDominanceInformation fills in immediate dominators with the
// iterative scheme: blocks are processed once all their forward-edge
// predecessors have settled, folding each incoming edge into the running
// common dominator. The visit order is recorded as the reverse post order.
func (self *Graph) ComputeDominanceInformation() {
    for _, b := range self.Blocks {
        if b != nil {
            b.clearDominanceInformation()
        }
    }
    visits := make([]int, len(self.Blocks))
    self.rpo = self.rpo[:0]
    self.rpo = append(self.rpo, self.Entry)
    st := lane.NewStack()
    st.Push(self.Entry)
    for !st.Empty() {
        b := st.Pop().(*BasicBlock)
        for _, s := range b.Succ {
            if s == self.Entry {
                continue
            }
            if s.Dom == nil {
                s.Dom = b
            } else {
                s.Dom = findCommonDominator(s.Dom, b)
            }
            visits[s.Id]++
            if visits[s.Id] == len(s.Pred) - numberOfBackEdges(s) {
                self.rpo = append(self.rpo, s)
                st.Push(s)
            }
        }
    }
    for _, b := range self.rpo[1:] {
        b.Dom.Dominated = append(b.Dom.Dominated, b)
    }
}

func numberOfBackEdges(b *BasicBlock) int {
    if b.IsLoopHeader() {
        return b.Loop.NumberOfBackEdges()
    } else {
        return 0
    }
}

func findCommonDominator(a *BasicBlock, b *BasicBlock) *BasicBlock {
    seen := newBitSet(len(a.Graph.Blocks))
    for v := a; v != nil; v = v.Dom {
        seen.Set(v.Id)
    }
    for v := b; v != nil; v = v.Dom {
        if seen.Contains(v.Id) {
            return v
        }
    }
    panic("hir: blocks have no common dominator")
}

// AnalyzeNaturalLoops populates loop membership and rejects irreducible
// control flow: every back edge must be dominated by its loop header.
func (self *Graph) AnalyzeNaturalLoops() error {
    for _, b := range self.ReversePostOrder() {
        if !b.IsLoopHeader() {
            continue
        }
        info := b.Loop
        info.populate()
        for _, e := range info.BackEdges() {
            if !b.Dominates(e) {
                return errors.Errorf("irreducible loop: back edge bb_%d is not dominated by header bb_%d", e.Id, b.Id)
            }
        }
        if info.SuspendCheck == nil {
            if sc, ok := b.FirstInstruction().(*SuspendCheck); ok {
                info.SuspendCheck = sc
            }
        }
    }
    return nil
}
