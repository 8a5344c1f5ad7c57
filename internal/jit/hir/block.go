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
    `fmt`
)

// BasicBlock is a straight-line run of instructions. Phis live in a
// separate list ahead of the body; the body's last instruction is the one
// control-flow instruction of the block. Phi input i corresponds to Pred[i].
type BasicBlock struct {
    Id        int
    Graph     *Graph
    Phi       []*Phi
    Ins       []Instruction
    Pred      []*BasicBlock
    Succ      []*BasicBlock
    Dom       *BasicBlock
    Dominated []*BasicBlock
    Loop      *LoopInformation
}

func (self *BasicBlock) IsEntry() bool { return self.Graph.Entry == self }
func (self *BasicBlock) IsExit() bool  { return self.Graph.Exit == self }

func (self *BasicBlock) IsLoopHeader() bool {
    return self.Loop != nil && self.Loop.Header == self
}

func (self *BasicBlock) IsInLoop() bool {
    return self.Loop != nil
}

func (self *BasicBlock) FirstInstruction() Instruction {
    if len(self.Ins) == 0 {
        return nil
    } else {
        return self.Ins[0]
    }
}

func (self *BasicBlock) LastInstruction() Instruction {
    if len(self.Ins) == 0 {
        return nil
    } else {
        return self.Ins[len(self.Ins)-1]
    }
}

func (self *BasicBlock) EndsWithControlFlow() bool {
    v := self.LastInstruction()
    return v != nil && v.IsControlFlow()
}

func (self *BasicBlock) indexOf(ins Instruction) int {
    for i, v := range self.Ins {
        if v == ins {
            return i
        }
    }
    panic(fmt.Sprintf("hir: i%d is not in bb_%d", ins.ID(), self.Id))
}

// NextOf returns the instruction following ins in the body, or nil at the
// end. The phi list and the body do not chain into each other.
func (self *BasicBlock) NextOf(ins Instruction) Instruction {
    if i := self.indexOf(ins); i+1 < len(self.Ins) {
        return self.Ins[i+1]
    } else {
        return nil
    }
}

func (self *BasicBlock) attach(ins Instruction) {
    b := ins.base()
    if b.block != nil {
        panic(fmt.Sprintf("hir: i%d is already attached to bb_%d", b.id, b.block.Id))
    }
    if b.id < 0 {
        b.id = self.Graph.nextInsId()
    }
    b.block = self
    b.registerInputUses()
}

// AddInstruction appends ins to the body and makes it a user of its inputs.
func (self *BasicBlock) AddInstruction(ins Instruction) {
    if self.EndsWithControlFlow() {
        panic(fmt.Sprintf("hir: bb_%d already ends with control flow", self.Id))
    }
    self.attach(ins)
    self.Ins = append(self.Ins, ins)
}

func (self *BasicBlock) InsertBefore(ins Instruction, cursor Instruction) {
    i := self.indexOf(cursor)
    self.attach(ins)
    self.Ins = append(self.Ins, nil)
    copy(self.Ins[i+1:], self.Ins[i:])
    self.Ins[i] = ins
}

func (self *BasicBlock) InsertAfter(ins Instruction, cursor Instruction) {
    i := self.indexOf(cursor) + 1
    self.attach(ins)
    self.Ins = append(self.Ins, nil)
    copy(self.Ins[i+1:], self.Ins[i:])
    self.Ins[i] = ins
}

func (self *BasicBlock) AddPhi(p *Phi) {
    self.attach(p)
    self.Phi = append(self.Phi, p)
}

// InsertPhiAfter places p right after cursor, keeping type-equivalent phis
// adjacent for cheap lookup.
func (self *BasicBlock) InsertPhiAfter(p *Phi, cursor *Phi) {
    self.attach(p)
    for i, v := range self.Phi {
        if v == cursor {
            self.Phi = append(self.Phi, nil)
            copy(self.Phi[i+2:], self.Phi[i+1:])
            self.Phi[i+1] = p
            return
        }
    }
    panic(fmt.Sprintf("hir: phi i%d is not in bb_%d", cursor.ID(), self.Id))
}

// NextPhiOf returns the phi following p, or nil at the end of the list.
func (self *BasicBlock) NextPhiOf(p *Phi) *Phi {
    for i, v := range self.Phi {
        if v == p {
            if i+1 < len(self.Phi) {
                return self.Phi[i+1]
            } else {
                return nil
            }
        }
    }
    return nil
}

func (self *BasicBlock) detach(ins Instruction) {
    b := ins.base()
    if b.HasUses() || b.HasEnvUses() {
        panic(fmt.Sprintf("hir: removing i%d which still has uses", b.id))
    }
    b.unregisterInputUses()
    for e := b.env; e != nil; e = e.parent {
        e.removeAsUserOfInputs()
    }
    b.block = nil
}

// RemoveInstruction unlinks ins from the block. The instruction must have
// no remaining uses; callers redirect consumers with ReplaceWith first.
func (self *BasicBlock) RemoveInstruction(ins Instruction) {
    i := self.indexOf(ins)
    self.detach(ins)
    self.Ins = append(self.Ins[:i], self.Ins[i+1:]...)
}

// ReplaceAndRemoveInstructionWith substitutes repl for old in place: repl
// takes over old's position and all of its uses.
func (self *BasicBlock) ReplaceAndRemoveInstructionWith(old Instruction, repl Instruction) {
    self.InsertBefore(repl, old)
    old.ReplaceWith(repl)
    self.RemoveInstruction(old)
}

func (self *BasicBlock) RemovePhi(p *Phi) {
    for i, v := range self.Phi {
        if v == p {
            self.detach(p)
            self.Phi = append(self.Phi[:i], self.Phi[i+1:]...)
            return
        }
    }
    panic(fmt.Sprintf("hir: phi i%d is not in bb_%d", p.ID(), self.Id))
}

func (self *BasicBlock) PredIndexOf(b *BasicBlock) int {
    for i, v := range self.Pred {
        if v == b {
            return i
        }
    }
    panic(fmt.Sprintf("hir: bb_%d is not a predecessor of bb_%d", b.Id, self.Id))
}

func (self *BasicBlock) SuccIndexOf(b *BasicBlock) int {
    for i, v := range self.Succ {
        if v == b {
            return i
        }
    }
    panic(fmt.Sprintf("hir: bb_%d is not a successor of bb_%d", b.Id, self.Id))
}

// AddSuccessor links a CFG edge self -> b.
func (self *BasicBlock) AddSuccessor(b *BasicBlock) {
    self.Succ = append(self.Succ, b)
    b.Pred = append(b.Pred, self)
}

// ReplaceSuccessor redirects the edge self -> old to self -> repl. The old
// successor loses self as a predecessor; repl gains it at the end of its
// predecessor list.
func (self *BasicBlock) ReplaceSuccessor(old *BasicBlock, repl *BasicBlock) {
    self.Succ[self.SuccIndexOf(old)] = repl
    old.removePredecessor(self)
    repl.Pred = append(repl.Pred, self)
}

func (self *BasicBlock) removePredecessor(b *BasicBlock) {
    i := self.PredIndexOf(b)
    self.Pred = append(self.Pred[:i], self.Pred[i+1:]...)
    for _, p := range self.Phi {
        p.removeInputAt(i)
    }
}

// SwapPredecessors exchanges predecessor slots i and j, along with the
// corresponding phi inputs.
func (self *BasicBlock) SwapPredecessors(i int, j int) {
    self.Pred[i], self.Pred[j] = self.Pred[j], self.Pred[i]
    for _, p := range self.Phi {
        p.inputs[i], p.inputs[j] = p.inputs[j], p.inputs[i]
        p.inputs[i].base().renumberUser(p, j, i)
        p.inputs[j].base().renumberUser(p, i, j)
    }
}

// SwapSuccessors exchanges the two successors of a conditional block,
// flipping which one is taken on true. Predecessor lists of the successors
// are untouched, so their phis stay aligned.
func (self *BasicBlock) SwapSuccessors() {
    if len(self.Succ) != 2 {
        panic(fmt.Sprintf("hir: bb_%d does not have exactly two successors", self.Id))
    }
    self.Succ[0], self.Succ[1] = self.Succ[1], self.Succ[0]
}

// Dominates reports whether self is on every path to other. A block
// dominates itself.
func (self *BasicBlock) Dominates(other *BasicBlock) bool {
    for b := other; b != nil; b = b.Dom {
        if b == self {
            return true
        }
    }
    return false
}

func (self *BasicBlock) clearDominanceInformation() {
    self.Dom = nil
    self.Dominated = self.Dominated[:0]
}

// SplitAfter cuts the block after cursor. Instructions past cursor and all
// outgoing edges move to a fresh block, which is returned. The original
// block is left without a terminator; callers rewire and re-terminate it.
func (self *BasicBlock) SplitAfter(cursor Instruction) *BasicBlock {
    i := self.indexOf(cursor) + 1
    nb := self.Graph.CreateBlock()
    nb.Ins = append(nb.Ins, self.Ins[i:]...)
    self.Ins = self.Ins[:i]
    for _, v := range nb.Ins {
        v.base().block = nb
    }
    for _, s := range self.Succ {
        s.Pred[s.PredIndexOf(self)] = nb
        nb.Succ = append(nb.Succ, s)
    }
    self.Succ = self.Succ[:0]
    return nb
}

func (self *BasicBlock) String() string {
    return fmt.Sprintf("bb_%d", self.Id)
}
