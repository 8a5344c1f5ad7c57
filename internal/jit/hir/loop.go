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

// LoopInformation describes one natural loop: its header, its back edges,
// and the set of member blocks. It is created when a back edge is found and
// populated once dominance information is available.
type LoopInformation struct {
    Header       *BasicBlock
    SuspendCheck *SuspendCheck
    backEdges    []*BasicBlock
    blocks       *BitSet
}

func newLoopInformation(header *BasicBlock) *LoopInformation {
    return &LoopInformation {
        Header: header,
        blocks: newBitSet(len(header.Graph.Blocks)),
    }
}

func (self *LoopInformation) AddBackEdge(b *BasicBlock) {
    self.backEdges = append(self.backEdges, b)
}

func (self *LoopInformation) RemoveBackEdge(b *BasicBlock) {
    for i, v := range self.backEdges {
        if v == b {
            self.backEdges = append(self.backEdges[:i], self.backEdges[i+1:]...)
            return
        }
    }
}

func (self *LoopInformation) IsBackEdge(b *BasicBlock) bool {
    for _, v := range self.backEdges {
        if v == b {
            return true
        }
    }
    return false
}

func (self *LoopInformation) BackEdges() []*BasicBlock {
    return self.backEdges
}

func (self *LoopInformation) NumberOfBackEdges() int {
    return len(self.backEdges)
}

// PreHeader is the single non-back-edge predecessor of the header. Loop
// simplification guarantees its existence and position.
func (self *LoopInformation) PreHeader() *BasicBlock {
    return self.Header.Pred[0]
}

func (self *LoopInformation) Contains(b *BasicBlock) bool {
    return self.blocks.Contains(b.Id)
}

// IsIn reports whether self is nested inside other (or is other).
func (self *LoopInformation) IsIn(other *LoopInformation) bool {
    return other.Contains(self.Header)
}

func (self *LoopInformation) add(b *BasicBlock) {
    self.blocks.Set(b.Id)
}

// populate walks backwards from every back edge up to the header, marking
// membership and tagging blocks with their innermost loop.
func (self *LoopInformation) populate() {
    self.blocks.Set(self.Header.Id)
    for _, e := range self.backEdges {
        self.populateFrom(e)
    }
}

func (self *LoopInformation) populateFrom(b *BasicBlock) {
    if self.blocks.Contains(b.Id) {
        return
    }
    self.blocks.Set(b.Id)
    b.setInLoop(self)
    for _, p := range b.Pred {
        self.populateFrom(p)
    }
}

// setInLoop records loop membership, keeping the innermost loop. A loop
// header always keeps its own loop.
func (self *BasicBlock) setInLoop(l *LoopInformation) {
    switch {
        case self.IsLoopHeader()           : // header keeps its own loop info
        case self.Loop == nil              : self.Loop = l
        case self.Loop.Contains(l.Header)  : self.Loop = l
        default                            : // l encloses the current loop, keep the inner one
    }
}
