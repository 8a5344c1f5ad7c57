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

// Phi merges one value per predecessor: input i corresponds to predecessor
// i of the owning block, an invariant maintained by all CFG surgery.
type Phi struct {
    baseInstruction
    reg  int
    live bool
}

// NewPhi creates an empty phi for local slot reg. Inputs are appended with
// AddInput as predecessor values become known.
func NewPhi(reg int, typ PrimType) *Phi {
    p := new(Phi)
    p.init(p, OpPhi, typ)
    p.reg = reg
    p.live = true
    return p
}

// Reg is the local slot this phi merges. Only meaningful during SSA
// construction; -1 afterwards.
func (self *Phi) Reg() int {
    return self.reg
}

func (self *Phi) IsDead() bool  { return !self.live }
func (self *Phi) IsLive() bool  { return self.live }
func (self *Phi) SetDead()      { self.live = false }
func (self *Phi) SetLive()      { self.live = true }

// AddInput appends the value flowing in from the next predecessor.
func (self *Phi) AddInput(v Instruction) {
    i := len(self.inputs)
    self.inputs = append(self.inputs, v)
    if self.block != nil {
        v.base().addUser(self, i)
    }
}

// removeInputAt drops input i, shifting the rest down and renumbering
// their use records to match.
func (self *Phi) removeInputAt(i int) {
    if self.block != nil {
        self.inputs[i].base().removeUser(self, i)
    }
    copy(self.inputs[i:], self.inputs[i+1:])
    self.inputs = self.inputs[:len(self.inputs)-1]
    if self.block != nil {
        for j := i; j < len(self.inputs); j++ {
            self.inputs[j].base().renumberUser(self, j+1, j)
        }
    }
}

// IsLoopHeaderPhi reports whether the owning block heads a natural loop.
func (self *Phi) IsLoopHeaderPhi() bool {
    return self.block != nil && self.block.IsLoopHeader()
}

func (self *Phi) details() string {
    if self.reg >= 0 {
        return fmt.Sprintf("r%d", self.reg)
    } else {
        return ""
    }
}
