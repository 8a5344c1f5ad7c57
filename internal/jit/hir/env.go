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

// Environment is a deoptimization snapshot: the value of every local slot
// at the point of its holder instruction. Slots may be nil when no value is
// live. Environment uses keep values alive without counting as real uses.
type Environment struct {
    holder Instruction
    slots  []Instruction
    parent *Environment
}

// NewEnvironment allocates an environment with n empty slots. The holder is
// bound when the environment is attached via Instruction.SetEnvironment.
func NewEnvironment(n int) *Environment {
    return &Environment { slots: make([]Instruction, n) }
}

func (self *Environment) Size() int {
    return len(self.slots)
}

func (self *Environment) Holder() Instruction {
    return self.holder
}

func (self *Environment) Parent() *Environment {
    return self.parent
}

func (self *Environment) At(i int) Instruction {
    return self.slots[i]
}

// SetRawSlot fills a slot without use bookkeeping. Only valid before the
// environment is attached to its holder.
func (self *Environment) SetRawSlot(i int, v Instruction) {
    if self.holder != nil {
        panic("hir: raw slot update on an attached environment")
    }
    self.slots[i] = v
}

// CopyFrom snapshots the given locals. Only valid before attachment.
func (self *Environment) CopyFrom(locals []Instruction) {
    if self.holder != nil {
        panic("hir: raw slot update on an attached environment")
    }
    copy(self.slots, locals)
}

// SetParent chains this environment under the caller frame snapshot, used
// when a callee graph is spliced into a caller.
func (self *Environment) SetParent(parent *Environment) {
    self.parent = parent
}

// copyFor clones the slots for a new holder, registering the clone as a
// user of every slot value. Each holder gets its own copy so the chains
// can be torn down independently.
func (self *Environment) copyFor(holder Instruction) *Environment {
    e := &Environment { holder: holder, slots: make([]Instruction, len(self.slots)) }
    for i, v := range self.slots {
        if v != nil {
            e.slots[i] = v
            v.base().addEnvUser(e, i)
        }
    }
    return e
}

// ReplaceSlot swaps slot i for v, maintaining env use records.
func (self *Environment) ReplaceSlot(i int, v Instruction) {
    old := self.slots[i]
    if old == v {
        return
    }
    if old != nil {
        old.base().removeEnvUser(self, i)
    }
    self.slots[i] = v
    if v != nil {
        v.base().addEnvUser(self, i)
    }
}

// removeAsUserOfInputs detaches every env use record held by this
// environment's slots. Called when the holder is removed, and for all
// instructions of dead blocks before the blocks are disconnected.
func (self *Environment) removeAsUserOfInputs() {
    for i, v := range self.slots {
        if v != nil {
            v.base().removeEnvUser(self, i)
            self.slots[i] = nil
        }
    }
}
