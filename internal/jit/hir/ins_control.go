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

// If branches on a boolean condition. Successor 0 of the owning block is
// taken when the condition holds, successor 1 otherwise.
type If struct {
    baseInstruction
}

func NewIf(cond Instruction) *If {
    p := new(If)
    p.init(p, OpIf, TypVoid, cond)
    return p
}

func (self *If) Condition() Instruction        { return self.inputs[0] }
func (self *If) TrueSuccessor() *BasicBlock    { return self.block.Succ[0] }
func (self *If) FalseSuccessor() *BasicBlock   { return self.block.Succ[1] }

// Goto transfers control to the single successor of the owning block.
type Goto struct {
    baseInstruction
}

func NewGoto() *Goto {
    p := new(Goto)
    p.init(p, OpGoto, TypVoid)
    return p
}

func (self *Goto) Successor() *BasicBlock { return self.block.Succ[0] }

type Return struct {
    baseInstruction
}

func NewReturn(value Instruction) *Return {
    p := new(Return)
    p.init(p, OpReturn, TypVoid, value)
    return p
}

func (self *Return) Value() Instruction { return self.inputs[0] }

type ReturnVoid struct {
    baseInstruction
}

func NewReturnVoid() *ReturnVoid {
    p := new(ReturnVoid)
    p.init(p, OpReturnVoid, TypVoid)
    return p
}

// Exit terminates the single exit block every graph owns.
type Exit struct {
    baseInstruction
}

func NewExit() *Exit {
    p := new(Exit)
    p.init(p, OpExit, TypVoid)
    return p
}

// SuspendCheck is a safepoint: the runtime may interrupt, GC or deoptimize
// here. Every loop carries one at the top of its header.
type SuspendCheck struct {
    baseInstruction
}

func NewSuspendCheck() *SuspendCheck {
    p := new(SuspendCheck)
    p.init(p, OpSuspendCheck, TypVoid)
    p.effects = SideEffects { TriggersGC: true }
    return p
}

// Invoke calls another method. The optimizer treats it as an opaque clobber
// of all memory; resolution and devirtualization are the driver's business.
type Invoke struct {
    baseInstruction
    target string
}

func NewInvoke(returnType PrimType, target string, args ...Instruction) *Invoke {
    p := new(Invoke)
    p.init(p, OpInvoke, returnType, args...)
    p.target = target
    p.effects = SideEffects {
        ArrayReads  : ^TypeGroupSet(0),
        ArrayWrites : ^TypeGroupSet(0),
        FieldReads  : ^TypeGroupSet(0),
        FieldWrites : ^TypeGroupSet(0),
        TriggersGC  : true,
    }
    return p
}

func (self *Invoke) Target() string { return self.target }

func (self *Invoke) details() string {
    return self.target
}
