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
    `strings`
)

// Op identifies the concrete kind of an Instruction without reflection.
type Op uint8

const (
    OpIntConstant Op = iota
    OpLongConstant
    OpFloatConstant
    OpDoubleConstant
    OpNullConstant
    OpParameterValue
    OpLocal
    OpLoadLocal
    OpStoreLocal
    OpPhi
    OpAdd
    OpSub
    OpMul
    OpDiv
    OpNeg
    OpAnd
    OpOr
    OpXor
    OpShl
    OpShr
    OpUShr
    OpNot
    OpBooleanNot
    OpTypeConversion
    OpCondition
    OpIf
    OpGoto
    OpReturn
    OpReturnVoid
    OpExit
    OpSuspendCheck
    OpArrayLength
    OpArrayGet
    OpArraySet
    OpBoundsCheck
    OpNullCheck
    OpNewArray
    OpNewInstance
    OpLoadClass
    OpInstanceOf
    OpCheckCast
    OpBoundType
    OpInstanceFieldGet
    OpInstanceFieldSet
    OpInvoke
)

type opFlags uint8

const (
    opControlFlow opFlags = 1 << iota
    opNeedsEnv
    opCanThrow
    opCommutative
)

var opTab = [...]struct {
    name  string
    flags opFlags
} {
    OpIntConstant      : { name: "IntConstant" },
    OpLongConstant     : { name: "LongConstant" },
    OpFloatConstant    : { name: "FloatConstant" },
    OpDoubleConstant   : { name: "DoubleConstant" },
    OpNullConstant     : { name: "NullConstant" },
    OpParameterValue   : { name: "ParameterValue" },
    OpLocal            : { name: "Local" },
    OpLoadLocal        : { name: "LoadLocal" },
    OpStoreLocal       : { name: "StoreLocal" },
    OpPhi              : { name: "Phi" },
    OpAdd              : { name: "Add", flags: opCommutative },
    OpSub              : { name: "Sub" },
    OpMul              : { name: "Mul", flags: opCommutative },
    OpDiv              : { name: "Div" },
    OpNeg              : { name: "Neg" },
    OpAnd              : { name: "And", flags: opCommutative },
    OpOr               : { name: "Or", flags: opCommutative },
    OpXor              : { name: "Xor", flags: opCommutative },
    OpShl              : { name: "Shl" },
    OpShr              : { name: "Shr" },
    OpUShr             : { name: "UShr" },
    OpNot              : { name: "Not" },
    OpBooleanNot       : { name: "BooleanNot" },
    OpTypeConversion   : { name: "TypeConversion" },
    OpCondition        : { name: "Condition" },
    OpIf               : { name: "If", flags: opControlFlow },
    OpGoto             : { name: "Goto", flags: opControlFlow },
    OpReturn           : { name: "Return", flags: opControlFlow },
    OpReturnVoid       : { name: "ReturnVoid", flags: opControlFlow },
    OpExit             : { name: "Exit", flags: opControlFlow },
    OpSuspendCheck     : { name: "SuspendCheck", flags: opNeedsEnv },
    OpArrayLength      : { name: "ArrayLength" },
    OpArrayGet         : { name: "ArrayGet" },
    OpArraySet         : { name: "ArraySet" },
    OpBoundsCheck      : { name: "BoundsCheck", flags: opNeedsEnv | opCanThrow },
    OpNullCheck        : { name: "NullCheck", flags: opNeedsEnv | opCanThrow },
    OpNewArray         : { name: "NewArray", flags: opNeedsEnv | opCanThrow },
    OpNewInstance      : { name: "NewInstance", flags: opNeedsEnv | opCanThrow },
    OpLoadClass        : { name: "LoadClass", flags: opNeedsEnv | opCanThrow },
    OpInstanceOf       : { name: "InstanceOf" },
    OpCheckCast        : { name: "CheckCast", flags: opNeedsEnv | opCanThrow },
    OpBoundType        : { name: "BoundType" },
    OpInstanceFieldGet : { name: "InstanceFieldGet" },
    OpInstanceFieldSet : { name: "InstanceFieldSet" },
    OpInvoke           : { name: "Invoke", flags: opNeedsEnv | opCanThrow },
}

func (self Op) String() string {
    return opTab[self].name
}

func (self Op) isControlFlow() bool {
    return opTab[self].flags & opControlFlow != 0
}

func (self Op) needsEnvironment() bool {
    return opTab[self].flags & opNeedsEnv != 0
}

func (self Op) canThrow() bool {
    return opTab[self].flags & opCanThrow != 0
}

func (self Op) isCommutative() bool {
    return opTab[self].flags & opCommutative != 0
}

// Use records one value use: input slot Index of instruction User refers to
// the producer holding the record.
type Use struct {
    User  Instruction
    Index int
}

// EnvUse records one environment use: slot Index of environment Env refers
// to the producer holding the record.
type EnvUse struct {
    Env   *Environment
    Index int
}

// Instruction is the common interface of every HIR node, including phis.
// All implementations embed baseInstruction; behaviour is shared there and
// specialized per kind only where the kind carries payload.
type Instruction interface {
    fmt.Stringer
    Op() Op
    ID() int
    Type() PrimType
    Block() *BasicBlock
    InputCount() int
    InputAt(i int) Instruction
    Inputs() []Instruction
    Uses() []Use
    EnvUses() []EnvUse
    HasUses() bool
    HasEnvUses() bool
    Env() *Environment
    SetEnvironment(env *Environment)
    Effects() SideEffects
    CanBeNull() bool
    SetCanBeNull(v bool)
    ReferenceTypeInfo() ReferenceTypeInfo
    SetReferenceTypeInfo(rti ReferenceTypeInfo)
    IsControlFlow() bool
    NeedsEnvironment() bool
    CanThrow() bool
    ReplaceWith(other Instruction)
    ReplaceInput(repl Instruction, i int)
    StrictlyDominates(other Instruction) bool
    details() string
    base() *baseInstruction
}

type baseInstruction struct {
    self      Instruction
    op        Op
    id        int
    typ       PrimType
    block     *BasicBlock
    inputs    []Instruction
    uses      []Use
    envUses   []EnvUse
    env       *Environment
    effects   SideEffects
    canBeNull bool
    rti       ReferenceTypeInfo
}

func (self *baseInstruction) init(v Instruction, op Op, typ PrimType, inputs ...Instruction) {
    self.self      = v
    self.op        = op
    self.id        = -1
    self.typ       = typ
    self.inputs    = inputs
    self.canBeNull = typ == TypRef
}

func (self *baseInstruction) base() *baseInstruction { return self }

func (self *baseInstruction) Op() Op                       { return self.op }
func (self *baseInstruction) ID() int                      { return self.id }
func (self *baseInstruction) Type() PrimType               { return self.typ }
func (self *baseInstruction) Block() *BasicBlock           { return self.block }
func (self *baseInstruction) InputCount() int              { return len(self.inputs) }
func (self *baseInstruction) InputAt(i int) Instruction    { return self.inputs[i] }
func (self *baseInstruction) Inputs() []Instruction        { return self.inputs }
func (self *baseInstruction) Uses() []Use                  { return self.uses }
func (self *baseInstruction) EnvUses() []EnvUse            { return self.envUses }
func (self *baseInstruction) HasUses() bool                { return len(self.uses) != 0 }
func (self *baseInstruction) HasEnvUses() bool             { return len(self.envUses) != 0 }
func (self *baseInstruction) Env() *Environment            { return self.env }
func (self *baseInstruction) Effects() SideEffects         { return self.effects }
func (self *baseInstruction) CanBeNull() bool              { return self.canBeNull }
func (self *baseInstruction) SetCanBeNull(v bool)          { self.canBeNull = v }
func (self *baseInstruction) IsControlFlow() bool          { return self.op.isControlFlow() }
func (self *baseInstruction) NeedsEnvironment() bool       { return self.op.needsEnvironment() }
func (self *baseInstruction) CanThrow() bool               { return self.op.canThrow() }
func (self *baseInstruction) details() string              { return "" }

func (self *baseInstruction) ReferenceTypeInfo() ReferenceTypeInfo {
    return self.rti
}

func (self *baseInstruction) SetReferenceTypeInfo(rti ReferenceTypeInfo) {
    if self.typ != TypRef {
        panic("hir: reference type info on a non-reference instruction")
    }
    self.rti = rti
}

func (self *baseInstruction) setType(typ PrimType) {
    self.typ = typ
}

// HasOnlyOneNonEnvUse reports whether exactly one instruction consumes this
// value; environment uses do not count.
func (self *baseInstruction) HasOnlyOneNonEnvUse() bool {
    return len(self.uses) == 1
}

func (self *baseInstruction) addUser(user Instruction, index int) {
    self.uses = append(self.uses, Use { User: user, Index: index })
}

func (self *baseInstruction) removeUser(user Instruction, index int) {
    for i, u := range self.uses {
        if u.User == user && u.Index == index {
            self.uses = append(self.uses[:i], self.uses[i+1:]...)
            return
        }
    }
    panic(fmt.Sprintf("hir: use record (i%d, %d) not found on i%d", user.ID(), index, self.id))
}

func (self *baseInstruction) renumberUser(user Instruction, from int, to int) {
    for i, u := range self.uses {
        if u.User == user && u.Index == from {
            self.uses[i].Index = to
            return
        }
    }
    panic(fmt.Sprintf("hir: use record (i%d, %d) not found on i%d", user.ID(), from, self.id))
}

func (self *baseInstruction) addEnvUser(env *Environment, index int) {
    self.envUses = append(self.envUses, EnvUse { Env: env, Index: index })
}

func (self *baseInstruction) removeEnvUser(env *Environment, index int) {
    for i, u := range self.envUses {
        if u.Env == env && u.Index == index {
            self.envUses = append(self.envUses[:i], self.envUses[i+1:]...)
            return
        }
    }
    panic(fmt.Sprintf("hir: env use record (slot %d) not found on i%d", index, self.id))
}

// registerInputUses makes this instruction a user of each of its inputs.
// Called once, when the instruction is attached to a block.
func (self *baseInstruction) registerInputUses() {
    for i, in := range self.inputs {
        in.base().addUser(self.self, i)
    }
}

func (self *baseInstruction) unregisterInputUses() {
    for i, in := range self.inputs {
        in.base().removeUser(self.self, i)
    }
}

// SetRawInputAt sets an input slot without use bookkeeping. Only valid
// before the instruction is attached to a block.
func (self *baseInstruction) SetRawInputAt(i int, in Instruction) {
    if self.block != nil {
        panic("hir: raw input update on an attached instruction")
    }
    self.inputs[i] = in
}

// ReplaceInput swaps input slot i for repl, maintaining both use tables.
func (self *baseInstruction) ReplaceInput(repl Instruction, i int) {
    old := self.inputs[i]
    if old == repl {
        return
    }
    old.base().removeUser(self.self, i)
    self.inputs[i] = repl
    repl.base().addUser(self.self, i)
}

// ReplaceWith redirects every value use and environment use of this
// instruction to other. Afterwards this instruction has no uses and may be
// removed from its block.
func (self *baseInstruction) ReplaceWith(other Instruction) {
    if other == self.self {
        panic("hir: instruction replaced with itself")
    }
    for _, u := range self.uses {
        u.User.base().inputs[u.Index] = other
        other.base().addUser(u.User, u.Index)
    }
    for _, u := range self.envUses {
        u.Env.slots[u.Index] = other
        other.base().addEnvUser(u.Env, u.Index)
    }
    self.uses = nil
    self.envUses = nil
}

func (self *baseInstruction) SetEnvironment(env *Environment) {
    if self.env != nil {
        panic(fmt.Sprintf("hir: i%d already has an environment", self.id))
    }
    env.holder = self.self
    self.env = env
    for i, v := range env.slots {
        if v != nil {
            v.base().addEnvUser(env, i)
        }
    }
}

// StrictlyDominates reports whether every path to other passes this
// instruction first. Phis of the same block do not order among themselves
// but dominate all non-phi instructions of their block.
func (self *baseInstruction) StrictlyDominates(other Instruction) bool {
    if self.self == other {
        return false
    }
    if self.block != other.Block() {
        return self.block.Dominates(other.Block())
    }
    if self.op == OpPhi {
        return other.Op() != OpPhi
    }
    if other.Op() == OpPhi {
        return false
    }
    for _, v := range self.block.Ins {
        if v == self.self {
            return true
        } else if v == other {
            return false
        }
    }
    panic("hir: instruction not found in its own block")
}

func insString(v Instruction) string {
    b := v.base()
    s := new(strings.Builder)
    fmt.Fprintf(s, "i%d = %s", b.id, b.op)
    if d := v.details(); d != "" {
        fmt.Fprintf(s, " %s", d)
    }
    if len(b.inputs) != 0 {
        args := make([]string, len(b.inputs))
        for i, in := range b.inputs {
            args[i] = fmt.Sprintf("i%d", in.ID())
        }
        fmt.Fprintf(s, "(%s)", strings.Join(args, ", "))
    }
    if b.typ != TypVoid {
        fmt.Fprintf(s, " : %s", b.typ)
    }
    return s.String()
}

func (self *baseInstruction) String() string {
    return insString(self.self)
}
