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
    `math`
)

// IntConstant is a 32-bit integer literal. Deduplicated per graph, always
// resident in the entry block; create through Graph.IntConstant.
type IntConstant struct {
    baseInstruction
    value int32
}

func newIntConstant(v int32) *IntConstant {
    p := new(IntConstant)
    p.init(p, OpIntConstant, TypInt)
    p.value = v
    return p
}

func (self *IntConstant) Value() int32      { return self.value }
func (self *IntConstant) IsZero() bool      { return self.value == 0 }
func (self *IntConstant) IsOne() bool       { return self.value == 1 }
func (self *IntConstant) IsMinusOne() bool  { return self.value == -1 }

func (self *IntConstant) details() string {
    return fmt.Sprintf("%d", self.value)
}

type LongConstant struct {
    baseInstruction
    value int64
}

func newLongConstant(v int64) *LongConstant {
    p := new(LongConstant)
    p.init(p, OpLongConstant, TypLong)
    p.value = v
    return p
}

func (self *LongConstant) Value() int64 { return self.value }

func (self *LongConstant) details() string {
    return fmt.Sprintf("%d", self.value)
}

type FloatConstant struct {
    baseInstruction
    value float32
}

func newFloatConstant(v float32) *FloatConstant {
    p := new(FloatConstant)
    p.init(p, OpFloatConstant, TypFloat)
    p.value = v
    return p
}

func (self *FloatConstant) Value() float32 { return self.value }

func (self *FloatConstant) details() string {
    return fmt.Sprintf("%g", self.value)
}

type DoubleConstant struct {
    baseInstruction
    value float64
}

func newDoubleConstant(v float64) *DoubleConstant {
    p := new(DoubleConstant)
    p.init(p, OpDoubleConstant, TypDouble)
    p.value = v
    return p
}

func (self *DoubleConstant) Value() float64 { return self.value }

func (self *DoubleConstant) details() string {
    return fmt.Sprintf("%g", self.value)
}

// NullConstant is the typed null reference, one per graph.
type NullConstant struct {
    baseInstruction
}

func newNullConstant() *NullConstant {
    p := new(NullConstant)
    p.init(p, OpNullConstant, TypRef)
    return p
}

// ParameterValue is a formal parameter of the compiled method, in
// declaration order. Parameters live in the entry block.
type ParameterValue struct {
    baseInstruction
    index int
}

func NewParameterValue(index int, typ PrimType) *ParameterValue {
    p := new(ParameterValue)
    p.init(p, OpParameterValue, typ)
    p.index = index
    return p
}

func (self *ParameterValue) Index() int { return self.index }

func (self *ParameterValue) details() string {
    return fmt.Sprintf("p%d", self.index)
}

// Local names a local variable slot before SSA construction. All Local
// instructions live in the entry block and are stripped once the graph is
// in SSA form.
type Local struct {
    baseInstruction
    reg int
}

func NewLocal(reg int) *Local {
    p := new(Local)
    p.init(p, OpLocal, TypVoid)
    p.reg = reg
    return p
}

func (self *Local) Reg() int { return self.reg }

func (self *Local) details() string {
    return fmt.Sprintf("r%d", self.reg)
}

// LoadLocal reads a local slot under a given type interpretation. Removed
// during SSA construction.
type LoadLocal struct {
    baseInstruction
}

func NewLoadLocal(local *Local, typ PrimType) *LoadLocal {
    p := new(LoadLocal)
    p.init(p, OpLoadLocal, typ, local)
    return p
}

func (self *LoadLocal) Local() *Local {
    return self.inputs[0].(*Local)
}

// StoreLocal writes a value into a local slot. Removed during SSA
// construction.
type StoreLocal struct {
    baseInstruction
}

func NewStoreLocal(local *Local, value Instruction) *StoreLocal {
    p := new(StoreLocal)
    p.init(p, OpStoreLocal, TypVoid, local, value)
    return p
}

func (self *StoreLocal) Local() *Local {
    return self.inputs[0].(*Local)
}

func (self *StoreLocal) Value() Instruction {
    return self.inputs[1]
}

// IsConstant reports whether v is any of the literal kinds.
func IsConstant(v Instruction) bool {
    switch v.Op() {
        case OpIntConstant, OpLongConstant, OpFloatConstant, OpDoubleConstant, OpNullConstant : return true
        default                                                                               : return false
    }
}

// IsIntZero reports whether v is the integer constant 0.
func IsIntZero(v Instruction) bool {
    c, ok := v.(*IntConstant)
    return ok && c.IsZero()
}

// IsFloatingPointZero matches fp zero including negative zero, which is
// only safe to fold where the sign of zero cannot be observed.
func IsFloatingPointZero(v Instruction) bool {
    switch c := v.(type) {
        case *FloatConstant  : return c.value == 0 && math.Signbit(float64(c.value)) == false
        case *DoubleConstant : return c.value == 0 && math.Signbit(c.value) == false
        default              : return false
    }
}
