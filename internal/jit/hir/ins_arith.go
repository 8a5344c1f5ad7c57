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

type binaryOperation struct {
    baseInstruction
}

func (self *binaryOperation) Left() Instruction  { return self.inputs[0] }
func (self *binaryOperation) Right() Instruction { return self.inputs[1] }

// ConstantInput returns the constant operand of a commutative operation,
// if any, together with the other operand.
func (self *binaryOperation) ConstantInput() (Instruction, Instruction, bool) {
    if IsConstant(self.inputs[1]) {
        return self.inputs[1], self.inputs[0], true
    } else if self.op.isCommutative() && IsConstant(self.inputs[0]) {
        return self.inputs[0], self.inputs[1], true
    } else {
        return nil, nil, false
    }
}

type unaryOperation struct {
    baseInstruction
}

func (self *unaryOperation) Operand() Instruction { return self.inputs[0] }

type Add struct{ binaryOperation }

func NewAdd(typ PrimType, l Instruction, r Instruction) *Add {
    p := new(Add)
    p.init(p, OpAdd, typ, l, r)
    return p
}

type Sub struct{ binaryOperation }

func NewSub(typ PrimType, l Instruction, r Instruction) *Sub {
    p := new(Sub)
    p.init(p, OpSub, typ, l, r)
    return p
}

type Mul struct{ binaryOperation }

func NewMul(typ PrimType, l Instruction, r Instruction) *Mul {
    p := new(Mul)
    p.init(p, OpMul, typ, l, r)
    return p
}

type Div struct{ binaryOperation }

func NewDiv(typ PrimType, l Instruction, r Instruction) *Div {
    p := new(Div)
    p.init(p, OpDiv, typ, l, r)
    return p
}

type And struct{ binaryOperation }

func NewAnd(typ PrimType, l Instruction, r Instruction) *And {
    p := new(And)
    p.init(p, OpAnd, typ, l, r)
    return p
}

type Or struct{ binaryOperation }

func NewOr(typ PrimType, l Instruction, r Instruction) *Or {
    p := new(Or)
    p.init(p, OpOr, typ, l, r)
    return p
}

type Xor struct{ binaryOperation }

func NewXor(typ PrimType, l Instruction, r Instruction) *Xor {
    p := new(Xor)
    p.init(p, OpXor, typ, l, r)
    return p
}

type Shl struct{ binaryOperation }

func NewShl(typ PrimType, l Instruction, r Instruction) *Shl {
    p := new(Shl)
    p.init(p, OpShl, typ, l, r)
    return p
}

type Shr struct{ binaryOperation }

func NewShr(typ PrimType, l Instruction, r Instruction) *Shr {
    p := new(Shr)
    p.init(p, OpShr, typ, l, r)
    return p
}

type UShr struct{ binaryOperation }

func NewUShr(typ PrimType, l Instruction, r Instruction) *UShr {
    p := new(UShr)
    p.init(p, OpUShr, typ, l, r)
    return p
}

type Neg struct{ unaryOperation }

func NewNeg(typ PrimType, v Instruction) *Neg {
    p := new(Neg)
    p.init(p, OpNeg, typ, v)
    return p
}

type Not struct{ unaryOperation }

func NewNot(typ PrimType, v Instruction) *Not {
    p := new(Not)
    p.init(p, OpNot, typ, v)
    return p
}

type BooleanNot struct{ unaryOperation }

func NewBooleanNot(v Instruction) *BooleanNot {
    p := new(BooleanNot)
    p.init(p, OpBooleanNot, TypBool, v)
    return p
}

// TypeConversion reinterprets or converts its operand to the result type.
type TypeConversion struct {
    unaryOperation
}

func NewTypeConversion(result PrimType, v Instruction) *TypeConversion {
    p := new(TypeConversion)
    p.init(p, OpTypeConversion, result, v)
    return p
}

func (self *TypeConversion) InputType() PrimType  { return self.inputs[0].Type() }
func (self *TypeConversion) ResultType() PrimType { return self.typ }

// Cond is the comparison kind of a Condition instruction.
type Cond uint8

const (
    CondEQ Cond = iota
    CondNE
    CondLT
    CondLE
    CondGT
    CondGE
)

func (self Cond) String() string {
    switch self {
        case CondEQ : return "=="
        case CondNE : return "!="
        case CondLT : return "<"
        case CondLE : return "<="
        case CondGT : return ">"
        case CondGE : return ">="
        default     : panic("hir: invalid condition kind")
    }
}

// Opposite is the kind that holds exactly when self does not.
func (self Cond) Opposite() Cond {
    switch self {
        case CondEQ : return CondNE
        case CondNE : return CondEQ
        case CondLT : return CondGE
        case CondLE : return CondGT
        case CondGT : return CondLE
        case CondGE : return CondLT
        default     : panic("hir: invalid condition kind")
    }
}

// Mirrored is the kind obtained by swapping the operands.
func (self Cond) Mirrored() Cond {
    switch self {
        case CondLT : return CondGT
        case CondLE : return CondGE
        case CondGT : return CondLT
        case CondGE : return CondLE
        default     : return self
    }
}

// Condition compares two values, producing a boolean.
type Condition struct {
    binaryOperation
    kind Cond
}

func NewCondition(kind Cond, l Instruction, r Instruction) *Condition {
    p := new(Condition)
    p.init(p, OpCondition, TypBool, l, r)
    p.kind = kind
    return p
}

func (self *Condition) Kind() Cond { return self.kind }

func (self *Condition) details() string {
    return self.kind.String()
}
