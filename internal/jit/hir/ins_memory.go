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

// FieldRef identifies an instance field as far as the optimizer cares:
// declaring class, name and value type.
type FieldRef struct {
    Class    *ClassDesc
    Name     string
    Typ      PrimType
    Volatile bool
}

func (self FieldRef) String() string {
    return fmt.Sprintf("%s.%s", self.Class.Name, self.Name)
}

// ArrayLength reads the length field of an array reference. A NewArray and
// the ArrayLength observing it denote the same abstract value for bounds
// reasoning.
type ArrayLength struct {
    baseInstruction
}

func NewArrayLengthOf(array Instruction) *ArrayLength {
    p := new(ArrayLength)
    p.init(p, OpArrayLength, TypInt, array)
    return p
}

func (self *ArrayLength) Array() Instruction { return self.inputs[0] }

type ArrayGet struct {
    baseInstruction
}

func NewArrayGet(array Instruction, index Instruction, typ PrimType) *ArrayGet {
    p := new(ArrayGet)
    p.init(p, OpArrayGet, typ, array, index)
    p.effects = ArrayReadOf(typ)
    return p
}

func (self *ArrayGet) Array() Instruction { return self.inputs[0] }
func (self *ArrayGet) Index() Instruction { return self.inputs[1] }

// retype switches the value interpretation of the load in place, used when
// SSA construction discovers the element type from the uses.
func (self *ArrayGet) retype(typ PrimType) {
    self.typ = typ
    self.effects = ArrayReadOf(typ)
    self.canBeNull = typ == TypRef
}

type ArraySet struct {
    baseInstruction
    component      PrimType
    needsTypeCheck bool
}

func NewArraySet(array Instruction, index Instruction, value Instruction, component PrimType) *ArraySet {
    p := new(ArraySet)
    p.init(p, OpArraySet, TypVoid, array, index, value)
    p.component = component
    p.needsTypeCheck = component == TypRef
    p.effects = ArrayWriteOf(component)
    return p
}

func (self *ArraySet) Array() Instruction     { return self.inputs[0] }
func (self *ArraySet) Index() Instruction     { return self.inputs[1] }
func (self *ArraySet) Value() Instruction     { return self.inputs[2] }
func (self *ArraySet) ComponentType() PrimType { return self.component }
func (self *ArraySet) NeedsTypeCheck() bool    { return self.needsTypeCheck }
func (self *ArraySet) ClearNeedsTypeCheck()    { self.needsTypeCheck = false }

// BoundsCheck validates index against length and produces the index for
// use by the guarded access. Removing a proven check is done by replacing
// it with its index input.
type BoundsCheck struct {
    baseInstruction
}

func NewBoundsCheck(index Instruction, length Instruction) *BoundsCheck {
    p := new(BoundsCheck)
    p.init(p, OpBoundsCheck, TypInt, index, length)
    return p
}

func (self *BoundsCheck) Index() Instruction  { return self.inputs[0] }
func (self *BoundsCheck) Length() Instruction { return self.inputs[1] }

// NullCheck validates that its input is non-null and produces it.
type NullCheck struct {
    baseInstruction
}

func NewNullCheck(value Instruction) *NullCheck {
    p := new(NullCheck)
    p.init(p, OpNullCheck, TypRef, value)
    p.canBeNull = false
    return p
}

func (self *NullCheck) Value() Instruction { return self.inputs[0] }

type NewArray struct {
    baseInstruction
    klass *ClassDesc
}

func NewNewArray(length Instruction, klass *ClassDesc) *NewArray {
    p := new(NewArray)
    p.init(p, OpNewArray, TypRef, length)
    p.klass = klass
    p.canBeNull = false
    p.effects = AllocationEffects()
    return p
}

func (self *NewArray) Length() Instruction { return self.inputs[0] }
func (self *NewArray) Klass() *ClassDesc   { return self.klass }

func (self *NewArray) details() string {
    if self.klass != nil {
        return self.klass.Name
    } else {
        return ""
    }
}

type NewInstance struct {
    baseInstruction
    klass *ClassDesc
}

func NewNewInstance(klass *ClassDesc) *NewInstance {
    p := new(NewInstance)
    p.init(p, OpNewInstance, TypRef)
    p.klass = klass
    p.canBeNull = false
    p.effects = AllocationEffects()
    return p
}

func (self *NewInstance) Klass() *ClassDesc { return self.klass }

func (self *NewInstance) details() string {
    return self.klass.Name
}

// LoadClass materializes the class object for type checks and allocation.
type LoadClass struct {
    baseInstruction
    klass *ClassDesc
}

func NewLoadClass(klass *ClassDesc) *LoadClass {
    p := new(LoadClass)
    p.init(p, OpLoadClass, TypRef)
    p.klass = klass
    p.canBeNull = false
    return p
}

func (self *LoadClass) Klass() *ClassDesc { return self.klass }

func (self *LoadClass) details() string {
    return self.klass.Name
}

type InstanceOf struct {
    baseInstruction
}

func NewInstanceOf(obj Instruction, klass *LoadClass) *InstanceOf {
    p := new(InstanceOf)
    p.init(p, OpInstanceOf, TypBool, obj, klass)
    return p
}

func (self *InstanceOf) Obj() Instruction        { return self.inputs[0] }
func (self *InstanceOf) TargetClass() *LoadClass { return self.inputs[1].(*LoadClass) }

type CheckCast struct {
    baseInstruction
}

func NewCheckCast(obj Instruction, klass *LoadClass) *CheckCast {
    p := new(CheckCast)
    p.init(p, OpCheckCast, TypVoid, obj, klass)
    return p
}

func (self *CheckCast) Obj() Instruction        { return self.inputs[0] }
func (self *CheckCast) TargetClass() *LoadClass { return self.inputs[1].(*LoadClass) }

// BoundType narrows the static knowledge about a reference on a control
// flow edge, e.g. below an if (x != null) or if (x instanceof C) branch.
// It produces its input value with a tighter type or nullability.
type BoundType struct {
    baseInstruction
    upper          ReferenceTypeInfo
    upperCanBeNull bool
}

func NewBoundType(value Instruction, upper ReferenceTypeInfo, upperCanBeNull bool) *BoundType {
    p := new(BoundType)
    p.init(p, OpBoundType, TypRef, value)
    p.upper = upper
    p.upperCanBeNull = upperCanBeNull
    p.canBeNull = upperCanBeNull
    return p
}

func (self *BoundType) Value() Instruction            { return self.inputs[0] }
func (self *BoundType) UpperBound() ReferenceTypeInfo { return self.upper }
func (self *BoundType) UpperCanBeNull() bool          { return self.upperCanBeNull }

func (self *BoundType) details() string {
    return self.upper.String()
}

type InstanceFieldGet struct {
    baseInstruction
    field FieldRef
}

func NewInstanceFieldGet(obj Instruction, field FieldRef) *InstanceFieldGet {
    p := new(InstanceFieldGet)
    p.init(p, OpInstanceFieldGet, field.Typ, obj)
    p.field = field
    p.effects = FieldReadOf(field.Typ)
    return p
}

func (self *InstanceFieldGet) Obj() Instruction { return self.inputs[0] }
func (self *InstanceFieldGet) Field() FieldRef  { return self.field }

func (self *InstanceFieldGet) details() string {
    return self.field.String()
}

type InstanceFieldSet struct {
    baseInstruction
    field FieldRef
}

func NewInstanceFieldSet(obj Instruction, value Instruction, field FieldRef) *InstanceFieldSet {
    p := new(InstanceFieldSet)
    p.init(p, OpInstanceFieldSet, TypVoid, obj, value)
    p.field = field
    p.effects = FieldWriteOf(field.Typ)
    return p
}

func (self *InstanceFieldSet) Obj() Instruction   { return self.inputs[0] }
func (self *InstanceFieldSet) Value() Instruction { return self.inputs[1] }
func (self *InstanceFieldSet) Field() FieldRef    { return self.field }

func (self *InstanceFieldSet) details() string {
    return self.field.String()
}
