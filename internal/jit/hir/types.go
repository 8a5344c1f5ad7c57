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

// PrimType is the value category of an instruction result. Reference
// values carry their class information separately, see ReferenceTypeInfo.
type PrimType uint8

const (
    TypVoid PrimType = iota
    TypBool
    TypByte
    TypChar
    TypShort
    TypInt
    TypLong
    TypFloat
    TypDouble
    TypRef
)

func (self PrimType) String() string {
    switch self {
        case TypVoid   : return "void"
        case TypBool   : return "bool"
        case TypByte   : return "byte"
        case TypChar   : return "char"
        case TypShort  : return "short"
        case TypInt    : return "int"
        case TypLong   : return "long"
        case TypFloat  : return "float"
        case TypDouble : return "double"
        case TypRef    : return "ref"
        default        : panic(fmt.Sprintf("hir: invalid primitive type: %d", self))
    }
}

// Is64Bit distinguishes the wide value categories, which occupy two
// consecutive local slots in the pre-SSA environment layout.
func (self PrimType) Is64Bit() bool {
    return self == TypLong || self == TypDouble
}

func (self PrimType) IsFloatingPoint() bool {
    return self == TypFloat || self == TypDouble
}

func (self PrimType) IsIntegral() bool {
    switch self {
        case TypBool, TypByte, TypChar, TypShort, TypInt, TypLong : return true
        default                                                   : return false
    }
}

func (self PrimType) IsNumeric() bool {
    return self.IsIntegral() || self.IsFloatingPoint()
}

// StorageClass folds the sub-int categories into int: bool, byte, char and
// short values are all represented as int once loaded.
func (self PrimType) StorageClass() PrimType {
    if self.IsIntegral() && self != TypLong {
        return TypInt
    } else {
        return self
    }
}

// EquivalentOf reports whether two types share a bit pattern and therefore
// may refer to the same local slot under different interpretations.
func (self PrimType) EquivalentOf(other PrimType) bool {
    a := self.StorageClass()
    b := other.StorageClass()
    switch {
        case a == b                                 : return true
        case a == TypInt  && b == TypFloat          : return true
        case a == TypFloat && b == TypInt           : return true
        case a == TypLong && b == TypDouble         : return true
        case a == TypDouble && b == TypLong         : return true
        case a == TypInt  && b == TypRef            : return true
        case a == TypRef  && b == TypInt            : return true
        default                                     : return false
    }
}
