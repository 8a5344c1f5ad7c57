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

// TypeGroupSet is a bit set of primitive type groups touched by a memory
// access. Types with the same bit pattern alias each other: int aliases
// float, long aliases double. An access tagged with one of an aliasing pair
// therefore sets both bits.
type TypeGroupSet uint16

const (
    groupInt TypeGroupSet = 1 << iota
    groupLong
    groupRef
)

func groupOf(t PrimType) TypeGroupSet {
    switch t.StorageClass() {
        case TypInt, TypFloat    : return groupInt
        case TypLong, TypDouble  : return groupLong
        case TypRef              : return groupRef
        default                  : return 0
    }
}

// SideEffects summarizes what memory an instruction may read or write, plus
// whether it interacts with the garbage collector. Pure value computations
// carry the zero value.
type SideEffects struct {
    ArrayReads   TypeGroupSet
    ArrayWrites  TypeGroupSet
    FieldReads   TypeGroupSet
    FieldWrites  TypeGroupSet
    TriggersGC   bool
    DependsOnGC  bool
}

func ArrayReadOf(t PrimType) SideEffects {
    return SideEffects { ArrayReads: groupOf(t) }
}

func ArrayWriteOf(t PrimType) SideEffects {
    return SideEffects { ArrayWrites: groupOf(t) }
}

func FieldReadOf(t PrimType) SideEffects {
    return SideEffects { FieldReads: groupOf(t) }
}

func FieldWriteOf(t PrimType) SideEffects {
    return SideEffects { FieldWrites: groupOf(t) }
}

func AllocationEffects() SideEffects {
    return SideEffects { TriggersGC: true }
}

func (self SideEffects) Union(other SideEffects) SideEffects {
    return SideEffects {
        ArrayReads  : self.ArrayReads | other.ArrayReads,
        ArrayWrites : self.ArrayWrites | other.ArrayWrites,
        FieldReads  : self.FieldReads | other.FieldReads,
        FieldWrites : self.FieldWrites | other.FieldWrites,
        TriggersGC  : self.TriggersGC || other.TriggersGC,
        DependsOnGC : self.DependsOnGC || other.DependsOnGC,
    }
}

func (self SideEffects) DoesNothing() bool {
    return self == SideEffects{}
}

func (self SideEffects) DoesAnyWrite() bool {
    return self.ArrayWrites != 0 || self.FieldWrites != 0
}

func (self SideEffects) DoesAnyRead() bool {
    return self.ArrayReads != 0 || self.FieldReads != 0
}

// MayDependOn reports whether an instruction with effects self may observe
// a value written by an instruction with effects other.
func (self SideEffects) MayDependOn(other SideEffects) bool {
    if self.ArrayReads & other.ArrayWrites != 0 {
        return true
    }
    if self.FieldReads & other.FieldWrites != 0 {
        return true
    }
    if self.DependsOnGC && other.TriggersGC {
        return true
    }
    return false
}
