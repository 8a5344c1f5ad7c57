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

// ClassDesc describes a class in the runtime type hierarchy as far as the
// optimizer needs it: the supertype chain, finality, and the element class
// for array types. The driver resolves and interns these; the optimizer
// only compares identities and walks Super links.
type ClassDesc struct {
    Name    string
    Super   *ClassDesc
    Final   bool
    Element *ClassDesc
}

func (self *ClassDesc) IsArrayClass() bool {
    return self.Element != nil
}

// IsSubclassOf walks the supertype chain, identity-compared.
func (self *ClassDesc) IsSubclassOf(other *ClassDesc) bool {
    for c := self; c != nil; c = c.Super {
        if c == other {
            return true
        }
    }
    return false
}

// ReferenceTypeInfo is the static type knowledge attached to a reference
// value: the best known class plus whether the value is exactly of that
// class or possibly a subclass. The zero value is invalid (untyped); a
// valid info with a nil class is Top, the unknown root type.
type ReferenceTypeInfo struct {
    Klass *ClassDesc
    Exact bool
    valid bool
}

func TopTypeInfo() ReferenceTypeInfo {
    return ReferenceTypeInfo { valid: true }
}

func ExactTypeInfo(klass *ClassDesc) ReferenceTypeInfo {
    return ReferenceTypeInfo { Klass: klass, Exact: true, valid: true }
}

func InexactTypeInfo(klass *ClassDesc) ReferenceTypeInfo {
    return ReferenceTypeInfo { Klass: klass, valid: true }
}

func (self ReferenceTypeInfo) IsValid() bool {
    return self.valid
}

func (self ReferenceTypeInfo) IsTop() bool {
    return self.valid && self.Klass == nil
}

func (self ReferenceTypeInfo) IsExact() bool {
    return self.valid && self.Exact
}

// IsSupertypeOf reports whether every value described by other is also
// described by self, ignoring exactness. Top is a supertype of everything.
func (self ReferenceTypeInfo) IsSupertypeOf(other ReferenceTypeInfo) bool {
    if !self.valid || !other.valid {
        return false
    }
    if self.IsTop() {
        return true
    }
    if other.IsTop() {
        return false
    }
    return other.Klass.IsSubclassOf(self.Klass)
}

func (self ReferenceTypeInfo) String() string {
    switch {
        case !self.valid     : return "<invalid>"
        case self.Klass == nil : return "Top"
        case self.Exact      : return fmt.Sprintf("=%s", self.Klass.Name)
        default              : return fmt.Sprintf("<=%s", self.Klass.Name)
    }
}

// MergeTypeInfo computes the static type of a value that may come from
// either side: the least common ancestor class, never exact unless both
// sides agree on the same exact class.
func MergeTypeInfo(a ReferenceTypeInfo, b ReferenceTypeInfo) ReferenceTypeInfo {
    if !a.IsValid() {
        return b
    }
    if !b.IsValid() {
        return a
    }
    if a.IsExact() && b.IsExact() && a.Klass == b.Klass {
        return a
    }
    if a.IsTop() || b.IsTop() {
        return TopTypeInfo()
    }
    if lca := commonAncestor(a.Klass, b.Klass); lca != nil {
        return InexactTypeInfo(lca)
    } else {
        return TopTypeInfo()
    }
}

func commonAncestor(a *ClassDesc, b *ClassDesc) *ClassDesc {
    for c := a; c != nil; c = c.Super {
        if b.IsSubclassOf(c) {
            return c
        }
    }
    return nil
}
