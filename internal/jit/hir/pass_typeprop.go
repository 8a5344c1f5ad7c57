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
    `github.com/oleiade/lane`
)

// PrimitiveTypePropagation settles the storage class of every phi from the
// types of its inputs. Phis are created with the type of their first input,
// which for a loop header phi is only the pre-header value; the fixed point
// here folds in the back edge types and rewrites inputs to their
// float/double/reference equivalents where the interpretations diverge.
// A phi whose inputs cannot agree on any interpretation is marked dead.
type PrimitiveTypePropagation struct{}

func (PrimitiveTypePropagation) Apply(g *Graph) {
    v := typePropVisitor { g: g, q: lane.NewQueue() }
    for _, b := range g.ReversePostOrder() {
        phis := make([]*Phi, len(b.Phi))
        copy(phis, b.Phi)
        for _, p := range phis {
            if b.IsLoopHeader() {
                /* back edge inputs may not be typed yet */
                v.q.Enqueue(p)
            } else {
                v.update(p)
            }
        }
    }
    for !v.q.Empty() {
        v.update(v.q.Dequeue().(*Phi))
    }
}

type typePropVisitor struct {
    g *Graph
    q *lane.Queue
}

func (self *typePropVisitor) update(p *Phi) {
    if p.Block() == nil || p.IsDead() {
        return
    }
    typ := TypVoid
    for _, in := range p.Inputs() {
        m, ok := mergePhiTypes(typ, in.Type())
        if !ok {
            p.SetDead()
            return
        }
        typ = m
    }
    if typ == p.Type() {
        return
    }
    p.setType(typ)
    if typ == TypFloat || typ == TypDouble || typ == TypRef {
        for i, in := range p.Inputs() {
            if in.Type().StorageClass() == typ {
                continue
            }
            e := typedEquivalentOf(self.g, in, typ)
            if e == nil {
                p.SetDead()
                return
            }
            p.ReplaceInput(e, i)
            if ep, ok := e.(*Phi); ok {
                self.q.Enqueue(ep)
            }
        }
    }
    for _, u := range p.Uses() {
        if up, ok := u.User.(*Phi); ok && up != p {
            self.q.Enqueue(up)
        }
    }
}

// mergePhiTypes joins two storage classes. Void is the identity; int melts
// into float or reference, long into double, since the 32-bit and 64-bit
// slots each share one representation. Anything else is a conflict.
func mergePhiTypes(a PrimType, b PrimType) (PrimType, bool) {
    a = a.StorageClass()
    b = b.StorageClass()
    switch {
        case a == TypVoid                      : return b, true
        case b == TypVoid                      : return a, true
        case a == b                            : return a, true
        case a == TypInt && b == TypFloat      : return TypFloat, true
        case a == TypFloat && b == TypInt      : return TypFloat, true
        case a == TypInt && b == TypRef        : return TypRef, true
        case a == TypRef && b == TypInt        : return TypRef, true
        case a == TypLong && b == TypDouble    : return TypDouble, true
        case a == TypDouble && b == TypLong    : return TypDouble, true
        default                                : return TypVoid, false
    }
}
