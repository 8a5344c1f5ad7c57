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

    `github.com/oleiade/lane`
)

// MarkDeadPhis flags every phi that no real computation observes. A phi is
// live when a non-phi instruction uses it, or when a live phi does;
// environment uses do not keep a phi alive.
func MarkDeadPhis(g *Graph) {
    q := lane.NewQueue()
    for _, b := range g.ReversePostOrder() {
        for _, p := range b.Phi {
            p.SetDead()
            for _, u := range p.Uses() {
                if u.User.Op() != OpPhi {
                    p.SetLive()
                    q.Enqueue(p)
                    break
                }
            }
        }
    }
    for !q.Empty() {
        p := q.Dequeue().(*Phi)
        for _, in := range p.Inputs() {
            if ip, ok := in.(*Phi); ok && ip.IsDead() {
                ip.SetLive()
                q.Enqueue(ip)
            }
        }
    }
}

// EliminateDeadPhis removes every phi marked dead. Their environment slots
// are cleared; deoptimization simply loses the value, which is fine since
// no computation produces or consumes it anymore.
func EliminateDeadPhis(g *Graph) {
    /* drop all use records held by dead phis first, so mutually referring
     * dead phis can be unlinked in any order */
    for _, b := range g.ReversePostOrder() {
        for _, p := range b.Phi {
            if p.IsDead() {
                p.unregisterInputUses()
                for _, u := range append([]EnvUse(nil), p.EnvUses()...) {
                    u.Env.ReplaceSlot(u.Index, nil)
                }
            }
        }
    }
    for _, b := range g.ReversePostOrder() {
        phis := b.Phi[:0]
        for _, p := range b.Phi {
            if p.IsLive() {
                phis = append(phis, p)
                continue
            }
            for _, u := range p.Uses() {
                if ip, ok := u.User.(*Phi); !ok || ip.IsLive() {
                    panic(fmt.Sprintf("hir: dead phi i%d has live user i%d", p.ID(), u.User.ID()))
                }
            }
            p.uses = nil
            p.block = nil
        }
        b.Phi = phis
    }
}

// EliminateRedundantPhis replaces every phi whose inputs all agree on a
// single value (ignoring the phi itself) with that value. Replacements can
// make other phis redundant, so the worklist runs to a fixed point.
func EliminateRedundantPhis(g *Graph) {
    q := lane.NewQueue()
    for _, b := range g.ReversePostOrder() {
        for _, p := range b.Phi {
            q.Enqueue(p)
        }
    }
    for !q.Empty() {
        p := q.Dequeue().(*Phi)
        if p.Block() == nil {
            continue
        }
        var cand Instruction
        ok := true
        for _, in := range p.Inputs() {
            if in == Instruction(p) {
                continue
            }
            if cand == nil {
                cand = in
            } else if in != cand {
                ok = false
                break
            }
        }
        if !ok || cand == nil {
            continue
        }
        for _, u := range p.Uses() {
            if ip, isPhi := u.User.(*Phi); isPhi && ip != p {
                q.Enqueue(ip)
            }
        }
        p.ReplaceWith(cand)
        p.Block().RemovePhi(p)
    }
}
