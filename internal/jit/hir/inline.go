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
    `github.com/pkg/errors`
)

// InlineInto splices the body of callee in place of call, which must be an
// instruction of this graph. Arguments replace the callee's parameters,
// callee constants are re-interned into this graph, return sites merge into
// a phi when needed, and callee environments are chained under a snapshot
// of the call site for deoptimization. The callee graph is consumed: its
// blocks become part of this graph. Both graphs must be in SSA form. On
// success the dominator tree is rebuilt.
func (self *Graph) InlineInto(call *Invoke, callee *Graph) error {
    if !self.InSsaForm || !callee.InSsaForm {
        return errors.New("inlining requires both graphs in SSA form")
    }
    if call.Block() == nil || call.Block().Graph != self {
        return errors.Errorf("call i%d does not belong to this graph", call.ID())
    }
    if err := checkInlineable(call, callee); err != nil {
        return err
    }

    b := call.Block()
    tail := b.SplitAfter(call)
    bodyStart := callee.Entry.Succ[0]

    /* parameters and interned constants of the callee map onto caller
     * values; whatever remains in the callee entry is dropped */
    for _, v := range snapshotIns(callee.Entry) {
        switch p := v.(type) {
            case *ParameterValue  : p.ReplaceWith(call.InputAt(p.Index()))
            case *IntConstant     : p.ReplaceWith(self.IntConstant(p.Value()))
            case *LongConstant    : p.ReplaceWith(self.LongConstant(p.Value()))
            case *FloatConstant   : p.ReplaceWith(self.FloatConstant(p.Value()))
            case *DoubleConstant  : p.ReplaceWith(self.DoubleConstant(p.Value()))
            case *NullConstant    : p.ReplaceWith(self.NullConstant())
        }
    }

    /* adopt the callee body blocks */
    for _, cb := range callee.Blocks {
        if cb == nil || cb == callee.Entry || cb == callee.Exit {
            continue
        }
        cb.Graph = self
        cb.Id = len(self.Blocks)
        self.Blocks = append(self.Blocks, cb)
        for _, p := range cb.Phi {
            p.base().id = self.nextInsId()
        }
        for _, v := range cb.Ins {
            v.base().id = self.nextInsId()
            if env := v.Env(); env != nil && call.Env() != nil {
                env.SetParent(call.Env().copyFor(v))
            }
        }
    }

    /* reroute the entry edge: the split head falls through into the body */
    b.AddInstruction(NewGoto())
    b.Succ = append(b.Succ, bodyStart)
    bodyStart.Pred[bodyStart.PredIndexOf(callee.Entry)] = b

    /* reroute every return onto the tail, merging values with a phi */
    var rets []Instruction
    exits := append([]*BasicBlock(nil), callee.Exit.Pred...)
    for _, rb := range exits {
        last := rb.LastInstruction()
        if r, ok := last.(*Return); ok {
            rets = append(rets, r.Value())
        }
        rb.RemoveInstruction(last)
        rb.AddInstruction(NewGoto())
        rb.Succ[rb.SuccIndexOf(callee.Exit)] = tail
        tail.Pred = append(tail.Pred, rb)
    }

    var result Instruction
    switch {
        case call.Type() == TypVoid:
        case len(rets) == 1:
            result = rets[0]
        default:
            p := NewPhi(-1, call.Type().StorageClass())
            for _, v := range rets {
                p.AddInput(v)
            }
            tail.AddPhi(p)
            result = p
    }
    if result != nil {
        call.ReplaceWith(result)
    }
    b.RemoveInstruction(call)

    self.HasArrayAccesses = self.HasArrayAccesses || callee.HasArrayAccesses
    self.HasBoundsChecks = self.HasBoundsChecks || callee.HasBoundsChecks
    self.RebuildDominatorTree()
    log.Debugf("inlined %s: %d return sites merged", call.Target(), len(exits))
    return nil
}

// checkInlineable rejects callees the splice cannot express: an entry block
// with computation other than parameters and constants, a callee that never
// returns, or a return type mismatch.
func checkInlineable(call *Invoke, callee *Graph) error {
    if len(callee.Exit.Pred) == 0 {
        return errors.New("callee never returns")
    }
    if len(callee.Entry.Succ) != 1 {
        return errors.New("callee entry must have a single successor")
    }
    for _, v := range callee.Entry.Ins {
        switch v.Op() {
            case OpParameterValue, OpIntConstant, OpLongConstant, OpFloatConstant, OpDoubleConstant, OpNullConstant, OpGoto:
            default:
                return errors.Errorf("callee entry holds %s, cannot inline", v.Op())
        }
    }
    n := 0
    for _, v := range callee.Entry.Ins {
        if v.Op() == OpParameterValue {
            n++
        }
    }
    if n != call.InputCount() {
        return errors.Errorf("argument count mismatch: %d args for %d parameters", call.InputCount(), n)
    }
    for _, rb := range callee.Exit.Pred {
        switch r := rb.LastInstruction().(type) {
            case *Return:
                if r.Value().Type().StorageClass() != call.Type().StorageClass() {
                    return errors.Errorf("return type %s does not match call type %s", r.Value().Type(), call.Type())
                }
            case *ReturnVoid:
                if call.Type() != TypVoid {
                    return errors.Errorf("void return for call of type %s", call.Type())
                }
            default:
                return errors.Errorf("exit predecessor bb_%d does not end with a return", rb.Id)
        }
    }
    return nil
}

func snapshotIns(b *BasicBlock) []Instruction {
    out := make([]Instruction, len(b.Ins))
    copy(out, b.Ins)
    return out
}
