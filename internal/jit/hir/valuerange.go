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

// ValueBound is a symbolic bound of the form instruction + constant, e.g.
// array.length - 1. A nil instruction makes the bound a plain constant.
// Bounds built on a constant instruction are normalized into plain
// constants when the addition cannot overflow.
type ValueBound struct {
    instruction Instruction
    constant    int32
}

func NewValueBound(instruction Instruction, constant int32) ValueBound {
    if c, ok := instruction.(*IntConstant); ok {
        if !addWouldOverflow(c.Value(), constant) {
            return ValueBound { constant: c.Value() + constant }
        }
    }
    return ValueBound { instruction: instruction, constant: constant }
}

func MinValueBound() ValueBound { return ValueBound { constant: math.MinInt32 } }
func MaxValueBound() ValueBound { return ValueBound { constant: math.MaxInt32 } }

func (self ValueBound) Instruction() Instruction { return self.instruction }
func (self ValueBound) Constant() int32          { return self.constant }

func (self ValueBound) IsConstant() bool {
    return self.instruction == nil
}

// IsRelatedToArrayLength also accepts a NewArray standing in for the
// length of the array it allocates.
func (self ValueBound) IsRelatedToArrayLength() bool {
    if self.instruction == nil {
        return false
    }
    op := self.instruction.Op()
    return op == OpArrayLength || op == OpNewArray
}

func (self ValueBound) Equals(other ValueBound) bool {
    return self.instruction == other.instruction && self.constant == other.constant
}

// fromArrayLengthToNewArray maps an ArrayLength observing a fresh NewArray
// to the NewArray itself, so that both spellings of the same abstract
// length compare equal.
func fromArrayLengthToNewArray(v Instruction) Instruction {
    if al, ok := v.(*ArrayLength); ok {
        if na, ok := al.Array().(*NewArray); ok {
            return na
        }
    }
    return v
}

// sameValue compares two bound instructions modulo the NewArray aliasing.
func sameValue(a Instruction, b Instruction) bool {
    if a == b {
        return true
    }
    if a == nil || b == nil {
        return false
    }
    return fromArrayLengthToNewArray(a) == fromArrayLengthToNewArray(b)
}

// GreaterThanOrEqualTo is certain knowledge: incomparable bounds report
// false.
func (self ValueBound) GreaterThanOrEqualTo(other ValueBound) bool {
    return sameValue(self.instruction, other.instruction) && self.constant >= other.constant
}

// LessThanOrEqualTo is certain knowledge: incomparable bounds report false.
func (self ValueBound) LessThanOrEqualTo(other ValueBound) bool {
    return sameValue(self.instruction, other.instruction) && self.constant <= other.constant
}

// NarrowLowerBound keeps the greater bound when comparable, otherwise
// favors the constant.
func NarrowLowerBound(b1 ValueBound, b2 ValueBound) ValueBound {
    if b1.GreaterThanOrEqualTo(b2) {
        return b1
    }
    if b2.GreaterThanOrEqualTo(b1) {
        return b2
    }
    if b1.IsConstant() {
        return b1
    } else {
        return b2
    }
}

// NarrowUpperBound keeps the lesser bound when comparable, otherwise
// favors the array length.
func NarrowUpperBound(b1 ValueBound, b2 ValueBound) ValueBound {
    if b1.LessThanOrEqualTo(b2) {
        return b1
    }
    if b2.LessThanOrEqualTo(b1) {
        return b2
    }
    if b1.IsRelatedToArrayLength() {
        return b1
    } else {
        return b2
    }
}

// Add shifts the bound by c. The result is only trusted when neither
// overflow nor underflow is reported: a symbolic bound shifted up may
// overflow (array lengths go up to MaxInt32), while array.length + c never
// underflows since lengths are non-negative.
func (self ValueBound) Add(c int32) (bound ValueBound, overflow bool, underflow bool) {
    if c == 0 {
        return self, false, false
    }
    if c > 0 {
        if self.constant > math.MaxInt32 - c {
            return MaxValueBound(), true, false
        }
        nc := self.constant + c
        if self.IsConstant() || (self.IsRelatedToArrayLength() && nc <= 0) {
            return ValueBound { instruction: self.instruction, constant: nc }, false, false
        }
        return MaxValueBound(), true, false
    } else {
        if self.constant < math.MinInt32 - c {
            return MinValueBound(), false, true
        }
        nc := self.constant + c
        if self.IsConstant() || self.IsRelatedToArrayLength() {
            return ValueBound { instruction: self.instruction, constant: nc }, false, false
        }
        return MinValueBound(), false, true
    }
}

func (self ValueBound) String() string {
    switch {
        case self.instruction == nil : return fmt.Sprintf("%d", self.constant)
        case self.constant == 0      : return fmt.Sprintf("i%d", self.instruction.ID())
        default                      : return fmt.Sprintf("i%d%+d", self.instruction.ID(), self.constant)
    }
}

// isAddOrSubAConstant matches v against (left + c) and (left - c) with a
// constant right operand, returning left and the signed constant.
func isAddOrSubAConstant(v Instruction) (Instruction, int32, bool) {
    var l, r Instruction
    switch b := v.(type) {
        case *Add : l, r = b.Left(), b.Right()
        case *Sub : l, r = b.Left(), b.Right()
        default   : return nil, 0, false
    }
    if c, ok := r.(*IntConstant); ok {
        if v.Op() == OpAdd {
            return l, c.Value(), true
        } else {
            return l, -c.Value(), true
        }
    }
    return nil, 0, false
}

// DetectValueBoundFromValue recognizes constants, array lengths and
// array.length ± c as useful bounds.
func DetectValueBoundFromValue(v Instruction) (ValueBound, bool) {
    if c, ok := v.(*IntConstant); ok {
        return ValueBound { constant: c.Value() }, true
    }
    if _, ok := v.(*ArrayLength); ok {
        return ValueBound { instruction: v }, true
    }
    if left, right, ok := isAddOrSubAConstant(v); ok {
        if _, isLen := left.(*ArrayLength); isLen {
            return NewValueBound(left, right), true
        }
    }
    return MaxValueBound(), false
}

// ValueRange is an inclusive range [lower, upper]. A range with non-nil
// mono is a monotonic range: the value walks initial, initial + increment,
// initial + 2*increment, ... and the plain bounds are pinned to the full
// int range because the walk may wrap around.
type ValueRange struct {
    lower ValueBound
    upper ValueBound
    mono  *monotonicInfo
}

type monotonicInfo struct {
    initial   Instruction
    increment int32
    bound     ValueBound
}

func NewValueRange(lower ValueBound, upper ValueBound) *ValueRange {
    return &ValueRange { lower: lower, upper: upper }
}

// NewMonotonicValueRange describes a loop phi stepping by increment from
// initial; bound carries any extra knowledge about the initial value.
func NewMonotonicValueRange(initial Instruction, increment int32, bound ValueBound) *ValueRange {
    return &ValueRange {
        lower: MinValueBound(),
        upper: MaxValueBound(),
        mono:  &monotonicInfo { initial: initial, increment: increment, bound: bound },
    }
}

func (self *ValueRange) Lower() ValueBound { return self.lower }
func (self *ValueRange) Upper() ValueBound { return self.upper }

func (self *ValueRange) IsMonotonic() bool {
    return self.mono != nil
}

func (self *ValueRange) Increment() int32 {
    return self.mono.increment
}

func (self *ValueRange) Bound() ValueBound {
    return self.mono.bound
}

// FitsIn reports whether every value of this range is certainly within
// other. A nil other means no constraint. A monotonic range never fits:
// it may wrap around.
func (self *ValueRange) FitsIn(other *ValueRange) bool {
    if other == nil {
        return true
    }
    if self.mono != nil {
        return false
    }
    return self.lower.GreaterThanOrEqualTo(other.lower) && self.upper.LessThanOrEqualTo(other.upper)
}

// Narrow intersects this range with other. Incomparable bounds resolve by
// the NarrowLowerBound/NarrowUpperBound preferences. A monotonic range only
// narrows to a plain range when the final value of the walk provably does
// not overflow past the narrowing bound.
func (self *ValueRange) Narrow(other *ValueRange) *ValueRange {
    if other == nil {
        return self
    }
    if other.mono != nil {
        return self
    }
    if self.mono == nil {
        return NewValueRange(NarrowLowerBound(self.lower, other.lower), NarrowUpperBound(self.upper, other.upper))
    }
    if self.mono.increment > 0 {
        return self.narrowIncreasing(other)
    } else {
        return self.narrowDecreasing(other)
    }
}

func (self *ValueRange) narrowIncreasing(other *ValueRange) *ValueRange {
    lower := NarrowLowerBound(self.mono.bound, other.lower)

    // Conservatively assume the maximum array length is MaxInt32; with a
    // smaller assumed maximum some of the overflow cases below would be
    // ruled out.
    upper := int32(math.MaxInt32)
    if ub := other.upper; ub.IsConstant() {
        upper = ub.Constant()
    } else if ub.IsRelatedToArrayLength() && ub.Constant() <= 0 {
        upper = math.MaxInt32 + ub.Constant()
    }

    // The walk stops at the last number in the sequence that is <= upper.
    // If stepping once more from that number cannot overflow, the upper
    // bound test stops the walk as expected and the range is plain.
    last := upper
    if c, ok := self.mono.initial.(*IntConstant); ok {
        if upper > c.Value() {
            inc := int64(self.mono.increment)
            last = int32(int64(c.Value()) + (int64(upper) - int64(c.Value())) / inc * inc)
        }
    }
    if last <= math.MaxInt32 - self.mono.increment {
        return NewValueRange(lower, other.upper)
    }
    return self
}

func (self *ValueRange) narrowDecreasing(other *ValueRange) *ValueRange {
    upper := NarrowUpperBound(self.mono.bound, other.upper)

    // The walk may underflow past the lower bound; only a constant lower
    // bound far enough from MinInt32 rules that out.
    if other.lower.IsConstant() {
        if other.lower.Constant() >= math.MinInt32 - self.mono.increment {
            return NewValueRange(other.lower, upper)
        }
    }
    return self
}

// Add shifts the range by a constant. A nil result means a bound wrapped
// around and the whole range is invalid.
func (self *ValueRange) Add(constant int32) *ValueRange {
    lower, _, underflow := self.lower.Add(constant)
    if underflow {
        return nil
    }
    upper, overflow, _ := self.upper.Add(constant)
    if overflow {
        return nil
    }
    return NewValueRange(lower, upper)
}

func (self *ValueRange) String() string {
    if self.mono != nil {
        return fmt.Sprintf("[mono i%d %+d, seed %s]", self.mono.initial.ID(), self.mono.increment, self.mono.bound)
    } else {
        return fmt.Sprintf("[%s, %s]", self.lower, self.upper)
    }
}
