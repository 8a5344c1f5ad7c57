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
    `math`
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestValueBound_Normalization(t *testing.T) {
    b := NewValueBound(newIntConstant(5), 3)
    require.True(t, b.IsConstant())
    assert.Equal(t, int32(8), b.Constant())
    b = NewValueBound(newIntConstant(math.MaxInt32), 1)
    require.False(t, b.IsConstant())
    assert.Equal(t, int32(1), b.Constant())
}

func TestValueBound_Add(t *testing.T) {
    _, overflow, _ := MaxValueBound().Add(1)
    assert.True(t, overflow)
    _, _, underflow := MinValueBound().Add(-1)
    assert.True(t, underflow)

    arr := NewParameterValue(0, TypRef)
    length := NewArrayLengthOf(arr)

    /* array.length - 2 may move down freely */
    b, overflow, underflow := NewValueBound(length, -1).Add(-1)
    require.False(t, overflow)
    require.False(t, underflow)
    assert.Equal(t, int32(-2), b.Constant())

    /* but not up past the length itself */
    _, overflow, _ = NewValueBound(length, 0).Add(1)
    assert.True(t, overflow)

    /* a symbolic non-length bound cannot move up at all */
    sym := NewValueBound(NewParameterValue(1, TypInt), 0)
    _, overflow, _ = sym.Add(1)
    assert.True(t, overflow)
}

func TestValueBound_Narrowing(t *testing.T) {
    arr := NewParameterValue(0, TypRef)
    length := NewArrayLengthOf(arr)
    c := ValueBound { constant: 10 }
    l := NewValueBound(length, -1)

    /* incomparable lower bounds favor the constant */
    assert.Equal(t, c, NarrowLowerBound(c, l))
    /* incomparable upper bounds favor the array length */
    assert.Equal(t, l, NarrowUpperBound(c, l))

    /* comparable bounds keep the tighter one */
    assert.Equal(t, int32(3), NarrowLowerBound(ValueBound { constant: 3 }, ValueBound { constant: 1 }).Constant())
    assert.Equal(t, int32(1), NarrowUpperBound(ValueBound { constant: 3 }, ValueBound { constant: 1 }).Constant())
}

func TestValueBound_NewArrayAliasing(t *testing.T) {
    na := NewNewArray(newIntConstant(8), nil)
    length := NewArrayLengthOf(na)
    a := NewValueBound(length, -1)
    b := NewValueBound(na, -1)
    assert.True(t, a.LessThanOrEqualTo(b))
    assert.True(t, a.GreaterThanOrEqualTo(b))
}

func TestValueRange_NarrowMonotonic(t *testing.T) {
    arr := NewParameterValue(0, TypRef)
    length := NewArrayLengthOf(arr)

    /* i = 0; i++ narrowed by i < a.length settles to [0, a.length - 1] */
    mono := NewMonotonicValueRange(newIntConstant(0), 1, ValueBound { constant: 0 })
    r := mono.Narrow(NewValueRange(MinValueBound(), NewValueBound(length, -1)))
    require.False(t, r.IsMonotonic())
    assert.Equal(t, int32(0), r.Lower().Constant())
    assert.Equal(t, length, r.Upper().Instruction())
    assert.Equal(t, int32(-1), r.Upper().Constant())

    /* the narrowed range proves in-bounds accesses */
    assert.True(t, r.FitsIn(NewValueRange(ValueBound{}, NewValueBound(length, -1))))

    /* i = MaxInt32 - 1; i++ may step past any upper bound, stays monotonic */
    mono = NewMonotonicValueRange(newIntConstant(math.MaxInt32 - 1), 2, ValueBound { constant: math.MaxInt32 - 1 })
    r = mono.Narrow(NewValueRange(MinValueBound(), MaxValueBound()))
    assert.True(t, r.IsMonotonic())
}

func TestValueRange_NarrowDecreasing(t *testing.T) {
    arr := NewParameterValue(0, TypRef)
    length := NewArrayLengthOf(arr)

    /* i = a.length - 1; i-- narrowed by i >= 0 settles to [0, a.length - 1] */
    mono := NewMonotonicValueRange(length, -1, NewValueBound(length, -1))
    r := mono.Narrow(NewValueRange(ValueBound{}, MaxValueBound()))
    require.False(t, r.IsMonotonic())
    assert.Equal(t, int32(0), r.Lower().Constant())
    assert.Equal(t, length, r.Upper().Instruction())
}

func TestValueRange_AddWraps(t *testing.T) {
    r := NewValueRange(ValueBound { constant: 0 }, MaxValueBound()).Add(1)
    assert.Nil(t, r)
    r = NewValueRange(ValueBound { constant: 5 }, ValueBound { constant: 10 }).Add(-3)
    require.NotNil(t, r)
    assert.Equal(t, int32(2), r.Lower().Constant())
    assert.Equal(t, int32(7), r.Upper().Constant())
}

func TestOverflowHelpers(t *testing.T) {
    assert.False(t, addWouldOverflow(math.MaxInt32-1, 1))
    assert.True(t, addWouldOverflow(math.MaxInt32, 1))
    assert.True(t, addWouldOverflow(math.MinInt32, -1))
    assert.True(t, mulWouldOverflow(90000, -90000))
    assert.False(t, mulWouldOverflow(1 << 15, 1 << 15))
}
