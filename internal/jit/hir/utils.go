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

// BitSet is a dense bit vector indexed by block id.
type BitSet struct {
    bits []uint64
}

func newBitSet(n int) *BitSet {
    return &BitSet { bits: make([]uint64, (n + 63) / 64) }
}

func (self *BitSet) grow(i int) {
    for i / 64 >= len(self.bits) {
        self.bits = append(self.bits, 0)
    }
}

func (self *BitSet) Set(i int) {
    self.grow(i)
    self.bits[i / 64] |= 1 << (i % 64)
}

func (self *BitSet) Clear(i int) {
    if i / 64 < len(self.bits) {
        self.bits[i / 64] &^= 1 << (i % 64)
    }
}

func (self *BitSet) Contains(i int) bool {
    return i / 64 < len(self.bits) && self.bits[i / 64] & (1 << (i % 64)) != 0
}

func (self *BitSet) Empty() bool {
    for _, w := range self.bits {
        if w != 0 {
            return false
        }
    }
    return true
}

func minint(a int, b int) int {
    if a < b {
        return a
    } else {
        return b
    }
}

func abs32(v int32) int32 {
    if v < 0 {
        return -v
    } else {
        return v
    }
}

// addWouldOverflow reports whether a + b overflows int32 arithmetic.
func addWouldOverflow(a int32, b int32) bool {
    s := int64(a) + int64(b)
    return s != int64(int32(s))
}

// mulWouldOverflow reports whether a * b overflows int32 arithmetic.
func mulWouldOverflow(a int32, b int32) bool {
    p := int64(a) * int64(b)
    return p != int64(int32(p))
}

// isPowerOfTwo reports whether v is a positive power of two.
func isPowerOfTwo(v int64) bool {
    return v > 0 && v & (v - 1) == 0
}

func whichPowerOfTwo(v int64) int32 {
    n := int32(0)
    for v > 1 {
        v >>= 1
        n++
    }
    return n
}
