/*
 * CCP - Local Storage Buffer (on-chip scratch memory)
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package lsb

import "github.com/hnj2/PSPEmu/ccperr"

const (
	// Size is the total byte capacity of the Local Storage Buffer.
	Size = 4096
	// SlotSize is the width of one addressable LSB slot.
	SlotSize = 32
	// NumSlots is the number of 32-byte slots in the buffer.
	NumSlots = Size / SlotSize
)

// Buffer is the CCP's on-chip scratch memory: 4096 bytes, addressable
// bytewise or as 128 slots of 32 bytes. The zero value is a buffer of
// all zero bytes, ready to use.
type Buffer struct {
	mem [Size]byte
}

// Read copies n bytes starting at addr into buf. Fails with
// ErrOutOfRange unless addr+n lies fully within the buffer.
func (b *Buffer) Read(addr uint32, buf []byte, n int) error {
	if !inRange(addr, n) {
		return ccperr.ErrOutOfRange
	}
	copy(buf[:n], b.mem[addr:int(addr)+n])
	return nil
}

// Write copies n bytes from buf into the buffer starting at addr.
// Fails with ErrOutOfRange unless addr+n lies fully within the buffer.
func (b *Buffer) Write(addr uint32, buf []byte, n int) error {
	if !inRange(addr, n) {
		return ccperr.ErrOutOfRange
	}
	copy(b.mem[addr:int(addr)+n], buf[:n])
	return nil
}

// ReadSlot returns a copy of slot k (bytes [32k, 32k+32)).
func (b *Buffer) ReadSlot(k int) ([SlotSize]byte, error) {
	var out [SlotSize]byte
	if k < 0 || k >= NumSlots {
		return out, ccperr.ErrOutOfRange
	}
	copy(out[:], b.mem[k*SlotSize:(k+1)*SlotSize])
	return out, nil
}

// WriteSlot writes data into slot k, which must be SlotSize bytes.
func (b *Buffer) WriteSlot(k int, data []byte) error {
	if k < 0 || k >= NumSlots || len(data) != SlotSize {
		return ccperr.ErrOutOfRange
	}
	copy(b.mem[k*SlotSize:(k+1)*SlotSize], data)
	return nil
}

// SlotAddr returns the byte offset of slot k's first byte.
func SlotAddr(k int) uint32 {
	return uint32(k * SlotSize)
}

func inRange(addr uint32, n int) bool {
	if n < 0 {
		return false
	}
	if addr >= Size {
		return false
	}
	end := uint64(addr) + uint64(n)
	return end <= Size
}
