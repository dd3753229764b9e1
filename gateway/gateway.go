/*
 * CCP - Address-space gateway: uniform read/write over SYSTEM, SB and
 * LOCAL memory types referenced by request descriptors.
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

// Package gateway dispatches reads and writes over the three memory
// spaces a CCP request descriptor can reference: host system memory
// (unmodeled), PSP-local memory (delegated to an injected I/O
// manager), and the on-chip Local Storage Buffer. It is a sum type
// dispatched by MemType rather than a table of function pointers: the
// gateway holds only its collaborators, never per-call state.
package gateway

import (
	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/lsb"
)

// MemType is the 2-bit memory-type code packed into a descriptor's
// srcMemType/dstMemType/keyMemType field.
type MemType uint8

const (
	System MemType = 0 // Host physical memory; not modeled.
	SB     MemType = 1 // Local Storage Buffer.
	Local  MemType = 2 // PSP-visible address space.
)

// IOManager is the external collaborator that owns PSP/system/SMN
// address-space routing. The gateway only ever drives its PSP-visible
// window (LOCAL memory type).
type IOManager interface {
	PSPRead(addr uint64, buf []byte) (int, error)
	PSPWrite(addr uint64, buf []byte) (int, error)
}

// Gateway wires the LSB and an IOManager together. Written, if
// non-nil, is incremented by the byte count of every successful LOCAL
// write — it backs the device's cbWrittenLast counter (spec §4.1).
type Gateway struct {
	IO      IOManager
	LSB     *lsb.Buffer
	Written *uint64
}

// Read reads n bytes of mt-typed memory at addr into buf.
func (g *Gateway) Read(mt MemType, addr uint64, buf []byte, n int) (int, error) {
	switch mt {
	case System:
		return 0, ccperr.ErrUnsupported
	case Local:
		if g.IO == nil {
			return 0, ccperr.ErrUnsupported
		}
		return g.IO.PSPRead(addr, buf[:n])
	case SB:
		if g.LSB == nil {
			return 0, ccperr.ErrOutOfRange
		}
		if err := g.LSB.Read(uint32(addr), buf, n); err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, ccperr.ErrDecodeError
	}
}

// Write writes n bytes from buf into mt-typed memory at addr.
// Successful LOCAL writes advance the Written counter.
func (g *Gateway) Write(mt MemType, addr uint64, buf []byte, n int) (int, error) {
	switch mt {
	case System:
		return 0, ccperr.ErrUnsupported
	case Local:
		if g.IO == nil {
			return 0, ccperr.ErrUnsupported
		}
		written, err := g.IO.PSPWrite(addr, buf[:n])
		if err == nil && g.Written != nil {
			*g.Written += uint64(written)
		}
		return written, err
	case SB:
		if g.LSB == nil {
			return 0, ccperr.ErrOutOfRange
		}
		if err := g.LSB.Write(uint32(addr), buf, n); err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, ccperr.ErrDecodeError
	}
}
