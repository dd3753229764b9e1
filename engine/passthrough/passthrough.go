/*
 * CCP - PASSTHROUGH engine: straight copy or 256-bit byte-reversal
 * between any two addressable memory types.
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

package passthrough

import (
	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/transfer"
)

// ChunkSize bounds a single straight-copy transfer pass.
const ChunkSize = 4096

// Function sub-fields, packed into descriptor.Descriptor.Function:
// bits [1:0] bitwise op, bits [3:2] byteswap op, bit [4] reflect.
const (
	bitwiseMask  uint16 = 0x3
	byteswapMask uint16 = 0x3
	byteswapShft uint16 = 2
	reflectBit   uint16 = 1 << 4

	bitwiseNoop   uint16 = 0
	byteswapNoop  uint16 = 0
	byteswap256   uint16 = 1
)

// Execute copies the request's source to its destination, applying
// the one optional transform this core supports (256-bit byte
// reversal). Any other bitwise/byteswap/reflect combination is
// NotImplemented.
func Execute(d *descriptor.Descriptor, xfer *transfer.Context) error {
	bitwise := d.Function & bitwiseMask
	byteswap := (d.Function >> byteswapShft) & byteswapMask
	reflect := d.Function&reflectBit != 0

	switch {
	case bitwise == bitwiseNoop && byteswap == byteswapNoop && !reflect:
		return transfer.Copy(xfer, ChunkSize)

	case bitwise == bitwiseNoop && byteswap == byteswap256 && !reflect && d.CbSrc == 32:
		// The transfer context's reverse mode already performs the
		// 256-bit reversal; the engine just drives one full-width pass.
		buf := make([]byte, 32)
		if err := xfer.Read(buf, nil); err != nil {
			return err
		}
		if err := xfer.Write(buf, nil); err != nil {
			return err
		}
		return nil

	default:
		return ccperr.ErrNotImplemented
	}
}
