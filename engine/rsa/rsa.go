/*
 * CCP - RSA engine: mode-0 modular exponentiation, no padding.
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

package rsa

import (
	"math/big"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/gateway"
	"github.com/hnj2/PSPEmu/transfer"
)

const (
	modeMask  uint16 = 0x7
	modeZero  uint16 = 0
	size2048  = 256 // bytes -> 2048 bits
	size4096  = 512 // bytes -> 4096 bits
)

// Host is what the RSA engine needs from its owning device.
type Host interface {
	Gateway() *gateway.Gateway
}

// Execute computes c = m^e mod n per spec §4.7 and writes the
// byte-reversed result to the destination.
func Execute(h Host, d *descriptor.Descriptor, xfer *transfer.Context) error {
	if d.Function&modeMask != modeZero {
		return ccperr.ErrNotImplemented
	}

	size := int(d.CbSrc) / 2
	if (size != size2048 && size != size4096) || int(d.CbSrc) != size*2 {
		return ccperr.ErrNotImplemented
	}

	src := make([]byte, size*2)
	if err := xfer.Read(src, nil); err != nil {
		return err
	}
	modulusLE := src[:size]
	messageLE := src[size:]

	expWire := make([]byte, size)
	if _, err := h.Gateway().Read(d.KeyMemType, d.KeyAddr, expWire, size); err != nil {
		return err
	}

	n := new(big.Int).SetBytes(reverse(modulusLE))
	m := new(big.Int).SetBytes(reverse(messageLE))
	e := new(big.Int).SetBytes(reverse(expWire))

	if n.Sign() == 0 {
		return ccperr.ErrEngineError
	}

	c := new(big.Int).Exp(m, e, n)

	out := make([]byte, size)
	c.FillBytes(out) // big-endian, matches hardware's native order.
	result := reverse(out)

	return xfer.Write(result, nil)
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
