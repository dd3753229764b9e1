/*
 * CCP - ECC engine: field and curve arithmetic over NIST P-384, the
 * only curve this core implements (spec §4.8, §9 open question 2).
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

package ecc

import (
	"crypto/elliptic"
	"math/big"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/transfer"
)

// NumSize is the fixed width of every ECC operand and result, in
// bytes (576 bits, little-endian on the wire).
const NumSize = 72

const (
	opMask      uint16 = 0xf
	bitCntMask  uint16 = 0x3ff
	bitCntShift uint16 = 4
	maxBits            = 576
)

// Op identifies the ECC sub-operation, packed into the low nibble of
// descriptor.Function.
type Op uint16

const (
	OpMulField    Op = 0
	OpAddField    Op = 1
	OpInvField    Op = 2
	OpMulCurve    Op = 3
	OpMulAddCurve Op = 4
)

var curve = elliptic.P384()

// Execute runs one ECC request. The request's prime must equal the
// NIST P-384 prime; the coefficient field that follows it in the
// source buffer is present on the wire but ignored (§9).
func Execute(d *descriptor.Descriptor, xfer *transfer.Context) error {
	bits := (d.Function >> bitCntShift) & bitCntMask
	if bits > maxBits {
		return ccperr.ErrNotImplemented
	}
	op := Op(d.Function & opMask)

	prime := make([]byte, NumSize)
	if err := xfer.Read(prime, nil); err != nil {
		return err
	}
	if toBig(prime).Cmp(curve.Params().P) != 0 {
		return ccperr.ErrNotImplemented
	}

	coeff := make([]byte, NumSize)
	if err := xfer.Read(coeff, nil); err != nil { // present, ignored.
		return err
	}

	p := curve.Params().P

	switch op {
	case OpMulField:
		a, b, err := readTwo(xfer)
		if err != nil {
			return err
		}
		r := new(big.Int).Mul(a, b)
		r.Mod(r, p)
		return writeOne(xfer, r)

	case OpAddField:
		a, b, err := readTwo(xfer)
		if err != nil {
			return err
		}
		r := new(big.Int).Add(a, b)
		r.Mod(r, p)
		return writeOne(xfer, r)

	case OpInvField:
		a, err := readOne(xfer)
		if err != nil {
			return err
		}
		if a.Sign() == 0 {
			return ccperr.ErrEngineError
		}
		r := new(big.Int).ModInverse(a, p)
		if r == nil {
			return ccperr.ErrEngineError
		}
		return writeOne(xfer, r)

	case OpMulCurve:
		k, err := readOne(xfer)
		if err != nil {
			return err
		}
		px, py, err := readPoint(xfer)
		if err != nil {
			return err
		}
		x, y := curve.ScalarMult(px, py, k.Bytes())
		return writePoint(xfer, x, y)

	case OpMulAddCurve:
		k1, err := readOne(xfer)
		if err != nil {
			return err
		}
		p1x, p1y, err := readPoint(xfer)
		if err != nil {
			return err
		}
		k2, err := readOne(xfer)
		if err != nil {
			return err
		}
		p2x, p2y, err := readPoint(xfer)
		if err != nil {
			return err
		}
		x1, y1 := curve.ScalarMult(p1x, p1y, k1.Bytes())
		x2, y2 := curve.ScalarMult(p2x, p2y, k2.Bytes())
		x, y := curve.Add(x1, y1, x2, y2)
		return writePoint(xfer, x, y)

	default:
		return ccperr.ErrNotImplemented
	}
}

func readOne(xfer *transfer.Context) (*big.Int, error) {
	buf := make([]byte, NumSize)
	if err := xfer.Read(buf, nil); err != nil {
		return nil, err
	}
	return toBig(buf), nil
}

func readTwo(xfer *transfer.Context) (*big.Int, *big.Int, error) {
	a, err := readOne(xfer)
	if err != nil {
		return nil, nil, err
	}
	b, err := readOne(xfer)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func readPoint(xfer *transfer.Context) (*big.Int, *big.Int, error) {
	return readTwo(xfer)
}

func writeOne(xfer *transfer.Context, v *big.Int) error {
	return xfer.Write(fromBig(v), nil)
}

func writePoint(xfer *transfer.Context, x, y *big.Int) error {
	if err := xfer.Write(fromBig(x), nil); err != nil {
		return err
	}
	return xfer.Write(fromBig(y), nil)
}

// toBig interprets a little-endian NumSize-byte operand as a big.Int.
func toBig(le []byte) *big.Int {
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

// fromBig encodes v as a little-endian NumSize-byte result.
func fromBig(v *big.Int) []byte {
	be := make([]byte, NumSize)
	v.FillBytes(be)
	le := make([]byte, NumSize)
	for i, b := range be {
		le[NumSize-1-i] = b
	}
	return le
}
