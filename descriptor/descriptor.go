/*
 * CCP - Request descriptor decoder: parses the 32-byte command record
 * read from a queue ring into its engine, function, flags, addresses
 * and memory types.
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

package descriptor

import (
	"encoding/binary"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/gateway"
)

// Size is the wire length of a descriptor, in bytes.
const Size = 32

// Engine identifies the back-end a descriptor dispatches to. Values
// match the AMD CCPv5 engine-id encoding.
type Engine uint8

const (
	EngineAES         Engine = 0
	EngineXTSAES      Engine = 1
	EngineDES3        Engine = 2
	EngineSHA         Engine = 3
	EngineRSA         Engine = 4
	EnginePassthrough Engine = 5
	EngineZlib        Engine = 6
	EngineECC         Engine = 7
)

const (
	dw0EngineMask   uint32 = 0xf
	dw0FunctionMask uint32 = 0x7fff
	dw0FunctionShft uint32 = 4
	dw0InitBit      uint32 = 1 << 19
	dw0EomBit       uint32 = 1 << 20
)

const (
	memTypeMask     uint16 = 0x3
	lsbCtxMask      uint16 = 0x7f
	lsbCtxShift     uint16 = 2
	memTypeFixedBit uint16 = 1 << 9
)

// Descriptor is the decoded form of a 32-byte wire record.
type Descriptor struct {
	Engine   Engine
	Function uint16 // engine-specific function, bits 0..14 of dw0 bits [18:4]
	Init     bool
	Eom      bool

	CbSrc      uint32
	SrcAddr    uint64
	SrcMemType gateway.MemType
	SrcLSBCtx  int
	SrcFixed   bool

	// Non-SHA union.
	HasDst     bool
	DstAddr    uint64
	DstMemType gateway.MemType
	DstLSBCtx  int
	DstFixed   bool

	// SHA union.
	HasShaBits bool
	ShaBits    uint64

	KeyAddr    uint64
	KeyMemType gateway.MemType
	KeyLSBCtx  int
	KeyFixed   bool
}

// Decode parses a 32-byte little-endian wire record. Unknown engine
// codes still decode (the caller faults the queue on dispatch, per
// spec §4.3); Decode itself only fails if raw is short.
func Decode(raw []byte) (*Descriptor, error) {
	if len(raw) < Size {
		return nil, ccperr.ErrDecodeError
	}

	dw0 := binary.LittleEndian.Uint32(raw[0:4])
	d := &Descriptor{
		Engine:   Engine(dw0 & dw0EngineMask),
		Function: uint16((dw0 >> dw0FunctionShft) & dw0FunctionMask),
		Init:     dw0&dw0InitBit != 0,
		Eom:      dw0&dw0EomBit != 0,
	}

	d.CbSrc = binary.LittleEndian.Uint32(raw[4:8])

	srcLow := binary.LittleEndian.Uint32(raw[8:12])
	srcHigh := binary.LittleEndian.Uint16(raw[12:14])
	d.SrcAddr = uint64(srcHigh)<<32 | uint64(srcLow)

	srcMT := binary.LittleEndian.Uint16(raw[14:16])
	d.SrcMemType = gateway.MemType(srcMT & memTypeMask)
	d.SrcLSBCtx = int((srcMT >> lsbCtxShift) & lsbCtxMask)
	d.SrcFixed = srcMT&memTypeFixedBit != 0

	if d.Engine == EngineSHA {
		d.HasShaBits = true
		low := binary.LittleEndian.Uint32(raw[16:20])
		high := binary.LittleEndian.Uint32(raw[20:24])
		d.ShaBits = uint64(high)<<32 | uint64(low)
	} else {
		d.HasDst = true
		dstLow := binary.LittleEndian.Uint32(raw[16:20])
		dstHigh := binary.LittleEndian.Uint16(raw[20:22])
		d.DstAddr = uint64(dstHigh)<<32 | uint64(dstLow)

		dstMT := binary.LittleEndian.Uint16(raw[22:24])
		d.DstMemType = gateway.MemType(dstMT & memTypeMask)
		d.DstLSBCtx = int((dstMT >> lsbCtxShift) & lsbCtxMask)
		d.DstFixed = dstMT&memTypeFixedBit != 0
	}

	keyLow := binary.LittleEndian.Uint32(raw[24:28])
	keyHigh := binary.LittleEndian.Uint16(raw[28:30])
	d.KeyAddr = uint64(keyHigh)<<32 | uint64(keyLow)

	keyMT := binary.LittleEndian.Uint16(raw[30:32])
	d.KeyMemType = gateway.MemType(keyMT & memTypeMask)
	d.KeyLSBCtx = int((keyMT >> lsbCtxShift) & lsbCtxMask)
	d.KeyFixed = keyMT&memTypeFixedBit != 0

	return d, nil
}

// Encode is the inverse of Decode, used by tests to build wire
// descriptors without hand-packing bitfields.
func Encode(d *Descriptor) []byte {
	raw := make([]byte, Size)

	dw0 := uint32(d.Engine) & dw0EngineMask
	dw0 |= (uint32(d.Function) & dw0FunctionMask) << dw0FunctionShft
	if d.Init {
		dw0 |= dw0InitBit
	}
	if d.Eom {
		dw0 |= dw0EomBit
	}
	binary.LittleEndian.PutUint32(raw[0:4], dw0)

	binary.LittleEndian.PutUint32(raw[4:8], d.CbSrc)
	binary.LittleEndian.PutUint32(raw[8:12], uint32(d.SrcAddr))
	binary.LittleEndian.PutUint16(raw[12:14], uint16(d.SrcAddr>>32))

	srcMT := uint16(d.SrcMemType) & memTypeMask
	srcMT |= (uint16(d.SrcLSBCtx) & lsbCtxMask) << lsbCtxShift
	if d.SrcFixed {
		srcMT |= memTypeFixedBit
	}
	binary.LittleEndian.PutUint16(raw[14:16], srcMT)

	if d.Engine == EngineSHA {
		binary.LittleEndian.PutUint32(raw[16:20], uint32(d.ShaBits))
		binary.LittleEndian.PutUint32(raw[20:24], uint32(d.ShaBits>>32))
	} else {
		binary.LittleEndian.PutUint32(raw[16:20], uint32(d.DstAddr))
		binary.LittleEndian.PutUint16(raw[20:22], uint16(d.DstAddr>>32))

		dstMT := uint16(d.DstMemType) & memTypeMask
		dstMT |= (uint16(d.DstLSBCtx) & lsbCtxMask) << lsbCtxShift
		if d.DstFixed {
			dstMT |= memTypeFixedBit
		}
		binary.LittleEndian.PutUint16(raw[22:24], dstMT)
	}

	binary.LittleEndian.PutUint32(raw[24:28], uint32(d.KeyAddr))
	binary.LittleEndian.PutUint16(raw[28:30], uint16(d.KeyAddr>>32))

	keyMT := uint16(d.KeyMemType) & memTypeMask
	keyMT |= (uint16(d.KeyLSBCtx) & lsbCtxMask) << lsbCtxShift
	if d.KeyFixed {
		keyMT |= memTypeFixedBit
	}
	binary.LittleEndian.PutUint16(raw[30:32], keyMT)

	return raw
}
