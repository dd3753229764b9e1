/*
 * CCP - Transfer context: a stateful cursor pairing a source and
 * destination address-space gateway.
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

package transfer

import (
	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/gateway"
)

// Context carries a source gateway+address+remaining-read-count and a
// destination gateway+address+remaining-write-count, plus the reverse
// mode used by the PASSTHROUGH 256-bit byteswap. Engines construct one
// Context per descriptor.
type Context struct {
	srcGW   *gateway.Gateway
	srcType gateway.MemType
	srcAddr uint64
	srcRem  int

	dstGW   *gateway.Gateway
	dstType gateway.MemType
	dstAddr uint64 // current cursor; for reverse mode this counts down.
	dstRem  int

	reverse bool
}

// New builds a transfer context. srcLen/dstLen are the total byte
// counts to be moved through Read/Write respectively. When reverse is
// true the destination address is pre-biased by dstLen (writes
// proceed downward, one chunk at a time, from dstAddr+dstLen).
func New(srcGW *gateway.Gateway, srcType gateway.MemType, srcAddr uint64, srcLen int,
	dstGW *gateway.Gateway, dstType gateway.MemType, dstAddr uint64, dstLen int, reverse bool) *Context {
	c := &Context{
		srcGW:   srcGW,
		srcType: srcType,
		srcAddr: srcAddr,
		srcRem:  srcLen,
		dstGW:   dstGW,
		dstType: dstType,
		dstRem:  dstLen,
		reverse: reverse,
	}
	if reverse {
		c.dstAddr = dstAddr + uint64(dstLen)
	} else {
		c.dstAddr = dstAddr
	}
	return c
}

// SrcRemaining returns the number of source bytes not yet read.
func (c *Context) SrcRemaining() int { return c.srcRem }

// DstRemaining returns the number of destination bytes not yet written.
func (c *Context) DstRemaining() int { return c.dstRem }

// Read fills buf with up to len(buf) bytes from the source, never
// more than SrcRemaining. If actual is nil, a short read (fewer bytes
// available than len(buf)) is an error; if actual is non-nil, the
// caller accepts partial completion and *actual receives the count.
func (c *Context) Read(buf []byte, actual *int) error {
	want := len(buf)
	if want > c.srcRem {
		if actual == nil {
			return ccperr.ErrEngineError
		}
		want = c.srcRem
	}
	if want == 0 {
		if actual != nil {
			*actual = 0
		}
		return nil
	}
	n, err := c.srcGW.Read(c.srcType, c.srcAddr, buf, want)
	if err != nil {
		return err
	}
	c.srcAddr += uint64(n)
	c.srcRem -= n
	if actual != nil {
		*actual = n
	}
	return nil
}

// Write drains data to the destination, never more than DstRemaining.
// In reverse mode the destination cursor is pre-decremented by
// len(data) and the bytes are written back-to-front, so that writing
// b0..b{n-1} across successive calls lands, overall, as the full
// reverse of the concatenated input (spec §8 property 2). If actual is
// nil, attempting to write more than DstRemaining is an error.
func (c *Context) Write(data []byte, actual *int) error {
	want := len(data)
	if want > c.dstRem {
		if actual == nil {
			return ccperr.ErrEngineError
		}
		want = c.dstRem
	}
	if want == 0 {
		if actual != nil {
			*actual = 0
		}
		return nil
	}
	if c.reverse {
		rev := make([]byte, want)
		for i := 0; i < want; i++ {
			rev[i] = data[want-1-i]
		}
		c.dstAddr -= uint64(want)
		if _, err := c.dstGW.Write(c.dstType, c.dstAddr, rev, want); err != nil {
			c.dstAddr += uint64(want)
			return err
		}
	} else {
		n, err := c.dstGW.Write(c.dstType, c.dstAddr, data[:want], want)
		if err != nil {
			return err
		}
		c.dstAddr += uint64(n)
	}
	c.dstRem -= want
	if actual != nil {
		*actual = want
	}
	return nil
}

// Copy drives a full source-to-destination copy in chunks of at most
// chunkSize bytes, used by the PASSTHROUGH straight-copy path.
func Copy(c *Context, chunkSize int) error {
	buf := make([]byte, chunkSize)
	for c.srcRem > 0 {
		n := chunkSize
		if n > c.srcRem {
			n = c.srcRem
		}
		if n > c.dstRem {
			n = c.dstRem
		}
		if n == 0 {
			break
		}
		if err := c.Read(buf[:n], nil); err != nil {
			return err
		}
		if err := c.Write(buf[:n], nil); err != nil {
			return err
		}
	}
	return nil
}
