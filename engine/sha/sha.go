/*
 * CCP - SHA engine: multi-part SHA-256/SHA-384 digest sessions.
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

// Package sha implements the CCP SHA engine. The init flag in a
// descriptor's dw0 is ignored in favor of "start a context iff none
// exists" (spec §4.5, §9 open question 3): firmware's initial LSB seed
// is likewise ignored in favor of the canonical IV for the chosen
// digest, which is what hash.Hash already does internally.
package sha

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/lsb"
	"github.com/hnj2/PSPEmu/transfer"
)

// Type is the SHA variant field packed into descriptor.Function.
type Type uint16

const (
	Type256 Type = 0
	Type384 Type = 1
	// Type1, Type224, Type512 exist on real hardware but are out of
	// scope per spec §1 non-goals.
)

const typeMask uint16 = 0x7

// Session is the opaque multi-part digest state a message holds
// across descriptors. The device stores at most one at a time.
type Session struct {
	h hash.Hash
}

// Host is what the SHA engine needs from its owning device.
type Host interface {
	LSB() *lsb.Buffer
	ShaSession() *Session
	SetShaSession(*Session)
}

const chunkSize = 4096

// Execute feeds one descriptor's source bytes into the running
// session (creating one if none exists), and on eom writes the
// byte-reversed final digest to the destination LSB slot.
func Execute(h Host, d *descriptor.Descriptor, xfer *transfer.Context) error {
	sess := h.ShaSession()
	if sess == nil {
		hasher, err := newHasher(Type(d.Function & typeMask))
		if err != nil {
			return err
		}
		sess = &Session{h: hasher}
		h.SetShaSession(sess)
	}

	buf := make([]byte, chunkSize)
	for xfer.SrcRemaining() > 0 {
		n := chunkSize
		if n > xfer.SrcRemaining() {
			n = xfer.SrcRemaining()
		}
		if err := xfer.Read(buf[:n], nil); err != nil {
			return err
		}
		if _, err := sess.h.Write(buf[:n]); err != nil {
			return ccperr.ErrEngineError
		}
	}

	if !d.Eom {
		return nil
	}
	defer h.SetShaSession(nil)

	digest := sess.h.Sum(nil)
	reversed := make([]byte, len(digest))
	for i, b := range digest {
		reversed[len(digest)-1-i] = b
	}

	slot := h.LSB()
	if slot == nil {
		return ccperr.ErrOutOfRange
	}
	switch len(digest) {
	case 32:
		return slot.WriteSlot(d.SrcLSBCtx, reversed)
	case 48:
		// SHA-384's 48-byte digest spans slot and slot+1 (32 + 16).
		if err := slot.WriteSlot(d.SrcLSBCtx, reversed[:32]); err != nil {
			return err
		}
		return slot.Write(lsb.SlotAddr(d.SrcLSBCtx+1), reversed[32:], 16)
	default:
		return ccperr.ErrEngineError
	}
}

func newHasher(t Type) (hash.Hash, error) {
	switch t {
	case Type256:
		return sha256.New(), nil
	case Type384:
		return sha512.New384(), nil
	default:
		return nil, ccperr.ErrNotImplemented
	}
}
