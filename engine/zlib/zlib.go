/*
 * CCP - ZLIB decompression engine: stateful inflate with the standard
 * (zlib-wrapped) window.
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

// Package zlib implements the CCP ZLIB decompression engine. Unlike
// the SHA/AES sessions, session creation here honors the descriptor's
// init flag literally (spec §4.9): a fresh inflate state is built
// whenever init is set, discarding any running one, and also when no
// session exists yet.
//
// The underlying compress/zlib.Reader has no partial-input API, so
// each call replays inflate from the start of the accumulated
// compressed buffer and only forwards the output bytes beyond what
// was already flushed to the destination in a prior call. This keeps
// the engine's external contract (one bounded pass per descriptor,
// synchronous, no goroutines) while reusing the stdlib decompressor
// as-is; it costs redundant CPU on long multi-descriptor streams,
// acceptable since spec §1 excludes bit-exact timing from scope.
package zlib

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/transfer"
)

// StagingSize bounds the per-call input read and output flush size.
const StagingSize = 4096

// Session accumulates compressed input and tracks how much
// decompressed output has already been flushed downstream.
type Session struct {
	compressed bytes.Buffer
	flushed    int
}

// Host is what the ZLIB engine needs from its owning device.
type Host interface {
	ZlibSession() *Session
	SetZlibSession(*Session)
}

// Execute feeds one descriptor's compressed bytes into the session
// (creating one when init is set or none exists), decodes as much as is currently
// available, flushes newly available output, and on eom flushes any
// remainder and destroys the session.
func Execute(h Host, d *descriptor.Descriptor, xfer *transfer.Context) error {
	sess := h.ZlibSession()
	if sess == nil || d.Init {
		sess = &Session{}
		h.SetZlibSession(sess)
	}

	buf := make([]byte, StagingSize)
	for xfer.SrcRemaining() > 0 {
		n := StagingSize
		if n > xfer.SrcRemaining() {
			n = xfer.SrcRemaining()
		}
		if err := xfer.Read(buf[:n], nil); err != nil {
			return err
		}
		sess.compressed.Write(buf[:n])
	}

	decoded, decodeErr := inflateAvailable(sess.compressed.Bytes())
	if decodeErr != nil && !isPartialErr(decodeErr) {
		h.SetZlibSession(nil)
		return ccperr.ErrEngineError
	}
	if d.Eom && decodeErr != nil {
		h.SetZlibSession(nil)
		return ccperr.ErrEngineError
	}

	if len(decoded) > sess.flushed {
		fresh := decoded[sess.flushed:]
		for off := 0; off < len(fresh); off += StagingSize {
			end := off + StagingSize
			if end > len(fresh) {
				end = len(fresh)
			}
			if err := xfer.Write(fresh[off:end], nil); err != nil {
				h.SetZlibSession(nil)
				return err
			}
		}
		sess.flushed = len(decoded)
	}

	if d.Eom {
		h.SetZlibSession(nil)
	}
	return nil
}

func inflateAvailable(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		if isPartialErr(err) {
			return nil, err
		}
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	return data, err
}

func isPartialErr(err error) bool {
	return err == io.ErrUnexpectedEOF || err == io.EOF
}
