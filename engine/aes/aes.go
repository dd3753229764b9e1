/*
 * CCP - AES engine: multi-part ECB/CBC encrypt and decrypt, with the
 * protected-key proxy fast path for keys the emulator cannot see.
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

package aes

import (
	gocipher "crypto/aes"
	"crypto/cipher"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/gateway"
	"github.com/hnj2/PSPEmu/internal/logger"
	"github.com/hnj2/PSPEmu/lsb"
	"github.com/hnj2/PSPEmu/transfer"
)

// Function sub-fields packed into descriptor.Function.
const (
	encryptBit   uint16 = 1 << 0
	modeMask     uint16 = 0x3
	modeShift    uint16 = 1
	keySizeMask  uint16 = 0x3
	keySizeShift uint16 = 3
	sizeMask     uint16 = 0x7f
	sizeShift    uint16 = 5

	modeECB uint16 = 0
	modeCBC uint16 = 1

	keySize128 uint16 = 0
	keySize256 uint16 = 2
)

// ChunkSize bounds one multi-part AES transfer pass.
const ChunkSize = 512

// protectedKeyCeiling: key LSB addresses below this belong to
// real-hardware-only key material (spec §4.6).
const protectedKeyCeiling uint64 = 0xA0

// Session is the running CBC/ECB cipher state a multi-part AES
// message holds across descriptors.
type Session struct {
	block   cipher.Block
	mode    uint16
	encrypt bool
	cbc     cipher.BlockMode // nil for ECB
}

// Proxy forwards protected-key AES operations to the real CCP.
type Proxy interface {
	AESDo(dw0 uint32, cbSrc uint32, src, dst []byte, keyAddr uint64, iv []byte) error
}

// Host is what the AES engine needs from its owning device.
type Host interface {
	Gateway() *gateway.Gateway
	LSB() *lsb.Buffer
	AesSession() *Session
	SetAesSession(*Session)
	Proxy() Proxy
	Logger() *logger.Logger
}

// Execute runs one AES descriptor: creates a session on first use,
// feeds ciphertext/plaintext through it in bounded chunks, and
// finalizes (destroying the session) on eom.
func Execute(h Host, d *descriptor.Descriptor, xfer *transfer.Context) error {
	if (d.Function>>sizeShift)&sizeMask != 0 {
		return ccperr.ErrNotImplemented
	}

	if isProtectedKey(d) {
		return executeProtected(h, d, xfer)
	}

	sess := h.AesSession()
	if sess == nil {
		s, err := newSession(h, d)
		if err != nil {
			return err
		}
		sess = s
		h.SetAesSession(sess)
	}

	buf := make([]byte, ChunkSize)
	for xfer.SrcRemaining() > 0 {
		n := ChunkSize
		if n > xfer.SrcRemaining() {
			n = xfer.SrcRemaining()
		}
		n -= n % gocipher.BlockSize
		if n == 0 {
			break
		}
		if err := xfer.Read(buf[:n], nil); err != nil {
			return err
		}
		out := buf[:n]
		cryptBlocks(sess, out, out)
		if err := xfer.Write(out, nil); err != nil {
			return err
		}
	}

	if d.Eom {
		h.SetAesSession(nil)
	}
	return nil
}

func cryptBlocks(sess *Session, dst, src []byte) {
	if sess.mode == modeCBC {
		sess.cbc.CryptBlocks(dst, src)
		return
	}
	// ECB: crypt() a block at a time.
	for off := 0; off+gocipher.BlockSize <= len(src); off += gocipher.BlockSize {
		if sess.encrypt {
			sess.block.Encrypt(dst[off:off+gocipher.BlockSize], src[off:off+gocipher.BlockSize])
		} else {
			sess.block.Decrypt(dst[off:off+gocipher.BlockSize], src[off:off+gocipher.BlockSize])
		}
	}
}

func newSession(h Host, d *descriptor.Descriptor) (*Session, error) {
	keyLen, err := keySizeBytes(d.Function)
	if err != nil {
		return nil, err
	}

	keyWire := make([]byte, keyLen)
	if _, err := h.Gateway().Read(d.KeyMemType, d.KeyAddr, keyWire, keyLen); err != nil {
		return nil, err
	}
	key := reverseBytes(keyWire)

	block, err := gocipher.NewCipher(key)
	if err != nil {
		return nil, ccperr.ErrEngineError
	}

	mode := (d.Function >> modeShift) & modeMask
	encrypt := d.Function&encryptBit != 0

	sess := &Session{block: block, mode: mode, encrypt: encrypt}
	if mode == modeCBC {
		slot, err := h.LSB().ReadSlot(d.SrcLSBCtx)
		if err != nil {
			return nil, err
		}
		iv := reverseBytes(slot[:16])
		if encrypt {
			sess.cbc = cipher.NewCBCEncrypter(block, iv)
		} else {
			sess.cbc = cipher.NewCBCDecrypter(block, iv)
		}
	} else if mode != modeECB {
		return nil, ccperr.ErrNotImplemented
	}
	return sess, nil
}

func keySizeBytes(function uint16) (int, error) {
	switch (function >> keySizeShift) & keySizeMask {
	case keySize128:
		return 16, nil
	case keySize256:
		return 32, nil
	default:
		return 0, ccperr.ErrNotImplemented
	}
}

func isProtectedKey(d *descriptor.Descriptor) bool {
	return d.KeyMemType == gateway.SB && d.KeyAddr < protectedKeyCeiling
}

// executeProtected handles keys the emulator cannot read: forward to
// the proxy if one is configured, otherwise run locally with a
// meaningless key and log at fatal severity (spec §4.6, §9).
func executeProtected(h Host, d *descriptor.Descriptor, xfer *transfer.Context) error {
	keyLen, err := keySizeBytes(d.Function)
	if err != nil {
		return err
	}

	var iv []byte
	if (d.Function>>modeShift)&modeMask == modeCBC {
		slot, err := h.LSB().ReadSlot(d.SrcLSBCtx)
		if err != nil {
			return err
		}
		iv = reverseBytes(slot[:16])
	}

	if proxy := h.Proxy(); proxy != nil {
		src := make([]byte, xfer.SrcRemaining())
		if err := xfer.Read(src, nil); err != nil {
			return err
		}
		dst := make([]byte, len(src))
		dw0 := uint32(d.Engine) | uint32(d.Function)<<4
		if err := proxy.AESDo(dw0, d.CbSrc, src, dst, d.KeyAddr, iv); err != nil {
			h.Logger().Fatal("ccp: aes proxy call failed", "err", err)
			return ccperr.ErrProxyError
		}
		return xfer.Write(dst, nil)
	}

	h.Logger().Fatal("ccp: protected aes key unavailable, executing with meaningless key",
		"keyAddr", d.KeyAddr, "keyLen", keyLen)

	zeroKey := make([]byte, keyLen)
	block, err := gocipher.NewCipher(zeroKey)
	if err != nil {
		return ccperr.ErrEngineError
	}
	sess := &Session{block: block, mode: (d.Function >> modeShift) & modeMask, encrypt: d.Function&encryptBit != 0}
	if sess.mode == modeCBC {
		if sess.encrypt {
			sess.cbc = cipher.NewCBCEncrypter(block, iv)
		} else {
			sess.cbc = cipher.NewCBCDecrypter(block, iv)
		}
	}

	buf := make([]byte, xfer.SrcRemaining())
	if err := xfer.Read(buf, nil); err != nil {
		return err
	}
	cryptBlocks(sess, buf, buf)
	return xfer.Write(buf, nil)
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
