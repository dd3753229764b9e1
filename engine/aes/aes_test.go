package aes

import (
	gocipher "crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/gateway"
	"github.com/hnj2/PSPEmu/internal/logger"
	"github.com/hnj2/PSPEmu/lsb"
	"github.com/hnj2/PSPEmu/transfer"
)

type fakeHost struct {
	gw  *gateway.Gateway
	l   *lsb.Buffer
	s   *Session
	log *logger.Logger
	px  Proxy
}

func (h *fakeHost) Gateway() *gateway.Gateway { return h.gw }
func (h *fakeHost) LSB() *lsb.Buffer          { return h.l }
func (h *fakeHost) AesSession() *Session      { return h.s }
func (h *fakeHost) SetAesSession(s *Session)  { h.s = s }
func (h *fakeHost) Proxy() Proxy              { return h.px }
func (h *fakeHost) Logger() *logger.Logger    { return h.log }

func reverseCopy(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func newTestHost() (*fakeHost, *lsb.Buffer) {
	var keyLSB lsb.Buffer
	gw := &gateway.Gateway{LSB: &keyLSB}
	var lsbuf lsb.Buffer
	return &fakeHost{gw: gw, l: &lsbuf, log: logger.Discard()}, &keyLSB
}

func TestECBEncryptMatchesStdlib(t *testing.T) {
	host, keyLSB := newTestHost()
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}
	const keyAddr = 0xC0 // above protectedKeyCeiling, so the key is emulator-visible
	if err := keyLSB.Write(keyAddr, reverseCopy(key), 16); err != nil {
		t.Fatalf("seed key: %v", err)
	}

	plain := make([]byte, 32)
	for i := range plain {
		plain[i] = byte(i)
	}
	srcGW := &gateway.Gateway{LSB: &lsb.Buffer{}}
	if err := srcGW.LSB.Write(0, plain, len(plain)); err != nil {
		t.Fatalf("seed plain: %v", err)
	}
	dstGW := &gateway.Gateway{LSB: &lsb.Buffer{}}

	d := &descriptor.Descriptor{
		Function:   encryptBit | (keySize128 << keySizeShift),
		CbSrc:      uint32(len(plain)),
		Eom:        true,
		KeyMemType: gateway.SB,
		KeyAddr:    keyAddr,
	}

	xfer := transfer.New(srcGW, gateway.SB, 0, len(plain), dstGW, gateway.SB, 0, len(plain), false)
	if err := Execute(host, d, xfer); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	block, err := gocipher.NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	want := make([]byte, len(plain))
	for off := 0; off < len(plain); off += gocipher.BlockSize {
		block.Encrypt(want[off:off+gocipher.BlockSize], plain[off:off+gocipher.BlockSize])
	}

	got := make([]byte, len(plain))
	if err := dstGW.LSB.Read(0, got, len(got)); err != nil {
		t.Fatalf("read result: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
	if host.s != nil {
		t.Fatal("session must be destroyed after eom")
	}
}

func TestCBCEncryptMatchesStdlib(t *testing.T) {
	host, keyLSB := newTestHost()
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}
	const keyAddr = 0xC0 // above protectedKeyCeiling, so the key is emulator-visible
	if err := keyLSB.Write(keyAddr, reverseCopy(key), 16); err != nil {
		t.Fatalf("seed key: %v", err)
	}

	iv := make([]byte, 16)
	for i := range iv {
		iv[i] = byte(0xA0 + i)
	}
	if err := host.l.Write(lsb.SlotAddr(0), reverseCopy(iv), len(iv)); err != nil {
		t.Fatalf("seed iv: %v", err)
	}

	plain := make([]byte, 32)
	for i := range plain {
		plain[i] = byte(i * 3)
	}
	srcGW := &gateway.Gateway{LSB: &lsb.Buffer{}}
	if err := srcGW.LSB.Write(0, plain, len(plain)); err != nil {
		t.Fatalf("seed plain: %v", err)
	}
	dstGW := &gateway.Gateway{LSB: &lsb.Buffer{}}

	d := &descriptor.Descriptor{
		Function:   encryptBit | (modeCBC << modeShift) | (keySize128 << keySizeShift),
		CbSrc:      uint32(len(plain)),
		Eom:        true,
		KeyMemType: gateway.SB,
		KeyAddr:    keyAddr,
		SrcLSBCtx:  0,
	}
	xfer := transfer.New(srcGW, gateway.SB, 0, len(plain), dstGW, gateway.SB, 0, len(plain), false)
	if err := Execute(host, d, xfer); err != nil {
		t.Fatalf("Execute encrypt: %v", err)
	}

	block, _ := gocipher.NewCipher(key)
	want := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(want, plain)

	got := make([]byte, len(plain))
	if err := dstGW.LSB.Read(0, got, len(got)); err != nil {
		t.Fatalf("read cipher: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ciphertext byte %d mismatch", i)
		}
	}
}

func TestRejectsUnsupportedSizeField(t *testing.T) {
	host, _ := newTestHost()
	d := &descriptor.Descriptor{Function: 1 << sizeShift, CbSrc: 16}
	xfer := transfer.New(nil, 0, 0, 16, nil, 0, 0, 16, false)
	if err := Execute(host, d, xfer); err == nil {
		t.Fatal("expected error for non-zero size sub-field")
	}
}
