package zlib

import (
	"bytes"
	gocompress "compress/zlib"
	"testing"

	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/gateway"
	"github.com/hnj2/PSPEmu/lsb"
	"github.com/hnj2/PSPEmu/transfer"
)

type fakeHost struct {
	s *Session
}

func (h *fakeHost) ZlibSession() *Session     { return h.s }
func (h *fakeHost) SetZlibSession(s *Session) { h.s = s }

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gocompress.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("compress close: %v", err)
	}
	return buf.Bytes()
}

func TestInflateSingleDescriptor(t *testing.T) {
	plain := []byte("the quick brown fox jumps over the lazy dog, repeatedly, for compressibility")
	packed := compress(t, plain)

	var srcLSB lsb.Buffer
	srcGW := &gateway.Gateway{LSB: &srcLSB}
	if err := srcLSB.Write(0, packed, len(packed)); err != nil {
		t.Fatalf("seed compressed: %v", err)
	}
	var dstLSB lsb.Buffer
	dstGW := &gateway.Gateway{LSB: &dstLSB}

	host := &fakeHost{}
	d := &descriptor.Descriptor{Init: true, Eom: true, CbSrc: uint32(len(packed))}
	xfer := transfer.New(srcGW, gateway.SB, 0, len(packed), dstGW, gateway.SB, 0, len(plain), false)

	if err := Execute(host, d, xfer); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := make([]byte, len(plain))
	if err := dstLSB.Read(0, got, len(got)); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if string(got) != string(plain) {
		t.Fatalf("got %q, want %q", got, plain)
	}
	if host.s != nil {
		t.Fatal("session must be destroyed after eom")
	}
}

func TestInflateSplitAcrossDescriptors(t *testing.T) {
	plain := []byte("split across two descriptors to exercise session reuse and the replay-from-start strategy")
	packed := compress(t, plain)
	mid := len(packed) / 2

	var srcLSB lsb.Buffer
	srcGW := &gateway.Gateway{LSB: &srcLSB}
	if err := srcLSB.Write(0, packed[:mid], mid); err != nil {
		t.Fatalf("seed part1: %v", err)
	}
	if err := srcLSB.Write(uint32(mid), packed[mid:], len(packed)-mid); err != nil {
		t.Fatalf("seed part2: %v", err)
	}
	var dstLSB lsb.Buffer
	dstGW := &gateway.Gateway{LSB: &dstLSB}

	host := &fakeHost{}

	d1 := &descriptor.Descriptor{Init: true, Eom: false, CbSrc: uint32(mid)}
	xfer1 := transfer.New(srcGW, gateway.SB, 0, mid, dstGW, gateway.SB, 0, len(plain), false)
	if err := Execute(host, d1, xfer1); err != nil {
		t.Fatalf("Execute part1: %v", err)
	}
	if host.s == nil {
		t.Fatal("session should persist across a non-eom descriptor")
	}

	d2 := &descriptor.Descriptor{Init: false, Eom: true, CbSrc: uint32(len(packed) - mid)}
	xfer2 := transfer.New(srcGW, gateway.SB, uint64(mid), len(packed)-mid, dstGW, gateway.SB, uint64(host.s.flushed), len(plain)-host.s.flushed, false)
	if err := Execute(host, d2, xfer2); err != nil {
		t.Fatalf("Execute part2: %v", err)
	}

	got := make([]byte, len(plain))
	if err := dstLSB.Read(0, got, len(got)); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if string(got) != string(plain) {
		t.Fatalf("got %q, want %q", got, plain)
	}
}

func TestInitForcesFreshSession(t *testing.T) {
	host := &fakeHost{s: &Session{flushed: 99}}
	plain := []byte("fresh start")
	packed := compress(t, plain)

	var srcLSB lsb.Buffer
	srcGW := &gateway.Gateway{LSB: &srcLSB}
	if err := srcLSB.Write(0, packed, len(packed)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var dstLSB lsb.Buffer
	dstGW := &gateway.Gateway{LSB: &dstLSB}

	d := &descriptor.Descriptor{Init: true, Eom: true, CbSrc: uint32(len(packed))}
	xfer := transfer.New(srcGW, gateway.SB, 0, len(packed), dstGW, gateway.SB, 0, len(plain), false)
	if err := Execute(host, d, xfer); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := make([]byte, len(plain))
	if err := dstLSB.Read(0, got, len(got)); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if string(got) != string(plain) {
		t.Fatal("Init=true must discard the stale session rather than reuse it")
	}
}
