package gateway

import (
	"errors"
	"testing"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/lsb"
)

type fakeIO struct {
	mem     [256]byte
	readErr error
	written uint64
}

func (f *fakeIO) PSPRead(addr uint64, buf []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	n := copy(buf, f.mem[addr:])
	return n, nil
}

func (f *fakeIO) PSPWrite(addr uint64, buf []byte) (int, error) {
	n := copy(f.mem[addr:], buf)
	f.written += uint64(n)
	return n, nil
}

func TestSystemMemoryUnsupported(t *testing.T) {
	gw := &Gateway{}
	buf := make([]byte, 4)
	if _, err := gw.Read(System, 0, buf, 4); !errors.Is(err, ccperr.ErrUnsupported) {
		t.Fatalf("Read(System) = %v, want ErrUnsupported", err)
	}
	if _, err := gw.Write(System, 0, buf, 4); !errors.Is(err, ccperr.ErrUnsupported) {
		t.Fatalf("Write(System) = %v, want ErrUnsupported", err)
	}
}

func TestLocalMemoryDelegates(t *testing.T) {
	io := &fakeIO{}
	var written uint64
	gw := &Gateway{IO: io, Written: &written}
	in := []byte{0xde, 0xad, 0xbe, 0xef}
	if _, err := gw.Write(Local, 10, in, len(in)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if written != uint64(len(in)) {
		t.Fatalf("Written = %d, want %d", written, len(in))
	}
	out := make([]byte, len(in))
	if _, err := gw.Read(Local, 10, out, len(out)); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}
}

func TestLocalMemoryWithoutIOManager(t *testing.T) {
	gw := &Gateway{}
	buf := make([]byte, 4)
	if _, err := gw.Read(Local, 0, buf, 4); !errors.Is(err, ccperr.ErrUnsupported) {
		t.Fatalf("Read(Local) without IOManager = %v, want ErrUnsupported", err)
	}
}

func TestSBMemoryDelegatesToLSB(t *testing.T) {
	var buf lsb.Buffer
	gw := &Gateway{LSB: &buf}
	in := []byte{1, 2, 3, 4}
	if _, err := gw.Write(SB, 0, in, len(in)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := make([]byte, len(in))
	if _, err := gw.Read(SB, 0, out, len(out)); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}
}

func TestUnknownMemType(t *testing.T) {
	gw := &Gateway{}
	buf := make([]byte, 4)
	if _, err := gw.Read(MemType(9), 0, buf, 4); !errors.Is(err, ccperr.ErrDecodeError) {
		t.Fatalf("Read(unknown) = %v, want ErrDecodeError", err)
	}
}
