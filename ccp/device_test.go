package ccp

import (
	"log/slog"
	"testing"

	"github.com/hnj2/PSPEmu/config"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/gateway"
	"github.com/hnj2/PSPEmu/mmio"
	"github.com/hnj2/PSPEmu/queue"
)

type fakeProxy struct{}

func (fakeProxy) AESDo(dw0 uint32, cbSrc uint32, src, dst []byte, keyAddr uint64, iv []byte) error {
	return nil
}

// fakeIO models PSP-local memory as a flat byte slice, enough to host
// both descriptor rings and message payloads in these tests.
type fakeIO struct {
	mem [65536]byte
}

func (f *fakeIO) PSPRead(addr uint64, buf []byte) (int, error) {
	n := copy(buf, f.mem[addr:])
	return n, nil
}

func (f *fakeIO) PSPWrite(addr uint64, buf []byte) (int, error) {
	n := copy(f.mem[addr:], buf)
	return n, nil
}

type fakeIRQ struct {
	asserts []bool
}

func (f *fakeIRQ) Set(prio, devID uint8, assert bool) {
	f.asserts = append(f.asserts, assert)
}

func putDescriptor(io *fakeIO, addr uint32, d *descriptor.Descriptor) {
	copy(io.mem[addr:], descriptor.Encode(d))
}

func TestPassthroughDescriptorViaQueueDrain(t *testing.T) {
	io := &fakeIO{}
	irq := &fakeIRQ{}
	dev := New(WithIOManager(io), WithIRQLine(irq))

	msg := []byte("end to end through the queue")
	copy(io.mem[0x2000:], msg)

	putDescriptor(io, 0, &descriptor.Descriptor{
		Engine:     descriptor.EnginePassthrough,
		Eom:        true,
		CbSrc:      uint32(len(msg)),
		SrcAddr:    0x2000,
		SrcMemType: gateway.Local,
		DstAddr:    0x3000,
		DstMemType: gateway.Local,
	})

	dev.WritePrimary(mmio.QueueBase+mmio.RegTail, 4, queue.DescriptorSize)
	dev.WritePrimary(mmio.QueueBase+mmio.RegControl, 4, queue.ControlRun)
	dev.WritePrimary(mmio.QueueBase+mmio.RegIen, 4, queue.IntCompletion)

	if string(io.mem[0x3000:0x3000+len(msg)]) != string(msg) {
		t.Fatalf("got %q, want %q", io.mem[0x3000:0x3000+len(msg)], msg)
	}

	q := dev.Queue(0)
	if q.Head != q.Tail {
		t.Fatalf("Head = %d, Tail = %d, want fully drained", q.Head, q.Tail)
	}
	if len(irq.asserts) == 0 {
		t.Fatal("expected at least one IRQ line update")
	}
}

func TestRunWriteAloneDoesNotDrain(t *testing.T) {
	io := &fakeIO{}
	dev := New(WithIOManager(io))

	putDescriptor(io, 0, &descriptor.Descriptor{
		Engine:     descriptor.EnginePassthrough,
		Eom:        true,
		CbSrc:      4,
		SrcAddr:    0x2000,
		SrcMemType: gateway.Local,
		DstAddr:    0x3000,
		DstMemType: gateway.Local,
	})

	dev.WritePrimary(mmio.QueueBase+mmio.RegTail, 4, queue.DescriptorSize)
	dev.WritePrimary(mmio.QueueBase+mmio.RegControl, 4, queue.ControlRun)

	q := dev.Queue(0)
	if q.Head == q.Tail {
		t.Fatal("RUN write alone must not drain the queue")
	}

	// A later queue-register read is what triggers the deferred drain.
	dev.ReadPrimary(mmio.QueueBase+mmio.RegHead, 4)
	if q.Head != q.Tail {
		t.Fatal("a subsequent queue register read must trigger the deferred drain")
	}
}

func TestUnknownEngineFaultsTheQueue(t *testing.T) {
	io := &fakeIO{}
	dev := New(WithIOManager(io))

	putDescriptor(io, 0, &descriptor.Descriptor{Engine: descriptor.Engine(0xf), Eom: true})

	dev.WritePrimary(mmio.QueueBase+mmio.RegTail, 4, queue.DescriptorSize)
	dev.WritePrimary(mmio.QueueBase+mmio.RegControl, 4, queue.ControlRun)
	dev.WritePrimary(mmio.QueueBase+mmio.RegIen, 4, queue.IntError)

	q := dev.Queue(0)
	if q.Head == q.Tail {
		t.Fatal("an unknown engine must fault the queue rather than advance past it")
	}
	val, _ := dev.ReadPrimary(mmio.QueueBase+mmio.RegIsts, 4)
	if val&queue.IntError == 0 {
		t.Fatal("expected IntError set in Ists after an unknown-engine fault")
	}
}

func TestCbWrittenLastTracksLocalWrites(t *testing.T) {
	io := &fakeIO{}
	dev := New(WithIOManager(io))

	msg := []byte("tracked bytes")
	copy(io.mem[0x2000:], msg)
	putDescriptor(io, 0, &descriptor.Descriptor{
		Engine:     descriptor.EnginePassthrough,
		Eom:        true,
		CbSrc:      uint32(len(msg)),
		SrcAddr:    0x2000,
		SrcMemType: gateway.Local,
		DstAddr:    0x3000,
		DstMemType: gateway.Local,
	})

	dev.WritePrimary(mmio.QueueBase+mmio.RegTail, 4, queue.DescriptorSize)
	dev.WritePrimary(mmio.QueueBase+mmio.RegControl, 4, queue.ControlRun)
	dev.WritePrimary(mmio.QueueBase+mmio.RegIen, 4, queue.IntCompletion)

	if dev.CbWrittenLast() != uint64(len(msg)) {
		t.Fatalf("CbWrittenLast = %d, want %d", dev.CbWrittenLast(), len(msg))
	}
	val, _ := dev.ReadSecondary(mmio.SecondaryWrittenLast, 4)
	if val != uint32(len(msg)) {
		t.Fatalf("secondary WrittenLast register = %d, want %d", val, len(msg))
	}
}

func TestNewFromConfigAppliesLogLevelAndProxy(t *testing.T) {
	cfg := config.Config{LogLevel: slog.LevelDebug, ProxyWanted: true}

	dev, err := NewFromConfig(cfg, WithProxy(fakeProxy{}))
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if dev.Proxy() == nil {
		t.Fatal("expected the supplied proxy to be wired in")
	}
}

func TestNewFromConfigRejectsWantedProxyWithoutOne(t *testing.T) {
	cfg := config.Config{ProxyWanted: true}

	if _, err := NewFromConfig(cfg); err == nil {
		t.Fatal("expected an error when config wants a proxy but none was supplied")
	}
}
