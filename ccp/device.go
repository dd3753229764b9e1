/*
 * CCP - Device: owns the two request queues, the Local Storage
 * Buffer, and all session state; dispatches decoded descriptors to
 * engine back-ends and drives the MMIO register file.
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

// Package ccp is the orchestration root of the CCPv5 emulation core:
// two independent request queues, the Local Storage Buffer, the
// per-message SHA/AES/ZLIB session state, and the MMIO register file
// that drives all of it. It generalizes the teacher's channel-control
// layer (emu/sys_channel, which owns subchannels and dispatches CCW
// programs to device.Device implementations) from CCW channel
// programs to CCP request descriptors, each dispatched by engine id to
// the matching engine package's Execute function.
package ccp

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hnj2/PSPEmu/ccperr"
	"github.com/hnj2/PSPEmu/config"
	"github.com/hnj2/PSPEmu/descriptor"
	"github.com/hnj2/PSPEmu/engine/aes"
	"github.com/hnj2/PSPEmu/engine/ecc"
	"github.com/hnj2/PSPEmu/engine/passthrough"
	"github.com/hnj2/PSPEmu/engine/rsa"
	"github.com/hnj2/PSPEmu/engine/sha"
	"github.com/hnj2/PSPEmu/engine/zlib"
	"github.com/hnj2/PSPEmu/gateway"
	"github.com/hnj2/PSPEmu/internal/logger"
	"github.com/hnj2/PSPEmu/lsb"
	"github.com/hnj2/PSPEmu/mmio"
	"github.com/hnj2/PSPEmu/queue"
	"github.com/hnj2/PSPEmu/transfer"
)

// NumQueues is the number of independent request rings this core
// models (spec §3: "the model requires exactly two").
const NumQueues = 2

// IOManager is the external collaborator owning PSP/system/SMN
// address-space routing. Re-exported from gateway so callers need
// import only this package.
type IOManager = gateway.IOManager

// IRQLine is the external interrupt-line collaborator.
type IRQLine interface {
	Set(prio, devID uint8, assert bool)
}

// Proxy forwards protected-key AES operations to the real CCP.
type Proxy = aes.Proxy

// Device is one emulated CCPv5 instance.
type Device struct {
	queues [NumQueues]*queue.Queue
	lsbBuf lsb.Buffer
	gw     *gateway.Gateway
	regs   *mmio.RegisterFile

	irq   IRQLine
	proxy Proxy
	log   *logger.Logger

	cbWrittenLast uint64

	shaSession  *sha.Session
	aesSession  *aes.Session
	zlibSession *zlib.Session
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithIOManager installs the PSP-local memory collaborator. Without
// one, LOCAL-typed accesses fail Unsupported.
func WithIOManager(io IOManager) Option {
	return func(d *Device) { d.gw.IO = io }
}

// WithIRQLine installs the interrupt-line collaborator.
func WithIRQLine(irq IRQLine) Option {
	return func(d *Device) { d.irq = irq }
}

// WithProxy installs the real-hardware forwarder used for
// protected-key AES operations. Without one, protected-key requests
// still execute locally with a logged-fatal meaningless result.
func WithProxy(p Proxy) Option {
	return func(d *Device) { d.proxy = p }
}

// WithLogLevel sets the device's structured-log verbosity, written to
// out (defaults to os.Stderr if out is nil).
func WithLogLevel(out io.Writer, level slog.Level) Option {
	return func(d *Device) { d.log = logger.New(out, level) }
}

// New constructs a Device with NumQueues fresh, disabled queues and
// an empty LSB.
func New(opts ...Option) *Device {
	d := &Device{log: logger.Discard()}
	d.gw = &gateway.Gateway{LSB: &d.lsbBuf, Written: &d.cbWrittenLast}
	for i := range d.queues {
		d.queues[i] = &queue.Queue{}
	}
	for _, opt := range opts {
		opt(d)
	}
	d.regs = &mmio.RegisterFile{
		Queues:      d.queues[:],
		Drain:       d.drainQueue,
		WrittenLast: func() uint64 { return d.cbWrittenLast },
		Log:         d.log,
	}
	return d
}

// NewFromConfig builds a Device the way an embedder's startup file
// drives it: cfg.LogLevel sets the device's log verbosity (written to
// os.Stderr), and if cfg.ProxyWanted is set, opts must include a
// WithProxy or construction fails - a config file that asserts a proxy
// is present but leaves the device unable to forward protected-key
// operations is a misconfiguration, not something to fall back on
// silently.
func NewFromConfig(cfg config.Config, opts ...Option) (*Device, error) {
	all := append([]Option{WithLogLevel(nil, cfg.LogLevel)}, opts...)
	d := New(all...)
	if cfg.ProxyWanted && d.proxy == nil {
		return nil, fmt.Errorf("ccp: config requests a proxy but none was supplied via WithProxy")
	}
	return d, nil
}

// Queue returns the idx'th queue's state machine for direct firmware
// simulation in tests; idx must be 0 or 1.
func (d *Device) Queue(idx int) *queue.Queue { return d.queues[idx] }

// CbWrittenLast returns the running count of bytes written into
// PSP-local memory since the last transfer initialization.
func (d *Device) CbWrittenLast() uint64 { return d.cbWrittenLast }

// --- engine Host implementations -----------------------------------

func (d *Device) Gateway() *gateway.Gateway { return d.gw }
func (d *Device) LSB() *lsb.Buffer          { return &d.lsbBuf }
func (d *Device) Logger() *logger.Logger    { return d.log }
func (d *Device) Proxy() aes.Proxy          { return d.proxy }

func (d *Device) ShaSession() *sha.Session      { return d.shaSession }
func (d *Device) SetShaSession(s *sha.Session)  { d.shaSession = s }
func (d *Device) AesSession() *aes.Session      { return d.aesSession }
func (d *Device) SetAesSession(s *aes.Session)  { d.aesSession = s }
func (d *Device) ZlibSession() *zlib.Session    { return d.zlibSession }
func (d *Device) SetZlibSession(s *zlib.Session) { d.zlibSession = s }

// --- MMIO entry points ----------------------------------------------

// ReadPrimary services a firmware read of the primary MMIO region.
func (d *Device) ReadPrimary(offset uint32, width int) (uint32, bool) {
	return d.regs.ReadPrimary(offset, width)
}

// WritePrimary services a firmware write of the primary MMIO region.
func (d *Device) WritePrimary(offset uint32, width int, val uint32) bool {
	return d.regs.WritePrimary(offset, width, val)
}

// ReadSecondary services a firmware read of the secondary MMIO window.
func (d *Device) ReadSecondary(offset uint32, width int) (uint32, bool) {
	return d.regs.ReadSecondary(offset, width)
}

// --- dispatch ---------------------------------------------------------

func (d *Device) drainQueue(idx int) {
	q := d.queues[idx]
	irq := q.Drain(d.readDescriptor, d.dispatch)
	if d.irq != nil {
		d.irq.Set(0, 0x15, irq)
	}
}

func (d *Device) readDescriptor(addr uint32, buf []byte) error {
	_, err := d.gw.Read(gateway.Local, uint64(addr), buf, descriptor.Size)
	if err != nil {
		return ccperr.ErrEngineError
	}
	return nil
}

// dispatch decodes one 32-byte descriptor and runs the matching
// engine back-end. An unknown engine id is a DecodeError; engine
// failures propagate as-is for the caller (queue.Drain) to classify.
func (d *Device) dispatch(raw []byte) error {
	desc, err := descriptor.Decode(raw)
	if err != nil {
		return err
	}

	xfer := d.buildTransfer(desc)

	var runErr error
	switch desc.Engine {
	case descriptor.EnginePassthrough:
		runErr = passthrough.Execute(desc, xfer)
	case descriptor.EngineSHA:
		runErr = sha.Execute(d, desc, xfer)
	case descriptor.EngineAES:
		runErr = aes.Execute(d, desc, xfer)
	case descriptor.EngineRSA:
		runErr = rsa.Execute(d, desc, xfer)
	case descriptor.EngineECC:
		runErr = ecc.Execute(desc, xfer)
	case descriptor.EngineZlib:
		runErr = zlib.Execute(d, desc, xfer)
	default:
		d.log.Error("ccp: unknown engine id", "engine", desc.Engine)
		return ccperr.ErrDecodeError
	}

	if runErr != nil {
		d.logEngineError(desc.Engine, runErr)
	}
	return runErr
}

func (d *Device) logEngineError(eng descriptor.Engine, err error) {
	kind := ccperr.Kind(err)
	if ccperr.Fatal(err) {
		d.log.Fatal("ccp: engine request failed", "engine", eng, "kind", kind, "err", err)
	} else {
		d.log.Error("ccp: engine request failed", "engine", eng, "kind", kind, "err", err)
	}
}

// buildTransfer constructs the transfer context for one descriptor
// per spec §4.2: source from the descriptor's src fields; for SHA the
// destination is always the LSB at the slot named by the src memory
// type's LSB-context-id field, since a SHA descriptor carries no dst
// fields of its own (they are overlaid by the running bit count).
// Each transfer initialization restarts the cbWrittenLast counter.
func (d *Device) buildTransfer(desc *descriptor.Descriptor) *transfer.Context {
	d.cbWrittenLast = 0

	if desc.Engine == descriptor.EngineSHA {
		digestLen := shaDigestLen(desc.Function)
		return transfer.New(
			d.gw, desc.SrcMemType, desc.SrcAddr, int(desc.CbSrc),
			d.gw, gateway.SB, uint64(lsb.SlotAddr(desc.SrcLSBCtx)), digestLen, false)
	}

	if desc.Engine == descriptor.EngineZlib {
		// The descriptor carries no decompressed-size field (hardware
		// doesn't know it up front): bound the destination by the
		// backing memory's own limits, not by the compressed cbSrc,
		// or real inflate output faults the queue the moment it grows
		// past the compressed input size.
		return transfer.New(
			d.gw, desc.SrcMemType, desc.SrcAddr, int(desc.CbSrc),
			d.gw, desc.DstMemType, desc.DstAddr, unboundedDst, false)
	}

	reverse := desc.Engine == descriptor.EnginePassthrough && isByteswap256(desc)
	return transfer.New(
		d.gw, desc.SrcMemType, desc.SrcAddr, int(desc.CbSrc),
		d.gw, desc.DstMemType, desc.DstAddr, int(desc.CbSrc), reverse)
}

// unboundedDst is the destination budget given to engines whose output
// size isn't known from the descriptor; the real cap is whatever the
// destination gateway's backing memory enforces (LSB range, PSP local
// memory, or system memory).
const unboundedDst = 1<<31 - 1

func isByteswap256(desc *descriptor.Descriptor) bool {
	const byteswapMask = 0x3
	const byteswapShift = 2
	const byteswap256 = 1
	return (desc.Function>>byteswapShift)&byteswapMask == byteswap256 && desc.CbSrc == 32
}

func shaDigestLen(function uint16) int {
	if function&0x7 == 1 {
		return 48
	}
	return 32
}
