/*
 * CCP - MMIO register file: maps offsets within the device's MMIO
 * windows to per-queue or global registers, and drives the queue
 * state machine's deferred-execution rule.
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

// Package mmio decodes the CCP's two memory-mapped windows. The
// primary window exposes per-queue control/head/tail/status/ien/ists
// registers; the secondary window is a 32-bit-read-only strip used by
// firmware to learn the byte count of the last DMA into PSP memory.
//
// Critically, queue draining is never triggered by the write that
// sets RUN. It fires on a later read of any queue register, or on a
// write that leaves at least one interrupt enabled — replicating the
// real device's asynchrony (spec §4.11). Executing eagerly on the RUN
// write corrupts firmware call stacks that assume DMA lands only
// after a subsequent access.
package mmio

import (
	"github.com/hnj2/PSPEmu/internal/logger"
	"github.com/hnj2/PSPEmu/queue"
)

const (
	// QueueBase is the first offset belonging to per-queue registers;
	// anything below it is the (currently empty) global register bank.
	QueueBase uint32 = 0x1000
	// Stride separates consecutive queues' register banks.
	Stride uint32 = 0x1000

	RegControl uint32 = 0x00
	RegHead    uint32 = 0x04
	RegTail    uint32 = 0x08
	RegStatus  uint32 = 0x0c
	RegIen     uint32 = 0x10
	RegIsts    uint32 = 0x14

	// Secondary-window offsets.
	SecondaryWrittenLast uint32 = 0x28
	SecondaryPollBit     uint32 = 0x38
)

// DrainFunc runs one queue's drain-if-eligible pass and applies its
// resulting IRQ assertion to the host interrupt line.
type DrainFunc func(queueIndex int)

// RegisterFile glues MMIO offset decoding to a device's queues.
type RegisterFile struct {
	Queues        []*queue.Queue
	Drain         DrainFunc
	WrittenLast   func() uint64
	Log           *logger.Logger
}

// ReadPrimary services a read in the primary MMIO region. Only
// 32-bit-wide accesses are supported; any other width is rejected
// with a logged warning. Reads of a queue register trigger that
// queue's deferred drain before the value is fetched.
func (r *RegisterFile) ReadPrimary(offset uint32, width int) (uint32, bool) {
	if width != 4 {
		r.Log.Warn("ccp: mmio access width rejected", "offset", offset, "width", width)
		return 0, false
	}
	if offset < QueueBase {
		return 0, true
	}

	idx, reg := decode(offset)
	if idx < 0 || idx >= len(r.Queues) {
		return 0, true
	}
	if r.Drain != nil {
		r.Drain(idx)
	}
	q := r.Queues[idx]
	switch reg {
	case RegControl:
		return q.Control(), true
	case RegHead:
		return q.Head, true
	case RegTail:
		return q.Tail, true
	case RegStatus:
		return q.Status, true
	case RegIen:
		return q.Ien, true
	case RegIsts:
		return q.Ists, true
	default:
		return 0, true
	}
}

// WritePrimary services a write in the primary MMIO region. Writes
// below QueueBase are silently ignored (no global registers are
// modeled by this core). A write that leaves the target queue's Ien
// non-zero triggers that queue's deferred drain after the write is
// applied.
func (r *RegisterFile) WritePrimary(offset uint32, width int, val uint32) bool {
	if width != 4 {
		r.Log.Warn("ccp: mmio access width rejected", "offset", offset, "width", width)
		return false
	}
	if offset < QueueBase {
		return true
	}

	idx, reg := decode(offset)
	if idx < 0 || idx >= len(r.Queues) {
		return true
	}
	q := r.Queues[idx]
	switch reg {
	case RegControl:
		q.SetControl(val)
	case RegHead:
		q.Head = val
	case RegTail:
		q.Tail = val
	case RegStatus:
		q.Status = val
	case RegIen:
		q.Ien = val
	case RegIsts:
		q.AckInterrupt(val)
	}

	if q.Ien != 0 && r.Drain != nil {
		r.Drain(idx)
	}
	return true
}

// ReadSecondary services a read in the secondary MMIO window.
func (r *RegisterFile) ReadSecondary(offset uint32, width int) (uint32, bool) {
	if width != 4 {
		r.Log.Warn("ccp: mmio access width rejected", "offset", offset, "width", width)
		return 0, false
	}
	switch offset {
	case SecondaryWrittenLast:
		if r.WrittenLast == nil {
			return 0, true
		}
		return uint32(r.WrittenLast()), true
	case SecondaryPollBit:
		return 1, true
	default:
		return 0, true
	}
}

func decode(offset uint32) (queueIndex int, reg uint32) {
	rel := offset - QueueBase
	return int(rel / Stride), rel % Stride
}
