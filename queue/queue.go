/*
 * CCP - Queue state machine: per-queue run/halt control, head/tail
 * pointers, status and interrupt registers, and descriptor draining.
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

package queue

const (
	// Control register bits.
	ControlRun      uint32 = 1 << 0
	ControlHalt     uint32 = 1 << 1
	controlSizeMask uint32 = 0x1f
	controlSizeShft uint32 = 2

	// Interrupt-enable / interrupt-status bits.
	IntCompletion uint32 = 1 << 0
	IntError      uint32 = 1 << 1
	IntQStop      uint32 = 1 << 2
	IntQEmpty     uint32 = 1 << 3

	// DescriptorSize is the wire width of one queue-ring entry.
	DescriptorSize uint32 = 32

	statusSuccess uint32 = 0
	statusError   uint32 = 0x3f // non-zero outcome code, low 6 bits.
)

// Queue is one of the CCP's two independent request-ring state
// machines.
type Queue struct {
	control uint32
	Head    uint32
	Tail    uint32
	Status  uint32
	Ien     uint32
	Ists    uint32
	enabled bool
}

// Reader fetches one 32-byte descriptor from PSP memory at addr.
type Reader func(addr uint32, buf []byte) error

// Dispatcher decodes and executes one descriptor, returning any
// engine error. A nil return means success.
type Dispatcher func(raw []byte) error

// Control returns the control register as firmware would read it:
// RUN is always reported as 0 (edge-triggered into enabled, spec §3).
func (q *Queue) Control() uint32 {
	return q.control &^ ControlRun
}

// SetControl applies a firmware write to the control register. A 1 in
// the RUN bit edge-triggers q.enabled; the bit itself is never
// latched into the stored control word (it always reads back as 0).
func (q *Queue) SetControl(v uint32) {
	if v&ControlRun != 0 {
		q.enabled = true
	}
	q.control = v &^ ControlRun
}

// Enabled reports whether the queue was last started via RUN and has
// not yet stopped draining.
func (q *Queue) Enabled() bool { return q.enabled }

// SetSize stores the ring's log2(entries)-1 size field.
func (q *Queue) SetSize(sizeField uint32) {
	q.control = (q.control &^ (controlSizeMask << controlSizeShft)) |
		((sizeField & controlSizeMask) << controlSizeShft)
}

// AckInterrupt clears the bits of v present in Ists (firmware clears
// interrupt-status bits by writing 1s to them).
func (q *Queue) AckInterrupt(v uint32) {
	q.Ists &^= v
}

// IRQAsserted reports whether the host interrupt line should be
// asserted for this queue: (Ien & Ists) != 0.
func (q *Queue) IRQAsserted() bool {
	return q.Ien&q.Ists != 0
}

// Drain runs the algorithm of spec §4.10: while the queue is enabled,
// clear HALT, process descriptors from Head to Tail in order, and stop
// at the first error without advancing Head past it. It returns
// whether the host IRQ line should be asserted afterward.
func (q *Queue) Drain(read Reader, dispatch Dispatcher) bool {
	if !q.enabled {
		return q.IRQAsserted()
	}

	q.control &^= ControlHalt

	buf := make([]byte, DescriptorSize)
	for q.Head != q.Tail {
		if err := read(q.Head, buf); err != nil {
			q.Status = statusError
			q.Ists |= IntError
			break
		}
		if err := dispatch(buf); err != nil {
			q.Status = statusError
			q.Ists |= IntError
			break
		}
		q.Status = statusSuccess
		q.Ists |= IntCompletion
		q.Head += DescriptorSize
	}

	q.control |= ControlHalt
	q.Ists |= IntQStop
	if q.Head == q.Tail {
		q.Ists |= IntQEmpty
	}

	// The run just ended: go inert until the next RUN edge, so a later
	// MMIO access that merely re-triggers drain (a queue-register read,
	// or a write leaving an interrupt enabled) doesn't re-dispatch a
	// stuck descriptor or re-assert interrupts firmware already acked.
	q.enabled = false

	return q.IRQAsserted()
}
