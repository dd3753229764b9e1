/*
 * CCP - Error taxonomy shared by engines, gateway and the queue runner.
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

// Package ccperr defines the closed set of error kinds an engine
// back-end or the address-space gateway may return. The queue runner
// collapses any of these into a queue status code and an interrupt
// bit; it never panics on an engine error.
package ccperr

import "errors"

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", errX) for context;
// classify with errors.Is against these values.
var (
	// ErrOutOfRange: LSB or descriptor-region bounds violated.
	ErrOutOfRange = errors.New("ccp: out of range")

	// ErrNotImplemented: parameter combination this core does not support.
	ErrNotImplemented = errors.New("ccp: not implemented")

	// ErrUnsupported: SYSTEM memory type used; host memory is not modeled.
	ErrUnsupported = errors.New("ccp: unsupported memory type")

	// ErrEngineError: underlying crypto/zlib/bignum primitive failed.
	ErrEngineError = errors.New("ccp: engine error")

	// ErrProxyError: proxy call failed or returned non-success.
	ErrProxyError = errors.New("ccp: proxy error")

	// ErrDecodeError: unknown engine or function code in descriptor.
	ErrDecodeError = errors.New("ccp: decode error")
)

// StatusCode is the low-6-bit outcome code firmware reads from a
// queue's status register.
type StatusCode uint8

const (
	StatusSuccess StatusCode = 0
	statusGeneric StatusCode = 1 // non-zero: generic error, low 6 bits.
)

// Classify maps an engine error to a queue status code. A nil error
// maps to StatusSuccess. Unrecognized non-nil errors default to the
// EngineError outcome, same as spec: errors during descriptor read are
// themselves treated as EngineError by the caller.
func Classify(err error) StatusCode {
	if err == nil {
		return StatusSuccess
	}
	return statusGeneric
}

// Kind names the taxonomy entry an error belongs to, used only as a
// log attribute (ccp package; severity is chosen by Fatal); queue
// status itself is binary success/error per spec.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrEngineError):
		return "engine_error"
	case errors.Is(err, ErrProxyError):
		return "proxy_error"
	case errors.Is(err, ErrDecodeError):
		return "decode_error"
	default:
		return "engine_error"
	}
}

// Fatal reports whether the spec requires FATAL-severity logging for
// this error kind (ProxyError, and the unlogged-protected-key
// fallback handled separately by the aes engine).
func Fatal(err error) bool {
	return errors.Is(err, ErrProxyError)
}
