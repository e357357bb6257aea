package imc

import "sync"

// Receiver turns a stream of (byte, idle, error) events delivered from
// UART interrupt context into whole frames consumable from main
// context, queuing at most two completed frames at a time.
//
// Ported from imc/ImcReceiver.hpp. OnByte/OnIdle/OnError are called from
// the UART adapter's interrupt-context stand-in (typically its own
// goroutine); PollFrame/HasError/ClearError are called from the
// Update() goroutine.
type Receiver struct {
	uart      UART
	bufferCap int
	tb        *tripleBuffer
	ready     bool
	mu        sync.Mutex // guards error/queued alongside tb swaps
	hasErr    bool
	queued    uint8
}

// NewReceiver constructs a Receiver over the given UART, reserving
// bufferCap bytes per internal buffer (must be >= the largest frame the
// peer sends).
func NewReceiver(uart UART, bufferCap int) *Receiver {
	r := &Receiver{
		uart:      uart,
		bufferCap: bufferCap,
		tb:        newTripleBuffer(bufferCap),
	}
	uart.OnByteReceived(r.onByte)
	uart.OnIdleDetected(r.onIdle)
	uart.OnRxError(r.onError)
	return r
}

// onByte is called once per received byte from interrupt context.
func (r *Receiver) onByte(b byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasErr || r.queued >= 2 {
		r.hasErr = true
		return
	}
	buf := r.tb.write()
	if len(buf) >= r.bufferCap {
		r.hasErr = true
		return
	}
	r.tb.setWrite(append(buf, b))
}

// onIdle is called from interrupt context when the line has been idle
// for the configured threshold, marking a frame boundary.
func (r *Receiver) onIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ready {
		r.ready = true
		r.tb.setWrite(r.tb.write()[:0])
		return
	}
	if r.hasErr {
		if r.queued < 2 {
			r.tb.setWrite(r.tb.write()[:0])
		}
		return
	}
	if len(r.tb.write()) > 0 {
		if r.queued == 0 {
			// Intermediate buffer is cleared in PollFrame, so after this
			// swap write() holds a clean buffer for the next frame and
			// the just-completed frame sits in the intermediate slot.
			r.tb.swapWrite()
		}
		r.queued++
	}
}

// onError is called from interrupt context when the UART hardware
// reports a transport-level error.
func (r *Receiver) onError(byte) {
	r.mu.Lock()
	r.hasErr = true
	r.mu.Unlock()
}

// PollFrame returns the next completed frame, if any, and removes it
// from the queue. The returned slice is valid only until the next call
// to PollFrame.
func (r *Receiver) PollFrame() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queued == 0 {
		return nil, false
	}

	r.uart.SuspendReceive()
	defer r.uart.ResumeReceive()

	r.tb.setRead(r.tb.read()[:0])
	r.tb.swapRead()
	r.queued--
	if r.queued > 0 {
		r.tb.swapWrite()
	}

	return r.tb.read(), true
}

// HasError reports whether the UART flagged a transport error or the
// receive buffer overflowed. While true, no further frames are queued.
func (r *Receiver) HasError() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasErr
}

// ClearError clears a flagged error so frame reception can resume.
func (r *Receiver) ClearError() {
	r.mu.Lock()
	r.hasErr = false
	r.mu.Unlock()
}
