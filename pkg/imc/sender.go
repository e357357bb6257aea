package imc

import "sync"

// Sender queues up to two outstanding frames for transmission over a
// UART, inserting an idle gap after each frame so the receiver on the
// other end can delimit frames on line inactivity.
//
// Ported from imc/ImcSender.hpp.
type Sender struct {
	uart     UART
	mu       sync.Mutex
	staged   []byte
	hasStage bool
	capacity uint8
}

// NewSender constructs a Sender wrapping the given UART. maxFrameSize
// sizes the internal staging buffer and must be at least as large as
// the largest frame ever handed to TrySend.
func NewSender(uart UART, maxFrameSize int) *Sender {
	s := &Sender{
		uart:     uart,
		staged:   make([]byte, 0, maxFrameSize),
		capacity: 2,
	}
	uart.OnTxComplete(s.onTxComplete)
	return s
}

// TrySend enqueues data for transmission. At most two frames may be
// outstanding (one in flight on the UART, one staged here); returns
// false if both slots are occupied.
func (s *Sender) TrySend(data []byte) bool {
	s.uart.SuspendSend()
	defer s.uart.ResumeSend()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.uart.IsTxBusy() {
		if s.uart.Send(data) {
			s.capacity = 1
			return true
		}
		return false
	}
	if s.capacity > 0 {
		s.staged = append(s.staged[:0], data...)
		s.hasStage = true
		s.capacity = 0
		return true
	}
	return false
}

// Capacity returns the number of free send slots, 0, 1, or 2.
func (s *Sender) Capacity() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// onTxComplete runs when the UART finishes transmitting a frame: it
// requests the inter-frame idle gap, and only once that gap has
// actually elapsed does it start any staged frame and free a slot.
func (s *Sender) onTxComplete() {
	s.uart.GenerateIdleLine(s.onIdleGapElapsed)
}

func (s *Sender) onIdleGapElapsed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasStage {
		s.hasStage = false
		s.uart.Send(s.staged)
	}
	if s.capacity < 2 {
		s.capacity++
	}
}
