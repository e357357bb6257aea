package imc

import (
	"bytes"
	"testing"
)

func TestReceiverRoundTripSingleFrame(t *testing.T) {
	u := newFakeUART()
	r := NewReceiver(u, 64)

	u.deliverBytes(nil) // initial idle marks the receiver ready

	frame := []byte{0x11, 0x22, 0x33, 0x44}
	u.deliverBytes(frame)

	got, ok := r.PollFrame()
	if !ok {
		t.Fatal("PollFrame returned ok=false, want a completed frame")
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("PollFrame = %v, want %v", got, frame)
	}

	if _, ok := r.PollFrame(); ok {
		t.Fatal("PollFrame should return ok=false once the queue is drained")
	}
}

func TestReceiverQueuesTwoFramesInOrder(t *testing.T) {
	u := newFakeUART()
	r := NewReceiver(u, 64)
	u.deliverBytes(nil)

	frame1 := []byte{0x01, 0x02}
	frame2 := []byte{0x03, 0x04, 0x05}
	u.deliverBytes(frame1)
	u.deliverBytes(frame2)

	got1, ok := r.PollFrame()
	if !ok || !bytes.Equal(got1, frame1) {
		t.Fatalf("first PollFrame = %v, ok=%v, want %v, true", got1, ok, frame1)
	}
	got2, ok := r.PollFrame()
	if !ok || !bytes.Equal(got2, frame2) {
		t.Fatalf("second PollFrame = %v, ok=%v, want %v, true", got2, ok, frame2)
	}
}

func TestReceiverOverflowSetsError(t *testing.T) {
	u := newFakeUART()
	r := NewReceiver(u, 4) // deliberately small buffer

	u.deliverBytes(nil)
	for _, b := range []byte{1, 2, 3, 4, 5} {
		u.onByte(b)
	}

	if !r.HasError() {
		t.Fatal("expected HasError() after exceeding bufferCap")
	}

	r.ClearError()
	if r.HasError() {
		t.Fatal("expected HasError() false after ClearError")
	}
}

func TestReceiverThirdQueuedFrameSetsError(t *testing.T) {
	u := newFakeUART()
	r := NewReceiver(u, 64)
	u.deliverBytes(nil)

	u.deliverBytes([]byte{1})
	u.deliverBytes([]byte{2})
	// A third frame's bytes arrive before either of the first two is
	// polled: queued is already 2, so onByte must flag an error rather
	// than silently drop or overwrite a queued frame.
	u.onByte(3)

	if !r.HasError() {
		t.Fatal("expected HasError() once a third frame's bytes arrive with two already queued")
	}
}

func TestReceiverRxErrorCallback(t *testing.T) {
	u := newFakeUART()
	r := NewReceiver(u, 64)
	u.onError(0)
	if !r.HasError() {
		t.Fatal("expected HasError() after OnRxError callback fires")
	}
}
