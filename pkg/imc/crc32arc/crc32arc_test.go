package crc32arc

import "testing"

func TestEngineResetIsIndependentOfPriorInput(t *testing.T) {
	e := New()
	for _, b := range []byte("warm up the table") {
		e.Add(b)
	}
	e.Reset()

	want := New()
	msg := []byte{0x01, 0x02, 0x03, 0x04}
	for _, b := range msg {
		e.Add(b)
		want.Add(b)
	}
	if e.Sum() != want.Sum() {
		t.Fatalf("Sum() after Reset = %#x, want %#x", e.Sum(), want.Sum())
	}
}

func TestEngineIsDeterministicAndOrderSensitive(t *testing.T) {
	a := New()
	for _, b := range []byte{0xDE, 0xAD, 0xBE, 0xEF} {
		a.Add(b)
	}

	b := New()
	for _, x := range []byte{0xEF, 0xBE, 0xAD, 0xDE} {
		b.Add(x)
	}

	if a.Sum() == b.Sum() {
		t.Fatal("reversing the byte order should change the checksum")
	}

	c := New()
	for _, x := range []byte{0xDE, 0xAD, 0xBE, 0xEF} {
		c.Add(x)
	}
	if a.Sum() != c.Sum() {
		t.Fatalf("two engines fed the same bytes must agree: %#x != %#x", a.Sum(), c.Sum())
	}
}

func TestEngineEmptyInputSumsToZero(t *testing.T) {
	e := New()
	if got := e.Sum(); got != 0 {
		t.Fatalf("Sum() with no input = %#x, want 0", got)
	}
}
