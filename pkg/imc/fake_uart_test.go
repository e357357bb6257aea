package imc

// fakeUART is a synchronous, single-goroutine stand-in for imc.UART
// used across the package's tests. It never spawns goroutines itself;
// tests drive byte delivery, idle detection, and tx completion by
// calling its helper methods directly, which keeps the scenarios
// deterministic without a real serial device or timers.
type fakeUART struct {
	onByte  func(byte)
	onIdle  func()
	onTx    func()
	onError func(byte)

	busy        bool
	sentFrames  [][]byte
	pendingIdle func()
}

func (u *fakeUART) Send(data []byte) bool {
	if u.busy {
		return false
	}
	cp := append([]byte(nil), data...)
	u.sentFrames = append(u.sentFrames, cp)
	return true
}

func (u *fakeUART) IsTxBusy() bool { return u.busy }

func (u *fakeUART) GenerateIdleLine(onElapsed func()) { u.pendingIdle = onElapsed }

func (u *fakeUART) SuspendSend()    {}
func (u *fakeUART) ResumeSend()     {}
func (u *fakeUART) SuspendReceive() {}
func (u *fakeUART) ResumeReceive()  {}

func (u *fakeUART) OnByteReceived(fn func(b byte)) { u.onByte = fn }
func (u *fakeUART) OnIdleDetected(fn func())       { u.onIdle = fn }
func (u *fakeUART) OnTxComplete(fn func())         { u.onTx = fn }
func (u *fakeUART) OnRxError(fn func(code byte))   { u.onError = fn }

// deliverBytes feeds each byte through OnByteReceived and then signals
// an idle-line boundary, the way a completed frame arrives in the real
// adapter.
func (u *fakeUART) deliverBytes(data []byte) {
	for _, b := range data {
		u.onByte(b)
	}
	u.onIdle()
}

// completeTx invokes the registered tx-complete callback, as if the
// in-flight send just finished transmitting.
func (u *fakeUART) completeTx() {
	if u.onTx != nil {
		u.onTx()
	}
}

// elapseIdleGap invokes whatever GenerateIdleLine callback is pending,
// as if the configured idle gap had just passed.
func (u *fakeUART) elapseIdleGap() {
	if u.pendingIdle != nil {
		fn := u.pendingIdle
		u.pendingIdle = nil
		fn()
	}
}

func newFakeUART() *fakeUART { return &fakeUART{} }
