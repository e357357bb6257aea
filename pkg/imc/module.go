package imc

import "sync"

// sendFunc is how a control FSM asks the Module to send a control
// message without needing to know about sequencing, CRC, or the
// sender's queue itself.
type sendFunc func(id uint8, payload []byte) bool

// controlFSM is satisfied by both MasterControl and SlaveControl,
// letting Module hold either behind one field — the Go replacement for
// the original's compile-time std::conditional_t selection (spec design
// note (a)).
type controlFSM interface {
	updateTimers(dt uint32)
	updateStatus(send sendFunc)
	isEstablished() bool
	dispatchControlMessage(send sendFunc, id uint8, sequence uint16, size uint8, data []byte) bool
	onMessageSent()
	onMessageReceived()
}

// Recipient is the callback invoked when a user message (recipient
// number 1..3) is received. It must return true if the message was
// understood and valid; a false return causes the dispatcher to emit a
// ReceiveError. Ported from the function-pointer+context shape of
// misc/Callback.hpp, collapsed to a plain closure — idiomatic Go has no
// ABI reason to keep the opaque-context indirection outside ISR
// registration (spec design note (b)).
type Recipient func(id uint8, payload []byte) bool

// Module is the dispatcher: it validates and CRCs every frame,
// maintains the outbound sequence counter, routes control frames to
// the active controlFSM and user frames to registered recipients, and
// reserves one sender slot for control traffic.
//
// mu serializes every access to the control FSM, the sequence counter,
// and the recipient table: spec.md §5 maps the original's single
// "main context" onto a single logical section of code, but a daemon
// has several goroutines wanting to drive the Module (the Update
// ticker, and anything calling Send or IsEstablished). The control FSM
// itself is plain Go state with no internal locking — it was ported
// straight from single-threaded embedded C++ — so Module's exported
// entry points (Send, Update, IsEstablished) each take mu for their
// whole call, and every unexported helper they call assumes the lock
// is already held rather than re-acquiring it.
//
// Ported from imc/InterMcuCommunicationModule.hpp.
type Module struct {
	uart     UART
	crc      CRC
	receiver *Receiver
	sender   *Sender
	control  controlFSM
	settings Settings

	mu         sync.Mutex
	recipients [4]Recipient

	nextSequence    uint16
	lastReceivedSeq uint16
}

// NewModule wires a Module over the given UART and CRC collaborators
// using settings (which selects Master or Slave role).
func NewModule(uart UART, crc CRC, settings Settings) *Module {
	m := &Module{
		uart:     uart,
		crc:      crc,
		receiver: NewReceiver(uart, settings.MaxMessageSize),
		sender:   NewSender(uart, settings.MaxMessageSize),
		settings: settings,
	}
	if settings.Role == RoleMaster {
		m.control = NewMasterControl(settings)
	} else {
		m.control = NewSlaveControl(settings)
	}
	return m
}

// RegisterRecipient installs a callback for user messages addressed to
// recipient number n (1, 2, or 3). Registering outside that range is a
// programming error and is silently ignored, per spec.md §7.
func (m *Module) RegisterRecipient(n uint8, cb Recipient) {
	if n < 1 || n > 3 {
		return
	}
	m.mu.Lock()
	m.recipients[n] = cb
	m.mu.Unlock()
}

// Send tags and transmits a user message (recipient 1..3). It requires
// the session to be established and a free sender slot beyond the one
// always reserved for control traffic; returns false otherwise.
func (m *Module) Send(recipient, messageNumber uint8, payload []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.control.isEstablished() || m.sender.Capacity() <= 1 {
		return false
	}
	id := MakeID(recipient, messageNumber)
	return m.sendFrame(id, payload)
}

// sendControlMessage is the sendFunc handed to the control FSM: it
// requires only that at least one sender slot be free. Callers must
// already hold mu — it is only ever invoked from within Send or Update.
func (m *Module) sendControlMessage(id uint8, payload []byte) bool {
	if m.sender.Capacity() == 0 {
		return false
	}
	return m.sendFrame(id, payload)
}

// sendFrame tags a frame with the next sequence number and its CRC,
// hands it to the sender, and — only if accepted — advances the
// sequence counter and notifies the control FSM. The sequence counter
// is never advanced on a failed send. Callers must already hold mu.
func (m *Module) sendFrame(id uint8, payload []byte) bool {
	seq := m.nextSequence

	frame := BuildFrame(id, seq, payload)
	crcVal := m.computeCRC(frame[:HeaderSize+len(payload)])
	PutFrameCRC(frame, crcVal)

	if !m.sender.TrySend(frame) {
		return false
	}

	m.nextSequence++
	m.control.onMessageSent()
	return true
}

func (m *Module) computeCRC(headerAndPayload []byte) uint32 {
	m.crc.Reset()
	for _, b := range headerAndPayload {
		m.crc.Add(b)
	}
	return m.crc.Sum()
}

// Update advances control-FSM timers, drains all available received
// frames, emits a ReceiveError if the receiver flagged a transport
// error, and finally runs the control FSM's periodic work — in that
// order, so a frame arriving this tick can still reset a timeout before
// it is checked. Only one goroutine may call Update, Send, or
// IsEstablished at a time; mu enforces that across all three.
func (m *Module) Update(dtUs uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.control.updateTimers(dtUs)

	for m.drainOneFrame() {
	}

	if m.receiver.HasError() {
		m.respondWithReceiveError()
		m.receiver.ClearError()
	}

	m.control.updateStatus(m.sendControlMessage)
}

// drainOneFrame assumes mu is held.
func (m *Module) drainOneFrame() bool {
	frame, ok := m.receiver.PollFrame()
	if !ok {
		return false
	}
	m.handleReceivedFrame(frame)
	return true
}

// handleReceivedFrame assumes mu is held.
func (m *Module) handleReceivedFrame(frame []byte) {
	if !m.checkFrameValid(frame) {
		m.respondWithReceiveError()
		return
	}
	if m.dispatchFrame(frame) {
		m.lastReceivedSeq = FrameSequence(frame)
		m.control.onMessageReceived()
	} else {
		m.respondWithReceiveError()
	}
}

// checkFrameValid implements spec.md §4.4's three receive-validation
// rules: minimum length, padding consistency, and CRC match.
func (m *Module) checkFrameValid(frame []byte) bool {
	if len(frame) < HeaderSize+CRCSize {
		return false
	}
	size := FrameSize(frame)
	padded := PaddedSize(size)
	if int(padded) != len(frame)-HeaderSize-CRCSize {
		return false
	}
	want := FrameCRC(frame)
	got := m.computeCRC(frame[:HeaderSize+int(size)])
	return want == got
}

// dispatchFrame assumes mu is held.
func (m *Module) dispatchFrame(frame []byte) bool {
	id := FrameID(frame)
	size := FrameSize(frame)
	seq := FrameSequence(frame)
	data := frame[HeaderSize : HeaderSize+int(size)]

	recipientNum := RecipientNumber(id)
	if recipientNum == RecipientControl {
		return m.control.dispatchControlMessage(m.sendControlMessage, id, seq, size, data)
	}

	cb := m.recipients[recipientNum]
	if cb == nil {
		return false
	}
	return cb(id, data)
}

// respondWithReceiveError assumes mu is held.
func (m *Module) respondWithReceiveError() {
	m.sendControlMessage(IDReceiveError, EncodeReceiveError(ReceiveErrorPayload{LastOkSequence: m.lastReceivedSeq}))
}

// IsEstablished reports whether the session is currently established.
func (m *Module) IsEstablished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.control.isEstablished()
}

// CanEnqueueUser reports whether a user send() would currently succeed
// from the sender-capacity side (it does not check session
// establishment).
func (m *Module) CanEnqueueUser() bool {
	return m.sender.Capacity() > 1
}
