package imc

// MasterControl implements the Master side of session establishment
// and liveness: it accepts Handshake, replies with Acknowledge, and
// reverts to RESET if no valid frame arrives for
// MasterCommunicationTimeoutUs.
//
// Ported from imc/ImcMasterControl.hpp.
type MasterControl struct {
	settings Settings

	communicationTimeoutTimer uint32
	established               bool
}

// NewMasterControl constructs a MasterControl in the RESET state.
func NewMasterControl(settings Settings) *MasterControl {
	return &MasterControl{settings: settings}
}

func (c *MasterControl) updateTimers(dt uint32) {
	c.communicationTimeoutTimer += dt
}

// updateStatus runs the FSM's periodic work; for the master this is
// purely the communication timeout check, run after inbound frames for
// the tick have already been drained so a just-arrived frame keeps the
// session alive for the current tick.
func (c *MasterControl) updateStatus(send sendFunc) {
	if c.communicationTimeoutTimer >= c.settings.MasterCommunicationTimeoutUs {
		c.established = false
	}
}

func (c *MasterControl) isEstablished() bool {
	return c.established
}

// dispatchControlMessage handles a validated control-recipient frame.
// Returns false if id/size didn't match a known, well-formed control
// message.
func (c *MasterControl) dispatchControlMessage(send sendFunc, id uint8, sequence uint16, size uint8, data []byte) bool {
	switch id {
	case IDHandshake:
		return c.handleHandshake(send, size, sequence)
	case IDKeepAlive:
		return c.handleKeepAlive(send, size, sequence)
	case IDReceiveError:
		return true
	default:
		return false
	}
}

func (c *MasterControl) handleHandshake(send sendFunc, size uint8, sequence uint16) bool {
	if size != 0 {
		return false
	}
	send(IDAcknowledge, EncodeAck(AckPayload{AckID: IDHandshake, AckSequence: sequence}))
	c.established = true
	return true
}

func (c *MasterControl) handleKeepAlive(send sendFunc, size uint8, sequence uint16) bool {
	if size != 0 {
		return false
	}
	if c.established {
		send(IDAcknowledge, EncodeAck(AckPayload{AckID: IDKeepAlive, AckSequence: sequence}))
	}
	return true
}

func (c *MasterControl) onMessageSent() {}

func (c *MasterControl) onMessageReceived() {
	c.communicationTimeoutTimer = 0
}
