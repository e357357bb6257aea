package imc

// SlaveControl implements the Slave side of session establishment and
// liveness: it periodically sends Handshake until acknowledged, then
// sends KeepAlive whenever no other outbound traffic has reset its
// notification timer, and reverts to RESET if an Acknowledge is not
// seen within SlaveAckTimeoutUs.
//
// Ported from imc/ImcSlaveControl.hpp.
type SlaveControl struct {
	settings Settings

	notificationTimer   uint32
	keepAliveAckTimeout uint32
	established         bool
}

// NewSlaveControl constructs a SlaveControl in the RESET state, with
// notificationTimer primed so the very first tick sends a Handshake.
func NewSlaveControl(settings Settings) *SlaveControl {
	return &SlaveControl{
		settings:          settings,
		notificationTimer: settings.SlaveHandshakeIntervalUs,
	}
}

func (c *SlaveControl) updateTimers(dt uint32) {
	c.notificationTimer += dt
	c.keepAliveAckTimeout += dt
}

func (c *SlaveControl) updateStatus(send sendFunc) {
	c.checkKeepAliveAckTimeout()
	c.sendNotification(send)
}

func (c *SlaveControl) checkKeepAliveAckTimeout() {
	if c.established && c.keepAliveAckTimeout >= c.settings.SlaveAckTimeoutUs {
		c.established = false
	}
}

func (c *SlaveControl) sendNotification(send sendFunc) {
	if !c.established {
		if c.notificationTimer >= c.settings.SlaveHandshakeIntervalUs {
			send(IDHandshake, nil)
		}
		return
	}
	if c.notificationTimer >= c.settings.SlaveKeepAliveIntervalUs {
		send(IDKeepAlive, nil)
	}
}

func (c *SlaveControl) isEstablished() bool {
	return c.established
}

func (c *SlaveControl) dispatchControlMessage(send sendFunc, id uint8, sequence uint16, size uint8, data []byte) bool {
	switch id {
	case IDAcknowledge:
		return c.handleAck(data, size)
	case IDReceiveError:
		return true
	default:
		return false
	}
}

func (c *SlaveControl) handleAck(data []byte, size uint8) bool {
	if int(size) != 4 {
		return false
	}
	ack := DecodeAck(data)
	if !c.established {
		if ack.AckID == IDHandshake {
			c.established = true
			c.keepAliveAckTimeout = 0
		}
	} else {
		if ack.AckID == IDKeepAlive {
			c.keepAliveAckTimeout = 0
		}
	}
	return true
}

// onMessageSent resets the notification timer on any accepted outbound
// frame, control or user — this lets KeepAlive emission be coalesced
// with user traffic, per spec design note (c).
func (c *SlaveControl) onMessageSent() {
	c.notificationTimer = 0
}

func (c *SlaveControl) onMessageReceived() {}
