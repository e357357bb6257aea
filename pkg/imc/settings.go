package imc

// Role selects which control state machine variant a Module runs.
type Role int

const (
	// RoleMaster runs ImcMasterControl-equivalent behavior: responds to
	// Handshake/KeepAlive with Acknowledge, times out if nothing valid
	// arrives for MasterCommunicationTimeoutUs.
	RoleMaster Role = iota
	// RoleSlave runs ImcSlaveControl-equivalent behavior: periodically
	// sends Handshake until acknowledged, then KeepAlive, reverting to
	// RESET if an Acknowledge is not seen in time.
	RoleSlave
)

// Settings holds the session-establishment and liveness configuration
// shared by both control FSM variants. Ported from ImcSettings.hpp.
type Settings struct {
	Role Role

	// SlaveHandshakeIntervalUs is the period of Handshake emission
	// while the slave is in RESET.
	SlaveHandshakeIntervalUs uint32
	// SlaveKeepAliveIntervalUs is the maximum idle time before the
	// slave emits KeepAlive while ESTABLISHED.
	SlaveKeepAliveIntervalUs uint32
	// SlaveAckTimeoutUs is how long the slave waits for an
	// Acknowledge before reverting to RESET.
	SlaveAckTimeoutUs uint32
	// MasterCommunicationTimeoutUs is how long the master waits for
	// any valid frame before reverting to RESET.
	MasterCommunicationTimeoutUs uint32

	// MaxMessageSize sizes each receive buffer; must be at least as
	// large as the largest frame the peer sends.
	MaxMessageSize int
}

// DefaultSettings returns settings matching ImcSettings.hpp's defaults
// (100ms handshake/keep-alive period, 300ms ack/communication timeout).
func DefaultSettings(role Role) Settings {
	return Settings{
		Role:                         role,
		SlaveHandshakeIntervalUs:     100_000,
		SlaveKeepAliveIntervalUs:     100_000,
		SlaveAckTimeoutUs:            300_000,
		MasterCommunicationTimeoutUs: 300_000,
		MaxMessageSize:               HeaderSize + MaxPayloadSize + CRCSize,
	}
}
