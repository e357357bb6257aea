// Package imc implements the inter-MCU communication link: framing,
// CRC validation, session establishment, and keep-alive liveness over a
// byte-stream UART.
package imc

import "encoding/binary"

// HeaderSize is the size in bytes of the fixed frame header
// (id, size, sequence).
const HeaderSize = 4

// CRCSize is the size in bytes of the trailing frame CRC.
const CRCSize = 4

// MaxPayloadSize is the largest payload a frame may carry.
const MaxPayloadSize = 244

// recipientMask isolates the high 2 bits of a message id.
const recipientMask = 0xC0

// RecipientControl is the reserved recipient number for link-layer
// control messages.
const RecipientControl = 0

// Control message ids (low 6 bits of id, recipient 0).
const (
	IDHandshake    = 0x01
	IDAcknowledge  = 0x02
	IDReceiveError = 0x03
	IDKeepAlive    = 0x04
)

// MakeID packs a recipient number (0..3) and a message number (0..63)
// into a frame id.
func MakeID(recipient, message uint8) uint8 {
	return (recipient << 6) | (message & 0x3F)
}

// RecipientNumber extracts the recipient number (0..3) from a frame id.
func RecipientNumber(id uint8) uint8 {
	return (id & recipientMask) >> 6
}

// PaddedSize returns the number of payload bytes a frame reserves for a
// logical payload of size s: 4 if s <= 4, else s rounded up to the next
// multiple of 4. This keeps the CRC'd region 4-byte aligned.
func PaddedSize(s uint8) uint8 {
	if s <= 4 {
		return 4
	}
	return s + 3 - ((s + 3) % 4)
}

// AckPayload is the Acknowledge control message payload.
type AckPayload struct {
	AckID       uint8
	_pad        uint8
	AckSequence uint16
}

// EncodeAck serializes an AckPayload to its 4-byte wire form.
func EncodeAck(p AckPayload) []byte {
	buf := make([]byte, 4)
	buf[0] = p.AckID
	buf[1] = 0
	binary.LittleEndian.PutUint16(buf[2:4], p.AckSequence)
	return buf
}

// DecodeAck parses a 4-byte Acknowledge payload.
func DecodeAck(b []byte) AckPayload {
	return AckPayload{
		AckID:       b[0],
		AckSequence: binary.LittleEndian.Uint16(b[2:4]),
	}
}

// ReceiveErrorPayload is the ReceiveError control message payload.
type ReceiveErrorPayload struct {
	LastOkSequence uint16
	_pad           uint16
}

// EncodeReceiveError serializes a ReceiveErrorPayload to its 4-byte wire form.
func EncodeReceiveError(p ReceiveErrorPayload) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], p.LastOkSequence)
	return buf
}

// DecodeReceiveError parses a 4-byte ReceiveError payload.
func DecodeReceiveError(b []byte) ReceiveErrorPayload {
	return ReceiveErrorPayload{LastOkSequence: binary.LittleEndian.Uint16(b[0:2])}
}

// BuildFrame assembles a complete wire frame (header + padded payload +
// CRC placeholder) given an id, sequence number, and unpadded payload.
// The CRC field is left zeroed; callers compute and fill it via
// Module's CRC engine so the frame's CRC always reflects the header and
// payload actually sent.
func BuildFrame(id uint8, sequence uint16, payload []byte) []byte {
	size := uint8(len(payload))
	padded := PaddedSize(size)
	frame := make([]byte, HeaderSize+int(padded)+CRCSize)
	frame[0] = id
	frame[1] = size
	binary.LittleEndian.PutUint16(frame[2:4], sequence)
	copy(frame[HeaderSize:], payload)
	return frame
}

// FrameSequence reads the sequence field out of a raw frame buffer.
func FrameSequence(frame []byte) uint16 {
	return binary.LittleEndian.Uint16(frame[2:4])
}

// FrameID reads the id field out of a raw frame buffer.
func FrameID(frame []byte) uint8 {
	return frame[0]
}

// FrameSize reads the declared (unpadded) payload size out of a raw
// frame buffer.
func FrameSize(frame []byte) uint8 {
	return frame[1]
}

// FramePayload returns the unpadded payload slice of a raw frame buffer.
// Callers must have already validated frame.size against frame length.
func FramePayload(frame []byte) []byte {
	size := FrameSize(frame)
	return frame[HeaderSize : HeaderSize+int(size)]
}

// FrameCRC reads the trailing CRC field out of a raw frame buffer whose
// total length is len(frame).
func FrameCRC(frame []byte) uint32 {
	off := len(frame) - CRCSize
	return binary.LittleEndian.Uint32(frame[off:])
}

// PutFrameCRC writes crc into the trailing CRC field of a raw frame
// buffer.
func PutFrameCRC(frame []byte, crc uint32) {
	off := len(frame) - CRCSize
	binary.LittleEndian.PutUint32(frame[off:], crc)
}
