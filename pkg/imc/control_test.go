package imc

import "testing"

type recordedSend struct {
	id      uint8
	payload []byte
}

func recorder() (sendFunc, *[]recordedSend) {
	var sent []recordedSend
	return func(id uint8, payload []byte) bool {
		sent = append(sent, recordedSend{id, payload})
		return true
	}, &sent
}

func testSettings() Settings {
	s := DefaultSettings(RoleSlave)
	s.SlaveHandshakeIntervalUs = 100
	s.SlaveKeepAliveIntervalUs = 100
	s.SlaveAckTimeoutUs = 300
	s.MasterCommunicationTimeoutUs = 300
	return s
}

func TestSlaveHandshakeThenKeepAlive(t *testing.T) {
	send, sent := recorder()
	settings := testSettings()
	slave := NewSlaveControl(settings)

	slave.updateStatus(send)
	if len(*sent) != 1 || (*sent)[0].id != IDHandshake {
		t.Fatalf("expected a Handshake to be sent first, got %+v", *sent)
	}
	slave.onMessageSent()

	ack := EncodeAck(AckPayload{AckID: IDHandshake, AckSequence: 0})
	if ok := slave.dispatchControlMessage(send, IDAcknowledge, 0, uint8(len(ack)), ack); !ok {
		t.Fatal("dispatchControlMessage(Acknowledge) should accept a well-formed Ack")
	}
	if !slave.isEstablished() {
		t.Fatal("slave should be established after receiving a Handshake Acknowledge")
	}

	slave.updateTimers(settings.SlaveKeepAliveIntervalUs)
	slave.updateStatus(send)
	if len(*sent) != 2 || (*sent)[1].id != IDKeepAlive {
		t.Fatalf("expected a KeepAlive once established and the keep-alive interval elapses, got %+v", *sent)
	}
}

func TestSlaveRevertsToResetOnAckTimeout(t *testing.T) {
	send, _ := recorder()
	settings := testSettings()
	slave := NewSlaveControl(settings)

	ack := EncodeAck(AckPayload{AckID: IDHandshake, AckSequence: 0})
	slave.dispatchControlMessage(send, IDAcknowledge, 0, uint8(len(ack)), ack)
	if !slave.isEstablished() {
		t.Fatal("setup: slave should be established after the Handshake Ack")
	}

	slave.updateTimers(settings.SlaveAckTimeoutUs)
	slave.updateStatus(send)
	if slave.isEstablished() {
		t.Fatal("slave should revert to RESET once SlaveAckTimeoutUs elapses without a KeepAlive Ack")
	}
}

func TestMasterEstablishesOnHandshake(t *testing.T) {
	send, sent := recorder()
	settings := testSettings()
	master := NewMasterControl(settings)

	ok := master.dispatchControlMessage(send, IDHandshake, 7, 0, nil)
	if !ok {
		t.Fatal("dispatchControlMessage(Handshake) should succeed for a zero-size Handshake")
	}
	if !master.isEstablished() {
		t.Fatal("master should be established after a valid Handshake")
	}
	if len(*sent) != 1 || (*sent)[0].id != IDAcknowledge {
		t.Fatalf("expected master to Acknowledge the Handshake, got %+v", *sent)
	}
	ack := DecodeAck((*sent)[0].payload)
	if ack.AckID != IDHandshake || ack.AckSequence != 7 {
		t.Fatalf("Acknowledge payload = %+v, want AckID=Handshake AckSequence=7", ack)
	}
}

func TestMasterTimesOutWithoutTraffic(t *testing.T) {
	send, _ := recorder()
	settings := testSettings()
	master := NewMasterControl(settings)

	master.dispatchControlMessage(send, IDHandshake, 0, 0, nil)
	if !master.isEstablished() {
		t.Fatal("setup: master should be established after the Handshake")
	}

	master.updateTimers(settings.MasterCommunicationTimeoutUs)
	master.updateStatus(send)
	if master.isEstablished() {
		t.Fatal("master should revert to RESET once MasterCommunicationTimeoutUs elapses with no traffic")
	}

	master.dispatchControlMessage(send, IDHandshake, 0, 0, nil)
	master.updateTimers(settings.MasterCommunicationTimeoutUs - 1)
	master.onMessageReceived()
	master.updateTimers(1)
	master.updateStatus(send)
	if !master.isEstablished() {
		t.Fatal("a received frame resetting the timeout should keep the master established")
	}
}

func TestMasterRejectsMalformedHandshake(t *testing.T) {
	send, _ := recorder()
	master := NewMasterControl(testSettings())

	if master.dispatchControlMessage(send, IDHandshake, 0, 2, []byte{1, 2}) {
		t.Fatal("a non-zero-size Handshake payload should be rejected")
	}
	if master.isEstablished() {
		t.Fatal("a rejected Handshake must not establish the session")
	}
}
