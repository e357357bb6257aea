// Package bridge is the demo application layer sitting on top of the
// IMC link: it republishes inbound user traffic to Redis Pub/Sub as
// CBOR envelopes and drains a Redis list of outbound commands back
// into the link. It is the direct analogue of pkg/service's
// Redis⇄UART bridging in the teacher, generalized from nRF52/BLE
// message types to the three generic IMC user recipients.
package bridge

import (
	"fmt"
	"log"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/librescoot/imc-link/pkg/imc"
	redisclient "github.com/librescoot/imc-link/pkg/redis"
)

// Recipient numbers the bridge claims on the link, matching
// SPEC_FULL.md §4.8.
const (
	RecipientTelemetry = 1
	RecipientCommands  = 2
	RecipientEvents    = 3
)

// Redis keys the bridge publishes to and reads from.
const (
	ChannelTelemetry = "imc:telemetry"
	ChannelCommands  = "imc:commands"
	ChannelEvents    = "imc:events"
	ChannelLink      = "imc:link"
	ListOutbound     = "imc:outbound"
)

// Envelope is the bridge's own wire shape for CBOR traffic crossing
// the Redis boundary. It never appears on the IMC UART wire — see
// SPEC_FULL.md §3.
type Envelope struct {
	Recipient uint8
	ID        uint8
	Payload   []byte
}

// Bridge wires an imc.Module to Redis.
type Bridge struct {
	redis  *redisclient.Client
	module *imc.Module
	stopCh chan struct{}
}

// New constructs a Bridge over an already-connected Redis client.
func New(redis *redisclient.Client) *Bridge {
	return &Bridge{
		redis:  redis,
		stopCh: make(chan struct{}),
	}
}

// RegisterWith installs the bridge's recipient callbacks on m and
// remembers m for WatchOutbound/PublishLiveness, mirroring
// Service.SetUSock's role in the teacher.
func (b *Bridge) RegisterWith(m *imc.Module) {
	b.module = m
	m.RegisterRecipient(RecipientTelemetry, b.handleInbound(ChannelTelemetry))
	m.RegisterRecipient(RecipientCommands, b.handleInbound(ChannelCommands))
	m.RegisterRecipient(RecipientEvents, b.handleInbound(ChannelEvents))
}

// Stop ends WatchOutbound's loop.
func (b *Bridge) Stop() {
	close(b.stopCh)
}

func (b *Bridge) handleInbound(channel string) imc.Recipient {
	return func(id uint8, payload []byte) bool {
		env := Envelope{Recipient: imc.RecipientNumber(id), ID: id, Payload: payload}
		encoded, err := cbor.Marshal(env)
		if err != nil {
			log.Printf("bridge: failed to marshal CBOR envelope for id 0x%02x: %v", id, err)
			return false
		}
		if err := b.redis.Publish(channel, string(encoded)); err != nil {
			log.Printf("bridge: failed to publish to %s: %v", channel, err)
			return false
		}
		return true
	}
}

// WatchOutbound blocks, draining ListOutbound with BRPOP and feeding
// each decoded envelope into Module.Send. It is the analogue of
// Service.WatchRedisCommands, generalized from a fixed command
// vocabulary to arbitrary recipient/id/payload envelopes.
func (b *Bridge) WatchOutbound() {
	log.Printf("bridge: watching outbound list %s", ListOutbound)
	for {
		select {
		case <-b.stopCh:
			log.Printf("bridge: stopping outbound watcher")
			return
		default:
		}

		result, err := b.redis.BRPop(0*time.Second, ListOutbound)
		if err != nil {
			log.Printf("bridge: error reading %s: %v", ListOutbound, err)
			time.Sleep(time.Second)
			continue
		}
		if result == nil {
			continue
		}

		var env Envelope
		if err := cbor.Unmarshal([]byte(result[1]), &env); err != nil {
			log.Printf("bridge: failed to unmarshal outbound envelope: %v", err)
			continue
		}

		messageNumber := env.ID & 0x3F
		if !b.module.Send(env.Recipient, messageNumber, env.Payload) {
			log.Printf("bridge: Send rejected for recipient %d id 0x%02x (not established or queue full)", env.Recipient, env.ID)
		}
	}
}

// PublishLiveness polls Module.IsEstablished once per interval and
// publishes each transition to ChannelLink, the way the teacher
// publishes vehicle/battery state changes.
func (b *Bridge) PublishLiveness(interval time.Duration) {
	last := false
	first := true
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			established := b.module.IsEstablished()
			if first || established != last {
				if err := b.redis.WriteAndPublishString(ChannelLink, "established", fmt.Sprintf("%t", established)); err != nil {
					log.Printf("bridge: failed to publish liveness: %v", err)
				}
				last = established
				first = false
			}
		}
	}
}
