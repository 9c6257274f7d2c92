package client

import (
	"github.com/strandmq/strand/encoding"
)

// Event is one element of the lazy event sequence Poll produces
type Event interface {
	isEvent()
}

// ConnackEvent surfaces a CONNACK observed outside the handshake
type ConnackEvent struct {
	SessionPresent bool
	ReasonCode     encoding.ReasonCode
}

// PublishEvent delivers an incoming application message. The topic name is
// already resolved through the incoming alias table.
type PublishEvent struct {
	Publish *encoding.PublishPacket
}

// PublishAcknowledgedEvent completes a QoS 1 flow (PUBACK received)
type PublishAcknowledgedEvent struct {
	PacketID   uint16
	ReasonCode encoding.ReasonCode
}

// PublishReceivedEvent reports the PUBREC leg of a QoS 2 flow. A failure
// reason code means the flow terminated without a PUBREL.
type PublishReceivedEvent struct {
	PacketID   uint16
	ReasonCode encoding.ReasonCode
}

// PublishReleasedEvent reports an incoming PUBREL (receiver side of QoS 2)
type PublishReleasedEvent struct {
	PacketID uint16
}

// PublishCompleteEvent completes a QoS 2 flow (PUBCOMP received)
type PublishCompleteEvent struct {
	PacketID   uint16
	ReasonCode encoding.ReasonCode
}

// SubackEvent reports the subscription results for a SUBSCRIBE
type SubackEvent struct {
	PacketID    uint16
	ReasonCodes []encoding.ReasonCode
}

// UnsubackEvent reports the results for an UNSUBSCRIBE
type UnsubackEvent struct {
	PacketID    uint16
	ReasonCodes []encoding.ReasonCode
}

// PingrespEvent answers a PINGREQ
type PingrespEvent struct{}

// DisconnectEvent reports the peer's DISCONNECT; the connection is closed
// when it surfaces
type DisconnectEvent struct {
	ReasonCode   encoding.ReasonCode
	ReasonString string
}

func (ConnackEvent) isEvent()             {}
func (PublishEvent) isEvent()             {}
func (PublishAcknowledgedEvent) isEvent() {}
func (PublishReceivedEvent) isEvent()     {}
func (PublishReleasedEvent) isEvent()     {}
func (PublishCompleteEvent) isEvent()     {}
func (SubackEvent) isEvent()              {}
func (UnsubackEvent) isEvent()            {}
func (PingrespEvent) isEvent()            {}
func (DisconnectEvent) isEvent()          {}
