package qos

import (
	"github.com/strandmq/strand/encoding"
)

// IncomingAction describes how the engine handles a received PUBLISH
type IncomingAction struct {
	// Deliver is true when the message surfaces to the caller. Duplicate
	// QoS 2 identifiers are suppressed for exactly-once delivery.
	Deliver bool

	// Respond names the acknowledgment to send (PUBACK, PUBREC, or 0 for QoS 0)
	Respond encoding.PacketType

	// Track is true when the identifier enters the incoming in-flight set
	// (QoS 2 Received state)
	Track bool
}

// OnIncomingPublish decides delivery and acknowledgment for a received
// PUBLISH. alreadyReceived reports whether the identifier is in the incoming
// in-flight set (a QoS 2 message awaiting PUBREL).
//
// QoS 1 delivers and acknowledges unconditionally: the sender frees the
// identifier on PUBACK, so a repeated identifier is a new message. QoS 2
// deduplicates by identifier; a duplicate is not re-delivered but the PUBREC
// is re-sent.
func OnIncomingPublish(q encoding.QoS, alreadyReceived bool) (IncomingAction, error) {
	switch q {
	case encoding.QoS0:
		return IncomingAction{Deliver: true}, nil
	case encoding.QoS1:
		return IncomingAction{Deliver: true, Respond: encoding.PUBACK}, nil
	case encoding.QoS2:
		if alreadyReceived {
			return IncomingAction{Deliver: false, Respond: encoding.PUBREC, Track: false}, nil
		}
		return IncomingAction{Deliver: true, Respond: encoding.PUBREC, Track: true}, nil
	default:
		return IncomingAction{}, ErrInvalidQoS
	}
}

// OnIncomingPubrel decides the PUBCOMP reason for a received PUBREL. A
// PUBREL for an identifier not in the Received state still gets a PUBCOMP,
// carrying PacketIdentifierNotFound, and is not an error.
func OnIncomingPubrel(tracked bool) encoding.ReasonCode {
	if tracked {
		return encoding.ReasonSuccess
	}
	return encoding.ReasonPacketIdentifierNotFound
}
