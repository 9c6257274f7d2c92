package session

import (
	"bytes"

	"github.com/fxamacker/cbor/v2"

	"github.com/strandmq/strand/encoding"
	"github.com/strandmq/strand/qos"
)

// The snapshot is an opaque byte sequence: cbor around wire-encoded
// in-flight packets. Callers persist and restore it verbatim; no
// compatibility across library versions is promised.

const snapshotVersion = 1

// recordData is the serializable form of an in-flight record. The PUBLISH
// is stored wire-encoded (DUP clear); restore runs it back through the
// codec, which keeps the snapshot honest about what would be retransmitted.
type recordData struct {
	PacketID uint16
	State    byte
	Packet   []byte
}

// snapshotData is the serializable form of a session
type snapshotData struct {
	Version          byte
	ClientID         string
	AssignedClientID string
	CleanStart       bool

	ServerKeepAlive                 uint16
	SessionExpiryInterval           uint32
	MaximumPacketSize               uint32
	ReceiveMaximum                  uint16
	MaximumQoS                      byte
	RetainAvailable                 bool
	WildcardSubscriptionAvailable   bool
	SubscriptionIdentifierAvailable bool
	SharedSubscriptionAvailable     bool

	NextPacketID uint16

	Outgoing []recordData
	Incoming []uint16

	OutgoingAliasMax uint16
	OutgoingAliases  map[uint16]string
	IncomingAliasMax uint16
	IncomingAliases  map[uint16]string
}

// Snapshot serializes the session for caller-driven persistence across
// process restarts
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := snapshotData{
		Version:                         snapshotVersion,
		ClientID:                        s.ClientID,
		AssignedClientID:                s.AssignedClientID,
		CleanStart:                      s.CleanStart,
		ServerKeepAlive:                 s.ServerKeepAlive,
		SessionExpiryInterval:           s.SessionExpiryInterval,
		MaximumPacketSize:               s.MaximumPacketSize,
		ReceiveMaximum:                  s.ReceiveMaximum,
		MaximumQoS:                      byte(s.MaximumQoS),
		RetainAvailable:                 s.RetainAvailable,
		WildcardSubscriptionAvailable:   s.WildcardSubscriptionAvailable,
		SubscriptionIdentifierAvailable: s.SubscriptionIdentifierAvailable,
		SharedSubscriptionAvailable:     s.SharedSubscriptionAvailable,
		NextPacketID:                    s.nextPacketID,
		OutgoingAliasMax:                s.outgoingAliases.Maximum(),
		OutgoingAliases:                 s.outgoingAliases.snapshotMap(),
		IncomingAliasMax:                s.incomingAliases.Maximum(),
		IncomingAliases:                 s.incomingAliases.snapshotMap(),
	}

	ids := make([]uint16, 0, len(s.outgoing))
	for id := range s.outgoing {
		ids = append(ids, id)
	}
	qos.SortIdentifiers(ids)

	data.Outgoing = make([]recordData, 0, len(ids))
	for _, id := range ids {
		record := s.outgoing[id]
		wire, err := encoding.EncodeToBytes(record.Publish)
		if err != nil {
			return nil, err
		}
		data.Outgoing = append(data.Outgoing, recordData{
			PacketID: id,
			State:    byte(record.State),
			Packet:   wire,
		})
	}

	data.Incoming = make([]uint16, 0, len(s.incoming))
	for id := range s.incoming {
		data.Incoming = append(data.Incoming, id)
	}
	qos.SortIdentifiers(data.Incoming)

	return cbor.Marshal(data)
}

// Restore rebuilds a session from snapshot bytes
func Restore(snapshot []byte) (*Session, error) {
	var data snapshotData
	if err := cbor.Unmarshal(snapshot, &data); err != nil {
		return nil, ErrInvalidSnapshot
	}
	if data.Version != snapshotVersion {
		return nil, ErrInvalidSnapshot
	}

	s := New(data.ClientID)
	s.AssignedClientID = data.AssignedClientID
	s.CleanStart = data.CleanStart
	s.ServerKeepAlive = data.ServerKeepAlive
	s.SessionExpiryInterval = data.SessionExpiryInterval
	s.MaximumPacketSize = data.MaximumPacketSize
	s.ReceiveMaximum = data.ReceiveMaximum
	s.MaximumQoS = encoding.QoS(data.MaximumQoS)
	s.RetainAvailable = data.RetainAvailable
	s.WildcardSubscriptionAvailable = data.WildcardSubscriptionAvailable
	s.SubscriptionIdentifierAvailable = data.SubscriptionIdentifierAvailable
	s.SharedSubscriptionAvailable = data.SharedSubscriptionAvailable
	s.nextPacketID = data.NextPacketID
	if s.nextPacketID == 0 {
		s.nextPacketID = 1
	}

	for _, rec := range data.Outgoing {
		pkt, err := decodePublishWire(rec.Packet)
		if err != nil {
			return nil, ErrInvalidSnapshot
		}
		s.outgoing[rec.PacketID] = &OutgoingRecord{
			PacketID: rec.PacketID,
			State:    qos.OutgoingState(rec.State),
			Publish:  pkt,
		}
	}

	for _, id := range data.Incoming {
		s.incoming[id] = struct{}{}
	}

	s.outgoingAliases.restoreMap(data.OutgoingAliasMax, data.OutgoingAliases)
	s.incomingAliases.restoreMap(data.IncomingAliasMax, data.IncomingAliases)

	return s, nil
}

// decodePublishWire parses a wire-encoded PUBLISH back into its packet form
func decodePublishWire(wire []byte) (*encoding.PublishPacket, error) {
	r := bytes.NewReader(wire)
	fh, err := encoding.ParseFixedHeader(r)
	if err != nil {
		return nil, err
	}
	if fh.Type != encoding.PUBLISH {
		return nil, encoding.ErrInvalidType
	}
	br := encoding.NewBodyReader(r, fh.RemainingLength, nil)
	return encoding.ParsePublishPacket(br, fh)
}
