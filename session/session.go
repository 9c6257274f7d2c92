// Package session owns the per-client-identifier state that survives
// reconnects: the packet-identifier allocator, the in-flight delivery
// tables, topic-alias mappings and the parameters negotiated at CONNACK.
// A session may be handed from a dead engine to a new one, but at most one
// live engine references it at a time.
package session

import (
	"sync"

	"github.com/strandmq/strand/encoding"
	"github.com/strandmq/strand/qos"
)

// Defaults before CONNACK negotiation, per the MQTT 5.0 absent-property rules
const (
	DefaultReceiveMaximum = uint16(65535)
)

// OutgoingRecord is one in-flight outgoing QoS 1 or QoS 2 delivery. The
// session owns the packet, payload included, so the message can be reissued
// after a reconnect.
type OutgoingRecord struct {
	PacketID uint16
	State    qos.OutgoingState
	Publish  *encoding.PublishPacket
}

// Session is the persistent client session
type Session struct {
	mu sync.RWMutex

	ClientID         string
	AssignedClientID string
	CleanStart       bool

	// Parameters negotiated at CONNACK
	ServerKeepAlive                 uint16
	SessionExpiryInterval           uint32
	MaximumPacketSize               uint32 // 0 means the server declared no limit
	ReceiveMaximum                  uint16
	MaximumQoS                      encoding.QoS
	RetainAvailable                 bool
	WildcardSubscriptionAvailable   bool
	SubscriptionIdentifierAvailable bool
	SharedSubscriptionAvailable     bool

	outgoing        map[uint16]*OutgoingRecord
	incoming        map[uint16]struct{}
	outgoingAliases *AliasTable // topic name → alias, bounded by the server's maximum
	incomingAliases *AliasTable // alias → topic name, bounded by our advertised maximum

	// pendingSubs maps an outstanding SUBSCRIBE or UNSUBSCRIBE packet
	// identifier to its filter count, so the matching ack's reason-code
	// list can be validated. Requests do not survive a reconnect.
	pendingSubs map[uint16]int

	nextPacketID uint16
}

// New creates a fresh session. The packet-identifier counter starts at 1
// until seeded from the engine's RNG.
func New(clientID string) *Session {
	return &Session{
		ClientID:                        clientID,
		ReceiveMaximum:                  DefaultReceiveMaximum,
		MaximumQoS:                      encoding.QoS2,
		RetainAvailable:                 true,
		WildcardSubscriptionAvailable:   true,
		SubscriptionIdentifierAvailable: true,
		SharedSubscriptionAvailable:     true,
		outgoing:                        make(map[uint16]*OutgoingRecord),
		incoming:                        make(map[uint16]struct{}),
		outgoingAliases:                 NewAliasTable(0),
		incomingAliases:                 NewAliasTable(0),
		pendingSubs:                     make(map[uint16]int),
		nextPacketID:                    1,
	}
}

// SeedPacketID seeds the identifier counter from the engine's RNG. Zero is
// reserved and skipped.
func (s *Session) SeedPacketID(seed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPacketID = uint16(seed)
	if s.nextPacketID == 0 {
		s.nextPacketID = 1
	}
}

// AllocatePacketID returns the next free identifier, skipping 0 and every
// identifier currently in flight. It fails when the in-flight table has
// reached the server's receive maximum.
func (s *Session) AllocatePacketID() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.outgoing) >= int(s.ReceiveMaximum) {
		return 0, ErrReceiveMaximumExceeded
	}

	for {
		id := s.nextPacketID
		s.nextPacketID++
		if s.nextPacketID == 0 {
			s.nextPacketID = 1
		}
		if id == 0 {
			continue
		}
		if _, inFlight := s.outgoing[id]; !inFlight {
			return id, nil
		}
	}
}

// TrackOutgoingPublish records an in-flight QoS 1 or QoS 2 PUBLISH. The
// payload is copied into session-owned storage so reissue stays possible
// after the caller's buffer is reused.
func (s *Session) TrackOutgoingPublish(pkt *encoding.PublishPacket) error {
	state, err := qos.InitialState(pkt.FixedHeader.QoS)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outgoing[pkt.PacketID]; exists {
		return ErrPacketIDInUse
	}
	if len(s.outgoing) >= int(s.ReceiveMaximum) {
		return ErrReceiveMaximumExceeded
	}

	owned := *pkt
	if pkt.Payload != nil {
		owned.Payload = make([]byte, len(pkt.Payload))
		copy(owned.Payload, pkt.Payload)
	}

	s.outgoing[pkt.PacketID] = &OutgoingRecord{
		PacketID: pkt.PacketID,
		State:    state,
		Publish:  &owned,
	}
	return nil
}

// TransitionOutgoing advances the delivery state machine for an identifier
// on receipt of PUBACK, PUBREC or PUBCOMP. Terminal outcomes remove the
// record and return the identifier to the free pool.
func (s *Session) TransitionOutgoing(packetID uint16, packetType encoding.PacketType, reason encoding.ReasonCode) (qos.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.outgoing[packetID]
	if !ok {
		return qos.OutcomeNone, ErrPacketIDNotFound
	}

	next, outcome, err := qos.Transition(record.State, packetType, reason)
	if err != nil {
		return qos.OutcomeNone, err
	}

	record.State = next
	if next == qos.StateFree {
		delete(s.outgoing, packetID)
	}
	return outcome, nil
}

// OutgoingRecordFor returns the in-flight record for an identifier
func (s *Session) OutgoingRecordFor(packetID uint16) (*OutgoingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.outgoing[packetID]
	return record, ok
}

// InflightCount returns the number of outgoing in-flight records
func (s *Session) InflightCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outgoing)
}

// PendingReissue returns the in-flight records in ascending identifier
// order, the order they must be re-emitted in after a resume
func (s *Session) PendingReissue() []*OutgoingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint16, 0, len(s.outgoing))
	for id := range s.outgoing {
		ids = append(ids, id)
	}
	qos.SortIdentifiers(ids)

	records := make([]*OutgoingRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.outgoing[id])
	}
	return records
}

// IncomingTracked reports whether a QoS 2 identifier is in the Received
// state (PUBREC sent, PUBREL awaited)
func (s *Session) IncomingTracked(packetID uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.incoming[packetID]
	return ok
}

// TrackIncoming enters a received QoS 2 identifier into the incoming
// in-flight set
func (s *Session) TrackIncoming(packetID uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incoming[packetID] = struct{}{}
}

// ClearIncoming removes an identifier on PUBREL. It returns false when the
// identifier was not tracked; the engine still answers with a PUBCOMP
// carrying PacketIdentifierNotFound.
func (s *Session) ClearIncoming(packetID uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.incoming[packetID]
	delete(s.incoming, packetID)
	return ok
}

// IncomingCount returns the number of QoS 2 identifiers awaiting PUBREL
func (s *Session) IncomingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incoming)
}

// TrackSubscription records the filter count of an outstanding SUBSCRIBE or
// UNSUBSCRIBE
func (s *Session) TrackSubscription(packetID uint16, filterCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSubs[packetID] = filterCount
}

// AckSubscription removes the outstanding request and returns its filter
// count. A SUBACK or UNSUBACK whose reason-code count disagrees with it is
// a protocol error, as is an ack with no matching request.
func (s *Session) AckSubscription(packetID uint16) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, ok := s.pendingSubs[packetID]
	delete(s.pendingSubs, packetID)
	return count, ok
}

// OutgoingAliases returns the topic name → alias table for messages we send
func (s *Session) OutgoingAliases() *AliasTable {
	return s.outgoingAliases
}

// IncomingAliases returns the alias → topic name table for messages we receive
func (s *Session) IncomingAliases() *AliasTable {
	return s.incomingAliases
}

// ApplyConnack merges the server-declared parameters into the session.
// clientAliasMaximum is the topic-alias maximum this client advertised in
// CONNECT; it bounds the incoming table. Alias mappings never survive a
// reconnect, so both tables reset here.
func (s *Session) ApplyConnack(pkt *encoding.ConnackPacket, requestedExpiry uint32, clientAliasMaximum uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	props := &pkt.Properties

	s.ReceiveMaximum = props.Uint16(encoding.PropReceiveMaximum, DefaultReceiveMaximum)
	s.MaximumPacketSize = props.Uint32(encoding.PropMaximumPacketSize, 0)
	s.MaximumQoS = encoding.QoS(props.Byte(encoding.PropMaximumQoS, byte(encoding.QoS2)))
	s.RetainAvailable = props.Byte(encoding.PropRetainAvailable, 1) == 1
	s.WildcardSubscriptionAvailable = props.Byte(encoding.PropWildcardSubscriptionAvailable, 1) == 1
	s.SubscriptionIdentifierAvailable = props.Byte(encoding.PropSubscriptionIdentifierAvailable, 1) == 1
	s.SharedSubscriptionAvailable = props.Byte(encoding.PropSharedSubscriptionAvailable, 1) == 1
	s.ServerKeepAlive = props.Uint16(encoding.PropServerKeepAlive, 0)
	s.SessionExpiryInterval = props.Uint32(encoding.PropSessionExpiryInterval, requestedExpiry)

	if assigned := props.String(encoding.PropAssignedClientIdentifier); assigned != "" {
		s.AssignedClientID = assigned
		if s.ClientID == "" {
			s.ClientID = assigned
		}
	}

	serverAliasMaximum := props.Uint16(encoding.PropTopicAliasMaximum, 0)
	s.outgoingAliases.Reset(serverAliasMaximum)
	s.incomingAliases.Reset(clientAliasMaximum)

	// Subscribe requests are per-connection: their acks died with the link
	s.pendingSubs = make(map[uint16]int)

	// The server kept no session: our in-flight state is void
	if !pkt.SessionPresent {
		s.outgoing = make(map[uint16]*OutgoingRecord)
		s.incoming = make(map[uint16]struct{})
	}
}

// Clear discards all delivery state, as a clean start does
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outgoing = make(map[uint16]*OutgoingRecord)
	s.incoming = make(map[uint16]struct{})
	s.outgoingAliases.Reset(s.outgoingAliases.Maximum())
	s.incomingAliases.Reset(s.incomingAliases.Maximum())
	s.pendingSubs = make(map[uint16]int)
}
