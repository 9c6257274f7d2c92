package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandmq/strand/encoding"
	"github.com/strandmq/strand/qos"
)

func qos1Publish(id uint16) *encoding.PublishPacket {
	return &encoding.PublishPacket{
		FixedHeader: encoding.FixedHeader{QoS: encoding.QoS1},
		TopicName:   "a/b",
		PacketID:    id,
		Payload:     []byte("payload"),
	}
}

func qos2Publish(id uint16) *encoding.PublishPacket {
	return &encoding.PublishPacket{
		FixedHeader: encoding.FixedHeader{QoS: encoding.QoS2},
		TopicName:   "a/b",
		PacketID:    id,
		Payload:     []byte("payload"),
	}
}

func TestAllocatePacketIDSkipsZero(t *testing.T) {
	s := New("c1")
	s.SeedPacketID(65535)

	id, err := s.AllocatePacketID()
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), id)

	// Counter wraps past zero
	id, err = s.AllocatePacketID()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)
}

func TestSeedPacketIDZero(t *testing.T) {
	s := New("c1")
	s.SeedPacketID(0x10000) // truncates to 0, which is reserved

	id, err := s.AllocatePacketID()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)
}

func TestAllocatePacketIDSkipsInflight(t *testing.T) {
	s := New("c1")
	s.SeedPacketID(10)

	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(10)))
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(11)))

	id, err := s.AllocatePacketID()
	require.NoError(t, err)
	assert.Equal(t, uint16(12), id)
}

func TestAllocatePacketIDReceiveMaximum(t *testing.T) {
	s := New("c1")
	s.ReceiveMaximum = 2
	s.SeedPacketID(1)

	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(1)))
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(2)))

	_, err := s.AllocatePacketID()
	assert.ErrorIs(t, err, ErrReceiveMaximumExceeded)

	// Acknowledging one frees a slot
	_, err = s.TransitionOutgoing(1, encoding.PUBACK, encoding.ReasonSuccess)
	require.NoError(t, err)

	id, err := s.AllocatePacketID()
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestTrackOutgoingPublishDuplicate(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(5)))
	assert.ErrorIs(t, s.TrackOutgoingPublish(qos1Publish(5)), ErrPacketIDInUse)
}

func TestTrackOutgoingPublishQoS0Rejected(t *testing.T) {
	s := New("c1")
	pkt := &encoding.PublishPacket{FixedHeader: encoding.FixedHeader{QoS: encoding.QoS0}, TopicName: "a"}
	assert.ErrorIs(t, s.TrackOutgoingPublish(pkt), qos.ErrInvalidQoS)
}

func TestTrackOutgoingPublishCopiesPayload(t *testing.T) {
	s := New("c1")
	payload := []byte("mutate me")
	pkt := qos1Publish(3)
	pkt.Payload = payload
	require.NoError(t, s.TrackOutgoingPublish(pkt))

	payload[0] = 'X'

	record, ok := s.OutgoingRecordFor(3)
	require.True(t, ok)
	assert.Equal(t, []byte("mutate me"), record.Publish.Payload)
}

func TestTransitionOutgoingQoS1(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(7)))

	outcome, err := s.TransitionOutgoing(7, encoding.PUBACK, encoding.ReasonSuccess)
	require.NoError(t, err)
	assert.Equal(t, qos.OutcomeAcknowledged, outcome)
	assert.Equal(t, 0, s.InflightCount())

	// Identifier is back in the free pool
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(7)))
}

func TestTransitionOutgoingQoS2Flow(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos2Publish(7)))

	outcome, err := s.TransitionOutgoing(7, encoding.PUBREC, encoding.ReasonSuccess)
	require.NoError(t, err)
	assert.Equal(t, qos.OutcomeSendPubrel, outcome)
	assert.Equal(t, 1, s.InflightCount())

	record, _ := s.OutgoingRecordFor(7)
	assert.Equal(t, qos.StatePubCompPending, record.State)

	outcome, err = s.TransitionOutgoing(7, encoding.PUBCOMP, encoding.ReasonSuccess)
	require.NoError(t, err)
	assert.Equal(t, qos.OutcomeComplete, outcome)
	assert.Equal(t, 0, s.InflightCount())
}

func TestTransitionOutgoingUnknownID(t *testing.T) {
	s := New("c1")
	_, err := s.TransitionOutgoing(99, encoding.PUBACK, encoding.ReasonSuccess)
	assert.ErrorIs(t, err, ErrPacketIDNotFound)
}

func TestTransitionOutgoingFailureReasonTerminates(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos2Publish(4)))

	outcome, err := s.TransitionOutgoing(4, encoding.PUBREC, encoding.ReasonQuotaExceeded)
	require.NoError(t, err)
	assert.Equal(t, qos.OutcomeFailed, outcome)
	assert.Equal(t, 0, s.InflightCount())
}

func TestPendingReissueAscendingOrder(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(300)))
	require.NoError(t, s.TrackOutgoingPublish(qos2Publish(5)))
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(42)))

	records := s.PendingReissue()
	require.Len(t, records, 3)
	assert.Equal(t, uint16(5), records[0].PacketID)
	assert.Equal(t, uint16(42), records[1].PacketID)
	assert.Equal(t, uint16(300), records[2].PacketID)
}

func TestIncomingQoS2Tracking(t *testing.T) {
	s := New("c1")

	assert.False(t, s.IncomingTracked(9))
	s.TrackIncoming(9)
	assert.True(t, s.IncomingTracked(9))
	assert.Equal(t, 1, s.IncomingCount())

	assert.True(t, s.ClearIncoming(9))
	assert.False(t, s.IncomingTracked(9))

	// Clearing an untracked identifier is not an error
	assert.False(t, s.ClearIncoming(9))
}

func TestSubscriptionTracking(t *testing.T) {
	s := New("c1")

	s.TrackSubscription(40, 2)

	count, ok := s.AckSubscription(40)
	require.True(t, ok)
	assert.Equal(t, 2, count)

	// Acknowledged once; a second ack has no matching request
	_, ok = s.AckSubscription(40)
	assert.False(t, ok)

	_, ok = s.AckSubscription(41)
	assert.False(t, ok)
}

func TestSubscriptionTrackingClearedOnReconnect(t *testing.T) {
	s := New("c1")
	s.TrackSubscription(40, 1)

	connack := &encoding.ConnackPacket{SessionPresent: true, ReasonCode: encoding.ReasonSuccess}
	s.ApplyConnack(connack, 0, 0)

	_, ok := s.AckSubscription(40)
	assert.False(t, ok)
}

func TestSubscriptionTrackingClearedByClear(t *testing.T) {
	s := New("c1")
	s.TrackSubscription(7, 3)

	s.Clear()

	_, ok := s.AckSubscription(7)
	assert.False(t, ok)
}

func TestApplyConnackCapturesParameters(t *testing.T) {
	s := New("")

	connack := &encoding.ConnackPacket{SessionPresent: false, ReasonCode: encoding.ReasonSuccess}
	connack.Properties.Add(encoding.PropReceiveMaximum, uint16(12))
	connack.Properties.Add(encoding.PropMaximumPacketSize, uint32(4096))
	connack.Properties.Add(encoding.PropMaximumQoS, byte(1))
	connack.Properties.Add(encoding.PropRetainAvailable, byte(0))
	connack.Properties.Add(encoding.PropServerKeepAlive, uint16(25))
	connack.Properties.Add(encoding.PropAssignedClientIdentifier, "srv-42")
	connack.Properties.Add(encoding.PropTopicAliasMaximum, uint16(8))
	connack.Properties.Add(encoding.PropSessionExpiryInterval, uint32(1000))

	s.ApplyConnack(connack, 300, 16)

	assert.Equal(t, uint16(12), s.ReceiveMaximum)
	assert.Equal(t, uint32(4096), s.MaximumPacketSize)
	assert.Equal(t, encoding.QoS1, s.MaximumQoS)
	assert.False(t, s.RetainAvailable)
	assert.Equal(t, uint16(25), s.ServerKeepAlive)
	assert.Equal(t, uint32(1000), s.SessionExpiryInterval)
	assert.Equal(t, "srv-42", s.AssignedClientID)
	assert.Equal(t, "srv-42", s.ClientID)
	assert.Equal(t, uint16(8), s.OutgoingAliases().Maximum())
	assert.Equal(t, uint16(16), s.IncomingAliases().Maximum())
}

func TestApplyConnackDefaults(t *testing.T) {
	s := New("keep-me")
	connack := &encoding.ConnackPacket{SessionPresent: true, ReasonCode: encoding.ReasonSuccess}

	s.ApplyConnack(connack, 77, 0)

	assert.Equal(t, DefaultReceiveMaximum, s.ReceiveMaximum)
	assert.Equal(t, uint32(0), s.MaximumPacketSize)
	assert.Equal(t, encoding.QoS2, s.MaximumQoS)
	assert.True(t, s.RetainAvailable)
	assert.Equal(t, uint16(0), s.ServerKeepAlive)
	assert.Equal(t, uint32(77), s.SessionExpiryInterval)
	assert.Equal(t, "keep-me", s.ClientID)
}

func TestApplyConnackNoSessionDiscardsInflight(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(3)))
	s.TrackIncoming(4)

	connack := &encoding.ConnackPacket{SessionPresent: false, ReasonCode: encoding.ReasonSuccess}
	s.ApplyConnack(connack, 0, 0)

	assert.Equal(t, 0, s.InflightCount())
	assert.Equal(t, 0, s.IncomingCount())
}

func TestApplyConnackSessionPresentKeepsInflight(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(3)))

	connack := &encoding.ConnackPacket{SessionPresent: true, ReasonCode: encoding.ReasonSuccess}
	s.ApplyConnack(connack, 0, 0)

	assert.Equal(t, 1, s.InflightCount())
}

func TestClear(t *testing.T) {
	s := New("c1")
	require.NoError(t, s.TrackOutgoingPublish(qos1Publish(3)))
	s.TrackIncoming(4)

	s.Clear()

	assert.Equal(t, 0, s.InflightCount())
	assert.Equal(t, 0, s.IncomingCount())
}

// The multiset of in-flight identifiers never holds duplicates, across a
// mixed workload of allocations and acknowledgments
func TestPacketIDUniquenessInvariant(t *testing.T) {
	s := New("c1")
	s.SeedPacketID(65530) // force wraparound during the run

	live := make(map[uint16]bool)
	for i := 0; i < 200; i++ {
		id, err := s.AllocatePacketID()
		require.NoError(t, err)
		require.False(t, live[id], "identifier %d allocated twice", id)

		require.NoError(t, s.TrackOutgoingPublish(qos1Publish(id)))
		live[id] = true

		// Acknowledge every third message to recycle identifiers
		if i%3 == 0 {
			_, err := s.TransitionOutgoing(id, encoding.PUBACK, encoding.ReasonSuccess)
			require.NoError(t, err)
			delete(live, id)
		}
	}
}
