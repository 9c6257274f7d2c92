package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeProps(t *testing.T, p *Properties) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.EncodeProperties(&buf))
	return buf.Bytes()
}

func TestParsePropertiesRoundTrip(t *testing.T) {
	props := &Properties{}
	props.Add(PropSessionExpiryInterval, uint32(120))
	props.Add(PropReceiveMaximum, uint16(20))
	props.Add(PropUserProperty, UTF8Pair{Key: "k1", Value: "v1"})
	props.Add(PropUserProperty, UTF8Pair{Key: "k2", Value: "v2"})
	props.Add(PropAuthenticationData, []byte{0xDE, 0xAD})

	encoded := encodeProps(t, props)

	decoded, err := ParseProperties(bytes.NewReader(encoded), OwnerConnect)
	require.NoError(t, err)
	require.Len(t, decoded.Properties, 5)

	assert.Equal(t, uint32(120), decoded.Uint32(PropSessionExpiryInterval, 0))
	assert.Equal(t, uint16(20), decoded.Uint16(PropReceiveMaximum, 0))
	assert.Equal(t, []byte{0xDE, 0xAD}, decoded.GetProperty(PropAuthenticationData).Value)

	pairs := decoded.GetProperties(PropUserProperty)
	require.Len(t, pairs, 2)
	assert.Equal(t, UTF8Pair{Key: "k1", Value: "v1"}, pairs[0].Value)
	assert.Equal(t, UTF8Pair{Key: "k2", Value: "v2"}, pairs[1].Value)
}

func TestParsePropertiesEmpty(t *testing.T) {
	props, err := ParseProperties(bytes.NewReader([]byte{0x00}), OwnerPublish)
	require.NoError(t, err)
	assert.Empty(t, props.Properties)
}

func TestParsePropertiesDuplicateSingleValued(t *testing.T) {
	props := &Properties{}
	props.Add(PropSessionExpiryInterval, uint32(1))
	props.Add(PropSessionExpiryInterval, uint32(2))

	encoded := encodeProps(t, props)

	_, err := ParseProperties(bytes.NewReader(encoded), OwnerConnect)
	assert.ErrorIs(t, err, ErrDuplicateProperty)
}

func TestParsePropertiesNotAllowedForOwner(t *testing.T) {
	// TopicAlias belongs to PUBLISH, not CONNECT
	props := &Properties{}
	props.Add(PropTopicAlias, uint16(4))

	encoded := encodeProps(t, props)

	_, err := ParseProperties(bytes.NewReader(encoded), OwnerConnect)
	assert.ErrorIs(t, err, ErrPropertyNotAllowed)

	decoded, err := ParseProperties(bytes.NewReader(encoded), OwnerPublish)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), decoded.Uint16(PropTopicAlias, 0))
}

func TestParsePropertiesUnknownIdentifier(t *testing.T) {
	// Length 2, identifier 0x7B does not exist
	_, err := ParseProperties(bytes.NewReader([]byte{0x02, 0x7B, 0x00}), OwnerPublish)
	assert.ErrorIs(t, err, ErrInvalidPropertyID)
}

func TestParsePropertiesRepeatedSubscriptionIdentifier(t *testing.T) {
	props := &Properties{}
	props.Add(PropSubscriptionIdentifier, uint32(1))
	props.Add(PropSubscriptionIdentifier, uint32(3))

	encoded := encodeProps(t, props)

	// Repeatable on PUBLISH, insertion order preserved
	decoded, err := ParseProperties(bytes.NewReader(encoded), OwnerPublish)
	require.NoError(t, err)
	ids := decoded.GetProperties(PropSubscriptionIdentifier)
	require.Len(t, ids, 2)
	assert.Equal(t, uint32(1), ids[0].Value)
	assert.Equal(t, uint32(3), ids[1].Value)

	// At most once on SUBSCRIBE
	_, err = ParseProperties(bytes.NewReader(encoded), OwnerSubscribe)
	assert.ErrorIs(t, err, ErrDuplicateProperty)
}

func TestParsePropertiesTruncated(t *testing.T) {
	props := &Properties{}
	props.Add(PropContentType, "application/json")
	encoded := encodeProps(t, props)

	_, err := ParseProperties(bytes.NewReader(encoded[:len(encoded)-3]), OwnerPublish)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestPropertiesValidate(t *testing.T) {
	props := &Properties{}
	props.Add(PropReasonString, "done")
	require.NoError(t, props.Validate(OwnerPubackPubrec))

	props.Add(PropTopicAlias, uint16(1))
	assert.ErrorIs(t, props.Validate(OwnerPubackPubrec), ErrPropertyNotAllowed)

	dup := &Properties{}
	dup.Add(PropReasonString, "a")
	dup.Add(PropReasonString, "b")
	assert.ErrorIs(t, dup.Validate(OwnerPubackPubrec), ErrDuplicateProperty)
}

func TestPropertiesEncodedSize(t *testing.T) {
	props := &Properties{}
	assert.Equal(t, uint32(1), props.EncodedSize()) // single zero-length byte

	props.Add(PropPayloadFormatIndicator, byte(1))
	// length varint (1) + id (1) + value (1)
	assert.Equal(t, uint32(3), props.EncodedSize())

	encoded := encodeProps(t, props)
	assert.Len(t, encoded, int(props.EncodedSize()))
}

func TestPropertyAccessorDefaults(t *testing.T) {
	props := &Properties{}
	assert.Equal(t, byte(0xFF), props.Byte(PropMaximumQoS, 0xFF))
	assert.Equal(t, uint16(65535), props.Uint16(PropReceiveMaximum, 65535))
	assert.Equal(t, uint32(0), props.Uint32(PropMaximumPacketSize, 0))
	assert.Equal(t, "", props.String(PropAssignedClientIdentifier))
}

func TestPropertyIDString(t *testing.T) {
	assert.Equal(t, "TopicAlias", PropTopicAlias.String())
	assert.Equal(t, "UserProperty", PropUserProperty.String())
	assert.Equal(t, "UNKNOWN", PropertyID(0x7B).String())
}
