package encoding

import (
	"io"
)

// PropertyID represents MQTT 5.0 property identifiers
type PropertyID byte

const (
	PropPayloadFormatIndicator          PropertyID = 0x01
	PropMessageExpiryInterval           PropertyID = 0x02
	PropContentType                     PropertyID = 0x03
	PropResponseTopic                   PropertyID = 0x08
	PropCorrelationData                 PropertyID = 0x09
	PropSubscriptionIdentifier          PropertyID = 0x0B
	PropSessionExpiryInterval           PropertyID = 0x11
	PropAssignedClientIdentifier        PropertyID = 0x12
	PropServerKeepAlive                 PropertyID = 0x13
	PropAuthenticationMethod            PropertyID = 0x15
	PropAuthenticationData              PropertyID = 0x16
	PropRequestProblemInformation       PropertyID = 0x17
	PropWillDelayInterval               PropertyID = 0x18
	PropRequestResponseInformation      PropertyID = 0x19
	PropResponseInformation             PropertyID = 0x1A
	PropServerReference                 PropertyID = 0x1C
	PropReasonString                    PropertyID = 0x1F
	PropReceiveMaximum                  PropertyID = 0x21
	PropTopicAliasMaximum               PropertyID = 0x22
	PropTopicAlias                      PropertyID = 0x23
	PropMaximumQoS                      PropertyID = 0x24
	PropRetainAvailable                 PropertyID = 0x25
	PropUserProperty                    PropertyID = 0x26
	PropMaximumPacketSize               PropertyID = 0x27
	PropWildcardSubscriptionAvailable   PropertyID = 0x28
	PropSubscriptionIdentifierAvailable PropertyID = 0x29
	PropSharedSubscriptionAvailable     PropertyID = 0x2A
)

// PropertyType represents the data type of a property
type PropertyType byte

const (
	PropertyTypeByte        PropertyType = 1
	PropertyTypeTwoByteInt  PropertyType = 2
	PropertyTypeFourByteInt PropertyType = 3
	PropertyTypeVarInt      PropertyType = 4
	PropertyTypeUTF8String  PropertyType = 5
	PropertyTypeUTF8Pair    PropertyType = 6
	PropertyTypeBinaryData  PropertyType = 7
)

// Property represents a single MQTT 5.0 property
type Property struct {
	ID    PropertyID
	Value interface{}
}

// Properties represents a collection of MQTT 5.0 properties
type Properties struct {
	Properties []Property
}

// propertySpec defines the expected type for each property
type propertySpec struct {
	Type PropertyType
}

// propertySpecs maps property IDs to their specifications
var propertySpecs = map[PropertyID]propertySpec{
	PropPayloadFormatIndicator:          {PropertyTypeByte},
	PropMessageExpiryInterval:           {PropertyTypeFourByteInt},
	PropContentType:                     {PropertyTypeUTF8String},
	PropResponseTopic:                   {PropertyTypeUTF8String},
	PropCorrelationData:                 {PropertyTypeBinaryData},
	PropSubscriptionIdentifier:          {PropertyTypeVarInt},
	PropSessionExpiryInterval:           {PropertyTypeFourByteInt},
	PropAssignedClientIdentifier:        {PropertyTypeUTF8String},
	PropServerKeepAlive:                 {PropertyTypeTwoByteInt},
	PropAuthenticationMethod:            {PropertyTypeUTF8String},
	PropAuthenticationData:              {PropertyTypeBinaryData},
	PropRequestProblemInformation:       {PropertyTypeByte},
	PropWillDelayInterval:               {PropertyTypeFourByteInt},
	PropRequestResponseInformation:      {PropertyTypeByte},
	PropResponseInformation:             {PropertyTypeUTF8String},
	PropServerReference:                 {PropertyTypeUTF8String},
	PropReasonString:                    {PropertyTypeUTF8String},
	PropReceiveMaximum:                  {PropertyTypeTwoByteInt},
	PropTopicAliasMaximum:               {PropertyTypeTwoByteInt},
	PropTopicAlias:                      {PropertyTypeTwoByteInt},
	PropMaximumQoS:                      {PropertyTypeByte},
	PropRetainAvailable:                 {PropertyTypeByte},
	PropUserProperty:                    {PropertyTypeUTF8Pair},
	PropMaximumPacketSize:               {PropertyTypeFourByteInt},
	PropWildcardSubscriptionAvailable:   {PropertyTypeByte},
	PropSubscriptionIdentifierAvailable: {PropertyTypeByte},
	PropSharedSubscriptionAvailable:     {PropertyTypeByte},
}

// PropertyOwner selects the allowed-subset table for a property collection.
// Will properties live in the CONNECT payload and have their own subset.
type PropertyOwner byte

const (
	OwnerConnect PropertyOwner = iota
	OwnerConnack
	OwnerPublish
	OwnerPubackPubrec
	OwnerPubrelPubcomp
	OwnerSubscribe
	OwnerSuback
	OwnerUnsubscribe
	OwnerUnsuback
	OwnerDisconnect
	OwnerAuth
	OwnerWill
)

// allowedProperties maps each owner to the property identifiers MQTT 5.0
// permits on it (tables 2.1 through 3.15 of the OASIS spec). Any property
// outside the subset is a malformed-packet error.
var allowedProperties = map[PropertyOwner]map[PropertyID]bool{
	OwnerConnect: {
		PropSessionExpiryInterval:      true,
		PropReceiveMaximum:             true,
		PropMaximumPacketSize:          true,
		PropTopicAliasMaximum:          true,
		PropRequestResponseInformation: true,
		PropRequestProblemInformation:  true,
		PropUserProperty:               true,
		PropAuthenticationMethod:       true,
		PropAuthenticationData:         true,
	},
	OwnerConnack: {
		PropSessionExpiryInterval:           true,
		PropReceiveMaximum:                  true,
		PropMaximumQoS:                      true,
		PropRetainAvailable:                 true,
		PropMaximumPacketSize:               true,
		PropAssignedClientIdentifier:        true,
		PropTopicAliasMaximum:               true,
		PropReasonString:                    true,
		PropUserProperty:                    true,
		PropWildcardSubscriptionAvailable:   true,
		PropSubscriptionIdentifierAvailable: true,
		PropSharedSubscriptionAvailable:     true,
		PropServerKeepAlive:                 true,
		PropResponseInformation:             true,
		PropServerReference:                 true,
		PropAuthenticationMethod:            true,
		PropAuthenticationData:              true,
	},
	OwnerPublish: {
		PropPayloadFormatIndicator: true,
		PropMessageExpiryInterval:  true,
		PropTopicAlias:             true,
		PropResponseTopic:          true,
		PropCorrelationData:        true,
		PropUserProperty:           true,
		PropSubscriptionIdentifier: true,
		PropContentType:            true,
	},
	OwnerPubackPubrec: {
		PropReasonString: true,
		PropUserProperty: true,
	},
	OwnerPubrelPubcomp: {
		PropReasonString: true,
		PropUserProperty: true,
	},
	OwnerSubscribe: {
		PropSubscriptionIdentifier: true,
		PropUserProperty:           true,
	},
	OwnerSuback: {
		PropReasonString: true,
		PropUserProperty: true,
	},
	OwnerUnsubscribe: {
		PropUserProperty: true,
	},
	OwnerUnsuback: {
		PropReasonString: true,
		PropUserProperty: true,
	},
	OwnerDisconnect: {
		PropSessionExpiryInterval: true,
		PropReasonString:          true,
		PropUserProperty:          true,
		PropServerReference:       true,
	},
	OwnerAuth: {
		PropAuthenticationMethod: true,
		PropAuthenticationData:   true,
		PropReasonString:         true,
		PropUserProperty:         true,
	},
	OwnerWill: {
		PropWillDelayInterval:      true,
		PropPayloadFormatIndicator: true,
		PropMessageExpiryInterval:  true,
		PropContentType:            true,
		PropResponseTopic:          true,
		PropCorrelationData:        true,
		PropUserProperty:           true,
	},
}

// repeatable reports whether a property may appear more than once for the
// given owner. UserProperty always repeats; SubscriptionIdentifier repeats
// only on PUBLISH (one per matching subscription).
func repeatable(id PropertyID, owner PropertyOwner) bool {
	if id == PropUserProperty {
		return true
	}
	if id == PropSubscriptionIdentifier && owner == OwnerPublish {
		return true
	}
	return false
}

// ownerForPacket returns the allowed-subset owner for a packet type
func ownerForPacket(tp PacketType) PropertyOwner {
	switch tp {
	case CONNECT:
		return OwnerConnect
	case CONNACK:
		return OwnerConnack
	case PUBLISH:
		return OwnerPublish
	case PUBACK, PUBREC:
		return OwnerPubackPubrec
	case PUBREL, PUBCOMP:
		return OwnerPubrelPubcomp
	case SUBSCRIBE:
		return OwnerSubscribe
	case SUBACK:
		return OwnerSuback
	case UNSUBSCRIBE:
		return OwnerUnsubscribe
	case UNSUBACK:
		return OwnerUnsuback
	case DISCONNECT:
		return OwnerDisconnect
	default:
		return OwnerAuth
	}
}

// ParseProperties parses an MQTT 5.0 property block from a reader, enforcing
// the owner's allowed subset and at-most-once multiplicity. A duplicate
// single-valued property is a protocol error; an identifier outside the
// subset or unknown entirely is a malformed-packet error.
func ParseProperties(r io.Reader, owner PropertyOwner) (*Properties, error) {
	// Read property length (Variable Byte Integer)
	propLength, err := DecodeVariableByteInteger(r)
	if err != nil {
		return nil, err
	}

	props := &Properties{
		Properties: make([]Property, 0, 4),
	}

	if propLength == 0 {
		return props, nil
	}

	// Limited reader so a lying property length cannot run past the block
	limitedReader := io.LimitedReader{R: r, N: int64(propLength)}

	seen := make(map[PropertyID]bool, 8)

	for limitedReader.N > 0 {
		prop, err := parseProperty(&limitedReader)
		if err != nil {
			return nil, err
		}

		if !allowedProperties[owner][prop.ID] {
			return nil, ErrPropertyNotAllowed
		}
		if seen[prop.ID] && !repeatable(prop.ID, owner) {
			return nil, ErrDuplicateProperty
		}
		seen[prop.ID] = true

		props.Properties = append(props.Properties, *prop)
	}

	return props, nil
}

// parseProperty parses a single property from a reader
func parseProperty(r io.Reader) (*Property, error) {
	idByte, err := readByte(r)
	if err != nil {
		return nil, err
	}

	propID := PropertyID(idByte)
	spec, ok := propertySpecs[propID]
	if !ok {
		return nil, ErrInvalidPropertyID
	}

	prop := &Property{ID: propID}

	switch spec.Type {
	case PropertyTypeByte:
		prop.Value, err = readByte(r)
	case PropertyTypeTwoByteInt:
		prop.Value, err = readTwoByteInt(r)
	case PropertyTypeFourByteInt:
		prop.Value, err = readFourByteInt(r)
	case PropertyTypeVarInt:
		prop.Value, err = DecodeVariableByteInteger(r)
	case PropertyTypeUTF8String:
		prop.Value, err = readUTF8String(r)
	case PropertyTypeUTF8Pair:
		prop.Value, err = readUTF8Pair(r)
	case PropertyTypeBinaryData:
		prop.Value, err = readBinaryData(r)
	default:
		return nil, ErrInvalidPropertyType
	}

	if err != nil {
		return nil, err
	}

	return prop, nil
}

// Validate checks the collection against the owner's allowed subset and
// multiplicity rules before emission (invariant: property sets on every
// emitted packet are a subset of the packet type's allowed properties)
func (p *Properties) Validate(owner PropertyOwner) error {
	seen := make(map[PropertyID]bool, len(p.Properties))
	for _, prop := range p.Properties {
		if _, ok := propertySpecs[prop.ID]; !ok {
			return ErrInvalidPropertyID
		}
		if !allowedProperties[owner][prop.ID] {
			return ErrPropertyNotAllowed
		}
		if seen[prop.ID] && !repeatable(prop.ID, owner) {
			return ErrDuplicateProperty
		}
		seen[prop.ID] = true
	}
	return nil
}

// EncodeProperties encodes MQTT 5.0 properties to a writer. Emission order
// is insertion order, which keeps repeated SubscriptionIdentifier values in
// the order the matching subscriptions were entered.
func (p *Properties) EncodeProperties(w io.Writer) error {
	length := p.encodedLength()

	lengthBytes, err := EncodeVariableByteInteger(length)
	if err != nil {
		return err
	}
	if err := writeFull(w, lengthBytes); err != nil {
		return err
	}

	if length == 0 {
		return nil
	}

	for _, prop := range p.Properties {
		if err := encodeProperty(w, &prop); err != nil {
			return err
		}
	}

	return nil
}

// encodedLength calculates the total byte length of all properties
func (p *Properties) encodedLength() uint32 {
	if len(p.Properties) == 0 {
		return 0
	}

	var length uint32
	for _, prop := range p.Properties {
		length++ // Property ID byte

		spec := propertySpecs[prop.ID]
		switch spec.Type {
		case PropertyTypeByte:
			length += 1
		case PropertyTypeTwoByteInt:
			length += 2
		case PropertyTypeFourByteInt:
			length += 4
		case PropertyTypeVarInt:
			length += uint32(SizeVariableByteInteger(prop.Value.(uint32)))
		case PropertyTypeUTF8String:
			length += 2 + uint32(len(prop.Value.(string)))
		case PropertyTypeUTF8Pair:
			pair := prop.Value.(UTF8Pair)
			length += 2 + uint32(len(pair.Key)) + 2 + uint32(len(pair.Value))
		case PropertyTypeBinaryData:
			length += 2 + uint32(len(prop.Value.([]byte)))
		}
	}

	return length
}

// EncodedSize returns the full wire size of the block: the length varint
// plus every property
func (p *Properties) EncodedSize() uint32 {
	length := p.encodedLength()
	return uint32(SizeVariableByteInteger(length)) + length
}

// encodeProperty encodes a single property to a writer
func encodeProperty(w io.Writer, prop *Property) error {
	if err := writeByte(w, byte(prop.ID)); err != nil {
		return err
	}

	spec := propertySpecs[prop.ID]

	switch spec.Type {
	case PropertyTypeByte:
		return writeByte(w, prop.Value.(byte))
	case PropertyTypeTwoByteInt:
		return writeTwoByteInt(w, prop.Value.(uint16))
	case PropertyTypeFourByteInt:
		return writeFourByteInt(w, prop.Value.(uint32))
	case PropertyTypeVarInt:
		bytes, err := EncodeVariableByteInteger(prop.Value.(uint32))
		if err != nil {
			return err
		}
		return writeFull(w, bytes)
	case PropertyTypeUTF8String:
		return writeUTF8String(w, prop.Value.(string))
	case PropertyTypeUTF8Pair:
		return writeUTF8Pair(w, prop.Value.(UTF8Pair))
	case PropertyTypeBinaryData:
		return writeBinaryData(w, prop.Value.([]byte))
	default:
		return ErrInvalidPropertyType
	}
}

// UTF8Pair represents a key-value pair for user properties
type UTF8Pair struct {
	Key   string
	Value string
}

// GetProperty returns the first property with the given ID, or nil if not found
func (p *Properties) GetProperty(id PropertyID) *Property {
	for i := range p.Properties {
		if p.Properties[i].ID == id {
			return &p.Properties[i]
		}
	}
	return nil
}

// GetProperties returns all properties with the given ID
func (p *Properties) GetProperties(id PropertyID) []Property {
	var result []Property
	for _, prop := range p.Properties {
		if prop.ID == id {
			result = append(result, prop)
		}
	}
	return result
}

// Add appends a property without multiplicity checking; emission order is
// preserved
func (p *Properties) Add(id PropertyID, value interface{}) {
	p.Properties = append(p.Properties, Property{ID: id, Value: value})
}

// Byte returns the byte value of the first property with the given ID
func (p *Properties) Byte(id PropertyID, def byte) byte {
	if prop := p.GetProperty(id); prop != nil {
		return prop.Value.(byte)
	}
	return def
}

// Uint16 returns the two-byte value of the first property with the given ID
func (p *Properties) Uint16(id PropertyID, def uint16) uint16 {
	if prop := p.GetProperty(id); prop != nil {
		return prop.Value.(uint16)
	}
	return def
}

// Uint32 returns the four-byte or varint value of the first property with
// the given ID
func (p *Properties) Uint32(id PropertyID, def uint32) uint32 {
	if prop := p.GetProperty(id); prop != nil {
		return prop.Value.(uint32)
	}
	return def
}

// String returns the UTF-8 string value of the first property with the given ID
func (p *Properties) String(id PropertyID) string {
	if prop := p.GetProperty(id); prop != nil {
		return prop.Value.(string)
	}
	return ""
}

// Helper functions for reading/writing the MQTT primitive types. All
// multi-byte integers are big-endian.

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrUnexpectedEOF
		}
		return 0, err
	}
	return b[0], nil
}

func readTwoByteInt(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrUnexpectedEOF
		}
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func readFourByteInt(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, ErrUnexpectedEOF
		}
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func readUTF8String(r io.Reader) (string, error) {
	length, err := readTwoByteInt(r)
	if err != nil {
		return "", err
	}

	if length == 0 {
		return "", nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return "", ErrUnexpectedEOF
		}
		return "", err
	}

	if err := ValidateUTF8String(buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

func readUTF8Pair(r io.Reader) (UTF8Pair, error) {
	key, err := readUTF8String(r)
	if err != nil {
		return UTF8Pair{}, err
	}

	value, err := readUTF8String(r)
	if err != nil {
		return UTF8Pair{}, err
	}

	return UTF8Pair{Key: key, Value: value}, nil
}

func readBinaryData(r io.Reader) ([]byte, error) {
	length, err := readTwoByteInt(r)
	if err != nil {
		return nil, err
	}

	if length == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrUnexpectedEOF
		}
		return nil, err
	}

	return buf, nil
}

func writeByte(w io.Writer, value byte) error {
	return writeFull(w, []byte{value})
}

func writeTwoByteInt(w io.Writer, value uint16) error {
	return writeFull(w, []byte{byte(value >> 8), byte(value)})
}

func writeFourByteInt(w io.Writer, value uint32) error {
	return writeFull(w, []byte{
		byte(value >> 24),
		byte(value >> 16),
		byte(value >> 8),
		byte(value),
	})
}

func writeUTF8String(w io.Writer, value string) error {
	if len(value) > 65535 {
		return ErrTooLargeToEncode
	}
	if err := writeTwoByteInt(w, uint16(len(value))); err != nil {
		return err
	}
	if len(value) > 0 {
		return writeFull(w, []byte(value))
	}
	return nil
}

func writeUTF8Pair(w io.Writer, value UTF8Pair) error {
	if err := writeUTF8String(w, value.Key); err != nil {
		return err
	}
	return writeUTF8String(w, value.Value)
}

func writeBinaryData(w io.Writer, value []byte) error {
	if len(value) > 65535 {
		return ErrTooLargeToEncode
	}
	if err := writeTwoByteInt(w, uint16(len(value))); err != nil {
		return err
	}
	if len(value) > 0 {
		return writeFull(w, value)
	}
	return nil
}

// String returns human-readable property ID name
func (id PropertyID) String() string {
	names := map[PropertyID]string{
		PropPayloadFormatIndicator:          "PayloadFormatIndicator",
		PropMessageExpiryInterval:           "MessageExpiryInterval",
		PropContentType:                     "ContentType",
		PropResponseTopic:                   "ResponseTopic",
		PropCorrelationData:                 "CorrelationData",
		PropSubscriptionIdentifier:          "SubscriptionIdentifier",
		PropSessionExpiryInterval:           "SessionExpiryInterval",
		PropAssignedClientIdentifier:        "AssignedClientIdentifier",
		PropServerKeepAlive:                 "ServerKeepAlive",
		PropAuthenticationMethod:            "AuthenticationMethod",
		PropAuthenticationData:              "AuthenticationData",
		PropRequestProblemInformation:       "RequestProblemInformation",
		PropWillDelayInterval:               "WillDelayInterval",
		PropRequestResponseInformation:      "RequestResponseInformation",
		PropResponseInformation:             "ResponseInformation",
		PropServerReference:                 "ServerReference",
		PropReasonString:                    "ReasonString",
		PropReceiveMaximum:                  "ReceiveMaximum",
		PropTopicAliasMaximum:               "TopicAliasMaximum",
		PropTopicAlias:                      "TopicAlias",
		PropMaximumQoS:                      "MaximumQoS",
		PropRetainAvailable:                 "RetainAvailable",
		PropUserProperty:                    "UserProperty",
		PropMaximumPacketSize:               "MaximumPacketSize",
		PropWildcardSubscriptionAvailable:   "WildcardSubscriptionAvailable",
		PropSubscriptionIdentifierAvailable: "SubscriptionIdentifierAvailable",
		PropSharedSubscriptionAvailable:     "SharedSubscriptionAvailable",
	}

	if name, ok := names[id]; ok {
		return name
	}
	return "UNKNOWN"
}
