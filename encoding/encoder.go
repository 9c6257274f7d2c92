package encoding

import (
	"bytes"
	"io"
)

// Every Encode computes the remaining length before emitting the fixed
// header, so a failing sink never leaves a partially framed packet on the
// wire. Properties are validated against the packet type's allowed subset
// before any byte is written.

// Encode encodes an MQTT 5.0 CONNECT packet
func (p *ConnectPacket) Encode(w io.Writer) error {
	if err := p.Properties.Validate(OwnerConnect); err != nil {
		return err
	}

	// Variable header: protocol name + version + flags + keep alive + properties
	varHeaderLen := 2 + len(p.ProtocolName) + 1 + 1 + 2
	varHeaderLen += int(p.Properties.EncodedSize())

	// Payload
	payloadLen := 2 + len(p.ClientID)

	if p.WillFlag {
		if err := p.WillProperties.Validate(OwnerWill); err != nil {
			return err
		}
		payloadLen += int(p.WillProperties.EncodedSize())
		payloadLen += 2 + len(p.WillTopic)
		payloadLen += 2 + len(p.WillPayload)
	}
	if p.UsernameFlag {
		payloadLen += 2 + len(p.Username)
	}
	if p.PasswordFlag {
		payloadLen += 2 + len(p.Password)
	}

	fh := FixedHeader{
		Type:            CONNECT,
		Flags:           0,
		RemainingLength: uint32(varHeaderLen + payloadLen),
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if err := writeUTF8String(w, p.ProtocolName); err != nil {
		return err
	}
	if err := writeByte(w, byte(p.ProtocolVersion)); err != nil {
		return err
	}

	var connectFlags byte
	if p.CleanStart {
		connectFlags |= 0x02
	}
	if p.WillFlag {
		connectFlags |= 0x04
		connectFlags |= byte(p.WillQoS) << 3
		if p.WillRetain {
			connectFlags |= 0x20
		}
	}
	if p.PasswordFlag {
		connectFlags |= 0x40
	}
	if p.UsernameFlag {
		connectFlags |= 0x80
	}

	if err := writeByte(w, connectFlags); err != nil {
		return err
	}
	if err := writeTwoByteInt(w, p.KeepAlive); err != nil {
		return err
	}
	if err := p.Properties.EncodeProperties(w); err != nil {
		return err
	}

	if err := writeUTF8String(w, p.ClientID); err != nil {
		return err
	}

	if p.WillFlag {
		if err := p.WillProperties.EncodeProperties(w); err != nil {
			return err
		}
		if err := writeUTF8String(w, p.WillTopic); err != nil {
			return err
		}
		if err := writeBinaryData(w, p.WillPayload); err != nil {
			return err
		}
	}

	if p.UsernameFlag {
		if err := writeUTF8String(w, p.Username); err != nil {
			return err
		}
	}
	if p.PasswordFlag {
		if err := writeBinaryData(w, p.Password); err != nil {
			return err
		}
	}

	return nil
}

// Encode encodes an MQTT 5.0 CONNACK packet
func (p *ConnackPacket) Encode(w io.Writer) error {
	if err := p.Properties.Validate(OwnerConnack); err != nil {
		return err
	}

	fh := FixedHeader{
		Type:            CONNACK,
		Flags:           0,
		RemainingLength: 1 + 1 + p.Properties.EncodedSize(),
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	var ackFlags byte
	if p.SessionPresent {
		ackFlags |= 0x01
	}
	if err := writeByte(w, ackFlags); err != nil {
		return err
	}
	if err := writeByte(w, byte(p.ReasonCode)); err != nil {
		return err
	}

	return p.Properties.EncodeProperties(w)
}

// Encode encodes an MQTT 5.0 PUBLISH packet
func (p *PublishPacket) Encode(w io.Writer) error {
	if err := p.Properties.Validate(OwnerPublish); err != nil {
		return err
	}
	if err := ValidateTopicName(p.TopicName); err != nil {
		return err
	}
	if p.TopicName == "" && p.TopicAlias() == 0 {
		return ErrInvalidTopicName
	}

	remainingLength := uint32(2+len(p.TopicName)+len(p.Payload)) + p.Properties.EncodedSize()
	if p.FixedHeader.QoS > QoS0 {
		if p.PacketID == 0 {
			return ErrInvalidPacketIDZero
		}
		remainingLength += 2
	}

	fh := FixedHeader{
		Type:            PUBLISH,
		Flags:           p.FixedHeader.BuildPublishFlags(),
		RemainingLength: remainingLength,
		DUP:             p.FixedHeader.DUP,
		QoS:             p.FixedHeader.QoS,
		Retain:          p.FixedHeader.Retain,
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if err := writeUTF8String(w, p.TopicName); err != nil {
		return err
	}

	if p.FixedHeader.QoS > QoS0 {
		if err := writeTwoByteInt(w, p.PacketID); err != nil {
			return err
		}
	}

	if err := p.Properties.EncodeProperties(w); err != nil {
		return err
	}

	if len(p.Payload) > 0 {
		return writeFull(w, p.Payload)
	}
	return nil
}

// Encode encodes an MQTT 5.0 PUBACK packet
func (p *PubackPacket) Encode(w io.Writer) error {
	return encodeAckPacket(w, PUBACK, 0, p.PacketID, p.ReasonCode, &p.Properties, OwnerPubackPubrec)
}

// Encode encodes an MQTT 5.0 PUBREC packet
func (p *PubrecPacket) Encode(w io.Writer) error {
	return encodeAckPacket(w, PUBREC, 0, p.PacketID, p.ReasonCode, &p.Properties, OwnerPubackPubrec)
}

// Encode encodes an MQTT 5.0 PUBREL packet
func (p *PubrelPacket) Encode(w io.Writer) error {
	return encodeAckPacket(w, PUBREL, 0x02, p.PacketID, p.ReasonCode, &p.Properties, OwnerPubrelPubcomp)
}

// Encode encodes an MQTT 5.0 PUBCOMP packet
func (p *PubcompPacket) Encode(w io.Writer) error {
	return encodeAckPacket(w, PUBCOMP, 0, p.PacketID, p.ReasonCode, &p.Properties, OwnerPubrelPubcomp)
}

// encodeAckPacket encodes the shared PUBACK/PUBREC/PUBREL/PUBCOMP shape. A
// Success code with no properties uses the two-byte short form.
func encodeAckPacket(w io.Writer, packetType PacketType, flags byte, packetID uint16, reasonCode ReasonCode, props *Properties, owner PropertyOwner) error {
	if err := props.Validate(owner); err != nil {
		return err
	}
	if packetID == 0 {
		return ErrInvalidPacketIDZero
	}

	propsSize := props.EncodedSize()
	remainingLength := uint32(2)

	shortForm := reasonCode == ReasonSuccess && len(props.Properties) == 0
	if !shortForm {
		remainingLength += 1 + propsSize
	}

	fh := FixedHeader{
		Type:            packetType,
		Flags:           flags,
		RemainingLength: remainingLength,
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if err := writeTwoByteInt(w, packetID); err != nil {
		return err
	}

	if shortForm {
		return nil
	}

	if err := writeByte(w, byte(reasonCode)); err != nil {
		return err
	}
	return props.EncodeProperties(w)
}

// Encode encodes an MQTT 5.0 SUBSCRIBE packet
func (p *SubscribePacket) Encode(w io.Writer) error {
	if err := p.Properties.Validate(OwnerSubscribe); err != nil {
		return err
	}
	if len(p.Subscriptions) == 0 {
		return ErrEmptySubscriptionList
	}
	if p.PacketID == 0 {
		return ErrInvalidPacketIDZero
	}

	remainingLength := 2 + p.Properties.EncodedSize()
	for _, sub := range p.Subscriptions {
		if err := ValidateTopicFilter(sub.TopicFilter); err != nil {
			return err
		}
		remainingLength += uint32(2 + len(sub.TopicFilter) + 1)
	}

	fh := FixedHeader{
		Type:            SUBSCRIBE,
		Flags:           0x02,
		RemainingLength: remainingLength,
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if err := writeTwoByteInt(w, p.PacketID); err != nil {
		return err
	}
	if err := p.Properties.EncodeProperties(w); err != nil {
		return err
	}

	for _, sub := range p.Subscriptions {
		if err := writeUTF8String(w, sub.TopicFilter); err != nil {
			return err
		}

		options := byte(sub.QoS) & 0x03
		if sub.NoLocal {
			options |= 0x04
		}
		if sub.RetainAsPublished {
			options |= 0x08
		}
		options |= (byte(sub.RetainHandling) & 0x03) << 4

		if err := writeByte(w, options); err != nil {
			return err
		}
	}

	return nil
}

// Encode encodes an MQTT 5.0 SUBACK packet
func (p *SubackPacket) Encode(w io.Writer) error {
	return encodeAckWithReasonCodes(w, SUBACK, p.PacketID, p.ReasonCodes, &p.Properties, OwnerSuback)
}

// Encode encodes an MQTT 5.0 UNSUBSCRIBE packet
func (p *UnsubscribePacket) Encode(w io.Writer) error {
	if err := p.Properties.Validate(OwnerUnsubscribe); err != nil {
		return err
	}
	if len(p.TopicFilters) == 0 {
		return ErrEmptyUnsubscribeList
	}
	if p.PacketID == 0 {
		return ErrInvalidPacketIDZero
	}

	remainingLength := 2 + p.Properties.EncodedSize()
	for _, topic := range p.TopicFilters {
		if err := ValidateTopicFilter(topic); err != nil {
			return err
		}
		remainingLength += uint32(2 + len(topic))
	}

	fh := FixedHeader{
		Type:            UNSUBSCRIBE,
		Flags:           0x02,
		RemainingLength: remainingLength,
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if err := writeTwoByteInt(w, p.PacketID); err != nil {
		return err
	}
	if err := p.Properties.EncodeProperties(w); err != nil {
		return err
	}

	for _, topic := range p.TopicFilters {
		if err := writeUTF8String(w, topic); err != nil {
			return err
		}
	}

	return nil
}

// Encode encodes an MQTT 5.0 UNSUBACK packet
func (p *UnsubackPacket) Encode(w io.Writer) error {
	return encodeAckWithReasonCodes(w, UNSUBACK, p.PacketID, p.ReasonCodes, &p.Properties, OwnerUnsuback)
}

// encodeAckWithReasonCodes encodes the shared SUBACK/UNSUBACK shape
func encodeAckWithReasonCodes(w io.Writer, packetType PacketType, packetID uint16, reasonCodes []ReasonCode, props *Properties, owner PropertyOwner) error {
	if err := props.Validate(owner); err != nil {
		return err
	}

	fh := FixedHeader{
		Type:            packetType,
		Flags:           0,
		RemainingLength: 2 + props.EncodedSize() + uint32(len(reasonCodes)),
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if err := writeTwoByteInt(w, packetID); err != nil {
		return err
	}
	if err := props.EncodeProperties(w); err != nil {
		return err
	}

	for _, rc := range reasonCodes {
		if err := writeByte(w, byte(rc)); err != nil {
			return err
		}
	}
	return nil
}

// Encode encodes an MQTT 5.0 PINGREQ packet
func (p *PingreqPacket) Encode(w io.Writer) error {
	fh := FixedHeader{Type: PINGREQ, Flags: 0, RemainingLength: 0}
	return fh.EncodeFixedHeader(w)
}

// Encode encodes an MQTT 5.0 PINGRESP packet
func (p *PingrespPacket) Encode(w io.Writer) error {
	fh := FixedHeader{Type: PINGRESP, Flags: 0, RemainingLength: 0}
	return fh.EncodeFixedHeader(w)
}

// Encode encodes an MQTT 5.0 DISCONNECT packet
func (p *DisconnectPacket) Encode(w io.Writer) error {
	if err := p.Properties.Validate(OwnerDisconnect); err != nil {
		return err
	}

	remainingLength := uint32(0)
	shortForm := p.ReasonCode == ReasonNormalDisconnection && len(p.Properties.Properties) == 0
	if !shortForm {
		remainingLength = 1 + p.Properties.EncodedSize()
	}

	fh := FixedHeader{
		Type:            DISCONNECT,
		Flags:           0,
		RemainingLength: remainingLength,
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if shortForm {
		return nil
	}

	if err := writeByte(w, byte(p.ReasonCode)); err != nil {
		return err
	}
	return p.Properties.EncodeProperties(w)
}

// Encode encodes an MQTT 5.0 AUTH packet
func (p *AuthPacket) Encode(w io.Writer) error {
	if err := p.Properties.Validate(OwnerAuth); err != nil {
		return err
	}

	fh := FixedHeader{
		Type:            AUTH,
		Flags:           0,
		RemainingLength: 1 + p.Properties.EncodedSize(),
	}

	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if err := writeByte(w, byte(p.ReasonCode)); err != nil {
		return err
	}
	return p.Properties.EncodeProperties(w)
}

// EncodeToBytes renders a packet into a fresh buffer. The client engine uses
// it to check the negotiated maximum packet size before any byte reaches the
// transport.
func EncodeToBytes(p Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
