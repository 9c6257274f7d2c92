// Package client implements the MQTT 5.0 client engine: connection
// lifecycle, the operation surface (publish, subscribe, ping, disconnect)
// and the Poll loop that turns incoming packets into typed events.
//
// The engine is single-threaded and cooperative. Every operation suspends
// only inside the Read and Write capabilities; there is no internal task,
// background reader or timer. Keep-alive and reconnection are driven by the
// caller.
package client

import (
	"errors"
	"io"
	"time"

	"github.com/strandmq/strand/encoding"
	"github.com/strandmq/strand/pkg/logger"
	"github.com/strandmq/strand/qos"
	"github.com/strandmq/strand/session"
)

// Client is the engine. It owns the capability objects and the current
// session; at most one live engine may reference a session at a time.
type Client struct {
	reader   io.Reader
	writer   Writer
	provider encoding.BufferProvider
	rng      Rng
	log      logger.Logger

	sess      *session.Session
	connected bool

	keepAlive       *keepAliveTracker
	requestedExpiry uint32
	clientAliasMax  uint16
	inboundMaxSize  uint32 // the maximum packet size we advertised; 0 = none
}

// NewClient creates an engine. Connect binds it to a transport.
func NewClient(opts Options) *Client {
	c := &Client{
		sess:     opts.Session,
		provider: opts.BufferProvider,
		rng:      opts.Rng,
		log:      opts.Logger,
	}
	if c.rng == nil {
		c.rng = NewRng()
	}
	if c.log == nil {
		c.log = logger.NewNopLogger()
	}
	return c
}

// Session returns the engine's session, for persistence or handoff after
// the connection dies
func (c *Client) Session() *session.Session {
	return c.sess
}

// Connected reports whether the engine holds a live connection
func (c *Client) Connected() bool {
	return c.connected
}

// Connect emits CONNECT over the transport, awaits CONNACK and merges the
// server-declared parameters into the session. A refused CONNACK returns a
// ConnectError carrying the reason code.
func (c *Client) Connect(r io.Reader, w Writer, opts ConnectOptions) (*ConnectResult, error) {
	if c.connected {
		return nil, ErrAlreadyConnected
	}

	c.reader = r
	c.writer = w

	fresh := c.sess == nil
	if fresh {
		c.sess = session.New(opts.ClientID)
		c.sess.SeedPacketID(c.rng.NextUint64())
	}
	c.sess.CleanStart = opts.CleanStart
	if opts.CleanStart {
		c.sess.Clear()
	}

	c.requestedExpiry = uint32(opts.SessionExpiry)
	c.clientAliasMax = opts.TopicAliasMaximum
	c.inboundMaxSize = opts.MaximumPacketSize

	pkt, err := buildConnectPacket(opts)
	if err != nil {
		return nil, err
	}

	if err := c.send(pkt); err != nil {
		return nil, err
	}

	connack, err := c.awaitConnack()
	if err != nil {
		return nil, err
	}

	if connack.ReasonCode.IsError() {
		return nil, &ConnectError{
			ReasonCode:   connack.ReasonCode,
			ReasonString: connack.Properties.String(encoding.PropReasonString),
		}
	}

	c.sess.ApplyConnack(connack, c.requestedExpiry, c.clientAliasMax)

	keepAliveSeconds := uint16(opts.KeepAlive)
	if c.sess.ServerKeepAlive > 0 {
		keepAliveSeconds = c.sess.ServerKeepAlive
	}
	c.keepAlive = newKeepAliveTracker(keepAliveSeconds, time.Now())

	c.connected = true
	c.log.Debug("connected",
		"client_id", c.sess.ClientID,
		"session_present", connack.SessionPresent,
		"keep_alive", keepAliveSeconds)

	return &ConnectResult{
		SessionPresent:   connack.SessionPresent,
		ReasonCode:       connack.ReasonCode,
		AssignedClientID: c.sess.AssignedClientID,
	}, nil
}

// awaitConnack reads exactly one packet, which must be the CONNACK
func (c *Client) awaitConnack() (*encoding.ConnackPacket, error) {
	fh, err := encoding.ParseFixedHeader(c.reader)
	if err != nil {
		return nil, c.classifyReadError(err)
	}

	br := encoding.NewBodyReader(c.reader, fh.RemainingLength, c.provider)

	if fh.Type != encoding.CONNACK {
		_ = br.Discard()
		return nil, c.protocolClose(encoding.ReasonProtocolError, encoding.ErrProtocolViolation)
	}

	pkt, err := encoding.ReadBody(br, fh)
	if err != nil {
		_ = br.Discard()
		return nil, c.classifyDecodeError(err)
	}

	return pkt.(*encoding.ConnackPacket), nil
}

// buildConnectPacket assembles the CONNECT from the options
func buildConnectPacket(opts ConnectOptions) (*encoding.ConnectPacket, error) {
	pkt := &encoding.ConnectPacket{
		ProtocolName:    "MQTT",
		ProtocolVersion: encoding.ProtocolVersion50,
		CleanStart:      opts.CleanStart,
		KeepAlive:       uint16(opts.KeepAlive),
		ClientID:        opts.ClientID,
	}

	if opts.SessionExpiry != SessionExpiryEndOnDisconnect {
		pkt.Properties.Add(encoding.PropSessionExpiryInterval, uint32(opts.SessionExpiry))
	}
	if opts.ReceiveMaximum > 0 {
		pkt.Properties.Add(encoding.PropReceiveMaximum, opts.ReceiveMaximum)
	}
	if opts.MaximumPacketSize > 0 {
		pkt.Properties.Add(encoding.PropMaximumPacketSize, opts.MaximumPacketSize)
	}
	if opts.TopicAliasMaximum > 0 {
		pkt.Properties.Add(encoding.PropTopicAliasMaximum, opts.TopicAliasMaximum)
	}
	if opts.RequestResponseInformation {
		pkt.Properties.Add(encoding.PropRequestResponseInformation, byte(1))
	}
	if opts.RequestProblemInformation {
		pkt.Properties.Add(encoding.PropRequestProblemInformation, byte(1))
	}
	for _, up := range opts.UserProperties {
		pkt.Properties.Add(encoding.PropUserProperty, up)
	}

	if will := opts.Will; will != nil {
		pkt.WillFlag = true
		pkt.WillQoS = will.QoS
		pkt.WillRetain = will.Retain
		pkt.WillTopic = will.Topic
		pkt.WillPayload = will.Payload

		if will.DelayInterval > 0 {
			pkt.WillProperties.Add(encoding.PropWillDelayInterval, will.DelayInterval)
		}
		if will.IsPayloadUTF8 {
			pkt.WillProperties.Add(encoding.PropPayloadFormatIndicator, byte(1))
		}
		if will.MessageExpiryInterval > 0 {
			pkt.WillProperties.Add(encoding.PropMessageExpiryInterval, will.MessageExpiryInterval)
		}
		if will.ContentType != "" {
			pkt.WillProperties.Add(encoding.PropContentType, will.ContentType)
		}
		if will.ResponseTopic != "" {
			pkt.WillProperties.Add(encoding.PropResponseTopic, will.ResponseTopic)
		}
		if will.CorrelationData != nil {
			pkt.WillProperties.Add(encoding.PropCorrelationData, will.CorrelationData)
		}
	}

	if opts.Username != "" {
		pkt.UsernameFlag = true
		pkt.Username = opts.Username
	}
	if opts.Password != nil {
		pkt.PasswordFlag = true
		pkt.Password = opts.Password
	}

	return pkt, nil
}

// Publish sends an application message. QoS 0 returns packet identifier 0;
// QoS 1 and 2 return the assigned identifier and record the delivery for
// acknowledgment tracking and reissue. The payload is copied into the
// session for QoS above 0, so the caller's buffer may be reused.
func (c *Client) Publish(opts PublishOptions, payload []byte) (uint16, error) {
	if !c.connected {
		return 0, ErrNotConnected
	}
	if opts.QoS > c.sess.MaximumQoS {
		return 0, ErrQoSNotSupported
	}
	if opts.Retain && !c.sess.RetainAvailable {
		return 0, ErrRetainNotSupported
	}

	pkt := &encoding.PublishPacket{
		FixedHeader: encoding.FixedHeader{
			Type:   encoding.PUBLISH,
			QoS:    opts.QoS,
			Retain: opts.Retain,
		},
		Payload: payload,
	}

	if err := c.applyTopicRef(pkt, opts.Topic); err != nil {
		return 0, err
	}

	if opts.IsPayloadUTF8 {
		pkt.Properties.Add(encoding.PropPayloadFormatIndicator, byte(1))
	}
	if opts.MessageExpiryInterval > 0 {
		pkt.Properties.Add(encoding.PropMessageExpiryInterval, opts.MessageExpiryInterval)
	}
	if opts.ContentType != "" {
		pkt.Properties.Add(encoding.PropContentType, opts.ContentType)
	}
	if opts.ResponseTopic != "" {
		pkt.Properties.Add(encoding.PropResponseTopic, opts.ResponseTopic)
	}
	if opts.CorrelationData != nil {
		pkt.Properties.Add(encoding.PropCorrelationData, opts.CorrelationData)
	}
	for _, up := range opts.UserProperties {
		pkt.Properties.Add(encoding.PropUserProperty, up)
	}

	if opts.QoS == encoding.QoS0 {
		return 0, c.send(pkt)
	}

	id, err := c.sess.AllocatePacketID()
	if err != nil {
		return 0, err
	}
	pkt.PacketID = id

	if err := c.sess.TrackOutgoingPublish(pkt); err != nil {
		return 0, err
	}

	if err := c.send(pkt); err != nil {
		// The record stays in the session; the message reissues after reconnect
		return id, err
	}
	return id, nil
}

// applyTopicRef resolves the three topic reference forms against the
// outgoing alias table. Alias bounds are checked before any byte is emitted.
func (c *Client) applyTopicRef(pkt *encoding.PublishPacket, ref TopicRef) error {
	switch ref.Kind {
	case TopicRefName:
		pkt.TopicName = ref.Name
		return nil

	case TopicRefMapping:
		if err := c.sess.OutgoingAliases().Set(ref.Name, ref.Alias); err != nil {
			return encoding.ErrTopicAliasInvalid
		}
		pkt.TopicName = ref.Name
		pkt.Properties.Add(encoding.PropTopicAlias, ref.Alias)
		return nil

	case TopicRefAlias:
		if _, ok := c.sess.OutgoingAliases().Resolve(ref.Alias); !ok {
			return session.ErrAliasUnknown
		}
		pkt.TopicName = ""
		pkt.Properties.Add(encoding.PropTopicAlias, ref.Alias)
		return nil

	default:
		return encoding.ErrInvalidTopicName
	}
}

// Subscribe emits a SUBSCRIBE for one filter and returns the packet
// identifier; the matching SUBACK arrives via Poll
func (c *Client) Subscribe(filter string, opts SubscribeOptions) (uint16, error) {
	return c.SubscribeMany([]string{filter}, opts)
}

// SubscribeMany emits one SUBSCRIBE carrying several filters with shared
// options
func (c *Client) SubscribeMany(filters []string, opts SubscribeOptions) (uint16, error) {
	if !c.connected {
		return 0, ErrNotConnected
	}

	id, err := c.sess.AllocatePacketID()
	if err != nil {
		return 0, err
	}

	pkt := &encoding.SubscribePacket{PacketID: id}
	if opts.SubscriptionIdentifier > 0 {
		pkt.Properties.Add(encoding.PropSubscriptionIdentifier, opts.SubscriptionIdentifier)
	}
	for _, filter := range filters {
		pkt.Subscriptions = append(pkt.Subscriptions, encoding.Subscription{
			TopicFilter:       filter,
			QoS:               opts.QoS,
			NoLocal:           opts.NoLocal,
			RetainAsPublished: opts.RetainAsPublished,
			RetainHandling:    opts.RetainHandling,
		})
	}

	if err := c.send(pkt); err != nil {
		return 0, err
	}
	c.sess.TrackSubscription(id, len(filters))
	return id, nil
}

// Unsubscribe emits an UNSUBSCRIBE for one filter; the UNSUBACK arrives via
// Poll
func (c *Client) Unsubscribe(filter string) (uint16, error) {
	if !c.connected {
		return 0, ErrNotConnected
	}

	id, err := c.sess.AllocatePacketID()
	if err != nil {
		return 0, err
	}

	pkt := &encoding.UnsubscribePacket{
		PacketID:     id,
		TopicFilters: []string{filter},
	}

	if err := c.send(pkt); err != nil {
		return 0, err
	}
	c.sess.TrackSubscription(id, 1)
	return id, nil
}

// Ping emits PINGREQ; Poll eventually surfaces the PINGRESP
func (c *Client) Ping() error {
	if !c.connected {
		return ErrNotConnected
	}
	return c.send(&encoding.PingreqPacket{})
}

// ShouldPing reports whether the caller-driven keep-alive timer is due
func (c *Client) ShouldPing(now time.Time) bool {
	return c.keepAlive != nil && c.keepAlive.ShouldPing(now)
}

// KeepAliveDeadline returns the instant by which some packet must be sent,
// or the zero time when no keep-alive was negotiated
func (c *Client) KeepAliveDeadline() time.Time {
	if c.keepAlive == nil || !c.keepAlive.Enabled() {
		return time.Time{}
	}
	return c.keepAlive.NextDeadline()
}

// Republish forces a re-emission of an in-flight record: the PUBLISH with
// DUP set, or the PUBREL when the flow already passed PUBREC
func (c *Client) Republish(packetID uint16) error {
	if !c.connected {
		return ErrNotConnected
	}

	record, ok := c.sess.OutgoingRecordFor(packetID)
	if !ok {
		return session.ErrPacketIDNotFound
	}
	return c.reissueRecord(record)
}

// Rerelease re-emits every PUBREL for records awaiting PUBCOMP, in
// ascending identifier order
func (c *Client) Rerelease() error {
	if !c.connected {
		return ErrNotConnected
	}

	for _, record := range c.sess.PendingReissue() {
		if record.State != qos.StatePubCompPending {
			continue
		}
		if err := c.reissueRecord(record); err != nil {
			return err
		}
	}
	return nil
}

// ReissuePending re-emits every in-flight record in ascending identifier
// order: PUBLISH packets with DUP set, PUBREL packets unchanged. Callers
// run it after reconnecting with session_present=true.
func (c *Client) ReissuePending() error {
	if !c.connected {
		return ErrNotConnected
	}

	for _, record := range c.sess.PendingReissue() {
		if err := c.reissueRecord(record); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) reissueRecord(record *session.OutgoingRecord) error {
	switch qos.Reissue(record.State) {
	case qos.ReissuePublishDup:
		pkt := *record.Publish
		pkt.FixedHeader.DUP = true
		c.log.Debug("reissuing publish", "packet_id", record.PacketID)
		return c.send(&pkt)
	case qos.ReissuePubrel:
		c.log.Debug("reissuing pubrel", "packet_id", record.PacketID)
		return c.send(&encoding.PubrelPacket{PacketID: record.PacketID, ReasonCode: encoding.ReasonSuccess})
	default:
		return nil
	}
}

// Disconnect emits DISCONNECT and closes the connection. An expiry override
// of EndOnDisconnect destroys the session's delivery state.
func (c *Client) Disconnect(opts DisconnectOptions) error {
	if !c.connected {
		return ErrNotConnected
	}

	pkt := &encoding.DisconnectPacket{ReasonCode: opts.ReasonCode}

	expiry := c.sess.SessionExpiryInterval
	if opts.SessionExpiryOverride != nil {
		expiry = uint32(*opts.SessionExpiryOverride)
		pkt.Properties.Add(encoding.PropSessionExpiryInterval, expiry)
		c.sess.SessionExpiryInterval = expiry
	}

	err := c.send(pkt)
	c.connected = false

	if expiry == uint32(SessionExpiryEndOnDisconnect) {
		c.sess.Clear()
	}
	return err
}

// Poll reads packets until one yields a caller-visible event. Suppressed
// duplicates (incoming QoS 2 deduplication) acknowledge silently and read on.
func (c *Client) Poll() (Event, error) {
	for {
		fh, err := c.PollHeader()
		if err != nil {
			return nil, err
		}

		event, err := c.PollBody(fh)
		if err != nil {
			return nil, err
		}
		if event != nil {
			return event, nil
		}
	}
}

// PollHeader reads one fixed header. The two-stage split lets the caller
// overlap header decoding with a timer.
func (c *Client) PollHeader() (*encoding.FixedHeader, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}

	fh, err := encoding.ParseFixedHeader(c.reader)
	if err != nil {
		return nil, c.classifyReadError(err)
	}

	// I5: a packet above our advertised maximum closes the connection
	if c.inboundMaxSize > 0 {
		wireSize := uint32(1+encoding.SizeVariableByteInteger(fh.RemainingLength)) + fh.RemainingLength
		if wireSize > c.inboundMaxSize {
			br := encoding.NewBodyReader(c.reader, fh.RemainingLength, c.provider)
			_ = br.Discard()
			return nil, c.protocolClose(encoding.ReasonPacketTooLarge, encoding.ErrPacketTooLarge)
		}
	}

	return fh, nil
}

// PollBody decodes the body for a header from PollHeader and dispatches it.
// A nil event with nil error means the packet was consumed internally.
func (c *Client) PollBody(fh *encoding.FixedHeader) (Event, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}

	br := encoding.NewBodyReader(c.reader, fh.RemainingLength, c.provider)
	pkt, err := encoding.ReadBody(br, fh)
	if err != nil {
		// Realign the stream on a packet boundary before closing
		_ = br.Discard()
		return nil, c.classifyDecodeError(err)
	}

	return c.handlePacket(pkt)
}

// handlePacket updates the session state machines and maps a packet onto a
// caller event
func (c *Client) handlePacket(pkt encoding.Packet) (Event, error) {
	switch p := pkt.(type) {
	case *encoding.ConnackPacket:
		return ConnackEvent{SessionPresent: p.SessionPresent, ReasonCode: p.ReasonCode}, nil

	case *encoding.PublishPacket:
		return c.handleIncomingPublish(p)

	case *encoding.PubackPacket:
		if _, err := c.sess.TransitionOutgoing(p.PacketID, encoding.PUBACK, p.ReasonCode); err != nil {
			return nil, c.protocolClose(encoding.ReasonProtocolError, err)
		}
		return PublishAcknowledgedEvent{PacketID: p.PacketID, ReasonCode: p.ReasonCode}, nil

	case *encoding.PubrecPacket:
		outcome, err := c.sess.TransitionOutgoing(p.PacketID, encoding.PUBREC, p.ReasonCode)
		if err != nil {
			return nil, c.protocolClose(encoding.ReasonProtocolError, err)
		}
		if outcome == qos.OutcomeSendPubrel {
			pubrel := &encoding.PubrelPacket{PacketID: p.PacketID, ReasonCode: encoding.ReasonSuccess}
			if err := c.send(pubrel); err != nil {
				return nil, err
			}
		}
		return PublishReceivedEvent{PacketID: p.PacketID, ReasonCode: p.ReasonCode}, nil

	case *encoding.PubrelPacket:
		tracked := c.sess.ClearIncoming(p.PacketID)
		pubcomp := &encoding.PubcompPacket{
			PacketID:   p.PacketID,
			ReasonCode: qos.OnIncomingPubrel(tracked),
		}
		if err := c.send(pubcomp); err != nil {
			return nil, err
		}
		return PublishReleasedEvent{PacketID: p.PacketID}, nil

	case *encoding.PubcompPacket:
		if _, err := c.sess.TransitionOutgoing(p.PacketID, encoding.PUBCOMP, p.ReasonCode); err != nil {
			return nil, c.protocolClose(encoding.ReasonProtocolError, err)
		}
		return PublishCompleteEvent{PacketID: p.PacketID, ReasonCode: p.ReasonCode}, nil

	case *encoding.SubackPacket:
		// One reason code per filter in the matching SUBSCRIBE; any other
		// count (or an ack nothing asked for) is a protocol error
		count, ok := c.sess.AckSubscription(p.PacketID)
		if !ok || count != len(p.ReasonCodes) {
			return nil, c.protocolClose(encoding.ReasonProtocolError, encoding.ErrProtocolViolation)
		}
		return SubackEvent{PacketID: p.PacketID, ReasonCodes: p.ReasonCodes}, nil

	case *encoding.UnsubackPacket:
		count, ok := c.sess.AckSubscription(p.PacketID)
		if !ok || count != len(p.ReasonCodes) {
			return nil, c.protocolClose(encoding.ReasonProtocolError, encoding.ErrProtocolViolation)
		}
		return UnsubackEvent{PacketID: p.PacketID, ReasonCodes: p.ReasonCodes}, nil

	case *encoding.PingrespPacket:
		if c.keepAlive != nil {
			c.keepAlive.OnPingresp(time.Now())
		}
		return PingrespEvent{}, nil

	case *encoding.DisconnectPacket:
		c.connected = false
		c.log.Warn("server disconnect", "reason", p.ReasonCode)
		return DisconnectEvent{
			ReasonCode:   p.ReasonCode,
			ReasonString: p.Properties.String(encoding.PropReasonString),
		}, nil

	default:
		// CONNECT, SUBSCRIBE, UNSUBSCRIBE, PINGREQ and AUTH never arrive at
		// a client that does not use extended authentication
		return nil, c.protocolClose(encoding.ReasonProtocolError, encoding.ErrProtocolViolation)
	}
}

// handleIncomingPublish resolves aliases, deduplicates QoS 2 and emits the
// acknowledgment before the message surfaces
func (c *Client) handleIncomingPublish(p *encoding.PublishPacket) (Event, error) {
	if alias := p.TopicAlias(); alias != 0 {
		aliases := c.sess.IncomingAliases()
		if p.TopicName != "" {
			if err := aliases.Set(p.TopicName, alias); err != nil {
				return nil, c.protocolClose(encoding.ReasonTopicAliasInvalid, err)
			}
		} else {
			name, ok := aliases.Resolve(alias)
			if !ok {
				return nil, c.protocolClose(encoding.ReasonProtocolError, session.ErrAliasUnknown)
			}
			p.TopicName = name
		}
	}

	action, err := qos.OnIncomingPublish(p.FixedHeader.QoS, c.sess.IncomingTracked(p.PacketID))
	if err != nil {
		return nil, c.protocolClose(encoding.ReasonMalformedPacket, err)
	}

	if action.Track {
		c.sess.TrackIncoming(p.PacketID)
	}

	switch action.Respond {
	case encoding.PUBACK:
		ack := &encoding.PubackPacket{PacketID: p.PacketID, ReasonCode: encoding.ReasonSuccess}
		if err := c.send(ack); err != nil {
			return nil, err
		}
	case encoding.PUBREC:
		rec := &encoding.PubrecPacket{PacketID: p.PacketID, ReasonCode: encoding.ReasonSuccess}
		if err := c.send(rec); err != nil {
			return nil, err
		}
	}

	if !action.Deliver {
		c.log.Debug("duplicate publish suppressed", "packet_id", p.PacketID)
		return nil, nil
	}
	return PublishEvent{Publish: p}, nil
}

// send frames a packet, enforces the server's maximum packet size and
// pushes the bytes through the Write capability
func (c *Client) send(pkt encoding.Packet) error {
	data, err := encoding.EncodeToBytes(pkt)
	if err != nil {
		return err
	}

	if limit := c.sess.MaximumPacketSize; limit > 0 && uint32(len(data)) > limit {
		return encoding.ErrPacketTooLarge
	}

	if err := c.writeAll(data); err != nil {
		return &RecoveryError{Err: err}
	}
	if err := c.writer.Flush(); err != nil {
		return &RecoveryError{Err: err}
	}

	if c.keepAlive != nil {
		c.keepAlive.Touch(time.Now())
	}
	return nil
}

func (c *Client) writeAll(data []byte) error {
	for len(data) > 0 {
		n, err := c.writer.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return encoding.ErrWriteZero
		}
		data = data[n:]
	}
	return nil
}

// protocolClose drains nothing further, emits the mapped DISCONNECT and
// marks the connection dead
func (c *Client) protocolClose(reason encoding.ReasonCode, cause error) error {
	disconnect := &encoding.DisconnectPacket{ReasonCode: reason}
	if data, err := encoding.EncodeToBytes(disconnect); err == nil {
		_ = c.writeAll(data)
		_ = c.writer.Flush()
	}
	c.connected = false
	c.log.Warn("closing connection", "reason", reason, "cause", cause)
	return &ProtocolCloseError{ReasonCode: reason, Err: cause}
}

// classifyDecodeError maps codec failures onto the wire-visible close
// reasons; transport and buffer failures surface as recovery instead
func (c *Client) classifyDecodeError(err error) error {
	var bufErr *encoding.BufferError
	if errors.As(err, &bufErr) {
		c.connected = false
		return &RecoveryError{Err: err}
	}
	if errors.Is(err, encoding.ErrUnexpectedEOF) {
		c.connected = false
		return &RecoveryError{Err: err}
	}

	switch reason := encoding.GetReasonCode(err); reason {
	case encoding.ReasonMalformedPacket, encoding.ReasonProtocolError,
		encoding.ReasonPacketTooLarge, encoding.ReasonTopicAliasInvalid,
		encoding.ReasonTopicNameInvalid, encoding.ReasonTopicFilterInvalid,
		encoding.ReasonUnsupportedProtocolVersion:
		return c.protocolClose(reason, err)
	default:
		return c.protocolClose(encoding.ReasonMalformedPacket, err)
	}
}

// classifyReadError handles failures before a body reader exists
func (c *Client) classifyReadError(err error) error {
	switch {
	case errors.Is(err, encoding.ErrInvalidReservedType),
		errors.Is(err, encoding.ErrInvalidFlags),
		errors.Is(err, encoding.ErrInvalidQoS),
		errors.Is(err, encoding.ErrMalformedVariableByteInteger),
		errors.Is(err, encoding.ErrNonMinimalVariableByteInteger):
		return c.protocolClose(encoding.ReasonMalformedPacket, err)
	default:
		c.connected = false
		return &RecoveryError{Err: err}
	}
}
