package client

import (
	"github.com/strandmq/strand/encoding"
	"github.com/strandmq/strand/pkg/logger"
	"github.com/strandmq/strand/session"
)

// KeepAlive is the advertised ping interval. Zero on the wire means no
// keep-alive, so Infinite encodes as 0.
type KeepAlive uint16

// KeepAliveInfinite disables the keep-alive mechanism
const KeepAliveInfinite KeepAlive = 0

// KeepAliveSeconds builds a keep-alive of s seconds
func KeepAliveSeconds(s uint16) KeepAlive { return KeepAlive(s) }

// SessionExpiry is the session expiry interval. 0 ends the session at
// disconnect, 0xFFFFFFFF never expires it.
type SessionExpiry uint32

const (
	SessionExpiryEndOnDisconnect SessionExpiry = 0
	SessionExpiryNeverEnd        SessionExpiry = 0xFFFFFFFF
)

// SessionExpirySeconds builds an expiry interval of s seconds
func SessionExpirySeconds(s uint32) SessionExpiry { return SessionExpiry(s) }

// Will configures the will message registered at CONNECT
type Will struct {
	QoS                   encoding.QoS
	Retain                bool
	Topic                 string
	Payload               []byte
	DelayInterval         uint32
	IsPayloadUTF8         bool
	MessageExpiryInterval uint32 // 0 means no expiry property
	ContentType           string
	ResponseTopic         string
	CorrelationData       []byte
}

// Options configures the engine itself; zero values select the hosted-
// environment defaults
type Options struct {
	// Session resumes a previously persisted session; nil starts fresh
	Session *session.Session

	// Logger receives engine diagnostics; nil discards them
	Logger logger.Logger

	// BufferProvider supplies storage for received payloads; nil uses the heap
	BufferProvider encoding.BufferProvider

	// Rng seeds packet identifiers; nil uses math/rand
	Rng Rng
}

// ConnectOptions parameterizes the CONNECT packet
type ConnectOptions struct {
	ClientID   string
	CleanStart bool
	KeepAlive  KeepAlive

	SessionExpiry SessionExpiry

	// Flow-control bounds advertised to the server. Zero leaves the
	// property absent (protocol defaults apply).
	ReceiveMaximum    uint16
	MaximumPacketSize uint32
	TopicAliasMaximum uint16

	RequestResponseInformation bool
	RequestProblemInformation  bool

	Will *Will

	Username string
	Password []byte

	UserProperties []encoding.UTF8Pair
}

// ConnectResult reports the outcome of a successful CONNECT/CONNACK handshake
type ConnectResult struct {
	SessionPresent   bool
	ReasonCode       encoding.ReasonCode
	AssignedClientID string
}

// TopicRefKind selects how a PUBLISH names its topic
type TopicRefKind byte

const (
	// TopicRefName carries the topic name only
	TopicRefName TopicRefKind = iota

	// TopicRefMapping carries the name and registers (or replaces) an alias
	TopicRefMapping

	// TopicRefAlias carries only a previously established alias
	TopicRefAlias
)

// TopicRef is the topic reference of an outgoing PUBLISH
type TopicRef struct {
	Kind  TopicRefKind
	Name  string
	Alias uint16
}

// TopicName references a topic by name
func TopicName(name string) TopicRef {
	return TopicRef{Kind: TopicRefName, Name: name}
}

// TopicMapping references a topic by name and binds it to an alias
func TopicMapping(name string, alias uint16) TopicRef {
	return TopicRef{Kind: TopicRefMapping, Name: name, Alias: alias}
}

// TopicAlias references a topic through an established alias
func TopicAlias(alias uint16) TopicRef {
	return TopicRef{Kind: TopicRefAlias, Alias: alias}
}

// PublishOptions parameterizes an outgoing PUBLISH. Zero-valued optional
// fields leave the corresponding property absent.
type PublishOptions struct {
	Topic  TopicRef
	QoS    encoding.QoS
	Retain bool

	IsPayloadUTF8         bool
	MessageExpiryInterval uint32
	ContentType           string
	ResponseTopic         string
	CorrelationData       []byte
	UserProperties        []encoding.UTF8Pair
}

// SubscribeOptions parameterizes one subscription
type SubscribeOptions struct {
	QoS               encoding.QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    encoding.RetainHandling

	// SubscriptionIdentifier is attached as a property when non-zero
	SubscriptionIdentifier uint32
}

// DisconnectOptions parameterizes the DISCONNECT packet
type DisconnectOptions struct {
	ReasonCode encoding.ReasonCode

	// SessionExpiryOverride replaces the session expiry interval at
	// disconnect when non-nil
	SessionExpiryOverride *SessionExpiry
}
