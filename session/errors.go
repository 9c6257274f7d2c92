package session

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrStoreClosed          = errors.New("store is closed")

	// ErrReceiveMaximumExceeded indicates the outgoing in-flight table is full
	ErrReceiveMaximumExceeded = errors.New("outgoing in-flight table full (receive maximum exceeded)")

	// ErrPacketIDInUse indicates an identifier already has an in-flight record
	ErrPacketIDInUse = errors.New("packet identifier already in flight")

	// ErrPacketIDNotFound indicates no in-flight record for an identifier
	ErrPacketIDNotFound = errors.New("packet identifier not in flight")

	// ErrAliasZero indicates topic alias 0, which is reserved
	ErrAliasZero = errors.New("topic alias 0 is reserved")

	// ErrAliasExceedsMaximum indicates a topic alias above the negotiated maximum
	ErrAliasExceedsMaximum = errors.New("topic alias exceeds negotiated maximum")

	// ErrAliasUnknown indicates an alias used before a mapping was established
	ErrAliasUnknown = errors.New("topic alias has no established mapping")

	// ErrInvalidSnapshot indicates snapshot bytes that cannot be restored
	ErrInvalidSnapshot = errors.New("invalid session snapshot")
)
