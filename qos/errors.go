package qos

import "errors"

var (
	// ErrUnexpectedPacket indicates an acknowledgment that does not fit the
	// record's current state
	ErrUnexpectedPacket = errors.New("unexpected packet for delivery state")

	// ErrInvalidQoS indicates a QoS level outside 0..2
	ErrInvalidQoS = errors.New("invalid QoS level")

	// ErrRecordNotFound indicates no delivery record exists for the packet identifier
	ErrRecordNotFound = errors.New("no delivery record for packet identifier")
)
