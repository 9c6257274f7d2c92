package client

import (
	"errors"
	"fmt"

	"github.com/strandmq/strand/encoding"
)

var (
	// ErrNotConnected indicates an operation before Connect or after the
	// connection closed
	ErrNotConnected = errors.New("client is not connected")

	// ErrAlreadyConnected indicates a second Connect on a live engine
	ErrAlreadyConnected = errors.New("client is already connected")

	// ErrQoSNotSupported indicates a publish above the server's maximum QoS
	ErrQoSNotSupported = errors.New("QoS exceeds server maximum")

	// ErrRetainNotSupported indicates a retained publish to a server that
	// declared retain unavailable
	ErrRetainNotSupported = errors.New("server does not support retained messages")

	// ErrRecoveryRequired indicates the connection is unusable; the caller
	// must drop it and reconnect. The session survives for resumption.
	ErrRecoveryRequired = errors.New("connection unusable, drop and reconnect")
)

// ConnectError is returned when the server refuses the CONNECT
type ConnectError struct {
	ReasonCode   encoding.ReasonCode
	ReasonString string
}

func (e *ConnectError) Error() string {
	if e.ReasonString != "" {
		return fmt.Sprintf("connect refused: %s: %s", e.ReasonCode, e.ReasonString)
	}
	return fmt.Sprintf("connect refused: %s", e.ReasonCode)
}

// RecoveryError wraps a transport or buffer failure. The QoS 1/2 records
// are never dropped on this path; they stay in the session for reissue.
type RecoveryError struct {
	Err error
}

func (e *RecoveryError) Error() string {
	return "recovery required: " + e.Err.Error()
}

func (e *RecoveryError) Unwrap() error { return e.Err }

func (e *RecoveryError) Is(target error) bool { return target == ErrRecoveryRequired }

// ProtocolCloseError reports that the engine closed the connection after a
// decode failure or protocol violation, naming the DISCONNECT reason it sent
type ProtocolCloseError struct {
	ReasonCode encoding.ReasonCode
	Err        error
}

func (e *ProtocolCloseError) Error() string {
	return fmt.Sprintf("connection closed with %s: %v", e.ReasonCode, e.Err)
}

func (e *ProtocolCloseError) Unwrap() error { return e.Err }
