// Package errs defines the error kinds surfaced by a peerdrop session.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds for the different categories of failures. Concrete error
// types below match these through errors.Is.
var (
	ErrIdentity        = errors.New("identity allocation failed")
	ErrTimeout         = errors.New("connection timeout")
	ErrConnection      = errors.New("connection error")
	ErrTransferAborted = errors.New("transfer aborted")
	ErrInvalidMessage  = errors.New("invalid message")
)

// IdentityError reports a failure to obtain a peer identity from the broker.
type IdentityError struct {
	Broker string
	Err    error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("failed to obtain a peer identity from broker %s: %v", e.Broker, e.Err)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

func (e *IdentityError) Is(target error) bool {
	return target == ErrIdentity
}

// TimeoutError reports a connection attempt that never reached the
// connected state.
type TimeoutError struct {
	PeerID string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("connection to peer %s timed out after %s: check that the peer is reachable and that NAT traversal (STUN/TURN) is not blocked", e.PeerID, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ConnectionError reports a fault raised by the underlying transport.
type ConnectionError struct {
	PeerID string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to peer %s failed: %v", e.PeerID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// TransferError reports a transfer that ended before completion.
type TransferError struct {
	FileName string
	Err      error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer of %q aborted: %v", e.FileName, e.Err)
	}
	return fmt.Sprintf("transfer of %q aborted", e.FileName)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Is(target error) bool {
	return target == ErrTransferAborted
}

// MessageError reports a wire message that failed decoding or validation.
type MessageError struct {
	Reason string
	Err    error
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid message: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid message: %s", e.Reason)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

func (e *MessageError) Is(target error) bool {
	return target == ErrInvalidMessage
}

// Helper constructors.

func NewIdentityError(broker string, err error) error {
	return &IdentityError{Broker: broker, Err: err}
}

func NewTimeoutError(peerID string, after time.Duration) error {
	return &TimeoutError{PeerID: peerID, After: after}
}

func NewConnectionError(peerID string, err error) error {
	return &ConnectionError{PeerID: peerID, Err: err}
}

func NewTransferError(fileName string, err error) error {
	return &TransferError{FileName: fileName, Err: err}
}

func NewMessageError(reason string, err error) error {
	return &MessageError{Reason: reason, Err: err}
}
