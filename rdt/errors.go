package rdt

import "errors"

// ErrUnknownMode is returned by NewSession when Mode is not one of the
// recognised constants.
var ErrUnknownMode = errors.New("rdt: unknown mode")

// ErrEmptyPayload is returned by Send when the caller passes a zero-length
// buffer; the session has nothing to transmit.
var ErrEmptyPayload = errors.New("rdt: empty payload")

// ErrHandshakeTimeout is returned by Send/Recv when HandshakeAttempts is set
// and the peer never completes the CONNECT handshake within that many
// attempts.
var ErrHandshakeTimeout = errors.New("rdt: handshake timed out")
