package mcpquic

import (
	"errors"

	"github.com/quic-go/quic-go"
)

// StreamErrorProtocolConfusion resets a stream that did not open with the
// magic bytes.
const StreamErrorProtocolConfusion quic.StreamErrorCode = 0x02

// Connection close codes.
const (
	ConnErrorNoError           quic.ApplicationErrorCode = 0x00
	ConnErrorUnsupportedALPN   quic.ApplicationErrorCode = 0x01
	ConnErrorProtocolViolation quic.ApplicationErrorCode = 0x03
	ConnErrorMCPDisabled       quic.ApplicationErrorCode = 0x10
)

var (
	ErrInvalidMagicBytes = errors.New("invalid magic bytes: expected " + MagicBytesMCP)
	ErrUnsupportedALPN   = errors.New("ALPN negotiation failed: " + ALPNProtocolMCP + " not selected")
)
