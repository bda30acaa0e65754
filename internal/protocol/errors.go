package protocol

import "errors"

var (
	ErrEmptyPayload      = errors.New("protocol: empty payload")
	ErrUnknownAddress    = errors.New("protocol: unknown address")
	ErrUnknownUpdateType = errors.New("protocol: unknown update type")
	ErrMalformed         = errors.New("protocol: malformed payload")
	ErrFieldCount        = errors.New("protocol: unexpected field count")
	ErrUnsupportedValue  = errors.New("protocol: unsupported value type")
	ErrUnsupportedPacket = errors.New("protocol: unsupported packet")
)
