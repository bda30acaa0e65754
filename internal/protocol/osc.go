package protocol

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"
)

// EncodeOSC builds a datagram message with typed OSC arguments. Go ints are
// sent as int32, the engine's native integer width.
func EncodeOSC(address string, values ...any) (*osc.Message, error) {
	msg := osc.NewMessage(address)
	for i, v := range values {
		arg, err := oscArg(v)
		if err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
		msg.Append(arg)
	}
	return msg, nil
}

func oscArg(v any) (any, error) {
	switch x := v.(type) {
	case string, int32, int64, float32, float64, bool, []byte:
		return x, nil
	case int:
		return int32(x), nil
	case uint32:
		return int64(x), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// NormalizeOSC rewrites an inbound OSC message into the text framing so the
// same Decode path serves both transports.
func NormalizeOSC(msg *osc.Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrEmptyPayload
	}
	values := make([]any, 0, len(msg.Arguments))
	for _, arg := range msg.Arguments {
		if arg == nil {
			values = append(values, "")
			continue
		}
		values = append(values, arg)
	}
	return EncodeCommand(msg.Address, values...)
}

// FlattenPacket returns every message in p, descending into bundles.
func FlattenPacket(p osc.Packet) ([]*osc.Message, error) {
	switch x := p.(type) {
	case *osc.Message:
		return []*osc.Message{x}, nil
	case *osc.Bundle:
		out := append([]*osc.Message{}, x.Messages...)
		for _, b := range x.Bundles {
			nested, err := FlattenPacket(b)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPacket, p)
	}
}
