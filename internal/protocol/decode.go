package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Field counts after the update type tag. addedChild's last field is a tree
// fragment and is never split.
const (
	propertyChangedFields = 5 // id;uuid;tag;property;value
	removedChildFields    = 3 // id;uuid;tag
	addedChildFields      = 5 // id;parentUUID;parentTag;index;fragment
)

// Decode parses one text-framed inbound payload into a Message. Malformed
// payloads return an error wrapping ErrMalformed, ErrFieldCount,
// ErrUnknownAddress or ErrUnknownUpdateType; callers drop them.
func Decode(raw []byte) (Message, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrEmptyPayload
	}
	address, data, _ := strings.Cut(string(raw), ":")
	switch address {
	case AddrPluginStarted:
		return PluginStarted{}, nil
	case AddrPluginAlive:
		return PluginAlive{}, nil
	case AddrStateUpdate:
		u, err := decodeUpdate(data)
		if err != nil {
			return nil, err
		}
		return StateUpdate{Update: u}, nil
	case AddrFullState:
		return decodeFullState(data)
	case AddrVolatileString:
		rec, err := ParseVolatile(data)
		if err != nil {
			return nil, err
		}
		return VolatileState{Record: rec}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAddress, address)
	}
}

func decodeUpdate(data string) (Update, error) {
	kind, rest, ok := strings.Cut(data, ";")
	if !ok {
		return nil, fmt.Errorf("%w: state update without id", ErrMalformed)
	}
	switch kind {
	case UpdatePropertyChanged:
		parts := strings.Split(rest, ";")
		if len(parts) != propertyChangedFields {
			return nil, fmt.Errorf("%w: %s has %d fields", ErrFieldCount, kind, len(parts))
		}
		id, err := parseID(parts[0])
		if err != nil {
			return nil, err
		}
		return PropertyChanged{
			UpdateID: id,
			UUID:     parts[1],
			Tag:      strings.ToLower(parts[2]),
			Property: strings.ToLower(parts[3]),
			Value:    parts[4],
		}, nil
	case UpdateRemovedChild:
		parts := strings.Split(rest, ";")
		if len(parts) != removedChildFields {
			return nil, fmt.Errorf("%w: %s has %d fields", ErrFieldCount, kind, len(parts))
		}
		id, err := parseID(parts[0])
		if err != nil {
			return nil, err
		}
		return RemovedChild{
			UpdateID: id,
			UUID:     parts[1],
			Tag:      strings.ToLower(parts[2]),
		}, nil
	case UpdateAddedChild:
		parts := strings.SplitN(rest, ";", addedChildFields)
		if len(parts) != addedChildFields {
			return nil, fmt.Errorf("%w: %s has %d fields", ErrFieldCount, kind, len(parts))
		}
		id, err := parseID(parts[0])
		if err != nil {
			return nil, err
		}
		index, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil {
			return nil, fmt.Errorf("%w: child index %q", ErrMalformed, parts[3])
		}
		return AddedChild{
			UpdateID:   id,
			ParentUUID: parts[1],
			ParentTag:  strings.ToLower(parts[2]),
			Index:      index,
			Fragment:   parts[4],
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUpdateType, kind)
	}
}

func decodeFullState(data string) (Message, error) {
	rawID, snapshot, ok := strings.Cut(data, ";")
	if !ok {
		return nil, fmt.Errorf("%w: full state without snapshot", ErrMalformed)
	}
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return FullState{UpdateID: id, Snapshot: snapshot}, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: update id %q", ErrMalformed, raw)
	}
	return id, nil
}
