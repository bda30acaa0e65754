package protocol

// EncodeCommand frames address and values as "address:v1;v2;...".
func EncodeCommand(address string, values ...any) ([]byte, error) {
	data, err := FormatValues(values)
	if err != nil {
		return nil, err
	}
	return frameText(address, data), nil
}

// EncodeAddress frames an address-only message such as /plugin_alive.
func EncodeAddress(address string) []byte {
	return []byte(address)
}

// UpdateValues lists the /state_update fields of u in wire order.
func UpdateValues(u Update) []any {
	switch x := u.(type) {
	case PropertyChanged:
		return []any{UpdatePropertyChanged, x.UpdateID, x.UUID, x.Tag, x.Property, x.Value}
	case AddedChild:
		return []any{UpdateAddedChild, x.UpdateID, x.ParentUUID, x.ParentTag, x.Index, x.Fragment}
	case RemovedChild:
		return []any{UpdateRemovedChild, x.UpdateID, x.UUID, x.Tag}
	default:
		return nil
	}
}

// EncodeUpdate frames an incremental update the way the engine emits it.
func EncodeUpdate(u Update) []byte {
	return mustEncode(AddrStateUpdate, UpdateValues(u)...)
}

// EncodeFullState frames a snapshot reply. The snapshot is written verbatim
// as the trailing field.
func EncodeFullState(updateID int64, snapshot string) []byte {
	return mustEncode(AddrFullState, updateID, snapshot)
}

func EncodeVolatile(rec VolatileRecord) []byte {
	return mustEncode(AddrVolatileString, rec.String())
}

// mustEncode is for value lists built in this package from supported types.
func mustEncode(address string, values ...any) []byte {
	out, err := EncodeCommand(address, values...)
	if err != nil {
		panic(err)
	}
	return out
}

func frameText(address, data string) []byte {
	out := make([]byte, 0, len(address)+1+len(data))
	out = append(out, address...)
	out = append(out, ':')
	out = append(out, data...)
	return out
}
