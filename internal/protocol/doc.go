// Package protocol owns the engine<->replica wire contract.
//
// Ownership boundary:
// - inbound message variants and the single decode switch
// - text framing (address:field;field) used by the streaming transport
// - OSC datagram encoding and normalization into text framing
// - volatile state string codec
//
// Fields that carry tree fragments (addedChild, full_state) are always the
// trailing field and may contain ';'. Decoders split those messages only up
// to the fixed leading field count.
package protocol
