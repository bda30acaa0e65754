// Package transport moves raw payloads between the front-end and the engine.
//
// Ownership boundary:
// - connection lifecycle (UDP listener, WebSocket reconnect loop)
// - engine reachability (heartbeat or open connection)
// - fire-and-forget command delivery
//
// Inbound payloads are handed to a Sink in the text framing regardless of
// mode. Decoding belongs to the caller.
package transport
