// Package replica holds the front-end's copy of the engine state.
//
// Ownership boundary:
// - the replicated element tree and the last applied update id
// - the volatile telemetry record and consumer-owned extra state
// - staleness tracking and property resolution for consumers
//
// Every method is safe for concurrent use. Reads take a shared lock and never
// wait on the transport.
package replica
