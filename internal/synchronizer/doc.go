// Package synchronizer keeps a replica converged with the engine.
//
// Ownership boundary:
// - decoding inbound payloads and dispatching them to the replica
// - the full-state request guard and the fixed-rate poll loop
// - the consumer API used by front-ends (Client)
//
// The transport owns reachability; the replica owns the tree and its
// staleness. This package only decides when to ask for a snapshot.
package synchronizer
