// Package enginesim plays the engine side of the sync protocol.
//
// It owns an authoritative state tree, numbers every edit with a monotonically
// increasing update id and broadcasts the matching wire message to every
// connected front-end. It answers /get_state requests and applies a small set
// of parameter commands so front-ends can be exercised without the sampler.
package enginesim
