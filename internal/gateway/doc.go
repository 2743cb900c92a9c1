// Package gateway is the live side of support chat: it binds socket
// connections to channels, turns inbound events into store mutations and
// fans the committed results out to every bound connection.
//
// A connection moves Unbound -> Bound(channel) -> Closed. Channels are either
// one user ("user:<id>") or the shared admin pool. Delivery is at most once
// and best effort; a client that was not bound at emission time catches up
// through the history endpoints.
//
// Per-event failures (bad credential, bad payload, store outage, throttling)
// are contained to that event: they are logged and counted, the connection
// stays open and nothing is written back to the peer.
package gateway
