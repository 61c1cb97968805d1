// Package transport provides the half-duplex byte transport chamber codecs talk
// through.
//
// A Link is a raw serial port or TCP stream. A Session owns exactly one Link
// and serializes every request/response exchange on it: only one request is on
// the wire at any time, and the next is not written until the previous reply is
// complete or its timeout expired.
//
// # Leases
//
// Session.Do acquires an exclusive lease for the duration of a callback. Frames
// exchanged with the context handed to the callback reuse the lease, so a
// multi-request operation such as a program write cannot interleave with
// requests from other goroutines. Exchange called outside a lease takes a
// lease for that single request.
//
// If the Link is closed when a lease starts it is opened for the lease and
// closed again when the lease ends, on every exit path. Call Session.Open to
// keep the Link open across leases instead.
//
// # Framing
//
// The transport does not know the wire protocol. Each exchange carries a Framer
// supplied by the codec that reports when the bytes received so far form a
// complete reply.
package transport
