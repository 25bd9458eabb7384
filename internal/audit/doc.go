// Package audit implements async event dispatching for authentication outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, fan-out, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, user, identifier, client address
//     and the true failure reason.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit. That belongs to the Engine and flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import regAuth or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
