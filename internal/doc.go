// Package internal holds the private building blocks of regAuth.
//
// # Sub-packages
//
//   - app: process wiring for the regauth binary (config files, logging, Redis, Postgres)
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - metrics: lock-free counters and latency histograms
//   - security: security posture report assembly
package internal
