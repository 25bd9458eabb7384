// Package security derives the security posture report of a built engine from its
// effective configuration and store backends.
//
// # What this package must NOT do
//
//   - Import regAuth or read configuration on its own. The engine passes every input.
package security
