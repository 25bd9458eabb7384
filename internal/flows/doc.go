// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunVerifyOTP, RunRefresh, etc.) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. Engine builds one [Service] at Build time and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user directory, token manager, OTP and
// revocation stores, the notifier, audit and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import regAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
