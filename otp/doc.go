// Package otp generates and verifies short numeric one-time codes and stores the
// per-user pending record that drives second-factor lockout.
//
// # Architecture boundaries
//
// Code generation and comparison are pure functions over an explicit clock value.
// The [Store] implementations own atomic attempt counting; the lockout policy (max
// attempts, lock window) is supplied by the caller.
//
// # What this package must NOT do
//
//   - Deliver codes. Dispatch belongs to the caller's notifier.
//   - Log codes or compare them in variable time.
//   - Import any other regAuth package.
package otp
