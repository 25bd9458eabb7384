// Package directory provides [regAuth.UserDirectory] implementations.
//
// [Memory] keeps accounts in process and suits tests and single-node development.
// [Postgres] stores accounts in a users table managed by the embedded goose migrations
// applied through [Migrate].
//
// Usernames and email addresses are unique case-insensitively in both stores. Lookups
// of unknown accounts return [regAuth.ErrUserNotFound]; duplicate registrations return
// [regAuth.ErrAccountExists]. Postgres failures are wrapped in
// [regAuth.ErrBackendUnavailable].
package directory
