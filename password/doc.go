// Package password implements password hashing, verification and the strength policy.
//
// # Output format
//
// New hashes use bcrypt by default ($2a$ prefix). Argon2id hashes are encoded in PHC
// string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.Verify] dispatches on the prefix, so stored hashes keep verifying after the
// configured algorithm changes. [Hasher.NeedsUpgrade] reports hashes produced by a
// different algorithm or weaker parameters so the caller can re-hash on the next
// successful login.
//
// # Policy
//
// [ValidateStrength] requires at least 12 characters with an uppercase letter, a
// lowercase letter, a digit and a symbol, and reports every violated rule together.
//
// # Architecture boundaries
//
// This package owns hashing, verification and strength classification only. Account
// lookup and error translation belong to the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other regAuth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
