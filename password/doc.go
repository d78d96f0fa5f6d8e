// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and key are unpadded standard base64. Padded input is accepted on
// verification.
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful login. [Pool] bounds how many
// derivations run concurrently.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. It has no password policy:
// any byte string is a valid input.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other contentauth package.
//   - Log plaintext passwords or hashes.
package password
