// Package contentauth is the authentication and session engine of the
// content backend: Argon2id credential checks, asymmetrically signed access
// tokens and a revocable Redis session layer.
//
// A token authenticates only while both hold: its signature and expiry
// verify, and a session record for its jti still exists in Redis. Removing
// the record revokes the token.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// contentauth is the public surface. It exposes [Engine], [Builder],
// [Config], the [UserStore] boundary and value types. Flow orchestration and
// audit dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Return raw backend or cryptographic errors to HTTP clients. Use
//     [PublicMessage].
//   - Compare passwords other than through the password package.
//   - Remove sessions on Logout or ChangePassword. Revocation is explicit
//     through [Engine.Revoke] and [Engine.RevokeAll].
package contentauth
