// Package session provides the Redis-backed token session store.
//
// # Layout
//
// Each issued token has one key, <prefix>:<jti>, holding a compact binary
// [Record] with a Redis TTL equal to the token lifetime. A per-user set,
// <prefix>:u:<user>, indexes live token ids so all of a user's sessions can be
// dropped together.
//
// # Failure semantics
//
// Every call runs under the configured per-operation timeout. Connection
// failures and timeouts wrap [ErrUnavailable]; an absent session is a normal
// result, not an error.
//
// # What this package must NOT do
//
//   - Import contentauth or jwt (no upward imports).
//   - Interpret tokens or make authorization decisions.
package session
