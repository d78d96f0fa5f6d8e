// Package middleware adapts contentauth.Engine to net/http.
//
// # Handlers
//
//   - [RequireToken] reads the `token` request header, authenticates it and
//     places the resulting identity in the request context.
//   - [ClientIP] records the caller address for audit events.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Every accept or
// reject decision comes from Engine.Authenticate; status codes and bodies are
// derived from the returned error with contentauth.PublicMessage.
//
// # What this package must NOT do
//
//   - Parse or verify tokens directly.
//   - Access Redis.
//   - Echo error causes to the client.
package middleware
