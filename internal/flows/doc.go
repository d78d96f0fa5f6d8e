// Package flows contains the orchestration for every Engine operation.
//
// Each flow function (RunLogin, RunAuthenticate, RunChangePassword, ...)
// accepts a typed dependency struct and returns a result. The root Engine
// builds the dependency structs once and delegates to a Service.
//
// # Architecture boundaries
//
// Flows coordinate the password pool, token issuer and verifier, session
// store, audit and metrics. They do NOT own any of these resources.
// Ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import contentauth (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through dependency functions.
package flows
