// Package jwt issues and verifies asymmetrically signed access tokens.
//
// Keys are RSA (RS256) or Ed25519 (EdDSA), supplied as PEM or base64-wrapped
// PEM and parsed once at construction. The claim set is fixed: sub, jti, iat,
// exp and an optional iss. [Verifier.Verify] decodes it strictly and checks
// expiry against its own clock, so a token is rejected once now >= exp.
package jwt
