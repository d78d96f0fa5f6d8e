package jwt

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var pemPrefix = []byte("-----BEGIN")

// decodeKeyMaterial accepts either PEM text or base64-wrapped PEM, which is
// how keys travel through single-line environment variables.
func decodeKeyMaterial(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrKey)
	}
	if bytes.HasPrefix(trimmed, pemPrefix) {
		return trimmed, nil
	}

	compact := strings.Join(strings.Fields(string(trimmed)), "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: key is neither PEM nor base64 PEM", ErrKey)
	}
	decoded = bytes.TrimSpace(decoded)
	if !bytes.HasPrefix(decoded, pemPrefix) {
		return nil, fmt.Errorf("%w: decoded key is not PEM", ErrKey)
	}
	return decoded, nil
}

// parseSigningKey returns the private key and the algorithm it implies:
// RS256 for RSA, EdDSA for Ed25519.
func parseSigningKey(raw []byte) (any, jwt.SigningMethod, error) {
	pemBytes, err := decodeKeyMaterial(raw)
	if err != nil {
		return nil, nil, err
	}

	if key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes); err == nil {
		if key.N.BitLen() < minRSABits {
			return nil, nil, fmt.Errorf("%w: rsa key shorter than %d bits", ErrKey, minRSABits)
		}
		return key, jwt.SigningMethodRS256, nil
	}

	parsed, err := jwt.ParseEdPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unsupported private key", ErrKey)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unsupported private key type", ErrKey)
	}
	return edKey, jwt.SigningMethodEdDSA, nil
}

func parseVerifyKey(raw []byte) (any, jwt.SigningMethod, error) {
	pemBytes, err := decodeKeyMaterial(raw)
	if err != nil {
		return nil, nil, err
	}

	if key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes); err == nil {
		if key.N.BitLen() < minRSABits {
			return nil, nil, fmt.Errorf("%w: rsa key shorter than %d bits", ErrKey, minRSABits)
		}
		return key, jwt.SigningMethodRS256, nil
	}

	parsed, err := jwt.ParseEdPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unsupported public key", ErrKey)
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unsupported public key type", ErrKey)
	}
	return edKey, jwt.SigningMethodEdDSA, nil
}

const minRSABits = 2048

// KeyAlgorithm selects the key type produced by GenerateKeyPair.
type KeyAlgorithm string

const (
	KeyRSA     KeyAlgorithm = "rsa"
	KeyEd25519 KeyAlgorithm = "ed25519"
)

// KeyPair holds PEM-encoded key material.
type KeyPair struct {
	PrivatePEM []byte
	PublicPEM  []byte
}

// Base64 returns both halves base64-wrapped, the form expected in
// ACCESS_TOKEN_PRIVATE_KEY and ACCESS_TOKEN_PUBLIC_KEY.
func (k KeyPair) Base64() (private, public string) {
	return base64.StdEncoding.EncodeToString(k.PrivatePEM), base64.StdEncoding.EncodeToString(k.PublicPEM)
}

// GenerateKeyPair creates a fresh signing key pair. RSA keys are 2048 bits.
func GenerateKeyPair(alg KeyAlgorithm) (KeyPair, error) {
	var (
		priv any
		pub  any
	)

	switch alg {
	case KeyRSA:
		key, err := rsa.GenerateKey(rand.Reader, minRSABits)
		if err != nil {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrKey, err)
		}
		priv, pub = key, &key.PublicKey
	case KeyEd25519, "":
		p, s, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrKey, err)
		}
		priv, pub = s, p
	default:
		return KeyPair{}, fmt.Errorf("%w: unknown algorithm %q", ErrKey, alg)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrKey, err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrKey, err)
	}

	return KeyPair{
		PrivatePEM: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		PublicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
	}, nil
}
