package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

var (
	// ErrMalformedHash is returned by Verify and NeedsUpgrade when the stored
	// value is not a PHC string this package can interpret.
	ErrMalformedHash = errors.New("password: malformed hash")
	// ErrHashing is returned by Hash when the salt source fails.
	ErrHashing = errors.New("password: hashing failed")
	// ErrInvalidConfig is returned by NewArgon2 for parameters below the floor.
	ErrInvalidConfig = errors.New("password: invalid config")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords. It is immutable after construction
// and safe for concurrent use.
type Argon2 struct {
	config Config
	salt   io.Reader
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and returns a hasher using crypto/rand for salts.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg, salt: rand.Reader}, nil
}

// Hash derives a PHC-encoded Argon2id hash with a fresh salt.
//
// There is no policy on password content: any byte string, including an
// empty one, is hashed as-is without normalization.
func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(a.salt, salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. The parameters
// embedded in encodedHash are used, not the hasher's own config, so hashes
// produced under older settings keep verifying.
//
// A hash that cannot be parsed yields (false, ErrMalformedHash).
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.key)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the hasher is configured with.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	switch {
	case a.config.Memory > parsed.memory,
		a.config.Time > parsed.time,
		a.config.Parallelism > parsed.parallelism,
		a.config.KeyLength != uint32(len(parsed.key)):
		return true, nil
	}

	return false, nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

// decodeB64 accepts both padded and unpadded standard base64 so that hashes
// written by other Argon2 encoders still verify.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parsePHC(encodedHash string) (*phc, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, malformed("invalid PHC format")
	}

	if parts[1] != algorithmID {
		return nil, malformed("unsupported algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, malformed("missing argon2 version")
	}
	v, err := strconv.Atoi(version)
	if err != nil || v != argon2.Version {
		return nil, malformed("unsupported argon2 version")
	}

	out, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	out.salt, err = decodeB64(parts[4])
	if err != nil || len(out.salt) < int(minSaltLength) {
		return nil, malformed("invalid salt")
	}

	out.key, err = decodeB64(parts[5])
	if err != nil || len(out.key) == 0 {
		return nil, malformed("invalid key")
	}

	return out, nil
}

func parseParams(part string) (*phc, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, malformed("invalid parameter format")
	}

	var (
		out  phc
		seen = map[string]bool{}
	)

	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return nil, malformed("invalid parameter entry")
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, malformed("invalid memory parameter")
			}
			out.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return nil, malformed("invalid time parameter")
			}
			out.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return nil, malformed("invalid parallelism parameter")
			}
			out.parallelism = uint8(v)
		default:
			return nil, malformed("unsupported parameter")
		}
	}

	return &out, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory must be >= %d KiB", ErrInvalidConfig, minMemoryKB)
	case cfg.Time < minTimeCost:
		return fmt.Errorf("%w: time must be >= %d", ErrInvalidConfig, minTimeCost)
	case cfg.Parallelism < minParallelism:
		return fmt.Errorf("%w: parallelism must be >= %d", ErrInvalidConfig, minParallelism)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrInvalidConfig, minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrInvalidConfig, minKeyLength)
	}

	return nil
}
