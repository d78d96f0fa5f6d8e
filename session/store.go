package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnavailable means Redis could not be reached or did not answer in
	// time. It is never used for "no such session".
	ErrUnavailable = errors.New("session: store unavailable")
	// ErrCorrupt means a stored record could not be decoded.
	ErrCorrupt = errors.New("session: corrupt record")
	// ErrInvalidArgument rejects empty identifiers and non-positive TTLs.
	ErrInvalidArgument = errors.New("session: invalid argument")
)

const (
	defaultPrefix    = "cs"
	defaultOpTimeout = 500 * time.Millisecond
)

// putSessionScript writes the record and indexes it under its user. The index
// set lives at least as long as its longest-lived member.
const putSessionScript = `
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
local ttl = redis.call("PTTL", KEYS[2])
if ttl < tonumber(ARGV[2]) then
  redis.call("PEXPIRE", KEYS[2], ARGV[2])
end
return 1
`

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var (
	putSessionLua    = redis.NewScript(putSessionScript)
	deleteSessionLua = redis.NewScript(deleteSessionScript)
)

// Config controls key naming and per-call deadlines.
type Config struct {
	Prefix    string
	OpTimeout time.Duration
	Now       func() time.Time
}

// Store maps token identifiers to user identifiers in Redis. Records expire
// through Redis TTLs; the expiry is also stored in the record and checked on
// read.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// NewStore wraps client. Zero Config fields take defaults.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		redis:   client,
		prefix:  cfg.Prefix,
		timeout: cfg.OpTimeout,
		now:     cfg.Now,
	}
}

func (s *Store) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Put records that tokenID belongs to userID for ttl.
func (s *Store) Put(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	if tokenID == "" || userID == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidArgument)
	}
	if ttl < time.Millisecond {
		return fmt.Errorf("%w: ttl must be at least 1ms", ErrInvalidArgument)
	}

	now := s.now()
	data, err := Encode(&Record{
		UserID:    userID,
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err = putSessionLua.Run(ctx, s.redis,
		[]string{s.key(tokenID), s.userKey(userID)},
		data, ttl.Milliseconds(), tokenID,
	).Err()
	if err != nil {
		return unavailable(err)
	}

	return nil
}

// Get returns the user owning tokenID. A missing or lapsed record is
// reported as found == false with a nil error.
func (s *Store) Get(ctx context.Context, tokenID string) (userID string, found bool, err error) {
	rec, err := s.lookup(ctx, tokenID)
	if err != nil || rec == nil {
		return "", false, err
	}
	return rec.UserID, true, nil
}

// Lookup is Get with the full record.
func (s *Store) Lookup(ctx context.Context, tokenID string) (*Record, error) {
	return s.lookup(ctx, tokenID)
}

func (s *Store) lookup(ctx context.Context, tokenID string) (*Record, error) {
	if tokenID == "" {
		return nil, nil
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, s.key(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, unavailable(err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if rec.ExpiresAt <= s.now().UnixMilli() {
		return nil, nil
	}
	rec.TokenID = tokenID

	return rec, nil
}

// Remove deletes the record for tokenID. Removing an absent record is not an
// error.
func (s *Store) Remove(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	key := s.key(tokenID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return unavailable(err)
	}

	rec, err := Decode(data)
	if err != nil {
		// Unreadable records carry no user to unindex.
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return unavailable(delErr)
		}
		return nil
	}

	if err := deleteSessionLua.Run(ctx, s.redis, []string{key, s.userKey(rec.UserID)}, tokenID).Err(); err != nil {
		return unavailable(err)
	}

	return nil
}

// RemoveUser deletes every record indexed under userID and returns how many
// existed.
func (s *Store) RemoveUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: empty identifier", ErrInvalidArgument)
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	userKey := s.userKey(userID)
	tokenIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	keys := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		keys = append(keys, s.key(id))
	}

	var removed *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			removed = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}

	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}

// ActiveTokenIDs lists token identifiers indexed under userID. Entries whose
// record already expired may still appear until the index itself lapses.
func (s *Store) ActiveTokenIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

// Ping reports round-trip latency to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}
