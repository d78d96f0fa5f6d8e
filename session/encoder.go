package session

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const recordFormatVersion = 1

// Encode serialises r without its TokenID, which is already the Redis key.
func Encode(r *Record) ([]byte, error) {
	if len(r.UserID) == 0 || len(r.UserID) > 255 {
		return nil, fmt.Errorf("session: user id length %d out of range", len(r.UserID))
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(r.UserID) + 16)

	buf.WriteByte(recordFormatVersion)
	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)

	var ts [16]byte
	binary.BigEndian.PutUint64(ts[:8], uint64(r.IssuedAt))
	binary.BigEndian.PutUint64(ts[8:], uint64(r.ExpiresAt))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode parses a stored record. Any structural problem yields an error
// wrapping ErrCorrupt.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, corrupt(err)
	}
	if version != recordFormatVersion {
		return nil, corrupt(fmt.Errorf("unknown record version %d", version))
	}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, corrupt(err)
	}
	if userLen == 0 {
		return nil, corrupt(fmt.Errorf("empty user id"))
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, corrupt(err)
	}

	r := &Record{UserID: string(userID)}
	if err := binary.Read(reader, binary.BigEndian, &r.IssuedAt); err != nil {
		return nil, corrupt(err)
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, corrupt(err)
	}
	if reader.Len() != 0 {
		return nil, corrupt(fmt.Errorf("%d trailing bytes", reader.Len()))
	}

	return r, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrCorrupt, err)
}
