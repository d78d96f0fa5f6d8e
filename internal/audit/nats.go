package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher is the slice of a JetStream context the NATS sink needs.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSSink publishes each event as JSON on <subject>.<event_type>.
type NATSSink struct {
	js      Publisher
	subject string
	timeout time.Duration
	log     zerolog.Logger
}

// NewNATSSink wraps a JetStream publisher. Publish failures are logged and
// dropped; audit delivery never blocks authentication.
func NewNATSSink(js Publisher, subject string, timeout time.Duration, log zerolog.Logger) *NATSSink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &NATSSink{
		js:      js,
		subject: strings.TrimSuffix(subject, "."),
		timeout: timeout,
		log:     log,
	}
}

func (s *NATSSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.js == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.js.Publish(s.subject+"."+event.EventType, data, nats.Context(ctx)); err != nil {
		s.log.Warn().Err(err).Str("event", event.EventType).Msg("audit publish failed")
	}
}

// Conn is a NATS connection with JetStream enabled.
type Conn struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// Connect dials url and opens a JetStream context.
func Connect(url string, opts ...nats.Option) (*Conn, error) {
	if url == "" {
		return nil, errors.New("audit: empty nats url")
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Conn{nc: nc, js: js}, nil
}

// JetStream returns the publisher for NewNATSSink.
func (c *Conn) JetStream() Publisher {
	return c.js
}

// Close drains the connection.
func (c *Conn) Close() {
	if c == nil {
		return
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
	}
}
