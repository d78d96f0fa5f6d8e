package contentauth

import (
	"io"
	"time"

	"github.com/MrEthical07/contentauth/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is one security-relevant occurrence. It never carries passwords,
// hashes or token strings.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LogSink        = audit.LogSink
	NATSSink       = audit.NATSSink
	MultiSink      = audit.MultiSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink writes audit events through log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return audit.NewLogSink(log)
}

// NewNATSSink publishes events to JetStream under subject.<event_type>.
func NewNATSSink(js audit.Publisher, subject string, timeout time.Duration, log zerolog.Logger) *NATSSink {
	return audit.NewNATSSink(js, subject, timeout, log)
}
