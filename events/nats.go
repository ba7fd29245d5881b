package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for identification.
	Name string

	// SubjectPrefix is prepended to every event subject.
	// Default: "taskflow."
	SubjectPrefix string

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// MaxReconnects is the maximum number of reconnection attempts.
	// -1 = unlimited
	MaxReconnects int

	// ConnectTimeout for initial connection.
	ConnectTimeout time.Duration

	// BufferSize for subscription channels.
	BufferSize int
}

// DefaultNATSConfig returns configuration with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            nats.DefaultURL,
		Name:           "taskflow",
		SubjectPrefix:  "taskflow.",
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  -1,
		ConnectTimeout: 5 * time.Second,
		BufferSize:     DefaultBufferSize,
	}
}

// NATSStream implements Stream over a NATS connection.
// Events are published as JSON on "<prefix><event type>".
type NATSStream struct {
	conn   *nats.Conn
	config NATSConfig
}

// NewNATSStream connects to NATS and returns a stream.
func NewNATSStream(cfg NATSConfig) (*NATSStream, error) {
	def := DefaultNATSConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = def.SubjectPrefix
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = def.ReconnectWait
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}

	opts := []nats.Option{
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATSStream{conn: conn, config: cfg}, nil
}

// NewNATSStreamFromConn wraps an existing connection.
func NewNATSStreamFromConn(conn *nats.Conn, cfg NATSConfig) *NATSStream {
	def := DefaultNATSConfig()
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = def.SubjectPrefix
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &NATSStream{conn: conn, config: cfg}
}

// Emit publishes the event as JSON.
func (s *NATSStream) Emit(e Event) error {
	if s.conn.IsClosed() {
		return ErrClosed
	}
	e = stamp(e)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.conn.Publish(s.config.SubjectPrefix+string(e.Type), data)
}

// Subscribe receives every event under the configured prefix.
func (s *NATSStream) Subscribe() (Subscription, error) {
	if s.conn.IsClosed() {
		return nil, ErrClosed
	}

	ch := make(chan Event, s.config.BufferSize)
	sub, err := s.conn.Subscribe(s.config.SubjectPrefix+">", func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		select {
		case ch <- e:
		default:
			// Buffer full, drop.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}

	return &natsSub{sub: sub, ch: ch}, nil
}

// Close drains and closes the connection.
func (s *NATSStream) Close() error {
	if s.conn.IsClosed() {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}

type natsSub struct {
	sub *nats.Subscription
	ch  chan Event
}

// Events returns the subscription channel.
func (n *natsSub) Events() <-chan Event {
	return n.ch
}

// Unsubscribe cancels the subscription.
func (n *natsSub) Unsubscribe() error {
	err := n.sub.Unsubscribe()
	close(n.ch)
	return err
}
