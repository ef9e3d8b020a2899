// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tether/internal/connection"
	"github.com/tomtom215/tether/internal/logging"
	"github.com/tomtom215/tether/internal/metrics"
)

var (
	// ErrNotStarted is returned when publishing before Start or after Stop.
	ErrNotStarted = errors.New("bridge not started")

	// ErrInvalidPayload is returned for outbound broker messages that are
	// not valid JSON.
	ErrInvalidPayload = errors.New("outbound payload is not valid JSON")
)

// Channel is the part of a connection.Manager the bridge uses.
type Channel interface {
	Name() string
	On(topic string, handler connection.Handler) *connection.Subscription
	Off(sub *connection.Subscription)
	Send(payload any) error
}

// Config configures a Bridge.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration

	// ForwardRate caps outbound messages per second. Zero is unlimited.
	ForwardRate  float64
	ForwardBurst int

	// ForwardBuffer is the number of outbound messages held while paced.
	ForwardBuffer int

	Breaker BreakerConfig
}

// DefaultConfig returns the bridge defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "tether",
		MaxReconnects: 10,
		ReconnectWait: time.Second,
		ForwardRate:   100,
		ForwardBurst:  10,
		ForwardBuffer: 256,
		Breaker:       DefaultBreakerConfig("nats-publish"),
	}
}

// Bridge relays channel traffic to and from NATS.
type Bridge struct {
	cfg     Config
	channel Channel
	breaker *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu     sync.Mutex
	nc     *nats.Conn
	sub    *nats.Subscription
	subs   []*connection.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Bridge for channel. It does not connect until Start.
func New(cfg Config, channel Channel) (*Bridge, error) {
	if channel == nil {
		return nil, errors.New("bridge: nil channel")
	}
	cfg.SubjectPrefix = strings.Trim(cfg.SubjectPrefix, ".")
	if cfg.SubjectPrefix == "" {
		return nil, errors.New("bridge: empty subject prefix")
	}
	if cfg.ForwardBuffer <= 0 {
		cfg.ForwardBuffer = 256
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "nats-publish"
	}

	limit := rate.Inf
	if cfg.ForwardRate > 0 {
		limit = rate.Limit(cfg.ForwardRate)
	}
	burst := cfg.ForwardBurst
	if burst < 1 {
		burst = 1
	}

	return &Bridge{
		cfg:     cfg,
		channel: channel,
		breaker: newBreaker(cfg.Breaker),
		limiter: rate.NewLimiter(limit, burst),
		logger: logging.WithComponent("bridge").With().
			Str("channel", channel.Name()).
			Str("prefix", cfg.SubjectPrefix).
			Logger(),
	}, nil
}

// Start connects to NATS, subscribes to the outbound subject and registers
// the channel handlers. The forwarding loop runs until ctx ends or Stop.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.nc != nil {
		return nil
	}

	nc, err := nats.Connect(b.cfg.URL,
		nats.Name("tether-"+b.channel.Name()),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.ReconnectWait(b.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			b.logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	inbox := make(chan *nats.Msg, b.cfg.ForwardBuffer)
	sub, err := nc.ChanSubscribe(b.OutboundSubject(), inbox)
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", b.OutboundSubject(), err)
	}

	fwdCtx, cancel := context.WithCancel(ctx)
	b.nc = nc
	b.sub = sub
	b.cancel = cancel

	b.subs = append(b.subs, b.channel.On(connection.TopicMessage, b.onMessage))
	for _, topic := range []string{
		connection.TopicConnected,
		connection.TopicDisconnected,
		connection.TopicError,
		connection.TopicReconnectFailed,
	} {
		b.subs = append(b.subs, b.channel.On(topic, b.onLifecycle))
	}

	b.wg.Add(1)
	go b.forward(fwdCtx, inbox)

	b.logger.Info().Str("url", b.cfg.URL).Msg("Bridge started")
	return nil
}

// Stop unregisters the channel handlers and closes the NATS connection.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	nc, sub, cancel, subs := b.nc, b.sub, b.cancel, b.subs
	b.nc, b.sub, b.cancel, b.subs = nil, nil, nil, nil
	b.mu.Unlock()

	if nc == nil {
		return nil
	}

	for _, s := range subs {
		b.channel.Off(s)
	}
	var err error
	if uerr := sub.Unsubscribe(); uerr != nil && !errors.Is(uerr, nats.ErrConnectionClosed) {
		err = fmt.Errorf("unsubscribe: %w", uerr)
	}
	cancel()
	b.wg.Wait()

	if ferr := nc.FlushTimeout(time.Second); ferr != nil && err == nil && nc.IsConnected() {
		err = fmt.Errorf("flush: %w", ferr)
	}
	nc.Close()

	b.logger.Info().Msg("Bridge stopped")
	return err
}

// Run starts the bridge and blocks until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := b.Stop(); err != nil {
		b.logger.Warn().Err(err).Msg("Bridge stop failed")
	}
	return ctx.Err()
}

// Publish sends data to subject through the circuit breaker.
func (b *Bridge) Publish(subject string, data []byte) error {
	b.mu.Lock()
	nc := b.nc
	b.mu.Unlock()

	if nc == nil {
		return ErrNotStarted
	}

	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, nc.Publish(subject, data)
	})

	switch {
	case err == nil:
		metrics.RecordBridgePublish(b.channel.Name(), "ok")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBridgePublish(b.channel.Name(), "rejected")
	default:
		metrics.RecordBridgePublish(b.channel.Name(), "error")
	}
	return err
}

// BreakerState returns the publish breaker state.
func (b *Bridge) BreakerState() gobreaker.State {
	return b.breaker.State()
}

// InboundSubject returns the subject for frames of the given type.
func (b *Bridge) InboundSubject(msgType string) string {
	token := subjectToken(msgType)
	if token == "" {
		token = connection.TopicMessage
	}
	return b.cfg.SubjectPrefix + "." + token
}

// LifecycleSubject returns the subject for a lifecycle topic.
func (b *Bridge) LifecycleSubject(topic string) string {
	return b.cfg.SubjectPrefix + ".lifecycle." + topic
}

// OutboundSubject returns the subject the bridge forwards from.
func (b *Bridge) OutboundSubject() string {
	return b.cfg.SubjectPrefix + ".outbound"
}

func (b *Bridge) onMessage(ev connection.Event) {
	if ev.Message == nil {
		return
	}
	subject := b.InboundSubject(ev.Message.Type)
	if err := b.Publish(subject, ev.Message.Raw); err != nil {
		b.logger.Debug().Err(err).Str("subject", subject).Msg("Inbound publish failed")
	}
}

// lifecycleRecord is the payload of lifecycle subjects.
type lifecycleRecord struct {
	Channel string    `json:"channel"`
	Topic   string    `json:"topic"`
	Attempt int       `json:"attempt"`
	DelayMS int64     `json:"delay_ms,omitempty"`
	ConnID  string    `json:"conn_id,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    string    `json:"kind,omitempty"`
	Time    time.Time `json:"time"`
}

func (b *Bridge) onLifecycle(ev connection.Event) {
	// Inbound frames whose type collides with a lifecycle topic were
	// already published by onMessage.
	if ev.Message != nil {
		return
	}

	rec := lifecycleRecord{
		Channel: b.channel.Name(),
		Topic:   ev.Topic,
		Attempt: ev.Attempt,
		DelayMS: ev.Delay.Milliseconds(),
		ConnID:  ev.ConnID,
		Time:    time.Now().UTC(),
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
		var f *connection.Failure
		if errors.As(ev.Err, &f) {
			rec.Kind = string(f.Kind)
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to encode lifecycle record")
		return
	}

	subject := b.LifecycleSubject(ev.Topic)
	if err := b.Publish(subject, data); err != nil {
		b.logger.Debug().Err(err).Str("subject", subject).Msg("Lifecycle publish failed")
	}
}

// forward feeds broker messages into the channel, one at a time, at the
// configured rate.
func (b *Bridge) forward(ctx context.Context, inbox <-chan *nats.Msg) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inbox:
			if err := b.limiter.Wait(ctx); err != nil {
				return
			}
			b.forwardOne(msg)
		}
	}
}

// forwardReply answers requests sent to the outbound subject.
type forwardReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (b *Bridge) forwardOne(msg *nats.Msg) {
	var err error
	if !json.Valid(msg.Data) {
		err = ErrInvalidPayload
	} else {
		err = b.channel.Send(json.RawMessage(msg.Data))
	}
	metrics.RecordBridgeForward(b.channel.Name(), err)

	if err != nil {
		b.logger.Warn().Err(err).Int("bytes", len(msg.Data)).Msg("Outbound message not forwarded")
	}

	if msg.Reply == "" {
		return
	}
	reply := forwardReply{OK: err == nil}
	if err != nil {
		reply.Error = err.Error()
	}
	data, merr := json.Marshal(reply)
	if merr != nil {
		return
	}
	if rerr := msg.Respond(data); rerr != nil {
		b.logger.Debug().Err(rerr).Msg("Failed to reply to outbound request")
	}
}

// subjectToken makes a frame type safe to use as one NATS subject token.
func subjectToken(s string) string {
	if s == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.', r == '*', r == '>', r <= ' ', r == 0x7f:
			sb.WriteByte('_')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
