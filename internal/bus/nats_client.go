// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package bus

import (
	"sync"
	"sync/atomic"
	"time"

	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cartographus/internal/metrics"
)

// NATSClient adapts nats-io/nats.go's core pub/sub (no JetStream — the
// fabric's bus is explicitly best-effort and non-durable) to the Client
// interface, wrapping Request in a circuit breaker so a dead or slow peer
// trips the breaker instead of blocking every caller on the full timeout
// each time.
type NATSClient struct {
	cfg    ClientConfig
	logger zerolog.Logger

	mu        sync.RWMutex
	conn      *natsgo.Conn
	connected atomic.Bool
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// NewNATSClient builds a client that is not yet connected. Call Connect to dial.
func NewNATSClient(cfg ClientConfig, logger zerolog.Logger) *NATSClient {
	c := &NATSClient{cfg: cfg, logger: logger}

	settings := gobreaker.Settings{
		Name:        "bus.request",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, float64(to))
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](settings)

	return c
}

// Connect dials url with reconnection handling matching the teacher's
// publisher options, generalized from a JetStream-publisher-only config to
// the bus's plain connection.
func (c *NATSClient) Connect(url string) error {
	opts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(c.cfg.MaxReconnects),
		natsgo.ReconnectWait(c.cfg.ReconnectWait),
		natsgo.ReconnectBufSize(c.cfg.ReconnectBufSize),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			c.connected.Store(false)
			metrics.SetBusConnected(false)
			if err != nil {
				c.logger.Warn().Err(err).Msg("bus disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			c.connected.Store(true)
			metrics.SetBusConnected(true)
			metrics.BusReconnects.Inc()
			c.logger.Info().Str("url", nc.ConnectedUrl()).Msg("bus reconnected")
		}),
		natsgo.ClosedHandler(func(_ *natsgo.Conn) {
			c.connected.Store(false)
			metrics.SetBusConnected(false)
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			c.logger.Error().Err(err).Str("subject", subject).Msg("bus async error")
		}),
	}

	conn, err := natsgo.Connect(url, opts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	metrics.SetBusConnected(true)

	return nil
}

// Close disconnects the underlying connection. It does not stop the
// per-subscription draining goroutines; each stops when its Subscription is
// unsubscribed.
func (c *NATSClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.connected.Store(false)
	metrics.SetBusConnected(false)

	if conn == nil {
		return nil
	}
	conn.Close()
	return nil
}

// Connected reports whether the underlying connection is up.
func (c *NATSClient) Connected() bool {
	return c.connected.Load()
}

func (c *NATSClient) activeConn() *natsgo.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Publish sends payload to subject, never blocking for delivery
// acknowledgement — nats.go's Publish is fire-and-forget over the wire.
func (c *NATSClient) Publish(subject Subject, payload []byte) error {
	conn := c.activeConn()
	if conn == nil {
		metrics.RecordBusPublishError(subject)
		return ErrNotConnected
	}

	if err := conn.Publish(subject, payload); err != nil {
		metrics.RecordBusPublishError(subject)
		return err
	}

	metrics.RecordBusPublish(subject)
	return nil
}

// natsSubscription adapts a *natsgo.Subscription plus its draining
// goroutine to the Subscription interface.
type natsSubscription struct {
	subject Subject
	sub     *natsgo.Subscription
	queue   chan *natsgo.Msg
	done    chan struct{}
}

func (s *natsSubscription) Subject() Subject { return s.subject }

func (s *natsSubscription) Unsubscribe() error {
	err := s.sub.Unsubscribe()
	close(s.done)
	return err
}

// subscribe is the shared implementation behind Subscribe and
// QueueSubscribe: nats.go's async subscription callback runs on the
// client's own delivery goroutine, so every message is funneled into a
// single buffered channel that one dedicated goroutine drains in order —
// this is what gives per-subscription FIFO without handler re-entrancy
// (spec §5 ordering guarantee), since the callback itself never calls the
// handler directly.
func (c *NATSClient) subscribe(subject Subject, queue string, handler Handler) (Subscription, error) {
	conn := c.activeConn()
	if conn == nil {
		return nil, ErrNotConnected
	}

	bufSize := c.cfg.SubscriptionBuffer
	if bufSize <= 0 {
		bufSize = 256
	}

	queueCh := make(chan *natsgo.Msg, bufSize)
	done := make(chan struct{})

	cb := func(msg *natsgo.Msg) {
		select {
		case queueCh <- msg:
		default:
			// Best-effort bus: a full queue means a slow consumer, and the
			// spec explicitly allows dropping rather than blocking the
			// delivery goroutine (spec §5 backpressure policy).
			c.logger.Warn().Str("subject", subject).Msg("subscription queue full, dropping message")
		}
	}

	var natsSub *natsgo.Subscription
	var err error
	if queue != "" {
		natsSub, err = conn.QueueSubscribe(subject, queue, cb)
	} else {
		natsSub, err = conn.Subscribe(subject, cb)
	}
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case msg := <-queueCh:
				metrics.RecordBusReceive(subject)
				handler(Envelope{Subject: msg.Subject, Payload: msg.Data, Reply: msg.Reply})
			case <-done:
				return
			}
		}
	}()

	return &natsSubscription{subject: subject, sub: natsSub, queue: queueCh, done: done}, nil
}

// Subscribe installs handler for subject.
func (c *NATSClient) Subscribe(subject Subject, handler Handler) (Subscription, error) {
	return c.subscribe(subject, "", handler)
}

// QueueSubscribe installs handler for subject, load-balanced across every
// subscriber in the same queue group.
func (c *NATSClient) QueueSubscribe(subject Subject, queue string, handler Handler) (Subscription, error) {
	return c.subscribe(subject, queue, handler)
}

// Request publishes payload to subject and awaits exactly one reply, routed
// through a circuit breaker so a string of timeouts against a dead peer
// trips the breaker rather than making every subsequent caller wait out the
// full timeout.
func (c *NATSClient) Request(subject Subject, payload []byte, timeoutMs int) (Envelope, error) {
	conn := c.activeConn()
	if conn == nil {
		return Envelope{}, ErrNotConnected
	}

	timeout := time.Duration(timeoutMs) * time.Millisecond
	start := time.Now()

	reply, err := c.breaker.Execute(func() ([]byte, error) {
		msg, reqErr := conn.Request(subject, payload, timeout)
		if reqErr != nil {
			if reqErr == natsgo.ErrTimeout { //nolint:errorlint // nats.go returns a sentinel value
				return nil, ErrTimeout
			}
			return nil, reqErr
		}
		return msg.Data, nil
	})

	metrics.RecordBusRequest(subject, time.Since(start))

	if err != nil {
		result := "failure"
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests { //nolint:errorlint // gobreaker sentinels
			result = "rejected"
		}
		metrics.RecordCircuitBreakerResult("bus.request", result)
		return Envelope{}, err
	}

	metrics.RecordCircuitBreakerResult("bus.request", "success")
	return Envelope{Subject: subject, Payload: reply}, nil
}
