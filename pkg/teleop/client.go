// Package teleop provides the remote steering channel: an MQTT
// subscription delivering UTF-8 command payloads, drained
// non-blockingly by the control loop once per tick.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/koster51/heat-seaking-roomba/internal/log"
)

// Config holds steering channel settings.
type Config struct {
	// Broker is the MQTT broker URL, e.g. "tcp://io.adafruit.com:1883".
	Broker   string
	Username string
	Password string
	// Topic is the steering feed to subscribe to.
	Topic    string
	ClientID string
	// ConnectTimeout bounds the initial connect and each reconnect.
	ConnectTimeout time.Duration
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

// Client subscribes to the steering topic and buffers inbound
// payloads. Payloads are drained with PollLatest; when more than one
// arrived since the last poll only the newest is honored, so a burst
// of queued commands cannot replay stale motions.
type Client struct {
	cfg    Config
	client mqtt.Client

	mu     sync.Mutex
	inbox  chan string
	closed bool

	received   atomic.Int64
	dropped    atomic.Int64
	reconnects atomic.Int64
}

const inboxDepth = 64

// New creates a client. Call Connect to establish the session.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid teleop config: %w", err)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "roomba-controller"
	}
	return &Client{
		cfg:   cfg,
		inbox: make(chan string, inboxDepth),
	}, nil
}

// Connect establishes the MQTT session and subscribes to the steering
// topic.
func (c *Client) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(c.cfg.ClientID).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetAutoReconnect(false).
		SetConnectTimeout(c.cfg.ConnectTimeout)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("steering channel lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	if err := c.wait(ctx, client.Connect()); err != nil {
		return fmt.Errorf("connect to %s: %w", c.cfg.Broker, err)
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		c.Inject(string(msg.Payload()))
	}
	if err := c.wait(ctx, client.Subscribe(c.cfg.Topic, 0, handler)); err != nil {
		client.Disconnect(250)
		return fmt.Errorf("subscribe to %q: %w", c.cfg.Topic, err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	log.Info("steering channel connected", "broker", c.cfg.Broker, "topic", c.cfg.Topic)
	return nil
}

// Reconnect tears down the session and establishes a fresh one. Used
// by the control loop after a fault cool-down.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}
	c.mu.Unlock()

	c.reconnects.Add(1)
	log.Info("reconnecting steering channel", "attempt", c.reconnects.Load())
	return c.Connect(ctx)
}

// Inject feeds a payload into the inbox as if it arrived on the topic.
// Used by the MQTT handler and by the dashboard's command endpoint.
// When the inbox is full the oldest payload is dropped: new commands
// beat old ones.
func (c *Client) Inject(payload string) {
	c.received.Add(1)
	for {
		select {
		case c.inbox <- payload:
			return
		default:
			select {
			case <-c.inbox:
				c.dropped.Add(1)
			default:
			}
		}
	}
}

// PollLatest drains every pending payload without blocking and returns
// only the most recent one. ok is false when nothing was pending.
func (c *Client) PollLatest() (string, bool) {
	var latest string
	ok := false
	for {
		select {
		case p := <-c.inbox:
			if ok {
				c.dropped.Add(1)
				log.Debug("superseded steering payload dropped", "payload", latest)
			}
			latest, ok = p, true
		default:
			return latest, ok
		}
	}
}

// Stats returns received/dropped/reconnect counters.
func (c *Client) Stats() (received, dropped, reconnects int64) {
	return c.received.Load(), c.dropped.Load(), c.reconnects.Load()
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}
}

// wait blocks on an MQTT token honoring context cancellation.
func (c *Client) wait(ctx context.Context, tok mqtt.Token) error {
	done := make(chan struct{})
	go func() {
		tok.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return tok.Error()
	}
}
