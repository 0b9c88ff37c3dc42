package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/weedrice/whiteboard-cli/internal/domain"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

const (
	defaultReconnectDelay = 5 * time.Second
	notificationEvent     = "notification"
	streamPath            = "/notifications/stream"
	maxEventBytes         = 1 << 20
)

// ConnState is the lifecycle of the single push connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// Config wires a stream Client. Handler receives every parsed notification
// event; it runs on the reader goroutine and must not block.
type Config struct {
	BaseURL        string
	Tokens         ports.TokenStore
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	ReconnectDelay time.Duration
	Handler        func(domain.Notification)
}

// Client holds the one live server-push connection for the session, the
// reconnect timer, and nothing else. Losing the connection schedules
// exactly one reconnect after a fixed delay; connecting cancels any timer
// left over from a previous failure.
type Client struct {
	baseURL        string
	tokens         ports.TokenStore
	http           *http.Client
	log            zerolog.Logger
	reconnectDelay time.Duration
	handler        func(domain.Notification)

	mu        sync.Mutex
	state     ConnState
	cancel    context.CancelFunc
	reconnect *time.Timer
	closed    bool
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("stream base url is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("stream token store is required")
	}
	if cfg.Handler == nil {
		return nil, errors.New("stream handler is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No overall timeout: the stream stays open until the server or a
		// cancel closes it.
		httpClient = &http.Client{}
	}

	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		tokens:         cfg.Tokens,
		http:           httpClient,
		log:            cfg.Logger,
		reconnectDelay: delay,
		handler:        cfg.Handler,
	}, nil
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the push connection. It is idempotent: a live connection
// makes it a no-op, and a missing access token makes it a no-op too (the
// caller is expected to retry after login). Push connections cannot carry
// custom headers, so the token rides as a query parameter.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}

	token, err := c.tokens.Get(context.WithoutCancel(ctx), ports.AccessTokenKey)
	if err != nil || token == "" {
		c.mu.Unlock()
		c.log.Debug().Msg("stream connect skipped: no access token")
		return nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateConnecting
	c.mu.Unlock()

	endpoint := c.baseURL + streamPath + "?" + url.Values{"token": {token}}.Encode()
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.dropConnection()
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("stream connect failed")
		c.dropConnection()
		c.scheduleReconnect(ctx)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		c.log.Warn().Int("status", resp.StatusCode).Msg("stream connect rejected")
		c.dropConnection()
		c.scheduleReconnect(ctx)
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = resp.Body.Close()
		return nil
	}
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(ctx, resp)
	return nil
}

// Close tears down the connection and cancels any pending reconnect. The
// client cannot be reused afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateDisconnected
}

func (c *Client) readLoop(parent context.Context, resp *http.Response) {
	defer func() { _ = resp.Body.Close() }()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxEventBytes)

	var eventName string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == notificationEvent && data.Len() > 0 {
				c.dispatch(data.String())
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, ":"):
			// Comment / keep-alive.
		}
	}

	if err := scanner.Err(); err != nil {
		c.log.Warn().Err(err).Msg("stream read error")
	}

	c.dropConnection()
	c.scheduleReconnect(parent)
}

func (c *Client) dispatch(payload string) {
	var event domain.Notification
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.log.Warn().Err(err).Msg("discard unparseable stream event")
		return
	}
	// Stream events are always unread deliveries.
	event.IsRead = false
	c.handler(event)
}

func (c *Client) dropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateDisconnected
}

// scheduleReconnect arms the single reconnect timer, replacing any timer
// already pending so rapid connect/error cycles never stack attempts.
func (c *Client) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
	}
	c.reconnect = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		c.reconnect = nil
		c.mu.Unlock()
		if err := c.Connect(ctx); err != nil {
			c.log.Warn().Err(err).Msg("stream reconnect failed")
		}
	})
	c.log.Debug().Dur("delay", c.reconnectDelay).Msg("stream reconnect scheduled")
}
