package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

const (
	defaultTimeout = 10 * time.Second
	toastDuration  = 3 * time.Second
	retryDuration  = 5 * time.Second
)

// Config wires a Client. BaseURL and Tokens are required; everything else
// has a usable zero value.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     ports.TokenStore
	Navigator  ports.Navigator
	Toaster    ports.Toaster
	Logger     zerolog.Logger
	Messages   Messages

	// OnTokenRefreshed runs after a successful refresh, before queued
	// calls replay. It is how the auth layer re-fetches the current user
	// with the new token; it must pass SkipAuthRefresh on anything it
	// sends.
	OnTokenRefreshed func(ctx context.Context, accessToken string)

	// OnSessionCleared runs after a terminal refresh failure wipes the
	// session, so persisted session state can be dropped alongside the
	// tokens.
	OnSessionCleared func(ctx context.Context)
}

// Client is the authenticated request gateway: every outbound API call goes
// through Do, which attaches the bearer token, coordinates the single-flight
// refresh on 401s, and applies the error side-effect policy.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  ports.TokenStore
	nav     ports.Navigator
	toast   ports.Toaster
	log     zerolog.Logger
	msgs    Messages

	session     *Session
	coordinator *refreshCoordinator

	onTokenRefreshed func(ctx context.Context, accessToken string)
	onSessionCleared func(ctx context.Context)
}

func NewClient(cfg Config, session *Session) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("gateway token store is required")
	}
	if session == nil {
		session = NewSession("", "")
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("gateway base url must use http or https")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:          parsed.String(),
		http:             httpClient,
		tokens:           cfg.Tokens,
		nav:              cfg.Navigator,
		toast:            cfg.Toaster,
		log:              cfg.Logger,
		msgs:             cfg.Messages.withDefaults(),
		session:          session,
		coordinator:      &refreshCoordinator{},
		onTokenRefreshed: cfg.OnTokenRefreshed,
		onSessionCleared: cfg.OnSessionCleared,
	}, nil
}

// Session exposes the in-memory login state the client keeps current.
func (c *Client) Session() *Session {
	return c.session
}

// SetOnTokenRefreshed installs the post-refresh hook after construction,
// for wiring orders where the auth layer is built on top of the client.
func (c *Client) SetOnTokenRefreshed(hook func(ctx context.Context, accessToken string)) {
	c.onTokenRefreshed = hook
}

func (c *Client) SetOnSessionCleared(hook func(ctx context.Context)) {
	c.onSessionCleared = hook
}

// Do sends one API call. On a 401 it coordinates a token refresh and
// replays the call; on any other failure it applies the side-effect policy
// selected by opts before returning the error.
func (c *Client) Do(ctx context.Context, req Request, opts Options) (*Response, error) {
	attempt, err := newCall(req)
	if err != nil {
		serr := &SetupError{Err: err}
		c.applySideEffects(serr, opts)
		return nil, serr
	}

	resp, err := c.send(ctx, attempt, c.session.AccessToken())
	if err == nil {
		return resp, nil
	}

	if isUnauthorized(err) && !opts.SkipAuthRefresh && !attempt.retried {
		// Mark before any suspension point so a second 401 on the same
		// call can never re-enter the refresh flow.
		attempt.retried = true

		var original *APIError
		errors.As(err, &original)

		resp, err = c.refreshAndReplay(ctx, attempt, original)
		if err == nil {
			return resp, nil
		}

		var refreshErr *RefreshFailedError
		if errors.As(err, &refreshErr) {
			// Refresh exhaustion is fully local to the gateway; the
			// caller gets the rejection with no further side effects.
			return nil, err
		}
		// The refresh worked but the replay failed; fall through to the
		// normal policy below.
	}

	c.applySideEffects(err, opts)
	return nil, err
}

// send performs one HTTP round trip with the given token and decodes the
// envelope. It never coordinates a refresh; that is Do's job.
func (c *Client) send(ctx context.Context, attempt *call, token string) (*Response, error) {
	endpoint := c.baseURL + attempt.path
	if len(attempt.query) > 0 {
		endpoint += "?" + attempt.query.Encode()
	}

	var body *bytes.Reader
	if attempt.body != nil {
		body = bytes.NewReader(attempt.body)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, attempt.method, endpoint, body)
	if err != nil {
		return nil, &SetupError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" && !attempt.authEndpoint() {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	return decodeResponse(httpResp)
}

// applySideEffects runs the error classification contract for everything
// the 401 flow did not absorb.
func (c *Client) applySideEffects(err error, opts Options) {
	if opts.RedirectOnError {
		status := statusOf(err)
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := err.Error()
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			message = apiErr.Message
		}
		if c.nav != nil {
			c.nav.Push(ports.RouteError, url.Values{
				"status":  {fmt.Sprint(status)},
				"message": {message},
			})
		}
		return
	}

	if opts.SkipGlobalErrorHandler {
		return
	}

	c.showError(err)
}

func (c *Client) showError(err error) {
	if c.toast == nil {
		return
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		switch apiErr.Status {
		case http.StatusBadRequest:
			if detail := apiErr.FirstDetail(); detail != "" {
				message = detail
			}
			if message == "" {
				message = c.msgs.BadRequest
			}
		case http.StatusUnauthorized:
			// Handled by the refresh flow; never toasted here.
			return
		case http.StatusForbidden:
			if message == "" {
				message = c.msgs.Forbidden
			}
		case http.StatusNotFound:
			if message == "" {
				message = c.msgs.NotFound
			}
		case http.StatusInternalServerError:
			if message == "" {
				message = c.msgs.ServerError
			}
		default:
			message = c.msgs.Unknown
		}
		c.toast.Show(message, ports.SeverityError, toastDuration, ports.PositionTopCenter)
		return
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if netErr.Retryable {
			c.toast.Show(c.msgs.NetworkRetry, ports.SeverityError, retryDuration, ports.PositionTopCenter)
		} else {
			c.toast.Show(c.msgs.Network, ports.SeverityError, toastDuration, ports.PositionTopCenter)
		}
		return
	}

	c.toast.Show(c.msgs.RequestSetup, ports.SeverityError, toastDuration, ports.PositionTopCenter)
}
