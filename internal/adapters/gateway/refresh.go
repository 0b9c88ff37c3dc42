package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/weedrice/whiteboard-cli/internal/ports"
)

const refreshPath = "/auth/refresh"

// refreshCoordinator owns the single-flight invariant: at most one refresh
// call is ever in flight, and every 401 that lands while it runs waits in
// the FIFO queue for its outcome instead of starting another.
type refreshCoordinator struct {
	mu         sync.Mutex
	refreshing bool
	queue      []*pendingCall
}

// pendingCall is a request captured at the moment its 401 arrived while a
// refresh was already underway. It is answered exactly once.
type pendingCall struct {
	ctx     context.Context
	attempt *call
	done    chan replayResult
}

type replayResult struct {
	resp *Response
	err  error
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// refreshAndReplay is entered by any call that got a 401. The first one in
// becomes the leader and performs the refresh; later arrivals enqueue and
// block. On success the leader replays its own call, then every queued call
// in arrival order, each with the new token.
func (c *Client) refreshAndReplay(ctx context.Context, attempt *call, original *APIError) (*Response, error) {
	c.coordinator.mu.Lock()
	if c.coordinator.refreshing {
		pending := &pendingCall{
			ctx:     ctx,
			attempt: attempt,
			done:    make(chan replayResult, 1),
		}
		c.coordinator.queue = append(c.coordinator.queue, pending)
		c.coordinator.mu.Unlock()

		select {
		case result := <-pending.done:
			return result.resp, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.coordinator.refreshing = true
	c.coordinator.mu.Unlock()

	newToken, refreshErr := c.refresh(ctx)

	c.coordinator.mu.Lock()
	queued := c.coordinator.queue
	c.coordinator.queue = nil
	c.coordinator.refreshing = false
	c.coordinator.mu.Unlock()

	if refreshErr != nil {
		failure := &RefreshFailedError{
			Terminal: terminalRefreshFailure(refreshErr),
			Cause:    refreshErr,
			Original: original,
		}
		for _, pending := range queued {
			pending.done <- replayResult{err: failure}
		}
		c.handleRefreshFailure(ctx, failure)
		return nil, failure
	}

	resp, err := c.send(ctx, attempt, newToken)

	for _, pending := range queued {
		queuedResp, queuedErr := c.send(pending.ctx, pending.attempt, newToken)
		pending.done <- replayResult{resp: queuedResp, err: queuedErr}
	}

	return resp, err
}

// refresh exchanges the stored refresh token for a new access token and
// updates both the durable store and the in-memory session. A missing
// refresh token fails immediately, without a network call.
func (c *Client) refresh(ctx context.Context) (string, error) {
	refreshToken, err := c.tokens.Get(ctx, ports.RefreshTokenKey)
	if err != nil || refreshToken == "" {
		return "", errNoRefreshToken
	}

	attempt, err := newCall(Request{
		Method: http.MethodPost,
		Path:   refreshPath,
		Body:   map[string]string{"refreshToken": refreshToken},
	})
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}

	resp, err := c.send(ctx, attempt, "")
	if err != nil {
		return "", fmt.Errorf("refresh token call: %w", err)
	}
	if !resp.Success {
		return "", errors.New("refresh response not successful")
	}

	var tokens refreshResponse
	if err := resp.Decode(&tokens); err != nil {
		return "", err
	}
	if tokens.AccessToken == "" {
		return "", errors.New("refresh response missing access token")
	}

	if err := c.tokens.Put(ctx, ports.AccessTokenKey, tokens.AccessToken); err != nil {
		return "", fmt.Errorf("persist access token: %w", err)
	}
	if tokens.RefreshToken != "" {
		if err := c.tokens.Put(ctx, ports.RefreshTokenKey, tokens.RefreshToken); err != nil {
			return "", fmt.Errorf("persist rotated refresh token: %w", err)
		}
	}
	c.session.SetTokens(tokens.AccessToken, tokens.RefreshToken)

	if c.onTokenRefreshed != nil {
		// Keeps the cached user in step with the new token. The hook
		// sends with SkipAuthRefresh, so it can never recurse into here,
		// and its failure does not fail the refresh.
		c.onTokenRefreshed(ctx, tokens.AccessToken)
	}

	c.log.Debug().Msg("access token refreshed")
	return tokens.AccessToken, nil
}

// handleRefreshFailure applies the terminal-versus-transient contract: a
// rejected or missing refresh token clears the session and routes the user
// out; a transient failure leaves the credentials alone so a later request
// can try again.
func (c *Client) handleRefreshFailure(ctx context.Context, failure *RefreshFailedError) {
	if !failure.Terminal {
		c.log.Warn().Err(failure.Cause).Msg("token refresh failed transiently; session preserved")
		return
	}

	hadCredentials := c.session.Snapshot().HasCredentials()

	if err := c.tokens.Delete(ctx, ports.AccessTokenKey); err != nil {
		c.log.Warn().Err(err).Msg("drop stored access token")
	}
	if err := c.tokens.Delete(ctx, ports.RefreshTokenKey); err != nil {
		c.log.Warn().Err(err).Msg("drop stored refresh token")
	}
	c.session.Clear()

	if c.onSessionCleared != nil {
		c.onSessionCleared(ctx)
	}

	if c.nav == nil {
		return
	}
	if c.nav.CurrentPath() == "/login" {
		return
	}

	if c.nav.RequiresAuth() {
		if c.toast != nil {
			c.toast.Show(c.msgs.SessionExpired, ports.SeverityWarning, toastDuration, ports.PositionTopCenter)
		}
		c.nav.Push(ports.RouteLogin, url.Values{"redirect": {c.nav.CurrentPath()}})
	} else if hadCredentials {
		// Public page: a reload resets logged-in UI without bouncing the
		// user through the login screen.
		c.nav.Reload()
	}
}
