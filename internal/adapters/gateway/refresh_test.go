package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedrice/whiteboard-cli/internal/domain"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

// refreshBackend is an httptest handler that rejects any bearer token other
// than its current access token and hands out a rotated pair on refresh.
type refreshBackend struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	nextAccess   string
	nextRefresh  string

	refreshCalls atomic.Int32
	served       []string
}

func (b *refreshBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/auth/refresh" {
			b.refreshCalls.Add(1)

			var body struct {
				RefreshToken string `json:"refreshToken"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)

			b.mu.Lock()
			valid := body.RefreshToken == b.refreshToken
			if valid {
				b.accessToken = b.nextAccess
				if b.nextRefresh != "" {
					b.refreshToken = b.nextRefresh
				}
			}
			access, refresh := b.accessToken, b.refreshToken
			b.mu.Unlock()

			if !valid {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":{"message":"invalid refresh token"}}`))
				return
			}

			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]string{"accessToken": access, "refreshToken": refresh},
			})
			return
		}

		b.mu.Lock()
		current := b.accessToken
		b.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+current {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":{"message":"token expired"}}`))
			return
		}

		b.mu.Lock()
		b.served = append(b.served, r.URL.Path)
		b.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"path": r.URL.Path},
		})
	}
}

func (b *refreshBackend) servedPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.served...)
}

func TestConcurrent401sRefreshOnceAndReplayWithNewToken(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	leaderIn := make(chan struct{})

	backend := &refreshBackend{
		accessToken:  "tok2",
		refreshToken: "ref1",
		nextAccess:   "tok2",
	}
	inner := backend.handler()

	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			once.Do(func() { close(leaderIn) })
			<-release
		}
		inner(w, r)
	}))
	t.Cleanup(server.Close)

	// The client still holds tok1, so every first attempt gets a 401.
	gw := newTestGateway(t, server.URL, "tok1", "ref1")

	paths := []string{"/boards", "/posts", "/users/me"}

	var wg sync.WaitGroup
	errs := make([]error, len(paths))
	for i := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = gw.client.Do(context.Background(), Request{
				Method: http.MethodGet,
				Path:   paths[i],
			}, Options{})
		}()
	}

	// Hold the refresh open until both non-leaders are queued behind it, so
	// none of them can start a refresh of its own.
	<-leaderIn
	deadline := time.Now().Add(2 * time.Second)
	for {
		gw.client.coordinator.mu.Lock()
		queued := len(gw.client.coordinator.queue)
		gw.client.coordinator.mu.Unlock()
		if queued == len(paths)-1 {
			break
		}
		require.True(t, time.Now().Before(deadline), "followers never queued")
		time.Sleep(2 * time.Millisecond)
	}
	close(release)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "call %s", paths[i])
	}
	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.ElementsMatch(t, paths, backend.servedPaths())
	assert.Equal(t, "tok2", gw.client.Session().AccessToken())

	stored, err := gw.tokens.Get(context.Background(), ports.AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok2", stored)
}

func TestQueuedCallsReplayInArrivalOrder(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	leaderIn := make(chan struct{})

	backend := &refreshBackend{
		accessToken:  "tok2",
		refreshToken: "ref1",
		nextAccess:   "tok2",
	}
	inner := backend.handler()

	var refreshEntered sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshEntered.Do(func() { close(leaderIn) })
			<-release
		}
		inner(w, r)
	}))
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "ref1")

	var wg sync.WaitGroup
	start := func(path string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: path}, Options{})
			assert.NoError(t, err)
		}()
	}

	queueLen := func() int {
		gw.client.coordinator.mu.Lock()
		defer gw.client.coordinator.mu.Unlock()
		return len(gw.client.coordinator.queue)
	}

	waitForQueue := func(n int) {
		deadline := time.Now().Add(2 * time.Second)
		for queueLen() < n {
			require.True(t, time.Now().Before(deadline), "queue never reached %d", n)
			time.Sleep(2 * time.Millisecond)
		}
	}

	// The leader's 401 puts it inside the refresh call, where the handler
	// blocks; the followers then enqueue one at a time in a known order.
	start("/lead")
	<-leaderIn
	start("/a")
	waitForQueue(1)
	start("/b")
	waitForQueue(2)
	start("/c")
	waitForQueue(3)

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), backend.refreshCalls.Load())
	assert.Equal(t, []string{"/lead", "/a", "/b", "/c"}, backend.servedPaths())
}

func TestReplayed401IsNotRetriedAgain(t *testing.T) {
	t.Parallel()

	var refreshCalls, apiCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
			_, _ = w.Write([]byte(`{"success":true,"data":{"accessToken":"tok2"}}`))
			return
		}
		// The API keeps rejecting even the fresh token.
		apiCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"message":"still unauthorized"}}`))
	}))
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "ref1")

	_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users/me"}, Options{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), apiCalls.Load(), "original send plus exactly one replay")
}

func TestSkipAuthRefreshSurfaces401WithoutRefreshing(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "ref1")

	_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users/me"}, Options{SkipAuthRefresh: true, SkipGlobalErrorHandler: true})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestTransientRefreshFailurePreservesSession(t *testing.T) {
	t.Parallel()

	// The refresh endpoint drops the connection, so the failure has no
	// HTTP response at all.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "ref1")

	_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users/me"}, Options{})
	require.Error(t, err)

	var refreshErr *RefreshFailedError
	require.ErrorAs(t, err, &refreshErr)
	assert.False(t, refreshErr.Terminal)
	require.NotNil(t, refreshErr.Original)
	assert.Equal(t, http.StatusUnauthorized, refreshErr.Original.Status)

	// Credentials survive so a later request can try the refresh again.
	refresh, getErr := gw.tokens.Get(context.Background(), ports.RefreshTokenKey)
	require.NoError(t, getErr)
	assert.Equal(t, "ref1", refresh)
	assert.True(t, gw.client.Session().Snapshot().HasCredentials())

	assert.Empty(t, gw.nav.pushes)
	assert.Zero(t, gw.nav.reloads)
}

func TestRejectedRefreshClearsSessionAndRedirectsToLogin(t *testing.T) {
	t.Parallel()

	backend := &refreshBackend{
		accessToken:  "tok2",
		refreshToken: "other", // stored ref1 will be rejected
		nextAccess:   "tok2",
	}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "ref1")
	gw.nav.path = "/boards/3"
	gw.nav.requiresAuth = true

	var clearedHook atomic.Bool
	gw.client.SetOnSessionCleared(func(context.Context) { clearedHook.Store(true) })

	_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users/me"}, Options{})
	require.Error(t, err)

	var refreshErr *RefreshFailedError
	require.ErrorAs(t, err, &refreshErr)
	assert.True(t, refreshErr.Terminal)

	_, getErr := gw.tokens.Get(context.Background(), ports.AccessTokenKey)
	assert.ErrorIs(t, getErr, domain.ErrSecretNotFound)
	_, getErr = gw.tokens.Get(context.Background(), ports.RefreshTokenKey)
	assert.ErrorIs(t, getErr, domain.ErrSecretNotFound)
	assert.False(t, gw.client.Session().Snapshot().HasCredentials())
	assert.True(t, clearedHook.Load())

	require.Len(t, gw.nav.pushes, 1)
	assert.Equal(t, ports.RouteLogin, gw.nav.pushes[0].route)
	assert.Equal(t, "/boards/3", gw.nav.pushes[0].query.Get("redirect"))

	toasts := gw.toast.all()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Your session has expired. Please sign in again.", toasts[0].message)
	assert.Equal(t, ports.SeverityWarning, toasts[0].severity)
}

func TestRejectedRefreshOnPublicPageReloadsInstead(t *testing.T) {
	t.Parallel()

	backend := &refreshBackend{
		accessToken:  "tok2",
		refreshToken: "other",
		nextAccess:   "tok2",
	}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "ref1")
	gw.nav.path = "/boards"
	gw.nav.requiresAuth = false

	_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/notifications/count"}, Options{})
	require.Error(t, err)

	assert.Empty(t, gw.nav.pushes)
	assert.Equal(t, 1, gw.nav.reloads)
	assert.Empty(t, gw.toast.all())
}

func TestMissingRefreshTokenFailsTerminallyWithoutNetworkCall(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "")

	_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users/me"}, Options{})
	require.Error(t, err)

	var refreshErr *RefreshFailedError
	require.ErrorAs(t, err, &refreshErr)
	assert.True(t, refreshErr.Terminal)
	assert.ErrorIs(t, refreshErr.Cause, errNoRefreshToken)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestRefreshLeaderInvokesTokenRefreshedHook(t *testing.T) {
	t.Parallel()

	backend := &refreshBackend{
		accessToken:  "tok2",
		refreshToken: "ref1",
		nextAccess:   "tok2",
		nextRefresh:  "ref2",
	}
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	gw := newTestGateway(t, server.URL, "tok1", "ref1")

	var hookToken atomic.Value
	gw.client.SetOnTokenRefreshed(func(_ context.Context, accessToken string) {
		hookToken.Store(accessToken)
	})

	_, err := gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users/me"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "tok2", hookToken.Load())

	// The rotated refresh token replaced the stored one.
	stored, getErr := gw.tokens.Get(context.Background(), ports.RefreshTokenKey)
	require.NoError(t, getErr)
	assert.Equal(t, "ref2", stored)
}

func TestFollowerContextCancellationUnblocksWait(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	leaderIn := make(chan struct{})

	backend := &refreshBackend{
		accessToken:  "tok2",
		refreshToken: "ref1",
		nextAccess:   "tok2",
	}
	inner := backend.handler()

	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			once.Do(func() { close(leaderIn) })
			<-release
		}
		inner(w, r)
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	gw := newTestGateway(t, server.URL, "tok1", "ref1")

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _ = gw.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/lead"}, Options{})
	}()
	<-leaderIn

	ctx, cancel := context.WithCancel(context.Background())
	followerErr := make(chan error, 1)
	go func() {
		_, err := gw.client.Do(ctx, Request{Method: http.MethodGet, Path: "/follow"}, Options{})
		followerErr <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		gw.client.coordinator.mu.Lock()
		queued := len(gw.client.coordinator.queue)
		gw.client.coordinator.mu.Unlock()
		if queued == 1 {
			break
		}
		require.True(t, time.Now().Before(deadline), "follower never queued")
		time.Sleep(2 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-followerErr:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled follower never returned")
	}
}
