package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedrice/whiteboard-cli/internal/adapters/gateway"
	"github.com/weedrice/whiteboard-cli/internal/adapters/tokens/memory"
	"github.com/weedrice/whiteboard-cli/internal/domain"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

func newGatewayForTest(t *testing.T, baseURL string) (*gateway.Client, *memory.Store) {
	t.Helper()

	tokens := memory.NewStore()
	require.NoError(t, tokens.Put(context.Background(), ports.AccessTokenKey, "tok1"))
	require.NoError(t, tokens.Put(context.Background(), ports.RefreshTokenKey, "ref1"))

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL: baseURL,
		Tokens:  tokens,
		Logger:  zerolog.Nop(),
	}, gateway.NewSession("tok1", "ref1"))
	require.NoError(t, err)

	return gw, tokens
}

func writePage(w http.ResponseWriter, notifications []domain.Notification, total int64) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data": map[string]any{
			"content":       notifications,
			"page":          0,
			"size":          len(notifications),
			"totalElements": total,
			"totalPages":    1,
		},
	})
}

func seedFeed(t *testing.T, feed *FeedService, server *httptest.Server) {
	t.Helper()
	_, err := feed.FetchNotifications(context.Background(), 0, 10)
	require.NoError(t, err)
}

func TestHandleEventPrependsAndBumpsCounters(t *testing.T) {
	t.Parallel()

	gw, _ := newGatewayForTest(t, "http://localhost:1")
	feed := NewFeedService(gw, zerolog.Nop())

	var observed []int64
	feed.SetOnEvent(func(n domain.Notification) {
		observed = append(observed, n.NotificationID)
	})

	feed.HandleEvent(domain.Notification{NotificationID: 1, Message: "first"})
	feed.HandleEvent(domain.Notification{NotificationID: 2, Message: "second"})

	list := feed.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].NotificationID, "newest first")
	assert.Equal(t, int64(1), list[1].NotificationID)
	assert.Equal(t, 2, feed.UnreadCount())
	assert.Equal(t, int64(2), feed.TotalCount())
	assert.Equal(t, []int64{1, 2}, observed)
}

func TestFetchNotificationsReplacesOnPageZeroAppendsAfter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "0":
			writePage(w, []domain.Notification{
				{NotificationID: 10, Message: "ten"},
				{NotificationID: 9, Message: "nine"},
			}, 3)
		default:
			writePage(w, []domain.Notification{
				{NotificationID: 8, Message: "eight"},
			}, 3)
		}
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())

	page, err := feed.FetchNotifications(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Len(t, feed.Notifications(), 2)

	_, err = feed.FetchNotifications(context.Background(), 1, 2)
	require.NoError(t, err)
	list := feed.Notifications()
	require.Len(t, list, 3)
	assert.Equal(t, int64(8), list[2].NotificationID)
	assert.Equal(t, int64(3), feed.TotalCount())

	// Page zero again resets the list.
	_, err = feed.FetchNotifications(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Len(t, feed.Notifications(), 2)
}

func TestFetchUnreadCountUpdatesCounter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notifications/unread-count", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"count":7}}`))
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())

	count, err := feed.FetchUnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Equal(t, 7, feed.UnreadCount())
}

func TestMarkAsReadUnknownNotification(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())

	err := feed.MarkAsRead(context.Background(), 99)
	require.ErrorIs(t, err, domain.ErrNotificationNotFound)
	assert.Equal(t, int32(0), hits.Load())
}

func TestMarkAsReadAlreadyReadSkipsNetwork(t *testing.T) {
	t.Parallel()

	var markHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/notifications" {
			writePage(w, []domain.Notification{{NotificationID: 5, Message: "seen", IsRead: true}}, 1)
			return
		}
		markHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())
	seedFeed(t, feed, server)

	require.NoError(t, feed.MarkAsRead(context.Background(), 5))
	assert.Equal(t, int32(0), markHits.Load())
}

func TestMarkAsReadFlipsOptimisticallyAndKeepsOnSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notifications":
			writePage(w, []domain.Notification{
				{NotificationID: 5, Message: "new comment"},
				{NotificationID: 4, Message: "older", IsRead: true},
			}, 2)
		case "/notifications/5/read":
			require.Equal(t, http.MethodPut, r.Method)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())
	seedFeed(t, feed, server)
	feed.HandleEvent(domain.Notification{NotificationID: 6, Message: "live"})

	require.NoError(t, feed.MarkAsRead(context.Background(), 5))

	list := feed.Notifications()
	require.Len(t, list, 3)
	for _, n := range list {
		if n.NotificationID == 5 {
			assert.True(t, n.IsRead)
		}
	}
	assert.Equal(t, 0, feed.UnreadCount(), "the pushed event's unread was consumed by marking 5")
}

func TestMarkAsReadRevertsOnFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notifications":
			writePage(w, []domain.Notification{{NotificationID: 5, Message: "new comment"}}, 1)
		case "/notifications/unread-count":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"data":{"count":1}}`))
		case "/notifications/5/read":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":{"message":"boom"}}`))
		}
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())
	seedFeed(t, feed, server)
	_, err := feed.FetchUnreadCount(context.Background())
	require.NoError(t, err)

	err = feed.MarkAsRead(context.Background(), 5)
	require.Error(t, err)

	list := feed.Notifications()
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead, "flag reverted")
	assert.Equal(t, 1, feed.UnreadCount(), "counter reverted")
}

func TestMarkAllAsReadRestoresExactStateOnFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notifications":
			writePage(w, []domain.Notification{
				{NotificationID: 3, Message: "unread one"},
				{NotificationID: 2, Message: "already seen", IsRead: true},
				{NotificationID: 1, Message: "unread two"},
			}, 3)
		case "/notifications/unread-count":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"data":{"count":2}}`))
		case "/notifications/read-all":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":{"message":"boom"}}`))
		}
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())
	seedFeed(t, feed, server)
	_, err := feed.FetchUnreadCount(context.Background())
	require.NoError(t, err)

	err = feed.MarkAllAsRead(context.Background())
	require.Error(t, err)

	byID := map[int64]bool{}
	for _, n := range feed.Notifications() {
		byID[n.NotificationID] = n.IsRead
	}
	assert.False(t, byID[3])
	assert.True(t, byID[2], "previously read stays read")
	assert.False(t, byID[1])
	assert.Equal(t, 2, feed.UnreadCount())
}

func TestMarkAllAsReadResyncsOnSuccess(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notifications":
			if fetches.Add(1) == 1 {
				writePage(w, []domain.Notification{
					{NotificationID: 2, Message: "unread"},
					{NotificationID: 1, Message: "unread too"},
				}, 2)
				return
			}
			writePage(w, []domain.Notification{
				{NotificationID: 2, Message: "unread", IsRead: true},
				{NotificationID: 1, Message: "unread too", IsRead: true},
			}, 2)
		case "/notifications/read-all":
			require.Equal(t, http.MethodPut, r.Method)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	}))
	t.Cleanup(server.Close)

	gw, _ := newGatewayForTest(t, server.URL)
	feed := NewFeedService(gw, zerolog.Nop())
	seedFeed(t, feed, server)

	require.NoError(t, feed.MarkAllAsRead(context.Background()))

	assert.Equal(t, int32(2), fetches.Load(), "resynced after read-all")
	assert.Equal(t, 0, feed.UnreadCount())
	for _, n := range feed.Notifications() {
		assert.True(t, n.IsRead)
	}
}

type fakeStreamer struct {
	connects atomic.Int32
	closes   atomic.Int32
}

func (f *fakeStreamer) Connect(context.Context) error {
	f.connects.Add(1)
	return nil
}

func (f *fakeStreamer) Close() {
	f.closes.Add(1)
}

func TestConnectRequiresAttachedStream(t *testing.T) {
	t.Parallel()

	gw, _ := newGatewayForTest(t, "http://localhost:1")
	feed := NewFeedService(gw, zerolog.Nop())

	require.Error(t, feed.Connect(context.Background()))

	streamer := &fakeStreamer{}
	feed.AttachStream(streamer)
	require.NoError(t, feed.Connect(context.Background()))
	feed.Close()

	assert.Equal(t, int32(1), streamer.connects.Load())
	assert.Equal(t, int32(1), streamer.closes.Load())
}
