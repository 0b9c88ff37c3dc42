package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/weedrice/whiteboard-cli/internal/adapters/gateway"
	"github.com/weedrice/whiteboard-cli/internal/domain"
)

const (
	defaultPageSize     = 20
	defaultPollInterval = 60 * time.Second
)

// Streamer is the push connection the feed rides on.
type Streamer interface {
	Connect(ctx context.Context) error
	Close()
}

// FeedService keeps the live view of notifications: the in-memory list, the
// unread and total counters, and the optimistic read-state mutations. Only
// its own event handler and methods write that state.
type FeedService struct {
	gw     *gateway.Client
	stream Streamer
	log    zerolog.Logger

	mu            sync.Mutex
	notifications []domain.Notification
	unreadCount   int
	totalCount    int64
	onEvent       func(domain.Notification)
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

func NewFeedService(gw *gateway.Client, log zerolog.Logger) *FeedService {
	return &FeedService{gw: gw, log: log}
}

// AttachStream hands the feed its push connection. The stream client is
// built with HandleEvent as its handler, so construction is two-phase.
func (s *FeedService) AttachStream(stream Streamer) {
	s.stream = stream
}

func (s *FeedService) Connect(ctx context.Context) error {
	if s.stream == nil {
		return fmt.Errorf("no stream attached")
	}
	return s.stream.Connect(ctx)
}

func (s *FeedService) Close() {
	if s.stream != nil {
		s.stream.Close()
	}
}

// HandleEvent ingests one pushed notification: prepend, bump counters. The
// feed is additive and trusts server-assigned identity, so there is no
// dedup pass.
func (s *FeedService) HandleEvent(event domain.Notification) {
	s.mu.Lock()
	s.notifications = append([]domain.Notification{event}, s.notifications...)
	s.unreadCount++
	s.totalCount++
	onEvent := s.onEvent
	s.mu.Unlock()

	if onEvent != nil {
		onEvent(event)
	}
}

// SetOnEvent installs an observer that fires after each pushed notification
// is ingested. The live watch view uses it to mirror events into its UI.
func (s *FeedService) SetOnEvent(fn func(domain.Notification)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = fn
}

func (s *FeedService) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *FeedService) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}

func (s *FeedService) TotalCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCount
}

// FetchNotifications loads one page; page zero replaces the local list,
// later pages append.
func (s *FeedService) FetchNotifications(ctx context.Context, page, size int) (domain.Page[domain.Notification], error) {
	if size <= 0 {
		size = defaultPageSize
	}

	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/notifications",
		Query: url.Values{
			"page": {strconv.Itoa(page)},
			"size": {strconv.Itoa(size)},
		},
	}, gateway.Options{})
	if err != nil {
		return domain.Page[domain.Notification]{}, fmt.Errorf("fetch notifications: %w", err)
	}

	var result domain.Page[domain.Notification]
	if err := resp.Decode(&result); err != nil {
		return domain.Page[domain.Notification]{}, fmt.Errorf("fetch notifications: %w", err)
	}

	s.mu.Lock()
	if page == 0 {
		s.notifications = append([]domain.Notification(nil), result.Content...)
	} else {
		s.notifications = append(s.notifications, result.Content...)
	}
	s.totalCount = result.TotalElements
	s.mu.Unlock()

	return result, nil
}

// FetchUnreadCount re-queries the authoritative unread counter. It runs on
// a fixed interval as a backstop, since push delivery is best-effort.
func (s *FeedService) FetchUnreadCount(ctx context.Context) (int, error) {
	resp, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/notifications/unread-count",
	}, gateway.Options{SkipGlobalErrorHandler: true})
	if err != nil {
		return 0, fmt.Errorf("fetch unread count: %w", err)
	}

	var payload unreadCountResponse
	if err := resp.Decode(&payload); err != nil {
		return 0, fmt.Errorf("fetch unread count: %w", err)
	}

	s.mu.Lock()
	s.unreadCount = payload.Count
	s.mu.Unlock()

	return payload.Count, nil
}

// StartPolling re-fetches the unread count at the given interval until the
// context ends. Zero interval means the 60 second default.
func (s *FeedService) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.FetchUnreadCount(ctx); err != nil {
					s.log.Debug().Err(err).Msg("unread count poll")
				}
			}
		}
	}()
}

// MarkAsRead flips the read flag optimistically and reverts when the
// backend disagrees. Marking an already-read notification is a no-op and
// never hits the network.
func (s *FeedService) MarkAsRead(ctx context.Context, id int64) error {
	s.mu.Lock()
	idx := -1
	for i := range s.notifications {
		if s.notifications[i].NotificationID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("notification %d: %w", id, domain.ErrNotificationNotFound)
	}
	if s.notifications[idx].IsRead {
		s.mu.Unlock()
		return nil
	}
	s.notifications[idx].IsRead = true
	s.unreadCount--
	s.mu.Unlock()

	_, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/notifications/%d/read", id),
	}, gateway.Options{})
	if err != nil {
		s.mu.Lock()
		for i := range s.notifications {
			if s.notifications[i].NotificationID == id {
				s.notifications[i].IsRead = false
				s.unreadCount++
				break
			}
		}
		s.mu.Unlock()
		return fmt.Errorf("mark notification read: %w", err)
	}

	return nil
}

// MarkAllAsRead snapshots the read flags before mutating so a failure
// restores the exact prior state; on success it re-syncs from the server to
// pick up anything delivered during the round trip.
func (s *FeedService) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	previousRead := make(map[int64]bool, len(s.notifications))
	for i := range s.notifications {
		previousRead[s.notifications[i].NotificationID] = s.notifications[i].IsRead
		s.notifications[i].IsRead = true
	}
	previousUnread := s.unreadCount
	s.unreadCount = 0
	s.mu.Unlock()

	_, err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/notifications/read-all",
	}, gateway.Options{})
	if err != nil {
		s.mu.Lock()
		for i := range s.notifications {
			if wasRead, ok := previousRead[s.notifications[i].NotificationID]; ok {
				s.notifications[i].IsRead = wasRead
			}
		}
		s.unreadCount = previousUnread
		s.mu.Unlock()
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	if _, err := s.FetchNotifications(ctx, 0, defaultPageSize); err != nil {
		s.log.Debug().Err(err).Msg("resync notifications after read-all")
	}

	return nil
}
