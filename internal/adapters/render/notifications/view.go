package notifications

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/weedrice/whiteboard-cli/internal/domain"
)

type RenderOptions struct {
	Now        time.Time
	UnreadOnly bool
}

func renderView(items []domain.Notification, unreadCount int, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Notifications"),
		s.header.Render(fmt.Sprintf("total: %d  %s", len(items), s.counter.Render(fmt.Sprintf("unread: %d", unreadCount)))),
	}

	shown := 0
	for _, item := range items {
		if opts.UnreadOnly && item.IsRead {
			continue
		}
		lines = append(lines, renderNotification(item, opts, s))
		shown++
	}

	if shown == 0 {
		lines = append(lines, s.empty.Render("No notifications."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderNotification(item domain.Notification, opts RenderOptions, s styles) string {
	marker := " "
	messageStyle := s.read
	if !item.IsRead {
		marker = "●"
		messageStyle = s.unread
	}

	parts := []string{
		s.unread.Render(marker),
		" ",
		messageStyle.Render(item.Message),
		" ",
		s.source.Render(sourceLabel(item.SourceType, item.SourceID)),
	}

	if item.Actor.DisplayName != "" {
		parts = append(parts, " ", s.actor.Render("from "+item.Actor.DisplayName))
	}
	parts = append(parts, " ", s.age.Render(formatAge(item.CreatedAt, opts.Now)))

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func sourceLabel(source domain.NotificationSource, id int64) string {
	switch source {
	case domain.NotificationSourcePost:
		return fmt.Sprintf("[post #%d]", id)
	case domain.NotificationSourceComment:
		return fmt.Sprintf("[comment #%d]", id)
	case domain.NotificationSourceSystem:
		return "[system]"
	default:
		return fmt.Sprintf("[%s]", source)
	}
}

func formatAge(createdAt, now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if createdAt.IsZero() || createdAt.After(now) {
		return "just now"
	}

	age := now.Sub(createdAt)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
