package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/weedrice/whiteboard-cli/internal/domain"
)

func newNotificationsWatchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow notifications live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter("/notifications", true)

			if !app.gw.Session().Authenticated() {
				return domain.ErrNotAuthenticated
			}

			if err := app.feed.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connect notification stream: %w", err)
			}
			defer app.feed.Close()

			app.feed.StartPolling(cmd.Context(), app.pollInterval)

			p := tea.NewProgram(newWatchModel(app), tea.WithContext(cmd.Context()))
			app.feed.SetOnEvent(func(event domain.Notification) {
				p.Send(notificationMsg{event: event})
			})
			defer app.feed.SetOnEvent(nil)

			_, err := p.Run()
			return err
		},
	}
}

type notificationMsg struct {
	event domain.Notification
}

type watchModel struct {
	app     *app
	spinner spinner.Model
	events  []domain.Notification

	headline lipgloss.Style
	unread   lipgloss.Style
	meta     lipgloss.Style
}

func newWatchModel(app *app) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return watchModel{
		app:      app,
		spinner:  s,
		headline: lipgloss.NewStyle().Bold(true),
		unread:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		meta:     lipgloss.NewStyle().Faint(true),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case notificationMsg:
		m.events = append([]domain.Notification{msg.event}, m.events...)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m watchModel) View() string {
	lines := []string{
		m.headline.Render("Watching notifications") + " " + m.spinner.View() +
			" " + m.meta.Render(fmt.Sprintf("unread: %d", m.app.feed.UnreadCount())),
	}

	for _, event := range m.events {
		line := m.unread.Render("● ") + event.Message
		if event.Actor.DisplayName != "" {
			line += " " + m.meta.Render("from "+event.Actor.DisplayName)
		}
		line += " " + m.meta.Render(event.CreatedAt.Format(time.Kitchen))
		lines = append(lines, line)
	}

	lines = append(lines, m.meta.Render("press q to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
