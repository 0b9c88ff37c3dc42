package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	render "github.com/weedrice/whiteboard-cli/internal/adapters/render/notifications"
)

func newNotificationsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read and follow notifications",
	}

	cmd.AddCommand(
		newNotificationsListCmd(app),
		newNotificationsUnreadCmd(app),
		newNotificationsReadCmd(app),
		newNotificationsReadAllCmd(app),
		newNotificationsWatchCmd(app),
	)

	return cmd
}

func newNotificationsListCmd(app *app) *cobra.Command {
	var page int
	var size int
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter("/notifications", true)

			if _, err := app.feed.FetchNotifications(cmd.Context(), page, size); err != nil {
				return err
			}
			if _, err := app.feed.FetchUnreadCount(cmd.Context()); err != nil {
				return err
			}

			output, err := render.Render(app.feed.Notifications(), app.feed.UnreadCount(), render.RenderOptions{
				UnreadOnly: unreadOnly,
			})
			if err != nil {
				return fmt.Errorf("render notifications: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number (zero-based)")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Show unread notifications only")

	return cmd
}

func newNotificationsUnreadCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Show the unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter("/notifications", true)

			count, err := app.feed.FetchUnreadCount(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}
}

func newNotificationsReadCmd(app *app) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Mark one notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter("/notifications", true)

			// The optimistic path needs the notification locally first.
			if _, err := app.feed.FetchNotifications(cmd.Context(), 0, 0); err != nil {
				return err
			}
			if err := app.feed.MarkAsRead(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Notification %d marked read\n", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Notification ID")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newNotificationsReadAllCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter("/notifications", true)

			if _, err := app.feed.FetchNotifications(cmd.Context(), 0, 0); err != nil {
				return err
			}
			if err := app.feed.MarkAllAsRead(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "All notifications marked read")
			return nil
		},
	}
}
