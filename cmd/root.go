package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wb",
		Short:         "whiteboard CLI (wb): browse boards and follow notifications",
		Long:          "wb is a terminal client for the whiteboard platform: sign in, browse boards and posts, and follow notifications live over the push stream.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newMeCmd(app),
		newBoardsCmd(app),
		newPostsCmd(app),
		newNotificationsCmd(app),
	)

	return rootCmd
}
