package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBoardsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "Browse boards",
	}

	cmd.AddCommand(newBoardsListCmd(app))

	return cmd
}

func newBoardsListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter("/boards", false)

			boards, err := app.boards.ListBoards(cmd.Context())
			if err != nil {
				return err
			}

			for _, board := range boards {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s (%d posts)\n", board.BoardID, board.Slug, board.Name, board.PostCount)
			}
			return nil
		},
	}
}

func newPostsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Browse and write posts",
	}

	cmd.AddCommand(newPostsListCmd(app), newPostsGetCmd(app), newPostsCreateCmd(app))

	return cmd
}

func newPostsListCmd(app *app) *cobra.Command {
	var boardID int64
	var page int
	var size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts on a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter(fmt.Sprintf("/boards/%d", boardID), false)

			posts, err := app.boards.ListPosts(cmd.Context(), boardID, page, size)
			if err != nil {
				return err
			}

			for _, post := range posts.Content {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\tby %s (%d comments)\n", post.PostID, post.Title, post.Author.DisplayName, post.CommentCount)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d posts total\n", posts.Page+1, posts.TotalPages, posts.TotalElements)
			return nil
		},
	}

	cmd.Flags().Int64Var(&boardID, "board", 0, "Board ID")
	cmd.Flags().IntVar(&page, "page", 0, "Page number (zero-based)")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	_ = cmd.MarkFlagRequired("board")

	return cmd
}

func newPostsGetCmd(app *app) *cobra.Command {
	var postID int64

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter(fmt.Sprintf("/posts/%d", postID), false)

			post, err := app.boards.GetPost(cmd.Context(), postID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\nby %s, %d views\n\n%s\n", post.Title, post.Author.DisplayName, post.ViewCount, post.Content)
			return nil
		},
	}

	cmd.Flags().Int64Var(&postID, "post", 0, "Post ID")
	_ = cmd.MarkFlagRequired("post")

	return cmd
}

func newPostsCreateCmd(app *app) *cobra.Command {
	var boardID int64
	var title string
	var content string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.nav.Enter(fmt.Sprintf("/boards/%d/write", boardID), true)

			post, err := app.boards.CreatePost(cmd.Context(), boardID, title, content)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created post %d: %s\n", post.PostID, post.Title)
			return nil
		},
	}

	cmd.Flags().Int64Var(&boardID, "board", 0, "Board ID")
	cmd.Flags().StringVar(&title, "title", "", "Post title")
	cmd.Flags().StringVar(&content, "content", "", "Post content")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}
