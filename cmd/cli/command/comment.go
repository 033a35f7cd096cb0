package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"devstudio/internal/comments"
	"devstudio/internal/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Blog comment commands",
	Long:  `Read and manage the comments of a blog post: list, post, reply and delete.`,
}

var listCommentsCmd = &cobra.Command{
	Use:   "list [post-id]",
	Short: "List the comments of a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, _ := cmd.Flags().GetInt("pages")
		showReplies, _ := cmd.Flags().GetBool("replies")

		th := newThread(args[0])
		defer th.Close()

		if err := loadPages(cmd.Context(), th, pages); err != nil {
			return reported(err)
		}
		if showReplies {
			expandAll(th, th.Comments())
		}

		renderThread(os.Stdout, th)
		return nil
	},
}

var postCommentCmd = &cobra.Command{
	Use:   "post [post-id] [content]",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		th := newThread(args[0])
		defer th.Close()

		created, err := th.PostTopLevelComment(cmd.Context(), strings.Join(args[1:], " "))
		if err != nil {
			return reported(err)
		}

		fmt.Println("✓ Comment posted successfully!")
		fmt.Printf("Comment ID: %s\n", created.ID)
		fmt.Printf("Posted by: %s\n", created.AuthorName)
		fmt.Printf("Created at: %s\n", created.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var replyCommentCmd = &cobra.Command{
	Use:   "reply [post-id] [comment-id] [content]",
	Short: "Reply to a comment",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID := args[1]
		th := newThread(args[0])
		defer th.Close()

		created, err := th.PostReply(cmd.Context(), parentID, strings.Join(args[2:], " "))
		if created == nil {
			return reported(err)
		}
		fmt.Printf("✓ Reply %s posted under comment %s\n", created.ID, parentID)
		if err != nil {
			// posted, but the refreshed thread could not be shown
			return reported(err)
		}

		fmt.Println()
		renderThread(os.Stdout, th)
		return nil
	},
}

var deleteCommentCmd = &cobra.Command{
	Use:   "delete [post-id] [comment-id]",
	Short: "Delete your comment and its replies",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		commentID := args[1]
		th := newThread(args[0])
		defer th.Close()

		// the comment has to be in the loaded tree before it can be deleted
		for !th.Has(commentID) && th.HasMore() {
			if err := th.LoadMore(cmd.Context()); err != nil {
				return reported(err)
			}
		}

		err := th.DeleteComment(cmd.Context(), commentID)
		if errors.Is(err, comments.ErrCancelled) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err != nil {
			return reported(err)
		}

		fmt.Printf("✓ Comment %s deleted successfully!\n", commentID)
		return nil
	},
}

func newThread(postID string) *comments.Thread {
	return comments.NewThread(postID, deps.client, comments.Options{
		PageSize:  deps.cfg.CommentPageSize,
		Confirmer: newConfirmer(),
		Notifier:  deps.notifier,
		Logger:    deps.logger.Named("comments"),
	})
}

// loadPages loads up to n pages, fewer when the thread runs out.
func loadPages(ctx context.Context, th *comments.Thread, n int) error {
	for i := 0; i < max(n, 1); i++ {
		if i > 0 && !th.HasMore() {
			break
		}
		if err := th.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

func expandAll(th *comments.Thread, list []models.Comment) {
	for _, c := range list {
		if len(c.Replies) == 0 {
			continue
		}
		if !th.Expanded(c.ID) {
			th.Toggle(c.ID)
		}
		expandAll(th, c.Replies)
	}
}

func renderThread(w io.Writer, th *comments.Thread) {
	list := th.Comments()
	if len(list) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}

	fmt.Fprintf(w, "%d comments (%d including replies):\n\n", len(list), comments.Count(list))
	for _, c := range list {
		renderComment(w, th, c, 0)
	}
	if th.HasMore() {
		fmt.Fprintln(w, color.HiBlackString("More comments available, use --pages to load them."))
	}
}

func renderComment(w io.Writer, th *comments.Thread, c models.Comment, depth int) {
	indent := strings.Repeat("    ", depth)
	name := color.New(color.Bold).Sprint(c.AuthorName)
	if c.IsOwner {
		name += color.CyanString(" (you)")
	}
	fmt.Fprintf(w, "%s[%s] %s  %s  %s\n", indent, c.AuthorInitials, name,
		color.HiBlackString(c.CreatedAt.Format("2006-01-02 15:04")), color.HiBlackString("#"+c.ID))
	for _, line := range strings.Split(c.Content, "\n") {
		fmt.Fprintf(w, "%s  %s\n", indent, line)
	}

	if len(c.Replies) == 0 {
		if depth == 0 {
			fmt.Fprintln(w, strings.Repeat("-", 50))
		}
		return
	}
	if !th.Expanded(c.ID) {
		fmt.Fprintf(w, "%s  %s\n", indent, color.HiBlackString("%d replies hidden", comments.Count(c.Replies)))
	} else {
		for _, r := range c.Replies {
			renderComment(w, th, r, depth+1)
		}
	}
	if depth == 0 {
		fmt.Fprintln(w, strings.Repeat("-", 50))
	}
}

func init() {
	// Add subcommands
	commentCmd.AddCommand(listCommentsCmd)
	commentCmd.AddCommand(postCommentCmd)
	commentCmd.AddCommand(replyCommentCmd)
	commentCmd.AddCommand(deleteCommentCmd)

	// Flags for list command
	listCommentsCmd.Flags().Int("pages", 1, "Number of pages to load")
	listCommentsCmd.Flags().Bool("replies", false, "Expand all reply threads")
}
