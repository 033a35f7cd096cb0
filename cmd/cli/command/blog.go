package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"devstudio/internal/listing"
	"devstudio/internal/models"
	"devstudio/internal/pagination"
	"devstudio/internal/reactions"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Blog commands",
	Long:  `Browse, search and like blog posts.`,
}

var listBlogsCmd = &cobra.Command{
	Use:   "list",
	Short: "List blog posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showBlogPage(cmd, "")
	},
}

var searchBlogsCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search blog posts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showBlogPage(cmd, strings.Join(args, " "))
	},
}

var showBlogCmd = &cobra.Command{
	Use:   "show [post-id]",
	Short: "Show a blog post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		post, err := deps.client.GetBlog(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get blog post: %w", err)
		}

		fmt.Println(color.New(color.Bold).Sprint(post.Title))
		fmt.Printf("By %s on %s", post.AuthorName, post.CreatedAt.Format("2006-01-02"))
		if post.Category != "" {
			fmt.Printf(" in %s", post.Category)
		}
		fmt.Println()
		fmt.Printf("%s %d likes\n\n", likeMark(post.LikedByMe), post.Likes)
		if post.Content != "" {
			fmt.Println(post.Content)
		} else {
			fmt.Println(post.Excerpt)
		}
		fmt.Println()
		fmt.Println(color.HiBlackString("Comments: devstudio comment list %s", post.ID))
		return nil
	},
}

var likeBlogCmd = &cobra.Command{
	Use:   "like [post-id]",
	Short: "Like or unlike a blog post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		post, err := deps.client.GetBlog(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get blog post: %w", err)
		}

		likes := reactions.NewLikes(*post, deps.client, deps.session, deps.notifier, deps.logger.Named("likes"))
		state, err := likes.Toggle(cmd.Context())
		if err != nil {
			return reported(err)
		}

		if state.Liked {
			fmt.Printf("✓ You liked \"%s\" (%d likes)\n", post.Title, state.Likes)
		} else {
			fmt.Printf("✓ You no longer like \"%s\" (%d likes)\n", post.Title, state.Likes)
		}
		return nil
	},
}

var browseBlogsCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse blog posts interactively",
	Long: `Browse blog posts interactively. Type to search; the search runs once you
stop typing. Commands start with a colon:
  :next  :prev  :page N  :more  :cat NAME  :quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		accumulate, _ := cmd.Flags().GetBool("more")
		return browseBlogs(cmd.Context(), stdinLines(), os.Stdout, accumulate)
	},
}

func blogFetcher() listing.Fetcher[models.BlogPost] {
	return func(ctx context.Context, term string, page, size int) (pagination.Page[models.BlogPost], error) {
		return deps.client.ListBlogs(ctx, term, page, size)
	}
}

func newBlogListing(mode listing.Mode, onSearch func(string, error)) *listing.Controller[models.BlogPost] {
	return listing.New(blogFetcher(), models.BlogPostKey, listing.Options[models.BlogPost]{
		Mode:     mode,
		PageSize: deps.cfg.BlogPageSize,
		Filters:  listing.BlogFilters(),
		Debounce: deps.cfg.DebounceDelay,
		Notifier: deps.notifier,
		Logger:   deps.logger.Named("blogs"),
		OnSearch: onSearch,
	})
}

func showBlogPage(cmd *cobra.Command, term string) error {
	page, _ := cmd.Flags().GetInt("page")
	category, _ := cmd.Flags().GetString("category")

	ctl := newBlogListing(listing.ModeNumbered, nil)
	defer ctl.Close()

	if err := ctl.Search(cmd.Context(), term); err != nil {
		return reported(err)
	}
	if category != "" {
		if err := ctl.SetFilter(cmd.Context(), listing.FilterCategory, category); err != nil {
			return reported(err)
		}
	}
	if page > 1 {
		if err := ctl.SetPage(cmd.Context(), page-1); err != nil {
			return reported(err)
		}
	}

	renderBlogs(os.Stdout, ctl)
	return nil
}

func renderBlogs(w io.Writer, ctl *listing.Controller[models.BlogPost]) {
	posts := ctl.Visible()
	if term := ctl.Term(); term != "" {
		fmt.Fprintf(w, "Results for %q\n", term)
	}
	if len(posts) == 0 {
		fmt.Fprintln(w, "No blog posts found.")
		return
	}

	for _, p := range posts {
		fmt.Fprintf(w, "%s  %s\n", color.HiBlackString("#"+p.ID), color.New(color.Bold).Sprint(p.Title))
		fmt.Fprintf(w, "    %s · %s · %s %d\n", p.AuthorName, p.Category, likeMark(p.LikedByMe), p.Likes)
		if p.Excerpt != "" {
			fmt.Fprintf(w, "    %s\n", p.Excerpt)
		}
	}
	if total := ctl.TotalPages(); total > 0 {
		fmt.Fprintf(w, "\nPage %d/%d\n", ctl.PageIndex()+1, total)
	}
}

func likeMark(liked bool) string {
	if liked {
		return color.RedString("♥")
	}
	return "♡"
}

// browseBlogs runs the interactive browser until :quit or end of input.
func browseBlogs(ctx context.Context, lines <-chan string, w io.Writer, accumulate bool) error {
	mode := listing.ModeNumbered
	if accumulate {
		mode = listing.ModeAccumulate
	}

	var ctl *listing.Controller[models.BlogPost]
	ctl = newBlogListing(mode, func(term string, err error) {
		if err == nil {
			renderBlogs(w, ctl)
		}
	})
	defer ctl.Close()

	if err := ctl.Refresh(ctx); err != nil {
		return reported(err)
	}
	renderBlogs(w, ctl)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := browseCommand(ctx, ctl, w, line)
			if quit {
				return nil
			}
			if err != nil && !errors.Is(err, listing.ErrClosed) {
				// already notified; keep browsing
				deps.logger.Debug("browse command failed", zap.String("line", line), zap.Error(err))
			}
		}
	}
}

func browseCommand(ctx context.Context, ctl *listing.Controller[models.BlogPost], w io.Writer, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		ctl.SetSearchTerm(strings.TrimSpace(line))
		return false, nil
	}

	fields := strings.Fields(line)
	var err error
	switch fields[0] {
	case ":q", ":quit":
		return true, nil
	case ":next":
		err = ctl.SetPage(ctx, ctl.PageIndex()+1)
	case ":prev":
		err = ctl.SetPage(ctx, ctl.PageIndex()-1)
	case ":page":
		if len(fields) < 2 {
			fmt.Fprintln(w, "usage: :page N")
			return false, nil
		}
		n, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			fmt.Fprintln(w, "usage: :page N")
			return false, nil
		}
		err = ctl.SetPage(ctx, n-1)
	case ":more":
		err = ctl.LoadMore(ctx)
	case ":cat":
		err = ctl.SetFilter(ctx, listing.FilterCategory, strings.Join(fields[1:], " "))
	default:
		fmt.Fprintf(w, "unknown command %s\n", fields[0])
		return false, nil
	}
	if err == nil {
		renderBlogs(w, ctl)
	}
	return false, err
}

// stdinLines feeds stdin lines to the browser until EOF.
func stdinLines() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		r := stdin()
		for {
			line, err := readLine(r)
			if err != nil {
				return
			}
			lines <- line
		}
	}()
	return lines
}

func init() {
	blogCmd.AddCommand(listBlogsCmd)
	blogCmd.AddCommand(searchBlogsCmd)
	blogCmd.AddCommand(showBlogCmd)
	blogCmd.AddCommand(likeBlogCmd)
	blogCmd.AddCommand(browseBlogsCmd)

	for _, c := range []*cobra.Command{listBlogsCmd, searchBlogsCmd} {
		c.Flags().Int("page", 1, "Page number")
		c.Flags().String("category", "", "Only show posts in this category")
	}
	browseBlogsCmd.Flags().Bool("more", false, "Append pages instead of replacing them")
}
