package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"bookworm/internal/domain"

	"github.com/spf13/cobra"
)

func newFeedCommand(log *slog.Logger) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the community feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)

			feedSync := a.newSynchronizer()

			// Feed failures degrade to "no change", never to a hard error.
			if err := feedSync.Refresh(ctx); err != nil {
				log.WarnContext(ctx, "Feed refresh failed",
					"error", err)
			}
			for page := 1; page < pages; page++ {
				if err := feedSync.LoadMore(ctx); err != nil {
					break
				}
			}

			state := feedSync.Snapshot()
			printBooks(cmd.OutOrStdout(), state.Items)
			fmt.Fprintf(cmd.OutOrStdout(), "page %d, more: %v\n", state.CurrentPage, state.HasMore)

			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")

	return cmd
}

func newProfileCommand(log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your own recommendations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)

			books, err := a.client.FetchUserBooks(ctx)
			if err != nil {
				return err
			}

			printBooks(cmd.OutOrStdout(), books)
			fmt.Fprintf(cmd.OutOrStdout(), "%d recommendations\n", len(books))

			return nil
		},
	}
}

func newPostCommand(log *slog.Logger) *cobra.Command {
	var (
		title   string
		caption string
		rating  int
		image   string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a recommendation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if rating < 1 || rating > 5 {
				return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
			}

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)

			dataURL, err := imageDataURL(image)
			if err != nil {
				return err
			}

			book, err := a.client.CreateBook(ctx, title, caption, rating, dataURL)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Published %q (%s)\n", book.Title, book.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&caption, "caption", "", "why you recommend it")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&image, "image", "", "path to a cover image")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("caption")
	_ = cmd.MarkFlagRequired("rating")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func newDeleteCommand(log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)

			feedSync := a.newSynchronizer()
			if err := feedSync.Refresh(ctx); err != nil {
				log.WarnContext(ctx, "Feed refresh failed",
					"error", err)
			}

			if err := feedSync.Delete(ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])

			return nil
		},
	}
}

func printBooks(w io.Writer, books []domain.Book) {
	for _, b := range books {
		fmt.Fprintf(w, "%s  %q by @%s  %s\n",
			b.ID,
			b.Title,
			b.Author.Username,
			strings.Repeat("*", b.Rating))
	}
}

func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
