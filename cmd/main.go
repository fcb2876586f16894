package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	root := newRootCommand(log)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(log *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookworm",
		Short:         "Client for the bookworm book-recommendation service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newRegisterCommand(log),
		newLoginCommand(log),
		newLogoutCommand(log),
		newWhoamiCommand(log),
		newFeedCommand(log),
		newProfileCommand(log),
		newPostCommand(log),
		newDeleteCommand(log),
		newWatchCommand(log),
	)

	return root
}
