package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newRegisterCommand(log *slog.Logger) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)

			if err := a.session.Register(ctx, username, email, password); err != nil {
				return err
			}

			snap := a.session.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", snap.User.Username)

			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLoginCommand(log *slog.Logger) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)

			if err := a.session.Login(ctx, email, password); err != nil {
				return err
			}

			snap := a.session.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", snap.User.Username)

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCommand(log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)
			a.session.Logout(ctx)

			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")

			return nil
		},
	}
}

func newWhoamiCommand(log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)

			snap := a.session.Snapshot()
			if !snap.SignedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")

				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", snap.User.Username, snap.User.Email)

			return nil
		},
	}
}
