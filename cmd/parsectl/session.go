package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/pkg/bootstrap"
)

func userDoc(u *parse.User) map[string]any {
	doc := objectDoc(u.Object)
	if u.SessionToken != "" {
		doc["sessionToken"] = u.SessionToken
	}
	return doc
}

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and keep the session in the configured store",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (defaults to $PARSE_PASSWORD)")
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		if password == "" {
			password = os.Getenv("PARSE_PASSWORD")
		}
		if app.Store == nil {
			app.Log.Warn().Msg("session backend is none; the session ends with this command")
		}
		u, err := app.Client.Login(ctx, args[0], password)
		if err != nil {
			return err
		}
		return c.emit(cmd, userDoc(u))
	})
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, _ *cobra.Command, _ []string) error {
			if err := app.Client.Logout(ctx); err != nil {
				if errors.Is(err, parse.ErrNotLoggedIn) {
					app.Log.Info().Msg("no session to end")
					return nil
				}
				return err
			}
			app.Log.Info().Msg("logged out")
			return nil
		}),
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user of the stored session",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, _ []string) error {
			u, err := app.Client.Me(ctx)
			if err != nil {
				return err
			}
			return c.emit(cmd, userDoc(u))
		}),
	}
}
