package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raywall/parse-toolkit/pkg/bootstrap"
	"github.com/raywall/parse-toolkit/value"
)

var errInvalidConfig = errors.New("configuration is invalid")

// Report é o resultado de config validate.
type Report struct {
	Path   string   `json:"path"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Local configuration and server parameters",
	}

	var asJSON bool
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := Report{Path: c.configPath, Valid: true}
			if _, err := bootstrap.LoadConfig(cmd.Context(), c.configPath); err != nil {
				report.Valid = false
				report.Errors = append(report.Errors, err.Error())
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := c.emit(cmd, report); err != nil {
					return err
				}
			} else if report.Valid {
				fmt.Fprintf(out, "configuration %s is valid\n", report.Path)
			} else {
				fmt.Fprintf(out, "configuration %s has errors:\n", report.Path)
				for _, e := range report.Errors {
					fmt.Fprintf(out, " - %s\n", e)
				}
			}
			if !report.Valid {
				return errInvalidConfig
			}
			return nil
		},
	}
	validate.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	params := &cobra.Command{
		Use:   "params",
		Short: "Print the server parameters from /config",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, _ []string) error {
			p, err := app.Client.ServerConfig(ctx)
			if err != nil {
				return err
			}
			return c.emit(cmd, valueDocs(p))
		}),
	}

	set := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Update server parameters (requires the master key)",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, _ *cobra.Command, args []string) error {
			updates := make(map[string]value.Value, len(args))
			for _, a := range args {
				key, raw, err := assignment(a)
				if err != nil {
					return err
				}
				v, err := value.From(raw)
				if err != nil {
					return err
				}
				updates[key] = v
			}
			if err := app.Client.UpdateServerConfig(ctx, updates); err != nil {
				return err
			}
			app.Log.Info().Int("params", len(updates)).Msg("server config updated")
			return nil
		}),
	}

	cmd.AddCommand(validate, params, set)
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server health endpoint",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, _ []string) error {
			status, err := app.Client.Health(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), status)
			return err
		}),
	}
}
