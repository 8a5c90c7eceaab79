package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raywall/parse-toolkit/pkg/bootstrap"
)

func (c *cli) runCmd() *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:   "run <function>",
		Short: "Call a Cloud Code function",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&params, "params", "p", "", "parameters as a JSON object")
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		p, err := document([]byte(params))
		if err != nil {
			return err
		}
		var in any
		if p != nil {
			in = p
		}
		result, err := app.Client.Run(ctx, args[0], in)
		if err != nil {
			return err
		}
		return c.emit(cmd, result.Wire())
	})
	return cmd
}

func (c *cli) jobCmd() *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:   "job <name>",
		Short: "Start a background job (requires the master key)",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&params, "params", "p", "", "parameters as a JSON object")
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		p, err := document([]byte(params))
		if err != nil {
			return err
		}
		var in any
		if p != nil {
			in = p
		}
		id, err := app.Client.RunJob(ctx, args[0], in)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
		return err
	})
	return cmd
}

func (c *cli) uploadCmd() *cobra.Command {
	var name, contentType string
	cmd := &cobra.Command{
		Use:   "upload <path|s3://bucket/key>",
		Short: "Upload a file and print its name and URL",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "file name on the server (defaults to the source name)")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "content type (detected when empty)")
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		src, err := sourceFactory(ctx, app.Config, args[0])
		if err != nil {
			return err
		}
		p, err := src.Read(ctx, args[0])
		if err != nil {
			return err
		}
		if name == "" {
			name = p.Name
		}
		if contentType == "" {
			contentType = p.ContentType
		}
		f, err := app.Client.UploadFile(ctx, name, p.Data, contentType)
		if err != nil {
			return err
		}
		return c.emit(cmd, map[string]string{"name": f.Name, "url": f.URL})
	})
	return cmd
}
