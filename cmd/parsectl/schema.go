package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/pkg/bootstrap"
)

func (c *cli) schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage class schemas (requires the master key)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every class",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, _ []string) error {
			schemas, err := app.Client.Schemas(ctx)
			if err != nil {
				return err
			}
			return c.emit(cmd, schemas)
		}),
	}

	get := &cobra.Command{
		Use:   "get <class>",
		Short: "Show one class",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
			s, err := app.Client.GetSchema(ctx, args[0])
			if err != nil {
				return err
			}
			return c.emit(cmd, s)
		}),
	}

	var fields []string
	create := &cobra.Command{
		Use:   "create <class>",
		Short: "Create a class with the given fields",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
			s := parse.NewSchema(args[0])
			for _, f := range fields {
				if err := addField(s, f); err != nil {
					return err
				}
			}
			created, err := app.Client.CreateSchema(ctx, s)
			if err != nil {
				return err
			}
			return c.emit(cmd, created)
		}),
	}
	create.Flags().StringArrayVar(&fields, "column", nil, "name:Type or name:Pointer:TargetClass (repeatable)")

	var purge bool
	drop := &cobra.Command{
		Use:   "delete <class>",
		Short: "Drop a class; it must be empty unless --purge is set",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
			if purge {
				if err := app.Client.PurgeClass(ctx, args[0]); err != nil {
					return err
				}
			}
			if err := app.Client.DeleteSchema(ctx, args[0]); err != nil {
				return err
			}
			app.Log.Info().Str("class", args[0]).Bool("purged", purge).Msg("class dropped")
			return nil
		}),
	}
	drop.Flags().BoolVar(&purge, "purge", false, "delete every object before dropping the class")

	cmd.AddCommand(list, get, create, drop)
	return cmd
}

// addField interpreta "nome:Tipo" e "nome:Pointer:Classe".
func addField(s *parse.Schema, spec string) error {
	parts := strings.Split(spec, ":")
	switch {
	case len(parts) == 2:
		return s.AddField(parts[0], parse.FieldType(parts[1]))
	case len(parts) == 3 && parts[1] == string(parse.TypePointer):
		return s.AddPointer(parts[0], parts[2])
	case len(parts) == 3 && parts[1] == string(parse.TypeRelation):
		return s.AddRelation(parts[0], parts[2])
	}
	return fmt.Errorf("invalid field %q: expected name:Type or name:Pointer:Class", spec)
}
