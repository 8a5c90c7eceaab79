package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/pkg/bootstrap"
	"github.com/raywall/parse-toolkit/query"
)

// filters são as flags de consulta compartilhadas por find e count.
type filters struct {
	eq, ne, gt, gte, lt, lte []string
	exists                   []string
	search                   string
	order                    string
	limit, skip              int
	keys, include            []string
}

func (f *filters) bind(cmd *cobra.Command, paging bool) {
	fl := cmd.Flags()
	fl.StringArrayVar(&f.eq, "eq", nil, "field=value equality constraint (repeatable)")
	fl.StringArrayVar(&f.ne, "ne", nil, "field=value inequality constraint")
	fl.StringArrayVar(&f.gt, "gt", nil, "field=value greater than")
	fl.StringArrayVar(&f.gte, "gte", nil, "field=value greater than or equal")
	fl.StringArrayVar(&f.lt, "lt", nil, "field=value less than")
	fl.StringArrayVar(&f.lte, "lte", nil, "field=value less than or equal")
	fl.StringArrayVar(&f.exists, "exists", nil, "field that must be set")
	fl.StringVar(&f.search, "search", "", "full text search term ($text)")
	if !paging {
		return
	}
	fl.StringVar(&f.order, "order", "", "comma separated sort keys, prefix with - for descending")
	fl.IntVar(&f.limit, "limit", 0, "maximum number of results")
	fl.IntVar(&f.skip, "skip", 0, "number of results to skip")
	fl.StringSliceVar(&f.keys, "keys", nil, "fields to return")
	fl.StringSliceVar(&f.include, "include", nil, "pointer fields to expand")
}

func (f *filters) apply(cmd *cobra.Command, q *query.Query[*parse.Object]) (*query.Query[*parse.Object], error) {
	groups := []struct {
		items []string
		add   func(string, any) *query.Query[*parse.Object]
	}{
		{f.eq, q.EqualTo},
		{f.ne, q.NotEqualTo},
		{f.gt, q.GreaterThan},
		{f.gte, q.GreaterThanOrEqualTo},
		{f.lt, q.LessThan},
		{f.lte, q.LessThanOrEqualTo},
	}
	for _, g := range groups {
		for _, item := range g.items {
			key, v, err := assignment(item)
			if err != nil {
				return nil, err
			}
			g.add(key, v)
		}
	}
	for _, field := range f.exists {
		q.Exists(field)
	}
	if f.search != "" {
		q.Search(f.search)
	}

	for _, key := range strings.Split(f.order, ",") {
		switch key = strings.TrimSpace(key); {
		case key == "":
		case strings.HasPrefix(key, "-"):
			q.OrderByDescending(key[1:])
		default:
			q.OrderBy(key)
		}
	}
	if cmd.Flags().Changed("limit") {
		q.Limit(f.limit)
	}
	if cmd.Flags().Changed("skip") {
		q.Skip(f.skip)
	}
	if len(f.keys) > 0 {
		q.Select(f.keys...)
	}
	if len(f.include) > 0 {
		q.Include(f.include...)
	}
	return q, q.Err()
}

func (c *cli) getCmd() *cobra.Command {
	var include []string
	cmd := &cobra.Command{
		Use:   "get <class> <objectId>",
		Short: "Fetch one object",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "pointer fields to expand")
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		q := app.Client.Query(args[0])
		if len(include) > 0 {
			q.Include(include...)
		}
		obj, err := q.Get(ctx, args[1])
		if err != nil {
			return err
		}
		return c.emit(cmd, objectDoc(obj))
	})
	return cmd
}

func (c *cli) findCmd() *cobra.Command {
	f := &filters{}
	cmd := &cobra.Command{
		Use:   "find <class>",
		Short: "Query objects of a class",
		Args:  cobra.ExactArgs(1),
	}
	f.bind(cmd, true)
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		q, err := f.apply(cmd, app.Client.Query(args[0]))
		if err != nil {
			return err
		}
		objs, err := q.Find(ctx)
		if err != nil {
			return err
		}
		return c.emit(cmd, objectDocs(objs))
	})
	return cmd
}

func (c *cli) countCmd() *cobra.Command {
	f := &filters{}
	cmd := &cobra.Command{
		Use:   "count <class>",
		Short: "Count objects matching the filters",
		Args:  cobra.ExactArgs(1),
	}
	f.bind(cmd, false)
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		q, err := f.apply(cmd, app.Client.Query(args[0]))
		if err != nil {
			return err
		}
		n, err := q.Count(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
		return err
	})
	return cmd
}

func (c *cli) saveCmd() *cobra.Command {
	var (
		data string
		file string
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "save <class> [objectId]",
		Short: "Create an object, or update it when objectId is given",
		Args:  cobra.RangeArgs(1, 2),
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "fields as a JSON object")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read fields from a local file or s3://bucket/key")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value assignment (repeatable)")
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		fields, err := readFields(ctx, app, data, file)
		if err != nil {
			return err
		}
		for _, s := range sets {
			key, v, err := assignment(s)
			if err != nil {
				return err
			}
			fields[key] = v
		}

		obj := parse.NewObject(args[0])
		if len(args) == 2 {
			obj.ObjectID = args[1]
		}
		for k, v := range fields {
			if err := obj.Set(k, v); err != nil {
				return err
			}
		}
		if err := app.Client.Save(ctx, obj); err != nil {
			return err
		}
		return c.emit(cmd, objectDoc(obj))
	})
	return cmd
}

func readFields(ctx context.Context, app *bootstrap.App, data, file string) (map[string]any, error) {
	raw := []byte(data)
	if file != "" {
		src, err := sourceFactory(ctx, app.Config, file)
		if err != nil {
			return nil, err
		}
		p, err := src.Read(ctx, file)
		if err != nil {
			return nil, err
		}
		raw = p.Data
	}
	fields, err := document(raw)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func (c *cli) deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <class> <objectId>",
		Short: "Delete one object",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = c.withApp(func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error {
		obj := parse.NewObject(args[0])
		obj.ObjectID = args[1]
		if err := app.Client.Delete(ctx, obj); err != nil {
			return err
		}
		app.Log.Info().Str("class", args[0]).Str("objectId", args[1]).Msg("object deleted")
		return nil
	})
	return cmd
}
