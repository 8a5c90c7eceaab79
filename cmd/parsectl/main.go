package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raywall/parse-toolkit/pkg/bootstrap"
	"github.com/raywall/parse-toolkit/pkg/config"
	"github.com/raywall/parse-toolkit/pkg/filesource"
	"github.com/raywall/parse-toolkit/sessionstore"
)

// Pontos de injeção usados pelos testes.
var (
	storeFactory  = bootstrap.NewStore
	sourceFactory = func(ctx context.Context, cfg *config.FileConfig, ref string) (*filesource.Source, error) {
		if filesource.IsS3(ref) {
			return filesource.NewAWS(ctx, cfg.AWS.Region)
		}
		return filesource.New(nil), nil
	}
)

// cli guarda o estado compartilhado entre os comandos de uma execução.
type cli struct {
	configPath string
	field      string
}

type action func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "parsectl",
		Short:         "Command line client for the Parse Server REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("PARSE_CONFIG_PATH"), "path to the YAML configuration")
	root.PersistentFlags().StringVar(&c.field, "field", "", "print only the value at this path (e.g. author.username or [0].score)")

	root.AddCommand(
		c.getCmd(), c.findCmd(), c.countCmd(), c.saveCmd(), c.deleteCmd(),
		c.runCmd(), c.jobCmd(), c.uploadCmd(),
		c.schemaCmd(),
		c.loginCmd(), c.logoutCmd(), c.whoamiCmd(),
		c.configCmd(), c.healthCmd(),
	)
	return root
}

// withApp monta o App antes da ação e restaura a sessão persistida, se houver.
func (c *cli) withApp(fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := bootstrap.LoadConfig(ctx, c.configPath)
		if err != nil {
			return err
		}
		store, err := storeFactory(ctx, cfg)
		if err != nil {
			return err
		}
		app, err := bootstrap.NewWithStore(ctx, cfg, cmd.ErrOrStderr(), store)
		if err != nil {
			return err
		}
		defer app.Close()

		if _, err := app.RestoreSession(ctx); err != nil && !errors.Is(err, sessionstore.ErrNotFound) {
			app.Log.Warn().Err(err).Msg("stored session not restored")
		}
		return fn(ctx, app, cmd, args)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
