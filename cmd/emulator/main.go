package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	pkgconfig "github.com/raywall/parse-toolkit/pkg/config"
	"github.com/raywall/parse-toolkit/pkg/logger"
	"github.com/raywall/parse-toolkit/tools/emulator"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

// Injetável para testes
var serverStarter = func(ctx context.Context, s *emulator.Server) error {
	return s.Start(ctx)
}

func main() {
	log.Logger = logger.Configure(pkgconfig.LoggingConf{
		Enabled: true,
		Level:   envOr("EMULATOR_LOG_LEVEL", "debug"),
		Format:  "console",
		Service: "parse-emulator",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv("EMULATOR_CONFIG_PATH"), log.Logger); err != nil {
		log.Fatal().Err(err).Msg("emulator failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// run carrega a configuração (ou usa os padrões) e sobe o servidor.
func run(ctx context.Context, configPath string, l zerolog.Logger) error {
	var cfg config.Config
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			return err
		}
	} else {
		cfg = config.Load()
	}

	srv, err := emulator.New(cfg, emulator.WithLogger(l))
	if err != nil {
		return err
	}
	return serverStarter(ctx, srv)
}
