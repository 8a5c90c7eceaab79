package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"github.com/raywall/parse-toolkit/bridge"
	"github.com/raywall/parse-toolkit/pkg/bootstrap"
	"github.com/raywall/parse-toolkit/pkg/secrets"
)

var (
	configPath string
	// Variáveis injetáveis para mocking
	lambdaStarter = lambda.Start
	pollerStarter = func(ctx context.Context, p *bridge.Poller) error { return p.Start(ctx) }
	sqsFactory    = func(ctx context.Context, region string) (bridge.SQSClient, error) {
		cfg, err := secrets.AWSConfig(ctx, region)
		if err != nil {
			return nil, err
		}
		return sqs.NewFromConfig(cfg), nil
	}
)

func init() {
	configPath = os.Getenv("PARSE_CONFIG_PATH")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath); err != nil {
		log.Fatal().Err(err).Msg("bridge failed")
	}
}

// run carrega a configuração e escolhe o runtime pelo bridge.mode. Sem
// arquivo, tudo vem das variáveis de ambiente.
func run(ctx context.Context, cfgPath string) error {
	cfg, err := bootstrap.LoadConfig(ctx, cfgPath)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	target := bridge.Target{Function: cfg.Bridge.Function, Job: cfg.Bridge.Job}
	app.Log.Info().Str("mode", cfg.Bridge.Mode).Str("server", app.Client.ServerURL()).Msg("starting bridge")

	switch cfg.Bridge.Mode {
	case "apigateway":
		lambdaStarter(bridge.NewAPIGatewayHandler(app.Client, app.Log).Handle)
		return nil
	case "sqs":
		lambdaStarter(bridge.NewSQSHandler(app.Client, target, app.Log).Handle)
		return nil
	case "poll":
		client, err := sqsFactory(ctx, cfg.AWS.Region)
		if err != nil {
			return fmt.Errorf("bridge: sqs client: %w", err)
		}
		return pollerStarter(ctx, bridge.NewPoller(client, cfg.Bridge.QueueURL, app.Client, target, app.Log))
	}
	return fmt.Errorf("bridge: unknown mode %q", cfg.Bridge.Mode)
}
