package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/raywall/parse-toolkit/envloader"
	"github.com/raywall/parse-toolkit/pkg/config/injector"
)

const currentVersion = "1"

// Load monta a configuração em três camadas: arquivo YAML (opcional quando
// path é vazio), variáveis de ambiente via envloader e, por fim, as
// referências ${env.X}, ${ssm.x} e ${secret.x} resolvidas por resolver.
// O resultado é validado antes de ser devolvido.
func Load(ctx context.Context, path string, resolver injector.Resolver) (*FileConfig, error) {
	cfg := &FileConfig{Version: currentVersion}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := envloader.Load(cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	if err := injector.New(resolver).Inject(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: resolve references: %w", err)
	}
	if err := NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
