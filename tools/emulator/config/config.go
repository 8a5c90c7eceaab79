package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/raywall/parse-toolkit/tools/emulator/types"
)

const (
	DefaultPort      = 1337
	DefaultMountPath = "/parse"
)

// Config descreve uma instância do emulador: credenciais aceitas, dados
// iniciais, respostas fixas de Cloud Code e rotas sobrescritas.
type Config struct {
	Port          int                        `json:"port"`
	MountPath     string                     `json:"mount_path"`
	ApplicationID string                     `json:"application_id"`
	MasterKey     string                     `json:"master_key"`
	Classes       map[string][]types.Fixture `json:"classes,omitempty"`
	Functions     map[string]types.Response  `json:"functions,omitempty"`
	Params        map[string]interface{}     `json:"params,omitempty"`
	Routes        []RouteConfig              `json:"routes,omitempty"`
}

// Load carrega a configuração do arquivo padrão (emulator.json) ou via variável de ambiente.
// Retorna uma configuração padrão se o arquivo não existir, para não quebrar a inicialização.
func Load() Config {
	path := os.Getenv("EMULATOR_CONFIG_PATH")
	if path == "" {
		path = "emulator.json"
	}

	var cfg Config
	if err := cfg.LoadFromFile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("emulator config not loaded, starting empty")
		cfg = Config{}
	}
	cfg.Defaults()
	return cfg
}

func (cfg *Config) LoadFromFile(filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("erro ao ler arquivo: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("erro ao parsear json: %w", err)
	}
	cfg.Defaults()
	return nil
}

// Defaults preenche porta, mount path e application id.
func (cfg *Config) Defaults() {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MountPath == "" {
		cfg.MountPath = DefaultMountPath
	}
	cfg.MountPath = "/" + strings.Trim(cfg.MountPath, "/")
	if cfg.ApplicationID == "" {
		cfg.ApplicationID = "myAppId"
	}
}
