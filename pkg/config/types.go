package config

import (
	"time"

	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/pkg/auth"
)

// FileConfig representa a estrutura raiz do arquivo YAML usado pelo
// parsectl e pelo bridge.
type FileConfig struct {
	Version string       `yaml:"version" validate:"required"`
	Parse   parse.Config `yaml:"parse"`
	Logging LoggingConf  `yaml:"logging"`
	Metrics MetricsConf  `yaml:"metrics"`
	Session SessionConf  `yaml:"session"`
	AWS     AWSConf      `yaml:"aws"`
	Bridge  BridgeConf   `yaml:"bridge"`
	// Gateway autentica as chamadas num gateway OAuth2 na frente do Parse.
	Gateway auth.Config `yaml:"gateway"`
}

type LoggingConf struct {
	Enabled bool   `yaml:"enabled" env:"PARSE_LOG_ENABLED"`
	Level   string `yaml:"level" env:"PARSE_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format  string `yaml:"format" env:"PARSE_LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
	// Output é stdout ou stderr; o parsectl usa stderr para não misturar
	// logs com o resultado dos comandos.
	Output  string `yaml:"output" env:"PARSE_LOG_OUTPUT" envDefault:"stdout" validate:"oneof=stdout stderr"`
	Service string `yaml:"service" env:"PARSE_LOG_SERVICE"`
}

type MetricsConf struct {
	Datadog DatadogConf `yaml:"datadog"`
}

type DatadogConf struct {
	Enabled   bool     `yaml:"enabled" env:"DD_ENABLED"`
	Addr      string   `yaml:"addr" env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string   `yaml:"namespace" env:"DD_NAMESPACE" envDefault:"parse."`
	Tags      []string `yaml:"tags" env:"DD_TAGS"`
}

// SessionConf escolhe onde o snapshot de sessão é persistido entre execuções.
type SessionConf struct {
	Backend  string     `yaml:"backend" env:"PARSE_SESSION_BACKEND" envDefault:"none" validate:"oneof=none memory redis dynamodb"`
	Key      string     `yaml:"key" env:"PARSE_SESSION_KEY" envDefault:"default"`
	Redis    RedisConf  `yaml:"redis"`
	DynamoDB DynamoConf `yaml:"dynamodb"`
}

type RedisConf struct {
	Addr     string        `yaml:"addr" env:"PARSE_REDIS_ADDR"`
	Password string        `yaml:"password" env:"PARSE_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"PARSE_REDIS_DB"`
	Prefix   string        `yaml:"prefix" env:"PARSE_REDIS_PREFIX" envDefault:"parse:session:"`
	TTL      time.Duration `yaml:"ttl" env:"PARSE_REDIS_TTL"`
}

type DynamoConf struct {
	Table string `yaml:"table" env:"PARSE_DYNAMODB_TABLE"`
	// TTL preenche o atributo expires_at; zero grava sem expiração.
	TTL time.Duration `yaml:"ttl" env:"PARSE_DYNAMODB_TTL"`
}

type AWSConf struct {
	Region string `yaml:"region" env:"AWS_REGION"`
}

// BridgeConf configura o encaminhamento de eventos para o Cloud Code: no
// Lambda (apigateway, sqs) ou consumindo a fila diretamente (poll).
type BridgeConf struct {
	Mode     string `yaml:"mode" env:"PARSE_BRIDGE_MODE" envDefault:"apigateway" validate:"oneof=apigateway sqs poll"`
	QueueURL string `yaml:"queue_url" env:"PARSE_BRIDGE_QUEUE_URL"`
	// Function é a Cloud Function chamada para cada mensagem SQS; com Job
	// verdadeiro o nome é tratado como job em background.
	Function string `yaml:"function" env:"PARSE_BRIDGE_FUNCTION"`
	Job      bool   `yaml:"job" env:"PARSE_BRIDGE_JOB"`
}
