// Package secrets resolve credenciais do cliente Parse guardadas no SSM
// Parameter Store ou no Secrets Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/goccy/go-json"
)

var (
	ErrEmptyReference = errors.New("secrets: empty reference")
	ErrFieldNotFound  = errors.New("secrets: field not found in secret")
)

// SSMClient é o subconjunto do cliente SSM usado aqui.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretsClient é o subconjunto do cliente Secrets Manager usado aqui.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver busca parâmetros e segredos. Satisfaz injector.Resolver.
type Resolver struct {
	ssm     SSMClient
	secrets SecretsClient
}

func NewResolver(ssmClient SSMClient, secretsClient SecretsClient) *Resolver {
	return &Resolver{ssm: ssmClient, secrets: secretsClient}
}

// NewAWSResolver monta o Resolver com os clientes reais.
func NewAWSResolver(ctx context.Context, region string) (*Resolver, error) {
	cfg, err := AWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return NewResolver(ssm.NewFromConfig(cfg), secretsmanager.NewFromConfig(cfg)), nil
}

// Parameter lê um parâmetro do SSM, sempre com decriptação.
func (r *Resolver) Parameter(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", ErrEmptyReference
	}
	decrypt := true
	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &path,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("secrets: ssm get parameter %s: %w", path, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("secrets: ssm parameter %s has no value", path)
	}
	return *out.Parameter.Value, nil
}

// Secret lê um segredo. A forma "id#campo" extrai um campo de um segredo
// JSON; sem "#" devolve a string inteira.
func (r *Resolver) Secret(ctx context.Context, ref string) (string, error) {
	id, field, _ := strings.Cut(ref, "#")
	if id == "" {
		return "", ErrEmptyReference
	}
	out, err := r.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &id,
	})
	if err != nil {
		return "", fmt.Errorf("secrets: get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secrets: secret %s has no string value", id)
	}
	raw := *out.SecretString
	if field == "" {
		return raw, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return "", fmt.Errorf("secrets: secret %s is not json: %w", id, err)
	}
	v, ok := data[field]
	if !ok {
		return "", fmt.Errorf("%w: %s#%s", ErrFieldNotFound, id, field)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
