// Package injector substitui referências ${env.X}, ${ssm.caminho} e
// ${secret.id[#campo]} em campos string de uma struct de configuração.
package injector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
)

// Regex para capturar padrões ${tipo.chave}
// Ex: ${env.PARSE_MASTER_KEY}, ${ssm./parse/prod/rest_key}, ${secret.parse/prod#master_key}
var pattern = regexp.MustCompile(`\$\{(env|ssm|secret)\.([^}]+)\}`)

// ErrNoResolver indica referência ssm/secret sem Resolver configurado.
var ErrNoResolver = errors.New("injector: ssm and secret references need a resolver")

// Resolver busca valores remotos. *secrets.Resolver satisfaz a interface.
type Resolver interface {
	Parameter(ctx context.Context, path string) (string, error)
	Secret(ctx context.Context, ref string) (string, error)
}

type Injector struct {
	resolver Resolver
	lookup   func(string) (string, bool)
}

// New cria um Injector. resolver pode ser nil quando só ${env.X} é usado.
func New(resolver Resolver) *Injector {
	return &Injector{resolver: resolver, lookup: os.LookupEnv}
}

// Inject percorre target (ponteiro para struct) substituindo as referências.
func (i *Injector) Inject(ctx context.Context, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("injector: target must be a non-nil pointer")
	}
	return i.walk(ctx, v.Elem())
}

func (i *Injector) walk(ctx context.Context, v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		if !v.CanSet() {
			return nil
		}
		out, err := i.Interpolate(ctx, v.String())
		if err != nil {
			return err
		}
		v.SetString(out)

	case reflect.Struct:
		for k := 0; k < v.NumField(); k++ {
			if !v.Type().Field(k).IsExported() {
				continue
			}
			if err := i.walk(ctx, v.Field(k)); err != nil {
				return fmt.Errorf("%s: %w", v.Type().Field(k).Name, err)
			}
		}

	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			return i.walk(ctx, v.Elem())
		}

	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			if err := i.walk(ctx, v.Index(j)); err != nil {
				return err
			}
		}

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String {
			return nil
		}
		return i.walkMap(ctx, v)
	}
	return nil
}

// walkMap reescreve valores string de mapas (que não são endereçáveis).
func (i *Injector) walkMap(ctx context.Context, v reflect.Value) error {
	iter := v.MapRange()
	updates := map[reflect.Value]reflect.Value{}
	for iter.Next() {
		elem := iter.Value()
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		if !elem.IsValid() {
			continue
		}
		switch elem.Kind() {
		case reflect.String:
			out, err := i.Interpolate(ctx, elem.String())
			if err != nil {
				return err
			}
			nv := reflect.ValueOf(out)
			if v.Type().Elem().Kind() == reflect.String {
				nv = nv.Convert(v.Type().Elem())
			}
			updates[iter.Key()] = nv
		case reflect.Map:
			if err := i.walk(ctx, elem); err != nil {
				return err
			}
		}
	}
	for k, val := range updates {
		v.SetMapIndex(k, val)
	}
	return nil
}

// Interpolate substitui todas as referências em input.
func (i *Injector) Interpolate(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var firstErr error
	result := pattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := pattern.FindStringSubmatch(match)
		val, err := i.fetch(ctx, sub[1], sub[2])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return val
	})
	return result, firstErr
}

func (i *Injector) fetch(ctx context.Context, source, key string) (string, error) {
	switch source {
	case "env":
		val, _ := i.lookup(key)
		return val, nil
	case "ssm":
		if i.resolver == nil {
			return "", ErrNoResolver
		}
		return i.resolver.Parameter(ctx, key)
	case "secret":
		if i.resolver == nil {
			return "", ErrNoResolver
		}
		return i.resolver.Secret(ctx, key)
	}
	return "", fmt.Errorf("injector: unknown source %q", source)
}
