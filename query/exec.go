package query

import (
	"context"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

// ErrNoResults é devolvido por First e Get quando nada satisfaz a consulta.
// Compartilha o código ObjectNotFound com a resposta do servidor para um GET
// de objeto inexistente, então parseerr.IsCode(err, parseerr.ObjectNotFound)
// cobre os dois casos.
var ErrNoResults = &parseerr.Error{Kind: parseerr.ParseCode, Code: parseerr.ObjectNotFound, Message: "no object matches the query"}

func (q *Query[T]) ready() error {
	if q.err != nil {
		return q.err
	}
	return q.spec.validate()
}

// Find executa a consulta e devolve todos os resultados da página.
func (q *Query[T]) Find(ctx context.Context) ([]T, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	params, err := Compile(q.spec)
	if err != nil {
		return nil, err
	}
	return q.exec.Find(ctx, q.spec.ClassName, params)
}

// First executa com limit=1.
func (q *Query[T]) First(ctx context.Context) (T, error) {
	var zero T
	if err := q.ready(); err != nil {
		return zero, err
	}
	spec := q.spec.Clone()
	one := 1
	spec.Limit = &one

	params, err := Compile(spec)
	if err != nil {
		return zero, err
	}
	items, err := q.exec.Find(ctx, spec.ClassName, params)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNoResults
	}
	return items[0], nil
}

// Get busca um objeto pelo objectId respeitando Select e Include.
func (q *Query[T]) Get(ctx context.Context, objectID string) (T, error) {
	var zero T
	if objectID == "" {
		return zero, parseerr.NewPrecondition(ErrEmptyField)
	}
	cp := &Query[T]{exec: q.exec, spec: q.spec.Clone(), err: q.err}
	cp.spec.Skip = 0
	cp.spec.Order = nil
	return cp.EqualTo("objectId", objectID).First(ctx)
}

// Count usa a forma count=1&limit=0.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	params, err := CompileCount(q.spec)
	if err != nil {
		return 0, err
	}
	return q.exec.Count(ctx, q.spec.ClassName, params)
}

// Distinct devolve os valores distintos de field. O servidor devolve cada
// grupo com o _id renomeado para objectId.
func (q *Query[T]) Distinct(ctx context.Context, field string) ([]value.Value, error) {
	if q.err != nil {
		return nil, q.err
	}
	params, err := CompileDistinct(q.spec, field)
	if err != nil {
		return nil, err
	}
	rows, err := q.exec.Aggregate(ctx, q.spec.ClassName, params)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, 0, len(rows))
	for _, row := range rows {
		v, ok := row["objectId"]
		if !ok {
			return nil, parseerr.NewDecode(nil, "distinct row without objectId")
		}
		out = append(out, v)
	}
	return out, nil
}

// Aggregate executa estágios arbitrários no endpoint /aggregate.
func (q *Query[T]) Aggregate(ctx context.Context, stages ...value.Value) ([]map[string]value.Value, error) {
	if q.err != nil {
		return nil, q.err
	}
	params, err := CompileAggregate(q.spec, stages)
	if err != nil {
		return nil, err
	}
	return q.exec.Aggregate(ctx, q.spec.ClassName, params)
}

// Each percorre os resultados em páginas de DefaultPageSize usando skip,
// respeitando Limit quando definido. Um erro devolvido por fn interrompe a
// iteração e é repassado.
func (q *Query[T]) Each(ctx context.Context, fn func(T) error) error {
	if err := q.ready(); err != nil {
		return err
	}
	spec := q.spec.Clone()
	remaining := -1
	if spec.Limit != nil {
		remaining = *spec.Limit
	}
	skip := spec.Skip

	for remaining != 0 {
		if err := ctx.Err(); err != nil {
			return parseerr.NewTransport(err)
		}
		page := DefaultPageSize
		if remaining > 0 && remaining < page {
			page = remaining
		}
		spec.Limit = &page
		spec.Skip = skip

		params, err := Compile(spec)
		if err != nil {
			return err
		}
		items, err := q.exec.Find(ctx, spec.ClassName, params)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if len(items) < page {
			return nil
		}
		skip += len(items)
		if remaining > 0 {
			remaining -= len(items)
		}
	}
	return nil
}
