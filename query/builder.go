package query

import (
	"context"
	"fmt"
	"net/url"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

// Executor executa as formas de requisição compiladas. O pacote parse
// fornece a implementação real; testes podem usar um fake.
type Executor[T any] interface {
	Find(ctx context.Context, className string, params url.Values) ([]T, error)
	Count(ctx context.Context, className string, params url.Values) (int64, error)
	Aggregate(ctx context.Context, className string, params url.Values) ([]map[string]value.Value, error)
}

// Filter é uma opção funcional aplicável a um Query.
type Filter[T any] func(*Query[T])

// DefaultPageSize é o tamanho de página usado por Each.
const DefaultPageSize = 100

// Query é o builder fluente. Os métodos acumulam estado e devolvem o
// próprio Query; o primeiro erro de construção é guardado e devolvido pela
// operação terminal, sem ida ao servidor.
type Query[T any] struct {
	exec Executor[T]
	spec Spec
	err  error
}

// New cria um Query para className executado por exec.
func New[T any](exec Executor[T], className string) *Query[T] {
	return &Query[T]{exec: exec, spec: Spec{ClassName: className}}
}

// Spec devolve uma cópia do estado acumulado.
func (q *Query[T]) Spec() Spec { return q.spec.Clone() }

// Err devolve o primeiro erro de construção, se houver.
func (q *Query[T]) Err() error { return q.err }

func (q *Query[T]) fail(err error) *Query[T] {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Where adiciona uma Constraint já montada.
func (q *Query[T]) Where(c Constraint) *Query[T] {
	if err := c.Validate(); err != nil {
		return q.fail(err)
	}
	q.spec.Constraints = append(q.spec.Constraints, c)
	return q
}

func (q *Query[T]) add(field string, op Operator, operand any) *Query[T] {
	v, err := value.From(operand)
	if err != nil {
		return q.fail(parseerr.Wrap(parseerr.Precondition, err, fmt.Sprintf("operand for %q", field)))
	}
	return q.Where(Constraint{Field: field, Operator: op, Operand: v})
}

func (q *Query[T]) EqualTo(field string, v any) *Query[T] { return q.add(field, EqualTo, v) }

func (q *Query[T]) NotEqualTo(field string, v any) *Query[T] { return q.add(field, NotEqualTo, v) }

func (q *Query[T]) GreaterThan(field string, v any) *Query[T] {
	return q.add(field, GreaterThan, v)
}

func (q *Query[T]) GreaterThanOrEqualTo(field string, v any) *Query[T] {
	return q.add(field, GreaterOrEqual, v)
}

func (q *Query[T]) LessThan(field string, v any) *Query[T] { return q.add(field, LessThan, v) }

func (q *Query[T]) LessThanOrEqualTo(field string, v any) *Query[T] {
	return q.add(field, LessOrEqual, v)
}

// ContainedIn exige um slice (ou um value.Value do tipo Array).
func (q *Query[T]) ContainedIn(field string, values any) *Query[T] {
	return q.add(field, ContainedIn, values)
}

func (q *Query[T]) NotContainedIn(field string, values any) *Query[T] {
	return q.add(field, NotContainedIn, values)
}

func (q *Query[T]) ContainsAll(field string, values any) *Query[T] {
	return q.add(field, ContainsAll, values)
}

func (q *Query[T]) Exists(field string) *Query[T] {
	return q.Where(Constraint{Field: field, Operator: Exists})
}

func (q *Query[T]) DoesNotExist(field string) *Query[T] {
	return q.Where(Constraint{Field: field, Operator: DoesNotExist})
}

// StartsWith trata prefix como texto literal.
func (q *Query[T]) StartsWith(field, prefix string) *Query[T] {
	return q.add(field, StartsWith, prefix)
}

func (q *Query[T]) EndsWith(field, suffix string) *Query[T] {
	return q.add(field, EndsWith, suffix)
}

func (q *Query[T]) Contains(field, substring string) *Query[T] {
	return q.add(field, Contains, substring)
}

// Matches usa pattern sem escape; options vai para $options (ex.: "i", "im").
func (q *Query[T]) Matches(field, pattern, options string) *Query[T] {
	return q.Where(Constraint{Field: field, Operator: MatchesRegex, Operand: value.String(pattern), Options: options})
}

// SearchOption ajusta uma busca textual.
type SearchOption func(*TextSearch)

func WithLanguage(lang string) SearchOption {
	return func(t *TextSearch) { t.Language = lang }
}

func WithCaseSensitive(on bool) SearchOption {
	return func(t *TextSearch) { t.CaseSensitive = &on }
}

func WithDiacriticSensitive(on bool) SearchOption {
	return func(t *TextSearch) { t.DiacriticSensitive = &on }
}

func newSearch(term string, opts []SearchOption) *TextSearch {
	t := &TextSearch{Term: term}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Search define a busca textual de topo: where.$text.$search.
func (q *Query[T]) Search(term string, opts ...SearchOption) *Query[T] {
	t := newSearch(term, opts)
	if t.Term == "" {
		return q.fail(parseerr.NewPrecondition(fmt.Errorf("%w: empty search term", ErrInvalidOperand)))
	}
	q.spec.Search = t
	return q
}

// SearchField restringe a busca textual a um campo indexado.
func (q *Query[T]) SearchField(field, term string, opts ...SearchOption) *Query[T] {
	return q.Where(Constraint{Field: field, Operator: FullText, Search: newSearch(term, opts)})
}

// RelatedTo restringe aos objetos presentes na relação key de parent.
func (q *Query[T]) RelatedTo(parent value.Pointer, key string) *Query[T] {
	if parent.ClassName == "" || parent.ObjectID == "" || key == "" {
		return q.fail(parseerr.NewPrecondition(fmt.Errorf("%w: relatedTo needs a saved parent and a key", ErrInvalidOperand)))
	}
	q.spec.Related = &Related{Object: parent, Key: key}
	return q
}

// OrderBy acrescenta chaves ascendentes, na ordem recebida.
func (q *Query[T]) OrderBy(fields ...string) *Query[T] {
	for _, f := range fields {
		q.spec.Order = append(q.spec.Order, SortKey{Field: f})
	}
	return q
}

func (q *Query[T]) OrderByDescending(fields ...string) *Query[T] {
	for _, f := range fields {
		q.spec.Order = append(q.spec.Order, SortKey{Field: f, Descending: true})
	}
	return q
}

func (q *Query[T]) Limit(n int) *Query[T] {
	if n < 0 {
		return q.fail(parseerr.NewPrecondition(ErrNegativePagination))
	}
	q.spec.Limit = &n
	return q
}

func (q *Query[T]) Skip(n int) *Query[T] {
	if n < 0 {
		return q.fail(parseerr.NewPrecondition(ErrNegativePagination))
	}
	q.spec.Skip = n
	return q
}

// Select restringe os campos devolvidos. Repetições são ignoradas.
func (q *Query[T]) Select(keys ...string) *Query[T] {
	q.spec.Keys = appendUnique(q.spec.Keys, keys)
	return q
}

// Include expande ponteiros (aceita caminhos como "post.author").
func (q *Query[T]) Include(keys ...string) *Query[T] {
	q.spec.Include = appendUnique(q.spec.Include, keys)
	return q
}

func appendUnique(dst, items []string) []string {
	for _, item := range items {
		if item == "" {
			continue
		}
		dup := false
		for _, d := range dst {
			if d == item {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, item)
		}
	}
	return dst
}

// Apply aplica filtros funcionais.
func (q *Query[T]) Apply(filters ...Filter[T]) *Query[T] {
	for _, f := range filters {
		f(q)
	}
	return q
}

func WithConstraint[T any](c Constraint) Filter[T] {
	return func(q *Query[T]) { q.Where(c) }
}

func WithLimit[T any](n int) Filter[T] {
	return func(q *Query[T]) { q.Limit(n) }
}

func WithSkip[T any](n int) Filter[T] {
	return func(q *Query[T]) { q.Skip(n) }
}

func WithOrder[T any](keys ...SortKey) Filter[T] {
	return func(q *Query[T]) { q.spec.Order = append(q.spec.Order, keys...) }
}

func WithInclude[T any](keys ...string) Filter[T] {
	return func(q *Query[T]) { q.Include(keys...) }
}
