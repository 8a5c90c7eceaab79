package query

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

// Where monta o objeto "where". Restrições no mesmo campo são mescladas em
// um único objeto de operadores; duas condições que disputam a mesma chave
// com valores diferentes falham em vez de uma sobrescrever a outra.
func Where(s Spec) (map[string]any, error) {
	where := make(map[string]any)
	equals := make(map[string]value.Value)

	for _, c := range s.Constraints {
		if err := c.Validate(); err != nil {
			return nil, err
		}

		if c.Operator == EqualTo {
			if prev, ok := equals[c.Field]; ok {
				if !prev.Equal(c.Operand) {
					return nil, conflict(c.Field)
				}
				continue
			}
			if _, ok := where[c.Field]; ok {
				return nil, conflict(c.Field)
			}
			equals[c.Field] = c.Operand
			where[c.Field] = c.Operand.Wire()
			continue
		}

		if _, ok := equals[c.Field]; ok {
			return nil, conflict(c.Field)
		}
		ops, err := operatorsFor(where, c.Field)
		if err != nil {
			return nil, err
		}
		var set []opEntry
		switch c.Operator {
		case Exists:
			set = []opEntry{{"$exists", true}}
		case DoesNotExist:
			set = []opEntry{{"$exists", false}}
		case StartsWith, EndsWith, Contains:
			lit, _ := c.Operand.AsString()
			set = []opEntry{{"$regex", regexFor(c.Operator, lit)}, {"$options", nil}}
		case MatchesRegex:
			set = []opEntry{{"$regex", c.Operand.Interface()}, {"$options", optionsWire(c.Options)}}
		case FullText:
			set = []opEntry{{"$text", searchWire(c.Search)}}
		default:
			set = []opEntry{{c.Operator.Token(), c.Operand.Wire()}}
		}
		if err := mergeOps(ops, c.Field, set); err != nil {
			return nil, err
		}
	}

	if s.Search != nil {
		if s.Search.Term == "" {
			return nil, parseerr.NewPrecondition(fmt.Errorf("%w: empty search term", ErrInvalidOperand))
		}
		where["$text"] = searchWire(s.Search)
	}
	if s.Related != nil {
		where["$relatedTo"] = map[string]any{
			"object": value.PointerValue(s.Related.Object).Wire(),
			"key":    s.Related.Key,
		}
	}
	return where, nil
}

func operatorsFor(where map[string]any, field string) (map[string]any, error) {
	existing, ok := where[field]
	if !ok {
		ops := make(map[string]any)
		where[field] = ops
		return ops, nil
	}
	if !isOperatorMap(existing) {
		return nil, conflict(field)
	}
	return existing.(map[string]any), nil
}

// isOperatorMap distingue um objeto de operadores ({"$lt": 1}) de um valor
// de igualdade já gravado, como um Pointer, que também é um mapa.
func isOperatorMap(x any) bool {
	m, ok := x.(map[string]any)
	if !ok || len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

// opEntry é um par token/operando; operando nil significa que o token
// precisa estar ausente (regex literal não aceita $options de outra condição).
type opEntry struct {
	token   string
	operand any
}

func optionsWire(options string) any {
	if options == "" {
		return nil
	}
	return options
}

// mergeOps grava os tokens em ops só depois de conferir todos, para que uma
// falha não deixe o mapa pela metade.
func mergeOps(ops map[string]any, field string, set []opEntry) error {
	_, hasRegex := ops["$regex"]
	for _, e := range set {
		prev, ok := ops[e.token]
		switch {
		case e.operand == nil:
			if ok {
				return operatorConflict(field, e.token)
			}
		case ok:
			if !reflect.DeepEqual(prev, e.operand) {
				return operatorConflict(field, e.token)
			}
		case e.token == "$options" && hasRegex:
			// o $regex existente foi gravado sem opções
			return operatorConflict(field, e.token)
		}
	}
	for _, e := range set {
		if e.operand != nil {
			ops[e.token] = e.operand
		}
	}
	return nil
}

func operatorConflict(field, token string) error {
	return parseerr.NewPrecondition(fmt.Errorf("%w: %q on %q", ErrConflictingOperator, token, field))
}

func conflict(field string) error {
	return parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrConflictingEquality, field))
}

func regexFor(op Operator, literal string) string {
	quoted := regexp.QuoteMeta(literal)
	switch op {
	case StartsWith:
		return "^" + quoted
	case EndsWith:
		return quoted + "$"
	}
	return quoted
}

func searchWire(t *TextSearch) map[string]any {
	search := map[string]any{"$term": t.Term}
	if t.Language != "" {
		search["$language"] = t.Language
	}
	if t.CaseSensitive != nil {
		search["$caseSensitive"] = *t.CaseSensitive
	}
	if t.DiacriticSensitive != nil {
		search["$diacriticSensitive"] = *t.DiacriticSensitive
	}
	return map[string]any{"$search": search}
}

func encodeWhere(s Spec) (string, bool, error) {
	where, err := Where(s)
	if err != nil {
		return "", false, err
	}
	if len(where) == 0 {
		return "", false, nil
	}
	data, err := json.Marshal(where)
	if err != nil {
		return "", false, parseerr.NewDecode(err, "encode where")
	}
	return string(data), true, nil
}

// Compile produz os parâmetros de um find: where, order, limit, skip, keys
// e include. É uma função pura: a mesma Spec gera sempre os mesmos valores.
func Compile(s Spec) (url.Values, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	params := url.Values{}

	where, ok, err := encodeWhere(s)
	if err != nil {
		return nil, err
	}
	if ok {
		params.Set("where", where)
	}
	if order := OrderString(s.Order); order != "" {
		params.Set("order", order)
	}
	if s.Limit != nil {
		params.Set("limit", strconv.Itoa(*s.Limit))
	}
	if s.Skip > 0 {
		params.Set("skip", strconv.Itoa(s.Skip))
	}
	if len(s.Keys) > 0 {
		params.Set("keys", strings.Join(s.Keys, ","))
	}
	if len(s.Include) > 0 {
		params.Set("include", strings.Join(s.Include, ","))
	}
	return params, nil
}

// CompileCount produz o formato de contagem: count=1 e limit=0 como
// parâmetros de topo, nunca dentro de where. Ordenação, paginação e
// projeção não se aplicam e são descartadas.
func CompileCount(s Spec) (url.Values, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	params := url.Values{}

	where, ok, err := encodeWhere(s)
	if err != nil {
		return nil, err
	}
	if ok {
		params.Set("where", where)
	}
	params.Set("count", "1")
	params.Set("limit", "0")
	return params, nil
}

// CompileDistinct monta o pipeline do endpoint /aggregate que devolve os
// valores distintos de field entre os objetos que satisfazem a Spec.
func CompileDistinct(s Spec, field string) (url.Values, error) {
	if field == "" {
		return nil, parseerr.NewPrecondition(ErrEmptyField)
	}
	where, err := whereForPipeline(s)
	if err != nil {
		return nil, err
	}
	pipeline := make([]any, 0, 2)
	if len(where) > 0 {
		pipeline = append(pipeline, map[string]any{"$match": where})
	}
	pipeline = append(pipeline, map[string]any{"$group": map[string]any{"_id": "$" + field}})
	return pipelineParams(pipeline)
}

// CompileAggregate envia os estágios informados. Quando a Spec tem
// restrições, um $match equivalente é inserido como primeiro estágio.
func CompileAggregate(s Spec, stages []value.Value) (url.Values, error) {
	if len(stages) == 0 {
		return nil, parseerr.NewPrecondition(fmt.Errorf("%w: empty pipeline", ErrInvalidOperand))
	}
	where, err := whereForPipeline(s)
	if err != nil {
		return nil, err
	}

	pipeline := make([]any, 0, len(stages)+1)
	if len(where) > 0 {
		pipeline = append(pipeline, map[string]any{"$match": where})
	}
	for _, stage := range stages {
		if stage.Kind() != value.KindObject {
			return nil, parseerr.NewPrecondition(fmt.Errorf("%w: pipeline stage must be an object, got %s", ErrInvalidOperand, stage.Kind()))
		}
		pipeline = append(pipeline, stage.Wire())
	}
	return pipelineParams(pipeline)
}

func whereForPipeline(s Spec) (map[string]any, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return Where(s)
}

func pipelineParams(pipeline []any) (url.Values, error) {
	data, err := json.Marshal(pipeline)
	if err != nil {
		return nil, parseerr.NewDecode(err, "encode pipeline")
	}
	params := url.Values{}
	params.Set("pipeline", string(data))
	return params, nil
}

// OrderString junta as chaves com vírgula, prefixando "-" nas descendentes.
func OrderString(keys []SortKey) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Descending {
			parts = append(parts, "-"+k.Field)
		} else {
			parts = append(parts, k.Field)
		}
	}
	return strings.Join(parts, ",")
}
