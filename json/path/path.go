// Package path extrai valores de documentos JSON decodificados usando
// caminhos no formato "a.b[0].c".
package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Extractor navega um documento já decodificado (map, slice ou escalar).
type Extractor struct {
	data any
}

// NewExtractor decodifica data. Números viram json.Number.
func NewExtractor(data []byte) (*Extractor, error) {
	var doc any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("path: decode document: %w", err)
	}
	return &Extractor{data: doc}, nil
}

func FromValue(doc any) *Extractor {
	return &Extractor{data: doc}
}

// Extract devolve o valor em p. Caminho vazio devolve o documento inteiro.
//
//	"name"              campo da raiz
//	"author.username"   objetos aninhados
//	"[0].score"         elemento de um array na raiz
//	"tags[1]"           elemento de um array num campo
func (e *Extractor) Extract(p string) (any, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return e.data, nil
	}
	segs, err := parse(p)
	if err != nil {
		return nil, err
	}

	cur := e.data
	for i, s := range segs {
		if s.index >= 0 {
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("path: expected array at %q, found %T", prefix(segs, i+1), cur)
			}
			if s.index >= len(arr) {
				return nil, fmt.Errorf("path: index %d out of range at %q (len %d)", s.index, prefix(segs, i+1), len(arr))
			}
			cur = arr[s.index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path: expected object at %q, found %T", prefix(segs, i), cur)
		}
		v, found := m[s.field]
		if !found {
			return nil, fmt.Errorf("path: field %q not found", prefix(segs, i+1))
		}
		cur = v
	}
	return cur, nil
}

// Exists informa se p resolve para algum valor.
func (e *Extractor) Exists(p string) bool {
	_, err := e.Extract(p)
	return err == nil
}

// String formata escalares sem aspas; objetos e arrays voltam como JSON.
func (e *Extractor) String(p string) (string, error) {
	v, err := e.Extract(p)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case nil:
		return "null", nil
	case bool, float64, int, int64:
		return fmt.Sprint(t), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// segment é um campo (index < 0) ou um índice de array.
type segment struct {
	field string
	index int
}

func parse(p string) ([]segment, error) {
	var segs []segment
	for _, part := range strings.Split(p, ".") {
		if part == "" {
			return nil, fmt.Errorf("path: empty segment in %q", p)
		}
		name := part
		rest := ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			name, rest = part[:i], part[i:]
		}
		if name != "" {
			segs = append(segs, segment{field: name, index: -1})
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, fmt.Errorf("path: malformed index in %q", part)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("path: invalid index %q in %q", rest[1:end], part)
			}
			segs = append(segs, segment{index: n})
			rest = rest[end+1:]
		}
	}
	return segs, nil
}

func prefix(segs []segment, n int) string {
	var b strings.Builder
	for _, s := range segs[:n] {
		if s.index >= 0 {
			fmt.Fprintf(&b, "[%d]", s.index)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.field)
	}
	if b.Len() == 0 {
		return "$"
	}
	return b.String()
}
