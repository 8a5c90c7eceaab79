package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	jsonpath "github.com/raywall/parse-toolkit/json/path"
	"github.com/raywall/parse-toolkit/parse"
	"github.com/raywall/parse-toolkit/value"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// emit escreve v como JSON ou, com --field, apenas o valor do caminho.
func (c *cli) emit(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	if c.field == "" {
		return printJSON(out, v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e, err := jsonpath.NewExtractor(data)
	if err != nil {
		return err
	}
	s, err := e.String(c.field)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, s)
	return err
}

// objectDoc devolve o objeto no formato REST, com os campos de sistema.
func objectDoc(o *parse.Object) map[string]any {
	doc := make(map[string]any)
	for k, v := range o.Fields() {
		doc[k] = v.Wire()
	}
	if o.ObjectID != "" {
		doc["objectId"] = o.ObjectID
	}
	if !o.CreatedAt.IsZero() {
		doc["createdAt"] = value.FormatDate(o.CreatedAt)
	}
	if !o.UpdatedAt.IsZero() {
		doc["updatedAt"] = value.FormatDate(o.UpdatedAt)
	}
	if len(o.ACL) > 0 {
		doc["ACL"] = o.ACL.Value().Wire()
	}
	return doc
}

func objectDocs(objs []*parse.Object) []map[string]any {
	out := make([]map[string]any, len(objs))
	for i, o := range objs {
		out[i] = objectDoc(o)
	}
	return out
}

func valueDocs(fields map[string]value.Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v.Wire()
	}
	return out
}

// literal interpreta s como JSON; o que não for JSON válido vira string.
func literal(s string) any {
	var v any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

// assignment separa "campo=valor".
func assignment(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("expected field=value, got %q", s)
	}
	return key, literal(raw), nil
}

// document decodifica um objeto JSON preservando números.
func document(data []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc map[string]any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	return doc, nil
}
