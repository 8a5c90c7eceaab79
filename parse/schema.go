package parse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

// FieldType é o tipo declarado de uma coluna no schema.
type FieldType string

const (
	TypeString   FieldType = "String"
	TypeNumber   FieldType = "Number"
	TypeBoolean  FieldType = "Boolean"
	TypeDate     FieldType = "Date"
	TypeObject   FieldType = "Object"
	TypeArray    FieldType = "Array"
	TypeGeoPoint FieldType = "GeoPoint"
	TypeFile     FieldType = "File"
	TypePointer  FieldType = "Pointer"
	TypeRelation FieldType = "Relation"
	TypePolygon  FieldType = "Polygon"
	TypeBytes    FieldType = "Bytes"
	TypeACL      FieldType = "ACL"
)

var ErrDuplicateField = errors.New("parse: field already declared")

type FieldSchema struct {
	Type         FieldType    `json:"type"`
	TargetClass  string       `json:"targetClass,omitempty"`
	Required     bool         `json:"required,omitempty"`
	DefaultValue *value.Value `json:"defaultValue,omitempty"`
}

// Schema descreve uma classe. Em Create e Update apenas Fields e
// ClassLevelPermissions são enviados; campos removidos com DeleteField
// viram {"__op":"Delete"}.
type Schema struct {
	ClassName             string                    `json:"className"`
	Fields                map[string]FieldSchema    `json:"fields,omitempty"`
	ClassLevelPermissions map[string]any            `json:"classLevelPermissions,omitempty"`
	Indexes               map[string]map[string]any `json:"indexes,omitempty"`

	deleted []string
}

func NewSchema(className string) *Schema {
	return &Schema{ClassName: className, Fields: map[string]FieldSchema{}}
}

// AddField declara uma coluna simples.
func (s *Schema) AddField(name string, t FieldType) error {
	return s.addField(name, FieldSchema{Type: t})
}

// AddPointer declara uma coluna Pointer para target.
func (s *Schema) AddPointer(name, target string) error {
	return s.addField(name, FieldSchema{Type: TypePointer, TargetClass: target})
}

// AddRelation declara uma coluna Relation para target.
func (s *Schema) AddRelation(name, target string) error {
	return s.addField(name, FieldSchema{Type: TypeRelation, TargetClass: target})
}

func (s *Schema) addField(name string, f FieldSchema) error {
	if !fieldNamePattern.MatchString(name) {
		return parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrInvalidFieldName, name))
	}
	if (f.Type == TypePointer || f.Type == TypeRelation) && f.TargetClass == "" {
		return parseerr.NewPrecondition(fmt.Errorf("parse: field %q needs a target class", name))
	}
	if s.Fields == nil {
		s.Fields = map[string]FieldSchema{}
	}
	if _, ok := s.Fields[name]; ok {
		return parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrDuplicateField, name))
	}
	s.Fields[name] = f
	return nil
}

// DeleteField marca a coluna para remoção no próximo UpdateSchema.
func (s *Schema) DeleteField(name string) {
	delete(s.Fields, name)
	s.deleted = append(s.deleted, name)
}

func (s *Schema) payload() map[string]any {
	fields := make(map[string]any, len(s.Fields)+len(s.deleted))
	for name, f := range s.Fields {
		if reservedFields[name] {
			continue
		}
		fields[name] = f
	}
	for _, name := range s.deleted {
		fields[name] = map[string]string{"__op": "Delete"}
	}
	body := map[string]any{"className": s.ClassName, "fields": fields}
	if len(s.ClassLevelPermissions) > 0 {
		body["classLevelPermissions"] = s.ClassLevelPermissions
	}
	return body
}

func (s *Schema) clone() *Schema {
	cp := *s
	cp.Fields = make(map[string]FieldSchema, len(s.Fields))
	for k, v := range s.Fields {
		cp.Fields[k] = v
	}
	cp.deleted = append([]string(nil), s.deleted...)
	return &cp
}

// Schemas lista todas as classes. Exige master key.
func (c *Client) Schemas(ctx context.Context) ([]*Schema, error) {
	var out struct {
		Results []*Schema `json:"results"`
	}
	r := request{method: http.MethodGet, path: "/schemas", opts: callOptions{useMaster: true}}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// GetSchema busca o schema de className, usando o cache quando habilitado.
func (c *Client) GetSchema(ctx context.Context, className string) (*Schema, error) {
	if err := validateClassName(className); err != nil {
		return nil, err
	}
	if c.cacheOn {
		if s, ok := c.schemas.Get(className); ok {
			return s.clone(), nil
		}
	}

	var s Schema
	r := request{method: http.MethodGet, path: "/schemas/" + className, opts: callOptions{useMaster: true}}
	if err := c.do(ctx, r, &s); err != nil {
		return nil, err
	}
	c.cacheSchema(&s)
	return s.clone(), nil
}

// CreateSchema cria a classe descrita por s.
func (c *Client) CreateSchema(ctx context.Context, s *Schema) (*Schema, error) {
	return c.writeSchema(ctx, http.MethodPost, s)
}

// UpdateSchema adiciona os campos novos e remove os marcados com DeleteField.
func (c *Client) UpdateSchema(ctx context.Context, s *Schema) (*Schema, error) {
	return c.writeSchema(ctx, http.MethodPut, s)
}

func (c *Client) writeSchema(ctx context.Context, method string, s *Schema) (*Schema, error) {
	if err := validateClassName(s.ClassName); err != nil {
		return nil, err
	}
	var out Schema
	r := request{method: method, path: "/schemas/" + s.ClassName, body: s.payload(), opts: callOptions{useMaster: true}}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	s.deleted = nil
	c.cacheSchema(&out)
	return out.clone(), nil
}

// DeleteSchema remove a classe. Uma classe com objetos devolve
// ParseCode(ClassNotEmpty); use PurgeClass antes.
func (c *Client) DeleteSchema(ctx context.Context, className string) error {
	if err := validateClassName(className); err != nil {
		return err
	}
	r := request{method: http.MethodDelete, path: "/schemas/" + className, opts: callOptions{useMaster: true}, allowEmpty: true}
	if err := c.do(ctx, r, nil); err != nil {
		return err
	}
	c.forgetSchema(className)
	return nil
}

// PurgeClass apaga todos os objetos da classe mantendo o schema.
func (c *Client) PurgeClass(ctx context.Context, className string) error {
	if err := validateClassName(className); err != nil {
		return err
	}
	r := request{method: http.MethodDelete, path: "/purge/" + className, opts: callOptions{useMaster: true}, allowEmpty: true}
	return c.do(ctx, r, nil)
}

func (c *Client) cacheSchema(s *Schema) {
	if c.cacheOn && s.ClassName != "" {
		c.schemas.Set(s.ClassName, s.clone())
	}
}

func (c *Client) forgetSchema(className string) {
	if c.cacheOn {
		c.schemas.Delete(className)
	}
}
