package parse

import (
	"github.com/raywall/parse-toolkit/query"
	"github.com/raywall/parse-toolkit/value"
)

// AddRelation enfileira a inclusão de targets na relação key.
func (o *Object) AddRelation(key string, targets ...value.Pointer) error {
	if err := o.checkField(key); err != nil {
		return err
	}
	return o.apply(key, value.FieldOp{Kind: value.OpAddRelation, Operand: pointers(targets)})
}

// RemoveRelation enfileira a remoção de targets da relação key.
func (o *Object) RemoveRelation(key string, targets ...value.Pointer) error {
	if err := o.checkField(key); err != nil {
		return err
	}
	return o.apply(key, value.FieldOp{Kind: value.OpRemoveRelation, Operand: pointers(targets)})
}

// RelationQuery consulta os objetos de targetClass ligados a parent.key.
func (c *Client) RelationQuery(parent value.Pointer, key, targetClass string, opts ...CallOption) *query.Query[*Object] {
	return c.Query(targetClass, opts...).RelatedTo(parent, key)
}
