package parse

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/query"
	"github.com/raywall/parse-toolkit/value"
)

var ErrInvalidRoleName = errors.New("parse: invalid role name")

var roleNamePattern = regexp.MustCompile(`^[0-9A-Za-z_\- ]+$`)

// Role agrupa usuários e outros papéis através das relações "users" e
// "roles". O nome não muda depois de criado.
type Role struct {
	*Object
}

// NewRole cria um papel com o ACL informado; o servidor exige ACL.
func NewRole(name string, acl value.ACL) (*Role, error) {
	if !roleNamePattern.MatchString(name) {
		return nil, parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrInvalidRoleName, name))
	}
	r := &Role{Object: NewObject(ClassRole)}
	if err := r.Set("name", name); err != nil {
		return nil, err
	}
	r.SetACL(acl)
	return r, nil
}

func (r *Role) Name() string {
	s, _ := r.GetString("name")
	return s
}

// AddUsers enfileira a inclusão dos usuários na relação "users".
func (r *Role) AddUsers(users ...value.Pointer) error {
	return r.apply("users", value.FieldOp{Kind: value.OpAddRelation, Operand: pointers(users)})
}

func (r *Role) RemoveUsers(users ...value.Pointer) error {
	return r.apply("users", value.FieldOp{Kind: value.OpRemoveRelation, Operand: pointers(users)})
}

// AddRoles enfileira papéis filhos, que herdam as permissões deste.
func (r *Role) AddRoles(roles ...value.Pointer) error {
	return r.apply("roles", value.FieldOp{Kind: value.OpAddRelation, Operand: pointers(roles)})
}

func (r *Role) RemoveRoles(roles ...value.Pointer) error {
	return r.apply("roles", value.FieldOp{Kind: value.OpRemoveRelation, Operand: pointers(roles)})
}

func pointers(ps []value.Pointer) value.Value {
	items := make([]value.Value, len(ps))
	for i, p := range ps {
		items[i] = value.PointerValue(p)
	}
	return value.Array(items...)
}

// GetRole busca um papel pelo nome.
func (c *Client) GetRole(ctx context.Context, name string, opts ...CallOption) (*Role, error) {
	o, err := c.Query(ClassRole, opts...).EqualTo("name", name).First(ctx)
	if err != nil {
		return nil, err
	}
	return &Role{Object: o}, nil
}

// RoleUsers consulta os usuários diretamente ligados ao papel.
func (c *Client) RoleUsers(r *Role, opts ...CallOption) *query.Query[*User] {
	return c.Users(opts...).RelatedTo(r.Pointer(), "users")
}
