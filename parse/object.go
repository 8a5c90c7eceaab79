package parse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

var (
	ErrNoObjectID       = errors.New("parse: object has no objectId")
	ErrObjectDeleted    = errors.New("parse: object was deleted")
	ErrReservedField    = errors.New("parse: field name is reserved")
	ErrInvalidClassName = errors.New("parse: invalid class name")
	ErrInvalidFieldName = errors.New("parse: invalid field name")
)

// Classes de sistema e seus caminhos REST dedicados.
const (
	ClassUser         = "_User"
	ClassRole         = "_Role"
	ClassSession      = "_Session"
	ClassInstallation = "_Installation"
)

var (
	classNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

var reservedFields = map[string]bool{
	"objectId":  true,
	"createdAt": true,
	"updatedAt": true,
	"ACL":       true,
}

func validateClassName(name string) error {
	switch name {
	case ClassUser, ClassRole, ClassSession, ClassInstallation:
		return nil
	}
	if !classNamePattern.MatchString(name) {
		return parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrInvalidClassName, name))
	}
	return nil
}

func classPath(className string) string {
	switch className {
	case ClassUser:
		return "/users"
	case ClassRole:
		return "/roles"
	case ClassSession:
		return "/sessions"
	case ClassInstallation:
		return "/installations"
	}
	return "/classes/" + className
}

func objectPath(className, objectID string) string {
	return classPath(className) + "/" + objectID
}

// Object é um registro sem schema fixo. Alterações ficam pendentes (dirty)
// até o próximo Save. Depois de um Delete bem-sucedido o objeto é inerte.
type Object struct {
	ClassName string
	ObjectID  string
	CreatedAt time.Time
	UpdatedAt time.Time
	ACL       value.ACL

	fields   map[string]value.Value
	dirty    map[string]value.Value
	aclDirty bool
	deleted  bool
}

// NewObject cria um objeto local ainda sem objectId.
func NewObject(className string) *Object {
	return &Object{
		ClassName: className,
		fields:    map[string]value.Value{},
		dirty:     map[string]value.Value{},
	}
}

// ObjectFromFields monta um objeto a partir do JSON devolvido pelo servidor.
func ObjectFromFields(className string, raw map[string]value.Value) (*Object, error) {
	o := NewObject(className)
	if err := o.merge(raw); err != nil {
		return nil, err
	}
	return o, nil
}

// merge aplica campos vindos do servidor. createdAt e updatedAt aceitam o
// Date embrulhado ou a string ISO simples.
func (o *Object) merge(raw map[string]value.Value) error {
	for key, v := range raw {
		switch key {
		case "objectId":
			id, err := v.AsString()
			if err != nil {
				return err
			}
			o.ObjectID = id
		case "createdAt":
			t, err := v.AsDate()
			if err != nil {
				return err
			}
			o.CreatedAt = t
		case "updatedAt":
			t, err := v.AsDate()
			if err != nil {
				return err
			}
			o.UpdatedAt = t
		case "ACL":
			acl, err := value.ACLFromValue(v)
			if err != nil {
				return err
			}
			o.ACL = acl
		case "__type", "className":
			// ponteiros expandidos por include trazem estes marcadores
		default:
			o.fields[key] = v
		}
	}
	return nil
}

// Get devolve o valor atual do campo, incluindo alterações pendentes
// já aplicadas localmente.
func (o *Object) Get(key string) (value.Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

func (o *Object) GetString(key string) (string, error) {
	return o.field(key).AsString()
}

func (o *Object) GetInt(key string) (int64, error) {
	return o.field(key).AsInt()
}

func (o *Object) GetFloat(key string) (float64, error) {
	return o.field(key).AsFloat()
}

func (o *Object) GetBool(key string) (bool, error) {
	return o.field(key).AsBool()
}

func (o *Object) GetDate(key string) (time.Time, error) {
	return o.field(key).AsDate()
}

func (o *Object) GetPointer(key string) (value.Pointer, error) {
	return o.field(key).AsPointer()
}

func (o *Object) GetGeoPoint(key string) (value.GeoPoint, error) {
	return o.field(key).AsGeoPoint()
}

func (o *Object) GetFile(key string) (value.File, error) {
	return o.field(key).AsFile()
}

// GetObject lê um ponteiro expandido via Include como *Object.
func (o *Object) GetObject(key string) (*Object, error) {
	v := o.field(key)
	fields, err := v.AsObject()
	if err != nil {
		return nil, err
	}
	className := ""
	if cn, ok := fields["className"]; ok {
		className, _ = cn.AsString()
	}
	return ObjectFromFields(className, fields)
}

func (o *Object) field(key string) value.Value {
	return o.fields[key]
}

// Fields devolve uma cópia dos campos de dados.
func (o *Object) Fields() map[string]value.Value {
	cp := make(map[string]value.Value, len(o.fields))
	for k, v := range o.fields {
		cp[k] = v
	}
	return cp
}

func (o *Object) checkField(key string) error {
	if reservedFields[key] {
		return parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrReservedField, key))
	}
	if !fieldNamePattern.MatchString(key) {
		return parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrInvalidFieldName, key))
	}
	return nil
}

// Set atribui um valor ao campo; v é convertido com value.From.
func (o *Object) Set(key string, v any) error {
	if o.deleted {
		return parseerr.NewPrecondition(ErrObjectDeleted)
	}
	if err := o.checkField(key); err != nil {
		return err
	}
	val, err := value.From(v)
	if err != nil {
		return parseerr.Wrap(parseerr.Precondition, err, fmt.Sprintf("field %q", key))
	}
	if val.Kind() == value.KindFieldOp {
		op, _ := val.AsFieldOp()
		return o.apply(key, op)
	}
	o.fields[key] = val
	o.dirty[key] = val
	return nil
}

// SetACL substitui o ACL enviado no próximo Save.
func (o *Object) SetACL(acl value.ACL) {
	o.ACL = acl
	o.aclDirty = true
}

// Unset remove o campo no servidor.
func (o *Object) Unset(key string) error {
	if err := o.checkField(key); err != nil {
		return err
	}
	return o.apply(key, value.FieldOp{Kind: value.OpDelete})
}

// Increment soma amount (pode ser negativo) de forma atômica no servidor.
func (o *Object) Increment(key string, amount any) error {
	if err := o.checkField(key); err != nil {
		return err
	}
	n, err := value.From(amount)
	if err != nil || n.Kind() != value.KindNumber {
		return parseerr.NewPrecondition(fmt.Errorf("parse: increment amount for %q must be a number", key))
	}
	return o.apply(key, value.FieldOp{Kind: value.OpIncrement, Operand: n})
}

func (o *Object) listOp(kind value.OpKind, key string, items []any) error {
	if err := o.checkField(key); err != nil {
		return err
	}
	vals := make([]value.Value, len(items))
	for i, item := range items {
		v, err := value.From(item)
		if err != nil {
			return parseerr.Wrap(parseerr.Precondition, err, fmt.Sprintf("field %q", key))
		}
		vals[i] = v
	}
	return o.apply(key, value.FieldOp{Kind: kind, Operand: value.Array(vals...)})
}

func (o *Object) Add(key string, items ...any) error {
	return o.listOp(value.OpAdd, key, items)
}

func (o *Object) AddUnique(key string, items ...any) error {
	return o.listOp(value.OpAddUnique, key, items)
}

func (o *Object) Remove(key string, items ...any) error {
	return o.listOp(value.OpRemove, key, items)
}

// apply aplica a operação localmente e a enfileira para o servidor,
// combinando com uma pendência anterior no mesmo campo.
func (o *Object) apply(key string, op value.FieldOp) error {
	if o.deleted {
		return parseerr.NewPrecondition(ErrObjectDeleted)
	}
	pending, hasPending := o.dirty[key]
	var queued value.Value
	if hasPending {
		merged, err := mergePending(pending, op)
		if err != nil {
			return err
		}
		queued = merged
	} else {
		queued = value.Op(op)
	}

	current, exists := o.fields[key]
	if next, keep := applyOp(current, exists, op); keep {
		o.fields[key] = next
	} else {
		delete(o.fields, key)
	}
	if hasPending && queued.Kind() != value.KindFieldOp {
		// a pendência virou atribuição simples: envia o valor resultante
		if v, ok := o.fields[key]; ok {
			queued = v
		} else {
			queued = value.Delete()
		}
	}
	o.dirty[key] = queued
	return nil
}

// ErrIncompatiblePending indica duas operações de relação opostas no mesmo
// campo antes de um Save.
var ErrIncompatiblePending = errors.New("parse: save pending relation changes before applying the opposite operation")

// mergePending combina a pendência prev com op. Devolve um FieldOp quando a
// combinação continua atômica; qualquer outro Kind sinaliza que o valor
// final calculado localmente deve ser enviado.
func mergePending(prev value.Value, op value.FieldOp) (value.Value, error) {
	prevOp, err := prev.AsFieldOp()
	if err != nil {
		return value.Null(), nil
	}
	if prevOp.Kind != op.Kind {
		if isRelationOp(prevOp.Kind) || isRelationOp(op.Kind) {
			return value.Value{}, parseerr.NewPrecondition(ErrIncompatiblePending)
		}
		if op.Kind == value.OpDelete {
			return value.Op(op), nil
		}
		return value.Null(), nil
	}

	switch op.Kind {
	case value.OpIncrement:
		sum, _ := applyOp(prevOp.Operand, true, op)
		return value.Op(value.FieldOp{Kind: value.OpIncrement, Operand: sum}), nil
	case value.OpAdd, value.OpAddRelation, value.OpRemoveRelation, value.OpRemove:
		a, _ := prevOp.Operand.AsArray()
		b, _ := op.Operand.AsArray()
		return value.Op(value.FieldOp{Kind: op.Kind, Operand: value.Array(append(a, b...)...)}), nil
	case value.OpAddUnique:
		a, _ := prevOp.Operand.AsArray()
		b, _ := op.Operand.AsArray()
		for _, it := range b {
			if !containsValue(a, it) {
				a = append(a, it)
			}
		}
		return value.Op(value.FieldOp{Kind: op.Kind, Operand: value.Array(a...)}), nil
	}
	return value.Op(op), nil
}

func isRelationOp(k value.OpKind) bool {
	return k == value.OpAddRelation || k == value.OpRemoveRelation
}

// applyOp calcula o valor local resultante; keep=false remove o campo.
func applyOp(current value.Value, exists bool, op value.FieldOp) (value.Value, bool) {
	switch op.Kind {
	case value.OpDelete:
		return value.Null(), false
	case value.OpIncrement:
		if !exists || current.IsNull() {
			return op.Operand, true
		}
		ci, errC := current.AsInt()
		di, errD := op.Operand.AsInt()
		if errC == nil && errD == nil {
			return value.Int(ci + di), true
		}
		cf, _ := current.AsFloat()
		df, _ := op.Operand.AsFloat()
		return value.Float(cf + df), true
	case value.OpAdd, value.OpAddUnique, value.OpRemove:
		list, _ := current.AsArray()
		items, _ := op.Operand.AsArray()
		switch op.Kind {
		case value.OpAdd:
			list = append(list, items...)
		case value.OpAddUnique:
			for _, it := range items {
				if !containsValue(list, it) {
					list = append(list, it)
				}
			}
		case value.OpRemove:
			kept := make([]value.Value, 0, len(list))
			for _, it := range list {
				if !containsValue(items, it) {
					kept = append(kept, it)
				}
			}
			list = kept
		}
		return value.Array(list...), true
	}
	// relações não têm representação local além do marcador Relation
	if exists {
		return current, true
	}
	return value.Null(), false
}

func containsValue(list []value.Value, v value.Value) bool {
	for _, it := range list {
		if it.Equal(v) {
			return true
		}
	}
	return false
}

// IsDirty informa se há alterações pendentes.
func (o *Object) IsDirty() bool { return len(o.dirty) > 0 || o.aclDirty }

// IsNew informa se o objeto ainda não foi criado no servidor.
func (o *Object) IsNew() bool { return o.ObjectID == "" }

func (o *Object) IsDeleted() bool { return o.deleted }

// Pointer devolve a referência a este objeto.
func (o *Object) Pointer() value.Pointer {
	return value.Pointer{ClassName: o.ClassName, ObjectID: o.ObjectID}
}

// payload devolve o corpo do próximo Save: só campos pendentes (e ACL).
func (o *Object) payload() map[string]any {
	body := make(map[string]any, len(o.dirty)+1)
	for k, v := range o.dirty {
		body[k] = v.Wire()
	}
	if o.aclDirty && o.ACL != nil {
		body["ACL"] = o.ACL.Value().Wire()
	}
	return body
}

func (o *Object) markClean() {
	o.dirty = map[string]value.Value{}
	o.aclDirty = false
}

func (o *Object) clone() *Object {
	cp := *o
	cp.fields = o.Fields()
	cp.dirty = make(map[string]value.Value, len(o.dirty))
	for k, v := range o.dirty {
		cp.dirty[k] = v
	}
	if o.ACL != nil {
		cp.ACL = make(value.ACL, len(o.ACL))
		for k, v := range o.ACL {
			cp.ACL[k] = v
		}
	}
	return &cp
}

func (o *Object) ensureUsable() error {
	if o.deleted {
		return parseerr.NewPrecondition(ErrObjectDeleted)
	}
	return validateClassName(o.ClassName)
}

// Save cria (POST, sem objectId) ou atualiza (PUT) o objeto. Em caso de
// sucesso preenche objectId/createdAt/updatedAt e limpa as pendências.
func (c *Client) Save(ctx context.Context, o *Object, opts ...CallOption) error {
	if err := o.ensureUsable(); err != nil {
		return err
	}
	if !o.IsNew() && !o.IsDirty() {
		return nil
	}

	r := request{body: o.payload(), opts: applyCallOptions(opts)}
	if o.IsNew() {
		r.method = http.MethodPost
		r.path = classPath(o.ClassName)
	} else {
		r.method = http.MethodPut
		r.path = objectPath(o.ClassName, o.ObjectID)
	}

	var resp map[string]value.Value
	if err := c.do(ctx, r, &resp); err != nil {
		return err
	}
	return o.afterSave(resp, r.method == http.MethodPost)
}

func (o *Object) afterSave(resp map[string]value.Value, created bool) error {
	// o servidor devolve a senha apenas quando ela foi enviada; nunca guardamos.
	delete(resp, "password")
	delete(o.fields, "password")

	if err := o.merge(resp); err != nil {
		return err
	}
	if created {
		if o.ObjectID == "" {
			return parseerr.NewDecode(nil, "create response without objectId")
		}
		if _, ok := resp["updatedAt"]; !ok {
			o.UpdatedAt = o.CreatedAt
		}
	}
	o.markClean()
	return nil
}

// Fetch recarrega todos os campos do servidor, descartando pendências.
func (c *Client) Fetch(ctx context.Context, o *Object, opts ...CallOption) error {
	if err := o.ensureUsable(); err != nil {
		return err
	}
	if o.ObjectID == "" {
		return parseerr.NewPrecondition(ErrNoObjectID)
	}

	var resp map[string]value.Value
	r := request{method: http.MethodGet, path: objectPath(o.ClassName, o.ObjectID), opts: applyCallOptions(opts)}
	if err := c.do(ctx, r, &resp); err != nil {
		return err
	}
	o.fields = map[string]value.Value{}
	o.markClean()
	return o.merge(resp)
}

// GetObject busca className/objectID diretamente.
func (c *Client) GetObject(ctx context.Context, className, objectID string, opts ...CallOption) (*Object, error) {
	o := NewObject(className)
	o.ObjectID = objectID
	if err := c.Fetch(ctx, o, opts...); err != nil {
		return nil, err
	}
	return o, nil
}

// Delete remove o objeto. Depois do sucesso o objeto fica inerte.
func (c *Client) Delete(ctx context.Context, o *Object, opts ...CallOption) error {
	if err := o.ensureUsable(); err != nil {
		return err
	}
	if o.ObjectID == "" {
		return parseerr.NewPrecondition(ErrNoObjectID)
	}

	r := request{method: http.MethodDelete, path: objectPath(o.ClassName, o.ObjectID), opts: applyCallOptions(opts), allowEmpty: true}
	if err := c.do(ctx, r, nil); err != nil {
		return err
	}
	o.deleted = true
	return nil
}
