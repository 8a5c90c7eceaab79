package parse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

// MaxBatchSize é o limite de sub-requisições aceito por /batch.
const MaxBatchSize = 50

var (
	ErrBatchEmpty    = errors.New("parse: batch has no operations")
	ErrBatchTooLarge = fmt.Errorf("parse: batch exceeds %d operations", MaxBatchSize)
)

type batchOp struct {
	method string
	path   string
	body   map[string]any
	obj    *Object
}

// Batch acumula saves e deletes enviados juntos em /batch. Cada operação
// tem resultado próprio; a falha de uma não desfaz as outras.
type Batch struct {
	ops []batchOp
}

func (b *Batch) Len() int { return len(b.ops) }

func (b *Batch) Save(o *Object) error {
	if err := o.ensureUsable(); err != nil {
		return err
	}
	op := batchOp{body: o.payload(), obj: o}
	if o.IsNew() {
		op.method, op.path = http.MethodPost, classPath(o.ClassName)
	} else {
		op.method, op.path = http.MethodPut, objectPath(o.ClassName, o.ObjectID)
	}
	return b.push(op)
}

func (b *Batch) Delete(o *Object) error {
	if err := o.ensureUsable(); err != nil {
		return err
	}
	if o.ObjectID == "" {
		return parseerr.NewPrecondition(ErrNoObjectID)
	}
	return b.push(batchOp{method: http.MethodDelete, path: objectPath(o.ClassName, o.ObjectID), obj: o})
}

func (b *Batch) push(op batchOp) error {
	if len(b.ops) >= MaxBatchSize {
		return parseerr.NewPrecondition(ErrBatchTooLarge)
	}
	b.ops = append(b.ops, op)
	return nil
}

// BatchResult é o resultado de uma operação do lote, na mesma posição.
type BatchResult struct {
	Success map[string]value.Value
	Err     error
}

// RunBatch envia o lote. O erro devolvido cobre apenas a requisição como um
// todo; falhas individuais ficam em BatchResult.Err. Objetos com sucesso são
// atualizados como em Save e Delete.
func (c *Client) RunBatch(ctx context.Context, b *Batch, opts ...CallOption) ([]BatchResult, error) {
	if b.Len() == 0 {
		return nil, parseerr.NewPrecondition(ErrBatchEmpty)
	}

	prefix := strings.TrimRight(c.base.Path, "/")
	reqs := make([]map[string]any, len(b.ops))
	for i, op := range b.ops {
		item := map[string]any{"method": op.method, "path": prefix + op.path}
		if op.body != nil {
			item["body"] = op.body
		}
		reqs[i] = item
	}

	var doc value.Value
	r := request{method: http.MethodPost, path: "/batch", body: map[string]any{"requests": reqs}, opts: applyCallOptions(opts)}
	if err := c.do(ctx, r, &doc); err != nil {
		return nil, err
	}
	items, err := doc.AsArray()
	if err != nil {
		return nil, err
	}
	if len(items) != len(b.ops) {
		return nil, parseerr.NewDecode(nil, fmt.Sprintf("batch returned %d results for %d operations", len(items), len(b.ops)))
	}

	out := make([]BatchResult, len(items))
	for i, item := range items {
		out[i] = b.ops[i].settle(item)
	}
	return out, nil
}

func (op batchOp) settle(item value.Value) BatchResult {
	fields, err := item.AsObject()
	if err != nil {
		return BatchResult{Err: err}
	}
	if e, ok := fields["error"]; ok {
		if code, msg, isEnvelope := errorEnvelope(e); isEnvelope {
			return BatchResult{Err: parseerr.NewParseCode(http.StatusOK, code, msg)}
		}
		return BatchResult{Err: parseerr.NewDecode(nil, "malformed batch error: "+e.String())}
	}
	success, ok := fields["success"]
	if !ok {
		return BatchResult{Err: parseerr.NewDecode(nil, "batch result without success or error")}
	}
	res, _ := success.AsObject()

	switch op.method {
	case http.MethodDelete:
		op.obj.deleted = true
	default:
		cp := make(map[string]value.Value, len(res))
		for k, v := range res {
			cp[k] = v
		}
		if err := op.obj.afterSave(cp, op.method == http.MethodPost); err != nil {
			return BatchResult{Success: res, Err: err}
		}
	}
	return BatchResult{Success: res}
}
