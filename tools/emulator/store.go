package emulator

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raywall/parse-toolkit/parseerr"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

// apiError vira o envelope {code, error} com o status HTTP informado.
type apiError struct {
	status  int
	code    int
	message string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d: %s", e.code, e.message) }

func newAPIError(status, code int, format string, args ...any) *apiError {
	return &apiError{status: status, code: code, message: fmt.Sprintf(format, args...)}
}

var errNotFound = &apiError{status: http.StatusNotFound, code: parseerr.ObjectNotFound, message: "Object not found."}

type ref struct {
	ClassName string
	ObjectID  string
}

type storedFile struct {
	data        []byte
	contentType string
}

type classSchema struct {
	Fields  map[string]map[string]any
	CLP     map[string]any
	Indexes map[string]any
}

// db é o armazenamento em memória. Documentos guardam datas como string
// ISO e nunca saem daqui sem cópia.
type db struct {
	mu        sync.RWMutex
	classes   map[string]map[string]map[string]any
	relations map[string][]ref
	schemas   map[string]*classSchema
	files     map[string]storedFile
	params    map[string]any
	now       func() time.Time
	last      time.Time
}

func newDB() *db {
	return &db{
		classes:   map[string]map[string]map[string]any{},
		relations: map[string][]ref{},
		schemas:   map[string]*classSchema{},
		files:     map[string]storedFile{},
		params:    map[string]any{},
		now:       time.Now,
	}
}

func newObjectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// stamp devolve um instante estritamente maior que o anterior, para que
// updatedAt sempre avance mesmo dentro do mesmo milissegundo.
func (d *db) stamp() string {
	t := d.now().UTC().Truncate(time.Millisecond)
	if !t.After(d.last) {
		t = d.last.Add(time.Millisecond)
	}
	d.last = t
	return t.Format(isoLayout)
}

func relationKey(owner ref, key string) string {
	return owner.ClassName + "/" + owner.ObjectID + "/" + key
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func (d *db) get(class, id string) (map[string]any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.classes[class][id]
	if !ok {
		return nil, false
	}
	return copyDoc(doc), true
}

func (d *db) all(class string) []map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	docs := d.classes[class]
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, copyDoc(doc))
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]["createdAt"]) < fmt.Sprint(out[j]["createdAt"])
	})
	return out
}

func (d *db) count(class string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.classes[class])
}

// insert cria um documento aplicando as operações de body.
func (d *db) insert(class string, body map[string]any) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, _ := body["objectId"].(string)
	if id == "" {
		id = newObjectID()
	}
	now := d.stamp()
	doc := map[string]any{"objectId": id, "createdAt": now, "updatedAt": now}
	if ts, ok := body["createdAt"].(string); ok {
		doc["createdAt"], doc["updatedAt"] = ts, ts
	}
	if err := d.apply(class, doc, body); err != nil {
		return nil, err
	}
	if d.classes[class] == nil {
		d.classes[class] = map[string]map[string]any{}
	}
	d.classes[class][id] = doc
	d.infer(class, doc)
	return copyDoc(doc), nil
}

// update aplica body sobre o documento existente.
func (d *db) update(class, id string, body map[string]any) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.classes[class][id]
	if !ok {
		return nil, errNotFound
	}
	next := copyDoc(doc)
	if err := d.apply(class, next, body); err != nil {
		return nil, err
	}
	next["updatedAt"] = d.stamp()
	d.classes[class][id] = next
	d.infer(class, next)
	return copyDoc(next), nil
}

func (d *db) remove(class, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.classes[class][id]; !ok {
		return false
	}
	delete(d.classes[class], id)
	return true
}

func (d *db) purge(class string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.classes, class)
}

func (d *db) related(owner ref, key string) []ref {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]ref(nil), d.relations[relationKey(owner, key)]...)
}

// apply executa os campos e operadores (__op) de body sobre doc.
func (d *db) apply(class string, doc, body map[string]any) error {
	owner := ref{ClassName: class, ObjectID: fmt.Sprint(doc["objectId"])}
	for key, raw := range body {
		switch key {
		case "objectId", "createdAt", "updatedAt":
			continue
		}
		if err := d.applyField(owner, doc, key, raw); err != nil {
			return err
		}
	}
	return nil
}

func (d *db) applyField(owner ref, doc map[string]any, key string, raw any) error {
	m, ok := raw.(map[string]any)
	op, isOp := m["__op"].(string)
	if !ok || !isOp {
		doc[key] = raw
		return nil
	}

	switch op {
	case "Delete":
		delete(doc, key)
	case "Increment":
		amount, ok := m["amount"].(float64)
		if !ok {
			return newAPIError(http.StatusBadRequest, parseerr.InvalidJSON, "Increment amount must be a number")
		}
		cur := 0.0
		if existing, has := doc[key]; has {
			n, ok := existing.(float64)
			if !ok {
				return newAPIError(http.StatusBadRequest, parseerr.IncorrectType, "Cannot increment a non-number type.")
			}
			cur = n
		}
		doc[key] = cur + amount
	case "Add", "AddUnique", "Remove":
		objects, _ := m["objects"].([]any)
		list, _ := doc[key].([]any)
		list = append([]any(nil), list...)
		switch op {
		case "Add":
			list = append(list, objects...)
		case "AddUnique":
			for _, o := range objects {
				if !containsDeep(list, o) {
					list = append(list, o)
				}
			}
		case "Remove":
			kept := list[:0]
			for _, item := range list {
				if !containsDeep(objects, item) {
					kept = append(kept, item)
				}
			}
			list = kept
		}
		doc[key] = list
	case "AddRelation", "RemoveRelation":
		objects, _ := m["objects"].([]any)
		rk := relationKey(owner, key)
		current := d.relations[rk]
		target := ""
		for _, o := range objects {
			r, ok := refOf(o)
			if !ok {
				return newAPIError(http.StatusBadRequest, parseerr.InvalidPointer, "relation targets must be pointers")
			}
			target = r.ClassName
			idx := indexRef(current, r)
			if op == "AddRelation" && idx < 0 {
				current = append(current, r)
			}
			if op == "RemoveRelation" && idx >= 0 {
				current = append(current[:idx], current[idx+1:]...)
			}
		}
		d.relations[rk] = current
		if _, has := doc[key]; !has && target != "" {
			doc[key] = map[string]any{"__type": "Relation", "className": target}
		}
	case "Batch":
		ops, _ := m["ops"].([]any)
		for _, sub := range ops {
			if err := d.applyField(owner, doc, key, sub); err != nil {
				return err
			}
		}
	default:
		return newAPIError(http.StatusBadRequest, parseerr.InvalidJSON, "unknown operation %q", op)
	}
	return nil
}

func refOf(x any) (ref, bool) {
	m, ok := x.(map[string]any)
	if !ok {
		return ref{}, false
	}
	class, _ := m["className"].(string)
	id, _ := m["objectId"].(string)
	if class == "" || id == "" {
		return ref{}, false
	}
	return ref{ClassName: class, ObjectID: id}, true
}

func indexRef(list []ref, r ref) int {
	for i, x := range list {
		if x == r {
			return i
		}
	}
	return -1
}

func containsDeep(list []any, x any) bool {
	for _, item := range list {
		if equalValues(item, x) {
			return true
		}
	}
	return false
}

// infer registra no schema os campos ainda desconhecidos de doc.
func (d *db) infer(class string, doc map[string]any) {
	s, ok := d.schemas[class]
	if !ok {
		s = newClassSchema()
		d.schemas[class] = s
	}
	for key, v := range doc {
		if _, known := s.Fields[key]; known || key == "password" || key == "sessionToken" {
			continue
		}
		s.Fields[key] = fieldTypeOf(v)
	}
}

func newClassSchema() *classSchema {
	return &classSchema{
		Fields: map[string]map[string]any{
			"objectId":  {"type": "String"},
			"createdAt": {"type": "Date"},
			"updatedAt": {"type": "Date"},
			"ACL":       {"type": "ACL"},
		},
		CLP: map[string]any{},
	}
}

func fieldTypeOf(v any) map[string]any {
	switch x := v.(type) {
	case string:
		return map[string]any{"type": "String"}
	case float64:
		return map[string]any{"type": "Number"}
	case bool:
		return map[string]any{"type": "Boolean"}
	case []any:
		return map[string]any{"type": "Array"}
	case map[string]any:
		switch x["__type"] {
		case "Pointer":
			return map[string]any{"type": "Pointer", "targetClass": x["className"]}
		case "Relation":
			return map[string]any{"type": "Relation", "targetClass": x["className"]}
		case "Date", "GeoPoint", "File", "Polygon", "Bytes":
			return map[string]any{"type": x["__type"]}
		}
	}
	return map[string]any{"type": "Object"}
}

func (s *classSchema) render(class string) map[string]any {
	out := map[string]any{
		"className":             class,
		"fields":                s.Fields,
		"classLevelPermissions": s.CLP,
	}
	if len(s.Indexes) > 0 {
		out["indexes"] = s.Indexes
	}
	return out
}

func (d *db) schema(class string) (map[string]any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.schemas[class]
	if !ok {
		return nil, false
	}
	return deepCopy(s.render(class)).(map[string]any), true
}

func (d *db) allSchemas() []map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.schemas))
	for name := range d.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, deepCopy(d.schemas[name].render(name)).(map[string]any))
	}
	return out
}

// writeSchema cria (create=true) ou altera a classe. Campos com
// {"__op":"Delete"} são removidos.
func (d *db) writeSchema(class string, body map[string]any, create bool) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, exists := d.schemas[class]
	switch {
	case create && exists:
		return nil, newAPIError(http.StatusBadRequest, parseerr.InvalidClassName, "Class %s already exists.", class)
	case !create && !exists:
		return nil, newAPIError(http.StatusBadRequest, parseerr.InvalidClassName, "Class %s does not exist.", class)
	case create:
		s = newClassSchema()
	}

	fields, _ := body["fields"].(map[string]any)
	for name, raw := range fields {
		def, _ := raw.(map[string]any)
		if op, _ := def["__op"].(string); op == "Delete" {
			delete(s.Fields, name)
			continue
		}
		if _, dup := s.Fields[name]; dup {
			return nil, newAPIError(http.StatusBadRequest, parseerr.IncorrectType, "Field %s exists, cannot update.", name)
		}
		s.Fields[name] = def
	}
	if clp, ok := body["classLevelPermissions"].(map[string]any); ok {
		s.CLP = clp
	}
	if idx, ok := body["indexes"].(map[string]any); ok {
		if s.Indexes == nil {
			s.Indexes = map[string]any{}
		}
		for k, v := range idx {
			s.Indexes[k] = v
		}
	}
	d.schemas[class] = s
	return deepCopy(s.render(class)).(map[string]any), nil
}

func (d *db) dropSchema(class string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.classes[class]); n > 0 {
		return newAPIError(http.StatusBadRequest, parseerr.ClassNotEmpty,
			"Class %s is not empty, contains %d objects, cannot drop schema.", class, n)
	}
	delete(d.schemas, class)
	return nil
}

func deepCopy(x any) any {
	switch v := x.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deepCopy(item)
		}
		return out
	case map[string]map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	}
	return x
}

func (d *db) putFile(name string, f storedFile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[name] = f
}

func (d *db) file(name string) (storedFile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.files[name]
	return f, ok
}

func (d *db) deleteFile(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[name]; !ok {
		return false
	}
	delete(d.files, name)
	return true
}

func (d *db) configParams() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return deepCopy(d.params).(map[string]any)
}

func (d *db) setParams(params map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range params {
		if m, ok := v.(map[string]any); ok && m["__op"] == "Delete" {
			delete(d.params, k)
			continue
		}
		d.params[k] = v
	}
}
