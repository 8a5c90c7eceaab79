package emulator

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

const (
	classUser         = "_User"
	classRole         = "_Role"
	classSession      = "_Session"
	classInstallation = "_Installation"
)

var roleNamePattern = regexp.MustCompile(`^[0-9A-Za-z_\- ]+$`)

type classHandler func(w http.ResponseWriter, r *http.Request, class string)

func (s *Server) classRoutes(api *mux.Router, base, fixed string) {
	bind := func(h classHandler) http.HandlerFunc {
		return s.api(func(w http.ResponseWriter, r *http.Request) {
			class := fixed
			if class == "" {
				class = mux.Vars(r)["class"]
			}
			h(w, r, class)
		})
	}
	api.HandleFunc(base, bind(s.find)).Methods(http.MethodGet)
	api.HandleFunc(base, bind(s.create)).Methods(http.MethodPost)
	api.HandleFunc(base+"/{id}", bind(s.getOne)).Methods(http.MethodGet)
	api.HandleFunc(base+"/{id}", bind(s.updateOne)).Methods(http.MethodPut)
	api.HandleFunc(base+"/{id}", bind(s.deleteOne)).Methods(http.MethodDelete)
}

// render prepara um documento para a resposta: remove segredos, aplica
// keys e expande os ponteiros de include.
func (s *Server) render(class string, doc map[string]any, keys, include []string) map[string]any {
	out := copyDoc(doc)
	delete(out, "password")
	if class == classUser {
		delete(out, "sessionToken")
	}
	if len(keys) > 0 {
		keep := map[string]bool{"objectId": true, "createdAt": true, "updatedAt": true, "ACL": true}
		for _, k := range keys {
			keep[strings.SplitN(k, ".", 2)[0]] = true
		}
		for k := range out {
			if !keep[k] {
				delete(out, k)
			}
		}
	}
	for _, inc := range include {
		head, rest, _ := strings.Cut(inc, ".")
		target, ok := refOf(out[head])
		if !ok {
			continue
		}
		child, found := s.db.get(target.ClassName, target.ObjectID)
		if !found {
			continue
		}
		var nested []string
		if rest != "" {
			nested = []string{rest}
		}
		expanded := s.render(target.ClassName, child, nil, nested)
		expanded["__type"] = "Object"
		expanded["className"] = target.ClassName
		out[head] = expanded
	}
	return out
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

type findParams struct {
	where   map[string]any
	order   string
	limit   int
	skip    int
	keys    []string
	include []string
	count   bool
}

func parseFind(r *http.Request) (findParams, error) {
	q := r.URL.Query()
	p := findParams{
		order:   q.Get("order"),
		limit:   100,
		keys:    splitList(q.Get("keys")),
		include: splitList(q.Get("include")),
		count:   q.Get("count") == "1",
	}
	if raw := q.Get("where"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.where); err != nil {
			return p, badQuery("invalid where: %v", err)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, badQuery("invalid limit")
		}
		p.limit = n
	}
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return p, badQuery("invalid skip")
		}
		p.skip = n
	}
	return p, nil
}

// filter devolve os documentos de class que satisfazem where, ordenados.
func (s *Server) filter(r *http.Request, class string, where map[string]any, order string) ([]map[string]any, error) {
	docs := s.db.all(class)
	if class == classSession && !authOf(r).master {
		a := authOf(r)
		if a.user == nil {
			return nil, newAPIError(http.StatusBadRequest, parseerr.InvalidSessionToken, "Invalid session token")
		}
		where = withOwner(where, a.user)
	}
	out := docs[:0]
	for _, doc := range docs {
		ok, err := s.matches(class, doc, where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	sortDocs(out, order)
	return out, nil
}

func withOwner(where map[string]any, user map[string]any) map[string]any {
	cp := copyDoc(where)
	cp["user"] = map[string]any{"__type": "Pointer", "className": classUser, "objectId": user["objectId"]}
	return cp
}

func (s *Server) find(w http.ResponseWriter, r *http.Request, class string) {
	p, err := parseFind(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	docs, err := s.filter(r, class, p.where, p.order)
	if err != nil {
		s.fail(w, err)
		return
	}

	total := len(docs)
	page := docs
	if p.skip < len(page) {
		page = page[p.skip:]
	} else {
		page = nil
	}
	if p.limit >= 0 && p.limit < len(page) {
		page = page[:p.limit]
	}

	results := make([]map[string]any, 0, len(page))
	for _, doc := range page {
		results = append(results, s.render(class, doc, p.keys, p.include))
	}
	body := map[string]any{"results": results}
	if p.count {
		body["count"] = total
	}
	config.SendResponse(w, http.StatusOK, body)
}

func (s *Server) getOne(w http.ResponseWriter, r *http.Request, class string) {
	doc, ok := s.db.get(class, mux.Vars(r)["id"])
	if !ok {
		s.fail(w, errNotFound)
		return
	}
	if class == classSession && !s.ownsSession(r, doc) {
		s.fail(w, errNotFound)
		return
	}
	q := r.URL.Query()
	config.SendResponse(w, http.StatusOK, s.render(class, doc, splitList(q.Get("keys")), splitList(q.Get("include"))))
}

func (s *Server) ownsSession(r *http.Request, doc map[string]any) bool {
	a := authOf(r)
	if a.master {
		return true
	}
	owner, ok := refOf(doc["user"])
	return ok && a.user != nil && owner.ObjectID == a.user["objectId"]
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, class string) {
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if class == classUser {
		s.createUser(w, r, body)
		return
	}
	if err := s.validateNew(class, body); err != nil {
		s.fail(w, err)
		return
	}
	doc, err := s.db.insert(class, body)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Location", s.cfg.MountPath+"/classes/"+class+"/"+doc["objectId"].(string))
	config.SendResponse(w, http.StatusCreated, map[string]any{
		"objectId":  doc["objectId"],
		"createdAt": doc["createdAt"],
	})
}

func (s *Server) validateNew(class string, body map[string]any) error {
	switch class {
	case classRole:
		name, _ := body["name"].(string)
		if name == "" || !roleNamePattern.MatchString(name) {
			return newAPIError(http.StatusBadRequest, parseerr.InvalidRoleName, "A role's name can be only contain alphanumeric characters, _, -, and spaces.")
		}
		for _, doc := range s.db.all(classRole) {
			if doc["name"] == name {
				return newAPIError(http.StatusBadRequest, parseerr.DuplicateValue, "Cannot add duplicate role name of %s", name)
			}
		}
	case classInstallation:
		if dt, _ := body["deviceType"].(string); dt == "" {
			return newAPIError(http.StatusBadRequest, parseerr.IncorrectType, "deviceType must be specified in this operation")
		}
	case classSession:
		return newAPIError(http.StatusBadRequest, parseerr.SessionMissing, "sessions are created by login and signup")
	}
	return nil
}

func (s *Server) updateOne(w http.ResponseWriter, r *http.Request, class string) {
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	if class == classRole {
		if _, renaming := body["name"]; renaming {
			s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidRoleName, "A role's name can only be set before it has been saved."))
			return
		}
	}
	if class == classSession {
		if doc, ok := s.db.get(class, id); !ok || !s.ownsSession(r, doc) {
			s.fail(w, errNotFound)
			return
		}
	}
	doc, err := s.db.update(class, id, body)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := map[string]any{"updatedAt": doc["updatedAt"]}
	for k, v := range body {
		if m, ok := v.(map[string]any); ok {
			if op, _ := m["__op"].(string); op == "Increment" || op == "Add" || op == "AddUnique" || op == "Remove" {
				resp[k] = doc[k]
			}
		}
	}
	config.SendResponse(w, http.StatusOK, resp)
}

func (s *Server) deleteOne(w http.ResponseWriter, r *http.Request, class string) {
	id := mux.Vars(r)["id"]
	if class == classSession {
		if doc, ok := s.db.get(class, id); !ok || !s.ownsSession(r, doc) {
			s.fail(w, errNotFound)
			return
		}
	}
	if !s.db.remove(class, id) {
		s.fail(w, errNotFound)
		return
	}
	config.SendResponse(w, http.StatusOK, map[string]any{})
}
