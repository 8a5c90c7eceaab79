package emulator

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/raywall/parse-toolkit/parseerr"
)

func badQuery(format string, args ...any) *apiError {
	return newAPIError(http.StatusBadRequest, parseerr.InvalidQuery, format, args...)
}

// normalize converte Date e Pointer em formas comparáveis. Os campos de
// sistema createdAt e updatedAt são strings ISO no documento.
func normalize(field string, v any) any {
	switch x := v.(type) {
	case map[string]any:
		switch x["__type"] {
		case "Date":
			if iso, ok := x["iso"].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, iso); err == nil {
					return t
				}
			}
		case "Pointer", "Object":
			return fmt.Sprintf("ptr:%v:%v", x["className"], x["objectId"])
		}
	case string:
		if field == "createdAt" || field == "updatedAt" {
			if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
				return t
			}
		}
	}
	return v
}

func equalValues(a, b any) bool {
	return equalIn("", a, b)
}

func equalIn(field string, a, b any) bool {
	na, nb := normalize(field, a), normalize(field, b)
	if ta, ok := na.(time.Time); ok {
		tb, ok := nb.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(na, nb)
}

// compare devolve -1, 0 ou 1; ok=false quando os tipos não se comparam.
func compare(field string, a, b any) (int, bool) {
	na, nb := normalize(field, a), normalize(field, b)
	switch x := na.(type) {
	case float64:
		y, ok := nb.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := nb.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case bool:
		y, ok := nb.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func fieldValue(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func isOperatorMap(x any) (map[string]any, bool) {
	m, ok := x.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

// matches avalia where contra um documento de class.
func (s *Server) matches(class string, doc map[string]any, where map[string]any) (bool, error) {
	for key, cond := range where {
		ok, err := s.matchKey(class, doc, key, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (s *Server) matchKey(class string, doc map[string]any, key string, cond any) (bool, error) {
	switch key {
	case "$or", "$and", "$nor":
		subs, ok := cond.([]any)
		if !ok {
			return false, badQuery("%s expects an array", key)
		}
		hits := 0
		for _, sub := range subs {
			w, ok := sub.(map[string]any)
			if !ok {
				return false, badQuery("%s expects objects", key)
			}
			hit, err := s.matches(class, doc, w)
			if err != nil {
				return false, err
			}
			if hit {
				hits++
			}
		}
		switch key {
		case "$or":
			return hits > 0, nil
		case "$and":
			return hits == len(subs), nil
		}
		return hits == 0, nil
	case "$text":
		term, sensitive, err := searchTerm(cond)
		if err != nil {
			return false, err
		}
		for k, v := range doc {
			if str, ok := v.(string); ok && k != "objectId" && containsText(str, term, sensitive) {
				return true, nil
			}
		}
		return false, nil
	case "$relatedTo":
		m, _ := cond.(map[string]any)
		owner, ok := refOf(m["object"])
		rkey, _ := m["key"].(string)
		if !ok || rkey == "" {
			return false, badQuery("bad $relatedTo")
		}
		return indexRef(s.db.related(owner, rkey), ref{ClassName: class, ObjectID: fmt.Sprint(doc["objectId"])}) >= 0, nil
	}

	val, exists := fieldValue(doc, key)
	ops, isOps := isOperatorMap(cond)
	if !isOps {
		return exists && matchEquality(key, val, cond), nil
	}
	for op, operand := range ops {
		ok, err := matchOperator(key, val, exists, op, operand, ops)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// matchEquality trata arrays como em Mongo: basta um elemento igual.
func matchEquality(field string, val, want any) bool {
	if list, ok := val.([]any); ok {
		if _, wantList := want.([]any); !wantList {
			return containsIn(field, list, want)
		}
	}
	return equalIn(field, val, want)
}

func containsIn(field string, list []any, x any) bool {
	for _, item := range list {
		if equalIn(field, item, x) {
			return true
		}
	}
	return false
}

func matchOperator(field string, val any, exists bool, op string, operand any, all map[string]any) (bool, error) {
	switch op {
	case "$exists":
		want, _ := operand.(bool)
		return exists == want, nil
	case "$ne":
		return !exists || !matchEquality(field, val, operand), nil
	case "$lt", "$lte", "$gt", "$gte":
		if !exists {
			return false, nil
		}
		c, ok := compare(field, val, operand)
		if !ok {
			return false, nil
		}
		switch op {
		case "$lt":
			return c < 0, nil
		case "$lte":
			return c <= 0, nil
		case "$gt":
			return c > 0, nil
		}
		return c >= 0, nil
	case "$in", "$nin":
		list, ok := operand.([]any)
		if !ok {
			return false, badQuery("%s expects an array", op)
		}
		hit := false
		if exists {
			for _, want := range list {
				if matchEquality(field, val, want) {
					hit = true
					break
				}
			}
		}
		if op == "$in" {
			return hit, nil
		}
		return !hit, nil
	case "$all":
		list, ok := operand.([]any)
		if !ok {
			return false, badQuery("$all expects an array")
		}
		have, _ := val.([]any)
		for _, want := range list {
			if !containsIn(field, have, want) {
				return false, nil
			}
		}
		return exists, nil
	case "$regex":
		pattern, _ := operand.(string)
		if opts, _ := all["$options"].(string); strings.Contains(opts, "i") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, badQuery("invalid regex: %v", err)
		}
		str, ok := val.(string)
		return ok && re.MatchString(str), nil
	case "$options":
		return true, nil
	case "$text":
		term, sensitive, err := searchTerm(operand)
		if err != nil {
			return false, err
		}
		str, ok := val.(string)
		return ok && containsText(str, term, sensitive), nil
	}
	return false, badQuery("bad constraint: %s", op)
}

func searchTerm(cond any) (string, bool, error) {
	m, _ := cond.(map[string]any)
	search, _ := m["$search"].(map[string]any)
	term, _ := search["$term"].(string)
	if term == "" {
		return "", false, badQuery("$text requires $search.$term")
	}
	sensitive, _ := search["$caseSensitive"].(bool)
	return term, sensitive, nil
}

func containsText(s, term string, sensitive bool) bool {
	if sensitive {
		return strings.Contains(s, term)
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}

// sortDocs ordena por "a,-b". Ausentes vêm antes na ordem crescente.
func sortDocs(docs []map[string]any, order string) {
	if order == "" {
		return
	}
	keys := strings.Split(order, ",")
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range keys {
			desc := strings.HasPrefix(key, "-")
			field := strings.TrimPrefix(key, "-")
			c := compareMissing(field, docs[i], docs[j])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareMissing(field string, a, b map[string]any) int {
	va, okA := fieldValue(a, field)
	vb, okB := fieldValue(b, field)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	c, _ := compare(field, va, vb)
	return c
}
