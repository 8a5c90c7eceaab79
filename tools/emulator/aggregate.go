package emulator

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

// aggregate suporta $match, $group, $sort, $skip, $limit e $project.
// No resultado de $group o _id vira objectId.
func (s *Server) aggregate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	class := mux.Vars(r)["class"]

	var pipeline []map[string]any
	if raw := r.URL.Query().Get("pipeline"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &pipeline); err != nil {
			s.fail(w, badQuery("invalid pipeline: %v", err))
			return
		}
	}

	rows := s.db.all(class)
	for _, stage := range pipeline {
		if len(stage) != 1 {
			s.fail(w, badQuery("each stage must have exactly one operator"))
			return
		}
		var err error
		for op, arg := range stage {
			rows, err = s.runStage(class, rows, op, arg)
		}
		if err != nil {
			s.fail(w, err)
			return
		}
	}

	results := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		results = append(results, s.render(class, row, nil, nil))
	}
	config.SendResponse(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) runStage(class string, rows []map[string]any, op string, arg any) ([]map[string]any, error) {
	switch op {
	case "$match":
		where, _ := arg.(map[string]any)
		out := rows[:0]
		for _, row := range rows {
			ok, err := s.matches(class, row, where)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, row)
			}
		}
		return out, nil
	case "$group":
		spec, ok := arg.(map[string]any)
		if !ok {
			return nil, badQuery("$group expects an object")
		}
		return group(rows, spec)
	case "$sort":
		spec, _ := arg.(map[string]any)
		keys := make([]string, 0, len(spec))
		for field, dir := range spec {
			if n, _ := dir.(float64); n < 0 {
				field = "-" + field
			}
			keys = append(keys, field)
		}
		sort.Strings(keys)
		sortDocs(rows, strings.Join(keys, ","))
		return rows, nil
	case "$skip", "$limit":
		n, ok := arg.(float64)
		if !ok || n < 0 {
			return nil, badQuery("%s expects a non-negative number", op)
		}
		if op == "$skip" {
			if int(n) >= len(rows) {
				return nil, nil
			}
			return rows[int(n):], nil
		}
		if int(n) < len(rows) {
			return rows[:int(n)], nil
		}
		return rows, nil
	case "$project":
		spec, _ := arg.(map[string]any)
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			p := map[string]any{"objectId": row["objectId"]}
			for field, on := range spec {
				if v, ok := row[field]; ok && on != false && on != float64(0) {
					p[field] = v
				}
			}
			out[i] = p
		}
		return out, nil
	}
	return nil, badQuery("unsupported pipeline stage %s", op)
}

func group(rows []map[string]any, spec map[string]any) ([]map[string]any, error) {
	idExpr := spec["_id"]
	var order []string
	groups := map[string]map[string]any{}

	for _, row := range rows {
		key := resolveExpr(row, idExpr)
		k := fmt.Sprintf("%#v", key)
		g, ok := groups[k]
		if !ok {
			g = map[string]any{"objectId": key}
			groups[k] = g
			order = append(order, k)
		}
		for name, acc := range spec {
			if name == "_id" {
				continue
			}
			m, _ := acc.(map[string]any)
			sum, ok := m["$sum"]
			if !ok {
				return nil, badQuery("unsupported accumulator for %s", name)
			}
			n, _ := resolveExpr(row, sum).(float64)
			cur, _ := g[name].(float64)
			g[name] = cur + n
		}
	}

	out := make([]map[string]any, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}
	return out, nil
}

// resolveExpr lê "$campo" do documento; outros valores são literais.
func resolveExpr(row map[string]any, expr any) any {
	if path, ok := expr.(string); ok && strings.HasPrefix(path, "$") {
		v, _ := fieldValue(row, strings.TrimPrefix(path, "$"))
		return v
	}
	return expr
}
