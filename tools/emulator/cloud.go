package emulator

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

func (s *Server) runFunction(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.RLock()
	fn, defined := s.functions[name]
	s.mu.RUnlock()

	if !defined {
		if fixed, ok := s.cfg.Functions[name]; ok {
			config.SendResponse(w, fixed.Status, fixed.Body)
			return
		}
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.ScriptFailed, "Invalid function: \"%s\"", name))
		return
	}

	result, err := s.invoke(r, fn)
	if err != nil {
		s.fail(w, err)
		return
	}
	config.SendResponse(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	name := mux.Vars(r)["name"]
	s.mu.RLock()
	fn, defined := s.jobs[name]
	s.mu.RUnlock()
	if !defined {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.ScriptFailed, "Invalid job: %s", name))
		return
	}

	if _, err := s.invoke(r, fn); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("X-Parse-Job-Status-Id", newObjectID())
	config.SendResponse(w, http.StatusOK, map[string]any{})
}

func (s *Server) invoke(r *http.Request, fn FunctionHandler) (any, error) {
	params, err := decodeBody(r)
	if err != nil {
		return nil, err
	}
	a := authOf(r)
	req := FunctionRequest{Params: params, Master: a.master}
	if a.user != nil {
		req.User = s.render(classUser, a.user, nil, nil)
	}

	result, err := fn(r.Context(), req)
	if err != nil {
		var fe *FunctionError
		if errors.As(err, &fe) {
			return nil, newAPIError(http.StatusBadRequest, fe.Code, "%s", fe.Message)
		}
		return nil, newAPIError(http.StatusBadRequest, parseerr.ScriptFailed, "%s", err.Error())
	}
	return result, nil
}

func (s *Server) trackEvent(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	ev := Event{Name: mux.Vars(r)["name"], Dimensions: map[string]string{}, At: s.db.now()}
	if dims, ok := body["dimensions"].(map[string]any); ok {
		for k, v := range dims {
			str, ok := v.(string)
			if !ok {
				s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidJSON, "dimension values must be strings"))
				return
			}
			ev.Dimensions[k] = str
		}
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	config.SendResponse(w, http.StatusOK, map[string]any{})
}

