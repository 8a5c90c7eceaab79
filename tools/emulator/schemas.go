package emulator

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

func (s *Server) listSchemas(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	config.SendResponse(w, http.StatusOK, map[string]any{"results": s.db.allSchemas()})
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	class := mux.Vars(r)["class"]
	out, ok := s.db.schema(class)
	if !ok {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidClassName, "Class %s does not exist.", class))
		return
	}
	config.SendResponse(w, http.StatusOK, out)
}

func (s *Server) createSchema(w http.ResponseWriter, r *http.Request) {
	s.writeSchema(w, r, true)
}

func (s *Server) updateSchema(w http.ResponseWriter, r *http.Request) {
	s.writeSchema(w, r, false)
}

func (s *Server) writeSchema(w http.ResponseWriter, r *http.Request, create bool) {
	if !s.requireMaster(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	class := mux.Vars(r)["class"]
	if named, _ := body["className"].(string); class == "" {
		class = named
	} else if named != "" && named != class {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidClassName, "Class name mismatch between %s and %s.", named, class))
		return
	}
	if class == "" {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.MissingObjectID, "POST /schemas needs a class name."))
		return
	}

	out, err := s.db.writeSchema(class, body, create)
	if err != nil {
		s.fail(w, err)
		return
	}
	config.SendResponse(w, http.StatusOK, out)
}

func (s *Server) dropSchema(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	if err := s.db.dropSchema(mux.Vars(r)["class"]); err != nil {
		s.fail(w, err)
		return
	}
	config.SendResponse(w, http.StatusOK, map[string]any{})
}

func (s *Server) purge(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	s.db.purge(mux.Vars(r)["class"])
	config.SendResponse(w, http.StatusOK, map[string]any{})
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	config.SendResponse(w, http.StatusOK, map[string]any{"params": s.db.configParams()})
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	params, _ := body["params"].(map[string]any)
	s.db.setParams(params)
	config.SendResponse(w, http.StatusOK, map[string]any{"result": true})
}
