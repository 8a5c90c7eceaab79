package emulator

import (
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

func (s *Server) fileURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + s.cfg.MountPath + "/files/" + s.cfg.ApplicationID + "/" + name
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(data) == 0 {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.FileSaveError, "Invalid file upload."))
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + mux.Vars(r)["name"]
	s.db.putFile(name, storedFile{data: data, contentType: contentType})

	url := s.fileURL(r, name)
	w.Header().Set("Location", url)
	config.SendResponse(w, http.StatusCreated, map[string]string{"name": name, "url": url})
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireMaster(w, r) {
		return
	}
	if !s.db.deleteFile(mux.Vars(r)["name"]) {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.FileDeleteError, "Could not delete file."))
		return
	}
	config.SendResponse(w, http.StatusOK, map[string]any{})
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	f, ok := s.db.file(vars["name"])
	if vars["app"] != s.cfg.ApplicationID || !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", f.contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.data)
}
