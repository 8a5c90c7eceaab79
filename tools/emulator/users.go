package emulator

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

// sessionTTL é a validade informada em expiresAt.
const sessionTTL = 365 * 24 * time.Hour

func (s *Server) userForToken(token string) (map[string]any, bool) {
	sess, ok := s.sessionForToken(token)
	if !ok {
		return nil, false
	}
	owner, ok := refOf(sess["user"])
	if !ok {
		return nil, false
	}
	return s.db.get(classUser, owner.ObjectID)
}

func (s *Server) sessionForToken(token string) (map[string]any, bool) {
	for _, doc := range s.db.all(classSession) {
		if doc["sessionToken"] == token {
			return doc, true
		}
	}
	return nil, false
}

func (s *Server) userBy(field, want string) (map[string]any, bool) {
	for _, doc := range s.db.all(classUser) {
		if v, _ := doc[field].(string); v != "" && strings.EqualFold(v, want) {
			return doc, true
		}
	}
	return nil, false
}

func (s *Server) createSession(userID, action string) (string, error) {
	token := "r:" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err := s.db.insert(classSession, map[string]any{
		"sessionToken": token,
		"user":         map[string]any{"__type": "Pointer", "className": classUser, "objectId": userID},
		"createdWith":  map[string]any{"action": action, "authProvider": "password"},
		"restricted":   false,
		"expiresAt":    map[string]any{"__type": "Date", "iso": s.db.now().Add(sessionTTL).UTC().Format(isoLayout)},
	})
	return token, err
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.createUser(w, r, body)
}

func (s *Server) createUser(w http.ResponseWriter, _ *http.Request, body map[string]any) {
	username, _ := body["username"].(string)
	password, _ := body["password"].(string)
	switch {
	case username == "":
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.UsernameMissing, "bad or missing username"))
		return
	case password == "":
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.PasswordMissing, "password is required"))
		return
	}
	if _, taken := s.userBy("username", username); taken {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.UsernameTaken, "Account already exists for this username."))
		return
	}
	if email, _ := body["email"].(string); email != "" {
		if _, taken := s.userBy("email", email); taken {
			s.fail(w, newAPIError(http.StatusBadRequest, parseerr.EmailTaken, "Account already exists for this email address."))
			return
		}
	}

	doc, err := s.db.insert(classUser, body)
	if err != nil {
		s.fail(w, err)
		return
	}
	id := doc["objectId"].(string)
	token, err := s.createSession(id, "signup")
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Location", s.cfg.MountPath+"/users/"+id)
	config.SendResponse(w, http.StatusCreated, map[string]any{
		"objectId":     id,
		"createdAt":    doc["createdAt"],
		"sessionToken": token,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var username, password string
	if r.Method == http.MethodGet {
		username, password = r.URL.Query().Get("username"), r.URL.Query().Get("password")
	} else {
		body, err := decodeBody(r)
		if err != nil {
			s.fail(w, err)
			return
		}
		username, _ = body["username"].(string)
		password, _ = body["password"].(string)
	}
	if username == "" {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.UsernameMissing, "username/email is required."))
		return
	}
	if password == "" {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.PasswordMissing, "password is required."))
		return
	}

	user, ok := s.userBy("username", username)
	if !ok || user["password"] != password {
		s.fail(w, newAPIError(http.StatusNotFound, parseerr.ObjectNotFound, "Invalid username/password."))
		return
	}
	token, err := s.createSession(user["objectId"].(string), "login")
	if err != nil {
		s.fail(w, err)
		return
	}
	out := s.render(classUser, user, nil, nil)
	out["sessionToken"] = token
	config.SendResponse(w, http.StatusOK, out)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	a := authOf(r)
	if a.token == "" {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidSessionToken, "Invalid session token"))
		return
	}
	if sess, ok := s.sessionForToken(a.token); ok {
		s.db.remove(classSession, sess["objectId"].(string))
	}
	config.SendResponse(w, http.StatusOK, map[string]any{})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	a := authOf(r)
	if a.user == nil {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidSessionToken, "Invalid session token"))
		return
	}
	out := s.render(classUser, a.user, nil, splitList(r.URL.Query().Get("include")))
	out["sessionToken"] = a.token
	config.SendResponse(w, http.StatusOK, out)
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	a := authOf(r)
	sess, ok := s.sessionForToken(a.token)
	if a.token == "" || !ok {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.InvalidSessionToken, "Session token required."))
		return
	}
	config.SendResponse(w, http.StatusOK, s.render(classSession, sess, nil, nil))
}

// emailRequest atende reset de senha e reenvio de verificação; nenhum
// e-mail é enviado.
func (s *Server) emailRequest(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	email, _ := body["email"].(string)
	if email == "" {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.EmailMissing, "you must provide an email"))
		return
	}
	if _, ok := s.userBy("email", email); !ok {
		s.fail(w, newAPIError(http.StatusBadRequest, parseerr.EmailNotFound, "No user found with email %s.", email))
		return
	}
	config.SendResponse(w, http.StatusOK, map[string]any{})
}
