package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator/config"
)

// FunctionRequest é o que um handler de Cloud Code recebe.
type FunctionRequest struct {
	Params map[string]any
	User   map[string]any
	Master bool
}

// FunctionHandler implementa uma função ou job.
type FunctionHandler func(ctx context.Context, req FunctionRequest) (any, error)

// FunctionError permite a um handler devolver um código específico.
// Outros erros viram ScriptFailed (141).
type FunctionError struct {
	Code    int
	Message string
}

func (e *FunctionError) Error() string { return e.Message }

// Event é um evento de analytics recebido.
type Event struct {
	Name       string
	Dimensions map[string]string
	At         time.Time
}

// Server emula a API REST do Parse Server em memória.
type Server struct {
	cfg    config.Config
	db     *db
	router *mux.Router
	log    zerolog.Logger

	mu        sync.RWMutex
	functions map[string]FunctionHandler
	jobs      map[string]FunctionHandler
	events    []Event
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New monta o servidor e carrega as fixtures de cfg.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	cfg.Defaults()
	s := &Server{
		cfg:       cfg,
		db:        newDB(),
		log:       zerolog.Nop(),
		functions: map[string]FunctionHandler{},
		jobs:      map[string]FunctionHandler{},
	}
	for _, opt := range opts {
		opt(s)
	}
	for k, v := range cfg.Params {
		s.db.params[k] = v
	}
	for class, fixtures := range cfg.Classes {
		for _, f := range fixtures {
			if _, err := s.db.insert(class, map[string]any(f)); err != nil {
				return nil, fmt.Errorf("fixture %s: %w", class, err)
			}
		}
	}
	s.routes()
	return s, nil
}

// Define registra uma função de Cloud Code.
func (s *Server) Define(name string, fn FunctionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[name] = fn
}

// DefineJob registra um job; jobs só rodam com master key.
func (s *Server) DefineJob(name string, fn FunctionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = fn
}

// Events devolve os eventos de analytics recebidos até agora.
func (s *Server) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start escuta na porta configurada até ctx ser cancelado.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.cfg.Port).Str("mount", s.cfg.MountPath).Msg("parse emulator listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// auth é o contexto de credenciais de uma requisição.
type auth struct {
	master bool
	token  string
	user   map[string]any
}

type authKey struct{}

func authOf(r *http.Request) *auth {
	if a, ok := r.Context().Value(authKey{}).(*auth); ok {
		return a
	}
	return &auth{}
}

// api exige o application id e resolve master key e sessão.
func (s *Server) api(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Parse-Application-Id") != s.cfg.ApplicationID {
			config.SendResponse(w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
			return
		}
		a := &auth{master: s.cfg.MasterKey != "" && r.Header.Get("X-Parse-Master-Key") == s.cfg.MasterKey}
		if token := r.Header.Get("X-Parse-Session-Token"); token != "" {
			user, ok := s.userForToken(token)
			if !ok {
				config.SendError(w, http.StatusBadRequest, parseerr.InvalidSessionToken, "Invalid session token")
				return
			}
			a.token, a.user = token, user
		}
		next(w, r.WithContext(context.WithValue(r.Context(), authKey{}, a)))
	}
}

func (s *Server) requireMaster(w http.ResponseWriter, r *http.Request) bool {
	if authOf(r).master {
		return true
	}
	config.SendError(w, http.StatusForbidden, parseerr.OperationForbidden, "unauthorized: master key is required")
	return false
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		config.SendError(w, ae.status, ae.code, ae.message)
		return
	}
	s.log.Error().Err(err).Msg("emulator internal error")
	config.SendError(w, http.StatusInternalServerError, parseerr.InternalServerError, err.Error())
}

func decodeBody(r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if len(data) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, newAPIError(http.StatusBadRequest, parseerr.InvalidJSON, "invalid JSON")
	}
	return body, nil
}

// statusWriter guarda o status para o log e para o /batch.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) routes() {
	s.router = mux.NewRouter()
	s.router.Use(s.logRequests)
	api := s.router.PathPrefix(s.cfg.MountPath).Subrouter()

	for _, route := range s.cfg.Routes {
		api.HandleFunc(route.Path, s.api(route.Handler())).Methods(route.Method)
	}

	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/files/{app}/{name}", s.downloadFile).Methods(http.MethodGet)

	api.HandleFunc("/users/me", s.api(s.me)).Methods(http.MethodGet)
	api.HandleFunc("/users", s.api(s.signup)).Methods(http.MethodPost)
	api.HandleFunc("/login", s.api(s.login)).Methods(http.MethodPost, http.MethodGet)
	api.HandleFunc("/logout", s.api(s.logout)).Methods(http.MethodPost)
	api.HandleFunc("/requestPasswordReset", s.api(s.emailRequest)).Methods(http.MethodPost)
	api.HandleFunc("/verificationEmailRequest", s.api(s.emailRequest)).Methods(http.MethodPost)
	api.HandleFunc("/sessions/me", s.api(s.currentSession)).Methods(http.MethodGet)

	s.classRoutes(api, "/classes/{class}", "")
	s.classRoutes(api, "/users", classUser)
	s.classRoutes(api, "/roles", classRole)
	s.classRoutes(api, "/sessions", classSession)
	s.classRoutes(api, "/installations", classInstallation)

	api.HandleFunc("/functions/{name}", s.api(s.runFunction)).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{name}", s.api(s.runJob)).Methods(http.MethodPost)
	api.HandleFunc("/files/{name}", s.api(s.uploadFile)).Methods(http.MethodPost)
	api.HandleFunc("/files/{name}", s.api(s.deleteFile)).Methods(http.MethodDelete)

	api.HandleFunc("/schemas", s.api(s.listSchemas)).Methods(http.MethodGet)
	api.HandleFunc("/schemas", s.api(s.createSchema)).Methods(http.MethodPost)
	api.HandleFunc("/schemas/{class}", s.api(s.getSchema)).Methods(http.MethodGet)
	api.HandleFunc("/schemas/{class}", s.api(s.createSchema)).Methods(http.MethodPost)
	api.HandleFunc("/schemas/{class}", s.api(s.updateSchema)).Methods(http.MethodPut)
	api.HandleFunc("/schemas/{class}", s.api(s.dropSchema)).Methods(http.MethodDelete)
	api.HandleFunc("/purge/{class}", s.api(s.purge)).Methods(http.MethodDelete)

	api.HandleFunc("/config", s.api(s.getConfig)).Methods(http.MethodGet)
	api.HandleFunc("/config", s.api(s.putConfig)).Methods(http.MethodPut)
	api.HandleFunc("/aggregate/{class}", s.api(s.aggregate)).Methods(http.MethodGet)
	api.HandleFunc("/batch", s.api(s.batch)).Methods(http.MethodPost)
	api.HandleFunc("/events/{name}", s.api(s.trackEvent)).Methods(http.MethodPost)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	config.SendResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
