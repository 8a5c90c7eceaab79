package parse

import (
	"context"
	"errors"
	"net/http"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

var (
	ErrMissingCredentials = errors.New("parse: username and password are required")
	ErrNotLoggedIn        = errors.New("parse: no active session")
	ErrEmptySessionToken  = errors.New("parse: session token is empty")
	ErrMissingEmail       = errors.New("parse: email is required")
)

// User é um Object da classe _User com o token de sessão devolvido pelo
// servidor em signup, login e become.
type User struct {
	*Object
	SessionToken string
}

func NewUser() *User {
	return &User{Object: NewObject(ClassUser)}
}

func userFromFields(raw map[string]value.Value) (*User, error) {
	u := NewUser()
	if tok, ok := raw["sessionToken"]; ok {
		s, err := tok.AsString()
		if err != nil {
			return nil, err
		}
		u.SessionToken = s
		delete(raw, "sessionToken")
	}
	if err := u.merge(raw); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) clone() *User {
	return &User{Object: u.Object.clone(), SessionToken: u.SessionToken}
}

func (u *User) Username() string {
	s, _ := u.GetString("username")
	return s
}

func (u *User) Email() string {
	s, _ := u.GetString("email")
	return s
}

func (u *User) SetUsername(name string) error { return u.Set("username", name) }

func (u *User) SetEmail(email string) error { return u.Set("email", email) }

// SetPassword guarda a senha apenas até o próximo Save.
func (u *User) SetPassword(password string) error { return u.Set("password", password) }

// Signup cria o usuário e, em caso de sucesso, torna-o a sessão atual.
func (c *Client) Signup(ctx context.Context, u *User) error {
	if err := u.ensureUsable(); err != nil {
		return err
	}
	if !u.IsNew() {
		return parseerr.NewPrecondition(errors.New("parse: user already signed up"))
	}
	if _, ok := u.dirty["username"]; !ok {
		return parseerr.NewPrecondition(ErrMissingCredentials)
	}
	if _, ok := u.dirty["password"]; !ok {
		return parseerr.NewPrecondition(ErrMissingCredentials)
	}

	var resp map[string]value.Value
	r := request{method: http.MethodPost, path: "/users", body: u.payload(), opts: callOptions{sessionToken: new(string)}}
	if err := c.do(ctx, r, &resp); err != nil {
		return err
	}

	token, err := takeSessionToken(resp)
	if err != nil {
		return err
	}
	if err := u.afterSave(resp, true); err != nil {
		return err
	}
	u.SessionToken = token
	c.commitSession(token, u)
	return nil
}

// Login autentica e substitui a sessão atual somente após o sucesso.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, parseerr.NewPrecondition(ErrMissingCredentials)
	}

	var resp map[string]value.Value
	r := request{
		method: http.MethodPost,
		path:   "/login",
		body:   map[string]string{"username": username, "password": password},
		opts:   callOptions{sessionToken: new(string)},
	}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}

	u, err := userFromFields(resp)
	if err != nil {
		return nil, err
	}
	if u.SessionToken == "" {
		return nil, parseerr.NewDecode(nil, "login response without sessionToken")
	}
	c.commitSession(u.SessionToken, u)
	return u.clone(), nil
}

// Logout invalida o token no servidor e, depois do sucesso, limpa a sessão.
// Falhas (inclusive token inválido) não alteram o estado local.
func (c *Client) Logout(ctx context.Context) error {
	token := c.SessionToken()
	if token == "" {
		return parseerr.NewPrecondition(ErrNotLoggedIn)
	}
	r := request{method: http.MethodPost, path: "/logout", body: map[string]any{}, opts: callOptions{sessionToken: &token}, allowEmpty: true}
	if err := c.do(ctx, r, nil); err != nil {
		return err
	}
	c.ClearSession()
	return nil
}

// Become valida token em /users/me e o adota como sessão atual.
func (c *Client) Become(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, parseerr.NewPrecondition(ErrEmptySessionToken)
	}
	u, err := c.me(ctx, token)
	if err != nil {
		return nil, err
	}
	if u.SessionToken == "" {
		u.SessionToken = token
	}
	c.commitSession(u.SessionToken, u)
	return u.clone(), nil
}

// Me devolve o usuário da sessão atual sem alterar o estado.
func (c *Client) Me(ctx context.Context) (*User, error) {
	token := c.SessionToken()
	if token == "" {
		return nil, parseerr.NewPrecondition(ErrNotLoggedIn)
	}
	return c.me(ctx, token)
}

func (c *Client) me(ctx context.Context, token string) (*User, error) {
	var resp map[string]value.Value
	r := request{method: http.MethodGet, path: "/users/me", opts: callOptions{sessionToken: &token}}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return userFromFields(resp)
}

// GetUser busca um usuário pelo objectId.
func (c *Client) GetUser(ctx context.Context, objectID string, opts ...CallOption) (*User, error) {
	if objectID == "" {
		return nil, parseerr.NewPrecondition(ErrNoObjectID)
	}
	var resp map[string]value.Value
	r := request{method: http.MethodGet, path: objectPath(ClassUser, objectID), opts: applyCallOptions(opts)}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return userFromFields(resp)
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return parseerr.NewPrecondition(ErrMissingEmail)
	}
	r := request{method: http.MethodPost, path: "/requestPasswordReset", body: map[string]string{"email": email}, allowEmpty: true}
	return c.do(ctx, r, nil)
}

func (c *Client) RequestVerificationEmail(ctx context.Context, email string) error {
	if email == "" {
		return parseerr.NewPrecondition(ErrMissingEmail)
	}
	r := request{method: http.MethodPost, path: "/verificationEmailRequest", body: map[string]string{"email": email}, allowEmpty: true}
	return c.do(ctx, r, nil)
}

func takeSessionToken(resp map[string]value.Value) (string, error) {
	raw, ok := resp["sessionToken"]
	if !ok {
		return "", parseerr.NewDecode(nil, "response without sessionToken")
	}
	delete(resp, "sessionToken")
	return raw.AsString()
}
