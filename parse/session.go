package parse

import (
	"context"
	"net/http"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

// Session é um registro de _Session.
type Session struct {
	*Object
}

func (s *Session) Token() string {
	t, _ := s.GetString("sessionToken")
	return t
}

func (s *Session) User() (value.Pointer, error) {
	return s.GetPointer("user")
}

func (s *Session) ExpiresAt() (value.Value, bool) {
	return s.Get("expiresAt")
}

// CurrentSession devolve o registro da sessão atual em /sessions/me.
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	if c.SessionToken() == "" {
		return nil, parseerr.NewPrecondition(ErrNotLoggedIn)
	}
	return c.getSession(ctx, "/sessions/me", nil)
}

// GetSession busca uma sessão pelo objectId.
func (c *Client) GetSession(ctx context.Context, objectID string, opts ...CallOption) (*Session, error) {
	if objectID == "" {
		return nil, parseerr.NewPrecondition(ErrNoObjectID)
	}
	return c.getSession(ctx, objectPath(ClassSession, objectID), opts)
}

func (c *Client) getSession(ctx context.Context, path string, opts []CallOption) (*Session, error) {
	var resp map[string]value.Value
	r := request{method: http.MethodGet, path: path, opts: applyCallOptions(opts)}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	o, err := ObjectFromFields(ClassSession, resp)
	if err != nil {
		return nil, err
	}
	return &Session{Object: o}, nil
}

// Sessions consulta _Session. Sem master key o servidor restringe aos
// registros do usuário da sessão.
func (c *Client) Sessions(ctx context.Context, opts ...CallOption) ([]*Session, error) {
	objs, err := c.Query(ClassSession, opts...).Find(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Session, len(objs))
	for i, o := range objs {
		out[i] = &Session{Object: o}
	}
	return out, nil
}

// DeleteSession revoga a sessão. Revogar a sessão corrente não altera o
// estado local; use Logout para isso.
func (c *Client) DeleteSession(ctx context.Context, s *Session, opts ...CallOption) error {
	return c.Delete(ctx, s.Object, opts...)
}
