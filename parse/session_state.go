package parse

import (
	"sync"
	"sync/atomic"
)

// SessionSnapshot é uma visão consistente da sessão: token e usuário
// sempre pertencem à mesma mutação.
type SessionSnapshot struct {
	Token string
	User  *User
}

// SessionListener recebe o snapshot resultante de cada mutação confirmada.
// Um snapshot com Token vazio indica logout.
type SessionListener func(SessionSnapshot)

// sessionState guarda um snapshot imutável. Leitores nunca bloqueiam;
// escritores são serializados pelo mutex e publicam um ponteiro novo.
type sessionState struct {
	mu  sync.Mutex
	cur atomic.Pointer[SessionSnapshot]
}

func (s *sessionState) load() SessionSnapshot {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return SessionSnapshot{}
}

func (s *sessionState) store(token string, user *User) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &SessionSnapshot{Token: token}
	if user != nil {
		snap.User = user.clone()
	}
	s.cur.Store(snap)
	return *snap
}

func (s *sessionState) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Store(nil)
}

// Session devolve o snapshot atual. O User devolvido é uma cópia.
func (c *Client) Session() SessionSnapshot {
	snap := c.session.load()
	if snap.User != nil {
		snap.User = snap.User.clone()
	}
	return snap
}

// SessionToken devolve o token atual ou "".
func (c *Client) SessionToken() string {
	return c.session.load().Token
}

// CurrentUser devolve uma cópia do usuário autenticado ou nil.
func (c *Client) CurrentUser() *User {
	return c.Session().User
}

// ClearSession descarta a sessão local sem falar com o servidor.
func (c *Client) ClearSession() {
	c.session.clear()
	c.notify(SessionSnapshot{})
}

func (c *Client) commitSession(token string, user *User) {
	snap := c.session.store(token, user)
	if snap.User != nil {
		snap.User = snap.User.clone()
	}
	c.notify(snap)
}

func (c *Client) notify(snap SessionSnapshot) {
	for _, l := range c.listeners {
		l(snap)
	}
}
