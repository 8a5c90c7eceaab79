package auth

import "net/http"

// TokenSource fornece o token a anexar. *Manager satisfaz a interface.
type TokenSource interface {
	Token() (string, error)
}

// Transport adiciona "Authorization: Bearer <token>" a cada requisição.
type Transport struct {
	Source TokenSource
	Base   http.RoundTripper
}

// NewTransport usa http.DefaultTransport quando base é nil.
func NewTransport(src TokenSource, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Source: src, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.Token()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return t.Base.RoundTrip(r)
}
