package parse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/gabriel-vasile/mimetype"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

var (
	ErrInvalidFileName = errors.New("parse: invalid file name")
	ErrEmptyFile       = errors.New("parse: file has no content")
	ErrFileWithoutURL  = errors.New("parse: file reference has no url")
)

var fileNamePattern = regexp.MustCompile(`^[_a-zA-Z0-9][a-zA-Z0-9@. ~_-]*$`)

// UploadFile envia data para /files/{name}. Com contentType vazio o tipo é
// detectado pelo conteúdo. O servidor pode prefixar o nome devolvido.
func (c *Client) UploadFile(ctx context.Context, name string, data []byte, contentType string) (value.File, error) {
	if !fileNamePattern.MatchString(name) {
		return value.File{}, parseerr.NewPrecondition(fmt.Errorf("%w: %q", ErrInvalidFileName, name))
	}
	if len(data) == 0 {
		return value.File{}, parseerr.NewPrecondition(ErrEmptyFile)
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	var out struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	r := request{
		method:      http.MethodPost,
		path:        "/files/" + url.PathEscape(name),
		raw:         bytes.NewReader(data),
		contentType: contentType,
	}
	if err := c.do(ctx, r, &out); err != nil {
		return value.File{}, err
	}
	if out.Name == "" {
		return value.File{}, parseerr.NewDecode(nil, "upload response without name")
	}
	return value.File{Name: out.Name, URL: out.URL}, nil
}

// DeleteFile remove o arquivo pelo nome devolvido no upload. Exige master key.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	if name == "" {
		return parseerr.NewPrecondition(ErrInvalidFileName)
	}
	r := request{
		method:     http.MethodDelete,
		path:       "/files/" + url.PathEscape(name),
		opts:       callOptions{useMaster: true},
		allowEmpty: true,
	}
	return c.do(ctx, r, nil)
}

// DownloadFile lê o conteúdo de f.URL. A URL aponta para o adaptador de
// arquivos do servidor e não recebe cabeçalhos do Parse.
func (c *Client) DownloadFile(ctx context.Context, f value.File) ([]byte, error) {
	if f.URL == "" {
		return nil, parseerr.NewPrecondition(ErrFileWithoutURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, parseerr.Wrap(parseerr.Precondition, err, "build download request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, parseerr.NewTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, parseerr.NewTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseerr.NewHTTPStatus(resp.StatusCode, snippet(data))
	}
	return data, nil
}
