package parse

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

const maxErrorBody = 512

// decodeResponse classifica a resposta na ordem: corpo não-JSON (Decode),
// envelope {code, error} (ParseCode, qualquer que seja o status), status
// não-2xx (HTTPStatus). Só então decodifica o sucesso em out.
//
// out pode ser nil, *value.Value, *map[string]value.Value ou qualquer
// destino aceito por json.Unmarshal.
func decodeResponse(status int, body []byte, allowEmpty bool, out any) error {
	ok := status >= 200 && status < 300

	if len(bytes.TrimSpace(body)) == 0 {
		if !ok {
			return parseerr.NewHTTPStatus(status, "")
		}
		if allowEmpty || out == nil {
			return nil
		}
		return parseerr.NewDecode(nil, "empty response body")
	}

	doc, err := value.Decode(body)
	if err != nil {
		de := parseerr.NewDecode(err, "response is not valid json: "+snippet(body))
		de.Status = status
		return de
	}

	if code, msg, isEnvelope := errorEnvelope(doc); isEnvelope {
		return parseerr.NewParseCode(status, code, msg)
	}

	if !ok {
		return parseerr.NewHTTPStatus(status, snippet(body))
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *value.Value:
		*dst = doc
		return nil
	case *map[string]value.Value:
		fields, err := doc.AsObject()
		if err != nil {
			return err
		}
		*dst = fields
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return parseerr.NewDecode(err, fmt.Sprintf("unexpected response shape for %T", out))
	}
	return nil
}

// errorEnvelope reconhece {"code": <inteiro>, "error": <string>}.
func errorEnvelope(doc value.Value) (int, string, bool) {
	if doc.Kind() != value.KindObject {
		return 0, "", false
	}
	fields, _ := doc.AsObject()
	codeV, hasCode := fields["code"]
	errV, hasErr := fields["error"]
	if !hasCode || !hasErr {
		return 0, "", false
	}
	code, err := codeV.AsInt()
	if err != nil {
		return 0, "", false
	}
	msg, err := errV.AsString()
	if err != nil {
		return 0, "", false
	}
	return int(code), msg, true
}

func snippet(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}

// resultsEnvelope é o formato {"results": [...]} das listagens.
type resultsEnvelope struct {
	Results []map[string]value.Value `json:"results"`
	Count   *int64                   `json:"count,omitempty"`
}
