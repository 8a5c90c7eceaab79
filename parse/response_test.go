package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

func TestDecodeResponse_Classification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		allowEmpty bool
		kind       parseerr.Kind
		code       int
	}{
		{"envelope on 200", 200, `{"code":255,"error":"class not empty"}`, false, parseerr.ParseCode, 255},
		{"envelope on 400", 400, `{"code":101,"error":"Object not found."}`, false, parseerr.ParseCode, 101},
		{"html on 502", 502, `<html>Bad Gateway</html>`, false, parseerr.Decode, 0},
		{"json without envelope on 500", 500, `{"message":"boom"}`, false, parseerr.HTTPStatus, 0},
		{"empty on 404", 404, ``, false, parseerr.HTTPStatus, 0},
		{"empty on 200 not allowed", 200, ``, false, parseerr.Decode, 0},
		{"code without error is data", 200, `{"code":7}`, false, parseerr.Unknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]value.Value
			err := decodeResponse(tt.status, []byte(tt.body), tt.allowEmpty, &out)
			if tt.kind == parseerr.Unknown {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, parseerr.KindOf(err))
			assert.Equal(t, tt.code, parseerr.CodeOf(err))
		})
	}
}

func TestDecodeResponse_StatusIsKept(t *testing.T) {
	err := decodeResponse(200, []byte(`{"code":255,"error":"x"}`), false, nil)
	var pe *parseerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 200, pe.Status)

	err = decodeResponse(503, []byte(`not json`), false, nil)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 503, pe.Status)
	assert.Contains(t, pe.Message, "not json")
}

func TestDecodeResponse_Success(t *testing.T) {
	assert.NoError(t, decodeResponse(200, nil, true, nil))
	assert.NoError(t, decodeResponse(200, []byte("  "), false, nil))

	var doc value.Value
	require.NoError(t, decodeResponse(201, []byte(`{"objectId":"abc"}`), false, &doc))
	fields, err := doc.AsObject()
	require.NoError(t, err)
	id, _ := fields["objectId"].AsString()
	assert.Equal(t, "abc", id)

	var env resultsEnvelope
	require.NoError(t, decodeResponse(200, []byte(`{"results":[{"a":1}],"count":3}`), false, &env))
	require.NotNil(t, env.Count)
	assert.Equal(t, int64(3), *env.Count)
	assert.Len(t, env.Results, 1)

	var list map[string]value.Value
	err = decodeResponse(200, []byte(`[1,2]`), false, &list)
	assert.Equal(t, parseerr.Decode, parseerr.KindOf(err))
}

func TestSnippetTruncates(t *testing.T) {
	long := make([]byte, maxErrorBody+10)
	for i := range long {
		long[i] = 'x'
	}
	s := snippet(long)
	assert.Len(t, s, maxErrorBody+3)
}
