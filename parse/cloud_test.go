package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/tools/emulator"
)

func TestCloud_Run(t *testing.T) {
	c, srv, _ := emulated(t, nil)
	srv.Define("hello", func(_ context.Context, req emulator.FunctionRequest) (any, error) {
		name, _ := req.Params["name"].(string)
		return map[string]any{"greeting": "hello " + name, "master": req.Master}, nil
	})

	res, err := c.Run(context.Background(), "hello", map[string]any{"name": "ana"})
	require.NoError(t, err)
	fields, err := res.AsObject()
	require.NoError(t, err)
	greeting, _ := fields["greeting"].AsString()
	assert.Equal(t, "hello ana", greeting)
	master, _ := fields["master"].AsBool()
	assert.True(t, master)
}

func TestCloud_RunWithoutParamsAndResult(t *testing.T) {
	c, srv, _ := emulated(t, nil)
	var got map[string]any
	srv.Define("noop", func(_ context.Context, req emulator.FunctionRequest) (any, error) {
		got = req.Params
		return nil, nil
	})

	res, err := c.Run(context.Background(), "noop", nil)
	require.NoError(t, err)
	assert.True(t, res.IsNull())
	assert.Empty(t, got)
}

func TestCloud_RunErrors(t *testing.T) {
	c, srv, doer := emulated(t, nil)
	srv.Define("strict", func(context.Context, emulator.FunctionRequest) (any, error) {
		return nil, &emulator.FunctionError{Code: parseerr.ValidationError, Message: "score must be positive"}
	})
	srv.Define("broken", func(context.Context, emulator.FunctionRequest) (any, error) {
		return nil, errors.New("boom")
	})
	ctx := context.Background()

	_, err := c.Run(ctx, "strict", nil)
	assert.True(t, parseerr.IsCode(err, parseerr.ValidationError))
	assert.Contains(t, err.Error(), "score must be positive")

	_, err = c.Run(ctx, "broken", nil)
	assert.True(t, parseerr.IsCode(err, parseerr.ScriptFailed))

	_, err = c.Run(ctx, "missing", nil)
	assert.True(t, parseerr.IsCode(err, parseerr.ScriptFailed))

	calls := doer.calls.Load()
	_, err = c.Run(ctx, "", nil)
	assert.ErrorIs(t, err, ErrEmptyFunctionName)
	_, err = c.Run(ctx, "strict", []int{1, 2})
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
	assert.Equal(t, calls, doer.calls.Load())
}

func TestCloud_RunSeesSessionUser(t *testing.T) {
	c, srv, _ := emulated(t, nil)
	srv.Define("whoami", func(_ context.Context, req emulator.FunctionRequest) (any, error) {
		if req.User == nil {
			return "", nil
		}
		return req.User["username"], nil
	})
	signup(t, c, "ana", "pw")

	res, err := c.Run(context.Background(), "whoami", nil)
	require.NoError(t, err)
	name, err := res.AsString()
	require.NoError(t, err)
	assert.Equal(t, "ana", name)
}

func TestCloud_RunJob(t *testing.T) {
	c, srv, _ := emulated(t, nil)
	ran := make(chan map[string]any, 1)
	srv.DefineJob("cleanup", func(_ context.Context, req emulator.FunctionRequest) (any, error) {
		ran <- req.Params
		return nil, nil
	})

	id, err := c.RunJob(context.Background(), "cleanup", map[string]any{"days": 7})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	params := <-ran
	assert.Equal(t, float64(7), params["days"])
}

func TestCloud_RunJobNeedsMasterKey(t *testing.T) {
	c, _, doer := emulated(t, func(cfg *Config) {
		cfg.MasterKey = ""
		cfg.RESTAPIKey = "rest"
	})
	_, err := c.RunJob(context.Background(), "cleanup", nil)
	assert.ErrorIs(t, err, ErrMasterKeyRequired)
	assert.Zero(t, doer.calls.Load())
}
