package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doc = []byte(`{
	"playerName": "ana",
	"score": 1337,
	"cheatMode": false,
	"author": {"username": "bia", "profile": {"level": "senior"}},
	"tags": ["golang", "parse"],
	"history": [{"score": 10}, {"score": 25}]
}`)

func TestExtract(t *testing.T) {
	e, err := NewExtractor(doc)
	require.NoError(t, err)

	cases := map[string]string{
		"playerName":           "ana",
		"score":                "1337",
		"cheatMode":            "false",
		"author.username":      "bia",
		"author.profile.level": "senior",
		"tags[1]":              "parse",
		"history[1].score":     "25",
		"author.profile":       `{"level":"senior"}`,
		"tags":                 `["golang","parse"]`,
	}
	for p, want := range cases {
		t.Run(p, func(t *testing.T) {
			got, err := e.String(p)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	whole, err := e.Extract("  ")
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, whole)
}

func TestExtract_RootArray(t *testing.T) {
	e, err := NewExtractor([]byte(`[{"name": "x"}, {"name": "y"}]`))
	require.NoError(t, err)

	got, err := e.String("[1].name")
	require.NoError(t, err)
	assert.Equal(t, "y", got)
}

func TestExtract_Errors(t *testing.T) {
	e, err := NewExtractor(doc)
	require.NoError(t, err)

	cases := map[string]string{
		"missing":          `field "missing" not found`,
		"author.email":     `field "author.email" not found`,
		"tags[5]":          "out of range",
		"playerName.first": "expected object",
		"score[0]":         "expected array",
		"tags[x]":          "invalid index",
		"tags[1":           "malformed index",
		"author..username": "empty segment",
	}
	for p, want := range cases {
		t.Run(p, func(t *testing.T) {
			_, err := e.Extract(p)
			assert.ErrorContains(t, err, want)
			assert.False(t, e.Exists(p))
		})
	}
	assert.True(t, e.Exists("history[0]"))
}

func TestNewExtractor_InvalidJSON(t *testing.T) {
	_, err := NewExtractor([]byte(`{broken`))
	assert.ErrorContains(t, err, "decode document")
}

func TestFromValue(t *testing.T) {
	e := FromValue(map[string]any{"a": []any{"b"}})
	got, err := e.String("a[0]")
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}
