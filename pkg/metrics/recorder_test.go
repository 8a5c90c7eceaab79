package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	var p Provider = r

	require.NoError(t, p.Count("parse.client.request", 1, []string{"endpoint:classes", "status:200"}))
	require.NoError(t, p.Count("parse.client.request", 1, []string{"endpoint:users", "status:201"}))
	require.NoError(t, p.Histogram("parse.client.latency_ms", 12, nil))
	require.NoError(t, p.Gauge("parse.session.active", 1, nil))

	reqs := r.Samples("parse.client.request")
	require.Len(t, reqs, 2)
	assert.Equal(t, TypeCount, reqs[0].Type)
	assert.True(t, reqs[1].HasTag("endpoint:users"))
	assert.False(t, reqs[1].HasTag("endpoint:classes"))
	assert.Equal(t, 2.0, r.Total("parse.client.request"))
	assert.Len(t, r.Samples(""), 4)

	assert.Contains(t, r.Summary(), "histogram parse.client.latency_ms 12\n")
	assert.Contains(t, r.Summary(), "count parse.client.request 1 [endpoint:classes,status:200]\n")
}

func TestRecorder_CopiesTags(t *testing.T) {
	r := NewRecorder()
	tags := []string{"a:1"}
	_ = r.Count("m", 1, tags)
	tags[0] = "changed"
	assert.True(t, r.Samples("m")[0].HasTag("a:1"))
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Count("m", 1, nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50.0, r.Total("m"))
}

func TestNoop(t *testing.T) {
	var p Provider = Noop{}
	assert.NoError(t, p.Count("x", 1, nil))
	assert.NoError(t, p.Gauge("x", 1, nil))
	assert.NoError(t, p.Histogram("x", 1, nil))
}
