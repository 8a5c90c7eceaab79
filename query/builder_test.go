package query

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

type row = map[string]value.Value

// fakeExec registra as chamadas e devolve respostas programadas.
type fakeExec struct {
	calls     []url.Values
	classes   []string
	pages     [][]row
	count     int64
	aggregate []row
	err       error
}

func (f *fakeExec) Find(_ context.Context, className string, params url.Values) ([]row, error) {
	f.calls = append(f.calls, params)
	f.classes = append(f.classes, className)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeExec) Count(_ context.Context, className string, params url.Values) (int64, error) {
	f.calls = append(f.calls, params)
	f.classes = append(f.classes, className)
	return f.count, f.err
}

func (f *fakeExec) Aggregate(_ context.Context, className string, params url.Values) ([]row, error) {
	f.calls = append(f.calls, params)
	f.classes = append(f.classes, className)
	return f.aggregate, f.err
}

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{"n": value.Int(int64(i))}
	}
	return out
}

func TestBuilderPreservesState(t *testing.T) {
	q := New[row](&fakeExec{}, "GameScore").
		EqualTo("playerName", "Sean").
		GreaterThan("score", 10).
		OrderByDescending("score").
		OrderBy("createdAt").
		Select("score", "score", "playerName").
		Include("owner")

	s := q.Spec()
	require.NoError(t, q.Err())
	require.Len(t, s.Constraints, 2)
	assert.Equal(t, "playerName", s.Constraints[0].Field)
	assert.Equal(t, GreaterThan, s.Constraints[1].Operator)
	assert.Equal(t, []SortKey{{Field: "score", Descending: true}, {Field: "createdAt"}}, s.Order)
	assert.Equal(t, []string{"score", "playerName"}, s.Keys)
	assert.Equal(t, []string{"owner"}, s.Include)
}

func TestQueryIsInertUntilTerminal(t *testing.T) {
	exec := &fakeExec{}
	New[row](exec, "GameScore").EqualTo("a", 1).Limit(5)

	assert.Empty(t, exec.calls)
}

func TestBuildErrorSurfacesWithoutRoundTrip(t *testing.T) {
	exec := &fakeExec{}
	q := New[row](exec, "GameScore").ContainedIn("score", 10).EqualTo("ok", true)

	_, err := q.Find(context.Background())
	require.Error(t, err)
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
	assert.True(t, errors.Is(err, ErrInvalidOperand))
	assert.Empty(t, exec.calls)

	_, err = New[row](exec, "GameScore").Limit(-1).Count(context.Background())
	assert.True(t, errors.Is(err, ErrNegativePagination))
	assert.Empty(t, exec.calls)
}

func TestFindAndFirst(t *testing.T) {
	exec := &fakeExec{pages: [][]row{rows(3), {}}}
	q := New[row](exec, "GameScore").EqualTo("cheatMode", false)

	items, err := q.Find(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "GameScore", exec.classes[0])
	assert.JSONEq(t, `{"cheatMode":false}`, exec.calls[0].Get("where"))

	_, err = q.First(context.Background())
	assert.True(t, parseerr.IsCode(err, parseerr.ObjectNotFound))
	assert.Equal(t, "1", exec.calls[1].Get("limit"))
	assert.Nil(t, q.Spec().Limit, "First não altera o builder")
}

func TestGet(t *testing.T) {
	exec := &fakeExec{pages: [][]row{{{"objectId": value.String("xWMyZ4YEGZ")}}}}
	q := New[row](exec, "GameScore").Include("owner").Skip(10)

	got, err := q.Get(context.Background(), "xWMyZ4YEGZ")
	require.NoError(t, err)
	id, _ := got["objectId"].AsString()
	assert.Equal(t, "xWMyZ4YEGZ", id)

	params := exec.calls[0]
	assert.JSONEq(t, `{"objectId":"xWMyZ4YEGZ"}`, params.Get("where"))
	assert.Equal(t, "owner", params.Get("include"))
	assert.Empty(t, params.Get("skip"))
	assert.Empty(t, q.Spec().Constraints, "Get não altera o builder")

	_, err = q.Get(context.Background(), "")
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
}

func TestGetKeepsExistingObjectIdConstraint(t *testing.T) {
	exec := &fakeExec{pages: [][]row{{{"objectId": value.String("A")}}}}
	q := New[row](exec, "GameScore").EqualTo("objectId", "A")

	_, err := q.Get(context.Background(), "B")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingEquality)
	assert.Empty(t, exec.calls)

	_, err = q.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.JSONEq(t, `{"objectId":"A"}`, exec.calls[0].Get("where"))
}

func TestCount(t *testing.T) {
	exec := &fakeExec{count: 1337}
	n, err := New[row](exec, "GameScore").EqualTo("playerName", "Sean").Count(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1337), n)
	assert.Equal(t, "1", exec.calls[0].Get("count"))
	assert.Equal(t, "0", exec.calls[0].Get("limit"))
}

func TestDistinct(t *testing.T) {
	exec := &fakeExec{aggregate: []row{
		{"objectId": value.String("Sean")},
		{"objectId": value.String("Ana")},
	}}

	got, err := New[row](exec, "GameScore").GreaterThan("score", 100).Distinct(context.Background(), "playerName")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[1].Equal(value.String("Ana")))
	assert.JSONEq(t, `[{"$match":{"score":{"$gt":100}}},{"$group":{"_id":"$playerName"}}]`, exec.calls[0].Get("pipeline"))

	exec.aggregate = []row{{"_id": value.String("x")}}
	_, err = New[row](exec, "GameScore").Distinct(context.Background(), "playerName")
	assert.Equal(t, parseerr.Decode, parseerr.KindOf(err))
}

func TestEachPages(t *testing.T) {
	exec := &fakeExec{pages: [][]row{rows(DefaultPageSize), rows(DefaultPageSize), rows(7)}}

	seen := 0
	err := New[row](exec, "GameScore").Each(context.Background(), func(row) error {
		seen++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2*DefaultPageSize+7, seen)
	require.Len(t, exec.calls, 3)
	assert.Empty(t, exec.calls[0].Get("skip"))
	assert.Equal(t, "100", exec.calls[1].Get("skip"))
	assert.Equal(t, "200", exec.calls[2].Get("skip"))
}

func TestEachRespectsLimitAndStops(t *testing.T) {
	exec := &fakeExec{pages: [][]row{rows(DefaultPageSize), rows(20)}}

	seen := 0
	err := New[row](exec, "GameScore").Limit(120).Each(context.Background(), func(row) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 120, seen)
	assert.Equal(t, "20", exec.calls[1].Get("limit"))

	stop := errors.New("stop")
	exec = &fakeExec{pages: [][]row{rows(3)}}
	err = New[row](exec, "GameScore").Each(context.Background(), func(row) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestApplyFilters(t *testing.T) {
	q := New[row](&fakeExec{}, "GameScore").Apply(
		WithConstraint[row](Constraint{Field: "score", Operator: GreaterThan, Operand: value.Int(1)}),
		WithLimit[row](10),
		WithOrder[row](SortKey{Field: "score", Descending: true}),
		WithInclude[row]("owner"),
	)

	s := q.Spec()
	require.NoError(t, q.Err())
	assert.Len(t, s.Constraints, 1)
	assert.Equal(t, 10, *s.Limit)
	assert.Equal(t, "-score", OrderString(s.Order))
	assert.Equal(t, []string{"owner"}, s.Include)
}

func TestSearchAndRelatedBuilder(t *testing.T) {
	exec := &fakeExec{}
	q := New[row](exec, "Comment").
		Search("bom dia", WithLanguage("pt"), WithDiacriticSensitive(false)).
		RelatedTo(value.Pointer{ClassName: "Post", ObjectID: "p1"}, "comments")

	_, err := q.Find(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"$text":{"$search":{"$term":"bom dia","$language":"pt","$diacriticSensitive":false}},
		"$relatedTo":{"object":{"__type":"Pointer","className":"Post","objectId":"p1"},"key":"comments"}
	}`, exec.calls[0].Get("where"))

	_, err = New[row](exec, "Comment").RelatedTo(value.Pointer{ClassName: "Post"}, "comments").Find(context.Background())
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
}
