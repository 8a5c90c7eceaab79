package query

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

func spec(constraints ...Constraint) Spec {
	return Spec{ClassName: "GameScore", Constraints: constraints}
}

func eq(field string, v value.Value) Constraint {
	return Constraint{Field: field, Operator: EqualTo, Operand: v}
}

func op(field string, o Operator, v value.Value) Constraint {
	return Constraint{Field: field, Operator: o, Operand: v}
}

func TestCompileScenarioEqualAndLessThan(t *testing.T) {
	params, err := Compile(spec(eq("score", value.Int(100)), op("wins", LessThan, value.Int(50))))
	require.NoError(t, err)

	assert.JSONEq(t, `{"score":100,"wins":{"$lt":50}}`, params.Get("where"))
}

func TestCompileStartsWithEscapesLiteral(t *testing.T) {
	params, err := Compile(spec(op("name", StartsWith, value.String("Mon"))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":{"$regex":"^Mon"}}`, params.Get("where"))

	params, err = Compile(spec(op("name", StartsWith, value.String("a.b*c"))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":{"$regex":"^a\\.b\\*c"}}`, params.Get("where"))
}

func TestOperatorTokens(t *testing.T) {
	arr := value.Array(value.Int(1), value.Int(2))

	tests := []struct {
		name string
		c    Constraint
		want string
	}{
		{"not equal", op("f", NotEqualTo, value.String("x")), `{"f":{"$ne":"x"}}`},
		{"greater than", op("f", GreaterThan, value.Int(1)), `{"f":{"$gt":1}}`},
		{"greater or equal", op("f", GreaterOrEqual, value.Int(1)), `{"f":{"$gte":1}}`},
		{"less or equal", op("f", LessOrEqual, value.Float(1.5)), `{"f":{"$lte":1.5}}`},
		{"contained in", op("f", ContainedIn, arr), `{"f":{"$in":[1,2]}}`},
		{"not contained in", op("f", NotContainedIn, arr), `{"f":{"$nin":[1,2]}}`},
		{"contains all", op("f", ContainsAll, arr), `{"f":{"$all":[1,2]}}`},
		{"exists", Constraint{Field: "f", Operator: Exists}, `{"f":{"$exists":true}}`},
		{"does not exist", Constraint{Field: "f", Operator: DoesNotExist}, `{"f":{"$exists":false}}`},
		{"ends with", op("f", EndsWith, value.String("son")), `{"f":{"$regex":"son$"}}`},
		{"contains", op("f", Contains, value.String("a+b")), `{"f":{"$regex":"a\\+b"}}`},
		{"matches raw", Constraint{Field: "f", Operator: MatchesRegex, Operand: value.String("^a.*z$"), Options: "i"}, `{"f":{"$regex":"^a.*z$","$options":"i"}}`},
		{"equal pointer", eq("owner", value.PointerTo("_User", "u1")), `{"owner":{"__type":"Pointer","className":"_User","objectId":"u1"}}`},
		{"equal null", eq("f", value.Null()), `{"f":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := Compile(spec(tt.c))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, params.Get("where"))
		})
	}
}

func TestDateOperandUsesWrappedForm(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	params, err := Compile(spec(op("createdAt", GreaterThan, value.Date(when))))
	require.NoError(t, err)

	assert.JSONEq(t, `{"createdAt":{"$gt":{"__type":"Date","iso":"2024-01-02T03:04:05.000Z"}}}`, params.Get("where"))
}

func TestSameFieldConstraintsMerge(t *testing.T) {
	params, err := Compile(spec(
		op("score", GreaterThan, value.Int(10)),
		op("score", LessOrEqual, value.Int(20)),
		Constraint{Field: "score", Operator: Exists},
	))
	require.NoError(t, err)

	assert.JSONEq(t, `{"score":{"$gt":10,"$lte":20,"$exists":true}}`, params.Get("where"))
}

func TestEqualityConflictsWithOperators(t *testing.T) {
	_, err := Compile(spec(op("score", GreaterThan, value.Int(10)), eq("score", value.Int(5))))
	require.Error(t, err)
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
	assert.True(t, errors.Is(err, ErrConflictingEquality))

	_, err = Compile(spec(eq("owner", value.PointerTo("_User", "u1")), op("owner", NotEqualTo, value.Null())))
	assert.True(t, errors.Is(err, ErrConflictingEquality))
}

func TestRepeatedEqualityOnSameField(t *testing.T) {
	params, err := Compile(spec(eq("score", value.Int(100)), eq("score", value.Int(100))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":100}`, params.Get("where"))

	_, err = Compile(spec(eq("score", value.Int(100)), eq("score", value.Int(200))))
	require.Error(t, err)
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
	assert.True(t, errors.Is(err, ErrConflictingEquality))

	_, err = Compile(spec(eq("owner", value.PointerTo("_User", "u1")), eq("owner", value.PointerTo("_User", "u2"))))
	assert.True(t, errors.Is(err, ErrConflictingEquality))
}

func TestSameTokenOnSameField(t *testing.T) {
	tests := []struct {
		name string
		cs   []Constraint
	}{
		{"prefix and suffix", []Constraint{
			op("name", StartsWith, value.String("Mon")),
			op("name", EndsWith, value.String("ey")),
		}},
		{"options leak into literal regex", []Constraint{
			{Field: "name", Operator: MatchesRegex, Operand: value.String("x"), Options: "i"},
			op("name", StartsWith, value.String("Mon")),
		}},
		{"options added to earlier regex", []Constraint{
			{Field: "name", Operator: MatchesRegex, Operand: value.String("^Mon")},
			{Field: "name", Operator: MatchesRegex, Operand: value.String("^Mon"), Options: "i"},
		}},
		{"two upper bounds", []Constraint{
			op("score", LessThan, value.Int(10)),
			op("score", LessThan, value.Int(20)),
		}},
		{"exists and does not exist", []Constraint{
			{Field: "score", Operator: Exists},
			{Field: "score", Operator: DoesNotExist},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(spec(tt.cs...))
			require.Error(t, err)
			assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
			assert.True(t, errors.Is(err, ErrConflictingOperator))
		})
	}

	params, err := Compile(spec(
		op("name", StartsWith, value.String("Mon")),
		op("name", StartsWith, value.String("Mon")),
		op("score", GreaterThan, value.Int(1)),
		op("score", GreaterThan, value.Int(1)),
	))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":{"$regex":"^Mon"},"score":{"$gt":1}}`, params.Get("where"))
}

func TestInvalidOperandsFailAtBuildTime(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
	}{
		{"in with scalar", op("f", ContainedIn, value.Int(1))},
		{"all with string", op("f", ContainsAll, value.String("x"))},
		{"gt with array", op("f", GreaterThan, value.Array())},
		{"gt with null", op("f", LessThan, value.Null())},
		{"regex with number", op("f", StartsWith, value.Int(1))},
		{"exists with operand", op("f", Exists, value.Bool(true))},
		{"equal with field op", eq("f", value.Increment(value.Int(1)))},
		{"empty field", eq("", value.Int(1))},
		{"unknown operator", op("f", Operator(99), value.Int(1))},
		{"text without term", Constraint{Field: "f", Operator: FullText}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(spec(tt.c))
			require.Error(t, err)
			assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
		})
	}
}

func TestOrderPaginationProjection(t *testing.T) {
	limit := 25
	s := Spec{
		ClassName: "GameScore",
		Order:     []SortKey{{Field: "score", Descending: true}, {Field: "playerName"}, {Field: "createdAt", Descending: true}},
		Limit:     &limit,
		Skip:      50,
		Keys:      []string{"score", "playerName"},
		Include:   []string{"owner", "owner.team"},
	}

	params, err := Compile(s)
	require.NoError(t, err)

	assert.Equal(t, "-score,playerName,-createdAt", params.Get("order"))
	assert.Equal(t, "25", params.Get("limit"))
	assert.Equal(t, "50", params.Get("skip"))
	assert.Equal(t, "score,playerName", params.Get("keys"))
	assert.Equal(t, "owner,owner.team", params.Get("include"))
	assert.Empty(t, params.Get("where"), "sem restrições não há where")
	assert.Empty(t, params.Get("count"))
}

func TestNegativePagination(t *testing.T) {
	neg := -1
	_, err := Compile(Spec{ClassName: "A", Limit: &neg})
	assert.True(t, errors.Is(err, ErrNegativePagination))

	_, err = CompileCount(Spec{ClassName: "A", Skip: -5})
	assert.True(t, errors.Is(err, ErrNegativePagination))
}

func TestCompileCountPlacement(t *testing.T) {
	limit := 10
	s := spec(eq("playerName", value.String("Sean Plott")))
	s.Limit = &limit
	s.Skip = 3
	s.Order = []SortKey{{Field: "score"}}

	params, err := CompileCount(s)
	require.NoError(t, err)

	assert.Equal(t, "1", params.Get("count"))
	assert.Equal(t, "0", params.Get("limit"))
	assert.Empty(t, params.Get("skip"))
	assert.Empty(t, params.Get("order"))

	where := params.Get("where")
	assert.JSONEq(t, `{"playerName":"Sean Plott"}`, where)
	assert.NotContains(t, where, "count")
	assert.NotContains(t, where, "limit")
}

func TestCompileIsDeterministic(t *testing.T) {
	s := spec(
		eq("a", value.Int(1)),
		op("b", ContainedIn, value.Array(value.String("x"), value.String("y"))),
		op("c", GreaterThan, value.Int(3)),
		op("c", LessThan, value.Int(9)),
	)
	s.Order = []SortKey{{Field: "b"}, {Field: "a", Descending: true}}

	first, err := Compile(s)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Compile(s)
		require.NoError(t, err)
		assert.Equal(t, first.Encode(), again.Encode())
	}
}

func TestSearchAndRelatedTo(t *testing.T) {
	caseSensitive := true
	s := spec()
	s.Search = &TextSearch{Term: "coffee", Language: "pt", CaseSensitive: &caseSensitive}
	s.Related = &Related{Object: value.Pointer{ClassName: "Post", ObjectID: "p1"}, Key: "likes"}

	params, err := Compile(s)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"$text":{"$search":{"$term":"coffee","$language":"pt","$caseSensitive":true}},
		"$relatedTo":{"object":{"__type":"Pointer","className":"Post","objectId":"p1"},"key":"likes"}
	}`, params.Get("where"))
}

func TestFieldSearch(t *testing.T) {
	params, err := Compile(spec(Constraint{Field: "title", Operator: FullText, Search: &TextSearch{Term: "go"}}))
	require.NoError(t, err)

	assert.JSONEq(t, `{"title":{"$text":{"$search":{"$term":"go"}}}}`, params.Get("where"))
}

func TestCompileDistinct(t *testing.T) {
	params, err := CompileDistinct(spec(op("score", GreaterThan, value.Int(10))), "playerName")
	require.NoError(t, err)

	assert.JSONEq(t, `[{"$match":{"score":{"$gt":10}}},{"$group":{"_id":"$playerName"}}]`, params.Get("pipeline"))
	assert.Empty(t, params.Get("where"))

	params, err = CompileDistinct(spec(), "playerName")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"$group":{"_id":"$playerName"}}]`, params.Get("pipeline"))

	_, err = CompileDistinct(spec(), "")
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
}

func TestCompileAggregate(t *testing.T) {
	group := value.MustFrom(map[string]any{"$group": map[string]any{"_id": "$playerName", "total": map[string]any{"$sum": "$score"}}})

	params, err := CompileAggregate(spec(), []value.Value{group})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"$group":{"_id":"$playerName","total":{"$sum":"$score"}}}]`, params.Get("pipeline"))

	params, err = CompileAggregate(spec(eq("cheatMode", value.Bool(false))), []value.Value{group})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"$match":{"cheatMode":false}},{"$group":{"_id":"$playerName","total":{"$sum":"$score"}}}]`, params.Get("pipeline"))

	_, err = CompileAggregate(spec(), nil)
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))

	_, err = CompileAggregate(spec(), []value.Value{value.Int(1)})
	assert.Equal(t, parseerr.Precondition, parseerr.KindOf(err))
}
