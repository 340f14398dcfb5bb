package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgs_RelevantArgs(t *testing.T) {
	tests := []struct {
		name string
		args Args
		want map[string]any
	}{
		{
			name: "empty",
			args: Args{},
			want: map[string]any{},
		},
		{
			name: "where and take",
			args: Args{Where: Where{"status": "active"}}.WithTake(10),
			want: map[string]any{
				"where": map[string]any{"status": "active"},
				"take":  10,
			},
		},
		{
			name: "zero skip is kept",
			args: Args{}.WithSkip(0),
			want: map[string]any{"skip": 0},
		},
		{
			name: "order by renders direction",
			args: Args{OrderBy: []Order{{Field: "created_at", Desc: true}, {Field: "id"}}},
			want: map[string]any{
				"orderBy": []map[string]string{{"created_at": "desc"}, {"id": "asc"}},
			},
		},
		{
			name: "projection fields",
			args: Args{Select: []string{"id"}, Include: []string{"driver"}, Distinct: []string{"city"}, Cursor: Where{"id": 5}},
			want: map[string]any{
				"select":   []string{"id"},
				"include":  []string{"driver"},
				"distinct": []string{"city"},
				"cursor":   map[string]any{"id": 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.args.RelevantArgs())
		})
	}
}

func TestArgs_TxIsNotRelevant(t *testing.T) {
	var a Args
	a = a.WithTake(5)
	b := a.WithTx(nil)

	assert.Equal(t, a.RelevantArgs(), b.RelevantArgs())
	assert.NotContains(t, a.RelevantArgs(), "tx")
}

func TestFilterRelevant(t *testing.T) {
	in := map[string]any{
		"where":   map[string]any{"id": 1},
		"skip":    nil,
		"cursor":  nil,
		"tx":      "handle",
		"data":    map[string]any{"name": "x"},
		"orderBy": []any{map[string]any{"id": "asc"}},
	}

	got := FilterRelevant(in)

	assert.Equal(t, map[string]any{
		"where":   map[string]any{"id": 1},
		"skip":    nil,
		"orderBy": []any{map[string]any{"id": "asc"}},
	}, got)
}

func TestAggregateArgs_RelevantArgs(t *testing.T) {
	sum := AggregateArgs{Args: Args{Where: Where{"status": "done"}}, Sum: []string{"fare"}}
	avg := AggregateArgs{Args: Args{Where: Where{"status": "done"}}, Avg: []string{"fare"}}

	assert.NotEqual(t, sum.RelevantArgs(), avg.RelevantArgs())
	assert.Equal(t, []string{"fare"}, sum.RelevantArgs()[AggSum])
	assert.False(t, sum.IsEmpty())
	assert.True(t, AggregateArgs{}.IsEmpty())
}

func TestAggregateArgs_Functions(t *testing.T) {
	a := AggregateArgs{Sum: []string{"fare", "tip"}, Max: []string{"distance"}}

	assert.Equal(t, []Aggregation{
		{Key: AggSum, Func: "SUM", Column: "fare"},
		{Key: AggSum, Func: "SUM", Column: "tip"},
		{Key: AggMax, Func: "MAX", Column: "distance"},
	}, a.Functions())
}

func TestGroupByArgs_RelevantArgs(t *testing.T) {
	g := GroupByArgs{AggregateArgs: AggregateArgs{Count: true}, By: []string{"status"}}

	got := g.RelevantArgs()
	assert.Equal(t, []string{"status"}, got[FieldBy])
	assert.Equal(t, true, got[AggCount])
}
