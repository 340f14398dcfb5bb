package query

// Aggregate result keys.
const (
	AggCount = "_count"
	AggSum   = "_sum"
	AggAvg   = "_avg"
	AggMin   = "_min"
	AggMax   = "_max"

	FieldBy = "by"
)

// AggregateArgs selects aggregate functions over the rows matched by Args.
type AggregateArgs struct {
	Args

	Count bool
	Sum   []string
	Avg   []string
	Min   []string
	Max   []string
}

// Functions returns the requested column aggregates keyed by result key, in
// a fixed order.
func (a AggregateArgs) Functions() []Aggregation {
	var out []Aggregation
	add := func(key, fn string, cols []string) {
		for _, c := range cols {
			out = append(out, Aggregation{Key: key, Func: fn, Column: c})
		}
	}
	add(AggSum, "SUM", a.Sum)
	add(AggAvg, "AVG", a.Avg)
	add(AggMin, "MIN", a.Min)
	add(AggMax, "MAX", a.Max)
	return out
}

// IsEmpty reports whether no aggregate was requested.
func (a AggregateArgs) IsEmpty() bool {
	return !a.Count && len(a.Functions()) == 0
}

// RelevantArgs extends the base projection with the aggregate selection,
// since two aggregates over the same filter produce different results.
func (a AggregateArgs) RelevantArgs() map[string]any {
	out := a.Args.RelevantArgs()
	if a.Count {
		out[AggCount] = true
	}
	for key, cols := range map[string][]string{AggSum: a.Sum, AggAvg: a.Avg, AggMin: a.Min, AggMax: a.Max} {
		if len(cols) > 0 {
			out[key] = cols
		}
	}
	return out
}

// Aggregation is one column aggregate such as SUM(fare).
type Aggregation struct {
	Key    string
	Func   string
	Column string
}

// GroupByArgs groups the matched rows by columns before aggregating.
type GroupByArgs struct {
	AggregateArgs

	By []string
}

// RelevantArgs adds the grouping columns to the aggregate projection.
func (g GroupByArgs) RelevantArgs() map[string]any {
	out := g.AggregateArgs.RelevantArgs()
	if len(g.By) > 0 {
		out[FieldBy] = g.By
	}
	return out
}
