package repositorycache

import (
	"context"
	"database/sql/driver"
	"reflect"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/jinzhu/inflection"
	"github.com/uptrace/bun"

	"github.com/phucquyet1202/EtaxiBE/query"
)

// aliasSeparator joins an aggregate function and its column in a result
// alias, e.g. _sum__fare, so rows can be nested back as {"_sum": {"fare": ..}}.
const aliasSeparator = "__"

// RepositoryModel adapts a go-repository-bun repository to Model. Aggregates
// run as plain bun queries against the resource's table.
type RepositoryModel[T any] struct {
	repo  repository.Repository[T]
	db    bun.IDB
	table string
}

var _ Model[any] = (*RepositoryModel[any])(nil)

// RepositoryOption configures a RepositoryModel.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	table string
}

// WithTable overrides the table used for aggregates.
func WithTable(table string) RepositoryOption {
	return func(o *repositoryOptions) {
		o.table = table
	}
}

// TableName is the default table of resource: its snake_case plural.
func TableName(resource string) string {
	return inflection.Plural(toSnake(resource))
}

// NewRepositoryModel wraps repo. db runs aggregate queries outside of
// transactions; without it Aggregate and GroupBy fail with ErrNoDatabase.
func NewRepositoryModel[T any](resource string, repo repository.Repository[T], db bun.IDB, opts ...RepositoryOption) *RepositoryModel[T] {
	o := repositoryOptions{table: TableName(resource)}
	for _, opt := range opts {
		opt(&o)
	}
	return &RepositoryModel[T]{repo: repo, db: db, table: o.table}
}

// Table returns the table aggregates run against.
func (m *RepositoryModel[T]) Table() string {
	return m.table
}

func (m *RepositoryModel[T]) FindMany(ctx context.Context, args query.Args) ([]T, error) {
	records, _, err := m.list(ctx, args)
	return records, err
}

func (m *RepositoryModel[T]) FindFirst(ctx context.Context, args query.Args) (T, error) {
	return m.first(ctx, args.WithTake(1))
}

func (m *RepositoryModel[T]) FindUnique(ctx context.Context, args query.Args) (T, error) {
	var zero T
	if len(args.Where) == 0 {
		return zero, goerrors.New("findUnique requires a where filter", goerrors.CategoryBadInput)
	}
	args.Skip = nil
	args.OrderBy = nil
	return m.first(ctx, args.WithTake(1))
}

func (m *RepositoryModel[T]) first(ctx context.Context, args query.Args) (T, error) {
	var zero T
	records, _, err := m.list(ctx, args)
	if err != nil || len(records) == 0 {
		return zero, err
	}
	return records[0], nil
}

func (m *RepositoryModel[T]) list(ctx context.Context, args query.Args) ([]T, int, error) {
	criteria := SelectCriteria(args)
	if tx := txFor(ctx, args.Tx); tx != nil {
		return m.repo.ListTx(ctx, tx, criteria...)
	}
	return m.repo.List(ctx, criteria...)
}

// Count ignores pagination and ordering.
func (m *RepositoryModel[T]) Count(ctx context.Context, args query.Args) (int, error) {
	criteria := CountCriteria(args)
	if tx := txFor(ctx, args.Tx); tx != nil {
		return m.repo.CountTx(ctx, tx, criteria...)
	}
	return m.repo.Count(ctx, criteria...)
}

func (m *RepositoryModel[T]) Aggregate(ctx context.Context, args query.AggregateArgs) (query.Row, error) {
	if args.IsEmpty() {
		return nil, goerrors.New("aggregate requires at least one aggregation", goerrors.CategoryBadInput)
	}

	q, err := m.aggregateQuery(ctx, args.Tx, args)
	if err != nil {
		return nil, err
	}
	q = applyFilters(q, args.Args)

	var rows []map[string]any
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return query.Row{}, nil
	}
	return nestRow(rows[0]), nil
}

func (m *RepositoryModel[T]) GroupBy(ctx context.Context, args query.GroupByArgs) ([]query.Row, error) {
	if len(args.By) == 0 {
		return nil, goerrors.New("groupBy requires at least one column", goerrors.CategoryBadInput)
	}

	q, err := m.aggregateQuery(ctx, args.Tx, args.AggregateArgs)
	if err != nil {
		return nil, err
	}
	for _, col := range args.By {
		q = q.ColumnExpr("?", bun.Ident(col))
	}
	q = applyFilters(q, args.Args)
	q = q.Group(args.By...)
	q = applyOrder(q, args.OrderBy)
	q = applyPage(q, args.Args)

	var rows []map[string]any
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]query.Row, len(rows))
	for i, row := range rows {
		out[i] = nestRow(row)
	}
	return out, nil
}

func (m *RepositoryModel[T]) aggregateQuery(ctx context.Context, explicit bun.IDB, args query.AggregateArgs) (*bun.SelectQuery, error) {
	db := m.db
	if tx := txFor(ctx, explicit); tx != nil {
		db = tx
	}
	if db == nil {
		return nil, ErrNoDatabase
	}

	q := db.NewSelect().Table(m.table)
	if args.Count {
		q = q.ColumnExpr("COUNT(*) AS ?", bun.Ident(query.AggCount))
	}
	for _, agg := range args.Functions() {
		q = q.ColumnExpr(agg.Func+"(?) AS ?", bun.Ident(agg.Column), bun.Ident(agg.Key+aliasSeparator+agg.Column))
	}
	return q, nil
}

func (m *RepositoryModel[T]) Create(ctx context.Context, record T) (T, error) {
	if tx, ok := TxFromContext(ctx); ok {
		return m.repo.CreateTx(ctx, tx, record)
	}
	return m.repo.Create(ctx, record)
}

func (m *RepositoryModel[T]) CreateMany(ctx context.Context, records []T) ([]T, error) {
	if tx, ok := TxFromContext(ctx); ok {
		return m.repo.CreateManyTx(ctx, tx, records)
	}
	return m.repo.CreateMany(ctx, records)
}

func (m *RepositoryModel[T]) Update(ctx context.Context, record T) (T, error) {
	if tx, ok := TxFromContext(ctx); ok {
		return m.repo.UpdateTx(ctx, tx, record)
	}
	return m.repo.Update(ctx, record)
}

func (m *RepositoryModel[T]) UpdateMany(ctx context.Context, records []T) ([]T, error) {
	if tx, ok := TxFromContext(ctx); ok {
		return m.repo.UpdateManyTx(ctx, tx, records)
	}
	return m.repo.UpdateMany(ctx, records)
}

func (m *RepositoryModel[T]) Upsert(ctx context.Context, record T) (T, error) {
	if tx, ok := TxFromContext(ctx); ok {
		return m.repo.UpsertTx(ctx, tx, record)
	}
	return m.repo.Upsert(ctx, record)
}

func (m *RepositoryModel[T]) Delete(ctx context.Context, record T) error {
	if tx, ok := TxFromContext(ctx); ok {
		return m.repo.DeleteTx(ctx, tx, record)
	}
	return m.repo.Delete(ctx, record)
}

// DeleteMany refuses an empty filter rather than truncating the table.
func (m *RepositoryModel[T]) DeleteMany(ctx context.Context, args query.Args) error {
	if len(args.Where) == 0 {
		return goerrors.New("deleteMany requires a where filter", goerrors.CategoryBadInput)
	}
	criteria := DeleteCriteria(args)
	if tx := txFor(ctx, args.Tx); tx != nil {
		return m.repo.DeleteWhereTx(ctx, tx, criteria...)
	}
	return m.repo.DeleteWhere(ctx, criteria...)
}

func txFor(ctx context.Context, explicit bun.IDB) bun.IDB {
	if explicit != nil {
		return explicit
	}
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return nil
}

// SelectCriteria translates args into go-repository-bun select criteria.
func SelectCriteria(args query.Args) []repository.SelectCriteria {
	return []repository.SelectCriteria{func(q *bun.SelectQuery) *bun.SelectQuery {
		q = applyFilters(q, args)
		q = applyOrder(q, args.OrderBy)
		q = applyPage(q, args)
		if len(args.Select) > 0 {
			q = q.Column(args.Select...)
		}
		for _, rel := range args.Include {
			q = q.Relation(rel)
		}
		for _, col := range args.Distinct {
			q = q.DistinctOn("?", bun.Ident(col))
		}
		return q
	}}
}

// CountCriteria is SelectCriteria without pagination, ordering or projection.
func CountCriteria(args query.Args) []repository.SelectCriteria {
	return []repository.SelectCriteria{func(q *bun.SelectQuery) *bun.SelectQuery {
		return applyFilters(q, args)
	}}
}

// DeleteCriteria translates args.Where into go-repository-bun delete criteria.
func DeleteCriteria(args query.Args) []repository.DeleteCriteria {
	return []repository.DeleteCriteria{func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return applyWhere(q, args.Where)
	}}
}

type whereable[Q any] interface {
	Where(cond string, args ...any) Q
}

func applyFilters(q *bun.SelectQuery, args query.Args) *bun.SelectQuery {
	q = applyWhere(q, args.Where)
	for _, col := range sortedKeys(args.Cursor) {
		q = q.Where("? >= ?", bun.Ident(col), args.Cursor[col])
	}
	return q
}

// applyWhere adds one equality condition per column in a stable order. nil
// matches NULL and slices match any of their elements.
func applyWhere[Q whereable[Q]](q Q, where query.Where) Q {
	for _, col := range sortedKeys(where) {
		v := where[col]
		switch {
		case v == nil:
			q = q.Where("? IS NULL", bun.Ident(col))
		case isList(v):
			q = q.Where("? IN (?)", bun.Ident(col), bun.In(v))
		default:
			q = q.Where("? = ?", bun.Ident(col), v)
		}
	}
	return q
}

func applyOrder(q *bun.SelectQuery, order []query.Order) *bun.SelectQuery {
	for _, o := range order {
		if o.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(o.Field))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(o.Field))
		}
	}
	return q
}

func applyPage(q *bun.SelectQuery, args query.Args) *bun.SelectQuery {
	if args.Skip != nil {
		q = q.Offset(*args.Skip)
	}
	if args.Take != nil {
		q = q.Limit(*args.Take)
	}
	return q
}

// isList reports whether v should match as IN (...). Values the driver knows
// how to encode, such as uuid.UUID, and byte sequences are scalars.
func isList(v any) bool {
	if _, ok := v.(driver.Valuer); ok {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// nestRow folds "_sum__fare" style columns into {"_sum": {"fare": ...}}.
func nestRow(flat map[string]any) query.Row {
	row := query.Row{}
	for col, v := range flat {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		fn, field, found := strings.Cut(col, aliasSeparator)
		if !found {
			row[col] = v
			continue
		}
		group, ok := row[fn].(map[string]any)
		if !ok {
			group = map[string]any{}
			row[fn] = group
		}
		group[field] = v
	}
	return row
}
