// Package engine implements the fallback query evaluator.
//
// What: Run evaluates a parsed Query against a Dataset and produces a
// ResultSet. The pipeline order is fixed: filter, group, order, limit,
// project. This is not SQL's logical order: LIMIT runs before projection and
// ORDER BY sees the grouped rows.
// How: Every stage takes a slice of rows and returns a new slice; source rows
// are never modified. Comparisons in WHERE are numeric, ORDER BY compares the
// stored representation without coercion.
package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/SimonWaldherr/sensorsql/internal/dataset"
)

// Row is a result row mapped by field name.
type Row = dataset.Row

// ResultSet holds the column order and the returned rows of a query.
type ResultSet struct {
	Cols []string
	Rows []Row
}

// Run evaluates q against ds.
func (q *Query) Run(ds *dataset.Dataset) (*ResultSet, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: no dataset loaded", ErrEvaluation)
	}
	cols := ds.Cols
	if len(cols) == 0 && len(ds.Rows) > 0 {
		cols = keysOfRow(ds.Rows[0])
	}

	rows := applyWhereClause(q.Where, ds.Rows)
	if q.GroupBy != "" {
		rows, cols = applyGroupBy(q, rows)
	}
	if q.OrderBy != nil {
		applyOrderBy(*q.OrderBy, rows)
	}
	rows = applyLimit(q.Limit, rows)
	rows, cols = applyProjection(q, rows, cols)
	return &ResultSet{Cols: cols, Rows: rows}, nil
}

// -------------------- Stages --------------------

func applyWhereClause(where Cond, rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if where == nil || matchCond(where, r) {
			out = append(out, r)
		}
	}
	return out
}

type group struct {
	key   any
	count int
	sums  map[string]float64
}

func applyGroupBy(q *Query, rows []Row) ([]Row, []string) {
	aggs := q.aggregates()
	groups := make(map[string]*group)
	orderKeys := make([]string, 0)

	for _, r := range rows {
		v := r[q.GroupBy]
		ks := fmtKeyPart(v)
		g, ok := groups[ks]
		if !ok {
			g = &group{key: v, sums: make(map[string]float64, len(aggs))}
			groups[ks] = g
			orderKeys = append(orderKeys, ks)
		}
		g.count++
		for _, f := range aggs {
			g.sums[f] += parseFloat(r[f])
		}
	}

	cols := []string{q.GroupBy}
	for _, f := range aggs {
		cols = append(cols, "avg_"+f)
	}
	out := make([]Row, 0, len(orderKeys))
	for _, k := range orderKeys {
		g := groups[k]
		row := Row{q.GroupBy: g.key}
		for _, f := range aggs {
			row["avg_"+f] = strconv.FormatFloat(g.sums[f]/float64(g.count), 'f', 2, 64)
		}
		out = append(out, row)
	}
	return out, cols
}

func applyOrderBy(item OrderItem, rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareForOrder(rows[i][item.Field], rows[j][item.Field])
		if item.Desc {
			return c > 0
		}
		return c < 0
	})
}

func applyLimit(limit *int, rows []Row) []Row {
	if limit == nil || *limit >= len(rows) {
		return rows
	}
	return rows[:*limit]
}

func applyProjection(q *Query, rows []Row, cols []string) ([]Row, []string) {
	out := make([]Row, len(rows))
	if q.Star {
		for i, r := range rows {
			out[i] = r.Clone()
		}
		return out, append([]string(nil), cols...)
	}

	names := make([]string, 0, len(q.Items))
	for _, it := range q.Items {
		names = appendUnique(names, it.Name())
	}
	present := make(map[string]bool, len(names))
	for i, r := range rows {
		nr := make(Row, len(names))
		for _, n := range names {
			if v, ok := r[n]; ok {
				nr[n] = v
				present[n] = true
			}
		}
		out[i] = nr
	}
	if len(rows) == 0 {
		return out, names
	}
	outCols := make([]string, 0, len(names))
	for _, n := range names {
		if present[n] {
			outCols = append(outCols, n)
		}
	}
	return out, outCols
}

// -------------------- Conditions --------------------

func matchCond(c Cond, row Row) bool {
	switch n := c.(type) {
	case *Logical:
		switch n.Op {
		case "AND":
			return matchCond(n.Left, row) && matchCond(n.Right, row)
		case "OR":
			return matchCond(n.Left, row) || matchCond(n.Right, row)
		}
	case *Comparison:
		return compareNumber(parseFloat(row[n.Field]), n.Op, n.Value)
	}
	return false
}

// compareNumber follows IEEE semantics: a NaN field value fails every
// comparison except !=.
func compareNumber(a float64, op string, b float64) bool {
	switch op {
	case ">":
		return a > b
	case "<":
		return a < b
	case "=":
		return a == b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "!=":
		return a != b
	}
	return false
}

// -------------------- Helpers --------------------

// parseFloat converts a stored value to float64, NaN when it has no numeric
// reading.
func parseFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// compareForOrder orders numbers numerically and strings lexically. Missing
// values sort first; mixed types fall back to their printed form.
func compareForOrder(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func fmtKeyPart(v any) string {
	if v == nil {
		return "\x00null"
	}
	return fmt.Sprintf("%v", v)
}

func keysOfRow(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
