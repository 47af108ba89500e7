// Package engine provides the hand-written parser for the fallback query
// language.
//
// What: It parses a single SELECT statement with optional WHERE, GROUP BY,
// ORDER BY and LIMIT clauses into a Query. WHERE conditions become a small
// expression tree of comparisons joined by AND/OR.
// How: Recursive descent over the token stream from the lexer. Clauses are
// accepted in their fixed grammar order only; anything left over is an error.
package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser holds the lexer and current/peek tokens for recursive-descent parsing.
type Parser struct {
	lx   *lexer
	cur  token
	peek token
}

// NewParser creates a parser for the provided query string.
func NewParser(sql string) *Parser {
	p := &Parser{lx: newLexer(sql)}
	p.cur = p.lx.nextToken()
	p.peek = p.lx.nextToken()
	return p
}

func (p *Parser) next() { p.cur, p.peek = p.peek, p.lx.nextToken() }

func (p *Parser) isKeyword(kw string) bool { return p.cur.Typ == tKeyword && p.cur.Val == kw }
func (p *Parser) isSymbol(sym string) bool { return p.cur.Typ == tSymbol && p.cur.Val == sym }

func (p *Parser) expectKeyword(kw string) error {
	if p.isKeyword(kw) {
		p.next()
		return nil
	}
	return p.errf(ErrEvaluation, "expected keyword %s", kw)
}

func (p *Parser) errf(kind error, format string, a ...any) error {
	near := p.cur.Val
	if p.cur.Typ == tEOF {
		near = "end of input"
	}
	return fmt.Errorf("%w: near %q: %s", kind, near, fmt.Sprintf(format, a...))
}

// ------------------------------ AST ------------------------------

// SelectItem is one entry of the field list: a plain field or avg(field).
type SelectItem struct {
	Field string
	Agg   string
}

// Name is the output column name; avg(x) is reported as avg_x.
func (it SelectItem) Name() string {
	if it.Agg != "" {
		return it.Agg + "_" + it.Field
	}
	return it.Field
}

// OrderItem specifies the ordering field and direction.
type OrderItem struct {
	Field string
	Desc  bool
}

// Query is a parsed SELECT statement.
type Query struct {
	Star    bool
	Items   []SelectItem
	Source  string
	Where   Cond
	GroupBy string
	OrderBy *OrderItem
	Limit   *int
}

// Cond is a node of a WHERE expression tree.
type Cond interface {
	cond()
	String() string
}

// Comparison compares a row field against a numeric literal.
type Comparison struct {
	Field string
	Op    string
	Value float64
}

// Logical joins two conditions with AND or OR.
type Logical struct {
	Op          string
	Left, Right Cond
}

func (*Comparison) cond() {}
func (*Logical) cond()    {}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, strconv.FormatFloat(c.Value, 'f', -1, 64))
}

func (l *Logical) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Op, l.Right)
}

// ------------------------------ Parse ------------------------------

// Parse parses a query string into a Query.
func Parse(sql string) (*Query, error) {
	return NewParser(sql).ParseQuery()
}

// ParseQuery parses a single SELECT statement.
func (p *Parser) ParseQuery() (*Query, error) {
	if p.cur.Typ == tEOF {
		return nil, ErrEmptyQuery
	}
	if !p.isKeyword("SELECT") {
		return nil, fmt.Errorf("%w, got %q", ErrUnsupportedStatement, p.cur.Val)
	}
	p.next()

	q := &Query{}
	if err := p.parseFieldList(q); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	if p.cur.Typ != tIdent {
		return nil, p.errf(ErrEvaluation, "FROM expects a dataset name")
	}
	q.Source = p.cur.Val
	p.next()

	if err := p.parseWhereClause(q); err != nil {
		return nil, err
	}
	if err := p.parseGroupByClause(q); err != nil {
		return nil, err
	}
	if err := p.parseOrderByClause(q); err != nil {
		return nil, err
	}
	if err := p.parseLimitClause(q); err != nil {
		return nil, err
	}
	if p.isSymbol(";") {
		p.next()
	}
	if p.cur.Typ != tEOF {
		return nil, p.errf(ErrEvaluation, "unexpected %s", p.cur.Typ)
	}
	return q, nil
}

func (p *Parser) parseFieldList(q *Query) error {
	if p.isSymbol("*") {
		p.next()
		q.Star = true
		return nil
	}
	for {
		it, err := p.parseSelectItem()
		if err != nil {
			return err
		}
		q.Items = append(q.Items, it)
		if !p.isSymbol(",") {
			return nil
		}
		p.next()
	}
}

func (p *Parser) parseSelectItem() (SelectItem, error) {
	if p.cur.Typ != tIdent {
		return SelectItem{}, p.errf(ErrEvaluation, "expected field name")
	}
	name := strings.ToLower(p.cur.Val)
	p.next()
	if !p.isSymbol("(") {
		return SelectItem{Field: name}, nil
	}
	if name != "avg" {
		return SelectItem{}, p.errf(ErrEvaluation, "unsupported function %s()", name)
	}
	p.next()
	if p.cur.Typ != tIdent {
		return SelectItem{}, p.errf(ErrEvaluation, "avg() expects a field name")
	}
	field := strings.ToLower(p.cur.Val)
	p.next()
	if !p.isSymbol(")") {
		return SelectItem{}, p.errf(ErrEvaluation, "expected )")
	}
	p.next()
	return SelectItem{Field: field, Agg: name}, nil
}

func (p *Parser) parseWhereClause(q *Query) error {
	if !p.isKeyword("WHERE") {
		return nil
	}
	p.next()
	c, err := p.parseOr()
	if err != nil {
		return err
	}
	if !p.atClauseBoundary() {
		return p.errf(ErrInvalidCondition, "expected AND, OR or end of condition")
	}
	q.Where = c
	return nil
}

// atClauseBoundary reports whether the current token may legally follow a
// WHERE condition.
func (p *Parser) atClauseBoundary() bool {
	switch {
	case p.cur.Typ == tEOF, p.isSymbol(";"):
		return true
	case p.isKeyword("GROUP"), p.isKeyword("ORDER"), p.isKeyword("LIMIT"):
		return true
	}
	return false
}

// parseOr and parseAnd give AND precedence over OR; both associate left.
func (p *Parser) parseOr() (Cond, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Cond, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseComparison() (Cond, error) {
	if p.cur.Typ != tIdent {
		return nil, p.errf(ErrInvalidCondition, "expected field name")
	}
	field := strings.ToLower(p.cur.Val)
	p.next()

	if p.cur.Typ != tSymbol || !isComparisonOp(p.cur.Val) {
		return nil, p.errf(ErrInvalidCondition, "expected comparison operator after %s", field)
	}
	op := p.cur.Val
	p.next()

	sign := 1.0
	if p.isSymbol("-") {
		sign = -1
		p.next()
	}
	if p.cur.Typ != tNumber {
		return nil, p.errf(ErrInvalidCondition, "expected number after %s", op)
	}
	v, err := strconv.ParseFloat(p.cur.Val, 64)
	if err != nil {
		return nil, p.errf(ErrInvalidCondition, "bad number: %v", err)
	}
	p.next()
	return &Comparison{Field: field, Op: op, Value: sign * v}, nil
}

func isComparisonOp(s string) bool {
	switch s {
	case ">", "<", "=", ">=", "<=", "!=":
		return true
	}
	return false
}

func (p *Parser) parseGroupByClause(q *Query) error {
	if !p.isKeyword("GROUP") {
		return nil
	}
	p.next()
	if err := p.expectKeyword("BY"); err != nil {
		return err
	}
	if p.cur.Typ != tIdent {
		return p.errf(ErrEvaluation, "GROUP BY expects a field")
	}
	q.GroupBy = strings.ToLower(p.cur.Val)
	p.next()
	return nil
}

func (p *Parser) parseOrderByClause(q *Query) error {
	if !p.isKeyword("ORDER") {
		return nil
	}
	p.next()
	if err := p.expectKeyword("BY"); err != nil {
		return err
	}
	if p.cur.Typ != tIdent {
		return p.errf(ErrEvaluation, "ORDER BY expects a field")
	}
	item := &OrderItem{Field: strings.ToLower(p.cur.Val)}
	p.next()
	if p.isKeyword("ASC") || p.isKeyword("DESC") {
		item.Desc = p.cur.Val == "DESC"
		p.next()
	}
	q.OrderBy = item
	return nil
}

func (p *Parser) parseLimitClause(q *Query) error {
	if !p.isKeyword("LIMIT") {
		return nil
	}
	p.next()
	if p.cur.Typ != tNumber {
		return p.errf(ErrEvaluation, "LIMIT expects a non-negative integer")
	}
	n, err := strconv.Atoi(p.cur.Val)
	if err != nil || n < 0 {
		return p.errf(ErrEvaluation, "LIMIT expects a non-negative integer")
	}
	p.next()
	q.Limit = &n
	return nil
}

// aggregates returns the distinct avg() fields in field-list order.
func (q *Query) aggregates() []string {
	var out []string
	seen := map[string]bool{}
	for _, it := range q.Items {
		if it.Agg == "" || seen[it.Field] {
			continue
		}
		seen[it.Field] = true
		out = append(out, it.Field)
	}
	return out
}
