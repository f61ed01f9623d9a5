package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// MaxOffset is the largest row offset a page query will use.
const MaxOffset = math.MaxInt32

// condition is a WHERE fragment whose "$%d" placeholders are numbered when
// the query is built.
type condition struct {
	clause string
	args   []any
}

// SortField is one ORDER BY column.
type SortField struct {
	Column     string
	Descending bool
}

// builder assembles filtered, sorted and paginated SELECTs with automatic
// parameter numbering.
type builder struct {
	columns    string
	from       string
	conditions []condition
	orderBy    []SortField
}

func newBuilder(columns, from string) *builder {
	return &builder{columns: columns, from: from}
}

// whereEquals adds "column = value". No-op for nil pointers and empty strings.
func (b *builder) whereEquals(column string, value any) *builder {
	switch v := value.(type) {
	case nil:
		return b
	case string:
		if v == "" {
			return b
		}
	case *string:
		if v == nil || *v == "" {
			return b
		}
		value = *v
	case *uuid.UUID:
		if v == nil {
			return b
		}
		value = *v
	}
	b.conditions = append(b.conditions, condition{
		clause: column + " = $%d",
		args:   []any{value},
	})
	return b
}

// whereTrue adds a literal predicate without arguments.
func (b *builder) whereTrue(clause string) *builder {
	b.conditions = append(b.conditions, condition{clause: clause})
	return b
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// whereSearch adds an ILIKE OR across columns. No-op for an empty term.
func (b *builder) whereSearch(term string, columns ...string) *builder {
	if term == "" || len(columns) == 0 {
		return b
	}
	pattern := "%" + likeEscaper.Replace(term) + "%"
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		clauses[i] = col + ` ILIKE $%d ESCAPE '\'`
		args[i] = pattern
	}
	b.conditions = append(b.conditions, condition{
		clause: "(" + strings.Join(clauses, " OR ") + ")",
		args:   args,
	})
	return b
}

func (b *builder) order(fields ...SortField) *builder {
	b.orderBy = fields
	return b
}

func (b *builder) buildWhere() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(b.conditions))
	var args []any
	idx := 1
	for _, cond := range b.conditions {
		clause := cond.clause
		for _, arg := range cond.args {
			clause = strings.Replace(clause, "$%d", fmt.Sprintf("$%d", idx), 1)
			args = append(args, arg)
			idx++
		}
		clauses = append(clauses, clause)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (b *builder) buildOrderBy() string {
	if len(b.orderBy) == 0 {
		return ""
	}
	parts := make([]string, len(b.orderBy))
	for i, f := range b.orderBy {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = f.Column + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// buildCount returns a COUNT(*) query with the current conditions.
func (b *builder) buildCount() (string, []any) {
	where, args := b.buildWhere()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.from, where), args
}

// buildPage returns the SELECT for one page of results.
func (b *builder) buildPage(page, pageSize int) (string, []any) {
	where, args := b.buildWhere()
	pageSize = max(pageSize, 1)
	page = min(max(page, 1), MaxOffset/pageSize+1)
	offset := (page - 1) * pageSize
	return fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.columns, b.from, where, b.buildOrderBy(), pageSize, offset,
	), args
}
