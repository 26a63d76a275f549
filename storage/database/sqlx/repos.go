// Package sqlxrepos implements the core repositories on PostgreSQL
// with hand-written SQL scanned through sqlx.
package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// selectStructs runs a query on the given executor and scans all rows into
// dest, a pointer to a slice of db-tagged row structs.
func selectStructs(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// isUniqueViolation reports whether err is a psql unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// sqlxIn expands an IN (?) clause against a slice and rebinds the "?"
// bindvars to psql "$N" form.
func sqlxIn(query string, arg interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.In(query, arg)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, q), args, nil
}

func joinOr(conds []string) string {
	return strings.Join(conds, " OR ")
}

func joinComma(parts []string) string {
	return strings.Join(parts, ", ")
}

// queryBuilder accumulates WHERE conditions with positional args.
type queryBuilder struct {
	where []string
	args  []interface{}
}

// arg registers a query argument and returns its "$N" placeholder.
func (qb *queryBuilder) arg(v interface{}) string {
	qb.args = append(qb.args, v)
	return fmt.Sprintf("$%d", len(qb.args))
}

func (qb *queryBuilder) and(cond string) {
	qb.where = append(qb.where, cond)
}

func (qb *queryBuilder) clause() string {
	if len(qb.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(qb.where, " AND ")
}

func orderClause(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
