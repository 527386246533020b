// Package sqlxdb implements the repositories on postgres with sqlx.
// Rows keep a hidden seq column so listings come back in insertion order.
package sqlxdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
)

const uniqueViolation = "23505"

type table struct {
	name    string
	key     string
	columns []string
}

func (t table) selectQuery() string {
	return "SELECT " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

func (t table) insertQuery() string {
	return "INSERT INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (:" + strings.Join(t.columns, ", :") + ")"
}

// updateQuery sets every column but the key and the creation time.
func (t table) updateQuery() string {
	sets := make([]string, 0, len(t.columns))
	for _, col := range t.columns {
		if col == t.key || col == "created_at" {
			continue
		}
		sets = append(sets, col+" = :"+col)
	}
	return "UPDATE " + t.name + " SET " + strings.Join(sets, ", ") + " WHERE " + t.key + " = :" + t.key
}

func (t table) deleteQuery() string {
	return "DELETE FROM " + t.name + " WHERE " + t.key + " = $1"
}

// where collects the conditions of a query along with their positional arguments.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, replacing every "?" with the next positional parameter.
func (w *where) add(cond string, arg ...interface{}) {
	for _, a := range arg {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func pageClause(page core.Page) string {
	page.Clean()
	return fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit, page.Offset)
}

// isUniqueViolation reports whether err breaks the unique constraint (or index) named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

// trapNoRows maps sql.ErrNoRows to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// mustAffect returns notFound when res changed no row.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// inTx runs fn in a transaction, committing when it returns nil.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
