package sqlxdb

import (
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/sadhanaschool/backend/core"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func quote(q string) string {
	return regexp.QuoteMeta(q)
}

func uniqueErr(constraint string) error {
	return &pq.Error{Code: uniqueViolation, Constraint: constraint}
}

func args(n int) []driver.Value {
	vals := make([]driver.Value, n)
	for i := range vals {
		vals[i] = sqlmock.AnyArg()
	}
	return vals
}

func TestTable_queries(t *testing.T) {
	tbl := table{name: "classes", key: "class_id", columns: []string{"class_id", "name", "created_at"}}

	assert.Equal(t, "SELECT class_id, name, created_at FROM classes", tbl.selectQuery())
	assert.Equal(t, "INSERT INTO classes (class_id, name, created_at) VALUES (:class_id, :name, :created_at)", tbl.insertQuery())
	assert.Equal(t, "UPDATE classes SET name = :name WHERE class_id = :class_id", tbl.updateQuery())
	assert.Equal(t, "DELETE FROM classes WHERE class_id = $1", tbl.deleteQuery())
}

func TestWhere(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.add("class_name = ?", "5")
	w.add("pending_amount > 0")
	w.add("due_date BETWEEN ? AND ?", "2025-06-01", "2025-07-01")

	assert.Equal(t, " WHERE class_name = $1 AND pending_amount > 0 AND due_date BETWEEN $2 AND $3", w.String())
	assert.Equal(t, []interface{}{"5", "2025-06-01", "2025-07-01"}, w.args)
}

func TestPageClause(t *testing.T) {
	assert.Equal(t, " LIMIT 100 OFFSET 0", pageClause(core.Page{}))
	assert.Equal(t, " LIMIT 1000 OFFSET 20", pageClause(core.Page{Limit: 5000, Offset: 20}))
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.Wrap(uniqueErr("users_email_key"), "inserting user")
	assert.True(t, isUniqueViolation(err, "users_email_key"))
	assert.False(t, isUniqueViolation(err, "classes_name_key"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503", Constraint: "users_email_key"}, "users_email_key"))
	assert.False(t, isUniqueViolation(errors.New("boom"), "users_email_key"))
}
