/*
 * Copyright (c) 2026 Sqlsh Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package memdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlsh/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	conn, err := Driver{}.Open(":memory:")
	require.NoError(t, err)
	return conn.(*DB)
}

// queryRows runs sql and collects every row as a string slice, with
// NULLs rendered as the empty string.
func queryRows(t *testing.T, db *DB, sql string) [][]string {
	t.Helper()
	var rows [][]string
	err := db.Exec(sql, func(values, names []string) error {
		rows = append(rows, append([]string(nil), values...))
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestCreateInsertSelect(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE people(id INTEGER, name TEXT);", nil))
	require.NoError(t, db.Exec("INSERT INTO people VALUES(1, 'alice');", nil))
	require.NoError(t, db.Exec("INSERT INTO people VALUES(2, 'bob');", nil))
	require.NoError(t, db.Exec("INSERT INTO people(name, id) VALUES('carol', 3);", nil))

	t.Run("select star", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT * FROM people")
		assert.Equal(t, [][]string{{"1", "alice"}, {"2", "bob"}, {"3", "carol"}}, rows)
	})

	t.Run("where equality", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT name FROM people WHERE id=2")
		assert.Equal(t, [][]string{{"bob"}}, rows)
	})

	t.Run("where like", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT name FROM people WHERE name LIKE 'a%'")
		assert.Equal(t, [][]string{{"alice"}}, rows)
	})

	t.Run("order by descending", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT name FROM people ORDER BY id DESC")
		assert.Equal(t, [][]string{{"carol"}, {"bob"}, {"alice"}}, rows)
	})

	t.Run("order by ordinal", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT name FROM people ORDER BY 1")
		assert.Equal(t, [][]string{{"alice"}, {"bob"}, {"carol"}}, rows)
	})

	t.Run("delete with where", func(t *testing.T) {
		require.NoError(t, db.Exec("DELETE FROM people WHERE name='bob'", nil))
		rows := queryRows(t, db, "SELECT id FROM people ORDER BY rowid")
		assert.Equal(t, [][]string{{"1"}, {"3"}}, rows)
	})

	t.Run("no such table", func(t *testing.T) {
		err := db.Exec("SELECT * FROM missing", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such table: missing")
	})

	t.Run("syntax error", func(t *testing.T) {
		err := db.Exec("FROB people", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "syntax error")
	})
}

func TestSelectExpressions(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE t(a, b);", nil))
	require.NoError(t, db.Exec("INSERT INTO t VALUES(1, 'x');", nil))
	require.NoError(t, db.Exec("INSERT INTO t VALUES(2, 'it''s');", nil))
	require.NoError(t, db.Exec("INSERT INTO t VALUES(3, NULL);", nil))

	t.Run("quote function", func(t *testing.T) {
		rows := queryRows(t, db, `SELECT quote(b) FROM t`)
		assert.Equal(t, [][]string{{"'x'"}, {"'it''s'"}, {"NULL"}}, rows)
	})

	t.Run("lower function", func(t *testing.T) {
		require.NoError(t, db.Exec("INSERT INTO t VALUES(4, 'MiXeD');", nil))
		rows := queryRows(t, db, "SELECT lower(b) FROM t WHERE a=4")
		assert.Equal(t, [][]string{{"mixed"}}, rows)
	})

	t.Run("dump shaped concatenation", func(t *testing.T) {
		sql := `SELECT 'INSERT INTO ' || '"t"' || ' VALUES(' || quote("a"), quote("b") || ')' FROM  "t" WHERE a=2`
		rows := queryRows(t, db, sql)
		require.Len(t, rows, 1)
		assert.Equal(t, `INSERT INTO "t" VALUES(2`, rows[0][0])
		assert.Equal(t, `'it''s')`, rows[0][1])
	})

	t.Run("concat with null is null", func(t *testing.T) {
		var nulls []bool
		stmt, _, err := db.Prepare("SELECT 'v=' || b FROM t WHERE a=3")
		require.NoError(t, err)
		for {
			ok, err := stmt.Step()
			require.NoError(t, err)
			if !ok {
				break
			}
			_, notNull := stmt.ColumnText(0)
			nulls = append(nulls, !notNull)
		}
		require.NoError(t, stmt.Finalize())
		assert.Equal(t, []bool{true}, nulls)
	})

	t.Run("select without from", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT 'hello'")
		assert.Equal(t, [][]string{{"hello"}}, rows)
	})
}

func TestCatalogQueries(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE alpha(x);", nil))
	require.NoError(t, db.Exec("CREATE TABLE beta(y);", nil))
	require.NoError(t, db.Exec("CREATE INDEX alpha_x ON alpha(x);", nil))
	require.NoError(t, db.Exec("CREATE VIEW vw AS SELECT x FROM alpha;", nil))

	t.Run("type filter with in list", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT name FROM sqlite_master "+
			"WHERE type IN ('table','view') AND name NOT LIKE 'sqlite_%' "+
			"AND name LIKE '%' ORDER BY 1")
		assert.Equal(t, [][]string{{"alpha"}, {"beta"}, {"vw"}}, rows)
	})

	t.Run("index lookup by table", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT name FROM sqlite_master "+
			"WHERE type='index' AND tbl_name LIKE 'alpha' ORDER BY 1")
		assert.Equal(t, [][]string{{"alpha_x"}}, rows)
	})

	t.Run("schema text by lowered name", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT sql FROM sqlite_master "+
			"WHERE lower(tbl_name) LIKE 'beta' AND type!='meta' AND sql NOTNULL ORDER BY rowid")
		assert.Equal(t, [][]string{{"CREATE TABLE beta(y)"}}, rows)
	})

	t.Run("double equals operator", func(t *testing.T) {
		rows := queryRows(t, db, "SELECT name FROM sqlite_master "+
			"WHERE sql NOT NULL AND type=='table' AND name!='sqlite_sequence'")
		assert.Equal(t, [][]string{{"alpha"}, {"beta"}}, rows)
	})

	t.Run("pragma table_info", func(t *testing.T) {
		rows := queryRows(t, db, `PRAGMA table_info("alpha");`)
		require.Len(t, rows, 1)
		assert.Equal(t, "0", rows[0][0])
		assert.Equal(t, "x", rows[0][1])
	})

	t.Run("pragma database_list", func(t *testing.T) {
		rows := queryRows(t, db, "PRAGMA database_list; ")
		require.Len(t, rows, 1)
		assert.Equal(t, "main", rows[0][1])
	})

	t.Run("drop removes catalog rows", func(t *testing.T) {
		require.NoError(t, db.Exec("DROP VIEW vw", nil))
		rows := queryRows(t, db, "SELECT name FROM sqlite_master WHERE type='view'")
		assert.Empty(t, rows)
	})
}

func TestWritableSchema(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	insert := "INSERT INTO sqlite_master(type, name, tbl_name, rootpage, sql)" +
		" VALUES('table', 'vt', 'vt', 0, 'CREATE VIRTUAL TABLE vt USING fts(x)');"

	t.Run("rejected while schema is read-only", func(t *testing.T) {
		err := db.Exec(insert, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "may not be modified")
	})

	t.Run("accepted under writable_schema", func(t *testing.T) {
		require.NoError(t, db.Exec("PRAGMA writable_schema=ON", nil))
		require.NoError(t, db.Exec(insert, nil))
		require.NoError(t, db.Exec("PRAGMA writable_schema=OFF;", nil))
		rows := queryRows(t, db, "SELECT name, type FROM sqlite_master WHERE name='vt'")
		assert.Equal(t, [][]string{{"vt", "table"}}, rows)
	})
}

func TestBoundParameters(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE kv(k, v);", nil))
	stmt, _, err := db.Prepare("INSERT INTO kv VALUES(?,?)")
	require.NoError(t, err)
	require.NotNil(t, stmt)

	pairs := [][2]string{{"one", "1"}, {"two", "2"}, {"three", "3"}}
	for _, p := range pairs {
		require.NoError(t, stmt.BindText(1, p[0]))
		require.NoError(t, stmt.BindText(2, p[1]))
		_, err := stmt.Step()
		require.NoError(t, err)
		require.NoError(t, stmt.Reset())
	}
	require.NoError(t, stmt.Finalize())

	rows := queryRows(t, db, "SELECT k FROM kv ORDER BY v")
	assert.Equal(t, [][]string{{"one"}, {"two"}, {"three"}}, rows)
}

func TestTransactions(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE t(a);", nil))
	require.NoError(t, db.Exec("INSERT INTO t VALUES(1);", nil))

	t.Run("rollback restores the snapshot", func(t *testing.T) {
		require.NoError(t, db.Exec("BEGIN", nil))
		require.NoError(t, db.Exec("INSERT INTO t VALUES(2);", nil))
		require.NoError(t, db.Exec("ROLLBACK", nil))
		rows := queryRows(t, db, "SELECT a FROM t")
		assert.Equal(t, [][]string{{"1"}}, rows)
	})

	t.Run("commit keeps changes", func(t *testing.T) {
		require.NoError(t, db.Exec("BEGIN", nil))
		require.NoError(t, db.Exec("INSERT INTO t VALUES(2);", nil))
		require.NoError(t, db.Exec("COMMIT", nil))
		rows := queryRows(t, db, "SELECT a FROM t ORDER BY 1")
		assert.Equal(t, [][]string{{"1"}, {"2"}}, rows)
	})

	t.Run("savepoint and release", func(t *testing.T) {
		require.NoError(t, db.Exec("SAVEPOINT dump; PRAGMA writable_schema=ON", nil))
		require.NoError(t, db.Exec("RELEASE dump;", nil))
	})

	t.Run("nested begin fails", func(t *testing.T) {
		require.NoError(t, db.Exec("BEGIN", nil))
		err := db.Exec("BEGIN", nil)
		require.Error(t, err)
		require.NoError(t, db.Exec("ROLLBACK", nil))
	})
}

func TestCorruptionRetry(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE t(a);", nil))
	require.NoError(t, db.Exec("INSERT INTO t VALUES(1);", nil))
	db.CorruptTable("t")

	err := db.Exec("SELECT a FROM t", nil)
	require.Error(t, err)
	assert.Equal(t, engine.Corrupt, engine.CodeOf(err))

	// an ordered scan still works and clears the mark
	rows := queryRows(t, db, "SELECT a FROM t ORDER BY rowid DESC")
	assert.Equal(t, [][]string{{"1"}}, rows)
	rows = queryRows(t, db, "SELECT a FROM t")
	assert.Equal(t, [][]string{{"1"}}, rows)
}

func TestInterrupt(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE t(a);", nil))
	stmt, _, err := db.Prepare("SELECT a FROM t")
	require.NoError(t, err)
	db.Interrupt()
	_, serr := stmt.Step()
	require.Error(t, serr)
	assert.Equal(t, engine.Interrupt, engine.CodeOf(serr))
	stmt.Finalize()

	// the next prepare clears the flag
	rows := queryRows(t, db, "SELECT a FROM t")
	assert.Empty(t, rows)
}

func TestStatusAndCounters(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	require.NoError(t, db.Exec("CREATE TABLE t(a);", nil))
	require.NoError(t, db.Exec("INSERT INTO t VALUES(1);", nil))
	require.NoError(t, db.Exec("INSERT INTO t VALUES(2);", nil))

	cur, high := db.Status(engine.StatusMemoryUsed, false)
	assert.Greater(t, cur, 0)
	assert.GreaterOrEqual(t, high, cur)

	stmt, _, err := db.Prepare("SELECT a FROM t ORDER BY a")
	require.NoError(t, err)
	for {
		ok, err := stmt.Step()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	assert.Equal(t, 2, stmt.Counter(engine.StmtFullscanStep, false))
	assert.Equal(t, 1, stmt.Counter(engine.StmtSort, false))
	assert.Equal(t, 2, stmt.Counter(engine.StmtVMStep, true))
	assert.Equal(t, 0, stmt.Counter(engine.StmtVMStep, false))
	require.NoError(t, stmt.Finalize())
}

func TestPrepareTail(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	stmt, tail, err := db.Prepare("CREATE TABLE t(a); INSERT INTO t VALUES(1);")
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assert.Equal(t, "CREATE TABLE t(a);", stmt.SQL())
	assert.Equal(t, " INSERT INTO t VALUES(1);", tail)
	stmt.Finalize()

	t.Run("whitespace only yields nil statement", func(t *testing.T) {
		stmt, tail, err := db.Prepare("   \n\t")
		require.NoError(t, err)
		assert.Nil(t, stmt)
		assert.Equal(t, "", tail)
	})

	t.Run("comment only yields nil statement", func(t *testing.T) {
		stmt, _, err := db.Prepare("-- nothing here\n")
		require.NoError(t, err)
		assert.Nil(t, stmt)
	})
}
