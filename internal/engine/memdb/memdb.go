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

/*
Package memdb is an in-memory reference engine for the shell.

It implements the engine contract over plain Go maps and slices with a
deliberately small SQL dialect: CREATE TABLE/INDEX/VIEW/TRIGGER (and
VIRTUAL TABLE, catalog-only), INSERT with positional parameters, DELETE,
single-table SELECT with quote() and string concatenation, WHERE with
equality/LIKE/IN/NULL tests, ORDER BY, the catalog pseudo-table
sqlite_master, and the handful of PRAGMAs the shell issues. That is
enough to run the shell end to end and to exercise every shell feature
in tests without a real database underneath.

The dialect is intentionally not a SQL implementation. Statements the
evaluator does not understand fail with a syntax error, never with a
silently wrong answer.
*/
package memdb

import (
	"strings"
	"sync"
	"time"

	"sqlsh/internal/engine"
)

// Driver opens in-memory databases. Every Open returns a fresh, empty
// database; the path is remembered only for PRAGMA database_list.
type Driver struct{}

// Open implements engine.Driver.
func (Driver) Open(path string) (engine.Conn, error) {
	return &DB{
		path:   path,
		tables: make(map[string]*table),
	}, nil
}

func init() {
	engine.Register("memdb", Driver{})
}

type value struct {
	typ  engine.ColumnType
	text string
	blob []byte
}

var nullValue = value{typ: engine.TypeNull}

func textValue(s string) value  { return value{typ: engine.TypeText, text: s} }
func intValue(s string) value   { return value{typ: engine.TypeInteger, text: s} }
func floatValue(s string) value { return value{typ: engine.TypeFloat, text: s} }

type column struct {
	name     string
	declType string
}

type table struct {
	name string
	cols []column
	rows [][]value
}

func (t *table) clone() *table {
	c := &table{name: t.name, cols: append([]column(nil), t.cols...)}
	c.rows = make([][]value, len(t.rows))
	for i, r := range t.rows {
		c.rows[i] = append([]value(nil), r...)
	}
	return c
}

// catalogEntry mirrors one sqlite_master row.
type catalogEntry struct {
	typ      string
	name     string
	tblName  string
	rootpage int
	sql      string
	noSQL    bool
}

type snapshot struct {
	tables  map[string]*table
	catalog []catalogEntry
}

// DB is an open in-memory database.
type DB struct {
	mu      sync.Mutex
	path    string
	tables  map[string]*table
	catalog []catalogEntry

	txn            *snapshot
	writableSchema bool
	foreignKeys    bool

	interrupted bool
	lastErr     string
	closed      bool

	memUsed int
	memHigh int

	corruptTables map[string]bool
	busyBackup    int
}

var _ engine.Conn = (*DB)(nil)

// CorruptTable marks a table so that its next unordered full scan fails
// with a Corrupt error. A scan with ORDER BY succeeds and clears the
// mark. Test hook.
func (db *DB) CorruptTable(name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.corruptTables == nil {
		db.corruptTables = make(map[string]bool)
	}
	db.corruptTables[strings.ToLower(name)] = true
}

// FailBackupSteps makes the next n backup steps return Busy. Test hook.
func (db *DB) FailBackupSteps(n int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.busyBackup = n
}

func (db *DB) setErr(err error) error {
	if err != nil {
		db.lastErr = err.Error()
	}
	return err
}

// ErrMsg implements engine.Conn.
func (db *DB) ErrMsg() string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.lastErr
}

// Interrupt implements engine.Conn.
func (db *DB) Interrupt() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.interrupted = true
}

func (db *DB) checkInterrupt() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.interrupted {
		return engine.NewError(engine.Interrupt, "interrupted")
	}
	return nil
}

// BusyTimeout implements engine.Conn. Memory databases never block, so
// the timeout is accepted and ignored.
func (db *DB) BusyTimeout(time.Duration) {}

// Status implements engine.Conn.
func (db *DB) Status(c engine.StatusCounter, reset bool) (int, int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cur, high := 0, 0
	if c == engine.StatusMemoryUsed {
		cur, high = db.memUsed, db.memHigh
		if reset {
			db.memHigh = db.memUsed
		}
	}
	return cur, high
}

func (db *DB) noteMem(delta int) {
	db.memUsed += delta
	if db.memUsed > db.memHigh {
		db.memHigh = db.memUsed
	}
}

// Close implements engine.Conn.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	db.tables = nil
	db.catalog = nil
	return nil
}

// Complete implements engine.Conn.
func (db *DB) Complete(sql string) bool { return statementComplete(sql) }

// Prepare implements engine.Conn.
func (db *DB) Prepare(sql string) (engine.Stmt, string, error) {
	db.mu.Lock()
	db.interrupted = false
	db.mu.Unlock()
	text, tail := splitStatement(sql)
	if strings.TrimSpace(text) == "" {
		return nil, tail, nil
	}
	s, err := db.compile(text)
	if err != nil {
		return nil, tail, db.setErr(err)
	}
	if s == nil {
		return nil, tail, nil
	}
	return s, tail, nil
}

// Exec implements engine.Conn.
func (db *DB) Exec(sql string, fn engine.RowFunc) error {
	rest := sql
	for {
		stmt, tail, err := db.Prepare(rest)
		if err != nil {
			return err
		}
		if stmt == nil {
			if strings.TrimSpace(tail) == "" {
				return nil
			}
			rest = tail
			continue
		}
		names := make([]string, stmt.ColumnCount())
		for i := range names {
			names[i] = stmt.ColumnName(i)
		}
		for {
			ok, err := stmt.Step()
			if err != nil {
				stmt.Finalize()
				return err
			}
			if !ok {
				break
			}
			if fn != nil {
				vals := make([]string, len(names))
				for i := range names {
					v, notNull := stmt.ColumnText(i)
					if notNull {
						vals[i] = v
					}
				}
				if err := fn(vals, names); err != nil {
					stmt.Finalize()
					return engine.NewError(engine.ErrGeneric, "query aborted")
				}
			}
		}
		if err := stmt.Finalize(); err != nil {
			return err
		}
		rest = tail
	}
}

// Backup implements engine.Conn.
func (db *DB) Backup(src engine.Conn) (engine.Backup, error) {
	from, ok := src.(*DB)
	if !ok {
		return nil, engine.NewError(engine.ErrGeneric, "backup source is not a memdb database")
	}
	return newBackup(db, from), nil
}

func (db *DB) lookupTable(name string) *table {
	return db.tables[strings.ToLower(name)]
}

func (db *DB) beginSnapshot() {
	if db.txn != nil {
		return
	}
	snap := &snapshot{
		tables:  make(map[string]*table, len(db.tables)),
		catalog: append([]catalogEntry(nil), db.catalog...),
	}
	for k, v := range db.tables {
		snap.tables[k] = v.clone()
	}
	db.txn = snap
}

func (db *DB) rollbackSnapshot() {
	if db.txn == nil {
		return
	}
	db.tables = db.txn.tables
	db.catalog = db.txn.catalog
	db.txn = nil
}
