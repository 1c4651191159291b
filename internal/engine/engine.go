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
Package engine defines the contract between the shell and a SQL database
engine.

The shell never interprets SQL itself. Everything it needs from the
engine goes through the narrow surface below: prepare one statement at a
time from a larger text, step through result rows, read column values as
text, run immediate statements with a row callback, check statement
completeness, and drive online backups page by page.

Engines register themselves by name, in the manner of database/sql
drivers:

	func init() { engine.Register("memdb", memdb.Driver{}) }

and the shell opens whichever driver it was configured with.
*/
package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Code is an engine result code. The zero value is OK.
type Code int

const (
	OK         Code = 0
	ErrGeneric Code = 1
	Busy       Code = 5
	Locked     Code = 6
	NoMem      Code = 7
	Interrupt  Code = 9
	Corrupt    Code = 11
	NotADB     Code = 26
	Row        Code = 100
	Done       Code = 101
)

// String returns the conventional name for a result code.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case ErrGeneric:
		return "error"
	case Busy:
		return "busy"
	case Locked:
		return "locked"
	case NoMem:
		return "out of memory"
	case Interrupt:
		return "interrupted"
	case Corrupt:
		return "database disk image is malformed"
	case NotADB:
		return "file is encrypted or is not a database"
	case Row:
		return "row"
	case Done:
		return "done"
	}
	return fmt.Sprintf("unknown error (%d)", int(c))
}

// Error is a coded engine error. The shell surfaces Msg to the user and
// branches on Code for retry and abort decisions.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Code.String()
}

// NewError builds a coded error with a formatted message.
func NewError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the result code from an error. A nil error is OK and
// an error that is not an *Error is ErrGeneric.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ErrGeneric
}

// ColumnType identifies the storage class of a column value.
type ColumnType int

const (
	TypeInteger ColumnType = 1
	TypeFloat   ColumnType = 2
	TypeText    ColumnType = 3
	TypeBlob    ColumnType = 4
	TypeNull    ColumnType = 5
)

// StatusCounter selects a connection-level counter for Status.
type StatusCounter int

const (
	StatusMemoryUsed StatusCounter = iota
	StatusPagecacheUsed
	StatusPagecacheOverflow
	StatusLookasideUsed
)

// StmtCounter selects a per-statement counter for Stmt.Counter.
type StmtCounter int

const (
	StmtFullscanStep StmtCounter = iota
	StmtSort
	StmtVMStep
)

// RowFunc receives one result row during immediate execution. Values
// holds column text with NULLs already substituted by the caller's
// convention; a nil Values slice means the engine could not allocate
// the row. Returning a non-nil error aborts the execution with Abort
// semantics.
type RowFunc func(values []string, names []string) error

// Stmt is a single prepared statement.
type Stmt interface {
	// Step advances to the next result row. It returns true while a
	// row is available and false with a nil error when the statement
	// has run to completion.
	Step() (bool, error)

	ColumnCount() int
	ColumnName(i int) string

	// ColumnText returns the value of column i rendered as text and a
	// flag that is false when the value is NULL.
	ColumnText(i int) (string, bool)
	ColumnType(i int) ColumnType
	ColumnBlob(i int) []byte

	// BindText binds parameter i (1-based) to a text value.
	BindText(i int, value string) error

	Reset() error

	// Finalize releases the statement. The returned error reports any
	// failure recorded during stepping.
	Finalize() error

	// SQL returns the text the statement was prepared from.
	SQL() string

	// Counter reads a per-statement execution counter, optionally
	// resetting it.
	Counter(c StmtCounter, reset bool) int
}

// Backup is an in-progress online backup.
type Backup interface {
	// Step copies up to nPages pages and reports whether the backup
	// has finished.
	Step(nPages int) (done bool, err error)
	Finish() error
}

// Conn is an open database connection.
type Conn interface {
	// Prepare compiles the first statement in sql and returns the
	// unconsumed remainder. A nil Stmt with a nil error means sql
	// held no statement (whitespace or comments only).
	Prepare(sql string) (Stmt, string, error)

	// Exec runs sql immediately, invoking fn for every result row.
	// fn may be nil when rows are not wanted.
	Exec(sql string, fn RowFunc) error

	// Complete reports whether sql forms one or more complete
	// statements, i.e. ends with a semicolon outside any literal or
	// comment.
	Complete(sql string) bool

	// Interrupt causes the current and subsequent operations to fail
	// with Interrupt until the connection is used from the top again.
	Interrupt()

	BusyTimeout(d time.Duration)

	// ErrMsg returns the message of the most recent error on the
	// connection.
	ErrMsg() string

	// Status reads a connection counter and its high-water mark,
	// optionally resetting the high-water mark.
	Status(c StatusCounter, reset bool) (current, highwater int)

	// Backup begins an online backup of src into this connection.
	Backup(src Conn) (Backup, error)

	Close() error
}

// Driver opens connections to databases of one engine kind.
type Driver interface {
	Open(path string) (Conn, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available under the given name. It panics on
// a duplicate or nil registration, matching database/sql behavior.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("engine: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("engine: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens path with the named driver. An empty name selects the sole
// registered driver when exactly one exists.
func Open(driver, path string) (Conn, error) {
	driversMu.RLock()
	d, ok := drivers[driver]
	if !ok && driver == "" && len(drivers) == 1 {
		for _, only := range drivers {
			d, ok = only, true
		}
	}
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: unknown driver %q (registered: %v)", driver, Drivers())
	}
	return d.Open(path)
}
