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

package shell

import (
	"fmt"
	"strings"

	"sqlsh/internal/engine"

	"go.uber.org/zap"
)

// quoteIdent wraps name in double quotes, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteStringLit wraps z in single quotes, doubling embedded quotes.
func quoteStringLit(z string) string {
	return "'" + strings.ReplaceAll(z, "'", "''") + "'"
}

// runTableDumpQuery evaluates a query whose rows are SQL text, prints
// each row comma-joined and terminated with a semicolon. A row whose
// first column contains "--" gets the semicolon on its own line so a
// trailing comment cannot swallow it. firstRow, when non-empty, is
// printed before the first row.
func (s *Session) runTableDumpQuery(db engine.Conn, selectSQL, firstRow string) engine.Code {
	stmt, _, err := db.Prepare(selectSQL)
	if err != nil || stmt == nil {
		fmt.Fprintf(s.out, "/**** ERROR: (%d) %s *****/\n", int(engine.CodeOf(err)), db.ErrMsg())
		s.nErr++
		return engine.CodeOf(err)
	}
	nResult := stmt.ColumnCount()
	hasRow, _ := stmt.Step()
	for hasRow {
		if firstRow != "" {
			fmt.Fprintf(s.out, "%s", firstRow)
			firstRow = ""
		}
		z, _ := stmt.ColumnText(0)
		fmt.Fprintf(s.out, "%s", z)
		for i := 1; i < nResult; i++ {
			v, _ := stmt.ColumnText(i)
			fmt.Fprintf(s.out, ",%s", v)
		}
		if strings.Contains(z, "--") {
			fmt.Fprintf(s.out, "\n;\n")
		} else {
			fmt.Fprintf(s.out, ";\n")
		}
		hasRow, _ = stmt.Step()
	}
	if err := stmt.Finalize(); err != nil {
		fmt.Fprintf(s.out, "/**** ERROR: (%d) %s *****/\n", int(engine.CodeOf(err)), db.ErrMsg())
		s.nErr++
		return engine.CodeOf(err)
	}
	return engine.OK
}

// dumpRow handles one sqlite_master row during .dump: (name, type,
// sql). It prints the schema statement, then for ordinary tables the
// INSERT statements that recreate the content.
func (s *Session) dumpRow(db engine.Conn, values []string) error {
	if len(values) != 3 {
		return engine.NewError(engine.ErrGeneric, "malformed schema row")
	}
	table, typ, schema := values[0], values[1], values[2]

	prepStmt := ""
	switch {
	case table == "sqlite_sequence":
		prepStmt = "DELETE FROM sqlite_sequence;\n"
	case table == "sqlite_stat1":
		fmt.Fprintf(s.out, "ANALYZE sqlite_master;\n")
	case strings.HasPrefix(table, "sqlite_"):
		return nil
	case strings.HasPrefix(schema, "CREATE VIRTUAL TABLE"):
		// A virtual table is recreated by writing its sqlite_master
		// row directly, which needs writable_schema.
		if !s.writableSchema {
			fmt.Fprintf(s.out, "PRAGMA writable_schema=ON;\n")
			s.writableSchema = true
		}
		fmt.Fprintf(s.out,
			"INSERT INTO sqlite_master(type, name, tbl_name, rootpage, sql)"+
				" VALUES('table', '%s', '%s', 0, '%s');\n",
			strings.ReplaceAll(table, "'", "''"),
			strings.ReplaceAll(table, "'", "''"),
			strings.ReplaceAll(schema, "'", "''"))
		return nil
	default:
		fmt.Fprintf(s.out, "%s;\n", schema)
	}

	if typ != "table" {
		return nil
	}

	info, _, err := db.Prepare("PRAGMA table_info(" + quoteIdent(table) + ");")
	if err != nil || info == nil {
		return engine.NewError(engine.ErrGeneric, "cannot read table info for %s", table)
	}
	var sel strings.Builder
	sel.WriteString("SELECT 'INSERT INTO ' || ")
	// Quote the table name even when it looks plain, in case it is a
	// keyword. Ex: INSERT INTO "table" ...
	sel.WriteString(quoteStringLit(quoteIdent(table)))
	sel.WriteString(" || ' VALUES(' || ")
	nRow := 0
	hasRow, _ := info.Step()
	for hasRow {
		colName, _ := info.ColumnText(1)
		sel.WriteString("quote(")
		sel.WriteString(quoteIdent(colName))
		hasRow, _ = info.Step()
		if hasRow {
			sel.WriteString("), ")
		} else {
			sel.WriteString(") ")
		}
		nRow++
	}
	if err := info.Finalize(); err != nil || nRow == 0 {
		return engine.NewError(engine.ErrGeneric, "cannot read table info for %s", table)
	}
	sel.WriteString("|| ')' FROM  ")
	sel.WriteString(quoteIdent(table))

	if s.runTableDumpQuery(db, sel.String(), prepStmt) == engine.Corrupt {
		s.log.Debug("table dump hit corruption, retrying in reverse rowid order",
			zap.String("table", table))
		s.runTableDumpQuery(db, sel.String()+" ORDER BY rowid DESC", "")
	}
	return nil
}

// runSchemaDumpQuery feeds the rows of query through dumpRow. On a
// corruption error the query is retried with "ORDER BY rowid DESC"
// appended, salvaging what an intact reverse scan can still reach.
func (s *Session) runSchemaDumpQuery(db engine.Conn, query string) engine.Code {
	row := func(values, names []string) error { return s.dumpRow(db, values) }
	err := db.Exec(query, row)
	if engine.CodeOf(err) == engine.Corrupt {
		fmt.Fprintf(s.out, "/****** CORRUPTION ERROR *******/\n")
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(s.out, "/****** %s ******/\n", msg)
		}
		err = db.Exec(query+" ORDER BY rowid DESC", row)
		if err != nil {
			fmt.Fprintf(s.out, "/****** ERROR: %s ******/\n", err)
			return engine.CodeOf(err)
		}
		return engine.Corrupt
	}
	return engine.CodeOf(err)
}

// dumpCommand implements .dump: emit SQL text that recreates the
// database, wrapped in a transaction. Patterns restrict the dump to
// tables whose name matches one of them.
func (s *Session) dumpCommand(db engine.Conn, patterns []string) {
	// Playing back a dump can hit immediate foreign key constraints
	// when content appears out of order, so enforcement goes off first.
	fmt.Fprintf(s.out, "PRAGMA foreign_keys=OFF;\n")
	fmt.Fprintf(s.out, "BEGIN TRANSACTION;\n")
	s.writableSchema = false
	db.Exec("SAVEPOINT dump; PRAGMA writable_schema=ON", nil)
	s.nErr = 0
	if len(patterns) == 0 {
		s.runSchemaDumpQuery(db,
			"SELECT name, type, sql FROM sqlite_master "+
				"WHERE sql NOT NULL AND type=='table' AND name!='sqlite_sequence'")
		s.runSchemaDumpQuery(db,
			"SELECT name, type, sql FROM sqlite_master "+
				"WHERE name=='sqlite_sequence'")
		s.runTableDumpQuery(db,
			"SELECT sql FROM sqlite_master "+
				"WHERE sql NOT NULL AND type IN ('index','trigger','view')", "")
	} else {
		for _, pat := range patterns {
			lit := quoteStringLit(pat)
			s.runSchemaDumpQuery(db,
				"SELECT name, type, sql FROM sqlite_master "+
					"WHERE tbl_name LIKE "+lit+" AND type=='table'"+
					"  AND sql NOT NULL")
			s.runTableDumpQuery(db,
				"SELECT sql FROM sqlite_master "+
					"WHERE sql NOT NULL"+
					"  AND type IN ('index','trigger','view')"+
					"  AND tbl_name LIKE "+lit, "")
		}
	}
	if s.writableSchema {
		fmt.Fprintf(s.out, "PRAGMA writable_schema=OFF;\n")
		s.writableSchema = false
	}
	db.Exec("PRAGMA writable_schema=OFF;", nil)
	db.Exec("RELEASE dump;", nil)
	if s.nErr > 0 {
		fmt.Fprintf(s.out, "ROLLBACK; -- due to errors\n")
	} else {
		fmt.Fprintf(s.out, "COMMIT;\n")
	}
}
