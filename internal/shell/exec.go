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

// RowCallback receives one result row during ShellExec. Returning true
// aborts the statement without making it an error.
type RowCallback func(s *Session, names, vals []string, nulls []bool, types []engine.ColumnType) bool

// renderCallback is the standard callback: encode the row per the
// session's output mode.
func renderCallback(s *Session, names, vals []string, nulls []bool, types []engine.ColumnType) bool {
	s.RenderRow(names, vals, nulls, types)
	return false
}

// execCallback adapts RowCallback to engine.Exec, which carries no
// type information and no NULL flags.
func execCallback(s *Session, cb RowCallback) engine.RowFunc {
	return func(values, names []string) error {
		if cb(s, names, values, nil, nil) {
			return engine.NewError(engine.ErrGeneric, "callback requested abort")
		}
		return nil
	}
}

// ShellExec evaluates every statement in sqlText against db, feeding
// result rows to cb. Statements run left to right; the first failure
// stops the walk. The returned message is the engine's error text,
// empty on success.
func (s *Session) ShellExec(db engine.Conn, sqlText string, cb RowCallback) (string, engine.Code) {
	rest := sqlText
	code := engine.OK

	for rest != "" && code == engine.OK {
		stmt, tail, err := db.Prepare(rest)
		if err != nil {
			s.logError(engine.CodeOf(err), db.ErrMsg())
			return db.ErrMsg(), engine.CodeOf(err)
		}
		if stmt == nil {
			// comment or white-space
			rest = strings.TrimLeft(tail, " \t\n\v\f\r")
			continue
		}

		s.stmt = stmt
		s.cnt = 0

		if s.Echo {
			text := stmt.SQL()
			if text == "" {
				text = rest
			}
			fmt.Fprintf(s.out, "%s\n", text)
		}
		if s.traceOut != nil {
			fmt.Fprintf(s.traceOut, "%s\n", stmt.SQL())
		}

		hasRow, serr := stmt.Step()
		code = engine.CodeOf(serr)
		if hasRow {
			nCol := stmt.ColumnCount()
			names := make([]string, nCol)
			for i := range names {
				names[i] = stmt.ColumnName(i)
			}
			vals := make([]string, nCol)
			nulls := make([]bool, nCol)
			types := make([]engine.ColumnType, nCol)
			for hasRow && code == engine.OK {
				for i := 0; i < nCol; i++ {
					vals[i], _ = stmt.ColumnText(i)
					types[i] = stmt.ColumnType(i)
					nulls[i] = types[i] == engine.TypeNull
				}
				if cb != nil && cb(s, names, vals, nulls, types) {
					break
				}
				hasRow, serr = stmt.Step()
				code = engine.CodeOf(serr)
			}
		}

		if s.Stats {
			s.displayStats(db, false)
		}

		// Finalize reports the definitive outcome of the statement,
		// except that out-of-memory seen while stepping sticks.
		ferr := stmt.Finalize()
		if code != engine.NoMem {
			code = engine.CodeOf(ferr)
		}
		s.stmt = nil
		if code == engine.OK {
			rest = strings.TrimLeft(tail, " \t\n\v\f\r")
			continue
		}
		s.log.Debug("statement failed",
			zap.Int("code", int(code)), zap.String("error", db.ErrMsg()))
		s.logError(code, db.ErrMsg())
		return db.ErrMsg(), code
	}
	return "", engine.OK
}

// Exec runs sqlText with the standard mode renderer as callback.
func (s *Session) Exec(db engine.Conn, sqlText string) (string, engine.Code) {
	return s.ShellExec(db, sqlText, renderCallback)
}

// logError mirrors engine errors to the .log sink.
func (s *Session) logError(code engine.Code, msg string) {
	if s.logOut == nil {
		return
	}
	fmt.Fprintf(s.logOut, "(%d) %s\n", int(code), msg)
}

// displayStats prints the memory and statement counters tracked by the
// engine, in the layout .stats readers expect.
func (s *Session) displayStats(db engine.Conn, reset bool) {
	cur, hi := db.Status(engine.StatusMemoryUsed, reset)
	fmt.Fprintf(s.out, "Memory Used:                         %d (max %d) bytes\n", cur, hi)
	cur, hi = db.Status(engine.StatusPagecacheUsed, reset)
	fmt.Fprintf(s.out, "Number of Pcache Pages Used:         %d (max %d) pages\n", cur, hi)
	cur, hi = db.Status(engine.StatusPagecacheOverflow, reset)
	fmt.Fprintf(s.out, "Number of Pcache Overflow Bytes:     %d (max %d) bytes\n", cur, hi)
	cur, hi = db.Status(engine.StatusLookasideUsed, reset)
	fmt.Fprintf(s.out, "Lookaside Slots Used:                %d (max %d)\n", cur, hi)

	if s.stmt != nil {
		fmt.Fprintf(s.out, "Fullscan Steps:                      %d\n",
			s.stmt.Counter(engine.StmtFullscanStep, reset))
		fmt.Fprintf(s.out, "Sort Operations:                     %d\n",
			s.stmt.Counter(engine.StmtSort, reset))
		fmt.Fprintf(s.out, "Virtual Machine Steps:               %d\n",
			s.stmt.Counter(engine.StmtVMStep, reset))
	}
}
