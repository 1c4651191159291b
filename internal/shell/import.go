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
	"bufio"
	"fmt"
	"os"
	"strings"

	"sqlsh/internal/engine"
)

// readImportLine reads one logical record: physical lines are joined
// while a double quote is open, so quoted fields may span newlines.
// The trailing newline is stripped; embedded ones stay.
func readImportLine(r *bufio.Reader) (string, bool) {
	var buf strings.Builder
	for {
		chunk, err := r.ReadString('\n')
		buf.WriteString(chunk)
		if err != nil {
			if buf.Len() == 0 {
				return "", false
			}
			break
		}
		if strings.Count(buf.String(), "\"")%2 == 0 {
			break
		}
	}
	line := buf.String()
	line = strings.TrimSuffix(line, "\n")
	return line, true
}

// splitImportFields cuts line at every separator occurrence outside
// double quotes and returns all fields. Separator bytes inside an open
// quote do not split.
func splitImportFields(line, sep string) []string {
	fields := []string{}
	inQuote := false
	start := 0
	i := 0
	for i < len(line) {
		c := line[i]
		if c == '"' {
			inQuote = !inQuote
		}
		if !inQuote && c == sep[0] && strings.HasPrefix(line[i:], sep) {
			fields = append(fields, line[start:i])
			i += len(sep)
			start = i
			continue
		}
		i++
	}
	return append(fields, line[start:])
}

// unquoteImportField strips a leading quote and collapses doubled
// quotes, dropping the closing quote. Fields that do not start with a
// quote pass through untouched.
func unquoteImportField(z string) string {
	if len(z) == 0 || z[0] != '"' {
		return z
	}
	var b []byte
	for j := 1; j < len(z); j++ {
		if z[j] == '"' {
			j++
			if j >= len(z) {
				break
			}
		}
		b = append(b, z[j])
	}
	return string(b)
}

// importCommand implements .import FILE TABLE: one INSERT per input
// record, all inside a transaction that rolls back on the first
// malformed record or failed insert.
func (s *Session) importCommand(db engine.Conn, file, table string) int {
	if len(s.Separator) == 0 {
		fmt.Fprintf(s.errw, "Error: non-null separator required for import\n")
		return 1
	}

	probe, _, err := db.Prepare("SELECT * FROM " + table)
	if err != nil || probe == nil {
		if probe != nil {
			probe.Finalize()
		}
		fmt.Fprintf(s.errw, "Error: %s\n", db.ErrMsg())
		return 1
	}
	nCol := probe.ColumnCount()
	probe.Finalize()
	if nCol == 0 {
		return 0 // no columns, no error
	}

	var sql strings.Builder
	fmt.Fprintf(&sql, "INSERT INTO %s VALUES(?", table)
	for i := 1; i < nCol; i++ {
		sql.WriteString(",?")
	}
	sql.WriteString(")")
	stmt, _, err := db.Prepare(sql.String())
	if err != nil || stmt == nil {
		fmt.Fprintf(s.errw, "Error: %s\n", db.ErrMsg())
		if stmt != nil {
			stmt.Finalize()
		}
		return 1
	}

	in, ferr := os.Open(file)
	if ferr != nil {
		fmt.Fprintf(s.errw, "Error: cannot open \"%s\"\n", file)
		stmt.Finalize()
		return 1
	}
	defer in.Close()

	db.Exec("BEGIN", nil)
	commit := "COMMIT"
	rc := 0
	lineno := 0
	r := bufio.NewReader(in)
	for {
		line, ok := readImportLine(r)
		if !ok {
			break
		}
		lineno++
		lineno += strings.Count(line, "\n")
		fields := splitImportFields(line, s.Separator)
		if len(fields) != nCol {
			fmt.Fprintf(s.errw,
				"Error: %s line %d: expected %d columns of data but found %d\n",
				file, lineno, nCol, len(fields))
			commit = "ROLLBACK"
			rc = 1
			break
		}
		for i := 0; i < nCol; i++ {
			stmt.BindText(i+1, unquoteImportField(fields[i]))
		}
		stmt.Step()
		if err := stmt.Reset(); err != nil {
			fmt.Fprintf(s.errw, "Error: %s\n", db.ErrMsg())
			commit = "ROLLBACK"
			rc = 1
			break
		}
	}
	stmt.Finalize()
	db.Exec(commit, nil)
	return rc
}
