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

// statementComplete reports whether sql ends with a semicolon outside
// any string literal, quoted identifier, or comment. Trailing
// whitespace and comments after the final semicolon are allowed.
func statementComplete(sql string) bool {
	complete := false
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch c {
		case ';':
			complete = true
			i++
		case ' ', '\t', '\n', '\v', '\f', '\r':
			i++
		case '\'', '"', '`':
			complete = false
			i = skipQuoted(sql, i, c)
		case '[':
			complete = false
			i = skipTo(sql, i+1, ']')
		case '-':
			if i+1 < len(sql) && sql[i+1] == '-' {
				i = skipLine(sql, i+2)
			} else {
				complete = false
				i++
			}
		case '/':
			if i+1 < len(sql) && sql[i+1] == '*' {
				i = skipBlockComment(sql, i+2)
			} else {
				complete = false
				i++
			}
		default:
			complete = false
			i++
		}
	}
	return complete
}

// splitStatement returns the first statement in sql (through its
// terminating semicolon, or all of sql when no terminator is present)
// and the unconsumed remainder.
func splitStatement(sql string) (stmt, tail string) {
	i := 0
	for i < len(sql) {
		switch c := sql[i]; c {
		case ';':
			return sql[:i+1], sql[i+1:]
		case '\'', '"', '`':
			i = skipQuoted(sql, i, c)
		case '[':
			i = skipTo(sql, i+1, ']')
		case '-':
			if i+1 < len(sql) && sql[i+1] == '-' {
				i = skipLine(sql, i+2)
			} else {
				i++
			}
		case '/':
			if i+1 < len(sql) && sql[i+1] == '*' {
				i = skipBlockComment(sql, i+2)
			} else {
				i++
			}
		default:
			i++
		}
	}
	return sql, ""
}

// skipQuoted advances past a quoted region opened at i by quote q,
// honoring doubled-quote escapes.
func skipQuoted(sql string, i int, q byte) int {
	i++
	for i < len(sql) {
		if sql[i] == q {
			if i+1 < len(sql) && sql[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func skipTo(sql string, i int, end byte) int {
	for i < len(sql) && sql[i] != end {
		i++
	}
	if i < len(sql) {
		i++
	}
	return i
}

func skipLine(sql string, i int) int {
	for i < len(sql) && sql[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(sql string, i int) int {
	for i+1 < len(sql) {
		if sql[i] == '*' && sql[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(sql)
}
