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
	"strings"

	"sqlsh/internal/engine"
)

type tokKind int

const (
	tkEOF tokKind = iota
	tkIdent
	tkString
	tkNumber
	tkBlob
	tkParam
	tkPunct
)

type token struct {
	kind tokKind
	text string
}

// lexSQL tokenizes one statement. Quoted identifiers lex as tkIdent
// with the quotes stripped; string literals have their doubled quotes
// resolved.
func lexSQL(sql string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			i++
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = skipLine(sql, i+2)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = skipBlockComment(sql, i+2)
		case c == '\'':
			text, next, err := lexQuoted(sql, i, '\'')
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tkString, text})
			i = next
		case c == '"' || c == '`':
			text, next, err := lexQuoted(sql, i, c)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tkIdent, text})
			i = next
		case c == '[':
			end := strings.IndexByte(sql[i:], ']')
			if end < 0 {
				return nil, engine.NewError(engine.ErrGeneric, "unrecognized token: \"[\"")
			}
			toks = append(toks, token{tkIdent, sql[i+1 : i+end]})
			i += end + 1
		case (c == 'x' || c == 'X') && i+1 < len(sql) && sql[i+1] == '\'':
			text, next, err := lexQuoted(sql, i+1, '\'')
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tkBlob, text})
			i = next
		case isIdentStart(c):
			j := i + 1
			for j < len(sql) && isIdentChar(sql[j]) {
				j++
			}
			toks = append(toks, token{tkIdent, sql[i:j]})
			i = j
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			j := i
			for j < len(sql) && (sql[j] >= '0' && sql[j] <= '9' || sql[j] == '.' ||
				sql[j] == 'e' || sql[j] == 'E' ||
				(sql[j] == '+' || sql[j] == '-') && (sql[j-1] == 'e' || sql[j-1] == 'E')) {
				j++
			}
			toks = append(toks, token{tkNumber, sql[i:j]})
			i = j
		case c == '?':
			toks = append(toks, token{tkParam, "?"})
			i++
		case c == '|' && i+1 < len(sql) && sql[i+1] == '|':
			toks = append(toks, token{tkPunct, "||"})
			i += 2
		case c == '=' && i+1 < len(sql) && sql[i+1] == '=':
			toks = append(toks, token{tkPunct, "=="})
			i += 2
		case c == '!' && i+1 < len(sql) && sql[i+1] == '=':
			toks = append(toks, token{tkPunct, "!="})
			i += 2
		case c == '<' && i+1 < len(sql) && sql[i+1] == '>':
			toks = append(toks, token{tkPunct, "<>"})
			i += 2
		case strings.IndexByte("(),;*=.<>+-", c) >= 0:
			toks = append(toks, token{tkPunct, string(c)})
			i++
		default:
			return nil, engine.NewError(engine.ErrGeneric, "unrecognized token: %q", string(c))
		}
	}
	return toks, nil
}

func lexQuoted(sql string, i int, q byte) (string, int, error) {
	var b strings.Builder
	j := i + 1
	for j < len(sql) {
		if sql[j] == q {
			if j+1 < len(sql) && sql[j+1] == q {
				b.WriteByte(q)
				j += 2
				continue
			}
			return b.String(), j + 1, nil
		}
		b.WriteByte(sql[j])
		j++
	}
	return "", j, engine.NewError(engine.ErrGeneric, "unterminated quoted string")
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
