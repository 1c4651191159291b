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
	"io"
	"strings"

	"sqlsh/internal/engine"
)

// dashes supplies the underline row of column mode headers.
const dashes = "-----------------------------------" +
	"----------------------------------------------------------"

// needCSVQuote marks the bytes that force a CSV field into quotes:
// control characters, space, double quote, apostrophe and everything
// past ASCII.
var needCSVQuote = [256]bool{}

func init() {
	for i := 0; i < 0x21; i++ {
		needCSVQuote[i] = true
	}
	needCSVQuote['"'] = true
	needCSVQuote['\''] = true
	for i := 0x7f; i < 256; i++ {
		needCSVQuote[i] = true
	}
}

// outputHexBlob writes b as an X'..' hex literal.
func outputHexBlob(out io.Writer, b []byte) {
	fmt.Fprintf(out, "X'")
	for _, c := range b {
		fmt.Fprintf(out, "%02x", c)
	}
	fmt.Fprintf(out, "'")
}

// outputQuotedString writes z as a single-quoted SQL string literal,
// doubling embedded quotes.
func outputQuotedString(out io.Writer, z string) {
	if !strings.Contains(z, "'") {
		fmt.Fprintf(out, "'%s'", z)
		return
	}
	fmt.Fprintf(out, "'")
	fmt.Fprintf(out, "%s", strings.ReplaceAll(z, "'", "''"))
	fmt.Fprintf(out, "'")
}

// outputCString writes z quoted by C and TCL rules: backslash pairs,
// escaped quotes, \t \n \r, and \NNN octal for other non-printables.
func outputCString(out io.Writer, z string) {
	io.WriteString(out, "\"")
	for i := 0; i < len(z); i++ {
		c := z[i]
		switch {
		case c == '\\':
			io.WriteString(out, `\\`)
		case c == '"':
			io.WriteString(out, `\"`)
		case c == '\t':
			io.WriteString(out, `\t`)
		case c == '\n':
			io.WriteString(out, `\n`)
		case c == '\r':
			io.WriteString(out, `\r`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(out, "\\%03o", c)
		default:
			out.Write([]byte{c})
		}
	}
	io.WriteString(out, "\"")
}

// outputHTMLString writes z with the five HTML-special characters
// replaced by entities.
func outputHTMLString(out io.Writer, z string) {
	for i := 0; i < len(z); i++ {
		switch z[i] {
		case '<':
			io.WriteString(out, "&lt;")
		case '&':
			io.WriteString(out, "&amp;")
		case '>':
			io.WriteString(out, "&gt;")
		case '"':
			io.WriteString(out, "&quot;")
		case '\'':
			io.WriteString(out, "&#39;")
		default:
			out.Write([]byte{z[i]})
		}
	}
}

// outputCSV writes one CSV field, quoting when any byte demands it or
// when the field starts with the separator. bSep appends the
// separator afterward.
func (s *Session) outputCSV(z string, isNull bool, bSep bool) {
	out := s.out
	if isNull {
		fmt.Fprintf(out, "%s", s.NullValue)
	} else {
		quote := false
		sep := s.Separator
		for i := 0; i < len(z); i++ {
			if needCSVQuote[z[i]] ||
				(len(sep) > 0 && z[i] == sep[0] &&
					(len(sep) == 1 || strings.HasPrefix(z, sep))) {
				quote = true
				break
			}
		}
		if quote {
			io.WriteString(out, "\"")
			for i := 0; i < len(z); i++ {
				if z[i] == '"' {
					io.WriteString(out, "\"")
				}
				out.Write([]byte{z[i]})
			}
			io.WriteString(out, "\"")
		} else {
			fmt.Fprintf(out, "%s", z)
		}
	}
	if bSep {
		fmt.Fprintf(out, "%s", s.Separator)
	}
}

// printCell pads text to width w and truncates past it. Negative
// widths right-justify.
func printCell(out io.Writer, w int, text, tail string) {
	if w < 0 {
		fmt.Fprintf(out, "%*.*s%s", -w, -w, text, tail)
	} else {
		fmt.Fprintf(out, "%-*.*s%s", w, w, text, tail)
	}
}

// RenderRow encodes one result row in the current output mode. names
// carries the column headers; vals is nil to emit headers only. nulls
// flags NULL values, and types, when available, refines insert mode.
// The renderer counts rows in s.cnt; a new result set must reset it.
func (s *Session) RenderRow(names, vals []string, nulls []bool, types []engine.ColumnType) {
	n := len(names)
	isNull := func(i int) bool { return nulls != nil && nulls[i] }
	val := func(i int) string {
		if isNull(i) {
			return s.NullValue
		}
		return vals[i]
	}

	switch s.Mode {
	case ModeLine:
		if vals == nil {
			break
		}
		w := 5
		for i := 0; i < n; i++ {
			if len(names[i]) > w {
				w = len(names[i])
			}
		}
		if s.cnt > 0 {
			fmt.Fprintf(s.out, "\n")
		}
		s.cnt++
		for i := 0; i < n; i++ {
			fmt.Fprintf(s.out, "%*s = %s\n", w, names[i], val(i))
		}

	case ModeExplain, ModeColumn:
		if s.cnt == 0 {
			for i := 0; i < n; i++ {
				var w int
				if i < numWidths {
					w = s.ColWidth[i]
				}
				if w == 0 {
					w = len(names[i])
					if w < 10 {
						w = 10
					}
					var vn int
					if vals != nil {
						vn = len(val(i))
					} else {
						vn = len(s.NullValue)
					}
					if w < vn {
						w = vn
					}
				}
				if i < numWidths {
					s.actualWidth[i] = w
				}
				if s.ShowHeader {
					printCell(s.out, w, names[i], colSep(i, n))
				}
			}
			if s.ShowHeader {
				for i := 0; i < n; i++ {
					w := 10
					if i < numWidths {
						w = s.actualWidth[i]
						if w < 0 {
							w = -w
						}
					}
					printCell(s.out, w, dashes, colSep(i, n))
				}
			}
		}
		s.cnt++
		if vals == nil {
			break
		}
		for i := 0; i < n; i++ {
			w := 10
			if i < numWidths {
				w = s.actualWidth[i]
			}
			if s.Mode == ModeExplain && !isNull(i) && len(vals[i]) > w {
				w = len(vals[i])
			}
			printCell(s.out, w, val(i), colSep(i, n))
		}

	case ModeSemi, ModeList:
		if s.cnt == 0 && s.ShowHeader {
			for i := 0; i < n; i++ {
				if i == n-1 {
					fmt.Fprintf(s.out, "%s\n", names[i])
				} else {
					fmt.Fprintf(s.out, "%s%s", names[i], s.Separator)
				}
			}
		}
		s.cnt++
		if vals == nil {
			break
		}
		for i := 0; i < n; i++ {
			fmt.Fprintf(s.out, "%s", val(i))
			if i < n-1 {
				fmt.Fprintf(s.out, "%s", s.Separator)
			} else if s.Mode == ModeSemi {
				fmt.Fprintf(s.out, ";\n")
			} else {
				fmt.Fprintf(s.out, "\n")
			}
		}

	case ModeHTML:
		if s.cnt == 0 && s.ShowHeader {
			fmt.Fprintf(s.out, "<TR>")
			for i := 0; i < n; i++ {
				fmt.Fprintf(s.out, "<TH>")
				outputHTMLString(s.out, names[i])
				fmt.Fprintf(s.out, "</TH>\n")
			}
			fmt.Fprintf(s.out, "</TR>\n")
		}
		s.cnt++
		if vals == nil {
			break
		}
		fmt.Fprintf(s.out, "<TR>")
		for i := 0; i < n; i++ {
			fmt.Fprintf(s.out, "<TD>")
			outputHTMLString(s.out, val(i))
			fmt.Fprintf(s.out, "</TD>\n")
		}
		fmt.Fprintf(s.out, "</TR>\n")

	case ModeTcl:
		if s.cnt == 0 && s.ShowHeader {
			for i := 0; i < n; i++ {
				outputCString(s.out, names[i])
				if i < n-1 {
					fmt.Fprintf(s.out, "%s", s.Separator)
				}
			}
			fmt.Fprintf(s.out, "\n")
		}
		s.cnt++
		if vals == nil {
			break
		}
		for i := 0; i < n; i++ {
			outputCString(s.out, val(i))
			if i < n-1 {
				fmt.Fprintf(s.out, "%s", s.Separator)
			}
		}
		fmt.Fprintf(s.out, "\n")

	case ModeCSV:
		if s.cnt == 0 && s.ShowHeader {
			for i := 0; i < n; i++ {
				s.outputCSV(names[i], false, i < n-1)
			}
			fmt.Fprintf(s.out, "\n")
		}
		s.cnt++
		if vals == nil {
			break
		}
		for i := 0; i < n; i++ {
			s.outputCSV(vals[i], isNull(i), i < n-1)
		}
		fmt.Fprintf(s.out, "\n")

	case ModeInsert:
		s.cnt++
		if vals == nil {
			break
		}
		fmt.Fprintf(s.out, "INSERT INTO %s VALUES(", s.destTable)
		for i := 0; i < n; i++ {
			sep := ","
			if i == 0 {
				sep = ""
			}
			switch {
			case isNull(i) || (types != nil && types[i] == engine.TypeNull):
				fmt.Fprintf(s.out, "%sNULL", sep)
			case types != nil && types[i] == engine.TypeText:
				fmt.Fprintf(s.out, "%s", sep)
				outputQuotedString(s.out, vals[i])
			case types != nil && (types[i] == engine.TypeInteger || types[i] == engine.TypeFloat):
				fmt.Fprintf(s.out, "%s%s", sep, vals[i])
			case types != nil && types[i] == engine.TypeBlob && s.stmt != nil:
				fmt.Fprintf(s.out, "%s", sep)
				outputHexBlob(s.out, s.stmt.ColumnBlob(i))
			case isNumber(vals[i], nil):
				fmt.Fprintf(s.out, "%s%s", sep, vals[i])
			default:
				fmt.Fprintf(s.out, "%s", sep)
				outputQuotedString(s.out, vals[i])
			}
		}
		fmt.Fprintf(s.out, ");\n")
	}
}

func colSep(i, n int) string {
	if i == n-1 {
		return "\n"
	}
	return "  "
}
