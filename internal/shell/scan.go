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
	"strconv"
	"strings"
)

// allWhitespace reports whether z holds nothing but whitespace and SQL
// comments. A dangling "/*" comment is not whitespace: more text is
// still required to close it.
func allWhitespace(z string) bool {
	i := 0
	for i < len(z) {
		c := z[i]
		if isSpace(c) {
			i++
			continue
		}
		if c == '/' && i+1 < len(z) && z[i+1] == '*' {
			i += 2
			for i < len(z) && !(z[i] == '*' && i+1 < len(z) && z[i+1] == '/') {
				i++
			}
			if i >= len(z) {
				return false
			}
			i += 2
			continue
		}
		if c == '-' && i+1 < len(z) && z[i+1] == '-' {
			i += 2
			for i < len(z) && z[i] != '\n' {
				i++
			}
			if i >= len(z) {
				return true
			}
			continue
		}
		return false
	}
	return true
}

// containsSemicolon scans for a semicolon anywhere in z, including
// inside literals. The assembler uses it as a cheap pre-filter before
// the real completeness check.
func containsSemicolon(z string) bool {
	return strings.IndexByte(z, ';') >= 0
}

// isCommandTerminator recognizes a line holding only "go" or "/",
// terminators some other shells use, so scripts written for them still
// run.
func isCommandTerminator(line string) bool {
	i := 0
	for i < len(line) && isSpace(line[i]) {
		i++
	}
	rest := line[i:]
	if strings.HasPrefix(rest, "/") && allWhitespace(rest[1:]) {
		return true
	}
	if len(rest) >= 2 && (rest[0] == 'g' || rest[0] == 'G') &&
		(rest[1] == 'o' || rest[1] == 'O') && allWhitespace(rest[2:]) {
		return true
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// resolveBackslashes interprets C-style escapes in place: \n \t \r
// \NNN octal and \\ map to the bytes they name; any other pair keeps
// the escaped character.
func resolveBackslashes(z string) string {
	var b []byte
	i := 0
	for i < len(z) {
		c := z[i]
		if c == '\\' && i+1 < len(z) {
			i++
			c = z[i]
			switch {
			case c == 'n':
				c = '\n'
			case c == 't':
				c = '\t'
			case c == 'r':
				c = '\r'
			case c >= '0' && c <= '7':
				v := c - '0'
				if i+1 < len(z) && z[i+1] >= '0' && z[i+1] <= '7' {
					i++
					v = v<<3 + z[i] - '0'
					if i+1 < len(z) && z[i+1] >= '0' && z[i+1] <= '7' {
						i++
						v = v<<3 + z[i] - '0'
					}
				}
				c = v
			}
		}
		b = append(b, c)
		i++
	}
	return string(b)
}

// maxArgs caps the argument vector of a dot-command line.
const maxArgs = 50

// splitCommandLine tokenizes a dot-command line into its argument
// vector. line starts with '.'; the dot is not part of the first
// argument. Arguments are separated by whitespace; single or double
// quotes group, with backslash escapes resolved inside double-quoted
// and bare words.
func splitCommandLine(line string) []string {
	var args []string
	i := 1
	for i < len(line) && len(args) < maxArgs {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '\'' || line[i] == '"' {
			delim := line[i]
			i++
			start := i
			for i < len(line) && line[i] != delim {
				i++
			}
			arg := line[start:i]
			if i < len(line) {
				i++
			}
			if delim == '"' {
				arg = resolveBackslashes(arg)
			}
			args = append(args, arg)
		} else {
			start := i
			for i < len(line) && !isSpace(line[i]) {
				i++
			}
			args = append(args, resolveBackslashes(line[start:i]))
		}
	}
	return args
}

// booleanValue interprets ON/OFF style arguments. Leading digits win;
// otherwise on/yes and off/no are matched case-insensitively. Anything
// else warns on the error stream and counts as false.
func booleanValue(z string, errw io.Writer) bool {
	i := 0
	for i < len(z) && isDigit(z[i]) {
		i++
	}
	if i > 0 && i == len(z) {
		n, _ := strconv.Atoi(z)
		return n != 0
	}
	switch strings.ToLower(z) {
	case "on", "yes":
		return true
	case "off", "no":
		return false
	}
	fmt.Fprintf(errw, "ERROR: Not a boolean value: \"%s\". Assuming \"no\".\n", z)
	return false
}

// integerValue parses a possibly signed integer with an optional size
// suffix: KiB, MiB, GiB, KB, MB, GB, K, M, G.
func integerValue(z string) int64 {
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"KiB", 1024},
		{"MiB", 1024 * 1024},
		{"GiB", 1024 * 1024 * 1024},
		{"KB", 1000},
		{"MB", 1000000},
		{"GB", 1000000000},
		{"K", 1000},
		{"M", 1000000},
		{"G", 1000000000},
	}
	neg := false
	if strings.HasPrefix(z, "+") {
		z = z[1:]
	} else if strings.HasPrefix(z, "-") {
		neg = true
		z = z[1:]
	}
	mult := int64(1)
	for _, s := range suffixes {
		if strings.HasSuffix(z, s.suffix) {
			mult = s.mult
			z = z[:len(z)-len(s.suffix)]
			break
		}
	}
	var v int64
	for i := 0; i < len(z) && isDigit(z[i]); i++ {
		v = v*10 + int64(z[i]-'0')
	}
	v *= mult
	if neg {
		v = -v
	}
	return v
}

// isNumber reports whether z parses as an SQL numeric literal. When
// realnum is non-nil it records whether the literal had a fractional
// or exponent part.
func isNumber(z string, realnum *bool) bool {
	i := 0
	if i < len(z) && (z[i] == '-' || z[i] == '+') {
		i++
	}
	if i >= len(z) || !isDigit(z[i]) {
		return false
	}
	for i < len(z) && isDigit(z[i]) {
		i++
	}
	if realnum != nil {
		*realnum = false
	}
	if i < len(z) && z[i] == '.' {
		i++
		if i >= len(z) || !isDigit(z[i]) {
			return false
		}
		for i < len(z) && isDigit(z[i]) {
			i++
		}
		if realnum != nil {
			*realnum = true
		}
	}
	if i < len(z) && (z[i] == 'e' || z[i] == 'E') {
		i++
		if i < len(z) && (z[i] == '-' || z[i] == '+') {
			i++
		}
		if i >= len(z) || !isDigit(z[i]) {
			return false
		}
		for i < len(z) && isDigit(z[i]) {
			i++
		}
		if realnum != nil {
			*realnum = true
		}
	}
	return i == len(z)
}
