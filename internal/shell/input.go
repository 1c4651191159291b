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
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// LineReader supplies input one line at a time, without the trailing
// newline. The prompt is shown only by interactive implementations.
// io.EOF ends the input. A reader that supports Ctrl-C should call
// Session.Interrupt and return an empty line so the assembler can
// decide whether to absorb or abort.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

type ioLineReader struct {
	r *bufio.Reader
}

// NewIOLineReader wraps a plain reader (a file, batch stdin) as a
// LineReader that ignores prompts.
func NewIOLineReader(r io.Reader) LineReader {
	return &ioLineReader{r: bufio.NewReader(r)}
}

func (l *ioLineReader) ReadLine(string) (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if len(line) == 0 {
			return "", io.EOF
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// complete asks the engine whether sql parses as complete statements.
func (s *Session) complete(sql string) bool {
	db, err := s.db()
	if err != nil {
		return true
	}
	return db.Complete(sql)
}

// isComplete reports whether sql would be complete with a semicolon
// appended. An empty buffer counts as complete.
func (s *Session) isComplete(sql string) bool {
	if sql == "" {
		return true
	}
	return s.complete(sql + ";")
}

func cpuTimes() (user, sys float64) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err == nil {
		user = float64(ru.Utime.Sec) + float64(ru.Utime.Usec)/1e6
		sys = float64(ru.Stime.Sec) + float64(ru.Stime.Usec)/1e6
	}
	return
}

// ProcessInput reads lines from in and processes them: dot-commands
// dispatch immediately when the statement buffer is empty, everything
// else accumulates until the appended text contains a semicolon and
// the whole buffer is complete, then executes. fromFile marks input
// from a file or device rather than the session's own stdin; errors
// there carry the starting line number and an interrupt aborts instead
// of being absorbed. Returns 1 when any statement failed.
func (s *Session) ProcessInput(in LineReader, fromFile bool) int {
	var sql string
	errCnt := 0
	lineno := 0
	startline := 0

	for errCnt == 0 || !s.Bail || (!fromFile && s.Interactive) {
		prompt := s.MainPrompt
		if sql != "" {
			prompt = s.ContinuePrompt
		}
		line, err := in.ReadLine(prompt)
		if err != nil {
			// End of input
			if s.Interactive {
				fmt.Println()
			}
			break
		}
		if s.seenInterrupt() {
			if fromFile {
				break
			}
			s.clearInterrupt()
		}
		lineno++
		if sql == "" && allWhitespace(line) {
			continue
		}
		if strings.HasPrefix(line, ".") && sql == "" {
			if s.Echo {
				fmt.Printf("%s\n", line)
			}
			switch s.DoMetaCommand(line) {
			case metaExit:
				return boolToErr(errCnt)
			case metaError:
				errCnt++
			}
			continue
		}
		if isCommandTerminator(line) && s.isComplete(sql) {
			line = ";"
		}
		nPrior := len(sql)
		if sql == "" {
			if strings.TrimLeft(line, " \t\n\v\f\r") != "" {
				sql = line
				startline = lineno
			}
		} else {
			sql = sql + "\n" + line
		}
		if sql != "" && containsSemicolon(sql[nPrior:]) && s.complete(sql) {
			s.cnt = 0
			db, derr := s.db()
			if derr != nil {
				errCnt++
				sql = ""
				continue
			}
			u0, s0 := cpuTimes()
			errMsg, code := s.ShellExec(db, sql, renderCallback)
			if s.Timer {
				u1, s1 := cpuTimes()
				fmt.Printf("CPU Time: user %f sys %f\n", u1-u0, s1-s0)
			}
			if code != 0 || errMsg != "" {
				pre := "Error:"
				if fromFile || !s.Interactive {
					pre = fmt.Sprintf("Error: near line %d:", startline)
				}
				if errMsg == "" {
					errMsg = db.ErrMsg()
				}
				fmt.Fprintf(s.errw, "%s %s\n", pre, errMsg)
				errCnt++
			}
			sql = ""
		} else if sql != "" && allWhitespace(sql) {
			sql = ""
		}
	}
	if sql != "" && !allWhitespace(sql) {
		fmt.Fprintf(s.errw, "Error: incomplete SQL: %s\n", sql)
	}
	return boolToErr(errCnt)
}

func boolToErr(errCnt int) int {
	if errCnt > 0 {
		return 1
	}
	return 0
}

// processFile runs the statements of a file through the assembler,
// for .read and startup scripts.
func (s *Session) processFile(name string) int {
	f, err := os.Open(name)
	if err != nil {
		fmt.Fprintf(s.errw, "Error: cannot open \"%s\"\n", name)
		return 1
	}
	defer f.Close()
	return s.ProcessInput(NewIOLineReader(f), true)
}

// ProcessRC runs the startup file: override when given, otherwise
// ~/.sqlshrc. A missing file is not an error.
func (s *Session) ProcessRC(override string) int {
	name := override
	if name == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(s.errw, "Error: cannot locate your home directory\n")
			return 1
		}
		name = filepath.Join(home, ".sqlshrc")
	}
	f, err := os.Open(name)
	if err != nil {
		return 0
	}
	defer f.Close()
	if s.Interactive {
		fmt.Fprintf(s.errw, "-- Loading resources from %s\n", name)
	}
	return s.ProcessInput(NewIOLineReader(f), true)
}
