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
Package shell implements the interactive SQL session front-end: the
line assembler, the meta-command dispatcher, the nine-mode output
renderer, the statement execution pipeline, and the schema dump
engine. The database itself sits behind the engine contract; this
package never interprets query SQL.
*/
package shell

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"go.uber.org/zap"

	"sqlsh/internal/engine"
)

// Mode selects one of the output encodings.
type Mode int

const (
	ModeLine Mode = iota // one column per line, blank line between records
	ModeColumn
	ModeList
	ModeSemi
	ModeHTML
	ModeInsert
	ModeTcl
	ModeCSV
	ModeExplain // column mode that never truncates
)

var modeNames = [...]string{
	"line", "column", "list", "semi", "html", "insert", "tcl", "csv", "explain",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "?"
	}
	return modeNames[m]
}

// numWidths bounds the column width tables. Columns beyond the table
// fall back to a width of 10.
const numWidths = 100

// prevModeState holds the settings .explain saves so that .explain off
// can restore them.
type prevModeState struct {
	valid      bool
	mode       Mode
	showHeader bool
	colWidth   [numWidths]int
}

// Sink is a writable output destination. Closing the standard streams
// is a no-op.
type Sink interface {
	io.Writer
	Close() error
}

type stdSink struct{ *os.File }

func (stdSink) Close() error { return nil }

type fileSink struct{ *os.File }

type discardSink struct{}

func (discardSink) Write(p []byte) (int, error) { return len(p), nil }
func (discardSink) Close() error                { return nil }

// pipeSink feeds output to a spawned shell command, as in
// .output "|sort".
type pipeSink struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func (p *pipeSink) Write(b []byte) (int, error) { return p.stdin.Write(b) }

func (p *pipeSink) Close() error {
	p.stdin.Close()
	return p.cmd.Wait()
}

func openPipeSink(command string) (*pipeSink, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &pipeSink{cmd: cmd, stdin: stdin}, nil
}

// openOutputSink resolves FILE arguments of .output, .log and .trace.
// The names "stdout" and "stderr" select the standard streams, "off"
// returns nil meaning disabled.
func openOutputSink(name string, errw io.Writer) Sink {
	switch name {
	case "stdout":
		return stdSink{os.Stdout}
	case "stderr":
		return stdSink{os.Stderr}
	case "off":
		return nil
	}
	f, err := os.Create(name)
	if err != nil {
		fmt.Fprintf(errw, "Error: cannot open %q\n", name)
		return nil
	}
	return fileSink{f}
}

// Session is the single mutable record behind one shell run. The
// dispatcher mutates it; the renderer and pipeline read it.
type Session struct {
	// configured by the caller before the loop starts
	Driver      string // engine driver name
	DBPath      string
	Mode        Mode
	ShowHeader  bool
	Echo        bool
	Stats       bool
	Bail        bool
	Timer       bool
	Interactive bool // stdin is a terminal
	Separator   string
	NullValue   string

	MainPrompt     string
	ContinuePrompt string

	ColWidth [numWidths]int

	out     Sink
	outfile string // "" while writing to stdout
	errw    io.Writer

	traceOut Sink
	logOut   Sink

	conn           engine.Conn
	stmt           engine.Stmt // live statement, for stats and blobs
	destTable      string      // insert mode target
	cnt            int         // records rendered in the current result set
	nErr           int         // dump engine error count
	actualWidth    [numWidths]int
	explainPrev    prevModeState
	writableSchema bool

	exitCode    int
	interrupted *atomic.Bool

	log *zap.Logger
}

// NewSession returns a session with the standard defaults: list mode,
// "|" separator, headers off, output to stdout.
func NewSession(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		Driver:         "memdb",
		DBPath:         ":memory:",
		Mode:           ModeList,
		Separator:      "|",
		MainPrompt:     "sqlsh> ",
		ContinuePrompt: "   ...> ",
		out:            stdSink{os.Stdout},
		errw:           os.Stderr,
		interrupted:    new(atomic.Bool),
		log:            logger,
	}
}

// SetConn installs an already-open connection, mainly for tests.
func (s *Session) SetConn(conn engine.Conn) { s.conn = conn }

// SetLogger replaces the session logger.
func (s *Session) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.log = logger
}

// DB returns the session connection, opening the configured database
// on first use.
func (s *Session) DB() (engine.Conn, error) { return s.db() }

// SetOutput replaces the output sink without the .output bookkeeping.
func (s *Session) SetOutput(out Sink) { s.out = out }

// SetErrorWriter redirects the error stream.
func (s *Session) SetErrorWriter(w io.Writer) { s.errw = w }

// db returns the open connection, opening the configured database on
// first use.
func (s *Session) db() (engine.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	conn, err := engine.Open(s.Driver, s.DBPath)
	if err != nil {
		fmt.Fprintf(s.errw, "Error: unable to open database %q: %s\n", s.DBPath, err)
		return nil, err
	}
	s.log.Debug("database opened", zap.String("path", s.DBPath), zap.String("driver", s.Driver))
	s.conn = conn
	return conn, nil
}

// Interrupt flags the session and asks the engine to abandon the
// operation in flight. Safe to call from a signal handler goroutine.
func (s *Session) Interrupt() {
	s.interrupted.Store(true)
	if s.conn != nil {
		s.conn.Interrupt()
	}
}

func (s *Session) seenInterrupt() bool { return s.interrupted.Load() }
func (s *Session) clearInterrupt()     { s.interrupted.Store(false) }

// ExitCode reports the code requested by .exit, zero otherwise.
func (s *Session) ExitCode() int { return s.exitCode }

// Close releases the output sinks and the engine connection. The
// standard streams survive closing.
func (s *Session) Close() error {
	s.closeOutput()
	if s.traceOut != nil {
		s.traceOut.Close()
		s.traceOut = nil
	}
	if s.logOut != nil {
		s.logOut.Close()
		s.logOut = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// closeOutput shuts the current output sink and falls back to stdout.
func (s *Session) closeOutput() {
	if s.out != nil {
		s.out.Close()
	}
	s.out = stdSink{os.Stdout}
	s.outfile = ""
}

// setDestTable records the insert-mode target, quoting names that are
// not plain identifiers.
func (s *Session) setDestTable(name string) {
	needQuote := len(name) == 0 || !isAlpha(name[0]) && name[0] != '_'
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isAlnum(c) && c != '_' {
			needQuote = true
		}
	}
	if !needQuote {
		s.destTable = name
		return
	}
	quoted := make([]byte, 0, len(name)+2)
	quoted = append(quoted, '\'')
	for i := 0; i < len(name); i++ {
		quoted = append(quoted, name[i])
		if name[i] == '\'' {
			quoted = append(quoted, '\'')
		}
	}
	quoted = append(quoted, '\'')
	s.destTable = string(quoted)
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isAlnum(c byte) bool { return isAlpha(c) || c >= '0' && c <= '9' }
