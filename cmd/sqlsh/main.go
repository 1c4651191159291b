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

// Command sqlsh is an interactive SQL shell: it reads SQL statements
// and dot-commands from a terminal, a file or a pipe, and runs them
// against an embedded database engine.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	_ "sqlsh/internal/engine/memdb"
	"sqlsh/internal/logging"
	"sqlsh/internal/shell"
)

var argv0 = "sqlsh"

const optionsText = `   -bail                stop after hitting an error
   -batch               force batch I/O
   -column              set output mode to 'column'
   -cmd COMMAND         run "COMMAND" before reading stdin
   -csv                 set output mode to 'csv'
   -debug               enable debug logging on stderr
   -echo                print commands before execution
   -init FILENAME       read/process named file
   -[no]header          turn headers on or off
   -help                show this message
   -html                set output mode to HTML
   -interactive         force interactive I/O
   -line                set output mode to 'line'
   -list                set output mode to 'list'
   -loglevel LEVEL      set the diagnostic log level. Default 'error'
   -nullvalue TEXT      set text string for NULL values. Default ''
   -separator SEP       set output field separator. Default: '|'
   -stats               print memory stats before each finalize
   -version             show version information
   -vfs NAME            use NAME as the storage driver
`

func usage(showDetail bool) {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] FILENAME [SQL]\n"+
		"FILENAME is the name of a database. A new database is created\n"+
		"if the file does not previously exist.\n", argv0)
	if showDetail {
		fmt.Fprintf(os.Stderr, "OPTIONS include:\n%s", optionsText)
	} else {
		fmt.Fprintf(os.Stderr, "Use the -help option for additional information\n")
	}
	os.Exit(1)
}

// optionValue returns the argument of an -option, dying when the
// command line ends first.
func optionValue(args []string, i int) string {
	if i >= len(args) {
		fmt.Fprintf(os.Stderr, "%s: Error: missing argument to %s\n",
			argv0, args[len(args)-1])
		os.Exit(1)
	}
	return args[i]
}

// readlineReader adapts a readline instance to shell.LineReader.
// Ctrl-C flags an interrupt on the session and yields an empty line;
// Ctrl-D ends input.
type readlineReader struct {
	rl *readline.Instance
	s  *shell.Session
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	if err == readline.ErrInterrupt {
		r.s.Interrupt()
		return "", nil
	}
	if err != nil {
		return "", io.EOF
	}
	return line, nil
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sqlsh_history")
}

// metaCompletions lists the dot-commands offered for tab completion.
var metaCompletions = []string{
	".backup", ".bail", ".databases", ".dump", ".echo", ".exit",
	".explain", ".headers", ".help", ".import", ".indices", ".log",
	".mode", ".nullvalue", ".output", ".print", ".prompt", ".quit",
	".read", ".restore", ".schema", ".separator", ".show", ".stats",
	".tables", ".timeout", ".timer", ".trace", ".version", ".vfsname",
	".width",
}

func createCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(metaCompletions))
	for _, cmd := range metaCompletions {
		items = append(items, readline.PcItem(cmd))
	}
	return readline.NewPrefixCompleter(items...)
}

func filterInput(r rune) (rune, bool) {
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}

func createReadlineInstance(prompt string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:              prompt,
		HistoryFile:         historyFilePath(),
		HistoryLimit:        100,
		AutoComplete:        createCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	argv0 = args[0]
	debug := false
	var initFile, dbFile, firstCmd, logLevel string

	s := shell.NewSession(nil)
	defer s.Close()
	s.Interactive = term.IsTerminal(int(os.Stdin.Fd()))

	// Catch Ctrl-C early so a long first command can be interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)
	go func() {
		for range sig {
			s.Interrupt()
		}
	}()

	// First pass: find the database file, the init file and the first
	// command, plus anything that must be known before the init file
	// runs.
	for i := 1; i < len(args); i++ {
		z := args[i]
		if !strings.HasPrefix(z, "-") {
			if dbFile == "" {
				dbFile = z
				continue
			}
			if firstCmd == "" {
				firstCmd = z
				continue
			}
			fmt.Fprintf(os.Stderr, "%s: Error: too many options: \"%s\"\n", argv0, z)
			fmt.Fprintf(os.Stderr, "Use -help for a list of options.\n")
			return 1
		}
		if strings.HasPrefix(z, "--") {
			z = z[1:]
		}
		switch z {
		case "-separator", "-nullvalue", "-cmd", "-vfs":
			i++
			optionValue(args, i)
		case "-init":
			i++
			initFile = optionValue(args, i)
		case "-loglevel":
			i++
			logLevel = optionValue(args, i)
		case "-batch":
			// Known early so the init file runs without chatter.
			s.Interactive = false
		case "-debug":
			debug = true
		}
	}
	if dbFile == "" {
		dbFile = ":memory:"
	}
	s.DBPath = dbFile

	level := zapcore.ErrorLevel
	if logLevel != "" {
		l, err := logging.ParseLevel(logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: Error: unknown log level: %s\n", argv0, logLevel)
			return 1
		}
		level = l
	}
	if debug {
		level = zapcore.DebugLevel
	}
	s.SetLogger(logging.New(level))

	// The init file runs before the second pass so command-line
	// options override anything it sets.
	if rc := s.ProcessRC(initFile); rc > 0 {
		return rc
	}

	// Second pass: apply the options.
	for i := 1; i < len(args); i++ {
		z := args[i]
		if !strings.HasPrefix(z, "-") {
			continue
		}
		if strings.HasPrefix(z, "--") {
			z = z[1:]
		}
		switch z {
		case "-init", "-debug", "-loglevel":
			if z != "-debug" {
				i++
			}
		case "-html":
			s.Mode = shell.ModeHTML
		case "-list":
			s.Mode = shell.ModeList
		case "-line":
			s.Mode = shell.ModeLine
		case "-column":
			s.Mode = shell.ModeColumn
		case "-csv":
			s.Mode = shell.ModeCSV
			s.Separator = ","
		case "-separator":
			i++
			s.Separator = optionValue(args, i)
		case "-nullvalue":
			i++
			s.NullValue = optionValue(args, i)
		case "-header":
			s.ShowHeader = true
		case "-noheader":
			s.ShowHeader = false
		case "-echo":
			s.Echo = true
		case "-stats":
			s.Stats = true
		case "-bail":
			s.Bail = true
		case "-version":
			fmt.Printf("sqlsh %s\n", shell.Version)
			return 0
		case "-interactive":
			s.Interactive = true
		case "-batch":
			s.Interactive = false
		case "-vfs":
			i++
			s.Driver = optionValue(args, i)
		case "-help":
			usage(true)
		case "-cmd":
			if i == len(args)-1 {
				break
			}
			i++
			cmd := optionValue(args, i)
			if rc := runOneCommand(s, cmd); rc != 0 && s.Bail {
				return rc
			}
		default:
			fmt.Fprintf(os.Stderr, "%s: Error: unknown option: %s\n", argv0, z)
			fmt.Fprintf(os.Stderr, "Use -help for a list of options.\n")
			return 1
		}
	}

	if firstCmd != "" {
		// Run just the command that follows the database name.
		if strings.HasPrefix(firstCmd, ".") {
			rc := s.DoMetaCommand(firstCmd)
			if rc == 2 {
				rc = s.ExitCode()
			}
			return rc
		}
		return runSQL(s, firstCmd)
	}

	// Run commands received from standard input.
	var rc int
	if s.Interactive {
		fmt.Printf("sqlsh version %s\n"+
			"Enter \".help\" for instructions\n"+
			"Enter SQL statements terminated with a \";\"\n",
			shell.Version)
		rl, err := createReadlineInstance(s.MainPrompt)
		if err != nil {
			rc = s.ProcessInput(shell.NewIOLineReader(os.Stdin), false)
		} else {
			rc = s.ProcessInput(&readlineReader{rl: rl, s: s}, false)
			rl.Close()
		}
	} else {
		rc = s.ProcessInput(shell.NewIOLineReader(os.Stdin), false)
	}
	if code := s.ExitCode(); code != 0 {
		return code
	}
	return rc
}

// runOneCommand handles a -cmd argument: a dot-command or SQL text.
func runOneCommand(s *shell.Session, cmd string) int {
	if strings.HasPrefix(cmd, ".") {
		rc := s.DoMetaCommand(cmd)
		if rc == 2 {
			return 0
		}
		return rc
	}
	return runSQL(s, cmd)
}

// runSQL evaluates SQL text outside the input loop and reports errors
// the way the batch reader does.
func runSQL(s *shell.Session, sqlText string) int {
	db, err := s.DB()
	if err != nil {
		return 1
	}
	errMsg, code := s.Exec(db, sqlText)
	if errMsg != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errMsg)
		if code != 0 {
			return int(code)
		}
		return 1
	}
	if code != 0 {
		fmt.Fprintf(os.Stderr, "Error: unable to process SQL \"%s\"\n", sqlText)
		return int(code)
	}
	return 0
}
