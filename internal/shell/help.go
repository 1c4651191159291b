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

import "fmt"

// Version is the shell release string printed by .version and the
// startup banner.
const Version = "1.0.0"

const helpText = `.backup ?DB? FILE      Backup DB (default "main") to FILE
.bail ON|OFF           Stop after hitting an error.  Default OFF
.databases             List names and files of attached databases
.dump ?TABLE? ...      Dump the database in an SQL text format
                         If TABLE specified, only dump tables matching
                         LIKE pattern TABLE.
.echo ON|OFF           Turn command echo on or off
.exit                  Exit this program
.explain ?ON|OFF?      Turn output mode suitable for EXPLAIN on or off.
                         With no args, it turns EXPLAIN on.
.header(s) ON|OFF      Turn display of headers on or off
.help                  Show this message
.import FILE TABLE     Import data from FILE into TABLE
.indices ?TABLE?       Show names of all indices
                         If TABLE specified, only show indices for tables
                         matching LIKE pattern TABLE.
.load FILE ?ENTRY?     Load an extension library
.log FILE|off          Turn logging on or off.  FILE can be stderr/stdout
.mode MODE ?TABLE?     Set output mode where MODE is one of:
                         csv      Comma-separated values
                         column   Left-aligned columns.  (See .width)
                         html     HTML <table> code
                         insert   SQL insert statements for TABLE
                         line     One value per line
                         list     Values delimited by .separator string
                         tabs     Tab-separated values
                         tcl      TCL list elements
.nullvalue STRING      Use STRING in place of NULL values
.output FILENAME       Send output to FILENAME
.output stdout         Send output to the screen
.print STRING...       Print literal STRING
.prompt MAIN CONTINUE  Replace the standard prompts
.quit                  Exit this program
.read FILENAME         Execute SQL in FILENAME
.restore ?DB? FILE     Restore content of DB (default "main") from FILE
.schema ?TABLE?        Show the CREATE statements
                         If TABLE specified, only show tables matching
                         LIKE pattern TABLE.
.separator STRING      Change separator used by output mode and .import
.show                  Show the current values for various settings
.stats ON|OFF          Turn stats on or off
.tables ?TABLE?        List names of tables
                         If TABLE specified, only list tables matching
                         LIKE pattern TABLE.
.timeout MS            Try opening locked tables for MS milliseconds
.trace FILE|off        Output each SQL statement as it is run
.vfsname ?AUX?         Print the name of the VFS stack
.width NUM1 NUM2 ...   Set column widths for "column" mode
`

const timerHelpText = `.timer ON|OFF          Turn the CPU timer measurement on or off
`

// showCommand prints the current settings, one "name: value" line per
// setting.
func (s *Session) showCommand() {
	onoff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	fmt.Fprintf(s.out, "%9.9s: %s\n", "echo", onoff(s.Echo))
	fmt.Fprintf(s.out, "%9.9s: %s\n", "explain", onoff(s.explainPrev.valid))
	fmt.Fprintf(s.out, "%9.9s: %s\n", "headers", onoff(s.ShowHeader))
	fmt.Fprintf(s.out, "%9.9s: %s\n", "mode", s.Mode.String())
	fmt.Fprintf(s.out, "%9.9s: ", "nullvalue")
	outputCString(s.out, s.NullValue)
	fmt.Fprintf(s.out, "\n")
	outName := s.outfile
	if outName == "" {
		outName = "stdout"
	}
	fmt.Fprintf(s.out, "%9.9s: %s\n", "output", outName)
	fmt.Fprintf(s.out, "%9.9s: ", "separator")
	outputCString(s.out, s.Separator)
	fmt.Fprintf(s.out, "\n")
	fmt.Fprintf(s.out, "%9.9s: %s\n", "stats", onoff(s.Stats))
	fmt.Fprintf(s.out, "%9.9s: ", "width")
	for i := 0; i < numWidths && s.ColWidth[i] != 0; i++ {
		fmt.Fprintf(s.out, "%d ", s.ColWidth[i])
	}
	fmt.Fprintf(s.out, "\n")
}
