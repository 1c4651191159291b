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
	"time"

	"sqlsh/internal/engine"
)

// backupPagesPerStep bounds how much one backup step copies; between
// steps the source stays available to other users.
const backupPagesPerStep = 100

// backupCommand implements .backup [DB] FILE: copy the session
// database into destFile page batches at a time.
func (s *Session) backupCommand(args []string) int {
	var destFile, dbName, key string
	for j := 1; j < len(args); j++ {
		z := args[j]
		switch {
		case len(z) > 0 && z[0] == '-':
			for len(z) > 0 && z[0] == '-' {
				z = z[1:]
			}
			if z == "key" && j < len(args)-1 {
				j++
				key = args[j]
			} else {
				fmt.Fprintf(s.errw, "unknown option: %s\n", args[j])
				return 1
			}
		case destFile == "":
			destFile = args[j]
		case dbName == "":
			dbName = destFile
			destFile = args[j]
		default:
			fmt.Fprintf(s.errw, "too many arguments to .backup\n")
			return 1
		}
	}
	if destFile == "" {
		fmt.Fprintf(s.errw, "missing FILENAME argument on .backup\n")
		return 1
	}
	if dbName == "" {
		dbName = "main"
	}
	_ = key // encryption keys are not supported by any registered engine

	dest, err := engine.Open(s.Driver, destFile)
	if err != nil {
		fmt.Fprintf(s.errw, "Error: cannot open \"%s\"\n", destFile)
		return 1
	}
	db, derr := s.db()
	if derr != nil {
		dest.Close()
		return 1
	}
	bk, err := dest.Backup(db)
	if err != nil {
		fmt.Fprintf(s.errw, "Error: %s\n", dest.ErrMsg())
		dest.Close()
		return 1
	}
	var code engine.Code
	for {
		done, serr := bk.Step(backupPagesPerStep)
		code = engine.CodeOf(serr)
		if done {
			code = engine.Done
			break
		}
		if code != engine.OK {
			break
		}
	}
	bk.Finish()
	rc := 0
	if code != engine.Done {
		fmt.Fprintf(s.errw, "Error: %s\n", dest.ErrMsg())
		rc = 1
	}
	dest.Close()
	return rc
}

// restoreCommand implements .restore [DB] FILE: copy srcFile over the
// session database, waiting out a briefly busy source a few times
// before giving up.
func (s *Session) restoreCommand(args []string) int {
	var srcFile, dbName string
	if len(args) == 2 {
		srcFile = args[1]
		dbName = "main"
	} else {
		srcFile = args[2]
		dbName = args[1]
	}
	_ = dbName

	src, err := engine.Open(s.Driver, srcFile)
	if err != nil {
		fmt.Fprintf(s.errw, "Error: cannot open \"%s\"\n", srcFile)
		return 1
	}
	db, derr := s.db()
	if derr != nil {
		src.Close()
		return 1
	}
	bk, err := db.Backup(src)
	if err != nil {
		fmt.Fprintf(s.errw, "Error: %s\n", db.ErrMsg())
		src.Close()
		return 1
	}
	nTimeout := 0
	var code engine.Code
	for {
		done, serr := bk.Step(backupPagesPerStep)
		code = engine.CodeOf(serr)
		if done {
			code = engine.Done
			break
		}
		if code == engine.OK {
			continue
		}
		if code == engine.Busy {
			if nTimeout >= 3 {
				break
			}
			nTimeout++
			time.Sleep(100 * time.Millisecond)
			continue
		}
		break
	}
	bk.Finish()
	rc := 0
	switch {
	case code == engine.Done:
	case code == engine.Busy || code == engine.Locked:
		fmt.Fprintf(s.errw, "Error: source database is busy\n")
		rc = 1
	default:
		fmt.Fprintf(s.errw, "Error: %s\n", db.ErrMsg())
		rc = 1
	}
	src.Close()
	return rc
}
