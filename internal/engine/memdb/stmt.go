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
	"sqlsh/internal/engine"
)

// stmt is one compiled statement. All statement kinds share the same
// shape: run produces the result rows (nil for mutations), and the
// step machinery walks them.
type stmt struct {
	db       *DB
	text     string
	colNames []string
	run      func(db *DB, binds []value) ([][]value, error)

	binds    []value
	started  bool
	rows     [][]value
	pos      int
	err      error
	fullscan int
	sorts    int
	vmsteps  int
}

var _ engine.Stmt = (*stmt)(nil)

func (s *stmt) Step() (bool, error) {
	if err := s.db.checkInterrupt(); err != nil {
		s.err = err
		return false, err
	}
	if !s.started {
		s.started = true
		s.db.mu.Lock()
		rows, err := s.run(s.db, s.binds)
		if err != nil {
			s.db.setErr(err)
		}
		s.db.mu.Unlock()
		if err != nil {
			s.err = err
			return false, err
		}
		s.rows = rows
	}
	if s.pos < len(s.rows) {
		s.pos++
		s.vmsteps++
		return true, nil
	}
	return false, nil
}

func (s *stmt) current() []value {
	if s.pos == 0 || s.pos > len(s.rows) {
		return nil
	}
	return s.rows[s.pos-1]
}

func (s *stmt) ColumnCount() int { return len(s.colNames) }

func (s *stmt) ColumnName(i int) string {
	if i < 0 || i >= len(s.colNames) {
		return ""
	}
	return s.colNames[i]
}

func (s *stmt) ColumnText(i int) (string, bool) {
	row := s.current()
	if row == nil || i < 0 || i >= len(row) {
		return "", false
	}
	v := row[i]
	if v.typ == engine.TypeNull {
		return "", false
	}
	if v.typ == engine.TypeBlob {
		return string(v.blob), true
	}
	return v.text, true
}

func (s *stmt) ColumnType(i int) engine.ColumnType {
	row := s.current()
	if row == nil || i < 0 || i >= len(row) {
		return engine.TypeNull
	}
	return row[i].typ
}

func (s *stmt) ColumnBlob(i int) []byte {
	row := s.current()
	if row == nil || i < 0 || i >= len(row) {
		return nil
	}
	if row[i].typ == engine.TypeBlob {
		return row[i].blob
	}
	return []byte(row[i].text)
}

func (s *stmt) BindText(i int, v string) error {
	if i < 1 {
		return engine.NewError(engine.ErrGeneric, "bind index out of range")
	}
	for len(s.binds) < i {
		s.binds = append(s.binds, nullValue)
	}
	s.binds[i-1] = textValue(v)
	return nil
}

func (s *stmt) Reset() error {
	s.started = false
	s.rows = nil
	s.pos = 0
	s.err = nil
	return nil
}

func (s *stmt) Finalize() error {
	err := s.err
	s.rows = nil
	s.run = nil
	return err
}

func (s *stmt) SQL() string { return s.text }

func (s *stmt) Counter(c engine.StmtCounter, reset bool) int {
	var p *int
	switch c {
	case engine.StmtFullscanStep:
		p = &s.fullscan
	case engine.StmtSort:
		p = &s.sorts
	case engine.StmtVMStep:
		p = &s.vmsteps
	default:
		return 0
	}
	n := *p
	if reset {
		*p = 0
	}
	return n
}
