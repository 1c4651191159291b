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

// backupRowsPerPage sets how many rows count as one backup page.
const backupRowsPerPage = 16

// backup copies a source database into a destination one page at a
// time. The page list is fixed when the backup starts: one page per
// catalog entry, plus one page per backupRowsPerPage rows of each
// table.
type backup struct {
	dst, src *DB
	pages    []backupPage
	pos      int
	finished bool
}

type backupPage struct {
	entry *catalogEntry // schema page
	table string        // data page
	from  int
}

func newBackup(dst, src *DB) *backup {
	src.mu.Lock()
	defer src.mu.Unlock()
	b := &backup{dst: dst, src: src}
	for i := range src.catalog {
		e := src.catalog[i]
		b.pages = append(b.pages, backupPage{entry: &e})
	}
	for name, t := range src.tables {
		for from := 0; from < len(t.rows) || from == 0; from += backupRowsPerPage {
			b.pages = append(b.pages, backupPage{table: name, from: from})
			if len(t.rows) == 0 {
				break
			}
		}
	}
	return b
}

// Step implements engine.Backup.
func (b *backup) Step(nPages int) (bool, error) {
	if b.finished {
		return true, nil
	}
	b.src.mu.Lock()
	if b.src.busyBackup > 0 {
		b.src.busyBackup--
		b.src.mu.Unlock()
		return false, engine.NewError(engine.Busy, "database is locked")
	}
	b.src.mu.Unlock()

	b.dst.mu.Lock()
	defer b.dst.mu.Unlock()
	b.src.mu.Lock()
	defer b.src.mu.Unlock()

	if b.pos == 0 {
		// a backup replaces the destination wholesale
		b.dst.tables = make(map[string]*table)
		b.dst.catalog = nil
	}
	for n := 0; n < nPages && b.pos < len(b.pages); n++ {
		p := b.pages[b.pos]
		b.pos++
		if p.entry != nil {
			b.dst.catalog = append(b.dst.catalog, *p.entry)
			continue
		}
		st := b.src.tables[p.table]
		if st == nil {
			continue
		}
		key := strings.ToLower(p.table)
		dt := b.dst.tables[key]
		if dt == nil {
			dt = &table{name: st.name, cols: append([]column(nil), st.cols...)}
			b.dst.tables[key] = dt
		}
		end := p.from + backupRowsPerPage
		if end > len(st.rows) {
			end = len(st.rows)
		}
		for _, row := range st.rows[p.from:end] {
			dt.rows = append(dt.rows, append([]value(nil), row...))
		}
	}
	if b.pos >= len(b.pages) {
		b.finished = true
		return true, nil
	}
	return false, nil
}

// Finish implements engine.Backup.
func (b *backup) Finish() error {
	b.pages = nil
	b.finished = true
	return nil
}
