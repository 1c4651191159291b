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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupCommandArgErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
		want string
	}{
		{"missing filename", ".backup", "missing FILENAME argument on .backup\n"},
		{"unknown option", ".backup -frob out.db", "unknown option: -frob\n"},
		{"too many arguments", ".backup main out.db extra", "too many arguments to .backup\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, _, errw := newTestSession()
			rc := s.DoMetaCommand(tt.line)
			assert.Equal(t, 1, rc)
			assert.Equal(t, tt.want, errw.String())
		})
	}
}

func TestBackupCommand(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE t(a); INSERT INTO t VALUES(1);")
	require.Zero(t, int(code))

	rc := s.DoMetaCommand(".backup out.db")
	assert.Equal(t, 0, rc)
	assert.Empty(t, errw.String())

	// source stays intact after the copy
	assert.Equal(t, 1, countRows(t, db, "t"))
}

func TestBackupCommandKeyOption(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE t(a);")
	require.Zero(t, int(code))

	rc := s.DoMetaCommand(".backup -key secret out.db")
	assert.Equal(t, 0, rc)
	assert.Empty(t, errw.String())
}

func TestRestoreCommandReplacesDatabase(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE t(a); INSERT INTO t VALUES(1);")
	require.Zero(t, int(code))

	// the restore source opens as a fresh database, so the session
	// database ends up empty
	rc := s.DoMetaCommand(".restore fresh.db")
	assert.Equal(t, 0, rc)
	assert.Empty(t, errw.String())

	err = db.Exec("SELECT * FROM t", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table: t")

	var names []string
	require.NoError(t, db.Exec("SELECT name FROM sqlite_master", func(values, _ []string) error {
		names = append(names, values[0])
		return nil
	}))
	assert.Empty(t, names)
}

func TestRestoreCommandNamedDatabase(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE t(a);")
	require.Zero(t, int(code))

	rc := s.DoMetaCommand(".restore main fresh.db")
	assert.Equal(t, 0, rc)
	assert.Empty(t, errw.String())
}
