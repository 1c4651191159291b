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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlsh/internal/engine"
)

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func countRows(t *testing.T, db engine.Conn, table string) int {
	t.Helper()
	n := 0
	require.NoError(t, db.Exec("SELECT * FROM "+table, func(values, names []string) error {
		n++
		return nil
	}))
	return n
}

func TestImportCommand(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE people(id, name);")
	require.Zero(t, int(code))

	path := writeImportFile(t, "1|alice\n2|bob\n3|carol\n")
	rc := s.importCommand(db, path, "people")
	assert.Equal(t, 0, rc)
	assert.Empty(t, errw.String())
	assert.Equal(t, 3, countRows(t, db, "people"))
}

func TestImportColumnMismatchRollsBack(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE people(id, name);")
	require.Zero(t, int(code))

	path := writeImportFile(t, "1|alice\n2|bob|extra\n")
	rc := s.importCommand(db, path, "people")
	assert.Equal(t, 1, rc)
	assert.Contains(t, errw.String(),
		fmt.Sprintf("Error: %s line 2: expected 2 columns of data but found 3", path))
	assert.Equal(t, 0, countRows(t, db, "people"))
}

func TestImportQuotedFields(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE notes(id, body);")
	require.Zero(t, int(code))

	path := writeImportFile(t, "1|\"plain\"\n2|\"has|pipe\"\n3|\"multi\nline\"\n4|\"say \"\"hi\"\"\"\n")
	rc := s.importCommand(db, path, "notes")
	require.Equal(t, 0, rc)

	var bodies []string
	require.NoError(t, db.Exec("SELECT body FROM notes", func(values, names []string) error {
		bodies = append(bodies, values[0])
		return nil
	}))
	assert.Equal(t, []string{"plain", "has|pipe", "multi\nline", `say "hi"`}, bodies)
}

func TestImportMissingFile(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE t(a);")
	require.Zero(t, int(code))

	rc := s.importCommand(db, "/no/such/data.txt", "t")
	assert.Equal(t, 1, rc)
	assert.Contains(t, errw.String(), "Error: cannot open \"/no/such/data.txt\"")
}

func TestImportUnknownTable(t *testing.T) {
	t.Parallel()
	s, _, errw := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)

	rc := s.importCommand(db, "irrelevant", "missing")
	assert.Equal(t, 1, rc)
	assert.Contains(t, errw.String(), "no such table: missing")
}

func TestImportCustomSeparator(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSession()
	s.Separator = ","
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE t(a, b);")
	require.Zero(t, int(code))

	path := writeImportFile(t, "1,x\n2,y\n")
	require.Equal(t, 0, s.importCommand(db, path, "t"))
	assert.Equal(t, 2, countRows(t, db, "t"))
}

func TestImportGeneratedData(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSession()
	db, err := s.DB()
	require.NoError(t, err)
	_, code := s.Exec(db, "CREATE TABLE users(id, name, city);")
	require.Zero(t, int(code))

	faker := gofakeit.New(11)
	var b strings.Builder
	const n = 50
	for i := 0; i < n; i++ {
		name := strings.ReplaceAll(faker.Name(), "|", " ")
		city := strings.ReplaceAll(faker.City(), "|", " ")
		fmt.Fprintf(&b, "%d|%s|%s\n", i, name, city)
	}
	path := writeImportFile(t, b.String())

	require.Equal(t, 0, s.importCommand(db, path, "users"))
	assert.Equal(t, n, countRows(t, db, "users"))
}
