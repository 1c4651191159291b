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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlsh/internal/engine"
)

func TestBackupRoundtrip(t *testing.T) {
	t.Parallel()
	src := openTestDB(t)
	dst := openTestDB(t)

	require.NoError(t, src.Exec("CREATE TABLE t(a, b);", nil))
	require.NoError(t, src.Exec("CREATE INDEX t_a ON t(a);", nil))
	for i := 0; i < 40; i++ {
		require.NoError(t, src.Exec(fmt.Sprintf("INSERT INTO t VALUES(%d, 'row');", i), nil))
	}
	// stale destination content must not survive the copy
	require.NoError(t, dst.Exec("CREATE TABLE old(z);", nil))

	bk, err := dst.Backup(src)
	require.NoError(t, err)
	steps := 0
	for {
		done, err := bk.Step(1)
		require.NoError(t, err)
		steps++
		if done {
			break
		}
	}
	require.NoError(t, bk.Finish())
	assert.Greater(t, steps, 1)

	rows := queryRows(t, dst, "SELECT name FROM sqlite_master ORDER BY 1")
	assert.Equal(t, [][]string{{"t"}, {"t_a"}}, rows)
	data := queryRows(t, dst, "SELECT a FROM t ORDER BY a DESC")
	require.Len(t, data, 40)
	assert.Equal(t, "9", data[30][0])
}

func TestBackupBusySource(t *testing.T) {
	t.Parallel()
	src := openTestDB(t)
	dst := openTestDB(t)

	require.NoError(t, src.Exec("CREATE TABLE t(a);", nil))
	require.NoError(t, src.Exec("INSERT INTO t VALUES(1);", nil))
	src.FailBackupSteps(2)

	bk, err := dst.Backup(src)
	require.NoError(t, err)
	busy := 0
	for {
		done, err := bk.Step(100)
		if err != nil {
			assert.Equal(t, engine.Busy, engine.CodeOf(err))
			busy++
			continue
		}
		if done {
			break
		}
	}
	require.NoError(t, bk.Finish())
	assert.Equal(t, 2, busy)

	rows := queryRows(t, dst, "SELECT a FROM t")
	assert.Equal(t, [][]string{{"1"}}, rows)
}

func TestBackupForeignSource(t *testing.T) {
	t.Parallel()
	dst := openTestDB(t)
	_, err := dst.Backup(nil)
	require.Error(t, err)
}
