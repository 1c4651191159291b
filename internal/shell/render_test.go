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
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"sqlsh/internal/engine"
)

func TestRenderListMode(t *testing.T) {
	t.Parallel()
	s, out, _ := newTestSession()
	s.ShowHeader = true

	s.RenderRow([]string{"a", "b"}, []string{"1", "2"}, nil, nil)
	s.RenderRow([]string{"a", "b"}, []string{"3", "4"}, nil, nil)
	assert.Equal(t, "a|b\n1|2\n3|4\n", out.String())

	t.Run("null substitution", func(t *testing.T) {
		s, out, _ := newTestSession()
		s.NullValue = "~"
		s.RenderRow([]string{"a"}, []string{""}, []bool{true}, nil)
		assert.Equal(t, "~\n", out.String())
	})

	t.Run("custom separator", func(t *testing.T) {
		s, out, _ := newTestSession()
		s.Separator = "\t"
		s.RenderRow([]string{"a", "b"}, []string{"1", "2"}, nil, nil)
		assert.Equal(t, "1\t2\n", out.String())
	})
}

func TestRenderSemiMode(t *testing.T) {
	t.Parallel()
	s, out, _ := newTestSession()
	s.Mode = ModeSemi

	s.RenderRow([]string{"sql"}, []string{"CREATE TABLE t(a)"}, nil, nil)
	assert.Equal(t, "CREATE TABLE t(a);\n", out.String())
}

func TestRenderLineMode(t *testing.T) {
	t.Parallel()
	s, out, _ := newTestSession()
	s.Mode = ModeLine

	s.RenderRow([]string{"one", "b"}, []string{"x", "y"}, nil, nil)
	s.RenderRow([]string{"one", "b"}, []string{"p", "q"}, nil, nil)
	assert.Equal(t, "  one = x\n    b = y\n\n  one = p\n    b = q\n", out.String())
}

func TestRenderColumnMode(t *testing.T) {
	t.Parallel()

	t.Run("default width", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeColumn
		s.ShowHeader = true
		s.RenderRow([]string{"a", "b"}, []string{"1", "2"}, nil, nil)
		want := fmt.Sprintf("%-10s  %-10s\n", "a", "b") +
			fmt.Sprintf("%-10s  %-10s\n", "----------", "----------") +
			fmt.Sprintf("%-10s  %-10s\n", "1", "2")
		assert.Equal(t, want, out.String())
	})

	t.Run("wide value widens the column", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeColumn
		s.RenderRow([]string{"a"}, []string{"hello whole world"}, nil, nil)
		assert.Equal(t, "hello whole world\n", out.String())
	})

	t.Run("configured width truncates", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeColumn
		s.ColWidth[0] = 4
		s.RenderRow([]string{"a"}, []string{"abcdefgh"}, nil, nil)
		assert.Equal(t, "abcd\n", out.String())
	})

	t.Run("negative width right-justifies", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeColumn
		s.ShowHeader = true
		s.ColWidth[0] = -3
		s.RenderRow([]string{"a"}, []string{"ab"}, nil, nil)
		assert.Equal(t, "  a\n---\n ab\n", out.String())
	})

	t.Run("width frozen at the first row", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeColumn
		s.RenderRow([]string{"a"}, []string{"12345678901234"}, nil, nil)
		s.RenderRow([]string{"a"}, []string{"x"}, nil, nil)
		assert.Equal(t, "12345678901234\nx             \n", out.String())
	})
}

func TestRenderExplainMode(t *testing.T) {
	t.Parallel()
	s, out, _ := newTestSession()
	s.Mode = ModeExplain
	s.ShowHeader = true
	s.ColWidth[0] = 2

	s.RenderRow([]string{"op"}, []string{"OpenRead"}, nil, nil)
	// headers hold the configured width, values grow past it
	assert.Equal(t, "op\n--\nOpenRead\n", out.String())
}

func TestRenderHTMLMode(t *testing.T) {
	t.Parallel()
	s, out, _ := newTestSession()
	s.Mode = ModeHTML
	s.ShowHeader = true

	s.RenderRow([]string{"a"}, []string{"<x> & \"y\""}, nil, nil)
	assert.Equal(t,
		"<TR><TH>a</TH>\n</TR>\n<TR><TD>&lt;x&gt; &amp; &quot;y&quot;</TD>\n</TR>\n",
		out.String())
}

func TestRenderTclMode(t *testing.T) {
	t.Parallel()
	s, out, _ := newTestSession()
	s.Mode = ModeTcl
	s.Separator = " "

	s.RenderRow([]string{"a", "b"}, []string{"x\ty", `q"t`}, nil, nil)
	assert.Equal(t, "\"x\\ty\" \"q\\\"t\"\n", out.String())

	t.Run("octal escape", func(t *testing.T) {
		s, out, _ := newTestSession()
		s.Mode = ModeTcl
		s.RenderRow([]string{"a"}, []string{"\x01"}, nil, nil)
		assert.Equal(t, "\"\\001\"\n", out.String())
	})
}

func TestRenderCSVMode(t *testing.T) {
	t.Parallel()

	t.Run("quoting", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeCSV
		s.Separator = ","
		s.RenderRow([]string{"a", "b", "c"},
			[]string{"plain", "a b", `he said "hi"`}, nil, nil)
		assert.Equal(t, "plain,\"a b\",\"he said \"\"hi\"\"\"\n", out.String())
	})

	t.Run("separator byte forces quoting", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeCSV
		s.Separator = ","
		s.RenderRow([]string{"a"}, []string{"x,y"}, nil, nil)
		assert.Equal(t, "\"x,y\"\n", out.String())
	})

	t.Run("null stays bare", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeCSV
		s.Separator = ","
		s.NullValue = "NULL"
		s.RenderRow([]string{"a", "b"}, []string{"", "v"}, []bool{true, false}, nil)
		assert.Equal(t, "NULL,v\n", out.String())
	})

	t.Run("header row", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeCSV
		s.Separator = ","
		s.ShowHeader = true
		s.RenderRow([]string{"x y", "z"}, []string{"1", "2"}, nil, nil)
		assert.Equal(t, "\"x y\",z\n1,2\n", out.String())
	})
}

func TestRenderInsertMode(t *testing.T) {
	t.Parallel()

	t.Run("typed values", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeInsert
		s.setDestTable("t1")
		s.RenderRow([]string{"a", "b", "c"},
			[]string{"O'Brien", "42", ""},
			[]bool{false, false, true},
			[]engine.ColumnType{engine.TypeText, engine.TypeInteger, engine.TypeNull})
		assert.Equal(t, "INSERT INTO t1 VALUES('O''Brien',42,NULL);\n", out.String())
	})

	t.Run("untyped values sniff numbers", func(t *testing.T) {
		t.Parallel()
		s, out, _ := newTestSession()
		s.Mode = ModeInsert
		s.setDestTable("t1")
		s.RenderRow([]string{"a", "b"}, []string{"42", "x y"}, nil, nil)
		assert.Equal(t, "INSERT INTO t1 VALUES(42,'x y');\n", out.String())
	})
}

func TestSetDestTable(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSession()

	s.setDestTable("plain_name")
	assert.Equal(t, "plain_name", s.destTable)

	s.setDestTable("weird name")
	assert.Equal(t, "'weird name'", s.destTable)

	s.setDestTable("it's")
	assert.Equal(t, "'it''s'", s.destTable)

	s.setDestTable("")
	assert.Equal(t, "''", s.destTable)
}

func TestOutputHelpers(t *testing.T) {
	t.Parallel()

	t.Run("hex blob", func(t *testing.T) {
		var b bytes.Buffer
		outputHexBlob(&b, []byte{0xde, 0xad, 0x01})
		assert.Equal(t, "X'dead01'", b.String())
	})

	t.Run("quoted string", func(t *testing.T) {
		var b bytes.Buffer
		outputQuotedString(&b, "it's")
		assert.Equal(t, "'it''s'", b.String())
	})
}
