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
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"sqlsh/internal/engine"
)

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token {
	if p.i >= len(p.toks) {
		return token{kind: tkEOF}
	}
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.peek()
	p.i++
	return t
}

func (p *parser) atKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tkIdent && strings.EqualFold(t.text, kw)
}

// eatKeyword consumes the next token when it matches kw.
func (p *parser) eatKeyword(kw string) bool {
	if p.atKeyword(kw) {
		p.i++
		return true
	}
	return false
}

func (p *parser) eatPunct(s string) bool {
	t := p.peek()
	if t.kind == tkPunct && t.text == s {
		p.i++
		return true
	}
	return false
}

func (p *parser) ident() (string, error) {
	t := p.next()
	if t.kind != tkIdent {
		return "", syntaxErr(t)
	}
	return t.text, nil
}

// tableName parses an optionally qualified name and returns its final
// component.
func (p *parser) tableName() (string, error) {
	name, err := p.ident()
	if err != nil {
		return "", err
	}
	for p.eatPunct(".") {
		if name, err = p.ident(); err != nil {
			return "", err
		}
	}
	return name, nil
}

func syntaxErr(t token) error {
	if t.kind == tkEOF {
		return engine.NewError(engine.ErrGeneric, "incomplete input")
	}
	return engine.NewError(engine.ErrGeneric, "near %q: syntax error", t.text)
}

// compile parses one statement into an executable stmt.
func (db *DB) compile(text string) (*stmt, error) {
	toks, err := lexSQL(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	// strip a trailing semicolon
	if n := len(p.toks); n > 0 && p.toks[n-1].kind == tkPunct && p.toks[n-1].text == ";" {
		p.toks = p.toks[:n-1]
	}
	if len(p.toks) == 0 {
		return nil, nil
	}
	s := &stmt{db: db, text: text}
	head := p.peek()
	if head.kind != tkIdent {
		return nil, syntaxErr(head)
	}
	switch strings.ToUpper(head.text) {
	case "CREATE":
		err = db.compileCreate(p, s)
	case "INSERT":
		err = db.compileInsert(p, s)
	case "DELETE":
		err = db.compileDelete(p, s)
	case "DROP":
		err = db.compileDrop(p, s)
	case "SELECT":
		err = db.compileSelect(p, s)
	case "PRAGMA":
		err = db.compilePragma(p, s)
	case "EXPLAIN":
		err = db.compileExplain(p, s)
	case "BEGIN":
		s.run = func(db *DB, _ []value) ([][]value, error) {
			if db.txn != nil {
				return nil, engine.NewError(engine.ErrGeneric, "cannot start a transaction within a transaction")
			}
			db.beginSnapshot()
			return nil, nil
		}
	case "COMMIT", "END":
		s.run = func(db *DB, _ []value) ([][]value, error) {
			if db.txn == nil {
				return nil, engine.NewError(engine.ErrGeneric, "cannot commit - no transaction is active")
			}
			db.txn = nil
			return nil, nil
		}
	case "ROLLBACK":
		s.run = func(db *DB, _ []value) ([][]value, error) {
			if db.txn == nil {
				return nil, engine.NewError(engine.ErrGeneric, "cannot rollback - no transaction is active")
			}
			db.rollbackSnapshot()
			return nil, nil
		}
	case "SAVEPOINT":
		s.run = func(db *DB, _ []value) ([][]value, error) {
			db.beginSnapshot()
			return nil, nil
		}
	case "RELEASE":
		s.run = func(db *DB, _ []value) ([][]value, error) {
			db.txn = nil
			return nil, nil
		}
	case "ANALYZE", "VACUUM", "REINDEX":
		s.run = func(*DB, []value) ([][]value, error) { return nil, nil }
	default:
		return nil, syntaxErr(head)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeSQL(text string) string {
	return strings.TrimRight(strings.TrimSpace(text), "; \t\n\r")
}

var constraintKeywords = map[string]bool{
	"PRIMARY": true, "UNIQUE": true, "CHECK": true,
	"FOREIGN": true, "CONSTRAINT": true,
}

var declStopKeywords = map[string]bool{
	"PRIMARY": true, "NOT": true, "NULL": true, "UNIQUE": true,
	"CHECK": true, "DEFAULT": true, "REFERENCES": true,
	"COLLATE": true, "GENERATED": true, "AS": true,
}

// skipBalanced consumes tokens until a top-level ',' or ')'. The ','
// is consumed, the ')' is left in place.
func (p *parser) skipBalanced() {
	depth := 0
	for {
		t := p.peek()
		if t.kind == tkEOF {
			return
		}
		if t.kind == tkPunct {
			switch t.text {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					return
				}
				depth--
			case ",":
				if depth == 0 {
					p.i++
					return
				}
			}
		}
		p.i++
	}
}

func (db *DB) compileCreate(p *parser, s *stmt) error {
	p.next() // CREATE
	p.eatKeyword("TEMP")
	p.eatKeyword("TEMPORARY")
	unique := p.eatKeyword("UNIQUE")
	virtual := p.eatKeyword("VIRTUAL")
	kindTok := p.next()
	if kindTok.kind != tkIdent {
		return syntaxErr(kindTok)
	}
	kind := strings.ToUpper(kindTok.text)
	if unique && kind != "INDEX" {
		return syntaxErr(kindTok)
	}
	ifNotExists := false
	if p.eatKeyword("IF") {
		if !p.eatKeyword("NOT") || !p.eatKeyword("EXISTS") {
			return syntaxErr(p.peek())
		}
		ifNotExists = true
	}
	name, err := p.tableName()
	if err != nil {
		return err
	}
	sqlText := normalizeSQL(s.text)

	switch {
	case virtual && kind == "TABLE":
		// catalog entry only; virtual tables have no local storage
		s.run = func(db *DB, _ []value) ([][]value, error) {
			db.addCatalog(catalogEntry{typ: "table", name: name, tblName: name, sql: sqlText})
			return nil, nil
		}
		return nil
	case kind == "TABLE":
		var cols []column
		if !p.eatPunct("(") {
			return syntaxErr(p.peek())
		}
		for {
			t := p.peek()
			if t.kind != tkIdent {
				return syntaxErr(t)
			}
			if constraintKeywords[strings.ToUpper(t.text)] {
				p.skipBalanced()
			} else {
				p.i++
				col := column{name: t.text}
				var decl []string
				for {
					d := p.peek()
					if d.kind != tkIdent || declStopKeywords[strings.ToUpper(d.text)] {
						break
					}
					decl = append(decl, d.text)
					p.i++
				}
				col.declType = strings.Join(decl, " ")
				cols = append(cols, col)
				p.skipBalanced()
			}
			if p.eatPunct(")") {
				break
			}
			if p.peek().kind == tkEOF {
				return syntaxErr(p.peek())
			}
		}
		s.run = func(db *DB, _ []value) ([][]value, error) {
			key := strings.ToLower(name)
			if _, exists := db.tables[key]; exists {
				if ifNotExists {
					return nil, nil
				}
				return nil, engine.NewError(engine.ErrGeneric, "table %s already exists", name)
			}
			db.tables[key] = &table{name: name, cols: cols}
			db.addCatalog(catalogEntry{typ: "table", name: name, tblName: name, sql: sqlText})
			return nil, nil
		}
		return nil
	case kind == "INDEX":
		if !p.eatKeyword("ON") {
			return syntaxErr(p.peek())
		}
		onTable, err := p.tableName()
		if err != nil {
			return err
		}
		s.run = func(db *DB, _ []value) ([][]value, error) {
			db.addCatalog(catalogEntry{typ: "index", name: name, tblName: onTable, sql: sqlText})
			return nil, nil
		}
		return nil
	case kind == "VIEW":
		s.run = func(db *DB, _ []value) ([][]value, error) {
			db.addCatalog(catalogEntry{typ: "view", name: name, tblName: name, sql: sqlText})
			return nil, nil
		}
		return nil
	case kind == "TRIGGER":
		onTable := name
		for p.peek().kind != tkEOF {
			if p.eatKeyword("ON") {
				if t, err := p.tableName(); err == nil {
					onTable = t
				}
				break
			}
			p.i++
		}
		s.run = func(db *DB, _ []value) ([][]value, error) {
			db.addCatalog(catalogEntry{typ: "trigger", name: name, tblName: onTable, sql: sqlText})
			return nil, nil
		}
		return nil
	}
	return syntaxErr(kindTok)
}

func (db *DB) addCatalog(e catalogEntry) {
	e.rootpage = len(db.catalog) + 2
	db.catalog = append(db.catalog, e)
	db.noteMem(len(e.sql) + 64)
}

// insertExpr is one VALUES item: a literal or a positional parameter.
type insertExpr struct {
	lit   value
	param int // 1-based, 0 for literals
}

func (p *parser) literalValue() (value, error) {
	t := p.next()
	switch t.kind {
	case tkString:
		return textValue(t.text), nil
	case tkNumber:
		return numberValue(t.text), nil
	case tkBlob:
		b, err := hex.DecodeString(t.text)
		if err != nil {
			return nullValue, engine.NewError(engine.ErrGeneric, "unrecognized token: \"X'%s'\"", t.text)
		}
		return value{typ: engine.TypeBlob, blob: b}, nil
	case tkPunct:
		if t.text == "-" || t.text == "+" {
			n := p.next()
			if n.kind != tkNumber {
				return nullValue, syntaxErr(n)
			}
			v := numberValue(n.text)
			if t.text == "-" {
				v.text = "-" + v.text
			}
			return v, nil
		}
	case tkIdent:
		if strings.EqualFold(t.text, "NULL") {
			return nullValue, nil
		}
	}
	return nullValue, syntaxErr(t)
}

func numberValue(text string) value {
	if strings.ContainsAny(text, ".eE") {
		return floatValue(text)
	}
	return intValue(text)
}

func (db *DB) compileInsert(p *parser, s *stmt) error {
	p.next() // INSERT
	p.eatKeyword("OR")
	p.eatKeyword("REPLACE")
	p.eatKeyword("IGNORE")
	if !p.eatKeyword("INTO") {
		return syntaxErr(p.peek())
	}
	name, err := p.tableName()
	if err != nil {
		return err
	}
	var colList []string
	if p.eatPunct("(") {
		for {
			c, err := p.ident()
			if err != nil {
				return err
			}
			colList = append(colList, c)
			if p.eatPunct(")") {
				break
			}
			if !p.eatPunct(",") {
				return syntaxErr(p.peek())
			}
		}
	}
	if !p.eatKeyword("VALUES") {
		return syntaxErr(p.peek())
	}
	if !p.eatPunct("(") {
		return syntaxErr(p.peek())
	}
	var exprs []insertExpr
	nParam := 0
	for {
		if p.peek().kind == tkParam {
			p.i++
			nParam++
			exprs = append(exprs, insertExpr{param: nParam})
		} else {
			v, err := p.literalValue()
			if err != nil {
				return err
			}
			exprs = append(exprs, insertExpr{lit: v})
		}
		if p.eatPunct(")") {
			break
		}
		if !p.eatPunct(",") {
			return syntaxErr(p.peek())
		}
	}
	s.run = func(db *DB, binds []value) ([][]value, error) {
		vals := make([]value, len(exprs))
		for i, e := range exprs {
			if e.param > 0 {
				if e.param <= len(binds) {
					vals[i] = binds[e.param-1]
				} else {
					vals[i] = nullValue
				}
			} else {
				vals[i] = e.lit
			}
		}
		return nil, db.doInsert(name, colList, vals)
	}
	return nil
}

func (db *DB) doInsert(name string, colList []string, vals []value) error {
	if strings.EqualFold(name, "sqlite_master") {
		return db.insertCatalog(colList, vals)
	}
	t := db.lookupTable(name)
	if t == nil {
		return engine.NewError(engine.ErrGeneric, "no such table: %s", name)
	}
	row := make([]value, len(t.cols))
	for i := range row {
		row[i] = nullValue
	}
	if len(colList) == 0 {
		if len(vals) != len(t.cols) {
			return engine.NewError(engine.ErrGeneric,
				"table %s has %d columns but %d values were supplied", name, len(t.cols), len(vals))
		}
		copy(row, vals)
	} else {
		if len(vals) != len(colList) {
			return engine.NewError(engine.ErrGeneric,
				"%d values for %d columns", len(vals), len(colList))
		}
		for i, cn := range colList {
			idx := t.colIndex(cn)
			if idx < 0 {
				return engine.NewError(engine.ErrGeneric, "table %s has no column named %s", name, cn)
			}
			row[idx] = vals[i]
		}
	}
	t.rows = append(t.rows, row)
	n := 0
	for _, v := range row {
		n += len(v.text) + len(v.blob) + 16
	}
	db.noteMem(n)
	return nil
}

// insertCatalog handles the restore path of dumped virtual tables,
// which write rows straight into sqlite_master under
// PRAGMA writable_schema=ON.
func (db *DB) insertCatalog(colList []string, vals []value) error {
	if !db.writableSchema {
		return engine.NewError(engine.ErrGeneric, "table sqlite_master may not be modified")
	}
	if len(colList) == 0 {
		colList = []string{"type", "name", "tbl_name", "rootpage", "sql"}
	}
	if len(vals) != len(colList) {
		return engine.NewError(engine.ErrGeneric, "%d values for %d columns", len(vals), len(colList))
	}
	var e catalogEntry
	for i, cn := range colList {
		v := vals[i]
		switch strings.ToLower(cn) {
		case "type":
			e.typ = v.text
		case "name":
			e.name = v.text
		case "tbl_name":
			e.tblName = v.text
		case "rootpage":
			e.rootpage, _ = strconv.Atoi(v.text)
		case "sql":
			e.sql = v.text
			e.noSQL = v.typ == engine.TypeNull
		}
	}
	db.catalog = append(db.catalog, e)
	return nil
}

func (t *table) colIndex(name string) int {
	for i, c := range t.cols {
		if strings.EqualFold(c.name, name) {
			return i
		}
	}
	return -1
}

func (db *DB) compileDelete(p *parser, s *stmt) error {
	p.next() // DELETE
	if !p.eatKeyword("FROM") {
		return syntaxErr(p.peek())
	}
	name, err := p.tableName()
	if err != nil {
		return err
	}
	var pred []whereTerm
	if p.eatKeyword("WHERE") {
		if pred, err = p.parseWhere(); err != nil {
			return err
		}
	}
	s.run = func(db *DB, _ []value) ([][]value, error) {
		t := db.lookupTable(name)
		if t == nil {
			return nil, engine.NewError(engine.ErrGeneric, "no such table: %s", name)
		}
		if pred == nil {
			t.rows = nil
			return nil, nil
		}
		kept := t.rows[:0]
		for _, row := range t.rows {
			match, err := evalWhere(pred, t.cols, row)
			if err != nil {
				return nil, err
			}
			if !match {
				kept = append(kept, row)
			}
		}
		t.rows = kept
		return nil, nil
	}
	return nil
}

func (db *DB) compileDrop(p *parser, s *stmt) error {
	p.next() // DROP
	kindTok := p.next()
	if kindTok.kind != tkIdent {
		return syntaxErr(kindTok)
	}
	kind := strings.ToUpper(kindTok.text)
	ifExists := false
	if p.eatKeyword("IF") {
		if !p.eatKeyword("EXISTS") {
			return syntaxErr(p.peek())
		}
		ifExists = true
	}
	name, err := p.tableName()
	if err != nil {
		return err
	}
	s.run = func(db *DB, _ []value) ([][]value, error) {
		key := strings.ToLower(name)
		switch kind {
		case "TABLE":
			if _, ok := db.tables[key]; !ok {
				if ifExists {
					return nil, nil
				}
				return nil, engine.NewError(engine.ErrGeneric, "no such table: %s", name)
			}
			delete(db.tables, key)
			kept := db.catalog[:0]
			for _, e := range db.catalog {
				if !strings.EqualFold(e.tblName, name) {
					kept = append(kept, e)
				}
			}
			db.catalog = kept
		case "INDEX", "VIEW", "TRIGGER":
			kept := db.catalog[:0]
			found := false
			for _, e := range db.catalog {
				if strings.EqualFold(e.name, name) && strings.EqualFold(e.typ, strings.ToLower(kind)) {
					found = true
					continue
				}
				kept = append(kept, e)
			}
			db.catalog = kept
			if !found && !ifExists {
				return nil, engine.NewError(engine.ErrGeneric, "no such %s: %s", strings.ToLower(kind), name)
			}
		default:
			return nil, syntaxErr(kindTok)
		}
		return nil, nil
	}
	return nil
}

func (db *DB) compilePragma(p *parser, s *stmt) error {
	p.next() // PRAGMA
	name, err := p.tableName()
	if err != nil {
		return err
	}
	name = strings.ToLower(name)
	switch {
	case p.eatPunct("="):
		v, err := p.pragmaValue()
		if err != nil {
			return err
		}
		s.run = func(db *DB, _ []value) ([][]value, error) {
			switch name {
			case "foreign_keys":
				db.foreignKeys = pragmaBool(v)
			case "writable_schema":
				db.writableSchema = pragmaBool(v)
			}
			return nil, nil
		}
	case p.eatPunct("("):
		arg, err := p.ident()
		if err != nil {
			return err
		}
		if !p.eatPunct(")") {
			return syntaxErr(p.peek())
		}
		if name != "table_info" {
			s.run = func(*DB, []value) ([][]value, error) { return nil, nil }
			return nil
		}
		s.colNames = []string{"cid", "name", "type", "notnull", "dflt_value", "pk"}
		s.run = func(db *DB, _ []value) ([][]value, error) {
			t := db.lookupTable(arg)
			if t == nil {
				return nil, nil
			}
			rows := make([][]value, len(t.cols))
			for i, c := range t.cols {
				rows[i] = []value{
					intValue(strconv.Itoa(i)),
					textValue(c.name),
					textValue(c.declType),
					intValue("0"),
					nullValue,
					intValue("0"),
				}
			}
			return rows, nil
		}
	default:
		switch name {
		case "database_list":
			s.colNames = []string{"seq", "name", "file"}
			s.run = func(db *DB, _ []value) ([][]value, error) {
				file := db.path
				if file == ":memory:" {
					file = ""
				}
				return [][]value{{intValue("0"), textValue("main"), textValue(file)}}, nil
			}
		case "foreign_keys", "writable_schema":
			s.colNames = []string{name}
			s.run = func(db *DB, _ []value) ([][]value, error) {
				on := db.foreignKeys
				if name == "writable_schema" {
					on = db.writableSchema
				}
				v := "0"
				if on {
					v = "1"
				}
				return [][]value{{intValue(v)}}, nil
			}
		default:
			s.run = func(*DB, []value) ([][]value, error) { return nil, nil }
		}
	}
	return nil
}

func (p *parser) pragmaValue() (string, error) {
	t := p.next()
	switch t.kind {
	case tkIdent, tkString, tkNumber:
		return t.text, nil
	}
	return "", syntaxErr(t)
}

func pragmaBool(s string) bool {
	switch strings.ToLower(s) {
	case "on", "yes", "true", "1":
		return true
	}
	return false
}

// compileExplain produces a synthetic program listing for any
// statement that compiles. The listing is stable, which keeps the
// explain output mode demonstrable without a real bytecode engine.
func (db *DB) compileExplain(p *parser, s *stmt) error {
	p.next() // EXPLAIN
	if p.eatKeyword("QUERY") {
		p.eatKeyword("PLAN")
	}
	rest := make([]token, len(p.toks)-p.i)
	copy(rest, p.toks[p.i:])
	if len(rest) == 0 {
		return syntaxErr(p.peek())
	}
	inner := &parser{toks: rest}
	check := &stmt{db: db, text: s.text}
	if inner.peek().kind != tkIdent {
		return syntaxErr(inner.peek())
	}
	// compile the inner statement for validation only
	switch strings.ToUpper(inner.peek().text) {
	case "SELECT":
		if err := db.compileSelect(inner, check); err != nil {
			return err
		}
	case "INSERT":
		if err := db.compileInsert(inner, check); err != nil {
			return err
		}
	}
	s.colNames = []string{"addr", "opcode", "p1", "p2", "p3", "p4", "p5", "comment"}
	ops := []string{"Init", "OpenRead", "Rewind", "Column", "ResultRow", "Next", "Halt"}
	s.run = func(*DB, []value) ([][]value, error) {
		rows := make([][]value, len(ops))
		for i, op := range ops {
			rows[i] = []value{
				intValue(strconv.Itoa(i)),
				textValue(op),
				intValue("0"), intValue(strconv.Itoa(i + 1)), intValue("0"),
				nullValue,
				intValue("0"),
				nullValue,
			}
		}
		return rows, nil
	}
	return nil
}

// ---- SELECT ----

type exprKind int

const (
	exLit exprKind = iota
	exColumn
	exQuote
	exLower
	exConcat
)

type expr struct {
	kind  exprKind
	lit   value
	col   string
	parts []expr
	label string
}

func (p *parser) parseExpr() (expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return e, err
	}
	for p.eatPunct("||") {
		rhs, err := p.parsePrimary()
		if err != nil {
			return e, err
		}
		if e.kind != exConcat {
			e = expr{kind: exConcat, parts: []expr{e}, label: e.label}
		}
		e.parts = append(e.parts, rhs)
		e.label += " || " + rhs.label
	}
	return e, nil
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.next()
	switch t.kind {
	case tkString:
		return expr{kind: exLit, lit: textValue(t.text), label: "'" + t.text + "'"}, nil
	case tkNumber:
		return expr{kind: exLit, lit: numberValue(t.text), label: t.text}, nil
	case tkBlob:
		b, err := hex.DecodeString(t.text)
		if err != nil {
			return expr{}, syntaxErr(t)
		}
		return expr{kind: exLit, lit: value{typ: engine.TypeBlob, blob: b}, label: "X'" + t.text + "'"}, nil
	case tkIdent:
		if strings.EqualFold(t.text, "NULL") {
			return expr{kind: exLit, lit: nullValue, label: "NULL"}, nil
		}
		if p.eatPunct("(") {
			fn := strings.ToLower(t.text)
			arg, err := p.ident()
			if err != nil {
				return expr{}, err
			}
			if !p.eatPunct(")") {
				return expr{}, syntaxErr(p.peek())
			}
			switch fn {
			case "quote":
				return expr{kind: exQuote, col: arg, label: "quote(" + arg + ")"}, nil
			case "lower":
				return expr{kind: exLower, col: arg, label: "lower(" + arg + ")"}, nil
			}
			return expr{}, engine.NewError(engine.ErrGeneric, "no such function: %s", t.text)
		}
		name := t.text
		for p.eatPunct(".") {
			n, err := p.ident()
			if err != nil {
				return expr{}, err
			}
			name = n
		}
		return expr{kind: exColumn, col: name, label: name}, nil
	}
	return expr{}, syntaxErr(t)
}

type whereOp int

const (
	opEq whereOp = iota
	opNe
	opLike
	opNotLike
	opIn
	opNotIn
	opIsNull
	opNotNull
)

type whereTerm struct {
	lhs expr
	op  whereOp
	rhs []expr
}

func (p *parser) parseWhere() ([]whereTerm, error) {
	var terms []whereTerm
	for {
		t, err := p.parseWhereTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
		if !p.eatKeyword("AND") {
			return terms, nil
		}
	}
}

func (p *parser) parseWhereTerm() (whereTerm, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return whereTerm{}, err
	}
	t := p.peek()
	switch {
	case t.kind == tkPunct && (t.text == "=" || t.text == "=="):
		p.i++
		rhs, err := p.parsePrimary()
		if err != nil {
			return whereTerm{}, err
		}
		return whereTerm{lhs: lhs, op: opEq, rhs: []expr{rhs}}, nil
	case t.kind == tkPunct && (t.text == "!=" || t.text == "<>"):
		p.i++
		rhs, err := p.parsePrimary()
		if err != nil {
			return whereTerm{}, err
		}
		return whereTerm{lhs: lhs, op: opNe, rhs: []expr{rhs}}, nil
	case p.eatKeyword("LIKE"):
		rhs, err := p.parsePrimary()
		if err != nil {
			return whereTerm{}, err
		}
		return whereTerm{lhs: lhs, op: opLike, rhs: []expr{rhs}}, nil
	case p.eatKeyword("NOT"):
		switch {
		case p.eatKeyword("NULL"):
			return whereTerm{lhs: lhs, op: opNotNull}, nil
		case p.eatKeyword("LIKE"):
			rhs, err := p.parsePrimary()
			if err != nil {
				return whereTerm{}, err
			}
			return whereTerm{lhs: lhs, op: opNotLike, rhs: []expr{rhs}}, nil
		case p.eatKeyword("IN"):
			rhs, err := p.parseInList()
			if err != nil {
				return whereTerm{}, err
			}
			return whereTerm{lhs: lhs, op: opNotIn, rhs: rhs}, nil
		}
		return whereTerm{}, syntaxErr(p.peek())
	case p.eatKeyword("IS"):
		not := p.eatKeyword("NOT")
		if !p.eatKeyword("NULL") {
			return whereTerm{}, syntaxErr(p.peek())
		}
		if not {
			return whereTerm{lhs: lhs, op: opNotNull}, nil
		}
		return whereTerm{lhs: lhs, op: opIsNull}, nil
	case p.eatKeyword("IN"):
		rhs, err := p.parseInList()
		if err != nil {
			return whereTerm{}, err
		}
		return whereTerm{lhs: lhs, op: opIn, rhs: rhs}, nil
	case p.eatKeyword("NOTNULL"):
		return whereTerm{lhs: lhs, op: opNotNull}, nil
	}
	return whereTerm{}, syntaxErr(t)
}

func (p *parser) parseInList() ([]expr, error) {
	if !p.eatPunct("(") {
		return nil, syntaxErr(p.peek())
	}
	var list []expr
	for {
		e, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.eatPunct(")") {
			return list, nil
		}
		if !p.eatPunct(",") {
			return nil, syntaxErr(p.peek())
		}
	}
}

type orderKey struct {
	col     string
	ordinal int
	rowid   bool
	desc    bool
}

type selectPlan struct {
	tableName string
	star      bool
	projs     []expr
	where     []whereTerm
	order     []orderKey
}

func (db *DB) compileSelect(p *parser, s *stmt) error {
	p.next() // SELECT
	p.eatKeyword("DISTINCT")
	p.eatKeyword("ALL")
	plan := &selectPlan{}
	if p.eatPunct("*") {
		plan.star = true
	} else {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			if p.eatKeyword("AS") {
				alias, err := p.ident()
				if err != nil {
					return err
				}
				e.label = alias
			}
			plan.projs = append(plan.projs, e)
			if !p.eatPunct(",") {
				break
			}
		}
	}
	if p.eatKeyword("FROM") {
		name, err := p.tableName()
		if err != nil {
			return err
		}
		plan.tableName = name
	}
	if p.eatKeyword("WHERE") {
		w, err := p.parseWhere()
		if err != nil {
			return err
		}
		plan.where = w
	}
	if p.eatKeyword("ORDER") {
		if !p.eatKeyword("BY") {
			return syntaxErr(p.peek())
		}
		for {
			t := p.next()
			var k orderKey
			switch {
			case t.kind == tkNumber:
				k.ordinal, _ = strconv.Atoi(t.text)
			case t.kind == tkIdent && strings.EqualFold(t.text, "rowid"):
				k.rowid = true
			case t.kind == tkIdent:
				k.col = t.text
			default:
				return syntaxErr(t)
			}
			if p.eatKeyword("DESC") {
				k.desc = true
			} else {
				p.eatKeyword("ASC")
			}
			plan.order = append(plan.order, k)
			if !p.eatPunct(",") {
				break
			}
		}
	}
	if t := p.peek(); t.kind != tkEOF {
		return syntaxErr(t)
	}

	// resolve the column list now so ColumnCount works before Step
	cols, err := db.planColumns(plan)
	if err != nil {
		return err
	}
	s.colNames = plan.columnNames(cols)
	s.run = func(db *DB, _ []value) ([][]value, error) {
		return db.runSelect(plan, s)
	}
	return nil
}

// planColumns resolves the base table's column set at compile time.
func (db *DB) planColumns(plan *selectPlan) ([]column, error) {
	if plan.tableName == "" {
		return nil, nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	cols, _, err := db.baseRows(plan.tableName)
	return cols, err
}

var catalogColumns = []column{
	{name: "type"}, {name: "name"}, {name: "tbl_name"},
	{name: "rootpage"}, {name: "sql"},
}

// baseRows returns the schema and current rows of a table reference,
// including the sqlite_master pseudo-table. Callers hold db.mu.
func (db *DB) baseRows(name string) ([]column, [][]value, error) {
	lower := strings.ToLower(name)
	if lower == "sqlite_master" || lower == "sqlite_temp_master" {
		var rows [][]value
		if lower == "sqlite_master" {
			rows = make([][]value, len(db.catalog))
			for i, e := range db.catalog {
				sqlVal := textValue(e.sql)
				if e.noSQL {
					sqlVal = nullValue
				}
				rows[i] = []value{
					textValue(e.typ), textValue(e.name), textValue(e.tblName),
					intValue(strconv.Itoa(e.rootpage)), sqlVal,
				}
			}
		}
		return catalogColumns, rows, nil
	}
	t := db.tables[lower]
	if t == nil {
		return nil, nil, engine.NewError(engine.ErrGeneric, "no such table: %s", name)
	}
	return t.cols, t.rows, nil
}

func (plan *selectPlan) columnNames(cols []column) []string {
	if plan.star {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.name
		}
		return names
	}
	names := make([]string, len(plan.projs))
	for i, e := range plan.projs {
		names[i] = e.label
	}
	return names
}

func (db *DB) runSelect(plan *selectPlan, s *stmt) ([][]value, error) {
	var cols []column
	var base [][]value
	if plan.tableName != "" {
		var err error
		cols, base, err = db.baseRows(plan.tableName)
		if err != nil {
			return nil, err
		}
		lower := strings.ToLower(plan.tableName)
		if db.corruptTables[lower] {
			if len(plan.order) == 0 {
				return nil, engine.NewError(engine.Corrupt, "database disk image is malformed")
			}
			delete(db.corruptTables, lower)
		}
		s.fullscan += len(base)
	} else {
		base = [][]value{nil}
	}

	var kept [][]value
	for _, row := range base {
		if plan.where != nil {
			match, err := evalWhere(plan.where, cols, row)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		kept = append(kept, row)
	}

	if len(plan.order) > 0 {
		s.sorts++
		if err := sortRows(kept, plan, cols); err != nil {
			return nil, err
		}
	}

	out := make([][]value, len(kept))
	for i, row := range kept {
		if plan.star {
			out[i] = row
			continue
		}
		proj := make([]value, len(plan.projs))
		for j, e := range plan.projs {
			v, err := evalExpr(e, cols, row)
			if err != nil {
				return nil, err
			}
			proj[j] = v
		}
		out[i] = proj
	}
	return out, nil
}

func sortRows(rows [][]value, plan *selectPlan, cols []column) error {
	type keyFn func(row []value, idx int) (value, error)
	fns := make([]keyFn, len(plan.order))
	for i, k := range plan.order {
		k := k
		switch {
		case k.rowid:
			fns[i] = func(_ []value, idx int) (value, error) {
				return intValue(strconv.Itoa(idx)), nil
			}
		case k.ordinal > 0:
			ord := k.ordinal
			fns[i] = func(row []value, _ int) (value, error) {
				if plan.star {
					if ord > len(row) {
						return nullValue, engine.NewError(engine.ErrGeneric, "ORDER BY term out of range")
					}
					return row[ord-1], nil
				}
				if ord > len(plan.projs) {
					return nullValue, engine.NewError(engine.ErrGeneric, "ORDER BY term out of range")
				}
				return evalExpr(plan.projs[ord-1], cols, row)
			}
		default:
			col := k.col
			fns[i] = func(row []value, _ int) (value, error) {
				return columnValue(col, cols, row)
			}
		}
	}

	type sortRow struct {
		row []value
		pos int
	}
	tmp := make([]sortRow, len(rows))
	for i, r := range rows {
		tmp[i] = sortRow{r, i}
	}
	var sortErr error
	sort.SliceStable(tmp, func(a, b int) bool {
		for i, fn := range fns {
			va, err := fn(tmp[a].row, tmp[a].pos)
			if err != nil {
				sortErr = err
				return false
			}
			vb, err := fn(tmp[b].row, tmp[b].pos)
			if err != nil {
				sortErr = err
				return false
			}
			c := compareValues(va, vb)
			if c == 0 {
				continue
			}
			if plan.order[i].desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}
	for i := range rows {
		rows[i] = tmp[i].row
	}
	return nil
}

func columnValue(name string, cols []column, row []value) (value, error) {
	for i, c := range cols {
		if strings.EqualFold(c.name, name) {
			if i < len(row) {
				return row[i], nil
			}
			return nullValue, nil
		}
	}
	return nullValue, engine.NewError(engine.ErrGeneric, "no such column: %s", name)
}

func evalExpr(e expr, cols []column, row []value) (value, error) {
	switch e.kind {
	case exLit:
		return e.lit, nil
	case exColumn:
		return columnValue(e.col, cols, row)
	case exQuote:
		v, err := columnValue(e.col, cols, row)
		if err != nil {
			return nullValue, err
		}
		return textValue(quoteValue(v)), nil
	case exLower:
		v, err := columnValue(e.col, cols, row)
		if err != nil {
			return nullValue, err
		}
		if v.typ == engine.TypeNull {
			return nullValue, nil
		}
		return textValue(strings.ToLower(v.text)), nil
	case exConcat:
		var b strings.Builder
		for _, part := range e.parts {
			v, err := evalExpr(part, cols, row)
			if err != nil {
				return nullValue, err
			}
			if v.typ == engine.TypeNull {
				return nullValue, nil
			}
			if v.typ == engine.TypeBlob {
				b.Write(v.blob)
			} else {
				b.WriteString(v.text)
			}
		}
		return textValue(b.String()), nil
	}
	return nullValue, engine.NewError(engine.ErrGeneric, "unsupported expression")
}

// quoteValue renders a value the way the SQL quote() function does.
func quoteValue(v value) string {
	switch v.typ {
	case engine.TypeNull:
		return "NULL"
	case engine.TypeInteger, engine.TypeFloat:
		return v.text
	case engine.TypeBlob:
		return "X'" + hex.EncodeToString(v.blob) + "'"
	}
	return "'" + strings.ReplaceAll(v.text, "'", "''") + "'"
}

func evalWhere(terms []whereTerm, cols []column, row []value) (bool, error) {
	for _, t := range terms {
		ok, err := evalTerm(t, cols, row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func evalTerm(t whereTerm, cols []column, row []value) (bool, error) {
	lv, err := evalExpr(t.lhs, cols, row)
	if err != nil {
		return false, err
	}
	switch t.op {
	case opIsNull:
		return lv.typ == engine.TypeNull, nil
	case opNotNull:
		return lv.typ != engine.TypeNull, nil
	}
	if lv.typ == engine.TypeNull {
		return false, nil
	}
	switch t.op {
	case opEq, opNe:
		rv, err := evalExpr(t.rhs[0], cols, row)
		if err != nil {
			return false, err
		}
		if rv.typ == engine.TypeNull {
			return false, nil
		}
		eq := compareValues(lv, rv) == 0
		if t.op == opNe {
			return !eq, nil
		}
		return eq, nil
	case opLike, opNotLike:
		rv, err := evalExpr(t.rhs[0], cols, row)
		if err != nil {
			return false, err
		}
		m := likeMatch(rv.text, lv.text)
		if t.op == opNotLike {
			return !m, nil
		}
		return m, nil
	case opIn, opNotIn:
		found := false
		for _, e := range t.rhs {
			rv, err := evalExpr(e, cols, row)
			if err != nil {
				return false, err
			}
			if rv.typ != engine.TypeNull && compareValues(lv, rv) == 0 {
				found = true
				break
			}
		}
		if t.op == opNotIn {
			return !found, nil
		}
		return found, nil
	}
	return false, engine.NewError(engine.ErrGeneric, "unsupported comparison")
}

func compareValues(a, b value) int {
	// NULLs sort first
	if a.typ == engine.TypeNull || b.typ == engine.TypeNull {
		switch {
		case a.typ == b.typ:
			return 0
		case a.typ == engine.TypeNull:
			return -1
		}
		return 1
	}
	numeric := func(v value) bool {
		return v.typ == engine.TypeInteger || v.typ == engine.TypeFloat
	}
	if numeric(a) && numeric(b) {
		fa, _ := strconv.ParseFloat(a.text, 64)
		fb, _ := strconv.ParseFloat(b.text, 64)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a.text, b.text)
}

// likeMatch implements SQL LIKE: case-insensitive with % matching any
// run and _ matching one character.
func likeMatch(pattern, s string) bool {
	p := strings.ToLower(pattern)
	t := strings.ToLower(s)
	return likeRun(p, t)
}

func likeRun(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '%':
			p = p[1:]
			if p == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if likeRun(p, s[i:]) {
					return true
				}
			}
			return false
		case '_':
			if s == "" {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if s == "" || p[0] != s[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return s == ""
}
