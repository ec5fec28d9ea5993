/*
 * Copyright 2025 tomoncle.
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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// TableSchema is the declared shape of one table.
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
}

// ColumnSchema describes a single column. Length is the character limit of
// char/varchar columns and 0 otherwise.
type ColumnSchema struct {
	Name       string
	SQLType    string
	Length     int
	NotNull    bool
	PrimaryKey bool
	Unique     bool
	NullZero   bool
}

// Column returns the named column.
func (t *TableSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

var charLengthRe = regexp.MustCompile(`(?i)^\s*(?:var)?char(?:acter)?(?:\s+varying)?\s*\(\s*(\d+)\s*\)`)

func parseCharLength(sqlType string) int {
	m := charLengthRe.FindStringSubmatch(sqlType)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// DescribeModel reads the bun struct tags of model into a TableSchema.
// The model must embed bun.BaseModel with a table: tag.
func DescribeModel(model interface{}) (*TableSchema, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model %s is not a struct", t)
	}

	table, err := resolveTableName(t)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", t.Name(), err)
	}
	ts := &TableSchema{Name: table}
	collectColumns(t, ts)
	if len(ts.Columns) == 0 {
		return nil, fmt.Errorf("model %s declares no columns", t.Name())
	}
	return ts, nil
}

func resolveTableName(t reflect.Type) (string, error) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !isBunBaseModel(f.Type) {
			continue
		}
		for _, part := range strings.Split(f.Tag.Get("bun"), ",") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "table:") {
				return strings.TrimPrefix(part, "table:"), nil
			}
		}
	}
	return "", fmt.Errorf("missing table tag on bun.BaseModel")
}

var baseModelType = reflect.TypeOf(bun.BaseModel{})

// isBunBaseModel matches bun.BaseModel, which is an alias of schema.BaseModel.
func isBunBaseModel(t reflect.Type) bool {
	return t == baseModelType
}

func collectColumns(t reflect.Type, ts *TableSchema) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if isBunBaseModel(f.Type) {
			continue
		}
		tag := f.Tag.Get("bun")
		if tag == "-" || strings.Contains(tag, "rel:") || strings.Contains(tag, "m2m:") {
			continue
		}
		if tag == "" {
			if f.Anonymous {
				ft := f.Type
				if ft.Kind() == reflect.Ptr {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					collectColumns(ft, ts)
				}
			}
			continue
		}

		parts := strings.Split(tag, ",")
		col := ColumnSchema{Name: strings.TrimSpace(parts[0])}
		if col.Name == "" {
			continue
		}
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			switch {
			case strings.HasPrefix(p, "type:"):
				col.SQLType = strings.TrimPrefix(p, "type:")
			case p == "notnull":
				col.NotNull = true
			case p == "pk":
				col.PrimaryKey = true
			case p == "nullzero":
				col.NullZero = true
			case p == "unique" || strings.HasPrefix(p, "unique:"):
				col.Unique = true
			}
		}
		if col.PrimaryKey {
			col.NotNull = true
		}
		col.Length = parseCharLength(col.SQLType)
		ts.Columns = append(ts.Columns, col)
	}
}

func isSQLite(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.SQLite
}

// createTableQuery builds CREATE TABLE IF NOT EXISTS for model. SQLite does
// not enforce varchar lengths, so there the limits become CHECK constraints.
func createTableQuery(db bun.IDB, model interface{}) (*bun.CreateTableQuery, error) {
	q := db.NewCreateTable().Model(model).IfNotExists()
	if !isSQLite(db) {
		return q, nil
	}
	ts, err := DescribeModel(model)
	if err != nil {
		return nil, err
	}
	for _, c := range ts.Columns {
		if c.Length > 0 {
			q = q.ColumnExpr("CHECK (length(?) <= ?)", bun.Ident(c.Name), c.Length)
		}
	}
	return q, nil
}

// EnsureSchema creates every table in models that does not exist yet.
func EnsureSchema(ctx context.Context, db bun.IDB, models ...interface{}) error {
	for _, model := range models {
		q, err := createTableQuery(db, model)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

// SchemaDDL renders the CREATE TABLE statements EnsureSchema would run.
func SchemaDDL(db *bun.DB, models ...interface{}) ([]string, error) {
	ddl := make([]string, 0, len(models))
	for _, model := range models {
		q, err := createTableQuery(db, model)
		if err != nil {
			return nil, err
		}
		b, err := q.AppendQuery(db.Formatter(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to render table %T: %w", model, err)
		}
		ddl = append(ddl, string(b))
	}
	return ddl, nil
}

// InspectTable reads the live column definitions of table. It returns a
// schema with no columns when the table does not exist.
func InspectTable(ctx context.Context, db bun.IDB, table string) (*TableSchema, error) {
	var (
		rows *sql.Rows
		err  error
	)
	name := db.Dialect().Name()
	switch name {
	case dialect.MySQL:
		rows, err = db.QueryContext(ctx, `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY = 'PRI'
			FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`, table)
	case dialect.PG:
		rows, err = db.QueryContext(ctx, `SELECT c.column_name,
				c.data_type || COALESCE('(' || c.character_maximum_length || ')', ''),
				c.is_nullable,
				EXISTS (
					SELECT 1 FROM information_schema.table_constraints tc
					JOIN information_schema.key_column_usage k
						ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
					WHERE tc.constraint_type = 'PRIMARY KEY'
						AND tc.table_name = c.table_name
						AND tc.table_schema = c.table_schema
						AND k.column_name = c.column_name
				)
			FROM information_schema.columns c
			WHERE c.table_schema = current_schema() AND c.table_name = ?
			ORDER BY c.ordinal_position`, table)
	case dialect.SQLite:
		rows, err = db.QueryContext(ctx, "PRAGMA table_info(?)", table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, name)
	}
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	ts := &TableSchema{Name: table}
	for rows.Next() {
		var col ColumnSchema
		if name == dialect.SQLite {
			var cid, notNull, pk int
			var dflt sql.NullString
			if err := rows.Scan(&cid, &col.Name, &col.SQLType, &notNull, &dflt, &pk); err != nil {
				return nil, err
			}
			col.NotNull = notNull == 1
			col.PrimaryKey = pk > 0
		} else {
			var nullable string
			if err := rows.Scan(&col.Name, &col.SQLType, &nullable, &col.PrimaryKey); err != nil {
				return nil, err
			}
			col.NotNull = strings.EqualFold(nullable, "NO")
		}
		col.Length = parseCharLength(col.SQLType)
		ts.Columns = append(ts.Columns, col)
	}
	return ts, rows.Err()
}
