// Package sqltool is the SQL collaborator boundary: query returns ordered
// row maps, exec returns the affected-row count. Failures surface as
// DataAccessError and abort the operation phase that issued them.
package sqltool

import (
	"context"
	"database/sql"

	"github.com/chenjianpeng97/tuner-test-framework/pkg/apierr"
)

type Runner interface {
	Query(ctx context.Context, stmt string, params ...any) ([]map[string]any, error)
	Exec(ctx context.Context, stmt string, params ...any) (int64, error)
}

// DB adapts a database/sql handle to Runner. Any driver works; tests run it
// against modernc.org/sqlite.
type DB struct {
	db *sql.DB
}

func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

func Open(driverName, dsn string) (*DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, apierr.NewDataAccessError("open "+driverName, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Query(ctx context.Context, stmt string, params ...any) ([]map[string]any, error) {
	rows, err := d.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, apierr.NewDataAccessError(stmt, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apierr.NewDataAccessError(stmt, err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apierr.NewDataAccessError(stmt, err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			// drivers hand back []byte for text columns; strings read better
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.NewDataAccessError(stmt, err)
	}
	return result, nil
}

func (d *DB) Exec(ctx context.Context, stmt string, params ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, apierr.NewDataAccessError(stmt, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apierr.NewDataAccessError(stmt, err)
	}
	return affected, nil
}
