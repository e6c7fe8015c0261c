package driver

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// snowflakeDriver owns a database/sql handle built on the gosnowflake
// driver. Snowflake's client is blocking, so every call is dispatched
// through workerPool, per spec §4.2/§5.
type snowflakeDriver struct {
	lifecycle
	conn *model.Connection
	db   *sql.DB
	pool *workerPool
}

func newSnowflakeDriver(conn *model.Connection) *snowflakeDriver {
	return &snowflakeDriver{conn: conn, pool: newWorkerPool()}
}

func (d *snowflakeDriver) dsn() string {
	return fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
		d.conn.ConfigString("user"), d.conn.ConfigString("password"), d.conn.ConfigString("account"),
		d.conn.ConfigString("database"), d.conn.ConfigString("schema"),
		d.conn.ConfigString("warehouse"), d.conn.ConfigString("role"))
}

func (d *snowflakeDriver) Connect(ctx context.Context) error {
	if already := d.transitionConnecting(); already {
		return nil
	}

	err := d.pool.run(ctx, func() error {
		db, err := sql.Open("snowflake", d.dsn())
		if err != nil {
			return err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return err
		}
		d.db = db
		return nil
	})
	if err != nil {
		return apperrors.BackendError(err, "connect to snowflake")
	}

	d.markReady()
	return nil
}

func (d *snowflakeDriver) TestConnection(ctx context.Context) (bool, string) {
	if err := d.Connect(ctx); err != nil {
		return false, err.Error()
	}
	defer d.enterBusy()()

	var version string
	err := d.pool.run(ctx, func() error {
		return d.db.QueryRowContext(ctx, "SELECT CURRENT_VERSION()").Scan(&version)
	})
	if err != nil {
		return false, fmt.Sprintf("connection failed: %v", err)
	}
	return true, fmt.Sprintf("connection successful: Snowflake version %s", version)
}

func (d *snowflakeDriver) GetMetadata(ctx context.Context) ([]model.TableMetadata, []model.ColumnMetadata, []model.RelationshipMetadata, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, nil, err
	}
	defer d.enterBusy()()

	var tables []model.TableMetadata
	var columns []model.ColumnMetadata

	err := d.pool.run(ctx, func() error {
		rows, err := d.db.QueryContext(ctx, `
			SELECT table_name, table_schema, table_type, row_count
			FROM information_schema.tables
			WHERE table_schema NOT IN ('INFORMATION_SCHEMA')
			ORDER BY table_schema, table_name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name, schema, tableType string
			var rowCount *int64
			if err := rows.Scan(&name, &schema, &tableType, &rowCount); err != nil {
				return err
			}
			tt := model.TableKindTable
			if tableType == "VIEW" {
				tt = model.TableKindView
			}
			tables = append(tables, model.TableMetadata{
				Name: name, SchemaName: schema, Type: tt, RowCount: rowCount, Explorable: true,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "fetch snowflake tables")
	}

	err = d.pool.run(ctx, func() error {
		rows, err := d.db.QueryContext(ctx, `
			SELECT table_name, column_name, data_type, is_nullable
			FROM information_schema.columns
			WHERE table_schema NOT IN ('INFORMATION_SCHEMA')
			ORDER BY table_name, ordinal_position`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var tableName, name, dataType, nullable string
			if err := rows.Scan(&tableName, &name, &dataType, &nullable); err != nil {
				return err
			}
			columns = append(columns, model.ColumnMetadata{
				Name: name, TableName: tableName,
				DataType:   model.NormalizedType(normalizeSnowflakeType(dataType)),
				Nullable:   nullable == "YES",
				Explorable: true,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "fetch snowflake columns")
	}

	return tables, columns, nil, nil
}

func (d *snowflakeDriver) Execute(ctx context.Context, sqlText string, params map[string]any) ([]model.Row, []Column, time.Duration, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, 0, err
	}
	defer d.enterBusy()()

	start := time.Now()
	var result []model.Row
	var columns []Column

	err := d.pool.run(ctx, func() error {
		rows, err := d.db.QueryContext(ctx, snowflakeSubstitute(sqlText, params))
		if err != nil {
			return err
		}
		defer rows.Close()

		colNames, err := rows.Columns()
		if err != nil {
			return err
		}
		colTypes, err := rows.ColumnTypes()
		if err != nil {
			return err
		}
		columns = make([]Column, len(colNames))
		for i, name := range colNames {
			columns[i] = Column{Name: name, Type: colTypes[i].DatabaseTypeName()}
		}

		for rows.Next() {
			values := make([]any, len(colNames))
			for i, t := range colTypes {
				values[i] = reflect.New(t.ScanType()).Interface()
			}
			if err := rows.Scan(values...); err != nil {
				return err
			}
			row := make(model.Row, len(columns))
			for i, c := range columns {
				row[c.Name] = toJSONSafe(reflect.ValueOf(values[i]).Elem().Interface())
			}
			result = append(result, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, time.Since(start), apperrors.BackendError(err, "execute snowflake query")
	}

	return result, columns, time.Since(start), nil
}

func (d *snowflakeDriver) StreamExecute(ctx context.Context, sqlText string, params map[string]any) (<-chan StreamBatch, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}

	var rows *sql.Rows
	var columns []Column
	err := d.pool.run(ctx, func() error {
		var err error
		rows, err = d.db.QueryContext(ctx, snowflakeSubstitute(sqlText, params))
		if err != nil {
			return err
		}
		colNames, err := rows.Columns()
		if err != nil {
			return err
		}
		colTypes, err := rows.ColumnTypes()
		if err != nil {
			return err
		}
		columns = make([]Column, len(colNames))
		for i, name := range colNames {
			columns[i] = Column{Name: name, Type: colTypes[i].DatabaseTypeName()}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.BackendError(err, "stream snowflake query")
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, apperrors.BackendError(err, "read snowflake column types")
	}

	return streamViaBatches(ctx, d.pool, func() ([]model.Row, bool, error) {
		batch := make([]model.Row, 0, streamBatchSize)
		for len(batch) < streamBatchSize {
			if !rows.Next() {
				rows.Close()
				return batch, false, rows.Err()
			}
			values := make([]any, len(colTypes))
			for i, t := range colTypes {
				values[i] = reflect.New(t.ScanType()).Interface()
			}
			if err := rows.Scan(values...); err != nil {
				rows.Close()
				return nil, false, err
			}
			row := make(model.Row, len(columns))
			for i, c := range columns {
				row[c.Name] = toJSONSafe(reflect.ValueOf(values[i]).Elem().Interface())
			}
			batch = append(batch, row)
		}
		return batch, true, nil
	}), nil
}

func (d *snowflakeDriver) Explain(ctx context.Context, sqlText string, params map[string]any) (map[string]any, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	defer d.enterBusy()()

	var plan []string
	err := d.pool.run(ctx, func() error {
		rows, err := d.db.QueryContext(ctx, "EXPLAIN USING TEXT "+snowflakeSubstitute(sqlText, params))
		if err != nil {
			return err
		}
		defer rows.Close()
		cols, _ := rows.Columns()
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			plan = append(plan, fmt.Sprintf("%v", values))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.BackendError(err, "explain snowflake query")
	}
	return map[string]any{"plan": plan}, nil
}

func (d *snowflakeDriver) GetDialect() dialect.Name { return dialect.Snowflake }

func (d *snowflakeDriver) Close(ctx context.Context) error {
	if already := d.markClosed(); already {
		return nil
	}
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
