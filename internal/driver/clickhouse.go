package driver

import (
	"context"
	"crypto/tls"
	"fmt"
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// clickhouseDriver owns a long-lived typed client keyed on
// (host, port, database, user, password), per spec §4.2.
type clickhouseDriver struct {
	lifecycle
	conn *model.Connection
	db   chdriver.Conn
}

func newClickHouseDriver(conn *model.Connection) *clickhouseDriver {
	return &clickhouseDriver{conn: conn}
}

func (d *clickhouseDriver) Connect(ctx context.Context) error {
	if already := d.transitionConnecting(); already {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", d.conn.ConfigString("host"), d.conn.ConfigInt("port"))
	opts := &clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: d.conn.ConfigString("database"),
			Username: d.conn.ConfigString("user"),
			Password: d.conn.ConfigString("password"),
		},
		DialTimeout:     5 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
	if d.conn.ConfigBool("https") || d.conn.ConfigBool("ssl") {
		opts.TLS = &tls.Config{}
	}

	db, err := clickhouse.Open(opts)
	if err != nil {
		return apperrors.BackendError(err, "open clickhouse connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		return apperrors.BackendError(err, "ping clickhouse")
	}

	d.db = db
	d.markReady()
	return nil
}

func (d *clickhouseDriver) TestConnection(ctx context.Context) (bool, string) {
	if err := d.Connect(ctx); err != nil {
		return false, err.Error()
	}
	defer d.enterBusy()()

	var version string
	if err := d.db.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return false, fmt.Sprintf("connection failed: %v", err)
	}
	return true, fmt.Sprintf("connection successful: ClickHouse version %s", version)
}

func (d *clickhouseDriver) GetMetadata(ctx context.Context) ([]model.TableMetadata, []model.ColumnMetadata, []model.RelationshipMetadata, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, nil, err
	}
	defer d.enterBusy()()

	var tables []model.TableMetadata
	rows, err := d.db.Query(ctx, "SHOW TABLES")
	if err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "list clickhouse tables")
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, nil, nil, apperrors.BackendError(err, "scan clickhouse table name")
		}
		names = append(names, name)
	}
	rows.Close()

	var columns []model.ColumnMetadata
	for _, name := range names {
		tables = append(tables, model.TableMetadata{
			Name:       name,
			SchemaName: d.conn.ConfigString("database"),
			Type:       model.TableKindTable,
			Explorable: true,
		})

		colRows, err := d.db.Query(ctx, "DESCRIBE TABLE "+name)
		if err != nil {
			return nil, nil, nil, apperrors.BackendError(err, "describe clickhouse table %s", name)
		}
		for colRows.Next() {
			var colName, colType, defaultType, defaultExpr, comment, codecExpr, ttlExpr string
			if err := colRows.Scan(&colName, &colType, &defaultType, &defaultExpr, &comment, &codecExpr, &ttlExpr); err != nil {
				colRows.Close()
				return nil, nil, nil, apperrors.BackendError(err, "scan clickhouse column for table %s", name)
			}
			columns = append(columns, model.ColumnMetadata{
				Name:       colName,
				TableName:  name,
				DataType:   model.NormalizedType(normalizeClickHouseType(colType)),
				Nullable:   true,
				Explorable: true,
			})
		}
		colRows.Close()
	}

	// ClickHouse has no foreign key constraints; relationships are not
	// inferred automatically here (see spec §4.2's type-normalization note
	// and original_source's equivalent comment).
	return tables, columns, nil, nil
}

func (d *clickhouseDriver) Execute(ctx context.Context, sql string, params map[string]any) ([]model.Row, []Column, time.Duration, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, 0, err
	}
	defer d.enterBusy()()

	start := time.Now()
	rows, err := d.db.Query(ctx, clickhouseSubstitute(sql, params))
	if err != nil {
		return nil, nil, time.Since(start), apperrors.BackendError(err, "execute clickhouse query")
	}
	defer rows.Close()

	types := rows.ColumnTypes()
	columns := make([]Column, len(types))
	for i, t := range types {
		columns[i] = Column{Name: t.Name(), Type: t.DatabaseTypeName()}
	}

	var result []model.Row
	for rows.Next() {
		values := make([]any, len(types))
		for i, t := range types {
			values[i] = reflect.New(t.ScanType()).Interface()
		}
		if err := rows.Scan(values...); err != nil {
			return nil, nil, time.Since(start), apperrors.BackendError(err, "scan clickhouse row")
		}
		row := make(model.Row, len(columns))
		for i, c := range columns {
			row[c.Name] = toJSONSafe(reflect.ValueOf(values[i]).Elem().Interface())
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, time.Since(start), apperrors.BackendError(err, "read clickhouse rows")
	}

	return result, columns, time.Since(start), nil
}

func (d *clickhouseDriver) StreamExecute(ctx context.Context, sql string, params map[string]any) (<-chan StreamBatch, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}

	out := make(chan StreamBatch, 1)
	go func() {
		defer close(out)
		release := d.enterBusy()
		defer release()

		rows, err := d.db.Query(ctx, clickhouseSubstitute(sql, params))
		if err != nil {
			out <- StreamBatch{Err: apperrors.BackendError(err, "stream clickhouse query")}
			return
		}
		defer rows.Close()

		types := rows.ColumnTypes()
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = t.Name()
		}

		batch := make([]model.Row, 0, streamBatchSize)
		for rows.Next() {
			values := make([]any, len(types))
			for i, t := range types {
				values[i] = reflect.New(t.ScanType()).Interface()
			}
			if err := rows.Scan(values...); err != nil {
				out <- StreamBatch{Err: apperrors.BackendError(err, "scan clickhouse row")}
				return
			}
			row := make(model.Row, len(names))
			for i, name := range names {
				row[name] = toJSONSafe(reflect.ValueOf(values[i]).Elem().Interface())
			}
			batch = append(batch, row)
			if len(batch) == streamBatchSize {
				select {
				case out <- StreamBatch{Rows: batch}:
				case <-ctx.Done():
					return
				}
				batch = make([]model.Row, 0, streamBatchSize)
			}
		}
		if len(batch) > 0 {
			select {
			case out <- StreamBatch{Rows: batch}:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			out <- StreamBatch{Err: apperrors.BackendError(err, "read clickhouse rows")}
		}
	}()
	return out, nil
}

func (d *clickhouseDriver) Explain(ctx context.Context, sql string, params map[string]any) (map[string]any, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	defer d.enterBusy()()

	rows, err := d.db.Query(ctx, "EXPLAIN "+clickhouseSubstitute(sql, params))
	if err != nil {
		return nil, apperrors.BackendError(err, "explain clickhouse query")
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, apperrors.BackendError(err, "scan clickhouse explain row")
		}
		lines = append(lines, line)
	}
	return map[string]any{"plan": lines}, nil
}

func (d *clickhouseDriver) GetDialect() dialect.Name { return dialect.ClickHouse }

func (d *clickhouseDriver) Close(ctx context.Context) error {
	if already := d.markClosed(); already {
		return nil
	}
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
