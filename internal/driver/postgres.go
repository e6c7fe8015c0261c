package driver

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// postgresDriver owns a pgxpool.Pool, acquiring and releasing a connection
// per call, per spec §4.2's postgres resource model (pool size 1..10,
// 10s connect / 30s command timeout).
type postgresDriver struct {
	lifecycle
	conn *model.Connection
	pool *pgxpool.Pool
}

func newPostgresDriver(conn *model.Connection) *postgresDriver {
	return &postgresDriver{conn: conn}
}

func (d *postgresDriver) Connect(ctx context.Context) error {
	if already := d.transitionConnecting(); already {
		return nil
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=10",
		d.conn.ConfigString("host"), d.conn.ConfigInt("port"), d.conn.ConfigString("database"),
		d.conn.ConfigString("user"), d.conn.ConfigString("password"), sslMode(d.conn),
	)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return apperrors.BackendError(err, "parse postgres connection config")
	}
	poolCfg.MinConns = 1
	poolCfg.MaxConns = 10
	poolCfg.ConnConfig.ConnectTimeout = 10 * time.Second
	// 30s command timeout, enforced server-side (value in milliseconds).
	poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = "30000"

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return apperrors.BackendError(err, "connect to postgres")
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return apperrors.BackendError(err, "ping postgres")
	}

	d.pool = pool
	d.markReady()
	return nil
}

func sslMode(conn *model.Connection) string {
	if conn.ConfigBool("ssl") {
		return "require"
	}
	return "disable"
}

func (d *postgresDriver) TestConnection(ctx context.Context) (bool, string) {
	if err := d.Connect(ctx); err != nil {
		return false, err.Error()
	}
	defer d.enterBusy()()

	var version string
	if err := d.pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return false, fmt.Sprintf("connection failed: %v", err)
	}
	return true, fmt.Sprintf("connection successful: %s", version)
}

const postgresTablesQuery = `
SELECT
	t.table_name as name,
	t.table_schema as schema,
	obj_description(pgc.oid) as description,
	CASE WHEN t.table_type = 'VIEW' THEN 'view' ELSE 'table' END as type,
	pg_stat_get_live_tuples(pgc.oid) as row_count
FROM information_schema.tables t
JOIN pg_class pgc ON pgc.relname = t.table_name
JOIN pg_namespace n ON pgc.relnamespace = n.oid AND n.nspname = t.table_schema
WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema')
AND t.table_type IN ('BASE TABLE', 'VIEW')
ORDER BY t.table_schema, t.table_name
`

const postgresColumnsQuery = `
SELECT
	c.table_name,
	c.column_name as name,
	c.data_type,
	c.is_nullable = 'YES' as nullable,
	pg_catalog.col_description(pgc.oid, c.ordinal_position::int) as description,
	CASE WHEN pk.constraint_name IS NOT NULL THEN true ELSE false END as primary_key,
	CASE WHEN fk.constraint_name IS NOT NULL THEN fk.referenced_table_name || '.' || fk.referenced_column_name ELSE null END as foreign_key
FROM information_schema.columns c
JOIN pg_class pgc ON pgc.relname = c.table_name
JOIN pg_namespace n ON pgc.relnamespace = n.oid AND n.nspname = c.table_schema
LEFT JOIN (
	SELECT tc.constraint_name, kcu.table_name, kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	WHERE tc.constraint_type = 'PRIMARY KEY'
) pk ON pk.table_name = c.table_name AND pk.column_name = c.column_name
LEFT JOIN (
	SELECT tc.constraint_name, kcu.table_name, kcu.column_name, ccu.table_name as referenced_table_name, ccu.column_name as referenced_column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
) fk ON fk.table_name = c.table_name AND fk.column_name = c.column_name
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_name, c.ordinal_position
`

const postgresRelationshipsQuery = `
SELECT
	kcu.table_name as source_table,
	kcu.column_name as source_column,
	ccu.table_name as target_table,
	ccu.column_name as target_column
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
AND tc.table_schema NOT IN ('pg_catalog', 'information_schema')
`

func (d *postgresDriver) GetMetadata(ctx context.Context) ([]model.TableMetadata, []model.ColumnMetadata, []model.RelationshipMetadata, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, nil, err
	}
	defer d.enterBusy()()

	var tables []model.TableMetadata
	rows, err := d.pool.Query(ctx, postgresTablesQuery)
	if err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "fetch postgres tables")
	}
	for rows.Next() {
		var t model.TableMetadata
		var description *string
		var rowCount *int64
		var tableType string
		if err := rows.Scan(&t.Name, &t.SchemaName, &description, &tableType, &rowCount); err != nil {
			rows.Close()
			return nil, nil, nil, apperrors.BackendError(err, "scan postgres table row")
		}
		if description != nil {
			t.Description = *description
		}
		t.Type = model.TableType(tableType)
		t.RowCount = rowCount
		t.Explorable = true
		tables = append(tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "read postgres tables")
	}

	var columns []model.ColumnMetadata
	colRows, err := d.pool.Query(ctx, postgresColumnsQuery)
	if err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "fetch postgres columns")
	}
	for colRows.Next() {
		var c model.ColumnMetadata
		var dataType string
		var description, foreignKey *string
		if err := colRows.Scan(&c.TableName, &c.Name, &dataType, &c.Nullable, &description, &c.PrimaryKey, &foreignKey); err != nil {
			colRows.Close()
			return nil, nil, nil, apperrors.BackendError(err, "scan postgres column row")
		}
		c.DataType = model.NormalizedType(normalizePostgresType(dataType))
		if description != nil {
			c.Description = *description
		}
		if foreignKey != nil {
			c.ForeignKey = *foreignKey
		}
		c.Explorable = true
		columns = append(columns, c)
	}
	colRows.Close()
	if err := colRows.Err(); err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "read postgres columns")
	}

	var relationships []model.RelationshipMetadata
	relRows, err := d.pool.Query(ctx, postgresRelationshipsQuery)
	if err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "fetch postgres relationships")
	}
	for relRows.Next() {
		var r model.RelationshipMetadata
		if err := relRows.Scan(&r.SourceTable, &r.SourceColumn, &r.TargetTable, &r.TargetColumn); err != nil {
			relRows.Close()
			return nil, nil, nil, apperrors.BackendError(err, "scan postgres relationship row")
		}
		r.Relationship = model.RelManyToOne
		r.Automatic = true
		relationships = append(relationships, r)
	}
	relRows.Close()
	if err := relRows.Err(); err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "read postgres relationships")
	}

	return tables, columns, relationships, nil
}

func (d *postgresDriver) Execute(ctx context.Context, sql string, params map[string]any) ([]model.Row, []Column, time.Duration, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, 0, err
	}
	defer d.enterBusy()()

	start := time.Now()
	rows, err := d.pool.Query(ctx, sql)
	if err != nil {
		return nil, nil, time.Since(start), apperrors.BackendError(err, "execute postgres query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]Column, len(fields))
	for i, f := range fields {
		columns[i] = Column{Name: string(f.Name), Type: f.DataTypeOID.String()}
	}

	var result []model.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, nil, time.Since(start), apperrors.BackendError(err, "scan postgres row")
		}
		row := make(model.Row, len(columns))
		for i, c := range columns {
			row[c.Name] = toJSONSafe(vals[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, time.Since(start), apperrors.BackendError(err, "read postgres rows")
	}

	return result, columns, time.Since(start), nil
}

func (d *postgresDriver) StreamExecute(ctx context.Context, sql string, params map[string]any) (<-chan StreamBatch, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}

	out := make(chan StreamBatch, 1)
	go func() {
		defer close(out)
		release := d.enterBusy()
		defer release()

		rows, err := d.pool.Query(ctx, sql)
		if err != nil {
			out <- StreamBatch{Err: apperrors.BackendError(err, "stream postgres query")}
			return
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = string(f.Name)
		}

		batch := make([]model.Row, 0, streamBatchSize)
		for rows.Next() {
			vals, err := rows.Values()
			if err != nil {
				out <- StreamBatch{Err: apperrors.BackendError(err, "scan postgres row")}
				return
			}
			row := make(model.Row, len(names))
			for i, name := range names {
				row[name] = toJSONSafe(vals[i])
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
			out <- StreamBatch{Err: apperrors.BackendError(err, "read postgres rows")}
		}
	}()
	return out, nil
}

func (d *postgresDriver) Explain(ctx context.Context, sql string, params map[string]any) (map[string]any, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	defer d.enterBusy()()

	var plan []byte
	explainSQL := "EXPLAIN (FORMAT JSON, ANALYZE, VERBOSE) " + sql
	if err := d.pool.QueryRow(ctx, explainSQL).Scan(&plan); err != nil {
		return nil, apperrors.BackendError(err, "explain postgres query")
	}
	return map[string]any{"plan": string(plan)}, nil
}

func (d *postgresDriver) GetDialect() dialect.Name { return dialect.Postgres }

func (d *postgresDriver) Close(ctx context.Context) error {
	if already := d.markClosed(); already {
		return nil
	}
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// toJSONSafe mirrors api/handlers/query.go's NaN/Inf sanitization so every
// driver returns the same JSON-safe value shapes: NaN and Inf floats become
// nil, and pointers are dereferenced (a nil pointer becomes nil).
func toJSONSafe(v any) any {
	switch val := v.(type) {
	case float32:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil
		}
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return nil
			}
			return toJSONSafe(rv.Elem().Interface())
		}
		return v
	}
}
