package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// bigqueryDriver owns a native bigquery.Client built from either a
// service-account JSON blob or default credentials. All blocking calls are
// dispatched through a workerPool so the gateway's scheduler stays
// cooperative, per spec §4.2/§5.
type bigqueryDriver struct {
	lifecycle
	conn   *model.Connection
	client *bigquery.Client
	pool   *workerPool
}

func newBigQueryDriver(conn *model.Connection) *bigqueryDriver {
	return &bigqueryDriver{conn: conn, pool: newWorkerPool()}
}

func (d *bigqueryDriver) Connect(ctx context.Context) error {
	if already := d.transitionConnecting(); already {
		return nil
	}

	projectID := d.conn.ConfigString("project_id")
	var opts []option.ClientOption
	if creds := d.conn.ConfigString("credentials_json"); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	err := d.pool.run(ctx, func() error {
		client, err := bigquery.NewClient(ctx, projectID, opts...)
		if err != nil {
			return err
		}
		d.client = client
		return nil
	})
	if err != nil {
		return apperrors.BackendError(err, "connect to bigquery")
	}

	d.markReady()
	return nil
}

func (d *bigqueryDriver) TestConnection(ctx context.Context) (bool, string) {
	if err := d.Connect(ctx); err != nil {
		return false, err.Error()
	}
	defer d.enterBusy()()

	var datasetCount int
	err := d.pool.run(ctx, func() error {
		it := d.client.Datasets(ctx)
		for {
			_, err := it.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			datasetCount++
		}
	})
	if err != nil {
		return false, fmt.Sprintf("connection failed: %v", err)
	}
	return true, fmt.Sprintf("connection successful: %d dataset(s) visible", datasetCount)
}

func (d *bigqueryDriver) GetMetadata(ctx context.Context) ([]model.TableMetadata, []model.ColumnMetadata, []model.RelationshipMetadata, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, nil, err
	}
	defer d.enterBusy()()

	var tables []model.TableMetadata
	var columns []model.ColumnMetadata

	// spec §4.3/§9 adopts the enumerated-datasets behavior: every dataset
	// visible to the credentials is listed, unless a dataset_id is
	// configured, in which case it acts as a filter and only that dataset
	// is listed.
	datasetFilter := d.conn.ConfigString("dataset_id")

	err := d.pool.run(ctx, func() error {
		dit := d.client.Datasets(ctx)
		for {
			ds, err := dit.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			if datasetFilter != "" && ds.DatasetID != datasetFilter {
				continue
			}

			tit := ds.Tables(ctx)
			for {
				tbl, err := tit.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					return err
				}

				md, err := tbl.Metadata(ctx)
				if err != nil {
					return err
				}

				tableType := model.TableKindTable
				if md.Type == bigquery.ViewTable {
					tableType = model.TableKindView
				}
				var rowCount *int64
				if md.NumRows > 0 {
					n := int64(md.NumRows)
					rowCount = &n
				}

				tables = append(tables, model.TableMetadata{
					Name:       tbl.TableID,
					SchemaName: ds.DatasetID,
					Type:       tableType,
					RowCount:   rowCount,
					Explorable: true,
				})

				for _, f := range md.Schema {
					columns = append(columns, model.ColumnMetadata{
						Name:       f.Name,
						TableName:  tbl.TableID,
						DataType:   model.NormalizedType(normalizeBigQueryType(string(f.Type))),
						Nullable:   !f.Required,
						Explorable: true,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, apperrors.BackendError(err, "fetch bigquery metadata")
	}

	// BigQuery has no foreign key constraints to enumerate relationships
	// from; none are returned here.
	return tables, columns, nil, nil
}

func (d *bigqueryDriver) Execute(ctx context.Context, sql string, params map[string]any) ([]model.Row, []Column, time.Duration, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, nil, 0, err
	}
	defer d.enterBusy()()

	start := time.Now()
	var result []model.Row
	var columns []Column

	err := d.pool.run(ctx, func() error {
		q := d.client.Query(substituteBigQueryParams(sql, params))
		q.DisableFlattenedResults = true // flatten_results=false per spec §4.2 (nested records preserved)
		q.UseQueryCache = true

		it, err := q.Read(ctx)
		if err != nil {
			return err
		}

		for i, f := range it.Schema {
			_ = i
			columns = append(columns, Column{Name: f.Name, Type: string(f.Type)})
		}

		for {
			var values []bigquery.Value
			err := it.Next(&values)
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			row := make(model.Row, len(columns))
			for i, c := range columns {
				row[c.Name] = normalizeBigQueryValue(values[i])
			}
			result = append(result, row)
		}
		return nil
	})
	if err != nil {
		return nil, nil, time.Since(start), apperrors.BackendError(err, "execute bigquery query")
	}

	return result, columns, time.Since(start), nil
}

func (d *bigqueryDriver) StreamExecute(ctx context.Context, sql string, params map[string]any) (<-chan StreamBatch, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}

	var it *bigquery.RowIterator
	var columns []Column
	err := d.pool.run(ctx, func() error {
		q := d.client.Query(substituteBigQueryParams(sql, params))
		var err error
		it, err = q.Read(ctx)
		if err != nil {
			return err
		}
		for _, f := range it.Schema {
			columns = append(columns, Column{Name: f.Name, Type: string(f.Type)})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.BackendError(err, "stream bigquery query")
	}

	return streamViaBatches(ctx, d.pool, func() ([]model.Row, bool, error) {
		batch := make([]model.Row, 0, streamBatchSize)
		for len(batch) < streamBatchSize {
			var values []bigquery.Value
			err := it.Next(&values)
			if err == iterator.Done {
				return batch, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			row := make(model.Row, len(columns))
			for i, c := range columns {
				row[c.Name] = normalizeBigQueryValue(values[i])
			}
			batch = append(batch, row)
		}
		return batch, true, nil
	}), nil
}

func (d *bigqueryDriver) Explain(ctx context.Context, sql string, params map[string]any) (map[string]any, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	defer d.enterBusy()()

	var plan map[string]any
	err := d.pool.run(ctx, func() error {
		q := d.client.Query(substituteBigQueryParams(sql, params))
		q.DryRun = true
		job, err := q.Run(ctx)
		if err != nil {
			return err
		}
		status := job.LastStatus()
		raw, _ := json.Marshal(status.Statistics)
		return json.Unmarshal(raw, &plan)
	})
	if err != nil {
		return nil, apperrors.BackendError(err, "explain bigquery query")
	}
	return plan, nil
}

func (d *bigqueryDriver) GetDialect() dialect.Name { return dialect.BigQuery }

func (d *bigqueryDriver) Close(ctx context.Context) error {
	if already := d.markClosed(); already {
		return nil
	}
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// substituteBigQueryParams naively replaces "@k" tokens with the inlined
// literal for k, per spec §4.2's acknowledged-insecure parameter parity
// shim (the translator itself never emits placeholders).
func substituteBigQueryParams(sql string, params map[string]any) string {
	return naiveSubstitute(sql, params, "@")
}

// normalizeBigQueryValue stringifies nested records to JSON text, per
// spec §4.2's result-normalization rule for bigquery's nested rows.
func normalizeBigQueryValue(v bigquery.Value) any {
	switch val := v.(type) {
	case []bigquery.Value:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	default:
		return val
	}
}
