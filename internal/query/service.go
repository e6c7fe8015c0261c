// Package query orchestrates the per-request lifecycle the rest of the
// gateway exists to serve: resolve connection, build and connect a driver,
// translate, execute, and always close, per spec §4.4.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/driver"
	"github.com/kushal-thakkar/facet/internal/metrics"
	"github.com/kushal-thakkar/facet/internal/model"
	"github.com/kushal-thakkar/facet/internal/registry"
	"github.com/kushal-thakkar/facet/internal/translator"
)

// ConnectionResolver looks up a connection by id. registry.Registry
// satisfies this.
type ConnectionResolver interface {
	Get(id string) (model.Connection, error)
}

// DriverFactory builds a fresh driver for a connection. driver.New
// satisfies this; tests substitute a fake.
type DriverFactory func(conn *model.Connection) (driver.Driver, error)

// Service executes QueryModels against a resolved connection's driver,
// per spec §4.4's nine-step algorithm.
type Service struct {
	Connections ConnectionResolver
	NewDriver   DriverFactory
	Logger      *slog.Logger
}

// NewService wires a Service from a registry and the default driver factory.
func NewService(connections ConnectionResolver, logger *slog.Logger) *Service {
	return &Service{Connections: connections, NewDriver: driver.New, Logger: logger}
}

// Execute runs the nine-step algorithm of spec §4.4. It never returns an
// error for a backend failure during execute — those are folded into the
// returned QueryResult's Error field, per spec §7. It does return an error
// for NotFound/Unsupported/InvalidQuery/ConfigError, which the HTTP layer
// maps to 404 and 400 respectively.
func (s *Service) Execute(ctx context.Context, connectionID string, q *model.QueryModel) (*model.QueryResult, error) {
	conn, err := s.Connections.Get(connectionID)
	if err != nil {
		return nil, err
	}

	d, err := s.NewDriver(&conn)
	if err != nil {
		return nil, err
	}

	result, execErr := s.execute(ctx, &conn, d, q)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Close(closeCtx); err != nil {
		s.Logger.Warn("driver close failed", "connection", connectionID, "error", err)
	}

	if execErr != nil {
		// InvalidQuery/Unsupported surface immediately (no SQL produced);
		// BackendError during execute is folded into the envelope by
		// s.execute itself, so reaching here means either the driver failed
		// to connect or translation/validation failed before any query ran.
		return nil, execErr
	}
	return result, nil
}

func (s *Service) execute(ctx context.Context, conn *model.Connection, d driver.Driver, q *model.QueryModel) (*model.QueryResult, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}

	dialectName := d.GetDialect()

	// Translating the main query first validates the pagination invariants
	// before the count pre-query runs.
	sql, err := translator.Translate(q, dialectName)
	if err != nil {
		return nil, err
	}

	var totalCount *int64
	if q.IsServerPagination {
		countSQL, err := translator.TranslateCount(q, dialectName)
		if err != nil {
			return nil, err
		}
		rows, _, _, err := d.Execute(ctx, countSQL, nil)
		if err != nil {
			return s.backendFailure(conn, err, countSQL), nil
		}
		totalCount = extractCount(rows)
	}

	start := time.Now()
	rows, columns, elapsed, err := d.Execute(ctx, sql, nil)
	metrics.RecordQuery(string(dialectName), time.Since(start), err)
	if err != nil {
		return s.backendFailure(conn, err, sql), nil
	}

	resultColumns := make([]model.Column, len(columns))
	for i, c := range columns {
		resultColumns[i] = model.Column{Name: c.Name}
	}

	result := &model.QueryResult{
		Columns:       resultColumns,
		Data:          rows,
		RowCount:      len(rows),
		TotalCount:    totalCount,
		ExecutionTime: elapsed.Seconds(),
		SQL:           sql,
	}
	if q.IsServerPagination && totalCount != nil {
		result.HasMore = int64(*q.Offset+len(rows)) < *totalCount
	}
	return result, nil
}

// backendFailure converts a driver error raised during execute into a
// result envelope rather than a thrown error, per spec §7. The failure is
// also reported to Sentry for operator visibility.
func (s *Service) backendFailure(conn *model.Connection, err error, sql string) *model.QueryResult {
	sentry.CaptureException(err)
	s.Logger.Error("backend query failed", "connection", conn.ID, "error", err)

	msg := err.Error()
	if ae, ok := err.(*apperrors.Error); ok {
		msg = ae.Message
	}
	return &model.QueryResult{
		RowCount: 0,
		SQL:      sql,
		Error:    msg,
	}
}

// extractCount pulls the integer count out of the single row returned by a
// COUNT(*) query, accepting any case of the column name since some
// backends upcase it, per spec §4.4 step 5.
func extractCount(rows []model.Row) *int64 {
	if len(rows) == 0 {
		return nil
	}
	for k, v := range rows[0] {
		if lower(k) != "count" {
			continue
		}
		if n, ok := toInt64(v); ok {
			return &n
		}
	}
	return nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		if parsed, err := strconv.ParseInt(n, 10, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
