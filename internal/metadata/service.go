// Package metadata caches per-connection table/column/relationship triples,
// refreshing lazily on first miss, per spec §4.3/§5.
package metadata

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/driver"
	"github.com/kushal-thakkar/facet/internal/model"
)

// cacheEntry is the atomic triple written at the end of a refresh. The
// whole struct is replaced at once so a reader never observes a
// half-updated triple, per spec §4.3's failure clause.
type cacheEntry struct {
	tables        []model.TableMetadata
	columns       []model.ColumnMetadata
	relationships []model.RelationshipMetadata
}

// Service is the in-memory metadata cache keyed by connection id. Refreshes
// for a given connection are serialized (reader/writer discipline); reads
// across different connections proceed concurrently, per spec §5.
type Service struct {
	Clock clockwork.Clock

	mu    sync.RWMutex
	cache map[string]*cacheEntry

	// refreshMu serializes refreshes per connection id so two refreshes for
	// the same connection never call the driver at the same time. Two
	// concurrent misses for the same connection each still call the driver,
	// one after the other.
	refreshMu sync.Map // connectionID -> *sync.Mutex
}

// NewService builds an empty metadata cache. Clock defaults to the real clock.
func NewService() *Service {
	return &Service{
		Clock: clockwork.NewRealClock(),
		cache: make(map[string]*cacheEntry),
	}
}

func (s *Service) lockFor(connID string) *sync.Mutex {
	v, _ := s.refreshMu.LoadOrStore(connID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Refresh calls the driver's metadata extraction and atomically replaces
// the cached triple for conn.ID. Errors propagate unchanged and leave the
// existing cache entry (if any) untouched, per spec §4.3's failure clause.
func (s *Service) Refresh(ctx context.Context, conn *model.Connection, d driver.Driver) error {
	lock := s.lockFor(conn.ID)
	lock.Lock()
	defer lock.Unlock()

	tables, columns, relationships, err := d.GetMetadata(ctx)
	if err != nil {
		return err
	}

	now := s.Clock.Now()
	for i := range tables {
		tables[i].RefreshedAt = &now
	}

	entry := &cacheEntry{tables: tables, columns: columns, relationships: relationships}

	s.mu.Lock()
	s.cache[conn.ID] = entry
	s.mu.Unlock()
	return nil
}

func (s *Service) entry(ctx context.Context, conn *model.Connection, d driver.Driver) (*cacheEntry, error) {
	s.mu.RLock()
	e, ok := s.cache[conn.ID]
	s.mu.RUnlock()
	if ok {
		return e, nil
	}

	if err := s.Refresh(ctx, conn, d); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[conn.ID], nil
}

// GetTables returns the cached tables for conn, refreshing once if absent.
func (s *Service) GetTables(ctx context.Context, conn *model.Connection, d driver.Driver) ([]model.TableMetadata, error) {
	e, err := s.entry(ctx, conn, d)
	if err != nil {
		return nil, err
	}
	return e.tables, nil
}

// GetTable returns a single cached table by name.
func (s *Service) GetTable(ctx context.Context, conn *model.Connection, d driver.Driver, name string) (*model.TableMetadata, error) {
	e, err := s.entry(ctx, conn, d)
	if err != nil {
		return nil, err
	}
	for i := range e.tables {
		if e.tables[i].Name == name {
			return &e.tables[i], nil
		}
	}
	return nil, apperrors.NotFound("table %q not found on connection %q", name, conn.ID)
}

// GetColumns returns the cached columns belonging to table.
func (s *Service) GetColumns(ctx context.Context, conn *model.Connection, d driver.Driver, table string) ([]model.ColumnMetadata, error) {
	e, err := s.entry(ctx, conn, d)
	if err != nil {
		return nil, err
	}
	var out []model.ColumnMetadata
	for _, c := range e.columns {
		if c.TableName == table {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetRelationships returns the cached relationships for conn.
func (s *Service) GetRelationships(ctx context.Context, conn *model.Connection, d driver.Driver) ([]model.RelationshipMetadata, error) {
	e, err := s.entry(ctx, conn, d)
	if err != nil {
		return nil, err
	}
	return e.relationships, nil
}

// UpdateTableMetadata mutates the display-only fields of a cached table
// entry in place; it never touches the underlying database, per spec §4.3.
func (s *Service) UpdateTableMetadata(connID, table string, patch model.TableMetadataPatch) (*model.TableMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache[connID]
	if !ok {
		return nil, apperrors.NotFound("no cached metadata for connection %q", connID)
	}
	for i := range e.tables {
		if e.tables[i].Name != table {
			continue
		}
		if patch.DisplayName != nil {
			e.tables[i].DisplayName = *patch.DisplayName
		}
		if patch.Description != nil {
			e.tables[i].Description = *patch.Description
		}
		if patch.Category != nil {
			e.tables[i].Category = *patch.Category
		}
		if patch.Explorable != nil {
			e.tables[i].Explorable = *patch.Explorable
		}
		return &e.tables[i], nil
	}
	return nil, apperrors.NotFound("table %q not found on connection %q", table, connID)
}
