// Package registry holds the predefined (read-only) and session
// (read/write) connection stores, per spec §6/§5.
package registry

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/model"
)

// Registry holds predefined connections loaded once at startup alongside
// session connections created/updated/deleted at runtime. Predefined
// connections reject update and delete, per spec §6.
type Registry struct {
	Clock clockwork.Clock

	predefined map[string]model.Connection

	mu      sync.RWMutex
	session map[string]model.Connection
}

// New builds a Registry seeded with the connections loaded from
// connections.yaml. Clock defaults to the real clock.
func New(predefined []model.Connection) *Registry {
	r := &Registry{
		Clock:      clockwork.NewRealClock(),
		predefined: make(map[string]model.Connection, len(predefined)),
		session:    make(map[string]model.Connection),
	}
	for _, c := range predefined {
		r.predefined[c.ID] = c
	}
	return r
}

// List returns every connection, predefined and session, in no particular order.
func (r *Registry) List() []model.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Connection, 0, len(r.predefined)+len(r.session))
	for _, c := range r.predefined {
		out = append(out, c)
	}
	for _, c := range r.session {
		out = append(out, c)
	}
	return out
}

// Get resolves a connection by id, checking predefined then session
// entries. Returns NotFound if absent, per spec §4.4 step 1.
func (r *Registry) Get(id string) (model.Connection, error) {
	if c, ok := r.predefined[id]; ok {
		return c, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.session[id]; ok {
		return c, nil
	}
	return model.Connection{}, apperrors.NotFound("connection %q not found", id)
}

// Create registers a new session connection and returns it with a fresh id
// and timestamps.
func (r *Registry) Create(name string, ctype model.ConnectionType, config map[string]any) model.Connection {
	now := r.Clock.Now()
	conn := model.Connection{
		ID:        "sess_" + uuid.NewString(),
		Name:      name,
		Type:      ctype,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.session[conn.ID] = conn
	return conn
}

// Update replaces a session connection's name/config in place. Predefined
// connections reject update, per spec §6.
func (r *Registry) Update(id string, name string, config map[string]any) (model.Connection, error) {
	if _, ok := r.predefined[id]; ok {
		return model.Connection{}, apperrors.InvalidQuery("predefined connection %q cannot be updated", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.session[id]
	if !ok {
		return model.Connection{}, apperrors.NotFound("connection %q not found", id)
	}
	if name != "" {
		conn.Name = name
	}
	if config != nil {
		conn.Config = config
	}
	conn.UpdatedAt = r.Clock.Now()
	r.session[id] = conn
	return conn, nil
}

// Delete removes a session connection. Predefined connections reject
// delete, per spec §6.
func (r *Registry) Delete(id string) error {
	if _, ok := r.predefined[id]; ok {
		return apperrors.InvalidQuery("predefined connection %q cannot be deleted", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.session[id]; !ok {
		return apperrors.NotFound("connection %q not found", id)
	}
	delete(r.session, id)
	return nil
}
