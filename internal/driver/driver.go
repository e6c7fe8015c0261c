// Package driver defines the uniform backend capability (spec §4.2) and
// its four implementations: postgres, clickhouse, bigquery, snowflake.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// Column describes one result column in execution order.
type Column struct {
	Name string
	Type string
}

// Driver is the polymorphic capability every backend implements. Each
// variant owns its live client/pool and is created fresh per request by
// the query service, then closed on every exit path.
type Driver interface {
	Connect(ctx context.Context) error
	TestConnection(ctx context.Context) (ok bool, message string)
	GetMetadata(ctx context.Context) ([]model.TableMetadata, []model.ColumnMetadata, []model.RelationshipMetadata, error)
	Execute(ctx context.Context, sql string, params map[string]any) (rows []model.Row, columns []Column, elapsed time.Duration, err error)
	StreamExecute(ctx context.Context, sql string, params map[string]any) (<-chan StreamBatch, error)
	Explain(ctx context.Context, sql string, params map[string]any) (map[string]any, error)
	GetDialect() dialect.Name
	Close(ctx context.Context) error
}

// StreamBatch is one batch yielded by StreamExecute's bounded hand-off
// queue (default 100 rows per spec §5).
type StreamBatch struct {
	Rows []model.Row
	Err  error
}

// State is a driver's lifecycle stage.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateBusy
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// lifecycle tracks the uninitialized → connecting → ready → (busy ↔ ready)
// → closed state machine shared by every driver variant. connect and close
// are idempotent; close is tolerated after partial construction.
type lifecycle struct {
	mu    sync.Mutex
	state State
}

func (l *lifecycle) transitionConnecting() (alreadyConnected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateReady || l.state == StateBusy {
		return true
	}
	l.state = StateConnecting
	return false
}

func (l *lifecycle) markReady() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateClosed {
		l.state = StateReady
	}
}

// enterBusy transitions ready→busy for the duration of a call; the
// returned func restores the prior state.
func (l *lifecycle) enterBusy() func() {
	l.mu.Lock()
	prev := l.state
	l.state = StateBusy
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		if l.state != StateClosed {
			l.state = prev
		}
		l.mu.Unlock()
	}
}

func (l *lifecycle) markClosed() (alreadyClosed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosed {
		return true
	}
	l.state = StateClosed
	return false
}

func (l *lifecycle) current() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// errNotReady builds the error for an operation attempted before connect or
// after close. No driver in this package calls it: each operation calls
// Connect first instead.
func errNotReady(op string, s State) error {
	return fmt.Errorf("driver: cannot %s in state %s", op, s)
}
