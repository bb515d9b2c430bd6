// Package events carries row-level change notifications from writers to
// live views.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// ChangeType is the kind of write that produced a Change.
type ChangeType string

const (
	Insert ChangeType = "insert"
	Update ChangeType = "update"
	Upsert ChangeType = "upsert"
)

// Change describes one write to a table.
type Change struct {
	Table    string          `json:"table"`
	Type     ChangeType      `json:"type"`
	RecordID string          `json:"record_id"`
	Columns  []string        `json:"columns,omitempty"`
	Record   json.RawMessage `json:"record,omitempty"`
	At       time.Time       `json:"at"`
}

// NewChange builds a Change, encoding record as JSON when it is not nil.
func NewChange(table string, typ ChangeType, id string, record any, columns ...string) (Change, error) {
	c := Change{
		Table:    table,
		Type:     typ,
		RecordID: id,
		Columns:  columns,
		At:       time.Now().UTC(),
	}
	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return Change{}, err
		}
		c.Record = raw
	}
	return c, nil
}

// Touches reports whether the change wrote column. Changes without a column
// list count as touching every column.
func (c Change) Touches(column string) bool {
	if len(c.Columns) == 0 {
		return true
	}
	for _, col := range c.Columns {
		if col == column {
			return true
		}
	}
	return false
}

// Handler receives changes for one subscription, on a single goroutine.
type Handler func(Change)

// Subscription stops delivery when closed. Close is idempotent.
type Subscription interface {
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

type Subscriber interface {
	// Subscribe delivers every change on table to fn. channel names the
	// subscription for diagnostics.
	Subscribe(ctx context.Context, channel, table string, fn Handler) (Subscription, error)
}

// Broker is both ends of the change stream.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Discard is a Publisher that drops every change.
type Discard struct{}

func (Discard) Publish(context.Context, Change) error { return nil }
