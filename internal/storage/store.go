// Package storage persists submitted orders so the pipeline can
// survive restarts and produce end-of-day reports.
package storage

import (
	"time"

	"github.com/quantforge/riskpipe/internal/exchange"
)

// OrderStore is the persistence port for order records. Persistence is
// best-effort from the executor's point of view: a store failure must
// never fail an already-submitted order.
type OrderStore interface {
	// InsertOrder saves a freshly submitted order.
	InsertOrder(record *exchange.OrderRecord) error

	// UpdateOrder overwrites the stored record matching record.ID.
	UpdateOrder(record *exchange.OrderRecord) error

	// FetchOrders returns all orders submitted at or after since,
	// newest first.
	FetchOrders(since time.Time) ([]exchange.OrderRecord, error)

	// Close flushes and releases any underlying resources.
	Close() error
}
