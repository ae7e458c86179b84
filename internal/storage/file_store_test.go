package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/riskpipe/internal/exchange"
)

func testRecord(id string, submittedAt time.Time) *exchange.OrderRecord {
	return &exchange.OrderRecord{
		ID:          id,
		Symbol:      "AAPL",
		Side:        exchange.SideBuy,
		Qty:         10,
		Type:        exchange.OrderTypeMarket,
		Status:      exchange.OrderStateFilled,
		SubmittedAt: submittedAt,
		UpdatedAt:   submittedAt,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.InsertOrder(testRecord("order-1", now.Add(-time.Hour))))
	require.NoError(t, store.InsertOrder(testRecord("order-2", now)))
	require.NoError(t, store.Close())

	// A fresh store sees the persisted snapshot.
	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	orders, err := reopened.FetchOrders(time.Time{})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-2", orders[0].ID, "newest first")
	assert.Equal(t, "order-1", orders[1].ID)
}

func TestFileStoreFetchSince(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "orders.json"))
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.InsertOrder(testRecord("old", now.Add(-48*time.Hour))))
	require.NoError(t, store.InsertOrder(testRecord("recent", now)))

	orders, err := store.FetchOrders(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "recent", orders[0].ID)
}

func TestFileStoreUpdateOrder(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "orders.json"))
	require.NoError(t, err)

	record := testRecord("order-1", time.Now())
	require.NoError(t, store.InsertOrder(record))

	record.Status = exchange.OrderStateCancelled
	require.NoError(t, store.UpdateOrder(record))

	orders, err := store.FetchOrders(time.Time{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, exchange.OrderStateCancelled, orders[0].Status)

	// Updating something never inserted is an error.
	assert.Error(t, store.UpdateOrder(testRecord("ghost", time.Now())))
}

func TestFileStoreRejectsDuplicatesAndEmptyIDs(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "orders.json"))
	require.NoError(t, err)

	record := testRecord("order-1", time.Now())
	require.NoError(t, store.InsertOrder(record))
	assert.Error(t, store.InsertOrder(record))

	assert.Error(t, store.InsertOrder(&exchange.OrderRecord{}))
	assert.Error(t, store.InsertOrder(nil))
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}
