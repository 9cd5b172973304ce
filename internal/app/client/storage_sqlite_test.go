package client

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "kassa_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

func testProduct(localID string) *PendingProduct {
	return &PendingProduct{
		LocalID:   localID,
		Name:      "Кофе зерновой",
		Price:     1250.50,
		Category:  "напитки",
		Stock:     10,
		CreatedAt: time.Now().Truncate(time.Second),
	}
}

func TestSQLiteStorage_SaveAndGetProduct(t *testing.T) {
	storage := newTestStorage(t)

	p := testProduct("loc-1")
	require.NoError(t, storage.SaveProduct(p))

	got, err := storage.GetProduct("loc-1")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Price, got.Price)
	assert.Equal(t, p.Stock, got.Stock)
	assert.False(t, got.Synced)
}

func TestSQLiteStorage_SaveProduct_UpsertSameLocalID(t *testing.T) {
	storage := newTestStorage(t)

	p := testProduct("loc-1")
	require.NoError(t, storage.SaveProduct(p))

	// Повторное сохранение того же local_id обновляет запись, а не дублирует
	p.Stock = 42
	require.NoError(t, storage.SaveProduct(p))

	products, err := storage.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 42, products[0].Stock)
}

func TestSQLiteStorage_GetProduct_NotFound(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.GetProduct("loc-missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSQLiteStorage_GetUnsynced(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveProduct(testProduct("loc-1")))
	require.NoError(t, storage.SaveProduct(testProduct("loc-2")))
	require.NoError(t, storage.MarkSynced("loc-1"))

	unsynced, err := storage.GetUnsynced()
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "loc-2", unsynced[0].LocalID)
}

func TestSQLiteStorage_MarkSynced_MissingIsNoop(t *testing.T) {
	storage := newTestStorage(t)

	// Товар мог быть удален между проходами, это не ошибка
	assert.NoError(t, storage.MarkSynced("loc-missing"))
}

func TestSQLiteStorage_Enqueue_PreservesRetryCount(t *testing.T) {
	storage := newTestStorage(t)

	item := &QueueItem{
		LocalID:    "loc-1",
		Operation:  OpCreate,
		Payload:    json.RawMessage(`{"name":"Кофе"}`),
		EnqueuedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, storage.Enqueue(item))

	item.RetryCount = 3
	require.NoError(t, storage.UpdateQueueItem(item))

	// Повторная постановка заменяет payload, но не сбрасывает счетчик попыток
	fresh := &QueueItem{
		LocalID:    "loc-1",
		Operation:  OpCreate,
		Payload:    json.RawMessage(`{"name":"Кофе зерновой"}`),
		EnqueuedAt: time.Now(),
	}
	require.NoError(t, storage.Enqueue(fresh))

	items, err := storage.ListQueue()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].RetryCount)
	assert.JSONEq(t, `{"name":"Кофе зерновой"}`, string(items[0].Payload))
}

func TestSQLiteStorage_Dequeue_MissingIsNoop(t *testing.T) {
	storage := newTestStorage(t)

	assert.NoError(t, storage.Dequeue("loc-missing", OpCreate))
}

func TestSQLiteStorage_ListQueue_FIFO(t *testing.T) {
	storage := newTestStorage(t)

	base := time.Now().Truncate(time.Second)
	for i, id := range []string{"loc-1", "loc-2", "loc-3"} {
		require.NoError(t, storage.Enqueue(&QueueItem{
			LocalID:    id,
			Operation:  OpCreate,
			Payload:    json.RawMessage(`{}`),
			EnqueuedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	items, err := storage.ListQueue()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "loc-1", items[0].LocalID)
	assert.Equal(t, "loc-2", items[1].LocalID)
	assert.Equal(t, "loc-3", items[2].LocalID)
}

func TestSQLiteStorage_UpdateQueueItem(t *testing.T) {
	storage := newTestStorage(t)

	item := &QueueItem{
		LocalID:    "loc-1",
		Operation:  OpUpdate,
		Payload:    json.RawMessage(`{}`),
		EnqueuedAt: time.Now(),
	}
	require.NoError(t, storage.Enqueue(item))

	now := time.Now().Truncate(time.Second)
	item.RetryCount = 2
	item.LastAttemptAt = &now
	require.NoError(t, storage.UpdateQueueItem(item))

	items, err := storage.ListQueue()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].RetryCount)
	require.NotNil(t, items[0].LastAttemptAt)
}

func TestSQLiteStorage_SyncLog(t *testing.T) {
	storage := newTestStorage(t)

	base := time.Now().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, storage.AppendSyncLog(&SyncLogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Status:    SyncStatusSuccess,
			ItemCount: i,
		}))
	}

	// Новые записи первыми, лимит соблюдается
	entries, err := storage.ListSyncLog(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].ItemCount)
	assert.Equal(t, 1, entries[1].ItemCount)
}

func TestSQLiteStorage_QueueDepth(t *testing.T) {
	storage := newTestStorage(t)

	depth, err := storage.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	require.NoError(t, storage.Enqueue(&QueueItem{
		LocalID:    "loc-1",
		Operation:  OpCreate,
		Payload:    json.RawMessage(`{}`),
		EnqueuedAt: time.Now(),
	}))

	depth, err = storage.QueueDepth()
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestSQLiteStorage_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kassa_test.db")

	storage, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, storage.SaveProduct(testProduct("loc-1")))
	require.NoError(t, storage.Enqueue(&QueueItem{
		LocalID:    "loc-1",
		Operation:  OpCreate,
		Payload:    json.RawMessage(`{}`),
		EnqueuedAt: time.Now(),
	}))
	require.NoError(t, storage.Close())

	// Данные переживают перезапуск терминала
	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer reopened.Close()

	products, err := reopened.ListProducts()
	require.NoError(t, err)
	assert.Len(t, products, 1)

	items, err := reopened.ListQueue()
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
