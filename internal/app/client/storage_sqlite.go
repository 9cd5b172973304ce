package client

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage — локальное хранилище терминала. Переживает перезапуски
// процесса: несинхронизированные товары и очередь операций лежат на диске.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage открывает (или создает) базу данных терминала
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть базу данных: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось инициализировать таблицы: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pending_products (
			local_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			stock INTEGER NOT NULL DEFAULT 0,
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			synced BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
			local_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			payload TEXT NOT NULL,
			enqueued_at TIMESTAMP NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_attempt_at TIMESTAMP,
			PRIMARY KEY (local_id, operation)
		)`,
		`CREATE TABLE IF NOT EXISTS sync_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			item_count INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_products_synced ON pending_products(synced)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_enqueued_at ON sync_queue(enqueued_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("ошибка выполнения запроса: %w", err)
		}
	}

	return nil
}

// SaveProduct сохраняет товар. Повторное сохранение того же local_id
// обновляет запись целиком (upsert одним запросом, без гонки).
func (s *SQLiteStorage) SaveProduct(p *PendingProduct) error {
	query := `INSERT INTO pending_products
		(local_id, name, price, description, category, stock, image_url, created_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			description = excluded.description,
			category = excluded.category,
			stock = excluded.stock,
			image_url = excluded.image_url,
			synced = excluded.synced`

	_, err := s.db.Exec(query,
		p.LocalID, p.Name, p.Price, p.Description, p.Category,
		p.Stock, p.ImageURL, p.CreatedAt, p.Synced)
	if err != nil {
		return fmt.Errorf("%w: сохранение товара: %v", ErrStorage, err)
	}

	return nil
}

// GetProduct возвращает товар по локальному идентификатору
func (s *SQLiteStorage) GetProduct(localID string) (*PendingProduct, error) {
	query := `SELECT local_id, name, price, description, category, stock, image_url, created_at, synced
		FROM pending_products WHERE local_id = ?`

	p := &PendingProduct{}
	err := s.db.QueryRow(query, localID).Scan(
		&p.LocalID, &p.Name, &p.Price, &p.Description, &p.Category,
		&p.Stock, &p.ImageURL, &p.CreatedAt, &p.Synced)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: чтение товара: %v", ErrStorage, err)
	}

	return p, nil
}

// ListProducts возвращает все локальные товары
func (s *SQLiteStorage) ListProducts() ([]*PendingProduct, error) {
	return s.queryProducts(`SELECT local_id, name, price, description, category, stock, image_url, created_at, synced
		FROM pending_products ORDER BY created_at`)
}

// GetUnsynced возвращает товары, еще не подтвержденные сервером
func (s *SQLiteStorage) GetUnsynced() ([]*PendingProduct, error) {
	return s.queryProducts(`SELECT local_id, name, price, description, category, stock, image_url, created_at, synced
		FROM pending_products WHERE synced = 0 ORDER BY created_at`)
}

func (s *SQLiteStorage) queryProducts(query string) ([]*PendingProduct, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: выборка товаров: %v", ErrStorage, err)
	}
	defer rows.Close()

	var products []*PendingProduct
	for rows.Next() {
		p := &PendingProduct{}
		if err := rows.Scan(&p.LocalID, &p.Name, &p.Price, &p.Description, &p.Category,
			&p.Stock, &p.ImageURL, &p.CreatedAt, &p.Synced); err != nil {
			return nil, fmt.Errorf("%w: чтение строки товара: %v", ErrStorage, err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: обход товаров: %v", ErrStorage, err)
	}

	return products, nil
}

// MarkSynced помечает товар подтвержденным. Отсутствие записи не ошибка:
// товар мог быть удален между проходами.
func (s *SQLiteStorage) MarkSynced(localID string) error {
	_, err := s.db.Exec(`UPDATE pending_products SET synced = 1 WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("%w: отметка синхронизации: %v", ErrStorage, err)
	}
	return nil
}

// DeleteProduct удаляет товар из локального хранилища
func (s *SQLiteStorage) DeleteProduct(localID string) error {
	_, err := s.db.Exec(`DELETE FROM pending_products WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("%w: удаление товара: %v", ErrStorage, err)
	}
	return nil
}

// Enqueue ставит операцию в очередь. Повтор той же пары (local_id, operation)
// заменяет payload свежим снимком, счетчик попыток при этом сохраняется.
func (s *SQLiteStorage) Enqueue(item *QueueItem) error {
	query := `INSERT INTO sync_queue (local_id, operation, payload, enqueued_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(local_id, operation) DO UPDATE SET
			payload = excluded.payload`

	_, err := s.db.Exec(query, item.LocalID, string(item.Operation), string(item.Payload), item.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("%w: постановка в очередь: %v", ErrStorage, err)
	}

	return nil
}

// Dequeue убирает операцию из очереди. Отсутствие записи не ошибка.
func (s *SQLiteStorage) Dequeue(localID string, operation Operation) error {
	_, err := s.db.Exec(`DELETE FROM sync_queue WHERE local_id = ? AND operation = ?`,
		localID, string(operation))
	if err != nil {
		return fmt.Errorf("%w: снятие с очереди: %v", ErrStorage, err)
	}
	return nil
}

// ListQueue возвращает очередь в порядке постановки (FIFO).
// rowid разрешает ничьи при одинаковом времени.
func (s *SQLiteStorage) ListQueue() ([]*QueueItem, error) {
	rows, err := s.db.Query(`SELECT local_id, operation, payload, enqueued_at, retry_count, last_attempt_at
		FROM sync_queue ORDER BY enqueued_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: выборка очереди: %v", ErrStorage, err)
	}
	defer rows.Close()

	var items []*QueueItem
	for rows.Next() {
		item := &QueueItem{}
		var operation, payload string
		var lastAttempt sql.NullTime
		if err := rows.Scan(&item.LocalID, &operation, &payload,
			&item.EnqueuedAt, &item.RetryCount, &lastAttempt); err != nil {
			return nil, fmt.Errorf("%w: чтение строки очереди: %v", ErrStorage, err)
		}
		item.Operation = Operation(operation)
		item.Payload = []byte(payload)
		if lastAttempt.Valid {
			item.LastAttemptAt = &lastAttempt.Time
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: обход очереди: %v", ErrStorage, err)
	}

	return items, nil
}

// UpdateQueueItem обновляет счетчик попыток после неудачной отправки
func (s *SQLiteStorage) UpdateQueueItem(item *QueueItem) error {
	var lastAttempt any
	if item.LastAttemptAt != nil {
		lastAttempt = *item.LastAttemptAt
	}

	_, err := s.db.Exec(`UPDATE sync_queue SET retry_count = ?, last_attempt_at = ?
		WHERE local_id = ? AND operation = ?`,
		item.RetryCount, lastAttempt, item.LocalID, string(item.Operation))
	if err != nil {
		return fmt.Errorf("%w: обновление элемента очереди: %v", ErrStorage, err)
	}

	return nil
}

// AppendSyncLog добавляет запись журнала синхронизации
func (s *SQLiteStorage) AppendSyncLog(entry *SyncLogEntry) error {
	_, err := s.db.Exec(`INSERT INTO sync_log (timestamp, status, item_count, message) VALUES (?, ?, ?, ?)`,
		entry.Timestamp, entry.Status, entry.ItemCount, entry.Message)
	if err != nil {
		return fmt.Errorf("%w: запись в журнал: %v", ErrStorage, err)
	}
	return nil
}

// ListSyncLog возвращает последние записи журнала, новые первыми
func (s *SQLiteStorage) ListSyncLog(limit int) ([]*SyncLogEntry, error) {
	rows, err := s.db.Query(`SELECT timestamp, status, item_count, message
		FROM sync_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: выборка журнала: %v", ErrStorage, err)
	}
	defer rows.Close()

	var entries []*SyncLogEntry
	for rows.Next() {
		entry := &SyncLogEntry{}
		if err := rows.Scan(&entry.Timestamp, &entry.Status, &entry.ItemCount, &entry.Message); err != nil {
			return nil, fmt.Errorf("%w: чтение строки журнала: %v", ErrStorage, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: обход журнала: %v", ErrStorage, err)
	}

	return entries, nil
}

// QueueDepth возвращает число операций, ожидающих отправки
func (s *SQLiteStorage) QueueDepth() (int, error) {
	var depth int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&depth); err != nil {
		return 0, fmt.Errorf("%w: размер очереди: %v", ErrStorage, err)
	}
	return depth, nil
}

// Close закрывает базу данных
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
