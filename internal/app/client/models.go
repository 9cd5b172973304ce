package client

import (
	"encoding/json"
	"time"
)

// Operation — тип мутации в очереди синхронизации
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Статусы записей журнала синхронизации
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// PendingProduct — локальный товар кассового терминала.
// LocalID генерируется на терминале и служит ключом идемпотентности
// при отправке на сервер.
type PendingProduct struct {
	LocalID     string    `json:"localId"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	Synced      bool      `json:"synced"`
}

// QueueItem — отложенная операция в очереди синхронизации.
// Payload хранит снимок данных на момент мутации.
type QueueItem struct {
	LocalID       string          `json:"localId"`
	Operation     Operation       `json:"operation"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    time.Time       `json:"enqueuedAt"`
	RetryCount    int             `json:"retryCount"`
	LastAttemptAt *time.Time      `json:"lastAttemptAt,omitempty"`
}

// SyncLogEntry — запись журнала о завершенном проходе синхронизации
type SyncLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	ItemCount int       `json:"itemCount"`
	Message   string    `json:"message"`
}
