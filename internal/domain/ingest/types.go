package ingest

import (
	"time"

	"kassa/internal/domain/product"
)

// EntityPayload — одна мутация товара, присланная терминалом.
// IdempotencyKey — это localId терминала; при повторной доставке
// той же мутации сервер обязан не создать дубликат.
type EntityPayload struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	Name           string    `json:"name"`
	Price          float64   `json:"price,omitempty"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	Stock          int       `json:"stock,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

type BulkSyncRequest struct {
	Entities []EntityPayload `json:"entities"`
}

// ItemError — исход одного непринятого элемента пакета.
// Index — позиция в присланном списке, Key — ключ идемпотентности;
// терминал сопоставляет неудачи со своей очередью по этим полям.
type ItemError struct {
	Index int    `json:"index"`
	Key   string `json:"key,omitempty"`
	Error string `json:"error"`
}

type BulkSyncResponse struct {
	Success      bool        `json:"success"`
	SyncedCount  int         `json:"syncedCount"`
	SkippedCount int         `json:"skippedCount"`
	Errors       []ItemError `json:"errors"`
}

// CreateRequest — одиночная отправка; ключ идемпотентности необязателен
// (товары, созданные онлайн, ключа не несут).
type CreateRequest struct {
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
	Name           string  `json:"name"`
	Price          float64 `json:"price,omitempty"`
	Description    string  `json:"description,omitempty"`
	Category       string  `json:"category,omitempty"`
	Stock          int     `json:"stock,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
}

type CreateResponse struct {
	Success   bool            `json:"success"`
	Entity    product.Product `json:"entity"`
	Duplicate bool            `json:"duplicate"`
}

// UpdateRequest — обновление по ключу идемпотентности (queue path).
type UpdateRequest struct {
	Name        *string  `json:"name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
}

type StatusResponse struct {
	TotalEntities     int `json:"totalEntities"`
	SyncedEntities    int `json:"syncedEntities"`
	LocalOnlyEntities int `json:"localOnlyEntities"`
}
