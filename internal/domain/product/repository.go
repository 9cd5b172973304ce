package product

import (
	"context"
	"time"
)

// Repository — контракт хранилища товаров.
// Идемпотентность вставки гарантируется уникальным индексом по offline_id
// на уровне СУБД, а не проверкой в коде приложения: Insert при повторном
// ключе обязан вернуть ErrDuplicateOfflineID даже при гонке двух терминалов.
type Repository interface {
	Insert(ctx context.Context, p *Product) (int64, error)
	FindByOfflineID(ctx context.Context, offlineID string) (*Product, error)
	UpdateByOfflineID(ctx context.Context, offlineID string, upd Update) error
	DeleteByOfflineID(ctx context.Context, offlineID string) error
	List(ctx context.Context, limit, offset int) ([]*Product, error)
	Counts(ctx context.Context) (total int, withOffline int, err error)
}

// Update — частичное обновление товара с терминала.
type Update struct {
	Name        *string
	Price       *float64
	Description *string
	Category    *string
	Stock       *int
	ImageURL    *string
	UpdatedAt   time.Time
}
