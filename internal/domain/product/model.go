package product

import "time"

// Product — авторитетная серверная запись товара.
// OfflineID заполнен только для товаров, созданных терминалом офлайн,
// и совпадает с localId терминала (ключ идемпотентности).
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	OfflineID   *string   `json:"offlineId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
