package product

import "errors"

var (
	// ErrNotFound — товар не найден.
	ErrNotFound = errors.New("товар не найден")
	// ErrDuplicateOfflineID — нарушение уникального индекса по offline_id.
	// Не является ошибкой для вызывающего кода синхронизации: повторная
	// доставка того же ключа означает, что товар уже принят.
	ErrDuplicateOfflineID = errors.New("товар с таким offline_id уже существует")
)
