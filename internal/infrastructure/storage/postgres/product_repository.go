package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/exp/slog"

	"kassa/internal/domain/product"
)

const uniqueViolation = "23505"

// ProductRepository — реализация репозитория товаров для PostgreSQL.
// Контракт идемпотентности держится на уникальном индексе
// products_offline_id_key: проверка "check-then-insert" в коде приложения
// проиграла бы гонку двух терминалов с одним ключом.
type ProductRepository struct {
	storage *Storage
	log     *slog.Logger
}

func NewProductRepository(storage *Storage, log *slog.Logger) *ProductRepository {
	return &ProductRepository{
		storage: storage,
		log:     log,
	}
}

func (r *ProductRepository) Insert(ctx context.Context, p *product.Product) (int64, error) {
	query := `
		INSERT INTO products
			(name, price, description, category, stock, image_url, offline_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.storage.Pool().QueryRow(ctx, query,
		p.Name,
		p.Price,
		p.Description,
		p.Category,
		p.Stock,
		p.ImageURL,
		p.OfflineID,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, product.ErrDuplicateOfflineID
		}
		return 0, fmt.Errorf("failed to insert product: %w", err)
	}

	return id, nil
}

func (r *ProductRepository) FindByOfflineID(ctx context.Context, offlineID string) (*product.Product, error) {
	query := `
		SELECT id, name, price, description, category, stock, image_url, offline_id, created_at, updated_at
		FROM products
		WHERE offline_id = $1
	`

	var p product.Product
	err := r.storage.Pool().QueryRow(ctx, query, offlineID).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Description,
		&p.Category,
		&p.Stock,
		&p.ImageURL,
		&p.OfflineID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product by offline id: %w", err)
	}

	return &p, nil
}

func (r *ProductRepository) UpdateByOfflineID(ctx context.Context, offlineID string, upd product.Update) error {
	query := `
		UPDATE products
		SET name        = COALESCE($1, name),
		    price       = COALESCE($2, price),
		    description = COALESCE($3, description),
		    category    = COALESCE($4, category),
		    stock       = COALESCE($5, stock),
		    image_url   = COALESCE($6, image_url),
		    updated_at  = $7
		WHERE offline_id = $8
	`

	tag, err := r.storage.Pool().Exec(ctx, query,
		upd.Name,
		upd.Price,
		upd.Description,
		upd.Category,
		upd.Stock,
		upd.ImageURL,
		upd.UpdatedAt,
		offlineID,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}

	return nil
}

func (r *ProductRepository) DeleteByOfflineID(ctx context.Context, offlineID string) error {
	tag, err := r.storage.Pool().Exec(ctx,
		`DELETE FROM products WHERE offline_id = $1`, offlineID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}

	return nil
}

func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]*product.Product, error) {
	query := `
		SELECT id, name, price, description, category, stock, image_url, offline_id, created_at, updated_at
		FROM products
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.storage.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Price,
			&p.Description,
			&p.Category,
			&p.Stock,
			&p.ImageURL,
			&p.OfflineID,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) Counts(ctx context.Context) (int, int, error) {
	var total, withOffline int
	err := r.storage.Pool().QueryRow(ctx,
		`SELECT COUNT(*), COUNT(offline_id) FROM products`,
	).Scan(&total, &withOffline)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return total, withOffline, nil
}
