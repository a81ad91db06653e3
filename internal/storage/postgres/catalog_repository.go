package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oyushop/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию CatalogRepository.
func NewCatalogRepository(store *Store) domain.CatalogRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	images, err := json.Marshal(product.Images)
	if err != nil {
		return fmt.Errorf("marshal product images: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, price, category, image, images, stock, sort_order, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		product.ID, product.Name, product.Description, product.Price, string(product.Category),
		product.Image, images, product.Stock, product.SortOrder, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *catalogRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getCtx(ctx, id)
}

func (r *catalogRepository) getCtx(ctx context.Context, id string) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, category, image, images, stock, sort_order, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *catalogRepository) List(filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, name, description, price, category, image, images, stock, sort_order, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR category = $1)
		  AND ($2 <= 0 OR stock < $2)
		ORDER BY sort_order ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(filter.Category), filter.LowStockBelow)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

func (r *catalogRepository) Update(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	images, err := json.Marshal(product.Images)
	if err != nil {
		return fmt.Errorf("marshal product images: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    description = $2,
		    price = $3,
		    category = $4,
		    image = $5,
		    images = $6,
		    stock = $7,
		    sort_order = $8,
		    updated_at = $9
		WHERE id = $10
	`,
		product.Name, product.Description, product.Price, string(product.Category),
		product.Image, images, product.Stock, product.SortOrder, time.Now().UTC(), product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *catalogRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// AdjustStock — условное обновление одним statement: списание проходит
// только если остаток не уходит в минус. Это и есть compare-and-swap уровня
// хранилища, который держит инвариант «no oversell» при гонках между
// конкурентными заказами, прошедшими предварительную проверку корзины.
func (r *catalogRepository) AdjustStock(id string, delta int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock + $2 >= 0
		RETURNING id, name, description, price, category, image, images, stock, sort_order, created_at, updated_at
	`, id, delta)

	product, err := scanProduct(row)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("adjust stock: %w", err)
	}

	// Условие не сработало: различаем отсутствующий товар и нехватку остатка.
	current, getErr := r.getCtx(ctx, id)
	if getErr != nil {
		return domain.Product{}, getErr
	}

	return domain.Product{}, &domain.InsufficientStockError{
		ProductID: current.ID,
		Name:      current.Name,
		Available: current.Stock,
		Requested: -delta,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	var category string
	var imagesRaw []byte

	if err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &category,
		&product.Image, &imagesRaw, &product.Stock, &product.SortOrder, &product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	product.Category = domain.Category(category)

	if len(imagesRaw) > 0 {
		if err := json.Unmarshal(imagesRaw, &product.Images); err != nil {
			return domain.Product{}, fmt.Errorf("unmarshal product images: %w", err)
		}
	}

	return product, nil
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)
