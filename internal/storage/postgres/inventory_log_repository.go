package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oyushop/storefront/internal/domain"
)

type inventoryLogRepository struct {
	db *sql.DB
}

// NewInventoryLogRepository создаёт PostgreSQL-реализацию InventoryLogRepository.
func NewInventoryLogRepository(store *Store) domain.InventoryLogRepository {
	return &inventoryLogRepository{db: store.DB()}
}

func (r *inventoryLogRepository) Append(log domain.InventoryLog) (domain.InventoryLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory_logs (
			id, product_code, product_name, import_date,
			unit_cost, sale_price, quantity,
			cargo_cost, inspection_cost, other_cost, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		log.ID, log.ProductCode, log.ProductName, log.ImportDate,
		log.UnitCost, log.SalePrice, log.Quantity,
		log.CargoCost, log.InspectionCost, log.OtherCost, log.CreatedAt,
	)
	if err != nil {
		return domain.InventoryLog{}, fmt.Errorf("insert inventory log: %w", err)
	}

	return log, nil
}

func (r *inventoryLogRepository) List() ([]domain.InventoryLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_code, product_name, import_date,
		       unit_cost, sale_price, quantity,
		       cargo_cost, inspection_cost, other_cost, created_at
		FROM inventory_logs
		ORDER BY import_date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.InventoryLog, 0)
	for rows.Next() {
		var log domain.InventoryLog
		if err := rows.Scan(
			&log.ID, &log.ProductCode, &log.ProductName, &log.ImportDate,
			&log.UnitCost, &log.SalePrice, &log.Quantity,
			&log.CargoCost, &log.InspectionCost, &log.OtherCost, &log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan inventory log row: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory log rows: %w", err)
	}

	return logs, nil
}

var _ domain.InventoryLogRepository = (*inventoryLogRepository)(nil)
