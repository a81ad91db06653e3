package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oyushop/storefront/internal/domain"
)

type promoRepository struct {
	db *sql.DB
}

// NewPromoRepository создаёт PostgreSQL-реализацию PromoRepository.
func NewPromoRepository(store *Store) domain.PromoRepository {
	return &promoRepository{db: store.DB()}
}

func (r *promoRepository) Create(promo domain.PromoCode) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var expiresAt sql.NullTime
	if promo.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *promo.ExpiresAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO promo_codes (
			code, type, amount, active, usage_limit, used_count, expires_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		domain.NormalizeCode(promo.Code), string(promo.Type), promo.Amount, promo.Active,
		promo.UsageLimit, promo.UsedCount, expiresAt, promo.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPromoExists
		}
		return fmt.Errorf("insert promo code: %w", err)
	}

	return nil
}

func (r *promoRepository) Find(code string) (domain.PromoCode, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.findCtx(ctx, code)
}

func (r *promoRepository) findCtx(ctx context.Context, code string) (domain.PromoCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT code, type, amount, active, usage_limit, used_count, expires_at, created_at
		FROM promo_codes
		WHERE code = $1
	`, domain.NormalizeCode(code))

	promo, err := scanPromo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PromoCode{}, domain.ErrPromoNotFound
		}
		return domain.PromoCode{}, fmt.Errorf("select promo code: %w", err)
	}
	return promo, nil
}

func (r *promoRepository) List() ([]domain.PromoCode, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT code, type, amount, active, usage_limit, used_count, expires_at, created_at
		FROM promo_codes
		ORDER BY code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list promo codes: %w", err)
	}
	defer rows.Close()

	promos := make([]domain.PromoCode, 0)
	for rows.Next() {
		promo, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promo row: %w", err)
		}
		promos = append(promos, promo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promo rows: %w", err)
	}

	return promos, nil
}

// Redeem — атомарный условный инкремент used_count. Проверка применимости
// и инкремент выполняются одним statement, поэтому лимит использований
// выдерживается и при конкурентных погашениях одного кода.
func (r *promoRepository) Redeem(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE promo_codes
		SET used_count = used_count + 1
		WHERE code = $1
		  AND active
		  AND (usage_limit = 0 OR used_count < usage_limit)
		  AND (expires_at IS NULL OR expires_at > NOW())
	`, domain.NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("redeem promo code: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, findErr := r.findCtx(ctx, code); findErr != nil {
			return findErr
		}
		return domain.ErrPromoInvalid
	}

	return nil
}

func (r *promoRepository) Delete(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM promo_codes WHERE code = $1`, domain.NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("delete promo code: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPromoNotFound
	}

	return nil
}

func scanPromo(row rowScanner) (domain.PromoCode, error) {
	var promo domain.PromoCode
	var promoType string
	var expiresAt sql.NullTime

	if err := row.Scan(
		&promo.Code, &promoType, &promo.Amount, &promo.Active,
		&promo.UsageLimit, &promo.UsedCount, &expiresAt, &promo.CreatedAt,
	); err != nil {
		return domain.PromoCode{}, err
	}
	promo.Type = domain.PromoType(promoType)
	if expiresAt.Valid {
		t := expiresAt.Time
		promo.ExpiresAt = &t
	}

	return promo, nil
}

var _ domain.PromoRepository = (*promoRepository)(nil)
