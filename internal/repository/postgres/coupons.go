package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/pkg/errors"
)

const couponColumns = `
	id, code, discount_type, discount_value, min_order_cents, min_photos,
	max_uses, current_uses, valid_from, valid_until, is_active, created_at, updated_at
`

type couponRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *sql.DB, logger *zap.Logger) *couponRepository {
	return &couponRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var c domain.Coupon
	var discountType string
	var minOrder sql.NullInt64
	var minPhotos, maxUses sql.NullInt32
	var validUntil sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.Code,
		&discountType,
		&c.DiscountValue,
		&minOrder,
		&minPhotos,
		&maxUses,
		&c.CurrentUses,
		&c.ValidFrom,
		&validUntil,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.DiscountType = domain.DiscountType(discountType)
	if minOrder.Valid {
		c.MinOrderCents = &minOrder.Int64
	}
	if minPhotos.Valid {
		v := int(minPhotos.Int32)
		c.MinPhotos = &v
	}
	if maxUses.Valid {
		v := int(maxUses.Int32)
		c.MaxUses = &v
	}
	if validUntil.Valid {
		c.ValidUntil = &validUntil.Time
	}
	return &c, nil
}

func (r *couponRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + `
		FROM coupons
		WHERE code = $1 AND is_active = true
	`

	coupon, err := scanCoupon(r.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "coupon", ID: code}
	}
	if err != nil {
		r.logger.Error("Failed to get coupon by code", zap.Error(err))
		return nil, err
	}

	return coupon, nil
}

func (r *couponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + `
		FROM coupons
		WHERE id = $1
	`

	coupon, err := scanCoupon(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "coupon", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get coupon by ID", zap.Error(err))
		return nil, err
	}

	return coupon, nil
}

func (r *couponRepository) List(ctx context.Context, limit, offset int) ([]*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + `
		FROM coupons
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list coupons", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	coupons := make([]*domain.Coupon, 0)
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			r.logger.Error("Failed to scan coupon", zap.Error(err))
			return nil, err
		}
		coupons = append(coupons, coupon)
	}

	return coupons, rows.Err()
}

func (r *couponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_order_cents, min_photos,
			max_uses, current_uses, valid_from, valid_until, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	now := time.Now()
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	if coupon.ValidFrom.IsZero() {
		coupon.ValidFrom = now
	}
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = now
	}
	coupon.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		coupon.ID,
		coupon.Code,
		string(coupon.DiscountType),
		coupon.DiscountValue,
		coupon.MinOrderCents,
		coupon.MinPhotos,
		coupon.MaxUses,
		coupon.CurrentUses,
		coupon.ValidFrom,
		coupon.ValidUntil,
		coupon.IsActive,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create coupon", zap.Error(err))
		return err
	}

	return nil
}

func (r *couponRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE coupons
		SET is_active = $2, updated_at = $3
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, active, time.Now())
	if err != nil {
		r.logger.Error("Failed to update coupon", zap.Error(err))
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &errors.ErrNotFound{Resource: "coupon", ID: id.String()}
	}

	return nil
}
