package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
)

// OfferRepo implements catalog.OfferRepository against PostgreSQL.
type OfferRepo struct{ db *sql.DB }

// NewOfferRepo creates a Postgres-backed offer repository.
func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{db: db} }

const offerColumns = `id, name, niche, shop, list_price, promo_price, discount_percent,
		       commission_rate, commission_value, rating, sales, reviews,
		       link, image_url, active, collected_at`

func scanOffer(s interface{ Scan(...interface{}) error }, o *domain.Offer) error {
	return s.Scan(
		&o.ID, &o.Name, &o.Niche, &o.Shop, &o.ListPrice, &o.PromoPrice, &o.DiscountPercent,
		&o.CommissionRate, &o.CommissionValue, &o.Rating, &o.Sales, &o.Reviews,
		&o.Link, &o.ImageURL, &o.Active, &o.CollectedAt,
	)
}

func (r *OfferRepo) Get(ctx context.Context, id string) (*domain.Offer, error) {
	o := &domain.Offer{}
	err := scanOffer(r.db.QueryRowContext(ctx, `
		SELECT `+offerColumns+`
		FROM offers
		WHERE id = $1
	`, id), o)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (r *OfferRepo) ListActive(ctx context.Context, f catalog.ListFilter) ([]domain.Offer, error) {
	q := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE active = true`
	var args []interface{}
	idx := 1
	if f.Niche != "" {
		q += fmt.Sprintf(" AND niche = $%d", idx)
		args = append(args, string(f.Niche))
		idx++
	}
	q += " ORDER BY id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var out []domain.Offer
	for rows.Next() {
		var o domain.Offer
		if err := scanOffer(rows, &o); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OfferRepo) Upsert(ctx context.Context, offers []domain.Offer) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert offers: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO offers
			(id, name, niche, shop, list_price, promo_price, discount_percent,
			 commission_rate, commission_value, rating, sales, reviews,
			 link, image_url, active, collected_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, niche = EXCLUDED.niche, shop = EXCLUDED.shop,
			list_price = EXCLUDED.list_price, promo_price = EXCLUDED.promo_price,
			discount_percent = EXCLUDED.discount_percent,
			commission_rate = EXCLUDED.commission_rate, commission_value = EXCLUDED.commission_value,
			rating = EXCLUDED.rating, sales = EXCLUDED.sales, reviews = EXCLUDED.reviews,
			link = EXCLUDED.link, image_url = EXCLUDED.image_url, active = EXCLUDED.active,
			collected_at = EXCLUDED.collected_at, updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	var n int
	for _, o := range offers {
		res, err := stmt.ExecContext(ctx,
			o.ID, o.Name, string(o.Niche), o.Shop, o.ListPrice, o.PromoPrice, o.DiscountPercent,
			o.CommissionRate, o.CommissionValue, o.Rating, o.Sales, o.Reviews,
			o.Link, o.ImageURL, o.Active, o.CollectedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert offer %s: %w", o.ID, err)
		}
		affected, _ := res.RowsAffected()
		n += int(affected)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit offers: %w", err)
	}
	return n, nil
}

func (r *OfferRepo) CommitScores(ctx context.Context, commits []domain.ScoreCommit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit scores: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO offer_scores (offer_id, score, explanation, scored_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (offer_id) DO UPDATE SET
			score = EXCLUDED.score, explanation = EXCLUDED.explanation, scored_at = EXCLUDED.scored_at
	`)
	if err != nil {
		return fmt.Errorf("prepare scores: %w", err)
	}
	defer stmt.Close()

	for _, c := range commits {
		if _, err := stmt.ExecContext(ctx, c.OfferID, c.Score, c.Explanation, c.ScoredAt); err != nil {
			return fmt.Errorf("score %s: %w", c.OfferID, err)
		}
	}
	return tx.Commit()
}
