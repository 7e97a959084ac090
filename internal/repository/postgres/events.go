package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/affiliate-ops/internal/domain"
)

// EventRepo stores tracked clicks and attributed conversions.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// InsertClick records a redirect. A missing id is generated.
func (r *EventRepo) InsertClick(ctx context.Context, e *domain.ClickEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO click_events
			(id, composite_id, sub_id1, sub_id2, sub_id3, sub_id4, sub_id5,
			 offer_id, target_url, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.CompositeID, e.SubIDs[0], e.SubIDs[1], e.SubIDs[2], e.SubIDs[3], e.SubIDs[4],
		e.OfferID, e.TargetURL, e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// ErrMissingConversionID is returned for conversions without a network id.
var ErrMissingConversionID = errors.New("conversion id is required")

// InsertConversion records a conversion once. The id is the network's
// conversion id, so a postback and a report sync of the same conversion
// collapse into one row.
func (r *EventRepo) InsertConversion(ctx context.Context, c *domain.ConversionEvent) error {
	if c.ID == "" {
		return fmt.Errorf("insert conversion (order %q): %w", c.OrderID, ErrMissingConversionID)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversions
			(id, order_id, channel, niche, format, campaign, date_token,
			 revenue, commission, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.OrderID, c.Channel, c.Niche, c.Format, c.Campaign, c.DateToken,
		c.Revenue, c.Commission, c.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// ListConversions returns conversions received in [from, to), oldest first.
func (r *EventRepo) ListConversions(ctx context.Context, from, to time.Time) ([]domain.ConversionEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, channel, niche, format, campaign, date_token,
		       revenue, commission, received_at
		FROM conversions
		WHERE received_at >= $1 AND received_at < $2
		ORDER BY received_at, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []domain.ConversionEvent
	for rows.Next() {
		var c domain.ConversionEvent
		if err := rows.Scan(
			&c.ID, &c.OrderID, &c.Channel, &c.Niche, &c.Format, &c.Campaign, &c.DateToken,
			&c.Revenue, &c.Commission, &c.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
