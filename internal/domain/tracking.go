package domain

import "time"

// DateLayout is the date token layout carried in the fifth sub-id slot.
const DateLayout = "20060102"

// Identity is the decoded form of a five slot sub-id tuple.
type Identity struct {
	Channel   Channel    `json:"channel"`
	Niche     Niche      `json:"niche"`
	Format    Format     `json:"format"`
	Campaign  Campaign   `json:"campaign"`
	Date      *time.Time `json:"date"`
	DateToken string     `json:"date_token"`
}

// ConversionEvent is one reported conversion attributed to a sub-id tuple.
type ConversionEvent struct {
	ID         string    `json:"id" db:"id"`
	Channel    string    `json:"channel" db:"channel"`
	Niche      string    `json:"niche" db:"niche"`
	Format     string    `json:"format" db:"format"`
	Campaign   string    `json:"campaign" db:"campaign"`
	DateToken  string    `json:"date_token" db:"date_token"`
	Revenue    float64   `json:"revenue" db:"revenue"`
	Commission float64   `json:"commission,omitempty" db:"commission"`
	OrderID    string    `json:"order_id,omitempty" db:"order_id"`
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}

// DimensionAggregate is the running total for one dimension value.
type DimensionAggregate struct {
	Count        int     `json:"count"`
	TotalRevenue float64 `json:"total_revenue"`
}

// ClickEventType enumerates the events the tracking service emits.
type ClickEventType string

const (
	EventClick      ClickEventType = "click"
	EventConversion ClickEventType = "conversion"
)

// ClickEvent is a single redirect through the tracking service.
type ClickEvent struct {
	ID          string    `json:"id"`
	CompositeID string    `json:"composite_id"`
	SubIDs      [5]string `json:"sub_ids"`
	OfferID     string    `json:"offer_id,omitempty"`
	TargetURL   string    `json:"target_url"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
