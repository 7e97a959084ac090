package tracking

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/links"
	"github.com/ignite/affiliate-ops/internal/pkg/httputil"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/subid"
)

// ClickRecorder counts clicks for reporting.
type ClickRecorder interface {
	Record(ctx context.Context, ids subid.SubIDs, at time.Time) error
}

type Handler struct {
	links         *links.Builder
	pub           EventPublisher
	clicks        ClickRecorder
	postbackToken string
	now           func() time.Time
}

// NewHandler wires the redirect and postback endpoints. clicks may be nil
// when Redis is not configured.
func NewHandler(lb *links.Builder, pub EventPublisher, clicks ClickRecorder, postbackToken string) *Handler {
	return &Handler{
		links:         lb,
		pub:           pub,
		clicks:        clicks,
		postbackToken: postbackToken,
		now:           time.Now,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/r/{data}/{sig}", h.HandleRedirect)
	r.Post("/postback", h.HandlePostback)
	r.Get("/health", h.HandleHealth)
	return r
}

// HandleRedirect verifies a tracked link, counts the click and sends the
// visitor to the affiliate URL carrying the tuple.
func (h *Handler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.Decode(chi.URLParam(r, "data"), chi.URLParam(r, "sig"))
	if errors.Is(err, links.ErrBadSignature) {
		http.Error(w, "bad link", http.StatusForbidden)
		return
	}
	if err != nil {
		http.Error(w, "bad link", http.StatusBadRequest)
		return
	}

	dest, err := h.links.AffiliateURL(link.Target, link.SubIDs)
	if err != nil {
		logger.Error("tracking: render affiliate url", "offer_id", link.OfferID, "error", err)
		dest = link.Target
	}

	now := h.now().UTC()
	if h.clicks != nil {
		if err := h.clicks.Record(r.Context(), link.SubIDs, now); err != nil {
			logger.Warn("tracking: count click", "error", err)
		}
	}

	click := &domain.ClickEvent{
		ID:          uuid.New().String(),
		CompositeID: subid.CompositeID(link.SubIDs),
		SubIDs:      link.SubIDs,
		OfferID:     link.OfferID,
		TargetURL:   link.Target,
		IPAddress:   realIP(r),
		UserAgent:   r.UserAgent(),
		CreatedAt:   now,
	}
	h.pub.Publish(r.Context(), Event{Type: domain.EventClick, Click: click, Timestamp: now})

	logger.Info("tracking: click", "offer_id", link.OfferID, "composite_id", click.CompositeID, "ip", click.IPAddress)
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}

// HandlePostback accepts a conversion reported by the affiliate network.
// The shared token arrives as X-Postback-Token or the token query parameter.
func (h *Handler) HandlePostback(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Postback-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if h.postbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.postbackToken)) != 1 {
		httputil.Error(w, http.StatusUnauthorized, "invalid postback token")
		return
	}

	var row affiliate.ConversionRow
	if !httputil.Decode(w, r, &row) {
		return
	}
	// The network id is the dedup key shared with the report sync.
	row.ConversionID = strings.TrimSpace(row.ConversionID)
	if row.ConversionID == "" {
		httputil.BadRequest(w, "conversion_id is required")
		return
	}
	if row.OrderAmount < 0 {
		httputil.BadRequest(w, "order_amount must not be negative")
		return
	}

	now := h.now().UTC()
	if row.PurchaseTime == 0 {
		row.PurchaseTime = now.Unix()
	}
	conv := affiliate.ToEvent(row)
	h.pub.Publish(r.Context(), Event{Type: domain.EventConversion, Conversion: &conv, Timestamp: now})

	logger.Info("tracking: postback", "id", conv.ID, "order_id", conv.OrderID, "channel", conv.Channel)
	httputil.Accepted(w, map[string]string{"id": conv.ID})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
