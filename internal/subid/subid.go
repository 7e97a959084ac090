// Package subid encodes and decodes the five slot tracking tuple carried by
// every affiliate link.
//
// Slot layout: channel, niche, format, campaign, date (YYYYMMDD).
//
//	tiktok_tech_video30s_oferta_dia_20260131
//
// The composite form is only a label. Decoding always needs the tuple since
// campaign tokens can contain the join character.
package subid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

// Slots is the number of positions in a sub-id tuple.
const Slots = 5

// ErrUnknownToken is returned by Validate for tokens outside the catalog.
var ErrUnknownToken = errors.New("unknown sub-id token")

var dateToken = regexp.MustCompile(`^\d{8}$`)

// SubIDs is an encoded tuple, positional.
type SubIDs [Slots]string

// Slice returns the tuple as a slice.
func (s SubIDs) Slice() []string { return s[:] }

// Codec builds and parses sub-id tuples.
type Codec struct {
	now func() time.Time
}

// NewCodec returns a codec that stamps tuples with the wall clock.
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// NewCodecWithClock returns a codec with a fixed clock, for tests and replays.
func NewCodecWithClock(now func() time.Time) *Codec {
	return &Codec{now: now}
}

// Build encodes the four dimensions and a date. A zero date means today.
func (c *Codec) Build(channel domain.Channel, niche domain.Niche, format domain.Format, campaign domain.Campaign, date time.Time) SubIDs {
	if date.IsZero() {
		date = c.now()
	}
	return SubIDs{
		string(channel),
		string(niche),
		string(format),
		string(campaign),
		date.Format(domain.DateLayout),
	}
}

// Parse decodes a tuple. A tuple without exactly five slots returns nil.
// A bad date token leaves Date nil and keeps the other fields.
func (c *Codec) Parse(ids []string) *domain.Identity {
	if len(ids) != Slots {
		logger.Warn("subid: malformed tuple", "slots", len(ids), "want", Slots)
		return nil
	}

	id := &domain.Identity{
		Channel:   domain.Channel(ids[0]),
		Niche:     domain.Niche(ids[1]),
		Format:    domain.Format(ids[2]),
		Campaign:  domain.Campaign(ids[3]),
		DateToken: ids[4],
	}
	if d, err := ParseDate(ids[4]); err == nil {
		id.Date = &d
	} else {
		logger.Debug("subid: bad date token", "token", ids[4], "error", err)
	}
	return id
}

// ParseDate parses a YYYYMMDD token.
func ParseDate(token string) (time.Time, error) {
	if !dateToken.MatchString(token) {
		return time.Time{}, fmt.Errorf("invalid date token: %q", token)
	}
	return time.Parse(domain.DateLayout, token)
}

// CompositeID joins the tuple into a single label.
func CompositeID(ids SubIDs) string {
	return strings.Join(ids[:], "_")
}

// Validate checks every dimension of a decoded tuple against the catalog.
func Validate(id *domain.Identity) error {
	if id == nil {
		return fmt.Errorf("nil identity: %w", ErrUnknownToken)
	}
	switch {
	case !id.Channel.Valid():
		return fmt.Errorf("channel %q: %w", id.Channel, ErrUnknownToken)
	case !id.Niche.Valid():
		return fmt.Errorf("niche %q: %w", id.Niche, ErrUnknownToken)
	case !id.Format.Valid():
		return fmt.Errorf("format %q: %w", id.Format, ErrUnknownToken)
	case !id.Campaign.Valid():
		return fmt.Errorf("campaign %q: %w", id.Campaign, ErrUnknownToken)
	case id.Date == nil:
		return fmt.Errorf("date %q: %w", id.DateToken, ErrUnknownToken)
	}
	return nil
}
