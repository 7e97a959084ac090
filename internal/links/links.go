// Package links renders affiliate URLs carrying a sub-id tuple and encodes
// the signed redirect links the tracking service serves.
//
// Redirect layout:
//
//	{tracking_url}/r/{base64url(offer|sub1|sub2|sub3|sub4|sub5|target)}/{sig}
//
// sig is the first 16 hex characters of HMAC-SHA256 over the unencoded data.
package links

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/affiliate-ops/internal/subid"
)

// Sentinel errors for link decoding.
var (
	ErrMalformedLink = errors.New("malformed tracking link")
	ErrBadSignature  = errors.New("tracking link signature mismatch")
)

const sigLen = 16

// Link is a decoded redirect link.
type Link struct {
	OfferID string       `json:"offer_id"`
	SubIDs  subid.SubIDs `json:"sub_ids"`
	Target  string       `json:"target"`
}

// Builder renders and signs links.
type Builder struct {
	tpl         *liquid.Template
	trackingURL string
	secret      []byte
}

// NewBuilder parses the affiliate link template. The template sees url and
// sub1..sub5, already query-escaped.
func NewBuilder(trackingURL, linkTemplate, secret string) (*Builder, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if s, ok := value.(string); value == nil || (ok && s == "") {
			return defaultVal
		}
		return value
	})

	tpl, err := engine.ParseString(linkTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse link template: %w", err)
	}
	return &Builder{
		tpl:         tpl,
		trackingURL: strings.TrimRight(trackingURL, "/"),
		secret:      []byte(secret),
	}, nil
}

// AffiliateURL renders the network link for target with the tuple attached.
func (b *Builder) AffiliateURL(target string, ids subid.SubIDs) (string, error) {
	bindings := map[string]interface{}{
		"url":  target,
		"sub1": url.QueryEscape(ids[0]),
		"sub2": url.QueryEscape(ids[1]),
		"sub3": url.QueryEscape(ids[2]),
		"sub4": url.QueryEscape(ids[3]),
		"sub5": url.QueryEscape(ids[4]),
	}
	out, err := b.tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render link: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// TrackedURL returns the signed redirect link for an offer.
func (b *Builder) TrackedURL(offerID, target string, ids subid.SubIDs) string {
	data := strings.Join([]string{offerID, ids[0], ids[1], ids[2], ids[3], ids[4], target}, "|")
	encoded := base64.URLEncoding.EncodeToString([]byte(data))
	return fmt.Sprintf("%s/r/%s/%s", b.trackingURL, encoded, b.sign(data))
}

// Decode verifies and unpacks the path segments of a redirect link.
func (b *Builder) Decode(encoded, sig string) (*Link, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode: %v: %w", err, ErrMalformedLink)
	}
	data := string(raw)
	if !hmac.Equal([]byte(sig), []byte(b.sign(data))) {
		return nil, ErrBadSignature
	}

	// The target is last and may itself contain "|".
	parts := strings.SplitN(data, "|", subid.Slots+2)
	if len(parts) != subid.Slots+2 || parts[len(parts)-1] == "" {
		return nil, ErrMalformedLink
	}
	l := &Link{OfferID: parts[0], Target: parts[subid.Slots+1]}
	copy(l.SubIDs[:], parts[1:subid.Slots+1])
	return l, nil
}

func (b *Builder) sign(data string) string {
	h := hmac.New(sha256.New, b.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))[:sigLen]
}
