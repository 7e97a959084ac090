package affiliate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ignite/affiliate-ops/internal/pkg/httpretry"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/subid"
)

const (
	pathOfferList   = "/product/get_offer_list"
	pathLink        = "/link/generate"
	pathConversions = "/report/conversions"
)

// Client is the affiliate network API client
type Client struct {
	baseURL    string
	partnerID  string
	apiKey     string
	secret     string
	pageSize   int
	httpClient httpretry.HTTPDoer
	now        func() time.Time
}

// NewClient creates a new affiliate network API client
func NewClient(config Config) *Client {
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	return &Client{
		baseURL:   config.BaseURL,
		partnerID: config.PartnerID,
		apiKey:    config.APIKey,
		secret:    config.Secret,
		pageSize:  config.PageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, 3),
		now: time.Now,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// sign returns hex(HMAC-SHA256(secret, partnerID + path + timestamp + body))
func (c *Client) sign(path string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(c.partnerID))
	mac.Write([]byte(path))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest performs a signed request and decodes the JSON response into out
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}, out interface{}) error {
	ts := c.now().Unix()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("partner_id", c.partnerID)
	params.Set("timestamp", strconv.FormatInt(ts, 10))
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey+":"+c.sign(path, ts, raw))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetOffers returns one page of offers matching the query
func (c *Client) GetOffers(ctx context.Context, q OfferQuery) ([]RawOffer, error) {
	params := url.Values{}
	limit := q.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	params.Set("limit", strconv.Itoa(limit))
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.CategoryID > 0 {
		params.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	var resp OfferListResponse
	if err := c.doRequest(ctx, http.MethodGet, pathOfferList, params, nil, &resp); err != nil {
		return nil, fmt.Errorf("get offers: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("get offers: %s: %s", resp.Error, resp.Message)
	}

	logger.Info("affiliate: offers fetched", "count", len(resp.Data.Offers), "keyword", q.Keyword, "category", q.CategoryID)
	return resp.Data.Offers, nil
}

// GenerateLink asks the network for a tracked link carrying the sub-id tuple
func (c *Client) GenerateLink(ctx context.Context, itemID, shopID string, ids subid.SubIDs) (string, error) {
	body := LinkRequest{
		PartnerID: c.partnerID,
		Timestamp: c.now().Unix(),
		ItemID:    itemID,
		ShopID:    shopID,
		SubID1:    ids[0],
		SubID2:    ids[1],
		SubID3:    ids[2],
		SubID4:    ids[3],
		SubID5:    ids[4],
	}

	var resp LinkResponse
	if err := c.doRequest(ctx, http.MethodPost, pathLink, nil, body, &resp); err != nil {
		return "", fmt.Errorf("generate link: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("generate link: %s: %s", resp.Error, resp.Message)
	}
	return resp.Data.AffiliateLink, nil
}

// GetConversions pages through the conversion report for [from, to)
func (c *Client) GetConversions(ctx context.Context, from, to time.Time) ([]ConversionRow, error) {
	var rows []ConversionRow
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("purchase_time_start", strconv.FormatInt(from.Unix(), 10))
		params.Set("purchase_time_end", strconv.FormatInt(to.Unix(), 10))
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(c.pageSize))

		var resp ConversionReportResponse
		if err := c.doRequest(ctx, http.MethodGet, pathConversions, params, nil, &resp); err != nil {
			return nil, fmt.Errorf("get conversions page %d: %w", page, err)
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("get conversions: %s: %s", resp.Error, resp.Message)
		}
		rows = append(rows, resp.Data.Rows...)
		if !resp.Data.HasMore || len(resp.Data.Rows) == 0 {
			break
		}
	}
	return rows, nil
}
