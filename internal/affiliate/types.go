package affiliate

// Config holds affiliate network API credentials
type Config struct {
	BaseURL   string
	PartnerID string
	APIKey    string
	Secret    string
	PageSize  int
}

// RawOffer is an offer as returned by the offer list endpoint.
// Prices are in micro-units and commission_rate in hundredths of a percent.
type RawOffer struct {
	ItemID         int64      `json:"item_id"`
	ShopID         int64      `json:"shop_id"`
	ProductName    string     `json:"product_name"`
	PriceMax       int64      `json:"price_max"`
	PriceMin       int64      `json:"price_min"`
	CommissionRate int64      `json:"commission_rate"`
	ItemRating     ItemRating `json:"item_rating"`
	ItemSold       int64      `json:"item_sold"`
	ProductLink    string     `json:"product_link"`
	Image          string     `json:"image"`
	ShopName       string     `json:"shop_name"`
	CategoryName   string     `json:"category_name"`
}

// ItemRating is the nested rating block. RatingCount[0] is the total.
type ItemRating struct {
	RatingStar  float64 `json:"rating_star"`
	RatingCount []int64 `json:"rating_count"`
}

// OfferQuery filters the offer list endpoint
type OfferQuery struct {
	CategoryID int64
	Keyword    string
	Limit      int
	Page       int
}

// envelope is the common response wrapper
type envelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// OfferListResponse is the offer list payload
type OfferListResponse struct {
	envelope
	Data struct {
		Offers  []RawOffer `json:"offers"`
		HasMore bool       `json:"has_more"`
	} `json:"data"`
}

// LinkRequest asks the network for a tracked affiliate link
type LinkRequest struct {
	PartnerID string `json:"partner_id"`
	Timestamp int64  `json:"timestamp"`
	ItemID    string `json:"item_id"`
	ShopID    string `json:"shop_id"`
	SubID1    string `json:"sub_id1"`
	SubID2    string `json:"sub_id2"`
	SubID3    string `json:"sub_id3"`
	SubID4    string `json:"sub_id4"`
	SubID5    string `json:"sub_id5"`
}

// LinkResponse carries the generated link
type LinkResponse struct {
	envelope
	Data struct {
		AffiliateLink string `json:"affiliate_link"`
	} `json:"data"`
}

// ConversionRow is one line of the conversion report
type ConversionRow struct {
	ConversionID string  `json:"conversion_id"`
	OrderID      string  `json:"order_id"`
	OrderStatus  string  `json:"order_status"`
	PurchaseTime int64   `json:"purchase_time"`
	OrderAmount  float64 `json:"order_amount"`
	Commission   float64 `json:"commission"`
	SubID1       string  `json:"sub_id1"`
	SubID2       string  `json:"sub_id2"`
	SubID3       string  `json:"sub_id3"`
	SubID4       string  `json:"sub_id4"`
	SubID5       string  `json:"sub_id5"`
}

// ConversionReportResponse is the conversion report payload
type ConversionReportResponse struct {
	envelope
	Data struct {
		Rows    []ConversionRow `json:"rows"`
		HasMore bool            `json:"has_more"`
	} `json:"data"`
}
