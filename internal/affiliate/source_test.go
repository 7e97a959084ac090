package affiliate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/affiliate-ops/internal/domain"
)

func TestAPISource_DedupesAcrossKeywords(t *testing.T) {
	var keywords []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		keywords = append(keywords, r.URL.Query().Get("keyword"))
		w.Write([]byte(`{"data":{"offers":[
			{"item_id":1,"shop_id":7,"price_max":5000000,"commission_rate":800},
			{"item_id":0,"shop_id":7},
			{"item_id":2,"shop_id":7,"price_max":9000000,"price_min":7000000}
		]}}`))
	})

	src := NewAPISource(c)
	src.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	offers, err := src.Offers(context.Background(), domain.NichePet)
	require.NoError(t, err)

	info, _ := domain.LookupNiche(domain.NichePet)
	assert.Equal(t, info.Keywords, keywords)
	require.Len(t, offers, 2)
	assert.Equal(t, "7_1", offers[0].ID)
	assert.Equal(t, 8.0, offers[0].CommissionRate)
	assert.Equal(t, "7_2", offers[1].ID)
	assert.Equal(t, 70.0, offers[1].PromoPrice)
}

func TestAPISource_UnknownNiche(t *testing.T) {
	src := NewAPISource(NewClient(Config{}))
	_, err := src.Offers(context.Background(), domain.Niche("games"))
	assert.Error(t, err)
}

func TestFeedSet_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.xml" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(productFeed))
	}))
	defer srv.Close()

	set := NewFeedSet(NewFeedSource(5), map[string][]string{
		"casa": {srv.URL + "/casa.xml", srv.URL + "/broken.xml"},
	})

	offers, err := set.Offers(context.Background(), domain.NicheHome)
	assert.Error(t, err)
	assert.Len(t, offers, 2)

	offers, err = set.Offers(context.Background(), domain.NicheTech)
	assert.NoError(t, err)
	assert.Empty(t, offers)
}
