package subid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/affiliate-ops/internal/domain"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC)
}

func TestBuild(t *testing.T) {
	c := NewCodecWithClock(fixedClock)
	date := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	got := c.Build(domain.ChannelTikTok, domain.NicheTech, domain.FormatVideo30, domain.CampaignDailyDeal, date)
	assert.Equal(t, SubIDs{"tiktok", "tech", "video30s", "oferta_dia", "20260131"}, got)
}

func TestBuild_DefaultsToToday(t *testing.T) {
	c := NewCodecWithClock(fixedClock)
	got := c.Build(domain.ChannelGroup, domain.NichePet, domain.FormatText, domain.CampaignFlash, time.Time{})
	assert.Equal(t, "20260309", got[4])
}

func TestParse_RoundTrip(t *testing.T) {
	c := NewCodecWithClock(fixedClock)
	tests := []struct {
		channel  domain.Channel
		niche    domain.Niche
		format   domain.Format
		campaign domain.Campaign
		date     time.Time
	}{
		{domain.ChannelTikTok, domain.NicheTech, domain.FormatVideo30, domain.CampaignDailyDeal, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
		{domain.ChannelReels, domain.NicheHome, domain.FormatVideo15, domain.CampaignTopCommission, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
		{domain.ChannelStories, domain.NicheCosmetics, domain.FormatStories, domain.CampaignFind, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{domain.ChannelGroup, domain.NichePet, domain.FormatCarousel, domain.CampaignFlash, time.Date(2030, 7, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.channel), func(t *testing.T) {
			ids := c.Build(tt.channel, tt.niche, tt.format, tt.campaign, tt.date)
			id := c.Parse(ids.Slice())
			require.NotNil(t, id)
			assert.Equal(t, tt.channel, id.Channel)
			assert.Equal(t, tt.niche, id.Niche)
			assert.Equal(t, tt.format, id.Format)
			assert.Equal(t, tt.campaign, id.Campaign)
			require.NotNil(t, id.Date)
			assert.True(t, tt.date.Equal(*id.Date))
			assert.NoError(t, Validate(id))
		})
	}
}

func TestParse_WrongArity(t *testing.T) {
	c := NewCodec()
	assert.Nil(t, c.Parse(nil))
	assert.Nil(t, c.Parse([]string{"tiktok", "tech", "video30s", "oferta_dia"}))
	assert.Nil(t, c.Parse([]string{"tiktok", "tech", "video30s", "oferta_dia", "20260131", "extra"}))
}

func TestParse_BadDateKeepsOtherFields(t *testing.T) {
	c := NewCodec()
	for _, token := range []string{"2026-01-31", "20261332", "", "abc"} {
		id := c.Parse([]string{"grupo", "casa", "texto", "achado", token})
		require.NotNil(t, id, token)
		assert.Nil(t, id.Date, token)
		assert.Equal(t, token, id.DateToken)
		assert.Equal(t, domain.ChannelGroup, id.Channel)
		assert.Equal(t, domain.NicheHome, id.Niche)
		assert.Equal(t, domain.FormatText, id.Format)
		assert.Equal(t, domain.CampaignFind, id.Campaign)
	}
}

func TestCompositeID(t *testing.T) {
	ids := SubIDs{"tiktok", "tech", "video30s", "oferta_dia", "20260131"}
	assert.Equal(t, "tiktok_tech_video30s_oferta_dia_20260131", CompositeID(ids))
}

func TestValidate(t *testing.T) {
	c := NewCodec()
	tests := []struct {
		name string
		ids  []string
	}{
		{"channel", []string{"youtube", "tech", "video30s", "flash", "20260131"}},
		{"niche", []string{"tiktok", "games", "video30s", "flash", "20260131"}},
		{"format", []string{"tiktok", "tech", "live", "flash", "20260131"}},
		{"campaign", []string{"tiktok", "tech", "video30s", "blackfriday", "20260131"}},
		{"date", []string{"tiktok", "tech", "video30s", "flash", "31012026x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(c.Parse(tt.ids))
			assert.ErrorIs(t, err, ErrUnknownToken)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
	assert.ErrorIs(t, Validate(nil), ErrUnknownToken)
}
