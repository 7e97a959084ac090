package domain

import "sort"

// Channel is a distribution surface that carries affiliate links.
type Channel string

const (
	ChannelTikTok  Channel = "tiktok"
	ChannelReels   Channel = "reels"
	ChannelStories Channel = "stories"
	ChannelGroup   Channel = "grupo"
)

// Niche is a fixed catalog vertical.
type Niche string

const (
	NicheHome      Niche = "casa"
	NicheTech      Niche = "tech"
	NichePet       Niche = "pet"
	NicheCosmetics Niche = "cosmeticos"
)

// Format is the content format a link was posted in.
type Format string

const (
	FormatVideo15  Format = "video15s"
	FormatVideo30  Format = "video30s"
	FormatVideo60  Format = "video60s"
	FormatText     Format = "texto"
	FormatStories  Format = "stories"
	FormatCarousel Format = "carrossel"
)

// Campaign is the promotional campaign type a link belongs to.
type Campaign string

const (
	CampaignDailyDeal     Campaign = "oferta_dia"
	CampaignTopCommission Campaign = "top_comissao"
	CampaignFind          Campaign = "achado"
	CampaignFlash         Campaign = "flash"
)

// ChannelInfo describes how a channel is worked.
type ChannelInfo struct {
	Channel     Channel `json:"channel"`
	Priority    int     `json:"priority"`
	PostsPerDay int     `json:"posts_per_day"`
}

var channels = map[Channel]ChannelInfo{
	ChannelTikTok:  {Channel: ChannelTikTok, Priority: 1, PostsPerDay: 4},
	ChannelReels:   {Channel: ChannelReels, Priority: 2, PostsPerDay: 3},
	ChannelStories: {Channel: ChannelStories, Priority: 3, PostsPerDay: 6},
	ChannelGroup:   {Channel: ChannelGroup, Priority: 4, PostsPerDay: 10},
}

// NicheInfo describes a catalog vertical and the search keywords used to
// collect offers for it.
type NicheInfo struct {
	Niche    Niche    `json:"niche"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

var nicheInfo = map[Niche]NicheInfo{
	NicheHome:      {Niche: NicheHome, Name: "Casa & Cozinha", Keywords: []string{"casa", "cozinha", "decoração", "organização"}},
	NicheTech:      {Niche: NicheTech, Name: "Tech & Wearables", Keywords: []string{"fone", "smartwatch", "carregador", "cabo", "tech"}},
	NichePet:       {Niche: NichePet, Name: "Mundo Pet", Keywords: []string{"pet", "cachorro", "gato", "ração", "brinquedo"}},
	NicheCosmetics: {Niche: NicheCosmetics, Name: "Cosméticos", Keywords: []string{"makeup", "skincare", "cabelo", "cosmético"}},
}

// LookupNiche returns the niche settings, false if the niche is unknown.
func LookupNiche(n Niche) (NicheInfo, bool) {
	info, ok := nicheInfo[n]
	return info, ok
}

var (
	niches    = []Niche{NicheHome, NicheTech, NichePet, NicheCosmetics}
	formats   = []Format{FormatVideo15, FormatVideo30, FormatVideo60, FormatText, FormatStories, FormatCarousel}
	campaigns = []Campaign{CampaignDailyDeal, CampaignTopCommission, CampaignFind, CampaignFlash}
)

// ChannelsByPriority returns every channel ordered by priority, highest first.
func ChannelsByPriority() []ChannelInfo {
	out := make([]ChannelInfo, 0, len(channels))
	for _, c := range channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// LookupChannel returns the channel settings, false if the channel is unknown.
func LookupChannel(c Channel) (ChannelInfo, bool) {
	info, ok := channels[c]
	return info, ok
}

// Niches returns the catalog verticals.
func Niches() []Niche { return append([]Niche(nil), niches...) }

func (c Channel) Valid() bool {
	_, ok := channels[c]
	return ok
}

func (n Niche) Valid() bool {
	for _, v := range niches {
		if v == n {
			return true
		}
	}
	return false
}

func (f Format) Valid() bool {
	for _, v := range formats {
		if v == f {
			return true
		}
	}
	return false
}

func (c Campaign) Valid() bool {
	for _, v := range campaigns {
		if v == c {
			return true
		}
	}
	return false
}
