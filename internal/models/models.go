package models

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// Sentinels used when a field is missing from the page. Downstream
// formatting is string based, so absence is always rendered explicitly.
const (
	UnknownShipping  = "unknown"
	UnknownShop      = "unknown shop"
	UnknownPrice     = "unknown"
	UnnamedProduct   = "unnamed product"
	DefaultPoints    = "0 P"
	DefaultCookieKey = "PHPSESSID"
)

type ReviewType string

const (
	ReviewPhoto ReviewType = "photo"
	ReviewText  ReviewType = "text"
)

// CampaignRecord holds the facts extracted from one campaign detail page.
type CampaignRecord struct {
	ID                 int        `json:"id"`
	URL                string     `json:"url"`
	ShippingType       string     `json:"shipping_type"`
	ReviewType         ReviewType `json:"review_type"`
	ShopName           string     `json:"shop_name"`
	Price              int64      `json:"price,omitempty"`
	HasPrice           bool       `json:"has_price"`
	LoyaltyPoints      string     `json:"loyalty_points"`
	AvailabilityWindow string     `json:"availability_window"`
	ProductName        string     `json:"product_name"`
	Closed             bool       `json:"closed,omitempty"`
	ClosedReason       string     `json:"closed_reason,omitempty"`
}

// NewCampaignRecord returns a record with every optional field set to its sentinel.
func NewCampaignRecord(id int, url string) *CampaignRecord {
	return &CampaignRecord{
		ID:            id,
		URL:           url,
		ShippingType:  UnknownShipping,
		ReviewType:    ReviewPhoto,
		ShopName:      UnknownShop,
		LoyaltyPoints: DefaultPoints,
		ProductName:   UnnamedProduct,
	}
}

// PriceText renders the price as digits, or the unknown sentinel.
func (r *CampaignRecord) PriceText() string {
	if !r.HasPrice {
		return UnknownPrice
	}
	return strconv.FormatInt(r.Price, 10)
}

// Credential is the session value attached to every request of a run.
type Credential string

// Cookie renders the credential as a session cookie with the given name.
func (c Credential) Cookie(name string) *http.Cookie {
	if name == "" {
		name = DefaultCookieKey
	}
	return &http.Cookie{Name: name, Value: string(c)}
}

// Redacted is safe to log.
func (c Credential) Redacted() string {
	s := string(c)
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

// ScanRange is an inclusive id interval.
type ScanRange struct {
	Start int `json:"start_id"`
	End   int `json:"end_id"`
}

func (r ScanRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r ScanRange) Contains(id int) bool {
	return id >= r.Start && id <= r.End
}

// PublicIDSet is the set of ids advertised on the landing page.
type PublicIDSet map[int]struct{}

func NewPublicIDSet(ids ...int) PublicIDSet {
	s := make(PublicIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s PublicIDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

func (s PublicIDSet) Len() int { return len(s) }

// Sorted returns the ids in ascending order.
func (s PublicIDSet) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Min and Max return 0 for an empty set.
func (s PublicIDSet) Min() int {
	ids := s.Sorted()
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}

func (s PublicIDSet) Max() int {
	ids := s.Sorted()
	if len(ids) == 0 {
		return 0
	}
	return ids[len(ids)-1]
}

// FilterConfig is the caller's per-run filter selection.
type FilterConfig struct {
	Windows         []string `json:"selected_days"`
	ExcludeKeywords []string `json:"exclude_keywords"`
}

// Normalize trims every token and drops blanks. A blank keyword would
// otherwise match every product name.
func (f FilterConfig) Normalize() FilterConfig {
	return FilterConfig{
		Windows:         cleanTokens(f.Windows),
		ExcludeKeywords: cleanTokens(f.ExcludeKeywords),
	}
}

func cleanTokens(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type ClassificationKind int

const (
	Suppressed ClassificationKind = iota
	Hidden
	Public
)

func (k ClassificationKind) String() string {
	switch k {
	case Hidden:
		return "hidden"
	case Public:
		return "public"
	default:
		return "suppressed"
	}
}

// Suppression reasons.
const (
	ReasonWindow     = "window"
	ReasonClosed     = "closed"
	ReasonKeyword    = "keyword"
	ReasonPriceFloor = "price-floor"
)

type Classification struct {
	Kind   ClassificationKind
	Reason string
}
