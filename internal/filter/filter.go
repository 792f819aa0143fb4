// Package filter decides whether an extracted campaign surfaces, and if so
// whether it is already advertised (public) or only reachable by id (hidden).
package filter

import (
	"strings"

	"github.com/lukman83/campaign-scout/internal/models"
)

// Shipping and marketplace markers as they appear on the site.
const (
	OtherShipping = "기타배송"
	RealShipping  = "실배송"
	SmartStore    = "스마트스토어"
	Coupang       = "쿠팡"
)

// PriceFloor suppresses records whose shipping type contains Shipping, whose
// shop name contains Shop (any shop when empty) and whose price is below Min.
type PriceFloor struct {
	Shipping string
	Shop     string
	Min      int64
}

// PriceFloors is the policy table applied when a price was parsed.
var PriceFloors = []PriceFloor{
	{Shipping: OtherShipping, Shop: SmartStore, Min: 90000},
	{Shipping: OtherShipping, Shop: Coupang, Min: 28500},
	{Shipping: RealShipping, Min: 8500},
}

// Classify applies the rules in order and stops at the first suppression:
// availability window, closed marker, excluded keyword, price floor. A record
// that survives is Public when its id is advertised, Hidden otherwise.
//
// Classify is pure; cfg is expected to be normalized.
func Classify(rec *models.CampaignRecord, cfg models.FilterConfig, public models.PublicIDSet) models.Classification {
	if !matchesWindow(rec.AvailabilityWindow, cfg.Windows) {
		return suppress(models.ReasonWindow)
	}
	if rec.Closed {
		return suppress(models.ReasonClosed)
	}
	if containsAny(rec.ProductName, cfg.ExcludeKeywords) {
		return suppress(models.ReasonKeyword)
	}
	if rec.HasPrice && belowFloor(rec) {
		return suppress(models.ReasonPriceFloor)
	}
	if public.Has(rec.ID) {
		return models.Classification{Kind: models.Public}
	}
	return models.Classification{Kind: models.Hidden}
}

// matchesWindow is false for an empty window: the campaign has no
// participation slot at all.
func matchesWindow(window string, tokens []string) bool {
	if window == "" {
		return false
	}
	return containsAny(window, tokens)
}

func belowFloor(rec *models.CampaignRecord) bool {
	for _, f := range PriceFloors {
		if !strings.Contains(rec.ShippingType, f.Shipping) {
			continue
		}
		if f.Shop != "" && !strings.Contains(rec.ShopName, f.Shop) {
			continue
		}
		if rec.Price < f.Min {
			return true
		}
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func suppress(reason string) models.Classification {
	return models.Classification{Kind: models.Suppressed, Reason: reason}
}
