package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lukman83/campaign-scout/internal/models"
)

// FieldSeparator joins the fields of a result line. FormatLine rewrites '&'
// in every text field as a fullwidth '＆', so the separator never occurs
// inside a field. The URL is kept verbatim; it has no spaces.
const FieldSeparator = " & "

var fieldEscaper = strings.NewReplacer("&", "＆")

// Field positions within a result line.
const (
	FieldShipping = iota
	FieldReview
	FieldShop
	FieldPrice
	FieldPoints
	FieldWindow
	FieldProduct
	FieldURL
	FieldCount
)

// FormatLine renders a record as a single delimiter-joined line ending with
// its URL.
func FormatLine(rec *models.CampaignRecord) string {
	fields := [FieldCount]string{
		FieldShipping: rec.ShippingType,
		FieldReview:   string(rec.ReviewType),
		FieldShop:     rec.ShopName,
		FieldPrice:    rec.PriceText(),
		FieldPoints:   rec.LoyaltyPoints,
		FieldWindow:   rec.AvailabilityWindow,
		FieldProduct:  rec.ProductName,
	}
	for i := range FieldURL {
		fields[i] = fieldEscaper.Replace(fields[i])
	}
	fields[FieldURL] = rec.URL
	return strings.Join(fields[:], FieldSeparator)
}

// ParseLine splits a result line back into its fields.
func ParseLine(line string) ([FieldCount]string, error) {
	var out [FieldCount]string
	parts := strings.Split(line, FieldSeparator)
	if len(parts) != FieldCount {
		return out, fmt.Errorf("result line has %d fields, want %d", len(parts), FieldCount)
	}
	copy(out[:], parts)
	return out, nil
}

// SortLines stable-sorts lines by their availability window. The key is
// compared as text, so order is consistent within a day but not
// calendar-correct across days.
func SortLines(lines []string) {
	slices.SortStableFunc(lines, func(a, b string) int {
		return strings.Compare(windowOf(a), windowOf(b))
	})
}

func windowOf(line string) string {
	parts := strings.SplitN(line, FieldSeparator, FieldWindow+2)
	if len(parts) <= FieldWindow {
		return ""
	}
	return parts[FieldWindow]
}
