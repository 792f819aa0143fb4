package shopreview

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lukman83/campaign-scout/internal/models"
)

// Page markers. They are matched against the site's Korean markup verbatim.
const (
	loginRedirectMarker = "window.location.href = '/usr/login_form'"

	hourSuffix         = "시에"
	hourSuffixExpanded = "시 00분에"

	shippingLabel   = "배송"
	textReviewLabel = "텍스트 리뷰"
	priceLabel      = "총 결제금액"
	pointsLabel     = "또바기 포인트"
)

// closedMarkers are elements whose presence means the campaign cannot be
// joined right now. An open "participate" button is treated the same way:
// campaigns still accepting everyone are noise for this tool.
var closedMarkers = []struct {
	selector string
	text     string
	reason   string
}{
	{"button", "종료된 캠페인 입니다", "ended"},
	{"div#alert_msg", "해당 캠페인은 참여가 불가능한 상태입니다.", "blocked"},
	{"button", "참여 가능 시간이 아닙니다", "not available now"},
	{"button", "캠페인 참여", "open participation"},
}

// labeledField binds a label text to the record field filled from the value
// element that follows the label in document order.
type labeledField struct {
	label string
	apply func(rec *models.CampaignRecord, value string)
}

var labeledFields = []labeledField{
	{label: priceLabel, apply: func(rec *models.CampaignRecord, value string) {
		digits := onlyDigits(value)
		if digits == "" {
			return
		}
		if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
			rec.Price = n
			rec.HasPrice = true
		}
	}},
	{label: pointsLabel, apply: func(rec *models.CampaignRecord, value string) {
		if value != "" {
			rec.LoyaltyPoints = value
		}
	}},
}

var (
	spaceRe = regexp.MustCompile(`\s+`)
	csqRe   = regexp.MustCompile(`data-csq=["']?(\d+)`)
)

// Extract parses one campaign detail page. It returns ErrAuthRedirect when the
// page is the login redirect. Every other field is extracted independently;
// a missing field leaves its sentinel in place.
func Extract(raw []byte, id int, pageURL string) (*models.CampaignRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse campaign %d: %w", id, err)
	}

	if isLoginRedirect(doc) {
		return nil, ErrAuthRedirect
	}

	rec := models.NewCampaignRecord(id, pageURL)
	rec.AvailabilityWindow = availabilityWindow(doc)
	rec.Closed, rec.ClosedReason = closedState(doc)

	if h3 := doc.Find("h3").First(); h3.Length() > 0 {
		if name := clean(strings.ReplaceAll(h3.Text(), "&", "")); name != "" {
			rec.ProductName = name
		}
	}

	for _, f := range labeledFields {
		if value, ok := valueAfterLabel(doc, f.label); ok {
			f.apply(rec, value)
		}
	}

	doc.Find("div.row.col-sm4.col-12").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := s.Find("div.col-6").First()
		value := s.Find("div[style]").FilterFunction(func(_ int, v *goquery.Selection) bool {
			return isRightAligned(v.Nodes[0])
		}).First()
		if title.Length() == 0 || value.Length() == 0 || !strings.Contains(title.Text(), shippingLabel) {
			return true
		}
		if v := clean(value.Text()); v != "" {
			rec.ShippingType = v
		}
		return false
	})

	if alt, ok := doc.Find("div.col-sm-9").First().Find("img").First().Attr("alt"); ok {
		if alt = clean(alt); alt != "" {
			rec.ShopName = alt
		}
	}

	if doc.Find("label").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return clean(s.Text()) == textReviewLabel
	}).Length() > 0 {
		rec.ReviewType = models.ReviewText
	}

	return rec, nil
}

// PublicIDs collects every campaign id referenced by data-csq attributes
// inside the landing page's scripts. A login redirect yields ErrAuthRedirect.
func PublicIDs(raw []byte) (models.PublicIDSet, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse landing page: %w", err)
	}
	if isLoginRedirect(doc) {
		return nil, ErrAuthRedirect
	}
	ids := models.NewPublicIDSet()
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, m := range csqRe.FindAllStringSubmatch(s.Text(), -1) {
			if id, err := strconv.Atoi(m[1]); err == nil {
				ids[id] = struct{}{}
			}
		}
	})
	return ids, nil
}

func isLoginRedirect(doc *goquery.Document) bool {
	found := false
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = strings.Contains(s.Text(), loginRedirectMarker)
		return !found
	})
	return found
}

// availabilityWindow reads the disabled success button and expands "HH시에"
// to "HH시 00분에" so every window carries a fixed-width time.
func availabilityWindow(doc *goquery.Document) string {
	btn := doc.Find("button.butn.butn-success[disabled]").First()
	if btn.Length() == 0 {
		return ""
	}
	return strings.ReplaceAll(clean(btn.Text()), hourSuffix, hourSuffixExpanded)
}

func closedState(doc *goquery.Document) (bool, string) {
	for _, m := range closedMarkers {
		hit := doc.Find(m.selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return clean(s.Text()) == m.text
		})
		if hit.Length() > 0 {
			return true, m.reason
		}
	}
	return false, ""
}

// valueAfterLabel finds the first text node containing label and returns the
// text of the next right-aligned div after it in document order.
func valueAfterLabel(doc *goquery.Document, label string) (string, bool) {
	var start *html.Node
	for _, root := range doc.Nodes {
		if start = findText(root, label); start != nil {
			break
		}
	}
	if start == nil {
		return "", false
	}
	for n := following(start); n != nil; n = following(n) {
		if isRightAligned(n) {
			return clean(doc.FindNodes(n).Text()), true
		}
	}
	return "", false
}

func findText(n *html.Node, needle string) *html.Node {
	if n.Type == html.TextNode && strings.Contains(n.Data, needle) {
		return n
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findText(c, needle); found != nil {
			return found
		}
	}
	return nil
}

// following returns the next node in a pre-order walk of the document.
func following(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

func isRightAligned(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "div" {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			style := strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
			return strings.TrimSuffix(style, ";") == "text-align:right"
		}
	}
	return false
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
