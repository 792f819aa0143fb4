package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lukman83/campaign-scout/internal/models"
	"github.com/lukman83/campaign-scout/internal/pipeline"
)

// crawlRequest is the body of POST /crawl and POST /crawl/stream.
type crawlRequest struct {
	SessionCookie   string    `json:"session_cookie"`
	SelectedDays    tokenList `json:"selected_days"`
	ExcludeKeywords tokenList `json:"exclude_keywords"`
	UseFullRange    *bool     `json:"use_full_range"`
	StartID         int       `json:"start_id"`
	EndID           int       `json:"end_id"`
	ExcludeIDs      idList    `json:"exclude_ids"`
}

// toPipeline converts the body into a scan request. A range is explicit
// only when use_full_range is false or omitted with start_id/end_id set.
func (c crawlRequest) toPipeline(defaultSession string) pipeline.Request {
	session := c.SessionCookie
	if session == "" {
		session = defaultSession
	}

	mode := pipeline.FullRange()
	explicit := c.StartID != 0 || c.EndID != 0
	if c.UseFullRange != nil {
		explicit = !*c.UseFullRange
	}
	if explicit {
		mode = pipeline.ExplicitRange(c.StartID, c.EndID)
	}

	return pipeline.Request{
		Credential: models.Credential(session),
		Filter: models.FilterConfig{
			Windows:         c.SelectedDays,
			ExcludeKeywords: c.ExcludeKeywords,
		},
		Range:      mode,
		ExcludeIDs: c.ExcludeIDs,
	}
}

// tokenList accepts either a JSON array of strings or one comma-separated
// string, which is what browser front-ends built from query strings send.
type tokenList []string

func (t *tokenList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = strings.Split(s, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*t = list
	return nil
}

// idList accepts ids as JSON numbers or numeric strings.
type idList []int

func (l *idList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expected array of ids: %w", err)
	}
	ids := make([]int, 0, len(raw))
	for _, r := range raw {
		var n int
		if err := json.Unmarshal(r, &n); err == nil {
			ids = append(ids, n)
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return fmt.Errorf("invalid id %s", r)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid id %q", s)
		}
		ids = append(ids, n)
	}
	*l = ids
	return nil
}
