package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/campaign-scout/internal/filter"
	"github.com/lukman83/campaign-scout/internal/models"
	"github.com/lukman83/campaign-scout/internal/pipeline"
	"github.com/lukman83/campaign-scout/internal/shopreview"
)

type tools struct {
	scanner        *pipeline.Scanner
	defaultSession string
	logger         *slog.Logger
}

func newTools(deps Deps) *tools {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &tools{
		scanner:        deps.Scanner,
		defaultSession: deps.DefaultSession,
		logger:         logger,
	}
}

var stringItems = mcp.Items(map[string]any{"type": "string"})

func registerTools(s *server.MCPServer, t *tools) {
	// scan_campaigns
	scanTool := mcp.NewTool("scan_campaigns",
		mcp.WithDescription("Scan campaign ids and return hidden and public campaigns that match the selected days"),
		mcp.WithArray("selected_days",
			mcp.Required(),
			mcp.Description("Day or window tokens; a campaign matches when its availability window contains one"),
			stringItems,
		),
		mcp.WithArray("exclude_keywords",
			mcp.Description("Drop campaigns whose product name contains any of these"),
			stringItems,
		),
		mcp.WithString("session_cookie",
			mcp.Description("Session cookie value (default: server configuration)"),
		),
		mcp.WithNumber("start_id",
			mcp.Description("First id of an explicit range; omit both ids for a full scan"),
		),
		mcp.WithNumber("end_id",
			mcp.Description("Last id of an explicit range"),
		),
	)
	s.AddTool(scanTool, t.handleScan)

	// discover_campaigns
	discoverTool := mcp.NewTool("discover_campaigns",
		mcp.WithDescription("List the publicly advertised campaign ids and the full scan range they imply"),
		mcp.WithString("session_cookie",
			mcp.Description("Session cookie value (default: server configuration)"),
		),
	)
	s.AddTool(discoverTool, t.handleDiscover)

	// parse_campaign
	parseTool := mcp.NewTool("parse_campaign",
		mcp.WithDescription("Extract a campaign record from detail page HTML and classify it"),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("Raw detail page HTML"),
		),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Campaign id the page belongs to"),
		),
		mcp.WithArray("selected_days",
			mcp.Description("Day or window tokens to classify against"),
			stringItems,
		),
		mcp.WithArray("exclude_keywords",
			mcp.Description("Keywords to classify against"),
			stringItems,
		),
		mcp.WithBoolean("public",
			mcp.Description("Treat the id as publicly listed (default: false)"),
		),
	)
	s.AddTool(parseTool, t.handleParse)
}

func (t *tools) session(request mcp.CallToolRequest) models.Credential {
	return models.Credential(request.GetString("session_cookie", t.defaultSession))
}

func (t *tools) handleScan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := pipeline.FullRange()
	start, end := request.GetInt("start_id", 0), request.GetInt("end_id", 0)
	if start != 0 || end != 0 {
		mode = pipeline.ExplicitRange(start, end)
	}
	t.logger.Info("scan_campaigns called", "mode", mode.String())

	res, err := t.scanner.Scan(ctx, pipeline.Request{
		Credential: t.session(request),
		Filter: models.FilterConfig{
			Windows:         request.GetStringSlice("selected_days", nil),
			ExcludeKeywords: request.GetStringSlice("exclude_keywords", nil),
		},
		Range: mode,
	}, nil)
	if err != nil && (res == nil || !errors.Is(err, context.Canceled)) {
		return mcp.NewToolResultError(fmt.Sprintf("scan error: %v", err)), nil
	}

	data, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) handleDiscover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.scanner.Resolve(ctx, pipeline.FullRange(), t.session(request))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discover error: %v", err)), nil
	}

	data, _ := json.MarshalIndent(struct {
		Range     models.ScanRange `json:"range"`
		PublicIDs []int            `json:"public_ids"`
	}{res.Range, res.Public.Sorted()}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (t *tools) handleParse(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	html := request.GetString("html", "")
	if html == "" {
		return mcp.NewToolResultError("html is required"), nil
	}
	id := request.GetInt("id", 0)
	if id < 1 {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}

	rec, err := shopreview.Extract([]byte(html), id, t.scanner.DetailURL(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse error: %v", err)), nil
	}

	public := models.NewPublicIDSet()
	if request.GetBool("public", false) {
		public = models.NewPublicIDSet(id)
	}
	cls := filter.Classify(rec, models.FilterConfig{
		Windows:         request.GetStringSlice("selected_days", nil),
		ExcludeKeywords: request.GetStringSlice("exclude_keywords", nil),
	}.Normalize(), public)

	data, _ := json.MarshalIndent(struct {
		Record         *models.CampaignRecord `json:"record"`
		Classification string                 `json:"classification"`
		Reason         string                 `json:"reason,omitempty"`
		Line           string                 `json:"line"`
	}{rec, cls.Kind.String(), cls.Reason, pipeline.FormatLine(rec)}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
