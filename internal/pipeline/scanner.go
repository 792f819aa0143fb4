package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lukman83/campaign-scout/internal/models"
)

var (
	ErrMissingCredential = errors.New("session credential is required")
	ErrNoWindows         = errors.New("at least one day or window token is required")
)

// Source is everything a scan needs from the site.
type Source interface {
	Fetcher
	LandingFetcher
}

// Options tunes a Scanner. Zero values take the defaults below.
type Options struct {
	Workers           int
	DiscoveryAttempts int
	DiscoveryBackoff  time.Duration
	RangeMargin       int
	// FixedStart, when positive, replaces min(public)-RangeMargin as the
	// first id of a full scan.
	FixedStart int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.DiscoveryAttempts <= 0 {
		o.DiscoveryAttempts = 3
	}
	if o.DiscoveryBackoff < 0 {
		o.DiscoveryBackoff = 0
	}
	if o.RangeMargin < 0 {
		o.RangeMargin = 0
	}
	return o
}

// Request is the caller's input for one scan.
type Request struct {
	Credential models.Credential   `json:"-"`
	Filter     models.FilterConfig `json:"filter"`
	Range      RangeMode           `json:"-"`
	ExcludeIDs []int               `json:"exclude_ids,omitempty"`
}

func (r Request) Validate() error {
	if r.Credential == "" {
		return ErrMissingCredential
	}
	if len(r.Filter.Normalize().Windows) == 0 {
		return ErrNoWindows
	}
	return nil
}

// Scanner resolves the scan range and runs the orchestrator.
type Scanner struct {
	source       Source
	resolver     *Resolver
	orchestrator *Orchestrator
	logger       *slog.Logger
}

func NewScanner(source Source, opts Options, logger *slog.Logger) *Scanner {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		source:       source,
		resolver:     NewResolver(source, opts, logger),
		orchestrator: NewOrchestrator(source, opts.Workers, logger),
		logger:       logger,
	}
}

// DetailURL is the page address for campaign id.
func (s *Scanner) DetailURL(id int) string {
	return s.source.DetailURL(id)
}

// Resolve exposes range resolution on its own, without scanning.
func (s *Scanner) Resolve(ctx context.Context, mode RangeMode, cred models.Credential) (Resolution, error) {
	return s.resolver.Resolve(ctx, mode, cred)
}

// Scan runs one complete scan. Run-level failures (invalid request, failed
// discovery, cancellation) are returned and also emitted as an Error event;
// no page is fetched when resolution fails.
func (s *Scanner) Scan(ctx context.Context, req Request, sink Sink) (*Result, error) {
	if sink == nil {
		sink = Discard
	}
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)

	fail := func(err error) (*Result, error) {
		sink.Emit(Event{Type: EventError, RunID: runID, Message: err.Error()})
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}
	logger.Info("resolving scan range", "mode", req.Range.String(), "credential", req.Credential.Redacted())

	resolution, err := s.resolver.Resolve(ctx, req.Range, req.Credential)
	if err != nil {
		logger.Error("range resolution failed", "error", err)
		return fail(fmt.Errorf("resolve range: %w", err))
	}

	return s.orchestrator.Run(ctx, Job{
		RunID:      runID,
		Range:      resolution.Range,
		Filter:     req.Filter.Normalize(),
		Public:     resolution.Public,
		Credential: req.Credential,
		ExcludeIDs: req.ExcludeIDs,
	}, sink)
}
