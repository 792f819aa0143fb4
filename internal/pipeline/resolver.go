package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lukman83/campaign-scout/internal/httputil"
	"github.com/lukman83/campaign-scout/internal/models"
	"github.com/lukman83/campaign-scout/internal/shopreview"
)

var (
	// ErrEmptyRange means discovery never found a public campaign id.
	ErrEmptyRange = errors.New("no public campaign ids discovered")
	// ErrInvalidRange rejects an explicit range with start > end or start < 1.
	ErrInvalidRange = errors.New("invalid scan range")
)

// LandingFetcher retrieves the landing page that advertises public campaigns.
type LandingFetcher interface {
	FetchLanding(ctx context.Context, cred models.Credential) ([]byte, error)
}

// RangeMode selects how the scan range is determined.
type RangeMode struct {
	Full  bool
	Start int
	End   int
}

// FullRange derives the range from the discovered public ids.
func FullRange() RangeMode { return RangeMode{Full: true} }

// ExplicitRange scans [start, end] without a discovery call.
func ExplicitRange(start, end int) RangeMode { return RangeMode{Start: start, End: end} }

func (m RangeMode) String() string {
	if m.Full {
		return "full"
	}
	return fmt.Sprintf("explicit[%d,%d]", m.Start, m.End)
}

// Resolution is the outcome of range resolution: what to scan, and which ids
// count as public during classification.
type Resolution struct {
	Range  models.ScanRange   `json:"range"`
	Public models.PublicIDSet `json:"-"`
}

// Resolver fixes the scan range for a run.
type Resolver struct {
	source     LandingFetcher
	attempts   int
	backoff    time.Duration
	margin     int
	fixedStart int
	logger     *slog.Logger
}

func NewResolver(source LandingFetcher, opts Options, logger *slog.Logger) *Resolver {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source:     source,
		attempts:   opts.DiscoveryAttempts,
		backoff:    opts.DiscoveryBackoff,
		margin:     opts.RangeMargin,
		fixedStart: opts.FixedStart,
		logger:     logger,
	}
}

// Resolve returns the scan range for mode. Full mode discovers the public id
// set first and fails with ErrEmptyRange if it stays empty. Explicit mode
// makes no network call and yields an empty public set.
func (r *Resolver) Resolve(ctx context.Context, mode RangeMode, cred models.Credential) (Resolution, error) {
	if !mode.Full {
		if mode.Start < 1 || mode.Start > mode.End {
			return Resolution{}, fmt.Errorf("%w: start %d, end %d", ErrInvalidRange, mode.Start, mode.End)
		}
		return Resolution{
			Range:  models.ScanRange{Start: mode.Start, End: mode.End},
			Public: models.NewPublicIDSet(),
		}, nil
	}

	public, err := r.Discover(ctx, cred)
	if err != nil {
		return Resolution{}, err
	}

	start := public.Min() - r.margin
	if r.fixedStart > 0 {
		start = r.fixedStart
	}
	start = max(start, 1)
	end := public.Max() + r.margin
	if start > end {
		start = end
	}
	return Resolution{
		Range:  models.ScanRange{Start: start, End: end},
		Public: public,
	}, nil
}

// Discover fetches the landing page and collects the advertised ids,
// retrying on transport failure and on an empty result.
func (r *Resolver) Discover(ctx context.Context, cred models.Credential) (models.PublicIDSet, error) {
	var public models.PublicIDSet
	err := httputil.Retry(ctx, r.attempts, r.backoff, func(attempt int) error {
		ReportProgress(ctx, fmt.Sprintf("Discovering public campaigns (attempt %d/%d)...", attempt, r.attempts))
		raw, err := r.source.FetchLanding(ctx, cred)
		if err != nil {
			r.logger.Warn("landing page fetch failed", "attempt", attempt, "error", err)
			return err
		}
		ids, err := shopreview.PublicIDs(raw)
		if err != nil {
			return err
		}
		if ids.Len() == 0 {
			r.logger.Warn("landing page listed no campaigns", "attempt", attempt)
			return ErrEmptyRange
		}
		public = ids
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrEmptyRange) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEmptyRange, err)
	}
	r.logger.Info("public campaigns discovered", "count", public.Len(), "min", public.Min(), "max", public.Max())
	return public, nil
}
