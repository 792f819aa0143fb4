package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lukman83/campaign-scout/internal/filter"
	"github.com/lukman83/campaign-scout/internal/models"
	"github.com/lukman83/campaign-scout/internal/shopreview"
)

// Fetcher retrieves one campaign detail page.
type Fetcher interface {
	DetailURL(id int) string
	FetchDetail(ctx context.Context, id int, cred models.Credential) ([]byte, error)
}

// Job is one resolved scan.
type Job struct {
	RunID      string
	Range      models.ScanRange
	Filter     models.FilterConfig
	Public     models.PublicIDSet
	Credential models.Credential
	// ExcludeIDs are skipped, e.g. ids a reconnecting stream consumer
	// already received.
	ExcludeIDs []int
}

// ids lists the ids to probe in ascending order.
func (j Job) ids() []int {
	skip := make(map[int]struct{}, len(j.ExcludeIDs))
	for _, id := range j.ExcludeIDs {
		skip[id] = struct{}{}
	}
	ids := make([]int, 0, j.Range.Len())
	for id := j.Range.Start; id <= j.Range.End; id++ {
		if _, ok := skip[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

type Stats struct {
	Total         int `json:"total"`
	Done          int `json:"done"`
	Hidden        int `json:"hidden"`
	Public        int `json:"public"`
	Suppressed    int `json:"suppressed"`
	Failed        int `json:"failed"`
	AuthRedirects int `json:"auth_redirects"`
}

// Result is the batch outcome of a scan. Both lists are sorted by
// availability window.
type Result struct {
	RunID  string           `json:"run_id"`
	Range  models.ScanRange `json:"range"`
	Hidden []string         `json:"hidden"`
	Public []string         `json:"public"`
	Stats  Stats            `json:"stats"`
	// LikelyInvalidCredential is set when every completed unit hit the
	// login redirect. The run still completes normally.
	LikelyInvalidCredential bool `json:"likely_invalid_credential,omitempty"`
}

type unitState int

const (
	unitFailed unitState = iota
	unitAuthRedirect
	unitSuppressed
	unitEmitted
)

type outcome struct {
	id     int
	state  unitState
	class  models.Classification
	record *models.CampaignRecord
	line   string
	err    error
}

// Orchestrator fans fetch, extract and classify work for every id of a job
// out over a fixed number of workers and aggregates the outcomes.
type Orchestrator struct {
	fetcher Fetcher
	workers int
	logger  *slog.Logger
}

func NewOrchestrator(fetcher Fetcher, workers int, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{fetcher: fetcher, workers: workers, logger: logger}
}

// Run scans every id of job. Unit failures never fail the run. When ctx is
// cancelled no new ids are dispatched, in-flight units finish, and Run
// returns the partial result together with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, job Job, sink Sink) (*Result, error) {
	if sink == nil {
		sink = Discard
	}
	ids := job.ids()
	res := &Result{
		RunID:  job.RunID,
		Range:  job.Range,
		Hidden: []string{},
		Public: []string{},
		Stats:  Stats{Total: len(ids)},
	}
	logger := o.logger.With("run_id", job.RunID)
	logger.Info("scan started", "start", job.Range.Start, "end", job.Range.End, "units", len(ids), "workers", o.workers)

	sink.Emit(Event{Type: EventInit, RunID: job.RunID, Total: len(ids)})

	outcomes := make(chan outcome, o.workers)
	go o.dispatch(ctx, job, ids, outcomes)

	// Single consumer: the only writer of res.
	for oc := range outcomes {
		res.Stats.Done++
		switch oc.state {
		case unitFailed:
			res.Stats.Failed++
			logger.Debug("unit failed", "id", oc.id, "error", oc.err)
		case unitAuthRedirect:
			res.Stats.AuthRedirects++
			logger.Debug("unit hit login redirect", "id", oc.id)
		case unitSuppressed:
			res.Stats.Suppressed++
		case unitEmitted:
			if oc.class.Kind == models.Public {
				res.Stats.Public++
				res.Public = append(res.Public, oc.line)
				sink.Emit(Event{Type: EventPublic, RunID: job.RunID, Line: oc.line, Record: oc.record})
			} else {
				res.Stats.Hidden++
				res.Hidden = append(res.Hidden, oc.line)
				sink.Emit(Event{Type: EventHidden, RunID: job.RunID, Line: oc.line, Record: oc.record})
			}
		}
		sink.Emit(Event{Type: EventProgress, RunID: job.RunID, Done: res.Stats.Done, Total: res.Stats.Total})
	}

	SortLines(res.Hidden)
	SortLines(res.Public)
	res.LikelyInvalidCredential = res.Stats.Done > 0 && res.Stats.AuthRedirects == res.Stats.Done

	if err := ctx.Err(); err != nil {
		logger.Warn("scan cancelled", "done", res.Stats.Done, "total", res.Stats.Total)
		sink.Emit(Event{Type: EventError, RunID: job.RunID, Message: fmt.Sprintf("scan cancelled: %v", err)})
		return res, err
	}

	if res.LikelyInvalidCredential {
		logger.Warn("every page answered with the login redirect; the session credential is likely invalid")
	}
	logger.Info("scan finished",
		"hidden", res.Stats.Hidden,
		"public", res.Stats.Public,
		"suppressed", res.Stats.Suppressed,
		"failed", res.Stats.Failed,
		"auth_redirects", res.Stats.AuthRedirects,
	)
	sink.Emit(Event{Type: EventDone, RunID: job.RunID, Result: res})
	return res, nil
}

// dispatch submits one unit per id to a bounded pool and closes out once
// every submitted unit has reported.
func (o *Orchestrator) dispatch(ctx context.Context, job Job, ids []int, out chan<- outcome) {
	defer close(out)

	// In-flight fetches run to completion or their own timeout after
	// cancellation; only dispatching stops.
	unitCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(o.workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out <- o.process(unitCtx, job, id)
			return nil
		})
	}
	_ = g.Wait()
}

// process runs one unit: fetch, extract, classify, format. A panic is
// contained here and reported as a failed unit.
func (o *Orchestrator) process(ctx context.Context, job Job, id int) (oc outcome) {
	oc = outcome{id: id, state: unitFailed}
	defer func() {
		if r := recover(); r != nil {
			oc = outcome{id: id, state: unitFailed, err: fmt.Errorf("panic processing campaign %d: %v", id, r)}
		}
	}()

	pageURL := o.fetcher.DetailURL(id)
	raw, err := o.fetcher.FetchDetail(ctx, id, job.Credential)
	if err != nil {
		oc.err = err
		return oc
	}

	rec, err := shopreview.Extract(raw, id, pageURL)
	if errors.Is(err, shopreview.ErrAuthRedirect) {
		oc.state = unitAuthRedirect
		return oc
	}
	if err != nil {
		oc.err = err
		return oc
	}

	oc.class = filter.Classify(rec, job.Filter, job.Public)
	if oc.class.Kind == models.Suppressed {
		oc.state = unitSuppressed
		return oc
	}
	oc.state = unitEmitted
	oc.record = rec
	oc.line = FormatLine(rec)
	return oc
}
