package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/campaign-scout/internal/models"
)

func fastOptions() Options {
	return Options{Workers: 2, DiscoveryAttempts: 3, RangeMargin: 5}
}

func TestResolve_FullRangeFromPublicIDs(t *testing.T) {
	src := &fakeSource{landing: []string{landingPage(50, 60, 55)}}
	res, err := NewResolver(src, fastOptions(), quietLogger).Resolve(context.Background(), FullRange(), "s")
	require.NoError(t, err)
	assert.Equal(t, models.ScanRange{Start: 45, End: 65}, res.Range)
	assert.Equal(t, []int{50, 55, 60}, res.Public.Sorted())
}

func TestResolve_FixedStart(t *testing.T) {
	opts := fastOptions()
	opts.FixedStart = 10
	src := &fakeSource{landing: []string{landingPage(50, 60)}}
	res, err := NewResolver(src, opts, quietLogger).Resolve(context.Background(), FullRange(), "s")
	require.NoError(t, err)
	assert.Equal(t, models.ScanRange{Start: 10, End: 65}, res.Range)
}

func TestResolve_StartClampedToOne(t *testing.T) {
	opts := fastOptions()
	opts.RangeMargin = 100
	src := &fakeSource{landing: []string{landingPage(3)}}
	res, err := NewResolver(src, opts, quietLogger).Resolve(context.Background(), FullRange(), "s")
	require.NoError(t, err)
	assert.Equal(t, models.ScanRange{Start: 1, End: 103}, res.Range)
}

func TestResolve_RetriesEmptyLanding(t *testing.T) {
	src := &fakeSource{landing: []string{landingPage(), landingPage(8)}}
	res, err := NewResolver(src, fastOptions(), quietLogger).Resolve(context.Background(), FullRange(), "s")
	require.NoError(t, err)
	assert.Equal(t, 2, src.landingCalls)
	assert.True(t, res.Public.Has(8))
}

func TestResolve_TransportFailureWrapsEmptyRange(t *testing.T) {
	src := &fakeSource{landingErr: errors.New("connection reset")}
	_, err := NewResolver(src, fastOptions(), quietLogger).Resolve(context.Background(), FullRange(), "s")
	require.ErrorIs(t, err, ErrEmptyRange)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, src.landingCalls)
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{}
	_, err := NewResolver(src, fastOptions(), quietLogger).Resolve(ctx, FullRange(), "s")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_Explicit(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{"valid", 10, 20, false},
		{"single id", 7, 7, false},
		{"start after end", 20, 10, true},
		{"zero start", 0, 10, true},
		{"negative", -5, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			res, err := NewResolver(src, fastOptions(), quietLogger).Resolve(context.Background(), ExplicitRange(tt.start, tt.end), "s")
			assert.Zero(t, src.landingCalls)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.ScanRange{Start: tt.start, End: tt.end}, res.Range)
			assert.Zero(t, res.Public.Len())
		})
	}
}

func TestResolve_ReportsDiscoveryProgress(t *testing.T) {
	var (
		mu   sync.Mutex
		msgs []string
	)
	ctx := WithProgress(context.Background(), func(msg string) {
		mu.Lock()
		msgs = append(msgs, msg)
		mu.Unlock()
	})
	src := &fakeSource{landing: []string{landingPage(), landingPage(1)}}
	_, err := NewResolver(src, fastOptions(), quietLogger).Resolve(ctx, FullRange(), "s")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Discovering public campaigns (attempt 1/3)...",
		"Discovering public campaigns (attempt 2/3)...",
	}, msgs)
}

func TestScan_DiscoveryFindsNothing(t *testing.T) {
	src := &fakeSource{pages: map[int]string{1: campaignPage("x", "월요일")}}
	rec := &recorder{}
	res, err := NewScanner(src, fastOptions(), quietLogger).Scan(context.Background(), Request{
		Credential: "s",
		Filter:     mondayFilter,
		Range:      FullRange(),
	}, rec)

	require.ErrorIs(t, err, ErrEmptyRange)
	assert.Nil(t, res)
	assert.Equal(t, 3, src.landingCalls)
	assert.Empty(t, src.fetchedIDs())
	assert.Equal(t, []EventType{EventError}, rec.types())
}

func TestScan_ExplicitRangeIsAllHidden(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		10: campaignPage("a", "월요일 1시"),
		11: campaignPage("b", "월요일 2시"),
	}}
	res, err := NewScanner(src, fastOptions(), quietLogger).Scan(context.Background(), Request{
		Credential: "s",
		Filter:     mondayFilter,
		Range:      ExplicitRange(10, 11),
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, src.landingCalls)
	assert.Len(t, res.Hidden, 2)
	assert.Empty(t, res.Public)
	assert.NotEmpty(t, res.RunID)
}

func TestScan_FullRun(t *testing.T) {
	src := &fakeSource{
		landing: []string{landingPage(101)},
		pages: map[int]string{
			100: campaignPage("a", "월요일 1시"),
			101: campaignPage("b", "월요일 2시"),
			102: campaignPage("c 제외", "월요일 3시"),
		},
	}
	opts := fastOptions()
	opts.RangeMargin = 1
	res, err := NewScanner(src, opts, quietLogger).Scan(context.Background(), Request{
		Credential: "s",
		Filter: models.FilterConfig{
			Windows:         []string{" 월요일 ", ""},
			ExcludeKeywords: []string{"제외", ""},
		},
		Range: FullRange(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ScanRange{Start: 100, End: 102}, res.Range)
	assert.Len(t, res.Public, 1)
	assert.Len(t, res.Hidden, 1)
	assert.Equal(t, 1, res.Stats.Suppressed)
}

func TestRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, Request{Filter: mondayFilter}.Validate(), ErrMissingCredential)
	assert.ErrorIs(t, Request{Credential: "s", Filter: models.FilterConfig{Windows: []string{" "}}}.Validate(), ErrNoWindows)
	assert.NoError(t, Request{Credential: "s", Filter: mondayFilter}.Validate())
}

func TestScan_InvalidRequestEmitsError(t *testing.T) {
	src := &fakeSource{}
	rec := &recorder{}
	_, err := NewScanner(src, fastOptions(), quietLogger).Scan(context.Background(), Request{Filter: mondayFilter}, rec)
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, []EventType{EventError}, rec.types())
	assert.Zero(t, src.landingCalls)
}

func TestScanner_DetailURL(t *testing.T) {
	s := NewScanner(&fakeSource{}, fastOptions(), quietLogger)
	assert.Equal(t, "https://example.test/usr/campaign_detail?csq=9", s.DetailURL(9))
}
