package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/campaign-scout/internal/models"
)

var mondayFilter = models.FilterConfig{Windows: []string{"월요일"}}

func TestRun_PublicAndHiddenSplit(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		100: campaignPage("a", "월요일 09시"),
		101: campaignPage("b", "월요일 10시"),
		102: campaignPage("c", "월요일 11시"),
		103: campaignPage("d", "월요일 12시"),
	}}
	orch := NewOrchestrator(src, 2, quietLogger)

	res, err := orch.Run(context.Background(), Job{
		RunID:  "run-a",
		Range:  models.ScanRange{Start: 100, End: 103},
		Filter: mondayFilter,
		Public: models.NewPublicIDSet(101),
	}, nil)
	require.NoError(t, err)

	require.Len(t, res.Public, 1)
	assert.Contains(t, res.Public[0], "csq=101")
	require.Len(t, res.Hidden, 3)
	for i, id := range []int{100, 102, 103} {
		assert.Contains(t, res.Hidden[i], fmt.Sprintf("csq=%d", id))
	}
	assert.Equal(t, Stats{Total: 4, Done: 4, Hidden: 3, Public: 1}, res.Stats)
	assert.False(t, res.LikelyInvalidCredential)
}

func TestRun_WorkerCountDoesNotChangeResult(t *testing.T) {
	pages := map[int]string{}
	for id := 1; id <= 30; id++ {
		window := "화요일"
		if id%3 != 0 {
			window = fmt.Sprintf("월요일 %02d시", id)
		}
		pages[id] = campaignPage(fmt.Sprintf("p%d", id), window)
	}
	job := Job{
		Range:  models.ScanRange{Start: 1, End: 30},
		Filter: mondayFilter,
		Public: models.NewPublicIDSet(4, 5, 7),
	}

	serial, err := NewOrchestrator(&fakeSource{pages: pages}, 1, quietLogger).Run(context.Background(), job, nil)
	require.NoError(t, err)
	parallel, err := NewOrchestrator(&fakeSource{pages: pages}, 8, quietLogger).Run(context.Background(), job, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Fatalf("result depends on worker count (-serial +parallel):\n%s", diff)
	}
	assert.Equal(t, 10, serial.Stats.Suppressed)
	assert.Equal(t, 3, serial.Stats.Public)
	assert.Equal(t, 17, serial.Stats.Hidden)
}

func TestRun_BoundedConcurrency(t *testing.T) {
	pages := map[int]string{}
	for id := 1; id <= 40; id++ {
		pages[id] = campaignPage("p", "월요일")
	}
	src := &fakeSource{pages: pages}
	_, err := NewOrchestrator(src, 3, quietLogger).Run(context.Background(), Job{
		Range:  models.ScanRange{Start: 1, End: 40},
		Filter: mondayFilter,
		Public: models.NewPublicIDSet(),
	}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, src.maxInFlight.Load(), int32(3))
	assert.Len(t, src.fetchedIDs(), 40)
}

func TestRun_UnitFailuresDoNotFailRun(t *testing.T) {
	src := &fakeSource{
		pages: map[int]string{
			1: campaignPage("ok", "월요일"),
			2: campaignPage("ok too", "월요일"),
			4: campaignPage("panics", "월요일"),
		},
		panics: map[int]bool{4: true},
	}
	res, err := NewOrchestrator(src, 2, quietLogger).Run(context.Background(), Job{
		Range:  models.ScanRange{Start: 1, End: 4},
		Filter: mondayFilter,
		Public: models.NewPublicIDSet(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Failed)
	assert.Equal(t, 2, res.Stats.Hidden)
	assert.Equal(t, 4, res.Stats.Done)
}

func TestRun_AllLoginRedirectsFlagCredential(t *testing.T) {
	src := &fakeSource{pages: map[int]string{1: loginPage, 2: loginPage, 3: loginPage}}
	rec := &recorder{}
	res, err := NewOrchestrator(src, 2, quietLogger).Run(context.Background(), Job{
		Range:  models.ScanRange{Start: 1, End: 3},
		Filter: mondayFilter,
		Public: models.NewPublicIDSet(),
	}, rec)
	require.NoError(t, err)
	assert.True(t, res.LikelyInvalidCredential)
	assert.Equal(t, 3, res.Stats.AuthRedirects)
	assert.Empty(t, res.Hidden)
	assert.Empty(t, res.Public)
	assert.Equal(t, EventDone, rec.types()[len(rec.types())-1])
}

func TestRun_SomeLoginRedirectsDoNotFlag(t *testing.T) {
	src := &fakeSource{pages: map[int]string{1: loginPage, 2: campaignPage("x", "월요일")}}
	res, err := NewOrchestrator(src, 1, quietLogger).Run(context.Background(), Job{
		Range:  models.ScanRange{Start: 1, End: 2},
		Filter: mondayFilter,
		Public: models.NewPublicIDSet(),
	}, nil)
	require.NoError(t, err)
	assert.False(t, res.LikelyInvalidCredential)
	assert.Equal(t, 1, res.Stats.AuthRedirects)
}

func TestRun_ExcludeIDsAreSkipped(t *testing.T) {
	pages := map[int]string{}
	for id := 1; id <= 5; id++ {
		pages[id] = campaignPage("p", "월요일")
	}
	src := &fakeSource{pages: pages}
	res, err := NewOrchestrator(src, 2, quietLogger).Run(context.Background(), Job{
		Range:      models.ScanRange{Start: 1, End: 5},
		Filter:     mondayFilter,
		Public:     models.NewPublicIDSet(),
		ExcludeIDs: []int{2, 4, 99},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Total)
	assert.ElementsMatch(t, []int{1, 3, 5}, src.fetchedIDs())
}

func TestRun_EventOrder(t *testing.T) {
	src := &fakeSource{pages: map[int]string{
		1: campaignPage("a", "월요일"),
		2: campaignPage("b", "수요일"),
		3: campaignPage("c", "월요일"),
	}}
	rec := &recorder{}
	_, err := NewOrchestrator(src, 3, quietLogger).Run(context.Background(), Job{
		RunID:  "run-e",
		Range:  models.ScanRange{Start: 1, End: 3},
		Filter: mondayFilter,
		Public: models.NewPublicIDSet(3),
	}, rec)
	require.NoError(t, err)

	types := rec.types()
	require.NotEmpty(t, types)
	assert.Equal(t, EventInit, types[0])
	assert.Equal(t, EventDone, types[len(types)-1])
	assert.Equal(t, 3, rec.count(EventProgress))
	assert.Equal(t, 1, rec.count(EventHidden))
	assert.Equal(t, 1, rec.count(EventPublic))
	for _, e := range rec.events {
		assert.Equal(t, "run-e", e.RunID)
	}
	last := rec.events[len(rec.events)-1]
	require.NotNil(t, last.Result)
	assert.Equal(t, 3, last.Result.Stats.Done)
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	pages := map[int]string{}
	for id := 1; id <= 20; id++ {
		pages[id] = campaignPage("p", "월요일")
	}
	src := &fakeSource{pages: pages, block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type runResult struct {
		res *Result
		err error
	}
	done := make(chan runResult, 1)
	rec := &recorder{}
	go func() {
		res, err := NewOrchestrator(src, 2, quietLogger).Run(ctx, Job{
			Range:  models.ScanRange{Start: 1, End: 20},
			Filter: mondayFilter,
			Public: models.NewPublicIDSet(),
		}, rec)
		done <- runResult{res, err}
	}()

	require.Eventually(t, func() bool { return len(src.fetchedIDs()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	close(src.block)

	var out runResult
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	require.ErrorIs(t, out.err, context.Canceled)
	require.NotNil(t, out.res)
	assert.GreaterOrEqual(t, out.res.Stats.Done, 2)
	assert.Less(t, out.res.Stats.Done, 20)
	assert.Equal(t, out.res.Stats.Done, out.res.Stats.Hidden)

	types := rec.types()
	assert.Equal(t, EventError, types[len(types)-1])
	assert.Zero(t, rec.count(EventDone))
}

func TestJob_IDsAscending(t *testing.T) {
	job := Job{Range: models.ScanRange{Start: 5, End: 9}, ExcludeIDs: []int{7}}
	assert.Equal(t, []int{5, 6, 8, 9}, job.ids())
}
