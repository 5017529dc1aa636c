package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportapi/internal/model"
)

func statusServer(t *testing.T, states []*model.TransferData) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reports/r1/users/u1", r.URL.Path)

		i := int(calls.Add(1)) - 1
		if i >= len(states) {
			i = len(states) - 1
		}
		json.NewEncoder(w).Encode(map[string]any{
			"reports": []map[string]any{{"transferData": states[i]}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestPoller(t *testing.T, srv *httptest.Server, onTick func(Update)) *Poller {
	t.Helper()
	p, err := New(Config{
		ServerURL: srv.URL,
		UserID:    "u1",
		ReportID:  "r1",
		Interval:  time.Millisecond,
		OnTick:    onTick,
	})
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{UserID: "u1", ReportID: "r1"})
	assert.Error(t, err)

	_, err = New(Config{ServerURL: "http://x", ReportID: "r1"})
	assert.Error(t, err)
}

func TestWait_ProgressesToFinished(t *testing.T) {
	srv, _ := statusServer(t, []*model.TransferData{
		{Status: "processing", Progress: model.StageSplitting},
		{Status: "processing", Progress: model.StageTranscribing},
		{Status: "finished", Progress: model.StageFinished, Result: []model.TranscriptSegment{
			{Speaker: "spk_0", Text: "Good morning class."},
		}},
	})

	var percents []int
	p := newTestPoller(t, srv, func(u Update) { percents = append(percents, u.Percent) })

	result, err := p.Wait(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "spk_0", result[0].Speaker)

	// Indicator only moves forward.
	assert.Equal(t, []int{20, 60, 100}, percents)
}

func TestWait_UnrecognizedStageKeepsIndicator(t *testing.T) {
	srv, _ := statusServer(t, []*model.TransferData{
		{Status: "processing", Progress: model.StageLoadingNemo},
		{Status: "processing", Progress: model.Stage("defragmenting")},
		{Status: "finished", Progress: model.StageFinished, Result: []model.TranscriptSegment{{Text: "hi"}}},
	})

	var percents []int
	p := newTestPoller(t, srv, func(u Update) { percents = append(percents, u.Percent) })

	_, err := p.Wait(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{40, 40, 100}, percents)
}

func TestWait_StalledAtStarted(t *testing.T) {
	srv, _ := statusServer(t, []*model.TransferData{
		{Status: "processing", Progress: model.StageStarted},
	})

	p := newTestPoller(t, srv, nil)
	_, err := p.Wait(context.Background())

	assert.ErrorIs(t, err, ErrEngineStalled)
}

func TestWait_ExplicitFailure(t *testing.T) {
	srv, _ := statusServer(t, []*model.TransferData{
		{Status: "failed", Progress: model.StageTranscribing, Messages: []string{"gpu fell over"}},
	})

	p := newTestPoller(t, srv, nil)
	_, err := p.Wait(context.Background())

	assert.ErrorIs(t, err, ErrTransferFailed)
}

func TestWait_NoTransferDataKeepsPolling(t *testing.T) {
	srv, calls := statusServer(t, []*model.TransferData{
		nil,
		nil,
		{Status: "finished", Progress: model.StageFinished, Result: []model.TranscriptSegment{{Text: "hi"}}},
	})

	p := newTestPoller(t, srv, nil)
	result, err := p.Wait(context.Background())

	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWait_ContextCancellation(t *testing.T) {
	srv, _ := statusServer(t, []*model.TransferData{
		{Status: "processing", Progress: model.StageAligning},
	})

	p := newTestPoller(t, srv, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Wait(ctx)
	assert.Error(t, err)
}

func TestWait_Timeout(t *testing.T) {
	srv, _ := statusServer(t, []*model.TransferData{
		{Status: "processing", Progress: model.StageAligning},
	})

	p, err := New(Config{
		ServerURL: srv.URL,
		UserID:    "u1",
		ReportID:  "r1",
		Interval:  5 * time.Millisecond,
		Timeout:   20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}
