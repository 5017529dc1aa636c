// Package poller implements the client-side observation loop over a
// report's transfer state: one query per tick, no overlapping polls, until
// the transcription reaches a terminal state.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"reportapi/internal/model"
)

var (
	// ErrEngineStalled is returned when a poll still reports the initial
	// "started" stage. The engine acknowledged the job but never began
	// working on it; waiting longer does not help.
	ErrEngineStalled = errors.New("transcription engine stalled at started")

	// ErrTransferFailed is returned when the polled record reports an
	// explicit failure status.
	ErrTransferFailed = errors.New("transfer reported as failed")

	// ErrTimeout is returned when the optional overall deadline elapses
	// before a terminal state is reached.
	ErrTimeout = errors.New("timed out waiting for transcription")
)

// Update is a snapshot of the transfer state delivered on every poll tick.
// Percent is the bounded progress indicator; an unrecognized stage leaves it
// at its previous value.
type Update struct {
	Status   string
	Stage    model.Stage
	Percent  int
	Messages []string
}

// Config parameterizes a Poller. ServerURL, UserID and ReportID are
// required.
type Config struct {
	ServerURL string
	UserID    string
	ReportID  string

	// Interval between polls. Defaults to 5 seconds.
	Interval time.Duration

	// Timeout bounds the whole wait. Zero means no limit; a stuck
	// non-terminal state then polls forever until the context is
	// canceled.
	Timeout time.Duration

	// OnTick, if set, is invoked with every snapshot. Used for progress
	// rendering.
	OnTick func(Update)

	HTTPClient *http.Client
}

// Poller drives the cooperative polling loop.
type Poller struct {
	cfg Config
	hc  *http.Client
}

func New(cfg Config) (*Poller, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("server URL is required")
	}
	if cfg.UserID == "" || cfg.ReportID == "" {
		return nil, errors.New("userId and reportId are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Poller{cfg: cfg, hc: hc}, nil
}

// statusDocument is the wire shape of the status query response.
type statusDocument struct {
	Reports []struct {
		TransferData *model.TransferData `json:"transferData"`
	} `json:"reports"`
}

// Wait polls until the transcription finishes, fails, stalls, or the
// context/deadline fires. On success it returns the transcript segments.
//
// Each tick issues exactly one query and waits for its response; polls never
// overlap.
func (p *Poller) Wait(ctx context.Context) ([]model.TranscriptSegment, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, p.cfg.Timeout, ErrTimeout)
		defer cancel()
	}

	percent := 0
	for {
		td, err := p.fetch(ctx)
		if err != nil {
			if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
				return nil, ErrTimeout
			}
			return nil, err
		}

		if td != nil {
			if pc, ok := td.Progress.Percent(); ok {
				percent = pc
			}
			if p.cfg.OnTick != nil {
				p.cfg.OnTick(Update{
					Status:   td.Status,
					Stage:    td.Progress,
					Percent:  percent,
					Messages: td.Messages,
				})
			}

			switch {
			case td.Progress == model.StageFinished:
				return td.Result, nil
			case td.Progress == model.StageStarted:
				// The job was accepted before this loop began; still
				// sitting at started means the engine never picked
				// it up.
				return nil, ErrEngineStalled
			case strings.EqualFold(td.Status, "failed"):
				return nil, ErrTransferFailed
			}
		}

		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) fetch(ctx context.Context) (*model.TransferData, error) {
	u, err := url.JoinPath(p.cfg.ServerURL, "reports", p.cfg.ReportID, "users", p.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("build status URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query report status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query report status: unexpected status %d", resp.StatusCode)
	}

	var doc statusDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	if len(doc.Reports) == 0 {
		return nil, errors.New("status response contains no reports")
	}
	return doc.Reports[0].TransferData, nil
}
