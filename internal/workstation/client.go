// Package workstation is the HTTP client for the external transcription
// engine. Only the engine's wire contract is consumed here:
//
//	POST {url}/transcription/start_transcription   multipart: file, reportId
//	GET  {url}/transcription/get_transcription_status?job_id=...
package workstation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"reportapi/internal/config"
	"reportapi/internal/model"
)

// JobState is the engine's view of one transcription job. Progress is a
// stage string from the closed enumeration in the model package; Result is
// only present once the job finished.
type JobState struct {
	Status   string                    `json:"status"`
	Progress model.Stage               `json:"progress"`
	Messages []string                  `json:"messages"`
	Result   []model.TranscriptSegment `json:"result,omitempty"`
}

// API is the engine surface consumed by the rest of the application.
type API interface {
	// StartTranscription uploads the audio content and returns the
	// engine's opaque job identifier.
	StartTranscription(ctx context.Context, file io.Reader, fileName, reportID string) (string, error)
	// JobStatus queries the current state of a job.
	JobStatus(ctx context.Context, jobID string) (*JobState, error)
}

// Client talks to a single workstation instance. No retry policy exists: a
// failed call is terminal for that request and the caller decides whether to
// re-trigger.
type Client struct {
	baseURL string
	httpc   *http.Client
}

var _ API = (*Client)(nil)

// NewClient builds a client from config. The transport is instrumented with
// otelhttp so outbound calls appear in traces.
func NewClient(cfg config.WorkstationConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("workstation url is required")
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *Client) StartTranscription(ctx context.Context, file io.Reader, fileName, reportID string) (string, error) {
	// Stream the multipart body instead of buffering the recording in
	// memory; uploads can be several gigabytes.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("reportId", reportID); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcription/start_transcription", pr)
	if err != nil {
		return "", fmt.Errorf("build start request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("start transcription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("start transcription: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode start response: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("start transcription: response contained no job_id")
	}
	return out.JobID, nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobState, error) {
	q := url.Values{"job_id": {jobID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transcription/get_transcription_status?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get transcription status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get transcription status: unexpected status %d", resp.StatusCode)
	}

	var state JobState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &state, nil
}
