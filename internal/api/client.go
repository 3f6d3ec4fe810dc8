// Package api implements the HTTP client for the product-matching service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matchflow/matchflow/internal/model"
)

// DefaultTimeout bounds a single HTTP exchange. The analysis watchdog is a
// separate, longer wall-clock bound owned by the coordinator.
const DefaultTimeout = 30 * time.Second

// Client talks to the matching service's REST surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Matching service wire types.
type suggestRequest struct {
	CustomerRowIndices []int `json:"customer_row_indices"`
	MaxSuggestions     int   `json:"max_suggestions"`
}

type candidate struct {
	Fields       map[string]string `json:"fields"`
	Rationale    string            `json:"rationale"`
	Source       string            `json:"source"`
	ID           int               `json:"id"`
	RowIndex     int               `json:"customer_row_index"`
	Rank         int               `json:"rank"`
	Confidence   float64           `json:"confidence"`
}

type queueStatus struct {
	Queued       int `json:"queued"`
	Processing   int `json:"processing"`
	Ready        int `json:"ready"`
	AutoApproved int `json:"auto_approved"`
}

type autoQueueResponse struct {
	QueuedCount int `json:"queued_count"`
}

type approveRequest struct {
	CustomerRowIndex int `json:"customer_row_index"`
	AISuggestionID   int `json:"ai_suggestion_id"`
}

type rejectRequest struct {
	IDs []int `json:"ids"`
}

type matchResult struct {
	Status           string  `json:"status"`
	MatchedProduct   string  `json:"matched_product"`
	ID               int     `json:"id"`
	CustomerRowIndex int     `json:"customer_row_index"`
	Confidence       float64 `json:"confidence"`
}

// NewClient creates a client for the matching service at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Suggest submits a batch of row indices for analysis and returns the
// candidates the service produced.
func (c *Client) Suggest(ctx context.Context, projectID string, rowIndices []int, maxSuggestions int) ([]model.Candidate, error) {
	slog.Debug("Requesting suggestions",
		"project_id", projectID,
		"row_count", len(rowIndices),
		"max_suggestions", maxSuggestions)

	var wire []candidate
	err := c.post(ctx, c.projectPath(projectID, "ai/suggest"), suggestRequest{
		CustomerRowIndices: rowIndices,
		MaxSuggestions:     maxSuggestions,
	}, &wire)
	if err != nil {
		return nil, err
	}

	return toCandidates(wire), nil
}

// QueueStatus fetches the current backlog snapshot for a project.
func (c *Client) QueueStatus(ctx context.Context, projectID string) (model.QueueSnapshot, error) {
	var wire queueStatus
	if err := c.get(ctx, c.projectPath(projectID, "ai/queue-status"), &wire); err != nil {
		return model.QueueSnapshot{}, err
	}

	return model.QueueSnapshot{
		Queued:       wire.Queued,
		Processing:   wire.Processing,
		Ready:        wire.Ready,
		AutoApproved: wire.AutoApproved,
	}, nil
}

// Suggestions fetches the full current candidate list for a project.
func (c *Client) Suggestions(ctx context.Context, projectID string) ([]model.Candidate, error) {
	var wire []candidate
	if err := c.get(ctx, c.projectPath(projectID, "ai/suggestions"), &wire); err != nil {
		return nil, err
	}

	return toCandidates(wire), nil
}

// AutoQueue asks the service to queue all unmatched rows for background
// processing and returns how many rows were queued.
func (c *Client) AutoQueue(ctx context.Context, projectID string) (int, error) {
	var wire autoQueueResponse
	if err := c.post(ctx, c.projectPath(projectID, "ai/auto-queue"), nil, &wire); err != nil {
		return 0, err
	}

	return wire.QueuedCount, nil
}

// PauseQueue pauses server-side background processing. Client-side
// observation is unaffected.
func (c *Client) PauseQueue(ctx context.Context, projectID string) error {
	return c.post(ctx, c.projectPath(projectID, "ai/pause-queue"), nil, nil)
}

// ResumeQueue resumes server-side background processing.
func (c *Client) ResumeQueue(ctx context.Context, projectID string) error {
	return c.post(ctx, c.projectPath(projectID, "ai/resume-queue"), nil, nil)
}

// Approve accepts a suggestion for a row.
func (c *Client) Approve(ctx context.Context, projectID string, rowIndex, suggestionID int) error {
	return c.post(ctx, c.projectPath(projectID, "approve-ai"), approveRequest{
		CustomerRowIndex: rowIndex,
		AISuggestionID:   suggestionID,
	}, nil)
}

// Results fetches the backend-owned match results for a project.
func (c *Client) Results(ctx context.Context, projectID string) ([]model.MatchResult, error) {
	var wire []matchResult
	if err := c.get(ctx, c.projectPath(projectID, "results"), &wire); err != nil {
		return nil, err
	}

	results := make([]model.MatchResult, len(wire))
	for i, r := range wire {
		results[i] = model.MatchResult{
			ID:               r.ID,
			CustomerRowIndex: r.CustomerRowIndex,
			Status:           r.Status,
			MatchedProduct:   r.MatchedProduct,
			Confidence:       r.Confidence,
		}
	}

	return results, nil
}

// Reject rejects the given match results by backend id.
func (c *Client) Reject(ctx context.Context, projectID string, ids []int) error {
	return c.post(ctx, c.projectPath(projectID, "reject"), rejectRequest{IDs: ids}, nil)
}

func (c *Client) projectPath(projectID, suffix string) string {
	return fmt.Sprintf("%s/projects/%s/%s", c.baseURL, url.PathEscape(projectID), suffix)
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("matching service error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func toCandidates(wire []candidate) []model.Candidate {
	candidates := make([]model.Candidate, len(wire))
	for i, w := range wire {
		candidates[i] = model.Candidate{
			SuggestionID: w.ID,
			RowIndex:     w.RowIndex,
			Rank:         w.Rank,
			Fields:       w.Fields,
			Confidence:   w.Confidence,
			Rationale:    w.Rationale,
			Source:       w.Source,
		}
	}

	return candidates
}
