package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"communifund/platform-backend/internal/apierr"
)

// Predictions returned by the verifier.
const (
	PredictionReject  = 0
	PredictionApprove = 1
)

// Result is the verifier's opinion about a single project.
type Result struct {
	Prediction int     `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

// BulkResult is the payload of a bulk dry-run scoring pass.
type BulkResult struct {
	Processed int               `json:"processed"`
	Approved  int               `json:"approved"`
	Results   []json.RawMessage `json:"results"`
}

// Client talks to the external AI verification service.
type Client interface {
	// VerifyProject scores one project. The call is always a dry run: the
	// verifier must not persist a decision itself.
	VerifyProject(ctx context.Context, projectID string) (*Result, error)
	// TriggerBulkScoring scores every unprocessed pending project in one
	// pass, dry-run, returning the raw per-project results.
	TriggerBulkScoring(ctx context.Context, confidenceThreshold float64) (*BulkResult, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

// NewClient builds an HTTP verifier client with a bounded per-call timeout.
func NewClient(baseURL string, timeout time.Duration) Client {
	return &httpClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) VerifyProject(ctx context.Context, projectID string) (*Result, error) {
	url := fmt.Sprintf("%s/verify/project/%s", c.baseURL, projectID)

	var result Result
	if err := c.post(ctx, url, map[string]interface{}{"dry_run": true}, &result); err != nil {
		return nil, err
	}

	if result.Prediction != PredictionReject && result.Prediction != PredictionApprove {
		return nil, apierr.External("AI verifier returned unknown prediction", fmt.Errorf("prediction=%d", result.Prediction))
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, apierr.External("AI verifier returned out-of-range confidence", fmt.Errorf("confidence=%f", result.Confidence))
	}
	return &result, nil
}

func (c *httpClient) TriggerBulkScoring(ctx context.Context, confidenceThreshold float64) (*BulkResult, error) {
	url := c.baseURL + "/verify"
	body := map[string]interface{}{
		"confidence_threshold": confidenceThreshold,
		"dry_run":              true,
	}

	var result BulkResult
	if err := c.post(ctx, url, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) post(ctx context.Context, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apierr.Internal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apierr.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apierr.External("AI verifier unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.External("AI verifier request failed", fmt.Errorf("%s returned %s", url, resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.External("AI verifier returned malformed payload", err)
	}
	return nil
}
