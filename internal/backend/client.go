package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rowan/genbridge/internal/domain"
)

// Client talks to the generation backend over its REST contract.
type Client struct {
	http    *resty.Client
	baseURL string
}

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new backend client.
// Parameters:
//   - cfg: backend base URL and request timeout.
//
// Returns:
//   - *Client: initialized REST client wrapper.
func NewClient(cfg *ClientConfig) *Client {
	client := resty.New()
	client.SetHeader("Accept", "application/json")
	// Set timeout to prevent hanging requests
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	return &Client{
		http:    client,
		baseURL: cfg.BaseURL,
	}
}

type runResponse struct {
	OK    bool   `json:"ok"`
	JobID string `json:"jobId"`
	Error string `json:"error,omitempty"`
}

type jobResponse struct {
	Job *domain.Job `json:"job"`
}

type jobListResponse struct {
	Jobs []domain.Job `json:"jobs"`
}

type cancelResponse struct {
	OK     bool             `json:"ok"`
	Status domain.JobStatus `json:"status,omitempty"`
}

type uploadResponse struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder,omitempty"`
	Type      string `json:"type,omitempty"`
}

// RunWorkflow submits a job-creation request with the resolved input list.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - workflowID: workflow to run.
//   - inputs: ordered resolved inputs.
//
// Returns:
//   - string: backend-assigned job id.
//   - error: non-nil if the backend rejects the run or the request fails.
func (c *Client) RunWorkflow(ctx context.Context, workflowID string, inputs []domain.RunInput) (string, error) {
	var result runResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(inputs).
		SetResult(&result).
		Post(fmt.Sprintf("%s/workflows/%s/run", c.baseURL, workflowID))
	if err != nil {
		return "", fmt.Errorf("run workflow %s: %w", workflowID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("run workflow %s: backend returned %s", workflowID, resp.Status())
	}
	if !result.OK || result.JobID == "" {
		msg := result.Error
		if msg == "" {
			msg = "backend rejected the run request"
		}
		return "", fmt.Errorf("run workflow %s: %s", workflowID, msg)
	}
	return result.JobID, nil
}

// GetJob fetches the current record of a single job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var result jobResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("%s/jobs/%s", c.baseURL, jobID))
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get job %s: backend returned %s", jobID, resp.Status())
	}
	if result.Job == nil {
		return nil, fmt.Errorf("get job %s: backend returned no job record", jobID)
	}
	return result.Job, nil
}

// ListJobs fetches all jobs for a workflow.
func (c *Client) ListJobs(ctx context.Context, workflowID string) ([]domain.Job, error) {
	var result jobListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("%s/workflows/%s/jobs", c.baseURL, workflowID))
	if err != nil {
		return nil, fmt.Errorf("list jobs for workflow %s: %w", workflowID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list jobs for workflow %s: backend returned %s", workflowID, resp.Status())
	}
	return result.Jobs, nil
}

// CancelJob asks the backend to cancel a job. The returned status, when
// non-empty, is the backend-confirmed state after cancellation.
func (c *Client) CancelJob(ctx context.Context, jobID string) (domain.JobStatus, error) {
	var result cancelResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Post(fmt.Sprintf("%s/jobs/%s/cancel", c.baseURL, jobID))
	if err != nil {
		return "", fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("cancel job %s: backend returned %s", jobID, resp.Status())
	}
	if !result.OK {
		return "", fmt.Errorf("cancel job %s: backend did not confirm", jobID)
	}
	return result.Status, nil
}

// RecheckJob triggers backend-side output discovery for a job.
func (c *Client) RecheckJob(ctx context.Context, jobID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post(fmt.Sprintf("%s/jobs/%s/recheck", c.baseURL, jobID))
	if err != nil {
		return fmt.Errorf("recheck job %s: %w", jobID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("recheck job %s: backend returned %s", jobID, resp.Status())
	}
	return nil
}

// UploadImage uploads raw image bytes to the backend-native upload endpoint.
// A response without a name is a hard failure.
func (c *Client) UploadImage(ctx context.Context, filename string, data []byte) (*domain.UploadDescriptor, error) {
	var result uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("X-Filename", filename).
		SetBody(data).
		SetResult(&result).
		Post(fmt.Sprintf("%s/images/upload", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("upload image %s: %w", filename, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upload image %s: backend returned %s", filename, resp.Status())
	}
	if result.Name == "" {
		return nil, fmt.Errorf("upload image %s: backend returned no asset name", filename)
	}
	return &domain.UploadDescriptor{
		Filename:  result.Name,
		Subfolder: result.Subfolder,
		Type:      result.Type,
	}, nil
}
