package hedra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/adforge/adforge-backend/internal/logger"
)

// Client renders talking-avatar videos from a voiceover track. Rendering is
// asynchronous on the provider side: CreateRender returns a job id and
// PollRender is called until the job settles.
type Client interface {
	CreateRender(ctx context.Context, req RenderRequest) (string, error)
	PollRender(ctx context.Context, jobID string) (RenderStatus, error)
	WaitForRender(ctx context.Context, jobID string) (RenderStatus, error)
}

type RenderRequest struct {
	AudioURL    string
	AvatarID    string // empty uses the configured default avatar
	AspectRatio string // "9:16" | "1:1" | "16:9"
}

// Render job states.
const (
	RenderStateQueued     = "queued"
	RenderStateProcessing = "processing"
	RenderStateComplete   = "complete"
	RenderStateFailed     = "failed"
)

type RenderStatus struct {
	JobID    string
	State    string
	VideoURL string
	Error    string
}

func (s RenderStatus) Done() bool {
	return s.State == RenderStateComplete || s.State == RenderStateFailed
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hedra http %d: %s", e.StatusCode, e.Body)
}

type client struct {
	log          *logger.Logger
	baseURL      string
	apiKey       string
	avatarID     string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("HEDRA_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing HEDRA_API_KEY")
	}
	baseURL := strings.TrimSpace(os.Getenv("HEDRA_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.hedra.com"
	}

	return &client{
		log:          log.With("service", "HedraClient"),
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		avatarID:     strings.TrimSpace(os.Getenv("HEDRA_AVATAR_ID")),
		pollInterval: 10 * time.Second,
		pollTimeout:  20 * time.Minute,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type createRenderRequest struct {
	AudioURL    string `json:"audio_url"`
	AvatarID    string `json:"avatar_id,omitempty"`
	AspectRatio string `json:"aspect_ratio"`
}

type createRenderResponse struct {
	JobID string `json:"job_id"`
}

type renderStatusResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

func (c *client) CreateRender(ctx context.Context, req RenderRequest) (string, error) {
	if strings.TrimSpace(req.AudioURL) == "" {
		return "", fmt.Errorf("audio url is required")
	}
	avatarID := req.AvatarID
	if avatarID == "" {
		avatarID = c.avatarID
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "9:16"
	}

	body, err := json.Marshal(createRenderRequest{
		AudioURL:    req.AudioURL,
		AvatarID:    avatarID,
		AspectRatio: aspect,
	})
	if err != nil {
		return "", fmt.Errorf("marshal render request: %w", err)
	}

	var out createRenderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/characters/render", body, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("render response missing job_id")
	}
	c.log.Info("Render job created", "job_id", out.JobID, "aspect_ratio", aspect)
	return out.JobID, nil
}

func (c *client) PollRender(ctx context.Context, jobID string) (RenderStatus, error) {
	if jobID == "" {
		return RenderStatus{}, fmt.Errorf("job id is required")
	}
	var out renderStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/characters/render/"+jobID, nil, &out); err != nil {
		return RenderStatus{}, err
	}
	return RenderStatus{
		JobID:    out.JobID,
		State:    normalizeState(out.Status),
		VideoURL: out.VideoURL,
		Error:    out.Error,
	}, nil
}

// WaitForRender polls until the job settles, the poll timeout elapses, or ctx
// is cancelled.
func (c *client) WaitForRender(ctx context.Context, jobID string) (RenderStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.PollRender(ctx, jobID)
		if err != nil {
			return RenderStatus{}, err
		}
		if status.Done() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return RenderStatus{}, fmt.Errorf("waiting for render %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hedra request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading hedra response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding hedra response: %w", err)
	}
	return nil
}

func normalizeState(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued", "pending":
		return RenderStateQueued
	case "processing", "in_progress", "running":
		return RenderStateProcessing
	case "complete", "completed", "succeeded":
		return RenderStateComplete
	case "failed", "error":
		return RenderStateFailed
	default:
		return RenderStateProcessing
	}
}
