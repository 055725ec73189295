package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adforge/adforge-backend/internal/logger"
)

// AttachmentKindPDF requires the document capability flag on the call.
const (
	AttachmentKindPDF   = "pdf"
	AttachmentKindImage = "image"
)

type Attachment struct {
	Kind      string // "pdf" | "image"
	MediaType string // e.g. "application/pdf", "image/png"
	Data      string // base64
}

type Request struct {
	System          string // may be empty; some stages fold everything into the user prompt
	User            string
	MaxOutputTokens int
	Attachments     []Attachment
}

type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	// Truncated is set when the response was cut off at the output-token
	// ceiling. A truncated response will fail JSON parsing downstream, so it
	// is surfaced here and logged, never swallowed.
	Truncated bool
}

// Client is the boundary to the hosted LLM completion service. One request,
// one response: no implicit retries, no streaming. Whether a failure is worth
// retrying is the caller's decision.
type Client interface {
	Complete(ctx context.Context, req Request) (Result, error)
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion http %d: %s", e.StatusCode, e.Body)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	apiVersion string
	pdfBeta    string
	maxTokens  int
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	// Generation calls routinely run for minutes; the timeout is deliberately
	// long and fixed. Callers must not assume sub-second latency.
	timeoutSec := 1800
	if v := os.Getenv("ANTHROPIC_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxTokens := 8192
	if v := os.Getenv("ANTHROPIC_MAX_OUTPUT_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			maxTokens = parsed
		}
	}

	return &client{
		log:        log.With("service", "CompletionClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		apiVersion: "2023-06-01",
		pdfBeta:    "pdfs-2024-09-25",
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *blockSource `json:"source,omitempty"`
}

type blockSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system,omitempty"`
	Messages  []struct {
		Role    string         `json:"role"`
		Content []contentBlock `json:"content"`
	} `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *client) Complete(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.User) == "" {
		return Result{}, fmt.Errorf("empty user prompt")
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	blocks := make([]contentBlock, 0, len(req.Attachments)+1)
	hasPDF := false
	for _, att := range req.Attachments {
		blockType := "image"
		if att.Kind == AttachmentKindPDF {
			blockType = "document"
			hasPDF = true
		}
		blocks = append(blocks, contentBlock{
			Type: blockType,
			Source: &blockSource{
				Type:      "base64",
				MediaType: att.MediaType,
				Data:      att.Data,
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: req.User})

	body := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.System,
	}
	body.Messages = append(body.Messages, struct {
		Role    string         `json:"role"`
		Content []contentBlock `json:"content"`
	}{Role: "user", Content: blocks})

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", &buf)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")
	if hasPDF {
		httpReq.Header.Set("anthropic-beta", c.pdfBeta)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("completion request failed: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Result{}, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, fmt.Errorf("completion decode error: %w; raw=%s", err, string(raw))
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Result{}, fmt.Errorf("no text content in completion response")
	}

	result := Result{
		Text:         text.String(),
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		Truncated:    parsed.StopReason == "max_tokens",
	}

	c.log.Info("Completion finished",
		"model", c.model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"duration", time.Since(started).String(),
	)
	if result.Truncated {
		c.log.Warn("Completion truncated at output-token ceiling",
			"max_output_tokens", maxTokens,
			"output_tokens", result.OutputTokens,
		)
	}
	return result, nil
}
