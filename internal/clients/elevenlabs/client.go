package elevenlabs

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

// Client synthesizes voiceover audio from ad script text.
type Client interface {
	Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResult, error)
}

type SynthesizeRequest struct {
	Text    string
	VoiceID string // empty uses the configured default voice
}

type SynthesizeResult struct {
	Audio       []byte
	ContentType string
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs http %d: %s", e.StatusCode, e.Body)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing ELEVENLABS_API_KEY")
	}
	voiceID := strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID"))
	if voiceID == "" {
		return nil, fmt.Errorf("missing ELEVENLABS_VOICE_ID")
	}
	baseURL := strings.TrimSpace(os.Getenv("ELEVENLABS_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	modelID := strings.TrimSpace(os.Getenv("ELEVENLABS_MODEL_ID"))
	if modelID == "" {
		modelID = "eleven_multilingual_v2"
	}

	return &client{
		log:        log.With("service", "ElevenLabsClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		voiceID:    voiceID,
		modelID:    modelID,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (c *client) Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return SynthesizeResult{}, fmt.Errorf("text is required")
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = c.voiceID
	}

	body, err := json.Marshal(ttsRequest{
		Text:    req.Text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return SynthesizeResult{}, fmt.Errorf("marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SynthesizeResult{}, err
	}
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return SynthesizeResult{}, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return SynthesizeResult{}, fmt.Errorf("reading tts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return SynthesizeResult{}, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	c.log.Info("Voiceover synthesized", "voice_id", voiceID, "bytes", len(data))
	return SynthesizeResult{Audio: data, ContentType: contentType}, nil
}
