package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/adforge/adforge-backend/internal/logger"
)

// Client publishes generated video ads through the Facebook Marketing API.
// Every call takes the account's access token explicitly; tokens are stored
// sealed and unsealed per request by the publishing service.
type Client interface {
	UploadVideo(ctx context.Context, accessToken, adAccountID string, video []byte, title string) (string, error)
	CreateCreative(ctx context.Context, accessToken string, req CreativeRequest) (string, error)
	CreateAd(ctx context.Context, accessToken string, req AdRequest) (string, error)
}

type CreativeRequest struct {
	AdAccountID string
	PageID      string
	VideoID     string
	Message     string
	CallToAction string
	LinkURL     string
}

type AdRequest struct {
	AdAccountID string
	AdSetID     string
	CreativeID  string
	Name        string
	Paused      bool
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facebook http %d: %s", e.StatusCode, e.Body)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("FACEBOOK_GRAPH_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	apiVersion := strings.TrimSpace(os.Getenv("FACEBOOK_API_VERSION"))
	if apiVersion == "" {
		apiVersion = "v19.0"
	}

	return &client{
		log:        log.With("service", "FacebookClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}, nil
}

type idResponse struct {
	ID string `json:"id"`
}

func (c *client) UploadVideo(ctx context.Context, accessToken, adAccountID string, video []byte, title string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("access token is required")
	}
	if adAccountID == "" {
		return "", fmt.Errorf("ad account id is required")
	}
	if len(video) == 0 {
		return "", fmt.Errorf("video payload is empty")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", title); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("source", "ad_video.mp4")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(video); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/act_%s/advideos?access_token=%s",
		c.baseURL, c.apiVersion, strings.TrimPrefix(adAccountID, "act_"), url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out idResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	c.log.Info("Ad video uploaded", "video_id", out.ID, "bytes", len(video))
	return out.ID, nil
}

func (c *client) CreateCreative(ctx context.Context, accessToken string, r CreativeRequest) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("access token is required")
	}
	if r.AdAccountID == "" || r.VideoID == "" || r.PageID == "" {
		return "", fmt.Errorf("ad account id, page id and video id are required")
	}

	spec := map[string]any{
		"page_id": r.PageID,
		"video_data": map[string]any{
			"video_id": r.VideoID,
			"message":  r.Message,
			"call_to_action": map[string]any{
				"type":  cta(r.CallToAction),
				"value": map[string]any{"link": r.LinkURL},
			},
		},
	}
	form := url.Values{}
	form.Set("access_token", accessToken)
	rawSpec, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	form.Set("object_story_spec", string(rawSpec))

	endpoint := fmt.Sprintf("%s/%s/act_%s/adcreatives",
		c.baseURL, c.apiVersion, strings.TrimPrefix(r.AdAccountID, "act_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out idResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	c.log.Info("Ad creative created", "creative_id", out.ID)
	return out.ID, nil
}

func (c *client) CreateAd(ctx context.Context, accessToken string, r AdRequest) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("access token is required")
	}
	if r.AdAccountID == "" || r.AdSetID == "" || r.CreativeID == "" {
		return "", fmt.Errorf("ad account id, ad set id and creative id are required")
	}

	status := "ACTIVE"
	if r.Paused {
		status = "PAUSED"
	}
	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("name", r.Name)
	form.Set("adset_id", r.AdSetID)
	form.Set("status", status)
	rawCreative, err := json.Marshal(map[string]string{"creative_id": r.CreativeID})
	if err != nil {
		return "", err
	}
	form.Set("creative", string(rawCreative))

	endpoint := fmt.Sprintf("%s/%s/act_%s/ads",
		c.baseURL, c.apiVersion, strings.TrimPrefix(r.AdAccountID, "act_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out idResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	c.log.Info("Ad created", "ad_id", out.ID, "status", status)
	return out.ID, nil
}

func (c *client) do(req *http.Request, out *idResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("facebook request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading facebook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding facebook response: %w", err)
	}
	if out.ID == "" {
		return fmt.Errorf("facebook response missing id")
	}
	return nil
}

func cta(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "LEARN_MORE"
	}
	return strings.ReplaceAll(s, " ", "_")
}
