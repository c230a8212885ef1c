package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/config"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/retry"
)

var (
	ErrNoAPIKey       = errors.New("gemini api key is not configured")
	ErrEmptyResponse  = errors.New("empty response from model")
	ErrPromptBlocked  = errors.New("prompt was blocked by safety filters")
	ErrNoImageInReply = errors.New("model returned no image data")
)

// HTTPClient talks to the generateContent endpoint directly over HTTP.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

func NewHTTPClient(cfg config.GeminiConfig, httpClient *http.Client, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		policy:     retry.DefaultPolicy(),
		logger:     logger,
	}
}

func (c *HTTPClient) GenerateContent(ctx context.Context, model string, parts []Part) (string, error) {
	resp, err := c.generate(ctx, model, parts, nil)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, part := range resp.textParts() {
		sb.WriteString(part)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *HTTPClient) GenerateImage(ctx context.Context, model string, prompt string) ([]Image, error) {
	cfg := &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
	resp, err := c.generate(ctx, model, []Part{TextPart(prompt)}, cfg)
	if err != nil {
		return nil, err
	}

	images, err := resp.images()
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoImageInReply
	}
	return images, nil
}

func (c *HTTPClient) generate(ctx context.Context, model string, parts []Part, genCfg *generationConfig) (*generateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	if len(parts) == 0 {
		return nil, errors.New("no content parts to send")
	}

	wireParts := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if p.Inline != nil {
			wireParts = append(wireParts, wirePart{InlineData: &inlineData{
				MIMEType: p.Inline.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Inline.Data),
			}})
			continue
		}
		wireParts = append(wireParts, wirePart{Text: p.Text})
	}

	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: wireParts}},
		GenerationConfig: genCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)

	resp, body, err := retry.DoHTTP(ctx, c.policy, c.logger, func(ctx context.Context) (*http.Response, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, err
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return httpResp, nil, fmt.Errorf("read response: %w", err)
		}
		return httpResp, respBody, nil
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, snippet(body))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrPromptBlocked, parsed.PromptFeedback.BlockReason)
	}
	return &parsed, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (r *generateResponse) textParts() []string {
	if len(r.Candidates) == 0 {
		return nil
	}
	var out []string
	for _, part := range r.Candidates[0].Content.Parts {
		if part.Text != "" {
			out = append(out, part.Text)
		}
	}
	return out
}

func (r *generateResponse) images() ([]Image, error) {
	if len(r.Candidates) == 0 {
		return nil, nil
	}
	var out []Image
	for _, part := range r.Candidates[0].Content.Parts {
		if part.InlineData == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decode image data: %w", err)
		}
		out = append(out, Image{MIMEType: part.InlineData.MIMEType, Data: data})
	}
	return out, nil
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
