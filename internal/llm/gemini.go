package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Venkat-Kolasani/deriv-hr-agent/internal/httpkit"
)

// Config holds everything the gateway needs. It is passed explicitly at
// construction; there is no ambient API-key lookup.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

// DefaultConfig returns sensible defaults for the given API key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.0-flash",
		Temperature:     0.7,
		MaxOutputTokens: 2048,
		Timeout:         60 * time.Second,
	}
}

// Client is a stateless request/response wrapper around the Gemini REST
// endpoint. Every Send is independent: no retries, no caching, no
// conversation state.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Gemini gateway client. Zero-valued config fields
// fall back to the defaults from DefaultConfig. A missing API key is not
// an error here; Send reports it so per-request error handling stays in
// one place.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = def.MaxOutputTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpkit.NewClient(cfg.Timeout),
		logger:     logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Wire format for generateContent. Messages and parts already carry the
// right JSON tags, so only the envelope types live here.

type geminiRequest struct {
	Contents          []Message        `json:"contents"`
	SystemInstruction *systemContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	Tools             []geminiTool     `json:"tools,omitempty"`
}

type systemContent struct {
	Parts []Part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
			Role  string `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Send performs one blocking generateContent exchange and decodes the
// first candidate's parts. The request's temperature and token limit
// override the configured defaults when set.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxOutputTokens
	}

	body := geminiRequest{
		Contents: req.History,
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &systemContent{Parts: []Part{TextPart(req.SystemInstruction)}}
	}
	if len(req.Tools) > 0 {
		body.Tools = []geminiTool{{FunctionDeclarations: req.Tools}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "gemini request",
		"model", c.cfg.Model,
		"payload", string(payload),
	)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Log(ctx, LevelTrace, "gemini response",
		"status", httpResp.StatusCode,
		"payload", string(raw),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return nil, &ModelServiceError{
				StatusCode: httpResp.StatusCode,
				Status:     http.StatusText(httpResp.StatusCode),
			}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if decoded.Error != nil {
		return nil, &ModelServiceError{
			StatusCode: httpResp.StatusCode,
			Status:     decoded.Error.Status,
			Message:    decoded.Error.Message,
		}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &ModelServiceError{
			StatusCode: httpResp.StatusCode,
			Status:     http.StatusText(httpResp.StatusCode),
		}
	}

	if len(decoded.Candidates) == 0 {
		return nil, &NoCandidateError{}
	}
	cand := decoded.Candidates[0]
	if len(cand.Content.Parts) == 0 {
		return nil, &NoCandidateError{FinishReason: cand.FinishReason}
	}

	return &Response{
		Parts: cand.Content.Parts,
		Usage: Usage{
			PromptTokens:    decoded.UsageMetadata.PromptTokenCount,
			CandidateTokens: decoded.UsageMetadata.CandidatesTokenCount,
			TotalTokens:     decoded.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// Ping verifies the service is reachable and the credential is accepted
// by listing models. Used by startup checks, never by the loop.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}

	url := fmt.Sprintf("%s/models?key=%s&pageSize=1", c.cfg.BaseURL, c.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ModelServiceError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}
	return nil
}
