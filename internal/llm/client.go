package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the LLM service over its JSON completion API. The model
// itself is opaque: callers get text back plus usage metadata and do their
// own structured-output extraction (see parse.go).
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// CompletionRequest is one model invocation.
type CompletionRequest struct {
	Prompt       string                 `json:"query"`
	SystemPrompt string                 `json:"-"`
	AgentID      string                 `json:"agent_id"`
	ModelTier    string                 `json:"model_tier,omitempty"`
	MaxTokens    int                    `json:"max_tokens,omitempty"`
	Temperature  float64                `json:"temperature"`
	EnableSearch bool                   `json:"-"` // leaf flows may allow the model to browse
	Context      map[string]interface{} `json:"context,omitempty"`
}

// CompletionResult is the model's reply plus usage accounting.
type CompletionResult struct {
	Text         string
	TokensUsed   int
	InputTokens  int
	OutputTokens int
	ModelUsed    string
	Provider     string
}

type serviceResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
	Metadata struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"metadata"`
	TokensUsed int    `json:"tokens_used"`
	ModelUsed  string `json:"model_used"`
	Provider   string `json:"provider"`
}

// NewClient builds a client for the given LLM service base URL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: http, logger: logger}
}

// Complete runs one completion. Cancellation of ctx aborts the call.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	body := map[string]interface{}{
		"query":       req.Prompt,
		"agent_id":    req.AgentID,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.ModelTier != "" {
		body["model_tier"] = req.ModelTier
	}
	reqCtx := make(map[string]interface{}, len(req.Context)+2)
	for k, v := range req.Context {
		reqCtx[k] = v
	}
	if req.SystemPrompt != "" {
		reqCtx["system_prompt"] = req.SystemPrompt
	}
	if req.EnableSearch {
		reqCtx["enable_search"] = true
	}
	if len(reqCtx) > 0 {
		body["context"] = reqCtx
	}

	var out serviceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/agent/query")
	if err != nil {
		return nil, fmt.Errorf("llm service call failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("llm service returned HTTP %d", resp.StatusCode())
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "model reported failure"
		}
		return nil, fmt.Errorf("llm completion failed: %s", msg)
	}

	c.logger.Debug("LLM completion",
		zap.String("agent_id", req.AgentID),
		zap.String("model", out.ModelUsed),
		zap.Int("tokens", out.TokensUsed),
	)

	return &CompletionResult{
		Text:         out.Response,
		TokensUsed:   out.TokensUsed,
		InputTokens:  out.Metadata.InputTokens,
		OutputTokens: out.Metadata.OutputTokens,
		ModelUsed:    out.ModelUsed,
		Provider:     out.Provider,
	}, nil
}
