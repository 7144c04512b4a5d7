package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hh-coverletter/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultURL        = "http://localhost:11434"
	generatePath      = "/api/generate"
	defaultMaxRetries = 3

	// Generation options tuned for short cover letters.
	numPredict  = 350
	temperature = 0.5
	topP        = 0.85
)

var wait = utils.WaitFor

// Client talks to a local Ollama instance via its generate endpoint.
type Client struct {
	url        string
	model      string
	maxRetries int
	httpClient *http.Client
	logger     *zap.Logger
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// NewClient creates a generation client for the Ollama backend.
func NewClient(url, model string, maxRetries int, logger *zap.Logger) (*Client, error) {
	if model = strings.TrimSpace(model); model == "" {
		return nil, errors.New("ollama model is required")
	}

	if url = strings.TrimSpace(strings.TrimSuffix(url, "/")); url == "" {
		url = defaultURL
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		url:        url,
		model:      model,
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}, nil
}

// GenerateContent sends the prompt to Ollama and returns the generated text.
// Transient faults are retried with linear backoff up to the configured limit.
// An empty or malformed response is an error, never an empty letter.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		output, transient, err := c.generate(ctx, prompt)
		if err == nil {
			return output, nil
		}

		lastErr = err
		if !transient {
			return "", err
		}

		c.logger.Warn("transient ollama error",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err),
		)

		if attempt == c.maxRetries {
			break
		}

		if err := wait(ctx, time.Duration(attempt)*time.Second); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("ollama backend unavailable after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// generate performs a single request. The second return value reports whether
// the failure is transient and worth another attempt.
func (c *Client) generate(ctx context.Context, prompt string) (string, bool, error) {
	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  numPredict,
			Temperature: temperature,
			TopP:        topP,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", false, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read ollama response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("ollama returned status %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("ollama returned status %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("invalid json from ollama: %w", err)
	}

	if parsed.Error != "" {
		return "", false, fmt.Errorf("ollama error: %s", parsed.Error)
	}

	output := cleanResponse(parsed.Response)
	if output == "" {
		return "", false, errors.New("ollama returned empty response")
	}

	return output, false, nil
}

// cleanResponse strips model artifacts and markdown noise from the output.
func cleanResponse(response string) string {
	cleaned := strings.ReplaceAll(response, "</s>", "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, "\n ", "\n")
	cleaned = strings.ReplaceAll(cleaned, "  ", " ")

	for _, char := range []string{"#", "*", "`"} {
		cleaned = strings.ReplaceAll(cleaned, char, "")
	}

	return strings.TrimSpace(cleaned)
}
