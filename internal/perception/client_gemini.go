// Package perception implements the model capability client: scene
// description, plan generation, image editing, judgment, and search-grounded
// lookups against the Gemini REST API.
package perception

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/novasvilla/facelift/internal/logging"
	"github.com/novasvilla/facelift/internal/types"
)

// ErrNoImagePayload aliases the shared sentinel for an image-edit
// response without an image part.
var ErrNoImagePayload = types.ErrNoImagePayload

// GeminiClient implements the capability interfaces against the Gemini API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	imageModel      string
	maxOutputTokens int
	httpClient      *http.Client

	mu          sync.Mutex
	lastRequest time.Time

	lastGroundingSources []string
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-3-flash-preview",
		ImageModel:      "gemini-3-pro-image-preview",
		Timeout:         5 * time.Minute, // image models need extended timeouts
		MaxOutputTokens: 65536,
	}
}

// NewGeminiClient creates a new Gemini client with default config.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a new Gemini client with custom config.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	imageModel := strings.TrimSpace(config.ImageModel)
	if imageModel == "" {
		imageModel = "gemini-3-pro-image-preview"
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = 65536
	}

	return &GeminiClient{
		apiKey:          config.APIKey,
		baseURL:         config.BaseURL,
		model:           model,
		imageModel:      imageModel,
		maxOutputTokens: maxOutputTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// GetModel returns the current text model.
func (c *GeminiClient) GetModel() string {
	return c.model
}

// SetModel changes the model used for text completions.
func (c *GeminiClient) SetModel(model string) {
	c.model = model
}

// GetLastGroundingSources returns the grounding source URLs from the last
// search-grounded call.
func (c *GeminiClient) GetLastGroundingSources() []string {
	return c.lastGroundingSources
}

// throttle enforces a minimal interval between requests.
func (c *GeminiClient) throttle() {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}

// imageParts converts blobs into inline-data request parts.
func imageParts(images []types.Blob) []GeminiPart {
	parts := make([]GeminiPart, 0, len(images))
	for _, img := range images {
		parts = append(parts, GeminiPart{
			InlineData: &GeminiBlob{
				MIMEType: img.MIME,
				Data:     base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	return parts
}

// generate sends one generateContent request with retries for rate limits
// and transport errors, and returns the decoded response.
func (c *GeminiClient) generate(ctx context.Context, model string, reqBody GeminiRequest) (*GeminiResponse, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		logging.APIError("[Gemini] API key not configured")
		return nil, fmt.Errorf("API key not configured")
	}

	c.throttle()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var geminiResp GeminiResponse
		if err := json.Unmarshal(body, &geminiResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		if geminiResp.Error != nil {
			return nil, fmt.Errorf("API error: %s", geminiResp.Error.Message)
		}

		return &geminiResp, nil
	}

	logging.APIError("[Gemini] max retries exceeded: %v", lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *GeminiResponse) (string, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		result.WriteString(part.Text)
	}
	return strings.TrimSpace(result.String()), nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	startTime := time.Now()
	logging.APIDebug("[Gemini] CompleteWithSystem: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: userPrompt}}},
		},
		SystemInstruction: &GeminiContent{
			Parts: []GeminiPart{{Text: systemPrompt}},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     1.0,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}

	resp, err := c.generate(ctx, c.model, reqBody)
	if err != nil {
		return "", err
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	logging.API("[Gemini] CompleteWithSystem: completed in %v response_len=%d", time.Since(startTime), len(text))
	return text, nil
}

// DescribeImages sends one or more images with a structured instruction and
// returns the model's analysis. A single attempt at the semantic level;
// only transport errors are retried.
func (c *GeminiClient) DescribeImages(ctx context.Context, prompt string, images []types.Blob) (string, error) {
	startTime := time.Now()
	logging.APIDebug("[Gemini] DescribeImages: model=%s images=%d prompt_len=%d", c.model, len(images), len(prompt))

	parts := imageParts(images)
	parts = append(parts, GeminiPart{Text: prompt})

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: parts},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     1.0,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}

	resp, err := c.generate(ctx, c.model, reqBody)
	if err != nil {
		return "", err
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	logging.API("[Gemini] DescribeImages: completed in %v response_len=%d", time.Since(startTime), len(text))
	return text, nil
}

// EditImage applies a textual edit instruction to a base image using the
// image model. The response is scanned for an image payload; absence is
// ErrNoImagePayload.
func (c *GeminiClient) EditImage(ctx context.Context, instruction string, base types.Blob) (types.Blob, error) {
	startTime := time.Now()
	logging.APIDebug("[Gemini] EditImage: model=%s instruction_len=%d", c.imageModel, len(instruction))

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{
				Role: "user",
				Parts: []GeminiPart{
					{InlineData: &GeminiBlob{
						MIMEType: base.MIME,
						Data:     base64.StdEncoding.EncodeToString(base.Data),
					}},
					{Text: instruction},
				},
			},
		},
	}

	resp, err := c.generate(ctx, c.imageModel, reqBody)
	if err != nil {
		return types.Blob{}, err
	}

	if len(resp.Candidates) == 0 {
		return types.Blob{}, ErrNoImagePayload
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return types.Blob{}, fmt.Errorf("failed to decode image payload: %w", err)
		}
		logging.API("[Gemini] EditImage: completed in %v payload=%d bytes", time.Since(startTime), len(data))
		return types.Blob{MIME: part.InlineData.MIMEType, Data: data}, nil
	}

	logging.APIError("[Gemini] EditImage: no image part in response after %v", time.Since(startTime))
	return types.Blob{}, ErrNoImagePayload
}

// CompleteWithSearch sends a prompt with Google Search grounding enabled
// and records the grounding sources for transparency.
func (c *GeminiClient) CompleteWithSearch(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()
	logging.APIDebug("[Gemini] CompleteWithSearch: model=%s prompt_len=%d", c.model, len(prompt))

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: prompt}}},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     1.0,
			MaxOutputTokens: c.maxOutputTokens,
		},
		Tools: []GeminiTool{{GoogleSearch: &GeminiGoogleSearch{}}},
	}

	resp, err := c.generate(ctx, c.model, reqBody)
	if err != nil {
		return "", err
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	c.lastGroundingSources = nil
	if gm := resp.Candidates[0].GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				c.lastGroundingSources = append(c.lastGroundingSources, chunk.Web.URI)
			}
		}
		if len(c.lastGroundingSources) > 0 {
			logging.APIDebug("[Gemini] CompleteWithSearch: grounding sources=%d queries=%v",
				len(c.lastGroundingSources), gm.WebSearchQueries)
		}
	}

	logging.API("[Gemini] CompleteWithSearch: completed in %v response_len=%d grounding_sources=%d",
		time.Since(startTime), len(text), len(c.lastGroundingSources))
	return text, nil
}

var _ types.CapabilityClient = (*GeminiClient)(nil)
