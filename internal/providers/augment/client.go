package augment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Options configures the augmentation service client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls the external augmentation compute service. One blocking call,
// no internal retry; any non-success response is treated as did-not-happen.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient constructs an augmentation client from explicit configuration.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: client, baseURL: base}
}

// Request describes one augmentation run. The same (source, recipe, seed)
// triple should reproduce the same variant sequence.
type Request struct {
	SourceURL string `json:"srcUrl"`
	Recipe    string `json:"recipe"`
	Count     int    `json:"count"`
	Seed      uint64 `json:"seed"`
}

type augmentResponse struct {
	OutputsBase64 []string `json:"outputsBase64"`
}

// Generate runs the recipe against the source image and returns the decoded
// variant payloads in generation order. The service responds with base64
// data URLs; callers get raw image bytes.
func (c *Client) Generate(ctx context.Context, req Request) ([][]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/augment", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("augment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("augment: http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out augmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("augment: decode response: %w", err)
	}
	if len(out.OutputsBase64) == 0 {
		return nil, fmt.Errorf("augment: empty response")
	}

	payloads := make([][]byte, len(out.OutputsBase64))
	for i, encoded := range out.OutputsBase64 {
		data, err := DecodeDataURL(encoded)
		if err != nil {
			return nil, fmt.Errorf("augment: variant %d: %w", i, err)
		}
		payloads[i] = data
	}
	return payloads, nil
}

// DecodeDataURL decodes a "data:<mime>;base64,<payload>" string, also
// accepting bare base64 for robustness.
func DecodeDataURL(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// EncodeDataURL is the inverse of DecodeDataURL, used to hand previews back
// to HTTP callers in the shape the compute service produces.
func EncodeDataURL(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}
